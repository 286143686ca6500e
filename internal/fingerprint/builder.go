// Package fingerprint pairs spectrogram peaks into addressable fingerprints
// using a bounded target zone and a fan-out cap per anchor.
package fingerprint

import (
	"sort"

	"github.com/soundprint/soundprint/internal/peaks"
)

// Fingerprint is a single (address, anchor frame) record ready for
// insertion into a store or use as a query term.
type Fingerprint struct {
	Address     Address
	AnchorFrame uint32
}

// Config controls the target zone and fan-out.
type Config struct {
	// DtMin, DtMax bound the target zone's time offset from the anchor,
	// in frames.
	DtMin, DtMax int
	// DfMax bounds the target zone's frequency offset from the anchor,
	// in bins.
	DfMax int
	// FanOut caps how many target peaks pair with a single anchor.
	FanOut int
}

// DefaultConfig matches the recognizer's dt_min/dt_max/df_max/fanout
// defaults.
func DefaultConfig() Config {
	return Config{DtMin: 1, DtMax: 32, DfMax: 64, FanOut: 5}
}

// Build pairs every peak with up to cfg.FanOut peaks in its target zone,
// closest-first by (delta frame, delta bin), and packs each pair into an
// Address via codec. Peaks that cannot be represented by codec are
// silently skipped — they are outside the configured ranges, not an error.
func Build(pks []peaks.Peak, codec *Codec, cfg Config) []Fingerprint {
	sorted := make([]peaks.Peak, len(pks))
	copy(sorted, pks)
	sort.Slice(sorted, func(i, j int) bool {
		if sorted[i].Frame != sorted[j].Frame {
			return sorted[i].Frame < sorted[j].Frame
		}
		return sorted[i].Bin < sorted[j].Bin
	})

	type candidate struct {
		target peaks.Peak
		dt, df int
	}

	var out []Fingerprint
	for i, anchor := range sorted {
		var candidates []candidate
		for j := i + 1; j < len(sorted); j++ {
			target := sorted[j]
			dt := target.Frame - anchor.Frame
			if dt > cfg.DtMax {
				break // sorted ascending by frame, nothing further can be in range
			}
			if dt < cfg.DtMin {
				continue
			}
			df := target.Bin - anchor.Bin
			if df < 0 {
				df = -df
			}
			if df > cfg.DfMax {
				continue
			}
			candidates = append(candidates, candidate{target, dt, df})
		}

		sort.Slice(candidates, func(a, b int) bool {
			if candidates[a].dt != candidates[b].dt {
				return candidates[a].dt < candidates[b].dt
			}
			return candidates[a].df < candidates[b].df
		})

		n := cfg.FanOut
		if n > len(candidates) {
			n = len(candidates)
		}
		for _, c := range candidates[:n] {
			addr, ok := codec.Encode(anchor.Bin, c.target.Bin, c.dt)
			if !ok {
				continue
			}
			out = append(out, Fingerprint{Address: addr, AnchorFrame: uint32(anchor.Frame)})
		}
	}
	return out
}
