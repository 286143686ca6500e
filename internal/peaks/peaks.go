// Package peaks extracts sparse feature points from a spectrogram using
// logarithmic non-maximum suppression followed by a percentile threshold.
package peaks

import (
	"fmt"
	"math"
	"sort"

	"github.com/montanaflynn/stats"

	"github.com/soundprint/soundprint/internal/spectrogram"
)

// Peak is an integer (frame, bin) coordinate into a Matrix. Amplitude is
// discarded once a peak survives selection.
type Peak struct {
	Frame int
	Bin   int
}

// Config controls both NMS stages.
type Config struct {
	// Alpha scales the logarithmic frequency half-width.
	Alpha float64
	// TimeHalf is the fixed time-axis half-width, in frames.
	TimeHalf int
	// Percentile is the threshold percentile (0-100).
	Percentile float64
	// PercentileWindowScale multiplies the NMS half-widths to get the
	// larger neighborhood the percentile is computed over.
	PercentileWindowScale int
}

// DefaultConfig matches the recognizer's nms_alpha/nms_time_half/percentile
// defaults, with a percentile neighborhood four times the NMS window.
func DefaultConfig() Config {
	return Config{Alpha: 4, TimeHalf: 3, Percentile: 75, PercentileWindowScale: 4}
}

// Find runs the two-stage peak selection over m and returns the surviving
// coordinates sorted by (frame, bin) ascending.
func Find(m *spectrogram.Matrix, cfg Config) ([]Peak, error) {
	if cfg.Alpha <= 0 || cfg.TimeHalf < 0 || cfg.PercentileWindowScale < 1 {
		return nil, fmt.Errorf("peaks: invalid configuration %+v", cfg)
	}

	frames, bins := m.Frames(), m.Bins()

	var candidates []Peak
	for t := 0; t < frames; t++ {
		for f := 0; f < bins; f++ {
			if isLocalMax(m, t, f, frames, bins, cfg.Alpha, cfg.TimeHalf) {
				candidates = append(candidates, Peak{Frame: t, Bin: f})
			}
		}
	}

	out := make([]Peak, 0, len(candidates))
	for _, c := range candidates {
		tHalf := cfg.TimeHalf * cfg.PercentileWindowScale
		fHalf := freqHalfWidth(cfg.Alpha, c.Bin) * cfg.PercentileWindowScale
		neighborhood := neighborhoodValues(m, c.Frame, c.Bin, tHalf, fHalf, frames, bins)

		threshold, err := stats.Percentile(neighborhood, cfg.Percentile)
		if err != nil {
			continue
		}
		if m.At(c.Frame, c.Bin) > threshold {
			out = append(out, c)
		}
	}

	sort.Slice(out, func(i, j int) bool {
		if out[i].Frame != out[j].Frame {
			return out[i].Frame < out[j].Frame
		}
		return out[i].Bin < out[j].Bin
	})
	return out, nil
}

// freqHalfWidth grows the frequency-axis NMS half-width with log(1+bin), the
// way the recognizer's higher frequency bins get coarser suppression.
func freqHalfWidth(alpha float64, bin int) int {
	w := int(math.Floor(alpha * math.Log(1+float64(bin))))
	if w < 1 {
		w = 1
	}
	return w
}

// isLocalMax reports whether (t, f) is strictly greater than every other
// cell in its rectangular neighborhood. Equal-valued neighbors are broken
// deterministically: the earlier-time cell wins, and within the same frame
// the higher-frequency cell wins, so a tie never produces two peaks.
func isLocalMax(m *spectrogram.Matrix, t, f, frames, bins int, alpha float64, timeHalf int) bool {
	wf := freqHalfWidth(alpha, f)
	v := m.At(t, f)
	for dt := -timeHalf; dt <= timeHalf; dt++ {
		t2 := t + dt
		if t2 < 0 || t2 >= frames {
			continue
		}
		for df := -wf; df <= wf; df++ {
			f2 := f + df
			if f2 < 0 || f2 >= bins {
				continue
			}
			if dt == 0 && df == 0 {
				continue
			}
			v2 := m.At(t2, f2)
			if v2 > v {
				return false
			}
			if v2 == v && (t2 < t || (t2 == t && f2 > f)) {
				return false
			}
		}
	}
	return true
}

func neighborhoodValues(m *spectrogram.Matrix, t, f, tHalf, fHalf, frames, bins int) []float64 {
	vals := make([]float64, 0, (2*tHalf+1)*(2*fHalf+1))
	for dt := -tHalf; dt <= tHalf; dt++ {
		t2 := t + dt
		if t2 < 0 || t2 >= frames {
			continue
		}
		for df := -fHalf; df <= fHalf; df++ {
			f2 := f + df
			if f2 < 0 || f2 >= bins {
				continue
			}
			vals = append(vals, m.At(t2, f2))
		}
	}
	return vals
}
