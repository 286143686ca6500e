// Package match implements the two-stage matcher: candidate filtering by
// address overlap, then time-offset histogram verification.
package match

import (
	"sort"

	"github.com/soundprint/soundprint/internal/fingerprint"
	"github.com/soundprint/soundprint/internal/fperr"
	"github.com/soundprint/soundprint/internal/store"
)

// Config controls the matcher's decision thresholds.
type Config struct {
	// KMin is the minimum total postings a track must accumulate in
	// stage 1 to be considered at all.
	KMin int
	// SMin is the minimum coherent (bucketed) score a track needs to win.
	SMin int
	// Margin is how much the winner's score must exceed the runner-up's.
	Margin int
	// Bucket is the histogram bucket width, in frames.
	Bucket int
}

// DefaultConfig matches the recognizer's k_min/s_min/margin/bucket
// defaults.
func DefaultConfig() Config {
	return Config{KMin: 5, SMin: 5, Margin: 2, Bucket: 1}
}

// Result is the winning track and its supporting score and offset.
type Result struct {
	TrackID      store.TrackID
	Score        int
	OffsetFrames int
}

// Query looks up every fingerprint's address in st, accumulates per-track
// offset deltas, and returns the track whose largest histogram bucket
// clears SMin and beats the runner-up by Margin. It returns a *fperr.Error
// of kind NoMatch or Ambiguous, never a bare nil result, when no track
// wins.
func Query(fps []fingerprint.Fingerprint, st store.Store, cfg Config) (*Result, error) {
	deltas := make(map[store.TrackID][]int)

	for _, fp := range fps {
		postings, err := st.Recall(fp.Address)
		if err != nil {
			return nil, err
		}
		for _, p := range postings {
			delta := int(p.AnchorFrame) - int(fp.AnchorFrame)
			deltas[p.TrackID] = append(deltas[p.TrackID], delta)
		}
	}

	bucket := cfg.Bucket
	if bucket <= 0 {
		bucket = 1
	}

	type scored struct {
		id     store.TrackID
		score  int
		offset int
	}

	var candidates []scored
	for id, ds := range deltas {
		if len(ds) < cfg.KMin {
			continue
		}

		counts := make(map[int]int)
		for _, d := range ds {
			counts[floorDiv(d, bucket)]++
		}

		bestBucket, bestCount := 0, -1
		for b, c := range counts {
			if c > bestCount || (c == bestCount && absInt(b) < absInt(bestBucket)) {
				bestBucket, bestCount = b, c
			}
		}
		candidates = append(candidates, scored{id: id, score: bestCount, offset: bestBucket * bucket})
	}

	if len(candidates) == 0 {
		return nil, fperr.New(fperr.NoMatch, "no candidate track met the minimum match count")
	}

	sort.Slice(candidates, func(i, j int) bool { return candidates[i].score > candidates[j].score })

	best := candidates[0]
	if best.score < cfg.SMin {
		return nil, fperr.New(fperr.NoMatch, "best candidate score is below the minimum threshold")
	}
	if len(candidates) > 1 {
		second := candidates[1]
		if best.score-second.score < cfg.Margin {
			return nil, fperr.New(fperr.Ambiguous, "top two candidates are within the decision margin")
		}
	}

	return &Result{TrackID: best.id, Score: best.score, OffsetFrames: best.offset}, nil
}

func floorDiv(a, b int) int {
	q := a / b
	if a%b != 0 && (a < 0) != (b < 0) {
		q--
	}
	return q
}

func absInt(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
