package soundprint

import (
	"time"

	"github.com/soundprint/soundprint/internal/fingerprint"
	"github.com/soundprint/soundprint/internal/peaks"
	"github.com/soundprint/soundprint/internal/spectrogram"
	"github.com/soundprint/soundprint/internal/store"
)

// TrackID identifies a learned recording for the life of a database.
type TrackID = store.TrackID

// TrackInfo describes a single catalog entry.
type TrackInfo struct {
	ID               TrackID
	Name             string
	FingerprintCount uint32
	CreatedAt        time.Time
}

// MatchResult is the outcome of a successful Identify call.
type MatchResult struct {
	TrackID TrackID
	// OffsetFrames is how many STFT frames into the learned track the
	// query begins: query_frame + OffsetFrames == track_frame.
	OffsetFrames int
	// Score is the winning histogram bucket's count, the number of
	// fingerprints that agreed on OffsetFrames.
	Score int
}

// Diagnostics exposes the intermediate pipeline artifacts for a waveform,
// for visualization and debugging collaborators. It is not part of the
// learn/identify decision path.
type Diagnostics struct {
	Resampled    []float64
	ResampledHz  int
	Spectrogram  *spectrogram.Matrix
	Peaks        []peaks.Peak
	Fingerprints []fingerprint.Fingerprint
}
