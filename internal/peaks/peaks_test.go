package peaks

import (
	"math"
	"testing"

	"github.com/soundprint/soundprint/internal/spectrogram"
)

func sineWave(freq float64, fs, n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = math.Sin(2 * math.Pi * freq * float64(i) / float64(fs))
	}
	return out
}

func TestFindIsSortedAndSparse(t *testing.T) {
	const fs = 11025
	samples := sineWave(440, fs, fs*3)
	m, err := spectrogram.Compute(samples, fs, spectrogram.DefaultConfig())
	if err != nil {
		t.Fatalf("Compute: %v", err)
	}

	pks, err := Find(m, DefaultConfig())
	if err != nil {
		t.Fatalf("Find: %v", err)
	}
	if len(pks) == 0 {
		t.Fatal("expected at least one peak for a pure tone")
	}

	maxPeaks := m.Frames() * m.Bins()
	if len(pks) > maxPeaks {
		t.Fatalf("got %d peaks, more than cells available (%d)", len(pks), maxPeaks)
	}

	for i := 1; i < len(pks); i++ {
		prev, cur := pks[i-1], pks[i]
		if cur.Frame < prev.Frame || (cur.Frame == prev.Frame && cur.Bin <= prev.Bin) {
			t.Fatalf("peaks not strictly sorted by (frame, bin) at index %d: %+v then %+v", i, prev, cur)
		}
	}
}

func TestFindOnEmptyMatrix(t *testing.T) {
	m := spectrogram.NewMatrix(4, 8, 0.01, 10)
	pks, err := Find(m, DefaultConfig())
	if err != nil {
		t.Fatalf("Find: %v", err)
	}
	if len(pks) != 0 {
		t.Fatalf("expected no peaks in an all-zero matrix, got %d", len(pks))
	}
}

func TestFindRejectsInvalidConfig(t *testing.T) {
	m := spectrogram.NewMatrix(4, 8, 0.01, 10)
	_, err := Find(m, Config{Alpha: 0, TimeHalf: 3, Percentile: 75, PercentileWindowScale: 4})
	if err == nil {
		t.Fatal("expected an error for non-positive Alpha")
	}
}
