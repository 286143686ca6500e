package spectrogram

import (
	"math"
	"testing"
)

func sineWave(freq float64, fs, n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = math.Sin(2 * math.Pi * freq * float64(i) / float64(fs))
	}
	return out
}

func TestComputeShape(t *testing.T) {
	const fs = 11025
	cfg := Config{WindowLen: 1024, Hop: 512}
	samples := sineWave(440, fs, fs*2)

	m, err := Compute(samples, fs, cfg)
	if err != nil {
		t.Fatalf("Compute: %v", err)
	}

	wantBins := cfg.WindowLen/2 + 1
	if m.Bins() != wantBins {
		t.Fatalf("bins = %d, want %d", m.Bins(), wantBins)
	}

	rem := len(samples) - cfg.WindowLen
	wantFrames := rem/cfg.Hop + 1
	if rem%cfg.Hop != 0 {
		wantFrames++
	}
	if m.Frames() != wantFrames {
		t.Fatalf("frames = %d, want %d", m.Frames(), wantFrames)
	}
}

func TestComputeRejectsShortInput(t *testing.T) {
	_, err := Compute(make([]float64, 10), 11025, DefaultConfig())
	if err == nil {
		t.Fatal("expected an error for input shorter than one window")
	}
}

func TestComputeDominantBinMatchesFrequency(t *testing.T) {
	const fs = 11025
	cfg := Config{WindowLen: 1024, Hop: 512}
	const freq = 1000.0
	samples := sineWave(freq, fs, fs)

	m, err := Compute(samples, fs, cfg)
	if err != nil {
		t.Fatalf("Compute: %v", err)
	}

	wantBin := int(math.Round(freq / m.Df))
	mid := m.Frames() / 2
	bestBin, bestMag := 0, 0.0
	for f := 0; f < m.Bins(); f++ {
		if v := m.At(mid, f); v > bestMag {
			bestMag = v
			bestBin = f
		}
	}
	if diff := bestBin - wantBin; diff < -1 || diff > 1 {
		t.Fatalf("dominant bin %d not within 1 of expected %d", bestBin, wantBin)
	}
}
