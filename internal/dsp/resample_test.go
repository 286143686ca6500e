package dsp

import (
	"math"
	"math/cmplx"
	"testing"

	"github.com/mjibson/go-dsp/fft"
)

func sineWave(freq float64, fs, n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = math.Sin(2 * math.Pi * freq * float64(i) / float64(fs))
	}
	return out
}

func dominantBin(samples []float64) int {
	spectrum := fft.FFTReal(samples)
	half := len(spectrum) / 2
	best, bestMag := 0, 0.0
	for i := 1; i < half; i++ {
		mag := cmplx.Abs(spectrum[i])
		if mag > bestMag {
			bestMag = mag
			best = i
		}
	}
	return best
}

func TestResampleDominantBinBelowNyquist(t *testing.T) {
	const fs = 44100
	const targetFs = 11025
	const freq = 1000.0

	samples := sineWave(freq, fs, fs*2)
	out, outFs, err := Resample(samples, fs, targetFs, DefaultConfig())
	if err != nil {
		t.Fatalf("Resample: %v", err)
	}
	if outFs != fs/4 {
		t.Fatalf("expected output rate %d, got %d", fs/4, outFs)
	}

	wantBin := int(math.Round(freq * float64(len(out)) / float64(outFs)))
	gotBin := dominantBin(out)
	if diff := gotBin - wantBin; diff < -1 || diff > 1 {
		t.Fatalf("dominant bin %d not within 1 of expected %d", gotBin, wantBin)
	}
}

func TestResampleRejectsRateAboveNyquist(t *testing.T) {
	_, _, err := Resample([]float64{0, 0, 0}, 8000, 8000, DefaultConfig())
	if err == nil {
		t.Fatal("expected an error when targetFs exceeds source Nyquist")
	}
}

func TestResampleRejectsNonFinite(t *testing.T) {
	_, _, err := Resample([]float64{0, math.NaN(), 0}, 44100, 11025, DefaultConfig())
	if err == nil {
		t.Fatal("expected an error for non-finite input")
	}
}

func TestResampleShortInputIsZeroPadded(t *testing.T) {
	samples := make([]float64, 10)
	for i := range samples {
		samples[i] = 1
	}
	out, _, err := Resample(samples, 44100, 11025, Config{FIROrder: 101})
	if err != nil {
		t.Fatalf("Resample: %v", err)
	}
	if len(out) == 0 {
		t.Fatal("expected at least one decimated sample from a short input")
	}
}

func TestFIRLowPassIsOddLength(t *testing.T) {
	taps := FIRLowPass(100, 0.25)
	if len(taps)%2 == 0 {
		t.Fatalf("expected an odd tap count, got %d", len(taps))
	}
}
