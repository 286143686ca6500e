package spectrogram

import (
	"fmt"
	"math/cmplx"

	"github.com/mjibson/go-dsp/fft"

	"github.com/soundprint/soundprint/internal/dsp"
)

// Config controls STFT framing.
type Config struct {
	// WindowLen is the STFT window size in samples.
	WindowLen int
	// Hop is the STFT hop size in samples.
	Hop int
}

// DefaultConfig matches the recognizer's default window_len/hop pair: a
// 1024-sample window with 50% overlap.
func DefaultConfig() Config {
	return Config{WindowLen: 1024, Hop: 512}
}

// Compute partitions samples into overlapping frames of length
// cfg.WindowLen at stride cfg.Hop, zero-padding the final partial frame,
// applies a Hamming window, and keeps the lower half (including DC and
// Nyquist) of each frame's FFT magnitude spectrum.
func Compute(samples []float64, fs int, cfg Config) (*Matrix, error) {
	if cfg.WindowLen <= 0 || cfg.Hop <= 0 {
		return nil, fmt.Errorf("spectrogram: window length and hop must be positive")
	}
	if len(samples) == 0 {
		return nil, fmt.Errorf("spectrogram: empty input")
	}
	if len(samples) < cfg.WindowLen {
		return nil, fmt.Errorf("spectrogram: input shorter than one window")
	}

	window := dsp.Hamming(cfg.WindowLen)
	bins := cfg.WindowLen/2 + 1

	rem := len(samples) - cfg.WindowLen
	numFrames := rem/cfg.Hop + 1
	if rem%cfg.Hop != 0 {
		numFrames++
	}

	m := NewMatrix(numFrames, bins, float64(cfg.Hop)/float64(fs), float64(fs)/float64(cfg.WindowLen))

	// Scratch buffer reused across frames to avoid a per-frame allocation.
	frame := make([]float64, cfg.WindowLen)
	for t := 0; t < numFrames; t++ {
		start := t * cfg.Hop
		for i := 0; i < cfg.WindowLen; i++ {
			idx := start + i
			if idx < len(samples) {
				frame[i] = samples[idx] * window[i]
			} else {
				frame[i] = 0
			}
		}
		spectrum := fft.FFTReal(frame)
		for f := 0; f < bins; f++ {
			m.Set(t, f, cmplx.Abs(spectrum[f]))
		}
	}
	return m, nil
}
