package dsp

import "math"

// Hamming returns an n-point symmetric Hamming window, matching the
// construction used throughout the fingerprinting pipeline for both STFT
// framing and FIR filter design.
func Hamming(n int) []float64 {
	w := make([]float64, n)
	if n == 1 {
		w[0] = 1
		return w
	}
	for i := range w {
		w[i] = 0.54 - 0.46*math.Cos(2*math.Pi*float64(i)/float64(n-1))
	}
	return w
}
