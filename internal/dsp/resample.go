package dsp

import (
	"fmt"
	"math"
)

// Config controls the anti-aliasing filter used by Resample.
type Config struct {
	// FIROrder is the FIR filter length in taps. It is rounded up to the
	// nearest odd number, since the windowed-sinc design needs a tap
	// centered on zero delay.
	FIROrder int
}

// DefaultConfig matches the default fir_order of the recognizer's
// configuration table.
func DefaultConfig() Config {
	return Config{FIROrder: 101}
}

// FIRLowPass designs a linear-phase low-pass filter of the given tap count
// using the windowed-sinc method with a Hamming window. cutoff is a
// fraction of the Nyquist frequency, in (0, 1).
func FIRLowPass(taps int, cutoff float64) []float64 {
	if taps%2 == 0 {
		taps++
	}
	mid := (taps - 1) / 2
	sinc := make([]float64, taps)
	for i := 0; i < taps; i++ {
		k := i - mid
		if k == 0 {
			sinc[i] = cutoff
			continue
		}
		sinc[i] = math.Sin(math.Pi*cutoff*float64(k)) / (math.Pi * float64(k))
	}
	window := Hamming(taps)
	out := make([]float64, taps)
	for i := range out {
		out[i] = sinc[i] * window[i]
	}
	return out
}

// Convolve computes the linear convolution of signal with kernel, returning
// a slice the same length as signal. Samples that fall outside signal's
// bounds are treated as zero, which is equivalent to zero-padding the tail
// (and head) for inputs shorter than the kernel.
func Convolve(signal, kernel []float64) []float64 {
	pad := len(kernel) / 2
	out := make([]float64, len(signal))
	for n := range out {
		var sum float64
		for k, tap := range kernel {
			idx := n + pad - k
			if idx < 0 || idx >= len(signal) {
				continue
			}
			sum += signal[idx] * tap
		}
		out[n] = sum
	}
	return out
}

// Resample decimates samples from fs to approximately targetFs. It designs
// a Hamming-windowed-sinc low-pass filter at the target Nyquist, convolves
// it against the input, then keeps every D-th sample where
// D = round(fs / targetFs). The actual output rate, fs/D, is returned
// alongside the decimated samples.
//
// The same group-delay compensation is applied on every call, so learn and
// query paths stay aligned on the same time axis.
func Resample(samples []float64, fs, targetFs int, cfg Config) ([]float64, int, error) {
	if fs <= 0 || targetFs <= 0 {
		return nil, 0, fmt.Errorf("dsp: sample rates must be positive, got fs=%d targetFs=%d", fs, targetFs)
	}
	if targetFs > fs/2 {
		return nil, 0, fmt.Errorf("dsp: target rate %d exceeds source Nyquist %d", targetFs, fs/2)
	}
	for _, s := range samples {
		if math.IsNaN(s) || math.IsInf(s, 0) {
			return nil, 0, fmt.Errorf("dsp: input contains a non-finite sample")
		}
	}

	d := int(math.Round(float64(fs) / float64(targetFs)))
	if d < 1 {
		d = 1
	}

	taps := FIRLowPass(cfg.FIROrder, 1.0/float64(d))
	filtered := Convolve(samples, taps)

	groupDelay := (len(taps) - 1) / 2
	discard := groupDelay / d
	if discard >= len(filtered) {
		discard = 0
	}

	out := make([]float64, 0, (len(filtered)-discard+d-1)/d)
	for i := discard; i < len(filtered); i += d {
		out = append(out, filtered[i])
	}
	return out, fs / d, nil
}
