package spectrogram

// Matrix is a dense, row-major time-frequency magnitude matrix: frames
// along rows, frequency bins along columns, bin 0 is DC. It owns its
// backing storage; Row returns a borrowing view into it.
type Matrix struct {
	data   []float64
	frames int
	bins   int

	// Dt is the time step between frames, in seconds.
	Dt float64
	// Df is the frequency step between bins, in Hz.
	Df float64
}

// NewMatrix allocates a zeroed frames x bins matrix.
func NewMatrix(frames, bins int, dt, df float64) *Matrix {
	return &Matrix{
		data:   make([]float64, frames*bins),
		frames: frames,
		bins:   bins,
		Dt:     dt,
		Df:     df,
	}
}

// Frames returns the number of time frames.
func (m *Matrix) Frames() int { return m.frames }

// Bins returns the number of frequency bins.
func (m *Matrix) Bins() int { return m.bins }

// At returns the magnitude at frame t, bin f.
func (m *Matrix) At(t, f int) float64 { return m.data[t*m.bins+f] }

// Set stores the magnitude at frame t, bin f.
func (m *Matrix) Set(t, f int, v float64) { m.data[t*m.bins+f] = v }

// Row returns a borrowed view of frame t's magnitudes across all bins;
// mutating the returned slice mutates the matrix.
func (m *Matrix) Row(t int) []float64 {
	return m.data[t*m.bins : (t+1)*m.bins]
}
