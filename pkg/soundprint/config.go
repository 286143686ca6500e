package soundprint

import (
	"time"

	"github.com/soundprint/soundprint/internal/dsp"
	"github.com/soundprint/soundprint/internal/fingerprint"
	"github.com/soundprint/soundprint/internal/match"
	"github.com/soundprint/soundprint/internal/peaks"
	"github.com/soundprint/soundprint/internal/spectrogram"
	"github.com/soundprint/soundprint/pkg/logger"
)

// Config is the single configuration record covering every tunable stage
// of the pipeline: decimation, STFT framing, peak selection, fingerprint
// pairing, and match decision thresholds.
type Config struct {
	TargetRate int
	FIROrder   int

	WindowLen int
	Hop       int

	NMSAlpha              float64
	NMSTimeHalf           int
	Percentile            float64
	PercentileWindowScale int

	FanOut int
	DtMin  int
	DtMax  int
	DfMax  int

	KMin   int
	SMin   int
	Margin int
	Bucket int

	// StoreBackend selects which Store implementation Open uses. "file"
	// (the default) uses the binary-file format; "sqlite" makes Open bind a
	// gorm/glebarez database. A bare Engine starts with an empty file-format
	// store under either backend.
	StoreBackend string

	// RequestTimeout bounds a single Learn/Identify call when the caller
	// does not already supply a context deadline.
	RequestTimeout time.Duration

	Logger *logger.Logger
}

// Option mutates a Config being built by New.
type Option func(*Config)

// DefaultConfig returns the recognizer's documented defaults.
func DefaultConfig() Config {
	dspCfg := dsp.DefaultConfig()
	stftCfg := spectrogram.DefaultConfig()
	peaksCfg := peaks.DefaultConfig()
	fpCfg := fingerprint.DefaultConfig()
	matchCfg := match.DefaultConfig()

	return Config{
		TargetRate: 11025,
		FIROrder:   dspCfg.FIROrder,

		WindowLen: stftCfg.WindowLen,
		Hop:       stftCfg.Hop,

		NMSAlpha:              peaksCfg.Alpha,
		NMSTimeHalf:           peaksCfg.TimeHalf,
		Percentile:            peaksCfg.Percentile,
		PercentileWindowScale: peaksCfg.PercentileWindowScale,

		FanOut: fpCfg.FanOut,
		DtMin:  fpCfg.DtMin,
		DtMax:  fpCfg.DtMax,
		DfMax:  fpCfg.DfMax,

		KMin:   matchCfg.KMin,
		SMin:   matchCfg.SMin,
		Margin: matchCfg.Margin,
		Bucket: matchCfg.Bucket,

		StoreBackend:   "file",
		RequestTimeout: 30 * time.Second,
		Logger:         logger.GetLogger(),
	}
}

func WithTargetRate(hz int) Option         { return func(c *Config) { c.TargetRate = hz } }
func WithFIROrder(taps int) Option         { return func(c *Config) { c.FIROrder = taps } }
func WithWindowLen(n int) Option           { return func(c *Config) { c.WindowLen = n } }
func WithHop(n int) Option                 { return func(c *Config) { c.Hop = n } }
func WithNMSAlpha(alpha float64) Option    { return func(c *Config) { c.NMSAlpha = alpha } }
func WithNMSTimeHalf(half int) Option      { return func(c *Config) { c.NMSTimeHalf = half } }
func WithPercentile(p float64) Option      { return func(c *Config) { c.Percentile = p } }
func WithFanOut(n int) Option              { return func(c *Config) { c.FanOut = n } }
func WithTargetZone(dtMin, dtMax, dfMax int) Option {
	return func(c *Config) { c.DtMin, c.DtMax, c.DfMax = dtMin, dtMax, dfMax }
}
func WithMatchThresholds(kMin, sMin, margin, bucket int) Option {
	return func(c *Config) { c.KMin, c.SMin, c.Margin, c.Bucket = kMin, sMin, margin, bucket }
}
func WithStoreBackend(backend string) Option    { return func(c *Config) { c.StoreBackend = backend } }
func WithRequestTimeout(d time.Duration) Option { return func(c *Config) { c.RequestTimeout = d } }
func WithLogger(l *logger.Logger) Option        { return func(c *Config) { c.Logger = l } }

func (c Config) resampleConfig() dsp.Config {
	return dsp.Config{FIROrder: c.FIROrder}
}

func (c Config) stftConfig() spectrogram.Config {
	return spectrogram.Config{WindowLen: c.WindowLen, Hop: c.Hop}
}

func (c Config) peaksConfig() peaks.Config {
	return peaks.Config{
		Alpha:                 c.NMSAlpha,
		TimeHalf:              c.NMSTimeHalf,
		Percentile:            c.Percentile,
		PercentileWindowScale: c.PercentileWindowScale,
	}
}

func (c Config) fingerprintConfig() fingerprint.Config {
	return fingerprint.Config{DtMin: c.DtMin, DtMax: c.DtMax, DfMax: c.DfMax, FanOut: c.FanOut}
}

func (c Config) matchConfig() match.Config {
	return match.Config{KMin: c.KMin, SMin: c.SMin, Margin: c.Margin, Bucket: c.Bucket}
}

func (c Config) newCodec() (*fingerprint.Codec, error) {
	maxBin := c.WindowLen / 2 // spectrogram.Compute keeps bins [0, WindowLen/2]
	return fingerprint.NewCodec(maxBin, c.DtMax)
}
