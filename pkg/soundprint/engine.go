// Package soundprint is the public facade over the acoustic fingerprint
// recognizer: learn tracks from waveforms, identify a query waveform
// against the learned catalog, and manage the durable index.
package soundprint

import (
	"context"
	"sync"

	"github.com/soundprint/soundprint/internal/dsp"
	"github.com/soundprint/soundprint/internal/fingerprint"
	"github.com/soundprint/soundprint/internal/fperr"
	"github.com/soundprint/soundprint/internal/match"
	"github.com/soundprint/soundprint/internal/peaks"
	"github.com/soundprint/soundprint/internal/spectrogram"
	"github.com/soundprint/soundprint/internal/store"
	"github.com/soundprint/soundprint/pkg/logger"
)

// Engine is the recognizer. A single Engine owns exactly one Store at a
// time; Learn and DeleteTrack take the write lock, Identify/ListTracks/Save
// take the read lock, matching the database's single-writer/multi-reader
// contract.
type Engine struct {
	mu    sync.RWMutex
	st    store.Store
	cfg   Config
	codec *fingerprint.Codec
	log   *logger.Logger
}

// New builds an Engine with an empty in-memory store. With the "sqlite"
// backend that store is a file-format store until Open binds a SQLite
// database. Call Open to load an existing database.
func New(opts ...Option) (*Engine, error) {
	cfg := DefaultConfig()
	for _, opt := range opts {
		opt(&cfg)
	}

	codec, err := cfg.newCodec()
	if err != nil {
		return nil, fperr.Wrap(fperr.InvalidInput, "building address codec", err)
	}

	var st store.Store
	switch cfg.StoreBackend {
	case "", "file":
		st = store.NewFileStore()
	case "sqlite":
		// A live SQLite store needs a path up front; start empty and let
		// Open bind it.
		st = store.NewFileStore()
	default:
		return nil, fperr.New(fperr.InvalidInput, "unknown store backend "+cfg.StoreBackend)
	}

	log := cfg.Logger
	if log == nil {
		log = logger.GetLogger()
	}

	return &Engine{st: st, cfg: cfg, codec: codec, log: log}, nil
}

// Open replaces the Engine's store contents with what's durably persisted
// at path. For the sqlite backend this reopens a live connection against
// path; for the file backend it streams the binary format in.
func (e *Engine) Open(path string) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.cfg.StoreBackend == "sqlite" {
		st, err := store.OpenSQLStore(path)
		if err != nil {
			return err
		}
		if e.st != nil {
			e.st.Close()
		}
		e.st = st
		return nil
	}
	return e.st.Load(path)
}

// Save durably persists the current store contents to path.
func (e *Engine) Save(path string) error {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.st.Save(path)
}

// Close releases the store's resources.
func (e *Engine) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.st.Close()
}

// Learn fingerprints waveform (sampled at fs Hz) and adds it to the
// catalog under name, returning its assigned TrackID. Learning never
// deduplicates by name: learning the same name twice produces two tracks.
// ctx bounds the fingerprinting work; pass context.Background() to fall
// back to cfg.RequestTimeout.
func (e *Engine) Learn(ctx context.Context, name string, waveform []float64, fs int) (TrackID, error) {
	fps, err := e.extractFingerprints(ctx, waveform, fs)
	if err != nil {
		return 0, err
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	id, err := e.st.Insert(name, fps)
	if err != nil {
		return 0, err
	}
	e.log.Infof("learned track %q as id %d (%d fingerprints)", name, id, len(fps))
	return id, nil
}

// Identify fingerprints waveform and looks it up against the catalog,
// returning the winning track and its time offset. It returns an *Error
// of kind NoMatch or Ambiguous rather than a zero MatchResult when nothing
// wins outright. ctx bounds the fingerprinting work; pass
// context.Background() to fall back to cfg.RequestTimeout.
func (e *Engine) Identify(ctx context.Context, waveform []float64, fs int) (MatchResult, error) {
	fps, err := e.extractFingerprints(ctx, waveform, fs)
	if err != nil {
		return MatchResult{}, err
	}

	e.mu.RLock()
	defer e.mu.RUnlock()

	res, err := match.Query(fps, e.st, e.cfg.matchConfig())
	if err != nil {
		return MatchResult{}, err
	}
	e.log.Infof("identified track %d at offset %d frames (score %d)", res.TrackID, res.OffsetFrames, res.Score)
	return MatchResult{TrackID: res.TrackID, OffsetFrames: res.OffsetFrames, Score: res.Score}, nil
}

// ListTracks returns the full catalog.
func (e *Engine) ListTracks() ([]TrackInfo, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()

	tracks, err := e.st.Tracks()
	if err != nil {
		return nil, err
	}
	out := make([]TrackInfo, len(tracks))
	for i, t := range tracks {
		out[i] = TrackInfo{ID: t.ID, Name: t.Name, FingerprintCount: t.FingerprintCount, CreatedAt: t.CreatedAt}
	}
	return out, nil
}

// DeleteTrack removes a track and every fingerprint it contributed.
func (e *Engine) DeleteTrack(id TrackID) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if err := e.st.Delete(id); err != nil {
		return err
	}
	e.log.Infof("deleted track %d", id)
	return nil
}

// Analyze runs the pipeline without touching the store, returning every
// intermediate artifact for visualization and debugging collaborators.
func (e *Engine) Analyze(waveform []float64, fs int) (Diagnostics, error) {
	if len(waveform) == 0 {
		return Diagnostics{}, fperr.New(fperr.InvalidInput, "waveform is empty")
	}

	resampled, actualFs, err := dsp.Resample(waveform, fs, e.cfg.TargetRate, e.cfg.resampleConfig())
	if err != nil {
		return Diagnostics{}, fperr.Wrap(fperr.InvalidInput, "resampling waveform", err)
	}

	spec, err := spectrogram.Compute(resampled, actualFs, e.cfg.stftConfig())
	if err != nil {
		return Diagnostics{}, fperr.Wrap(fperr.TooShort, "computing spectrogram", err)
	}

	pks, err := peaks.Find(spec, e.cfg.peaksConfig())
	if err != nil {
		return Diagnostics{}, fperr.Wrap(fperr.InvalidInput, "finding peaks", err)
	}

	fps := fingerprint.Build(pks, e.codec, e.cfg.fingerprintConfig())

	return Diagnostics{
		Resampled:    resampled,
		ResampledHz:  actualFs,
		Spectrogram:  spec,
		Peaks:        pks,
		Fingerprints: fps,
	}, nil
}

// extractFingerprints runs the shared learn/identify pipeline: resample to
// the target rate, compute a magnitude spectrogram, pick sparse peaks, and
// pair them into fingerprints. It holds no lock; callers take whichever
// lock their operation needs around the store access that follows. ctx is
// checked between stages so a timeout or cancellation stops the pipeline
// at the next boundary rather than running it to completion.
func (e *Engine) extractFingerprints(ctx context.Context, waveform []float64, fs int) ([]fingerprint.Fingerprint, error) {
	if len(waveform) == 0 {
		return nil, fperr.New(fperr.InvalidInput, "waveform is empty")
	}
	if fs < 2*e.cfg.TargetRate {
		return nil, fperr.New(fperr.InvalidInput, "sample rate is below twice the target rate")
	}

	ctx, cancel := e.boundContext(ctx)
	defer cancel()

	resampled, actualFs, err := dsp.Resample(waveform, fs, e.cfg.TargetRate, e.cfg.resampleConfig())
	if err != nil {
		return nil, fperr.Wrap(fperr.InvalidInput, "resampling waveform", err)
	}
	if err := ctx.Err(); err != nil {
		return nil, fperr.Wrap(fperr.InvalidInput, "request deadline exceeded while resampling", err)
	}

	spec, err := spectrogram.Compute(resampled, actualFs, e.cfg.stftConfig())
	if err != nil {
		return nil, fperr.Wrap(fperr.TooShort, "computing spectrogram", err)
	}
	if err := ctx.Err(); err != nil {
		return nil, fperr.Wrap(fperr.InvalidInput, "request deadline exceeded while computing spectrogram", err)
	}

	pks, err := peaks.Find(spec, e.cfg.peaksConfig())
	if err != nil {
		return nil, fperr.Wrap(fperr.InvalidInput, "finding peaks", err)
	}
	if err := ctx.Err(); err != nil {
		return nil, fperr.Wrap(fperr.InvalidInput, "request deadline exceeded while finding peaks", err)
	}

	return fingerprint.Build(pks, e.codec, e.cfg.fingerprintConfig()), nil
}

// boundContext applies cfg.RequestTimeout to ctx when the caller hasn't
// already set a deadline of their own.
func (e *Engine) boundContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if ctx == nil {
		ctx = context.Background()
	}
	if _, hasDeadline := ctx.Deadline(); hasDeadline || e.cfg.RequestTimeout <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, e.cfg.RequestTimeout)
}
