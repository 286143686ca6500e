package soundprint

import (
	"context"
	"errors"
	"math"
	"math/rand"
	"path/filepath"
	"testing"
	"time"
)

// sineWave synthesizes a mono waveform made of several tones, so fixtures
// don't depend on checked-in audio.
func sineWave(fs int, seconds float64, freqs ...float64) []float64 {
	n := int(float64(fs) * seconds)
	out := make([]float64, n)
	for i := range out {
		t := float64(i) / float64(fs)
		var v float64
		for _, f := range freqs {
			v += math.Sin(2 * math.Pi * f * t)
		}
		out[i] = v / float64(len(freqs))
	}
	return out
}

func noisy(samples []float64, amplitude float64, seed int64) []float64 {
	r := rand.New(rand.NewSource(seed))
	out := make([]float64, len(samples))
	for i, v := range samples {
		out[i] = v + amplitude*(r.Float64()*2-1)
	}
	return out
}

func TestEngineIdentifyOnEmptyCatalogIsNoMatch(t *testing.T) {
	e, err := New()
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	wave := sineWave(44100, 2.0, 440, 880)
	_, err = e.Identify(context.Background(), wave, 44100)
	if !errors.Is(err, ErrNoMatch) {
		t.Fatalf("expected NoMatch, got %v", err)
	}
}

func TestEngineSelfIdentificationWithOffset(t *testing.T) {
	e, err := New()
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	track := sineWave(44100, 8.0, 440, 660, 990)
	id, err := e.Learn(context.Background(), "self-offset", track, 44100)
	if err != nil {
		t.Fatalf("Learn: %v", err)
	}

	const skipSeconds = 2.0
	skip := int(skipSeconds * 44100)
	query := track[skip:]

	result, err := e.Identify(context.Background(), query, 44100)
	if err != nil {
		t.Fatalf("Identify: %v", err)
	}
	if result.TrackID != id {
		t.Fatalf("expected track %d, got %d", id, result.TrackID)
	}
}

func TestEngineDisambiguatesTwoTracksUnderNoise(t *testing.T) {
	e, err := New()
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	trackA := sineWave(44100, 6.0, 440, 523, 659)
	trackB := sineWave(44100, 6.0, 330, 415, 494)

	idA, err := e.Learn(context.Background(), "a", trackA, 44100)
	if err != nil {
		t.Fatalf("Learn a: %v", err)
	}
	if _, err := e.Learn(context.Background(), "b", trackB, 44100); err != nil {
		t.Fatalf("Learn b: %v", err)
	}

	query := noisy(trackA[44100:], 0.02, 7)
	result, err := e.Identify(context.Background(), query, 44100)
	if err != nil {
		t.Fatalf("Identify: %v", err)
	}
	if result.TrackID != idA {
		t.Fatalf("expected track %d, got %d", idA, result.TrackID)
	}
}

func TestEngineSaveOpenRoundTrip(t *testing.T) {
	e, err := New()
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if _, err := e.Learn(context.Background(), "x", sineWave(44100, 6.0, 440), 44100); err != nil {
		t.Fatalf("Learn: %v", err)
	}

	path := filepath.Join(t.TempDir(), "catalog.afp")
	if err := e.Save(path); err != nil {
		t.Fatalf("Save: %v", err)
	}

	loaded, err := New()
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if err := loaded.Open(path); err != nil {
		t.Fatalf("Open: %v", err)
	}

	tracks, err := loaded.ListTracks()
	if err != nil {
		t.Fatalf("ListTracks: %v", err)
	}
	if len(tracks) != 1 {
		t.Fatalf("expected 1 track after a round-tripped open, got %d", len(tracks))
	}
}

func TestEngineIdentifyFromDifferentSampleRate(t *testing.T) {
	e, err := New()
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	track := sineWave(44100, 6.0, 440, 880, 1320)
	id, err := e.Learn(context.Background(), "cross-rate", track, 44100)
	if err != nil {
		t.Fatalf("Learn: %v", err)
	}

	query := sineWave(48000, 4.0, 440, 880, 1320)
	result, err := e.Identify(context.Background(), query, 48000)
	if err != nil {
		t.Fatalf("Identify: %v", err)
	}
	if result.TrackID != id {
		t.Fatalf("expected track %d, got %d", id, result.TrackID)
	}
}

func TestEngineRejectsEmptyWaveform(t *testing.T) {
	e, err := New()
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if _, err := e.Learn(context.Background(), "empty", nil, 44100); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected InvalidInput, got %v", err)
	}
}

func TestEngineRequestTimeoutExceeded(t *testing.T) {
	e, err := New(WithRequestTimeout(time.Nanosecond))
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	track := sineWave(44100, 6.0, 440, 880)
	if _, err := e.Learn(context.Background(), "slow", track, 44100); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected InvalidInput from an exceeded request timeout, got %v", err)
	}
}

func TestEngineRequestTimeoutDoesNotOverrideCallerDeadline(t *testing.T) {
	e, err := New(WithRequestTimeout(time.Nanosecond))
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	track := sineWave(44100, 2.0, 440, 880)
	if _, err := e.Learn(ctx, "fast", track, 44100); err != nil {
		t.Fatalf("expected the caller's own minute-long deadline to apply, got %v", err)
	}
}

func TestEngineDeleteTrackRemovesItFromCatalog(t *testing.T) {
	e, err := New()
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	id, err := e.Learn(context.Background(), "throwaway", sineWave(44100, 6.0, 200, 400), 44100)
	if err != nil {
		t.Fatalf("Learn: %v", err)
	}
	if err := e.DeleteTrack(id); err != nil {
		t.Fatalf("DeleteTrack: %v", err)
	}

	tracks, err := e.ListTracks()
	if err != nil {
		t.Fatalf("ListTracks: %v", err)
	}
	if len(tracks) != 0 {
		t.Fatalf("expected an empty catalog after delete, got %d tracks", len(tracks))
	}
}
