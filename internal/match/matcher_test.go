package match

import (
	"errors"
	"testing"

	"github.com/soundprint/soundprint/internal/fingerprint"
	"github.com/soundprint/soundprint/internal/fperr"
	"github.com/soundprint/soundprint/internal/store"
)

func TestQueryOnEmptyStoreReturnsNoMatch(t *testing.T) {
	s := store.NewFileStore()
	_, err := Query([]fingerprint.Fingerprint{{Address: 1, AnchorFrame: 0}}, s, DefaultConfig())
	if !errors.Is(err, fperr.ErrNoMatch) {
		t.Fatalf("expected NoMatch, got %v", err)
	}
}

func TestQuerySelfIdentifies(t *testing.T) {
	s := store.NewFileStore()
	fps := make([]fingerprint.Fingerprint, 0, 20)
	for i := 0; i < 20; i++ {
		fps = append(fps, fingerprint.Fingerprint{Address: fingerprint.Address(i % 5), AnchorFrame: uint32(i)})
	}
	id, err := s.Insert("track", fps)
	if err != nil {
		t.Fatalf("Insert: %v", err)
	}

	result, err := Query(fps, s, DefaultConfig())
	if err != nil {
		t.Fatalf("Query: %v", err)
	}
	if result.TrackID != id {
		t.Fatalf("expected track %d, got %d", id, result.TrackID)
	}
	if result.OffsetFrames != 0 {
		t.Fatalf("expected offset 0 for an exact self-match, got %d", result.OffsetFrames)
	}
}

func TestQueryDetectsOffset(t *testing.T) {
	s := store.NewFileStore()
	const offset = 37
	var dbFps []fingerprint.Fingerprint
	for i := 0; i < 20; i++ {
		dbFps = append(dbFps, fingerprint.Fingerprint{Address: fingerprint.Address(i), AnchorFrame: uint32(i) + offset})
	}
	id, err := s.Insert("track", dbFps)
	if err != nil {
		t.Fatalf("Insert: %v", err)
	}

	var queryFps []fingerprint.Fingerprint
	for i := 0; i < 20; i++ {
		queryFps = append(queryFps, fingerprint.Fingerprint{Address: fingerprint.Address(i), AnchorFrame: uint32(i)})
	}

	result, err := Query(queryFps, s, DefaultConfig())
	if err != nil {
		t.Fatalf("Query: %v", err)
	}
	if result.TrackID != id {
		t.Fatalf("expected track %d, got %d", id, result.TrackID)
	}
	if result.OffsetFrames != offset {
		t.Fatalf("expected offset %d, got %d", offset, result.OffsetFrames)
	}
}

func TestQueryAmbiguousWhenTied(t *testing.T) {
	s := store.NewFileStore()
	var fps []fingerprint.Fingerprint
	for i := 0; i < 10; i++ {
		fps = append(fps, fingerprint.Fingerprint{Address: fingerprint.Address(i), AnchorFrame: uint32(i)})
	}
	if _, err := s.Insert("a", fps); err != nil {
		t.Fatalf("Insert: %v", err)
	}
	if _, err := s.Insert("b", fps); err != nil {
		t.Fatalf("Insert: %v", err)
	}

	_, err := Query(fps, s, DefaultConfig())
	if !errors.Is(err, fperr.ErrAmbiguous) {
		t.Fatalf("expected Ambiguous, got %v", err)
	}
}
