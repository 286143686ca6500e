package store

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/soundprint/soundprint/internal/fingerprint"
)

func sampleFingerprints() []fingerprint.Fingerprint {
	return []fingerprint.Fingerprint{
		{Address: 1, AnchorFrame: 10},
		{Address: 2, AnchorFrame: 20},
		{Address: 2, AnchorFrame: 30},
	}
}

func TestFileStoreInsertRecallTracks(t *testing.T) {
	s := NewFileStore()
	id, err := s.Insert("track one", sampleFingerprints())
	if err != nil {
		t.Fatalf("Insert: %v", err)
	}

	postings, err := s.Recall(2)
	if err != nil {
		t.Fatalf("Recall: %v", err)
	}
	if len(postings) != 2 {
		t.Fatalf("expected 2 postings for address 2, got %d", len(postings))
	}
	for _, p := range postings {
		if p.TrackID != id {
			t.Fatalf("posting track id %d != inserted id %d", p.TrackID, id)
		}
	}

	tracks, err := s.Tracks()
	if err != nil {
		t.Fatalf("Tracks: %v", err)
	}
	if len(tracks) != 1 || tracks[0].FingerprintCount != 3 {
		t.Fatalf("unexpected tracks: %+v", tracks)
	}
}

func TestFileStoreSaveLoadRoundTrip(t *testing.T) {
	s := NewFileStore()
	if _, err := s.Insert("a", sampleFingerprints()); err != nil {
		t.Fatalf("Insert: %v", err)
	}
	if _, err := s.Insert("b", []fingerprint.Fingerprint{{Address: 7, AnchorFrame: 1}}); err != nil {
		t.Fatalf("Insert: %v", err)
	}

	path := filepath.Join(t.TempDir(), "index.afp")
	if err := s.Save(path); err != nil {
		t.Fatalf("Save: %v", err)
	}

	loaded := NewFileStore()
	if err := loaded.Load(path); err != nil {
		t.Fatalf("Load: %v", err)
	}

	wantTracks, _ := s.Tracks()
	gotTracks, _ := loaded.Tracks()
	if len(wantTracks) != len(gotTracks) {
		t.Fatalf("track count mismatch: %d vs %d", len(wantTracks), len(gotTracks))
	}

	wantPostings, _ := s.Recall(2)
	gotPostings, _ := loaded.Recall(2)
	if len(wantPostings) != len(gotPostings) {
		t.Fatalf("posting count mismatch for address 2: %d vs %d", len(wantPostings), len(gotPostings))
	}
}

func TestFileStoreLoadCorruptFile(t *testing.T) {
	s := NewFileStore()
	if _, err := s.Insert("a", sampleFingerprints()); err != nil {
		t.Fatalf("Insert: %v", err)
	}

	path := filepath.Join(t.TempDir(), "index.afp")
	if err := s.Save(path); err != nil {
		t.Fatalf("Save: %v", err)
	}

	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("Stat: %v", err)
	}
	truncateAt := info.Size() - 4
	if truncateAt < 0 {
		truncateAt = 0
	}
	if err := os.Truncate(path, truncateAt); err != nil {
		t.Fatalf("Truncate: %v", err)
	}

	loaded := NewFileStore()
	if err := loaded.Load(path); err == nil {
		t.Fatal("expected an error loading a truncated file")
	}

	if tracks, _ := loaded.Tracks(); len(tracks) != 0 {
		t.Fatalf("expected the store to stay empty after a failed load, got %d tracks", len(tracks))
	}
}

func TestFileStoreDeleteOmitsFromSave(t *testing.T) {
	s := NewFileStore()
	id, err := s.Insert("a", sampleFingerprints())
	if err != nil {
		t.Fatalf("Insert: %v", err)
	}
	if err := s.Delete(id); err != nil {
		t.Fatalf("Delete: %v", err)
	}

	postings, err := s.Recall(2)
	if err != nil {
		t.Fatalf("Recall: %v", err)
	}
	if len(postings) != 0 {
		t.Fatalf("expected no postings after deleting the only track, got %d", len(postings))
	}

	tracks, _ := s.Tracks()
	if len(tracks) != 0 {
		t.Fatalf("expected no tracks after delete, got %d", len(tracks))
	}

	path := filepath.Join(t.TempDir(), "index.afp")
	if err := s.Save(path); err != nil {
		t.Fatalf("Save: %v", err)
	}
	loaded := NewFileStore()
	if err := loaded.Load(path); err != nil {
		t.Fatalf("Load: %v", err)
	}
	if postings, _ := loaded.Recall(2); len(postings) != 0 {
		t.Fatalf("expected no postings in the saved file after delete, got %d", len(postings))
	}
	if tracks, _ := loaded.Tracks(); len(tracks) != 0 {
		t.Fatalf("expected no tracks in the saved file after delete, got %d", len(tracks))
	}
}
