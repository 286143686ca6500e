// Package store persists the inverted index from fingerprint address to
// (track_id, anchor_frame) postings, plus the track catalog, behind a
// single Store interface with two backends: a binary-file format and a
// SQLite database.
package store

import (
	"time"

	"github.com/soundprint/soundprint/internal/fingerprint"
)

// TrackID uniquely and stably identifies a learned track for the life of a
// database. An open store never reuses one, even after deletion. The file
// backend does not persist its id counter: Load sets it to one past the
// highest saved id, so the id of a deleted track that had the highest id
// can be assigned again after a Save and Load.
type TrackID uint32

// Track is a learned recording: a name and how many fingerprints it
// contributed to the index.
type Track struct {
	ID               TrackID
	Name             string
	FingerprintCount uint32
	CreatedAt        time.Time
}

// Posting is a single occurrence of an address in a track, at a given
// anchor frame.
type Posting struct {
	TrackID     TrackID
	AnchorFrame uint32
}

// Store is the durable inverted index and track catalog. Implementations
// must not interleave Insert with Recall — the caller owns that
// synchronization (see pkg/soundprint's use of a single RWMutex).
type Store interface {
	// Insert adds all of fps under a new track named name and returns its
	// assigned id. It never deduplicates by name.
	Insert(name string, fps []fingerprint.Fingerprint) (TrackID, error)
	// Recall returns every posting stored under addr.
	Recall(addr fingerprint.Address) ([]Posting, error)
	// Tracks returns the full track catalog.
	Tracks() ([]Track, error)
	// Delete removes a track and its postings.
	Delete(id TrackID) error
	// Save durably persists the store to path.
	Save(path string) error
	// Load replaces the store's contents with path's, or leaves the store
	// untouched and returns an error.
	Load(path string) error
	// Close releases any resources held by the store.
	Close() error
}
