package store

import (
	"bufio"
	"encoding/binary"
	"io"
	"os"
	"sort"
	"sync"
	"time"

	"github.com/soundprint/soundprint/internal/fingerprint"
	"github.com/soundprint/soundprint/internal/fperr"
	"github.com/soundprint/soundprint/pkg/utils"
)

var fileMagic = [8]byte{'A', 'F', 'P', 0, 'v', '0', '0', '1'}

// FileStore is an in-memory Store backed by the binary file format: an
// 8-byte magic header, a track table, then an address-to-postings table,
// all little-endian. Save is atomic via a temp file and rename; Load
// leaves the store untouched on any failure.
type FileStore struct {
	mu     sync.RWMutex
	tracks map[TrackID]*Track
	index  map[fingerprint.Address][]Posting
	nextID TrackID
}

// NewFileStore returns an empty store.
func NewFileStore() *FileStore {
	return &FileStore{
		tracks: make(map[TrackID]*Track),
		index:  make(map[fingerprint.Address][]Posting),
	}
}

func (s *FileStore) Insert(name string, fps []fingerprint.Fingerprint) (TrackID, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := s.nextID
	s.nextID++

	s.tracks[id] = &Track{ID: id, Name: name, FingerprintCount: uint32(len(fps)), CreatedAt: time.Now()}
	for _, fp := range fps {
		s.index[fp.Address] = append(s.index[fp.Address], Posting{TrackID: id, AnchorFrame: fp.AnchorFrame})
	}
	return id, nil
}

func (s *FileStore) Recall(addr fingerprint.Address) ([]Posting, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]Posting(nil), s.index[addr]...), nil
}

func (s *FileStore) Tracks() ([]Track, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]Track, 0, len(s.tracks))
	for _, t := range s.tracks {
		out = append(out, *t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *FileStore) Delete(id TrackID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.tracks[id]; !ok {
		return fperr.New(fperr.InvalidInput, "no such track")
	}
	delete(s.tracks, id)
	for addr, postings := range s.index {
		kept := postings[:0]
		for _, p := range postings {
			if p.TrackID != id {
				kept = append(kept, p)
			}
		}
		if len(kept) == 0 {
			delete(s.index, addr)
		} else {
			s.index[addr] = kept
		}
	}
	return nil
}

func (s *FileStore) Close() error { return nil }

// Save writes the full store to path, omitting postings for any track that
// has since been deleted.
func (s *FileStore) Save(path string) error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return utils.WriteFileAtomic(path, func(w io.Writer) error {
		bw := bufio.NewWriter(w)

		if _, err := bw.Write(fileMagic[:]); err != nil {
			return err
		}

		ids := make([]TrackID, 0, len(s.tracks))
		for id := range s.tracks {
			ids = append(ids, id)
		}
		sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

		if err := binary.Write(bw, binary.LittleEndian, uint32(len(ids))); err != nil {
			return err
		}
		for _, id := range ids {
			t := s.tracks[id]
			if err := binary.Write(bw, binary.LittleEndian, uint32(t.ID)); err != nil {
				return err
			}
			name := []byte(t.Name)
			if err := binary.Write(bw, binary.LittleEndian, uint16(len(name))); err != nil {
				return err
			}
			if _, err := bw.Write(name); err != nil {
				return err
			}
			if err := binary.Write(bw, binary.LittleEndian, t.FingerprintCount); err != nil {
				return err
			}
		}

		addrs := make([]fingerprint.Address, 0, len(s.index))
		for addr := range s.index {
			addrs = append(addrs, addr)
		}
		sort.Slice(addrs, func(i, j int) bool { return addrs[i] < addrs[j] })

		if err := binary.Write(bw, binary.LittleEndian, uint32(len(addrs))); err != nil {
			return err
		}
		for _, addr := range addrs {
			postings := s.index[addr]
			if err := binary.Write(bw, binary.LittleEndian, uint32(addr)); err != nil {
				return err
			}
			if err := binary.Write(bw, binary.LittleEndian, uint32(len(postings))); err != nil {
				return err
			}
			for _, p := range postings {
				if err := binary.Write(bw, binary.LittleEndian, uint32(p.TrackID)); err != nil {
					return err
				}
				if err := binary.Write(bw, binary.LittleEndian, p.AnchorFrame); err != nil {
					return err
				}
			}
		}

		return bw.Flush()
	})
}

// Load reads path sequentially and replaces the store's contents. On any
// error it leaves the existing in-memory contents exactly as they were.
func (s *FileStore) Load(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return fperr.Wrap(fperr.IndexIOError, "opening index file", err)
	}
	defer f.Close()

	r := bufio.NewReader(f)

	var magic [8]byte
	if _, err := io.ReadFull(r, magic[:]); err != nil || magic != fileMagic {
		return fperr.New(fperr.IndexCorrupt, "bad magic header")
	}

	var numTracks uint32
	if err := binary.Read(r, binary.LittleEndian, &numTracks); err != nil {
		return fperr.Wrap(fperr.IndexCorrupt, "reading track count", err)
	}

	tracks := make(map[TrackID]*Track, numTracks)
	var maxID TrackID
	for i := uint32(0); i < numTracks; i++ {
		var rawID uint32
		if err := binary.Read(r, binary.LittleEndian, &rawID); err != nil {
			return fperr.Wrap(fperr.IndexCorrupt, "reading track id", err)
		}
		var nameLen uint16
		if err := binary.Read(r, binary.LittleEndian, &nameLen); err != nil {
			return fperr.Wrap(fperr.IndexCorrupt, "reading track name length", err)
		}
		nameBytes := make([]byte, nameLen)
		if _, err := io.ReadFull(r, nameBytes); err != nil {
			return fperr.Wrap(fperr.IndexCorrupt, "reading track name", err)
		}
		var fpCount uint32
		if err := binary.Read(r, binary.LittleEndian, &fpCount); err != nil {
			return fperr.Wrap(fperr.IndexCorrupt, "reading track fingerprint count", err)
		}
		id := TrackID(rawID)
		tracks[id] = &Track{ID: id, Name: string(nameBytes), FingerprintCount: fpCount}
		if id > maxID {
			maxID = id
		}
	}

	var numAddr uint32
	if err := binary.Read(r, binary.LittleEndian, &numAddr); err != nil {
		return fperr.Wrap(fperr.IndexCorrupt, "reading address count", err)
	}

	index := make(map[fingerprint.Address][]Posting, numAddr)
	for i := uint32(0); i < numAddr; i++ {
		var rawAddr uint32
		if err := binary.Read(r, binary.LittleEndian, &rawAddr); err != nil {
			return fperr.Wrap(fperr.IndexCorrupt, "reading address", err)
		}
		var postingCount uint32
		if err := binary.Read(r, binary.LittleEndian, &postingCount); err != nil {
			return fperr.Wrap(fperr.IndexCorrupt, "reading posting count", err)
		}
		postings := make([]Posting, postingCount)
		for j := uint32(0); j < postingCount; j++ {
			var trackID, anchor uint32
			if err := binary.Read(r, binary.LittleEndian, &trackID); err != nil {
				return fperr.Wrap(fperr.IndexCorrupt, "reading posting track id", err)
			}
			if err := binary.Read(r, binary.LittleEndian, &anchor); err != nil {
				return fperr.Wrap(fperr.IndexCorrupt, "reading posting anchor frame", err)
			}
			postings[j] = Posting{TrackID: TrackID(trackID), AnchorFrame: anchor}
		}
		index[fingerprint.Address(rawAddr)] = postings
	}

	s.mu.Lock()
	s.tracks = tracks
	s.index = index
	s.nextID = maxID + 1
	s.mu.Unlock()
	return nil
}
