package store

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/soundprint/soundprint/internal/fingerprint"
	"github.com/soundprint/soundprint/internal/fperr"
)

// sqlTrack is the gorm model backing Track.
type sqlTrack struct {
	ID               uint32 `gorm:"primaryKey"`
	Name             string `gorm:"index:idx_track_name"`
	FingerprintCount uint32
	CreatedAt        time.Time
}

// sqlPosting is the gorm model backing a single Posting, indexed by
// address for candidate recall.
type sqlPosting struct {
	ID          uint64 `gorm:"primaryKey;autoIncrement"`
	Address     uint32 `gorm:"index:idx_address"`
	TrackID     uint32 `gorm:"index:idx_posting_track"`
	AnchorFrame uint32
}

// SQLStore is a Store backed by gorm.io/gorm over a SQLite file, useful
// when a deployment wants transactional inserts, concurrent read-only
// access from multiple processes, or SQL inspection of the catalog.
type SQLStore struct {
	db     *gorm.DB
	sqlDB  *sql.DB
	path   string
	nextID uint32
}

// OpenSQLStore opens (creating if necessary) a SQLite database at path and
// runs the schema migration.
func OpenSQLStore(path string) (*SQLStore, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fperr.Wrap(fperr.IndexIOError, "creating database directory", err)
		}
	}

	db, err := gorm.Open(sqlite.Open(path+"?_foreign_keys=on"), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		return nil, fperr.Wrap(fperr.IndexIOError, "opening sqlite database", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fperr.Wrap(fperr.IndexIOError, "getting sql.DB handle", err)
	}
	sqlDB.SetMaxOpenConns(25)
	sqlDB.SetMaxIdleConns(5)
	sqlDB.SetConnMaxLifetime(time.Hour)

	if err := db.AutoMigrate(&sqlTrack{}, &sqlPosting{}); err != nil {
		sqlDB.Close()
		return nil, fperr.Wrap(fperr.IndexCorrupt, "auto migrate", err)
	}

	var maxID uint32
	db.Model(&sqlTrack{}).Select("COALESCE(MAX(id), 0)").Scan(&maxID)

	return &SQLStore{db: db, sqlDB: sqlDB, path: path, nextID: maxID + 1}, nil
}

func (s *SQLStore) Insert(name string, fps []fingerprint.Fingerprint) (TrackID, error) {
	var id uint32
	err := s.db.Transaction(func(tx *gorm.DB) error {
		track := sqlTrack{Name: name, FingerprintCount: uint32(len(fps)), CreatedAt: time.Now()}
		if err := tx.Create(&track).Error; err != nil {
			return err
		}
		id = track.ID

		rows := make([]sqlPosting, len(fps))
		for i, fp := range fps {
			rows[i] = sqlPosting{Address: uint32(fp.Address), TrackID: id, AnchorFrame: fp.AnchorFrame}
		}
		if len(rows) == 0 {
			return nil
		}
		return tx.CreateInBatches(rows, 500).Error
	})
	if err != nil {
		return 0, fperr.Wrap(fperr.IndexIOError, "inserting track", err)
	}
	return TrackID(id), nil
}

func (s *SQLStore) Recall(addr fingerprint.Address) ([]Posting, error) {
	var rows []sqlPosting
	if err := s.db.Where("address = ?", uint32(addr)).Find(&rows).Error; err != nil {
		return nil, fperr.Wrap(fperr.IndexIOError, "recalling address", err)
	}
	out := make([]Posting, len(rows))
	for i, r := range rows {
		out[i] = Posting{TrackID: TrackID(r.TrackID), AnchorFrame: r.AnchorFrame}
	}
	return out, nil
}

func (s *SQLStore) Tracks() ([]Track, error) {
	var rows []sqlTrack
	if err := s.db.Order("id").Find(&rows).Error; err != nil {
		return nil, fperr.Wrap(fperr.IndexIOError, "listing tracks", err)
	}
	out := make([]Track, len(rows))
	for i, r := range rows {
		out[i] = Track{ID: TrackID(r.ID), Name: r.Name, FingerprintCount: r.FingerprintCount, CreatedAt: r.CreatedAt}
	}
	return out, nil
}

func (s *SQLStore) Delete(id TrackID) error {
	err := s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("track_id = ?", uint32(id)).Delete(&sqlPosting{}).Error; err != nil {
			return err
		}
		res := tx.Where("id = ?", uint32(id)).Delete(&sqlTrack{})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return fperr.New(fperr.InvalidInput, "no such track")
		}
		return nil
	})
	if err != nil {
		var fe *fperr.Error
		if errors.As(err, &fe) {
			return fe
		}
		return fperr.Wrap(fperr.IndexIOError, "deleting track", err)
	}
	return nil
}

func (s *SQLStore) Close() error {
	if s.sqlDB == nil {
		return nil
	}
	return s.sqlDB.Close()
}

// Save snapshots the live database to path using SQLite's VACUUM INTO,
// which is itself atomic from the caller's point of view: path either ends
// up complete or is never created.
func (s *SQLStore) Save(path string) error {
	if err := s.db.Exec(fmt.Sprintf("VACUUM INTO '%s'", path)).Error; err != nil {
		return fperr.Wrap(fperr.IndexIOError, "vacuum into snapshot", err)
	}
	return nil
}

// Load is not supported on a live SQLStore: the gorm connection is already
// bound to s.path. Open a new store against the snapshot with
// OpenSQLStore instead.
func (s *SQLStore) Load(path string) error {
	return fperr.New(fperr.IndexIOError, "SQLStore.Load is not supported; call OpenSQLStore(path) to open a snapshot directly")
}
