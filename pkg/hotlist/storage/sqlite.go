package storage

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/soundtrace/hotlist/pkg/models"
)

const DefaultDBFile = "hotlist.sqlite3"

var errDBClientNil = errors.New("db client is nil")

// DBClient is the sqlite-backed reference index: a table of hotlist tracks
// and a table of fingerprints indexed by hash for batch lookup.
type DBClient struct {
	DB *gorm.DB
	db *sql.DB
}

type Track struct {
	ID               string `gorm:"primaryKey;type:varchar(36)"`
	Path             string `gorm:"uniqueIndex:idx_track_path" json:"path"`
	Class            string `gorm:"index:idx_track_class" json:"class"`
	FingerprintCount int    `json:"fingerprint_count"`
	DurationMs       int    `json:"duration_ms"`
	CreatedAt        time.Time
}

type Fingerprint struct {
	ID       uint   `gorm:"primaryKey;autoIncrement"`
	Hash     uint32 `gorm:"index:idx_hash" json:"hash"`
	TrackID  string `gorm:"type:varchar(36);index:idx_track" json:"track_id"`
	TimeCode int64  `json:"time_code"`
}

func NewDBClient() (*DBClient, error) {
	dbPath := os.Getenv("HOTLIST_DB_PATH")
	if dbPath == "" {
		dbPath = DefaultDBFile
	}
	return NewDBClientWithPath(dbPath)
}

func NewDBClientWithPath(dbPath string) (*DBClient, error) {
	if dir := filepath.Dir(dbPath); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("creating db dir: %w", err)
		}
	}

	gormConfig := &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	}

	db, err := gorm.Open(sqlite.Open(dbPath+"?_foreign_keys=on"), gormConfig)
	if err != nil {
		return nil, fmt.Errorf("opening sqlite db: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("getting sql.DB from gorm: %w", err)
	}

	sqlDB.SetMaxOpenConns(25)
	sqlDB.SetMaxIdleConns(5)
	sqlDB.SetConnMaxLifetime(time.Hour)

	if err := db.AutoMigrate(&Track{}, &Fingerprint{}); err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("auto migrate: %w", err)
	}

	return &DBClient{DB: db, db: sqlDB}, nil
}

func (c *DBClient) Close() error {
	if c == nil || c.db == nil {
		return nil
	}
	return c.db.Close()
}

// RegisterTrack creates a hotlist track entry and returns its ID. Registering
// the same path again returns the existing ID unchanged.
func (c *DBClient) RegisterTrack(path string, class models.ContentClass, durationMs int) (string, error) {
	if c == nil || c.DB == nil {
		return "", errDBClientNil
	}

	var track Track
	err := c.DB.Where("path = ?", path).First(&track).Error
	if err == nil {
		return track.ID, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return "", fmt.Errorf("querying existing track: %w", err)
	}

	track = Track{
		ID:         uuid.NewString(),
		Path:       path,
		Class:      class.String(),
		DurationMs: durationMs,
	}
	if err := c.DB.Create(&track).Error; err != nil {
		return "", fmt.Errorf("creating track: %w", err)
	}
	return track.ID, nil
}

// StoreFingerprints batch-inserts a track's fingerprints and records the
// resulting count on the track row.
func (c *DBClient) StoreFingerprints(trackID string, events []models.FingerprintEvent) error {
	if c == nil || c.DB == nil {
		return errDBClientNil
	}

	entries := make([]Fingerprint, 0, 1024)
	for _, ev := range events {
		entries = append(entries, Fingerprint{
			Hash:     ev.Hash,
			TrackID:  trackID,
			TimeCode: ev.TimeCode,
		})
		if len(entries) >= 1000 {
			if err := c.DB.CreateInBatches(entries, 500).Error; err != nil {
				return fmt.Errorf("batch insert fingerprints: %w", err)
			}
			entries = entries[:0]
		}
	}
	if len(entries) > 0 {
		if err := c.DB.CreateInBatches(entries, 500).Error; err != nil {
			return fmt.Errorf("batch insert last fingerprints: %w", err)
		}
	}

	if err := c.DB.Model(&Track{}).Where("id = ?", trackID).
		Update("fingerprint_count", gorm.Expr("fingerprint_count + ?", len(events))).Error; err != nil {
		return fmt.Errorf("updating fingerprint count: %w", err)
	}
	return nil
}

// DeleteTrackByID removes a track and all its fingerprints in one transaction.
func (c *DBClient) DeleteTrackByID(trackID string) error {
	if c == nil || c.DB == nil {
		return errDBClientNil
	}
	return c.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("track_id = ?", trackID).Delete(&Fingerprint{}).Error; err != nil {
			return err
		}
		if err := tx.Where("id = ?", trackID).Delete(&Track{}).Error; err != nil {
			return err
		}
		return nil
	})
}

type matchRow struct {
	Hash     uint32
	TrackID  string
	TimeCode int64
	Class    string
}

// LookupFingerprints is the batch lookup: given a set of hashes, every
// matching (hash, track, offset, class) row, in insertion order.
func (c *DBClient) LookupFingerprints(hashes []uint32) ([]models.ReferenceMatch, error) {
	if c == nil || c.DB == nil {
		return nil, errDBClientNil
	}
	if len(hashes) == 0 {
		return nil, nil
	}

	var rows []matchRow
	err := c.DB.Model(&Fingerprint{}).
		Select("fingerprints.hash, fingerprints.track_id, fingerprints.time_code, tracks.class").
		Joins("JOIN tracks ON tracks.id = fingerprints.track_id").
		Where("fingerprints.hash IN ?", hashes).
		Order("fingerprints.id").
		Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("batch querying fingerprints: %w", err)
	}

	out := make([]models.ReferenceMatch, 0, len(rows))
	for _, r := range rows {
		class, err := models.ParseContentClass(r.Class)
		if err != nil {
			return nil, fmt.Errorf("track %s: %w", r.TrackID, err)
		}
		out = append(out, models.ReferenceMatch{
			Hash:        r.Hash,
			TrackID:     r.TrackID,
			Class:       class,
			RefTimeCode: r.TimeCode,
		})
	}
	return out, nil
}

// GetTrackByID returns the metadata for one track.
func (c *DBClient) GetTrackByID(trackID string) (*models.TrackMeta, error) {
	if c == nil || c.DB == nil {
		return nil, errDBClientNil
	}
	var track Track
	if err := c.DB.Where("id = ?", trackID).First(&track).Error; err != nil {
		return nil, fmt.Errorf("querying track %s: %w", trackID, err)
	}
	return trackMeta(track)
}

// ListTracks returns the metadata of every hotlist track.
func (c *DBClient) ListTracks() ([]models.TrackMeta, error) {
	if c == nil || c.DB == nil {
		return nil, errDBClientNil
	}
	var tracks []Track
	if err := c.DB.Order("created_at").Find(&tracks).Error; err != nil {
		return nil, fmt.Errorf("listing tracks: %w", err)
	}
	out := make([]models.TrackMeta, 0, len(tracks))
	for _, t := range tracks {
		meta, err := trackMeta(t)
		if err != nil {
			return nil, err
		}
		out = append(out, *meta)
	}
	return out, nil
}

func trackMeta(t Track) (*models.TrackMeta, error) {
	class, err := models.ParseContentClass(t.Class)
	if err != nil {
		return nil, fmt.Errorf("track %s: %w", t.ID, err)
	}
	return &models.TrackMeta{
		TrackID:          t.ID,
		Path:             t.Path,
		Class:            class,
		FingerprintCount: t.FingerprintCount,
		DurationMs:       t.DurationMs,
	}, nil
}
