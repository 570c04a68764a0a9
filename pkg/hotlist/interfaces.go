package hotlist

import (
	"context"

	"github.com/soundtrace/hotlist/pkg/models"
)

// Service is the hotlist detection engine. Push feeds fingerprint events from
// the extractor; Trigger runs one match batch against the reference index.
type Service interface {
	Push(ev models.FingerprintEvent)
	Trigger(ctx context.Context) (*models.DetectionResult, error)
	RegisterTrack(ctx context.Context, path string, class models.ContentClass, durationMs int, fingerprints []models.FingerprintEvent) (string, error)
	GetTrackByID(trackID string) (*models.TrackMeta, error)
	ListTracks() ([]models.TrackMeta, error)
	DeleteTrack(trackID string) error
	State() State
	Close() error
}

// Storage is the reference fingerprint index.
type Storage interface {
	RegisterTrack(path string, class models.ContentClass, durationMs int) (string, error)
	StoreFingerprints(trackID string, events []models.FingerprintEvent) error
	LookupFingerprints(hashes []uint32) ([]models.ReferenceMatch, error)
	GetTrackByID(trackID string) (*models.TrackMeta, error)
	ListTracks() ([]models.TrackMeta, error)
	DeleteTrackByID(trackID string) error
	Close() error
}

type Logger interface {
	Infof(format string, args ...any)
	Warnf(format string, args ...any)
	Errorf(format string, args ...any)
	Debugf(format string, args ...any)
}

// Sink receives one record per completed trigger.
type Sink func(models.Record)
