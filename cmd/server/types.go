package main

import (
	"errors"
	"sync"

	"github.com/soundtrace/hotlist/pkg/models"
)

// ErrorResponse is the JSON body for error replies.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
	Code    int    `json:"code"`
}

// MetricsResponse reports engine health.
type MetricsResponse struct {
	Status       string `json:"status"`
	EngineState  string `json:"engine_state"`
	DatabasePath string `json:"database_path"`
	TrackCount   int    `json:"track_count"`
	Buffered     int    `json:"buffered_events,omitempty"`
}

// PushFingerprintsRequest carries a batch of extractor events.
type PushFingerprintsRequest struct {
	Events []models.FingerprintEvent `json:"events"`
}

func (r *PushFingerprintsRequest) Validate() error {
	if len(r.Events) == 0 {
		return errors.New("events are required")
	}
	return nil
}

// AddTrackRequest registers a hotlist track with its fingerprints.
type AddTrackRequest struct {
	Path         string                    `json:"path"`
	Class        string                    `json:"class"`
	DurationMs   int                       `json:"duration_ms"`
	Fingerprints []models.FingerprintEvent `json:"fingerprints"`
}

func (r *AddTrackRequest) Validate() error {
	if r.Path == "" {
		return errors.New("path is required")
	}
	if r.Class == "" {
		return errors.New("class is required")
	}
	if len(r.Fingerprints) == 0 {
		return errors.New("fingerprints are required")
	}
	return nil
}

// AddTrackResponse confirms a registration.
type AddTrackResponse struct {
	Message          string `json:"message"`
	ID               string `json:"id"`
	Path             string `json:"path"`
	Class            string `json:"class"`
	FingerprintCount int    `json:"fingerprint_count"`
}

// ListTracksResponse wraps the track listing.
type ListTracksResponse struct {
	Tracks []models.TrackMeta `json:"tracks"`
	Count  int                `json:"count"`
}

// DeleteTrackResponse confirms a deletion.
type DeleteTrackResponse struct {
	Message string `json:"message"`
	ID      string `json:"id"`
}

// ResultsResponse wraps the recent detection records, oldest first.
type ResultsResponse struct {
	Records []models.Record `json:"records"`
	Count   int             `json:"count"`
}

// resultsRing keeps the most recent detection records for GET /api/results.
type resultsRing struct {
	mu      sync.Mutex
	keep    int
	records []models.Record
}

func newResultsRing(keep int) *resultsRing {
	return &resultsRing{keep: keep}
}

func (r *resultsRing) Append(rec models.Record) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.records = append(r.records, rec)
	if len(r.records) > r.keep {
		r.records = r.records[len(r.records)-r.keep:]
	}
}

func (r *resultsRing) Snapshot() []models.Record {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]models.Record, len(r.records))
	copy(out, r.records)
	return out
}
