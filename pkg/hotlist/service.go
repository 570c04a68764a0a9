package hotlist

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/soundtrace/hotlist/pkg/hotlist/match"
	"github.com/soundtrace/hotlist/pkg/hotlist/storage"
	"github.com/soundtrace/hotlist/pkg/logger"
	"github.com/soundtrace/hotlist/pkg/models"
)

// State is the engine lifecycle state. The transition happens once, at
// startup: an unreachable index puts the engine in StateDisabled permanently.
type State int

const (
	StateDisabled State = iota
	StateActive
)

func (s State) String() string {
	if s == StateActive {
		return "active"
	}
	return "disabled"
}

// ErrDisabled is returned by mutating track operations while the engine runs
// without an index. Push and Trigger never return it: they degrade to no-ops
// and canonical empty results instead.
var ErrDisabled = errors.New("hotlist index unavailable")

// hotlistService is the default implementation of the Service interface.
type hotlistService struct {
	state   State
	storage Storage
	buffer  *ingestBuffer
	log     Logger
	config  *Config

	// Serializes triggers against the index; ingestion stays unblocked.
	triggerMu sync.Mutex

	// Track metadata, loaded at startup and refreshed on registry changes.
	metaMu sync.RWMutex
	meta   map[string]models.TrackMeta

	sink Sink
}

// NewService builds the engine. An index that cannot be opened at startup is
// not an error: the engine comes up disabled, ingestion becomes a no-op and
// every trigger yields the canonical empty result.
func NewService(opts ...Option) (Service, error) {
	cfg := defaultConfig()
	for _, opt := range opts {
		opt(cfg)
	}

	if cfg.Logger == nil {
		cfg.Logger = logger.GetLogger()
	}
	if cfg.TimeQuantum <= 0 {
		return nil, fmt.Errorf("time quantum must be positive, got %v", cfg.TimeQuantum)
	}

	s := &hotlistService{
		state:  StateDisabled,
		buffer: newIngestBuffer(),
		log:    cfg.Logger,
		config: cfg,
		meta:   make(map[string]models.TrackMeta),
		sink:   cfg.Sink,
	}

	stor := cfg.Storage
	if stor == nil {
		var err error
		stor, err = storage.NewDBClientWithPath(cfg.DBPath)
		if err != nil {
			s.log.Warnf("Hotlist index unavailable, detection disabled: %v", err)
			return s, nil
		}
	}

	tracks, err := stor.ListTracks()
	if err != nil {
		s.log.Warnf("Hotlist index unreadable, detection disabled: %v", err)
		stor.Close()
		return s, nil
	}
	for _, t := range tracks {
		s.meta[t.TrackID] = t
	}

	s.storage = stor
	s.state = StateActive
	s.log.Infof("Hotlist engine active with %d reference tracks", len(tracks))
	return s, nil
}

func (s *hotlistService) State() State {
	return s.state
}

// Push feeds one fingerprint event into the ingestion buffer. A no-op while
// the engine is disabled.
func (s *hotlistService) Push(ev models.FingerprintEvent) {
	if s.state != StateActive {
		return
	}
	s.buffer.Push(ev)
}

// Trigger drains the buffer, runs one batch lookup and returns the detection
// for the batch. Exactly one outcome per call: a result (possibly the
// canonical empty one) or an error. A failed lookup is an error, never a
// silent empty result.
func (s *hotlistService) Trigger(ctx context.Context) (*models.DetectionResult, error) {
	if s.state != StateActive {
		return models.EmptyDetectionResult(), nil
	}

	s.triggerMu.Lock()
	defer s.triggerMu.Unlock()

	events, gen := s.buffer.Drain()
	if len(events) == 0 {
		s.log.Debugf("Trigger %d: empty batch", gen)
		return s.emit(models.EmptyDetectionResult()), nil
	}

	// One key per distinct hash; every event still votes with its own
	// time code.
	hashes := make([]uint32, 0, len(events))
	seen := make(map[uint32]struct{}, len(events))
	for _, ev := range events {
		if _, ok := seen[ev.Hash]; ok {
			continue
		}
		seen[ev.Hash] = struct{}{}
		hashes = append(hashes, ev.Hash)
	}

	rows, err := s.storage.LookupFingerprints(hashes)
	if err != nil {
		return nil, fmt.Errorf("hotlist lookup failed: %w", err)
	}
	if len(rows) == 0 {
		s.log.Debugf("Trigger %d: %d fingerprints, no reference rows", gen, len(events))
		return s.emit(models.EmptyDetectionResult()), nil
	}

	winner := match.Vote(events, rows)
	if winner == nil {
		return s.emit(models.EmptyDetectionResult()), nil
	}
	meta := s.trackMeta(winner.TrackID)
	scores := match.Score(winner, rows, meta, len(events), s.config.TimeQuantum)

	result := &models.DetectionResult{
		TrackID:                  winner.TrackID,
		File:                     meta.Path,
		Class:                    winner.Class,
		Diff:                     winner.Diff,
		DurationMs:               meta.DurationMs,
		FingersCountReference:    meta.FingerprintCount,
		MatchesSync:              winner.Count,
		MatchesTotal:             len(rows),
		TRefAvg:                  scores.TRefAvg,
		TRefStd:                  scores.TRefStd,
		FingersCountMeasurements: len(events),
		RatioFingersReference:    scores.RatioFingersReference,
		RatioFingersMeasurements: scores.RatioFingersMeasurements,
		Confidence1:              scores.Confidence1,
		Confidence2:              scores.Confidence2,
		Softmax:                  scores.Softmax,
	}

	s.log.Infof("Trigger %d: %s (%s) diff=%d sync=%d/%d conf=%.3f",
		gen, meta.Path, winner.Class, winner.Diff, winner.Count, len(rows), scores.Confidence2)
	return s.emit(result), nil
}

// emit delivers the record to the configured sink and returns the result
// unchanged. One record per completed trigger.
func (s *hotlistService) emit(res *models.DetectionResult) *models.DetectionResult {
	if s.sink != nil {
		s.sink(models.NewHotlistRecord(res))
	}
	return res
}

func (s *hotlistService) trackMeta(trackID string) models.TrackMeta {
	s.metaMu.RLock()
	meta, ok := s.meta[trackID]
	s.metaMu.RUnlock()
	if ok {
		return meta
	}
	// Track added since startup by another writer; fall back to the index.
	if fetched, err := s.storage.GetTrackByID(trackID); err == nil {
		s.metaMu.Lock()
		s.meta[trackID] = *fetched
		s.metaMu.Unlock()
		return *fetched
	}
	return models.TrackMeta{TrackID: trackID}
}

// RegisterTrack adds a reference track and its fingerprints to the index.
func (s *hotlistService) RegisterTrack(ctx context.Context, path string, class models.ContentClass, durationMs int, fingerprints []models.FingerprintEvent) (string, error) {
	if s.state != StateActive {
		return "", ErrDisabled
	}
	if !class.Valid() {
		return "", fmt.Errorf("invalid content class %d", class)
	}

	trackID, err := s.storage.RegisterTrack(path, class, durationMs)
	if err != nil {
		return "", fmt.Errorf("failed to register track: %w", err)
	}

	if err := s.storage.StoreFingerprints(trackID, fingerprints); err != nil {
		s.storage.DeleteTrackByID(trackID) // Rollback
		return "", fmt.Errorf("failed to store fingerprints: %w", err)
	}

	meta, err := s.storage.GetTrackByID(trackID)
	if err != nil {
		return "", fmt.Errorf("failed to reload track meta: %w", err)
	}
	s.metaMu.Lock()
	s.meta[trackID] = *meta
	s.metaMu.Unlock()

	s.log.Infof("Registered track %s (%s) with %d fingerprints", path, class, len(fingerprints))
	return trackID, nil
}

// GetTrackByID retrieves a track's metadata by its ID.
func (s *hotlistService) GetTrackByID(trackID string) (*models.TrackMeta, error) {
	if s.state != StateActive {
		return nil, ErrDisabled
	}
	return s.storage.GetTrackByID(trackID)
}

// ListTracks returns all hotlist tracks in the index.
func (s *hotlistService) ListTracks() ([]models.TrackMeta, error) {
	if s.state != StateActive {
		return nil, nil
	}
	return s.storage.ListTracks()
}

// DeleteTrack removes a track and all its fingerprints from the index.
func (s *hotlistService) DeleteTrack(trackID string) error {
	if s.state != StateActive {
		return ErrDisabled
	}
	if err := s.storage.DeleteTrackByID(trackID); err != nil {
		return err
	}
	s.metaMu.Lock()
	delete(s.meta, trackID)
	s.metaMu.Unlock()
	return nil
}

// Close releases all resources held by the engine.
func (s *hotlistService) Close() error {
	if s.storage == nil {
		return nil
	}
	return s.storage.Close()
}
