package hotlist

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/soundtrace/hotlist/pkg/models"
)

// setupTestService creates an active engine backed by a temporary database.
func setupTestService(t *testing.T, opts ...Option) Service {
	t.Helper()

	dbPath := filepath.Join(t.TempDir(), "test_hotlist.sqlite3")
	opts = append([]Option{WithDBPath(dbPath)}, opts...)

	service, err := NewService(opts...)
	if err != nil {
		t.Fatalf("Failed to create test service: %v", err)
	}
	t.Cleanup(func() {
		service.Close()
	})

	if service.State() != StateActive {
		t.Fatalf("Expected active engine, got %s", service.State())
	}
	return service
}

// registerTestTrack plants a reference track with sequential hashes.
func registerTestTrack(t *testing.T, svc Service, path string, class models.ContentClass, hashStart uint32, refStart int64, count int) string {
	t.Helper()

	events := make([]models.FingerprintEvent, count)
	for i := 0; i < count; i++ {
		events[i] = models.FingerprintEvent{
			Hash:     hashStart + uint32(i),
			TimeCode: refStart + int64(i),
		}
	}

	trackID, err := svc.RegisterTrack(context.Background(), path, class, 30000, events)
	if err != nil {
		t.Fatalf("Failed to register track %s: %v", path, err)
	}
	return trackID
}

func assertEmptyResult(t *testing.T, res *models.DetectionResult) {
	t.Helper()

	if res == nil {
		t.Fatal("Expected a result, got nil")
	}
	if res.TrackID != "" || res.File != "" {
		t.Errorf("Expected unset track, got %q/%q", res.TrackID, res.File)
	}
	if res.Class != models.ClassNone {
		t.Errorf("Expected unset class, got %s", res.Class)
	}
	if res.MatchesSync != 0 || res.MatchesTotal != 0 || res.FingersCountMeasurements != 0 {
		t.Errorf("Expected zero counts, got sync=%d total=%d query=%d",
			res.MatchesSync, res.MatchesTotal, res.FingersCountMeasurements)
	}
	if res.Confidence1 != 0 || res.Confidence2 != 0 {
		t.Errorf("Expected zero confidences, got %v/%v", res.Confidence1, res.Confidence2)
	}
	for i, v := range res.Softmax {
		if v != 0.25 {
			t.Errorf("Expected uniform softmax, got %v at %d", v, i)
		}
	}
}

func TestTriggerEmptyBuffer(t *testing.T) {
	svc := setupTestService(t)

	res, err := svc.Trigger(context.Background())
	if err != nil {
		t.Fatalf("Trigger failed: %v", err)
	}
	assertEmptyResult(t, res)
}

func TestTriggerNoReferenceRows(t *testing.T) {
	svc := setupTestService(t)
	registerTestTrack(t, svc, "ads/spot-a.wav", models.ClassAdvert, 1000, 0, 10)

	// Query hashes that exist nowhere in the index.
	for i := 0; i < 5; i++ {
		svc.Push(models.FingerprintEvent{Hash: 9000 + uint32(i), TimeCode: int64(i)})
	}

	res, err := svc.Trigger(context.Background())
	if err != nil {
		t.Fatalf("Trigger failed: %v", err)
	}
	assertEmptyResult(t, res)
}

func TestTriggerDetectsPlantedTrack(t *testing.T) {
	svc := setupTestService(t)

	trackID := registerTestTrack(t, svc, "ads/spot-a.wav", models.ClassAdvert, 100, 500, 10)
	registerTestTrack(t, svc, "music/track-b.wav", models.ClassMusic, 200, 0, 10)

	// Query: the planted fingerprints, shifted to stream time 0..9.
	for i := 0; i < 10; i++ {
		svc.Push(models.FingerprintEvent{Hash: 100 + uint32(i), TimeCode: int64(i)})
	}

	res, err := svc.Trigger(context.Background())
	if err != nil {
		t.Fatalf("Trigger failed: %v", err)
	}

	if res.TrackID != trackID {
		t.Errorf("Expected track %s, got %s", trackID, res.TrackID)
	}
	if res.File != "ads/spot-a.wav" {
		t.Errorf("Expected file ads/spot-a.wav, got %s", res.File)
	}
	if res.Class != models.ClassAdvert {
		t.Errorf("Expected class advert, got %s", res.Class)
	}
	if res.MatchesSync != 10 {
		t.Errorf("Expected 10 synchronized matches, got %d", res.MatchesSync)
	}
	if res.MatchesTotal != 10 {
		t.Errorf("Expected 10 total rows, got %d", res.MatchesTotal)
	}
	if res.FingersCountMeasurements != 10 {
		t.Errorf("Expected query size 10, got %d", res.FingersCountMeasurements)
	}
	// All ten rows sit at one consistent alignment relative to the anchors.
	if res.Diff != 0 {
		t.Errorf("Expected diff 0, got %d", res.Diff)
	}
	if res.FingersCountReference != 10 {
		t.Errorf("Expected reference count 10, got %d", res.FingersCountReference)
	}
	if res.Confidence2 <= 0 {
		t.Errorf("Expected positive confidence, got %v", res.Confidence2)
	}
	if res.Softmax[models.ClassAdvert] <= 0.25 {
		t.Errorf("Expected softmax biased toward advert, got %v", res.Softmax)
	}
}

func TestTriggerConsumesBatchOnce(t *testing.T) {
	svc := setupTestService(t)
	registerTestTrack(t, svc, "jingles/station.wav", models.ClassJingle, 300, 0, 8)

	for i := 0; i < 8; i++ {
		svc.Push(models.FingerprintEvent{Hash: 300 + uint32(i), TimeCode: int64(i)})
	}

	first, err := svc.Trigger(context.Background())
	if err != nil {
		t.Fatalf("First trigger failed: %v", err)
	}
	if first.MatchesSync != 8 {
		t.Errorf("Expected 8 matches on first trigger, got %d", first.MatchesSync)
	}

	// The batch was consumed; a second trigger sees an empty buffer.
	second, err := svc.Trigger(context.Background())
	if err != nil {
		t.Fatalf("Second trigger failed: %v", err)
	}
	assertEmptyResult(t, second)
}

func TestSinkReceivesOneRecordPerTrigger(t *testing.T) {
	var records []models.Record
	svc := setupTestService(t, WithSink(func(r models.Record) {
		records = append(records, r)
	}))
	registerTestTrack(t, svc, "speech/news.wav", models.ClassSpeech, 400, 0, 6)

	// Empty trigger, then a matching one.
	if _, err := svc.Trigger(context.Background()); err != nil {
		t.Fatalf("Trigger failed: %v", err)
	}
	for i := 0; i < 6; i++ {
		svc.Push(models.FingerprintEvent{Hash: 400 + uint32(i), TimeCode: int64(i)})
	}
	if _, err := svc.Trigger(context.Background()); err != nil {
		t.Fatalf("Trigger failed: %v", err)
	}

	if len(records) != 2 {
		t.Fatalf("Expected 2 records, got %d", len(records))
	}
	for _, r := range records {
		if r.Type != "hotlist" {
			t.Errorf("Expected record type 'hotlist', got %q", r.Type)
		}
		if r.Data == nil {
			t.Error("Expected record data")
		}
	}
	if records[1].Data.Class != models.ClassSpeech {
		t.Errorf("Expected detected class speech, got %s", records[1].Data.Class)
	}
}

// failingStorage reports healthy at startup but fails every lookup.
type failingStorage struct {
	lookupErr error
}

func (f *failingStorage) RegisterTrack(string, models.ContentClass, int) (string, error) {
	return "", errors.New("not implemented")
}
func (f *failingStorage) StoreFingerprints(string, []models.FingerprintEvent) error {
	return errors.New("not implemented")
}
func (f *failingStorage) LookupFingerprints([]uint32) ([]models.ReferenceMatch, error) {
	return nil, f.lookupErr
}
func (f *failingStorage) GetTrackByID(string) (*models.TrackMeta, error) {
	return nil, errors.New("not implemented")
}
func (f *failingStorage) ListTracks() ([]models.TrackMeta, error) { return nil, nil }
func (f *failingStorage) DeleteTrackByID(string) error            { return errors.New("not implemented") }
func (f *failingStorage) Close() error                            { return nil }

func TestTriggerLookupFailure(t *testing.T) {
	lookupErr := errors.New("index query failed")
	sinkCalls := 0

	svc, err := NewService(
		WithStorage(&failingStorage{lookupErr: lookupErr}),
		WithSink(func(models.Record) { sinkCalls++ }),
	)
	if err != nil {
		t.Fatalf("Failed to create service: %v", err)
	}
	defer svc.Close()

	svc.Push(models.FingerprintEvent{Hash: 1, TimeCode: 0})

	res, err := svc.Trigger(context.Background())
	if err == nil {
		t.Fatal("Expected an error from a failed lookup, got none")
	}
	if !errors.Is(err, lookupErr) {
		t.Errorf("Expected wrapped lookup error, got %v", err)
	}
	if res != nil {
		t.Errorf("Expected no result alongside the error, got %+v", res)
	}
	if sinkCalls != 0 {
		t.Errorf("Expected no record for a failed trigger, got %d", sinkCalls)
	}
}

// brokenStorage fails the startup track listing, which must put the engine in
// the disabled state rather than erroring out.
type brokenStorage struct{ failingStorage }

func (b *brokenStorage) ListTracks() ([]models.TrackMeta, error) {
	return nil, errors.New("index unavailable")
}

func TestDisabledEngine(t *testing.T) {
	svc, err := NewService(WithStorage(&brokenStorage{}))
	if err != nil {
		t.Fatalf("Startup index unavailability must not be an error, got: %v", err)
	}
	defer svc.Close()

	if svc.State() != StateDisabled {
		t.Fatalf("Expected disabled state, got %s", svc.State())
	}

	// Ingestion is a no-op; triggering yields the canonical empty result.
	svc.Push(models.FingerprintEvent{Hash: 1, TimeCode: 0})
	res, err := svc.Trigger(context.Background())
	if err != nil {
		t.Fatalf("Trigger on disabled engine failed: %v", err)
	}
	assertEmptyResult(t, res)

	if _, err := svc.RegisterTrack(context.Background(), "x", models.ClassMusic, 0, nil); !errors.Is(err, ErrDisabled) {
		t.Errorf("Expected ErrDisabled, got %v", err)
	}
	if err := svc.DeleteTrack("x"); !errors.Is(err, ErrDisabled) {
		t.Errorf("Expected ErrDisabled, got %v", err)
	}
}

func TestRegisterTrackValidatesClass(t *testing.T) {
	svc := setupTestService(t)

	_, err := svc.RegisterTrack(context.Background(), "bad.wav", models.ClassNone, 0,
		[]models.FingerprintEvent{{Hash: 1, TimeCode: 0}})
	if err == nil {
		t.Error("Expected error for invalid content class")
	}
}

func TestListAndDeleteTracks(t *testing.T) {
	svc := setupTestService(t)

	idA := registerTestTrack(t, svc, "a.wav", models.ClassMusic, 0, 0, 5)
	registerTestTrack(t, svc, "b.wav", models.ClassAdvert, 100, 0, 5)

	tracks, err := svc.ListTracks()
	if err != nil {
		t.Fatalf("ListTracks failed: %v", err)
	}
	if len(tracks) != 2 {
		t.Fatalf("Expected 2 tracks, got %d", len(tracks))
	}

	if err := svc.DeleteTrack(idA); err != nil {
		t.Fatalf("DeleteTrack failed: %v", err)
	}
	tracks, err = svc.ListTracks()
	if err != nil {
		t.Fatalf("ListTracks failed: %v", err)
	}
	if len(tracks) != 1 || tracks[0].Path != "b.wav" {
		t.Errorf("Expected only b.wav to remain, got %+v", tracks)
	}
}
