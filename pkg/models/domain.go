package models

// FingerprintEvent is a single fingerprint emitted by the extractor.
// TimeCode is a monotonically increasing integer in quantum units (DT).
type FingerprintEvent struct {
	Hash     uint32 `json:"hash"`
	TimeCode int64  `json:"time_code"`
}

// ReferenceMatch is one (query-hash, reference-occurrence) row returned
// by the index for a batch lookup.
type ReferenceMatch struct {
	Hash        uint32
	TrackID     string
	Class       ContentClass
	RefTimeCode int64
}

// TrackMeta is the static per-track metadata supplied by the index.
// The engine never mutates it.
type TrackMeta struct {
	TrackID          string       `json:"track_id"`
	Path             string       `json:"path"`
	Class            ContentClass `json:"class"`
	FingerprintCount int          `json:"fingerprint_count"`
	DurationMs       int          `json:"duration_ms"`
}

// DurationSeconds returns the track duration in seconds.
func (m TrackMeta) DurationSeconds() float64 {
	return float64(m.DurationMs) / 1000.0
}

// DetectionResult is the outcome of one match batch. Immutable once emitted.
type DetectionResult struct {
	TrackID                  string              `json:"track_id,omitempty"`
	File                     string              `json:"file,omitempty"`
	Class                    ContentClass        `json:"class"`
	Diff                     int64               `json:"diff"`
	DurationMs               int                 `json:"duration_ms"`
	FingersCountReference    int                 `json:"fingers_count_reference"`
	MatchesSync              int                 `json:"matches_sync"`
	MatchesTotal             int                 `json:"matches_total"`
	TRefAvg                  float64             `json:"t_ref_avg"`
	TRefStd                  float64             `json:"t_ref_std"`
	FingersCountMeasurements int                 `json:"fingers_count_measurements"`
	RatioFingersReference    float64             `json:"ratio_fingers_reference"`
	RatioFingersMeasurements float64             `json:"ratio_fingers_measurements"`
	Confidence1              float64             `json:"confidence_1"`
	Confidence2              float64             `json:"confidence_2"`
	Softmax                  [NumClasses]float64 `json:"softmax"`
}

// EmptyDetectionResult is the canonical result for an empty batch or a lookup
// that returned no rows: all counts and confidences zero, track/class/diff
// unset, uniform softmax.
func EmptyDetectionResult() *DetectionResult {
	return &DetectionResult{
		Class:   ClassNone,
		Softmax: UniformSoftmax(),
	}
}

// Record is one entry in the detection output stream.
type Record struct {
	Type string           `json:"type"`
	Data *DetectionResult `json:"data"`
}

// NewHotlistRecord wraps a detection result in a typed stream record.
func NewHotlistRecord(res *DetectionResult) Record {
	return Record{Type: "hotlist", Data: res}
}
