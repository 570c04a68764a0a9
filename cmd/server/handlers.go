package main

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/soundtrace/hotlist/internal/config"
	"github.com/soundtrace/hotlist/pkg/hotlist"
	"github.com/soundtrace/hotlist/pkg/logger"
	"github.com/soundtrace/hotlist/pkg/models"
)

// Server encapsulates the HTTP server and its dependencies.
type Server struct {
	service hotlist.Service
	config  *config.Config
	results *resultsRing
	log     hotlist.Logger
}

// NewServer creates a new server instance.
func NewServer(service hotlist.Service, cfg *config.Config, results *resultsRing) *Server {
	return &Server{
		service: service,
		config:  cfg,
		results: results,
		log:     logger.GetLogger(),
	}
}

// respondJSON writes a JSON response.
func (s *Server) respondJSON(w http.ResponseWriter, statusCode int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		s.log.Errorf("Failed to encode JSON response: %v", err)
	}
}

// respondError writes an error response.
func (s *Server) respondError(w http.ResponseWriter, statusCode int, message string) {
	s.respondJSON(w, statusCode, ErrorResponse{
		Error:   http.StatusText(statusCode),
		Message: message,
		Code:    statusCode,
	})
}

// handleRoot handles GET /
func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}

	s.respondJSON(w, http.StatusOK, map[string]interface{}{
		"service": "Hotlist Detection API",
		"version": "1.0.0",
		"endpoints": map[string]string{
			"health":           "GET /health",
			"metrics":          "GET /api/health/metrics",
			"pushFingerprints": "POST /api/fingerprints",
			"trigger":          "POST /api/trigger",
			"tracks":           "GET /api/tracks",
			"addTrack":         "POST /api/tracks",
			"getTrack":         "GET /api/tracks/{id}",
			"deleteTrack":      "DELETE /api/tracks/{id}",
			"results":          "GET /api/results",
		},
	})
}

// handleHealth handles GET /health
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, http.StatusOK, map[string]string{
		"status": "healthy",
		"time":   time.Now().Format(time.RFC3339),
	})
}

// handleMetrics handles GET /api/health/metrics
func (s *Server) handleMetrics(w http.ResponseWriter, r *http.Request) {
	tracks, err := s.service.ListTracks()
	if err != nil {
		s.log.Errorf("Failed to get track count: %v", err)
		s.respondError(w, http.StatusInternalServerError, "Failed to retrieve metrics")
		return
	}

	s.respondJSON(w, http.StatusOK, MetricsResponse{
		Status:       "healthy",
		EngineState:  s.service.State().String(),
		DatabasePath: s.config.Index.DBPath,
		TrackCount:   len(tracks),
	})
}

// handlePushFingerprints handles POST /api/fingerprints
func (s *Server) handlePushFingerprints(w http.ResponseWriter, r *http.Request) {
	var req PushFingerprintsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.log.Errorf("Failed to decode request: %v", err)
		s.respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if err := req.Validate(); err != nil {
		s.respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	for _, ev := range req.Events {
		s.service.Push(ev)
	}

	s.respondJSON(w, http.StatusAccepted, map[string]int{"accepted": len(req.Events)})
}

// handleTrigger handles POST /api/trigger
func (s *Server) handleTrigger(w http.ResponseWriter, r *http.Request) {
	result, err := s.service.Trigger(r.Context())
	if err != nil {
		s.log.Errorf("Trigger failed: %v", err)
		s.respondError(w, http.StatusInternalServerError, fmt.Sprintf("Trigger failed: %v", err))
		return
	}
	s.respondJSON(w, http.StatusOK, result)
}

// handleResults handles GET /api/results
func (s *Server) handleResults(w http.ResponseWriter, r *http.Request) {
	records := s.results.Snapshot()
	s.respondJSON(w, http.StatusOK, ResultsResponse{
		Records: records,
		Count:   len(records),
	})
}

// handleListTracks handles GET /api/tracks
func (s *Server) handleListTracks(w http.ResponseWriter, r *http.Request) {
	tracks, err := s.service.ListTracks()
	if err != nil {
		s.log.Errorf("Failed to list tracks: %v", err)
		s.respondError(w, http.StatusInternalServerError, "Failed to retrieve tracks")
		return
	}

	s.respondJSON(w, http.StatusOK, ListTracksResponse{
		Tracks: tracks,
		Count:  len(tracks),
	})
}

// handleAddTrack handles POST /api/tracks
func (s *Server) handleAddTrack(w http.ResponseWriter, r *http.Request) {
	var req AddTrackRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.log.Errorf("Failed to decode request: %v", err)
		s.respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if err := req.Validate(); err != nil {
		s.respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	class, err := models.ParseContentClass(req.Class)
	if err != nil {
		s.respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	s.log.Infof("Registering track: %s (%s)", req.Path, req.Class)
	trackID, err := s.service.RegisterTrack(r.Context(), req.Path, class, req.DurationMs, req.Fingerprints)
	if err != nil {
		s.log.Errorf("Failed to register track: %v", err)
		s.respondError(w, http.StatusInternalServerError, fmt.Sprintf("Failed to register track: %v", err))
		return
	}

	s.respondJSON(w, http.StatusCreated, AddTrackResponse{
		Message:          "Track registered successfully",
		ID:               trackID,
		Path:             req.Path,
		Class:            req.Class,
		FingerprintCount: len(req.Fingerprints),
	})
}

// handleGetTrack handles GET /api/tracks/{id}
func (s *Server) handleGetTrack(w http.ResponseWriter, r *http.Request, trackID string) {
	track, err := s.service.GetTrackByID(trackID)
	if err != nil {
		s.log.Warnf("Track not found: %s", trackID)
		s.respondError(w, http.StatusNotFound, fmt.Sprintf("Track %s not found", trackID))
		return
	}
	s.respondJSON(w, http.StatusOK, track)
}

// handleDeleteTrack handles DELETE /api/tracks/{id}
func (s *Server) handleDeleteTrack(w http.ResponseWriter, r *http.Request, trackID string) {
	track, err := s.service.GetTrackByID(trackID)
	if err != nil {
		s.log.Warnf("Track not found for deletion: %s", trackID)
		s.respondError(w, http.StatusNotFound, fmt.Sprintf("Track %s not found", trackID))
		return
	}

	if err := s.service.DeleteTrack(trackID); err != nil {
		s.log.Errorf("Failed to delete track %s: %v", trackID, err)
		s.respondError(w, http.StatusInternalServerError, "Failed to delete track")
		return
	}

	s.log.Infof("Deleted track: %s (%s)", track.Path, trackID)
	s.respondJSON(w, http.StatusOK, DeleteTrackResponse{
		Message: "Track deleted successfully",
		ID:      trackID,
	})
}

// handleTracks routes requests to /api/tracks
func (s *Server) handleTracks(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		s.handleListTracks(w, r)
	case http.MethodPost:
		s.handleAddTrack(w, r)
	default:
		s.respondError(w, http.StatusMethodNotAllowed, "Method not allowed")
	}
}

// handleTrack routes requests to /api/tracks/{id}
func (s *Server) handleTrack(w http.ResponseWriter, r *http.Request) {
	trackID := r.URL.Path[len("/api/tracks/"):]
	if trackID == "" {
		s.respondError(w, http.StatusBadRequest, "Track ID required")
		return
	}

	switch r.Method {
	case http.MethodGet:
		s.handleGetTrack(w, r, trackID)
	case http.MethodDelete:
		s.handleDeleteTrack(w, r, trackID)
	default:
		s.respondError(w, http.StatusMethodNotAllowed, "Method not allowed")
	}
}
