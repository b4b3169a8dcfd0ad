// SPDX-License-Identifier: MIT

package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/elroyic/Podcast-Generator-sub001/internal/lease"
	"github.com/elroyic/Podcast-Generator-sub001/internal/log"
	"github.com/elroyic/Podcast-Generator-sub001/internal/model"
	"github.com/elroyic/Podcast-Generator-sub001/internal/review"
	"github.com/elroyic/Podcast-Generator-sub001/internal/store"
)

type generateRequest struct {
	GroupID string `json:"groupId"`
	Force   bool   `json:"force,omitempty"`
}

type generateResponse struct {
	EpisodeID string `json:"episodeId"`
	GroupID   string `json:"groupId"`
	Status    string `json:"status"`
}

// handleGenerateEpisode triggers generation for one group. Force bypasses
// the cadence interval but never the lease: two concurrent generations for
// a group stay impossible.
func (s *Server) handleGenerateEpisode(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := log.WithComponentFromContext(ctx, "api")

	var req generateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeErr(w, http.StatusBadRequest, "INVALID_BODY", "request body must be JSON")
		return
	}
	if req.GroupID == "" {
		writeErr(w, http.StatusBadRequest, "MISSING_GROUP_ID", "groupId is required")
		return
	}

	group, err := s.st.GetGroup(ctx, req.GroupID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeErr(w, http.StatusNotFound, "GROUP_NOT_FOUND", "unknown group: "+req.GroupID)
			return
		}
		writeErr(w, http.StatusInternalServerError, "STORE_ERROR", "group lookup failed")
		return
	}

	ls, err := s.leases.Status(ctx, group.ID)
	if err != nil {
		writeErr(w, http.StatusInternalServerError, "LEASE_ERROR", "lease lookup failed")
		return
	}
	if ls.Held {
		writeErr(w, http.StatusConflict, "LEASE_HELD", "generation already in progress for group "+group.ID)
		return
	}

	if !req.Force {
		if interval, auto := group.CadenceBucket.Interval(); auto &&
			!group.LastEpisodeAt.IsZero() && time.Since(group.LastEpisodeAt) < interval {
			writeErr(w, http.StatusConflict, "CADENCE_NOT_ELAPSED",
				"cadence interval has not elapsed; use force to override")
			return
		}
	}

	// The lease is only acquired once the worker picks the job up, so the
	// status check above cannot arbitrate two near-simultaneous requests.
	// The shared in-flight marker does: exactly one trigger wins.
	if !s.cadence.Claim(group.ID) {
		writeErr(w, http.StatusConflict, "LEASE_HELD", "generation already in progress for group "+group.ID)
		return
	}

	ep := model.Episode{
		ID:            uuid.NewString(),
		GroupID:       group.ID,
		Status:        model.EpisodeQueued,
		CorrelationID: uuid.NewString(),
		CreatedAt:     time.Now().UTC(),
	}
	if err := s.st.InsertEpisode(ctx, ep); err != nil {
		s.cadence.Done(group.ID)
		writeErr(w, http.StatusInternalServerError, "STORE_ERROR", "episode row creation failed")
		return
	}

	ev := model.GenerateEpisodeEvent{
		GroupID:       group.ID,
		EpisodeID:     ep.ID,
		Force:         req.Force,
		CorrelationID: ep.CorrelationID,
	}
	if err := s.events.Publish(ctx, model.EventGenerateEpisode, ev); err != nil {
		s.cadence.Done(group.ID)
		writeErr(w, http.StatusServiceUnavailable, "QUEUE_UNAVAILABLE", "generation job could not be enqueued")
		return
	}

	logger.Info().
		Str(log.FieldGroupID, group.ID).
		Str(log.FieldEpisodeID, ep.ID).
		Bool("force", req.Force).
		Msg("manual generation requested")
	writeJSON(w, http.StatusAccepted, generateResponse{
		EpisodeID: ep.ID,
		GroupID:   group.ID,
		Status:    string(model.EpisodeQueued),
	})
}

func (s *Server) handleCadenceStatus(w http.ResponseWriter, r *http.Request) {
	rows, err := s.cadence.Report(r.Context())
	if err != nil {
		writeErr(w, http.StatusInternalServerError, "STORE_ERROR", "cadence report failed")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"groups": rows})
}

type reviewerConfig struct {
	LightThreshold      float64 `json:"lightThreshold"`
	HeavyThreshold      float64 `json:"heavyThreshold"`
	PauseBackoffSeconds float64 `json:"pauseBackoffSeconds"`
}

func (s *Server) handleGetReviewerConfig(w http.ResponseWriter, r *http.Request) {
	th := s.cascade.Thresholds()
	writeJSON(w, http.StatusOK, reviewerConfig{
		LightThreshold:      th.Light,
		HeavyThreshold:      th.Heavy,
		PauseBackoffSeconds: s.reviews.Backoff().Seconds(),
	})
}

// handlePutReviewerConfig applies threshold and backoff changes without a
// restart. In-flight reviews keep the thresholds they started with.
func (s *Server) handlePutReviewerConfig(w http.ResponseWriter, r *http.Request) {
	var req reviewerConfig
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeErr(w, http.StatusBadRequest, "INVALID_BODY", "request body must be JSON")
		return
	}
	if req.LightThreshold < 0 || req.LightThreshold > 1 ||
		req.HeavyThreshold < 0 || req.HeavyThreshold > 1 {
		writeErr(w, http.StatusBadRequest, "INVALID_THRESHOLD", "thresholds must be within [0, 1]")
		return
	}
	if req.PauseBackoffSeconds <= 0 {
		writeErr(w, http.StatusBadRequest, "INVALID_BACKOFF", "pauseBackoffSeconds must be positive")
		return
	}

	s.cascade.SetThresholds(review.Thresholds{
		Light: req.LightThreshold,
		Heavy: req.HeavyThreshold,
	})
	s.reviews.SetBackoff(time.Duration(req.PauseBackoffSeconds * float64(time.Second)))

	logger := log.WithComponentFromContext(r.Context(), "api")
	logger.Info().
		Float64("light_threshold", req.LightThreshold).
		Float64("heavy_threshold", req.HeavyThreshold).
		Float64("pause_backoff_seconds", req.PauseBackoffSeconds).
		Msg("reviewer config updated")
	writeJSON(w, http.StatusOK, req)
}

// handlePause claims the synthetic maintenance lease, which pauses the
// review workers through the same AnyActive gate a real generation uses.
func (s *Server) handlePause(w http.ResponseWriter, r *http.Request) {
	acquired, err := s.leases.Acquire(r.Context(), lease.MaintenanceGroupID, lease.MaintenanceOwner, s.leaseTTL)
	if err != nil {
		writeErr(w, http.StatusInternalServerError, "LEASE_ERROR", "maintenance lease acquisition failed")
		return
	}
	if !acquired {
		writeErr(w, http.StatusConflict, "LEASE_HELD", "maintenance lease held by another owner")
		return
	}
	logger := log.WithComponentFromContext(r.Context(), "api")
	logger.Info().Msg("production paused")
	writeJSON(w, http.StatusOK, map[string]any{"paused": true, "ttlSeconds": int(s.leaseTTL.Seconds())})
}

// handleResume releases the maintenance lease. Resuming an unpaused daemon
// is a no-op, not an error.
func (s *Server) handleResume(w http.ResponseWriter, r *http.Request) {
	res, err := s.leases.Release(r.Context(), lease.MaintenanceGroupID, lease.MaintenanceOwner)
	if err != nil {
		writeErr(w, http.StatusInternalServerError, "LEASE_ERROR", "maintenance lease release failed")
		return
	}
	if res == lease.NotOwner {
		writeErr(w, http.StatusConflict, "NOT_OWNER", "maintenance lease held by another owner")
		return
	}
	logger := log.WithComponentFromContext(r.Context(), "api")
	logger.Info().Msg("production resumed")
	writeJSON(w, http.StatusOK, map[string]any{"paused": false})
}
