// SPDX-License-Identifier: MIT

// Package api exposes the orchestrator's admin HTTP surface: manual
// generation, cadence status, live reviewer config, the maintenance pause
// and the Prometheus scrape endpoint.
package api

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/httprate"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/elroyic/Podcast-Generator-sub001/internal/bus"
	"github.com/elroyic/Podcast-Generator-sub001/internal/cadence"
	"github.com/elroyic/Podcast-Generator-sub001/internal/health"
	"github.com/elroyic/Podcast-Generator-sub001/internal/lease"
	"github.com/elroyic/Podcast-Generator-sub001/internal/log"
	"github.com/elroyic/Podcast-Generator-sub001/internal/queue"
	"github.com/elroyic/Podcast-Generator-sub001/internal/review"
	"github.com/elroyic/Podcast-Generator-sub001/internal/store"
)

// Server wires the admin handlers to the orchestrator components.
type Server struct {
	st       store.Store
	leases   lease.Manager
	cascade  *review.Cascade
	reviews  *queue.Worker
	cadence  *cadence.Controller
	events   bus.Bus
	health   *health.Manager
	leaseTTL time.Duration
}

func NewServer(st store.Store, leases lease.Manager, cascade *review.Cascade, reviews *queue.Worker, cad *cadence.Controller, events bus.Bus, hm *health.Manager, leaseTTL time.Duration) *Server {
	return &Server{
		st:       st,
		leases:   leases,
		cascade:  cascade,
		reviews:  reviews,
		cadence:  cad,
		events:   events,
		health:   hm,
		leaseTTL: leaseTTL,
	}
}

// Router builds the chi mux with request IDs, logging and per-IP rate
// limiting on the admin routes.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(requestID)
	r.Use(requestLogger)
	r.Use(chimw.Recoverer)

	r.Get("/healthz", s.health.ServeHealth)
	r.Get("/readyz", s.health.ServeReady)
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	r.Route("/api", func(r chi.Router) {
		r.Use(httprate.LimitByIP(60, time.Minute))
		r.Post("/generate-episode", s.handleGenerateEpisode)
		r.Get("/cadence/status", s.handleCadenceStatus)
		r.Get("/reviewer/config", s.handleGetReviewerConfig)
		r.Put("/reviewer/config", s.handlePutReviewerConfig)
		r.Post("/production/pause", s.handlePause)
		r.Post("/production/resume", s.handleResume)
	})
	return r
}

// errorBody is the admin error envelope. No internal error crosses this
// boundary unmapped.
type errorBody struct {
	Status  int    `json:"status"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func writeErr(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, errorBody{Status: status, Code: code, Message: message})
}

func requestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get("X-Request-Id")
		if id == "" {
			id = uuid.NewString()
		}
		w.Header().Set("X-Request-Id", id)
		next.ServeHTTP(w, r.WithContext(log.ContextWithRequestID(r.Context(), id)))
	})
}

func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := chimw.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		logger := log.WithComponentFromContext(r.Context(), "api")
		logger.Debug().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", ww.Status()).
			Dur("elapsed", time.Since(start)).
			Msg("request")
	})
}
