// SPDX-License-Identifier: MIT

package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/elroyic/Podcast-Generator-sub001/internal/bus"
	"github.com/elroyic/Podcast-Generator-sub001/internal/cadence"
	"github.com/elroyic/Podcast-Generator-sub001/internal/capability"
	"github.com/elroyic/Podcast-Generator-sub001/internal/health"
	"github.com/elroyic/Podcast-Generator-sub001/internal/lease"
	"github.com/elroyic/Podcast-Generator-sub001/internal/model"
	"github.com/elroyic/Podcast-Generator-sub001/internal/queue"
	"github.com/elroyic/Podcast-Generator-sub001/internal/review"
	"github.com/elroyic/Podcast-Generator-sub001/internal/store"
)

type apiFixture struct {
	st      *store.MemoryStore
	leases  *lease.MemoryManager
	cascade *review.Cascade
	reviews *queue.Worker
	cad     *cadence.Controller
	events  *bus.MemoryBus
	srv     *httptest.Server
}

func newAPIFixture(t *testing.T) *apiFixture {
	t.Helper()
	st := store.NewMemoryStore()
	leases := lease.NewMemoryManager()
	cascade := review.NewCascade(
		capability.FixedReviewer(capability.ReviewResult{Tags: []string{"news"}, Confidence: 0.9}),
		capability.FixedReviewer(capability.ReviewResult{Tags: []string{"news"}, Confidence: 0.9}),
		review.Thresholds{Light: 0.75, Heavy: 0.5},
	)
	reviews := queue.New(16, 1, 5*time.Second, leases, func(context.Context, string) error { return nil })
	events := bus.NewMemoryBus()
	cad := cadence.NewController(st, leases, events, 30*time.Second)
	hm := health.NewManager("test")

	s := NewServer(st, leases, cascade, reviews, cad, events, hm, 2*time.Hour)
	srv := httptest.NewServer(s.Router())
	t.Cleanup(srv.Close)
	return &apiFixture{st: st, leases: leases, cascade: cascade, reviews: reviews, cad: cad, events: events, srv: srv}
}

func (f *apiFixture) do(t *testing.T, method, path, body string) *http.Response {
	t.Helper()
	req, err := http.NewRequest(method, f.srv.URL+path, strings.NewReader(body))
	require.NoError(t, err)
	resp, err := f.srv.Client().Do(req)
	require.NoError(t, err)
	return resp
}

func decodeJSON[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	defer func() { _ = resp.Body.Close() }()
	var v T
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&v))
	return v
}

func seedGroup(t *testing.T, st store.Store, g model.Group) {
	t.Helper()
	require.NoError(t, st.PutGroup(context.Background(), g))
}

func TestGenerateEpisodeUnknownGroup(t *testing.T) {
	f := newAPIFixture(t)
	resp := f.do(t, http.MethodPost, "/api/generate-episode", `{"groupId":"nope"}`)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	body := decodeJSON[errorBody](t, resp)
	assert.Equal(t, "GROUP_NOT_FOUND", body.Code)
}

func TestGenerateEpisodeAccepted(t *testing.T) {
	f := newAPIFixture(t)
	ctx := context.Background()
	seedGroup(t, f.st, model.Group{ID: "g1", MinArticles: 1, CadenceBucket: model.CadenceManual})

	sub, err := f.events.Subscribe(ctx, model.EventGenerateEpisode)
	require.NoError(t, err)
	defer func() { _ = sub.Close() }()

	resp := f.do(t, http.MethodPost, "/api/generate-episode", `{"groupId":"g1"}`)
	assert.Equal(t, http.StatusAccepted, resp.StatusCode)

	body := decodeJSON[generateResponse](t, resp)
	assert.NotEmpty(t, body.EpisodeID)
	assert.Equal(t, string(model.EpisodeQueued), body.Status)

	ep, err := f.st.GetEpisode(ctx, body.EpisodeID)
	require.NoError(t, err)
	assert.Equal(t, model.EpisodeQueued, ep.Status)

	ev := (<-sub.C()).(model.GenerateEpisodeEvent)
	assert.Equal(t, "g1", ev.GroupID)
	assert.Equal(t, body.EpisodeID, ev.EpisodeID)
}

func TestGenerateEpisodeLeaseHeld(t *testing.T) {
	f := newAPIFixture(t)
	ctx := context.Background()
	seedGroup(t, f.st, model.Group{ID: "g1", MinArticles: 1, CadenceBucket: model.CadenceManual})
	acquired, err := f.leases.Acquire(ctx, "g1", "other-owner", time.Hour)
	require.NoError(t, err)
	require.True(t, acquired)

	resp := f.do(t, http.MethodPost, "/api/generate-episode", `{"groupId":"g1"}`)
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
	assert.Equal(t, "LEASE_HELD", decodeJSON[errorBody](t, resp).Code)
}

func TestGenerateEpisodeDuplicateTriggerRejected(t *testing.T) {
	f := newAPIFixture(t)
	ctx := context.Background()
	seedGroup(t, f.st, model.Group{ID: "g1", MinArticles: 1, CadenceBucket: model.CadenceManual})

	// Two triggers race before any worker has acquired the lease. The
	// in-flight marker arbitrates: exactly one is accepted.
	resp := f.do(t, http.MethodPost, "/api/generate-episode", `{"groupId":"g1"}`)
	assert.Equal(t, http.StatusAccepted, resp.StatusCode)
	_ = resp.Body.Close()

	resp = f.do(t, http.MethodPost, "/api/generate-episode", `{"groupId":"g1"}`)
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
	assert.Equal(t, "LEASE_HELD", decodeJSON[errorBody](t, resp).Code)

	eps, err := f.st.ListEpisodesByGroup(ctx, "g1")
	require.NoError(t, err)
	assert.Len(t, eps, 1, "only the winning trigger creates an episode row")

	// Once the job terminates the group may be triggered again.
	f.cad.Done("g1")
	resp = f.do(t, http.MethodPost, "/api/generate-episode", `{"groupId":"g1"}`)
	assert.Equal(t, http.StatusAccepted, resp.StatusCode)
	_ = resp.Body.Close()
}

func TestGenerateEpisodeCadenceGate(t *testing.T) {
	f := newAPIFixture(t)
	seedGroup(t, f.st, model.Group{
		ID:            "g1",
		MinArticles:   1,
		CadenceBucket: model.CadenceLow,
		LastEpisodeAt: time.Now().Add(-time.Hour),
	})

	resp := f.do(t, http.MethodPost, "/api/generate-episode", `{"groupId":"g1"}`)
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
	assert.Equal(t, "CADENCE_NOT_ELAPSED", decodeJSON[errorBody](t, resp).Code)

	resp = f.do(t, http.MethodPost, "/api/generate-episode", `{"groupId":"g1","force":true}`)
	assert.Equal(t, http.StatusAccepted, resp.StatusCode, "force bypasses the cadence interval")
}

func TestReviewerConfigRoundTrip(t *testing.T) {
	f := newAPIFixture(t)

	resp := f.do(t, http.MethodGet, "/api/reviewer/config", "")
	cfg := decodeJSON[reviewerConfig](t, resp)
	assert.InDelta(t, 0.75, cfg.LightThreshold, 1e-9)
	assert.InDelta(t, 0.5, cfg.HeavyThreshold, 1e-9)
	assert.InDelta(t, 5.0, cfg.PauseBackoffSeconds, 1e-9)

	resp = f.do(t, http.MethodPut, "/api/reviewer/config",
		`{"lightThreshold":0.8,"heavyThreshold":0.6,"pauseBackoffSeconds":10}`)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	_ = resp.Body.Close()

	th := f.cascade.Thresholds()
	assert.InDelta(t, 0.8, th.Light, 1e-9)
	assert.InDelta(t, 0.6, th.Heavy, 1e-9)
	assert.Equal(t, 10*time.Second, f.reviews.Backoff())
}

func TestReviewerConfigRejectsOutOfRange(t *testing.T) {
	f := newAPIFixture(t)
	resp := f.do(t, http.MethodPut, "/api/reviewer/config",
		`{"lightThreshold":1.5,"heavyThreshold":0.5,"pauseBackoffSeconds":5}`)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "INVALID_THRESHOLD", decodeJSON[errorBody](t, resp).Code)
}

func TestPauseResume(t *testing.T) {
	f := newAPIFixture(t)
	ctx := context.Background()

	resp := f.do(t, http.MethodPost, "/api/production/pause", "")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	_ = resp.Body.Close()

	active, err := f.leases.AnyActive(ctx)
	require.NoError(t, err)
	assert.True(t, active, "maintenance lease trips the production pause")

	resp = f.do(t, http.MethodPost, "/api/production/resume", "")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	_ = resp.Body.Close()

	active, err = f.leases.AnyActive(ctx)
	require.NoError(t, err)
	assert.False(t, active)

	// Resuming twice is a no-op.
	resp = f.do(t, http.MethodPost, "/api/production/resume", "")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	_ = resp.Body.Close()
}

func TestHealthEndpoints(t *testing.T) {
	f := newAPIFixture(t)

	resp := f.do(t, http.MethodGet, "/healthz", "")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	_ = resp.Body.Close()

	resp = f.do(t, http.MethodGet, "/readyz", "")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	_ = resp.Body.Close()

	resp = f.do(t, http.MethodGet, "/metrics", "")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	_ = resp.Body.Close()
}
