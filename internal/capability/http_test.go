// SPDX-License-Identifier: MIT

package capability

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReviewRoundTrip(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/review", r.URL.Path)
		var req ReviewRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "a1", req.ArticleID)
		_ = json.NewEncoder(w).Encode(ReviewResult{
			Tags: []string{"tech"}, Summary: "sum", Confidence: 0.82,
		})
	}))
	defer srv.Close()

	r := NewHTTPReviewer("light", srv.URL, 5*time.Second)
	res, err := r.Review(context.Background(), ReviewRequest{ArticleID: "a1", Title: "t"})
	require.NoError(t, err)
	assert.Equal(t, []string{"tech"}, res.Tags)
	assert.InDelta(t, 0.82, res.Confidence, 1e-9)
}

func TestTransientStatusRetriedOnce(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		_ = json.NewEncoder(w).Encode(ScriptResult{Script: "Speaker 1: hi", WordCount: 3})
	}))
	defer srv.Close()

	sw := NewHTTPScriptWriter(srv.URL, 5*time.Second)
	res, err := sw.Script(context.Background(), ScriptRequest{GroupID: "g1"})
	require.NoError(t, err)
	assert.Equal(t, int32(2), calls.Load())
	assert.Equal(t, "Speaker 1: hi", res.Script)
}

func TestSemanticStatusNotRetried(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusBadRequest)
	}))
	defer srv.Close()

	e := NewHTTPEditor(srv.URL, 5*time.Second)
	_, err := e.Edit(context.Background(), EditRequest{Script: "x"})
	require.Error(t, err)
	assert.False(t, IsTransient(err))
	assert.Equal(t, int32(1), calls.Load())
}

func TestMalformedResponseIsSemantic(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("{not json"))
	}))
	defer srv.Close()

	m := NewHTTPMetadataWriter(srv.URL, 5*time.Second)
	_, err := m.Metadata(context.Background(), MetadataRequest{Script: "x"})
	require.Error(t, err)
	assert.False(t, IsTransient(err))
}

func TestConnectionFailureIsTransient(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close() // refuse connections

	s := NewHTTPSpeech(srv.URL, time.Second)
	_, err := s.Synthesize(context.Background(), SpeechRequest{EpisodeID: "e1"})
	require.Error(t, err)
	assert.True(t, IsTransient(err))
}

func TestHealthyProbeCached(t *testing.T) {
	var probes atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/healthz", r.URL.Path)
		probes.Add(1)
		_ = json.NewEncoder(w).Encode(map[string]bool{"modelLoaded": true})
	}))
	defer srv.Close()

	c := NewClient("light", srv.URL, time.Second)
	ctx := context.Background()
	assert.True(t, c.Healthy(ctx))
	assert.True(t, c.Healthy(ctx))
	assert.Equal(t, int32(1), probes.Load(), "second probe within TTL hits the cache")
}

func TestUnhealthyProbe(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]bool{"modelLoaded": false})
	}))
	defer srv.Close()

	c := NewClient("heavy", srv.URL, time.Second)
	assert.False(t, c.Healthy(context.Background()))
}
