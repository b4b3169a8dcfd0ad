// SPDX-License-Identifier: MIT

package capability

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/elroyic/Podcast-Generator-sub001/internal/log"
	"github.com/elroyic/Podcast-Generator-sub001/internal/metrics"
)

const probeTTL = 10 * time.Second

// Client is the HTTP JSON transport shared by all capability endpoints.
// Transient failures (connection errors, timeouts, upstream 502-504) are
// retried exactly once; semantic failures surface immediately.
type Client struct {
	baseURL string
	name    string
	http    *http.Client

	mu          sync.Mutex
	probedAt    time.Time
	probeResult bool
}

// NewClient builds a capability client. The timeout bounds each individual
// request attempt, not the retry pair.
func NewClient(name, baseURL string, timeout time.Duration) *Client {
	return &Client{
		baseURL: baseURL,
		name:    name,
		http:    &http.Client{Timeout: timeout},
	}
}

// Name returns the capability's configured name (used in health output).
func (c *Client) Name() string { return c.name }

func (c *Client) post(ctx context.Context, path string, in, out any) error {
	body, err := json.Marshal(in)
	if err != nil {
		return &Error{Kind: KindSemantic, Op: c.name + path, Err: err}
	}

	err = c.attempt(ctx, path, body, out)
	if err != nil && IsTransient(err) && ctx.Err() == nil {
		metrics.IncCapabilityRetry(c.name)
		log.FromContext(ctx).Warn().
			Str("capability", c.name).
			Str("path", path).
			Err(err).
			Msg("retrying transient capability failure")
		err = c.attempt(ctx, path, body, out)
	}
	return err
}

func (c *Client) attempt(ctx context.Context, path string, body []byte, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return &Error{Kind: KindSemantic, Op: c.name + path, Err: err}
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return &Error{Kind: classifyTransport(err), Op: c.name + path, Err: err}
	}
	defer func() { _, _ = io.Copy(io.Discard, resp.Body); _ = resp.Body.Close() }()

	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return &Error{Kind: KindSemantic, Op: c.name + path, Err: fmt.Errorf("malformed response: %w", err)}
		}
		return nil
	case resp.StatusCode == http.StatusBadGateway,
		resp.StatusCode == http.StatusServiceUnavailable,
		resp.StatusCode == http.StatusGatewayTimeout:
		return &Error{Kind: KindTransient, Op: c.name + path, Err: fmt.Errorf("upstream status %d", resp.StatusCode)}
	default:
		return &Error{Kind: KindSemantic, Op: c.name + path, Err: fmt.Errorf("status %d", resp.StatusCode)}
	}
}

// classifyTransport maps a transport error to its retry class. Timeouts and
// connection-level failures are transient; everything else is semantic.
func classifyTransport(err error) ErrorKind {
	var ne net.Error
	if errors.As(err, &ne) && ne.Timeout() {
		return KindTransient
	}
	var ue *url.Error
	if errors.As(err, &ue) {
		var opErr *net.OpError
		if errors.As(ue.Err, &opErr) {
			return KindTransient
		}
		if ue.Timeout() {
			return KindTransient
		}
	}
	if errors.Is(err, io.ErrUnexpectedEOF) || errors.Is(err, io.EOF) {
		return KindTransient
	}
	return KindSemantic
}

// Healthy reports whether the capability's model is loaded, via a cached
// GET /healthz probe.
func (c *Client) Healthy(ctx context.Context) bool {
	c.mu.Lock()
	if time.Since(c.probedAt) < probeTTL {
		res := c.probeResult
		c.mu.Unlock()
		return res
	}
	c.mu.Unlock()

	res := c.probe(ctx)

	c.mu.Lock()
	c.probedAt = time.Now()
	c.probeResult = res
	c.mu.Unlock()
	return res
}

func (c *Client) probe(ctx context.Context) bool {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/healthz", nil)
	if err != nil {
		return false
	}
	resp, err := c.http.Do(req)
	if err != nil {
		metrics.IncProbeFailure(c.name)
		return false
	}
	defer func() { _, _ = io.Copy(io.Discard, resp.Body); _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		metrics.IncProbeFailure(c.name)
		return false
	}
	var status struct {
		ModelLoaded bool `json:"modelLoaded"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&status); err != nil {
		// Probe endpoints without a body still count as healthy on 200.
		return true
	}
	return status.ModelLoaded
}

// HTTPReviewer is the HTTP-backed Reviewer.
type HTTPReviewer struct{ *Client }

func NewHTTPReviewer(name, baseURL string, timeout time.Duration) *HTTPReviewer {
	return &HTTPReviewer{NewClient(name, baseURL, timeout)}
}

func (r *HTTPReviewer) Review(ctx context.Context, req ReviewRequest) (ReviewResult, error) {
	var out ReviewResult
	err := r.post(ctx, "/review", req, &out)
	return out, err
}

// HTTPWriter is the HTTP-backed Writer.
type HTTPWriter struct{ *Client }

func NewHTTPWriter(baseURL string, timeout time.Duration) *HTTPWriter {
	return &HTTPWriter{NewClient("writer", baseURL, timeout)}
}

func (w *HTTPWriter) Brief(ctx context.Context, req BriefRequest) (BriefResult, error) {
	var out BriefResult
	err := w.post(ctx, "/brief", req, &out)
	return out, err
}

// HTTPScriptWriter is the HTTP-backed ScriptWriter.
type HTTPScriptWriter struct{ *Client }

func NewHTTPScriptWriter(baseURL string, timeout time.Duration) *HTTPScriptWriter {
	return &HTTPScriptWriter{NewClient("script", baseURL, timeout)}
}

func (w *HTTPScriptWriter) Script(ctx context.Context, req ScriptRequest) (ScriptResult, error) {
	var out ScriptResult
	err := w.post(ctx, "/script", req, &out)
	return out, err
}

// HTTPEditor is the HTTP-backed Editor.
type HTTPEditor struct{ *Client }

func NewHTTPEditor(baseURL string, timeout time.Duration) *HTTPEditor {
	return &HTTPEditor{NewClient("editor", baseURL, timeout)}
}

func (e *HTTPEditor) Edit(ctx context.Context, req EditRequest) (EditResult, error) {
	var out EditResult
	err := e.post(ctx, "/edit", req, &out)
	return out, err
}

// HTTPMetadataWriter is the HTTP-backed MetadataWriter.
type HTTPMetadataWriter struct{ *Client }

func NewHTTPMetadataWriter(baseURL string, timeout time.Duration) *HTTPMetadataWriter {
	return &HTTPMetadataWriter{NewClient("metadata", baseURL, timeout)}
}

func (m *HTTPMetadataWriter) Metadata(ctx context.Context, req MetadataRequest) (MetadataResult, error) {
	var out MetadataResult
	err := m.post(ctx, "/metadata", req, &out)
	return out, err
}

// HTTPSpeech is the HTTP-backed TTS engine.
type HTTPSpeech struct{ *Client }

func NewHTTPSpeech(baseURL string, timeout time.Duration) *HTTPSpeech {
	return &HTTPSpeech{NewClient("tts", baseURL, timeout)}
}

func (s *HTTPSpeech) Synthesize(ctx context.Context, req SpeechRequest) (SpeechResult, error) {
	var out SpeechResult
	err := s.post(ctx, "/synthesize", req, &out)
	return out, err
}

var (
	_ Reviewer       = (*HTTPReviewer)(nil)
	_ Writer         = (*HTTPWriter)(nil)
	_ ScriptWriter   = (*HTTPScriptWriter)(nil)
	_ Editor         = (*HTTPEditor)(nil)
	_ MetadataWriter = (*HTTPMetadataWriter)(nil)
	_ Speech         = (*HTTPSpeech)(nil)
)
