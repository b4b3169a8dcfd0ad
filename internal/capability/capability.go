// SPDX-License-Identifier: MIT

// Package capability defines the contracts of the external generation
// services (reviewers, writer, script writer, editor, metadata, TTS) and an
// HTTP JSON client for each. The orchestrator treats these as opaque
// request/response capabilities.
package capability

import (
	"context"
	"errors"
	"fmt"
)

// ReviewRequest carries the article fields a reviewer classifies.
type ReviewRequest struct {
	ArticleID string `json:"articleId"`
	Title     string `json:"title"`
	Content   string `json:"content"`
}

// ReviewResult is the reviewer's classification of one article.
type ReviewResult struct {
	Tags       []string `json:"tags"`
	Summary    string   `json:"summary"`
	Confidence float64  `json:"confidence"`
}

// Reviewer classifies articles. Light and Heavy are two instances of this
// contract differing in latency and accuracy.
type Reviewer interface {
	Review(ctx context.Context, req ReviewRequest) (ReviewResult, error)
}

// BriefRequest asks the writer for one presenter's in-character brief.
type BriefRequest struct {
	PresenterID string `json:"presenterId"`
	Snapshot    any    `json:"collectionSnapshot"`
}

type BriefResult struct {
	Text string `json:"text"`
}

// Writer produces per-presenter briefs from a collection snapshot.
type Writer interface {
	Brief(ctx context.Context, req BriefRequest) (BriefResult, error)
}

// ScriptRequest combines briefs and the snapshot into a full script.
type ScriptRequest struct {
	GroupID           string   `json:"groupId"`
	Briefs            []string `json:"briefs"`
	Snapshot          any      `json:"snapshot"`
	TargetDurationMin int      `json:"targetDurationMin"`
}

// ScriptResult carries the script with "Speaker N:" turn markers.
type ScriptResult struct {
	Script    string `json:"script"`
	WordCount int    `json:"wordCount"`
}

type ScriptWriter interface {
	Script(ctx context.Context, req ScriptRequest) (ScriptResult, error)
}

type EditRequest struct {
	Script string `json:"script"`
}

type EditResult struct {
	EditedScript string   `json:"editedScript"`
	Notes        []string `json:"notes"`
}

type Editor interface {
	Edit(ctx context.Context, req EditRequest) (EditResult, error)
}

type MetadataRequest struct {
	Script  string `json:"script"`
	GroupID string `json:"groupId"`
}

type MetadataResult struct {
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Tags        []string `json:"tags"`
	Keywords    []string `json:"keywords"`
}

type MetadataWriter interface {
	Metadata(ctx context.Context, req MetadataRequest) (MetadataResult, error)
}

// SpeechRequest asks the TTS engine to synthesize the final script. The
// script carries "Speaker N:" prefixes; VoiceAssignments maps each distinct
// speaker to a voice.
type SpeechRequest struct {
	EpisodeID        string            `json:"episodeId"`
	Script           string            `json:"script"`
	VoiceAssignments map[string]string `json:"voiceAssignments"`
}

type SpeechResult struct {
	AudioURL        string `json:"audioUrl"`
	DurationSeconds int    `json:"durationSeconds"`
	ByteSize        int64  `json:"byteSize"`
	Format          string `json:"format"` // mp3 or wav
}

type Speech interface {
	Synthesize(ctx context.Context, req SpeechRequest) (SpeechResult, error)
}

// ErrorKind classifies a capability failure for retry and metrics
// decisions. Transient errors may be retried at the call site; semantic
// errors must surface unchanged.
type ErrorKind int

const (
	KindTransient ErrorKind = iota
	KindSemantic
)

// Error wraps a capability failure with its classification.
type Error struct {
	Kind ErrorKind
	Op   string
	Err  error
}

func (e *Error) Error() string {
	return fmt.Sprintf("capability %s: %v", e.Op, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// IsTransient reports whether err is a retryable capability failure.
func IsTransient(err error) bool {
	var ce *Error
	return errors.As(err, &ce) && ce.Kind == KindTransient
}
