// SPDX-License-Identifier: MIT

package capability

import "context"

// StubReviewer implements Reviewer with a function field. Used by tests and
// by the offline daemon mode.
type StubReviewer struct {
	ReviewFn func(ctx context.Context, req ReviewRequest) (ReviewResult, error)
}

func (s *StubReviewer) Review(ctx context.Context, req ReviewRequest) (ReviewResult, error) {
	return s.ReviewFn(ctx, req)
}

// FixedReviewer always returns the same result.
func FixedReviewer(res ReviewResult) *StubReviewer {
	return &StubReviewer{ReviewFn: func(context.Context, ReviewRequest) (ReviewResult, error) {
		return res, nil
	}}
}

// FailingReviewer always returns err.
func FailingReviewer(err error) *StubReviewer {
	return &StubReviewer{ReviewFn: func(context.Context, ReviewRequest) (ReviewResult, error) {
		return ReviewResult{}, err
	}}
}

type StubWriter struct {
	BriefFn func(ctx context.Context, req BriefRequest) (BriefResult, error)
}

func (s *StubWriter) Brief(ctx context.Context, req BriefRequest) (BriefResult, error) {
	return s.BriefFn(ctx, req)
}

type StubScriptWriter struct {
	ScriptFn func(ctx context.Context, req ScriptRequest) (ScriptResult, error)
}

func (s *StubScriptWriter) Script(ctx context.Context, req ScriptRequest) (ScriptResult, error) {
	return s.ScriptFn(ctx, req)
}

type StubEditor struct {
	EditFn func(ctx context.Context, req EditRequest) (EditResult, error)
}

func (s *StubEditor) Edit(ctx context.Context, req EditRequest) (EditResult, error) {
	return s.EditFn(ctx, req)
}

type StubMetadataWriter struct {
	MetadataFn func(ctx context.Context, req MetadataRequest) (MetadataResult, error)
}

func (s *StubMetadataWriter) Metadata(ctx context.Context, req MetadataRequest) (MetadataResult, error) {
	return s.MetadataFn(ctx, req)
}

type StubSpeech struct {
	SynthesizeFn func(ctx context.Context, req SpeechRequest) (SpeechResult, error)
}

func (s *StubSpeech) Synthesize(ctx context.Context, req SpeechRequest) (SpeechResult, error) {
	return s.SynthesizeFn(ctx, req)
}

var (
	_ Reviewer       = (*StubReviewer)(nil)
	_ Writer         = (*StubWriter)(nil)
	_ ScriptWriter   = (*StubScriptWriter)(nil)
	_ Editor         = (*StubEditor)(nil)
	_ MetadataWriter = (*StubMetadataWriter)(nil)
	_ Speech         = (*StubSpeech)(nil)
)
