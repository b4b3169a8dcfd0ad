// SPDX-License-Identifier: MIT

package review

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/elroyic/Podcast-Generator-sub001/internal/capability"
	"github.com/elroyic/Podcast-Generator-sub001/internal/model"
	"github.com/elroyic/Podcast-Generator-sub001/internal/store"
)

type recordingAssigner struct {
	articles []model.Article
	err      error
}

func (r *recordingAssigner) Assign(_ context.Context, a model.Article) error {
	if r.err != nil {
		return r.err
	}
	r.articles = append(r.articles, a)
	return nil
}

func TestProcessorReviewsAndAssigns(t *testing.T) {
	ctx := context.Background()
	st := store.NewMemoryStore()
	require.NoError(t, st.InsertArticle(ctx, model.Article{
		ID: "a1", FeedID: "f1", Title: "t", ReviewTier: model.TierNone,
	}))

	cascade := NewCascade(
		capability.FixedReviewer(capability.ReviewResult{Tags: []string{"tech"}, Summary: "s", Confidence: 0.9}),
		capability.FailingReviewer(errors.New("unused")),
		Thresholds{Light: 0.75, Heavy: 0.5},
	)
	assigner := &recordingAssigner{}
	p := NewProcessor(st, cascade, assigner)

	require.NoError(t, p.Process(ctx, "a1"))

	a, err := st.GetArticle(ctx, "a1")
	require.NoError(t, err)
	assert.Equal(t, model.TierLight, a.ReviewTier)
	assert.Equal(t, []string{"tech"}, a.Tags)
	assert.False(t, a.ProcessedAt.IsZero())

	require.Len(t, assigner.articles, 1)
	assert.Equal(t, model.TierLight, assigner.articles[0].ReviewTier, "assigner sees the persisted review")
}

func TestProcessorMissingArticleDropped(t *testing.T) {
	st := store.NewMemoryStore()
	cascade := NewCascade(
		capability.FailingReviewer(errors.New("should not be called")),
		capability.FailingReviewer(errors.New("should not be called")),
		Thresholds{Light: 0.75, Heavy: 0.5},
	)
	assigner := &recordingAssigner{}
	p := NewProcessor(st, cascade, assigner)

	assert.NoError(t, p.Process(context.Background(), "ghost"), "missing rows are dropped, not requeued")
	assert.Empty(t, assigner.articles)
}

func TestProcessorRedeliverySkipsCascade(t *testing.T) {
	ctx := context.Background()
	st := store.NewMemoryStore()
	require.NoError(t, st.InsertArticle(ctx, model.Article{ID: "a1", FeedID: "f1"}))
	require.NoError(t, st.SetArticleReview(ctx, "a1", store.ReviewOutcome{
		Tier: model.TierHeavy, Tags: []string{"news"}, Confidence: 0.6,
	}))

	calls := 0
	cascade := NewCascade(
		&capability.StubReviewer{ReviewFn: func(context.Context, capability.ReviewRequest) (capability.ReviewResult, error) {
			calls++
			return capability.ReviewResult{Confidence: 0.9}, nil
		}},
		capability.FailingReviewer(errors.New("unused")),
		Thresholds{Light: 0.75, Heavy: 0.5},
	)
	assigner := &recordingAssigner{}
	p := NewProcessor(st, cascade, assigner)

	require.NoError(t, p.Process(ctx, "a1"))
	assert.Zero(t, calls, "already-reviewed article goes straight to assignment")
	assert.Len(t, assigner.articles, 1)
}

func TestProcessorAssignFailureRequeues(t *testing.T) {
	ctx := context.Background()
	st := store.NewMemoryStore()
	require.NoError(t, st.InsertArticle(ctx, model.Article{ID: "a1", FeedID: "f1"}))

	cascade := NewCascade(
		capability.FixedReviewer(capability.ReviewResult{Confidence: 0.9}),
		capability.FailingReviewer(errors.New("unused")),
		Thresholds{Light: 0.75, Heavy: 0.5},
	)
	assigner := &recordingAssigner{err: errors.New("store down")}
	p := NewProcessor(st, cascade, assigner)

	err := p.Process(ctx, "a1")
	require.Error(t, err, "assignment failures bubble up so the queue retries")

	// The review itself is already persisted; the retry must not re-review.
	a, getErr := st.GetArticle(ctx, "a1")
	require.NoError(t, getErr)
	assert.Equal(t, model.TierLight, a.ReviewTier)
}
