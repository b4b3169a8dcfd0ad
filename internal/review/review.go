// SPDX-License-Identifier: MIT

// Package review implements the two-tier classification cascade: every
// article goes through the cheap Light reviewer first and escalates to
// Heavy only when confidence falls below the light threshold.
package review

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/elroyic/Podcast-Generator-sub001/internal/capability"
	"github.com/elroyic/Podcast-Generator-sub001/internal/log"
	"github.com/elroyic/Podcast-Generator-sub001/internal/metrics"
	"github.com/elroyic/Podcast-Generator-sub001/internal/model"
	"github.com/elroyic/Podcast-Generator-sub001/internal/store"
)

// FallbackTags are persisted when both reviewers fail or the Heavy result
// stays under its threshold.
var FallbackTags = []string{"news", "general"}

// Thresholds are the live-configurable acceptance cutoffs. Both bounds are
// inclusive.
type Thresholds struct {
	Light float64 `json:"lightThreshold"`
	Heavy float64 `json:"heavyThreshold"`
}

// Cascade routes articles through Light and then, on low confidence,
// Heavy. It never returns an error: terminal reviewer failures produce a
// fallback outcome instead, so the article row is always written exactly
// once.
type Cascade struct {
	light capability.Reviewer
	heavy capability.Reviewer
	th    atomic.Pointer[Thresholds]
}

func NewCascade(light, heavy capability.Reviewer, th Thresholds) *Cascade {
	c := &Cascade{light: light, heavy: heavy}
	c.th.Store(&th)
	return c
}

// SetThresholds swaps the cutoffs; the change applies to the next article.
func (c *Cascade) SetThresholds(th Thresholds) { c.th.Store(&th) }

func (c *Cascade) Thresholds() Thresholds { return *c.th.Load() }

// Review classifies one article and returns the outcome to persist along
// with the terminal review state.
func (c *Cascade) Review(ctx context.Context, a model.Article) (store.ReviewOutcome, model.ReviewState) {
	th := c.Thresholds()
	logger := log.WithComponentFromContext(ctx, "review")

	metrics.IncTransition(string(model.ReviewNone), string(model.ReviewLightPending))
	lightStart := time.Now()
	lightRes, lightErr := c.light.Review(ctx, capability.ReviewRequest{
		ArticleID: a.ID, Title: a.Title, Content: a.Content,
	})
	if lightErr == nil {
		metrics.ObserveReview(string(model.TierLight), lightStart)
		if lightRes.Confidence >= th.Light {
			metrics.IncTransition(string(model.ReviewLightPending), string(model.ReviewAcceptedLight))
			metrics.IncReview(string(model.TierLight))
			return store.ReviewOutcome{
				Tier:       model.TierLight,
				Tags:       lightRes.Tags,
				Summary:    lightRes.Summary,
				Confidence: lightRes.Confidence,
			}, model.ReviewAcceptedLight
		}
	} else {
		logger.Warn().
			Str(log.FieldArticleID, a.ID).
			Err(lightErr).
			Msg("light reviewer failed, escalating")
	}

	metrics.IncTransition(string(model.ReviewLightPending), string(model.ReviewHeavyPending))
	heavyStart := time.Now()
	heavyRes, heavyErr := c.heavy.Review(ctx, capability.ReviewRequest{
		ArticleID: a.ID, Title: a.Title, Content: a.Content,
	})
	if heavyErr != nil {
		if lightErr != nil {
			// Both reviewers down: persist the fallback so the article is
			// not re-dispatched forever.
			logger.Error().
				Str(log.FieldArticleID, a.ID).
				Err(heavyErr).
				Msg("both reviewers failed, persisting fallback")
			metrics.IncTransition(string(model.ReviewHeavyPending), string(model.ReviewFailedFallback))
			metrics.IncReview("fallback")
			return store.ReviewOutcome{
				Tier:       model.TierHeavy,
				Tags:       FallbackTags,
				Confidence: 0,
			}, model.ReviewFailedFallback
		}
		// Heavy down but Light answered below threshold: keep Light's
		// result rather than inventing one.
		logger.Warn().
			Str(log.FieldArticleID, a.ID).
			Err(heavyErr).
			Msg("heavy reviewer failed, keeping light result")
		metrics.IncTransition(string(model.ReviewHeavyPending), string(model.ReviewFailedFallback))
		metrics.IncReview("fallback")
		return store.ReviewOutcome{
			Tier:       model.TierLight,
			Tags:       lightRes.Tags,
			Summary:    lightRes.Summary,
			Confidence: lightRes.Confidence,
		}, model.ReviewFailedFallback
	}
	metrics.ObserveReview(string(model.TierHeavy), heavyStart)

	// Equal confidence prefers the cheaper reviewer's result.
	if lightErr == nil && heavyRes.Confidence == lightRes.Confidence && heavyRes.Confidence >= th.Heavy {
		metrics.IncTransition(string(model.ReviewHeavyPending), string(model.ReviewAcceptedLight))
		metrics.IncReview(string(model.TierLight))
		return store.ReviewOutcome{
			Tier:       model.TierLight,
			Tags:       lightRes.Tags,
			Summary:    lightRes.Summary,
			Confidence: lightRes.Confidence,
		}, model.ReviewAcceptedLight
	}

	if heavyRes.Confidence >= th.Heavy {
		metrics.IncTransition(string(model.ReviewHeavyPending), string(model.ReviewAcceptedHeavy))
		metrics.IncReview(string(model.TierHeavy))
		return store.ReviewOutcome{
			Tier:       model.TierHeavy,
			Tags:       heavyRes.Tags,
			Summary:    heavyRes.Summary,
			Confidence: heavyRes.Confidence,
		}, model.ReviewAcceptedHeavy
	}

	// Below both thresholds: accept the Heavy result with fallback tags.
	metrics.IncTransition(string(model.ReviewHeavyPending), string(model.ReviewAcceptedHeavy))
	metrics.IncReview(string(model.TierHeavy))
	return store.ReviewOutcome{
		Tier:       model.TierHeavy,
		Tags:       FallbackTags,
		Summary:    heavyRes.Summary,
		Confidence: heavyRes.Confidence,
	}, model.ReviewAcceptedHeavy
}
