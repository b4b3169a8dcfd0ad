// SPDX-License-Identifier: MIT

// Package intake consumes normalized feed items, deduplicates them through
// the fingerprint window and hands fresh articles to the review queue.
package intake

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/elroyic/Podcast-Generator-sub001/internal/bus"
	"github.com/elroyic/Podcast-Generator-sub001/internal/fingerprint"
	"github.com/elroyic/Podcast-Generator-sub001/internal/log"
	"github.com/elroyic/Podcast-Generator-sub001/internal/metrics"
	"github.com/elroyic/Podcast-Generator-sub001/internal/model"
	"github.com/elroyic/Podcast-Generator-sub001/internal/store"
)

// Persistence retry schedule.
const (
	retryBase     = time.Second
	retryFactor   = 2
	retryMax      = 60 * time.Second
	retryAttempts = 5
)

// Enqueuer hands an accepted article to the review backlog. Satisfied by
// queue.Worker.
type Enqueuer interface {
	Enqueue(articleID string) bool
}

// Service is the article intake stage.
type Service struct {
	fps     fingerprint.Store
	st      store.Store
	reviews Enqueuer

	// sleep is swappable for tests.
	sleep func(ctx context.Context, d time.Duration) error
}

func New(fps fingerprint.Store, st store.Store, reviews Enqueuer) *Service {
	return &Service{
		fps:     fps,
		st:      st,
		reviews: reviews,
		sleep:   sleepCtx,
	}
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// Run consumes feed items until ctx is cancelled or the subscription
// closes.
func (s *Service) Run(ctx context.Context, sub bus.Subscriber) {
	logger := log.WithComponent("intake")
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-sub.C():
			if !ok {
				return
			}
			ev, ok := msg.(model.FeedItemEvent)
			if !ok {
				logger.Warn().Msgf("unexpected message type %T on feed topic", msg)
				continue
			}
			itemCtx := ctx
			if ev.CorrelationID != "" {
				itemCtx = log.ContextWithCorrelationID(ctx, ev.CorrelationID)
			}
			s.HandleItem(itemCtx, ev)
		}
	}
}

// HandleItem runs one feed item through fingerprinting, persistence and
// review enqueue. Failures are absorbed: duplicates drop silently and
// terminal persistence failures dead-letter.
func (s *Service) HandleItem(ctx context.Context, ev model.FeedItemEvent) {
	logger := log.WithComponentFromContext(ctx, "intake")
	metrics.IncArticlesIn()

	hash := fingerprint.Compute(ev.RawTitle, ev.RawURL, ev.RawContent)
	res, err := s.fps.SeenOrInsert(ctx, hash)
	if err != nil {
		// Fingerprint-store outage: admit the article rather than lose it.
		// A duplicate admitted is cheaper than an article dropped.
		logger.Warn().Err(err).Msg("fingerprint store unavailable, admitting item")
		res = fingerprint.Fresh
	}
	if res == fingerprint.Duplicate {
		metrics.IncDuplicate()
		logger.Debug().
			Str(log.FieldFeedID, ev.FeedID).
			Str("fingerprint", hash).
			Msg("duplicate dropped")
		return
	}

	article := model.Article{
		ID:          uuid.NewString(),
		FeedID:      ev.FeedID,
		Title:       ev.RawTitle,
		URL:         ev.RawURL,
		Content:     ev.RawContent,
		PublishedAt: ev.RawPublished,
		Fingerprint: hash,
		ReviewTier:  model.TierNone,
	}
	if err := s.persistWithBackoff(ctx, article); err != nil {
		metrics.IncIntakeDeadLetter()
		logger.Error().
			Str(log.FieldFeedID, ev.FeedID).
			Err(err).
			Msg("article dead-lettered after persistence retries")
		return
	}

	if !s.reviews.Enqueue(article.ID) {
		metrics.IncReviewDeadLetter()
		logger.Error().
			Str(log.FieldArticleID, article.ID).
			Msg("review queue full, article left unreviewed")
		return
	}
	logger.Debug().
		Str(log.FieldArticleID, article.ID).
		Str(log.FieldFeedID, ev.FeedID).
		Msg("article accepted")
}

func (s *Service) persistWithBackoff(ctx context.Context, a model.Article) error {
	logger := log.WithComponentFromContext(ctx, "intake")
	delay := retryBase
	var err error
	for attempt := 1; attempt <= retryAttempts; attempt++ {
		err = s.st.InsertArticle(ctx, a)
		if err == nil {
			return nil
		}
		if attempt == retryAttempts {
			break
		}
		logger.Warn().
			Int("attempt", attempt).
			Dur("backoff", delay).
			Err(err).
			Msg("article persist failed, retrying")
		if serr := s.sleep(ctx, delay); serr != nil {
			return serr
		}
		delay *= retryFactor
		if delay > retryMax {
			delay = retryMax
		}
	}
	return err
}
