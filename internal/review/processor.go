// SPDX-License-Identifier: MIT

package review

import (
	"context"
	"errors"
	"fmt"

	"github.com/elroyic/Podcast-Generator-sub001/internal/log"
	"github.com/elroyic/Podcast-Generator-sub001/internal/model"
	"github.com/elroyic/Podcast-Generator-sub001/internal/store"
)

// Assigner routes a reviewed article into its group's building collection.
// Satisfied by collection.Builder.
type Assigner interface {
	Assign(ctx context.Context, a model.Article) error
}

// Processor is the review queue handler: classify, persist the outcome
// exactly once, then hand the article to the collection builder. Its
// Process method matches queue.Handler.
type Processor struct {
	st      store.Store
	cascade *Cascade
	assign  Assigner
}

func NewProcessor(st store.Store, cascade *Cascade, assign Assigner) *Processor {
	return &Processor{st: st, cascade: cascade, assign: assign}
}

// Process reviews one article by ID. A missing row is dropped without
// error: requeueing an article that no longer exists cannot succeed. A
// redelivered article that already carries review fields skips the cascade
// and goes straight to assignment, which is itself idempotent.
func (p *Processor) Process(ctx context.Context, articleID string) error {
	logger := log.WithComponentFromContext(ctx, "review")

	a, err := p.st.GetArticle(ctx, articleID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			logger.Warn().Str(log.FieldArticleID, articleID).Msg("queued article missing, dropping")
			return nil
		}
		return fmt.Errorf("review: load article %s: %w", articleID, err)
	}

	if a.ReviewTier == model.TierNone {
		out, state := p.cascade.Review(ctx, a)
		if err := p.st.SetArticleReview(ctx, a.ID, out); err != nil {
			// A concurrent worker won the write-once race; its outcome stands.
			if !errors.Is(err, store.ErrConflict) {
				return fmt.Errorf("review: persist outcome for %s: %w", a.ID, err)
			}
		}
		logger.Info().
			Str(log.FieldArticleID, a.ID).
			Str(log.FieldTier, string(out.Tier)).
			Str(log.FieldNewState, string(state)).
			Msg("article reviewed")

		a, err = p.st.GetArticle(ctx, a.ID)
		if err != nil {
			return fmt.Errorf("review: reload article %s: %w", articleID, err)
		}
	}

	if err := p.assign.Assign(ctx, a); err != nil {
		return fmt.Errorf("review: assign article %s: %w", a.ID, err)
	}
	return nil
}
