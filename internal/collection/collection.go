// SPDX-License-Identifier: MIT

// Package collection aggregates reviewed articles into group-scoped
// collections and promotes them to READY once the group's minimum is met.
package collection

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/elroyic/Podcast-Generator-sub001/internal/log"
	"github.com/elroyic/Podcast-Generator-sub001/internal/metrics"
	"github.com/elroyic/Podcast-Generator-sub001/internal/model"
	"github.com/elroyic/Podcast-Generator-sub001/internal/store"
)

// Builder routes accepted articles into collections. An article joins at
// most one collection: the first interested group in ID order wins.
type Builder struct {
	st store.Store
}

func NewBuilder(st store.Store) *Builder {
	return &Builder{st: st}
}

// Assign places one reviewed article. A group is interested when the
// article's feed is subscribed and the tags pass the group's filter.
// Articles with no interested group are left unassigned.
func (b *Builder) Assign(ctx context.Context, a model.Article) error {
	groups, err := b.st.ListGroups(ctx)
	if err != nil {
		return fmt.Errorf("collection: list groups: %w", err)
	}

	logger := log.WithComponentFromContext(ctx, "collection")
	for _, g := range groups {
		if !g.MatchesFeed(a.FeedID) || !g.MatchesTags(a.Tags) {
			continue
		}
		coll, err := b.building(ctx, g.ID)
		if err != nil {
			return err
		}
		if err := b.st.AssignArticleCollection(ctx, a.ID, coll.ID); err != nil {
			if errors.Is(err, store.ErrConflict) {
				// Redelivered article that was already assigned.
				return nil
			}
			return fmt.Errorf("collection: assign article %s: %w", a.ID, err)
		}

		updated, err := b.st.UpdateCollection(ctx, coll.ID, func(c *model.Collection) error {
			c.ItemCount++
			return nil
		})
		if err != nil {
			return fmt.Errorf("collection: bump %s: %w", coll.ID, err)
		}
		logger.Debug().
			Str(log.FieldArticleID, a.ID).
			Str(log.FieldCollectionID, coll.ID).
			Str(log.FieldGroupID, g.ID).
			Int("item_count", updated.ItemCount).
			Msg("article assigned")

		if updated.ItemCount >= g.MinArticles {
			b.tryPromote(ctx, g, updated)
		}
		return nil
	}
	logger.Debug().
		Str(log.FieldArticleID, a.ID).
		Msg("no interested group")
	return nil
}

// building returns the group's BUILDING collection, creating it on first
// use. Concurrent creators race through the store's uniqueness check.
func (b *Builder) building(ctx context.Context, groupID string) (model.Collection, error) {
	coll, err := b.st.FindCollection(ctx, groupID, model.CollectionBuilding)
	if err == nil {
		return coll, nil
	}
	if !errors.Is(err, store.ErrNotFound) {
		return model.Collection{}, fmt.Errorf("collection: find building: %w", err)
	}

	coll = model.Collection{
		ID:        uuid.NewString(),
		GroupID:   groupID,
		Status:    model.CollectionBuilding,
		CreatedAt: time.Now().UTC(),
	}
	err = b.st.InsertCollection(ctx, coll)
	if errors.Is(err, store.ErrConflict) {
		// Another worker created it first.
		return b.st.FindCollection(ctx, groupID, model.CollectionBuilding)
	}
	if err != nil {
		return model.Collection{}, fmt.Errorf("collection: create building: %w", err)
	}
	return coll, nil
}

// tryPromote moves a full BUILDING collection to READY. While a prior
// READY exists the collection keeps accumulating; the next Assign after
// that READY is consumed retries the promotion.
func (b *Builder) tryPromote(ctx context.Context, g model.Group, coll model.Collection) {
	logger := log.WithComponentFromContext(ctx, "collection")
	if _, err := b.st.FindCollection(ctx, g.ID, model.CollectionReady); err == nil {
		logger.Debug().
			Str(log.FieldCollectionID, coll.ID).
			Str(log.FieldGroupID, g.ID).
			Msg("ready slot occupied, keeping building")
		return
	}
	_, err := b.st.UpdateCollection(ctx, coll.ID, func(c *model.Collection) error {
		if c.Status != model.CollectionBuilding {
			return store.ErrConflict
		}
		c.Status = model.CollectionReady
		return nil
	})
	if err != nil {
		if errors.Is(err, store.ErrConflict) {
			return
		}
		logger.Warn().
			Str(log.FieldCollectionID, coll.ID).
			Err(err).
			Msg("promotion failed")
		return
	}
	metrics.IncTransition(string(model.CollectionBuilding), string(model.CollectionReady))
	logger.Info().
		Str(log.FieldCollectionID, coll.ID).
		Str(log.FieldGroupID, g.ID).
		Int("item_count", coll.ItemCount).
		Msg("collection ready")
}
