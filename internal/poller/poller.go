// SPDX-License-Identifier: MIT

// Package poller enumerates active feeds on an interval and publishes
// their raw items for intake. Feed parsing itself is behind the Fetcher
// port: the poller only schedules, rate-limits and records poll times.
package poller

import (
	"context"
	"time"

	"github.com/google/uuid"
	"golang.org/x/time/rate"

	"github.com/elroyic/Podcast-Generator-sub001/internal/bus"
	"github.com/elroyic/Podcast-Generator-sub001/internal/log"
	"github.com/elroyic/Podcast-Generator-sub001/internal/model"
	"github.com/elroyic/Podcast-Generator-sub001/internal/store"
)

// Item is one raw entry returned by a Fetcher.
type Item struct {
	Title     string
	URL       string
	Content   string
	Published time.Time
}

// Fetcher retrieves a feed's current items. Implementations parse
// RSS/Atom/JSON upstream formats.
type Fetcher interface {
	Fetch(ctx context.Context, feed model.Feed) ([]Item, error)
}

// FetchFunc adapts a function to the Fetcher interface.
type FetchFunc func(ctx context.Context, feed model.Feed) ([]Item, error)

func (f FetchFunc) Fetch(ctx context.Context, feed model.Feed) ([]Item, error) {
	return f(ctx, feed)
}

// Poller drives the fetch cycle.
type Poller struct {
	st       store.Store
	fetcher  Fetcher
	events   bus.Bus
	interval time.Duration
	limiter  *rate.Limiter
	now      func() time.Time
}

// New builds a poller. perSecond bounds upstream fetches across all feeds.
func New(st store.Store, fetcher Fetcher, events bus.Bus, interval time.Duration, perSecond float64) *Poller {
	return &Poller{
		st:       st,
		fetcher:  fetcher,
		events:   events,
		interval: interval,
		limiter:  rate.NewLimiter(rate.Limit(perSecond), 1),
		now:      time.Now,
	}
}

func (p *Poller) Run(ctx context.Context) {
	t := time.NewTicker(p.interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			p.PollOnce(ctx)
		}
	}
}

// PollOnce fetches every active feed once and returns the number of items
// published.
func (p *Poller) PollOnce(ctx context.Context) int {
	logger := log.WithComponent("poller")
	feeds, err := p.st.ListFeeds(ctx)
	if err != nil {
		logger.Warn().Err(err).Msg("feed enumeration failed")
		return 0
	}

	published := 0
	for _, feed := range feeds {
		if !feed.Active {
			continue
		}
		if err := p.limiter.Wait(ctx); err != nil {
			return published
		}
		items, err := p.fetcher.Fetch(ctx, feed)
		if err != nil {
			logger.Warn().
				Str(log.FieldFeedID, feed.ID).
				Err(err).
				Msg("feed fetch failed")
			continue
		}
		for _, it := range items {
			ev := model.FeedItemEvent{
				FeedID:        feed.ID,
				RawTitle:      it.Title,
				RawURL:        it.URL,
				RawContent:    it.Content,
				RawPublished:  it.Published,
				CorrelationID: uuid.NewString(),
			}
			if err := p.events.Publish(ctx, model.EventFeedItem, ev); err != nil {
				logger.Warn().
					Str(log.FieldFeedID, feed.ID).
					Err(err).
					Msg("item publish failed")
				continue
			}
			published++
		}
		if err := p.st.TouchFeedPolled(ctx, feed.ID, p.now().UTC()); err != nil {
			logger.Warn().
				Str(log.FieldFeedID, feed.ID).
				Err(err).
				Msg("poll timestamp update failed")
		}
	}
	return published
}
