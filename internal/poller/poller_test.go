// SPDX-License-Identifier: MIT

package poller

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/elroyic/Podcast-Generator-sub001/internal/bus"
	"github.com/elroyic/Podcast-Generator-sub001/internal/model"
	"github.com/elroyic/Podcast-Generator-sub001/internal/store"
)

func TestPollOncePublishesActiveFeedItems(t *testing.T) {
	st := store.NewMemoryStore()
	ctx := context.Background()
	require.NoError(t, st.PutFeed(ctx, model.Feed{ID: "f1", Kind: model.FeedRSS, Active: true}))
	require.NoError(t, st.PutFeed(ctx, model.Feed{ID: "f2", Kind: model.FeedAtom, Active: false}))

	fetcher := FetchFunc(func(_ context.Context, feed model.Feed) ([]Item, error) {
		return []Item{
			{Title: feed.ID + "-one", URL: "https://example.com/1"},
			{Title: feed.ID + "-two", URL: "https://example.com/2"},
		}, nil
	})

	b := bus.NewMemoryBus()
	sub, err := b.Subscribe(ctx, model.EventFeedItem)
	require.NoError(t, err)
	defer func() { _ = sub.Close() }()

	p := New(st, fetcher, b, time.Minute, 100)
	n := p.PollOnce(ctx)
	assert.Equal(t, 2, n, "inactive feed skipped")

	ev := (<-sub.C()).(model.FeedItemEvent)
	assert.Equal(t, "f1", ev.FeedID)
	assert.Equal(t, "f1-one", ev.RawTitle)
	assert.NotEmpty(t, ev.CorrelationID)

	f, err := st.GetFeed(ctx, "f1")
	require.NoError(t, err)
	assert.False(t, f.LastPolledAt.IsZero())

	f2, err := st.GetFeed(ctx, "f2")
	require.NoError(t, err)
	assert.True(t, f2.LastPolledAt.IsZero(), "inactive feed not touched")
}

func TestFetchFailureSkipsFeed(t *testing.T) {
	st := store.NewMemoryStore()
	ctx := context.Background()
	require.NoError(t, st.PutFeed(ctx, model.Feed{ID: "f1", Active: true}))
	require.NoError(t, st.PutFeed(ctx, model.Feed{ID: "f2", Active: true}))

	fetcher := FetchFunc(func(_ context.Context, feed model.Feed) ([]Item, error) {
		if feed.ID == "f1" {
			return nil, errors.New("upstream 500")
		}
		return []Item{{Title: "ok"}}, nil
	})

	b := bus.NewMemoryBus()
	sub, err := b.Subscribe(ctx, model.EventFeedItem)
	require.NoError(t, err)
	defer func() { _ = sub.Close() }()

	p := New(st, fetcher, b, time.Minute, 100)
	n := p.PollOnce(ctx)
	assert.Equal(t, 1, n, "failing feed skipped, healthy feed still polled")
}
