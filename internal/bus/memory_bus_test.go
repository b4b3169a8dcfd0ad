// SPDX-License-Identifier: MIT

package bus

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/elroyic/Podcast-Generator-sub001/internal/model"
)

func TestMemoryBusFanOut(t *testing.T) {
	ctx := context.Background()
	b := NewMemoryBus()

	s1, err := b.Subscribe(ctx, model.EventFeedItem)
	require.NoError(t, err)
	s2, err := b.Subscribe(ctx, model.EventFeedItem)
	require.NoError(t, err)
	other, err := b.Subscribe(ctx, model.EventGenerateEpisode)
	require.NoError(t, err)
	defer func() { _ = s1.Close(); _ = s2.Close(); _ = other.Close() }()

	ev := model.FeedItemEvent{FeedID: "f1", RawTitle: "t"}
	require.NoError(t, b.Publish(ctx, model.EventFeedItem, ev))

	assert.Equal(t, ev, (<-s1.C()).(model.FeedItemEvent))
	assert.Equal(t, ev, (<-s2.C()).(model.FeedItemEvent))
	assert.Empty(t, other.C(), "other topics see nothing")
}

func TestMemoryBusPublishTimesOutOnSlowSubscriber(t *testing.T) {
	ctx := context.Background()
	b := NewMemoryBus()

	sub, err := b.Subscribe(ctx, model.EventFeedItem)
	require.NoError(t, err)
	defer func() { _ = sub.Close() }()

	// Fill the subscriber buffer without draining it.
	for i := 0; i < subscriberBuffer; i++ {
		require.NoError(t, b.Publish(ctx, model.EventFeedItem, model.FeedItemEvent{}))
	}

	pubCtx, cancel := context.WithTimeout(ctx, 20*time.Millisecond)
	defer cancel()
	err = b.Publish(pubCtx, model.EventFeedItem, model.FeedItemEvent{})
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestMemoryBusCloseEndsDelivery(t *testing.T) {
	ctx := context.Background()
	b := NewMemoryBus()

	sub, err := b.Subscribe(ctx, model.EventGenerateEpisode)
	require.NoError(t, err)
	require.NoError(t, sub.Close())

	_, ok := <-sub.C()
	assert.False(t, ok, "closed subscription channel must be closed")

	// Publishing to a topic with no remaining subscribers is a no-op.
	assert.NoError(t, b.Publish(ctx, model.EventGenerateEpisode, model.GenerateEpisodeEvent{GroupID: "g1"}))
}
