// SPDX-License-Identifier: MIT

package bus

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/elroyic/Podcast-Generator-sub001/internal/log"
	"github.com/elroyic/Podcast-Generator-sub001/internal/metrics"
	"github.com/elroyic/Podcast-Generator-sub001/internal/model"
)

// subscriberBuffer is the per-subscription channel capacity. A publisher
// blocks once a subscriber falls this far behind.
const subscriberBuffer = 64

const dropLogEvery = 100

var dropCount atomic.Uint64

// MemoryBus is the single-node Bus: per-topic subscriber lists with
// blocking fan-out. Delivery is at-least-once while the publish context
// remains active; nothing is durable across restarts.
type MemoryBus struct {
	mu     sync.RWMutex
	topics map[model.EventType][]chan Message
}

func NewMemoryBus() *MemoryBus {
	return &MemoryBus{topics: make(map[model.EventType][]chan Message)}
}

func dropReason(err error) string {
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return "timeout"
	case errors.Is(err, context.Canceled):
		return "canceled"
	default:
		return "context_done"
	}
}

func (b *MemoryBus) Publish(ctx context.Context, topic model.EventType, msg Message) error {
	if ctx == nil {
		return fmt.Errorf("publish context is nil")
	}
	b.mu.RLock()
	chs := append([]chan Message(nil), b.topics[topic]...)
	b.mu.RUnlock()
	for _, ch := range chs {
		select {
		case ch <- msg:
		case <-ctx.Done():
			reason := dropReason(ctx.Err())
			metrics.IncBusDrop(string(topic), reason)
			count := dropCount.Add(1)
			if count%dropLogEvery == 0 {
				logger := log.L()
				logger.Warn().
					Str("topic", string(topic)).
					Str("reason", reason).
					Uint64("dropped", count).
					Msg("publish abandoned, subscriber too slow")
			}
			return fmt.Errorf("publish topic %q: %w", string(topic), ctx.Err())
		}
	}
	return nil
}

func (b *MemoryBus) Subscribe(ctx context.Context, topic model.EventType) (Subscriber, error) {
	ch := make(chan Message, subscriberBuffer)

	b.mu.Lock()
	b.topics[topic] = append(b.topics[topic], ch)
	b.mu.Unlock()

	return &subscription{bus: b, topic: topic, ch: ch}, nil
}

type subscription struct {
	bus   *MemoryBus
	topic model.EventType
	ch    chan Message
}

func (s *subscription) C() <-chan Message {
	return s.ch
}

func (s *subscription) Close() error {
	s.bus.mu.Lock()
	defer s.bus.mu.Unlock()

	lst := s.bus.topics[s.topic]
	remaining := lst[:0]
	for _, c := range lst {
		if c != s.ch {
			remaining = append(remaining, c)
		}
	}
	if len(remaining) == 0 {
		delete(s.bus.topics, s.topic)
	} else {
		s.bus.topics[s.topic] = remaining
	}
	close(s.ch) // Signal subscriber to stop
	return nil
}

var _ Bus = (*MemoryBus)(nil)
