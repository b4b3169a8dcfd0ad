// SPDX-License-Identifier: MIT

// Package bus provides the in-process event transport between the feed
// poller, intake and the episode orchestrator.
package bus

import (
	"context"

	"github.com/elroyic/Podcast-Generator-sub001/internal/model"
)

// Message is an opaque event payload. Subscribers type-assert against the
// event structs in internal/model.
type Message any

// Subscriber is a handle on one topic subscription.
type Subscriber interface {
	// C returns the delivery channel. It is closed by Close.
	C() <-chan Message
	Close() error
}

// Bus is a topic-based pub/sub transport.
//
// Design intent:
//   - Publish blocks until every subscriber accepted the message or the
//     context is done; at-least-once within the process.
//   - Subscribers must drain their channel promptly or accept publish
//     back-pressure.
type Bus interface {
	Publish(ctx context.Context, topic model.EventType, msg Message) error
	Subscribe(ctx context.Context, topic model.EventType) (Subscriber, error)
}
