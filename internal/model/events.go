// SPDX-License-Identifier: MIT

package model

import "time"

// EventType names a bus topic.
type EventType string

const (
	EventFeedItem        EventType = "feed.item"
	EventGenerateEpisode EventType = "episode.generate"
)

// FeedItemEvent is the poller -> intake queue message. Fields are raw:
// normalization and fingerprinting happen in intake.
type FeedItemEvent struct {
	FeedID        string    `json:"feedId"`
	RawTitle      string    `json:"rawTitle"`
	RawURL        string    `json:"rawUrl"`
	RawContent    string    `json:"rawContent"`
	RawPublished  time.Time `json:"rawPublished,omitzero"`
	CorrelationID string    `json:"correlationId,omitempty"`
}

// GenerateEpisodeEvent asks the orchestrator to produce one episode for a group.
type GenerateEpisodeEvent struct {
	GroupID       string `json:"groupId"`
	EpisodeID     string `json:"episodeId,omitempty"` // pre-created row for admin-triggered jobs
	Force         bool   `json:"force,omitempty"`
	CorrelationID string `json:"correlationId,omitempty"`
}
