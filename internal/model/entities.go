// SPDX-License-Identifier: MIT

// Package model defines the entities and events shared by the orchestrator
// components. Entities reference each other by ID only; traversal goes
// through a store lookup, never a back-pointer.
package model

import "time"

// Feed is an upstream article source registered by an operator.
type Feed struct {
	ID           string    `json:"id"`
	SourceURL    string    `json:"sourceUrl"`
	Kind         FeedKind  `json:"kind"`
	Active       bool      `json:"active"`
	LastPolledAt time.Time `json:"lastPolledAt,omitzero"`
}

// Article is a deduplicated, normalized news item. Review fields are written
// exactly once by the review cascade; CollectionID exactly once by the
// collection builder. The row is immutable afterwards.
type Article struct {
	ID           string     `json:"id"`
	FeedID       string     `json:"feedId"`
	Title        string     `json:"title"`
	URL          string     `json:"url"`
	Content      string     `json:"content"`
	PublishedAt  time.Time  `json:"publishedAt,omitzero"`
	Fingerprint  string     `json:"fingerprint"`
	ReviewTier   ReviewTier `json:"reviewTier"`
	Tags         []string   `json:"tags,omitempty"`
	Summary      string     `json:"summary,omitempty"`
	Confidence   float64    `json:"confidence"`
	CollectionID string     `json:"collectionId,omitempty"`
	ProcessedAt  time.Time  `json:"processedAt,omitzero"`
}

// Group owns collections and episodes; configured by an operator.
type Group struct {
	ID            string        `json:"id"`
	Name          string        `json:"name"`
	PresenterIDs  []string      `json:"presenterIds,omitempty"`
	WriterID      string        `json:"writerId,omitempty"`
	FeedIDs       []string      `json:"feedIds,omitempty"`
	TagFilter     []string      `json:"tagFilter,omitempty"` // empty = any article matches
	MinArticles   int           `json:"minArticles"`
	CadenceBucket CadenceBucket `json:"cadenceBucket"`
	LastEpisodeAt time.Time     `json:"lastEpisodeAt,omitzero"`
}

// MatchesFeed reports whether the group subscribes to the given feed.
func (g *Group) MatchesFeed(feedID string) bool {
	for _, id := range g.FeedIDs {
		if id == feedID {
			return true
		}
	}
	return false
}

// MatchesTags reports whether any article tag intersects the group's filter.
// A group without a filter matches every article.
func (g *Group) MatchesTags(tags []string) bool {
	if len(g.TagFilter) == 0 {
		return true
	}
	for _, want := range g.TagFilter {
		for _, have := range tags {
			if want == have {
				return true
			}
		}
	}
	return false
}

// Collection aggregates reviewed articles for one group.
// Invariant: per group, at most one BUILDING and at most one READY.
type Collection struct {
	ID        string           `json:"id"`
	GroupID   string           `json:"groupId"`
	Status    CollectionStatus `json:"status"`
	ItemCount int              `json:"itemCount"`
	CreatedAt time.Time        `json:"createdAt"`
	UpdatedAt time.Time        `json:"updatedAt,omitzero"`
}

// Episode is the output of one generation run.
type Episode struct {
	ID                   string        `json:"id"`
	GroupID              string        `json:"groupId"`
	CollectionSnapshotID string        `json:"collectionSnapshotId,omitempty"`
	Status               EpisodeStatus `json:"status"`
	Script               string        `json:"script,omitempty"`
	Title                string        `json:"title,omitempty"`
	Description          string        `json:"description,omitempty"`
	DurationSeconds      int           `json:"durationSeconds,omitempty"`
	Reason               ReasonCode    `json:"reason,omitempty"`
	ReasonDetail         string        `json:"reasonDetail,omitempty"`
	Degraded             bool          `json:"degraded,omitempty"` // editor pass was skipped
	CorrelationID        string        `json:"correlationId,omitempty"`
	CreatedAt            time.Time     `json:"createdAt"`
	UpdatedAt            time.Time     `json:"updatedAt,omitzero"`
}

// AudioFile is 1:1 with a COMPLETED episode.
type AudioFile struct {
	ID              string    `json:"id"`
	EpisodeID       string    `json:"episodeId"`
	URL             string    `json:"url"`
	DurationSeconds int       `json:"durationSeconds"`
	ByteSize        int64     `json:"byteSize"`
	Format          string    `json:"format"` // mp3 or wav
	CreatedAt       time.Time `json:"createdAt"`
}

// Snapshot is an immutable copy of a collection's article list taken at
// generation start. Stored as a JSON blob keyed by snapshot ID.
type Snapshot struct {
	ID           string    `json:"id"`
	CollectionID string    `json:"collectionId"`
	GroupID      string    `json:"groupId"`
	Articles     []Article `json:"articles"`
	TakenAt      time.Time `json:"takenAt"`
}
