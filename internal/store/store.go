// SPDX-License-Identifier: MIT

// Package store provides the relational persistence surface for feeds,
// articles, groups, collections, episodes and audio files, plus the
// snapshot blob store used by the episode orchestrator.
package store

import (
	"context"
	"errors"
	"time"

	"github.com/elroyic/Podcast-Generator-sub001/internal/model"
)

var (
	// ErrNotFound is returned when the requested row does not exist.
	ErrNotFound = errors.New("store: not found")
	// ErrConflict is returned when a write-once field is written twice or a
	// uniqueness rule would be violated.
	ErrConflict = errors.New("store: conflict")
)

// ReviewOutcome is the write-once result of the review cascade for one
// article.
type ReviewOutcome struct {
	Tier       model.ReviewTier
	Tags       []string
	Summary    string
	Confidence float64
}

// Store is the relational persistence interface. Implementations must be
// safe for concurrent use.
type Store interface {
	// Feeds.
	PutFeed(ctx context.Context, f model.Feed) error
	GetFeed(ctx context.Context, id string) (model.Feed, error)
	ListFeeds(ctx context.Context) ([]model.Feed, error)
	TouchFeedPolled(ctx context.Context, id string, at time.Time) error

	// Articles. Review fields and CollectionID are write-once: a second
	// write returns ErrConflict.
	InsertArticle(ctx context.Context, a model.Article) error
	GetArticle(ctx context.Context, id string) (model.Article, error)
	SetArticleReview(ctx context.Context, id string, out ReviewOutcome) error
	AssignArticleCollection(ctx context.Context, articleID, collectionID string) error
	ListArticlesByCollection(ctx context.Context, collectionID string) ([]model.Article, error)

	// Groups.
	PutGroup(ctx context.Context, g model.Group) error
	GetGroup(ctx context.Context, id string) (model.Group, error)
	ListGroups(ctx context.Context) ([]model.Group, error)
	SetGroupLastEpisode(ctx context.Context, id string, at time.Time) error

	// Collections.
	InsertCollection(ctx context.Context, c model.Collection) error
	GetCollection(ctx context.Context, id string) (model.Collection, error)
	UpdateCollection(ctx context.Context, id string, fn func(*model.Collection) error) (model.Collection, error)
	FindCollection(ctx context.Context, groupID string, status model.CollectionStatus) (model.Collection, error)
	ListCollectionsByStatus(ctx context.Context, status model.CollectionStatus) ([]model.Collection, error)
	CountCollectionsByStatus(ctx context.Context, status model.CollectionStatus) (int, error)

	// Episodes.
	InsertEpisode(ctx context.Context, e model.Episode) error
	GetEpisode(ctx context.Context, id string) (model.Episode, error)
	UpdateEpisode(ctx context.Context, id string, fn func(*model.Episode) error) (model.Episode, error)
	ListEpisodesByStatus(ctx context.Context, status model.EpisodeStatus) ([]model.Episode, error)
	ListEpisodesByGroup(ctx context.Context, groupID string) ([]model.Episode, error)

	// Audio files. One per episode; a second insert returns ErrConflict.
	InsertAudioFile(ctx context.Context, af model.AudioFile) error
	GetAudioFileByEpisode(ctx context.Context, episodeID string) (model.AudioFile, error)

	Close() error
}

// SnapshotStore holds immutable collection snapshots keyed by snapshot ID.
type SnapshotStore interface {
	PutSnapshot(ctx context.Context, snap model.Snapshot) error
	GetSnapshot(ctx context.Context, id string) (model.Snapshot, error)
	DeleteSnapshot(ctx context.Context, id string) error
	Close() error
}
