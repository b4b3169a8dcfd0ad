// SPDX-License-Identifier: MIT

package store

import (
	"context"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/elroyic/Podcast-Generator-sub001/internal/model"
)

// MemoryStore is the single-node Store. It is the default backend and the
// one the test suites run against.
type MemoryStore struct {
	mu          sync.RWMutex
	feeds       map[string]model.Feed
	articles    map[string]model.Article
	groups      map[string]model.Group
	collections map[string]model.Collection
	episodes    map[string]model.Episode
	audioFiles  map[string]model.AudioFile // keyed by episode ID
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		feeds:       make(map[string]model.Feed),
		articles:    make(map[string]model.Article),
		groups:      make(map[string]model.Group),
		collections: make(map[string]model.Collection),
		episodes:    make(map[string]model.Episode),
		audioFiles:  make(map[string]model.AudioFile),
	}
}

func (s *MemoryStore) PutFeed(ctx context.Context, f model.Feed) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.feeds[f.ID] = f
	return nil
}

func (s *MemoryStore) GetFeed(ctx context.Context, id string) (model.Feed, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	f, ok := s.feeds[id]
	if !ok {
		return model.Feed{}, ErrNotFound
	}
	return f, nil
}

func (s *MemoryStore) ListFeeds(ctx context.Context) ([]model.Feed, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]model.Feed, 0, len(s.feeds))
	for _, f := range s.feeds {
		out = append(out, f)
	}
	slices.SortFunc(out, func(a, b model.Feed) int { return strings.Compare(a.ID, b.ID) })
	return out, nil
}

func (s *MemoryStore) TouchFeedPolled(ctx context.Context, id string, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	f, ok := s.feeds[id]
	if !ok {
		return ErrNotFound
	}
	f.LastPolledAt = at
	s.feeds[id] = f
	return nil
}

func (s *MemoryStore) InsertArticle(ctx context.Context, a model.Article) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.articles[a.ID]; ok {
		return ErrConflict
	}
	// The zero tier means unreviewed; store it as the explicit NONE so the
	// write-once review guard recognizes the row.
	if a.ReviewTier == "" {
		a.ReviewTier = model.TierNone
	}
	s.articles[a.ID] = a
	return nil
}

func (s *MemoryStore) GetArticle(ctx context.Context, id string) (model.Article, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	a, ok := s.articles[id]
	if !ok {
		return model.Article{}, ErrNotFound
	}
	return a, nil
}

func (s *MemoryStore) SetArticleReview(ctx context.Context, id string, out ReviewOutcome) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.articles[id]
	if !ok {
		return ErrNotFound
	}
	if a.ReviewTier != model.TierNone {
		return ErrConflict
	}
	a.ReviewTier = out.Tier
	a.Tags = slices.Clone(out.Tags)
	a.Summary = out.Summary
	a.Confidence = out.Confidence
	a.ProcessedAt = time.Now().UTC()
	s.articles[id] = a
	return nil
}

func (s *MemoryStore) AssignArticleCollection(ctx context.Context, articleID, collectionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.articles[articleID]
	if !ok {
		return ErrNotFound
	}
	if a.CollectionID != "" {
		return ErrConflict
	}
	a.CollectionID = collectionID
	s.articles[articleID] = a
	return nil
}

func (s *MemoryStore) ListArticlesByCollection(ctx context.Context, collectionID string) ([]model.Article, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []model.Article
	for _, a := range s.articles {
		if a.CollectionID == collectionID {
			out = append(out, a)
		}
	}
	slices.SortFunc(out, func(a, b model.Article) int { return strings.Compare(a.ID, b.ID) })
	return out, nil
}

func (s *MemoryStore) PutGroup(ctx context.Context, g model.Group) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.groups[g.ID] = g
	return nil
}

func (s *MemoryStore) GetGroup(ctx context.Context, id string) (model.Group, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	g, ok := s.groups[id]
	if !ok {
		return model.Group{}, ErrNotFound
	}
	return g, nil
}

func (s *MemoryStore) ListGroups(ctx context.Context) ([]model.Group, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]model.Group, 0, len(s.groups))
	for _, g := range s.groups {
		out = append(out, g)
	}
	slices.SortFunc(out, func(a, b model.Group) int { return strings.Compare(a.ID, b.ID) })
	return out, nil
}

func (s *MemoryStore) SetGroupLastEpisode(ctx context.Context, id string, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	g, ok := s.groups[id]
	if !ok {
		return ErrNotFound
	}
	g.LastEpisodeAt = at
	s.groups[id] = g
	return nil
}

func (s *MemoryStore) InsertCollection(ctx context.Context, c model.Collection) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.collections[c.ID]; ok {
		return ErrConflict
	}
	if c.Status == model.CollectionBuilding || c.Status == model.CollectionReady {
		for _, other := range s.collections {
			if other.GroupID == c.GroupID && other.Status == c.Status {
				return ErrConflict
			}
		}
	}
	s.collections[c.ID] = c
	return nil
}

func (s *MemoryStore) GetCollection(ctx context.Context, id string) (model.Collection, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.collections[id]
	if !ok {
		return model.Collection{}, ErrNotFound
	}
	return c, nil
}

func (s *MemoryStore) UpdateCollection(ctx context.Context, id string, fn func(*model.Collection) error) (model.Collection, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.collections[id]
	if !ok {
		return model.Collection{}, ErrNotFound
	}
	if err := fn(&c); err != nil {
		return model.Collection{}, err
	}
	if c.Status == model.CollectionBuilding || c.Status == model.CollectionReady {
		for _, other := range s.collections {
			if other.ID != c.ID && other.GroupID == c.GroupID && other.Status == c.Status {
				return model.Collection{}, ErrConflict
			}
		}
	}
	c.UpdatedAt = time.Now().UTC()
	s.collections[id] = c
	return c, nil
}

func (s *MemoryStore) FindCollection(ctx context.Context, groupID string, status model.CollectionStatus) (model.Collection, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, c := range s.collections {
		if c.GroupID == groupID && c.Status == status {
			return c, nil
		}
	}
	return model.Collection{}, ErrNotFound
}

func (s *MemoryStore) ListCollectionsByStatus(ctx context.Context, status model.CollectionStatus) ([]model.Collection, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []model.Collection
	for _, c := range s.collections {
		if c.Status == status {
			out = append(out, c)
		}
	}
	slices.SortFunc(out, func(a, b model.Collection) int { return strings.Compare(a.ID, b.ID) })
	return out, nil
}

func (s *MemoryStore) CountCollectionsByStatus(ctx context.Context, status model.CollectionStatus) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	n := 0
	for _, c := range s.collections {
		if c.Status == status {
			n++
		}
	}
	return n, nil
}

func (s *MemoryStore) InsertEpisode(ctx context.Context, e model.Episode) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.episodes[e.ID]; ok {
		return ErrConflict
	}
	s.episodes[e.ID] = e
	return nil
}

func (s *MemoryStore) GetEpisode(ctx context.Context, id string) (model.Episode, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.episodes[id]
	if !ok {
		return model.Episode{}, ErrNotFound
	}
	return e, nil
}

func (s *MemoryStore) UpdateEpisode(ctx context.Context, id string, fn func(*model.Episode) error) (model.Episode, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.episodes[id]
	if !ok {
		return model.Episode{}, ErrNotFound
	}
	if err := fn(&e); err != nil {
		return model.Episode{}, err
	}
	e.UpdatedAt = time.Now().UTC()
	s.episodes[id] = e
	return e, nil
}

func (s *MemoryStore) ListEpisodesByStatus(ctx context.Context, status model.EpisodeStatus) ([]model.Episode, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []model.Episode
	for _, e := range s.episodes {
		if e.Status == status {
			out = append(out, e)
		}
	}
	slices.SortFunc(out, func(a, b model.Episode) int { return strings.Compare(a.ID, b.ID) })
	return out, nil
}

func (s *MemoryStore) ListEpisodesByGroup(ctx context.Context, groupID string) ([]model.Episode, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []model.Episode
	for _, e := range s.episodes {
		if e.GroupID == groupID {
			out = append(out, e)
		}
	}
	slices.SortFunc(out, func(a, b model.Episode) int { return strings.Compare(a.ID, b.ID) })
	return out, nil
}

func (s *MemoryStore) InsertAudioFile(ctx context.Context, af model.AudioFile) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.audioFiles[af.EpisodeID]; ok {
		return ErrConflict
	}
	s.audioFiles[af.EpisodeID] = af
	return nil
}

func (s *MemoryStore) GetAudioFileByEpisode(ctx context.Context, episodeID string) (model.AudioFile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	af, ok := s.audioFiles[episodeID]
	if !ok {
		return model.AudioFile{}, ErrNotFound
	}
	return af, nil
}

func (s *MemoryStore) Close() error { return nil }

var _ Store = (*MemoryStore)(nil)
