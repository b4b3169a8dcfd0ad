// SPDX-License-Identifier: MIT

package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/elroyic/Podcast-Generator-sub001/internal/model"
)

func openStores(t *testing.T) map[string]Store {
	t.Helper()
	sq, err := OpenSQLiteStore(filepath.Join(t.TempDir(), "podgen.db"), DefaultSQLiteConfig())
	require.NoError(t, err)
	stores := map[string]Store{
		"memory": NewMemoryStore(),
		"sqlite": sq,
	}
	t.Cleanup(func() {
		for _, s := range stores {
			_ = s.Close()
		}
	})
	return stores
}

func TestFeedRoundTrip(t *testing.T) {
	for name, s := range openStores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			f := model.Feed{ID: "f1", SourceURL: "https://example.com/rss", Kind: model.FeedRSS, Active: true}
			require.NoError(t, s.PutFeed(ctx, f))

			got, err := s.GetFeed(ctx, "f1")
			require.NoError(t, err)
			assert.Equal(t, f.SourceURL, got.SourceURL)
			assert.True(t, got.Active)
			assert.True(t, got.LastPolledAt.IsZero())

			polled := time.Now().Truncate(time.Second)
			require.NoError(t, s.TouchFeedPolled(ctx, "f1", polled))
			got, err = s.GetFeed(ctx, "f1")
			require.NoError(t, err)
			assert.Equal(t, polled.Unix(), got.LastPolledAt.Unix())

			_, err = s.GetFeed(ctx, "missing")
			assert.ErrorIs(t, err, ErrNotFound)
		})
	}
}

func TestArticleWriteOnceFields(t *testing.T) {
	for name, s := range openStores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			a := model.Article{
				ID: "a1", FeedID: "f1", Title: "title", URL: "https://example.com/a",
				Content: "body", Fingerprint: "fp", ReviewTier: model.TierNone,
			}
			require.NoError(t, s.InsertArticle(ctx, a))
			assert.ErrorIs(t, s.InsertArticle(ctx, a), ErrConflict)

			out := ReviewOutcome{Tier: model.TierLight, Tags: []string{"tech"}, Summary: "sum", Confidence: 0.9}
			require.NoError(t, s.SetArticleReview(ctx, "a1", out))

			got, err := s.GetArticle(ctx, "a1")
			require.NoError(t, err)
			assert.Equal(t, model.TierLight, got.ReviewTier)
			assert.Equal(t, []string{"tech"}, got.Tags)
			assert.InDelta(t, 0.9, got.Confidence, 1e-9)

			// Second review write is rejected.
			assert.ErrorIs(t, s.SetArticleReview(ctx, "a1", out), ErrConflict)
			assert.ErrorIs(t, s.SetArticleReview(ctx, "missing", out), ErrNotFound)

			require.NoError(t, s.AssignArticleCollection(ctx, "a1", "c1"))
			assert.ErrorIs(t, s.AssignArticleCollection(ctx, "a1", "c2"), ErrConflict)

			list, err := s.ListArticlesByCollection(ctx, "c1")
			require.NoError(t, err)
			require.Len(t, list, 1)
			assert.Equal(t, "a1", list[0].ID)
		})
	}
}

func TestArticleZeroTierIsUnreviewed(t *testing.T) {
	for name, s := range openStores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			require.NoError(t, s.InsertArticle(ctx, model.Article{ID: "a1", FeedID: "f1", Title: "t"}))

			got, err := s.GetArticle(ctx, "a1")
			require.NoError(t, err)
			assert.Equal(t, model.TierNone, got.ReviewTier, "zero tier normalizes to NONE on insert")

			// The write-once review update must match such a row.
			out := ReviewOutcome{Tier: model.TierLight, Tags: []string{"tech"}, Confidence: 0.9}
			require.NoError(t, s.SetArticleReview(ctx, "a1", out))
			got, err = s.GetArticle(ctx, "a1")
			require.NoError(t, err)
			assert.Equal(t, model.TierLight, got.ReviewTier)
		})
	}
}

func TestCollectionUniquenessPerGroup(t *testing.T) {
	for name, s := range openStores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			now := time.Now().UTC()
			require.NoError(t, s.InsertCollection(ctx, model.Collection{
				ID: "c1", GroupID: "g1", Status: model.CollectionBuilding, CreatedAt: now,
			}))

			// Second BUILDING for the same group is rejected.
			err := s.InsertCollection(ctx, model.Collection{
				ID: "c2", GroupID: "g1", Status: model.CollectionBuilding, CreatedAt: now,
			})
			assert.ErrorIs(t, err, ErrConflict)

			// A different group is fine.
			require.NoError(t, s.InsertCollection(ctx, model.Collection{
				ID: "c3", GroupID: "g2", Status: model.CollectionBuilding, CreatedAt: now,
			}))

			// Promote c1 to READY; a new BUILDING may then open.
			_, err = s.UpdateCollection(ctx, "c1", func(c *model.Collection) error {
				c.Status = model.CollectionReady
				return nil
			})
			require.NoError(t, err)
			require.NoError(t, s.InsertCollection(ctx, model.Collection{
				ID: "c4", GroupID: "g1", Status: model.CollectionBuilding, CreatedAt: now,
			}))

			// But a second READY for g1 is rejected at update time.
			_, err = s.UpdateCollection(ctx, "c4", func(c *model.Collection) error {
				c.Status = model.CollectionReady
				return nil
			})
			assert.ErrorIs(t, err, ErrConflict)

			got, err := s.FindCollection(ctx, "g1", model.CollectionReady)
			require.NoError(t, err)
			assert.Equal(t, "c1", got.ID)

			n, err := s.CountCollectionsByStatus(ctx, model.CollectionBuilding)
			require.NoError(t, err)
			assert.Equal(t, 2, n)
		})
	}
}

func TestEpisodeLifecycleUpdates(t *testing.T) {
	for name, s := range openStores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			now := time.Now().UTC()
			e := model.Episode{ID: "e1", GroupID: "g1", Status: model.EpisodeQueued, CreatedAt: now}
			require.NoError(t, s.InsertEpisode(ctx, e))
			assert.ErrorIs(t, s.InsertEpisode(ctx, e), ErrConflict)

			got, err := s.UpdateEpisode(ctx, "e1", func(ep *model.Episode) error {
				ep.Status = model.EpisodeGenerating
				ep.CollectionSnapshotID = "snap-1"
				return nil
			})
			require.NoError(t, err)
			assert.Equal(t, model.EpisodeGenerating, got.Status)
			assert.False(t, got.UpdatedAt.IsZero())

			generating, err := s.ListEpisodesByStatus(ctx, model.EpisodeGenerating)
			require.NoError(t, err)
			require.Len(t, generating, 1)
			assert.Equal(t, "snap-1", generating[0].CollectionSnapshotID)

			byGroup, err := s.ListEpisodesByGroup(ctx, "g1")
			require.NoError(t, err)
			assert.Len(t, byGroup, 1)

			af := model.AudioFile{ID: "au1", EpisodeID: "e1", URL: "file:///x.mp3",
				DurationSeconds: 300, ByteSize: 1 << 20, Format: "mp3", CreatedAt: now}
			require.NoError(t, s.InsertAudioFile(ctx, af))
			assert.ErrorIs(t, s.InsertAudioFile(ctx, model.AudioFile{
				ID: "au2", EpisodeID: "e1", Format: "mp3", CreatedAt: now,
			}), ErrConflict)

			gotAF, err := s.GetAudioFileByEpisode(ctx, "e1")
			require.NoError(t, err)
			assert.Equal(t, "au1", gotAF.ID)
		})
	}
}

func TestGroupRoundTrip(t *testing.T) {
	for name, s := range openStores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			g := model.Group{
				ID: "g1", Name: "Morning Tech", FeedIDs: []string{"f1", "f2"},
				TagFilter: []string{"tech"}, MinArticles: 3,
				CadenceBucket: model.CadenceHigh,
			}
			require.NoError(t, s.PutGroup(ctx, g))

			got, err := s.GetGroup(ctx, "g1")
			require.NoError(t, err)
			assert.Equal(t, g.FeedIDs, got.FeedIDs)
			assert.Equal(t, model.CadenceHigh, got.CadenceBucket)

			at := time.Now().Truncate(time.Second)
			require.NoError(t, s.SetGroupLastEpisode(ctx, "g1", at))
			got, err = s.GetGroup(ctx, "g1")
			require.NoError(t, err)
			assert.Equal(t, at.Unix(), got.LastEpisodeAt.Unix())

			groups, err := s.ListGroups(ctx)
			require.NoError(t, err)
			assert.Len(t, groups, 1)
		})
	}
}
