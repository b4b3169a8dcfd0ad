// SPDX-License-Identifier: MIT

package collection

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/elroyic/Podcast-Generator-sub001/internal/model"
	"github.com/elroyic/Podcast-Generator-sub001/internal/store"
)

func seedGroup(t *testing.T, st store.Store, g model.Group) {
	t.Helper()
	require.NoError(t, st.PutGroup(context.Background(), g))
}

func seedArticle(t *testing.T, st store.Store, a model.Article) {
	t.Helper()
	require.NoError(t, st.InsertArticle(context.Background(), a))
}

func TestArticleOpensBuildingCollection(t *testing.T) {
	st := store.NewMemoryStore()
	b := NewBuilder(st)
	ctx := context.Background()

	seedGroup(t, st, model.Group{ID: "g1", FeedIDs: []string{"f1"}, MinArticles: 3})
	a := model.Article{ID: "a1", FeedID: "f1", Tags: []string{"tech"}}
	seedArticle(t, st, a)

	require.NoError(t, b.Assign(ctx, a))

	coll, err := st.FindCollection(ctx, "g1", model.CollectionBuilding)
	require.NoError(t, err)
	assert.Equal(t, 1, coll.ItemCount)

	got, err := st.GetArticle(ctx, "a1")
	require.NoError(t, err)
	assert.Equal(t, coll.ID, got.CollectionID)
}

func TestPromotionAtThreshold(t *testing.T) {
	st := store.NewMemoryStore()
	b := NewBuilder(st)
	ctx := context.Background()

	seedGroup(t, st, model.Group{ID: "g1", FeedIDs: []string{"f1"}, MinArticles: 2})
	for _, id := range []string{"a1", "a2"} {
		a := model.Article{ID: id, FeedID: "f1"}
		seedArticle(t, st, a)
		require.NoError(t, b.Assign(ctx, a))
	}

	ready, err := st.FindCollection(ctx, "g1", model.CollectionReady)
	require.NoError(t, err)
	assert.Equal(t, 2, ready.ItemCount)

	// BUILDING slot is free again.
	_, err = st.FindCollection(ctx, "g1", model.CollectionBuilding)
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestBuildingAccumulatesWhileReadyOccupied(t *testing.T) {
	st := store.NewMemoryStore()
	b := NewBuilder(st)
	ctx := context.Background()

	seedGroup(t, st, model.Group{ID: "g1", FeedIDs: []string{"f1"}, MinArticles: 1})

	a1 := model.Article{ID: "a1", FeedID: "f1"}
	seedArticle(t, st, a1)
	require.NoError(t, b.Assign(ctx, a1))

	ready, err := st.FindCollection(ctx, "g1", model.CollectionReady)
	require.NoError(t, err)

	// Next articles pile into a fresh BUILDING; no second READY appears.
	for _, id := range []string{"a2", "a3"} {
		a := model.Article{ID: id, FeedID: "f1"}
		seedArticle(t, st, a)
		require.NoError(t, b.Assign(ctx, a))
	}

	building, err := st.FindCollection(ctx, "g1", model.CollectionBuilding)
	require.NoError(t, err)
	assert.Equal(t, 2, building.ItemCount)

	stillReady, err := st.FindCollection(ctx, "g1", model.CollectionReady)
	require.NoError(t, err)
	assert.Equal(t, ready.ID, stillReady.ID)
}

func TestTagFilterAnyOf(t *testing.T) {
	st := store.NewMemoryStore()
	b := NewBuilder(st)
	ctx := context.Background()

	seedGroup(t, st, model.Group{ID: "g1", FeedIDs: []string{"f1"}, TagFilter: []string{"tech", "ai"}, MinArticles: 5})

	match := model.Article{ID: "a1", FeedID: "f1", Tags: []string{"ai", "business"}}
	seedArticle(t, st, match)
	require.NoError(t, b.Assign(ctx, match))

	miss := model.Article{ID: "a2", FeedID: "f1", Tags: []string{"sports"}}
	seedArticle(t, st, miss)
	require.NoError(t, b.Assign(ctx, miss))

	wrongFeed := model.Article{ID: "a3", FeedID: "f2", Tags: []string{"tech"}}
	seedArticle(t, st, wrongFeed)
	require.NoError(t, b.Assign(ctx, wrongFeed))

	coll, err := st.FindCollection(ctx, "g1", model.CollectionBuilding)
	require.NoError(t, err)
	assert.Equal(t, 1, coll.ItemCount)

	got, _ := st.GetArticle(ctx, "a2")
	assert.Empty(t, got.CollectionID)
}

func TestArticleJoinsFirstInterestedGroupOnly(t *testing.T) {
	st := store.NewMemoryStore()
	b := NewBuilder(st)
	ctx := context.Background()

	seedGroup(t, st, model.Group{ID: "g1", FeedIDs: []string{"f1"}, MinArticles: 5})
	seedGroup(t, st, model.Group{ID: "g2", FeedIDs: []string{"f1"}, MinArticles: 5})

	a := model.Article{ID: "a1", FeedID: "f1"}
	seedArticle(t, st, a)
	require.NoError(t, b.Assign(ctx, a))

	c1, err := st.FindCollection(ctx, "g1", model.CollectionBuilding)
	require.NoError(t, err)
	assert.Equal(t, 1, c1.ItemCount)

	_, err = st.FindCollection(ctx, "g2", model.CollectionBuilding)
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestRedeliveredArticleIsIdempotent(t *testing.T) {
	st := store.NewMemoryStore()
	b := NewBuilder(st)
	ctx := context.Background()

	seedGroup(t, st, model.Group{ID: "g1", FeedIDs: []string{"f1"}, MinArticles: 5})
	a := model.Article{ID: "a1", FeedID: "f1"}
	seedArticle(t, st, a)

	require.NoError(t, b.Assign(ctx, a))
	require.NoError(t, b.Assign(ctx, a))

	coll, err := st.FindCollection(ctx, "g1", model.CollectionBuilding)
	require.NoError(t, err)
	assert.Equal(t, 1, coll.ItemCount, "redelivery must not double-count")
}

func TestSweeperExpiresStaleCollections(t *testing.T) {
	st := store.NewMemoryStore()
	ctx := context.Background()
	old := time.Now().UTC().Add(-72 * time.Hour)

	require.NoError(t, st.InsertCollection(ctx, model.Collection{
		ID: "c-old", GroupID: "g1", Status: model.CollectionBuilding, CreatedAt: old,
	}))
	require.NoError(t, st.InsertCollection(ctx, model.Collection{
		ID: "c-new", GroupID: "g2", Status: model.CollectionReady, CreatedAt: time.Now().UTC(),
	}))

	s := NewSweeper(st, 48*time.Hour, time.Minute)
	n := s.SweepOnce(ctx)
	assert.Equal(t, 1, n)

	expired, err := st.GetCollection(ctx, "c-old")
	require.NoError(t, err)
	assert.Equal(t, model.CollectionExpired, expired.Status)

	kept, err := st.GetCollection(ctx, "c-new")
	require.NoError(t, err)
	assert.Equal(t, model.CollectionReady, kept.Status)
}
