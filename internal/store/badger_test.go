// SPDX-License-Identifier: MIT

package store

import (
	"context"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/elroyic/Podcast-Generator-sub001/internal/model"
)

func openSnapshotStores(t *testing.T) map[string]SnapshotStore {
	t.Helper()
	bs, err := OpenBadgerSnapshotStore(t.TempDir())
	require.NoError(t, err)
	stores := map[string]SnapshotStore{
		"memory": NewMemorySnapshotStore(),
		"badger": bs,
	}
	t.Cleanup(func() {
		for _, s := range stores {
			_ = s.Close()
		}
	})
	return stores
}

func TestSnapshotImmutable(t *testing.T) {
	for name, s := range openSnapshotStores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			snap := model.Snapshot{
				ID:           "s1",
				CollectionID: "c1",
				GroupID:      "g1",
				Articles: []model.Article{
					{ID: "a1", Title: "one"},
					{ID: "a2", Title: "two"},
				},
				TakenAt: time.Now().UTC().Truncate(time.Second),
			}
			require.NoError(t, s.PutSnapshot(ctx, snap))
			assert.ErrorIs(t, s.PutSnapshot(ctx, snap), ErrConflict)

			got, err := s.GetSnapshot(ctx, "s1")
			require.NoError(t, err)
			if diff := cmp.Diff(snap, got); diff != "" {
				t.Fatalf("snapshot round trip mismatch (-want +got):\n%s", diff)
			}

			_, err = s.GetSnapshot(ctx, "missing")
			assert.ErrorIs(t, err, ErrNotFound)

			require.NoError(t, s.DeleteSnapshot(ctx, "s1"))
			_, err = s.GetSnapshot(ctx, "s1")
			assert.ErrorIs(t, err, ErrNotFound)
		})
	}
}
