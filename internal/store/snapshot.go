// SPDX-License-Identifier: MIT

package store

import (
	"context"
	"sync"

	"github.com/elroyic/Podcast-Generator-sub001/internal/model"
)

// MemorySnapshotStore keeps snapshots in process memory.
type MemorySnapshotStore struct {
	mu    sync.RWMutex
	snaps map[string]model.Snapshot
}

func NewMemorySnapshotStore() *MemorySnapshotStore {
	return &MemorySnapshotStore{snaps: make(map[string]model.Snapshot)}
}

func (s *MemorySnapshotStore) PutSnapshot(ctx context.Context, snap model.Snapshot) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.snaps[snap.ID]; ok {
		return ErrConflict
	}
	s.snaps[snap.ID] = snap
	return nil
}

func (s *MemorySnapshotStore) GetSnapshot(ctx context.Context, id string) (model.Snapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	snap, ok := s.snaps[id]
	if !ok {
		return model.Snapshot{}, ErrNotFound
	}
	return snap, nil
}

func (s *MemorySnapshotStore) DeleteSnapshot(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.snaps, id)
	return nil
}

func (s *MemorySnapshotStore) Close() error { return nil }

var _ SnapshotStore = (*MemorySnapshotStore)(nil)
