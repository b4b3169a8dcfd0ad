// SPDX-License-Identifier: MIT

package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/dgraph-io/badger/v4"

	"github.com/elroyic/Podcast-Generator-sub001/internal/model"
)

const snapKeyPrefix = "snap:"

// BadgerSnapshotStore persists snapshots as JSON blobs in an embedded
// Badger database. Snapshots are immutable: a second put for the same ID
// is a conflict.
type BadgerSnapshotStore struct {
	db *badger.DB
}

func OpenBadgerSnapshotStore(path string) (*BadgerSnapshotStore, error) {
	opts := badger.DefaultOptions(path).WithLogger(nil)
	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("badger: open failed: %w", err)
	}
	return &BadgerSnapshotStore{db: db}, nil
}

func (s *BadgerSnapshotStore) PutSnapshot(ctx context.Context, snap model.Snapshot) error {
	key := []byte(snapKeyPrefix + snap.ID)
	buf, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("badger: marshal snapshot: %w", err)
	}
	return s.db.Update(func(txn *badger.Txn) error {
		if _, err := txn.Get(key); err == nil {
			return ErrConflict
		} else if !errors.Is(err, badger.ErrKeyNotFound) {
			return err
		}
		return txn.Set(key, buf)
	})
}

func (s *BadgerSnapshotStore) GetSnapshot(ctx context.Context, id string) (model.Snapshot, error) {
	key := []byte(snapKeyPrefix + id)
	var out model.Snapshot
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(key)
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, &out)
		})
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return model.Snapshot{}, ErrNotFound
	}
	if err != nil {
		return model.Snapshot{}, fmt.Errorf("badger: get snapshot: %w", err)
	}
	return out, nil
}

func (s *BadgerSnapshotStore) DeleteSnapshot(ctx context.Context, id string) error {
	key := []byte(snapKeyPrefix + id)
	return s.db.Update(func(txn *badger.Txn) error {
		return txn.Delete(key)
	})
}

func (s *BadgerSnapshotStore) Close() error { return s.db.Close() }

var _ SnapshotStore = (*BadgerSnapshotStore)(nil)
