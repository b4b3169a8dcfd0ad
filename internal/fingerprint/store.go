// SPDX-License-Identifier: MIT

package fingerprint

import (
	"context"
	"sync"
	"time"
)

// Result is the outcome of a test-and-set on the fingerprint window.
type Result int

const (
	Fresh Result = iota
	Duplicate
)

func (r Result) String() string {
	if r == Duplicate {
		return "DUPLICATE"
	}
	return "FRESH"
}

// Store is the sliding-window fingerprint set. Implementations must make
// SeenOrInsert atomic: a duplicate observed within the TTL never reports
// Fresh, regardless of concurrent callers or processes.
type Store interface {
	// SeenOrInsert atomically tests the hash and inserts it with expiry
	// now+TTL when absent.
	SeenOrInsert(ctx context.Context, hash string) (Result, error)
	// PurgeExpired removes entries past their expiry. Idempotent. Backends
	// with native TTL may implement it as a no-op.
	PurgeExpired(ctx context.Context) (int, error)
	Close() error
}

type entry struct {
	firstSeen time.Time
	expiresAt time.Time
}

// MemoryStore is the single-node Store. A janitor goroutine sweeps expired
// entries so the map does not grow without bound between natural lookups.
type MemoryStore struct {
	mu      sync.Mutex
	ttl     time.Duration
	entries map[string]entry
	stop    chan struct{}
	stopped sync.Once
	now     func() time.Time
}

// NewMemoryStore creates a memory-backed fingerprint window. A non-zero
// sweepInterval starts the background janitor.
func NewMemoryStore(ttl, sweepInterval time.Duration) *MemoryStore {
	s := &MemoryStore{
		ttl:     ttl,
		entries: make(map[string]entry),
		stop:    make(chan struct{}),
		now:     time.Now,
	}
	if sweepInterval > 0 {
		go s.janitor(sweepInterval)
	}
	return s
}

func (s *MemoryStore) SeenOrInsert(ctx context.Context, hash string) (Result, error) {
	now := s.now()
	s.mu.Lock()
	defer s.mu.Unlock()
	if e, ok := s.entries[hash]; ok {
		// An entry expiring exactly at T is stale for an arrival at T.
		if now.Before(e.expiresAt) {
			return Duplicate, nil
		}
		delete(s.entries, hash)
	}
	s.entries[hash] = entry{firstSeen: now, expiresAt: now.Add(s.ttl)}
	return Fresh, nil
}

func (s *MemoryStore) PurgeExpired(ctx context.Context) (int, error) {
	now := s.now()
	s.mu.Lock()
	defer s.mu.Unlock()
	count := 0
	for hash, e := range s.entries {
		if !now.Before(e.expiresAt) {
			delete(s.entries, hash)
			count++
		}
	}
	return count, nil
}

// Len reports the current window size (for the tests and metrics).
func (s *MemoryStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

func (s *MemoryStore) Close() error {
	s.stopped.Do(func() { close(s.stop) })
	return nil
}

func (s *MemoryStore) janitor(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			_, _ = s.PurgeExpired(context.Background())
		case <-s.stop:
			return
		}
	}
}

// Disabled is the Store used when DEDUP_ENABLED=false: every hash is Fresh.
type Disabled struct{}

func (Disabled) SeenOrInsert(ctx context.Context, hash string) (Result, error) { return Fresh, nil }
func (Disabled) PurgeExpired(ctx context.Context) (int, error)                 { return 0, nil }
func (Disabled) Close() error                                                  { return nil }

var (
	_ Store = (*MemoryStore)(nil)
	_ Store = Disabled{}
)
