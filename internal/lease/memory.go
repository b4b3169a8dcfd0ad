// SPDX-License-Identifier: MIT

package lease

import (
	"context"
	"sync"
	"time"
)

type leaseState struct {
	owner string
	exp   time.Time
}

// MemoryManager is the single-node Manager. Expired entries are lazily
// dropped on access, so no sweeper is needed.
type MemoryManager struct {
	mu     sync.Mutex
	leases map[string]leaseState
	now    func() time.Time
}

func NewMemoryManager() *MemoryManager {
	return &MemoryManager{
		leases: make(map[string]leaseState),
		now:    time.Now,
	}
}

func (m *MemoryManager) Acquire(ctx context.Context, groupID, owner string, ttl time.Duration) (bool, error) {
	now := m.now()
	deadline := now.Add(ttl)
	m.mu.Lock()
	defer m.mu.Unlock()

	ls, ok := m.leases[groupID]
	if ok && !now.Before(ls.exp) {
		delete(m.leases, groupID)
		ok = false
	}
	if ok {
		if ls.owner == owner {
			// Re-entry: extend expiration.
			ls.exp = deadline
			m.leases[groupID] = ls
			return true, nil
		}
		return false, nil
	}
	m.leases[groupID] = leaseState{owner: owner, exp: deadline}
	return true, nil
}

func (m *MemoryManager) Release(ctx context.Context, groupID, owner string) (ReleaseResult, error) {
	now := m.now()
	m.mu.Lock()
	defer m.mu.Unlock()

	ls, ok := m.leases[groupID]
	if !ok || !now.Before(ls.exp) {
		delete(m.leases, groupID)
		return Absent, nil
	}
	if ls.owner != owner {
		return NotOwner, nil
	}
	delete(m.leases, groupID)
	return Released, nil
}

func (m *MemoryManager) Status(ctx context.Context, groupID string) (Status, error) {
	now := m.now()
	m.mu.Lock()
	defer m.mu.Unlock()

	ls, ok := m.leases[groupID]
	if !ok || !now.Before(ls.exp) {
		return Status{}, nil
	}
	return Status{Held: true, Holder: ls.owner, ExpiresAt: ls.exp}, nil
}

func (m *MemoryManager) AnyActive(ctx context.Context) (bool, error) {
	n, err := m.ActiveCount(ctx)
	return n > 0, err
}

func (m *MemoryManager) ActiveCount(ctx context.Context) (int, error) {
	now := m.now()
	m.mu.Lock()
	defer m.mu.Unlock()

	count := 0
	for id, ls := range m.leases {
		if !now.Before(ls.exp) {
			delete(m.leases, id)
			continue
		}
		count++
	}
	return count, nil
}

func (m *MemoryManager) Close() error { return nil }

var _ Manager = (*MemoryManager)(nil)
