// SPDX-License-Identifier: MIT

// Package lease implements the advisory, expiring, per-group generation
// mutex. A lease is reentrant for its owner token only: re-acquiring
// extends the TTL. The TTL is the ceiling on how long a crashed owner can
// stall a group.
package lease

import (
	"context"
	"time"
)

// MaintenanceGroupID is the synthetic group claimed by the admin
// pause/resume endpoints. Holding it trips AnyActive and therefore the
// production pause, without touching any real group.
const MaintenanceGroupID = "__maintenance__"

// MaintenanceOwner is the owner token used for the synthetic lease.
const MaintenanceOwner = "admin-maintenance"

// ReleaseResult is the outcome of a Release call.
type ReleaseResult int

const (
	Released ReleaseResult = iota
	NotOwner
	Absent
)

func (r ReleaseResult) String() string {
	switch r {
	case Released:
		return "RELEASED"
	case NotOwner:
		return "NOT_OWNER"
	default:
		return "ABSENT"
	}
}

// Status describes the current holder of a group's lease, if any.
type Status struct {
	Held      bool      `json:"held"`
	Holder    string    `json:"holder,omitempty"`
	ExpiresAt time.Time `json:"expiresAt,omitzero"`
}

// Manager is the cross-process lease coordination surface. Implementations
// must be safe for concurrent use; Acquire must be an atomic
// insert-if-absent with expiry.
type Manager interface {
	// Acquire returns true when the caller now holds the lease. Same-owner
	// re-acquisition succeeds and extends the TTL.
	Acquire(ctx context.Context, groupID, owner string, ttl time.Duration) (bool, error)
	// Release removes the lease if owner matches the holder. A stale token
	// is rejected with NotOwner.
	Release(ctx context.Context, groupID, owner string) (ReleaseResult, error)
	// Status reports the current holder.
	Status(ctx context.Context, groupID string) (Status, error)
	// AnyActive reports whether any lease is held. Drives the review
	// production pause.
	AnyActive(ctx context.Context) (bool, error)
	// ActiveCount returns the number of held leases (metrics).
	ActiveCount(ctx context.Context) (int, error)
	Close() error
}
