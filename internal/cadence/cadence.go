// SPDX-License-Identifier: MIT

// Package cadence decides when a group may produce its next episode and
// enqueues generation jobs on the bus.
package cadence

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/elroyic/Podcast-Generator-sub001/internal/bus"
	"github.com/elroyic/Podcast-Generator-sub001/internal/lease"
	"github.com/elroyic/Podcast-Generator-sub001/internal/log"
	"github.com/elroyic/Podcast-Generator-sub001/internal/model"
	"github.com/elroyic/Podcast-Generator-sub001/internal/store"
)

// GroupStatus is one row of the operator-facing cadence report.
type GroupStatus struct {
	GroupID        string              `json:"groupId"`
	Bucket         model.CadenceBucket `json:"bucket"`
	LastEpisodeAt  time.Time           `json:"lastEpisodeAt,omitzero"`
	NextEligibleAt time.Time           `json:"nextEligibleAt,omitzero"`
	ReadyItemCount int                 `json:"readyItemCount"`
	LeaseHeld      bool                `json:"leaseHeld"`
	InFlight       bool                `json:"inFlight"`
	Eligible       bool                `json:"eligible"`
}

// Controller runs the periodic eligibility tick. Enqueue is idempotent: a
// group with a job already queued or running is skipped until Done is
// called for it.
type Controller struct {
	st     store.Store
	leases lease.Manager
	events bus.Bus
	tick   time.Duration

	mu       sync.Mutex
	inflight map[string]bool

	now func() time.Time
}

func NewController(st store.Store, leases lease.Manager, events bus.Bus, tick time.Duration) *Controller {
	return &Controller{
		st:       st,
		leases:   leases,
		events:   events,
		tick:     tick,
		inflight: make(map[string]bool),
		now:      time.Now,
	}
}

// Done clears a group's in-flight marker. The orchestrator calls this when
// its job terminates, whatever the outcome.
func (c *Controller) Done(groupID string) {
	c.mu.Lock()
	delete(c.inflight, groupID)
	c.mu.Unlock()
}

// Claim marks a group as having a generation job queued or running and
// returns false when one already exists. The admin API shares this marker
// so two near-simultaneous triggers cannot both enqueue a job. Done clears
// it.
func (c *Controller) Claim(groupID string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.inflight[groupID] {
		return false
	}
	c.inflight[groupID] = true
	return true
}

func (c *Controller) isInFlight(groupID string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.inflight[groupID]
}

// Run ticks until ctx ends.
func (c *Controller) Run(ctx context.Context) {
	t := time.NewTicker(c.tick)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			c.TickOnce(ctx)
		}
	}
}

// TickOnce evaluates every group once and returns how many jobs it
// enqueued.
func (c *Controller) TickOnce(ctx context.Context) int {
	logger := log.WithComponent("cadence")
	groups, err := c.st.ListGroups(ctx)
	if err != nil {
		logger.Warn().Err(err).Msg("tick list groups failed")
		return 0
	}

	enqueued := 0
	for _, g := range groups {
		eligible, _ := c.evaluate(ctx, g)
		if !eligible {
			continue
		}
		if !c.Claim(g.ID) {
			continue
		}
		ev := model.GenerateEpisodeEvent{
			GroupID:       g.ID,
			CorrelationID: uuid.NewString(),
		}
		if err := c.events.Publish(ctx, model.EventGenerateEpisode, ev); err != nil {
			c.Done(g.ID)
			logger.Warn().
				Str(log.FieldGroupID, g.ID).
				Err(err).
				Msg("job publish failed")
			continue
		}
		enqueued++
		logger.Info().
			Str(log.FieldGroupID, g.ID).
			Str(log.FieldCorrelationID, ev.CorrelationID).
			Msg("generation job enqueued")
	}
	return enqueued
}

// evaluate returns eligibility and the populated status row.
func (c *Controller) evaluate(ctx context.Context, g model.Group) (bool, GroupStatus) {
	st := GroupStatus{
		GroupID:       g.ID,
		Bucket:        g.CadenceBucket,
		LastEpisodeAt: g.LastEpisodeAt,
		InFlight:      c.isInFlight(g.ID),
	}

	interval, auto := g.CadenceBucket.Interval()
	if auto && !g.LastEpisodeAt.IsZero() {
		st.NextEligibleAt = g.LastEpisodeAt.Add(interval)
	}

	coll, err := c.st.FindCollection(ctx, g.ID, model.CollectionReady)
	if err == nil {
		st.ReadyItemCount = coll.ItemCount
	}

	ls, err := c.leases.Status(ctx, g.ID)
	if err == nil {
		st.LeaseHeld = ls.Held
	}

	if !auto {
		return false, st
	}
	if st.ReadyItemCount < g.MinArticles || st.ReadyItemCount == 0 {
		return false, st
	}
	if !g.LastEpisodeAt.IsZero() && c.now().Sub(g.LastEpisodeAt) < interval {
		return false, st
	}
	if st.LeaseHeld || st.InFlight {
		return false, st
	}
	st.Eligible = true
	return true, st
}

// Report builds the cadence status rows for the admin API.
func (c *Controller) Report(ctx context.Context) ([]GroupStatus, error) {
	groups, err := c.st.ListGroups(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]GroupStatus, 0, len(groups))
	for _, g := range groups {
		eligible, st := c.evaluate(ctx, g)
		st.Eligible = eligible
		out = append(out, st)
	}
	return out, nil
}
