// SPDX-License-Identifier: MIT

package episode

import (
	"context"
	"errors"
	"time"

	"github.com/elroyic/Podcast-Generator-sub001/internal/log"
	"github.com/elroyic/Podcast-Generator-sub001/internal/metrics"
	"github.com/elroyic/Podcast-Generator-sub001/internal/model"
	"github.com/elroyic/Podcast-Generator-sub001/internal/store"
)

// Reaper fails GENERATING episodes whose owner died. The lease TTL plus a
// grace period bounds how stale a row may get before it is swept.
type Reaper struct {
	st       store.Store
	interval time.Duration
	maxAge   time.Duration
	now      func() time.Time
}

// NewReaper sweeps every interval; rows stuck in GENERATING longer than
// leaseTTL+grace are transitioned to FAILED.
func NewReaper(st store.Store, interval, leaseTTL, grace time.Duration) *Reaper {
	return &Reaper{
		st:       st,
		interval: interval,
		maxAge:   leaseTTL + grace,
		now:      time.Now,
	}
}

func (r *Reaper) Run(ctx context.Context) {
	t := time.NewTicker(r.interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			r.ReapOnce(ctx)
		}
	}
}

// ReapOnce sweeps one batch and returns the number of episodes failed.
func (r *Reaper) ReapOnce(ctx context.Context) int {
	logger := log.WithComponent("reaper")
	episodes, err := r.st.ListEpisodesByStatus(ctx, model.EpisodeGenerating)
	if err != nil {
		logger.Warn().Err(err).Msg("sweep list failed")
		return 0
	}

	cutoff := r.now().Add(-r.maxAge)
	reaped := 0
	for _, ep := range episodes {
		started := ep.UpdatedAt
		if started.IsZero() {
			started = ep.CreatedAt
		}
		if started.After(cutoff) {
			continue
		}
		_, err := r.st.UpdateEpisode(ctx, ep.ID, func(e *model.Episode) error {
			// The row may have terminated between the list and this update;
			// status transitions are strictly forward.
			if e.Status != model.EpisodeGenerating {
				return store.ErrConflict
			}
			e.Status = model.EpisodeFailed
			e.Reason = model.RLeaseExpired
			e.ReasonDetail = "reaped: generation exceeded lease ttl + grace"
			return nil
		})
		if err != nil {
			if errors.Is(err, store.ErrConflict) {
				continue
			}
			logger.Warn().
				Str(log.FieldEpisodeID, ep.ID).
				Err(err).
				Msg("reap failed")
			continue
		}
		reaped++
		metrics.IncReaped()
		metrics.IncTransition(string(model.EpisodeGenerating), string(model.EpisodeFailed))
		logger.Warn().
			Str(log.FieldEpisodeID, ep.ID).
			Str(log.FieldGroupID, ep.GroupID).
			Msg("stuck episode reaped")
	}
	return reaped
}
