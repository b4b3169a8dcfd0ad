// SPDX-License-Identifier: MIT

package collection

import (
	"context"
	"time"

	"github.com/elroyic/Podcast-Generator-sub001/internal/log"
	"github.com/elroyic/Podcast-Generator-sub001/internal/metrics"
	"github.com/elroyic/Podcast-Generator-sub001/internal/model"
	"github.com/elroyic/Podcast-Generator-sub001/internal/store"
)

// Sweeper expires BUILDING and READY collections whose content has gone
// stale. Expired collections free the group's slot so fresh articles open
// a new BUILDING cycle.
type Sweeper struct {
	st       store.Store
	maxAge   time.Duration
	interval time.Duration
	now      func() time.Time
}

func NewSweeper(st store.Store, maxAge, interval time.Duration) *Sweeper {
	return &Sweeper{st: st, maxAge: maxAge, interval: interval, now: time.Now}
}

// Run sweeps on a ticker until ctx ends.
func (s *Sweeper) Run(ctx context.Context) {
	t := time.NewTicker(s.interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			s.SweepOnce(ctx)
		}
	}
}

// SweepOnce expires one batch and returns how many collections it touched.
func (s *Sweeper) SweepOnce(ctx context.Context) int {
	logger := log.WithComponent("collection")
	cutoff := s.now().Add(-s.maxAge)
	expired := 0
	for _, status := range []model.CollectionStatus{model.CollectionBuilding, model.CollectionReady} {
		colls, err := s.st.ListCollectionsByStatus(ctx, status)
		if err != nil {
			logger.Warn().Err(err).Msg("expiry sweep list failed")
			continue
		}
		for _, c := range colls {
			if c.CreatedAt.After(cutoff) {
				continue
			}
			from := c.Status
			_, err := s.st.UpdateCollection(ctx, c.ID, func(cc *model.Collection) error {
				cc.Status = model.CollectionExpired
				return nil
			})
			if err != nil {
				logger.Warn().
					Str(log.FieldCollectionID, c.ID).
					Err(err).
					Msg("expire failed")
				continue
			}
			expired++
			metrics.IncTransition(string(from), string(model.CollectionExpired))
			logger.Info().
				Str(log.FieldCollectionID, c.ID).
				Str(log.FieldGroupID, c.GroupID).
				Str(log.FieldOldState, string(from)).
				Msg("collection expired")
		}
	}
	return expired
}
