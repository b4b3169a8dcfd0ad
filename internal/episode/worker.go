// SPDX-License-Identifier: MIT

package episode

import (
	"context"

	"github.com/elroyic/Podcast-Generator-sub001/internal/bus"
	"github.com/elroyic/Podcast-Generator-sub001/internal/log"
	"github.com/elroyic/Podcast-Generator-sub001/internal/model"
)

// Worker consumes generation jobs from the bus and runs the orchestrator.
// Jobs for different groups still execute sequentially here; per-group
// exclusion is the lease's job, cross-group parallelism is a deployment
// choice (run more workers).
type Worker struct {
	orch *Orchestrator
}

func NewWorker(orch *Orchestrator) *Worker {
	return &Worker{orch: orch}
}

func (w *Worker) Run(ctx context.Context, sub bus.Subscriber) {
	logger := log.WithComponent("episode")
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-sub.C():
			if !ok {
				return
			}
			ev, ok := msg.(model.GenerateEpisodeEvent)
			if !ok {
				logger.Warn().Msgf("unexpected message type %T on generation topic", msg)
				continue
			}
			// Errors are terminal per job and already recorded on the row.
			_, _ = w.orch.Generate(ctx, ev)
		}
	}
}
