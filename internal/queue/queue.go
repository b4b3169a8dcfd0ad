// SPDX-License-Identifier: MIT

// Package queue implements the bounded review backlog and its worker pool.
// Dispatch halts while any generation lease is held: episode generation
// gets the capability budget to itself, and deferred articles are never
// dropped.
package queue

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/elroyic/Podcast-Generator-sub001/internal/log"
	"github.com/elroyic/Podcast-Generator-sub001/internal/metrics"
)

// maxAttempts is how often one article may fail review before it is
// dead-lettered.
const maxAttempts = 3

// Handler processes one dequeued article.
type Handler func(ctx context.Context, articleID string) error

// PauseChecker reports whether dispatch must pause. Satisfied by
// lease.Manager.
type PauseChecker interface {
	AnyActive(ctx context.Context) (bool, error)
}

type item struct {
	articleID string
	attempts  int
}

// Worker is the bounded FIFO review queue plus its consumer pool.
type Worker struct {
	ch          chan item
	handler     Handler
	pause       PauseChecker
	concurrency int
	backoffNs   atomic.Int64
	depth       atomic.Int64
}

// New builds a queue with the given capacity and worker count. backoff is
// the sleep between pause re-checks while a lease is held.
func New(capacity, concurrency int, backoff time.Duration, pause PauseChecker, handler Handler) *Worker {
	w := &Worker{
		ch:          make(chan item, capacity),
		handler:     handler,
		pause:       pause,
		concurrency: concurrency,
	}
	w.backoffNs.Store(int64(backoff))
	return w
}

// SetBackoff swaps the pause re-check interval; applies on the next wait.
func (w *Worker) SetBackoff(d time.Duration) { w.backoffNs.Store(int64(d)) }

func (w *Worker) Backoff() time.Duration { return time.Duration(w.backoffNs.Load()) }

// Enqueue adds an article to the backlog. It returns false when the queue
// is full; the caller decides whether that is a busy signal or a silent
// drop.
func (w *Worker) Enqueue(articleID string) bool {
	return w.push(item{articleID: articleID})
}

func (w *Worker) push(it item) bool {
	select {
	case w.ch <- it:
		w.depth.Add(1)
		return true
	default:
		return false
	}
}

// Depth returns the current backlog size (queue depth gauge).
func (w *Worker) Depth() float64 { return float64(w.depth.Load()) }

// Run consumes the backlog until ctx is cancelled.
func (w *Worker) Run(ctx context.Context) {
	var wg sync.WaitGroup
	for i := 0; i < w.concurrency; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			w.loop(ctx)
		}()
	}
	wg.Wait()
}

func (w *Worker) loop(ctx context.Context) {
	logger := log.WithComponent("queue")
	for {
		// Pause is checked before the dequeue: backlog items stay on the
		// queue (and in the depth gauge) while a lease is held.
		if !w.waitWhilePaused(ctx) {
			return
		}
		select {
		case <-ctx.Done():
			return
		case it := <-w.ch:
			w.depth.Add(-1)
			if err := w.handler(ctx, it.articleID); err != nil {
				it.attempts++
				if it.attempts >= maxAttempts {
					metrics.IncReviewDeadLetter()
					logger.Error().
						Str(log.FieldArticleID, it.articleID).
						Int("attempts", it.attempts).
						Err(err).
						Msg("review dead-lettered")
					continue
				}
				logger.Warn().
					Str(log.FieldArticleID, it.articleID).
					Int("attempts", it.attempts).
					Err(err).
					Msg("review failed, requeueing")
				if !w.push(it) {
					metrics.IncReviewDeadLetter()
					logger.Error().
						Str(log.FieldArticleID, it.articleID).
						Msg("requeue rejected, queue full")
				}
			}
		}
	}
}

// waitWhilePaused blocks while any generation lease is held. Returns false
// only when ctx ended.
func (w *Worker) waitWhilePaused(ctx context.Context) bool {
	logger := log.WithComponent("queue")
	for {
		active, err := w.pause.AnyActive(ctx)
		if err != nil {
			// Coordination-store hiccup: dispatch rather than stall the
			// whole backlog.
			logger.Warn().Err(err).Msg("pause check failed")
			return true
		}
		if !active {
			return true
		}
		metrics.IncPauseWait()
		t := time.NewTimer(w.Backoff())
		select {
		case <-ctx.Done():
			t.Stop()
			return false
		case <-t.C:
		}
	}
}
