// SPDX-License-Identifier: MIT

package intake

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/elroyic/Podcast-Generator-sub001/internal/bus"
	"github.com/elroyic/Podcast-Generator-sub001/internal/fingerprint"
	"github.com/elroyic/Podcast-Generator-sub001/internal/model"
	"github.com/elroyic/Podcast-Generator-sub001/internal/store"
)

type recordingQueue struct {
	mu   sync.Mutex
	ids  []string
	full bool
}

func (q *recordingQueue) Enqueue(id string) bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.full {
		return false
	}
	q.ids = append(q.ids, id)
	return true
}

func (q *recordingQueue) enqueued() []string {
	q.mu.Lock()
	defer q.mu.Unlock()
	return append([]string(nil), q.ids...)
}

func newService(t *testing.T) (*Service, *store.MemoryStore, *recordingQueue) {
	t.Helper()
	fps := fingerprint.NewMemoryStore(time.Hour, time.Hour)
	t.Cleanup(func() { _ = fps.Close() })
	st := store.NewMemoryStore()
	q := &recordingQueue{}
	return New(fps, st, q), st, q
}

func item(title string) model.FeedItemEvent {
	return model.FeedItemEvent{
		FeedID:     "f1",
		RawTitle:   title,
		RawURL:     "https://example.com/" + title,
		RawContent: "content of " + title,
	}
}

func TestFreshItemPersistedAndEnqueued(t *testing.T) {
	svc, st, q := newService(t)
	ctx := context.Background()

	svc.HandleItem(ctx, item("one"))

	ids := q.enqueued()
	require.Len(t, ids, 1)

	a, err := st.GetArticle(ctx, ids[0])
	require.NoError(t, err)
	assert.Equal(t, "one", a.Title)
	assert.Equal(t, model.TierNone, a.ReviewTier)
	assert.NotEmpty(t, a.Fingerprint)
}

func TestDuplicateDroppedSilently(t *testing.T) {
	svc, _, q := newService(t)
	ctx := context.Background()

	svc.HandleItem(ctx, item("same"))
	svc.HandleItem(ctx, item("same"))

	assert.Len(t, q.enqueued(), 1, "second identical item must be dropped")
}

func TestDedupDisabledAdmitsEverything(t *testing.T) {
	st := store.NewMemoryStore()
	q := &recordingQueue{}
	svc := New(fingerprint.Disabled{}, st, q)
	ctx := context.Background()

	svc.HandleItem(ctx, item("same"))
	svc.HandleItem(ctx, item("same"))

	assert.Len(t, q.enqueued(), 2)
}

type flakyStore struct {
	*store.MemoryStore
	mu       sync.Mutex
	failures int
	calls    int
}

func (f *flakyStore) InsertArticle(ctx context.Context, a model.Article) error {
	f.mu.Lock()
	f.calls++
	fail := f.calls <= f.failures
	f.mu.Unlock()
	if fail {
		return errors.New("db unavailable")
	}
	return f.MemoryStore.InsertArticle(ctx, a)
}

func TestPersistRetriesThenSucceeds(t *testing.T) {
	fps := fingerprint.NewMemoryStore(time.Hour, time.Hour)
	defer func() { _ = fps.Close() }()
	fs := &flakyStore{MemoryStore: store.NewMemoryStore(), failures: 2}
	q := &recordingQueue{}
	svc := New(fps, fs, q)
	svc.sleep = func(context.Context, time.Duration) error { return nil }

	svc.HandleItem(context.Background(), item("retry"))
	assert.Len(t, q.enqueued(), 1)
	assert.Equal(t, 3, fs.calls)
}

func TestPersistDeadLettersAfterMaxAttempts(t *testing.T) {
	fps := fingerprint.NewMemoryStore(time.Hour, time.Hour)
	defer func() { _ = fps.Close() }()
	fs := &flakyStore{MemoryStore: store.NewMemoryStore(), failures: 100}
	q := &recordingQueue{}
	svc := New(fps, fs, q)
	svc.sleep = func(context.Context, time.Duration) error { return nil }

	svc.HandleItem(context.Background(), item("doomed"))
	assert.Empty(t, q.enqueued())
	assert.Equal(t, retryAttempts, fs.calls)
}

func TestQueueFullArticleStillPersisted(t *testing.T) {
	svc, st, q := newService(t)
	q.full = true
	ctx := context.Background()

	svc.HandleItem(ctx, item("stuck"))

	// The row exists even though review never starts; the operator can
	// re-drive it.
	articles, err := st.ListArticlesByCollection(ctx, "")
	require.NoError(t, err)
	assert.Len(t, articles, 1)
}

func TestRunConsumesFromBus(t *testing.T) {
	svc, _, q := newService(t)
	b := bus.NewMemoryBus()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sub, err := b.Subscribe(ctx, model.EventFeedItem)
	require.NoError(t, err)

	done := make(chan struct{})
	go func() { defer close(done); svc.Run(ctx, sub) }()

	require.NoError(t, b.Publish(ctx, model.EventFeedItem, item("from-bus")))

	assert.Eventually(t, func() bool { return len(q.enqueued()) == 1 },
		2*time.Second, 5*time.Millisecond)

	cancel()
	<-done
}
