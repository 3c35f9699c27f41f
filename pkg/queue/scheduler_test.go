package queue_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/notifykit/pkg/queue"
)

type stubRedispatcher struct {
	mu        sync.Mutex
	results   map[string]queue.Result
	calls     map[string]int
	exhausted []string
}

func newStubRedispatcher() *stubRedispatcher {
	return &stubRedispatcher{
		results: make(map[string]queue.Result),
		calls:   make(map[string]int),
	}
}

func (r *stubRedispatcher) Redispatch(ctx context.Context, item queue.Item) queue.Result {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.calls[item.ID]++
	return r.results[item.ID]
}

func (r *stubRedispatcher) Exhausted(ctx context.Context, item queue.Item) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.exhausted = append(r.exhausted, item.ID)
}

func (r *stubRedispatcher) callCount(id string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.calls[id]
}

func (r *stubRedispatcher) exhaustedIDs() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.exhausted...)
}

func startScheduler(t *testing.T, store queue.Store, r queue.Redispatcher) {
	t.Helper()

	sched, err := queue.NewScheduler(store, r,
		queue.WithPollInterval(10*time.Millisecond),
		queue.WithLease(time.Minute),
		queue.WithConcurrency(2),
	)
	require.NoError(t, err)
	require.NoError(t, sched.Start(context.Background()))
	t.Cleanup(func() { _ = sched.Stop() })
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("condition not met in time")
}

func TestSchedulerRemovesDeliveredItem(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := queue.NewMemoryStore()
	defer store.Close()

	r := newStubRedispatcher()
	r.results["n1"] = queue.Result{Disposition: queue.DispositionDelivered}
	require.NoError(t, store.Enqueue(ctx, newItem("n1")))

	startScheduler(t, store, r)

	waitFor(t, func() bool {
		_, err := store.Get(ctx, "n1")
		return errors.Is(err, queue.ErrNotFound)
	})
	assert.Empty(t, r.exhaustedIDs())
}

func TestSchedulerReschedulesFailedItem(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := queue.NewMemoryStore()
	defer store.Close()

	r := newStubRedispatcher()
	r.results["n1"] = queue.Result{
		Disposition: queue.DispositionFailed,
		Err:         errors.New("push timeout"),
	}

	item := newItem("n1")
	item.RetryCount = 1
	require.NoError(t, store.Enqueue(ctx, item))

	startScheduler(t, store, r)

	waitFor(t, func() bool {
		got, err := store.Get(ctx, "n1")
		return err == nil && got.RetryCount == 2
	})

	got, err := store.Get(ctx, "n1")
	require.NoError(t, err)
	assert.Equal(t, "push timeout", got.LastError)
	assert.True(t, got.NextRetryAt.After(time.Now().UTC()))
}

func TestSchedulerExhaustsItem(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := queue.NewMemoryStore()
	defer store.Close()

	r := newStubRedispatcher()
	r.results["n1"] = queue.Result{
		Disposition: queue.DispositionFailed,
		Err:         errors.New("still failing"),
	}

	item := newItem("n1")
	item.RetryCount = 3
	item.MaxRetries = 3
	require.NoError(t, store.Enqueue(ctx, item))

	startScheduler(t, store, r)

	waitFor(t, func() bool {
		return len(r.exhaustedIDs()) == 1
	})
	assert.Equal(t, []string{"n1"}, r.exhaustedIDs())

	waitFor(t, func() bool {
		_, err := store.Get(ctx, "n1")
		return errors.Is(err, queue.ErrNotFound)
	})
}

func TestSchedulerDefersItem(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := queue.NewMemoryStore()
	defer store.Close()

	until := time.Now().UTC().Add(8 * time.Hour)
	r := newStubRedispatcher()
	r.results["n1"] = queue.Result{
		Disposition: queue.DispositionDeferred,
		Until:       until,
	}

	item := newItem("n1")
	item.RetryCount = 1
	require.NoError(t, store.Enqueue(ctx, item))

	startScheduler(t, store, r)

	waitFor(t, func() bool {
		got, err := store.Get(ctx, "n1")
		return err == nil && got.NextRetryAt.Equal(until)
	})

	// Deferral consumed no retry and the item was redispatched exactly
	// once (it is no longer due).
	got, err := store.Get(ctx, "n1")
	require.NoError(t, err)
	assert.Equal(t, 1, got.RetryCount)
	assert.Equal(t, 1, r.callCount("n1"))
}

func TestSchedulerRemovesDroppedItem(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := queue.NewMemoryStore()
	defer store.Close()

	r := newStubRedispatcher()
	r.results["n1"] = queue.Result{Disposition: queue.DispositionDropped}
	require.NoError(t, store.Enqueue(ctx, newItem("n1")))

	startScheduler(t, store, r)

	waitFor(t, func() bool {
		_, err := store.Get(ctx, "n1")
		return errors.Is(err, queue.ErrNotFound)
	})
	assert.Empty(t, r.exhaustedIDs())
}
