package queue_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/notifykit/pkg/notification"
	"github.com/dmitrymomot/notifykit/pkg/queue"
)

func newItem(id string) queue.Item {
	return queue.Item{
		ID:     id,
		UserID: "user-1",
		Content: notification.Content{
			Kind:  notification.KindMention,
			Title: "title",
			Body:  "body",
		},
		MaxRetries:  3,
		RetryDelay:  time.Minute,
		NextRetryAt: time.Now().UTC().Add(-time.Second),
	}
}

func TestMemoryStoreClaimLease(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := queue.NewMemoryStore()
	defer store.Close()

	require.NoError(t, store.Enqueue(ctx, newItem("n1")))

	workerA := uuid.New()
	workerB := uuid.New()

	item, err := store.Claim(ctx, workerA, time.Minute)
	require.NoError(t, err)
	assert.Equal(t, "n1", item.ID)
	require.NotNil(t, item.LockedBy)
	assert.Equal(t, workerA, *item.LockedBy)

	// A leased item is invisible to other workers.
	_, err = store.Claim(ctx, workerB, time.Minute)
	assert.ErrorIs(t, err, queue.ErrNothingDue)

	// Releasing makes it claimable again.
	require.NoError(t, store.Release(ctx, "n1"))
	item, err = store.Claim(ctx, workerB, time.Minute)
	require.NoError(t, err)
	assert.Equal(t, workerB, *item.LockedBy)
}

func TestMemoryStoreClaimSkipsFutureItems(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := queue.NewMemoryStore()
	defer store.Close()

	item := newItem("n1")
	item.NextRetryAt = time.Now().UTC().Add(time.Hour)
	require.NoError(t, store.Enqueue(ctx, item))

	_, err := store.Claim(ctx, uuid.New(), time.Minute)
	assert.ErrorIs(t, err, queue.ErrNothingDue)
}

func TestMemoryStoreClaimExpiredLease(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := queue.NewMemoryStore()
	defer store.Close()

	require.NoError(t, store.Enqueue(ctx, newItem("n1")))

	_, err := store.Claim(ctx, uuid.New(), time.Millisecond)
	require.NoError(t, err)

	time.Sleep(10 * time.Millisecond)

	// The lease expired, so another worker may claim without waiting for
	// the sweeper.
	item, err := store.Claim(ctx, uuid.New(), time.Minute)
	require.NoError(t, err)
	assert.Equal(t, "n1", item.ID)
}

func TestMemoryStoreFail(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := queue.NewMemoryStore()
	defer store.Close()

	item := newItem("n1")
	item.MaxRetries = 2
	require.NoError(t, store.Enqueue(ctx, item))

	require.NoError(t, store.Fail(ctx, "n1", "push timeout"))

	got, err := store.Get(ctx, "n1")
	require.NoError(t, err)
	assert.Equal(t, 1, got.RetryCount)
	assert.Equal(t, "push timeout", got.LastError)
	assert.True(t, got.NextRetryAt.After(time.Now().UTC().Add(30*time.Second)))
	assert.Nil(t, got.LockedBy)

	require.NoError(t, store.Fail(ctx, "n1", "push timeout"))

	// RetryCount never exceeds MaxRetries.
	assert.ErrorIs(t, store.Fail(ctx, "n1", "push timeout"), queue.ErrRetriesExhausted)
	got, err = store.Get(ctx, "n1")
	require.NoError(t, err)
	assert.Equal(t, 2, got.RetryCount)
}

func TestMemoryStoreDeferKeepsRetryCount(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := queue.NewMemoryStore()
	defer store.Close()

	item := newItem("n1")
	item.RetryCount = 1
	require.NoError(t, store.Enqueue(ctx, item))

	until := time.Now().UTC().Add(8 * time.Hour)
	require.NoError(t, store.Defer(ctx, "n1", until))

	got, err := store.Get(ctx, "n1")
	require.NoError(t, err)
	assert.Equal(t, 1, got.RetryCount)
	assert.True(t, got.NextRetryAt.Equal(until))
}

func TestMemoryStoreComplete(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := queue.NewMemoryStore()
	defer store.Close()

	require.NoError(t, store.Enqueue(ctx, newItem("n1")))
	require.NoError(t, store.Complete(ctx, "n1"))

	_, err := store.Get(ctx, "n1")
	assert.ErrorIs(t, err, queue.ErrNotFound)
	assert.ErrorIs(t, store.Complete(ctx, "n1"), queue.ErrNotFound)
}

func TestMemoryStoreEnqueueDefaults(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := queue.NewMemoryStore()
	defer store.Close()

	require.NoError(t, store.Enqueue(ctx, queue.Item{ID: "n1", UserID: "user-1"}))

	got, err := store.Get(ctx, "n1")
	require.NoError(t, err)
	assert.Equal(t, queue.DefaultMaxRetries, got.MaxRetries)
	assert.Equal(t, queue.DefaultRetryDelay, got.RetryDelay)
	assert.False(t, got.NextRetryAt.IsZero())
	assert.False(t, got.CreatedAt.IsZero())
}
