package queue

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Store is the durable retry queue. Items are leased before processing so
// concurrent workers never double-deliver the same notification.
type Store interface {
	// Enqueue persists the item, filling in policy defaults. Enqueueing an
	// existing id overwrites it.
	Enqueue(ctx context.Context, item Item) error

	// Claim leases the earliest due, unleased item for the worker. Returns
	// ErrNothingDue when the queue has no due item.
	Claim(ctx context.Context, workerID uuid.UUID, lease time.Duration) (*Item, error)

	// Complete removes the item. Called on delivery, drop, or exhaustion.
	Complete(ctx context.Context, id string) error

	// Fail records a failed attempt: increments RetryCount, sets
	// NextRetryAt one RetryDelay ahead, and releases the lease. Returns
	// ErrRetriesExhausted when RetryCount already reached MaxRetries.
	Fail(ctx context.Context, id string, errMsg string) error

	// Defer reschedules the item to the given time without consuming a
	// retry and releases the lease. Used for quiet hours and frequency
	// caps.
	Defer(ctx context.Context, id string, until time.Time) error

	// Release drops the lease without changing the item's schedule.
	Release(ctx context.Context, id string) error

	// Get returns the item by id.
	Get(ctx context.Context, id string) (Item, error)
}
