package queue

import "errors"

var (
	// ErrNothingDue is returned by Claim when no item is due. Normal
	// during polling, not a failure.
	ErrNothingDue = errors.New("queue: nothing due")

	// ErrNotFound is returned when no item exists with the given id.
	ErrNotFound = errors.New("queue: item not found")

	// ErrInvalidItem is returned when an item is missing required fields.
	ErrInvalidItem = errors.New("queue: invalid item")

	// ErrRetriesExhausted is returned by Fail when the item has no retries
	// left.
	ErrRetriesExhausted = errors.New("queue: retries exhausted")

	// ErrStoreRequired is returned when a scheduler is built without a
	// store.
	ErrStoreRequired = errors.New("queue: store is required")

	// ErrRedispatcherRequired is returned when a scheduler is built without
	// a redispatcher.
	ErrRedispatcherRequired = errors.New("queue: redispatcher is required")

	// ErrStoreClosed is returned on operations against a closed store.
	ErrStoreClosed = errors.New("queue: store closed")
)
