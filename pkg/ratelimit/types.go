package ratelimit

import (
	"context"
	"time"
)

// Result reports the state of one sliding window check.
type Result struct {
	// Allowed indicates whether the checked event is under the limit.
	Allowed bool

	// Limit is the cap the check ran against.
	Limit int

	// Count is the number of events currently inside the window.
	Count int

	// ResetAt is when the oldest counted event ages out of the window.
	// Zero when the window is empty.
	ResetAt time.Time
}

// RetryAfter returns how long to wait until the window frees a slot.
// Returns 0 if the check was allowed.
func (r *Result) RetryAfter() time.Duration {
	if r.Allowed {
		return 0
	}
	return time.Until(r.ResetAt)
}

// Store is the storage backend for sliding window counters. Implementations
// must make Record and Count safe for concurrent use on the same key; the
// redis store additionally makes them atomic across processes.
type Store interface {
	// Record adds a timestamp to the window for the given key.
	Record(ctx context.Context, key string, ts time.Time, window time.Duration) error

	// Count returns the number of timestamps inside the trailing window.
	Count(ctx context.Context, key string, window time.Duration) (int64, error)

	// Oldest returns the oldest timestamp still inside the window.
	// The bool is false when the window is empty.
	Oldest(ctx context.Context, key string, window time.Duration) (time.Time, bool, error)

	// Reserve atomically records the timestamp if the window still has
	// room under limit. The check and the write happen as one operation
	// so concurrent reservations on the same key never overshoot the
	// limit. Returns whether the slot was taken and the count after the
	// call.
	Reserve(ctx context.Context, key string, ts time.Time, window time.Duration, limit int) (bool, int64, error)

	// Release removes the newest timestamp from the window, refunding a
	// reservation whose delivery did not happen. A no-op on an empty
	// window.
	Release(ctx context.Context, key string, window time.Duration) error

	// Delete removes the key and its timestamps.
	Delete(ctx context.Context, key string) error
}
