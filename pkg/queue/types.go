package queue

import (
	"time"

	"github.com/google/uuid"

	"github.com/dmitrymomot/notifykit/pkg/notification"
)

// Default retry policy applied when an item carries no explicit values.
const (
	DefaultMaxRetries = 3
	DefaultRetryDelay = time.Minute
)

// Item is a queued notification awaiting redelivery. Created on the first
// dispatch attempt that cannot complete immediately; deleted on success or
// exhaustion. The ID is the notification id, shared with the history and
// confirmation records.
type Item struct {
	ID      string               `json:"id"`
	UserID  string               `json:"user_id"`
	Content notification.Content `json:"content"`

	CreatedAt time.Time `json:"created_at"`

	// RetryCount is the number of failed dispatch attempts so far. Never
	// exceeds MaxRetries.
	RetryCount int `json:"retry_count"`
	MaxRetries int `json:"max_retries"`

	// RetryDelay is the fixed delay between attempts.
	RetryDelay time.Duration `json:"retry_delay"`

	// NextRetryAt is when the item becomes due. At most one pending
	// NextRetryAt exists per item.
	NextRetryAt time.Time `json:"next_retry_at"`

	LastError string `json:"last_error,omitempty"`

	// Lease fields. A claimed item is owned by LockedBy until LockedUntil;
	// other workers skip it.
	LockedUntil *time.Time `json:"locked_until,omitempty"`
	LockedBy    *uuid.UUID `json:"locked_by,omitempty"`
}

// Exhausted reports whether the item has no retries left.
func (i Item) Exhausted() bool {
	return i.RetryCount >= i.MaxRetries
}

// normalize fills in policy defaults on a fresh item.
func (i *Item) normalize(now time.Time) {
	if i.CreatedAt.IsZero() {
		i.CreatedAt = now
	}
	if i.MaxRetries <= 0 {
		i.MaxRetries = DefaultMaxRetries
	}
	if i.RetryDelay <= 0 {
		i.RetryDelay = DefaultRetryDelay
	}
	if i.NextRetryAt.IsZero() {
		i.NextRetryAt = now.Add(i.RetryDelay)
	}
}
