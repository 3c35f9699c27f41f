package history

import (
	"context"
	"time"
)

// Store persists notification history entries.
type Store interface {
	// Create records a new entry. The NotificationID must be unique.
	Create(ctx context.Context, e Entry) error

	// Get returns the entry for the notification.
	Get(ctx context.Context, notificationID string) (Entry, error)

	// MarkDelivered finalizes the entry as delivered.
	MarkDelivered(ctx context.Context, notificationID string, at time.Time) error

	// ListReplayable returns the user's undelivered, never-replayed entries
	// created at or after since, newest first, capped at limit.
	ListReplayable(ctx context.Context, userID string, since time.Time, limit int) ([]Entry, error)

	// MarkReplayed transitions WasReplayed false to true exactly once.
	// A second call returns ErrAlreadyReplayed.
	MarkReplayed(ctx context.Context, notificationID string, at time.Time) error

	// Prune removes entries created before the cutoff. Returns the number
	// removed.
	Prune(ctx context.Context, before time.Time) (int, error)
}
