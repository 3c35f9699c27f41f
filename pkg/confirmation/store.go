package confirmation

import (
	"context"
	"time"

	"github.com/dmitrymomot/notifykit/pkg/channel"
)

// Store persists delivery confirmations keyed by (NotificationID, Channel).
type Store interface {
	// Upsert creates or overwrites the record for the confirmation's
	// (NotificationID, Channel) pair.
	Upsert(ctx context.Context, c Confirmation) error

	// MarkDelivered sets DeliveredAt and IsDelivered on the record for the
	// pair. Returns ErrNotFound when no attempt was recorded.
	MarkDelivered(ctx context.Context, notificationID string, ch channel.Name, at time.Time) error

	// MarkRead sets ReadAt and IsRead on every unread record for the
	// user's notification. Records already read are left untouched.
	// Reports whether any record changed.
	MarkRead(ctx context.Context, userID, notificationID string, at time.Time) (bool, error)

	// ListByNotification returns all channel attempts for a notification,
	// most recent first.
	ListByNotification(ctx context.Context, notificationID string) ([]Confirmation, error)

	// CountDelivered returns the number of delivered confirmations for the
	// user since the given time.
	CountDelivered(ctx context.Context, userID string, since time.Time) (int, error)
}
