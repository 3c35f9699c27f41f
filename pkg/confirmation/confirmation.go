package confirmation

import (
	"time"

	"github.com/dmitrymomot/notifykit/pkg/channel"
	"github.com/dmitrymomot/notifykit/pkg/notification"
)

// Confirmation records the outcome of one delivery attempt on one channel.
// There is exactly one record per (NotificationID, Channel) pair; repeated
// attempts on the same channel overwrite the status fields, last write wins.
type Confirmation struct {
	UserID         string            `json:"user_id"`
	NotificationID string            `json:"notification_id"`
	Kind           notification.Kind `json:"kind"`
	Channel        channel.Name      `json:"channel"`

	SentAt      time.Time  `json:"sent_at"`
	DeliveredAt *time.Time `json:"delivered_at,omitempty"`
	ReadAt      *time.Time `json:"read_at,omitempty"`

	IsDelivered bool `json:"is_delivered"`
	IsRead      bool `json:"is_read"`

	// Error holds the last delivery error for this channel, empty on
	// success.
	Error string `json:"error,omitempty"`

	// RetryCount is the queue retry count at the time of the attempt.
	RetryCount int `json:"retry_count"`
}
