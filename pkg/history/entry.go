package history

import (
	"time"

	"github.com/dmitrymomot/notifykit/pkg/notification"
)

// Entry is the durable record of one notification, written at creation and
// updated at terminal state. Entries outlive the queue row and feed offline
// replay.
type Entry struct {
	UserID         string            `json:"user_id"`
	NotificationID string            `json:"notification_id"`
	Kind           notification.Kind `json:"kind"`
	Title          string            `json:"title"`
	Body           string            `json:"body"`
	Data           map[string]string `json:"data,omitempty"`

	CreatedAt   time.Time  `json:"created_at"`
	DeliveredAt *time.Time `json:"delivered_at,omitempty"`

	WasDelivered bool       `json:"was_delivered"`
	WasReplayed  bool       `json:"was_replayed"`
	ReplayedAt   *time.Time `json:"replayed_at,omitempty"`
}

// NewEntry builds the history entry recorded when a notification enters the
// pipeline.
func NewEntry(userID, notificationID string, content notification.Content) Entry {
	return Entry{
		UserID:         userID,
		NotificationID: notificationID,
		Kind:           content.Kind,
		Title:          content.Title,
		Body:           content.Body,
		Data:           content.Data,
		CreatedAt:      time.Now().UTC(),
	}
}

// Content rebuilds the notification content for replay. Structured payloads
// are not retained in history, only the flattened data map.
func (e Entry) Content() notification.Content {
	return notification.Content{
		Kind:  e.Kind,
		Title: e.Title,
		Body:  e.Body,
		Data:  e.Data,
	}
}
