package confirmation

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/dmitrymomot/notifykit/pkg/channel"
	"github.com/dmitrymomot/notifykit/pkg/logger"
	"github.com/dmitrymomot/notifykit/pkg/notification"
	"github.com/dmitrymomot/notifykit/pkg/preference"
)

// Tracker records per-channel delivery attempts and read receipts. One
// confirmation exists per (notification, channel); repeated attempts on the
// same channel overwrite it.
type Tracker struct {
	store  Store
	prefs  preference.Store
	logger *slog.Logger
}

// TrackerOption configures a Tracker.
type TrackerOption func(*Tracker)

// WithTrackerLogger sets the tracker's logger.
func WithTrackerLogger(log *slog.Logger) TrackerOption {
	return func(t *Tracker) {
		if log != nil {
			t.logger = log
		}
	}
}

// NewTracker creates a confirmation tracker. The preference store gates
// read receipts per user.
func NewTracker(store Store, prefs preference.Store, opts ...TrackerOption) (*Tracker, error) {
	if store == nil {
		return nil, ErrStoreRequired
	}
	if prefs == nil {
		return nil, ErrPreferencesRequired
	}

	t := &Tracker{
		store:  store,
		prefs:  prefs,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(t)
	}
	return t, nil
}

// Attempt records that a send was started on the channel. Call before the
// channel send so a crash mid-send still leaves a trace.
func (t *Tracker) Attempt(ctx context.Context, userID, notificationID string, kind notification.Kind, ch channel.Name, retryCount int) error {
	return t.store.Upsert(ctx, Confirmation{
		UserID:         userID,
		NotificationID: notificationID,
		Kind:           kind,
		Channel:        ch,
		SentAt:         time.Now().UTC(),
		RetryCount:     retryCount,
	})
}

// Delivered marks the channel attempt as delivered.
func (t *Tracker) Delivered(ctx context.Context, notificationID string, ch channel.Name) error {
	return t.store.MarkDelivered(ctx, notificationID, ch, time.Now().UTC())
}

// Failed records the delivery error on the channel attempt.
func (t *Tracker) Failed(ctx context.Context, userID, notificationID string, kind notification.Kind, ch channel.Name, retryCount int, sendErr error) error {
	c := Confirmation{
		UserID:         userID,
		NotificationID: notificationID,
		Kind:           kind,
		Channel:        ch,
		SentAt:         time.Now().UTC(),
		RetryCount:     retryCount,
	}
	if sendErr != nil {
		c.Error = sendErr.Error()
	}
	return t.store.Upsert(ctx, c)
}

// Read acknowledges the notification as read by the user. The update is
// idempotent: re-acknowledging an already-read notification changes
// nothing. Users who disabled read receipts are skipped silently.
func (t *Tracker) Read(ctx context.Context, userID, notificationID string) error {
	prefs, err := t.prefs.Get(ctx, userID)
	if err != nil {
		return fmt.Errorf("confirmation: read receipt %s/%s: %w", userID, notificationID, err)
	}
	if !prefs.EnableReadReceipts {
		return nil
	}

	changed, err := t.store.MarkRead(ctx, userID, notificationID, time.Now().UTC())
	if err != nil {
		return err
	}
	if changed {
		t.logger.LogAttrs(ctx, slog.LevelDebug, "notification read",
			logger.UserID(userID),
			logger.NotificationID(notificationID),
		)
	}
	return nil
}

// Status returns all channel attempts recorded for the notification.
func (t *Tracker) Status(ctx context.Context, notificationID string) ([]Confirmation, error) {
	return t.store.ListByNotification(ctx, notificationID)
}

// DeliveredCount returns the user's delivered confirmations over the
// trailing window.
func (t *Tracker) DeliveredCount(ctx context.Context, userID string, window time.Duration) (int, error) {
	return t.store.CountDelivered(ctx, userID, time.Now().UTC().Add(-window))
}
