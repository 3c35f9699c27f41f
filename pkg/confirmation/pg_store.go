package confirmation

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/dmitrymomot/notifykit/pkg/channel"
)

// PGStore is the postgres-backed Store.
type PGStore struct {
	pool *pgxpool.Pool
}

// NewPGStore creates a postgres confirmation store.
func NewPGStore(pool *pgxpool.Pool) (*PGStore, error) {
	if pool == nil {
		return nil, errors.New("confirmation: pool is required")
	}
	return &PGStore{pool: pool}, nil
}

const upsertConfirmationQuery = `
INSERT INTO delivery_confirmations (
	user_id, notification_id, kind, channel,
	sent_at, delivered_at, read_at, is_delivered, is_read,
	last_error, retry_count
) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
ON CONFLICT (notification_id, channel) DO UPDATE SET
	sent_at = EXCLUDED.sent_at,
	delivered_at = EXCLUDED.delivered_at,
	is_delivered = EXCLUDED.is_delivered,
	last_error = EXCLUDED.last_error,
	retry_count = EXCLUDED.retry_count`

func (s *PGStore) Upsert(ctx context.Context, c Confirmation) error {
	if c.NotificationID == "" || c.UserID == "" || c.Channel == "" {
		return ErrInvalidConfirmation
	}

	_, err := s.pool.Exec(ctx, upsertConfirmationQuery,
		c.UserID, c.NotificationID, c.Kind, c.Channel,
		c.SentAt, c.DeliveredAt, c.ReadAt, c.IsDelivered, c.IsRead,
		c.Error, c.RetryCount,
	)
	if err != nil {
		return fmt.Errorf("confirmation: upsert %s/%s: %w", c.NotificationID, c.Channel, err)
	}
	return nil
}

const markDeliveredQuery = `
UPDATE delivery_confirmations
SET is_delivered = TRUE, delivered_at = $3, last_error = ''
WHERE notification_id = $1 AND channel = $2`

func (s *PGStore) MarkDelivered(ctx context.Context, notificationID string, ch channel.Name, at time.Time) error {
	tag, err := s.pool.Exec(ctx, markDeliveredQuery, notificationID, ch, at)
	if err != nil {
		return fmt.Errorf("confirmation: mark delivered %s/%s: %w", notificationID, ch, err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

const markReadQuery = `
UPDATE delivery_confirmations
SET is_read = TRUE, read_at = $3
WHERE user_id = $1 AND notification_id = $2 AND is_read = FALSE`

func (s *PGStore) MarkRead(ctx context.Context, userID, notificationID string, at time.Time) (bool, error) {
	tag, err := s.pool.Exec(ctx, markReadQuery, userID, notificationID, at)
	if err != nil {
		return false, fmt.Errorf("confirmation: mark read %s/%s: %w", userID, notificationID, err)
	}
	return tag.RowsAffected() > 0, nil
}

const listByNotificationQuery = `
SELECT user_id, notification_id, kind, channel,
       sent_at, delivered_at, read_at, is_delivered, is_read,
       last_error, retry_count
FROM delivery_confirmations
WHERE notification_id = $1
ORDER BY sent_at DESC`

func (s *PGStore) ListByNotification(ctx context.Context, notificationID string) ([]Confirmation, error) {
	rows, err := s.pool.Query(ctx, listByNotificationQuery, notificationID)
	if err != nil {
		return nil, fmt.Errorf("confirmation: list %s: %w", notificationID, err)
	}
	defer rows.Close()

	var out []Confirmation
	for rows.Next() {
		var c Confirmation
		if err := rows.Scan(
			&c.UserID, &c.NotificationID, &c.Kind, &c.Channel,
			&c.SentAt, &c.DeliveredAt, &c.ReadAt, &c.IsDelivered, &c.IsRead,
			&c.Error, &c.RetryCount,
		); err != nil {
			return nil, fmt.Errorf("confirmation: scan %s: %w", notificationID, err)
		}
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("confirmation: list %s: %w", notificationID, err)
	}
	return out, nil
}

const countDeliveredQuery = `
SELECT COUNT(*)
FROM delivery_confirmations
WHERE user_id = $1 AND is_delivered = TRUE AND delivered_at >= $2`

func (s *PGStore) CountDelivered(ctx context.Context, userID string, since time.Time) (int, error) {
	var count int
	if err := s.pool.QueryRow(ctx, countDeliveredQuery, userID, since).Scan(&count); err != nil {
		return 0, fmt.Errorf("confirmation: count delivered %s: %w", userID, err)
	}
	return count, nil
}
