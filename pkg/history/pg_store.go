package history

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PGStore is the postgres-backed Store.
type PGStore struct {
	pool *pgxpool.Pool
}

// NewPGStore creates a postgres history store.
func NewPGStore(pool *pgxpool.Pool) (*PGStore, error) {
	if pool == nil {
		return nil, errors.New("history: pool is required")
	}
	return &PGStore{pool: pool}, nil
}

const createEntryQuery = `
INSERT INTO notification_history (
	notification_id, user_id, kind, title, body, data,
	created_at, delivered_at, was_delivered, was_replayed, replayed_at
) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`

func (s *PGStore) Create(ctx context.Context, e Entry) error {
	if e.NotificationID == "" || e.UserID == "" {
		return ErrInvalidEntry
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now().UTC()
	}

	data, err := marshalData(e.Data)
	if err != nil {
		return err
	}

	_, err = s.pool.Exec(ctx, createEntryQuery,
		e.NotificationID, e.UserID, e.Kind, e.Title, e.Body, data,
		e.CreatedAt, e.DeliveredAt, e.WasDelivered, e.WasReplayed, e.ReplayedAt,
	)
	if err != nil {
		return fmt.Errorf("history: create %s: %w", e.NotificationID, err)
	}
	return nil
}

const getEntryQuery = `
SELECT notification_id, user_id, kind, title, body, data,
       created_at, delivered_at, was_delivered, was_replayed, replayed_at
FROM notification_history
WHERE notification_id = $1`

func (s *PGStore) Get(ctx context.Context, notificationID string) (Entry, error) {
	e, err := scanEntry(s.pool.QueryRow(ctx, getEntryQuery, notificationID))
	if errors.Is(err, pgx.ErrNoRows) {
		return Entry{}, ErrNotFound
	}
	if err != nil {
		return Entry{}, fmt.Errorf("history: get %s: %w", notificationID, err)
	}
	return e, nil
}

const markDeliveredEntryQuery = `
UPDATE notification_history
SET was_delivered = TRUE, delivered_at = $2
WHERE notification_id = $1`

func (s *PGStore) MarkDelivered(ctx context.Context, notificationID string, at time.Time) error {
	tag, err := s.pool.Exec(ctx, markDeliveredEntryQuery, notificationID, at)
	if err != nil {
		return fmt.Errorf("history: mark delivered %s: %w", notificationID, err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

const listReplayableQuery = `
SELECT notification_id, user_id, kind, title, body, data,
       created_at, delivered_at, was_delivered, was_replayed, replayed_at
FROM notification_history
WHERE user_id = $1
  AND was_delivered = FALSE
  AND was_replayed = FALSE
  AND created_at >= $2
ORDER BY created_at DESC
LIMIT $3`

func (s *PGStore) ListReplayable(ctx context.Context, userID string, since time.Time, limit int) ([]Entry, error) {
	if limit <= 0 {
		limit = 100
	}

	rows, err := s.pool.Query(ctx, listReplayableQuery, userID, since, limit)
	if err != nil {
		return nil, fmt.Errorf("history: list replayable %s: %w", userID, err)
	}
	defer rows.Close()

	var out []Entry
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, fmt.Errorf("history: scan %s: %w", userID, err)
		}
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("history: list replayable %s: %w", userID, err)
	}
	return out, nil
}

// markReplayedQuery guards on was_replayed so the false->true transition
// happens at most once even under concurrent reconnects.
const markReplayedQuery = `
UPDATE notification_history
SET was_replayed = TRUE, replayed_at = $2
WHERE notification_id = $1 AND was_replayed = FALSE`

func (s *PGStore) MarkReplayed(ctx context.Context, notificationID string, at time.Time) error {
	tag, err := s.pool.Exec(ctx, markReplayedQuery, notificationID, at)
	if err != nil {
		return fmt.Errorf("history: mark replayed %s: %w", notificationID, err)
	}
	if tag.RowsAffected() == 0 {
		var exists bool
		if err := s.pool.QueryRow(ctx,
			`SELECT EXISTS (SELECT 1 FROM notification_history WHERE notification_id = $1)`,
			notificationID,
		).Scan(&exists); err != nil {
			return fmt.Errorf("history: mark replayed %s: %w", notificationID, err)
		}
		if exists {
			return ErrAlreadyReplayed
		}
		return ErrNotFound
	}
	return nil
}

func (s *PGStore) Prune(ctx context.Context, before time.Time) (int, error) {
	tag, err := s.pool.Exec(ctx, `DELETE FROM notification_history WHERE created_at < $1`, before)
	if err != nil {
		return 0, fmt.Errorf("history: prune: %w", err)
	}
	return int(tag.RowsAffected()), nil
}

func scanEntry(row pgx.Row) (Entry, error) {
	var (
		e    Entry
		data []byte
	)
	if err := row.Scan(
		&e.NotificationID, &e.UserID, &e.Kind, &e.Title, &e.Body, &data,
		&e.CreatedAt, &e.DeliveredAt, &e.WasDelivered, &e.WasReplayed, &e.ReplayedAt,
	); err != nil {
		return Entry{}, err
	}
	if len(data) > 0 {
		if err := json.Unmarshal(data, &e.Data); err != nil {
			return Entry{}, fmt.Errorf("decode data: %w", err)
		}
	}
	return e, nil
}

func marshalData(data map[string]string) ([]byte, error) {
	if len(data) == 0 {
		return nil, nil
	}
	b, err := json.Marshal(data)
	if err != nil {
		return nil, fmt.Errorf("history: encode data: %w", err)
	}
	return b, nil
}
