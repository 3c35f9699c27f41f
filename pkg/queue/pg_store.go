package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/dmitrymomot/notifykit/pkg/notification"
)

// PGStore is the postgres-backed Store. Claiming uses FOR UPDATE SKIP
// LOCKED so concurrent workers never block each other on the same row.
type PGStore struct {
	pool *pgxpool.Pool
}

// NewPGStore creates a postgres queue store.
func NewPGStore(pool *pgxpool.Pool) (*PGStore, error) {
	if pool == nil {
		return nil, errors.New("queue: pool is required")
	}
	return &PGStore{pool: pool}, nil
}

const enqueueQuery = `
INSERT INTO notification_queue (
	id, user_id, content, created_at,
	retry_count, max_retries, retry_delay_ms, next_retry_at, last_error
) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
ON CONFLICT (id) DO UPDATE SET
	retry_count = EXCLUDED.retry_count,
	next_retry_at = EXCLUDED.next_retry_at,
	last_error = EXCLUDED.last_error,
	locked_until = NULL,
	locked_by = NULL`

func (s *PGStore) Enqueue(ctx context.Context, item Item) error {
	if item.ID == "" || item.UserID == "" {
		return ErrInvalidItem
	}
	item.normalize(time.Now().UTC())

	content, err := json.Marshal(item.Content)
	if err != nil {
		return fmt.Errorf("queue: encode content %s: %w", item.ID, err)
	}

	_, err = s.pool.Exec(ctx, enqueueQuery,
		item.ID, item.UserID, content, item.CreatedAt,
		item.RetryCount, item.MaxRetries, item.RetryDelay.Milliseconds(),
		item.NextRetryAt, item.LastError,
	)
	if err != nil {
		return fmt.Errorf("queue: enqueue %s: %w", item.ID, err)
	}
	return nil
}

const claimQuery = `
WITH due AS (
	SELECT id FROM notification_queue
	WHERE next_retry_at <= now()
	  AND (locked_until IS NULL OR locked_until <= now())
	ORDER BY next_retry_at
	LIMIT 1
	FOR UPDATE SKIP LOCKED
)
UPDATE notification_queue q
SET locked_until = now() + $2::interval, locked_by = $1
FROM due
WHERE q.id = due.id
RETURNING q.id, q.user_id, q.content, q.created_at,
          q.retry_count, q.max_retries, q.retry_delay_ms,
          q.next_retry_at, q.last_error, q.locked_until, q.locked_by`

func (s *PGStore) Claim(ctx context.Context, workerID uuid.UUID, lease time.Duration) (*Item, error) {
	item, err := scanItem(s.pool.QueryRow(ctx, claimQuery, workerID, lease.String()))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNothingDue
	}
	if err != nil {
		return nil, fmt.Errorf("queue: claim: %w", err)
	}
	return &item, nil
}

func (s *PGStore) Complete(ctx context.Context, id string) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM notification_queue WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("queue: complete %s: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// failQuery guards on retry_count to keep the retry invariant under
// concurrent failers.
const failQuery = `
UPDATE notification_queue
SET retry_count = retry_count + 1,
    next_retry_at = now() + (retry_delay_ms || ' milliseconds')::interval,
    last_error = $2,
    locked_until = NULL,
    locked_by = NULL
WHERE id = $1 AND retry_count < max_retries`

func (s *PGStore) Fail(ctx context.Context, id string, errMsg string) error {
	tag, err := s.pool.Exec(ctx, failQuery, id, errMsg)
	if err != nil {
		return fmt.Errorf("queue: fail %s: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		var exists bool
		if err := s.pool.QueryRow(ctx,
			`SELECT EXISTS (SELECT 1 FROM notification_queue WHERE id = $1)`, id,
		).Scan(&exists); err != nil {
			return fmt.Errorf("queue: fail %s: %w", id, err)
		}
		if exists {
			return ErrRetriesExhausted
		}
		return ErrNotFound
	}
	return nil
}

const deferQuery = `
UPDATE notification_queue
SET next_retry_at = $2, locked_until = NULL, locked_by = NULL
WHERE id = $1`

func (s *PGStore) Defer(ctx context.Context, id string, until time.Time) error {
	tag, err := s.pool.Exec(ctx, deferQuery, id, until)
	if err != nil {
		return fmt.Errorf("queue: defer %s: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *PGStore) Release(ctx context.Context, id string) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE notification_queue SET locked_until = NULL, locked_by = NULL WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("queue: release %s: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

const getItemQuery = `
SELECT id, user_id, content, created_at,
       retry_count, max_retries, retry_delay_ms,
       next_retry_at, last_error, locked_until, locked_by
FROM notification_queue
WHERE id = $1`

func (s *PGStore) Get(ctx context.Context, id string) (Item, error) {
	item, err := scanItem(s.pool.QueryRow(ctx, getItemQuery, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return Item{}, ErrNotFound
	}
	if err != nil {
		return Item{}, fmt.Errorf("queue: get %s: %w", id, err)
	}
	return item, nil
}

func scanItem(row pgx.Row) (Item, error) {
	var (
		item    Item
		content []byte
		delayMS int64
	)
	if err := row.Scan(
		&item.ID, &item.UserID, &content, &item.CreatedAt,
		&item.RetryCount, &item.MaxRetries, &delayMS,
		&item.NextRetryAt, &item.LastError, &item.LockedUntil, &item.LockedBy,
	); err != nil {
		return Item{}, err
	}
	item.RetryDelay = time.Duration(delayMS) * time.Millisecond
	if len(content) > 0 {
		var c notification.Content
		if err := json.Unmarshal(content, &c); err != nil {
			return Item{}, fmt.Errorf("decode content: %w", err)
		}
		item.Content = c
	}
	return item, nil
}
