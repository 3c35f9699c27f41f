package audit

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PGStorage is the postgres-backed Storage.
type PGStorage struct {
	pool *pgxpool.Pool
}

// NewPGStorage creates a postgres audit storage.
func NewPGStorage(pool *pgxpool.Pool) (*PGStorage, error) {
	if pool == nil {
		return nil, errors.New("audit: pool is required")
	}
	return &PGStorage{pool: pool}, nil
}

func (s *PGStorage) Store(ctx context.Context, events []Event) error {
	if len(events) == 0 {
		return nil
	}

	batch := &pgx.Batch{}
	for _, e := range events {
		metadata, err := marshalMetadata(e.Metadata)
		if err != nil {
			return err
		}
		batch.Queue(`
			INSERT INTO audit_log (id, timestamp, event_type, user_id, description, severity, metadata, ip, user_agent)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
			e.ID, e.Timestamp, e.Type, e.UserID, e.Description, e.Severity, metadata, e.IP, e.UserAgent,
		)
	}

	results := s.pool.SendBatch(ctx, batch)
	defer results.Close()

	for range events {
		if _, err := results.Exec(); err != nil {
			return fmt.Errorf("audit: store batch: %w", err)
		}
	}
	return nil
}

func (s *PGStorage) Find(ctx context.Context, criteria Criteria) ([]Event, error) {
	var (
		conds []string
		args  []any
	)
	add := func(cond string, arg any) {
		args = append(args, arg)
		conds = append(conds, cond+"$"+strconv.Itoa(len(args)))
	}

	if criteria.UserID != "" {
		add("user_id = ", criteria.UserID)
	}
	if criteria.Type != "" {
		add("event_type = ", criteria.Type)
	}
	if criteria.Severity != "" {
		add("severity = ", criteria.Severity)
	}
	if !criteria.Since.IsZero() {
		add("timestamp >= ", criteria.Since)
	}
	if !criteria.Until.IsZero() {
		add("timestamp <= ", criteria.Until)
	}

	query := `SELECT id, timestamp, event_type, user_id, description, severity, metadata, ip, user_agent FROM audit_log`
	if len(conds) > 0 {
		query += " WHERE " + strings.Join(conds, " AND ")
	}
	query += " ORDER BY timestamp DESC"

	limit := criteria.Limit
	if limit <= 0 {
		limit = 100
	}
	args = append(args, limit)
	query += " LIMIT $" + strconv.Itoa(len(args))

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("audit: find: %w", err)
	}
	defer rows.Close()

	var out []Event
	for rows.Next() {
		var (
			e        Event
			metadata []byte
		)
		if err := rows.Scan(&e.ID, &e.Timestamp, &e.Type, &e.UserID, &e.Description, &e.Severity, &metadata, &e.IP, &e.UserAgent); err != nil {
			return nil, fmt.Errorf("audit: scan: %w", err)
		}
		if len(metadata) > 0 {
			if err := json.Unmarshal(metadata, &e.Metadata); err != nil {
				return nil, fmt.Errorf("audit: decode metadata: %w", err)
			}
		}
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("audit: find: %w", err)
	}
	return out, nil
}

func marshalMetadata(m map[string]any) ([]byte, error) {
	if len(m) == 0 {
		return nil, nil
	}
	b, err := json.Marshal(m)
	if err != nil {
		return nil, fmt.Errorf("audit: encode metadata: %w", err)
	}
	return b, nil
}
