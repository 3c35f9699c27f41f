package preference

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/dmitrymomot/notifykit/pkg/notification"
)

// PGStore is the postgres-backed Store.
type PGStore struct {
	pool *pgxpool.Pool
}

// NewPGStore creates a postgres preference store.
func NewPGStore(pool *pgxpool.Pool) (*PGStore, error) {
	if pool == nil {
		return nil, errors.New("preference: pool is required")
	}
	return &PGStore{pool: pool}, nil
}

const getPrefsQuery = `
SELECT method, kind_enabled, kind_method,
       quiet_enabled, quiet_start, quiet_end, quiet_timezone,
       caps_enabled, cap_per_hour, cap_per_day,
       delivery_confirmation, read_receipts, history_days, offline_replay,
       updated_at
FROM user_preferences
WHERE user_id = $1`

func (s *PGStore) Get(ctx context.Context, userID string) (Preferences, error) {
	var (
		p                       = Preferences{UserID: userID}
		kindEnabled, kindMethod []byte
	)

	err := s.pool.QueryRow(ctx, getPrefsQuery, userID).Scan(
		&p.Method, &kindEnabled, &kindMethod,
		&p.QuietHours.Enabled, &p.QuietHours.Start, &p.QuietHours.End, &p.QuietHours.Timezone,
		&p.Caps.Enabled, &p.Caps.PerHour, &p.Caps.PerDay,
		&p.EnableDeliveryConfirmation, &p.EnableReadReceipts, &p.HistoryDays, &p.EnableOfflineReplay,
		&p.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return Default(userID), nil
	}
	if err != nil {
		return Preferences{}, fmt.Errorf("preference: get %s: %w", userID, err)
	}

	if len(kindEnabled) > 0 {
		if err := json.Unmarshal(kindEnabled, &p.KindEnabled); err != nil {
			return Preferences{}, fmt.Errorf("preference: decode kind_enabled: %w", err)
		}
	}
	if len(kindMethod) > 0 {
		if err := json.Unmarshal(kindMethod, &p.KindMethod); err != nil {
			return Preferences{}, fmt.Errorf("preference: decode kind_method: %w", err)
		}
	}
	return p, nil
}

const savePrefsQuery = `
INSERT INTO user_preferences (
	user_id, method, kind_enabled, kind_method,
	quiet_enabled, quiet_start, quiet_end, quiet_timezone,
	caps_enabled, cap_per_hour, cap_per_day,
	delivery_confirmation, read_receipts, history_days, offline_replay,
	updated_at
) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)
ON CONFLICT (user_id) DO UPDATE SET
	method = EXCLUDED.method,
	kind_enabled = EXCLUDED.kind_enabled,
	kind_method = EXCLUDED.kind_method,
	quiet_enabled = EXCLUDED.quiet_enabled,
	quiet_start = EXCLUDED.quiet_start,
	quiet_end = EXCLUDED.quiet_end,
	quiet_timezone = EXCLUDED.quiet_timezone,
	caps_enabled = EXCLUDED.caps_enabled,
	cap_per_hour = EXCLUDED.cap_per_hour,
	cap_per_day = EXCLUDED.cap_per_day,
	delivery_confirmation = EXCLUDED.delivery_confirmation,
	read_receipts = EXCLUDED.read_receipts,
	history_days = EXCLUDED.history_days,
	offline_replay = EXCLUDED.offline_replay,
	updated_at = EXCLUDED.updated_at`

func (s *PGStore) Save(ctx context.Context, prefs Preferences) error {
	if err := prefs.Validate(); err != nil {
		return err
	}

	kindEnabled, err := marshalKindMap(prefs.KindEnabled)
	if err != nil {
		return err
	}
	kindMethod, err := marshalKindMap(prefs.KindMethod)
	if err != nil {
		return err
	}

	_, err = s.pool.Exec(ctx, savePrefsQuery,
		prefs.UserID, prefs.Method, kindEnabled, kindMethod,
		prefs.QuietHours.Enabled, prefs.QuietHours.Start, prefs.QuietHours.End, prefs.QuietHours.Timezone,
		prefs.Caps.Enabled, prefs.Caps.PerHour, prefs.Caps.PerDay,
		prefs.EnableDeliveryConfirmation, prefs.EnableReadReceipts, prefs.HistoryDays, prefs.EnableOfflineReplay,
		time.Now(),
	)
	if err != nil {
		return fmt.Errorf("preference: save %s: %w", prefs.UserID, err)
	}
	return nil
}

func (s *PGStore) Delete(ctx context.Context, userID string) error {
	if _, err := s.pool.Exec(ctx, `DELETE FROM user_preferences WHERE user_id = $1`, userID); err != nil {
		return fmt.Errorf("preference: delete %s: %w", userID, err)
	}
	return nil
}

func marshalKindMap[V any](m map[notification.Kind]V) ([]byte, error) {
	if len(m) == 0 {
		return nil, nil
	}
	b, err := json.Marshal(m)
	if err != nil {
		return nil, fmt.Errorf("preference: encode kind map: %w", err)
	}
	return b, nil
}
