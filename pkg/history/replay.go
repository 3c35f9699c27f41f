package history

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/dmitrymomot/notifykit/pkg/channel"
	"github.com/dmitrymomot/notifykit/pkg/logger"
	"github.com/dmitrymomot/notifykit/pkg/preference"
)

const (
	defaultReplayLimit   = 100
	defaultReplayTimeout = 30 * time.Second
)

// ReplayEngine re-delivers missed notifications when a user reconnects.
// Replay goes through the realtime socket only; push and email are never
// re-invoked, so the user gets no duplicate external notices.
type ReplayEngine struct {
	store   Store
	prefs   preference.Store
	socket  channel.Gateway
	limit   int
	timeout time.Duration
	logger  *slog.Logger
}

// ReplayOption configures a ReplayEngine.
type ReplayOption func(*ReplayEngine)

// WithReplayLimit caps the number of entries replayed per reconnect.
func WithReplayLimit(n int) ReplayOption {
	return func(e *ReplayEngine) {
		if n > 0 {
			e.limit = n
		}
	}
}

// WithReplayTimeout bounds a single replay run.
func WithReplayTimeout(d time.Duration) ReplayOption {
	return func(e *ReplayEngine) {
		if d > 0 {
			e.timeout = d
		}
	}
}

// WithReplayLogger sets the engine's logger.
func WithReplayLogger(log *slog.Logger) ReplayOption {
	return func(e *ReplayEngine) {
		if log != nil {
			e.logger = log
		}
	}
}

// NewReplayEngine creates a replay engine over the history store and the
// socket gateway.
func NewReplayEngine(store Store, prefs preference.Store, socket channel.Gateway, opts ...ReplayOption) (*ReplayEngine, error) {
	if store == nil {
		return nil, ErrStoreRequired
	}
	if prefs == nil {
		return nil, ErrPreferencesRequired
	}
	if socket == nil {
		return nil, ErrSocketRequired
	}

	e := &ReplayEngine{
		store:   store,
		prefs:   prefs,
		socket:  socket,
		limit:   defaultReplayLimit,
		timeout: defaultReplayTimeout,
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e, nil
}

// Replay pushes the user's undelivered, never-replayed history entries from
// the retention window through the socket, oldest first so the client sees
// them in original order. Returns the number of entries replayed. Users who
// disabled offline replay get none.
func (e *ReplayEngine) Replay(ctx context.Context, userID string) (int, error) {
	prefs, err := e.prefs.Get(ctx, userID)
	if err != nil {
		return 0, fmt.Errorf("history: replay %s: %w", userID, err)
	}
	if !prefs.EnableOfflineReplay {
		return 0, nil
	}

	since := time.Now().UTC().Add(-prefs.Retention())
	entries, err := e.store.ListReplayable(ctx, userID, since, e.limit)
	if err != nil {
		return 0, err
	}
	if len(entries) == 0 {
		return 0, nil
	}

	replayed := 0
	for i := len(entries) - 1; i >= 0; i-- {
		entry := entries[i]

		// Opting out of a kind covers its backlog too: the entry is
		// finalized without delivery so it stops surfacing on every
		// reconnect.
		if !prefs.Enabled(entry.Kind) {
			err := e.store.MarkReplayed(ctx, entry.NotificationID, time.Now().UTC())
			if err != nil && !errors.Is(err, ErrAlreadyReplayed) {
				return replayed, err
			}
			e.logger.LogAttrs(ctx, slog.LevelDebug, "skipping replay of disabled kind",
				logger.UserID(userID),
				logger.NotificationID(entry.NotificationID),
				slog.String("kind", string(entry.Kind)),
			)
			continue
		}

		if err := e.socket.Send(ctx, userID, entry.Content()); err != nil {
			// The user dropped off mid-replay; remaining entries stay
			// replayable for the next reconnect.
			e.logger.LogAttrs(ctx, slog.LevelDebug, "replay interrupted",
				logger.UserID(userID),
				logger.NotificationID(entry.NotificationID),
				logger.Error(err),
			)
			break
		}

		err := e.store.MarkReplayed(ctx, entry.NotificationID, time.Now().UTC())
		if err != nil && !errors.Is(err, ErrAlreadyReplayed) {
			return replayed, err
		}
		if err == nil {
			replayed++
		}
	}

	if replayed > 0 {
		e.logger.LogAttrs(ctx, slog.LevelInfo, "replayed missed notifications",
			logger.UserID(userID),
			slog.Int("count", replayed),
		)
	}
	return replayed, nil
}

// OnReconnect returns the hook the socket hub fires for each new session.
func (e *ReplayEngine) OnReconnect() func(userID string) {
	return func(userID string) {
		ctx, cancel := context.WithTimeout(context.Background(), e.timeout)
		defer cancel()

		if _, err := e.Replay(ctx, userID); err != nil {
			e.logger.LogAttrs(ctx, slog.LevelError, "offline replay failed",
				logger.UserID(userID),
				logger.Error(err),
			)
		}
	}
}
