package dispatch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/dmitrymomot/notifykit/pkg/audit"
	"github.com/dmitrymomot/notifykit/pkg/confirmation"
	"github.com/dmitrymomot/notifykit/pkg/history"
	"github.com/dmitrymomot/notifykit/pkg/logger"
	"github.com/dmitrymomot/notifykit/pkg/notification"
	"github.com/dmitrymomot/notifykit/pkg/preference"
	"github.com/dmitrymomot/notifykit/pkg/queue"
)

const (
	defaultEngineWorkers  = 8
	defaultDeliverTimeout = time.Minute
)

// Engine is the Notify entry point and the glue between the resolver, the
// dispatcher, the retry queue and history. Producing event sources call
// Notify and never block on, or learn about, the delivery outcome.
type Engine struct {
	resolver   *preference.Resolver
	dispatcher *Dispatcher
	queue      queue.Store
	history    history.Store
	tracker    *confirmation.Tracker
	auditor    *audit.Logger
	logger     *slog.Logger

	maxRetries int
	retryDelay time.Duration
	timeout    time.Duration

	sem    chan struct{}
	wg     sync.WaitGroup
	mu     sync.Mutex
	closed bool
}

// EngineOption configures an Engine.
type EngineOption func(*Engine)

// WithMaxRetries sets the retry budget stamped on queued notifications.
func WithMaxRetries(n int) EngineOption {
	return func(e *Engine) {
		if n > 0 {
			e.maxRetries = n
		}
	}
}

// WithRetryDelay sets the fixed delay between retry attempts.
func WithRetryDelay(d time.Duration) EngineOption {
	return func(e *Engine) {
		if d > 0 {
			e.retryDelay = d
		}
	}
}

// WithWorkers bounds the number of concurrent first-attempt dispatches.
func WithWorkers(n int) EngineOption {
	return func(e *Engine) {
		if n > 0 {
			e.sem = make(chan struct{}, n)
		}
	}
}

// WithDeliverTimeout bounds one full dispatch walk.
func WithDeliverTimeout(d time.Duration) EngineOption {
	return func(e *Engine) {
		if d > 0 {
			e.timeout = d
		}
	}
}

// WithEngineAuditor enables audit events for exhausted notifications.
func WithEngineAuditor(a *audit.Logger) EngineOption {
	return func(e *Engine) {
		e.auditor = a
	}
}

// WithEngineLogger sets the engine's logger.
func WithEngineLogger(log *slog.Logger) EngineOption {
	return func(e *Engine) {
		if log != nil {
			e.logger = log
		}
	}
}

// NewEngine creates a delivery engine.
func NewEngine(
	resolver *preference.Resolver,
	dispatcher *Dispatcher,
	queueStore queue.Store,
	historyStore history.Store,
	tracker *confirmation.Tracker,
	opts ...EngineOption,
) (*Engine, error) {
	if resolver == nil {
		return nil, ErrResolverRequired
	}
	if dispatcher == nil {
		return nil, ErrDispatcherRequired
	}
	if queueStore == nil {
		return nil, ErrQueueRequired
	}
	if historyStore == nil {
		return nil, ErrHistoryRequired
	}
	if tracker == nil {
		return nil, ErrTrackerRequired
	}

	e := &Engine{
		resolver:   resolver,
		dispatcher: dispatcher,
		queue:      queueStore,
		history:    historyStore,
		tracker:    tracker,
		logger:     slog.Default(),
		maxRetries: queue.DefaultMaxRetries,
		retryDelay: queue.DefaultRetryDelay,
		timeout:    defaultDeliverTimeout,
		sem:        make(chan struct{}, defaultEngineWorkers),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e, nil
}

// Notify accepts a notification for the user and returns its id. The
// history entry is written synchronously so the notification is never
// lost; delivery itself happens on a background worker and its outcome is
// observable only through the status query and history.
func (e *Engine) Notify(ctx context.Context, userID string, content notification.Content) (string, error) {
	if userID == "" {
		return "", fmt.Errorf("%w: user id is required", notification.ErrInvalidContent)
	}
	if err := content.Validate(); err != nil {
		return "", err
	}

	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return "", ErrEngineClosed
	}
	e.wg.Add(1)
	e.mu.Unlock()

	id := uuid.New().String()
	if err := e.history.Create(ctx, history.NewEntry(userID, id, content)); err != nil {
		e.wg.Done()
		return "", err
	}

	go func() {
		defer e.wg.Done()

		e.sem <- struct{}{}
		defer func() { <-e.sem }()

		ctx, cancel := context.WithTimeout(context.Background(), e.timeout)
		defer cancel()
		e.deliver(ctx, userID, id, content)
	}()

	return id, nil
}

// deliver runs the first dispatch attempt. Anything short of delivery or
// an explicit drop lands in the retry queue.
func (e *Engine) deliver(ctx context.Context, userID, id string, content notification.Content) {
	decision, err := e.resolver.Resolve(ctx, userID, content.Kind, time.Now().UTC())
	if err != nil {
		e.logger.LogAttrs(ctx, slog.LevelError, "preference resolution failed",
			logger.UserID(userID),
			logger.NotificationID(id),
			logger.Error(err),
		)
		e.enqueue(ctx, userID, id, content, time.Time{}, 0, err)
		return
	}

	switch decision.Action {
	case preference.ActionDrop:
		e.logger.LogAttrs(ctx, slog.LevelDebug, "notification dropped",
			logger.UserID(userID),
			logger.NotificationID(id),
			slog.String("reason", decision.Reason),
		)

	case preference.ActionDefer:
		e.enqueue(ctx, userID, id, content, decision.Until, 0, nil)

	case preference.ActionAllow:
		err := e.dispatcher.Dispatch(ctx, userID, id, content, decision.Channels, 0)
		if err == nil {
			e.finalizeDelivered(ctx, id)
			return
		}
		if decision.CapReserved {
			e.resolver.ReleaseCap(ctx, userID)
		}
		// The first failed attempt consumes the initial try, so the queue
		// item starts at retry count one.
		e.enqueue(ctx, userID, id, content, time.Time{}, 1, err)
	}
}

func (e *Engine) enqueue(ctx context.Context, userID, id string, content notification.Content, until time.Time, retryCount int, cause error) {
	item := queue.Item{
		ID:         id,
		UserID:     userID,
		Content:    content,
		RetryCount: retryCount,
		MaxRetries: e.maxRetries,
		RetryDelay: e.retryDelay,
	}
	if !until.IsZero() {
		item.NextRetryAt = until
	}
	if cause != nil {
		item.LastError = cause.Error()
	}

	if err := e.queue.Enqueue(ctx, item); err != nil {
		e.logger.LogAttrs(ctx, slog.LevelError, "failed to enqueue notification",
			logger.UserID(userID),
			logger.NotificationID(id),
			logger.Error(err),
		)
	}
}

func (e *Engine) finalizeDelivered(ctx context.Context, id string) {
	if err := e.history.MarkDelivered(ctx, id, time.Now().UTC()); err != nil {
		e.logger.LogAttrs(ctx, slog.LevelError, "failed to finalize history entry",
			logger.NotificationID(id),
			logger.Error(err),
		)
	}
}

// Redispatch re-runs the full pipeline for a queued item. The resolver is
// consulted again, so preference changes made since the last attempt take
// effect before any channel send.
func (e *Engine) Redispatch(ctx context.Context, item queue.Item) queue.Result {
	decision, err := e.resolver.Resolve(ctx, item.UserID, item.Content.Kind, time.Now().UTC())
	if err != nil {
		return queue.Result{Disposition: queue.DispositionFailed, Err: err}
	}

	switch decision.Action {
	case preference.ActionDrop:
		e.logger.LogAttrs(ctx, slog.LevelDebug, "queued notification dropped",
			logger.UserID(item.UserID),
			logger.NotificationID(item.ID),
			slog.String("reason", decision.Reason),
		)
		return queue.Result{Disposition: queue.DispositionDropped}

	case preference.ActionDefer:
		return queue.Result{Disposition: queue.DispositionDeferred, Until: decision.Until}
	}

	err = e.dispatcher.Dispatch(ctx, item.UserID, item.ID, item.Content, decision.Channels, item.RetryCount)
	if err == nil {
		e.finalizeDelivered(ctx, item.ID)
		return queue.Result{Disposition: queue.DispositionDelivered}
	}
	if decision.CapReserved {
		e.resolver.ReleaseCap(ctx, item.UserID)
	}
	return queue.Result{Disposition: queue.DispositionFailed, Err: err}
}

// Exhausted finalizes a notification that ran out of retries: the history
// entry stays undelivered for offline replay and the failure is audited
// with warning severity.
func (e *Engine) Exhausted(ctx context.Context, item queue.Item) {
	e.logger.LogAttrs(ctx, slog.LevelWarn, "notification retries exhausted",
		logger.UserID(item.UserID),
		logger.NotificationID(item.ID),
		logger.RetryCount(item.RetryCount),
		slog.String("last_error", item.LastError),
	)

	if e.auditor == nil {
		return
	}
	if err := e.auditor.Log(ctx, audit.EventRetriesExhausted,
		"notification failed on every channel after all retries",
		audit.WithUser(item.UserID),
		audit.WithSeverity(audit.SeverityWarning),
		audit.WithMetadata("notification_id", item.ID),
		audit.WithMetadata("kind", string(item.Content.Kind)),
		audit.WithMetadata("retry_count", item.RetryCount),
		audit.WithMetadata("last_error", item.LastError),
	); err != nil {
		e.logger.LogAttrs(ctx, slog.LevelError, "failed to write audit event",
			logger.Error(err),
		)
	}
}

// Status is the delivery state of one notification.
type Status struct {
	Entry    history.Entry              `json:"entry"`
	Attempts []confirmation.Confirmation `json:"attempts,omitempty"`

	// Queued is set while the notification waits for a retry.
	Queued *queue.Item `json:"queued,omitempty"`
}

// DeliveryStatus returns the notification's history entry, its per-channel
// attempts and, if still pending, its queue state.
func (e *Engine) DeliveryStatus(ctx context.Context, notificationID string) (Status, error) {
	entry, err := e.history.Get(ctx, notificationID)
	if err != nil {
		return Status{}, err
	}

	attempts, err := e.tracker.Status(ctx, notificationID)
	if err != nil {
		return Status{}, err
	}

	status := Status{Entry: entry, Attempts: attempts}
	if item, err := e.queue.Get(ctx, notificationID); err == nil {
		status.Queued = &item
	} else if !errors.Is(err, queue.ErrNotFound) {
		return Status{}, err
	}
	return status, nil
}

// Close stops accepting notifications and waits for in-flight first
// attempts to finish.
func (e *Engine) Close() error {
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return nil
	}
	e.closed = true
	e.mu.Unlock()

	e.wg.Wait()
	return nil
}
