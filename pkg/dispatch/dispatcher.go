package dispatch

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/dmitrymomot/notifykit/pkg/audit"
	"github.com/dmitrymomot/notifykit/pkg/channel"
	"github.com/dmitrymomot/notifykit/pkg/confirmation"
	"github.com/dmitrymomot/notifykit/pkg/logger"
	"github.com/dmitrymomot/notifykit/pkg/notification"
)

const (
	defaultChannelTimeout     = 10 * time.Second
	defaultPermanentFailLimit = 5
)

// Dispatcher walks a notification down its channel fallback chain. Each
// attempt is recorded as a confirmation; the walk stops at the first
// delivery. Transient and permanent failures both fall through to the next
// channel; the distinction matters to the caller, who never retries a
// permanently failed channel in the same attempt.
type Dispatcher struct {
	tracker *confirmation.Tracker
	auditor *audit.Logger
	timeout time.Duration
	logger  *slog.Logger

	// configLogged dedupes missing-credential warnings per user+channel.
	configLogged sync.Map

	// permFailures counts consecutive permanent failures per user. At the
	// limit an audit event flags a likely token or address invalidation.
	permFailures  sync.Map
	permFailLimit int
}

// DispatcherOption configures a Dispatcher.
type DispatcherOption func(*Dispatcher)

// WithChannelTimeout bounds each channel send. Exceeding it counts as a
// transient failure.
func WithChannelTimeout(d time.Duration) DispatcherOption {
	return func(dp *Dispatcher) {
		if d > 0 {
			dp.timeout = d
		}
	}
}

// WithAuditor enables audit events for repeated permanent failures.
func WithAuditor(a *audit.Logger) DispatcherOption {
	return func(dp *Dispatcher) {
		dp.auditor = a
	}
}

// WithPermanentFailLimit sets how many permanent failures a user
// accumulates before the audit event fires.
func WithPermanentFailLimit(n int) DispatcherOption {
	return func(dp *Dispatcher) {
		if n > 0 {
			dp.permFailLimit = n
		}
	}
}

// WithDispatcherLogger sets the dispatcher's logger.
func WithDispatcherLogger(log *slog.Logger) DispatcherOption {
	return func(dp *Dispatcher) {
		if log != nil {
			dp.logger = log
		}
	}
}

// NewDispatcher creates a channel dispatcher.
func NewDispatcher(tracker *confirmation.Tracker, opts ...DispatcherOption) (*Dispatcher, error) {
	if tracker == nil {
		return nil, ErrTrackerRequired
	}

	d := &Dispatcher{
		tracker:       tracker,
		timeout:       defaultChannelTimeout,
		permFailLimit: defaultPermanentFailLimit,
		logger:        slog.Default(),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d, nil
}

// Dispatch tries each gateway in order until one delivers. Returns nil on
// delivery; ErrNoChannels when the chain is empty; otherwise the joined
// channel errors. retryCount is stamped on every confirmation written
// during this walk.
func (d *Dispatcher) Dispatch(ctx context.Context, userID, notificationID string, content notification.Content, order []channel.Gateway, retryCount int) error {
	if len(order) == 0 {
		return ErrNoChannels
	}

	var errs []error
	for _, gw := range order {
		ch := gw.Name()

		if err := d.tracker.Attempt(ctx, userID, notificationID, content.Kind, ch, retryCount); err != nil {
			d.logger.LogAttrs(ctx, slog.LevelError, "failed to record attempt",
				logger.NotificationID(notificationID),
				logger.Channel(string(ch)),
				logger.Error(err),
			)
		}

		sendCtx, cancel := context.WithTimeout(ctx, d.timeout)
		err := gw.Send(sendCtx, userID, content)
		cancel()

		switch channel.Classify(err) {
		case channel.OutcomeDelivered:
			d.delivered(ctx, userID, notificationID, ch)
			return nil

		case channel.OutcomeTransient:
			d.failed(ctx, userID, notificationID, content.Kind, ch, retryCount, err)
			d.logger.LogAttrs(ctx, slog.LevelDebug, "transient channel failure",
				logger.UserID(userID),
				logger.NotificationID(notificationID),
				logger.Channel(string(ch)),
				logger.Error(err),
			)
			errs = append(errs, err)

		case channel.OutcomePermanent:
			d.failed(ctx, userID, notificationID, content.Kind, ch, retryCount, err)
			d.permanent(ctx, userID, notificationID, ch, err)
			errs = append(errs, err)
		}
	}

	return errors.Join(append([]error{ErrAllChannelsFailed}, errs...)...)
}

func (d *Dispatcher) delivered(ctx context.Context, userID, notificationID string, ch channel.Name) {
	if err := d.tracker.Delivered(ctx, notificationID, ch); err != nil {
		d.logger.LogAttrs(ctx, slog.LevelError, "failed to record delivery",
			logger.NotificationID(notificationID),
			logger.Channel(string(ch)),
			logger.Error(err),
		)
	}

	d.permFailures.Delete(userID)

	d.logger.LogAttrs(ctx, slog.LevelInfo, "notification delivered",
		logger.UserID(userID),
		logger.NotificationID(notificationID),
		logger.Channel(string(ch)),
	)
}

func (d *Dispatcher) failed(ctx context.Context, userID, notificationID string, kind notification.Kind, ch channel.Name, retryCount int, err error) {
	if terr := d.tracker.Failed(ctx, userID, notificationID, kind, ch, retryCount, err); terr != nil {
		d.logger.LogAttrs(ctx, slog.LevelError, "failed to record failure",
			logger.NotificationID(notificationID),
			logger.Channel(string(ch)),
			logger.Error(terr),
		)
	}
}

// permanent handles the permanent-failure side effects: one-time logging
// of missing credentials and the repeated-failure audit signal.
func (d *Dispatcher) permanent(ctx context.Context, userID, notificationID string, ch channel.Name, err error) {
	if errors.Is(err, channel.ErrConfigurationMissing) {
		key := userID + "|" + string(ch)
		if _, loaded := d.configLogged.LoadOrStore(key, struct{}{}); !loaded {
			d.logger.LogAttrs(ctx, slog.LevelWarn, "channel credential missing",
				logger.UserID(userID),
				logger.Channel(string(ch)),
				logger.Error(err),
			)
		}
		return
	}

	count, _ := d.permFailures.LoadOrStore(userID, new(atomic.Int64))
	n := count.(*atomic.Int64).Add(1)
	if int(n) == d.permFailLimit && d.auditor != nil {
		if aerr := d.auditor.Log(ctx, audit.EventPermanentFailures,
			"repeated permanent channel failures, possible credential invalidation",
			audit.WithUser(userID),
			audit.WithSeverity(audit.SeverityCritical),
			audit.WithMetadata("channel", string(ch)),
			audit.WithMetadata("failures", n),
			audit.WithMetadata("notification_id", notificationID),
		); aerr != nil {
			d.logger.LogAttrs(ctx, slog.LevelError, "failed to write audit event",
				logger.Error(aerr),
			)
		}
	}
}
