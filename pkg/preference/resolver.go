package preference

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/dmitrymomot/notifykit/pkg/channel"
	"github.com/dmitrymomot/notifykit/pkg/logger"
	"github.com/dmitrymomot/notifykit/pkg/notification"
	"github.com/dmitrymomot/notifykit/pkg/ratelimit"
)

// Action is the resolver's verdict for one notification.
type Action int

const (
	// ActionAllow means dispatch now through the resolved channel order.
	ActionAllow Action = iota

	// ActionDefer means queue and retry at Decision.Until.
	ActionDefer

	// ActionDrop means suppress without delivery.
	ActionDrop
)

func (a Action) String() string {
	switch a {
	case ActionAllow:
		return "allow"
	case ActionDefer:
		return "defer"
	case ActionDrop:
		return "drop"
	default:
		return "unknown"
	}
}

// Deferral and drop reasons surfaced in logs and queue records.
const (
	ReasonKindDisabled   = "kind disabled by user"
	ReasonMethodDisabled = "delivery method disabled"
	ReasonQuietHours     = "quiet hours"
	ReasonFrequencyCap   = "frequency cap reached"
)

// Decision is the outcome of resolving one notification against the user's
// preferences at a point in time.
type Decision struct {
	Action Action

	// Channels is the ordered fallback chain for ActionAllow. May be empty
	// when the user has no reachable channel; the engine queues the
	// notification in that case.
	Channels []channel.Gateway

	// Until is when a deferred notification becomes due.
	Until time.Time

	// Reason explains a deferral or drop.
	Reason string

	// CapReserved marks an ActionAllow that claimed a frequency-cap slot.
	// The caller must hand the slot back via ReleaseCap when the dispatch
	// fails, or the failed attempt would count against the user's budget.
	CapReserved bool
}

// DeliveredCounter reports how many notifications reached a user over a
// trailing window. *confirmation.Tracker satisfies it.
type DeliveredCounter interface {
	DeliveredCount(ctx context.Context, userID string, window time.Duration) (int, error)
}

// Resolver turns (user, kind, now) into an allow/defer/drop decision plus a
// channel order. Preferences are re-read on every call so a retry always
// sees the user's current settings.
type Resolver struct {
	store    Store
	selector *channel.Selector
	hourly   *ratelimit.Window
	daily    *ratelimit.Window
	counter  DeliveredCounter
	logger   *slog.Logger
}

// ResolverOption configures a Resolver.
type ResolverOption func(*Resolver)

// WithFrequencyWindows enables frequency-cap checks against the given
// hourly and daily sliding windows. Either may be nil to skip that window.
func WithFrequencyWindows(hourly, daily *ratelimit.Window) ResolverOption {
	return func(r *Resolver) {
		r.hourly = hourly
		r.daily = daily
	}
}

// WithDeliveredCounter sets the fallback source for frequency-cap checks.
// When a window store is unreachable the resolver counts delivered
// confirmations instead of failing the resolution outright.
func WithDeliveredCounter(c DeliveredCounter) ResolverOption {
	return func(r *Resolver) {
		r.counter = c
	}
}

// WithResolverLogger sets the resolver's logger.
func WithResolverLogger(log *slog.Logger) ResolverOption {
	return func(r *Resolver) {
		if log != nil {
			r.logger = log
		}
	}
}

// NewResolver creates a preference resolver.
func NewResolver(store Store, selector *channel.Selector, opts ...ResolverOption) (*Resolver, error) {
	if store == nil {
		return nil, ErrStoreRequired
	}
	if selector == nil {
		return nil, ErrSelectorRequired
	}

	r := &Resolver{
		store:    store,
		selector: selector,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r, nil
}

// Resolve decides whether and how to deliver a notification of the given
// kind to the user right now.
func (r *Resolver) Resolve(ctx context.Context, userID string, kind notification.Kind, now time.Time) (Decision, error) {
	prefs, err := r.store.Get(ctx, userID)
	if err != nil {
		return Decision{}, fmt.Errorf("preference: resolve %s: %w", userID, err)
	}

	if !prefs.Enabled(kind) {
		return Decision{Action: ActionDrop, Reason: ReasonKindDisabled}, nil
	}

	method := prefs.EffectiveMethod(kind)
	if method == MethodDisabled {
		return Decision{Action: ActionDrop, Reason: ReasonMethodDisabled}, nil
	}

	if !kind.Urgent() {
		inWindow, until, err := prefs.QuietHours.Window(now)
		if err != nil {
			// A window that cannot be evaluated must not block delivery.
			r.logger.LogAttrs(ctx, slog.LevelWarn, "skipping unevaluable quiet hours window",
				logger.UserID(userID),
				logger.Error(err),
			)
		} else if inWindow {
			return Decision{Action: ActionDefer, Until: until, Reason: ReasonQuietHours}, nil
		}
	}

	reserved := false
	if prefs.Caps.Enabled {
		hourlyTaken, d, capped, err := r.reserveCap(ctx, r.hourly, userID, HourlyCapKey(userID), prefs.Caps.PerHour, now)
		if err != nil {
			return Decision{}, err
		}
		if capped {
			return d, nil
		}

		dailyTaken, d, capped, err := r.reserveCap(ctx, r.daily, userID, DailyCapKey(userID), prefs.Caps.PerDay, now)
		if err != nil {
			if hourlyTaken {
				r.releaseWindow(ctx, r.hourly, HourlyCapKey(userID))
			}
			return Decision{}, err
		}
		if capped {
			// The hourly slot was claimed before the daily window said no.
			if hourlyTaken {
				r.releaseWindow(ctx, r.hourly, HourlyCapKey(userID))
			}
			return d, nil
		}
		reserved = hourlyTaken || dailyTaken
	}

	return Decision{
		Action:      ActionAllow,
		Channels:    r.selector.Order(ctx, userID, method.Only()),
		CapReserved: reserved,
	}, nil
}

// ReleaseCap refunds the frequency-cap slot claimed by an ActionAllow
// decision. Called when the dispatch that followed failed outright, so the
// budget only ever counts deliveries that happened or are still in flight.
func (r *Resolver) ReleaseCap(ctx context.Context, userID string) {
	r.releaseWindow(ctx, r.hourly, HourlyCapKey(userID))
	r.releaseWindow(ctx, r.daily, DailyCapKey(userID))
}

// reserveCap claims one slot in the window, atomically with the check; a
// full window defers, never drops.
func (r *Resolver) reserveCap(ctx context.Context, w *ratelimit.Window, userID, key string, limit int, now time.Time) (bool, Decision, bool, error) {
	if w == nil || limit <= 0 {
		return false, Decision{}, false, nil
	}

	res, err := w.Reserve(ctx, key, limit)
	if err != nil {
		if r.counter == nil {
			return false, Decision{}, false, fmt.Errorf("preference: frequency cap check: %w", err)
		}
		return r.countCap(ctx, userID, w.Span(), limit, now, err)
	}
	if res.Allowed {
		return true, Decision{}, false, nil
	}

	until := res.ResetAt
	if until.IsZero() || until.Before(now) {
		until = now.Add(time.Minute)
	}
	return false, Decision{Action: ActionDefer, Until: until, Reason: ReasonFrequencyCap}, true, nil
}

// countCap approximates the cap from delivered confirmations when the
// window store is unreachable. No slot is reserved, so the caller never
// needs to release one.
func (r *Resolver) countCap(ctx context.Context, userID string, span time.Duration, limit int, now time.Time, cause error) (bool, Decision, bool, error) {
	r.logger.LogAttrs(ctx, slog.LevelWarn, "frequency cap window unavailable, counting delivered confirmations",
		logger.UserID(userID),
		logger.Error(cause),
	)

	count, err := r.counter.DeliveredCount(ctx, userID, span)
	if err != nil {
		return false, Decision{}, false, fmt.Errorf("preference: frequency cap fallback: %w", errors.Join(cause, err))
	}
	if count >= limit {
		return false, Decision{Action: ActionDefer, Until: now.Add(time.Minute), Reason: ReasonFrequencyCap}, true, nil
	}
	return false, Decision{}, false, nil
}

func (r *Resolver) releaseWindow(ctx context.Context, w *ratelimit.Window, key string) {
	if w == nil {
		return
	}
	if err := w.Release(ctx, key); err != nil {
		r.logger.LogAttrs(ctx, slog.LevelError, "failed to release frequency cap slot",
			logger.Error(err),
		)
	}
}
