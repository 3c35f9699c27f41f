package ratelimit

import (
	"context"
	"time"
)

// Window is a sliding window counter over a pluggable store. It tracks
// individual event timestamps inside a trailing span, which keeps the count
// exact at the window edges where fixed buckets over- or under-count.
//
// The limit is supplied per check rather than fixed at construction because
// frequency caps are a per-user setting.
type Window struct {
	store Store
	span  time.Duration
}

// NewWindow creates a sliding window counter with the given span.
func NewWindow(store Store, span time.Duration) (*Window, error) {
	if store == nil {
		return nil, ErrStoreRequired
	}
	if span <= 0 {
		return nil, ErrInvalidWindow
	}
	return &Window{store: store, span: span}, nil
}

// Span returns the trailing window duration.
func (w *Window) Span() time.Duration {
	return w.span
}

// Check reports whether one more event fits under limit without recording
// anything. ResetAt tells the caller when the oldest counted event ages out,
// which is the earliest moment a deferred notification can go through.
func (w *Window) Check(ctx context.Context, key string, limit int) (*Result, error) {
	if key == "" {
		return nil, ErrKeyRequired
	}
	if limit <= 0 {
		return nil, ErrInvalidLimit
	}

	count, err := w.store.Count(ctx, key, w.span)
	if err != nil {
		return nil, err
	}

	res := &Result{
		Allowed: count < int64(limit),
		Limit:   limit,
		Count:   int(count),
	}
	if oldest, ok, err := w.store.Oldest(ctx, key, w.span); err != nil {
		return nil, err
	} else if ok {
		res.ResetAt = oldest.Add(w.span)
	}
	return res, nil
}

// Reserve atomically claims one slot under limit, recording it when the
// window has room. Unlike Check followed by Record, concurrent callers on
// the same key cannot all observe the same free slot. Callers whose event
// does not happen after all must Release the slot so failures never
// consume budget.
func (w *Window) Reserve(ctx context.Context, key string, limit int) (*Result, error) {
	if key == "" {
		return nil, ErrKeyRequired
	}
	if limit <= 0 {
		return nil, ErrInvalidLimit
	}

	allowed, count, err := w.store.Reserve(ctx, key, time.Now(), w.span, limit)
	if err != nil {
		return nil, err
	}

	res := &Result{
		Allowed: allowed,
		Limit:   limit,
		Count:   int(count),
	}
	if !allowed {
		if oldest, ok, err := w.store.Oldest(ctx, key, w.span); err != nil {
			return nil, err
		} else if ok {
			res.ResetAt = oldest.Add(w.span)
		}
	}
	return res, nil
}

// Release refunds the most recent reservation for the key.
func (w *Window) Release(ctx context.Context, key string) error {
	if key == "" {
		return ErrKeyRequired
	}
	return w.store.Release(ctx, key, w.span)
}

// Record adds one event to the window at the current time.
func (w *Window) Record(ctx context.Context, key string) error {
	if key == "" {
		return ErrKeyRequired
	}
	return w.store.Record(ctx, key, time.Now(), w.span)
}

// Reset clears the window for the given key.
func (w *Window) Reset(ctx context.Context, key string) error {
	if key == "" {
		return ErrKeyRequired
	}
	return w.store.Delete(ctx, key)
}
