package queue

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/dmitrymomot/notifykit/pkg/logger"
)

// Disposition is the terminal classification of one redispatch attempt.
type Disposition int

const (
	// DispositionDelivered removes the item; a channel accepted it.
	DispositionDelivered Disposition = iota

	// DispositionDeferred reschedules the item without consuming a retry.
	DispositionDeferred

	// DispositionFailed consumes a retry; the item is rescheduled one
	// RetryDelay ahead, or exhausted if none remain.
	DispositionFailed

	// DispositionDropped removes the item; the user opted out.
	DispositionDropped
)

func (d Disposition) String() string {
	switch d {
	case DispositionDelivered:
		return "delivered"
	case DispositionDeferred:
		return "deferred"
	case DispositionFailed:
		return "failed"
	case DispositionDropped:
		return "dropped"
	default:
		return "unknown"
	}
}

// Result is a Redispatcher's verdict for one claimed item.
type Result struct {
	Disposition Disposition

	// Until is when a deferred item becomes due again.
	Until time.Time

	// Err is the failure recorded on the item for DispositionFailed.
	Err error
}

// Redispatcher re-enters a claimed item into the delivery pipeline.
// Preferences are re-resolved inside, so a retry always honors the user's
// current settings.
type Redispatcher interface {
	// Redispatch runs the full resolve-select-dispatch pipeline for the
	// item.
	Redispatch(ctx context.Context, item Item) Result

	// Exhausted is called once when an item runs out of retries, before
	// its removal from the queue.
	Exhausted(ctx context.Context, item Item)
}

// Scheduler polls the queue for due items and redispatches them through a
// bounded worker pool. Every claim takes a lease, so multiple scheduler
// processes can share one queue.
type Scheduler struct {
	store        Store
	redispatcher Redispatcher
	workerID     uuid.UUID
	sem          chan struct{}
	wg           sync.WaitGroup
	mu           sync.Mutex
	stopMu       sync.Mutex
	logger       *slog.Logger

	pollInterval time.Duration
	lease        time.Duration

	ctx      context.Context
	cancel   context.CancelFunc
	stopping atomic.Bool
}

// SchedulerOption configures a Scheduler.
type SchedulerOption func(*Scheduler)

// WithPollInterval sets how often the due-queue scan runs.
func WithPollInterval(d time.Duration) SchedulerOption {
	return func(s *Scheduler) {
		if d > 0 {
			s.pollInterval = d
		}
	}
}

// WithLease sets the visibility timeout taken on claimed items. Must
// comfortably exceed the slowest full dispatch.
func WithLease(d time.Duration) SchedulerOption {
	return func(s *Scheduler) {
		if d > 0 {
			s.lease = d
		}
	}
}

// WithConcurrency bounds the number of in-flight redispatches.
func WithConcurrency(n int) SchedulerOption {
	return func(s *Scheduler) {
		if n > 0 {
			s.sem = make(chan struct{}, n)
		}
	}
}

// WithSchedulerLogger sets the scheduler's logger.
func WithSchedulerLogger(log *slog.Logger) SchedulerOption {
	return func(s *Scheduler) {
		if log != nil {
			s.logger = log
		}
	}
}

// NewScheduler creates a retry scheduler.
func NewScheduler(store Store, redispatcher Redispatcher, opts ...SchedulerOption) (*Scheduler, error) {
	if store == nil {
		return nil, ErrStoreRequired
	}
	if redispatcher == nil {
		return nil, ErrRedispatcherRequired
	}

	s := &Scheduler{
		store:        store,
		redispatcher: redispatcher,
		workerID:     uuid.New(),
		sem:          make(chan struct{}, 4),
		logger:       slog.Default(),
		pollInterval: 5 * time.Second,
		lease:        2 * time.Minute,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Start begins polling in the background.
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.cancel != nil {
		s.mu.Unlock()
		return errors.New("queue: scheduler already started")
	}
	s.ctx, s.cancel = context.WithCancel(ctx)
	s.mu.Unlock()

	s.stopping.Store(false)
	go s.run()

	s.logger.LogAttrs(ctx, slog.LevelInfo, "retry scheduler started",
		slog.String("worker_id", s.workerID.String()),
		slog.Duration("poll_interval", s.pollInterval),
		slog.Int("concurrency", cap(s.sem)),
	)
	return nil
}

// Stop cancels polling and waits for in-flight redispatches to finish.
func (s *Scheduler) Stop() error {
	s.mu.Lock()
	if s.cancel == nil {
		s.mu.Unlock()
		return errors.New("queue: scheduler not started")
	}

	s.stopMu.Lock()
	s.stopping.Store(true)
	s.stopMu.Unlock()

	cancel := s.cancel
	s.cancel = nil
	s.mu.Unlock()

	cancel()
	s.wg.Wait()

	s.logger.Info("retry scheduler stopped",
		slog.String("worker_id", s.workerID.String()))
	return nil
}

// Run returns a function suitable for errgroup.
func (s *Scheduler) Run(ctx context.Context) func() error {
	return func() error {
		if err := s.Start(ctx); err != nil {
			return err
		}
		<-ctx.Done()
		return s.Stop()
	}
}

func (s *Scheduler) run() {
	ticker := time.NewTicker(s.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-s.ctx.Done():
			return
		case <-ticker.C:
			s.drain()
		}
	}
}

// drain claims and processes due items until the queue is empty or every
// slot is busy.
func (s *Scheduler) drain() {
	for {
		select {
		case s.sem <- struct{}{}:
		default:
			return
		}

		item, err := s.store.Claim(s.ctx, s.workerID, s.lease)
		if err != nil {
			<-s.sem
			if !errors.Is(err, ErrNothingDue) && !errors.Is(err, context.Canceled) {
				s.logger.LogAttrs(s.ctx, slog.LevelError, "queue claim failed",
					logger.Error(err),
				)
			}
			return
		}

		s.stopMu.Lock()
		if s.stopping.Load() {
			s.stopMu.Unlock()
			<-s.sem
			_ = s.store.Release(context.Background(), item.ID)
			return
		}
		s.wg.Add(1)
		s.stopMu.Unlock()

		go func(item Item) {
			defer s.wg.Done()
			defer func() { <-s.sem }()
			s.process(item)
		}(*item)
	}
}

func (s *Scheduler) process(item Item) {
	ctx := s.ctx

	res := s.redispatcher.Redispatch(ctx, item)

	switch res.Disposition {
	case DispositionDelivered, DispositionDropped:
		if err := s.store.Complete(ctx, item.ID); err != nil && !errors.Is(err, ErrNotFound) {
			s.logger.LogAttrs(ctx, slog.LevelError, "failed to remove queue item",
				logger.NotificationID(item.ID),
				logger.Error(err),
			)
		}

	case DispositionDeferred:
		until := res.Until
		if until.IsZero() {
			until = time.Now().UTC().Add(item.RetryDelay)
		}
		if err := s.store.Defer(ctx, item.ID, until); err != nil {
			s.logger.LogAttrs(ctx, slog.LevelError, "failed to defer queue item",
				logger.NotificationID(item.ID),
				logger.Error(err),
			)
		}

	case DispositionFailed:
		s.fail(ctx, item, res.Err)
	}
}

// fail consumes a retry or finalizes the item when none remain.
func (s *Scheduler) fail(ctx context.Context, item Item, cause error) {
	if item.Exhausted() {
		s.redispatcher.Exhausted(ctx, item)
		if err := s.store.Complete(ctx, item.ID); err != nil && !errors.Is(err, ErrNotFound) {
			s.logger.LogAttrs(ctx, slog.LevelError, "failed to remove exhausted item",
				logger.NotificationID(item.ID),
				logger.Error(err),
			)
		}
		return
	}

	msg := "dispatch failed"
	if cause != nil {
		msg = cause.Error()
	}
	if err := s.store.Fail(ctx, item.ID, msg); err != nil {
		if errors.Is(err, ErrRetriesExhausted) {
			// Lost the race with another failer; finalize.
			s.redispatcher.Exhausted(ctx, item)
			if err := s.store.Complete(ctx, item.ID); err != nil && !errors.Is(err, ErrNotFound) {
				s.logger.LogAttrs(ctx, slog.LevelError, "failed to remove exhausted item",
					logger.NotificationID(item.ID),
					logger.Error(err),
				)
			}
			return
		}
		s.logger.LogAttrs(ctx, slog.LevelError, "failed to record queue failure",
			logger.NotificationID(item.ID),
			logger.Error(err),
		)
	}
}
