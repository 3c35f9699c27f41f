package queue

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

const lockSweepInterval = 30 * time.Second

// MemoryStore is an in-memory Store for development and tests. Expired
// leases are swept back to claimable by a background goroutine, mirroring
// what lock-expiry predicates do in the postgres store.
type MemoryStore struct {
	mu     sync.Mutex
	items  map[string]*Item
	closed bool
	stop   chan struct{}
	once   sync.Once
}

// NewMemoryStore creates an in-memory queue store.
func NewMemoryStore() *MemoryStore {
	s := &MemoryStore{
		items: make(map[string]*Item),
		stop:  make(chan struct{}),
	}
	go s.sweepLoop()
	return s
}

// Close stops the lease sweeper.
func (s *MemoryStore) Close() error {
	s.once.Do(func() {
		s.mu.Lock()
		s.closed = true
		s.mu.Unlock()
		close(s.stop)
	})
	return nil
}

func (s *MemoryStore) Enqueue(ctx context.Context, item Item) error {
	if item.ID == "" || item.UserID == "" {
		return ErrInvalidItem
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrStoreClosed
	}

	item.normalize(time.Now().UTC())
	s.items[item.ID] = &item
	return nil
}

func (s *MemoryStore) Claim(ctx context.Context, workerID uuid.UUID, lease time.Duration) (*Item, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil, ErrStoreClosed
	}

	now := time.Now().UTC()
	var best *Item
	for _, item := range s.items {
		if item.NextRetryAt.After(now) {
			continue
		}
		if item.LockedUntil != nil && item.LockedUntil.After(now) {
			continue
		}
		if best == nil || item.NextRetryAt.Before(best.NextRetryAt) {
			best = item
		}
	}
	if best == nil {
		return nil, ErrNothingDue
	}

	until := now.Add(lease)
	best.LockedUntil = &until
	best.LockedBy = &workerID

	cp := *best
	return &cp, nil
}

func (s *MemoryStore) Complete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.items[id]; !ok {
		return ErrNotFound
	}
	delete(s.items, id)
	return nil
}

func (s *MemoryStore) Fail(ctx context.Context, id string, errMsg string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	item, ok := s.items[id]
	if !ok {
		return ErrNotFound
	}
	if item.Exhausted() {
		return ErrRetriesExhausted
	}

	item.RetryCount++
	item.NextRetryAt = time.Now().UTC().Add(item.RetryDelay)
	item.LastError = errMsg
	item.LockedUntil = nil
	item.LockedBy = nil
	return nil
}

func (s *MemoryStore) Defer(ctx context.Context, id string, until time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	item, ok := s.items[id]
	if !ok {
		return ErrNotFound
	}

	item.NextRetryAt = until
	item.LockedUntil = nil
	item.LockedBy = nil
	return nil
}

func (s *MemoryStore) Release(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	item, ok := s.items[id]
	if !ok {
		return ErrNotFound
	}

	item.LockedUntil = nil
	item.LockedBy = nil
	return nil
}

func (s *MemoryStore) Get(ctx context.Context, id string) (Item, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	item, ok := s.items[id]
	if !ok {
		return Item{}, ErrNotFound
	}
	return *item, nil
}

func (s *MemoryStore) sweepLoop() {
	ticker := time.NewTicker(lockSweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-s.stop:
			return
		case <-ticker.C:
			s.sweepExpiredLeases()
		}
	}
}

func (s *MemoryStore) sweepExpiredLeases() {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now().UTC()
	for _, item := range s.items {
		if item.LockedUntil != nil && !item.LockedUntil.After(now) {
			item.LockedUntil = nil
			item.LockedBy = nil
		}
	}
}
