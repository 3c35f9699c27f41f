package ratelimit

import (
	"context"
	"sync"
	"time"
)

// MemoryStore is an in-process Store for development and tests. Expired
// timestamps are compacted opportunistically on access and by a background
// cleanup loop.
type MemoryStore struct {
	mu      sync.RWMutex
	windows map[string]*windowEntry

	cleanupInterval time.Duration
	stopCleanup     chan struct{}
	cleanupOnce     sync.Once
}

type windowEntry struct {
	mu         sync.Mutex
	timestamps []time.Time
}

// MemoryStoreOption configures a MemoryStore.
type MemoryStoreOption func(*MemoryStore)

// WithCleanupInterval sets how often the background sweep compacts windows.
func WithCleanupInterval(interval time.Duration) MemoryStoreOption {
	return func(s *MemoryStore) {
		if interval > 0 {
			s.cleanupInterval = interval
		}
	}
}

// NewMemoryStore creates an in-memory store with automatic cleanup.
func NewMemoryStore(opts ...MemoryStoreOption) *MemoryStore {
	s := &MemoryStore{
		windows:         make(map[string]*windowEntry),
		cleanupInterval: time.Minute,
		stopCleanup:     make(chan struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}

	go s.cleanupLoop()

	return s
}

func (s *MemoryStore) entry(key string) *windowEntry {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.windows[key]
	if !ok {
		e = &windowEntry{}
		s.windows[key] = e
	}
	return e
}

func (s *MemoryStore) Record(ctx context.Context, key string, ts time.Time, window time.Duration) error {
	e := s.entry(key)

	e.mu.Lock()
	defer e.mu.Unlock()

	cutoff := ts.Add(-window)
	kept := e.timestamps[:0]
	for _, t := range e.timestamps {
		if t.After(cutoff) {
			kept = append(kept, t)
		}
	}
	e.timestamps = append(kept, ts)
	return nil
}

func (s *MemoryStore) Count(ctx context.Context, key string, window time.Duration) (int64, error) {
	s.mu.RLock()
	e, ok := s.windows[key]
	s.mu.RUnlock()
	if !ok {
		return 0, nil
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	cutoff := time.Now().Add(-window)
	var count int64
	for _, t := range e.timestamps {
		if t.After(cutoff) {
			count++
		}
	}
	return count, nil
}

func (s *MemoryStore) Oldest(ctx context.Context, key string, window time.Duration) (time.Time, bool, error) {
	s.mu.RLock()
	e, ok := s.windows[key]
	s.mu.RUnlock()
	if !ok {
		return time.Time{}, false, nil
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	cutoff := time.Now().Add(-window)
	var oldest time.Time
	for _, t := range e.timestamps {
		if !t.After(cutoff) {
			continue
		}
		if oldest.IsZero() || t.Before(oldest) {
			oldest = t
		}
	}
	return oldest, !oldest.IsZero(), nil
}

func (s *MemoryStore) Reserve(ctx context.Context, key string, ts time.Time, window time.Duration, limit int) (bool, int64, error) {
	e := s.entry(key)

	e.mu.Lock()
	defer e.mu.Unlock()

	cutoff := ts.Add(-window)
	kept := e.timestamps[:0]
	for _, t := range e.timestamps {
		if t.After(cutoff) {
			kept = append(kept, t)
		}
	}
	e.timestamps = kept

	count := int64(len(e.timestamps))
	if count >= int64(limit) {
		return false, count, nil
	}
	e.timestamps = append(e.timestamps, ts)
	return true, count + 1, nil
}

func (s *MemoryStore) Release(ctx context.Context, key string, window time.Duration) error {
	s.mu.RLock()
	e, ok := s.windows[key]
	s.mu.RUnlock()
	if !ok {
		return nil
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	newest := -1
	for i, t := range e.timestamps {
		if newest < 0 || t.After(e.timestamps[newest]) {
			newest = i
		}
	}
	if newest >= 0 {
		e.timestamps = append(e.timestamps[:newest], e.timestamps[newest+1:]...)
	}
	return nil
}

func (s *MemoryStore) Delete(ctx context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.windows, key)
	return nil
}

func (s *MemoryStore) cleanupLoop() {
	ticker := time.NewTicker(s.cleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.cleanup()
		case <-s.stopCleanup:
			return
		}
	}
}

// cleanup drops windows that have been empty since the last sweep. Entries
// still holding timestamps are left alone; Record compacts them in place.
func (s *MemoryStore) cleanup() {
	s.mu.Lock()
	defer s.mu.Unlock()

	for key, e := range s.windows {
		e.mu.Lock()
		if len(e.timestamps) == 0 {
			delete(s.windows, key)
		}
		e.mu.Unlock()
	}
}

// Close stops the cleanup goroutine.
func (s *MemoryStore) Close() error {
	s.cleanupOnce.Do(func() {
		close(s.stopCleanup)
	})
	return nil
}
