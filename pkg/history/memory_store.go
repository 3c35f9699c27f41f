package history

import (
	"context"
	"sort"
	"sync"
	"time"
)

// MemoryStore is an in-memory Store for development and tests.
type MemoryStore struct {
	mu      sync.RWMutex
	entries map[string]Entry
}

// NewMemoryStore creates an in-memory history store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		entries: make(map[string]Entry),
	}
}

func (s *MemoryStore) Create(ctx context.Context, e Entry) error {
	if e.NotificationID == "" || e.UserID == "" {
		return ErrInvalidEntry
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now().UTC()
	}
	s.entries[e.NotificationID] = e
	return nil
}

func (s *MemoryStore) Get(ctx context.Context, notificationID string) (Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	e, ok := s.entries[notificationID]
	if !ok {
		return Entry{}, ErrNotFound
	}
	return e, nil
}

func (s *MemoryStore) MarkDelivered(ctx context.Context, notificationID string, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.entries[notificationID]
	if !ok {
		return ErrNotFound
	}

	e.WasDelivered = true
	e.DeliveredAt = &at
	s.entries[notificationID] = e
	return nil
}

func (s *MemoryStore) ListReplayable(ctx context.Context, userID string, since time.Time, limit int) ([]Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []Entry
	for _, e := range s.entries {
		if e.UserID != userID || e.WasDelivered || e.WasReplayed {
			continue
		}
		if e.CreatedAt.Before(since) {
			continue
		}
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *MemoryStore) MarkReplayed(ctx context.Context, notificationID string, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.entries[notificationID]
	if !ok {
		return ErrNotFound
	}
	if e.WasReplayed {
		return ErrAlreadyReplayed
	}

	e.WasReplayed = true
	e.ReplayedAt = &at
	s.entries[notificationID] = e
	return nil
}

func (s *MemoryStore) Prune(ctx context.Context, before time.Time) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	removed := 0
	for id, e := range s.entries {
		if e.CreatedAt.Before(before) {
			delete(s.entries, id)
			removed++
		}
	}
	return removed, nil
}
