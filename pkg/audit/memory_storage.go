package audit

import (
	"context"
	"sort"
	"sync"
)

// MemoryStorage is an in-memory Storage for development and tests.
type MemoryStorage struct {
	mu     sync.RWMutex
	events []Event
}

// NewMemoryStorage creates an in-memory audit storage.
func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{}
}

func (s *MemoryStorage) Store(ctx context.Context, events []Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.events = append(s.events, events...)
	return nil
}

func (s *MemoryStorage) Find(ctx context.Context, criteria Criteria) ([]Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []Event
	for _, e := range s.events {
		if criteria.UserID != "" && e.UserID != criteria.UserID {
			continue
		}
		if criteria.Type != "" && e.Type != criteria.Type {
			continue
		}
		if criteria.Severity != "" && e.Severity != criteria.Severity {
			continue
		}
		if !criteria.Since.IsZero() && e.Timestamp.Before(criteria.Since) {
			continue
		}
		if !criteria.Until.IsZero() && e.Timestamp.After(criteria.Until) {
			continue
		}
		out = append(out, e)
	}

	sort.Slice(out, func(i, j int) bool {
		return out[i].Timestamp.After(out[j].Timestamp)
	})
	if criteria.Limit > 0 && len(out) > criteria.Limit {
		out = out[:criteria.Limit]
	}
	return out, nil
}
