package preference

import (
	"context"
	"sync"
	"time"
)

// MemoryStore is an in-memory Store for development and tests.
type MemoryStore struct {
	mu    sync.RWMutex
	prefs map[string]Preferences
}

// NewMemoryStore creates an in-memory preference store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		prefs: make(map[string]Preferences),
	}
}

func (s *MemoryStore) Get(ctx context.Context, userID string) (Preferences, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if p, ok := s.prefs[userID]; ok {
		return p, nil
	}
	return Default(userID), nil
}

func (s *MemoryStore) Save(ctx context.Context, prefs Preferences) error {
	if err := prefs.Validate(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	prefs.UpdatedAt = time.Now()
	s.prefs[prefs.UserID] = prefs
	return nil
}

func (s *MemoryStore) Delete(ctx context.Context, userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.prefs, userID)
	return nil
}
