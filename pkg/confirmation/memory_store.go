package confirmation

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/dmitrymomot/notifykit/pkg/channel"
)

type memoryKey struct {
	notificationID string
	channel        channel.Name
}

// MemoryStore is an in-memory Store for development and tests.
type MemoryStore struct {
	mu      sync.RWMutex
	records map[memoryKey]Confirmation
}

// NewMemoryStore creates an in-memory confirmation store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		records: make(map[memoryKey]Confirmation),
	}
}

func (s *MemoryStore) Upsert(ctx context.Context, c Confirmation) error {
	if c.NotificationID == "" || c.UserID == "" || c.Channel == "" {
		return ErrInvalidConfirmation
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.records[memoryKey{c.NotificationID, c.Channel}] = c
	return nil
}

func (s *MemoryStore) MarkDelivered(ctx context.Context, notificationID string, ch channel.Name, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := memoryKey{notificationID, ch}
	c, ok := s.records[key]
	if !ok {
		return ErrNotFound
	}

	c.IsDelivered = true
	c.DeliveredAt = &at
	c.Error = ""
	s.records[key] = c
	return nil
}

func (s *MemoryStore) MarkRead(ctx context.Context, userID, notificationID string, at time.Time) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	changed := false
	for key, c := range s.records {
		if c.NotificationID != notificationID || c.UserID != userID || c.IsRead {
			continue
		}
		c.IsRead = true
		c.ReadAt = &at
		s.records[key] = c
		changed = true
	}
	return changed, nil
}

func (s *MemoryStore) ListByNotification(ctx context.Context, notificationID string) ([]Confirmation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []Confirmation
	for _, c := range s.records {
		if c.NotificationID == notificationID {
			out = append(out, c)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].SentAt.After(out[j].SentAt)
	})
	return out, nil
}

func (s *MemoryStore) CountDelivered(ctx context.Context, userID string, since time.Time) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	count := 0
	for _, c := range s.records {
		if c.UserID != userID || !c.IsDelivered || c.DeliveredAt == nil {
			continue
		}
		if !c.DeliveredAt.Before(since) {
			count++
		}
	}
	return count, nil
}
