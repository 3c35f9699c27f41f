package audit

import "context"

// Storage persists audit events. The table is append-only; there is no
// update or delete path.
type Storage interface {
	// Store persists a batch of events atomically.
	Store(ctx context.Context, events []Event) error

	// Find returns events matching the criteria, newest first.
	Find(ctx context.Context, criteria Criteria) ([]Event, error)
}
