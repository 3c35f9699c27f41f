package history

import "errors"

var (
	// ErrNotFound is returned when no entry exists for the notification.
	ErrNotFound = errors.New("history: entry not found")

	// ErrInvalidEntry is returned when an entry is missing required fields.
	ErrInvalidEntry = errors.New("history: invalid entry")

	// ErrAlreadyReplayed is returned when marking an entry replayed a second
	// time.
	ErrAlreadyReplayed = errors.New("history: entry already replayed")

	// ErrStoreRequired is returned when a component is built without a
	// history store.
	ErrStoreRequired = errors.New("history: store is required")

	// ErrSocketRequired is returned when a replay engine is built without a
	// socket gateway.
	ErrSocketRequired = errors.New("history: socket gateway is required")

	// ErrPreferencesRequired is returned when a replay engine is built
	// without a preference store.
	ErrPreferencesRequired = errors.New("history: preference store is required")
)
