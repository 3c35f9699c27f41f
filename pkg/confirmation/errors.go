package confirmation

import "errors"

var (
	// ErrNotFound is returned when no confirmation exists for the query.
	ErrNotFound = errors.New("confirmation: not found")

	// ErrInvalidConfirmation is returned when a record is missing required
	// fields.
	ErrInvalidConfirmation = errors.New("confirmation: invalid record")

	// ErrStoreRequired is returned when a tracker is built without a store.
	ErrStoreRequired = errors.New("confirmation: store is required")

	// ErrPreferencesRequired is returned when a tracker is built without a
	// preference store.
	ErrPreferencesRequired = errors.New("confirmation: preference store is required")
)
