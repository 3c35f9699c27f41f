package preference

import "errors"

var (
	// ErrInvalidPreferences is returned when preferences fail validation.
	ErrInvalidPreferences = errors.New("preference: invalid preferences")

	// ErrInvalidQuietHours is returned when a quiet hours window cannot be
	// evaluated.
	ErrInvalidQuietHours = errors.New("preference: invalid quiet hours")

	// ErrStoreRequired is returned when a resolver is built without a store.
	ErrStoreRequired = errors.New("preference: store is required")

	// ErrSelectorRequired is returned when a resolver is built without a
	// channel selector.
	ErrSelectorRequired = errors.New("preference: selector is required")
)
