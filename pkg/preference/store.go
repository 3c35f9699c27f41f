package preference

import "context"

// Store handles preference persistence.
type Store interface {
	// Get returns the user's preferences, or Default for users who never
	// saved any.
	Get(ctx context.Context, userID string) (Preferences, error)

	// Save validates and persists the preferences.
	Save(ctx context.Context, prefs Preferences) error

	// Delete removes the user's saved preferences, reverting them to
	// defaults.
	Delete(ctx context.Context, userID string) error
}
