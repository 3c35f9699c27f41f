package audit

import "errors"

var (
	// ErrInvalidEvent is returned when an event fails validation.
	ErrInvalidEvent = errors.New("audit: invalid event")

	// ErrStorageRequired is returned when a logger or reader is built
	// without storage.
	ErrStorageRequired = errors.New("audit: storage is required")

	// ErrWriterClosed is returned on writes after shutdown.
	ErrWriterClosed = errors.New("audit: writer closed")
)
