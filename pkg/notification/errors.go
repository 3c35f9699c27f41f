package notification

import "errors"

var (
	// ErrInvalidContent is returned when content fails validation.
	ErrInvalidContent = errors.New("invalid notification content")

	// ErrInvalidPayload is returned when a tagged payload is malformed.
	ErrInvalidPayload = errors.New("invalid notification payload")
)
