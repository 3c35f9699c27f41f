package email

import "errors"

var (
	// ErrFailedToSend wraps provider errors that may succeed on retry.
	ErrFailedToSend = errors.New("email: failed to send")

	// ErrInactiveRecipient means the address hard-bounced or unsubscribed.
	// Sending to it will keep failing; callers should not retry.
	ErrInactiveRecipient = errors.New("email: inactive recipient")

	// ErrInvalidMessage is returned when a message fails validation.
	ErrInvalidMessage = errors.New("email: invalid message")

	// ErrInvalidConfig is returned when the sender configuration is incomplete.
	ErrInvalidConfig = errors.New("email: invalid config")
)
