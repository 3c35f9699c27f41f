package channel

import (
	"context"
	"errors"

	"github.com/dmitrymomot/notifykit/pkg/email"
)

var (
	// ErrTransient marks failures that may succeed on a later attempt:
	// network errors, timeouts, provider throttling.
	ErrTransient = errors.New("channel: transient failure")

	// ErrPermanent marks failures that will not succeed on this channel for
	// this notification: invalid token, dead address, unsubscribed user.
	ErrPermanent = errors.New("channel: permanent failure")

	// ErrConfigurationMissing means the user lacks the credential the
	// channel needs (no device token, no verified address). Permanent, and
	// logged once per user per channel to avoid audit spam.
	ErrConfigurationMissing = errors.New("channel: missing configuration")

	// ErrNotConnected is the socket channel's report that the user has no
	// open session. Permanent for the current attempt.
	ErrNotConnected = errors.New("channel: user not connected")

	// ErrHubClosed is returned when the socket hub has been shut down.
	ErrHubClosed = errors.New("channel: hub closed")
)

// Classify maps a send error to an Outcome. A nil error is a delivery.
// Unknown errors default to transient so nothing is dropped on the strength
// of an unclassified failure.
func Classify(err error) Outcome {
	switch {
	case err == nil:
		return OutcomeDelivered
	case errors.Is(err, ErrPermanent),
		errors.Is(err, ErrConfigurationMissing),
		errors.Is(err, ErrNotConnected),
		errors.Is(err, email.ErrInactiveRecipient),
		errors.Is(err, email.ErrInvalidMessage):
		return OutcomePermanent
	case errors.Is(err, context.DeadlineExceeded):
		return OutcomeTransient
	default:
		return OutcomeTransient
	}
}
