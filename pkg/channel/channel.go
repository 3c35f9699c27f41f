package channel

import (
	"context"

	"github.com/dmitrymomot/notifykit/pkg/notification"
)

// Name identifies a delivery channel.
type Name string

const (
	NamePush   Name = "push"
	NameSocket Name = "socket"
	NameEmail  Name = "email"
)

// Gateway is the abstract send contract every delivery channel implements.
// Send returns nil on delivery; failures are reported through the package
// sentinel errors so Classify can map them to an Outcome.
type Gateway interface {
	// Name returns the channel identifier.
	Name() Name

	// Available reports whether the user currently has the resource this
	// channel needs (device token, open socket, verified address).
	// Unavailable channels are skipped by the selector without counting
	// as failures.
	Available(ctx context.Context, userID string) bool

	// Send delivers the content to the user through this channel.
	Send(ctx context.Context, userID string, content notification.Content) error
}

// Outcome classifies the result of a single channel send attempt.
type Outcome int

const (
	// OutcomeDelivered means the channel accepted the notification.
	OutcomeDelivered Outcome = iota

	// OutcomeTransient covers network errors, timeouts and provider
	// throttling. The attempt may succeed later on the same channel.
	OutcomeTransient

	// OutcomePermanent covers invalid tokens, dead addresses and
	// unsubscribed users. The channel must not be retried for this
	// notification.
	OutcomePermanent
)

// String implements fmt.Stringer for logging.
func (o Outcome) String() string {
	switch o {
	case OutcomeDelivered:
		return "delivered"
	case OutcomeTransient:
		return "transient_failure"
	case OutcomePermanent:
		return "permanent_failure"
	default:
		return "unknown"
	}
}
