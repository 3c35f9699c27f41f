package email

import (
	"context"
	"fmt"
	"regexp"
)

// Sender sends transactional email. Implementations report failures through
// the package sentinel errors so callers can classify them.
type Sender interface {
	Send(ctx context.Context, msg Message) error
}

// Message is a single outbound email.
type Message struct {
	To       string `json:"to"`
	Subject  string `json:"subject"`
	BodyHTML string `json:"body_html"`
	Tag      string `json:"tag,omitempty"`
}

var emailRegex = regexp.MustCompile(`^[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}$`)

// Validate checks that the message is sendable.
func (m Message) Validate() error {
	if m.To == "" {
		return fmt.Errorf("%w: recipient is required", ErrInvalidMessage)
	}
	if !emailRegex.MatchString(m.To) {
		return fmt.Errorf("%w: recipient %q is not a valid email address", ErrInvalidMessage, m.To)
	}
	if m.Subject == "" {
		return fmt.Errorf("%w: subject is required", ErrInvalidMessage)
	}
	if m.BodyHTML == "" {
		return fmt.Errorf("%w: body is required", ErrInvalidMessage)
	}
	return nil
}
