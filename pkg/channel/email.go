package channel

import (
	"context"
	"errors"
	"fmt"

	"github.com/dmitrymomot/notifykit/pkg/email"
	"github.com/dmitrymomot/notifykit/pkg/notification"
)

// AddressSource resolves the verified email address for a user. An empty
// address with a nil error means the user has no verified address.
type AddressSource interface {
	EmailAddress(ctx context.Context, userID string) (string, error)
}

// EmailGateway delivers notifications through the email transport.
type EmailGateway struct {
	sender email.Sender
	addrs  AddressSource
}

// NewEmailGateway creates an email channel gateway.
func NewEmailGateway(sender email.Sender, addrs AddressSource) (*EmailGateway, error) {
	if sender == nil {
		return nil, errors.New("channel: email sender is required")
	}
	if addrs == nil {
		return nil, errors.New("channel: address source is required")
	}
	return &EmailGateway{sender: sender, addrs: addrs}, nil
}

func (g *EmailGateway) Name() Name { return NameEmail }

// Available reports whether the user has a verified email address.
func (g *EmailGateway) Available(ctx context.Context, userID string) bool {
	addr, err := g.addrs.EmailAddress(ctx, userID)
	return err == nil && addr != ""
}

func (g *EmailGateway) Send(ctx context.Context, userID string, content notification.Content) error {
	addr, err := g.addrs.EmailAddress(ctx, userID)
	if err != nil {
		return fmt.Errorf("%w: address lookup: %v", ErrTransient, err)
	}
	if addr == "" {
		return fmt.Errorf("%w: no verified email address for user", ErrConfigurationMissing)
	}

	body := content.Body
	if body == "" {
		body = content.Title
	}
	return g.sender.Send(ctx, email.Message{
		To:       addr,
		Subject:  content.Title,
		BodyHTML: fmt.Sprintf("<p>%s</p>", body),
		Tag:      string(content.Kind),
	})
}
