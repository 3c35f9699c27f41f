package channel

import (
	"context"
	"errors"
	"fmt"

	"github.com/dmitrymomot/notifykit/pkg/notification"
)

// TokenSource resolves the registered device token for a user. An empty
// token with a nil error means the user has no registered device.
type TokenSource interface {
	DeviceToken(ctx context.Context, userID string) (string, error)
}

// PushProvider is the abstract provider send contract. The concrete wire
// protocol (FCM, APNs, ...) lives behind this function; only the outcome
// classification matters here.
type PushProvider interface {
	Push(ctx context.Context, deviceToken string, content notification.Content) error
}

// PushProviderFunc adapts a function to the PushProvider interface.
type PushProviderFunc func(ctx context.Context, deviceToken string, content notification.Content) error

func (f PushProviderFunc) Push(ctx context.Context, deviceToken string, content notification.Content) error {
	return f(ctx, deviceToken, content)
}

// PushGateway delivers notifications through the push provider.
type PushGateway struct {
	provider PushProvider
	tokens   TokenSource
}

// NewPushGateway creates a push channel gateway.
func NewPushGateway(provider PushProvider, tokens TokenSource) (*PushGateway, error) {
	if provider == nil {
		return nil, errors.New("channel: push provider is required")
	}
	if tokens == nil {
		return nil, errors.New("channel: token source is required")
	}
	return &PushGateway{provider: provider, tokens: tokens}, nil
}

func (g *PushGateway) Name() Name { return NamePush }

// Available reports whether the user has a registered device token.
func (g *PushGateway) Available(ctx context.Context, userID string) bool {
	token, err := g.tokens.DeviceToken(ctx, userID)
	return err == nil && token != ""
}

func (g *PushGateway) Send(ctx context.Context, userID string, content notification.Content) error {
	token, err := g.tokens.DeviceToken(ctx, userID)
	if err != nil {
		return fmt.Errorf("%w: token lookup: %v", ErrTransient, err)
	}
	if token == "" {
		return fmt.Errorf("%w: no device token for user", ErrConfigurationMissing)
	}
	return g.provider.Push(ctx, token, content)
}
