package channel

import (
	"context"
	"errors"

	"github.com/dmitrymomot/notifykit/pkg/notification"
)

// SocketGateway delivers notifications to the user's open realtime sessions.
// The socket contract has no transient state: the user is either reachable
// or the attempt fails permanently with ErrNotConnected.
type SocketGateway struct {
	hub *Hub
}

// NewSocketGateway creates a socket channel gateway over the hub.
func NewSocketGateway(hub *Hub) (*SocketGateway, error) {
	if hub == nil {
		return nil, errors.New("channel: hub is required")
	}
	return &SocketGateway{hub: hub}, nil
}

func (g *SocketGateway) Name() Name { return NameSocket }

func (g *SocketGateway) Available(ctx context.Context, userID string) bool {
	return g.hub.Connected(userID)
}

func (g *SocketGateway) Send(ctx context.Context, userID string, content notification.Content) error {
	return g.hub.Push(ctx, userID, content)
}
