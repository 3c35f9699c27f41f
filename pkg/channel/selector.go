package channel

import "context"

// autoOrder is the fallback chain the "auto" preference expands to. Client
// polling is the implicit final fallback and involves no explicit send, so
// it does not appear here.
var autoOrder = []Name{NamePush, NameSocket, NameEmail}

// Selector orders the registered gateways into a fallback chain for one
// dispatch. Unavailable channels are filtered out up front so skipping them
// never counts as a delivery failure.
type Selector struct {
	gateways map[Name]Gateway
}

// NewSelector creates a selector over the registered gateways.
func NewSelector(gateways ...Gateway) *Selector {
	m := make(map[Name]Gateway, len(gateways))
	for _, g := range gateways {
		if g != nil {
			m[g.Name()] = g
		}
	}
	return &Selector{gateways: m}
}

// Order returns the eligible gateways in priority order. An empty only
// collapses to the full auto chain; a named channel restricts the chain to
// that single gateway. The result may be empty when the user has no
// reachable channel; the caller decides whether that defers or drops.
func (s *Selector) Order(ctx context.Context, userID string, only Name) []Gateway {
	names := autoOrder
	if only != "" {
		names = []Name{only}
	}

	order := make([]Gateway, 0, len(names))
	for _, name := range names {
		g, ok := s.gateways[name]
		if !ok {
			continue
		}
		if !g.Available(ctx, userID) {
			continue
		}
		order = append(order, g)
	}
	return order
}
