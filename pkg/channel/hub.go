package channel

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"

	"github.com/dmitrymomot/notifykit/pkg/notification"
)

// Hub tracks open realtime sessions keyed by user id. It backs the socket
// gateway for live delivery and is the only channel the replay engine uses.
// A user may hold several sessions (multiple tabs, devices); a push is
// delivered if at least one session accepts it.
type Hub struct {
	mu         sync.RWMutex
	sessions   map[string]map[string]*Session
	onConnect  []func(userID string)
	bufferSize int
	closed     bool
}

// Session is one attached realtime connection. The transport layer drains
// Receive and writes frames to the wire.
type Session struct {
	id     string
	userID string
	ch     chan notification.Content
	hub    *Hub

	// mu guards ch against send-after-close when a disconnect races a
	// dispatch.
	mu     sync.RWMutex
	closed bool
}

// HubOption configures a Hub.
type HubOption func(*Hub)

// WithSessionBuffer sets the per-session message buffer size.
func WithSessionBuffer(n int) HubOption {
	return func(h *Hub) {
		if n > 0 {
			h.bufferSize = n
		}
	}
}

// NewHub creates a session hub.
func NewHub(opts ...HubOption) *Hub {
	h := &Hub{
		sessions:   make(map[string]map[string]*Session),
		bufferSize: 64,
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// OnConnect registers a hook fired whenever a user attaches a new session.
// The delivery engine uses this to trigger offline replay on reconnect.
// Hooks run in their own goroutine so a slow replay never blocks the attach.
func (h *Hub) OnConnect(fn func(userID string)) {
	if fn == nil {
		return
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	h.onConnect = append(h.onConnect, fn)
}

// Attach registers a new session for the user and fires the reconnect hooks.
func (h *Hub) Attach(userID string) (*Session, error) {
	if userID == "" {
		return nil, fmt.Errorf("%w: user id is required", ErrPermanent)
	}

	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		return nil, ErrHubClosed
	}

	sess := &Session{
		id:     uuid.New().String(),
		userID: userID,
		ch:     make(chan notification.Content, h.bufferSize),
		hub:    h,
	}

	userSessions, ok := h.sessions[userID]
	if !ok {
		userSessions = make(map[string]*Session)
		h.sessions[userID] = userSessions
	}
	userSessions[sess.id] = sess
	hooks := make([]func(string), len(h.onConnect))
	copy(hooks, h.onConnect)
	h.mu.Unlock()

	for _, fn := range hooks {
		go fn(userID)
	}

	return sess, nil
}

// Connected reports whether the user has at least one open session.
func (h *Hub) Connected(userID string) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.sessions[userID]) > 0
}

// Push delivers content to the user's open sessions. Sessions with a full
// buffer are skipped; delivery counts as soon as one session accepts the
// message. A user with no reachable session reports ErrNotConnected, which
// is permanent for this attempt.
func (h *Hub) Push(ctx context.Context, userID string, content notification.Content) error {
	h.mu.RLock()
	if h.closed {
		h.mu.RUnlock()
		return ErrHubClosed
	}
	targets := make([]*Session, 0, len(h.sessions[userID]))
	for _, s := range h.sessions[userID] {
		targets = append(targets, s)
	}
	h.mu.RUnlock()

	if len(targets) == 0 {
		return ErrNotConnected
	}

	accepted := false
	for _, s := range targets {
		if s.send(content) {
			accepted = true
		}
	}
	if !accepted {
		return fmt.Errorf("%w: no session accepted the message", ErrNotConnected)
	}
	return nil
}

// Close shuts down the hub and every attached session.
func (h *Hub) Close() error {
	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		return nil
	}
	h.closed = true
	var all []*Session
	for _, userSessions := range h.sessions {
		for _, s := range userSessions {
			all = append(all, s)
		}
	}
	h.sessions = make(map[string]map[string]*Session)
	h.mu.Unlock()

	for _, s := range all {
		s.shut()
	}
	return nil
}

// Receive returns the session's message channel. It is closed when the
// session or the hub closes.
func (s *Session) Receive() <-chan notification.Content {
	return s.ch
}

// UserID returns the user that owns the session.
func (s *Session) UserID() string {
	return s.userID
}

// Close detaches the session from the hub and closes its channel.
// Safe to call multiple times.
func (s *Session) Close() error {
	s.hub.mu.Lock()
	if userSessions, ok := s.hub.sessions[s.userID]; ok {
		delete(userSessions, s.id)
		if len(userSessions) == 0 {
			delete(s.hub.sessions, s.userID)
		}
	}
	s.hub.mu.Unlock()

	s.shut()
	return nil
}

// send delivers to the session buffer unless the session is closed or the
// buffer is full. A full buffer is a slow consumer; skip rather than block
// the dispatcher.
func (s *Session) send(content notification.Content) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return false
	}

	select {
	case s.ch <- content:
		return true
	default:
		return false
	}
}

func (s *Session) shut() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.closed {
		close(s.ch)
		s.closed = true
	}
}
