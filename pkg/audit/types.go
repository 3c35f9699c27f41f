package audit

import (
	"fmt"
	"time"
)

// Severity grades an audit event.
type Severity string

const (
	SeverityInfo     Severity = "info"
	SeverityWarning  Severity = "warning"
	SeverityCritical Severity = "critical"
)

// Event types recorded by the delivery engine.
const (
	// EventRetriesExhausted is written when a notification runs out of
	// retries on every channel.
	EventRetriesExhausted = "notification.retries_exhausted"

	// EventPermanentFailures is written when a user accumulates repeated
	// permanent channel failures, a likely token or address invalidation.
	EventPermanentFailures = "channel.permanent_failures"

	// EventPreferenceChanged is written on every preference save.
	EventPreferenceChanged = "preference.changed"

	// EventPreferenceDeleted is written when a user reverts to defaults.
	EventPreferenceDeleted = "preference.deleted"

	// EventReplayTriggered is written on a manual replay request.
	EventReplayTriggered = "history.replay_triggered"
)

// Event is a single append-only audit record. Events are never mutated or
// pruned.
type Event struct {
	ID          string         `json:"id"`
	Timestamp   time.Time      `json:"timestamp"`
	Type        string         `json:"type"`
	UserID      string         `json:"user_id,omitempty"`
	Description string         `json:"description"`
	Severity    Severity       `json:"severity"`
	Metadata    map[string]any `json:"metadata,omitempty"`
	IP          string         `json:"ip,omitempty"`
	UserAgent   string         `json:"user_agent,omitempty"`
}

// Validate checks the event has its required fields.
func (e *Event) Validate() error {
	if e.Type == "" {
		return fmt.Errorf("%w: type is required", ErrInvalidEvent)
	}
	switch e.Severity {
	case SeverityInfo, SeverityWarning, SeverityCritical:
	default:
		return fmt.Errorf("%w: unknown severity %q", ErrInvalidEvent, e.Severity)
	}
	return nil
}

// EventOption applies configuration to an Event during creation.
type EventOption func(*Event)

// Criteria filters audit queries. Zero fields match everything.
type Criteria struct {
	UserID   string
	Type     string
	Severity Severity
	Since    time.Time
	Until    time.Time
	Limit    int
}
