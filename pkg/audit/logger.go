package audit

import (
	"context"
	"crypto/rand"
	"log/slog"
	"time"

	"github.com/oklog/ulid/v2"
)

// Logger records audit events. Writes go through a buffered background
// writer so audit never sits on the delivery hot path; a full buffer falls
// back to a synchronous write rather than dropping the event.
type Logger struct {
	writer *Writer
	log    *slog.Logger
}

// LoggerOption configures a Logger.
type LoggerOption func(*Logger)

// WithLoggerFallback sets the slog logger used to report storage failures.
func WithLoggerFallback(log *slog.Logger) LoggerOption {
	return func(l *Logger) {
		if log != nil {
			l.log = log
		}
	}
}

// NewLogger creates an audit logger over the given storage.
func NewLogger(storage Storage, opts ...LoggerOption) (*Logger, error) {
	if storage == nil {
		return nil, ErrStorageRequired
	}

	l := &Logger{
		log: slog.Default(),
	}
	for _, opt := range opts {
		opt(l)
	}
	l.writer = newWriter(storage, l.log)
	return l, nil
}

// Log records an event of the given type. Severity defaults to info.
func (l *Logger) Log(ctx context.Context, eventType, description string, opts ...EventOption) error {
	e := Event{
		ID:          ulid.MustNew(ulid.Timestamp(time.Now()), rand.Reader).String(),
		Timestamp:   time.Now().UTC(),
		Type:        eventType,
		Description: description,
		Severity:    SeverityInfo,
	}
	for _, opt := range opts {
		opt(&e)
	}

	if err := e.Validate(); err != nil {
		return err
	}
	return l.writer.write(ctx, e)
}

// Close flushes buffered events and stops the background writer.
func (l *Logger) Close(ctx context.Context) error {
	return l.writer.close(ctx)
}

// WithUser attributes the event to a user.
func WithUser(userID string) EventOption {
	return func(e *Event) {
		e.UserID = userID
	}
}

// WithSeverity overrides the default info severity.
func WithSeverity(s Severity) EventOption {
	return func(e *Event) {
		e.Severity = s
	}
}

// WithMetadata adds one metadata key to the event.
func WithMetadata(key string, value any) EventOption {
	return func(e *Event) {
		if e.Metadata == nil {
			e.Metadata = make(map[string]any)
		}
		e.Metadata[key] = value
	}
}

// WithRequest attaches the caller's network identity.
func WithRequest(ip, userAgent string) EventOption {
	return func(e *Event) {
		e.IP = ip
		e.UserAgent = userAgent
	}
}
