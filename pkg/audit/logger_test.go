package audit_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/notifykit/pkg/audit"
)

func TestLoggerWritesThroughBatcher(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	storage := audit.NewMemoryStorage()

	logger, err := audit.NewLogger(storage)
	require.NoError(t, err)

	require.NoError(t, logger.Log(ctx, audit.EventRetriesExhausted, "all channels failed",
		audit.WithUser("user-1"),
		audit.WithSeverity(audit.SeverityWarning),
		audit.WithMetadata("retry_count", 3),
	))
	require.NoError(t, logger.Close(ctx))

	events, err := storage.Find(ctx, audit.Criteria{UserID: "user-1"})
	require.NoError(t, err)
	require.Len(t, events, 1)

	e := events[0]
	assert.NotEmpty(t, e.ID)
	assert.Equal(t, audit.EventRetriesExhausted, e.Type)
	assert.Equal(t, audit.SeverityWarning, e.Severity)
	assert.Equal(t, "all channels failed", e.Description)
	assert.Equal(t, 3, e.Metadata["retry_count"])
	assert.False(t, e.Timestamp.IsZero())
}

func TestLoggerRejectsInvalidSeverity(t *testing.T) {
	t.Parallel()

	logger, err := audit.NewLogger(audit.NewMemoryStorage())
	require.NoError(t, err)
	defer logger.Close(context.Background())

	err = logger.Log(context.Background(), audit.EventPreferenceChanged, "changed",
		audit.WithSeverity(audit.Severity("loud")))
	assert.ErrorIs(t, err, audit.ErrInvalidEvent)
}

func TestLoggerClosedWriter(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	logger, err := audit.NewLogger(audit.NewMemoryStorage())
	require.NoError(t, err)
	require.NoError(t, logger.Close(ctx))

	err = logger.Log(ctx, audit.EventPreferenceChanged, "too late")
	assert.ErrorIs(t, err, audit.ErrWriterClosed)
}

func TestMemoryStorageFind(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	storage := audit.NewMemoryStorage()

	now := time.Now().UTC()
	require.NoError(t, storage.Store(ctx, []audit.Event{
		{ID: "1", Timestamp: now.Add(-2 * time.Hour), Type: audit.EventPreferenceChanged, UserID: "u1", Severity: audit.SeverityInfo},
		{ID: "2", Timestamp: now.Add(-time.Hour), Type: audit.EventRetriesExhausted, UserID: "u1", Severity: audit.SeverityWarning},
		{ID: "3", Timestamp: now, Type: audit.EventRetriesExhausted, UserID: "u2", Severity: audit.SeverityWarning},
	}))

	events, err := storage.Find(ctx, audit.Criteria{Type: audit.EventRetriesExhausted})
	require.NoError(t, err)
	require.Len(t, events, 2)
	// Newest first.
	assert.Equal(t, "3", events[0].ID)
	assert.Equal(t, "2", events[1].ID)

	events, err = storage.Find(ctx, audit.Criteria{UserID: "u1", Severity: audit.SeverityWarning})
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, "2", events[0].ID)

	events, err = storage.Find(ctx, audit.Criteria{Since: now.Add(-90 * time.Minute), Limit: 1})
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, "3", events[0].ID)
}
