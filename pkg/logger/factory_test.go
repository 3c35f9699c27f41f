package logger_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/notifykit/pkg/logger"
)

func TestNewJSONFormat(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	log := logger.New(
		logger.WithOutput(&buf),
		logger.WithFormat(logger.FormatJSON),
		logger.WithAttr(slog.String("service", "notifyd")),
	)

	log.Info("dispatch complete", logger.UserID("user-1"), logger.RetryCount(2))

	var record map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &record))
	assert.Equal(t, "dispatch complete", record["msg"])
	assert.Equal(t, "notifyd", record["service"])
	assert.Equal(t, "user-1", record["user_id"])
	assert.Equal(t, float64(2), record["retry_count"])
}

func TestNewInvalidFormatPanics(t *testing.T) {
	t.Parallel()

	assert.Panics(t, func() {
		logger.New(logger.WithFormat(logger.Format("xml")))
	})
}

func TestContextExtractor(t *testing.T) {
	t.Parallel()

	type ctxKey struct{}

	var buf bytes.Buffer
	log := logger.New(
		logger.WithOutput(&buf),
		logger.WithContextExtractors(func(ctx context.Context) (slog.Attr, bool) {
			if v := ctx.Value(ctxKey{}); v != nil {
				return slog.Any("request_id", v), true
			}
			return slog.Attr{}, false
		}),
	)

	ctx := context.WithValue(context.Background(), ctxKey{}, "req-42")
	log.InfoContext(ctx, "handled")

	var record map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &record))
	assert.Equal(t, "req-42", record["request_id"])
}

func TestErrorAttr(t *testing.T) {
	t.Parallel()

	assert.Equal(t, slog.Attr{}, logger.Error(nil))

	attr := logger.Error(errors.New("boom"))
	assert.Equal(t, "error", attr.Key)
}
