// Package logger builds configured slog.Logger instances and provides the
// attribute helpers used across the delivery pipeline (user_id,
// notification_id, channel, retry_count).
//
// The factory supports JSON and text formats, environment presets, static
// attributes and context extractors that inject request-scoped values at
// log time.
package logger
