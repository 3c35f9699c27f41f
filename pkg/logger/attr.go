package logger

import "log/slog"

// Error creates an attribute for a single error under the key "error".
// If err is nil, it returns an empty Attr.
func Error(err error) slog.Attr {
	if err == nil {
		return slog.Attr{}
	}
	return slog.Any("error", err)
}

// UserID records the user identifier under the key "user_id".
func UserID(id any) slog.Attr {
	if id == nil {
		return slog.Attr{}
	}
	return slog.Any("user_id", id)
}

// NotificationID records the notification identifier under the key
// "notification_id".
func NotificationID(id any) slog.Attr {
	if id == nil {
		return slog.Attr{}
	}
	return slog.Any("notification_id", id)
}

// Channel records the delivery channel under the key "channel".
func Channel(name any) slog.Attr {
	return slog.Any("channel", name)
}

// Kind records the notification kind under the key "kind".
func Kind(kind any) slog.Attr {
	return slog.Any("kind", kind)
}

// RetryCount records the retry count under the key "retry_count".
func RetryCount(count int) slog.Attr {
	return slog.Int("retry_count", count)
}

// Component records the component name under the key "component".
func Component(name string) slog.Attr {
	return slog.String("component", name)
}

// Duration records a duration under the key "duration".
func Duration(d any) slog.Attr {
	return slog.Any("duration", d)
}
