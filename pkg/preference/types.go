package preference

import (
	"fmt"
	"time"

	"github.com/dmitrymomot/notifykit/pkg/channel"
	"github.com/dmitrymomot/notifykit/pkg/notification"
)

// Method is a user's preferred delivery method.
type Method string

const (
	// MethodAuto expands to the full fallback chain: push, socket, email,
	// with client polling as the implicit last resort.
	MethodAuto Method = "auto"

	MethodPushOnly   Method = "push_only"
	MethodSocketOnly Method = "socket_only"
	MethodEmailOnly  Method = "email_only"

	// MethodDisabled suppresses delivery entirely.
	MethodDisabled Method = "disabled"
)

// Valid reports whether the method is a known value.
func (m Method) Valid() bool {
	switch m {
	case MethodAuto, MethodPushOnly, MethodSocketOnly, MethodEmailOnly, MethodDisabled:
		return true
	default:
		return false
	}
}

// Only returns the single channel a *-only method collapses to. Auto returns
// the empty name, meaning the full chain.
func (m Method) Only() channel.Name {
	switch m {
	case MethodPushOnly:
		return channel.NamePush
	case MethodSocketOnly:
		return channel.NameSocket
	case MethodEmailOnly:
		return channel.NameEmail
	default:
		return ""
	}
}

// QuietHours is a per-user window during which non-urgent notifications are
// deferred, not dropped. Start and End are "HH:MM" wall-clock times in the
// configured timezone; a window may cross midnight.
type QuietHours struct {
	Enabled  bool   `json:"enabled"`
	Start    string `json:"start"`
	End      string `json:"end"`
	Timezone string `json:"timezone"`
}

const clockLayout = "15:04"

// Window reports whether now falls inside [Start, End) and, if so, when the
// current window ends. An unknown timezone falls back to UTC rather than
// blocking delivery.
func (q QuietHours) Window(now time.Time) (bool, time.Time, error) {
	if !q.Enabled {
		return false, time.Time{}, nil
	}

	start, err := time.Parse(clockLayout, q.Start)
	if err != nil {
		return false, time.Time{}, fmt.Errorf("%w: start %q", ErrInvalidQuietHours, q.Start)
	}
	end, err := time.Parse(clockLayout, q.End)
	if err != nil {
		return false, time.Time{}, fmt.Errorf("%w: end %q", ErrInvalidQuietHours, q.End)
	}

	loc := time.UTC
	if q.Timezone != "" {
		if l, err := time.LoadLocation(q.Timezone); err == nil {
			loc = l
		}
	}

	local := now.In(loc)
	y, m, d := local.Date()
	startAt := time.Date(y, m, d, start.Hour(), start.Minute(), 0, 0, loc)
	endAt := time.Date(y, m, d, end.Hour(), end.Minute(), 0, 0, loc)

	if startAt.Before(endAt) {
		// Same-day window, e.g. 13:00-15:00.
		if !local.Before(startAt) && local.Before(endAt) {
			return true, endAt, nil
		}
		return false, time.Time{}, nil
	}

	// Cross-midnight window, e.g. 22:00-08:00.
	if !local.Before(startAt) {
		return true, endAt.AddDate(0, 0, 1), nil
	}
	if local.Before(endAt) {
		return true, endAt, nil
	}
	return false, time.Time{}, nil
}

// FrequencyCaps is a rolling-window limit on notification volume per user.
// A zero cap disables that window.
type FrequencyCaps struct {
	Enabled bool `json:"enabled"`
	PerHour int  `json:"per_hour"`
	PerDay  int  `json:"per_day"`
}

// Preferences is the per-user delivery configuration. Mutated only by the
// owning user through Store.Save; read by the resolver on every dispatch,
// including every retry.
type Preferences struct {
	UserID string `json:"user_id"`

	// Method is the global preferred delivery method.
	Method Method `json:"method"`

	// KindEnabled disables specific notification kinds. Absent kinds are
	// enabled.
	KindEnabled map[notification.Kind]bool `json:"kind_enabled,omitempty"`

	// KindMethod overrides the global method per kind.
	KindMethod map[notification.Kind]Method `json:"kind_method,omitempty"`

	QuietHours QuietHours    `json:"quiet_hours"`
	Caps       FrequencyCaps `json:"frequency_caps"`

	EnableDeliveryConfirmation bool `json:"enable_delivery_confirmation"`
	EnableReadReceipts         bool `json:"enable_read_receipts"`

	// HistoryDays is the notification history retention window.
	HistoryDays int `json:"history_days"`

	EnableOfflineReplay bool `json:"enable_offline_replay"`

	UpdatedAt time.Time `json:"updated_at"`
}

// Default returns the preferences applied to users who never saved any.
func Default(userID string) Preferences {
	return Preferences{
		UserID:                     userID,
		Method:                     MethodAuto,
		EnableDeliveryConfirmation: true,
		EnableReadReceipts:         true,
		HistoryDays:                30,
		EnableOfflineReplay:        true,
	}
}

// Enabled reports whether the kind is enabled for this user.
func (p Preferences) Enabled(kind notification.Kind) bool {
	if enabled, ok := p.KindEnabled[kind]; ok {
		return enabled
	}
	return true
}

// EffectiveMethod resolves the delivery method for a kind: the per-kind
// override wins, then the global method, then auto.
func (p Preferences) EffectiveMethod(kind notification.Kind) Method {
	if m, ok := p.KindMethod[kind]; ok && m.Valid() {
		return m
	}
	if p.Method.Valid() {
		return p.Method
	}
	return MethodAuto
}

// Retention returns the history retention window as a duration.
func (p Preferences) Retention() time.Duration {
	days := p.HistoryDays
	if days <= 0 {
		days = 30
	}
	return time.Duration(days) * 24 * time.Hour
}

// Validate checks the preferences before saving.
func (p Preferences) Validate() error {
	if p.UserID == "" {
		return fmt.Errorf("%w: user id is required", ErrInvalidPreferences)
	}
	if !p.Method.Valid() {
		return fmt.Errorf("%w: unknown method %q", ErrInvalidPreferences, p.Method)
	}
	for kind, m := range p.KindMethod {
		if !kind.Valid() {
			return fmt.Errorf("%w: unknown kind %q", ErrInvalidPreferences, kind)
		}
		if !m.Valid() {
			return fmt.Errorf("%w: unknown method %q for kind %q", ErrInvalidPreferences, m, kind)
		}
	}
	for kind := range p.KindEnabled {
		if !kind.Valid() {
			return fmt.Errorf("%w: unknown kind %q", ErrInvalidPreferences, kind)
		}
	}
	if p.QuietHours.Enabled {
		if _, err := time.Parse(clockLayout, p.QuietHours.Start); err != nil {
			return fmt.Errorf("%w: quiet hours start %q", ErrInvalidPreferences, p.QuietHours.Start)
		}
		if _, err := time.Parse(clockLayout, p.QuietHours.End); err != nil {
			return fmt.Errorf("%w: quiet hours end %q", ErrInvalidPreferences, p.QuietHours.End)
		}
	}
	if p.Caps.Enabled && p.Caps.PerHour <= 0 && p.Caps.PerDay <= 0 {
		return fmt.Errorf("%w: frequency caps enabled without a cap", ErrInvalidPreferences)
	}
	if p.HistoryDays < 0 {
		return fmt.Errorf("%w: history days must not be negative", ErrInvalidPreferences)
	}
	return nil
}

// HourlyCapKey is the sliding window key counting a user's deliveries in the
// trailing hour.
func HourlyCapKey(userID string) string { return "freq:hour:" + userID }

// DailyCapKey is the sliding window key counting a user's deliveries in the
// trailing day.
func DailyCapKey(userID string) string { return "freq:day:" + userID }
