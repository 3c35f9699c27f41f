package preference_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/notifykit/pkg/channel"
	"github.com/dmitrymomot/notifykit/pkg/notification"
	"github.com/dmitrymomot/notifykit/pkg/preference"
)

func TestQuietHoursWindow(t *testing.T) {
	t.Parallel()

	crossMidnight := preference.QuietHours{
		Enabled:  true,
		Start:    "22:00",
		End:      "08:00",
		Timezone: "UTC",
	}

	tests := []struct {
		name     string
		hours    preference.QuietHours
		now      time.Time
		wantIn   bool
		wantEnd  time.Time
		wantErr  bool
	}{
		{
			name:    "disabled window never matches",
			hours:   preference.QuietHours{Start: "22:00", End: "08:00"},
			now:     time.Date(2025, 6, 10, 23, 0, 0, 0, time.UTC),
			wantIn:  false,
		},
		{
			name:    "inside cross-midnight window before midnight",
			hours:   crossMidnight,
			now:     time.Date(2025, 6, 10, 23, 0, 0, 0, time.UTC),
			wantIn:  true,
			wantEnd: time.Date(2025, 6, 11, 8, 0, 0, 0, time.UTC),
		},
		{
			name:    "inside cross-midnight window after midnight",
			hours:   crossMidnight,
			now:     time.Date(2025, 6, 11, 3, 0, 0, 0, time.UTC),
			wantIn:  true,
			wantEnd: time.Date(2025, 6, 11, 8, 0, 0, 0, time.UTC),
		},
		{
			name:    "outside cross-midnight window",
			hours:   crossMidnight,
			now:     time.Date(2025, 6, 11, 12, 0, 0, 0, time.UTC),
			wantIn:  false,
		},
		{
			name: "window end is exclusive",
			hours: crossMidnight,
			now:    time.Date(2025, 6, 11, 8, 0, 0, 0, time.UTC),
			wantIn: false,
		},
		{
			name: "same-day window",
			hours: preference.QuietHours{
				Enabled: true, Start: "13:00", End: "15:00", Timezone: "UTC",
			},
			now:     time.Date(2025, 6, 10, 14, 0, 0, 0, time.UTC),
			wantIn:  true,
			wantEnd: time.Date(2025, 6, 10, 15, 0, 0, 0, time.UTC),
		},
		{
			name: "timezone is honored",
			hours: preference.QuietHours{
				Enabled: true, Start: "22:00", End: "08:00", Timezone: "America/New_York",
			},
			// 03:00 UTC is 23:00 in New York (EDT) - inside the window.
			now:    time.Date(2025, 6, 11, 3, 0, 0, 0, time.UTC),
			wantIn: true,
		},
		{
			name: "malformed start reports an error",
			hours: preference.QuietHours{
				Enabled: true, Start: "25:99", End: "08:00",
			},
			now:     time.Date(2025, 6, 10, 23, 0, 0, 0, time.UTC),
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			in, end, err := tt.hours.Window(tt.now)
			if tt.wantErr {
				require.ErrorIs(t, err, preference.ErrInvalidQuietHours)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantIn, in)
			if !tt.wantEnd.IsZero() {
				assert.True(t, tt.wantEnd.Equal(end), "want end %v, got %v", tt.wantEnd, end)
			}
		})
	}
}

func TestEffectiveMethod(t *testing.T) {
	t.Parallel()

	prefs := preference.Default("user-1")
	prefs.Method = preference.MethodEmailOnly
	prefs.KindMethod = map[notification.Kind]preference.Method{
		notification.KindMessage: preference.MethodSocketOnly,
	}

	assert.Equal(t, preference.MethodSocketOnly, prefs.EffectiveMethod(notification.KindMessage))
	assert.Equal(t, preference.MethodEmailOnly, prefs.EffectiveMethod(notification.KindLike))

	prefs.Method = preference.Method("")
	assert.Equal(t, preference.MethodAuto, prefs.EffectiveMethod(notification.KindLike))
}

func TestMethodOnly(t *testing.T) {
	t.Parallel()

	assert.Equal(t, channel.Name(""), preference.MethodAuto.Only())
	assert.Equal(t, channel.NamePush, preference.MethodPushOnly.Only())
	assert.Equal(t, channel.NameSocket, preference.MethodSocketOnly.Only())
	assert.Equal(t, channel.NameEmail, preference.MethodEmailOnly.Only())
}

func TestPreferencesValidate(t *testing.T) {
	t.Parallel()

	valid := preference.Default("user-1")
	require.NoError(t, valid.Validate())

	missing := preference.Default("")
	assert.ErrorIs(t, missing.Validate(), preference.ErrInvalidPreferences)

	badMethod := preference.Default("user-1")
	badMethod.Method = preference.Method("pigeon")
	assert.ErrorIs(t, badMethod.Validate(), preference.ErrInvalidPreferences)

	badQuiet := preference.Default("user-1")
	badQuiet.QuietHours = preference.QuietHours{Enabled: true, Start: "31:00", End: "08:00"}
	assert.ErrorIs(t, badQuiet.Validate(), preference.ErrInvalidPreferences)

	emptyCaps := preference.Default("user-1")
	emptyCaps.Caps = preference.FrequencyCaps{Enabled: true}
	assert.ErrorIs(t, emptyCaps.Validate(), preference.ErrInvalidPreferences)
}
