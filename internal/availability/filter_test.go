package availability

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseClock(t *testing.T) {
	tests := []struct {
		in      string
		want    int
		wantErr bool
	}{
		{"09:00", 540, false},
		{"9:30", 570, false},
		{"00:00", 0, false},
		{"24:00", 1440, false},
		{"17:45", 1065, false},
		{"24:30", 0, true},
		{"25:00", 0, true},
		{"12:60", 0, true},
		{"noon", 0, true},
		{"1200", 0, true},
		{"12:5", 0, true},
		{"ab:cd", 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := parseClock(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestPreferences_Validate(t *testing.T) {
	assert.NoError(t, Preferences{}.Validate())
	assert.NoError(t, Preferences{WorkHoursStart: "09:00"}.Validate())
	assert.ErrorIs(t, Preferences{WorkHoursStart: "9am"}.Validate(), ErrInvalidPreferences)
	assert.ErrorIs(t, Preferences{WorkHoursEnd: "17:00:00"}.Validate(), ErrInvalidPreferences)
}

func TestFilterByPreferences(t *testing.T) {
	// 2025-03-07 is a Friday.
	slots := []Interval{
		iv(t, "2025-03-07 08:00", "2025-03-07 09:00"),
		iv(t, "2025-03-07 09:00", "2025-03-07 10:00"),
		iv(t, "2025-03-07 16:30", "2025-03-07 17:30"),
		iv(t, "2025-03-07 23:30", "2025-03-08 00:30"),
		iv(t, "2025-03-08 10:00", "2025-03-08 11:00"),
		iv(t, "2025-03-09 10:00", "2025-03-09 11:00"),
	}

	tests := []struct {
		name  string
		prefs Preferences
		want  []string
	}{
		{
			name: "no preferences keeps everything",
			want: []string{"03-07 08:00", "03-07 09:00", "03-07 16:30", "03-07 23:30", "03-08 10:00", "03-09 10:00"},
		},
		{
			name:  "avoid weekends",
			prefs: Preferences{AvoidWeekends: true},
			want:  []string{"03-07 08:00", "03-07 09:00", "03-07 16:30", "03-07 23:30"},
		},
		{
			name:  "work hours",
			prefs: Preferences{WorkHoursStart: "09:00", WorkHoursEnd: "17:00"},
			want:  []string{"03-07 09:00", "03-08 10:00", "03-09 10:00"},
		},
		{
			name:  "work hours and weekends",
			prefs: Preferences{WorkHoursStart: "09:00", WorkHoursEnd: "17:00", AvoidWeekends: true},
			want:  []string{"03-07 09:00"},
		},
		{
			name:  "start bound alone disables work hours",
			prefs: Preferences{WorkHoursStart: "09:00"},
			want:  []string{"03-07 08:00", "03-07 09:00", "03-07 16:30", "03-07 23:30", "03-08 10:00", "03-09 10:00"},
		},
		{
			name:  "end bound alone disables work hours",
			prefs: Preferences{WorkHoursEnd: "10:00", AvoidWeekends: true},
			want:  []string{"03-07 08:00", "03-07 09:00", "03-07 16:30", "03-07 23:30"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := FilterByPreferences(slots, tt.prefs, time.UTC)
			require.NoError(t, err)
			assert.Equal(t, tt.want, starts(got))
		})
	}
}

func TestFilterByPreferences_Location(t *testing.T) {
	// 2025-03-07 23:00 UTC is already Saturday in Tokyo.
	tokyo, err := time.LoadLocation("Asia/Tokyo")
	require.NoError(t, err)

	slots := []Interval{iv(t, "2025-03-07 23:00", "2025-03-08 00:00")}

	got, err := FilterByPreferences(slots, Preferences{AvoidWeekends: true}, time.UTC)
	require.NoError(t, err)
	assert.Len(t, got, 1)

	got, err = FilterByPreferences(slots, Preferences{AvoidWeekends: true}, tokyo)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestFilterByPreferences_InvalidPreferences(t *testing.T) {
	_, err := FilterByPreferences(nil, Preferences{WorkHoursStart: "late"}, time.UTC)
	assert.ErrorIs(t, err, ErrInvalidPreferences)
}
