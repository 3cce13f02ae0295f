package availability

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func hourly(t *testing.T, day string, hours ...string) []Interval {
	t.Helper()
	out := make([]Interval, len(hours))
	for i, h := range hours {
		start := at(t, day+" "+h)
		out[i] = Interval{Start: start, End: start.Add(time.Hour)}
	}
	return out
}

func TestRank_InterleavesDays(t *testing.T) {
	// 2025-03-08 is a Saturday; the other days are weekdays.
	var slots []Interval
	slots = append(slots, hourly(t, "2025-03-08", "10:00", "11:00")...)
	slots = append(slots, hourly(t, "2025-03-06", "09:00", "10:00", "11:00")...)
	slots = append(slots, hourly(t, "2025-03-07", "09:00")...)
	slots = append(slots, hourly(t, "2025-03-10", "09:00", "10:00")...)

	got, err := Rank(slots, Preferences{}, time.UTC, 0)
	require.NoError(t, err)

	assert.Equal(t, []string{
		"03-06 09:00", "03-07 09:00", "03-10 09:00", "03-08 10:00",
		"03-06 10:00", "03-10 10:00", "03-08 11:00",
		"03-06 11:00",
	}, starts(got))
}

func TestRank_WorkHoursMidpointFirst(t *testing.T) {
	slots := hourly(t, "2025-03-06", "09:00", "10:00", "11:00", "12:00", "13:00", "14:00", "15:00", "16:00")
	slots = append(slots, hourly(t, "2025-03-06", "12:30")...)

	got, err := Rank(slots, Preferences{WorkHoursStart: "09:00", WorkHoursEnd: "17:00"}, time.UTC, 0)
	require.NoError(t, err)

	// Midpoint is 13:00; equal distances fall back to the earlier start.
	assert.Equal(t, []string{
		"03-06 13:00", "03-06 12:30", "03-06 12:00", "03-06 14:00",
		"03-06 11:00", "03-06 15:00", "03-06 10:00", "03-06 16:00", "03-06 09:00",
	}, starts(got))
}

func TestRank_Truncates(t *testing.T) {
	slots := hourly(t, "2025-03-06", "09:00", "10:00", "11:00")

	got, err := Rank(slots, Preferences{}, time.UTC, 2)
	require.NoError(t, err)
	assert.Equal(t, []string{"03-06 09:00", "03-06 10:00"}, starts(got))
}

func TestRank_DefaultCap(t *testing.T) {
	free := []Interval{iv(t, "2025-03-03 00:00", "2025-03-10 00:00")}
	slots, err := GenerateSlots(free, 30*time.Minute, 30*time.Minute, time.UTC)
	require.NoError(t, err)
	require.Greater(t, len(slots), DefaultMaxResults)

	got, err := Rank(slots, Preferences{}, time.UTC, -1)
	require.NoError(t, err)
	assert.Len(t, got, DefaultMaxResults)
}

func TestRank_Deterministic(t *testing.T) {
	slots := hourly(t, "2025-03-06", "15:00", "09:00", "12:00")
	slots = append(slots, hourly(t, "2025-03-07", "11:00", "10:00")...)
	prefs := Preferences{WorkHoursStart: "08:00", WorkHoursEnd: "18:00"}

	first, err := Rank(slots, prefs, time.UTC, 0)
	require.NoError(t, err)
	for i := 0; i < 10; i++ {
		again, err := Rank(slots, prefs, time.UTC, 0)
		require.NoError(t, err)
		assert.Equal(t, first, again)
	}
}

func TestRank_InvalidPreferences(t *testing.T) {
	_, err := Rank(nil, Preferences{WorkHoursEnd: "5pm"}, time.UTC, 0)
	assert.ErrorIs(t, err, ErrInvalidPreferences)
}

func TestRank_SingleWorkHourBoundStaysChronological(t *testing.T) {
	slots := hourly(t, "2025-03-06", "07:00", "13:00", "23:00")

	for _, prefs := range []Preferences{{WorkHoursStart: "12:00"}, {WorkHoursEnd: "14:00"}} {
		got, err := Rank(slots, prefs, time.UTC, 0)
		require.NoError(t, err)
		assert.Equal(t, []string{"03-06 07:00", "03-06 13:00", "03-06 23:00"}, starts(got))
	}
}
