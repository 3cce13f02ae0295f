package availability

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// at parses "2006-01-02 15:04" in UTC.
func at(t *testing.T, s string) time.Time {
	t.Helper()
	ts, err := time.ParseInLocation("2006-01-02 15:04", s, time.UTC)
	require.NoError(t, err)
	return ts
}

func iv(t *testing.T, start, end string) Interval {
	t.Helper()
	return Interval{Start: at(t, start), End: at(t, end)}
}

func win(t *testing.T, start, end string) Window {
	t.Helper()
	return Window{Start: at(t, start), End: at(t, end)}
}

func starts(slots []Interval) []string {
	out := make([]string, len(slots))
	for i, s := range slots {
		out[i] = s.Start.Format("01-02 15:04")
	}
	return out
}
