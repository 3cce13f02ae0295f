package availability

import (
	"fmt"
	"time"
)

// GenerateSlots carves free periods into candidate slots of the given
// duration, stepping by granularity.
//
// Each period's start is rounded up to the next wall-clock boundary in loc
// that is a whole multiple of granularity since local midnight. Rounding never
// moves a start earlier. Slots never extend past the end of their period.
func GenerateSlots(free []Interval, duration, granularity time.Duration, loc *time.Location) ([]Interval, error) {
	if duration <= 0 {
		return nil, fmt.Errorf("%w: %s", ErrInvalidDuration, duration)
	}
	if err := validateGranularity(granularity); err != nil {
		return nil, err
	}
	if loc == nil {
		loc = time.UTC
	}

	slots := []Interval{}
	for _, period := range free {
		for start := alignUp(period.Start, granularity, loc); !start.Add(duration).After(period.End); start = start.Add(granularity) {
			slots = append(slots, Interval{Start: start, End: start.Add(duration)})
		}
	}
	return slots, nil
}

func validateGranularity(granularity time.Duration) error {
	if granularity <= 0 || granularity%time.Minute != 0 {
		return fmt.Errorf("%w: %s must be a positive whole number of minutes", ErrInvalidGranularity, granularity)
	}
	return nil
}

// alignUp returns the first instant at or after t whose local minute of day is
// a multiple of step. It works on absolute time so the repeated hour of a DST
// fall-back day resolves to the occurrence t is actually in.
func alignUp(t time.Time, step time.Duration, loc *time.Location) time.Time {
	aligned := t.Truncate(time.Minute)
	if aligned.Before(t) {
		aligned = aligned.Add(time.Minute)
	}

	stepMinutes := int(step / time.Minute)
	if rem := minuteOfDay(aligned.In(loc)) % stepMinutes; rem != 0 {
		aligned = aligned.Add(time.Duration(stepMinutes-rem) * time.Minute)
	}
	return aligned.In(loc)
}

func minuteOfDay(t time.Time) int {
	return t.Hour()*60 + t.Minute()
}
