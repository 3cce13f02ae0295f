package availability

import (
	"fmt"
	"strconv"
	"strings"
)

// Preferences are optional scheduling rules applied to candidate slots.
// The work-hour rule needs both bounds; leaving either empty disables it.
type Preferences struct {
	WorkHoursStart string `json:"workHoursStart,omitempty"`
	WorkHoursEnd   string `json:"workHoursEnd,omitempty"`
	AvoidWeekends  bool   `json:"avoidWeekends,omitempty"`
}

// Validate returns ErrInvalidPreferences if a work-hour bound is not HH:MM.
func (p Preferences) Validate() error {
	_, err := p.compile()
	return err
}

// workHours is a work-hour rule in minutes since local midnight.
type workHours struct {
	start int
	end   int
}

// distanceFromMidpoint returns twice the distance between minute and the
// midpoint of the work hours, which keeps the comparison in integers.
func (w workHours) distanceFromMidpoint(minute int) int {
	d := 2*minute - (w.start + w.end)
	if d < 0 {
		return -d
	}
	return d
}

type rules struct {
	avoidWeekends bool
	hours         *workHours
}

// compile validates whichever work-hour bounds are present. The work-hour rule
// is only active when both bounds are set.
func (p Preferences) compile() (rules, error) {
	r := rules{avoidWeekends: p.AvoidWeekends}

	var hours workHours
	if p.WorkHoursStart != "" {
		m, err := parseClock(p.WorkHoursStart)
		if err != nil {
			return rules{}, fmt.Errorf("%w: workHoursStart: %v", ErrInvalidPreferences, err)
		}
		hours.start = m
	}
	if p.WorkHoursEnd != "" {
		m, err := parseClock(p.WorkHoursEnd)
		if err != nil {
			return rules{}, fmt.Errorf("%w: workHoursEnd: %v", ErrInvalidPreferences, err)
		}
		hours.end = m
	}
	if p.WorkHoursStart != "" && p.WorkHoursEnd != "" {
		r.hours = &hours
	}
	return r, nil
}

// parseClock converts "HH:MM" into minutes since midnight. "24:00" is accepted
// as the end of the day.
func parseClock(value string) (int, error) {
	h, m, ok := strings.Cut(strings.TrimSpace(value), ":")
	if !ok || len(h) == 0 || len(h) > 2 || len(m) != 2 {
		return 0, fmt.Errorf("%q is not in HH:MM format", value)
	}
	hour, err := strconv.Atoi(h)
	if err != nil {
		return 0, fmt.Errorf("%q has a non-numeric hour", value)
	}
	minute, err := strconv.Atoi(m)
	if err != nil {
		return 0, fmt.Errorf("%q has non-numeric minutes", value)
	}
	if hour < 0 || hour > 24 || minute < 0 || minute > 59 || (hour == 24 && minute != 0) {
		return 0, fmt.Errorf("%q is out of range", value)
	}
	return hour*60 + minute, nil
}
