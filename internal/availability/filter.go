package availability

import "time"

// FilterByPreferences drops slots that violate prefs, keeping the input order.
// Weekdays, dates and clock times are evaluated in loc.
func FilterByPreferences(slots []Interval, prefs Preferences, loc *time.Location) ([]Interval, error) {
	r, err := prefs.compile()
	if err != nil {
		return nil, err
	}
	return r.filter(slots, locationOrUTC(loc)), nil
}

func (r rules) filter(slots []Interval, loc *time.Location) []Interval {
	out := make([]Interval, 0, len(slots))
	for _, slot := range slots {
		if r.allows(slot, loc) {
			out = append(out, slot)
		}
	}
	return out
}

func (r rules) allows(slot Interval, loc *time.Location) bool {
	start := slot.Start.In(loc)
	end := slot.End.In(loc)

	if r.avoidWeekends && isWeekend(start) {
		return false
	}
	if r.hours == nil {
		return true
	}

	startMinute := minuteOfDay(start)
	endMinute := minuteOfDay(end)
	if endMinute < startMinute || !sameDate(start, end) {
		return false
	}
	return r.hours.start <= startMinute && endMinute <= r.hours.end
}

func isWeekend(t time.Time) bool {
	wd := t.Weekday()
	return wd == time.Saturday || wd == time.Sunday
}

func sameDate(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}

func locationOrUTC(loc *time.Location) *time.Location {
	if loc == nil {
		return time.UTC
	}
	return loc
}
