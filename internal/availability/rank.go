package availability

import (
	"cmp"
	"slices"
	"time"
)

// Rank orders slots so that the leading entries cover as many days as
// possible, then truncates to limit. A non-positive limit means
// DefaultMaxResults.
//
// Slots are bucketed by the local date of their start. Weekday buckets come
// before weekend buckets, each class in date order. Inside a bucket slots
// closest to the middle of the work hours come first, or earliest first when
// no work hours are set. The buckets are then interleaved round-robin.
func Rank(slots []Interval, prefs Preferences, loc *time.Location, limit int) ([]Interval, error) {
	r, err := prefs.compile()
	if err != nil {
		return nil, err
	}
	ranked := r.rank(slots, locationOrUTC(loc))
	return truncate(ranked, limit), nil
}

type day struct {
	year    int
	month   time.Month
	day     int
	weekend bool
}

func (d day) compare(other day) int {
	if d.weekend != other.weekend {
		if d.weekend {
			return 1
		}
		return -1
	}
	if c := cmp.Compare(d.year, other.year); c != 0 {
		return c
	}
	if c := cmp.Compare(d.month, other.month); c != 0 {
		return c
	}
	return cmp.Compare(d.day, other.day)
}

type bucket struct {
	day   day
	slots []Interval
}

func (r rules) rank(slots []Interval, loc *time.Location) []Interval {
	index := make(map[day]int)
	var buckets []*bucket
	for _, slot := range slots {
		start := slot.Start.In(loc)
		y, m, d := start.Date()
		key := day{year: y, month: m, day: d, weekend: isWeekend(start)}
		i, ok := index[key]
		if !ok {
			i = len(buckets)
			index[key] = i
			buckets = append(buckets, &bucket{day: key})
		}
		buckets[i].slots = append(buckets[i].slots, slot)
	}

	slices.SortFunc(buckets, func(a, b *bucket) int { return a.day.compare(b.day) })
	for _, b := range buckets {
		slices.SortStableFunc(b.slots, r.compareWithinDay(loc))
	}

	out := make([]Interval, 0, len(slots))
	for round := 0; len(out) < len(slots); round++ {
		for _, b := range buckets {
			if round < len(b.slots) {
				out = append(out, b.slots[round])
			}
		}
	}
	return out
}

func (r rules) compareWithinDay(loc *time.Location) func(a, b Interval) int {
	return func(a, b Interval) int {
		if r.hours != nil {
			da := r.hours.distanceFromMidpoint(minuteOfDay(a.Start.In(loc)))
			db := r.hours.distanceFromMidpoint(minuteOfDay(b.Start.In(loc)))
			if c := cmp.Compare(da, db); c != 0 {
				return c
			}
		}
		return compareIntervals(a, b)
	}
}

func truncate(slots []Interval, limit int) []Interval {
	if limit <= 0 {
		limit = DefaultMaxResults
	}
	if len(slots) > limit {
		return slots[:limit]
	}
	return slots
}
