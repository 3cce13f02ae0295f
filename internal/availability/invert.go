package availability

import (
	"cmp"
	"slices"
	"time"
)

// Invert returns the free periods of one participant inside window.
//
// Busy intervals may arrive unsorted or overlapping. Zero-length intervals
// block nothing and are skipped. Intervals that end before they start are
// dropped and counted in discarded. Busy time outside the
// window is clamped away, so the free periods always lie inside it.
func Invert(busy []Interval, window Window) (free []Interval, discarded int) {
	valid := make([]Interval, 0, len(busy))
	for _, iv := range busy {
		if iv.End.Equal(iv.Start) {
			continue
		}
		if !iv.Valid() {
			discarded++
			continue
		}
		valid = append(valid, iv)
	}
	slices.SortStableFunc(valid, compareIntervals)

	free = []Interval{}
	cursor := window.Start
	for _, iv := range valid {
		if !cursor.Before(window.End) {
			break
		}
		gapEnd := minTime(iv.Start, window.End)
		if cursor.Before(gapEnd) {
			free = append(free, Interval{Start: cursor, End: gapEnd})
		}
		cursor = maxTime(cursor, iv.End)
	}
	if cursor.Before(window.End) {
		free = append(free, Interval{Start: cursor, End: window.End})
	}
	return free, discarded
}

func compareIntervals(a, b Interval) int {
	if c := a.Start.Compare(b.Start); c != 0 {
		return c
	}
	return cmp.Compare(a.End.UnixNano(), b.End.UnixNano())
}

func minTime(a, b time.Time) time.Time {
	if a.Before(b) {
		return a
	}
	return b
}

func maxTime(a, b time.Time) time.Time {
	if a.After(b) {
		return a
	}
	return b
}
