package availability

// Intersect returns the overlap of two sorted, non-overlapping interval lists.
// It walks both lists once and advances whichever side ends first.
func Intersect(a, b []Interval) []Interval {
	out := []Interval{}
	i, j := 0, 0
	for i < len(a) && j < len(b) {
		start := maxTime(a[i].Start, b[j].Start)
		end := minTime(a[i].End, b[j].End)
		if start.Before(end) {
			out = append(out, Interval{Start: start, End: end})
		}
		if a[i].End.Before(b[j].End) {
			i++
		} else {
			j++
		}
	}
	return out
}

// IntersectAll reduces every participant's free periods to the time when all
// of them are free. No lists yields an empty result, a single list is returned
// as a copy, and an empty list anywhere short-circuits to empty.
func IntersectAll(lists [][]Interval) []Interval {
	if len(lists) == 0 {
		return []Interval{}
	}
	common := append([]Interval{}, lists[0]...)
	for _, next := range lists[1:] {
		if len(common) == 0 {
			break
		}
		common = Intersect(common, next)
	}
	return common
}
