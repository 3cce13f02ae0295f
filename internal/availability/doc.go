// Package availability computes common free time for a group of participants.
//
// The pipeline runs leaves first:
//
//  1. A BusyProvider returns each participant's busy intervals for a window.
//  2. Invert turns one participant's busy intervals into free periods.
//  3. IntersectAll reduces every participant's free periods to common free time.
//  4. GenerateSlots carves common free time into fixed-duration candidates.
//  5. FilterByPreferences drops candidates outside work hours or on weekends.
//  6. Rank buckets candidates by day and interleaves the days.
//
// Finder composes the steps. Only step 1 performs I/O; it runs concurrently for all
// participants and joins before any interval work starts. Steps 2-6 are pure
// functions over in-memory values.
//
// Example usage:
//
//	finder := availability.NewFinder(provider, availability.Options{})
//	result, err := finder.FindBestSlots(ctx, availability.Request{
//	    ParticipantIDs:  []string{"default", "caldav:alice"},
//	    Window:          availability.Window{Start: start, End: end},
//	    DurationMinutes: 60,
//	})
//	if errors.Is(err, availability.ErrProviderFetch) {
//	    // availability could not be determined
//	}
package availability
