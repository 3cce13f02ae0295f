package availability

import (
	"fmt"
	"time"
)

// Default values for Finder options.
const (
	DefaultGranularity      = 30 * time.Minute
	DefaultMaxResults       = 200
	DefaultFetchTimeout     = 15 * time.Second
	DefaultFetchConcurrency = 4
)

// Interval is a half-open time range [Start, End).
// Busy intervals, free periods and candidate slots all share this shape.
type Interval struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// Valid reports whether the interval ends after it starts.
func (iv Interval) Valid() bool {
	return iv.End.After(iv.Start)
}

// Duration returns the length of the interval.
func (iv Interval) Duration() time.Duration {
	return iv.End.Sub(iv.Start)
}

// Overlaps reports whether the two half-open intervals share any instant.
func (iv Interval) Overlaps(other Interval) bool {
	return iv.Start.Before(other.End) && other.Start.Before(iv.End)
}

// In returns the interval with both ends expressed in loc.
func (iv Interval) In(loc *time.Location) Interval {
	return Interval{Start: iv.Start.In(loc), End: iv.End.In(loc)}
}

func (iv Interval) String() string {
	return fmt.Sprintf("[%s, %s)", iv.Start.Format(time.RFC3339), iv.End.Format(time.RFC3339))
}

// Window is the global search bound for one request.
type Window struct {
	Start time.Time
	End   time.Time
}

// Validate returns ErrInvalidWindow unless End is after Start.
func (w Window) Validate() error {
	if w.Start.IsZero() || w.End.IsZero() {
		return fmt.Errorf("%w: start and end are required", ErrInvalidWindow)
	}
	if !w.End.After(w.Start) {
		return fmt.Errorf("%w: end %s is not after start %s", ErrInvalidWindow,
			w.End.Format(time.RFC3339), w.Start.Format(time.RFC3339))
	}
	return nil
}

// Interval returns the window as an Interval.
func (w Window) Interval() Interval {
	return Interval{Start: w.Start, End: w.End}
}

// Request describes one search for common meeting slots.
type Request struct {
	// ParticipantIDs are opaque identifiers resolved by the BusyProvider.
	ParticipantIDs []string

	Window          Window
	DurationMinutes int
	Preferences     Preferences

	// MaxResults caps the ranked list. Zero means the Finder default.
	MaxResults int

	// Location is where wall-clock rules are evaluated. Nil means UTC.
	Location *time.Location
}

// Result is the ranked outcome of a search.
// An empty Slots list with a nil error means no common time exists.
type Result struct {
	Slots []Interval

	// TotalFound is the number of ranked slots before truncation.
	TotalFound int

	// DiscardedIntervals counts malformed busy intervals dropped during inversion.
	DiscardedIntervals int
}

func (r Request) location() *time.Location {
	if r.Location == nil {
		return time.UTC
	}
	return r.Location
}

func (r Request) duration() time.Duration {
	return time.Duration(r.DurationMinutes) * time.Minute
}
