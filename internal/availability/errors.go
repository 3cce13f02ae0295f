package availability

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidWindow is returned when the window end is not after its start.
	ErrInvalidWindow = errors.New("invalid window")

	// ErrInvalidDuration is returned for a non-positive meeting duration.
	ErrInvalidDuration = errors.New("invalid duration")

	// ErrInvalidGranularity is returned for a non-positive or sub-minute step.
	ErrInvalidGranularity = errors.New("invalid granularity")

	// ErrInvalidPreferences is returned when a work-hour value is not HH:MM.
	ErrInvalidPreferences = errors.New("invalid scheduling preferences")

	// ErrInvalidTimeZone is returned for an unknown IANA time zone name.
	ErrInvalidTimeZone = errors.New("invalid time zone")

	// ErrProviderFetch matches every FetchError.
	ErrProviderFetch = errors.New("could not determine availability")
)

// FetchError reports that busy data for one participant could not be fetched.
// Any FetchError fails the whole search.
type FetchError struct {
	Participant string
	Err         error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("failed to fetch busy intervals for participant %q: %v", e.Participant, e.Err)
}

// Unwrap exposes both ErrProviderFetch and the underlying cause to errors.Is/As.
func (e *FetchError) Unwrap() []error {
	return []error{ErrProviderFetch, e.Err}
}

// IsInvalidInput reports whether err was caused by invalid request parameters
// rather than by a provider failure.
func IsInvalidInput(err error) bool {
	return errors.Is(err, ErrInvalidWindow) ||
		errors.Is(err, ErrInvalidDuration) ||
		errors.Is(err, ErrInvalidGranularity) ||
		errors.Is(err, ErrInvalidPreferences) ||
		errors.Is(err, ErrInvalidTimeZone)
}
