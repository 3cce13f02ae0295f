package availability

import (
	"fmt"
	"time"
)

// LoadLocation resolves an IANA time zone name. An empty name resolves to
// fallback, or UTC when fallback is nil.
func LoadLocation(name string, fallback *time.Location) (*time.Location, error) {
	if name == "" {
		if fallback == nil {
			return time.UTC, nil
		}
		return fallback, nil
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		return nil, fmt.Errorf("%w: %q", ErrInvalidTimeZone, name)
	}
	return loc, nil
}
