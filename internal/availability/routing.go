package availability

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
)

// ErrUnknownProvider is returned by Router for a participant whose scheme
// has no registered provider.
var ErrUnknownProvider = errors.New("no busy provider for participant")

// Router is a BusyProvider that dispatches on the scheme prefix of a
// participant ID. "caldav:alice" goes to the provider registered for
// "caldav" with participant "alice". IDs without a scheme go to the default
// provider unchanged.
type Router struct {
	providers map[string]BusyProvider
	fallback  BusyProvider
}

// NewRouter returns a Router that sends unscoped IDs to fallback.
// A nil fallback makes unscoped IDs fail with ErrUnknownProvider.
func NewRouter(fallback BusyProvider) *Router {
	return &Router{
		providers: make(map[string]BusyProvider),
		fallback:  fallback,
	}
}

// Register routes IDs with the given scheme to p.
func (r *Router) Register(scheme string, p BusyProvider) {
	r.providers[strings.ToLower(scheme)] = p
}

// Schemes returns the registered schemes in sorted order.
func (r *Router) Schemes() []string {
	out := make([]string, 0, len(r.providers))
	for s := range r.providers {
		out = append(out, s)
	}
	sort.Strings(out)
	return out
}

// BusyIntervals implements BusyProvider.
func (r *Router) BusyIntervals(ctx context.Context, participantID string, window Window) ([]Interval, error) {
	p, id, err := r.resolve(participantID)
	if err != nil {
		return nil, err
	}
	return p.BusyIntervals(ctx, id, window)
}

func (r *Router) resolve(participantID string) (BusyProvider, string, error) {
	scheme, rest, ok := strings.Cut(participantID, ":")
	if !ok {
		if r.fallback == nil {
			return nil, "", fmt.Errorf("%w %q", ErrUnknownProvider, participantID)
		}
		return r.fallback, participantID, nil
	}
	p, found := r.providers[strings.ToLower(scheme)]
	if !found || rest == "" {
		return nil, "", fmt.Errorf("%w %q", ErrUnknownProvider, participantID)
	}
	return p, rest, nil
}
