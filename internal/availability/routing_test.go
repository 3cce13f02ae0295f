package availability

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func recordingProvider(seen *[]string) BusyProvider {
	return BusyProviderFunc(func(_ context.Context, id string, _ Window) ([]Interval, error) {
		*seen = append(*seen, id)
		return nil, nil
	})
}

func TestRouter(t *testing.T) {
	var google, caldav []string
	router := NewRouter(recordingProvider(&google))
	router.Register("google", recordingProvider(&google))
	router.Register("CalDAV", recordingProvider(&caldav))

	window := win(t, "2025-03-04 09:00", "2025-03-04 17:00")
	for _, id := range []string{"default", "google:work", "caldav:alice", "CALDAV:bob", "jane@example.com"} {
		_, err := router.BusyIntervals(context.Background(), id, window)
		require.NoError(t, err, id)
	}

	assert.Equal(t, []string{"default", "work", "jane@example.com"}, google)
	assert.Equal(t, []string{"alice", "bob"}, caldav)
	assert.Equal(t, []string{"caldav", "google"}, router.Schemes())
}

func TestRouter_Unknown(t *testing.T) {
	router := NewRouter(nil)
	router.Register("caldav", BusyProviderFunc(func(context.Context, string, Window) ([]Interval, error) {
		return nil, nil
	}))
	window := win(t, "2025-03-04 09:00", "2025-03-04 17:00")

	for _, id := range []string{"ldap:bob", "caldav:", "default"} {
		_, err := router.BusyIntervals(context.Background(), id, window)
		assert.ErrorIs(t, err, ErrUnknownProvider, id)
	}
}

func TestRouter_UnknownSchemeFailsSearch(t *testing.T) {
	router := NewRouter(&fakeProvider{})

	_, err := newTestFinder(router, Options{}).FindBestSlots(context.Background(), Request{
		ParticipantIDs:  []string{"default", "ldap:bob"},
		Window:          win(t, "2025-03-04 09:00", "2025-03-04 17:00"),
		DurationMinutes: 30,
	})
	assert.ErrorIs(t, err, ErrProviderFetch)
	assert.ErrorIs(t, err, ErrUnknownProvider)
}
