package calendar

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"
	calendar "google.golang.org/api/calendar/v3"
	"google.golang.org/api/option"

	"github.com/LamPham123/CalPal.ai/internal/availability"
	"github.com/LamPham123/CalPal.ai/internal/google"
)

// fakeAPI serves the calendar list and free/busy endpoints.
type fakeAPI struct {
	t             *testing.T
	calendars     string
	busy          map[string][]string // calendar ID -> start,end,start,end...
	errs          map[string]string
	queried       [][]string
	freeBusyCalls atomic.Int32
}

func (f *fakeAPI) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	switch r.URL.Path {
	case "/calendar/v3/users/me/calendarList":
		_, _ = w.Write([]byte(f.calendars))
	case "/calendar/v3/freeBusy":
		f.freeBusyCalls.Add(1)
		var req calendar.FreeBusyRequest
		assert.NoError(f.t, json.NewDecoder(r.Body).Decode(&req))

		var ids []string
		resp := calendar.FreeBusyResponse{Calendars: map[string]calendar.FreeBusyCalendar{}}
		for _, item := range req.Items {
			ids = append(ids, item.Id)
			cal := calendar.FreeBusyCalendar{}
			if reason, ok := f.errs[item.Id]; ok {
				cal.Errors = []*calendar.Error{{Domain: "global", Reason: reason}}
			}
			b := f.busy[item.Id]
			for i := 0; i+1 < len(b); i += 2 {
				cal.Busy = append(cal.Busy, &calendar.TimePeriod{Start: b[i], End: b[i+1]})
			}
			resp.Calendars[item.Id] = cal
		}
		f.queried = append(f.queried, ids)
		_ = json.NewEncoder(w).Encode(resp)
	default:
		http.NotFound(w, r)
	}
}

const calendarList = `{"items":[
	{"id":"me@example.com","summary":"Me","primary":true,"accessRole":"owner"},
	{"id":"team","summary":"Team","accessRole":"owner"},
	{"id":"holidays","summary":"Holidays","accessRole":"reader"},
	{"id":"shared","summary":"Shared","accessRole":"writer"}
]}`

func newTestClient(t *testing.T, api *fakeAPI) *Client {
	t.Helper()
	api.t = t
	srv := httptest.NewServer(api)
	t.Cleanup(srv.Close)

	svc, err := calendar.NewService(context.Background(),
		option.WithEndpoint(srv.URL+"/calendar/v3/"),
		option.WithHTTPClient(srv.Client()))
	require.NoError(t, err)
	return NewClientWithService(svc, "work")
}

func testWindow() availability.Window {
	return availability.Window{
		Start: time.Date(2024, 3, 4, 0, 0, 0, 0, time.UTC),
		End:   time.Date(2024, 3, 5, 0, 0, 0, 0, time.UTC),
	}
}

func TestToCalendarInfo(t *testing.T) {
	assert.Equal(t, CalendarInfo{}, toCalendarInfo(nil))

	info := toCalendarInfo(&calendar.CalendarListEntry{Id: "x", Summary: "X", Primary: true, AccessRole: "owner"})
	assert.Equal(t, "x", info.ID)
	assert.True(t, info.Primary)
}

func TestCalendarInfo_Owned(t *testing.T) {
	tests := []struct {
		info CalendarInfo
		want bool
	}{
		{CalendarInfo{Primary: true, AccessRole: AccessRoleReader}, true},
		{CalendarInfo{AccessRole: AccessRoleOwner}, true},
		{CalendarInfo{AccessRole: AccessRoleWriter}, false},
		{CalendarInfo{AccessRole: AccessRoleFreeBusyReader}, false},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, tt.info.Owned(), "%+v", tt.info)
	}
}

func TestClient_ListCalendars(t *testing.T) {
	c := newTestClient(t, &fakeAPI{calendars: calendarList})

	all, err := c.ListCalendars(context.Background())
	require.NoError(t, err)
	assert.Len(t, all, 4)

	owned, err := c.OwnedCalendars(context.Background())
	require.NoError(t, err)
	require.Len(t, owned, 2)
	assert.Equal(t, "me@example.com", owned[0].ID)
	assert.Equal(t, "team", owned[1].ID)
}

func TestClient_BusyIntervals(t *testing.T) {
	api := &fakeAPI{
		calendars: calendarList,
		busy: map[string][]string{
			"me@example.com": {"2024-03-04T14:00:00Z", "2024-03-04T15:00:00Z"},
			"team":           {"2024-03-04T09:00:00Z", "2024-03-04T10:00:00Z"},
			"holidays":       {"2024-03-04T00:00:00Z", "2024-03-05T00:00:00Z"},
		},
	}
	c := newTestClient(t, api)

	busy, err := c.BusyIntervals(context.Background(), testWindow())
	require.NoError(t, err)
	require.Len(t, busy, 2)
	assert.Equal(t, 9, busy[0].Start.Hour())
	assert.Equal(t, 14, busy[1].Start.Hour())

	require.Len(t, api.queried, 1)
	assert.Equal(t, []string{"me@example.com", "team"}, api.queried[0])
}

func TestClient_BusyIntervals_CalendarError(t *testing.T) {
	api := &fakeAPI{
		calendars: calendarList,
		errs:      map[string]string{"team": "notFound"},
	}
	c := newTestClient(t, api)

	_, err := c.BusyIntervals(context.Background(), testWindow())
	var calErr *CalendarError
	require.True(t, errors.As(err, &calErr))
	assert.Equal(t, "team", calErr.Calendar)
	assert.Equal(t, []string{"notFound"}, calErr.Reasons)
}

func TestClient_BusyIntervals_NoOwnedCalendars(t *testing.T) {
	api := &fakeAPI{calendars: `{"items":[{"id":"holidays","accessRole":"reader"}]}`}
	c := newTestClient(t, api)

	busy, err := c.BusyIntervals(context.Background(), testWindow())
	require.NoError(t, err)
	assert.NotNil(t, busy)
	assert.Empty(t, busy)
	assert.Zero(t, api.freeBusyCalls.Load())
}

func TestClient_BusyIntervals_InvalidTime(t *testing.T) {
	api := &fakeAPI{
		calendars: calendarList,
		busy:      map[string][]string{"team": {"yesterday", "2024-03-04T10:00:00Z"}},
	}
	c := newTestClient(t, api)

	_, err := c.BusyIntervals(context.Background(), testWindow())
	assert.Error(t, err)
}

func TestClient_QueryFreeBusy_Batches(t *testing.T) {
	api := &fakeAPI{}
	c := newTestClient(t, api)

	ids := make([]string, maxFreeBusyItems+3)
	for i := range ids {
		ids[i] = fmt.Sprintf("cal-%d", i)
	}
	infos, err := c.QueryFreeBusy(context.Background(), testWindow().Start, testWindow().End, ids)
	require.NoError(t, err)
	assert.Len(t, infos, len(ids))
	assert.Equal(t, int32(2), api.freeBusyCalls.Load())
	assert.Equal(t, ids[0], infos[0].Calendar)
}

// staticTokens hands out the test server's client for every known account.
type staticTokens struct {
	client   *http.Client
	accounts map[string]bool
}

func (s staticTokens) GetTokenForAccount(context.Context, string) (*oauth2.Token, error) {
	return &oauth2.Token{AccessToken: "test"}, nil
}

func (s staticTokens) HasTokenForAccount(account string) bool { return s.accounts[account] }

func (s staticTokens) HTTPClient(context.Context, string) (*http.Client, error) {
	return s.client, nil
}

func TestProvider_BusyIntervals(t *testing.T) {
	api := &fakeAPI{
		t:         t,
		calendars: calendarList,
		busy:      map[string][]string{"team": {"2024-03-04T09:00:00Z", "2024-03-04T10:00:00Z"}},
	}
	srv := httptest.NewServer(api)
	defer srv.Close()

	tokens := staticTokens{client: srv.Client(), accounts: map[string]bool{"work": true, google.DefaultAccount: true}}
	p := NewProvider(context.Background(), tokens, nil, option.WithEndpoint(srv.URL+"/calendar/v3/"))

	busy, err := p.BusyIntervals(context.Background(), "work", testWindow())
	require.NoError(t, err)
	assert.Len(t, busy, 1)

	c1, err := p.Client("work")
	require.NoError(t, err)
	c2, err := p.Client("work")
	require.NoError(t, err)
	assert.Same(t, c1, c2)

	p.Forget("work")
	c3, err := p.Client("work")
	require.NoError(t, err)
	assert.NotSame(t, c1, c3)

	dflt, err := p.Client("")
	require.NoError(t, err)
	assert.Equal(t, google.DefaultAccount, dflt.Account())

	_, err = p.BusyIntervals(context.Background(), "stranger", testWindow())
	assert.True(t, errors.Is(err, google.ErrNoToken))
}
