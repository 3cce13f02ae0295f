package caldav

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/emersion/go-ical"
	dav "github.com/emersion/go-webdav/caldav"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/LamPham123/CalPal.ai/internal/availability"
)

type fakeQuerier struct {
	calendars   []dav.Calendar
	objects     map[string][]*ical.Calendar
	queryErr    error
	discoveries int
	queries     []*dav.CalendarQuery
}

func (f *fakeQuerier) FindCurrentUserPrincipal(context.Context) (string, error) {
	f.discoveries++
	return "/principals/alice/", nil
}

func (f *fakeQuerier) FindCalendarHomeSet(_ context.Context, principal string) (string, error) {
	if principal != "/principals/alice/" {
		return "", errors.New("unexpected principal")
	}
	return "/calendars/alice/", nil
}

func (f *fakeQuerier) FindCalendars(context.Context, string) ([]dav.Calendar, error) {
	return f.calendars, nil
}

func (f *fakeQuerier) QueryCalendar(_ context.Context, path string, q *dav.CalendarQuery) ([]dav.CalendarObject, error) {
	f.queries = append(f.queries, q)
	if f.queryErr != nil {
		return nil, f.queryErr
	}
	var out []dav.CalendarObject
	for _, cal := range f.objects[path] {
		out = append(out, dav.CalendarObject{Path: path + "x.ics", Data: cal})
	}
	return out, nil
}

func TestClient_BusyIntervals(t *testing.T) {
	work := decode(t, `
BEGIN:VEVENT
UID:w
DTSTAMP:20240301T000000Z
DTSTART:20240304T090000Z
DTEND:20240304T100000Z
END:VEVENT`)
	home := decode(t, `
BEGIN:VEVENT
UID:h
DTSTAMP:20240301T000000Z
DTSTART:20240305T180000Z
DTEND:20240305T190000Z
END:VEVENT`)
	todo := decode(t, `
BEGIN:VEVENT
UID:t
DTSTAMP:20240301T000000Z
DTSTART:20240306T180000Z
DTEND:20240306T190000Z
END:VEVENT`)

	q := &fakeQuerier{
		calendars: []dav.Calendar{
			{Path: "/calendars/alice/work/", SupportedComponentSet: []string{"VEVENT", "VTODO"}},
			{Path: "/calendars/alice/home/"},
			{Path: "/calendars/alice/tasks/", SupportedComponentSet: []string{"VTODO"}},
		},
		objects: map[string][]*ical.Calendar{
			"/calendars/alice/work/":  {work},
			"/calendars/alice/home/":  {home},
			"/calendars/alice/tasks/": {todo},
		},
	}
	c := NewClientWithQuerier("alice", q)

	busy, err := c.BusyIntervals(context.Background(), week())
	require.NoError(t, err)
	require.Len(t, busy, 2)
	assert.Equal(t, 4, busy[0].Start.Day())
	assert.Equal(t, 5, busy[1].Start.Day())

	require.Len(t, q.queries, 2)
	filter := q.queries[0].CompFilter
	assert.Equal(t, "VCALENDAR", filter.Name)
	require.Len(t, filter.Comps, 1)
	assert.Equal(t, "VEVENT", filter.Comps[0].Name)
	assert.True(t, filter.Comps[0].Start.Equal(week().Start))
	assert.True(t, filter.Comps[0].End.Equal(week().End))

	_, err = c.BusyIntervals(context.Background(), week())
	require.NoError(t, err)
	assert.Equal(t, 1, q.discoveries)
}

func TestClient_BusyIntervals_QueryError(t *testing.T) {
	q := &fakeQuerier{
		calendars: []dav.Calendar{{Path: "/calendars/alice/work/"}},
		queryErr:  errors.New("503 service unavailable"),
	}
	c := NewClientWithQuerier("alice", q)

	_, err := c.BusyIntervals(context.Background(), week())
	assert.ErrorContains(t, err, "503")
}

func TestClient_BusyIntervals_NoCalendars(t *testing.T) {
	c := NewClientWithQuerier("alice", &fakeQuerier{})

	busy, err := c.BusyIntervals(context.Background(), week())
	require.NoError(t, err)
	assert.NotNil(t, busy)
	assert.Empty(t, busy)
}

func TestNewClient(t *testing.T) {
	_, err := NewClient("alice", Account{}, nil)
	assert.Error(t, err)

	c, err := NewClient("alice", Account{Endpoint: "https://dav.example.com/", Username: "alice", Password: "pw"}, nil)
	require.NoError(t, err)
	assert.Equal(t, "alice", c.Name())
}

func TestAuthTransport(t *testing.T) {
	var gotUser, gotPass, gotAgent string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUser, gotPass, _ = r.BasicAuth()
		gotAgent = r.UserAgent()
	}))
	defer srv.Close()

	client := &http.Client{Transport: &authTransport{Username: "alice", Password: "pw", Transport: http.DefaultTransport}}
	resp, err := client.Get(srv.URL)
	require.NoError(t, err)
	_ = resp.Body.Close()

	assert.Equal(t, "alice", gotUser)
	assert.Equal(t, "pw", gotPass)
	assert.Equal(t, "calpal/1.0", gotAgent)
}

func TestProvider(t *testing.T) {
	q := &fakeQuerier{}
	p := NewProvider(NewClientWithQuerier("bob", q), NewClientWithQuerier("alice", q))

	assert.Equal(t, []string{"alice", "bob"}, p.Accounts())

	busy, err := p.BusyIntervals(context.Background(), "alice", week())
	require.NoError(t, err)
	assert.Empty(t, busy)

	_, err = p.BusyIntervals(context.Background(), "carol", week())
	assert.True(t, errors.Is(err, ErrUnknownAccount))
}

var _ availability.BusyProvider = (*Provider)(nil)
