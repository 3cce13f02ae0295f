package caldav

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	dav "github.com/emersion/go-webdav/caldav"

	"github.com/LamPham123/CalPal.ai/internal/availability"
	"github.com/LamPham123/CalPal.ai/internal/instrumentation"
	"github.com/LamPham123/CalPal.ai/internal/logging"
)

// Querier is the subset of the CalDAV protocol the client needs.
// *caldav.Client from go-webdav implements it.
type Querier interface {
	FindCurrentUserPrincipal(ctx context.Context) (string, error)
	FindCalendarHomeSet(ctx context.Context, principal string) (string, error)
	FindCalendars(ctx context.Context, calendarHomeSet string) ([]dav.Calendar, error)
	QueryCalendar(ctx context.Context, calendar string, query *dav.CalendarQuery) ([]dav.CalendarObject, error)
}

// Account is the connection info for one CalDAV participant.
type Account struct {
	Endpoint string
	Username string
	Password string
}

// authTransport adds Basic Auth and the client's User-Agent to each request.
type authTransport struct {
	Username  string
	Password  string
	Transport http.RoundTripper
}

func (t *authTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	req = req.Clone(req.Context())
	if t.Username != "" {
		req.SetBasicAuth(t.Username, t.Password)
	}
	req.Header.Set("User-Agent", "calpal/1.0")
	return t.Transport.RoundTrip(req)
}

// Client reads busy time from every calendar in one principal's home set.
type Client struct {
	name     string
	q        Querier
	location *time.Location
	logger   logging.Logger
	metrics  *instrumentation.Metrics

	mu        sync.Mutex
	calendars []dav.Calendar
}

// NewClient connects to the CalDAV server of acct. Discovery is deferred to
// the first query.
func NewClient(name string, acct Account, base http.RoundTripper) (*Client, error) {
	if acct.Endpoint == "" {
		return nil, fmt.Errorf("caldav account %s has no endpoint", name)
	}
	if base == nil {
		base = http.DefaultTransport
	}
	httpClient := &http.Client{Transport: &authTransport{
		Username:  acct.Username,
		Password:  acct.Password,
		Transport: base,
	}}
	q, err := dav.NewClient(httpClient, acct.Endpoint)
	if err != nil {
		return nil, fmt.Errorf("failed to create caldav client: %w", err)
	}
	return NewClientWithQuerier(name, q), nil
}

// NewClientWithQuerier wraps an existing Querier.
func NewClientWithQuerier(name string, q Querier) *Client {
	return &Client{
		name:     name,
		q:        q,
		location: time.UTC,
		logger:   logging.DiscardLogger(),
	}
}

// Name returns the account name.
func (c *Client) Name() string {
	return c.name
}

// SetLocation sets the zone used for floating times and all-day events.
func (c *Client) SetLocation(loc *time.Location) {
	if loc != nil {
		c.location = loc
	}
}

// SetLogger sets the logger used for skipped-event warnings.
func (c *Client) SetLogger(l logging.Logger) {
	if l != nil {
		c.logger = l
	}
}

// SetMetrics enables upstream request metrics.
func (c *Client) SetMetrics(m *instrumentation.Metrics) {
	c.metrics = m
}

func (c *Client) observe(ctx context.Context, operation string, fn func(ctx context.Context) error) error {
	ctx, span := instrumentation.StartProviderSpan(ctx, instrumentation.ProviderCalDAV, operation,
		instrumentation.NewSpanAttributeBuilder().WithAccount(c.name).Build()...)
	defer span.End()

	start := time.Now()
	err := fn(ctx)

	status := instrumentation.StatusSuccess
	switch {
	case errors.Is(err, context.Canceled):
		status = instrumentation.StatusCanceled
	case err != nil:
		status = instrumentation.StatusError
	}
	c.metrics.RecordProviderAPIRequest(ctx, instrumentation.ProviderCalDAV, operation, status, time.Since(start))

	if err != nil {
		instrumentation.SetSpanError(span, err)
	} else {
		instrumentation.SetSpanSuccess(span)
	}
	return err
}

// Calendars discovers the event calendars in the principal's home set.
// The result is cached after the first successful call.
func (c *Client) Calendars(ctx context.Context) ([]dav.Calendar, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.calendars != nil {
		return c.calendars, nil
	}

	var all []dav.Calendar
	err := c.observe(ctx, instrumentation.OperationDiscover, func(ctx context.Context) error {
		principal, err := c.q.FindCurrentUserPrincipal(ctx)
		if err != nil {
			return fmt.Errorf("failed to find principal path: %w", err)
		}
		homeSet, err := c.q.FindCalendarHomeSet(ctx, principal)
		if err != nil {
			return fmt.Errorf("failed to find calendar home set: %w", err)
		}
		all, err = c.q.FindCalendars(ctx, homeSet)
		if err != nil {
			return fmt.Errorf("failed to find calendars: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	events := make([]dav.Calendar, 0, len(all))
	for _, cal := range all {
		if supportsEvents(cal) {
			events = append(events, cal)
		}
	}
	c.calendars = events
	return events, nil
}

func supportsEvents(cal dav.Calendar) bool {
	if len(cal.SupportedComponentSet) == 0 {
		return true
	}
	for _, comp := range cal.SupportedComponentSet {
		if comp == "VEVENT" {
			return true
		}
	}
	return false
}

func eventQuery(window availability.Window) *dav.CalendarQuery {
	return &dav.CalendarQuery{
		CompRequest: dav.CalendarCompRequest{
			Name: "VCALENDAR",
			Comps: []dav.CalendarCompRequest{{
				Name:     "VEVENT",
				AllProps: true,
			}},
		},
		CompFilter: dav.CompFilter{
			Name: "VCALENDAR",
			Comps: []dav.CompFilter{{
				Name:  "VEVENT",
				Start: window.Start.UTC(),
				End:   window.End.UTC(),
			}},
		},
	}
}

// BusyIntervals returns the busy time of every event calendar inside window.
func (c *Client) BusyIntervals(ctx context.Context, window availability.Window) ([]availability.Interval, error) {
	calendars, err := c.Calendars(ctx)
	if err != nil {
		return nil, err
	}

	busy := []availability.Interval{}
	skipped := 0
	for _, cal := range calendars {
		var objects []dav.CalendarObject
		err := c.observe(ctx, instrumentation.OperationQuery, func(ctx context.Context) error {
			var err error
			objects, err = c.q.QueryCalendar(ctx, cal.Path, eventQuery(window))
			return err
		})
		if err != nil {
			return nil, fmt.Errorf("failed to query calendar %s: %w", cal.Path, err)
		}
		for _, obj := range objects {
			blocks, n := BusyFromCalendar(obj.Data, window, c.location)
			busy = append(busy, blocks...)
			skipped += n
		}
	}
	if skipped > 0 {
		c.logger.Warn("skipped unparsable calendar events",
			logging.Provider(instrumentation.ProviderCalDAV), logging.Account(c.name), "count", skipped)
	}
	return busy, nil
}
