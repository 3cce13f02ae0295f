package calendar

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	calendar "google.golang.org/api/calendar/v3"
	"google.golang.org/api/option"

	"github.com/LamPham123/CalPal.ai/internal/availability"
	"github.com/LamPham123/CalPal.ai/internal/google"
	"github.com/LamPham123/CalPal.ai/internal/instrumentation"
)

// maxFreeBusyItems is the number of calendars Google accepts per free/busy query.
const maxFreeBusyItems = 50

// Client wraps the Google Calendar service for one account
type Client struct {
	svc     *calendar.Service
	account string
	metrics *instrumentation.Metrics
}

// NewClient creates a Calendar client authenticated as account.
func NewClient(ctx context.Context, account string, tokens google.TokenProvider, opts ...option.ClientOption) (*Client, error) {
	if tokens == nil {
		return nil, fmt.Errorf("token provider cannot be nil")
	}
	httpClient, err := tokens.HTTPClient(ctx, account)
	if err != nil {
		return nil, fmt.Errorf("failed to get Google OAuth token for account %s: %w", account, err)
	}

	opts = append([]option.ClientOption{option.WithHTTPClient(httpClient)}, opts...)
	svc, err := calendar.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create Calendar service: %w", err)
	}
	return NewClientWithService(svc, account), nil
}

// NewClientWithService wraps an existing Calendar service.
func NewClientWithService(svc *calendar.Service, account string) *Client {
	return &Client{svc: svc, account: account}
}

// Account returns the account name this client is associated with
func (c *Client) Account() string {
	return c.account
}

// SetMetrics enables upstream request metrics. A nil value disables them.
func (c *Client) SetMetrics(m *instrumentation.Metrics) {
	c.metrics = m
}

func (c *Client) observe(ctx context.Context, operation string, fn func(ctx context.Context) error) error {
	ctx, span := instrumentation.StartProviderSpan(ctx, instrumentation.ProviderGoogle, operation,
		instrumentation.NewSpanAttributeBuilder().WithAccount(c.account).Build()...)
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
	c.metrics.RecordProviderAPIRequest(ctx, instrumentation.ProviderGoogle, operation, status, time.Since(start))

	if err != nil {
		instrumentation.SetSpanError(span, err)
	} else {
		instrumentation.SetSpanSuccess(span)
	}
	return err
}

// ListCalendars lists all calendars on the account's calendar list
func (c *Client) ListCalendars(ctx context.Context) ([]CalendarInfo, error) {
	var calendars []CalendarInfo
	err := c.observe(ctx, instrumentation.OperationCalendarList, func(ctx context.Context) error {
		return c.svc.CalendarList.List().Context(ctx).Pages(ctx, func(page *calendar.CalendarList) error {
			for _, entry := range page.Items {
				calendars = append(calendars, toCalendarInfo(entry))
			}
			return nil
		})
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list calendars: %w", err)
	}
	return calendars, nil
}

// OwnedCalendars lists the calendars that count toward the account's
// availability.
func (c *Client) OwnedCalendars(ctx context.Context) ([]CalendarInfo, error) {
	all, err := c.ListCalendars(ctx)
	if err != nil {
		return nil, err
	}
	owned := make([]CalendarInfo, 0, len(all))
	for _, cal := range all {
		if cal.Owned() {
			owned = append(owned, cal)
		}
	}
	return owned, nil
}

// QueryFreeBusy checks availability for calendars in a time range. Results
// follow the order of calendarIDs.
func (c *Client) QueryFreeBusy(ctx context.Context, timeMin, timeMax time.Time, calendarIDs []string) ([]FreeBusyInfo, error) {
	infos := make([]FreeBusyInfo, 0, len(calendarIDs))
	for lo := 0; lo < len(calendarIDs); lo += maxFreeBusyItems {
		hi := min(lo+maxFreeBusyItems, len(calendarIDs))
		batch, err := c.queryFreeBusy(ctx, timeMin, timeMax, calendarIDs[lo:hi])
		if err != nil {
			return nil, err
		}
		infos = append(infos, batch...)
	}
	return infos, nil
}

func (c *Client) queryFreeBusy(ctx context.Context, timeMin, timeMax time.Time, calendarIDs []string) ([]FreeBusyInfo, error) {
	items := make([]*calendar.FreeBusyRequestItem, len(calendarIDs))
	for i, id := range calendarIDs {
		items[i] = &calendar.FreeBusyRequestItem{Id: id}
	}
	query := &calendar.FreeBusyRequest{
		TimeMin: timeMin.UTC().Format(time.RFC3339),
		TimeMax: timeMax.UTC().Format(time.RFC3339),
		Items:   items,
	}

	var result *calendar.FreeBusyResponse
	err := c.observe(ctx, instrumentation.OperationFreeBusy, func(ctx context.Context) error {
		var err error
		result, err = c.svc.Freebusy.Query(query).Context(ctx).Do()
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to query freebusy: %w", err)
	}

	infos := make([]FreeBusyInfo, 0, len(calendarIDs))
	for _, id := range calendarIDs {
		cal, ok := result.Calendars[id]
		if !ok {
			infos = append(infos, FreeBusyInfo{Calendar: id, Errors: []string{"notFound"}})
			continue
		}
		info, err := toFreeBusyInfo(id, cal)
		if err != nil {
			return nil, err
		}
		infos = append(infos, info)
	}
	return infos, nil
}

// BusyIntervals returns the busy time of every owned calendar inside window.
// A calendar the query could not answer for fails the whole call.
func (c *Client) BusyIntervals(ctx context.Context, window availability.Window) ([]availability.Interval, error) {
	owned, err := c.OwnedCalendars(ctx)
	if err != nil {
		return nil, err
	}
	if len(owned) == 0 {
		return []availability.Interval{}, nil
	}

	ids := make([]string, len(owned))
	for i, cal := range owned {
		ids[i] = cal.ID
	}
	infos, err := c.QueryFreeBusy(ctx, window.Start, window.End, ids)
	if err != nil {
		return nil, err
	}

	var busy []availability.Interval
	for _, info := range infos {
		if len(info.Errors) > 0 {
			return nil, &CalendarError{Calendar: info.Calendar, Reasons: info.Errors}
		}
		for _, r := range info.Busy {
			busy = append(busy, availability.Interval{Start: r.Start, End: r.End})
		}
	}
	sort.SliceStable(busy, func(i, j int) bool { return busy[i].Start.Before(busy[j].Start) })
	return busy, nil
}
