package calendar

import (
	"fmt"
	"strings"
	"time"

	calendar "google.golang.org/api/calendar/v3"
)

// Access roles reported by the calendar list.
const (
	AccessRoleOwner          = "owner"
	AccessRoleWriter         = "writer"
	AccessRoleReader         = "reader"
	AccessRoleFreeBusyReader = "freeBusyReader"
)

// CalendarInfo represents information about a calendar
type CalendarInfo struct {
	ID          string `json:"id"`
	Summary     string `json:"summary"`
	Description string `json:"description,omitempty"`
	TimeZone    string `json:"timeZone,omitempty"`
	Primary     bool   `json:"primary"`
	AccessRole  string `json:"accessRole"` // "owner", "writer", "reader", "freeBusyReader"
}

// Owned reports whether the calendar contributes to the account's busy time:
// the primary calendar and every calendar the account owns.
func (c CalendarInfo) Owned() bool {
	return c.Primary || c.AccessRole == AccessRoleOwner
}

// FreeBusyInfo represents availability information for a calendar
type FreeBusyInfo struct {
	Calendar string      `json:"calendar"`
	Busy     []TimeRange `json:"busy"`
	Errors   []string    `json:"errors,omitempty"`
}

// TimeRange represents a time range
type TimeRange struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// CalendarError reports a calendar the free/busy query could not answer for.
type CalendarError struct {
	Calendar string
	Reasons  []string
}

func (e *CalendarError) Error() string {
	return fmt.Sprintf("free/busy unavailable for calendar %s: %s", e.Calendar, strings.Join(e.Reasons, ", "))
}

func toCalendarInfo(entry *calendar.CalendarListEntry) CalendarInfo {
	if entry == nil {
		return CalendarInfo{}
	}
	return CalendarInfo{
		ID:          entry.Id,
		Summary:     entry.Summary,
		Description: entry.Description,
		TimeZone:    entry.TimeZone,
		Primary:     entry.Primary,
		AccessRole:  entry.AccessRole,
	}
}

func toFreeBusyInfo(id string, cal calendar.FreeBusyCalendar) (FreeBusyInfo, error) {
	info := FreeBusyInfo{Calendar: id}
	for _, e := range cal.Errors {
		if e != nil {
			info.Errors = append(info.Errors, e.Reason)
		}
	}
	for _, busy := range cal.Busy {
		if busy == nil {
			continue
		}
		start, err := time.Parse(time.RFC3339, busy.Start)
		if err != nil {
			return info, fmt.Errorf("invalid busy start %q for calendar %s: %w", busy.Start, id, err)
		}
		end, err := time.Parse(time.RFC3339, busy.End)
		if err != nil {
			return info, fmt.Errorf("invalid busy end %q for calendar %s: %w", busy.End, id, err)
		}
		info.Busy = append(info.Busy, TimeRange{Start: start, End: end})
	}
	return info, nil
}
