package availability

import (
	"fmt"
	"strings"
	"time"
)

// SearchRequest is the JSON form of a slot search shared by the HTTP
// endpoint, the CLI and the MCP tools.
type SearchRequest struct {
	ParticipantIDs  []string    `json:"participantIds"`
	WindowStart     string      `json:"windowStart"`
	WindowEnd       string      `json:"windowEnd"`
	DurationMinutes int         `json:"durationMinutes"`
	Preferences     Preferences `json:"preferences"`
	MaxResults      int         `json:"maxResults,omitempty"`
	TimeZone        string      `json:"timeZone,omitempty"`
}

// SearchResponse is the JSON form of a Result.
type SearchResponse struct {
	Slots      []Interval `json:"slots"`
	TotalFound int        `json:"totalFound"`
}

// Request converts the JSON form into a Request. Timestamps must be RFC 3339
// with an offset. defaultLoc is used when no time zone is given.
func (r SearchRequest) Request(defaultLoc *time.Location) (Request, error) {
	start, err := parseTimestamp("windowStart", r.WindowStart)
	if err != nil {
		return Request{}, err
	}
	end, err := parseTimestamp("windowEnd", r.WindowEnd)
	if err != nil {
		return Request{}, err
	}
	loc, err := LoadLocation(r.TimeZone, defaultLoc)
	if err != nil {
		return Request{}, err
	}

	ids := make([]string, 0, len(r.ParticipantIDs))
	for _, id := range r.ParticipantIDs {
		if id = strings.TrimSpace(id); id != "" {
			ids = append(ids, id)
		}
	}

	return Request{
		ParticipantIDs:  ids,
		Window:          Window{Start: start, End: end},
		DurationMinutes: r.DurationMinutes,
		Preferences:     r.Preferences,
		MaxResults:      r.MaxResults,
		Location:        loc,
	}, nil
}

func parseTimestamp(field, value string) (time.Time, error) {
	if value == "" {
		return time.Time{}, fmt.Errorf("%w: %s is required", ErrInvalidWindow, field)
	}
	t, err := time.Parse(time.RFC3339, value)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %s %q is not an RFC 3339 timestamp", ErrInvalidWindow, field, value)
	}
	return t, nil
}

// NewSearchResponse converts a Result into its JSON form. The slot list is
// never nil so that an empty result encodes as [].
func NewSearchResponse(result *Result) SearchResponse {
	resp := SearchResponse{Slots: []Interval{}}
	if result == nil {
		return resp
	}
	if result.Slots != nil {
		resp.Slots = result.Slots
	}
	resp.TotalFound = result.TotalFound
	return resp
}
