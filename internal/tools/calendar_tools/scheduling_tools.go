package calendar_tools

import (
	"cmp"
	"context"
	"encoding/json"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/LamPham123/CalPal.ai/internal/availability"
	"github.com/LamPham123/CalPal.ai/internal/server"
	"github.com/LamPham123/CalPal.ai/internal/tools/batch"
	"github.com/LamPham123/CalPal.ai/internal/tools/common"
)

const participantsDescription = "Participants as a comma-separated list or JSON array. " +
	"A bare name or google:<account> is a Google account with a saved token; caldav:<account> is a configured CalDAV account."

// RegisterSchedulingTools registers scheduling and availability tools with the MCP server
func RegisterSchedulingTools(s *mcpserver.MCPServer, sc *server.ServerContext) error {
	suggestSlotsTool := mcp.NewTool("calendar_suggest_slots",
		mcp.WithDescription("Suggest meeting times when every participant is free. "+
			"Returns the best slots, spread across as many days as possible, and the total number of candidates found."),
		mcp.WithString("account",
			mcp.Description("Google account asking for the meeting (default: the configured default account). "+
				"It is added to the participants unless includeSelf is false."),
		),
		mcp.WithString("participants",
			mcp.Required(),
			mcp.Description(participantsDescription),
		),
		mcp.WithString("windowStart",
			mcp.Required(),
			mcp.Description("Start of the search window (RFC3339 format with offset, e.g., '2026-03-02T09:00:00Z')"),
		),
		mcp.WithString("windowEnd",
			mcp.Required(),
			mcp.Description("End of the search window (RFC3339 format with offset, e.g., '2026-03-06T17:00:00Z')"),
		),
		mcp.WithNumber("durationMinutes",
			mcp.Required(),
			mcp.Description("Meeting duration in minutes"),
		),
		mcp.WithString("workHoursStart",
			mcp.Description("Earliest local start time, HH:MM (e.g., '09:00')"),
		),
		mcp.WithString("workHoursEnd",
			mcp.Description("Latest local end time, HH:MM (e.g., '17:00')"),
		),
		mcp.WithBoolean("avoidWeekends",
			mcp.Description("Skip slots starting on Saturday or Sunday"),
		),
		mcp.WithString("timeZone",
			mcp.Description("IANA time zone for work hours, weekends and the returned times (default: configured zone)"),
		),
		mcp.WithNumber("maxResults",
			mcp.Description("Maximum number of slots to return (default: 5)"),
		),
		mcp.WithBoolean("includeSelf",
			mcp.Description("Add the requesting account as a participant (default: true)"),
		),
	)

	s.AddTool(suggestSlotsTool, common.InstrumentedToolHandler("calendar_suggest_slots", sc,
		func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			return handleSuggestSlots(ctx, request, sc)
		}))

	queryFreeBusyTool := mcp.NewTool("calendar_query_freebusy",
		mcp.WithDescription("Show the busy periods of one or more participants in a time range. "+
			"Each participant is reported separately, so one failure does not hide the others."),
		mcp.WithString("participants",
			mcp.Required(),
			mcp.Description(participantsDescription),
		),
		mcp.WithString("windowStart",
			mcp.Required(),
			mcp.Description("Start time for the range (RFC3339 format, e.g., '2026-03-02T00:00:00Z')"),
		),
		mcp.WithString("windowEnd",
			mcp.Required(),
			mcp.Description("End time for the range (RFC3339 format, e.g., '2026-03-06T23:59:59Z')"),
		),
		mcp.WithString("timeZone",
			mcp.Description("IANA time zone for the returned times (default: configured zone)"),
		),
	)

	s.AddTool(queryFreeBusyTool, common.InstrumentedToolHandler("calendar_query_freebusy", sc,
		func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			return handleQueryFreeBusy(ctx, request, sc)
		}))

	return nil
}

// suggestSlotsResult is the JSON body of a calendar_suggest_slots result.
type suggestSlotsResult struct {
	RequestID    string                  `json:"requestId,omitempty"`
	Participants []string                `json:"participants"`
	TimeZone     string                  `json:"timeZone"`
	Slots        []availability.Interval `json:"slots"`
	TotalFound   int                     `json:"totalFound"`
}

func handleSuggestSlots(ctx context.Context, request mcp.CallToolRequest, sc *server.ServerContext) (*mcp.CallToolResult, error) {
	args := request.GetArguments()
	account := common.GetAccountFromArgs(args, sc.DefaultAccount())

	participants, err := batch.ParseStringOrArray(args["participants"], "participants")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if boolArg(args, "includeSelf", true) {
		participants = withSelf(account, participants)
	}

	duration, err := intArg(args, "durationMinutes", 0)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if err := sc.Scheduling().ValidateDuration(duration); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	maxResults, err := intArg(args, "maxResults", sc.Scheduling().ToolMaxResults)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if maxResults <= 0 {
		return mcp.NewToolResultError(fmt.Sprintf("maxResults must be positive, got %d", maxResults)), nil
	}

	body := availability.SearchRequest{
		ParticipantIDs:  participants,
		WindowStart:     stringArg(args, "windowStart"),
		WindowEnd:       stringArg(args, "windowEnd"),
		DurationMinutes: duration,
		Preferences: availability.Preferences{
			WorkHoursStart: stringArg(args, "workHoursStart"),
			WorkHoursEnd:   stringArg(args, "workHoursEnd"),
			AvoidWeekends:  boolArg(args, "avoidWeekends", false),
		},
		MaxResults: maxResults,
		TimeZone:   stringArg(args, "timeZone"),
	}
	req, err := body.Request(sc.Location())
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	result, err := sc.Finder().FindBestSlots(ctx, req)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to find available slots: %v", err)), nil
	}

	requestID, _ := availability.RequestIDFromContext(ctx)
	resp := availability.NewSearchResponse(result)
	out := suggestSlotsResult{
		RequestID:    requestID,
		Participants: participants,
		TimeZone:     req.Location.String(),
		Slots:        inLocation(resp.Slots, req.Location),
		TotalFound:   resp.TotalFound,
	}
	return jsonResult(out)
}

// withSelf prepends account unless it is already listed, bare or with the
// google scheme.
func withSelf(account string, participants []string) []string {
	for _, p := range participants {
		if p == account || strings.EqualFold(p, server.SchemeGoogle+":"+account) {
			return participants
		}
	}
	return append([]string{account}, participants...)
}

// freeBusyResult is the per-participant result of calendar_query_freebusy.
type freeBusyResult struct {
	Busy []availability.Interval `json:"busy"`
}

func handleQueryFreeBusy(ctx context.Context, request mcp.CallToolRequest, sc *server.ServerContext) (*mcp.CallToolResult, error) {
	args := request.GetArguments()

	participants, err := batch.ParseStringOrArray(args["participants"], "participants")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	window, err := windowArgs(args)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	loc, err := availability.LoadLocation(stringArg(args, "timeZone"), sc.Location())
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	results := batch.ProcessBatch(ctx, participants, sc.Config().Fetch.Concurrency, func(ctx context.Context, id string) (any, error) {
		busy, err := sc.Finder().FetchBusy(ctx, id, window)
		if err != nil {
			return nil, err
		}
		busy = slices.Clone(busy)
		slices.SortFunc(busy, func(a, b availability.Interval) int {
			return cmp.Or(a.Start.Compare(b.Start), a.End.Compare(b.End))
		})
		return freeBusyResult{Busy: inLocation(busy, loc)}, nil
	})

	return mcp.NewToolResultText(batch.FormatResults(results)), nil
}

func inLocation(intervals []availability.Interval, loc *time.Location) []availability.Interval {
	out := make([]availability.Interval, len(intervals))
	for i, iv := range intervals {
		out[i] = iv.In(loc)
	}
	return out
}

func jsonResult(v any) (*mcp.CallToolResult, error) {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to encode result: %v", err)), nil
	}
	return mcp.NewToolResultText(string(out)), nil
}
