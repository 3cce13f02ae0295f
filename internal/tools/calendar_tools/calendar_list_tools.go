package calendar_tools

import (
	"context"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/LamPham123/CalPal.ai/internal/server"
	"github.com/LamPham123/CalPal.ai/internal/tools/common"
)

// RegisterCalendarListTools registers calendar list tools with the MCP server
func RegisterCalendarListTools(s *mcpserver.MCPServer, sc *server.ServerContext) error {
	listCalendarsTool := mcp.NewTool("calendar_list_calendars",
		mcp.WithDescription("List the calendars of an account and show which of them count toward its availability"),
		mcp.WithString("account",
			mcp.Description("Account name (default: the configured default account). "+
				"Use caldav:<account> for a configured CalDAV account."),
		),
	)

	s.AddTool(listCalendarsTool, common.InstrumentedToolHandler("calendar_list_calendars", sc,
		func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			return handleListCalendars(ctx, request, sc)
		}))

	return nil
}

func handleListCalendars(ctx context.Context, request mcp.CallToolRequest, sc *server.ServerContext) (*mcp.CallToolResult, error) {
	account := common.GetAccountFromArgs(request.GetArguments(), sc.DefaultAccount())

	scheme, name, scoped := strings.Cut(account, ":")
	if scoped && strings.EqualFold(scheme, server.SchemeCalDAV) {
		return listCalDAVCalendars(ctx, name, sc)
	}
	if scoped && strings.EqualFold(scheme, server.SchemeGoogle) {
		account = name
	}

	client, err := getCalendarClient(account, sc)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	calendars, err := client.ListCalendars(ctx)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to list calendars: %v", err)), nil
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Found %d calendar(s) for account %q:\n\n", len(calendars), account)
	for i, cal := range calendars {
		fmt.Fprintf(&b, "%d. %s\n", i+1, cal.Summary)
		fmt.Fprintf(&b, "   ID: %s\n", cal.ID)
		fmt.Fprintf(&b, "   Access Role: %s\n", cal.AccessRole)
		if cal.Primary {
			b.WriteString("   [PRIMARY]\n")
		}
		if cal.Owned() {
			b.WriteString("   Counts toward availability: yes\n")
		} else {
			b.WriteString("   Counts toward availability: no (not owned)\n")
		}
		if cal.TimeZone != "" {
			fmt.Fprintf(&b, "   Time Zone: %s\n", cal.TimeZone)
		}
		b.WriteString("\n")
	}
	return mcp.NewToolResultText(b.String()), nil
}

func listCalDAVCalendars(ctx context.Context, name string, sc *server.ServerContext) (*mcp.CallToolResult, error) {
	client, err := sc.CalDAVProvider().Client(name)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("%v (configured: %s)", err, strings.Join(sc.CalDAVProvider().Accounts(), ", "))), nil
	}

	calendars, err := client.Calendars(ctx)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to list calendars: %v", err)), nil
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Found %d event calendar(s) for CalDAV account %q, all counting toward availability:\n\n", len(calendars), name)
	for i, cal := range calendars {
		title := cal.Name
		if title == "" {
			title = cal.Path
		}
		fmt.Fprintf(&b, "%d. %s\n", i+1, title)
		fmt.Fprintf(&b, "   Path: %s\n", cal.Path)
		if cal.Description != "" {
			fmt.Fprintf(&b, "   Description: %s\n", cal.Description)
		}
		b.WriteString("\n")
	}
	return mcp.NewToolResultText(b.String()), nil
}
