package calendar_tools

import (
	"errors"
	"fmt"
	"math"
	"time"

	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/LamPham123/CalPal.ai/internal/availability"
	"github.com/LamPham123/CalPal.ai/internal/calendar"
	"github.com/LamPham123/CalPal.ai/internal/google"
	"github.com/LamPham123/CalPal.ai/internal/server"
)

// RegisterCalendarTools registers all Calendar-related tools with the MCP server
func RegisterCalendarTools(s *mcpserver.MCPServer, sc *server.ServerContext) error {
	if err := RegisterCalendarListTools(s, sc); err != nil {
		return fmt.Errorf("failed to register calendar list tools: %w", err)
	}
	if err := RegisterSchedulingTools(s, sc); err != nil {
		return fmt.Errorf("failed to register scheduling tools: %w", err)
	}
	return nil
}

// getCalendarClient returns the Google Calendar client for account, or an
// error that walks the user through authorization when no token exists.
func getCalendarClient(account string, sc *server.ServerContext) (*calendar.Client, error) {
	client, err := sc.GoogleProvider().Client(account)
	if errors.Is(err, google.ErrNoToken) {
		msg := google.AuthenticationErrorMessage(account)
		if url, urlErr := sc.Tokens().AuthURL(account); urlErr == nil {
			msg += "\n\nAuthorization URL:\n" + url
		}
		return nil, errors.New(msg)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to create Calendar client for account %s: %w", account, err)
	}
	return client, nil
}

func stringArg(args map[string]any, name string) string {
	s, _ := args[name].(string)
	return s
}

func boolArg(args map[string]any, name string, fallback bool) bool {
	if b, ok := args[name].(bool); ok {
		return b
	}
	return fallback
}

// intArg accepts JSON numbers, which arrive as float64. Fractional values
// are rejected.
func intArg(args map[string]any, name string, fallback int) (int, error) {
	v, ok := args[name]
	if !ok || v == nil {
		return fallback, nil
	}
	f, ok := v.(float64)
	if !ok {
		return 0, fmt.Errorf("%s must be a number", name)
	}
	if f != math.Trunc(f) {
		return 0, fmt.Errorf("%s must be a whole number, got %g", name, f)
	}
	return int(f), nil
}

// windowArgs reads windowStart and windowEnd as RFC 3339 timestamps.
func windowArgs(args map[string]any) (availability.Window, error) {
	var w availability.Window
	for _, f := range []struct {
		name string
		dst  *time.Time
	}{
		{"windowStart", &w.Start},
		{"windowEnd", &w.End},
	} {
		raw := stringArg(args, f.name)
		if raw == "" {
			return w, fmt.Errorf("%s is required", f.name)
		}
		t, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			return w, fmt.Errorf("invalid %s %q: expected RFC 3339, e.g. 2026-03-02T09:00:00Z", f.name, raw)
		}
		*f.dst = t
	}
	return w, w.Validate()
}
