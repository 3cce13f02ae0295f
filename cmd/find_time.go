package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/LamPham123/CalPal.ai/internal/availability"
	"github.com/LamPham123/CalPal.ai/internal/server"
)

func newFindTimeCmd() *cobra.Command {
	var (
		body        availability.SearchRequest
		requestFile string
	)

	cmd := &cobra.Command{
		Use:   "find-time",
		Short: "Find meeting slots when every participant is free",
		Long: `Search the participants' calendars for common free slots and print the
result as JSON ({"slots": [...], "totalFound": n}).

The search is given either with flags or as a JSON request file (--request,
"-" for stdin) using the same shape as POST /api/schedule/find-time.

Examples:
  calpal find-time -p work -p caldav:team --start 2026-03-02T00:00:00Z \
    --end 2026-03-07T00:00:00Z --duration 60 --work-hours-start 09:00 \
    --work-hours-end 17:00 --avoid-weekends --time-zone Europe/Berlin
  calpal find-time --request search.json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if requestFile != "" {
				fromFile, err := readSearchRequest(cmd.InOrStdin(), requestFile)
				if err != nil {
					return err
				}
				body = fromFile
			}

			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			logger, err := newLogger(cfg, cmd.ErrOrStderr())
			if err != nil {
				return err
			}

			sc, err := server.NewServerContext(cmd.Context(), server.Options{Config: cfg, Logger: logger})
			if err != nil {
				return fmt.Errorf("failed to create server context: %w", err)
			}
			defer func() { _ = sc.Shutdown() }()

			return runFindTime(cmd.Context(), sc, body, cmd.OutOrStdout())
		},
	}

	f := cmd.Flags()
	f.StringSliceVarP(&body.ParticipantIDs, "participant", "p", nil, "Participant ID (repeatable): a Google account, google:<account> or caldav:<account>")
	f.StringVar(&body.WindowStart, "start", "", "Search window start (RFC 3339)")
	f.StringVar(&body.WindowEnd, "end", "", "Search window end (RFC 3339)")
	f.IntVar(&body.DurationMinutes, "duration", 30, "Meeting duration in minutes")
	f.StringVar(&body.Preferences.WorkHoursStart, "work-hours-start", "", "Earliest local start time, HH:MM")
	f.StringVar(&body.Preferences.WorkHoursEnd, "work-hours-end", "", "Latest local end time, HH:MM")
	f.BoolVar(&body.Preferences.AvoidWeekends, "avoid-weekends", false, "Skip slots starting on Saturday or Sunday")
	f.IntVar(&body.MaxResults, "max-results", 0, "Maximum number of slots to print (default: scheduling.max_results)")
	f.StringVar(&body.TimeZone, "time-zone", "", "IANA time zone for preferences and output (default: scheduling.time_zone)")
	f.StringVar(&requestFile, "request", "", `Read the search from a JSON file ("-" for stdin) instead of flags`)

	return cmd
}

func readSearchRequest(stdin io.Reader, path string) (availability.SearchRequest, error) {
	var body availability.SearchRequest

	r := stdin
	if path != "-" {
		f, err := os.Open(path)
		if err != nil {
			return body, fmt.Errorf("failed to open request file: %w", err)
		}
		defer f.Close()
		r = f
	}

	dec := json.NewDecoder(r)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&body); err != nil {
		return body, fmt.Errorf("invalid request JSON: %w", err)
	}
	return body, nil
}

// runFindTime runs one search and writes the JSON response to w. Slots are
// printed in the request's time zone.
func runFindTime(ctx context.Context, sc *server.ServerContext, body availability.SearchRequest, w io.Writer) error {
	req, err := body.Request(sc.Location())
	if err != nil {
		return err
	}
	if len(req.ParticipantIDs) == 0 {
		return fmt.Errorf("at least one participant is required")
	}

	ctx = availability.WithRequestID(ctx, uuid.NewString())
	result, err := sc.Finder().FindBestSlots(ctx, req)
	if err != nil {
		return err
	}

	resp := availability.NewSearchResponse(result)
	for i, slot := range resp.Slots {
		resp.Slots[i] = slot.In(req.Location)
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(resp)
}
