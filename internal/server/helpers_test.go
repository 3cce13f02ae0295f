package server

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/LamPham123/CalPal.ai/internal/availability"
	"github.com/LamPham123/CalPal.ai/internal/config"
)

// newTestContext builds a ServerContext over provider with default settings.
// mutate, when set, adjusts the config before the context is wired.
func newTestContext(t *testing.T, provider availability.BusyProvider, mutate func(*config.Config)) *ServerContext {
	t.Helper()
	cfg, err := config.Load("")
	require.NoError(t, err)
	cfg.Google.TokenDir = t.TempDir()
	cfg.Fetch.RatePerSecond = 0
	if mutate != nil {
		mutate(cfg)
	}

	sc, err := NewServerContext(context.Background(), Options{
		Config:       cfg,
		Logger:       slog.New(slog.NewTextHandler(io.Discard, nil)),
		BusyProvider: provider,
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = sc.Shutdown() })
	return sc
}

// staticBusy returns fixed busy intervals per participant.
type staticBusy map[string][]availability.Interval

func (s staticBusy) BusyIntervals(_ context.Context, id string, _ availability.Window) ([]availability.Interval, error) {
	return s[id], nil
}

func utc(t *testing.T, s string) time.Time {
	t.Helper()
	ts, err := time.Parse(time.RFC3339, s)
	require.NoError(t, err)
	return ts
}

func postJSON(t *testing.T, h http.Handler, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	raw, err := json.Marshal(body)
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(raw))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}
