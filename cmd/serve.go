package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"sort"
	"syscall"
	"time"

	mcpserver "github.com/mark3labs/mcp-go/server"
	"github.com/spf13/cobra"

	"github.com/LamPham123/CalPal.ai/internal/config"
	"github.com/LamPham123/CalPal.ai/internal/instrumentation"
	"github.com/LamPham123/CalPal.ai/internal/logging"
	"github.com/LamPham123/CalPal.ai/internal/server"
	"github.com/LamPham123/CalPal.ai/internal/tools/calendar_tools"
	"github.com/LamPham123/CalPal.ai/internal/tools/google_tools"
)

const startupTimeout = 5 * time.Second

// serveFlags are the serve command flags. A flag only overrides the loaded
// config when it was set explicitly.
type serveFlags struct {
	debug              bool
	transport          string
	httpAddr           string
	metricsEnabled     bool
	metricsAddr        string
	googleClientID     string
	googleClientSecret string
}

func (f serveFlags) apply(cmd *cobra.Command, cfg *config.Config) {
	flags := cmd.Flags()
	if f.debug {
		cfg.Log.Level = "debug"
	}
	if flags.Changed("transport") {
		cfg.Server.Transport = f.transport
	}
	if flags.Changed("http-addr") {
		cfg.Server.HTTPAddr = f.httpAddr
	}
	if flags.Changed("metrics-enabled") {
		cfg.Server.MetricsEnabled = f.metricsEnabled
	}
	if flags.Changed("metrics-addr") {
		cfg.Server.MetricsAddr = f.metricsAddr
	}
	if flags.Changed("google-client-id") {
		cfg.Google.ClientID = f.googleClientID
	}
	if flags.Changed("google-client-secret") {
		cfg.Google.ClientSecret = f.googleClientSecret
	}
}

func newServeCmd() *cobra.Command {
	var flags serveFlags

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the MCP server",
		Long: `Start the Model Context Protocol (MCP) server that exposes the calendar
availability tools to AI assistants.

Supports multiple transport types:
  - stdio: Standard input/output (default)
  - streamable-http: Streamable HTTP transport on /mcp, plus the
    POST /api/schedule/find-time endpoint and /healthz, /readyz, /healthz/detailed

Google accounts:
  Each Google participant needs a saved OAuth token. Configure the OAuth client
  with google.client_id/google.client_secret (or CALPAL_GOOGLE_CLIENT_ID and
  CALPAL_GOOGLE_CLIENT_SECRET), then authorize accounts with the
  google_get_auth_url and google_save_auth_code tools.

CalDAV accounts:
  Configured under caldav.<name> in the config file and addressed as caldav:<name>.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			flags.apply(cmd, cfg)
			if err := cfg.Validate(); err != nil {
				return err
			}

			// stdout carries the protocol in stdio mode.
			logger, err := newLogger(cfg, os.Stderr)
			if err != nil {
				return err
			}

			ctx, cancel := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer cancel()
			return runServe(ctx, cfg, logger)
		},
	}

	cmd.Flags().BoolVar(&flags.debug, "debug", false, "Enable debug logging")
	cmd.Flags().StringVar(&flags.transport, "transport", config.TransportStdio, "Transport type: stdio or streamable-http")
	cmd.Flags().StringVar(&flags.httpAddr, "http-addr", ":8080", "HTTP server address (for streamable-http transport)")
	cmd.Flags().BoolVar(&flags.metricsEnabled, "metrics-enabled", true, "Enable the metrics server on a dedicated port (streamable-http only)")
	cmd.Flags().StringVar(&flags.metricsAddr, "metrics-addr", ":9090", "Metrics server address")
	cmd.Flags().StringVar(&flags.googleClientID, "google-client-id", "", "Google OAuth Client ID. Can also use CALPAL_GOOGLE_CLIENT_ID env var.")
	cmd.Flags().StringVar(&flags.googleClientSecret, "google-client-secret", "", "Google OAuth Client Secret. Can also use CALPAL_GOOGLE_CLIENT_SECRET env var.")

	return cmd
}

func runServe(ctx context.Context, cfg *config.Config, logger *slog.Logger) (err error) {
	instrConfig := instrumentation.DefaultConfig()
	instrConfig.ServiceVersion = version
	instrConfig.DefaultTimeZone = cfg.Scheduling.TimeZone
	instrConfig.CalendarProviders = calendarProviders(cfg)

	provider, err := instrumentation.NewProvider(ctx, instrConfig)
	if err != nil {
		return fmt.Errorf("failed to create instrumentation provider: %w", err)
	}

	var (
		metrics     *instrumentation.Metrics
		auditLogger *instrumentation.AuditLogger
	)
	if provider.Enabled() {
		metrics = provider.Metrics()
		auditLogger = instrumentation.NewAuditLogger(logger, instrConfig.AuditLogging)
	}

	sc, err := server.NewServerContext(ctx, server.Options{
		Config:      cfg,
		Logger:      logger,
		Metrics:     metrics,
		AuditLogger: auditLogger,
	})
	if err != nil {
		return errors.Join(fmt.Errorf("failed to create server context: %w", err), shutdownProvider(provider))
	}
	defer func() {
		err = errors.Join(err, sc.Shutdown(), shutdownProvider(provider))
	}()

	mcpSrv, err := newMCPServer(sc)
	if err != nil {
		return err
	}

	logger.Info("starting calpal MCP server",
		slog.String("transport", cfg.Server.Transport),
		slog.String("version", version),
		slog.Any("providers", sc.Providers()))

	switch cfg.Server.Transport {
	case config.TransportStdio:
		return runStdioServer(mcpSrv, logger)
	case config.TransportStreamableHTTP:
		return runStreamableHTTPServer(ctx, cfg, sc, mcpSrv, provider, logger)
	default:
		return fmt.Errorf("unsupported transport type: %s (supported: stdio, streamable-http)", cfg.Server.Transport)
	}
}

func shutdownProvider(p *instrumentation.Provider) error {
	ctx, cancel := context.WithTimeout(context.Background(), server.DefaultShutdownTimeout)
	defer cancel()
	if err := p.Shutdown(ctx); err != nil {
		return fmt.Errorf("instrumentation shutdown: %w", err)
	}
	return nil
}

// newMCPServer creates the MCP server with every tool registered.
func newMCPServer(sc *server.ServerContext) (*mcpserver.MCPServer, error) {
	mcpSrv := mcpserver.NewMCPServer("calpal", version,
		mcpserver.WithToolCapabilities(true),
	)
	if err := registerAllTools(mcpSrv, sc); err != nil {
		return nil, err
	}
	return mcpSrv, nil
}

// registerAllTools registers all MCP tools
func registerAllTools(mcpSrv *mcpserver.MCPServer, sc *server.ServerContext) error {
	registrations := []struct {
		name     string
		register func() error
	}{
		{
			name: "Calendar",
			register: func() error {
				return calendar_tools.RegisterCalendarTools(mcpSrv, sc)
			},
		},
		{
			name: "Google",
			register: func() error {
				return google_tools.RegisterGoogleTools(mcpSrv, sc)
			},
		},
	}

	for _, reg := range registrations {
		if err := reg.register(); err != nil {
			return fmt.Errorf("failed to register %s tools: %w", reg.name, err)
		}
	}
	return nil
}

// calendarProviders lists what participants can be fetched from, in the same
// form ServerContext.Providers reports once the context exists.
func calendarProviders(cfg *config.Config) []string {
	out := []string{server.SchemeCalDAV, server.SchemeGoogle}
	for name := range cfg.CalDAV {
		out = append(out, server.SchemeCalDAV+":"+name)
	}
	sort.Strings(out)
	return out
}

func runStdioServer(mcpSrv *mcpserver.MCPServer, logger *slog.Logger) error {
	errLogger := slog.NewLogLogger(logger.Handler(), slog.LevelError)
	if err := mcpserver.ServeStdio(mcpSrv, mcpserver.WithErrorLogger(errLogger)); err != nil {
		return fmt.Errorf("server stopped with error: %w", err)
	}
	return nil
}

func runStreamableHTTPServer(ctx context.Context, cfg *config.Config, sc *server.ServerContext, mcpSrv *mcpserver.MCPServer, provider *instrumentation.Provider, logger *slog.Logger) (err error) {
	if cfg.Server.MetricsEnabled && provider.PrometheusEnabled() {
		metricsServer, merr := startMetricsServer(cfg.Server.MetricsAddr, provider, logger)
		if merr != nil {
			return merr
		}
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), server.DefaultShutdownTimeout)
			defer cancel()
			if serr := metricsServer.Shutdown(shutdownCtx); serr != nil {
				err = errors.Join(err, fmt.Errorf("metrics server shutdown: %w", serr))
			}
		}()
	}

	httpServer := server.NewHTTPServer(sc, mcpSrv, version)
	serverDone, err := start(func(ready chan<- struct{}) error {
		return httpServer.StartWithReadySignal(cfg.Server.HTTPAddr, ready)
	})
	if err != nil {
		return fmt.Errorf("HTTP server failed to start: %w", err)
	}
	logger.Info("streamable HTTP server started",
		slog.String("addr", httpServer.Addr()),
		slog.String("mcp_endpoint", server.MCPPath),
		slog.String("find_time_endpoint", server.FindTimePath))

	select {
	case <-ctx.Done():
		logger.Info("shutdown signal received, stopping HTTP server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), server.DefaultShutdownTimeout)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("error shutting down HTTP server: %w", err)
		}
	case err := <-serverDone:
		if err != nil {
			return fmt.Errorf("HTTP server stopped with error: %w", err)
		}
	}

	logger.Info("HTTP server gracefully stopped")
	return nil
}

func startMetricsServer(addr string, provider *instrumentation.Provider, logger *slog.Logger) (*server.MetricsServer, error) {
	metricsServer, err := server.NewMetricsServer(server.MetricsServerConfig{
		Addr:                    addr,
		InstrumentationProvider: provider,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create metrics server: %w", err)
	}

	done, err := start(func(ready chan<- struct{}) error {
		return metricsServer.StartWithReadySignal(ready)
	})
	if err != nil {
		return nil, fmt.Errorf("metrics server failed to start: %w", err)
	}
	logger.Info("metrics server started", slog.String("addr", metricsServer.Addr()))
	go logServeError(logger, "metrics server", done)
	return metricsServer, nil
}

// start runs serve in the background and waits until it signals readiness.
// The returned channel yields the serve error, if any, once it stops;
// http.ErrServerClosed is not reported.
func start(serve func(ready chan<- struct{}) error) (<-chan error, error) {
	ready := make(chan struct{})
	done := make(chan error, 1)
	go func() {
		defer close(done)
		if err := serve(ready); err != nil && !errors.Is(err, http.ErrServerClosed) {
			done <- err
		}
	}()

	select {
	case <-ready:
		return done, nil
	case err := <-done:
		if err == nil {
			err = errors.New("server stopped before it was ready")
		}
		return nil, err
	case <-time.After(startupTimeout):
		return nil, errors.New("startup timed out")
	}
}

func logServeError(logger *slog.Logger, name string, done <-chan error) {
	if err := <-done; err != nil {
		logger.Error(name+" stopped", logging.Err(err))
	}
}
