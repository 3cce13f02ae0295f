package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"sort"
	"sync"
	"time"

	"github.com/LamPham123/CalPal.ai/internal/availability"
	"github.com/LamPham123/CalPal.ai/internal/caldav"
	"github.com/LamPham123/CalPal.ai/internal/calendar"
	"github.com/LamPham123/CalPal.ai/internal/config"
	"github.com/LamPham123/CalPal.ai/internal/google"
	"github.com/LamPham123/CalPal.ai/internal/instrumentation"
	"github.com/LamPham123/CalPal.ai/internal/logging"
)

// Participant ID schemes understood by the router.
const (
	SchemeGoogle = "google"
	SchemeCalDAV = "caldav"
)

// Options configure a ServerContext.
type Options struct {
	Config      *config.Config
	Logger      *slog.Logger
	Metrics     *instrumentation.Metrics
	AuditLogger *instrumentation.AuditLogger

	// BusyProvider replaces the Google/CalDAV router when set.
	BusyProvider availability.BusyProvider

	// Transport is the base transport for CalDAV requests.
	Transport http.RoundTripper
}

// ServerContext holds the shared state behind the MCP tools and the HTTP API.
type ServerContext struct {
	ctx    context.Context
	cancel context.CancelFunc

	cfg         *config.Config
	logger      *slog.Logger
	metrics     *instrumentation.Metrics
	auditLogger *instrumentation.AuditLogger

	tokens *google.FileTokenProvider
	google *calendar.Provider
	caldav *caldav.Provider
	router *availability.Router
	finder *availability.Finder

	mu       sync.RWMutex
	shutdown bool
}

// NewServerContext wires the calendar providers and the finder from opts.
func NewServerContext(ctx context.Context, opts Options) (*ServerContext, error) {
	if opts.Config == nil {
		return nil, fmt.Errorf("config is required")
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	shutdownCtx, cancel := context.WithCancel(ctx)

	cfg := opts.Config
	sc := &ServerContext{
		ctx:         shutdownCtx,
		cancel:      cancel,
		cfg:         cfg,
		logger:      opts.Logger,
		metrics:     opts.Metrics,
		auditLogger: opts.AuditLogger,
	}

	oauthConf := google.NewOAuthConfig(cfg.Google.ClientID, cfg.Google.ClientSecret, cfg.Google.RedirectURL)
	sc.tokens = google.NewFileTokenProvider(cfg.Google.TokenDir, oauthConf)
	if err := sc.tokens.MigrateLegacyToken(); err != nil {
		sc.logger.Warn("failed to migrate legacy Google token", logging.Err(err))
	}
	sc.google = calendar.NewProvider(shutdownCtx, sc.tokens, opts.Metrics)

	clients := make([]*caldav.Client, 0, len(cfg.CalDAV))
	for name, acct := range cfg.CalDAV {
		c, err := caldav.NewClient(name, caldav.Account{
			Endpoint: acct.Endpoint,
			Username: acct.Username,
			Password: acct.Password,
		}, opts.Transport)
		if err != nil {
			cancel()
			return nil, err
		}
		c.SetLocation(cfg.Location())
		c.SetLogger(logging.NewSlogAdapter(logging.WithProvider(opts.Logger, instrumentation.ProviderCalDAV)))
		c.SetMetrics(opts.Metrics)
		clients = append(clients, c)
	}
	sc.caldav = caldav.NewProvider(clients...)

	sc.router = availability.NewRouter(sc.google)
	sc.router.Register(SchemeGoogle, sc.google)
	sc.router.Register(SchemeCalDAV, sc.caldav)

	var provider availability.BusyProvider = sc.router
	if opts.BusyProvider != nil {
		provider = opts.BusyProvider
	}

	finderOpts := cfg.FinderOptions()
	finderOpts.Logger = logging.NewSlogAdapter(opts.Logger)
	if opts.Metrics != nil {
		finderOpts.Metrics = opts.Metrics
	}
	sc.finder = availability.NewFinder(provider, finderOpts)

	return sc, nil
}

// Context returns the server context
func (sc *ServerContext) Context() context.Context {
	return sc.ctx
}

// Config returns the loaded configuration.
func (sc *ServerContext) Config() *config.Config {
	return sc.cfg
}

// Scheduling returns the scheduling settings.
func (sc *ServerContext) Scheduling() config.SchedulingConfig {
	return sc.cfg.Scheduling
}

// Location returns the default time zone for searches.
func (sc *ServerContext) Location() *time.Location {
	return sc.cfg.Location()
}

// DefaultAccount is the Google account tools act as when none is given.
func (sc *ServerContext) DefaultAccount() string {
	if sc.cfg.Google.DefaultAccount == "" {
		return google.DefaultAccount
	}
	return sc.cfg.Google.DefaultAccount
}

// Logger returns the process logger.
func (sc *ServerContext) Logger() *slog.Logger {
	return sc.logger
}

// Finder returns the slot finder.
func (sc *ServerContext) Finder() *availability.Finder {
	return sc.finder
}

// Tokens returns the Google token store.
func (sc *ServerContext) Tokens() *google.FileTokenProvider {
	return sc.tokens
}

// GoogleProvider returns the Google Calendar busy provider.
func (sc *ServerContext) GoogleProvider() *calendar.Provider {
	return sc.google
}

// CalDAVProvider returns the CalDAV busy provider.
func (sc *ServerContext) CalDAVProvider() *caldav.Provider {
	return sc.caldav
}

// Router returns the participant ID router.
func (sc *ServerContext) Router() *availability.Router {
	return sc.router
}

// Providers lists the participant ID schemes that can be served, plus the
// configured CalDAV accounts.
func (sc *ServerContext) Providers() []string {
	out := sc.router.Schemes()
	for _, name := range sc.caldav.Accounts() {
		out = append(out, SchemeCalDAV+":"+name)
	}
	sort.Strings(out)
	return out
}

// Metrics returns the metrics recorder, or nil when instrumentation is off.
func (sc *ServerContext) Metrics() *instrumentation.Metrics {
	return sc.metrics
}

// AuditLogger returns the audit logger, or nil when audit logging is off.
func (sc *ServerContext) AuditLogger() *instrumentation.AuditLogger {
	return sc.auditLogger
}

// IsShutdown returns whether the server has been shutdown
func (sc *ServerContext) IsShutdown() bool {
	sc.mu.RLock()
	defer sc.mu.RUnlock()
	return sc.shutdown
}

// Shutdown shuts down the server context
func (sc *ServerContext) Shutdown() error {
	sc.mu.Lock()
	defer sc.mu.Unlock()

	if sc.shutdown {
		return nil
	}

	sc.shutdown = true
	sc.cancel()
	return nil
}
