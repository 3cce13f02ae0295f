package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
	"golang.org/x/time/rate"

	"github.com/LamPham123/CalPal.ai/internal/availability"
)

// EnvPrefix is prepended to every environment variable read by Load.
const EnvPrefix = "CALPAL"

// Transport names accepted by the serve command.
const (
	TransportStdio          = "stdio"
	TransportStreamableHTTP = "streamable-http"
)

// Config is the complete runtime configuration.
type Config struct {
	Scheduling SchedulingConfig         `mapstructure:"scheduling"`
	Fetch      FetchConfig              `mapstructure:"fetch"`
	Google     GoogleConfig             `mapstructure:"google"`
	CalDAV     map[string]CalDAVAccount `mapstructure:"caldav"`
	Server     ServerConfig             `mapstructure:"server"`
	Log        LogConfig                `mapstructure:"log"`
}

// SchedulingConfig holds the slot search defaults.
type SchedulingConfig struct {
	Granularity        time.Duration `mapstructure:"granularity"`
	MaxResults         int           `mapstructure:"max_results"`
	ToolMaxResults     int           `mapstructure:"tool_max_results"`
	MinDurationMinutes int           `mapstructure:"min_duration_minutes"`
	MaxDurationMinutes int           `mapstructure:"max_duration_minutes"`
	TimeZone           string        `mapstructure:"time_zone"`
}

// FetchConfig bounds how busy data is fetched from calendar providers.
type FetchConfig struct {
	Timeout       time.Duration `mapstructure:"timeout"`
	Concurrency   int           `mapstructure:"concurrency"`
	RatePerSecond float64       `mapstructure:"rate_per_second"`
	Burst         int           `mapstructure:"burst"`
}

// GoogleConfig holds the OAuth client used for Google Calendar accounts.
type GoogleConfig struct {
	ClientID       string `mapstructure:"client_id"`
	ClientSecret   string `mapstructure:"client_secret"`
	RedirectURL    string `mapstructure:"redirect_url"`
	TokenDir       string `mapstructure:"token_dir"`
	DefaultAccount string `mapstructure:"default_account"`
}

// CalDAVAccount is the connection info for one "caldav:<name>" participant.
type CalDAVAccount struct {
	Endpoint string `mapstructure:"endpoint"`
	Username string `mapstructure:"username"`
	Password string `mapstructure:"password"`
}

// ServerConfig holds listener settings for the serve command.
type ServerConfig struct {
	Transport      string `mapstructure:"transport"`
	HTTPAddr       string `mapstructure:"http_addr"`
	MetricsEnabled bool   `mapstructure:"metrics_enabled"`
	MetricsAddr    string `mapstructure:"metrics_addr"`

	// RateLimit is the per-client request rate on the HTTP listener; 0 disables it.
	RateLimit  float64 `mapstructure:"rate_limit"`
	RateBurst  int     `mapstructure:"rate_burst"`
	TrustProxy bool    `mapstructure:"trust_proxy"`
}

// LogConfig selects the process logger.
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("scheduling.granularity", availability.DefaultGranularity)
	v.SetDefault("scheduling.max_results", availability.DefaultMaxResults)
	v.SetDefault("scheduling.tool_max_results", 5)
	v.SetDefault("scheduling.min_duration_minutes", 15)
	v.SetDefault("scheduling.max_duration_minutes", 480)
	v.SetDefault("scheduling.time_zone", "UTC")

	v.SetDefault("fetch.timeout", availability.DefaultFetchTimeout)
	v.SetDefault("fetch.concurrency", availability.DefaultFetchConcurrency)
	v.SetDefault("fetch.rate_per_second", 10.0)
	v.SetDefault("fetch.burst", 5)

	v.SetDefault("google.client_id", "")
	v.SetDefault("google.client_secret", "")
	v.SetDefault("google.redirect_url", "urn:ietf:wg:oauth:2.0:oob")
	v.SetDefault("google.token_dir", "")
	v.SetDefault("google.default_account", "default")

	v.SetDefault("server.transport", TransportStdio)
	v.SetDefault("server.http_addr", ":8080")
	v.SetDefault("server.metrics_enabled", true)
	v.SetDefault("server.metrics_addr", ":9090")
	v.SetDefault("server.rate_limit", 5.0)
	v.SetDefault("server.rate_burst", 10)
	v.SetDefault("server.trust_proxy", false)

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")
}

// LoadDotEnv loads environment variables from the given .env files, or from
// ./.env when none are given. Missing files are ignored; variables already
// set in the environment win.
func LoadDotEnv(paths ...string) error {
	if len(paths) == 0 {
		paths = []string{".env"}
	}
	for _, p := range paths {
		if _, err := os.Stat(p); errors.Is(err, os.ErrNotExist) {
			continue
		}
		if err := godotenv.Load(p); err != nil {
			return fmt.Errorf("failed to load %s: %w", p, err)
		}
	}
	return nil
}

// Load reads defaults, then the YAML file at path (or calpal.yaml from the
// working directory and the user config dir when path is empty), then
// CALPAL_* environment variables.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}
	} else {
		v.SetConfigName("calpal")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		if dir, err := os.UserConfigDir(); err == nil {
			v.AddConfigPath(filepath.Join(dir, "calpal"))
		}
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return nil, fmt.Errorf("failed to read config file: %w", err)
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate reports the first invalid setting.
func (c *Config) Validate() error {
	s := c.Scheduling
	if s.Granularity <= 0 || s.Granularity%time.Minute != 0 {
		return fmt.Errorf("scheduling.granularity must be a positive whole number of minutes, got %s", s.Granularity)
	}
	if s.MaxResults <= 0 {
		return fmt.Errorf("scheduling.max_results must be positive, got %d", s.MaxResults)
	}
	if s.ToolMaxResults <= 0 {
		return fmt.Errorf("scheduling.tool_max_results must be positive, got %d", s.ToolMaxResults)
	}
	if s.MinDurationMinutes <= 0 || s.MaxDurationMinutes < s.MinDurationMinutes {
		return fmt.Errorf("scheduling duration policy %d..%d minutes is invalid", s.MinDurationMinutes, s.MaxDurationMinutes)
	}
	if _, err := availability.LoadLocation(s.TimeZone, nil); err != nil {
		return fmt.Errorf("scheduling.time_zone: %w", err)
	}

	f := c.Fetch
	if f.Timeout <= 0 {
		return fmt.Errorf("fetch.timeout must be positive, got %s", f.Timeout)
	}
	if f.Concurrency <= 0 {
		return fmt.Errorf("fetch.concurrency must be positive, got %d", f.Concurrency)
	}
	if f.RatePerSecond < 0 {
		return fmt.Errorf("fetch.rate_per_second must not be negative, got %g", f.RatePerSecond)
	}
	if f.RatePerSecond > 0 && f.Burst <= 0 {
		return fmt.Errorf("fetch.burst must be positive when a rate is set, got %d", f.Burst)
	}

	for name, acct := range c.CalDAV {
		if name == "" || strings.Contains(name, ":") {
			return fmt.Errorf("invalid caldav account name %q", name)
		}
		if acct.Endpoint == "" {
			return fmt.Errorf("caldav account %q has no endpoint", name)
		}
	}

	if c.Server.RateLimit < 0 {
		return fmt.Errorf("server.rate_limit must not be negative, got %g", c.Server.RateLimit)
	}
	if c.Server.RateLimit > 0 && c.Server.RateBurst <= 0 {
		return fmt.Errorf("server.rate_burst must be positive when a rate limit is set, got %d", c.Server.RateBurst)
	}

	switch c.Server.Transport {
	case TransportStdio, TransportStreamableHTTP:
	default:
		return fmt.Errorf("unsupported transport %q (supported: %s, %s)", c.Server.Transport, TransportStdio, TransportStreamableHTTP)
	}
	return nil
}

// Location returns the default wall-clock location for searches.
func (c *Config) Location() *time.Location {
	loc, err := availability.LoadLocation(c.Scheduling.TimeZone, time.UTC)
	if err != nil {
		return time.UTC
	}
	return loc
}

// Limiter returns the shared upstream rate limiter, or nil when unlimited.
func (c *Config) Limiter() *rate.Limiter {
	if c.Fetch.RatePerSecond <= 0 {
		return nil
	}
	return rate.NewLimiter(rate.Limit(c.Fetch.RatePerSecond), c.Fetch.Burst)
}

// FinderOptions maps the scheduling and fetch settings onto availability.Options.
func (c *Config) FinderOptions() availability.Options {
	return availability.Options{
		Granularity:      c.Scheduling.Granularity,
		MaxResults:       c.Scheduling.MaxResults,
		FetchTimeout:     c.Fetch.Timeout,
		FetchConcurrency: c.Fetch.Concurrency,
		Limiter:          c.Limiter(),
	}
}

// ValidateDuration applies the caller duration policy used at the HTTP and
// CLI boundaries.
func (s SchedulingConfig) ValidateDuration(minutes int) error {
	if minutes < s.MinDurationMinutes || minutes > s.MaxDurationMinutes {
		return fmt.Errorf("%w: durationMinutes must be between %d and %d, got %d",
			availability.ErrInvalidDuration, s.MinDurationMinutes, s.MaxDurationMinutes, minutes)
	}
	return nil
}
