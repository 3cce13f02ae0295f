package instrumentation

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

// Config holds the configuration for OpenTelemetry instrumentation.
type Config struct {
	// ServiceName is the name of the service (default: calpal)
	ServiceName string

	// ServiceVersion is the version of the service
	ServiceVersion string

	// ServiceInstanceID is the unique instance identifier (default: hostname)
	// In Kubernetes, this is typically the pod name
	ServiceInstanceID string

	// K8sNamespace is the Kubernetes namespace where the service is running
	K8sNamespace string

	// K8sPodName is the Kubernetes pod name
	K8sPodName string

	// DefaultTimeZone is the scheduling time zone searches fall back to.
	// It is exported as the calpal.default_time_zone resource attribute.
	DefaultTimeZone string

	// CalendarProviders lists the participant schemes and CalDAV accounts
	// this process can fetch from, e.g. "google", "caldav:team".
	CalendarProviders []string

	// MetricInterval is the push interval of the otlp and stdout metric
	// exporters (default: DefaultMetricInterval).
	MetricInterval time.Duration

	// Enabled determines if instrumentation is active (default: true)
	// Set to false via INSTRUMENTATION_ENABLED=false to disable metrics and tracing
	Enabled bool

	// MetricsExporter specifies the metrics exporter type
	// Options: "prometheus", "otlp", "stdout" (default: "prometheus")
	MetricsExporter string

	// TracingExporter specifies the tracing exporter type
	// Options: "otlp", "stdout", "none" (default: "none")
	TracingExporter string

	// OTLPEndpoint is the OTLP collector endpoint
	// Example: "localhost:4318" (without protocol prefix)
	OTLPEndpoint string

	// OTLPInsecure controls whether to use insecure HTTP for OTLP export
	// When false (default), uses TLS for secure transport
	// Set to true only for local development or testing with unencrypted endpoints
	// WARNING: Never use insecure transport in production - traces may contain
	// sensitive metadata and should be encrypted in transit
	OTLPInsecure bool

	// TraceSamplingRate is the sampling rate for traces (0.0 to 1.0, default: 0.1)
	TraceSamplingRate float64

	// PrometheusEndpoint is the path for the Prometheus metrics endpoint (default: "/metrics")
	PrometheusEndpoint string

	// DetailedLabels controls whether high-cardinality labels are included.
	// When false (default), only essential labels are included.
	// When true, additional labels like account names may be added.
	// For production, keep detailedLabels disabled to avoid cardinality explosion.
	DetailedLabels bool

	// AuditLogging configures audit logging behavior.
	AuditLogging AuditLoggingConfig
}

// AuditLoggingConfig holds configuration for audit logging.
type AuditLoggingConfig struct {
	// Enabled determines if audit logging is active (default: true)
	// Audit logs may contain participant identifiers and should be routed to secure storage.
	Enabled bool

	// IncludePII controls whether to include raw participant identifiers in audit logs.
	// When false (default), only hashed identifiers are logged.
	// SECURITY: Ensure audit logs are stored securely with appropriate access controls.
	IncludePII bool

	// LogLevel sets the slog level for audit log messages (default: INFO).
	// Options: "debug", "info", "warn", "error"
	// Note: Audit events are always logged regardless of this level.
	LogLevel string
}

// Environment variables read by DefaultConfig.
const (
	envServiceName       = "OTEL_SERVICE_NAME"
	envInstanceID        = "OTEL_SERVICE_INSTANCE_ID"
	envK8sNamespace      = "K8S_NAMESPACE"
	envK8sPodName        = "K8S_POD_NAME"
	envEnabled           = "INSTRUMENTATION_ENABLED"
	envMetricsExporter   = "METRICS_EXPORTER"
	envTracingExporter   = "TRACING_EXPORTER"
	envOTLPEndpoint      = "OTEL_EXPORTER_OTLP_ENDPOINT"
	envOTLPInsecure      = "OTEL_EXPORTER_OTLP_INSECURE"
	envSamplingRate      = "OTEL_TRACES_SAMPLER_ARG"
	envPrometheusPath    = "PROMETHEUS_ENDPOINT"
	envDetailedLabels    = "METRICS_DETAILED_LABELS"
	envAuditEnabled      = "AUDIT_LOGGING_ENABLED"
	envAuditIncludePII   = "AUDIT_LOGGING_INCLUDE_PII"
	envAuditLoggingLevel = "AUDIT_LOGGING_LEVEL"
)

// DefaultConfig returns a Config with sensible defaults based on environment variables.
func DefaultConfig() Config {
	v := viper.New()
	v.AutomaticEnv()

	v.SetDefault(envServiceName, "calpal")
	v.SetDefault(envEnabled, true)
	v.SetDefault(envMetricsExporter, ExporterPrometheus)
	v.SetDefault(envTracingExporter, ExporterNone)
	v.SetDefault(envSamplingRate, 0.1)
	v.SetDefault(envPrometheusPath, "/metrics")
	v.SetDefault(envAuditEnabled, true)
	v.SetDefault(envAuditLoggingLevel, "info")

	// The Kubernetes downward API commonly exposes these under older names.
	_ = v.BindEnv(envK8sNamespace, envK8sNamespace, "POD_NAMESPACE")
	_ = v.BindEnv(envK8sPodName, envK8sPodName, "HOSTNAME")

	return Config{
		ServiceName:        v.GetString(envServiceName),
		ServiceVersion:     "unknown",
		ServiceInstanceID:  v.GetString(envInstanceID),
		K8sNamespace:       v.GetString(envK8sNamespace),
		K8sPodName:         v.GetString(envK8sPodName),
		Enabled:            v.GetBool(envEnabled),
		MetricsExporter:    v.GetString(envMetricsExporter),
		TracingExporter:    v.GetString(envTracingExporter),
		OTLPEndpoint:       v.GetString(envOTLPEndpoint),
		OTLPInsecure:       v.GetBool(envOTLPInsecure),
		TraceSamplingRate:  v.GetFloat64(envSamplingRate),
		PrometheusEndpoint: v.GetString(envPrometheusPath),
		DetailedLabels:     v.GetBool(envDetailedLabels),
		AuditLogging: AuditLoggingConfig{
			Enabled:    v.GetBool(envAuditEnabled),
			IncludePII: v.GetBool(envAuditIncludePII),
			LogLevel:   v.GetString(envAuditLoggingLevel),
		},
	}
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	// Validate sampling rate is within bounds
	if c.TraceSamplingRate < 0 || c.TraceSamplingRate > 1 {
		return fmt.Errorf("trace sampling rate must be between 0.0 and 1.0, got %f", c.TraceSamplingRate)
	}

	// Validate metrics exporter
	validMetricsExporters := map[string]bool{ExporterPrometheus: true, ExporterOTLP: true, ExporterStdout: true}
	if c.MetricsExporter != "" && !validMetricsExporters[c.MetricsExporter] {
		return fmt.Errorf("invalid metrics exporter %q, must be one of: prometheus, otlp, stdout", c.MetricsExporter)
	}

	// Validate tracing exporter
	validTracingExporters := map[string]bool{ExporterOTLP: true, ExporterStdout: true, ExporterNone: true}
	if c.TracingExporter != "" && !validTracingExporters[c.TracingExporter] {
		return fmt.Errorf("invalid tracing exporter %q, must be one of: otlp, stdout, none", c.TracingExporter)
	}

	// OTLP endpoint required when using OTLP exporters
	if c.TracingExporter == ExporterOTLP && c.OTLPEndpoint == "" {
		return fmt.Errorf("OTLP endpoint is required when using OTLP tracing exporter")
	}
	if c.MetricsExporter == ExporterOTLP && c.OTLPEndpoint == "" {
		return fmt.Errorf("OTLP endpoint is required when using OTLP metrics exporter")
	}

	return nil
}

// Constants for metric label values.
const (
	// Status values
	StatusSuccess = "success"
	StatusError   = "error"
	StatusUnknown = "unknown"

	// Request outcomes that are neither success nor failure of the search itself
	StatusCanceled = "canceled"
	StatusEmpty    = "empty"

	// Exporter types
	ExporterPrometheus = "prometheus"
	ExporterOTLP       = "otlp"
	ExporterStdout     = "stdout"
	ExporterNone       = "none"

	// Metric recording intervals
	DefaultMetricInterval = 10 * time.Second
)
