// Package instrumentation provides OpenTelemetry instrumentation for the calpal
// server.
//
// This package enables production-grade observability through:
//   - OpenTelemetry metrics for HTTP requests, busy data fetches and slot searches
//   - Distributed tracing for searches, tool calls and upstream calendar requests
//   - Prometheus metrics export via /metrics endpoint on dedicated port
//   - OTLP export support for modern observability platforms
//
// # Metrics
//
// Server/HTTP Metrics:
//   - http_requests_total: Counter of HTTP requests by method, path, and status
//   - http_request_duration_seconds: Histogram of HTTP request durations
//
// Busy Data Metrics:
//   - busy_fetch_total: Counter of per-participant fetches by provider and status
//   - busy_fetch_duration_seconds: Histogram of per-participant fetch durations
//   - malformed_intervals_total: Counter of discarded busy intervals
//   - provider_api_requests_total: Counter of upstream calendar API requests
//   - provider_api_request_duration_seconds: Histogram of upstream request durations
//
// Slot Search Metrics:
//   - slot_search_total: Counter of searches by status
//   - slot_search_duration_seconds: Histogram of end-to-end search durations
//   - slot_search_results: Histogram of ranked slots found per search
//
// MCP Tool Metrics:
//   - mcp_tool_invocations_total: Counter of MCP tool invocations by tool name and status
//   - mcp_tool_duration_seconds: Histogram of MCP tool execution durations
//
// Participant identifiers never become metric labels; ProviderLabel reduces
// them to the provider that serves them.
//
// # Tracing
//
// Spans are created for:
//   - slot searches (availability.find_best_slots)
//   - MCP tool invocations (tool.<name>)
//   - upstream calendar calls (<provider>.<operation>)
//
// # Configuration
//
// DefaultConfig reads the standard OpenTelemetry environment variables:
//   - INSTRUMENTATION_ENABLED: Enable/disable instrumentation (default: true)
//   - METRICS_EXPORTER: Metrics exporter type (prometheus, otlp, stdout, default: prometheus)
//   - TRACING_EXPORTER: Tracing exporter type (otlp, stdout, none, default: none)
//   - OTEL_EXPORTER_OTLP_ENDPOINT: OTLP endpoint for traces/metrics
//   - OTEL_TRACES_SAMPLER_ARG: Sampling rate (0.0 to 1.0, default: 0.1)
//   - OTEL_SERVICE_NAME: Service name (default: calpal)
//
// # Example Usage
//
//	provider, err := instrumentation.NewProvider(ctx, instrumentation.DefaultConfig())
//	if err != nil {
//		return err
//	}
//	defer provider.Shutdown(ctx)
//
//	metrics := provider.Metrics()
//	metrics.RecordSlotSearch(ctx, instrumentation.StatusSuccess, len(slots), time.Since(start))
package instrumentation
