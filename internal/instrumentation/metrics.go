package instrumentation

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Metric attribute keys
const (
	attrMethod    = "method"
	attrPath      = "path"
	attrStatus    = "status"
	attrOperation = "operation"
	attrProvider  = "provider"
	attrTool      = "tool"
	attrAccount   = "account"
)

// Metrics provides methods for recording observability metrics.
type Metrics struct {
	// HTTP metrics
	httpRequestsTotal   metric.Int64Counter
	httpRequestDuration metric.Float64Histogram

	// Busy data provider metrics
	busyFetchTotal      metric.Int64Counter
	busyFetchDuration   metric.Float64Histogram
	malformedIntervals  metric.Int64Counter
	providerAPIRequests metric.Int64Counter
	providerAPIDuration metric.Float64Histogram

	// Slot search metrics
	slotSearchTotal    metric.Int64Counter
	slotSearchDuration metric.Float64Histogram
	slotSearchResults  metric.Int64Histogram

	// MCP Tool metrics
	toolInvocationsTotal metric.Int64Counter
	toolDuration         metric.Float64Histogram

	// detailedLabels controls whether high-cardinality labels are included
	detailedLabels bool
}

// NewMetrics creates a new Metrics instance with all metrics initialized.
// The detailedLabels parameter controls whether high-cardinality labels are included.
func NewMetrics(meter metric.Meter, detailedLabels bool) (*Metrics, error) {
	m := &Metrics{
		detailedLabels: detailedLabels,
	}

	var err error

	// HTTP Metrics
	m.httpRequestsTotal, err = meter.Int64Counter(
		"http_requests_total",
		metric.WithDescription("Total number of HTTP requests"),
		metric.WithUnit("{request}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create http_requests_total counter: %w", err)
	}

	m.httpRequestDuration, err = meter.Float64Histogram(
		"http_request_duration_seconds",
		metric.WithDescription("HTTP request duration in seconds"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(0.001, 0.01, 0.1, 0.5, 1.0, 2.5, 5.0, 10.0),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create http_request_duration_seconds histogram: %w", err)
	}

	// Busy data Metrics
	m.busyFetchTotal, err = meter.Int64Counter(
		"busy_fetch_total",
		metric.WithDescription("Total number of per-participant busy interval fetches"),
		metric.WithUnit("{fetch}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create busy_fetch_total counter: %w", err)
	}

	m.busyFetchDuration, err = meter.Float64Histogram(
		"busy_fetch_duration_seconds",
		metric.WithDescription("Per-participant busy interval fetch duration in seconds"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(0.01, 0.05, 0.1, 0.25, 0.5, 1.0, 2.5, 5.0, 10.0, 30.0),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create busy_fetch_duration_seconds histogram: %w", err)
	}

	m.malformedIntervals, err = meter.Int64Counter(
		"malformed_intervals_total",
		metric.WithDescription("Busy intervals discarded because they did not end after they started"),
		metric.WithUnit("{interval}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create malformed_intervals_total counter: %w", err)
	}

	m.providerAPIRequests, err = meter.Int64Counter(
		"provider_api_requests_total",
		metric.WithDescription("Total number of calendar provider API requests"),
		metric.WithUnit("{request}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create provider_api_requests_total counter: %w", err)
	}

	m.providerAPIDuration, err = meter.Float64Histogram(
		"provider_api_request_duration_seconds",
		metric.WithDescription("Calendar provider API request duration in seconds"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(0.01, 0.05, 0.1, 0.25, 0.5, 1.0, 2.5, 5.0, 10.0, 30.0),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create provider_api_request_duration_seconds histogram: %w", err)
	}

	// Slot search Metrics
	m.slotSearchTotal, err = meter.Int64Counter(
		"slot_search_total",
		metric.WithDescription("Total number of common slot searches"),
		metric.WithUnit("{search}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create slot_search_total counter: %w", err)
	}

	m.slotSearchDuration, err = meter.Float64Histogram(
		"slot_search_duration_seconds",
		metric.WithDescription("End-to-end slot search duration in seconds"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(0.01, 0.05, 0.1, 0.25, 0.5, 1.0, 2.5, 5.0, 10.0, 30.0),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create slot_search_duration_seconds histogram: %w", err)
	}

	m.slotSearchResults, err = meter.Int64Histogram(
		"slot_search_results",
		metric.WithDescription("Number of ranked slots found per search before truncation"),
		metric.WithUnit("{slot}"),
		metric.WithExplicitBucketBoundaries(0, 1, 5, 10, 25, 50, 100, 200, 500),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create slot_search_results histogram: %w", err)
	}

	// MCP Tool Metrics
	m.toolInvocationsTotal, err = meter.Int64Counter(
		"mcp_tool_invocations_total",
		metric.WithDescription("Total number of MCP tool invocations"),
		metric.WithUnit("{invocation}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create mcp_tool_invocations_total counter: %w", err)
	}

	m.toolDuration, err = meter.Float64Histogram(
		"mcp_tool_duration_seconds",
		metric.WithDescription("MCP tool execution duration in seconds"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(0.01, 0.05, 0.1, 0.25, 0.5, 1.0, 2.5, 5.0, 10.0, 30.0),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create mcp_tool_duration_seconds histogram: %w", err)
	}

	return m, nil
}

// RecordHTTPRequest records an HTTP request with method, path, status code, and duration.
func (m *Metrics) RecordHTTPRequest(ctx context.Context, method, path string, statusCode int, duration time.Duration) {
	if m == nil || m.httpRequestsTotal == nil || m.httpRequestDuration == nil {
		return // Instrumentation not initialized
	}

	attrs := []attribute.KeyValue{
		attribute.String(attrMethod, method),
		attribute.String(attrPath, path),
		attribute.String(attrStatus, strconv.Itoa(statusCode)),
	}

	m.httpRequestsTotal.Add(ctx, 1, metric.WithAttributes(attrs...))
	m.httpRequestDuration.Record(ctx, duration.Seconds(), metric.WithAttributes(attrs...))
}

// RecordBusyFetch records one participant's busy interval fetch.
// The participant ID is reduced to its provider label so that it never
// becomes a metric label itself.
func (m *Metrics) RecordBusyFetch(ctx context.Context, participantID, status string, duration time.Duration) {
	if m == nil || m.busyFetchTotal == nil || m.busyFetchDuration == nil {
		return // Instrumentation not initialized
	}

	attrs := []attribute.KeyValue{
		attribute.String(attrProvider, ProviderLabel(participantID)),
		attribute.String(attrStatus, status),
	}

	m.busyFetchTotal.Add(ctx, 1, metric.WithAttributes(attrs...))
	m.busyFetchDuration.Record(ctx, duration.Seconds(), metric.WithAttributes(attrs...))
}

// RecordMalformedIntervals records busy intervals dropped during inversion.
func (m *Metrics) RecordMalformedIntervals(ctx context.Context, count int) {
	if m == nil || m.malformedIntervals == nil || count <= 0 {
		return
	}
	m.malformedIntervals.Add(ctx, int64(count))
}

// RecordProviderAPIRequest records a single upstream calendar API request.
//
// Parameters:
//   - provider: Provider name (google, caldav)
//   - operation: Operation type (calendar_list, freebusy, query, ...)
//   - status: Result status ("success" or "error")
//   - duration: Time taken for the request
func (m *Metrics) RecordProviderAPIRequest(ctx context.Context, provider, operation, status string, duration time.Duration) {
	if m == nil || m.providerAPIRequests == nil || m.providerAPIDuration == nil {
		return // Instrumentation not initialized
	}

	attrs := []attribute.KeyValue{
		attribute.String(attrProvider, provider),
		attribute.String(attrOperation, operation),
		attribute.String(attrStatus, status),
	}

	m.providerAPIRequests.Add(ctx, 1, metric.WithAttributes(attrs...))
	m.providerAPIDuration.Record(ctx, duration.Seconds(), metric.WithAttributes(attrs...))
}

// RecordSlotSearch records one end-to-end slot search with the number of
// ranked slots found before truncation.
func (m *Metrics) RecordSlotSearch(ctx context.Context, status string, found int, duration time.Duration) {
	if m == nil || m.slotSearchTotal == nil || m.slotSearchDuration == nil {
		return // Instrumentation not initialized
	}

	attrs := metric.WithAttributes(attribute.String(attrStatus, status))
	m.slotSearchTotal.Add(ctx, 1, attrs)
	m.slotSearchDuration.Record(ctx, duration.Seconds(), attrs)
	if status == StatusSuccess && m.slotSearchResults != nil {
		m.slotSearchResults.Record(ctx, int64(found))
	}
}

// RecordToolInvocation records an MCP tool invocation with tool name, status, and duration.
func (m *Metrics) RecordToolInvocation(ctx context.Context, toolName, status string, duration time.Duration) {
	m.RecordToolInvocationWithAccount(ctx, toolName, status, "", duration)
}

// RecordToolInvocationWithAccount records an MCP tool invocation with account info.
// The account is only included when detailedLabels is enabled.
func (m *Metrics) RecordToolInvocationWithAccount(ctx context.Context, toolName, status, account string, duration time.Duration) {
	if m == nil || m.toolInvocationsTotal == nil || m.toolDuration == nil {
		return // Instrumentation not initialized
	}

	attrs := []attribute.KeyValue{
		attribute.String(attrTool, toolName),
		attribute.String(attrStatus, status),
	}

	// Only add high-cardinality labels if explicitly enabled
	if m.detailedLabels && account != "" {
		attrs = append(attrs, attribute.String(attrAccount, account))
	}

	m.toolInvocationsTotal.Add(ctx, 1, metric.WithAttributes(attrs...))
	m.toolDuration.Record(ctx, duration.Seconds(), metric.WithAttributes(attrs...))
}
