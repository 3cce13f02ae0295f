// Package server wires the calendar providers, the slot finder and the
// ambient stack into the process that serves them.
//
// # Key Components
//
// ServerContext builds the Google and CalDAV busy providers from config,
// routes participant IDs between them and owns the shared Finder. MCP tools,
// the HTTP API and the CLI all go through it.
//
// HTTPServer serves the streamable HTTP transport on one listener:
//   - /mcp: MCP endpoint (mark3labs/mcp-go)
//   - /api/schedule/find-time: JSON slot search
//   - /healthz, /readyz, /healthz/detailed: probes
//
// The MCP endpoint and the API are rate limited per client IP and counted
// in the http_requests_total and http_request_duration_seconds metrics.
//
// MetricsServer exposes Prometheus metrics on a dedicated port.
//
// # Find-time errors
//
// FindTimeHandler maps search failures to HTTP statuses:
//   - 400: malformed body or invalid request parameters
//   - 502: busy data for some participant could not be fetched
//   - 499: the caller went away before the search finished
//   - 503: the request deadline passed
//
// Every response carries an X-Request-Id header. A caller-supplied ID is
// echoed and used for the search's log lines and span.
package server
