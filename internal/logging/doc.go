// Package logging provides structured logging utilities for calpal.
//
// This package centralizes logging patterns to ensure consistent, structured logging
// throughout the codebase using the standard library's slog package.
//
// # Key Features
//
//   - Structured logging with slog
//   - PII sanitization (participant identifiers are hashed)
//   - Consistent attribute naming across the codebase
//   - Logger adapter interface for flexibility
//
// # Usage Patterns
//
// Build the process logger from flags:
//
//	logger, err := logging.NewLogger(os.Stderr, "info", "json")
//
// Create a logger with standard attributes:
//
//	logger := logging.WithOperation(slog.Default(), "availability.find_best_slots")
//	logger.Info("search finished", logging.Status("success"))
//
// Sanitize sensitive data before logging:
//
//	logger.Warn("busy fetch failed", logging.Participant(id), logging.Err(err))
//
// # Security Considerations
//
//   - Participant identifiers are hashed to prevent PII leakage while allowing correlation
//   - Tokens are never logged directly
package logging
