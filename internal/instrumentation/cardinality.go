package instrumentation

import "strings"

// Cardinality management helpers for metrics.
// These functions reduce high-cardinality label values to prevent metrics explosion.
//
// Always use these helpers when recording metrics with participant identifiers.

// Provider label values.
const (
	ProviderGoogle  = "google"
	ProviderCalDAV  = "caldav"
	ProviderUnknown = "unknown"
)

// ProviderLabel reduces a participant ID to the provider that serves it.
//
// Example:
//
//	ProviderLabel("caldav:alice")     // "caldav"
//	ProviderLabel("google:work")      // "google"
//	ProviderLabel("default")          // "google"
//	ProviderLabel("ldap:bob")         // "unknown"
//	ProviderLabel("")                 // "unknown"
func ProviderLabel(participantID string) string {
	if participantID == "" {
		return ProviderUnknown
	}
	scheme, _, ok := strings.Cut(participantID, ":")
	if !ok {
		return ProviderGoogle
	}
	switch strings.ToLower(scheme) {
	case ProviderGoogle:
		return ProviderGoogle
	case ProviderCalDAV:
		return ProviderCalDAV
	default:
		return ProviderUnknown
	}
}

// Common operation types for provider API metrics.
const (
	OperationCalendarList = "calendar_list"
	OperationFreeBusy     = "freebusy"
	OperationDiscover     = "discover"
	OperationQuery        = "query"
)
