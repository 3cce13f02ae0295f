package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/google/uuid"

	"github.com/LamPham123/CalPal.ai/internal/availability"
	"github.com/LamPham123/CalPal.ai/internal/logging"
)

const (
	// FindTimePath is the route of the slot search endpoint.
	FindTimePath = "/api/schedule/find-time"

	// RequestIDHeader carries the search's request ID in both directions.
	RequestIDHeader = "X-Request-Id"

	// StatusClientClosedRequest is reported when the caller went away
	// before the search finished.
	StatusClientClosedRequest = 499

	maxRequestBodyBytes = 1 << 20
	maxRequestIDLength  = 128
)

// ErrorResponse is the JSON body of every non-2xx find-time response.
type ErrorResponse struct {
	Error     string `json:"error"`
	RequestID string `json:"requestId,omitempty"`
}

// FindTimeHandler serves POST /api/schedule/find-time.
func FindTimeHandler(sc *ServerContext) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := r.Header.Get(RequestIDHeader)
		if requestID == "" || len(requestID) > maxRequestIDLength {
			requestID = uuid.NewString()
		}
		w.Header().Set(RequestIDHeader, requestID)

		if r.Method != http.MethodPost {
			w.Header().Set("Allow", http.MethodPost)
			writeJSON(w, http.StatusMethodNotAllowed, ErrorResponse{Error: "method not allowed", RequestID: requestID})
			return
		}

		var body availability.SearchRequest
		dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxRequestBodyBytes))
		if err := dec.Decode(&body); err != nil {
			writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "invalid JSON body: " + err.Error(), RequestID: requestID})
			return
		}

		req, err := validateSearch(sc, body)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: err.Error(), RequestID: requestID})
			return
		}

		ctx := availability.WithRequestID(r.Context(), requestID)
		result, err := sc.Finder().FindBestSlots(ctx, req)
		if err != nil {
			status := StatusForError(err)
			if status >= http.StatusInternalServerError {
				sc.Logger().Error("find-time failed",
					logging.RequestID(requestID), slog.Int("http_status", status), logging.Err(err))
			}
			writeJSON(w, status, ErrorResponse{Error: err.Error(), RequestID: requestID})
			return
		}
		writeJSON(w, http.StatusOK, availability.NewSearchResponse(result))
	})
}

// validateSearch converts body and applies the caller policy enforced at
// the API boundary: at least one participant and a duration inside the
// configured range.
func validateSearch(sc *ServerContext, body availability.SearchRequest) (availability.Request, error) {
	req, err := body.Request(sc.Location())
	if err != nil {
		return req, err
	}
	if len(req.ParticipantIDs) == 0 {
		return req, fmt.Errorf("participantIds must name at least one participant")
	}
	if err := sc.Scheduling().ValidateDuration(req.DurationMinutes); err != nil {
		return req, err
	}
	return req, nil
}

// StatusForError maps a FindBestSlots error to an HTTP status.
func StatusForError(err error) int {
	switch {
	case err == nil:
		return http.StatusOK
	case errors.Is(err, availability.ErrProviderFetch):
		return http.StatusBadGateway
	case availability.IsInvalidInput(err):
		return http.StatusBadRequest
	case errors.Is(err, context.Canceled):
		return StatusClientClosedRequest
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
