package dto

import (
	"errors"
	"net/http"

	"github.com/dealerdesk/backend/internal/domain/shared"
)

// Error code constants organized by category
// Format: ERR_<CATEGORY>_<DESCRIPTION>

// General error codes
const (
	// ErrCodeUnknown is used when the error type is unknown
	ErrCodeUnknown = "ERR_UNKNOWN"
	// ErrCodeInternal is used for internal server errors
	ErrCodeInternal = "ERR_INTERNAL"
)

// Input error codes
const (
	// ErrCodeValidation is used when request fields fail validation
	ErrCodeValidation = "ERR_VALIDATION"
	// ErrCodeBadRequest is used for malformed requests
	ErrCodeBadRequest = "ERR_BAD_REQUEST"
	// ErrCodeInvalidJSON is used when JSON parsing fails
	ErrCodeInvalidJSON = "ERR_INVALID_JSON"
)

// Resolution error codes
const (
	// ErrCodeNotFound is used when no vehicle could be resolved
	ErrCodeNotFound = "ERR_NOT_FOUND"
)

// Upstream provider error codes
const (
	// ErrCodeUpstream is used for unexpected provider failures
	ErrCodeUpstream = "ERR_UPSTREAM"
	// ErrCodeUpstreamAuth is used when the provider rejects our credentials
	ErrCodeUpstreamAuth = "ERR_UPSTREAM_AUTH"
	// ErrCodeUpstreamTimeout is used when the provider does not respond in time
	ErrCodeUpstreamTimeout = "ERR_UPSTREAM_TIMEOUT"
	// ErrCodeCircuitOpen is used when calls are rejected by an open circuit
	ErrCodeCircuitOpen = "ERR_CIRCUIT_OPEN"
)

// ErrorCodeHTTPStatus maps error codes to HTTP status codes
var ErrorCodeHTTPStatus = map[string]int{
	// General errors
	ErrCodeUnknown:  http.StatusInternalServerError,
	ErrCodeInternal: http.StatusInternalServerError,

	// Input errors -> 400 Bad Request
	ErrCodeValidation:  http.StatusBadRequest,
	ErrCodeBadRequest:  http.StatusBadRequest,
	ErrCodeInvalidJSON: http.StatusBadRequest,

	// Resolution errors -> 404 Not Found
	ErrCodeNotFound: http.StatusNotFound,

	// Upstream errors. Auth and generic provider failures surface as 502,
	// timeouts as 504, an open circuit as 503 so callers can back off.
	ErrCodeUpstream:        http.StatusBadGateway,
	ErrCodeUpstreamAuth:    http.StatusBadGateway,
	ErrCodeUpstreamTimeout: http.StatusGatewayTimeout,
	ErrCodeCircuitOpen:     http.StatusServiceUnavailable,
}

// GetHTTPStatus returns the HTTP status code for an error code
// Returns 500 Internal Server Error if the error code is not found
func GetHTTPStatus(code string) int {
	if status, ok := ErrorCodeHTTPStatus[code]; ok {
		return status
	}
	return http.StatusInternalServerError
}

// ErrorCodeForError maps a domain error to an API error code
func ErrorCodeForError(err error) string {
	switch {
	case errors.Is(err, shared.ErrValidation):
		return ErrCodeValidation
	case errors.Is(err, shared.ErrResolution):
		return ErrCodeNotFound
	case errors.Is(err, shared.ErrUpstreamMissing):
		return ErrCodeNotFound
	case errors.Is(err, shared.ErrUpstreamAuth):
		return ErrCodeUpstreamAuth
	case errors.Is(err, shared.ErrUpstreamTimeout):
		return ErrCodeUpstreamTimeout
	case errors.Is(err, shared.ErrCircuitOpen):
		return ErrCodeCircuitOpen
	case errors.Is(err, shared.ErrInternal):
		return ErrCodeInternal
	}

	var upstream *shared.UpstreamError
	if errors.As(err, &upstream) {
		return ErrCodeUpstream
	}

	return ErrCodeUnknown
}
