package shared

import "fmt"

// DomainError represents a domain-level error
type DomainError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Error implements the error interface
func (e *DomainError) Error() string {
	return e.Message
}

// NewDomainError creates a new domain error
func NewDomainError(code, message string) *DomainError {
	return &DomainError{
		Code:    code,
		Message: message,
	}
}

// Common domain errors
var (
	ErrValidation      = NewDomainError("VALIDATION_ERROR", "Invalid or missing input")
	ErrResolution      = NewDomainError("RESOLUTION_ERROR", "No matching vehicle found")
	ErrUpstreamAuth    = NewDomainError("UPSTREAM_AUTH_ERROR", "Vehicle data provider rejected credentials")
	ErrUpstreamMissing = NewDomainError("UPSTREAM_NOT_FOUND", "Vehicle data provider returned no result")
	ErrUpstreamTimeout = NewDomainError("UPSTREAM_TIMEOUT", "Vehicle data provider did not respond in time")
	ErrCircuitOpen     = NewDomainError("CIRCUIT_OPEN", "Vehicle data provider temporarily unavailable")
	ErrInternal        = NewDomainError("INTERNAL_ERROR", "An unexpected error occurred")
)

// UpstreamError carries the provider's HTTP status and response body for
// non-2xx replies that are neither auth failures nor empty results.
type UpstreamError struct {
	Status int
	Body   string
}

// Error implements the error interface
func (e *UpstreamError) Error() string {
	return fmt.Sprintf("upstream returned status %d", e.Status)
}

// NewUpstreamError creates an UpstreamError from a provider response
func NewUpstreamError(status int, body string) *UpstreamError {
	return &UpstreamError{Status: status, Body: body}
}
