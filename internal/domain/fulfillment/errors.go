package fulfillment

import (
	"errors"
	"fmt"
	"strings"
)

// ---------------------------------------------------------------------------
// Upstream Errors
// ---------------------------------------------------------------------------

var (
	// Configuration errors (fatal, surfaced at startup)
	ErrUpstreamNotConfigured = errors.New("fulfillment: upstream credentials not configured")

	// Authentication / transport errors
	ErrUpstreamAuthFailed      = errors.New("fulfillment: upstream authentication failed")
	ErrUpstreamUnavailable     = errors.New("fulfillment: upstream temporarily unavailable")
	ErrUpstreamRequestFailed   = errors.New("fulfillment: upstream request failed")
	ErrUpstreamInvalidResponse = errors.New("fulfillment: invalid upstream response")
	ErrUpstreamRejected        = errors.New("fulfillment: upstream rejected request")

	// Order-level errors
	ErrOrderNotFound          = errors.New("fulfillment: upstream order not found")
	ErrOrderLocked            = errors.New("fulfillment: upstream order is locked")
	ErrUpstreamIDConflict     = errors.New("fulfillment: upstream order id already assigned")
	ErrOrderRecordNotFound    = errors.New("fulfillment: order record not found")
	ErrInstructionNotFound    = errors.New("fulfillment: required shipping instruction not found")
	ErrPaymentMethodNotFound  = errors.New("fulfillment: payment method not found")
	ErrOrderMissingUpstreamID = errors.New("fulfillment: order has no upstream id")
)

// IsAuthFailure reports whether err is a login/credential failure.
func IsAuthFailure(err error) bool {
	return errors.Is(err, ErrUpstreamAuthFailed) || errors.Is(err, ErrUpstreamNotConfigured)
}

// IsTransient reports whether err is worth retrying later (timeouts, 5xx).
func IsTransient(err error) bool {
	return errors.Is(err, ErrUpstreamUnavailable)
}

// IsLockFailure reports whether err looks like an upstream-side lock.
//
// The upstream API has no documented lock signal; a 403 response or a
// lock-related phrase in the error message is treated as best-effort
// classification. Callers must not assume this is authoritative.
func IsLockFailure(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrOrderLocked) {
		return true
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "lock") || strings.Contains(msg, "403")
}

// ---------------------------------------------------------------------------
// Validation Errors
// ---------------------------------------------------------------------------

// ValidationError reports local data that must not be sent upstream.
// Fields enumerates every offending field so callers can surface a complete
// correction list in one pass.
type ValidationError struct {
	Fields []string
}

// Error implements the error interface
func (e *ValidationError) Error() string {
	if len(e.Fields) == 0 {
		return "fulfillment: validation failed"
	}
	return fmt.Sprintf("fulfillment: missing required fields: %s", strings.Join(e.Fields, ", "))
}

// NewValidationError creates a ValidationError for the given fields
func NewValidationError(fields ...string) *ValidationError {
	return &ValidationError{Fields: fields}
}

// IsValidationFailure reports whether err carries a *ValidationError.
func IsValidationFailure(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}
