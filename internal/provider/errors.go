package provider

import (
	"errors"
	"fmt"
)

// Kind tags a provider error. The set is closed; the scheduler dispatches
// rate-policy updates on it.
type Kind string

// Provider error kinds.
const (
	KindRateLimited     Kind = "rate_limited"
	KindAuthExpired     Kind = "auth_expired"
	KindNetworkError    Kind = "network_error"
	KindAPIError        Kind = "api_error"
	KindParseError      Kind = "parse_error"
	KindUnknownPlatform Kind = "unknown_platform"
)

// Error is the tagged error every adapter returns on failure.
type Error struct {
	Kind Kind
	// Status is the HTTP status for api_error.
	Status int
	// RetryAfter is the advisory wait in seconds for rate_limited.
	RetryAfter int
	// Message carries provider-supplied detail.
	Message string
	// Cause is the underlying error for network_error and parse_error.
	Cause error
}

func (e *Error) Error() string {
	switch e.Kind {
	case KindRateLimited:
		return fmt.Sprintf("rate limited (retry after %ds)", e.RetryAfter)
	case KindAPIError:
		return fmt.Sprintf("api error (status %d): %s", e.Status, e.Message)
	case KindNetworkError, KindParseError:
		if e.Cause != nil {
			return fmt.Sprintf("%s: %v", e.Kind, e.Cause)
		}

		fallthrough
	default:
		if e.Message != "" {
			return fmt.Sprintf("%s: %s", e.Kind, e.Message)
		}

		return string(e.Kind)
	}
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// RateLimited builds a rate_limited error with the advisory retry delay.
func RateLimited(retryAfter int) *Error {
	if retryAfter < 0 {
		retryAfter = 0
	}

	return &Error{Kind: KindRateLimited, RetryAfter: retryAfter}
}

// AuthExpired builds an auth_expired error.
func AuthExpired(message string) *Error {
	return &Error{Kind: KindAuthExpired, Message: message}
}

// NetworkError wraps a transport failure.
func NetworkError(cause error) *Error {
	return &Error{Kind: KindNetworkError, Cause: cause}
}

// APIError builds an api_error for an unexpected status.
func APIError(status int, message string) *Error {
	return &Error{Kind: KindAPIError, Status: status, Message: message}
}

// ParseError wraps a payload decoding failure.
func ParseError(cause error) *Error {
	return &Error{Kind: KindParseError, Cause: cause, Message: cause.Error()}
}

// UnknownPlatform builds the error for an unregistered platform.
func UnknownPlatform(name string) *Error {
	return &Error{Kind: KindUnknownPlatform, Message: name}
}

// AsError extracts the tagged provider error, if any.
func AsError(err error) (*Error, bool) {
	var perr *Error
	if errors.As(err, &perr) {
		return perr, true
	}

	return nil, false
}
