package lastfm

import (
	"fmt"
	"time"
)

// Error represents a Last.fm API error.
//
// The Error type provides structured error information including
// the Last.fm error code and message. It implements error, and
// provides additional methods for retry classification.
type Error struct {
	Code    int    // Last.fm error code
	Message string // Error message from Last.fm
}

// Error returns the error message.
func (e *Error) Error() string {
	return fmt.Sprintf("lastfm: error %d: %s", e.Code, e.Message)
}

// Is checks if the target error is a Last.fm error with the same code.
//
// This allows errors.Is() to work with *Error types.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Code == t.Code
}

// Temporary returns true if the error is temporary and the request
// may be retried.
//
// The following Last.fm error codes are considered temporary:
//   - 11: Service Offline - temporarily unavailable
//   - 16: Service Temporarily Unavailable
//
// Code 29 (rate limit exceeded) is also retryable but is surfaced as a
// rate-limit condition by the transport rather than through this method.
func (e *Error) Temporary() bool {
	switch e.Code {
	case ErrCodeServiceOffline:
		return true
	case ErrCodeTempUnavailable:
		return true
	default:
		return false
	}
}

// HTTPError represents a non-200 HTTP response from the Last.fm endpoint
// that carried no parseable API error payload.
type HTTPError struct {
	StatusCode int
	Status     string

	// RetryAfter holds the server-provided Retry-After value for 429
	// responses, zero when the header was absent or unparseable.
	RetryAfter time.Duration
}

// Error returns the error message.
func (e *HTTPError) Error() string {
	return fmt.Sprintf("lastfm: unexpected status: %s", e.Status)
}

// Common Last.fm error codes.
const (
	ErrCodeInvalidService       = 2
	ErrCodeInvalidMethod        = 3
	ErrCodeAuthenticationFailed = 4
	ErrCodeInvalidFormat        = 5
	ErrCodeInvalidParameters    = 6
	ErrCodeInvalidResourceSpec  = 7
	ErrCodeOperationFailed      = 8
	ErrCodeInvalidSessionKey    = 9
	ErrCodeInvalidAPIKey        = 10
	ErrCodeServiceOffline       = 11
	ErrCodeSubscribersOnly      = 12
	ErrCodeInvalidSignature     = 13
	ErrCodeUnauthorizedToken    = 14
	ErrCodeExpiredToken         = 15
	ErrCodeTempUnavailable      = 16
	ErrCodeRateLimitExceeded    = 29
)

// Predefined errors for common cases.
var (
	// ErrNoSessionKey is returned when an operation requires authentication
	// but no session key has been set.
	ErrNoSessionKey = fmt.Errorf("lastfm: session key required")

	// ErrNoUsername is returned when an operation needs per-user data
	// (such as user playcounts) but no username was configured.
	ErrNoUsername = fmt.Errorf("lastfm: username required")
)
