// Package retry provides a generic retry executor with exponential backoff
// and explicit transient / rate-limit / fatal error classification.
//
// Callers wrap failures at the point where the failure class is known (the
// HTTP transports) using Transient and RateLimited; everything else is
// treated as fatal and aborts immediately. The executor itself holds the
// (attempt, delay) state so that retry policy stays independently testable.
package retry

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
)

// TransientError marks a failure as retryable with exponential backoff:
// timeouts, connection failures, 5xx responses and the like.
type TransientError struct {
	Err error
}

// Error returns the error message.
func (e *TransientError) Error() string {
	return e.Err.Error()
}

// Unwrap returns the underlying error.
func (e *TransientError) Unwrap() error {
	return e.Err
}

// RateLimitError marks a failure as a rate-limit response (HTTP 429 or an
// equivalent API error). RetryAfter carries the server-provided wait, zero
// when the server did not say.
type RateLimitError struct {
	Err        error
	RetryAfter time.Duration
}

// Error returns the error message.
func (e *RateLimitError) Error() string {
	return e.Err.Error()
}

// Unwrap returns the underlying error.
func (e *RateLimitError) Unwrap() error {
	return e.Err
}

// Transient wraps err as a retryable transient failure.
func Transient(err error) error {
	return &TransientError{Err: err}
}

// RateLimited wraps err as a rate-limit failure with an optional
// server-provided wait.
func RateLimited(err error, retryAfter time.Duration) error {
	return &RateLimitError{Err: err, RetryAfter: retryAfter}
}

// IsRetryable reports whether err carries a transient or rate-limit
// classification anywhere in its chain.
func IsRetryable(err error) bool {
	var te *TransientError
	var re *RateLimitError
	return errors.As(err, &te) || errors.As(err, &re)
}

// Policy configures an executor. Different call sites choose their own
// budget: track resolution uses a shorter one than scrobble submission
// because a lost submission is more costly than a lost lookup.
type Policy struct {
	MaxAttempts  int           // total attempts, including the first
	InitialDelay time.Duration // delay before the second attempt
	Factor       float64       // multiplier applied to the delay after each transient failure
}

// Executor runs operations under a Policy.
//
// The sleep function is injectable for tests; the zero value is not usable,
// construct with NewExecutor.
type Executor struct {
	policy Policy
	log    zerolog.Logger
	sleep  func(ctx context.Context, d time.Duration) error
}

// NewExecutor creates an executor with the given policy.
func NewExecutor(policy Policy, log zerolog.Logger) *Executor {
	return &Executor{
		policy: policy,
		log:    log.With().Str("component", "retry").Logger(),
		sleep:  sleepCtx,
	}
}

// Do runs op under the executor's policy.
//
// Transient failures are retried after the current delay, which is then
// multiplied by the policy factor. Rate-limit failures sleep the
// server-provided Retry-After (default: twice the current delay) and retry
// without advancing the exponential delay, but still consume an attempt.
// Any other failure aborts immediately. When attempts are exhausted the
// last observed failure is returned.
func Do[T any](ctx context.Context, e *Executor, op func(ctx context.Context) (T, error)) (T, error) {
	var zero T
	var lastErr error

	delay := e.policy.InitialDelay
	for attempt := 1; attempt <= e.policy.MaxAttempts; attempt++ {
		v, err := op(ctx)
		if err == nil {
			return v, nil
		}
		lastErr = err

		var rateErr *RateLimitError
		var transientErr *TransientError
		switch {
		case errors.As(err, &rateErr):
			if attempt == e.policy.MaxAttempts {
				break
			}
			wait := rateErr.RetryAfter
			if wait <= 0 {
				wait = delay * 2
			}
			e.log.Warn().
				Int("attempt", attempt).
				Int("max_attempts", e.policy.MaxAttempts).
				Dur("wait", wait).
				Msg("Rate limited, waiting")
			if err := e.sleep(ctx, wait); err != nil {
				return zero, err
			}
			// The exponential delay is deliberately left untouched here.

		case errors.As(err, &transientErr):
			if attempt == e.policy.MaxAttempts {
				break
			}
			e.log.Warn().
				Err(err).
				Int("attempt", attempt).
				Int("max_attempts", e.policy.MaxAttempts).
				Dur("delay", delay).
				Msg("Transient failure, retrying")
			if err := e.sleep(ctx, delay); err != nil {
				return zero, err
			}
			delay = time.Duration(float64(delay) * e.policy.Factor)

		default:
			return zero, err
		}
	}

	return zero, fmt.Errorf("giving up after %d attempts: %w", e.policy.MaxAttempts, lastErr)
}

// sleepCtx waits for d or until ctx is cancelled.
func sleepCtx(ctx context.Context, d time.Duration) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(d):
		return nil
	}
}
