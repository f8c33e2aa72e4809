package backoff

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// ErrMaxAttemptsExhausted is returned when all retry attempts have been exhausted.
// The error from the final attempt is wrapped alongside it.
var ErrMaxAttemptsExhausted = errors.New("max retry attempts exhausted")

// RetryResult holds the result of a retry operation.
type RetryResult[T any] struct {
	// Value is the successful result value.
	Value T
	// Attempts is the number of attempts made (1-indexed).
	Attempts int
	// LastError is the last error encountered, if any.
	LastError error
}

type permanentError struct {
	err error
}

func (e *permanentError) Error() string { return e.err.Error() }
func (e *permanentError) Unwrap() error { return e.err }

// Permanent marks err as not worth retrying. RetryWithBackoff stops at once
// and returns err unwrapped.
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return &permanentError{err: err}
}

// RetryWithBackoff calls fn until it succeeds, returns a Permanent error, or
// maxAttempts calls have failed, sleeping between attempts according to the
// policy. fn receives the 1-indexed attempt number.
//
// When attempts run out the returned error matches both
// ErrMaxAttemptsExhausted and the last error from fn.
func RetryWithBackoff[T any](
	ctx context.Context,
	policy Policy,
	maxAttempts int,
	fn func(attempt int) (T, error),
) (RetryResult[T], error) {
	var result RetryResult[T]

	for attempt := 1; attempt <= maxAttempts; attempt++ {
		result.Attempts = attempt
		if err := ctx.Err(); err != nil {
			return result, err
		}

		value, err := fn(attempt)
		if err == nil {
			result.Value = value
			result.LastError = nil
			return result, nil
		}

		var perm *permanentError
		if errors.As(err, &perm) {
			result.LastError = perm.err
			return result, perm.err
		}
		result.LastError = err

		if attempt < maxAttempts {
			if err := wait(ctx, policy.Delay(attempt)); err != nil {
				return result, err
			}
		}
	}

	if result.LastError == nil {
		return result, ErrMaxAttemptsExhausted
	}
	return result, fmt.Errorf("%w: %w", ErrMaxAttemptsExhausted, result.LastError)
}

// Retry runs fn with RetryWithBackoff and reports only the error.
func Retry(ctx context.Context, policy Policy, maxAttempts int, fn func() error) error {
	_, err := RetryWithBackoff(ctx, policy, maxAttempts, func(int) (struct{}, error) {
		return struct{}{}, fn()
	})
	return err
}

// wait sleeps for d or until ctx is done.
func wait(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
