package httputil

import (
	"context"
	"errors"
	"time"
)

// RetryableError marks a failure worth another attempt: a dropped
// connection or a 5xx. Anything else is final.
type RetryableError struct{ Err error }

func (e *RetryableError) Error() string { return e.Err.Error() }
func (e *RetryableError) Unwrap() error { return e.Err }

// Retryable marks err as transient. Retryable(nil) is nil.
func Retryable(err error) error {
	if err == nil {
		return nil
	}
	return &RetryableError{Err: err}
}

// IsRetryable reports whether any error in err's chain was marked by
// [Retryable].
func IsRetryable(err error) bool {
	var re *RetryableError
	return errors.As(err, &re)
}

// Retry calls fn until it succeeds, returns a final error, or has been
// called attempts times. The pause before attempt n+1 is delay·2ⁿ⁻¹.
// Cancelling ctx during a pause returns ctx.Err().
func Retry(ctx context.Context, attempts int, delay time.Duration, fn func() error) error {
	err := fn()
	for n := 1; n < attempts && IsRetryable(err); n++ {
		t := time.NewTimer(delay << (n - 1))
		select {
		case <-ctx.Done():
			t.Stop()
			return ctx.Err()
		case <-t.C:
		}
		err = fn()
	}
	return err
}

// RetryWithBackoff retries fn three times, pausing one then two seconds.
// Only side fetches such as the resolver index use it; the ego fallback
// chain moves to its next stage instead.
func RetryWithBackoff(ctx context.Context, fn func() error) error {
	return Retry(ctx, 3, time.Second, fn)
}
