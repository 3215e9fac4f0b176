package httputil

import (
	"context"
	"errors"
	"testing"
	"time"
)

var errTransient = errors.New("connection reset")

func TestRetryable(t *testing.T) {
	if Retryable(nil) != nil {
		t.Error("Retryable(nil) should return nil")
	}
	err := Retryable(errTransient)
	if !IsRetryable(err) {
		t.Error("wrapped error not retryable")
	}
	if !errors.Is(err, errTransient) {
		t.Error("cause lost")
	}
	if IsRetryable(errTransient) {
		t.Error("plain error reported retryable")
	}
}

func TestRetry(t *testing.T) {
	ctx := context.Background()

	calls := 0
	err := Retry(ctx, 3, time.Millisecond, func() error {
		calls++
		if calls < 3 {
			return Retryable(errTransient)
		}
		return nil
	})
	if err != nil || calls != 3 {
		t.Errorf("Retry = %v after %d calls", err, calls)
	}

	calls = 0
	stop := errors.New("404")
	err = Retry(ctx, 3, time.Millisecond, func() error {
		calls++
		return stop
	})
	if err != stop || calls != 1 {
		t.Errorf("non-retryable: %v after %d calls", err, calls)
	}

	calls = 0
	err = Retry(ctx, 2, time.Millisecond, func() error {
		calls++
		return Retryable(errTransient)
	})
	if !errors.Is(err, errTransient) || calls != 2 {
		t.Errorf("exhausted: %v after %d calls", err, calls)
	}
}

func TestRetryContextCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := Retry(ctx, 3, time.Hour, func() error {
		return Retryable(errTransient)
	})
	if err != context.Canceled {
		t.Errorf("err = %v, want context.Canceled", err)
	}
}
