package retry

import (
	"context"
	"errors"
	"testing"
	"time"

	apperrors "github.com/ocakbasi/order-sync/pkg/errors"
	"github.com/ocakbasi/order-sync/pkg/logger"
)

func testConfig(maxAttempts int, retryable ...error) *RetryConfig {
	return &RetryConfig{
		MaxAttempts:     maxAttempts,
		BackoffStrategy: &ConstantBackoff{Interval: time.Millisecond},
		Logger:          logger.NewNop(),
		RetryableErrors: retryable,
	}
}

func TestRetrySucceedsAfterTransientFailures(t *testing.T) {
	calls := 0

	err := Retry(context.Background(), func() error {
		calls++
		if calls < 3 {
			return apperrors.NewTransientFetchError("store hiccup")
		}
		return nil
	}, testConfig(5, apperrors.ErrTransientFetch))

	if err != nil {
		t.Fatalf("Retry failed: %v", err)
	}

	if calls != 3 {
		t.Errorf("made %d calls, want 3", calls)
	}
}

func TestRetryGivesUpOnNonRetryableError(t *testing.T) {
	calls := 0

	err := Retry(context.Background(), func() error {
		calls++
		return apperrors.NewInvalidTransitionError("ready -> cancelled")
	}, testConfig(5, apperrors.ErrTransientFetch))

	if !errors.Is(err, apperrors.ErrInvalidTransition) {
		t.Errorf("error = %v, want ErrInvalidTransition", err)
	}

	if calls != 1 {
		t.Errorf("non-retryable error was retried: %d calls", calls)
	}
}

func TestRetryExhaustsAttempts(t *testing.T) {
	calls := 0

	err := Retry(context.Background(), func() error {
		calls++
		return apperrors.NewTransientFetchError("still down")
	}, testConfig(3, apperrors.ErrTransientFetch))

	if err == nil {
		t.Fatal("Retry succeeded against a permanently failing function")
	}

	if !errors.Is(err, apperrors.ErrTransientFetch) {
		t.Errorf("error = %v, want wrapped ErrTransientFetch", err)
	}

	if calls != 3 {
		t.Errorf("made %d calls, want 3", calls)
	}
}

func TestRetryHonorsContextCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())

	calls := 0

	err := Retry(ctx, func() error {
		calls++
		cancel()
		return apperrors.NewTransientFetchError("store hiccup")
	}, testConfig(5, apperrors.ErrTransientFetch))

	if !errors.Is(err, context.Canceled) {
		t.Errorf("error = %v, want context.Canceled", err)
	}

	if calls != 1 {
		t.Errorf("made %d calls after cancellation, want 1", calls)
	}
}

func TestExponentialBackoffGrowsAndCaps(t *testing.T) {
	b := &ExponentialBackoff{
		InitialInterval: 100 * time.Millisecond,
		MaxInterval:     time.Second,
		Multiplier:      2.0,
	}

	if got := b.NextBackoff(1); got != 100*time.Millisecond {
		t.Errorf("attempt 1 backoff = %v", got)
	}

	if got := b.NextBackoff(2); got != 200*time.Millisecond {
		t.Errorf("attempt 2 backoff = %v", got)
	}

	if got := b.NextBackoff(10); got != time.Second {
		t.Errorf("attempt 10 backoff = %v, want capped at 1s", got)
	}
}
