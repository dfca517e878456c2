package resilience

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/sony/gobreaker/v2"
)

func fastConfig() Config {
	return Config{
		RetryMaxAttempts:    3,
		RetryInitialBackoff: time.Millisecond,
		RetryMaxBackoff:     2 * time.Millisecond,
		RetryMultiplier:     2,
		BreakerEnabled:      false,
	}
}

var errRateLimited = errors.New("rate limited")

func retryOnRateLimit(err error) ErrorClassification {
	return ErrorClassification{
		Retryable:     errors.Is(err, errRateLimited),
		RecordFailure: true,
	}
}

func TestExecuteRecoversWithinRetryBudget(t *testing.T) {
	exec := NewExecutor(fastConfig())

	calls := 0
	err := exec.Execute(context.Background(), "gemini_generate", func(context.Context) error {
		calls++
		if calls < 3 {
			return errRateLimited
		}
		return nil
	}, retryOnRateLimit)

	if err != nil {
		t.Fatalf("expected success after retries, got %v", err)
	}
	if calls != 3 {
		t.Fatalf("expected 3 calls, got %d", calls)
	}
}

func TestExecuteReturnsErrorWhenBudgetExhausted(t *testing.T) {
	exec := NewExecutor(fastConfig())

	calls := 0
	err := exec.Execute(context.Background(), "gemini_generate", func(context.Context) error {
		calls++
		return errRateLimited
	}, retryOnRateLimit)

	if !errors.Is(err, errRateLimited) {
		t.Fatalf("expected rate limited error, got %v", err)
	}
	if calls != 3 {
		t.Fatalf("expected all 3 attempts used, got %d", calls)
	}
}

func TestExecuteDoesNotRetryPermanentFailure(t *testing.T) {
	exec := NewExecutor(fastConfig())

	errBadRequest := errors.New("invalid image payload")
	calls := 0
	err := exec.Execute(context.Background(), "serpapi_search", func(context.Context) error {
		calls++
		return errBadRequest
	}, func(error) ErrorClassification {
		return ErrorClassification{Retryable: false, RecordFailure: false}
	})

	if !errors.Is(err, errBadRequest) {
		t.Fatalf("expected bad request error, got %v", err)
	}
	if calls != 1 {
		t.Fatalf("expected a single call, got %d", calls)
	}
}

func TestExecuteStopsRetryingOnCancelledContext(t *testing.T) {
	cfg := fastConfig()
	cfg.RetryInitialBackoff = 50 * time.Millisecond
	cfg.RetryMaxBackoff = 50 * time.Millisecond
	exec := NewExecutor(cfg)

	ctx, cancel := context.WithCancel(context.Background())
	calls := 0
	err := exec.Execute(ctx, "gemini_generate", func(context.Context) error {
		calls++
		cancel()
		return errRateLimited
	}, retryOnRateLimit)

	if !errors.Is(err, errRateLimited) {
		t.Fatalf("expected the last call error, got %v", err)
	}
	if calls != 1 {
		t.Fatalf("expected no retries after cancellation, got %d calls", calls)
	}
}

func TestExecuteOpensBreakerPerOperation(t *testing.T) {
	exec := NewExecutor(Config{
		RetryMaxAttempts:        1,
		RetryInitialBackoff:     time.Millisecond,
		RetryMaxBackoff:         time.Millisecond,
		RetryMultiplier:         2,
		BreakerEnabled:          true,
		BreakerMinRequests:      2,
		BreakerFailureRatio:     0.5,
		BreakerOpenTimeout:      50 * time.Millisecond,
		BreakerHalfOpenMaxCalls: 1,
	})

	recordAlways := func(error) ErrorClassification {
		return ErrorClassification{Retryable: false, RecordFailure: true}
	}

	for i := 0; i < 2; i++ {
		err := exec.Execute(context.Background(), "gemini_generate", func(context.Context) error {
			return errRateLimited
		}, recordAlways)
		if !errors.Is(err, errRateLimited) {
			t.Fatalf("seed call %d: expected rate limited error, got %v", i, err)
		}
	}

	err := exec.Execute(context.Background(), "gemini_generate", func(context.Context) error {
		t.Fatal("open breaker must not invoke the operation")
		return nil
	}, recordAlways)
	if !IsCircuitOpen(err) {
		t.Fatalf("expected open circuit error, got %v", err)
	}

	// Breakers are per operation name; a different upstream is unaffected.
	err = exec.Execute(context.Background(), "serpapi_search", func(context.Context) error {
		return nil
	}, recordAlways)
	if err != nil {
		t.Fatalf("expected independent operation to pass, got %v", err)
	}
}

func TestIsCircuitOpen(t *testing.T) {
	if !IsCircuitOpen(gobreaker.ErrOpenState) {
		t.Fatal("expected ErrOpenState to count as open circuit")
	}
	if IsCircuitOpen(errors.New("other")) {
		t.Fatal("expected unrelated error to not count as open circuit")
	}
}
