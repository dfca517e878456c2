// Package resilience wraps outbound calls to paid upstreams (generation,
// search, messaging) with bounded retry and per-operation circuit breakers.
package resilience

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/sony/gobreaker/v2"
)

// ErrorClassification tells the executor what to do with a failure:
// whether another attempt can help, and whether the breaker should count
// it. Quota and safety rejections are neither.
type ErrorClassification struct {
	Retryable     bool
	RecordFailure bool
}

type ErrorClassifier func(err error) ErrorClassification

// Executor keeps one circuit breaker per named operation, created lazily
// on first use.
type Executor struct {
	cfg Config

	mu       sync.Mutex
	breakers map[string]*gobreaker.CircuitBreaker[any]
}

func NewExecutor(cfg Config) *Executor {
	return &Executor{
		cfg:      cfg.normalize(),
		breakers: make(map[string]*gobreaker.CircuitBreaker[any]),
	}
}

func (e *Executor) Execute(
	ctx context.Context,
	operation string,
	fn func(context.Context) error,
	classifier ErrorClassifier,
) error {
	if fn == nil {
		return fmt.Errorf("resilience: operation callback is nil")
	}
	operation = strings.TrimSpace(operation)
	if operation == "" {
		operation = "unknown"
	}
	if classifier == nil {
		classifier = conservativeClassifier
	}

	if !e.cfg.BreakerEnabled {
		return e.runWithRetry(ctx, operation, fn, classifier)
	}

	_, err := e.breakerFor(operation, classifier).Execute(func() (any, error) {
		return nil, e.runWithRetry(ctx, operation, fn, classifier)
	})
	return err
}

func (e *Executor) runWithRetry(
	ctx context.Context,
	operation string,
	fn func(context.Context) error,
	classifier ErrorClassifier,
) error {
	var lastErr error

	wait := e.cfg.RetryInitialBackoff
	for attempt := 1; ; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		lastErr = fn(ctx)
		if lastErr == nil {
			return nil
		}
		if !classifier(lastErr).Retryable || attempt >= e.cfg.RetryMaxAttempts {
			return lastErr
		}

		slog.Warn("retry_attempt",
			"operation", operation,
			"attempt", attempt,
			"max_attempts", e.cfg.RetryMaxAttempts,
			"backoff", wait.String(),
			"error", lastErr,
		)

		if !sleepContext(ctx, wait) {
			return lastErr
		}
		wait = e.nextBackoff(wait)
	}
}

// sleepContext waits for d and reports false if ctx ended first.
func sleepContext(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return true
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}

func (e *Executor) nextBackoff(current time.Duration) time.Duration {
	next := time.Duration(float64(current) * e.cfg.RetryMultiplier)
	if next > e.cfg.RetryMaxBackoff {
		next = e.cfg.RetryMaxBackoff
	}
	return next
}

func (e *Executor) breakerFor(operation string, classifier ErrorClassifier) *gobreaker.CircuitBreaker[any] {
	e.mu.Lock()
	defer e.mu.Unlock()

	if breaker, ok := e.breakers[operation]; ok {
		return breaker
	}

	breaker := gobreaker.NewCircuitBreaker[any](gobreaker.Settings{
		Name:        operation,
		MaxRequests: e.cfg.BreakerHalfOpenMaxCalls,
		Timeout:     e.cfg.BreakerOpenTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.Requests < e.cfg.BreakerMinRequests {
				return false
			}
			return float64(counts.TotalFailures)/float64(counts.Requests) >= e.cfg.BreakerFailureRatio
		},
		IsSuccessful: func(err error) bool {
			return err == nil || !classifier(err).RecordFailure
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			slog.Warn("circuit_breaker_state_change",
				"operation", name,
				"from", from.String(),
				"to", to.String(),
			)
		},
	})
	e.breakers[operation] = breaker
	return breaker
}

func IsCircuitOpen(err error) bool {
	return errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests)
}

// conservativeClassifier treats every failure as permanent and counted.
func conservativeClassifier(error) ErrorClassification {
	return ErrorClassification{Retryable: false, RecordFailure: true}
}
