package errs

import (
	"context"
	"math/rand/v2"
	"time"
)

// RetryConfig configures retry behavior for node execution.
type RetryConfig struct {
	// MaxAttempts is the maximum number of attempts (including the first).
	MaxAttempts int

	// InitialBackoff is the starting backoff duration.
	InitialBackoff time.Duration

	// MaxBackoff caps the backoff duration.
	MaxBackoff time.Duration

	// BackoffFactor is the multiplier applied after each failed attempt.
	BackoffFactor float64

	// Jitter is the random jitter factor (0.0-1.0).
	Jitter float64

	// RetryableFunc optionally overrides the default retryability check.
	RetryableFunc func(error) bool
}

// DefaultRetry is the standard retry configuration for node execution.
var DefaultRetry = RetryConfig{
	MaxAttempts:    3,
	InitialBackoff: 1 * time.Second,
	MaxBackoff:     30 * time.Second,
	BackoffFactor:  2.0,
	Jitter:         0.1,
}

// NoRetry disables retries.
var NoRetry = RetryConfig{MaxAttempts: 1}

// Result contains the outcome of a retried operation.
type Result[T any] struct {
	// Value is the result if any attempt succeeded.
	Value T

	// Err is the final error if all attempts failed.
	Err error

	// Attempts is the number of attempts made.
	Attempts int

	// Duration is the total time spent including backoff sleeps.
	Duration time.Duration
}

// WithRetry executes fn with retries, respecting context cancellation.
//
// Transient errors are retried up to cfg.MaxAttempts with exponential
// backoff and jitter. Isolation errors get exactly one extra attempt beyond
// their first failure, independent of the transient budget. Permanent and
// validation errors fail immediately.
func WithRetry[T any](
	ctx context.Context,
	cfg RetryConfig,
	fn func(ctx context.Context, attempt int) (T, error),
) Result[T] {
	start := time.Now()
	backoff := cfg.InitialBackoff
	var lastErr error

	isRetryable := cfg.RetryableFunc
	if isRetryable == nil {
		isRetryable = IsRetryable
	}

	maxAttempts := cfg.MaxAttempts
	if maxAttempts < 1 {
		maxAttempts = 1
	}
	isolationRetryUsed := false

	for attempt := 1; ; attempt++ {
		if err := ctx.Err(); err != nil {
			return Result[T]{
				Err:      &ClassifiedError{Err: err, Category: CategoryPermanent, Context: "cancelled"},
				Attempts: attempt - 1,
				Duration: time.Since(start),
			}
		}

		value, err := fn(ctx, attempt)
		if err == nil {
			return Result[T]{Value: value, Attempts: attempt, Duration: time.Since(start)}
		}
		lastErr = err

		retry := false
		switch {
		case IsIsolation(err) && !isolationRetryUsed:
			// One infrastructure retry for sandbox faults, then permanent.
			isolationRetryUsed = true
			retry = true
		case isRetryable(err) && attempt < maxAttempts:
			retry = true
		}

		if !retry {
			return Result[T]{
				Err: &ClassifiedError{
					Err:      lastErr,
					Category: Categorize(lastErr),
					Attempts: attempt,
				},
				Attempts: attempt,
				Duration: time.Since(start),
			}
		}

		select {
		case <-ctx.Done():
			return Result[T]{
				Err:      &ClassifiedError{Err: ctx.Err(), Category: CategoryPermanent, Context: "cancelled during backoff"},
				Attempts: attempt,
				Duration: time.Since(start),
			}
		case <-time.After(jittered(backoff, cfg.Jitter)):
		}

		backoff = time.Duration(float64(backoff) * cfg.BackoffFactor)
		if cfg.MaxBackoff > 0 && backoff > cfg.MaxBackoff {
			backoff = cfg.MaxBackoff
		}
	}
}

// jittered returns base +/- (base * jitter * random).
func jittered(base time.Duration, jitter float64) time.Duration {
	if jitter <= 0 || base <= 0 {
		return base
	}
	offset := float64(base) * jitter * (rand.Float64()*2 - 1)
	return time.Duration(float64(base) + offset)
}
