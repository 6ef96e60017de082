package resilience

import (
	"context"
	"math"
	"time"

	"go.uber.org/zap"
)

// Policy is a bounded retry policy. Run calls an operation up to MaxAttempts
// times, sleeping between attempts, and stops as soon as Success or EarlyStop
// accepts the latest observation. The last observation is always returned,
// so callers that exhaust the budget still see what happened on the final try.
type Policy[T any] struct {
	// MaxAttempts is the total number of attempts including the first.
	// Values below 1 are treated as 1.
	MaxAttempts int

	// Backoff is the delay before the second attempt. Zero means no sleep.
	Backoff time.Duration

	// Multiplier grows the delay after each attempt. Values <= 1 keep it fixed.
	Multiplier float64

	// MaxBackoff caps the grown delay. Zero means uncapped.
	MaxBackoff time.Duration

	// Success reports whether the observation is good enough to stop.
	Success func(T) bool

	// EarlyStop reports whether further attempts are pointless.
	EarlyStop func(T) bool

	// OnRetry runs before each sleep with the 1-based number of the attempt
	// about to start and the observation that triggered the retry.
	OnRetry func(next int, last T)
}

// Run executes fn under the policy and returns the last observation together
// with the number of attempts made. A cancelled context ends the loop after the
// current attempt.
func (p Policy[T]) Run(ctx context.Context, fn func(ctx context.Context, attempt int) T) (T, int) {
	attempts := max(p.MaxAttempts, 1)

	var last T
	for attempt := 1; attempt <= attempts; attempt++ {
		last = fn(ctx, attempt)

		if p.Success != nil && p.Success(last) {
			return last, attempt
		}
		if p.EarlyStop != nil && p.EarlyStop(last) {
			return last, attempt
		}
		if attempt == attempts || ctx.Err() != nil {
			return last, attempt
		}

		if p.OnRetry != nil {
			p.OnRetry(attempt+1, last)
		}
		if !sleep(ctx, p.delay(attempt)) {
			return last, attempt
		}
	}
	return last, attempts
}

func (p Policy[T]) delay(attempt int) time.Duration {
	if p.Backoff <= 0 {
		return 0
	}
	d := float64(p.Backoff)
	if p.Multiplier > 1 {
		d *= math.Pow(p.Multiplier, float64(attempt-1))
	}
	if p.MaxBackoff > 0 && d > float64(p.MaxBackoff) {
		d = float64(p.MaxBackoff)
	}
	return time.Duration(d)
}

// sleep waits for d or until ctx is done. It reports whether the full delay elapsed.
func sleep(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return ctx.Err() == nil
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

// HTTPPolicy is the policy used for outbound API calls: exponential backoff,
// retrying only transient errors.
func HTTPPolicy(maxAttempts int, backoff time.Duration) Policy[error] {
	return Policy[error]{
		MaxAttempts: maxAttempts,
		Backoff:     backoff,
		Multiplier:  2,
		MaxBackoff:  30 * time.Second,
		Success:     func(err error) bool { return err == nil },
		EarlyStop:   func(err error) bool { return !IsTransient(err) },
	}
}

// Do runs fn under an error policy and returns the last error.
func Do(ctx context.Context, p Policy[error], fn func(ctx context.Context) error) error {
	err, _ := p.Run(ctx, func(ctx context.Context, _ int) error {
		return fn(ctx)
	})
	return err
}

// DoVal is like Do but keeps the value from the successful call.
func DoVal[T any](ctx context.Context, p Policy[error], fn func(ctx context.Context) (T, error)) (T, error) {
	var val T
	err := Do(ctx, p, func(ctx context.Context) error {
		v, err := fn(ctx)
		if err != nil {
			return err
		}
		val = v
		return nil
	})
	if err != nil {
		var zero T
		return zero, err
	}
	return val, nil
}

// RetryLogger returns an OnRetry callback that logs each retry of an error policy.
func RetryLogger(service, operation string) func(int, error) {
	return func(next int, err error) {
		zap.L().Warn("retrying operation",
			zap.String("service", service),
			zap.String("operation", operation),
			zap.Int("attempt", next),
			zap.Error(err),
		)
	}
}
