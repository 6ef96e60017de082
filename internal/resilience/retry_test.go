package resilience

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestPolicyRun_StopsOnSuccess(t *testing.T) {
	p := Policy[int]{
		MaxAttempts: 3,
		Backoff:     time.Millisecond,
		Success:     func(v int) bool { return v >= 2 },
	}

	got, attempts := p.Run(context.Background(), func(_ context.Context, attempt int) int {
		return attempt
	})
	assert.Equal(t, 2, got)
	assert.Equal(t, 2, attempts)
}

func TestPolicyRun_EarlyStop(t *testing.T) {
	p := Policy[string]{
		MaxAttempts: 3,
		Success:     func(s string) bool { return s == "ok" },
		EarlyStop:   func(s string) bool { return s == "gone" },
	}

	var calls int
	got, attempts := p.Run(context.Background(), func(_ context.Context, _ int) string {
		calls++
		return "gone"
	})
	assert.Equal(t, "gone", got)
	assert.Equal(t, 1, attempts)
	assert.Equal(t, 1, calls)
}

func TestPolicyRun_ExhaustsAndKeepsLast(t *testing.T) {
	var retries []int
	p := Policy[int]{
		MaxAttempts: 3,
		Success:     func(int) bool { return false },
		OnRetry:     func(next int, _ int) { retries = append(retries, next) },
	}

	got, attempts := p.Run(context.Background(), func(_ context.Context, attempt int) int {
		return attempt * 10
	})
	assert.Equal(t, 30, got)
	assert.Equal(t, 3, attempts)
	assert.Equal(t, []int{2, 3}, retries)
}

func TestPolicyRun_ZeroAttemptsRunsOnce(t *testing.T) {
	var calls int
	_, attempts := Policy[bool]{}.Run(context.Background(), func(_ context.Context, _ int) bool {
		calls++
		return false
	})
	assert.Equal(t, 1, calls)
	assert.Equal(t, 1, attempts)
}

func TestPolicyRun_ContextCancelStopsSleep(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	p := Policy[int]{
		MaxAttempts: 5,
		Backoff:     time.Hour,
		OnRetry:     func(int, int) { cancel() },
	}

	start := time.Now()
	_, attempts := p.Run(ctx, func(_ context.Context, attempt int) int { return attempt })
	assert.Equal(t, 1, attempts)
	assert.Less(t, time.Since(start), time.Second)
}

func TestPolicyDelay(t *testing.T) {
	p := Policy[int]{Backoff: 100 * time.Millisecond, Multiplier: 2, MaxBackoff: 300 * time.Millisecond}
	assert.Equal(t, 100*time.Millisecond, p.delay(1))
	assert.Equal(t, 200*time.Millisecond, p.delay(2))
	assert.Equal(t, 300*time.Millisecond, p.delay(3))

	fixed := Policy[int]{Backoff: 2 * time.Second}
	assert.Equal(t, 2*time.Second, fixed.delay(1))
	assert.Equal(t, 2*time.Second, fixed.delay(4))
}

func TestDo_RetriesTransientOnly(t *testing.T) {
	p := HTTPPolicy(3, time.Millisecond)

	var calls int
	err := Do(context.Background(), p, func(_ context.Context) error {
		calls++
		if calls < 3 {
			return NewTransientError(errors.New("503"), 503)
		}
		return nil
	})
	assert.NoError(t, err)
	assert.Equal(t, 3, calls)

	calls = 0
	permanent := errors.New("bad request")
	err = Do(context.Background(), p, func(_ context.Context) error {
		calls++
		return permanent
	})
	assert.ErrorIs(t, err, permanent)
	assert.Equal(t, 1, calls)
}

func TestDoVal(t *testing.T) {
	p := HTTPPolicy(2, time.Millisecond)

	var calls int
	v, err := DoVal(context.Background(), p, func(_ context.Context) (string, error) {
		calls++
		if calls == 1 {
			return "", NewTransientError(errors.New("timeout"), 0)
		}
		return "done", nil
	})
	assert.NoError(t, err)
	assert.Equal(t, "done", v)

	v, err = DoVal(context.Background(), p, func(_ context.Context) (string, error) {
		return "partial", errors.New("fatal")
	})
	assert.Error(t, err)
	assert.Empty(t, v)
}
