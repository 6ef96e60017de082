package resilience

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func failFn(_ context.Context) error { return errors.New("fail") }
func okFn(_ context.Context) error   { return nil }

func TestBreaker_OpensAfterThreshold(t *testing.T) {
	b := NewBreaker("ddg", BreakerConfig{FailureThreshold: 3, Cooldown: time.Minute})

	for i := 0; i < 3; i++ {
		_ = b.Execute(context.Background(), failFn)
	}
	assert.Equal(t, CircuitOpen, b.State())

	var called bool
	err := b.Execute(context.Background(), func(_ context.Context) error {
		called = true
		return nil
	})
	assert.ErrorIs(t, err, ErrCircuitOpen)
	assert.False(t, called)
}

func TestBreaker_SuccessResetsFailures(t *testing.T) {
	b := NewBreaker("ddg", BreakerConfig{FailureThreshold: 2, Cooldown: time.Minute})

	_ = b.Execute(context.Background(), failFn)
	_ = b.Execute(context.Background(), okFn)
	_ = b.Execute(context.Background(), failFn)
	assert.Equal(t, CircuitClosed, b.State())
}

func TestBreaker_HalfOpenProbe(t *testing.T) {
	now := time.Now()
	b := NewBreaker("jina", BreakerConfig{FailureThreshold: 1, Cooldown: time.Second})
	b.now = func() time.Time { return now }

	_ = b.Execute(context.Background(), failFn)
	require.Equal(t, CircuitOpen, b.State())

	now = now.Add(2 * time.Second)
	assert.Equal(t, CircuitHalfOpen, b.State())

	// Failed probe re-opens.
	_ = b.Execute(context.Background(), failFn)
	assert.Equal(t, CircuitOpen, b.State())

	now = now.Add(2 * time.Second)
	require.NoError(t, b.Execute(context.Background(), okFn))
	assert.Equal(t, CircuitClosed, b.State())
}

func TestBreaker_StateChangeCallback(t *testing.T) {
	var changes []string
	b := NewBreaker("ddg", BreakerConfig{
		FailureThreshold: 1,
		Cooldown:         time.Minute,
		OnStateChange: func(name string, from, to CircuitState) {
			changes = append(changes, name+":"+from.String()+"->"+to.String())
		},
	})

	_ = b.Execute(context.Background(), failFn)
	assert.Equal(t, []string{"ddg:closed->open"}, changes)
}

func TestExecuteVal(t *testing.T) {
	b := NewBreaker("x", DefaultBreakerConfig())
	v, err := ExecuteVal(context.Background(), b, func(_ context.Context) (int, error) {
		return 7, nil
	})
	require.NoError(t, err)
	assert.Equal(t, 7, v)
}

func TestServiceBreakers(t *testing.T) {
	sb := NewServiceBreakers(BreakerConfig{FailureThreshold: 1, Cooldown: time.Minute})

	a := sb.Get("duckduckgo")
	assert.Same(t, a, sb.Get("duckduckgo"))

	_ = a.Execute(context.Background(), failFn)
	_ = sb.Get("jina")

	states := sb.States()
	assert.Equal(t, CircuitOpen, states["duckduckgo"])
	assert.Equal(t, CircuitClosed, states["jina"])
}
