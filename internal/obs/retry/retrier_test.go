package retry

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func fastPolicy(attempts int) Policy {
	return Policy{
		Name:     "test",
		Attempts: attempts,
		Backoff:  ExpoJitter{Base: time.Millisecond, Max: 2 * time.Millisecond},
	}
}

func TestDoSucceedsAfterFailures(t *testing.T) {
	calls := 0
	err := Do(context.Background(), fastPolicy(5), func(context.Context) error {
		calls++
		if calls < 3 {
			return errors.New("not yet")
		}
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 3, calls)
}

func TestDoExhaustsAttempts(t *testing.T) {
	boom := errors.New("boom")
	calls := 0
	var exhausted error
	p := fastPolicy(3)
	p.OnExhaust = func(err error) { exhausted = err }

	err := Do(context.Background(), p, func(context.Context) error {
		calls++
		return boom
	})
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 3, calls)
	assert.ErrorIs(t, exhausted, boom)
}

func TestDoStopsOnNonRetryable(t *testing.T) {
	fatal := errors.New("bad config")
	calls := 0
	p := fastPolicy(5)
	p.Retryable = func(err error) bool { return !errors.Is(err, fatal) }

	err := Do(context.Background(), p, func(context.Context) error {
		calls++
		return fatal
	})
	assert.ErrorIs(t, err, fatal)
	assert.Equal(t, 1, calls)
}

func TestDoHonorsContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	calls := 0
	p := Policy{Name: "ctx", Attempts: 10, Backoff: ExpoJitter{Base: 50 * time.Millisecond}}

	err := Do(ctx, p, func(context.Context) error {
		calls++
		cancel()
		return errors.New("still failing")
	})
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, calls, "cancel stops the loop before the next attempt")
}

func TestExpoJitterCaps(t *testing.T) {
	b := ExpoJitter{Base: 100 * time.Millisecond, Max: time.Second}
	assert.Equal(t, 100*time.Millisecond, b.Next(0))
	assert.Equal(t, 400*time.Millisecond, b.Next(2))
	assert.Equal(t, time.Second, b.Next(10))
}

func TestStartupPolicyRetryability(t *testing.T) {
	p := StartupPolicy("db", zaptest.NewLogger(t))
	assert.True(t, p.Retryable(errors.New("connection refused")))
	assert.False(t, p.Retryable(context.Canceled))
	assert.False(t, p.Retryable(nil))
}
