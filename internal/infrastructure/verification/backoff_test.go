package verification

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/turtacn/KYB-Sentinel/pkg/errors"
)

func TestDelayProgression(t *testing.T) {
	p := BackoffPolicy{MaxAttempts: 5, BaseDelay: time.Second, Multiplier: 2, MaxDelay: 5 * time.Second}

	assert.Equal(t, time.Second, p.Delay(1))
	assert.Equal(t, 2*time.Second, p.Delay(2))
	assert.Equal(t, 4*time.Second, p.Delay(3))
	// Capped at MaxDelay.
	assert.Equal(t, 5*time.Second, p.Delay(4))
	assert.Equal(t, 5*time.Second, p.Delay(10))
}

func TestBudget(t *testing.T) {
	p := BackoffPolicy{MaxAttempts: 3, BaseDelay: time.Second, Multiplier: 2, MaxDelay: 30 * time.Second}
	// 3 attempts * 10s + waits of 1s and 2s.
	assert.Equal(t, 33*time.Second, p.Budget(10*time.Second))
}

func TestRetrySucceedsAfterTransientFailures(t *testing.T) {
	p := BackoffPolicy{MaxAttempts: 3, BaseDelay: time.Millisecond, Multiplier: 2}

	calls := 0
	err := p.Retry(context.Background(), func(context.Context) error {
		calls++
		if calls < 3 {
			return errors.New(errors.ErrCodeAdapterTransport, "flaky")
		}
		return nil
	})

	require.NoError(t, err)
	assert.Equal(t, 3, calls)
}

func TestRetryExhaustsAttempts(t *testing.T) {
	p := BackoffPolicy{MaxAttempts: 3, BaseDelay: time.Millisecond, Multiplier: 2}

	calls := 0
	err := p.Retry(context.Background(), func(context.Context) error {
		calls++
		return errors.New(errors.ErrCodeAdapterTimeout, "still down")
	})

	require.Error(t, err)
	assert.Equal(t, 3, calls)
	assert.True(t, errors.IsCode(err, errors.ErrCodeAdapterTimeout))
}

func TestRetryDoesNotRetryInvalidInput(t *testing.T) {
	p := BackoffPolicy{MaxAttempts: 3, BaseDelay: time.Millisecond, Multiplier: 2}

	calls := 0
	err := p.Retry(context.Background(), func(context.Context) error {
		calls++
		return errors.New(errors.ErrCodeAdapterInvalidInput, "malformed vat")
	})

	require.Error(t, err)
	assert.Equal(t, 1, calls, "invalid input must not be retried")
}

func TestRetryRespectsContextCancellation(t *testing.T) {
	p := BackoffPolicy{MaxAttempts: 5, BaseDelay: time.Hour, Multiplier: 2}

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(10 * time.Millisecond)
		cancel()
	}()

	err := p.Retry(ctx, func(context.Context) error {
		return errors.New(errors.ErrCodeAdapterTransport, "down")
	})

	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrCodeTimeout))
}

func TestRetryable(t *testing.T) {
	assert.True(t, Retryable(errors.New(errors.ErrCodeAdapterTimeout, "t")))
	assert.True(t, Retryable(errors.New(errors.ErrCodeAdapterTransport, "t")))
	assert.False(t, Retryable(errors.New(errors.ErrCodeAdapterInvalidInput, "t")))
	assert.False(t, Retryable(errors.New(errors.ErrCodeInvalidTransition, "t")))
}
