package verification

import (
	"context"
	"math/rand"
	"time"

	"github.com/turtacn/KYB-Sentinel/pkg/errors"
)

// BackoffPolicy is the single reusable retry policy shared by every
// verification adapter and by transport bootstrap.  Delays grow
// exponentially from BaseDelay by Multiplier per attempt, capped at
// MaxDelay, with optional proportional jitter.
type BackoffPolicy struct {
	MaxAttempts int
	BaseDelay   time.Duration
	Multiplier  float64
	MaxDelay    time.Duration

	// Jitter in [0,1) adds up to Jitter*delay of randomness per wait.
	Jitter float64
}

// DefaultBackoff is the engine default: 3 attempts, 1s base, doubling,
// capped at 30s.
func DefaultBackoff() BackoffPolicy {
	return BackoffPolicy{
		MaxAttempts: 3,
		BaseDelay:   time.Second,
		Multiplier:  2,
		MaxDelay:    30 * time.Second,
	}
}

// Delay returns the wait before retry attempt n (1-based: Delay(1) is the
// wait after the first failure).
func (p BackoffPolicy) Delay(attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	d := float64(p.BaseDelay)
	for i := 1; i < attempt; i++ {
		d *= p.Multiplier
	}
	if p.MaxDelay > 0 && d > float64(p.MaxDelay) {
		d = float64(p.MaxDelay)
	}
	if p.Jitter > 0 {
		d += d * p.Jitter * rand.Float64()
	}
	return time.Duration(d)
}

// Budget is the worst-case total time the policy can spend: all waits plus
// attempts*perAttempt.  The orchestrator derives cycle deadlines from it.
func (p BackoffPolicy) Budget(perAttempt time.Duration) time.Duration {
	total := time.Duration(p.MaxAttempts) * perAttempt
	for i := 1; i < p.MaxAttempts; i++ {
		total += p.Delay(i)
	}
	return total
}

// Retry runs fn up to MaxAttempts times, sleeping per the policy between
// failures.  Non-retryable errors (invalid input, state errors) abort
// immediately; context cancellation aborts the wait.  The last error is
// returned when every attempt fails.
func (p BackoffPolicy) Retry(ctx context.Context, fn func(ctx context.Context) error) error {
	var lastErr error
	attempts := p.MaxAttempts
	if attempts < 1 {
		attempts = 1
	}

	for attempt := 1; attempt <= attempts; attempt++ {
		lastErr = fn(ctx)
		if lastErr == nil {
			return nil
		}
		if !Retryable(lastErr) {
			return lastErr
		}
		if attempt == attempts {
			break
		}

		select {
		case <-ctx.Done():
			return errors.Wrap(ctx.Err(), errors.ErrCodeTimeout, "retry aborted by context")
		case <-time.After(p.Delay(attempt)):
		}
	}
	return lastErr
}

// Retryable reports whether an error is worth retrying.  Timeouts and
// transport failures are transient; malformed input and domain state errors
// are not.
func Retryable(err error) bool {
	switch errors.GetCode(err) {
	case errors.ErrCodeAdapterInvalidInput,
		errors.ErrCodeValidation,
		errors.ErrCodeInvalidTransition,
		errors.ErrCodeUnknownFrequency:
		return false
	default:
		return true
	}
}
