package gateway

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/hearth-chat/hearth/internal/logger"
)

// Backoff is an exponential retry schedule
type Backoff struct {
	InitialDelay  time.Duration
	MaxDelay      time.Duration // Zero means no per-attempt cap
	MaxTotal      time.Duration // Zero means retry until cancelled
	BackoffFactor float64
}

// InviteBackoff is the schedule used to accept invitations: 2s doubling,
// giving up once an hour has been spent waiting
func InviteBackoff() Backoff {
	return Backoff{
		InitialDelay:  2 * time.Second,
		MaxTotal:      time.Hour,
		BackoffFactor: 2.0,
	}
}

// ReconnectBackoff is the schedule used to re-establish the sync connection
func ReconnectBackoff() Backoff {
	return Backoff{
		InitialDelay:  2 * time.Second,
		MaxDelay:      30 * time.Second,
		BackoffFactor: 2.0,
	}
}

// NextDelay calculates the delay before retry number attemptCount (from 0)
func (b Backoff) NextDelay(attemptCount int) time.Duration {
	factor := b.BackoffFactor
	if factor < 1 {
		factor = 1
	}
	delay := float64(b.InitialDelay) * math.Pow(factor, float64(attemptCount))
	if b.MaxDelay > 0 && delay > float64(b.MaxDelay) {
		return b.MaxDelay
	}
	if delay > math.MaxInt64 {
		return time.Duration(math.MaxInt64)
	}
	return time.Duration(delay)
}

// permanentError marks a failure that retrying cannot fix
type permanentError struct {
	err error
}

func (e *permanentError) Error() string { return e.err.Error() }
func (e *permanentError) Unwrap() error { return e.err }

// Permanent wraps err so that Retry returns it without waiting
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return &permanentError{err: err}
}

// Retry calls fn until it succeeds, the context is cancelled, fn returns a
// Permanent error, or the next wait would push the total time spent waiting
// past MaxTotal.
func (b Backoff) Retry(ctx context.Context, what string, fn func(context.Context) error) error {
	var waited time.Duration
	for attempt := 0; ; attempt++ {
		err := fn(ctx)
		if err == nil {
			return nil
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		var permanent *permanentError
		if errors.As(err, &permanent) {
			return fmt.Errorf("%s: %w", what, permanent.err)
		}

		delay := b.NextDelay(attempt)
		if b.MaxTotal > 0 && waited+delay > b.MaxTotal {
			return fmt.Errorf("%s: giving up after %d attempts: %w", what, attempt+1, err)
		}
		logger.Debug("%s failed (attempt %d): %v, retrying in %s", what, attempt+1, err, delay)
		if err := sleep(ctx, delay); err != nil {
			return err
		}
		waited += delay
	}
}

func sleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
