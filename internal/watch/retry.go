package watch

import (
	"context"
	"errors"
	"time"
)

// ErrExhausted reports that every retry attempt failed.
var ErrExhausted = errors.New("retry attempts exhausted")

// Retry runs fn up to maxAttempts times with a fixed delay between
// attempts. The first success wins; once attempts run out the last error
// is wrapped under ErrExhausted.
func Retry[T any](ctx context.Context, maxAttempts int, delay time.Duration, clock Clock, fn func() (T, error)) (T, error) {
	var zero T
	if maxAttempts < 1 {
		maxAttempts = 1
	}
	if clock == nil {
		clock = RealClock
	}

	var lastErr error
	for attempt := 0; attempt < maxAttempts; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return zero, ctx.Err()
			case <-clock.After(delay):
			}
		}
		v, err := fn()
		if err == nil {
			return v, nil
		}
		lastErr = err
	}
	return zero, errors.Join(ErrExhausted, lastErr)
}
