package workflow

import (
	"context"
	"time"
)

// Backoff computes the delay before the retry that follows the n-th
// generation failure of a stage (n starts at 1).
type Backoff func(n int) time.Duration

// Default retry delays.
const (
	DefaultBackoffBase = time.Second
	DefaultBackoffMax  = 8 * time.Second
)

// ExponentialBackoff doubles base for every failure up to max.
func ExponentialBackoff(base, max time.Duration) Backoff {
	return func(n int) time.Duration {
		if n < 1 || base <= 0 {
			return 0
		}

		d := base
		for i := 1; i < n; i++ {
			d *= 2
			if d >= max {
				return max
			}
		}

		return min(d, max)
	}
}

// sleepContext waits for d or until ctx is done.
func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}

	t := time.NewTimer(d)
	defer t.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
