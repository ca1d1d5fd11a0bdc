package util

import (
	"context"
	"fmt"
	"log/slog"
	"time"
)

// RetryWithBackoff runs fn until it succeeds, at most maxRetries+1 times. The
// wait after failed attempt n is base<<n. Nothing is awaited after the last
// attempt. A done ctx ends the loop with ctx.Err().
func RetryWithBackoff(ctx context.Context, maxRetries int, base time.Duration, fn func(attempt int) error) error {
	err := fn(0)
	for attempt := 1; err != nil && attempt <= maxRetries; attempt++ {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		wait := base << (attempt - 1)
		slog.Warn("Attempt failed, retrying", "attempt", attempt, "backoff", wait, "error", err)

		t := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			t.Stop()
			return ctx.Err()
		case <-t.C:
		}
		err = fn(attempt)
	}
	if err != nil {
		return fmt.Errorf("giving up after %d attempts: %w", maxRetries+1, err)
	}
	return nil
}
