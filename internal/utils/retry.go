package utils

import (
	"context"
	"log/slog"
	"time"
)

// Retry calls fn up to maxAttempts times, sleeping delay between attempts,
// until fn reports ok. The second return value is false when every attempt
// failed or ctx ended first.
func Retry[T any](ctx context.Context, maxAttempts int, delay time.Duration, fn func() (T, bool)) (T, bool) {
	var zero T
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		if v, ok := fn(); ok {
			return v, true
		}
		if attempt == maxAttempts {
			break
		}

		slog.Debug("[Retry] Attempt failed, retrying",
			slog.Int("attempt", attempt),
			slog.Int("max_attempts", maxAttempts))

		if err := Sleep(ctx, delay); err != nil {
			return zero, false
		}
	}
	return zero, false
}

// Sleep waits for d or until ctx is done.
func Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
