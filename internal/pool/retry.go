package pool

import (
	"context"
	"errors"
	"time"

	"ammCore/internal/storage"
)

// withRetry calls fn until it succeeds, retryable rejects its error, or maxRetries
// extra attempts have failed. The delay doubles after every failed attempt.
func withRetry(ctx context.Context, maxRetries int, baseDelay time.Duration, retryable func(error) bool, fn func(context.Context) error) error {
	if maxRetries < 0 {
		maxRetries = 0
	}
	if baseDelay <= 0 {
		baseDelay = 100 * time.Millisecond
	}

	delay := baseDelay
	for attempt := 0; ; attempt++ {
		err := fn(ctx)
		if err == nil {
			return nil
		}
		if attempt >= maxRetries || ctx.Err() != nil || !retryable(err) {
			return err
		}

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}

		delay *= 2
	}
}

// transientLoadError reports whether a failed snapshot load may succeed when repeated.
func transientLoadError(err error) bool {
	switch {
	case errors.Is(err, storage.ErrInvalidPoolID),
		errors.Is(err, storage.ErrCorruptSnapshot),
		errors.Is(err, context.Canceled),
		errors.Is(err, context.DeadlineExceeded):
		return false
	}
	return true
}
