// Package retry runs bounded retry loops with a fixed delay and lets a
// failed attempt pass structured feedback into the next one.
package retry

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"
)

// FeedbackError carries a validator's explanation of why an attempt was
// rejected. The executor feeds the reason into the next attempt so a retry
// differs materially from the call that failed.
type FeedbackError struct {
	Reason string
}

func (e *FeedbackError) Error() string {
	return "rejected by validation: " + e.Reason
}

// Config bounds the loop. Attempts counts the first try. Delay is fixed, not
// exponential; it exists to respect downstream rate limits. Errors matched by
// NonRetryable surface immediately without consuming further attempts.
type Config struct {
	Attempts     int
	Delay        time.Duration
	NonRetryable func(error) bool
}

// Do runs fn until it succeeds or attempts run out. fn receives the latest
// validation feedback: empty on the first try and after errors that carry
// none. The error returned on exhaustion wraps the last attempt's error.
func Do[T any](ctx context.Context, cfg Config, op string, fn func(ctx context.Context, feedback string) (T, error)) (T, error) {
	var zero T
	attempts := cfg.Attempts
	if attempts < 1 {
		attempts = 1
	}

	var lastErr error
	feedback := ""
	for attempt := 1; attempt <= attempts; attempt++ {
		result, err := fn(ctx, feedback)
		if err == nil {
			return result, nil
		}
		if cfg.NonRetryable != nil && cfg.NonRetryable(err) {
			return zero, err
		}

		lastErr = err
		var fb *FeedbackError
		if errors.As(err, &fb) {
			feedback = fb.Reason
		}

		if attempt < attempts {
			slog.Warn("attempt failed, retrying",
				"op", op, "attempt", attempt, "max_attempts", attempts, "error", err)
			time.Sleep(cfg.Delay)
		}
	}

	return zero, fmt.Errorf("%s: giving up after %d attempts: %w", op, attempts, lastErr)
}
