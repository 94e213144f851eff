// Package cache memoizes the outcome of expensive operations in a
// date-partitioned blob store, so rerunning a day never repeats an external
// call that already succeeded.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"buzzdigest/internal/model"
	"buzzdigest/internal/store"
)

// maxFingerprintArg bounds each fingerprint argument so storage keys stay
// short regardless of input size.
const maxFingerprintArg = 20

// Cache wraps a blob store. Records are written once per (date, operation,
// fingerprint) and never rewritten by this package.
type Cache struct {
	store store.Store
}

func New(s store.Store) *Cache {
	return &Cache{store: s}
}

// Key derives the storage key for an operation inside a date partition.
func Key(day model.Date, op, fingerprint string) string {
	if fingerprint == "" {
		return fmt.Sprintf("%s/%s.json", day, op)
	}
	return fmt.Sprintf("%s/%s-%s.json", day, op, fingerprint)
}

// Fingerprint builds a stable textual encoding of a call's distinguishing
// arguments, each truncated to keep keys bounded.
func Fingerprint(args ...string) string {
	parts := make([]string, 0, len(args))
	for _, arg := range args {
		runes := []rune(arg)
		if len(runes) > maxFingerprintArg {
			runes = runes[:maxFingerprintArg]
		}
		parts = append(parts, string(runes))
	}
	return strings.Join(parts, "-")
}

// GetOrCompute returns the stored result for (day, op, fingerprint) when one
// exists, otherwise runs compute exactly once and persists what it returns.
// A result failing the cacheable predicate (nil means always cacheable) is
// handed back but not stored, so a later invocation the same day tries the
// computation again. A stored payload that no longer decodes counts as a
// miss. Storage write failures degrade to a warning; the computed result
// still flows back to the caller.
func GetOrCompute[T any](ctx context.Context, c *Cache, day model.Date, op, fingerprint string, compute func(context.Context) (T, error), cacheable func(T) bool) (T, error) {
	var zero T
	key := Key(day, op, fingerprint)

	data, err := c.store.Get(ctx, key)
	switch {
	case err == nil:
		var cached T
		if jsonErr := json.Unmarshal(data, &cached); jsonErr != nil {
			slog.Warn("discarding unreadable cache record", "key", key, "error", jsonErr)
		} else {
			slog.Info("cache hit", "key", key)
			return cached, nil
		}
	case errors.Is(err, store.ErrNotFound):
		slog.Info("cache miss", "key", key)
	default:
		slog.Warn("cache lookup failed, recomputing", "key", key, "error", err)
	}

	result, err := compute(ctx)
	if err != nil {
		return zero, err
	}

	if cacheable != nil && !cacheable(result) {
		slog.Info("result not cacheable, skipping write", "key", key)
		return result, nil
	}

	payload, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		slog.Warn("cache encode failed", "key", key, "error", err)
		return result, nil
	}
	if err := c.store.Put(ctx, key, payload); err != nil {
		slog.Warn("cache write failed", "key", key, "error", err)
	}
	return result, nil
}
