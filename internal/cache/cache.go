// Package cache provides the read-through TTL cache used by the lookup
// services. The store is injected rather than held in package-level state
// so lifecycle and test isolation stay explicit.
package cache

import (
	"context"
	"time"
)

// Store is a TTL key-value store over JSON-encoded values. Implementations
// are the in-process memory store and an optional Redis-backed store.
type Store interface {
	// GetJSON decodes the value for key into dest and reports whether a
	// live (non-expired) entry was found.
	GetJSON(ctx context.Context, key string, dest any) (bool, error)

	// SetJSON stores value under key for ttl.
	SetJSON(ctx context.Context, key string, value any, ttl time.Duration) error

	// Delete drops key, if present.
	Delete(ctx context.Context, key string) error

	Close() error
}

// GetOrCompute returns the cached value for key, or runs compute, caches
// the result for ttl and returns it. Compute errors are never cached.
func GetOrCompute[T any](ctx context.Context, s Store, key string, ttl time.Duration, compute func(context.Context) (T, error)) (T, error) {
	var cached T
	if ok, err := s.GetJSON(ctx, key, &cached); err == nil && ok {
		return cached, nil
	}

	fresh, err := compute(ctx)
	if err != nil {
		var zero T
		return zero, err
	}

	// A failed cache write only costs a recompute next time.
	_ = s.SetJSON(ctx, key, fresh, ttl)
	return fresh, nil
}
