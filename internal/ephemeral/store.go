// Package ephemeral defines the key/value store abstraction that backs
// pending tokens, rate limiting, WebAuthn challenges, and idempotency
// caching — all short-lived state that lives outside the system of
// record and is safe to lose on expiry.
package ephemeral

import (
	"context"
	"time"
)

// Store is the capability interface every ephemeral-state component
// depends on. The Redis implementation lives in redis_store.go; tests use
// the miniredis-backed constructor in internal/testutil.
type Store interface {
	// Get returns the stored value, or ("", false, nil) if absent.
	Get(ctx context.Context, key string) (string, bool, error)
	// Set stores value under key with the given TTL (0 = no expiry).
	Set(ctx context.Context, key, value string, ttl time.Duration) error
	// SetNX stores value under key only if key is absent, returning
	// whether the set happened.
	SetNX(ctx context.Context, key, value string, ttl time.Duration) (bool, error)
	// Delete removes key, if present.
	Delete(ctx context.Context, key string) error
	// GetDelete atomically fetches and removes key (get-then-delete
	// pattern required for at-most-once WebAuthn challenge consumption).
	GetDelete(ctx context.Context, key string) (string, bool, error)
	// Incr increments the integer counter at key, returning the new
	// value. If the key did not exist it is created with value 1.
	Incr(ctx context.Context, key string) (int64, error)
	// Expire sets a TTL on an existing key. A no-op if the key is absent.
	Expire(ctx context.Context, key string, ttl time.Duration) error
}

// Store methods report misses via a boolean rather than an error, so
// callers are not forced to do error-string matching.
