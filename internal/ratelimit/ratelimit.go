// Package ratelimit implements C3: a fixed-window counter gate backed by
// the ephemeral store's INCR/EXPIRE primitives.
package ratelimit

import (
	"context"
	"time"

	"github.com/vaultline/wallet-core/internal/apperr"
	"github.com/vaultline/wallet-core/internal/ephemeral"
)

// Limiter enforces fixed-window request quotas.
type Limiter struct {
	store ephemeral.Store
}

func New(store ephemeral.Store) *Limiter {
	return &Limiter{store: store}
}

// Consume increments the counter for key and fails with CodeRateLimited
// once the count exceeds limit within the current window. The window
// starts on the first increment and is fixed for ttl — it does not
// slide, and a downstream failure after Consume succeeds does not
// refund the token.
func (l *Limiter) Consume(ctx context.Context, key string, limit int64, ttl time.Duration) error {
	count, err := l.store.Incr(ctx, key)
	if err != nil {
		return apperr.Internal("incrementing rate limit counter", err)
	}
	if count == 1 {
		if err := l.store.Expire(ctx, key, ttl); err != nil {
			return apperr.Internal("setting rate limit window", err)
		}
	}
	if count > limit {
		return apperr.New(apperr.CodeRateLimited, "rate limit exceeded")
	}
	return nil
}
