package ratelimit

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vaultline/wallet-core/internal/apperr"
	"github.com/vaultline/wallet-core/internal/testutil"
)

func TestConsumeAllowsWithinLimit(t *testing.T) {
	store := testutil.NewEphemeralStore(t)
	l := New(store)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		require.NoError(t, l.Consume(ctx, "login:1.2.3.4", 3, time.Minute))
	}
}

func TestConsumeRejectsOverLimit(t *testing.T) {
	store := testutil.NewEphemeralStore(t)
	l := New(store)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		require.NoError(t, l.Consume(ctx, "login:5.6.7.8", 3, time.Minute))
	}

	err := l.Consume(ctx, "login:5.6.7.8", 3, time.Minute)
	require.Error(t, err)
	assert.True(t, apperr.Is(err, apperr.CodeRateLimited))
}

func TestConsumeKeysAreIndependent(t *testing.T) {
	store := testutil.NewEphemeralStore(t)
	l := New(store)
	ctx := context.Background()

	require.NoError(t, l.Consume(ctx, "a", 1, time.Minute))
	require.NoError(t, l.Consume(ctx, "b", 1, time.Minute))
	require.Error(t, l.Consume(ctx, "a", 1, time.Minute))
}
