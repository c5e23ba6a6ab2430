// Package testutil provides shared test fixtures for the component test
// suites — a miniredis-backed ephemeral.Store, grounded on the
// alicebob/miniredis usage in the 0g-sandbox-billing example's Redis
// integration tests.
package testutil

import (
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"github.com/vaultline/wallet-core/internal/ephemeral"
)

// NewEphemeralStore starts an in-process miniredis server and returns an
// ephemeral.Store backed by it. The server is stopped via t.Cleanup.
func NewEphemeralStore(t *testing.T) ephemeral.Store {
	t.Helper()

	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("starting miniredis: %v", err)
	}
	t.Cleanup(mr.Close)

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	return ephemeral.NewRedisStore(client)
}
