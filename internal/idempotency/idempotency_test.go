package idempotency

import (
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vaultline/wallet-core/internal/testutil"
)

func TestMiddlewarePassesThroughWithoutKey(t *testing.T) {
	var calls int32
	gate := New(testutil.NewEphemeralStore(t))
	handler := gate.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusCreated)
	}))

	req := httptest.NewRequest(http.MethodPost, "/transfer", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	req2 := httptest.NewRequest(http.MethodPost, "/transfer", nil)
	rec2 := httptest.NewRecorder()
	handler.ServeHTTP(rec2, req2)

	assert.Equal(t, int32(2), atomic.LoadInt32(&calls))
}

func TestMiddlewareReplaysSecondRequestWithSameKey(t *testing.T) {
	var calls int32
	gate := New(testutil.NewEphemeralStore(t))
	handler := gate.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"data":{"id":"txn-1"}}`))
	}))

	req1 := httptest.NewRequest(http.MethodPost, "/transfer", nil)
	req1.Header.Set(KeyHeader, "same-key")
	rec1 := httptest.NewRecorder()
	handler.ServeHTTP(rec1, req1)
	require.Equal(t, http.StatusCreated, rec1.Code)

	req2 := httptest.NewRequest(http.MethodPost, "/transfer", nil)
	req2.Header.Set(KeyHeader, "same-key")
	rec2 := httptest.NewRecorder()
	handler.ServeHTTP(rec2, req2)

	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
	assert.Equal(t, http.StatusCreated, rec2.Code)
	assert.Equal(t, "true", rec2.Header().Get(ReplayedHeader))
	assert.Equal(t, rec1.Body.String(), rec2.Body.String())
}

func TestMiddlewareDoesNotCacheFailedResponses(t *testing.T) {
	var calls int32
	gate := New(testutil.NewEphemeralStore(t))
	handler := gate.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusInternalServerError)
	}))

	req1 := httptest.NewRequest(http.MethodPost, "/transfer", nil)
	req1.Header.Set(KeyHeader, "fails-key")
	rec1 := httptest.NewRecorder()
	handler.ServeHTTP(rec1, req1)
	require.Equal(t, http.StatusInternalServerError, rec1.Code)

	req2 := httptest.NewRequest(http.MethodPost, "/transfer", nil)
	req2.Header.Set(KeyHeader, "fails-key")
	rec2 := httptest.NewRecorder()
	handler.ServeHTTP(rec2, req2)

	assert.Equal(t, int32(2), atomic.LoadInt32(&calls))
}

func TestMiddlewareIgnoresGetRequests(t *testing.T) {
	var calls int32
	gate := New(testutil.NewEphemeralStore(t))
	handler := gate.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodGet, "/wallets/me", nil)
	req.Header.Set(KeyHeader, "irrelevant")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
}
