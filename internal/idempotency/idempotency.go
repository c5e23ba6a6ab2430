// Package idempotency implements C4: an HTTP middleware that makes
// POST/DELETE handlers safe to retry when the caller supplies an
// Idempotency-Key header. Grounded on the chi middleware chain style in
// cmd/api/main.go and the SETNX-lock idiom used elsewhere in the
// retrieval pack for single-flight dedup.
package idempotency

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5/middleware"

	"github.com/vaultline/wallet-core/internal/apperr"
	"github.com/vaultline/wallet-core/internal/ephemeral"
	"github.com/vaultline/wallet-core/internal/problem"
)

const (
	lockTTL   = 30 * time.Second
	cacheTTL  = 24 * time.Hour
	pollEvery = 100 * time.Millisecond
	pollFor   = 2 * time.Second

	ReplayedHeader = "Idempotency-Replayed"
	KeyHeader      = "Idempotency-Key"
)

type cachedResponse struct {
	StatusCode int         `json:"statusCode"`
	Body       string      `json:"body"`
	Location   string      `json:"location,omitempty"`
}

// Gate wraps HTTP handlers with idempotency-key dedup backed by store.
type Gate struct {
	store ephemeral.Store
}

func New(store ephemeral.Store) *Gate {
	return &Gate{store: store}
}

func cacheKey(method, url, headerKey string) string {
	sum := sha256.Sum256([]byte(headerKey))
	return fmt.Sprintf("idemp:%s:%s:%s", method, url, hex.EncodeToString(sum[:]))
}

// Middleware applies the idempotency protocol to POST and DELETE
// requests carrying a non-empty Idempotency-Key header; all other
// requests pass through untouched.
func (g *Gate) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost && r.Method != http.MethodDelete {
			next.ServeHTTP(w, r)
			return
		}
		key := r.Header.Get(KeyHeader)
		if key == "" {
			next.ServeHTTP(w, r)
			return
		}

		ctx := r.Context()
		ck := cacheKey(r.Method, r.URL.String(), key)
		lk := ck + ":lock"

		if g.tryReplay(ctx, w, ck) {
			return
		}

		traceID := middleware.GetReqID(ctx)

		acquired, err := g.store.SetNX(ctx, lk, "1", lockTTL)
		if err != nil {
			problem.WriteError(w, traceID, apperr.Internal("acquiring idempotency lock", err))
			return
		}
		if !acquired {
			if g.pollForReplay(ctx, w, ck) {
				return
			}
			problem.WriteError(w, traceID, apperr.New(apperr.CodeIdempotencyInFlight, "request already in progress"))
			return
		}

		rec := &recorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)

		if rec.status >= 200 && rec.status < 300 {
			cached := cachedResponse{
				StatusCode: rec.status,
				Body:       rec.body.String(),
				Location:   rec.Header().Get("Location"),
			}
			if payload, err := json.Marshal(cached); err == nil {
				_ = g.store.Set(ctx, ck, string(payload), cacheTTL)
			}
		}
		_ = g.store.Delete(ctx, lk)
	})
}

func (g *Gate) tryReplay(ctx context.Context, w http.ResponseWriter, ck string) bool {
	raw, found, err := g.store.Get(ctx, ck)
	if err != nil || !found {
		return false
	}
	writeCached(w, raw)
	return true
}

func (g *Gate) pollForReplay(ctx context.Context, w http.ResponseWriter, ck string) bool {
	deadline := time.Now().Add(pollFor)
	ticker := time.NewTicker(pollEvery)
	defer ticker.Stop()
	for time.Now().Before(deadline) {
		<-ticker.C
		raw, found, err := g.store.Get(ctx, ck)
		if err == nil && found {
			writeCached(w, raw)
			return true
		}
	}
	return false
}

func writeCached(w http.ResponseWriter, raw string) {
	var cached cachedResponse
	if err := json.Unmarshal([]byte(raw), &cached); err != nil {
		return
	}
	w.Header().Set(ReplayedHeader, "true")
	if cached.Location != "" {
		w.Header().Set("Location", cached.Location)
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(cached.StatusCode)
	_, _ = w.Write([]byte(cached.Body))
}

// recorder captures a handler's response so it can both be sent to the
// client and cached under the idempotency key.
type recorder struct {
	http.ResponseWriter
	status int
	body   bytes.Buffer
}

func (r *recorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

func (r *recorder) Write(b []byte) (int, error) {
	r.body.Write(b)
	return r.ResponseWriter.Write(b)
}
