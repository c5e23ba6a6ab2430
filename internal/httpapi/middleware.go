// Package httpapi assembles the chi router and HTTP handlers for the
// authentication ladder and transfer engine. Grounded on the
// router/middleware chain in cmd/api/main.go, adapted to use the zap
// logger (internal/logging) in place of chi's stdlib-backed
// middleware.Logger and to route every error through problem.WriteError.
package httpapi

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/vaultline/wallet-core/internal/apperr"
	"github.com/vaultline/wallet-core/internal/problem"
	"github.com/vaultline/wallet-core/internal/tokensigner"
)

type contextKey int

const userIDContextKey contextKey = iota

// ZapLogger replaces chi's middleware.Logger with a structured
// request-completion log line.
func ZapLogger(logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r)
			logger.Info("http request",
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", ww.Status()),
				zap.Duration("duration", time.Since(start)),
				zap.String("requestId", middleware.GetReqID(r.Context())),
			)
		})
	}
}

// RequireAccessToken verifies the bearer access token and stores the
// subject user id in the request context.
func RequireAccessToken(signer *tokensigner.Signer) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := tokensigner.ExtractBearer(r.Header.Get("Authorization"))
			if token == "" {
				problem.WriteError(w, middleware.GetReqID(r.Context()), apperr.New(apperr.CodeUnauthorized, "missing bearer token"))
				return
			}
			claims, err := signer.Verify(token, tokensigner.TypeAccess)
			if err != nil {
				problem.WriteError(w, middleware.GetReqID(r.Context()), err)
				return
			}
			ctx := context.WithValue(r.Context(), userIDContextKey, claims.Subject)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// UserIDFromContext returns the authenticated subject set by
// RequireAccessToken.
func UserIDFromContext(ctx context.Context) string {
	v, _ := ctx.Value(userIDContextKey).(string)
	return v
}
