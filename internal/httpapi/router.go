package httpapi

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/vaultline/wallet-core/internal/idempotency"
)

// NewRouter assembles the chi router: the same
// RequestID/Recoverer/CORS chain as cmd/api/main.go, the zap request
// logger in place of middleware.Logger, a health check outside the
// envelope convention, and every versioned route grouped by whether it
// requires a bearer access token.
func (a *API) NewRouter(allowedOrigins []string) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(ZapLogger(a.logger))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   allowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type", "Authorization", "Idempotency-Key", "X-Step-Up-Token"},
		ExposedHeaders:   []string{"Location", idempotency.ReplayedHeader},
		AllowCredentials: true,
		MaxAge:           300,
	}))
	r.Use(a.idempotency.Middleware)

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Route("/auth/password", func(r chi.Router) {
			r.Post("/register", a.handleRegister)
			r.Post("/login", a.handleLogin)
			r.Post("/refresh", a.handleRefresh)
			r.Post("/logout", a.handleLogout)
			r.Post("/verify/request", a.handleRequestVerification)
			r.Post("/verify/confirm", a.handleConfirmVerification)
			r.Post("/reset/request", a.handleRequestPasswordReset)
			r.Post("/reset/confirm", a.handleConfirmPasswordReset)
		})

		r.Post("/auth/challenge", a.handleLoginChallenge)
		r.Post("/auth/verify", a.handleLoginVerify)
		r.Post("/enroll/verify", a.handleEnrollVerify)

		r.Group(func(r chi.Router) {
			r.Use(RequireAccessToken(a.signer))

			r.Post("/auth/step-up/challenge", a.handleStepUpChallenge)
			r.Post("/auth/step-up/verify", a.handleStepUpVerify)

			r.Post("/enroll/challenge", a.handleEnrollChallenge)

			r.Get("/devices", a.handleListDevices)
			r.Delete("/devices/{id}", a.handleRemoveDevice)

			r.Get("/wallets/me", a.handleWalletView)
			r.Get("/wallets/me/transactions", a.handleWalletHistory)

			r.Post("/transactions/transfer", a.handleTransfer)
			r.Get("/transactions/{id}", a.handleGetTransaction)
			r.Post("/transactions/recipients/resolve", a.handleResolveRecipient)
		})
	})

	return r
}
