package httpapi

import (
	"time"

	"go.uber.org/zap"

	"github.com/vaultline/wallet-core/internal/biometric"
	"github.com/vaultline/wallet-core/internal/devices"
	"github.com/vaultline/wallet-core/internal/enrollment"
	"github.com/vaultline/wallet-core/internal/idempotency"
	"github.com/vaultline/wallet-core/internal/models"
	"github.com/vaultline/wallet-core/internal/passwordauth"
	"github.com/vaultline/wallet-core/internal/tokensigner"
	"github.com/vaultline/wallet-core/internal/transfer"
	"github.com/vaultline/wallet-core/internal/wallet"
)

// API bundles every component the router dispatches to.
type API struct {
	logger       *zap.Logger
	signer       *tokensigner.Signer
	idempotency  *idempotency.Gate
	passwordAuth *passwordauth.Service
	biometric    *biometric.Service
	enrollment   *enrollment.Service
	devices      *devices.Service
	wallet       *wallet.Service
	transfer     *transfer.Service
}

// New builds the API with its service dependencies already wired.
func New(
	logger *zap.Logger,
	signer *tokensigner.Signer,
	idempotencyGate *idempotency.Gate,
	passwordAuth *passwordauth.Service,
	biometricSvc *biometric.Service,
	enrollmentSvc *enrollment.Service,
	devicesSvc *devices.Service,
	walletSvc *wallet.Service,
	transferSvc *transfer.Service,
) *API {
	return &API{
		logger:       logger,
		signer:       signer,
		idempotency:  idempotencyGate,
		passwordAuth: passwordAuth,
		biometric:    biometricSvc,
		enrollment:   enrollmentSvc,
		devices:      devicesSvc,
		wallet:       walletSvc,
		transfer:     transferSvc,
	}
}

func toUserResponse(u *models.User) userResponse {
	resp := userResponse{ID: u.ID, Email: u.Email, EmailVerified: u.EmailVerified}
	if u.FirstName != nil {
		resp.FirstName = *u.FirstName
	}
	if u.LastName != nil {
		resp.LastName = *u.LastName
	}
	return resp
}

func toTokenPairResponse(p *passwordauth.TokenPair) tokenPairResponse {
	return tokenPairResponse{
		AccessToken:  p.AccessToken,
		RefreshToken: p.RefreshToken,
		ExpiresAt:    p.ExpiresAt.UTC().Format(time.RFC3339),
	}
}
