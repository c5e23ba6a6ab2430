// Package passwordauth implements C7: registration, password login,
// refresh rotation, logout, and the email-verification/password-reset
// request-confirm pairs. Grounded on the arkeep LocalAuthProvider's
// Login/RefreshToken/Logout shape (other_examples), adapted to add
// email verification and reset flows the arkeep provider does not have.
package passwordauth

import (
	"context"
	"net/mail"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/vaultline/wallet-core/internal/apperr"
	"github.com/vaultline/wallet-core/internal/mailer"
	"github.com/vaultline/wallet-core/internal/models"
	"github.com/vaultline/wallet-core/internal/pending"
	"github.com/vaultline/wallet-core/internal/ratelimit"
	"github.com/vaultline/wallet-core/internal/tokensigner"
)

const (
	VerificationTTL = 24 * time.Hour
	PasswordResetTTL = 30 * time.Minute

	loginRateLimit    = 5
	loginRateWindow   = time.Minute
	refreshRateLimit  = 20
	refreshRateWindow = time.Minute
)

// Repository is the persistence dependency this component needs beyond
// the shared pending-token store.
type Repository interface {
	CreateUser(ctx context.Context, u *models.User) error
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)
	GetUserByID(ctx context.Context, id string) (*models.User, error)
	SetEmailVerified(ctx context.Context, userID string) error
	SetVerificationRequestedAt(ctx context.Context, userID string, at time.Time) error
	UpdatePasswordHash(ctx context.Context, userID, hash string) error

	CreateRefreshToken(ctx context.Context, rt *models.RefreshToken) error
	GetRefreshToken(ctx context.Context, id string) (*models.RefreshToken, error)
	RevokeRefreshToken(ctx context.Context, id string) error
	RevokeAllRefreshTokensForUser(ctx context.Context, userID string) error
}

// Service implements the password-based rungs of the authentication
// ladder.
type Service struct {
	repo    Repository
	pending *pending.Store
	signer  *tokensigner.Signer
	limiter *ratelimit.Limiter
	mail    mailer.Mailer
}

func New(repo Repository, pendingStore *pending.Store, signer *tokensigner.Signer, limiter *ratelimit.Limiter, mail mailer.Mailer) *Service {
	return &Service{repo: repo, pending: pendingStore, signer: signer, limiter: limiter, mail: mail}
}

// NormalizeEmail trims and lowercases, the normalization applied at
// every boundary that accepts an email address.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// TokenPair is what every successful issuance/refresh returns.
type TokenPair struct {
	AccessToken  string
	RefreshToken string
	ExpiresAt    time.Time
}

func (s *Service) issuePair(ctx context.Context, userID string) (*TokenPair, error) {
	access, _, err := s.signer.IssueAccess(userID)
	if err != nil {
		return nil, err
	}
	jti := uuid.NewString()
	refresh, exp, err := s.signer.IssueRefresh(userID, jti)
	if err != nil {
		return nil, err
	}
	if err := s.repo.CreateRefreshToken(ctx, &models.RefreshToken{
		ID:        jti,
		UserID:    userID,
		TokenHash: hashRefreshToken(refresh),
		ExpiresAt: exp,
	}); err != nil {
		return nil, err
	}
	return &TokenPair{AccessToken: access, RefreshToken: refresh, ExpiresAt: exp}, nil
}

// Register creates a new unverified account, issues a token pair, and
// sends a verification email. Fails with CodeConflict if email is
// already registered.
func (s *Service) Register(ctx context.Context, email, password, firstName, lastName string) (*models.User, *TokenPair, error) {
	email = NormalizeEmail(email)
	if _, err := mail.ParseAddress(email); err != nil {
		return nil, nil, apperr.New(apperr.CodeValidationFailed, "invalid email address")
	}

	existing, err := s.repo.GetUserByEmail(ctx, email)
	if err != nil {
		return nil, nil, err
	}
	if existing != nil {
		return nil, nil, apperr.New(apperr.CodeConflict, "email already registered")
	}

	hash, err := hashPassword(password)
	if err != nil {
		return nil, nil, apperr.Internal("hashing password", err)
	}

	now := time.Now()
	user := &models.User{
		ID:                      uuid.NewString(),
		Email:                   email,
		PasswordHash:            &hash,
		EmailVerified:           false,
		VerificationRequestedAt: &now,
		CreatedAt:               now,
	}
	if firstName != "" {
		user.FirstName = &firstName
	}
	if lastName != "" {
		user.LastName = &lastName
	}
	if err := s.repo.CreateUser(ctx, user); err != nil {
		return nil, nil, err
	}

	pair, err := s.issuePair(ctx, user.ID)
	if err != nil {
		return nil, nil, err
	}

	token, err := s.pending.Create(ctx, user.ID, models.PendingTokenEmailVerification, VerificationTTL)
	if err != nil {
		return nil, nil, err
	}
	_ = s.mail.SendVerification(ctx, email, token)

	return user, pair, nil
}

// Login validates credentials, rate-limits by (login, email, ip), and
// issues a fresh token pair.
func (s *Service) Login(ctx context.Context, email, password, ip string) (*models.User, *TokenPair, error) {
	email = NormalizeEmail(email)

	if err := s.limiter.Consume(ctx, "login:"+email+":"+ip, loginRateLimit, loginRateWindow); err != nil {
		return nil, nil, err
	}

	user, err := s.repo.GetUserByEmail(ctx, email)
	if err != nil {
		return nil, nil, err
	}
	if user == nil || user.PasswordHash == nil || !verifyPassword(password, *user.PasswordHash) {
		return nil, nil, apperr.New(apperr.CodeUnauthorized, "invalid email or password")
	}
	if !user.EmailVerified {
		return nil, nil, apperr.New(apperr.CodeEmailNotVerified, "email not verified")
	}

	pair, err := s.issuePair(ctx, user.ID)
	if err != nil {
		return nil, nil, err
	}
	return user, pair, nil
}

// Refresh validates a presented refresh token, revokes it, and issues a
// fresh pair, rate-limited by (refresh, token, ip).
func (s *Service) Refresh(ctx context.Context, rawToken, ip string) (*TokenPair, error) {
	claims, err := s.signer.Verify(rawToken, tokensigner.TypeRefresh)
	if err != nil {
		return nil, err
	}

	if err := s.limiter.Consume(ctx, "refresh:"+claims.JTI+":"+ip, refreshRateLimit, refreshRateWindow); err != nil {
		return nil, err
	}

	record, err := s.repo.GetRefreshToken(ctx, claims.JTI)
	if err != nil {
		return nil, err
	}
	if record == nil || record.Revoked || time.Now().After(record.ExpiresAt) {
		return nil, apperr.New(apperr.CodeUnauthorized, "invalid refresh token")
	}
	if hashRefreshToken(rawToken) != record.TokenHash {
		return nil, apperr.New(apperr.CodeUnauthorized, "invalid refresh token")
	}

	user, err := s.repo.GetUserByID(ctx, record.UserID)
	if err != nil {
		return nil, err
	}
	if user == nil || !user.EmailVerified {
		return nil, apperr.New(apperr.CodeEmailNotVerified, "email not verified")
	}

	if err := s.repo.RevokeRefreshToken(ctx, record.ID); err != nil {
		return nil, err
	}
	return s.issuePair(ctx, user.ID)
}

// Logout best-effort revokes the refresh record referenced by a
// presented refresh token's jti. Always succeeds from the caller's
// point of view.
func (s *Service) Logout(ctx context.Context, rawToken string) {
	claims, err := s.signer.Verify(rawToken, tokensigner.TypeRefresh)
	if err != nil {
		return
	}
	_ = s.repo.RevokeRefreshToken(ctx, claims.JTI)
}

// RequestVerification silently succeeds whether or not email exists; on
// a hit it creates a new verification token and sends it.
func (s *Service) RequestVerification(ctx context.Context, email string) error {
	email = NormalizeEmail(email)
	user, err := s.repo.GetUserByEmail(ctx, email)
	if err != nil || user == nil {
		return nil
	}
	if err := s.repo.SetVerificationRequestedAt(ctx, user.ID, time.Now()); err != nil {
		return err
	}
	token, err := s.pending.Create(ctx, user.ID, models.PendingTokenEmailVerification, VerificationTTL)
	if err != nil {
		return err
	}
	_ = s.mail.SendVerification(ctx, email, token)
	return nil
}

// ConfirmVerification consumes token and marks the owning user's email
// verified.
func (s *Service) ConfirmVerification(ctx context.Context, token string) error {
	userID, ok, err := s.pending.Consume(ctx, token)
	if err != nil {
		return err
	}
	if !ok {
		return apperr.New(apperr.CodeValidationFailed, "invalid or expired verification token")
	}
	return s.repo.SetEmailVerified(ctx, userID)
}

// RequestPasswordReset silently succeeds whether or not email exists; on
// a hit it creates a reset token and sends it.
func (s *Service) RequestPasswordReset(ctx context.Context, email string) error {
	email = NormalizeEmail(email)
	user, err := s.repo.GetUserByEmail(ctx, email)
	if err != nil || user == nil {
		return nil
	}
	token, err := s.pending.Create(ctx, user.ID, models.PendingTokenPasswordReset, PasswordResetTTL)
	if err != nil {
		return err
	}
	_ = s.mail.SendPasswordReset(ctx, email, token)
	return nil
}

// ConfirmPasswordReset consumes token, re-hashes the password, and
// revokes every refresh record for the owning user.
func (s *Service) ConfirmPasswordReset(ctx context.Context, token, newPassword string) error {
	userID, ok, err := s.pending.Consume(ctx, token)
	if err != nil {
		return err
	}
	if !ok {
		return apperr.New(apperr.CodeValidationFailed, "invalid or expired reset token")
	}
	hash, err := hashPassword(newPassword)
	if err != nil {
		return apperr.Internal("hashing password", err)
	}
	if err := s.repo.UpdatePasswordHash(ctx, userID, hash); err != nil {
		return err
	}
	return s.repo.RevokeAllRefreshTokensForUser(ctx, userID)
}
