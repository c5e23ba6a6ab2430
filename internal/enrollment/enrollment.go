// Package enrollment implements C9: binding a new WebAuthn credential
// and device to an authenticated, verified user. Grounded on the
// FinishPasskeyRegistration flow in the stellar-disbursement-platform
// webauthn service (other_examples), adapted to upsert a credential that
// may be re-enrolling after a revoke rather than always inserting fresh.
package enrollment

import (
	"context"
	"io"
	"time"

	"github.com/go-webauthn/webauthn/protocol"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/vaultline/wallet-core/internal/apperr"
	"github.com/vaultline/wallet-core/internal/challenge"
	"github.com/vaultline/wallet-core/internal/models"
	"github.com/vaultline/wallet-core/internal/ratelimit"
	"github.com/vaultline/wallet-core/internal/webauthnadapter"
)

const (
	enrollRateLimit = 10
	rateWindow      = time.Minute
)

// Repository is the persistence dependency this component needs.
type Repository interface {
	GetUserByID(ctx context.Context, id string) (*models.User, error)
	ListCredentialsForUser(ctx context.Context, userID string) ([]models.Credential, error)
	GetCredentialByID(ctx context.Context, credentialID string) (*models.Credential, error)
	WithTx(ctx context.Context, fn func(tx *sqlx.Tx) error) error
	UpsertCredential(ctx context.Context, tx *sqlx.Tx, c *models.Credential) error
	CreateDevice(ctx context.Context, tx *sqlx.Tx, d *models.Device) error
}

// Service implements authenticated credential enrollment.
type Service struct {
	repo      Repository
	adapter   *webauthnadapter.Adapter
	challenge *challenge.Store
	limiter   *ratelimit.Limiter
}

func New(repo Repository, adapter *webauthnadapter.Adapter, challengeStore *challenge.Store, limiter *ratelimit.Limiter) *Service {
	return &Service{repo: repo, adapter: adapter, challenge: challengeStore, limiter: limiter}
}

// Options generates registration options for userID, rejecting
// unverified users and rate-limiting per (userID, ip).
func (s *Service) Options(ctx context.Context, userID, ip string, deviceName *string) (*protocol.CredentialCreation, string, error) {
	user, err := s.repo.GetUserByID(ctx, userID)
	if err != nil {
		return nil, "", err
	}
	if user == nil {
		return nil, "", apperr.New(apperr.CodeUnauthorized, "unknown user")
	}
	if !user.EmailVerified {
		return nil, "", apperr.New(apperr.CodeEmailNotVerified, "email not verified")
	}

	if err := s.limiter.Consume(ctx, "enroll:"+userID+":"+ip, enrollRateLimit, rateWindow); err != nil {
		return nil, "", err
	}

	existing, err := s.repo.ListCredentialsForUser(ctx, userID)
	if err != nil {
		return nil, "", err
	}
	refs := make([]webauthnadapter.CredentialRef, 0, len(existing))
	for _, c := range existing {
		if c.Revoked {
			continue
		}
		refs = append(refs, webauthnadapter.CredentialRef{CredentialID: []byte(c.CredentialID), PublicKey: c.PublicKey, SignCount: c.SignCount})
	}

	creation, session, err := s.adapter.RegistrationOptions([]byte(userID), user.Email, refs)
	if err != nil {
		return nil, "", err
	}

	challengeID, err := s.challenge.Create(ctx, challenge.State{
		Context:    challenge.ContextEnroll,
		UserID:     userID,
		Email:      user.Email,
		DeviceName: deviceName,
		Session:    *session,
	})
	if err != nil {
		return nil, "", err
	}
	return creation, challengeID, nil
}

// Verify completes enrollment: validates the registration response
// against the persisted challenge, then atomically upserts the
// credential and creates a new active device for it. The requesting
// identity comes solely from the challenge's stored UserID, set during
// the authenticated challenge step, since this endpoint itself takes no
// bearer token.
func (s *Service) Verify(ctx context.Context, challengeID string, body io.Reader) (*models.Device, error) {
	state, err := s.challenge.Consume(ctx, challengeID)
	if err != nil {
		return nil, err
	}
	if state == nil {
		return nil, apperr.New(apperr.CodeNotFound, "challenge not found or expired")
	}
	userID := state.UserID

	bodyBytes, err := io.ReadAll(body)
	if err != nil {
		return nil, apperr.New(apperr.CodeValidationFailed, "reading registration body")
	}

	result, err := s.adapter.VerifyRegistration([]byte(userID), state.Email, state.Session, bodyBytes)
	if err != nil {
		return nil, err
	}

	existing, err := s.repo.GetCredentialByID(ctx, string(result.CredentialID))
	if err != nil {
		return nil, err
	}
	if existing != nil && existing.UserID != userID {
		return nil, apperr.New(apperr.CodeConflict, "credential already registered to another account")
	}

	var aaguid *string
	if len(result.AAGUID) > 0 {
		s := string(result.AAGUID)
		aaguid = &s
	}

	device := &models.Device{
		ID:           uuid.NewString(),
		UserID:       userID,
		CredentialID: string(result.CredentialID),
		Label:        state.DeviceName,
		Active:       true,
		CreatedAt:    time.Now(),
	}

	err = s.repo.WithTx(ctx, func(tx *sqlx.Tx) error {
		credential := &models.Credential{
			CredentialID: string(result.CredentialID),
			UserID:       userID,
			PublicKey:    result.PublicKey,
			SignCount:    result.SignCount,
			AAGUID:       aaguid,
			DeviceName:   state.DeviceName,
			CreatedAt:    time.Now(),
		}
		if err := s.repo.UpsertCredential(ctx, tx, credential); err != nil {
			return err
		}
		return s.repo.CreateDevice(ctx, tx, device)
	})
	if err != nil {
		return nil, err
	}

	return device, nil
}
