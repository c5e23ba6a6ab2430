// Package biometric implements C8: WebAuthn-based login (an alternative
// rung to password login) and step-up assertion (re-proving presence
// before a sensitive operation). Grounded on the
// BeginWebAuthnLogin/FinishWebAuthnLogin pairing and sign-count
// reconciliation in the wardseal auth service (other_examples).
package biometric

import (
	"bytes"
	"context"
	"io"
	"time"

	"github.com/go-webauthn/webauthn/protocol"

	"github.com/vaultline/wallet-core/internal/apperr"
	"github.com/vaultline/wallet-core/internal/challenge"
	"github.com/vaultline/wallet-core/internal/models"
	"github.com/vaultline/wallet-core/internal/ratelimit"
	"github.com/vaultline/wallet-core/internal/signcount"
	"github.com/vaultline/wallet-core/internal/tokensigner"
	"github.com/vaultline/wallet-core/internal/webauthnadapter"
)

const (
	loginChallengeRateLimit = 10
	stepUpChallengeRateLimit = 20
	rateWindow              = time.Minute
)

// Repository is the persistence dependency this component needs.
type Repository interface {
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)
	GetUserByID(ctx context.Context, id string) (*models.User, error)
	ListActiveCredentialsForUser(ctx context.Context, userID string) ([]models.Credential, error)
	GetCredentialByID(ctx context.Context, credentialID string) (*models.Credential, error)
	HasActiveDevice(ctx context.Context, credentialID string) (bool, error)
	UpdateCredentialSignCountSimple(ctx context.Context, credentialID string, signCount int64) error
	RevokeCredentialAndDeactivateDevices(ctx context.Context, credentialID string, at time.Time, reason string) error
}

// Service implements biometric login and step-up.
type Service struct {
	repo      Repository
	adapter   *webauthnadapter.Adapter
	mode      signcount.Mode
	challenge *challenge.Store
	limiter   *ratelimit.Limiter
	signer    *tokensigner.Signer
}

func New(repo Repository, adapter *webauthnadapter.Adapter, mode signcount.Mode, challengeStore *challenge.Store, limiter *ratelimit.Limiter, signer *tokensigner.Signer) *Service {
	return &Service{repo: repo, adapter: adapter, mode: mode, challenge: challengeStore, limiter: limiter, signer: signer}
}

func credRefs(creds []models.Credential) []webauthnadapter.CredentialRef {
	refs := make([]webauthnadapter.CredentialRef, len(creds))
	for i, c := range creds {
		refs[i] = webauthnadapter.CredentialRef{CredentialID: []byte(c.CredentialID), PublicKey: c.PublicKey, SignCount: c.SignCount}
	}
	return refs
}

// LoginChallenge resolves a user by exactly one of email/userID, checks
// they have usable credentials, and returns assertion options plus the
// challenge id the client must echo back to Verify.
func (s *Service) LoginChallenge(ctx context.Context, email, userID, ip string) (*protocol.CredentialAssertion, string, error) {
	if (email == "") == (userID == "") {
		return nil, "", apperr.New(apperr.CodeValidationFailed, "exactly one of email or userId is required")
	}

	user, err := s.resolveUser(ctx, email, userID)
	if err != nil {
		return nil, "", err
	}
	if user == nil {
		return nil, "", apperr.New(apperr.CodeValidationFailed, "no such user")
	}
	if !user.EmailVerified {
		return nil, "", apperr.New(apperr.CodeEmailNotVerified, "email not verified")
	}

	if err := s.limiter.Consume(ctx, "login-challenge:"+user.ID+":"+identifierOf(email, userID)+":"+ip, loginChallengeRateLimit, rateWindow); err != nil {
		return nil, "", err
	}

	creds, err := s.repo.ListActiveCredentialsForUser(ctx, user.ID)
	if err != nil {
		return nil, "", err
	}
	if len(creds) == 0 {
		return nil, "", apperr.New(apperr.CodeNoCredentials, "no usable credentials")
	}

	assertion, session, err := s.adapter.AuthenticationOptions([]byte(user.ID), user.Email, credRefs(creds))
	if err != nil {
		return nil, "", err
	}

	challengeID, err := s.challenge.Create(ctx, challenge.State{
		Context: challenge.ContextLogin,
		UserID:  user.ID,
		Email:   user.Email,
		Session: *session,
	})
	if err != nil {
		return nil, "", err
	}

	return assertion, challengeID, nil
}

// LoginVerify completes a login assertion and issues tokens on success.
func (s *Service) LoginVerify(ctx context.Context, challengeID string, body io.Reader) (*models.User, string, string, time.Time, error) {
	state, err := s.challenge.Consume(ctx, challengeID)
	if err != nil {
		return nil, "", "", time.Time{}, err
	}
	if state == nil {
		return nil, "", "", time.Time{}, apperr.New(apperr.CodeNotFound, "challenge not found or expired")
	}

	user, err := s.repo.GetUserByID(ctx, state.UserID)
	if err != nil {
		return nil, "", "", time.Time{}, err
	}
	if user == nil || !user.EmailVerified {
		return nil, "", "", time.Time{}, apperr.New(apperr.CodeEmailNotVerified, "email not verified")
	}

	bodyBytes, readErr := io.ReadAll(body)
	if readErr != nil {
		return nil, "", "", time.Time{}, apperr.New(apperr.CodeValidationFailed, "reading assertion body")
	}

	// The client echoes the credential id chosen by the authenticator; we
	// parse it once here to look up the stored credential, and again
	// inside the adapter to actually verify the signature.
	parsed, err := protocol.ParseCredentialRequestResponseBody(newReader(bodyBytes))
	if err != nil {
		return nil, "", "", time.Time{}, apperr.Wrap(apperr.CodeValidationFailed, "parsing assertion", err)
	}

	stored, err := s.repo.GetCredentialByID(ctx, string(parsed.RawID))
	if err != nil {
		return nil, "", "", time.Time{}, err
	}
	if stored == nil || stored.Revoked || stored.UserID != user.ID {
		return nil, "", "", time.Time{}, apperr.New(apperr.CodeUnauthorized, "unknown credential")
	}
	hasActive, err := s.repo.HasActiveDevice(ctx, stored.CredentialID)
	if err != nil {
		return nil, "", "", time.Time{}, err
	}
	if !hasActive {
		return nil, "", "", time.Time{}, apperr.New(apperr.CodeUnauthorized, "credential has no active device")
	}

	result, err := s.adapter.VerifyAuthentication([]byte(user.ID), user.Email,
		webauthnadapter.CredentialRef{CredentialID: []byte(stored.CredentialID), PublicKey: stored.PublicKey, SignCount: stored.SignCount},
		state.Session, newReader(bodyBytes))
	if err != nil {
		return nil, "", "", time.Time{}, err
	}

	if err := s.reconcileSignCount(ctx, stored, result.NewSignCount); err != nil {
		return nil, "", "", time.Time{}, err
	}

	access, _, err := s.signer.IssueAccess(user.ID)
	if err != nil {
		return nil, "", "", time.Time{}, err
	}
	refresh, exp, err := s.signer.IssueRefresh(user.ID, challengeID)
	if err != nil {
		return nil, "", "", time.Time{}, err
	}

	return user, access, refresh, exp, nil
}

// StepUpChallenge mirrors LoginChallenge for an already-authenticated
// user proving freshness before a sensitive purpose.
func (s *Service) StepUpChallenge(ctx context.Context, userID, purpose, ip string) (*protocol.CredentialAssertion, string, error) {
	user, err := s.repo.GetUserByID(ctx, userID)
	if err != nil {
		return nil, "", err
	}
	if user == nil {
		return nil, "", apperr.New(apperr.CodeUnauthorized, "unknown user")
	}

	if err := s.limiter.Consume(ctx, "step-up-challenge:"+userID+":"+purpose+":"+ip, stepUpChallengeRateLimit, rateWindow); err != nil {
		return nil, "", err
	}

	creds, err := s.repo.ListActiveCredentialsForUser(ctx, userID)
	if err != nil {
		return nil, "", err
	}
	if len(creds) == 0 {
		return nil, "", apperr.New(apperr.CodeNoCredentials, "no usable credentials")
	}

	assertion, session, err := s.adapter.AuthenticationOptions([]byte(userID), user.Email, credRefs(creds))
	if err != nil {
		return nil, "", err
	}

	challengeID, err := s.challenge.Create(ctx, challenge.State{
		Context: challenge.ContextStepUp,
		UserID:  userID,
		Email:   user.Email,
		Purpose: purpose,
		Session: *session,
	})
	if err != nil {
		return nil, "", err
	}
	return assertion, challengeID, nil
}

// StepUpVerify completes a step-up assertion for requestingUserID and
// mints a step-up token scoped to the challenge's purpose.
func (s *Service) StepUpVerify(ctx context.Context, requestingUserID, challengeID string, body io.Reader) (string, time.Time, error) {
	state, err := s.challenge.Consume(ctx, challengeID)
	if err != nil {
		return "", time.Time{}, err
	}
	if state == nil {
		return "", time.Time{}, apperr.New(apperr.CodeNotFound, "challenge not found or expired")
	}
	if state.UserID != requestingUserID {
		return "", time.Time{}, apperr.New(apperr.CodeForbidden, "challenge does not belong to requester")
	}

	bodyBytes, err := io.ReadAll(body)
	if err != nil {
		return "", time.Time{}, apperr.New(apperr.CodeValidationFailed, "reading assertion body")
	}
	parsed, err := protocol.ParseCredentialRequestResponseBody(newReader(bodyBytes))
	if err != nil {
		return "", time.Time{}, apperr.Wrap(apperr.CodeValidationFailed, "parsing assertion", err)
	}

	stored, err := s.repo.GetCredentialByID(ctx, string(parsed.RawID))
	if err != nil {
		return "", time.Time{}, err
	}
	if stored == nil || stored.Revoked || stored.UserID != requestingUserID {
		return "", time.Time{}, apperr.New(apperr.CodeUnauthorized, "unknown credential")
	}

	result, err := s.adapter.VerifyAuthentication([]byte(requestingUserID), state.Email,
		webauthnadapter.CredentialRef{CredentialID: []byte(stored.CredentialID), PublicKey: stored.PublicKey, SignCount: stored.SignCount},
		state.Session, newReader(bodyBytes))
	if err != nil {
		return "", time.Time{}, err
	}
	if err := s.reconcileSignCount(ctx, stored, result.NewSignCount); err != nil {
		return "", time.Time{}, err
	}

	return s.signer.IssueStepUp(requestingUserID, state.Purpose, challengeID)
}

func (s *Service) reconcileSignCount(ctx context.Context, stored *models.Credential, reported uint32) error {
	outcome := signcount.Evaluate(s.mode, stored.SignCount, reported)
	if outcome.Revoke {
		if err := s.repo.RevokeCredentialAndDeactivateDevices(ctx, stored.CredentialID, time.Now(), "sign_count_regression"); err != nil {
			return err
		}
		return apperr.New(apperr.CodeCredentialCompromise, "sign count regression detected")
	}
	if outcome.UpdateTo >= 0 {
		return s.repo.UpdateCredentialSignCountSimple(ctx, stored.CredentialID, outcome.UpdateTo)
	}
	return nil
}

func (s *Service) resolveUser(ctx context.Context, email, userID string) (*models.User, error) {
	if email != "" {
		return s.repo.GetUserByEmail(ctx, email)
	}
	return s.repo.GetUserByID(ctx, userID)
}

func identifierOf(email, userID string) string {
	if email != "" {
		return email
	}
	return userID
}

func newReader(b []byte) io.Reader {
	return bytes.NewReader(b)
}
