// Package webauthnadapter wraps github.com/go-webauthn/webauthn behind
// the four operations C5 needs: generating registration/authentication
// options and verifying the client's response against a previously
// issued challenge. Grounded on the registration/authentication flow in
// the stellar-disbursement-platform webauthn service (other_examples)
// and the BeginWebAuthnLogin/FinishWebAuthnLogin pairing in the wardseal
// auth service (other_examples).
package webauthnadapter

import (
	"bytes"
	"io"

	"github.com/go-webauthn/webauthn/protocol"
	"github.com/go-webauthn/webauthn/webauthn"

	"github.com/vaultline/wallet-core/internal/apperr"
)

// SignCountMode controls how a sign-count regression is handled by the
// credential store; the adapter itself only reports the observed count.
type SignCountMode string

const (
	ModeStrict  SignCountMode = "STRICT"
	ModeLenient SignCountMode = "LENIENT"
)

// Config configures the relying party identity.
type Config struct {
	RPID           string
	RPName         string
	Origins        []string
	SignCountMode  SignCountMode
}

// Adapter is a thin, stateless wrapper over *webauthn.WebAuthn. It holds
// no challenge state itself — callers persist the returned SessionData
// in the ephemeral challenge cache and hand it back in to the verify
// calls.
type Adapter struct {
	webAuthn *webauthn.WebAuthn
	Mode     SignCountMode
}

func New(cfg Config) (*Adapter, error) {
	wa, err := webauthn.New(&webauthn.Config{
		RPDisplayName: cfg.RPName,
		RPID:          cfg.RPID,
		RPOrigins:     cfg.Origins,
	})
	if err != nil {
		return nil, apperr.Internal("configuring webauthn relying party", err)
	}
	mode := cfg.SignCountMode
	if mode == "" {
		mode = ModeStrict
	}
	return &Adapter{webAuthn: wa, Mode: mode}, nil
}

// CredentialRef is the minimal shape of an existing credential the
// adapter needs to build exclude/allow lists.
type CredentialRef struct {
	CredentialID []byte
	PublicKey    []byte
	SignCount    uint32
	Transports   []protocol.AuthenticatorTransport
}

func (c CredentialRef) toLibrary() webauthn.Credential {
	return webauthn.Credential{
		ID:        c.CredentialID,
		PublicKey: c.PublicKey,
		Authenticator: webauthn.Authenticator{
			SignCount: c.SignCount,
		},
		Transport: c.Transports,
	}
}

// wrappedUser adapts a wallet user plus its existing credentials to
// webauthn.User for both registration and authentication ceremonies.
type wrappedUser struct {
	id          []byte
	name        string
	displayName string
	credentials []webauthn.Credential
}

func (u *wrappedUser) WebAuthnID() []byte                     { return u.id }
func (u *wrappedUser) WebAuthnName() string                   { return u.name }
func (u *wrappedUser) WebAuthnDisplayName() string             { return u.displayName }
func (u *wrappedUser) WebAuthnCredentials() []webauthn.Credential { return u.credentials }

// RegistrationOptions returns the credential-creation options for user,
// excluding any credential already in existing.
func (a *Adapter) RegistrationOptions(userID []byte, email string, existing []CredentialRef) (*protocol.CredentialCreation, *webauthn.SessionData, error) {
	creds := make([]webauthn.Credential, len(existing))
	for i, c := range existing {
		creds[i] = c.toLibrary()
	}
	user := &wrappedUser{id: userID, name: email, displayName: email, credentials: creds}

	creation, session, err := a.webAuthn.BeginRegistration(user,
		webauthn.WithAuthenticatorSelection(protocol.AuthenticatorSelection{
			UserVerification: protocol.VerificationRequired,
		}),
		webauthn.WithConveyancePreference(protocol.PreferNoAttestation),
	)
	if err != nil {
		return nil, nil, apperr.Wrap(apperr.CodeValidationFailed, "building registration options", err)
	}
	return creation, session, nil
}

// VerifyRegistrationResult is what a successful registration yields.
type VerifyRegistrationResult struct {
	CredentialID []byte
	PublicKey    []byte
	SignCount    uint32
	AAGUID       []byte
}

// VerifyRegistration checks body (the raw JSON the client posted) against
// session, returning the parsed credential on success.
func (a *Adapter) VerifyRegistration(userID []byte, email string, session webauthn.SessionData, body []byte) (*VerifyRegistrationResult, error) {
	user := &wrappedUser{id: userID, name: email, displayName: email}

	parsed, err := protocol.ParseCredentialCreationResponseBody(bytes.NewReader(body))
	if err != nil {
		return nil, apperr.Wrap(apperr.CodeValidationFailed, "parsing registration response", err)
	}

	cred, err := a.webAuthn.CreateCredential(user, session, parsed)
	if err != nil {
		return nil, apperr.Wrap(apperr.CodeValidationFailed, "verifying registration response", err)
	}

	return &VerifyRegistrationResult{
		CredentialID: cred.ID,
		PublicKey:    cred.PublicKey,
		SignCount:    cred.Authenticator.SignCount,
		AAGUID:       cred.Authenticator.AAGUID,
	}, nil
}

// AuthenticationOptions returns assertion options scoped to allowList. An
// empty allowList is rejected by the library and returned as a
// VALIDATION_FAILED error; usernameless (discoverable) login is not offered.
func (a *Adapter) AuthenticationOptions(userID []byte, email string, allowList []CredentialRef) (*protocol.CredentialAssertion, *webauthn.SessionData, error) {
	creds := make([]webauthn.Credential, len(allowList))
	for i, c := range allowList {
		creds[i] = c.toLibrary()
	}
	user := &wrappedUser{id: userID, name: email, displayName: email, credentials: creds}

	opts := []webauthn.LoginOption{
		webauthn.WithUserVerification(protocol.VerificationRequired),
	}

	assertion, session, err := a.webAuthn.BeginLogin(user, opts...)
	if err != nil {
		return nil, nil, apperr.Wrap(apperr.CodeValidationFailed, "building authentication options", err)
	}
	return assertion, session, nil
}

// VerifyAuthenticationResult is what a successful assertion yields.
type VerifyAuthenticationResult struct {
	CredentialID string
	NewSignCount uint32
}

// VerifyAuthentication checks body against session and the single stored
// credential the caller resolved by credential id.
func (a *Adapter) VerifyAuthentication(userID []byte, email string, stored CredentialRef, session webauthn.SessionData, body io.Reader) (*VerifyAuthenticationResult, error) {
	user := &wrappedUser{id: userID, name: email, displayName: email, credentials: []webauthn.Credential{stored.toLibrary()}}

	parsed, err := protocol.ParseCredentialRequestResponseBody(body)
	if err != nil {
		return nil, apperr.Wrap(apperr.CodeValidationFailed, "parsing authentication response", err)
	}

	cred, err := a.webAuthn.ValidateLogin(user, session, parsed)
	if err != nil {
		return nil, apperr.Wrap(apperr.CodeValidationFailed, "verifying authentication response", err)
	}

	return &VerifyAuthenticationResult{
		CredentialID: string(cred.ID),
		NewSignCount: cred.Authenticator.SignCount,
	}, nil
}
