// Package tokensigner mints and verifies the three HMAC-signed bearer
// tokens the auth ladder issues: access, refresh, and step-up.
package tokensigner

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/vaultline/wallet-core/internal/apperr"
)

// TokenType distinguishes the three token kinds the signer issues.
type TokenType string

const (
	TypeAccess TokenType = "access"
	TypeRefresh TokenType = "refresh"
	TypeStepUp TokenType = "step_up"
)

const (
	DefaultAccessTTL  = 900 * time.Second
	DefaultRefreshTTL = 604800 * time.Second
	DefaultStepUpTTL  = 120 * time.Second
)

// Claims is the shared claim shape across all three token types. Fields
// not relevant to a given type are simply left zero.
type Claims struct {
	Subject     string `json:"sub"`
	Type        TokenType `json:"type"`
	JTI         string `json:"jti,omitempty"`
	Purpose     string `json:"purpose,omitempty"`
	ChallengeID string `json:"challengeId,omitempty"`
	jwt.RegisteredClaims
}

// Signer issues and verifies access/refresh/step-up tokens.
type Signer struct {
	accessSecret  []byte
	refreshSecret []byte
	accessTTL     time.Duration
	refreshTTL    time.Duration
	stepUpTTL     time.Duration
}

// Config configures a Signer. TTL fields left at zero fall back to the
// package defaults.
type Config struct {
	AccessSecret  string
	RefreshSecret string
	AccessTTL     time.Duration
	RefreshTTL    time.Duration
	StepUpTTL     time.Duration
}

func New(cfg Config) *Signer {
	s := &Signer{
		accessSecret:  []byte(cfg.AccessSecret),
		refreshSecret: []byte(cfg.RefreshSecret),
		accessTTL:     cfg.AccessTTL,
		refreshTTL:    cfg.RefreshTTL,
		stepUpTTL:     cfg.StepUpTTL,
	}
	if s.accessTTL == 0 {
		s.accessTTL = DefaultAccessTTL
	}
	if s.refreshTTL == 0 {
		s.refreshTTL = DefaultRefreshTTL
	}
	if s.stepUpTTL == 0 {
		s.stepUpTTL = DefaultStepUpTTL
	}
	return s
}

// ParseDuration accepts a bare integer (seconds) or a Go duration string
// like "15m", "24h".
func ParseDuration(s string) (time.Duration, error) {
	if s == "" {
		return 0, fmt.Errorf("empty duration")
	}
	if secs, err := strconv.Atoi(s); err == nil {
		return time.Duration(secs) * time.Second, nil
	}
	return time.ParseDuration(s)
}

func (s *Signer) sign(secret []byte, claims *Claims) (string, error) {
	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := tok.SignedString(secret)
	if err != nil {
		return "", apperr.Internal("signing token", err)
	}
	return signed, nil
}

// IssueAccess mints an access token for sub.
func (s *Signer) IssueAccess(sub string) (string, time.Time, error) {
	now := time.Now()
	exp := now.Add(s.accessTTL)
	claims := &Claims{
		Subject: sub,
		Type:    TypeAccess,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   sub,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(exp),
		},
	}
	tok, err := s.sign(s.accessSecret, claims)
	return tok, exp, err
}

// IssueRefresh mints a refresh token for sub with a caller-supplied jti
// (the caller persists a hash of the raw token keyed by this jti).
func (s *Signer) IssueRefresh(sub, jti string) (string, time.Time, error) {
	now := time.Now()
	exp := now.Add(s.refreshTTL)
	claims := &Claims{
		Subject: sub,
		Type:    TypeRefresh,
		JTI:     jti,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   sub,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(exp),
			ID:        jti,
		},
	}
	tok, err := s.sign(s.refreshSecret, claims)
	return tok, exp, err
}

// IssueStepUp mints a short-lived purpose-scoped step-up token binding
// the challenge that proved a fresh biometric assertion.
func (s *Signer) IssueStepUp(sub, purpose, challengeID string) (string, time.Time, error) {
	now := time.Now()
	exp := now.Add(s.stepUpTTL)
	claims := &Claims{
		Subject:     sub,
		Type:        TypeStepUp,
		Purpose:     purpose,
		ChallengeID: challengeID,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   sub,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(exp),
		},
	}
	tok, err := s.sign(s.accessSecret, claims)
	return tok, exp, err
}

// Verify parses tokenString, checks its signature against the secret for
// wantType, and enforces wantType matches the claim. Any failure surfaces
// as apperr.CodeUnauthorized.
func (s *Signer) Verify(tokenString string, wantType TokenType) (*Claims, error) {
	secret := s.accessSecret
	if wantType == TypeRefresh {
		secret = s.refreshSecret
	}

	claims := &Claims{}
	parsed, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return secret, nil
	})
	if err != nil || !parsed.Valid {
		return nil, apperr.New(apperr.CodeUnauthorized, "invalid token")
	}
	if claims.Type != wantType {
		return nil, apperr.New(apperr.CodeUnauthorized, "invalid token")
	}
	return claims, nil
}

// ExtractBearer trims a "Bearer <token>" (case-insensitive scheme) header
// value down to the raw token, or returns "" if malformed.
func ExtractBearer(header string) string {
	parts := strings.SplitN(strings.TrimSpace(header), " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}
