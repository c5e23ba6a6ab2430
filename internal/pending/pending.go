// Package pending implements C2: one-shot email-verification and
// password-reset tokens, stored as an id+secret composite with only the
// Argon2id hash of the secret persisted. Grounded on the id+secret split
// and refresh-token hashing idiom in the arkeep local-auth provider
// (other_examples), adapted from SHA-256 to Argon2id to match the
// authenticator-secret hashing already used for passwords.
package pending

import (
	"context"
	"crypto/rand"
	"crypto/subtle"
	"encoding/hex"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/argon2"

	"github.com/vaultline/wallet-core/internal/apperr"
	"github.com/vaultline/wallet-core/internal/models"
)

const (
	secretBytes = 32

	argonTime    = 1
	argonMemory  = 64 * 1024
	argonThreads = 4
	argonKeyLen  = 32
)

// Repository is the persistence dependency this component needs.
type Repository interface {
	CreatePendingToken(ctx context.Context, t *models.PendingToken) error
	GetPendingToken(ctx context.Context, id string) (*models.PendingToken, error)
	ConsumePendingToken(ctx context.Context, id string, consumedAt time.Time) error
}

// Store issues and consumes pending tokens.
type Store struct {
	repo Repository
}

func New(repo Repository) *Store {
	return &Store{repo: repo}
}

func hashSecret(secret []byte) string {
	sum := argon2.IDKey(secret, []byte("pending-token"), argonTime, argonMemory, argonThreads, argonKeyLen)
	return hex.EncodeToString(sum)
}

// Create mints a new composite token of the form "<id>.<secret_hex>" for
// userID, persisting only the id and the hash of the secret.
func (s *Store) Create(ctx context.Context, userID string, kind models.PendingTokenKind, ttl time.Duration) (string, error) {
	secret := make([]byte, secretBytes)
	if _, err := rand.Read(secret); err != nil {
		return "", apperr.Internal("generating pending token secret", err)
	}

	id := uuid.NewString()
	record := &models.PendingToken{
		ID:        id,
		UserID:    userID,
		Kind:      kind,
		TokenHash: hashSecret(secret),
		ExpiresAt: time.Now().Add(ttl),
	}
	if err := s.repo.CreatePendingToken(ctx, record); err != nil {
		return "", apperr.Internal("persisting pending token", err)
	}

	return id + "." + hex.EncodeToString(secret), nil
}

// Consume validates composite against the stored record for its id,
// marking it consumed on success. Returns ("", false, nil) for any
// invalid, expired, already-consumed, or mismatched token — consumption
// failures are not surfaced as distinguishable errors.
func (s *Store) Consume(ctx context.Context, composite string) (userID string, ok bool, err error) {
	id, secretHex, found := strings.Cut(composite, ".")
	if !found || id == "" || secretHex == "" {
		return "", false, nil
	}
	secret, decodeErr := hex.DecodeString(secretHex)
	if decodeErr != nil {
		return "", false, nil
	}

	record, err := s.repo.GetPendingToken(ctx, id)
	if err != nil {
		return "", false, apperr.Internal("loading pending token", err)
	}
	if record == nil || record.ConsumedAt != nil || time.Now().After(record.ExpiresAt) {
		return "", false, nil
	}

	candidate := hashSecret(secret)
	if subtle.ConstantTimeCompare([]byte(candidate), []byte(record.TokenHash)) != 1 {
		return "", false, nil
	}

	if err := s.repo.ConsumePendingToken(ctx, id, time.Now()); err != nil {
		return "", false, apperr.Internal("consuming pending token", err)
	}
	return record.UserID, true, nil
}
