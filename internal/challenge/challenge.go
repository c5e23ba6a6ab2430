// Package challenge persists the WebAuthn ceremony state shared by
// biometric login, step-up, and enrollment between the options call and
// the verify call. All three contexts use the same get-then-delete
// cache so a challenge can be consumed at most once.
package challenge

import (
	"context"
	"encoding/json"
	"time"

	"github.com/go-webauthn/webauthn/webauthn"
	"github.com/google/uuid"

	"github.com/vaultline/wallet-core/internal/apperr"
	"github.com/vaultline/wallet-core/internal/ephemeral"
)

// Context distinguishes why a challenge was issued.
type Context string

const (
	ContextLogin   Context = "login"
	ContextStepUp  Context = "step_up"
	ContextEnroll  Context = "enroll"
)

const keyPrefix = "webauthn:auth:challenge:"

// State is the record stored under a challenge id.
type State struct {
	Context     Context             `json:"context"`
	UserID      string              `json:"userId"`
	Email       string              `json:"email"`
	Purpose     string              `json:"purpose,omitempty"`
	DeviceName  *string             `json:"deviceName,omitempty"`
	Session     webauthn.SessionData `json:"session"`
	CreatedAt   time.Time           `json:"createdAt"`
}

// Store persists and consumes challenge state.
type Store struct {
	ephemeral ephemeral.Store
	ttl       time.Duration
}

func New(store ephemeral.Store, ttl time.Duration) *Store {
	return &Store{ephemeral: store, ttl: ttl}
}

// Create mints a new challenge id, stores state under it, and returns
// the id.
func (s *Store) Create(ctx context.Context, state State) (string, error) {
	state.CreatedAt = time.Now()
	id := uuid.NewString()
	payload, err := json.Marshal(state)
	if err != nil {
		return "", apperr.Internal("encoding challenge state", err)
	}
	if err := s.ephemeral.Set(ctx, keyPrefix+id, string(payload), s.ttl); err != nil {
		return "", apperr.Internal("storing challenge state", err)
	}
	return id, nil
}

// Consume fetches and deletes the state for id, enforcing the TTL
// window server-side in addition to the cache's own expiry. Returns
// (nil, nil) if the challenge is missing or expired.
func (s *Store) Consume(ctx context.Context, id string) (*State, error) {
	raw, found, err := s.ephemeral.GetDelete(ctx, keyPrefix+id)
	if err != nil {
		return nil, apperr.Internal("loading challenge state", err)
	}
	if !found {
		return nil, nil
	}
	var state State
	if err := json.Unmarshal([]byte(raw), &state); err != nil {
		return nil, apperr.Internal("decoding challenge state", err)
	}
	if time.Since(state.CreatedAt) > s.ttl {
		return nil, nil
	}
	return &state, nil
}
