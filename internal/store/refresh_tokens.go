package store

import (
	"context"

	"github.com/vaultline/wallet-core/internal/apperr"
	"github.com/vaultline/wallet-core/internal/models"
)

const insertRefreshTokenQuery = `
INSERT INTO refresh_tokens (id, user_id, token_hash, expires_at, revoked)
VALUES (:id, :user_id, :token_hash, :expires_at, :revoked)`

func (s *Store) CreateRefreshToken(ctx context.Context, rt *models.RefreshToken) error {
	_, err := s.db.NamedExecContext(ctx, insertRefreshTokenQuery, rt)
	if err != nil {
		return apperr.Internal("creating refresh token", err)
	}
	return nil
}

func (s *Store) GetRefreshToken(ctx context.Context, id string) (*models.RefreshToken, error) {
	var rt models.RefreshToken
	err := s.db.GetContext(ctx, &rt, `SELECT * FROM refresh_tokens WHERE id = $1`, id)
	if isNoRows(err) {
		return nil, nil
	}
	if err != nil {
		return nil, apperr.Internal("loading refresh token", err)
	}
	return &rt, nil
}

func (s *Store) RevokeRefreshToken(ctx context.Context, id string) error {
	_, err := s.db.ExecContext(ctx, `UPDATE refresh_tokens SET revoked = true WHERE id = $1`, id)
	if err != nil {
		return apperr.Internal("revoking refresh token", err)
	}
	return nil
}

func (s *Store) RevokeAllRefreshTokensForUser(ctx context.Context, userID string) error {
	_, err := s.db.ExecContext(ctx, `UPDATE refresh_tokens SET revoked = true WHERE user_id = $1`, userID)
	if err != nil {
		return apperr.Internal("revoking refresh tokens", err)
	}
	return nil
}
