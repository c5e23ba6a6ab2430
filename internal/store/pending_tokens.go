package store

import (
	"context"
	"time"

	"github.com/vaultline/wallet-core/internal/apperr"
	"github.com/vaultline/wallet-core/internal/models"
)

const insertPendingTokenQuery = `
INSERT INTO pending_tokens (id, user_id, kind, token_hash, expires_at, consumed_at)
VALUES (:id, :user_id, :kind, :token_hash, :expires_at, :consumed_at)`

// CreatePendingToken and the read/consume methods below implement
// pending.Repository.
func (s *Store) CreatePendingToken(ctx context.Context, t *models.PendingToken) error {
	_, err := s.db.NamedExecContext(ctx, insertPendingTokenQuery, t)
	if err != nil {
		return apperr.Internal("creating pending token", err)
	}
	return nil
}

func (s *Store) GetPendingToken(ctx context.Context, id string) (*models.PendingToken, error) {
	var t models.PendingToken
	err := s.db.GetContext(ctx, &t, `SELECT * FROM pending_tokens WHERE id = $1`, id)
	if isNoRows(err) {
		return nil, nil
	}
	if err != nil {
		return nil, apperr.Internal("loading pending token", err)
	}
	return &t, nil
}

func (s *Store) ConsumePendingToken(ctx context.Context, id string, consumedAt time.Time) error {
	_, err := s.db.ExecContext(ctx, `UPDATE pending_tokens SET consumed_at = $2 WHERE id = $1`, id, consumedAt)
	if err != nil {
		return apperr.Internal("consuming pending token", err)
	}
	return nil
}
