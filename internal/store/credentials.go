package store

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/vaultline/wallet-core/internal/apperr"
	"github.com/vaultline/wallet-core/internal/models"
)

const upsertCredentialQuery = `
INSERT INTO credentials (credential_id, user_id, public_key, sign_count, aaguid, transports, device_name, revoked, revoked_at, created_at)
VALUES (:credential_id, :user_id, :public_key, :sign_count, :aaguid, :transports, :device_name, :revoked, :revoked_at, :created_at)
ON CONFLICT (credential_id) DO UPDATE SET
  user_id = EXCLUDED.user_id,
  public_key = EXCLUDED.public_key,
  sign_count = EXCLUDED.sign_count,
  aaguid = EXCLUDED.aaguid,
  device_name = EXCLUDED.device_name,
  revoked = false,
  revoked_at = NULL`

func (s *Store) UpsertCredential(ctx context.Context, tx *sqlx.Tx, c *models.Credential) error {
	_, err := tx.NamedExecContext(ctx, upsertCredentialQuery, c)
	if err != nil {
		return apperr.Internal("upserting credential", err)
	}
	return nil
}

func (s *Store) GetCredentialByID(ctx context.Context, credentialID string) (*models.Credential, error) {
	var c models.Credential
	err := s.db.GetContext(ctx, &c, `SELECT * FROM credentials WHERE credential_id = $1`, credentialID)
	if isNoRows(err) {
		return nil, nil
	}
	if err != nil {
		return nil, apperr.Internal("loading credential", err)
	}
	return &c, nil
}

// ListActiveCredentialsForUser returns non-revoked credentials belonging
// to userID that have at least one active device.
func (s *Store) ListActiveCredentialsForUser(ctx context.Context, userID string) ([]models.Credential, error) {
	var creds []models.Credential
	err := s.db.SelectContext(ctx, &creds, `
		SELECT DISTINCT c.* FROM credentials c
		JOIN devices d ON d.credential_id = c.credential_id
		WHERE c.user_id = $1 AND c.revoked = false AND d.active = true`, userID)
	if err != nil {
		return nil, apperr.Internal("listing active credentials", err)
	}
	return creds, nil
}

func (s *Store) ListCredentialsForUser(ctx context.Context, userID string) ([]models.Credential, error) {
	var creds []models.Credential
	err := s.db.SelectContext(ctx, &creds, `SELECT * FROM credentials WHERE user_id = $1`, userID)
	if err != nil {
		return nil, apperr.Internal("listing credentials", err)
	}
	return creds, nil
}

// UpdateCredentialSignCountSimple updates the stored count outside any
// caller-managed transaction, for callers (like biometric verification)
// that commit the reconciliation as its own statement.
func (s *Store) UpdateCredentialSignCountSimple(ctx context.Context, credentialID string, signCount int64) error {
	return s.UpdateCredentialSignCount(ctx, nil, credentialID, signCount)
}

func (s *Store) UpdateCredentialSignCount(ctx context.Context, tx *sqlx.Tx, credentialID string, signCount int64) error {
	var q sqlx.ExtContext = s.db
	if tx != nil {
		q = tx
	}
	_, err := q.ExecContext(ctx, `UPDATE credentials SET sign_count = $2 WHERE credential_id = $1`, credentialID, signCount)
	if err != nil {
		return apperr.Internal("updating sign count", err)
	}
	return nil
}

// RevokeCredentialAndDeactivateDevices is the STRICT-mode sign-count
// regression response: revoke the credential and deactivate every
// device bound to it, atomically.
func (s *Store) RevokeCredentialAndDeactivateDevices(ctx context.Context, credentialID string, at time.Time, reason string) error {
	return s.WithTx(ctx, func(tx *sqlx.Tx) error {
		if _, err := tx.ExecContext(ctx,
			`UPDATE credentials SET revoked = true, revoked_at = $2 WHERE credential_id = $1`,
			credentialID, at); err != nil {
			return apperr.Internal("revoking credential", err)
		}
		if _, err := tx.ExecContext(ctx,
			`UPDATE devices SET active = false, deactivated_at = $2, deactivated_reason = $3 WHERE credential_id = $1`,
			credentialID, at, reason); err != nil {
			return apperr.Internal("deactivating devices", err)
		}
		return nil
	})
}
