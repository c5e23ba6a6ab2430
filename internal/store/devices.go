package store

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/vaultline/wallet-core/internal/apperr"
	"github.com/vaultline/wallet-core/internal/models"
)

const insertDeviceQuery = `
INSERT INTO devices (id, user_id, credential_id, label, active, deactivated_at, deactivated_reason, created_at)
VALUES (:id, :user_id, :credential_id, :label, :active, :deactivated_at, :deactivated_reason, :created_at)`

func (s *Store) CreateDevice(ctx context.Context, tx *sqlx.Tx, d *models.Device) error {
	_, err := tx.NamedExecContext(ctx, insertDeviceQuery, d)
	if err != nil {
		return apperr.Internal("creating device", err)
	}
	return nil
}

func (s *Store) ListDevicesForCredential(ctx context.Context, credentialID string) ([]models.Device, error) {
	var devices []models.Device
	err := s.db.SelectContext(ctx, &devices, `SELECT * FROM devices WHERE credential_id = $1`, credentialID)
	if err != nil {
		return nil, apperr.Internal("listing devices", err)
	}
	return devices, nil
}

func (s *Store) ListDevicesForUser(ctx context.Context, userID string) ([]models.Device, error) {
	var devices []models.Device
	err := s.db.SelectContext(ctx, &devices, `SELECT * FROM devices WHERE user_id = $1 ORDER BY created_at DESC`, userID)
	if err != nil {
		return nil, apperr.Internal("listing devices", err)
	}
	return devices, nil
}

func (s *Store) GetDevice(ctx context.Context, id string) (*models.Device, error) {
	var d models.Device
	err := s.db.GetContext(ctx, &d, `SELECT * FROM devices WHERE id = $1`, id)
	if isNoRows(err) {
		return nil, nil
	}
	if err != nil {
		return nil, apperr.Internal("loading device", err)
	}
	return &d, nil
}

func (s *Store) DeactivateDevice(ctx context.Context, id string, at time.Time, reason string) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE devices SET active = false, deactivated_at = $2, deactivated_reason = $3 WHERE id = $1`,
		id, at, reason)
	if err != nil {
		return apperr.Internal("deactivating device", err)
	}
	return nil
}

func (s *Store) HasActiveDevice(ctx context.Context, credentialID string) (bool, error) {
	var count int
	err := s.db.GetContext(ctx, &count,
		`SELECT count(*) FROM devices WHERE credential_id = $1 AND active = true`, credentialID)
	if err != nil {
		return false, apperr.Internal("checking active devices", err)
	}
	return count > 0, nil
}
