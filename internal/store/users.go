package store

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/vaultline/wallet-core/internal/apperr"
	"github.com/vaultline/wallet-core/internal/models"
)

const insertUserQuery = `
INSERT INTO users (id, email, first_name, last_name, password_hash, email_verified, verification_requested_at, created_at)
VALUES (:id, :email, :first_name, :last_name, :password_hash, :email_verified, :verification_requested_at, :created_at)`

const selectUserByIDQuery = `SELECT * FROM users WHERE id = $1`
const selectUserByEmailQuery = `SELECT * FROM users WHERE email = $1`

func (s *Store) CreateUser(ctx context.Context, u *models.User) error {
	_, err := s.db.NamedExecContext(ctx, insertUserQuery, u)
	if err != nil {
		return apperr.Internal("creating user", err)
	}
	return nil
}

func (s *Store) GetUserByID(ctx context.Context, id string) (*models.User, error) {
	return getUser(ctx, s.db, selectUserByIDQuery, id)
}

func (s *Store) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	return getUser(ctx, s.db, selectUserByEmailQuery, email)
}

func getUser(ctx context.Context, q sqlx.ExtContext, query, arg string) (*models.User, error) {
	var u models.User
	err := sqlx.GetContext(ctx, q, &u, query, arg)
	if isNoRows(err) {
		return nil, nil
	}
	if err != nil {
		return nil, apperr.Internal("loading user", err)
	}
	return &u, nil
}

func (s *Store) SetEmailVerified(ctx context.Context, userID string) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE users SET email_verified = true, verification_requested_at = NULL WHERE id = $1`, userID)
	if err != nil {
		return apperr.Internal("marking email verified", err)
	}
	return nil
}

func (s *Store) SetVerificationRequestedAt(ctx context.Context, userID string, at time.Time) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE users SET verification_requested_at = $2 WHERE id = $1`, userID, at)
	if err != nil {
		return apperr.Internal("recording verification request", err)
	}
	return nil
}

func (s *Store) UpdatePasswordHash(ctx context.Context, userID, hash string) error {
	_, err := s.db.ExecContext(ctx, `UPDATE users SET password_hash = $2 WHERE id = $1`, userID, hash)
	if err != nil {
		return apperr.Internal("updating password hash", err)
	}
	return nil
}
