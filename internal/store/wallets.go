package store

import (
	"context"

	"github.com/jmoiron/sqlx"

	"github.com/vaultline/wallet-core/internal/apperr"
	"github.com/vaultline/wallet-core/internal/models"
)

const upsertWalletQuery = `
INSERT INTO wallets (id, user_id, currency, status, available_balance_minor)
VALUES (:id, :user_id, :currency, :status, :available_balance_minor)
ON CONFLICT (user_id) DO NOTHING`

func (s *Store) GetOrCreateWallet(ctx context.Context, w *models.Wallet) (*models.Wallet, error) {
	if _, err := s.db.NamedExecContext(ctx, upsertWalletQuery, w); err != nil {
		return nil, apperr.Internal("creating wallet", err)
	}
	return s.GetWalletByUserID(ctx, w.UserID)
}

func (s *Store) GetWalletByUserID(ctx context.Context, userID string) (*models.Wallet, error) {
	var w models.Wallet
	err := s.db.GetContext(ctx, &w, `SELECT * FROM wallets WHERE user_id = $1`, userID)
	if isNoRows(err) {
		return nil, nil
	}
	if err != nil {
		return nil, apperr.Internal("loading wallet", err)
	}
	return &w, nil
}

func (s *Store) GetWalletByID(ctx context.Context, id string) (*models.Wallet, error) {
	var w models.Wallet
	err := s.db.GetContext(ctx, &w, `SELECT * FROM wallets WHERE id = $1`, id)
	if isNoRows(err) {
		return nil, nil
	}
	if err != nil {
		return nil, apperr.Internal("loading wallet", err)
	}
	return &w, nil
}

// LockWalletForUpdate locks a wallet row within tx using SELECT ... FOR
// UPDATE, the row-locking idiom the transfer engine relies on to
// serialize concurrent debits/credits against the same wallet.
func (s *Store) LockWalletForUpdate(ctx context.Context, tx *sqlx.Tx, id string) (*models.Wallet, error) {
	var w models.Wallet
	err := tx.GetContext(ctx, &w, `SELECT * FROM wallets WHERE id = $1 FOR UPDATE`, id)
	if isNoRows(err) {
		return nil, nil
	}
	if err != nil {
		return nil, apperr.Internal("locking wallet", err)
	}
	return &w, nil
}

func (s *Store) SetWalletBalance(ctx context.Context, tx *sqlx.Tx, id string, balanceMinor int64) error {
	_, err := tx.ExecContext(ctx, `UPDATE wallets SET available_balance_minor = $2 WHERE id = $1`, id, balanceMinor)
	if err != nil {
		return apperr.Internal("updating wallet balance", err)
	}
	return nil
}

// DailyOutgoingTotal sums completed outgoing transfer amounts for
// walletID since UTC midnight of the current day.
func (s *Store) DailyOutgoingTotal(ctx context.Context, walletID string) (int64, error) {
	var total int64
	err := s.db.GetContext(ctx, &total, `
		SELECT COALESCE(SUM(amount_minor), 0) FROM wallet_transactions
		WHERE from_wallet_id = $1 AND status = 'COMPLETED'
		  AND created_at >= date_trunc('day', now() AT TIME ZONE 'UTC')`, walletID)
	if err != nil {
		return 0, apperr.Internal("computing daily usage", err)
	}
	return total, nil
}
