package store

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/vaultline/wallet-core/internal/apperr"
	"github.com/vaultline/wallet-core/internal/models"
)

const insertTransactionQuery = `
INSERT INTO wallet_transactions
  (id, type, status, from_wallet_id, to_wallet_id, amount_minor, fee_minor, currency, note, client_reference, step_up_used, created_at, completed_at)
VALUES
  (:id, :type, :status, :from_wallet_id, :to_wallet_id, :amount_minor, :fee_minor, :currency, :note, :client_reference, :step_up_used, :created_at, :completed_at)`

func (s *Store) CreateTransaction(ctx context.Context, tx *sqlx.Tx, t *models.WalletTransaction) error {
	_, err := tx.NamedExecContext(ctx, insertTransactionQuery, t)
	if err != nil {
		return apperr.Internal("creating transaction", err)
	}
	return nil
}

func (s *Store) CompleteTransaction(ctx context.Context, tx *sqlx.Tx, id string, at time.Time) error {
	_, err := tx.ExecContext(ctx,
		`UPDATE wallet_transactions SET status = 'COMPLETED', completed_at = $2 WHERE id = $1`, id, at)
	if err != nil {
		return apperr.Internal("completing transaction", err)
	}
	return nil
}

const insertLedgerEntryQuery = `
INSERT INTO wallet_ledger_entries (id, transaction_id, wallet_id, direction, amount_minor, balance_after_minor)
VALUES (:id, :transaction_id, :wallet_id, :direction, :amount_minor, :balance_after_minor)`

func (s *Store) CreateLedgerEntry(ctx context.Context, tx *sqlx.Tx, e *models.WalletLedgerEntry) error {
	_, err := tx.NamedExecContext(ctx, insertLedgerEntryQuery, e)
	if err != nil {
		return apperr.Internal("creating ledger entry", err)
	}
	return nil
}

func (s *Store) GetTransactionByID(ctx context.Context, id string) (*models.WalletTransaction, error) {
	var t models.WalletTransaction
	err := s.db.GetContext(ctx, &t, `SELECT * FROM wallet_transactions WHERE id = $1`, id)
	if isNoRows(err) {
		return nil, nil
	}
	if err != nil {
		return nil, apperr.Internal("loading transaction", err)
	}
	return &t, nil
}

// GetTransactionByClientReference supports idempotent-by-reference
// lookups independent of the HTTP idempotency-key gate.
func (s *Store) GetTransactionByClientReference(ctx context.Context, fromWalletID, clientReference string) (*models.WalletTransaction, error) {
	var t models.WalletTransaction
	err := s.db.GetContext(ctx, &t,
		`SELECT * FROM wallet_transactions WHERE from_wallet_id = $1 AND client_reference = $2`,
		fromWalletID, clientReference)
	if isNoRows(err) {
		return nil, nil
	}
	if err != nil {
		return nil, apperr.Internal("loading transaction by client reference", err)
	}
	return &t, nil
}

// ListTransactionsForWallet returns a cursor page ordered by
// (created_at DESC, id DESC). cursorCreatedAt/cursorID are zero/empty
// for the first page.
func (s *Store) ListTransactionsForWallet(ctx context.Context, walletID string, cursorCreatedAt time.Time, cursorID string, limit int) ([]models.WalletTransaction, error) {
	var rows []models.WalletTransaction
	var err error
	if cursorID == "" {
		err = s.db.SelectContext(ctx, &rows, `
			SELECT * FROM wallet_transactions
			WHERE from_wallet_id = $1 OR to_wallet_id = $1
			ORDER BY created_at DESC, id DESC LIMIT $2`, walletID, limit)
	} else {
		err = s.db.SelectContext(ctx, &rows, `
			SELECT * FROM wallet_transactions
			WHERE (from_wallet_id = $1 OR to_wallet_id = $1)
			  AND (created_at, id) < ($2, $3)
			ORDER BY created_at DESC, id DESC LIMIT $4`, walletID, cursorCreatedAt, cursorID, limit)
	}
	if err != nil {
		return nil, apperr.Internal("listing transactions", err)
	}
	return rows, nil
}
