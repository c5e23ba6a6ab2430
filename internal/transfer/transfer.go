// Package transfer implements C11: the P2P transfer engine — recipient
// resolution, limit and step-up enforcement, and the atomic double-entry
// commit. Grounded on the service-layer composition style in
// internal/services/withdrawal.go for the preflight/commit split,
// generalized from a single-party withdrawal to a two-wallet transfer.
package transfer

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/vaultline/wallet-core/internal/apperr"
	"github.com/vaultline/wallet-core/internal/models"
	"github.com/vaultline/wallet-core/internal/passwordauth"
	"github.com/vaultline/wallet-core/internal/tokensigner"
	"github.com/vaultline/wallet-core/internal/wallet"
)

const stepUpPurposeSubstring = "transaction:transfer"

// Repository is the persistence dependency this component needs.
type Repository interface {
	GetOrCreateWallet(ctx context.Context, w *models.Wallet) (*models.Wallet, error)
	GetUserByID(ctx context.Context, id string) (*models.User, error)
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)
	GetTransactionByClientReference(ctx context.Context, fromWalletID, clientReference string) (*models.WalletTransaction, error)
	GetTransactionByID(ctx context.Context, id string) (*models.WalletTransaction, error)
	WithTx(ctx context.Context, fn func(tx *sqlx.Tx) error) error
	LockWalletForUpdate(ctx context.Context, tx *sqlx.Tx, id string) (*models.Wallet, error)
	SetWalletBalance(ctx context.Context, tx *sqlx.Tx, id string, balanceMinor int64) error
	CreateTransaction(ctx context.Context, tx *sqlx.Tx, t *models.WalletTransaction) error
	CreateLedgerEntry(ctx context.Context, tx *sqlx.Tx, e *models.WalletLedgerEntry) error
	DailyOutgoingTotal(ctx context.Context, walletID string) (int64, error)
}

// Request is a transfer request as received from the API layer.
type Request struct {
	SenderUserID      string
	RecipientUserID   string
	RecipientEmail    string
	AmountMinor       int64
	Currency          string
	Note              *string
	ClientReference   *string
	StepUpHeaderToken string
	StepUpBodyToken   string
}

// Result is what a successful (or idempotently-replayed) transfer
// returns.
type Result struct {
	Transaction *models.WalletTransaction
	Role        string
	Replayed    bool
}

// Service implements the transfer engine.
type Service struct {
	repo   Repository
	signer *tokensigner.Signer
	cfg    wallet.Config
}

func New(repo Repository, signer *tokensigner.Signer, cfg wallet.Config) *Service {
	return &Service{repo: repo, signer: signer, cfg: cfg}
}

// Transfer runs the full preflight-then-commit protocol.
func (s *Service) Transfer(ctx context.Context, req Request) (*Result, error) {
	senderWallet, err := s.repo.GetOrCreateWallet(ctx, &models.Wallet{
		ID: uuid.NewString(), UserID: req.SenderUserID, Currency: s.cfg.DefaultCurrency, Status: models.WalletActive,
	})
	if err != nil {
		return nil, err
	}

	recipient, err := s.resolveRecipient(ctx, req.RecipientUserID, req.RecipientEmail)
	if err != nil {
		return nil, err
	}
	if recipient.ID == req.SenderUserID {
		return nil, apperr.New(apperr.CodeSameWalletTransfer, "cannot transfer to your own wallet")
	}

	recipientWallet, err := s.repo.GetOrCreateWallet(ctx, &models.Wallet{
		ID: uuid.NewString(), UserID: recipient.ID, Currency: s.cfg.DefaultCurrency, Status: models.WalletActive,
	})
	if err != nil {
		return nil, err
	}

	if senderWallet.Status != models.WalletActive {
		return nil, apperr.New(apperr.CodeWalletBlocked, "sender wallet is blocked")
	}
	if recipientWallet.Status == models.WalletClosed {
		return nil, apperr.New(apperr.CodeWalletBlocked, "recipient wallet is closed")
	}

	currency := strings.ToUpper(req.Currency)
	if currency != strings.ToUpper(senderWallet.Currency) || currency != strings.ToUpper(recipientWallet.Currency) {
		return nil, apperr.New(apperr.CodeValidationFailed, "currency mismatch")
	}

	if req.AmountMinor < s.cfg.MinAmountMinor || req.AmountMinor > s.cfg.PerTransactionMax() {
		return nil, apperr.New(apperr.CodeLimitExceeded, "amount outside allowed range")
	}

	dailyTotal, err := s.repo.DailyOutgoingTotal(ctx, senderWallet.ID)
	if err != nil {
		return nil, err
	}
	if dailyTotal+req.AmountMinor > s.cfg.DailyLimitMinor {
		return nil, apperr.New(apperr.CodeLimitExceeded, "daily transfer limit exceeded")
	}

	if senderWallet.AvailableBalanceMinor < req.AmountMinor {
		return nil, apperr.New(apperr.CodeInsufficientFunds, "insufficient funds")
	}

	stepUpRequired := req.AmountMinor >= s.cfg.HighValueThresholdMinor ||
		(dailyTotal+req.AmountMinor)*5 >= s.cfg.DailyLimitMinor*4
	if stepUpRequired {
		if err := s.verifyStepUp(req); err != nil {
			return nil, err
		}
	}

	if req.ClientReference != nil && *req.ClientReference != "" {
		prior, err := s.repo.GetTransactionByClientReference(ctx, senderWallet.ID, *req.ClientReference)
		if err != nil {
			return nil, err
		}
		if prior != nil {
			if prior.ToWalletID == recipientWallet.ID && prior.AmountMinor == req.AmountMinor &&
				strings.EqualFold(prior.Currency, currency) {
				return &Result{Transaction: prior, Role: "SENDER", Replayed: true}, nil
			}
			return nil, apperr.New(apperr.CodeConflict, "client reference already used with different parameters")
		}
	}

	txn := &models.WalletTransaction{
		ID:              uuid.NewString(),
		Type:            models.TransactionP2PTransfer,
		FromWalletID:    senderWallet.ID,
		ToWalletID:      recipientWallet.ID,
		AmountMinor:     req.AmountMinor,
		FeeMinor:        0,
		Currency:        currency,
		Note:            req.Note,
		ClientReference: req.ClientReference,
		StepUpUsed:      stepUpRequired,
	}

	if err := s.commit(ctx, senderWallet.ID, recipientWallet.ID, txn); err != nil {
		return nil, err
	}

	return &Result{Transaction: txn, Role: "SENDER"}, nil
}

// GetForUser returns the transaction identified by transactionID if the
// caller's wallet is a party to it, with Role computed from which side
// of the transaction the wallet is on.
func (s *Service) GetForUser(ctx context.Context, userID, transactionID string) (*Result, error) {
	w, err := s.repo.GetOrCreateWallet(ctx, &models.Wallet{ID: uuid.NewString(), UserID: userID, Currency: s.cfg.DefaultCurrency, Status: models.WalletActive})
	if err != nil {
		return nil, err
	}
	txn, err := s.repo.GetTransactionByID(ctx, transactionID)
	if err != nil {
		return nil, err
	}
	if txn == nil || (txn.FromWalletID != w.ID && txn.ToWalletID != w.ID) {
		return nil, apperr.New(apperr.CodeNotFound, "transaction not found")
	}
	role := "RECIPIENT"
	if txn.FromWalletID == w.ID {
		role = "SENDER"
	}
	return &Result{Transaction: txn, Role: role}, nil
}

func (s *Service) resolveRecipient(ctx context.Context, userID, email string) (*models.User, error) {
	var user *models.User
	var err error
	if email != "" {
		user, err = s.repo.GetUserByEmail(ctx, passwordauth.NormalizeEmail(email))
	} else {
		user, err = s.repo.GetUserByID(ctx, userID)
	}
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, apperr.New(apperr.CodeRecipientNotFound, "recipient not found")
	}
	return user, nil
}

func (s *Service) verifyStepUp(req Request) error {
	token := strings.TrimSpace(req.StepUpHeaderToken)
	if token == "" {
		token = strings.TrimSpace(req.StepUpBodyToken)
	}
	if token == "" {
		return apperr.New(apperr.CodeUnauthorized, "step-up required")
	}
	claims, err := s.signer.Verify(token, tokensigner.TypeStepUp)
	if err != nil {
		return apperr.New(apperr.CodeUnauthorized, "step-up required")
	}
	if claims.Subject != req.SenderUserID {
		return apperr.New(apperr.CodeUnauthorized, "step-up token does not belong to sender")
	}
	if claims.Purpose != "" && !strings.Contains(claims.Purpose, stepUpPurposeSubstring) {
		return apperr.New(apperr.CodeForbidden, "step-up token purpose mismatch")
	}
	return nil
}

// commit re-reads both wallets under row locks and performs the
// double-entry write inside a single transaction.
func (s *Service) commit(ctx context.Context, senderWalletID, recipientWalletID string, txn *models.WalletTransaction) error {
	return s.repo.WithTx(ctx, func(tx *sqlx.Tx) error {
		sender, err := s.repo.LockWalletForUpdate(ctx, tx, senderWalletID)
		if err != nil {
			return err
		}
		recipient, err := s.repo.LockWalletForUpdate(ctx, tx, recipientWalletID)
		if err != nil {
			return err
		}
		if sender == nil || recipient == nil {
			return apperr.Internal("wallet vanished during commit", nil)
		}
		if sender.AvailableBalanceMinor < txn.AmountMinor {
			return apperr.New(apperr.CodeInsufficientFunds, "insufficient funds")
		}

		now := time.Now()
		txn.Status = models.TransactionCompleted
		txn.CreatedAt = now
		txn.CompletedAt = &now

		if err := s.repo.CreateTransaction(ctx, tx, txn); err != nil {
			return err
		}

		newSenderBalance := sender.AvailableBalanceMinor - txn.AmountMinor
		newRecipientBalance := recipient.AvailableBalanceMinor + txn.AmountMinor

		if err := s.repo.CreateLedgerEntry(ctx, tx, &models.WalletLedgerEntry{
			ID: uuid.NewString(), TransactionID: txn.ID, WalletID: sender.ID,
			Direction: models.LedgerDebit, AmountMinor: txn.AmountMinor, BalanceAfterMinor: newSenderBalance,
		}); err != nil {
			return err
		}
		if err := s.repo.CreateLedgerEntry(ctx, tx, &models.WalletLedgerEntry{
			ID: uuid.NewString(), TransactionID: txn.ID, WalletID: recipient.ID,
			Direction: models.LedgerCredit, AmountMinor: txn.AmountMinor, BalanceAfterMinor: newRecipientBalance,
		}); err != nil {
			return err
		}

		if err := s.repo.SetWalletBalance(ctx, tx, sender.ID, newSenderBalance); err != nil {
			return err
		}
		return s.repo.SetWalletBalance(ctx, tx, recipient.ID, newRecipientBalance)
	})
}
