// Package wallet implements C10: lazy wallet creation, balance/limit
// views, and masked transaction history. Grounded on the read-mostly
// service pattern in internal/services/asset.go, adapted from
// blockchain asset balances to fiat-style minor-unit wallet balances.
package wallet

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/vaultline/wallet-core/internal/apperr"
	"github.com/vaultline/wallet-core/internal/models"
	"github.com/vaultline/wallet-core/internal/passwordauth"
)

// minorUnitScale is the number of decimal places between the minor and
// the major currency unit (2: 100 cents per dollar). The ledger and limit math
// stay on plain int64 minor units throughout; decimal.Decimal is used
// only here, at the boundary where an amount becomes a human-readable
// string for the API surface.
const minorUnitScale = 2

// FormatAmount renders a minor-unit integer amount as a fixed-point
// decimal string, e.g. 150000 -> "1500.00".
func FormatAmount(amountMinor int64) string {
	return decimal.New(amountMinor, -minorUnitScale).StringFixed(minorUnitScale)
}

// Repository is the persistence dependency this component needs.
type Repository interface {
	GetOrCreateWallet(ctx context.Context, w *models.Wallet) (*models.Wallet, error)
	GetWalletByUserID(ctx context.Context, userID string) (*models.Wallet, error)
	GetWalletByID(ctx context.Context, id string) (*models.Wallet, error)
	DailyOutgoingTotal(ctx context.Context, walletID string) (int64, error)
	ListTransactionsForWallet(ctx context.Context, walletID string, cursorCreatedAt time.Time, cursorID string, limit int) ([]models.WalletTransaction, error)
	GetUserByID(ctx context.Context, id string) (*models.User, error)
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)
}

// Limits describes the transfer bounds exposed in a wallet view.
type Limits struct {
	MinAmountMinor          int64
	PerTransactionMaxMinor  int64
	DailyMaxMinor           int64
	DailyUsedMinor          int64
}

// Config carries the operator-tunable transfer limits.
type Config struct {
	DefaultCurrency        string
	MinAmountMinor          int64
	MaxAmountMinor          int64
	AbsoluteMaxAmountMinor  int64
	DailyLimitMinor         int64
	HighValueThresholdMinor int64
}

// Service implements wallet views and history.
type Service struct {
	repo Repository
	cfg  Config
}

func New(repo Repository, cfg Config) *Service {
	return &Service{repo: repo, cfg: cfg}
}

// GetOrCreate upserts the wallet for userID, defaulting currency/status/
// balance on first creation.
func (s *Service) GetOrCreate(ctx context.Context, userID string) (*models.Wallet, error) {
	return s.repo.GetOrCreateWallet(ctx, &models.Wallet{
		ID:                    uuid.NewString(),
		UserID:                userID,
		Currency:              s.cfg.DefaultCurrency,
		Status:                models.WalletActive,
		AvailableBalanceMinor: 0,
	})
}

// PerTransactionMax is min(configured max, absolute max).
func (c Config) PerTransactionMax() int64 {
	if c.AbsoluteMaxAmountMinor > 0 && c.AbsoluteMaxAmountMinor < c.MaxAmountMinor {
		return c.AbsoluteMaxAmountMinor
	}
	return c.MaxAmountMinor
}

// View is the balance+limits view for a user's own wallet.
type View struct {
	Wallet *models.Wallet
	Limits Limits
}

func (s *Service) View(ctx context.Context, userID string) (*View, error) {
	w, err := s.GetOrCreate(ctx, userID)
	if err != nil {
		return nil, err
	}
	used, err := s.repo.DailyOutgoingTotal(ctx, w.ID)
	if err != nil {
		return nil, err
	}
	return &View{
		Wallet: w,
		Limits: Limits{
			MinAmountMinor:         s.cfg.MinAmountMinor,
			PerTransactionMaxMinor: s.cfg.PerTransactionMax(),
			DailyMaxMinor:          s.cfg.DailyLimitMinor,
			DailyUsedMinor:         used,
		},
	}, nil
}

// HistoryEntry is one masked row of transaction history from the
// perspective of viewerUserID.
type HistoryEntry struct {
	Transaction            models.WalletTransaction
	Role                   string // SENDER or RECIPIENT
	CounterpartyIdentifier string
	CounterpartyName       string
}

// History returns a cursor page of transactions touching the viewer's
// wallet, counterparty identity masked.
func (s *Service) History(ctx context.Context, userID string, cursorCreatedAt time.Time, cursorID string, limit int) ([]HistoryEntry, error) {
	w, err := s.repo.GetWalletByUserID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if w == nil {
		return nil, nil
	}
	txns, err := s.repo.ListTransactionsForWallet(ctx, w.ID, cursorCreatedAt, cursorID, limit)
	if err != nil {
		return nil, err
	}

	entries := make([]HistoryEntry, 0, len(txns))
	for _, t := range txns {
		role := "RECIPIENT"
		counterpartyWalletID := t.FromWalletID
		if t.FromWalletID == w.ID {
			role = "SENDER"
			counterpartyWalletID = t.ToWalletID
		}
		identifier, name, err := s.maskedCounterparty(ctx, counterpartyWalletID)
		if err != nil {
			return nil, err
		}
		entries = append(entries, HistoryEntry{
			Transaction:            t,
			Role:                   role,
			CounterpartyIdentifier: identifier,
			CounterpartyName:       name,
		})
	}
	return entries, nil
}

func (s *Service) maskedCounterparty(ctx context.Context, walletID string) (string, string, error) {
	cw, err := s.repo.GetWalletByID(ctx, walletID)
	if err != nil || cw == nil {
		return "", "", err
	}
	u, err := s.repo.GetUserByID(ctx, cw.UserID)
	if err != nil || u == nil {
		return "", "", err
	}
	return MaskEmail(u.Email), MaskName(u.FirstName, u.LastName), nil
}

// MaskEmail renders "<first-3-of-local>***@<domain>".
func MaskEmail(email string) string {
	local, domain, ok := strings.Cut(email, "@")
	if !ok {
		return email
	}
	prefixLen := 3
	if len(local) < prefixLen {
		prefixLen = len(local)
	}
	return local[:prefixLen] + "***@" + domain
}

// MaskName renders "<first> <last-initial>.".
func MaskName(first, last *string) string {
	f := ""
	if first != nil {
		f = *first
	}
	l := ""
	if last != nil && *last != "" {
		l = strings.ToUpper((*last)[:1]) + "."
	}
	return strings.TrimSpace(f + " " + l)
}

// RecipientPreview is the resolved-but-not-committed view returned by
// the recipient lookup endpoint.
type RecipientPreview struct {
	UserID string
	Email  string
	Name   string
}

// ResolveRecipient resolves identifier (exactly one of userID/email) to
// a masked preview, without creating a wallet.
func (s *Service) ResolveRecipient(ctx context.Context, userID, email string) (*RecipientPreview, error) {
	if (userID == "") == (email == "") {
		return nil, apperr.New(apperr.CodeValidationFailed, "exactly one of userId or email is required")
	}

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

	return &RecipientPreview{
		UserID: user.ID,
		Email:  MaskEmail(user.Email),
		Name:   MaskName(user.FirstName, user.LastName),
	}, nil
}
