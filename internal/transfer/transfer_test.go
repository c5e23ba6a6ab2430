package transfer

import (
	"context"
	"testing"

	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vaultline/wallet-core/internal/apperr"
	"github.com/vaultline/wallet-core/internal/models"
	"github.com/vaultline/wallet-core/internal/tokensigner"
	"github.com/vaultline/wallet-core/internal/wallet"
)

// fakeRepo is an in-memory stand-in for internal/store, keyed by wallet
// user ID. WithTx never touches a real transaction; the commit path
// never dereferences tx, it only threads it through to the other fake
// methods.
type fakeRepo struct {
	walletsByUser map[string]*models.Wallet
	walletsByID   map[string]*models.Wallet
	usersByID     map[string]*models.User
	usersByEmail  map[string]*models.User
	transactions  map[string]*models.WalletTransaction
	byClientRef   map[string]*models.WalletTransaction
	dailyTotal    int64
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{
		walletsByUser: map[string]*models.Wallet{},
		walletsByID:   map[string]*models.Wallet{},
		usersByID:     map[string]*models.User{},
		usersByEmail:  map[string]*models.User{},
		transactions:  map[string]*models.WalletTransaction{},
		byClientRef:   map[string]*models.WalletTransaction{},
	}
}

func (f *fakeRepo) GetOrCreateWallet(ctx context.Context, w *models.Wallet) (*models.Wallet, error) {
	if existing, ok := f.walletsByUser[w.UserID]; ok {
		return existing, nil
	}
	cp := *w
	f.walletsByUser[w.UserID] = &cp
	f.walletsByID[cp.ID] = &cp
	return &cp, nil
}

func (f *fakeRepo) GetUserByID(ctx context.Context, id string) (*models.User, error) {
	return f.usersByID[id], nil
}

func (f *fakeRepo) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	return f.usersByEmail[email], nil
}

func (f *fakeRepo) GetTransactionByClientReference(ctx context.Context, fromWalletID, clientReference string) (*models.WalletTransaction, error) {
	return f.byClientRef[fromWalletID+":"+clientReference], nil
}

func (f *fakeRepo) GetTransactionByID(ctx context.Context, id string) (*models.WalletTransaction, error) {
	return f.transactions[id], nil
}

func (f *fakeRepo) WithTx(ctx context.Context, fn func(tx *sqlx.Tx) error) error {
	return fn(nil)
}

func (f *fakeRepo) LockWalletForUpdate(ctx context.Context, tx *sqlx.Tx, id string) (*models.Wallet, error) {
	return f.walletsByID[id], nil
}

func (f *fakeRepo) SetWalletBalance(ctx context.Context, tx *sqlx.Tx, id string, balanceMinor int64) error {
	f.walletsByID[id].AvailableBalanceMinor = balanceMinor
	f.walletsByUser[f.walletsByID[id].UserID].AvailableBalanceMinor = balanceMinor
	return nil
}

func (f *fakeRepo) CreateTransaction(ctx context.Context, tx *sqlx.Tx, t *models.WalletTransaction) error {
	f.transactions[t.ID] = t
	if t.ClientReference != nil && *t.ClientReference != "" {
		f.byClientRef[t.FromWalletID+":"+*t.ClientReference] = t
	}
	return nil
}

func (f *fakeRepo) CreateLedgerEntry(ctx context.Context, tx *sqlx.Tx, e *models.WalletLedgerEntry) error {
	return nil
}

func (f *fakeRepo) DailyOutgoingTotal(ctx context.Context, walletID string) (int64, error) {
	return f.dailyTotal, nil
}

func testConfig() wallet.Config {
	return wallet.Config{
		DefaultCurrency:         "USD",
		MinAmountMinor:          100,
		MaxAmountMinor:          1_000_000,
		AbsoluteMaxAmountMinor:  5_000_000,
		DailyLimitMinor:         2_000_000,
		HighValueThresholdMinor: 500_000,
	}
}

func seedUserAndWallet(repo *fakeRepo, userID, email string, balance int64) {
	repo.usersByID[userID] = &models.User{ID: userID, Email: email}
	repo.usersByEmail[email] = repo.usersByID[userID]
	w := &models.Wallet{ID: userID + "-wallet", UserID: userID, Currency: "USD", Status: models.WalletActive, AvailableBalanceMinor: balance}
	repo.walletsByUser[userID] = w
	repo.walletsByID[w.ID] = w
}

func newTestSigner() *tokensigner.Signer {
	return tokensigner.New(tokensigner.Config{AccessSecret: "a", RefreshSecret: "b"})
}

func TestTransferRejectsSelfTransfer(t *testing.T) {
	repo := newFakeRepo()
	seedUserAndWallet(repo, "alice", "alice@example.com", 100000)
	svc := New(repo, newTestSigner(), testConfig())

	_, err := svc.Transfer(context.Background(), Request{
		SenderUserID:    "alice",
		RecipientUserID: "alice",
		AmountMinor:     1000,
		Currency:        "USD",
	})
	require.Error(t, err)
	assert.True(t, apperr.Is(err, apperr.CodeSameWalletTransfer))
}

func TestTransferRejectsCurrencyMismatch(t *testing.T) {
	repo := newFakeRepo()
	seedUserAndWallet(repo, "alice", "alice@example.com", 100000)
	seedUserAndWallet(repo, "bob", "bob@example.com", 0)
	svc := New(repo, newTestSigner(), testConfig())

	_, err := svc.Transfer(context.Background(), Request{
		SenderUserID:    "alice",
		RecipientUserID: "bob",
		AmountMinor:     1000,
		Currency:        "EUR",
	})
	require.Error(t, err)
	assert.True(t, apperr.Is(err, apperr.CodeValidationFailed))
}

func TestTransferRejectsAmountBelowMinimum(t *testing.T) {
	repo := newFakeRepo()
	seedUserAndWallet(repo, "alice", "alice@example.com", 100000)
	seedUserAndWallet(repo, "bob", "bob@example.com", 0)
	svc := New(repo, newTestSigner(), testConfig())

	_, err := svc.Transfer(context.Background(), Request{
		SenderUserID:    "alice",
		RecipientUserID: "bob",
		AmountMinor:     1,
		Currency:        "USD",
	})
	require.Error(t, err)
	assert.True(t, apperr.Is(err, apperr.CodeLimitExceeded))
}

func TestTransferRejectsInsufficientFunds(t *testing.T) {
	repo := newFakeRepo()
	seedUserAndWallet(repo, "alice", "alice@example.com", 500)
	seedUserAndWallet(repo, "bob", "bob@example.com", 0)
	svc := New(repo, newTestSigner(), testConfig())

	_, err := svc.Transfer(context.Background(), Request{
		SenderUserID:    "alice",
		RecipientUserID: "bob",
		AmountMinor:     1000,
		Currency:        "USD",
	})
	require.Error(t, err)
	assert.True(t, apperr.Is(err, apperr.CodeInsufficientFunds))
}

func TestTransferRejectsDailyLimitExceeded(t *testing.T) {
	repo := newFakeRepo()
	seedUserAndWallet(repo, "alice", "alice@example.com", 10_000_000)
	seedUserAndWallet(repo, "bob", "bob@example.com", 0)
	repo.dailyTotal = 1_999_999
	svc := New(repo, newTestSigner(), testConfig())

	_, err := svc.Transfer(context.Background(), Request{
		SenderUserID:    "alice",
		RecipientUserID: "bob",
		AmountMinor:     1000,
		Currency:        "USD",
	})
	require.Error(t, err)
	assert.True(t, apperr.Is(err, apperr.CodeLimitExceeded))
}

func TestTransferSucceedsAndMovesBalances(t *testing.T) {
	repo := newFakeRepo()
	seedUserAndWallet(repo, "alice", "alice@example.com", 100000)
	seedUserAndWallet(repo, "bob", "bob@example.com", 0)
	svc := New(repo, newTestSigner(), testConfig())

	result, err := svc.Transfer(context.Background(), Request{
		SenderUserID:    "alice",
		RecipientUserID: "bob",
		AmountMinor:     1000,
		Currency:        "USD",
	})
	require.NoError(t, err)
	assert.Equal(t, "SENDER", result.Role)
	assert.False(t, result.Replayed)
	assert.Equal(t, models.TransactionCompleted, result.Transaction.Status)
	assert.Equal(t, int64(99000), repo.walletsByUser["alice"].AvailableBalanceMinor)
	assert.Equal(t, int64(1000), repo.walletsByUser["bob"].AvailableBalanceMinor)
}

func TestTransferRequiresStepUpAboveThreshold(t *testing.T) {
	repo := newFakeRepo()
	seedUserAndWallet(repo, "alice", "alice@example.com", 10_000_000)
	seedUserAndWallet(repo, "bob", "bob@example.com", 0)
	svc := New(repo, newTestSigner(), testConfig())

	_, err := svc.Transfer(context.Background(), Request{
		SenderUserID:    "alice",
		RecipientUserID: "bob",
		AmountMinor:     600_000,
		Currency:        "USD",
	})
	require.Error(t, err)
	assert.True(t, apperr.Is(err, apperr.CodeUnauthorized))
}

func TestTransferSucceedsWithValidStepUpToken(t *testing.T) {
	repo := newFakeRepo()
	seedUserAndWallet(repo, "alice", "alice@example.com", 10_000_000)
	seedUserAndWallet(repo, "bob", "bob@example.com", 0)
	signer := newTestSigner()
	svc := New(repo, signer, testConfig())

	stepUpTok, _, err := signer.IssueStepUp("alice", "transaction:transfer", "chal-1")
	require.NoError(t, err)

	result, err := svc.Transfer(context.Background(), Request{
		SenderUserID:      "alice",
		RecipientUserID:   "bob",
		AmountMinor:       600_000,
		Currency:          "USD",
		StepUpHeaderToken: stepUpTok,
	})
	require.NoError(t, err)
	assert.True(t, result.Transaction.StepUpUsed)
}

func TestTransferReplaysOnMatchingClientReference(t *testing.T) {
	repo := newFakeRepo()
	seedUserAndWallet(repo, "alice", "alice@example.com", 100000)
	seedUserAndWallet(repo, "bob", "bob@example.com", 0)
	svc := New(repo, newTestSigner(), testConfig())

	ref := "order-123"
	req := Request{
		SenderUserID:    "alice",
		RecipientUserID: "bob",
		AmountMinor:     1000,
		Currency:        "USD",
		ClientReference: &ref,
	}

	first, err := svc.Transfer(context.Background(), req)
	require.NoError(t, err)
	require.False(t, first.Replayed)

	second, err := svc.Transfer(context.Background(), req)
	require.NoError(t, err)
	assert.True(t, second.Replayed)
	assert.Equal(t, first.Transaction.ID, second.Transaction.ID)
	// Balance only moved once.
	assert.Equal(t, int64(99000), repo.walletsByUser["alice"].AvailableBalanceMinor)
}

func TestTransferRejectsClientReferenceReuseWithDifferentAmount(t *testing.T) {
	repo := newFakeRepo()
	seedUserAndWallet(repo, "alice", "alice@example.com", 100000)
	seedUserAndWallet(repo, "bob", "bob@example.com", 0)
	svc := New(repo, newTestSigner(), testConfig())

	ref := "order-456"
	_, err := svc.Transfer(context.Background(), Request{
		SenderUserID: "alice", RecipientUserID: "bob", AmountMinor: 1000, Currency: "USD", ClientReference: &ref,
	})
	require.NoError(t, err)

	_, err = svc.Transfer(context.Background(), Request{
		SenderUserID: "alice", RecipientUserID: "bob", AmountMinor: 2000, Currency: "USD", ClientReference: &ref,
	})
	require.Error(t, err)
	assert.True(t, apperr.Is(err, apperr.CodeConflict))
}

func TestGetForUserReturnsRoleForBothParties(t *testing.T) {
	repo := newFakeRepo()
	seedUserAndWallet(repo, "alice", "alice@example.com", 100000)
	seedUserAndWallet(repo, "bob", "bob@example.com", 0)
	svc := New(repo, newTestSigner(), testConfig())

	result, err := svc.Transfer(context.Background(), Request{
		SenderUserID: "alice", RecipientUserID: "bob", AmountMinor: 1000, Currency: "USD",
	})
	require.NoError(t, err)

	fromSender, err := svc.GetForUser(context.Background(), "alice", result.Transaction.ID)
	require.NoError(t, err)
	assert.Equal(t, "SENDER", fromSender.Role)

	fromRecipient, err := svc.GetForUser(context.Background(), "bob", result.Transaction.ID)
	require.NoError(t, err)
	assert.Equal(t, "RECIPIENT", fromRecipient.Role)

	_, err = svc.GetForUser(context.Background(), "carol-missing", result.Transaction.ID)
	require.Error(t, err)
	assert.True(t, apperr.Is(err, apperr.CodeNotFound))
}

