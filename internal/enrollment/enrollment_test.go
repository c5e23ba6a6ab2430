package enrollment

import (
	"context"
	"testing"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vaultline/wallet-core/internal/apperr"
	"github.com/vaultline/wallet-core/internal/challenge"
	"github.com/vaultline/wallet-core/internal/models"
	"github.com/vaultline/wallet-core/internal/ratelimit"
	"github.com/vaultline/wallet-core/internal/testutil"
)

type fakeRepo struct {
	usersByID map[string]*models.User
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{usersByID: map[string]*models.User{}}
}

func (f *fakeRepo) GetUserByID(ctx context.Context, id string) (*models.User, error) {
	return f.usersByID[id], nil
}

func (f *fakeRepo) ListCredentialsForUser(ctx context.Context, userID string) ([]models.Credential, error) {
	return nil, nil
}

func (f *fakeRepo) GetCredentialByID(ctx context.Context, credentialID string) (*models.Credential, error) {
	return nil, nil
}

func (f *fakeRepo) WithTx(ctx context.Context, fn func(tx *sqlx.Tx) error) error {
	return fn(nil)
}

func (f *fakeRepo) UpsertCredential(ctx context.Context, tx *sqlx.Tx, c *models.Credential) error {
	return nil
}

func (f *fakeRepo) CreateDevice(ctx context.Context, tx *sqlx.Tx, d *models.Device) error {
	return nil
}

func newTestService(t *testing.T, repo *fakeRepo) *Service {
	t.Helper()
	store := testutil.NewEphemeralStore(t)
	challengeStore := challenge.New(store, time.Minute)
	limiter := ratelimit.New(store)
	return New(repo, nil, challengeStore, limiter)
}

func TestOptionsRejectsUnknownUser(t *testing.T) {
	svc := newTestService(t, newFakeRepo())

	_, _, err := svc.Options(context.Background(), "ghost", "1.2.3.4", nil)
	require.Error(t, err)
	assert.True(t, apperr.Is(err, apperr.CodeUnauthorized))
}

func TestOptionsRejectsUnverifiedUser(t *testing.T) {
	repo := newFakeRepo()
	repo.usersByID["user-1"] = &models.User{ID: "user-1", EmailVerified: false}
	svc := newTestService(t, repo)

	_, _, err := svc.Options(context.Background(), "user-1", "1.2.3.4", nil)
	require.Error(t, err)
	assert.True(t, apperr.Is(err, apperr.CodeEmailNotVerified))
}

func TestVerifyRejectsExpiredChallenge(t *testing.T) {
	svc := newTestService(t, newFakeRepo())

	_, err := svc.Verify(context.Background(), "never-created", nil)
	require.Error(t, err)
	assert.True(t, apperr.Is(err, apperr.CodeNotFound))
}
