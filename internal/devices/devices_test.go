package devices

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vaultline/wallet-core/internal/apperr"
	"github.com/vaultline/wallet-core/internal/models"
)

type fakeRepo struct {
	devices map[string]*models.Device
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{devices: map[string]*models.Device{}}
}

func (f *fakeRepo) ListDevicesForUser(ctx context.Context, userID string) ([]models.Device, error) {
	var out []models.Device
	for _, d := range f.devices {
		if d.UserID == userID {
			out = append(out, *d)
		}
	}
	return out, nil
}

func (f *fakeRepo) GetDevice(ctx context.Context, id string) (*models.Device, error) {
	return f.devices[id], nil
}

func (f *fakeRepo) DeactivateDevice(ctx context.Context, id string, at time.Time, reason string) error {
	d := f.devices[id]
	d.Active = false
	d.DeactivatedAt = &at
	d.DeactivatedReason = &reason
	return nil
}

func TestRemoveDeactivatesOwnedDevice(t *testing.T) {
	repo := newFakeRepo()
	repo.devices["device-1"] = &models.Device{ID: "device-1", UserID: "alice", Active: true}
	svc := New(repo)

	err := svc.Remove(context.Background(), "alice", "device-1")
	require.NoError(t, err)
	assert.False(t, repo.devices["device-1"].Active)
	assert.Equal(t, "user_removed", *repo.devices["device-1"].DeactivatedReason)
}

func TestRemoveRejectsOtherUsersDevice(t *testing.T) {
	repo := newFakeRepo()
	repo.devices["device-1"] = &models.Device{ID: "device-1", UserID: "alice", Active: true}
	svc := New(repo)

	err := svc.Remove(context.Background(), "bob", "device-1")
	require.Error(t, err)
	assert.True(t, apperr.Is(err, apperr.CodeNotFound))
	assert.True(t, repo.devices["device-1"].Active)
}

func TestRemoveMissingDevice(t *testing.T) {
	repo := newFakeRepo()
	svc := New(repo)

	err := svc.Remove(context.Background(), "alice", "does-not-exist")
	require.Error(t, err)
	assert.True(t, apperr.Is(err, apperr.CodeNotFound))
}

func TestRemoveAlreadyInactiveIsNoop(t *testing.T) {
	repo := newFakeRepo()
	repo.devices["device-1"] = &models.Device{ID: "device-1", UserID: "alice", Active: false}
	svc := New(repo)

	err := svc.Remove(context.Background(), "alice", "device-1")
	require.NoError(t, err)
	assert.Nil(t, repo.devices["device-1"].DeactivatedReason)
}

func TestListReturnsAllDevicesForUser(t *testing.T) {
	repo := newFakeRepo()
	repo.devices["d1"] = &models.Device{ID: "d1", UserID: "alice", Active: true}
	repo.devices["d2"] = &models.Device{ID: "d2", UserID: "alice", Active: false}
	repo.devices["d3"] = &models.Device{ID: "d3", UserID: "bob", Active: true}
	svc := New(repo)

	list, err := svc.List(context.Background(), "alice")
	require.NoError(t, err)
	assert.Len(t, list, 2)
}
