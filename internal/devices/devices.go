// Package devices implements device listing and removal for an
// authenticated user: the account-management counterpart to enrollment.
// Grounded on the credential revoke/deactivate pairing already used by
// the sign-count regression policy (internal/store/credentials.go).
package devices

import (
	"context"
	"time"

	"github.com/vaultline/wallet-core/internal/apperr"
	"github.com/vaultline/wallet-core/internal/models"
)

const removedReason = "user_removed"

// Repository is the persistence dependency this component needs.
type Repository interface {
	ListDevicesForUser(ctx context.Context, userID string) ([]models.Device, error)
	GetDevice(ctx context.Context, id string) (*models.Device, error)
	DeactivateDevice(ctx context.Context, id string, at time.Time, reason string) error
}

// Service implements device listing and removal.
type Service struct {
	repo Repository
}

func New(repo Repository) *Service {
	return &Service{repo: repo}
}

// List returns every device ever bound to userID, active or not.
func (s *Service) List(ctx context.Context, userID string) ([]models.Device, error) {
	return s.repo.ListDevicesForUser(ctx, userID)
}

// Remove deactivates deviceID on behalf of userID. The credential
// itself is left intact so a future enrollment can bind a fresh device
// to it; only the sign-out-this-device effect is applied here.
func (s *Service) Remove(ctx context.Context, userID, deviceID string) error {
	d, err := s.repo.GetDevice(ctx, deviceID)
	if err != nil {
		return err
	}
	if d == nil || d.UserID != userID {
		return apperr.New(apperr.CodeNotFound, "device not found")
	}
	if !d.Active {
		return nil
	}
	return s.repo.DeactivateDevice(ctx, deviceID, time.Now(), removedReason)
}
