package profiles

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/marketplace-backend/pkg/db/models"
	pkgerrors "github.com/angelmondragon/marketplace-backend/pkg/errors"
)

// Service resolves the profile behind an authenticated user and manages the
// vendor's payout bank accounts.
type Service interface {
	ForUser(ctx context.Context, userID uuid.UUID) (*models.Profile, error)
	RequireVendor(ctx context.Context, userID uuid.UUID) (*models.Profile, error)
	BankAccounts(ctx context.Context, profileID uuid.UUID) ([]models.BankAccount, error)
	AddBankAccount(ctx context.Context, profileID uuid.UUID, input BankAccountInput) (*models.BankAccount, error)
	RemoveBankAccount(ctx context.Context, profileID, accountID uuid.UUID) error
}

type service struct {
	repo Repository
}

func NewService(repo Repository) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("profile repository required")
	}
	return &service{repo: repo}, nil
}

func (s *service) ForUser(ctx context.Context, userID uuid.UUID) (*models.Profile, error) {
	if userID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "authentication required")
	}
	profile, err := s.repo.GetByUserID(ctx, userID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "profile not found")
	}
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load profile")
	}
	return profile, nil
}

// RequireVendor returns the caller's profile only when it is an admitted
// vendor.
func (s *service) RequireVendor(ctx context.Context, userID uuid.UUID) (*models.Profile, error) {
	profile, err := s.ForUser(ctx, userID)
	if err != nil {
		if pkgerrors.IsCode(err, pkgerrors.CodeNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeForbidden, "Vendor access required")
		}
		return nil, err
	}
	if !profile.IsApprovedVendor() {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "Vendor access required")
	}
	return profile, nil
}
