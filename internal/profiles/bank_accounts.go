package profiles

import (
	"context"
	"strings"

	"github.com/google/uuid"

	"github.com/angelmondragon/marketplace-backend/pkg/db"
	"github.com/angelmondragon/marketplace-backend/pkg/db/models"
	pkgerrors "github.com/angelmondragon/marketplace-backend/pkg/errors"
)

// BankAccountInput is a payout destination submitted by a vendor.
type BankAccountInput struct {
	BankName      string
	AccountName   string
	AccountNumber string
	RoutingNumber string
	SwiftCode     string
	IsDefault     bool
}

func (s *service) BankAccounts(ctx context.Context, profileID uuid.UUID) ([]models.BankAccount, error) {
	accounts, err := s.repo.ListBankAccounts(ctx, profileID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list bank accounts")
	}
	if accounts == nil {
		accounts = []models.BankAccount{}
	}
	return accounts, nil
}

// AddBankAccount stores a new account for the profile. The first account a
// profile adds is always its default.
func (s *service) AddBankAccount(ctx context.Context, profileID uuid.UUID, input BankAccountInput) (*models.BankAccount, error) {
	account := models.BankAccount{
		ID:            uuid.New(),
		ProfileID:     profileID,
		BankName:      strings.TrimSpace(input.BankName),
		AccountName:   strings.TrimSpace(input.AccountName),
		AccountNumber: strings.TrimSpace(input.AccountNumber),
		RoutingNumber: optionalString(input.RoutingNumber),
		SwiftCode:     optionalString(input.SwiftCode),
		IsDefault:     input.IsDefault,
	}
	if account.BankName == "" || account.AccountName == "" || account.AccountNumber == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "bank name, account name and account number are required")
	}

	existing, err := s.repo.ListBankAccounts(ctx, profileID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list bank accounts")
	}
	if len(existing) == 0 {
		account.IsDefault = true
	}

	if err := s.repo.CreateBankAccount(ctx, &account); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create bank account")
	}
	return &account, nil
}

func (s *service) RemoveBankAccount(ctx context.Context, profileID, accountID uuid.UUID) error {
	deleted, err := s.repo.DeleteBankAccount(ctx, profileID, accountID)
	switch {
	case db.IsForeignKeyViolation(err):
		return pkgerrors.New(pkgerrors.CodeConflict, "bank account is referenced by a payout request")
	case err != nil:
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "delete bank account")
	case !deleted:
		return pkgerrors.New(pkgerrors.CodeNotFound, "bank account not found")
	}
	return nil
}

func optionalString(v string) *string {
	v = strings.TrimSpace(v)
	if v == "" {
		return nil
	}
	return &v
}
