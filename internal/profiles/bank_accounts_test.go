package profiles

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/marketplace-backend/pkg/db/dbtest"
	"github.com/angelmondragon/marketplace-backend/pkg/db/models"
	pkgerrors "github.com/angelmondragon/marketplace-backend/pkg/errors"
)

func TestAddBankAccountDefaults(t *testing.T) {
	conn := dbtest.Open(t)
	svc, err := NewService(NewRepository(conn))
	require.NoError(t, err)
	ctx := context.Background()
	vendor := seedProfile(t, conn, true, true, "0")

	first, err := svc.AddBankAccount(ctx, vendor.ID, BankAccountInput{
		BankName:      " First Bank ",
		AccountName:   "Acme Foods",
		AccountNumber: "0001",
	})
	require.NoError(t, err)
	assert.True(t, first.IsDefault)
	assert.Equal(t, "First Bank", first.BankName)
	assert.Nil(t, first.RoutingNumber)

	second, err := svc.AddBankAccount(ctx, vendor.ID, BankAccountInput{
		BankName:      "Second Bank",
		AccountName:   "Acme Foods",
		AccountNumber: "0002",
		SwiftCode:     "SBKAUS33",
	})
	require.NoError(t, err)
	assert.False(t, second.IsDefault)
	require.NotNil(t, second.SwiftCode)

	third, err := svc.AddBankAccount(ctx, vendor.ID, BankAccountInput{
		BankName:      "Third Bank",
		AccountName:   "Acme Foods",
		AccountNumber: "0003",
		IsDefault:     true,
	})
	require.NoError(t, err)
	assert.True(t, third.IsDefault)

	accounts, err := svc.BankAccounts(ctx, vendor.ID)
	require.NoError(t, err)
	require.Len(t, accounts, 3)
	assert.Equal(t, third.ID, accounts[0].ID)
	defaults := 0
	for _, a := range accounts {
		if a.IsDefault {
			defaults++
		}
	}
	assert.Equal(t, 1, defaults)

	other := seedProfile(t, conn, true, true, "0")
	accounts, err = svc.BankAccounts(ctx, other.ID)
	require.NoError(t, err)
	assert.NotNil(t, accounts)
	assert.Empty(t, accounts)
}

func TestAddBankAccountRequiresFields(t *testing.T) {
	conn := dbtest.Open(t)
	svc, err := NewService(NewRepository(conn))
	require.NoError(t, err)
	vendor := seedProfile(t, conn, true, true, "0")

	_, err = svc.AddBankAccount(context.Background(), vendor.ID, BankAccountInput{BankName: "Bank", AccountName: "  "})
	assert.Equal(t, pkgerrors.CodeValidation, pkgerrors.CodeOf(err))
}

func TestRemoveBankAccountScopedToOwner(t *testing.T) {
	conn := dbtest.Open(t)
	svc, err := NewService(NewRepository(conn))
	require.NoError(t, err)
	ctx := context.Background()
	vendor := seedProfile(t, conn, true, true, "0")
	other := seedProfile(t, conn, true, true, "0")

	account, err := svc.AddBankAccount(ctx, vendor.ID, BankAccountInput{
		BankName: "Bank", AccountName: "Acme", AccountNumber: "0001",
	})
	require.NoError(t, err)

	err = svc.RemoveBankAccount(ctx, other.ID, account.ID)
	assert.Equal(t, pkgerrors.CodeNotFound, pkgerrors.CodeOf(err))

	require.NoError(t, svc.RemoveBankAccount(ctx, vendor.ID, account.ID))

	var count int64
	require.NoError(t, conn.Model(&models.BankAccount{}).Count(&count).Error)
	assert.Zero(t, count)

	err = svc.RemoveBankAccount(ctx, vendor.ID, account.ID)
	assert.Equal(t, pkgerrors.CodeNotFound, pkgerrors.CodeOf(err))
}

type referencedAccountRepo struct {
	Repository
}

func (referencedAccountRepo) DeleteBankAccount(context.Context, uuid.UUID, uuid.UUID) (bool, error) {
	return false, &pgconn.PgError{Code: "23503", ConstraintName: "vendor_payments_bank_account_id_fkey"}
}

func TestRemoveBankAccountReferencedByPayout(t *testing.T) {
	svc, err := NewService(referencedAccountRepo{Repository: NewRepository(dbtest.Open(t))})
	require.NoError(t, err)

	err = svc.RemoveBankAccount(context.Background(), uuid.New(), uuid.New())
	assert.Equal(t, pkgerrors.CodeConflict, pkgerrors.CodeOf(err))
}
