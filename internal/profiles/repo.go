package profiles

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/angelmondragon/marketplace-backend/pkg/db/models"
)

// ErrInsufficientBalance means a conditional debit matched no row.
var ErrInsufficientBalance = errors.New("insufficient wallet balance")

type Repository interface {
	WithTx(tx *gorm.DB) Repository
	GetByUserID(ctx context.Context, userID uuid.UUID) (*models.Profile, error)
	GetByID(ctx context.Context, id uuid.UUID) (*models.Profile, error)
	Credit(ctx context.Context, profileID uuid.UUID, amount decimal.Decimal, at time.Time) error
	Debit(ctx context.Context, profileID uuid.UUID, amount decimal.Decimal, at time.Time) error
	GetBankAccount(ctx context.Context, id uuid.UUID) (*models.BankAccount, error)
	ListBankAccounts(ctx context.Context, profileID uuid.UUID) ([]models.BankAccount, error)
	CreateBankAccount(ctx context.Context, account *models.BankAccount) error
	DeleteBankAccount(ctx context.Context, profileID, id uuid.UUID) (bool, error)
}

type repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) GetByUserID(ctx context.Context, userID uuid.UUID) (*models.Profile, error) {
	var profile models.Profile
	if err := r.db.WithContext(ctx).Where("user_id = ?", userID).Take(&profile).Error; err != nil {
		return nil, err
	}
	return &profile, nil
}

func (r *repository) GetByID(ctx context.Context, id uuid.UUID) (*models.Profile, error) {
	var profile models.Profile
	if err := r.db.WithContext(ctx).Where("id = ?", id).Take(&profile).Error; err != nil {
		return nil, err
	}
	return &profile, nil
}

// Credit adds amount to the wallet in a single statement so concurrent
// credits never lose an update.
func (r *repository) Credit(ctx context.Context, profileID uuid.UUID, amount decimal.Decimal, at time.Time) error {
	res := r.db.WithContext(ctx).Exec(
		`UPDATE profiles SET wallet_balance = wallet_balance + ?, updated_at = ? WHERE id = ?`,
		amount, at, profileID,
	)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// Debit subtracts amount only while the balance covers it.
func (r *repository) Debit(ctx context.Context, profileID uuid.UUID, amount decimal.Decimal, at time.Time) error {
	res := r.db.WithContext(ctx).Exec(
		`UPDATE profiles SET wallet_balance = wallet_balance - ?, updated_at = ?
		 WHERE id = ? AND wallet_balance >= ?`,
		amount, at, profileID, amount,
	)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrInsufficientBalance
	}
	return nil
}

func (r *repository) GetBankAccount(ctx context.Context, id uuid.UUID) (*models.BankAccount, error) {
	var account models.BankAccount
	if err := r.db.WithContext(ctx).Where("id = ?", id).Take(&account).Error; err != nil {
		return nil, err
	}
	return &account, nil
}

// ListBankAccounts returns the default account first, then newest first.
func (r *repository) ListBankAccounts(ctx context.Context, profileID uuid.UUID) ([]models.BankAccount, error) {
	var accounts []models.BankAccount
	err := r.db.WithContext(ctx).
		Where("profile_id = ?", profileID).
		Order("is_default DESC, created_at DESC, id DESC").
		Find(&accounts).Error
	return accounts, err
}

// CreateBankAccount inserts the account. A new default account clears the
// flag on the profile's other accounts in the same transaction.
func (r *repository) CreateBankAccount(ctx context.Context, account *models.BankAccount) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if account.IsDefault {
			err := tx.Model(&models.BankAccount{}).
				Where("profile_id = ? AND is_default = ?", account.ProfileID, true).
				Update("is_default", false).Error
			if err != nil {
				return err
			}
		}
		return tx.Create(account).Error
	})
}

// DeleteBankAccount removes the account only when the profile owns it; the
// bool reports whether a row was deleted.
func (r *repository) DeleteBankAccount(ctx context.Context, profileID, id uuid.UUID) (bool, error) {
	res := r.db.WithContext(ctx).
		Where("id = ? AND profile_id = ?", id, profileID).
		Delete(&models.BankAccount{})
	return res.RowsAffected > 0, res.Error
}
