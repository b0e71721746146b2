package coupons

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/marketplace-backend/pkg/db/models"
)

// ErrUsageExhausted is returned when a conditional redemption matched no row.
var ErrUsageExhausted = errors.New("coupon usage exhausted")

type Repository interface {
	WithTx(tx *gorm.DB) Repository
	FindActiveByCode(ctx context.Context, code string) (*models.Coupon, error)
	Redeem(ctx context.Context, couponID uuid.UUID, at time.Time) error
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

// FindActiveByCode returns gorm.ErrRecordNotFound when no active coupon has
// exactly this code.
func (r *repository) FindActiveByCode(ctx context.Context, code string) (*models.Coupon, error) {
	var coupon models.Coupon
	err := r.db.WithContext(ctx).
		Where("code = ? AND is_active = ?", code, true).
		Take(&coupon).Error
	if err != nil {
		return nil, err
	}
	return &coupon, nil
}

// Redeem increments used_count only while the cap still has room, so
// concurrent redemptions can never push it past max_uses.
func (r *repository) Redeem(ctx context.Context, couponID uuid.UUID, at time.Time) error {
	res := r.db.WithContext(ctx).Exec(
		`UPDATE coupons SET used_count = used_count + 1, updated_at = ?
		 WHERE id = ? AND is_active = ? AND (max_uses IS NULL OR used_count < max_uses)`,
		at, couponID, true,
	)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrUsageExhausted
	}
	return nil
}
