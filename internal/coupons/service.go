package coupons

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/angelmondragon/marketplace-backend/pkg/db/models"
	"github.com/angelmondragon/marketplace-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/marketplace-backend/pkg/errors"
)

// Redemption is a coupon applied to an order.
type Redemption struct {
	Coupon   *models.Coupon
	Discount decimal.Decimal
}

// Preview is the non-binding answer to "what would this code give me".
type Preview struct {
	Valid          bool               `json:"valid"`
	DiscountType   enums.DiscountType `json:"discount_type,omitempty"`
	DiscountValue  decimal.Decimal    `json:"discount_value"`
	DiscountAmount decimal.Decimal    `json:"discount_amount"`
	Message        string             `json:"message"`
}

type Service interface {
	Preview(ctx context.Context, code string, subtotal decimal.Decimal) (Preview, error)
	RedeemTx(ctx context.Context, tx *gorm.DB, code string, subtotal decimal.Decimal) (*Redemption, error)
}

type service struct {
	repo Repository
	now  func() time.Time
}

func NewService(repo Repository, now func() time.Time) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("coupon repository required")
	}
	if now == nil {
		now = time.Now
	}
	return &service{repo: repo, now: now}, nil
}

func (s *service) lookup(ctx context.Context, repo Repository, code string) (*models.Coupon, error) {
	code = strings.TrimSpace(code)
	if code == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "Invalid coupon code")
	}
	coupon, err := repo.FindActiveByCode(ctx, code)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "Invalid coupon code")
	}
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load coupon")
	}
	return coupon, nil
}

// Preview validates without redeeming. Rule violations come back as an
// invalid preview rather than an error.
func (s *service) Preview(ctx context.Context, code string, subtotal decimal.Decimal) (Preview, error) {
	coupon, err := s.lookup(ctx, s.repo, code)
	if err == nil {
		var discount decimal.Decimal
		discount, err = Validate(coupon, subtotal, s.now())
		if err == nil {
			return Preview{
				Valid:          true,
				DiscountType:   coupon.DiscountType,
				DiscountValue:  coupon.DiscountValue,
				DiscountAmount: decimal.Min(discount, subtotal),
				Message:        "Coupon applied successfully",
			}, nil
		}
	}
	if pkgerrors.IsCode(err, pkgerrors.CodeValidation) {
		return Preview{Valid: false, Message: pkgerrors.As(err).Message()}, nil
	}
	return Preview{}, err
}

// RedeemTx validates the coupon inside tx and consumes one use. Losing the
// race for the last use fails with Validation.
func (s *service) RedeemTx(ctx context.Context, tx *gorm.DB, code string, subtotal decimal.Decimal) (*Redemption, error) {
	repo := s.repo.WithTx(tx)
	coupon, err := s.lookup(ctx, repo, code)
	if err != nil {
		return nil, err
	}
	now := s.now()
	discount, err := Validate(coupon, subtotal, now)
	if err != nil {
		return nil, err
	}
	if err := repo.Redeem(ctx, coupon.ID, now); err != nil {
		if errors.Is(err, ErrUsageExhausted) {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "Coupon usage limit reached")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "redeem coupon")
	}
	coupon.UsedCount++
	return &Redemption{Coupon: coupon, Discount: discount}, nil
}
