package coupons

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/angelmondragon/marketplace-backend/pkg/db/models"
	"github.com/angelmondragon/marketplace-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/marketplace-backend/pkg/errors"
)

var hundred = decimal.NewFromInt(100)

// Validate evaluates coupon rules against a subtotal at the given instant and
// returns the discount it grants. It has no side effects.
func Validate(coupon *models.Coupon, subtotal decimal.Decimal, now time.Time) (decimal.Decimal, error) {
	if coupon == nil || !coupon.IsActive {
		return decimal.Zero, pkgerrors.New(pkgerrors.CodeValidation, "Invalid coupon code")
	}
	if now.Before(coupon.ValidFrom) || now.After(coupon.ValidTo) {
		return decimal.Zero, pkgerrors.New(pkgerrors.CodeValidation, "Coupon has expired")
	}
	if subtotal.LessThan(coupon.MinPurchase) {
		return decimal.Zero, pkgerrors.Newf(pkgerrors.CodeValidation, "Minimum purchase amount of %s required", coupon.MinPurchase.StringFixed(2))
	}
	if coupon.MaxUses != nil && coupon.UsedCount >= *coupon.MaxUses {
		return decimal.Zero, pkgerrors.New(pkgerrors.CodeValidation, "Coupon usage limit reached")
	}
	return Discount(coupon.DiscountType, coupon.DiscountValue, subtotal), nil
}

// Discount applies a coupon value to a subtotal. Unknown types grant nothing.
func Discount(kind enums.DiscountType, value, subtotal decimal.Decimal) decimal.Decimal {
	switch kind {
	case enums.DiscountTypePercentage:
		return subtotal.Mul(value).Div(hundred).Round(2)
	case enums.DiscountTypeFixed:
		return value.Round(2)
	default:
		return decimal.Zero
	}
}
