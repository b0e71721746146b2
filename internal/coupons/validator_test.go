package coupons

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"

	"github.com/angelmondragon/marketplace-backend/pkg/db/models"
	"github.com/angelmondragon/marketplace-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/marketplace-backend/pkg/errors"
)

func intPtr(v int) *int { return &v }

func TestValidate(t *testing.T) {
	now := time.Date(2026, 6, 1, 12, 0, 0, 0, time.UTC)
	base := func() *models.Coupon {
		return &models.Coupon{
			Code:          "SAVE10",
			DiscountType:  enums.DiscountTypePercentage,
			DiscountValue: decimal.NewFromInt(10),
			MinPurchase:   decimal.NewFromInt(50),
			ValidFrom:     now.Add(-24 * time.Hour),
			ValidTo:       now.Add(24 * time.Hour),
			IsActive:      true,
		}
	}

	tests := []struct {
		name     string
		mutate   func(c *models.Coupon)
		subtotal string
		want     string
		wantMsg  string
	}{
		{name: "percentage", subtotal: "130.00", want: "13.00"},
		{name: "fixed", mutate: func(c *models.Coupon) {
			c.DiscountType = enums.DiscountTypeFixed
			c.DiscountValue = decimal.RequireFromString("7.50")
		}, subtotal: "130.00", want: "7.50"},
		{name: "unknown type grants nothing", mutate: func(c *models.Coupon) {
			c.DiscountType = enums.DiscountType("bogo")
		}, subtotal: "130.00", want: "0"},
		{name: "inactive", mutate: func(c *models.Coupon) { c.IsActive = false }, subtotal: "130", wantMsg: "Invalid coupon code"},
		{name: "not yet valid", mutate: func(c *models.Coupon) { c.ValidFrom = now.Add(time.Hour) }, subtotal: "130", wantMsg: "Coupon has expired"},
		{name: "expired", mutate: func(c *models.Coupon) { c.ValidTo = now.Add(-time.Hour) }, subtotal: "130", wantMsg: "Coupon has expired"},
		{name: "under minimum", subtotal: "49.99", wantMsg: "Minimum purchase amount of 50.00 required"},
		{name: "cap reached", mutate: func(c *models.Coupon) {
			c.MaxUses = intPtr(3)
			c.UsedCount = 3
		}, subtotal: "130", wantMsg: "Coupon usage limit reached"},
		{name: "cap has room", mutate: func(c *models.Coupon) {
			c.MaxUses = intPtr(3)
			c.UsedCount = 2
		}, subtotal: "130", want: "13.00"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := base()
			if tt.mutate != nil {
				tt.mutate(c)
			}
			got, err := Validate(c, decimal.RequireFromString(tt.subtotal), now)
			if tt.wantMsg != "" {
				assert.Equal(t, pkgerrors.CodeValidation, pkgerrors.CodeOf(err))
				assert.Equal(t, tt.wantMsg, pkgerrors.As(err).Message())
				return
			}
			assert.NoError(t, err)
			assert.True(t, got.Equal(decimal.RequireFromString(tt.want)), got.String())
		})
	}
}

func TestValidateNilCoupon(t *testing.T) {
	_, err := Validate(nil, decimal.NewFromInt(10), time.Now())
	assert.Equal(t, pkgerrors.CodeValidation, pkgerrors.CodeOf(err))
}
