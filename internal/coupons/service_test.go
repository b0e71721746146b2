package coupons

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/angelmondragon/marketplace-backend/pkg/db/dbtest"
	"github.com/angelmondragon/marketplace-backend/pkg/db/models"
	"github.com/angelmondragon/marketplace-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/marketplace-backend/pkg/errors"
)

var fixedNow = time.Date(2026, 6, 1, 12, 0, 0, 0, time.UTC)

func seedCoupon(t *testing.T, conn *gorm.DB, code string, maxUses *int) models.Coupon {
	t.Helper()
	coupon := models.Coupon{
		ID:            uuid.New(),
		Code:          code,
		DiscountType:  enums.DiscountTypePercentage,
		DiscountValue: decimal.NewFromInt(10),
		MinPurchase:   decimal.NewFromInt(50),
		MaxUses:       maxUses,
		ValidFrom:     fixedNow.Add(-time.Hour),
		ValidTo:       fixedNow.Add(time.Hour),
		IsActive:      true,
	}
	require.NoError(t, conn.Create(&coupon).Error)
	return coupon
}

func newTestService(t *testing.T, conn *gorm.DB) Service {
	t.Helper()
	svc, err := NewService(NewRepository(conn), func() time.Time { return fixedNow })
	require.NoError(t, err)
	return svc
}

func TestRedeemTxStopsAtCap(t *testing.T) {
	conn := dbtest.Open(t)
	coupon := seedCoupon(t, conn, "SAVE10", intPtr(2))
	svc := newTestService(t, conn)
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		err := conn.Transaction(func(tx *gorm.DB) error {
			r, err := svc.RedeemTx(ctx, tx, "SAVE10", decimal.NewFromInt(130))
			if err != nil {
				return err
			}
			assert.True(t, r.Discount.Equal(decimal.NewFromInt(13)))
			return nil
		})
		require.NoError(t, err)
	}

	err := conn.Transaction(func(tx *gorm.DB) error {
		_, err := svc.RedeemTx(ctx, tx, "SAVE10", decimal.NewFromInt(130))
		return err
	})
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CodeValidation, pkgerrors.CodeOf(err))

	var stored models.Coupon
	require.NoError(t, conn.First(&stored, "id = ?", coupon.ID).Error)
	assert.Equal(t, 2, stored.UsedCount)
}

func TestRedeemTxRolledBackLeavesCountUnchanged(t *testing.T) {
	conn := dbtest.Open(t)
	coupon := seedCoupon(t, conn, "ONCE", intPtr(1))
	svc := newTestService(t, conn)

	err := conn.Transaction(func(tx *gorm.DB) error {
		if _, err := svc.RedeemTx(context.Background(), tx, "ONCE", decimal.NewFromInt(100)); err != nil {
			return err
		}
		return pkgerrors.New(pkgerrors.CodeValidation, "insufficient stock for Widget")
	})
	require.Error(t, err)

	var stored models.Coupon
	require.NoError(t, conn.First(&stored, "id = ?", coupon.ID).Error)
	assert.Zero(t, stored.UsedCount)
}

func TestRedeemTxUnknownCode(t *testing.T) {
	conn := dbtest.Open(t)
	svc := newTestService(t, conn)

	_, err := svc.RedeemTx(context.Background(), conn, "NOPE", decimal.NewFromInt(100))
	require.Error(t, err)
	assert.Equal(t, "Invalid coupon code", pkgerrors.As(err).Message())
}

func TestPreview(t *testing.T) {
	conn := dbtest.Open(t)
	seedCoupon(t, conn, "SAVE10", nil)
	svc := newTestService(t, conn)
	ctx := context.Background()

	ok, err := svc.Preview(ctx, "SAVE10", decimal.NewFromInt(130))
	require.NoError(t, err)
	assert.True(t, ok.Valid)
	assert.Equal(t, enums.DiscountTypePercentage, ok.DiscountType)
	assert.True(t, ok.DiscountAmount.Equal(decimal.NewFromInt(13)))

	under, err := svc.Preview(ctx, "SAVE10", decimal.NewFromInt(20))
	require.NoError(t, err)
	assert.False(t, under.Valid)
	assert.Contains(t, under.Message, "Minimum purchase")

	unknown, err := svc.Preview(ctx, "MISSING", decimal.NewFromInt(20))
	require.NoError(t, err)
	assert.False(t, unknown.Valid)

	var stored models.Coupon
	require.NoError(t, conn.First(&stored, "code = ?", "SAVE10").Error)
	assert.Zero(t, stored.UsedCount, "preview must not redeem")
}
