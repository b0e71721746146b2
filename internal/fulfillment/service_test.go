package fulfillment

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/angelmondragon/marketplace-backend/internal/ledger"
	"github.com/angelmondragon/marketplace-backend/internal/orders"
	"github.com/angelmondragon/marketplace-backend/internal/pricing"
	"github.com/angelmondragon/marketplace-backend/internal/profiles"
	"github.com/angelmondragon/marketplace-backend/internal/referrals"
	"github.com/angelmondragon/marketplace-backend/pkg/db"
	"github.com/angelmondragon/marketplace-backend/pkg/db/dbtest"
	"github.com/angelmondragon/marketplace-backend/pkg/db/models"
	"github.com/angelmondragon/marketplace-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/marketplace-backend/pkg/errors"
	"github.com/angelmondragon/marketplace-backend/pkg/outbox"
)

var fixedNow = time.Date(2026, 6, 1, 12, 0, 0, 0, time.UTC)

func TestCanTransition(t *testing.T) {
	legal := [][2]enums.SupplierStatus{
		{enums.SupplierStatusPending, enums.SupplierStatusProcessing},
		{enums.SupplierStatusPending, enums.SupplierStatusShipped},
		{enums.SupplierStatusPending, enums.SupplierStatusCancelled},
		{enums.SupplierStatusProcessing, enums.SupplierStatusShipped},
		{enums.SupplierStatusProcessing, enums.SupplierStatusCancelled},
		{enums.SupplierStatusShipped, enums.SupplierStatusDelivered},
		{enums.SupplierStatusShipped, enums.SupplierStatusCancelled},
	}
	for _, pair := range legal {
		assert.True(t, CanTransition(pair[0], pair[1]), "%s -> %s", pair[0], pair[1])
	}

	illegal := [][2]enums.SupplierStatus{
		{enums.SupplierStatusPending, enums.SupplierStatusDelivered},
		{enums.SupplierStatusProcessing, enums.SupplierStatusPending},
		{enums.SupplierStatusShipped, enums.SupplierStatusProcessing},
		{enums.SupplierStatusDelivered, enums.SupplierStatusCancelled},
		{enums.SupplierStatusCancelled, enums.SupplierStatusPending},
		{enums.SupplierStatusDelivered, enums.SupplierStatusDelivered},
	}
	for _, pair := range illegal {
		assert.False(t, CanTransition(pair[0], pair[1]), "%s -> %s", pair[0], pair[1])
	}
	assert.True(t, IsTerminal(enums.SupplierStatusDelivered))
	assert.True(t, IsTerminal(enums.SupplierStatusCancelled))
	assert.False(t, IsTerminal(enums.SupplierStatusShipped))
}

type fixture struct {
	conn     *gorm.DB
	svc      Service
	vendor   models.Profile
	referrer models.Profile
	supplier models.OrderSupplier
}

func newFixture(t *testing.T, withReferrer bool) *fixture {
	t.Helper()
	conn := dbtest.Open(t)
	now := func() time.Time { return fixedNow }

	ordersRepo := orders.NewRepository(conn)
	publisher := outbox.NewService(outbox.NewRepository(conn), nil)
	ledgerSvc, err := ledger.NewService(ledger.NewRepository(conn))
	require.NoError(t, err)
	referralSvc, err := referrals.NewService(referrals.ServiceParams{
		Orders:   ordersRepo,
		Profiles: profiles.NewRepository(conn),
		Ledger:   ledgerSvc,
		Outbox:   publisher,
		Rates:    pricing.Rates{ReferralRate: decimal.RequireFromString("0.05")},
		Now:      now,
	})
	require.NoError(t, err)
	svc, err := NewService(ServiceParams{
		Tx:        db.Wrap(conn),
		Orders:    ordersRepo,
		Referrals: referralSvc,
		Outbox:    publisher,
		Now:       now,
	})
	require.NoError(t, err)

	f := &fixture{conn: conn, svc: svc}
	f.vendor = models.Profile{ID: uuid.New(), UserID: uuid.New(), IsVendor: true, VendorAdmission: true}
	f.referrer = models.Profile{ID: uuid.New(), UserID: uuid.New(), WalletBalance: decimal.NewFromInt(1)}
	customer := models.Profile{ID: uuid.New(), UserID: uuid.New()}
	if withReferrer {
		customer.ReferredByID = &f.referrer.ID
	}
	for _, p := range []*models.Profile{&f.vendor, &f.referrer, &customer} {
		require.NoError(t, conn.Create(p).Error)
	}

	order := models.Order{
		ID:              uuid.New(),
		CustomerID:      customer.UserID,
		OrderNumber:     "ORD-0000BEEF",
		Status:          enums.OrderStatusConfirmed,
		Subtotal:        decimal.NewFromInt(100),
		ShippingCost:    decimal.Zero,
		Tax:             decimal.NewFromInt(10),
		Discount:        decimal.Zero,
		Total:           decimal.NewFromInt(110),
		ShippingAddress: "1 Market St",
		BillingAddress:  "1 Market St",
		Phone:           "555",
		Email:           "buyer@example.com",
	}
	require.NoError(t, ordersRepo.CreateOrder(context.Background(), &order))
	f.supplier = models.OrderSupplier{
		ID:               uuid.New(),
		OrderID:          order.ID,
		VendorID:         f.vendor.ID,
		Status:           enums.SupplierStatusPending,
		Subtotal:         decimal.NewFromInt(100),
		CommissionRate:   decimal.RequireFromString("0.10"),
		CommissionAmount: decimal.NewFromInt(10),
		PayoutAmount:     decimal.NewFromInt(90),
	}
	require.NoError(t, ordersRepo.CreateSuppliers(context.Background(), []models.OrderSupplier{f.supplier}))
	return f
}

func (f *fixture) update(t *testing.T, status enums.SupplierStatus, tracking *string) (*models.OrderSupplier, error) {
	t.Helper()
	return f.svc.UpdateVendorOrder(context.Background(), f.vendor.ID, f.supplier.ID, Input{Status: status, TrackingNumber: tracking})
}

func (f *fixture) walletOf(t *testing.T, id uuid.UUID) decimal.Decimal {
	t.Helper()
	var p models.Profile
	require.NoError(t, f.conn.First(&p, "id = ?", id).Error)
	return p.WalletBalance
}

func (f *fixture) countEvents(t *testing.T, eventType enums.OutboxEventType) int64 {
	t.Helper()
	var n int64
	require.NoError(t, f.conn.Model(&models.OutboxEvent{}).Where("event_type = ?", eventType).Count(&n).Error)
	return n
}

func TestUpdateVendorOrderShipsAndDelivers(t *testing.T) {
	f := newFixture(t, true)
	tracking := " 1Z999 "

	shipped, err := f.update(t, enums.SupplierStatusShipped, &tracking)
	require.NoError(t, err)
	assert.Equal(t, enums.SupplierStatusShipped, shipped.Status)
	require.NotNil(t, shipped.ShippedAt)
	require.NotNil(t, shipped.TrackingNumber)
	assert.Equal(t, "1Z999", *shipped.TrackingNumber)

	delivered, err := f.update(t, enums.SupplierStatusDelivered, nil)
	require.NoError(t, err)
	require.NotNil(t, delivered.DeliveredAt)

	var stored models.OrderSupplier
	require.NoError(t, f.conn.First(&stored, "id = ?", f.supplier.ID).Error)
	assert.Equal(t, enums.SupplierStatusDelivered, stored.Status)
	assert.NotNil(t, stored.ShippedAt)
	assert.NotNil(t, stored.DeliveredAt)
	assert.NotNil(t, stored.ReferralSettledAt)
	assert.Equal(t, "1Z999", *stored.TrackingNumber)

	assert.True(t, f.walletOf(t, f.referrer.ID).Equal(decimal.RequireFromString("5.50")), "starting balance plus five percent of the payout")
	assert.EqualValues(t, 2, f.countEvents(t, enums.EventSupplierStatusChanged))
	assert.EqualValues(t, 1, f.countEvents(t, enums.EventReferralCredited))
}

func TestDeliveredResaveDoesNotSettleAgain(t *testing.T) {
	f := newFixture(t, true)
	_, err := f.update(t, enums.SupplierStatusShipped, nil)
	require.NoError(t, err)
	_, err = f.update(t, enums.SupplierStatusDelivered, nil)
	require.NoError(t, err)

	again, err := f.update(t, enums.SupplierStatusDelivered, nil)
	require.NoError(t, err)
	assert.Equal(t, enums.SupplierStatusDelivered, again.Status)

	assert.True(t, f.walletOf(t, f.referrer.ID).Equal(decimal.RequireFromString("5.50")))
	var credits int64
	require.NoError(t, f.conn.Model(&models.VendorPayment{}).
		Where("order_supplier_id = ? AND payment_type = ?", f.supplier.ID, enums.VendorPaymentTypeCommissionCredit).
		Count(&credits).Error)
	assert.EqualValues(t, 1, credits)
	assert.EqualValues(t, 2, f.countEvents(t, enums.EventSupplierStatusChanged))
}

func TestDeliveryWithoutReferrerIsNoop(t *testing.T) {
	f := newFixture(t, false)
	_, err := f.update(t, enums.SupplierStatusShipped, nil)
	require.NoError(t, err)
	_, err = f.update(t, enums.SupplierStatusDelivered, nil)
	require.NoError(t, err)

	assert.True(t, f.walletOf(t, f.referrer.ID).Equal(decimal.NewFromInt(1)))
	assert.Zero(t, f.countEvents(t, enums.EventReferralCredited))

	var stored models.OrderSupplier
	require.NoError(t, f.conn.First(&stored, "id = ?", f.supplier.ID).Error)
	assert.NotNil(t, stored.ReferralSettledAt)
}

func TestUpdateVendorOrderRejects(t *testing.T) {
	f := newFixture(t, true)
	ctx := context.Background()

	_, err := f.svc.UpdateVendorOrder(ctx, uuid.New(), f.supplier.ID, Input{Status: enums.SupplierStatusShipped})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeForbidden))

	_, err = f.svc.UpdateVendorOrder(ctx, f.vendor.ID, uuid.New(), Input{Status: enums.SupplierStatusShipped})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))

	_, err = f.update(t, enums.SupplierStatus("lost"), nil)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))

	_, err = f.update(t, enums.SupplierStatusDelivered, nil)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeStateConflict))

	_, err = f.update(t, enums.SupplierStatusCancelled, nil)
	require.NoError(t, err)
	_, err = f.update(t, enums.SupplierStatusShipped, nil)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeStateConflict))

	assert.True(t, f.walletOf(t, f.referrer.ID).Equal(decimal.NewFromInt(1)))
}

func TestResaveUpdatesTrackingOnly(t *testing.T) {
	f := newFixture(t, true)
	first := "TRACK-1"
	second := "TRACK-2"
	shipped, err := f.update(t, enums.SupplierStatusShipped, &first)
	require.NoError(t, err)
	shippedAt := *shipped.ShippedAt

	resaved, err := f.update(t, enums.SupplierStatusShipped, &second)
	require.NoError(t, err)
	assert.Equal(t, "TRACK-2", *resaved.TrackingNumber)
	assert.True(t, resaved.ShippedAt.Equal(shippedAt))
	assert.EqualValues(t, 1, f.countEvents(t, enums.EventSupplierStatusChanged))
}
