package referrals

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/marketplace-backend/internal/ledger"
	"github.com/angelmondragon/marketplace-backend/internal/orders"
	"github.com/angelmondragon/marketplace-backend/internal/pricing"
	"github.com/angelmondragon/marketplace-backend/internal/profiles"
	"github.com/angelmondragon/marketplace-backend/pkg/db/models"
	"github.com/angelmondragon/marketplace-backend/pkg/enums"
	"github.com/angelmondragon/marketplace-backend/pkg/logger"
	"github.com/angelmondragon/marketplace-backend/pkg/outbox"
	"github.com/angelmondragon/marketplace-backend/pkg/outbox/payloads"
)

type outboxPublisher interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

// Service pays referral commissions for delivered sub-orders.
type Service interface {
	// SettleTx credits the referrer of the order's customer, at most once per
	// sub-order. It returns the ledger entry, or nil when nothing was paid.
	SettleTx(ctx context.Context, tx *gorm.DB, supplier *models.OrderSupplier) (*models.VendorPayment, error)
}

type ServiceParams struct {
	Orders   orders.Repository
	Profiles profiles.Repository
	Ledger   ledger.Service
	Outbox   outboxPublisher
	Rates    pricing.Rates
	Logger   *logger.Logger
	Now      func() time.Time
}

type service struct {
	orders   orders.Repository
	profiles profiles.Repository
	ledger   ledger.Service
	outbox   outboxPublisher
	rates    pricing.Rates
	logg     *logger.Logger
	now      func() time.Time
}

func NewService(params ServiceParams) (Service, error) {
	if params.Orders == nil {
		return nil, fmt.Errorf("orders repository required")
	}
	if params.Profiles == nil {
		return nil, fmt.Errorf("profiles repository required")
	}
	if params.Ledger == nil {
		return nil, fmt.Errorf("ledger service required")
	}
	if params.Outbox == nil {
		return nil, fmt.Errorf("outbox publisher required")
	}
	now := params.Now
	if now == nil {
		now = time.Now
	}
	return &service{
		orders:   params.Orders,
		profiles: params.Profiles,
		ledger:   params.Ledger,
		outbox:   params.Outbox,
		rates:    params.Rates,
		logg:     params.Logger,
		now:      now,
	}, nil
}

func (s *service) SettleTx(ctx context.Context, tx *gorm.DB, supplier *models.OrderSupplier) (*models.VendorPayment, error) {
	if tx == nil {
		return nil, fmt.Errorf("transaction required")
	}
	if supplier == nil || supplier.ID == uuid.Nil {
		return nil, fmt.Errorf("order supplier required")
	}
	ordersRepo := s.orders.WithTx(tx)
	profilesRepo := s.profiles.WithTx(tx)
	now := s.now().UTC()

	// The marker is stamped even when no credit is due, so a later re-save
	// never re-evaluates the referral.
	claimed, err := ordersRepo.ClaimReferralSettlement(ctx, supplier.ID, now)
	if err != nil {
		return nil, fmt.Errorf("claim referral settlement: %w", err)
	}
	if !claimed {
		return nil, nil
	}

	order, err := ordersRepo.FindByID(ctx, supplier.OrderID)
	if err != nil {
		return nil, fmt.Errorf("load order: %w", err)
	}
	customer, err := profilesRepo.GetByUserID(ctx, order.CustomerID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load customer profile: %w", err)
	}
	if customer.ReferredByID == nil {
		return nil, nil
	}

	amount := s.rates.ReferralCredit(supplier.PayoutAmount)
	if !amount.IsPositive() {
		return nil, nil
	}
	referrerID := *customer.ReferredByID
	// Rows settled before the marker existed may already carry a credit.
	credited, err := s.ledger.HasCommissionCreditTx(ctx, tx, supplier.ID)
	if err != nil {
		return nil, fmt.Errorf("check existing referral credit: %w", err)
	}
	if credited {
		s.warn(ctx, supplier, referrerID, "referral credit already recorded, skipping")
		return nil, nil
	}
	if err := profilesRepo.Credit(ctx, referrerID, amount, now); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			s.warn(ctx, supplier, referrerID, "referrer profile missing, skipping credit")
			return nil, nil
		}
		return nil, fmt.Errorf("credit referrer: %w", err)
	}

	notes := fmt.Sprintf("Referral commission for order %s", order.OrderNumber)
	entry, err := s.ledger.RecordTx(ctx, tx, ledger.Entry{
		VendorID:        referrerID,
		OrderSupplierID: &supplier.ID,
		Amount:          amount,
		Type:            enums.VendorPaymentTypeCommissionCredit,
		Status:          enums.VendorPaymentStatusProcessed,
		Notes:           &notes,
		ProcessedAt:     &now,
	})
	if err != nil {
		return nil, fmt.Errorf("record referral credit: %w", err)
	}

	if err := s.outbox.Emit(ctx, tx, outbox.DomainEvent{
		EventType:     enums.EventReferralCredited,
		AggregateType: enums.AggregateVendorPayment,
		AggregateID:   entry.ID,
		OccurredAt:    now,
		Data: payloads.ReferralCreditedEvent{
			VendorPaymentID: entry.ID,
			OrderSupplierID: supplier.ID,
			ReferrerID:      referrerID,
			SellerID:        supplier.VendorID,
			Amount:          amount,
		},
	}); err != nil {
		return nil, fmt.Errorf("emit referral credited: %w", err)
	}

	if s.logg != nil {
		logCtx := s.logg.WithFields(ctx, map[string]any{
			"order_supplier_id": supplier.ID.String(),
			"referrer_id":       referrerID.String(),
			"amount":            amount.StringFixed(2),
		})
		s.logg.Info(logCtx, "referral commission credited")
	}
	return entry, nil
}

func (s *service) warn(ctx context.Context, supplier *models.OrderSupplier, referrerID uuid.UUID, msg string) {
	if s.logg == nil {
		return
	}
	logCtx := s.logg.WithFields(ctx, map[string]any{
		"order_supplier_id": supplier.ID.String(),
		"referrer_id":       referrerID.String(),
	})
	s.logg.Warn(logCtx, msg)
}
