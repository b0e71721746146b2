package fulfillment

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/marketplace-backend/internal/orders"
	"github.com/angelmondragon/marketplace-backend/pkg/db"
	"github.com/angelmondragon/marketplace-backend/pkg/db/models"
	"github.com/angelmondragon/marketplace-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/marketplace-backend/pkg/errors"
	"github.com/angelmondragon/marketplace-backend/pkg/logger"
	"github.com/angelmondragon/marketplace-backend/pkg/outbox"
	"github.com/angelmondragon/marketplace-backend/pkg/outbox/payloads"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type outboxPublisher interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

type settler interface {
	SettleTx(ctx context.Context, tx *gorm.DB, supplier *models.OrderSupplier) (*models.VendorPayment, error)
}

// Input is a vendor's status update for one sub-order.
type Input struct {
	Status         enums.SupplierStatus
	TrackingNumber *string
}

type Service interface {
	UpdateVendorOrder(ctx context.Context, vendorID, supplierID uuid.UUID, input Input) (*models.OrderSupplier, error)
}

type ServiceParams struct {
	Tx        txRunner
	Orders    orders.Repository
	Referrals settler
	Outbox    outboxPublisher
	Logger    *logger.Logger
	Now       func() time.Time
}

type service struct {
	tx        txRunner
	orders    orders.Repository
	referrals settler
	outbox    outboxPublisher
	logg      *logger.Logger
	now       func() time.Time
}

func NewService(params ServiceParams) (Service, error) {
	if params.Tx == nil {
		return nil, fmt.Errorf("tx runner required")
	}
	if params.Orders == nil {
		return nil, fmt.Errorf("orders repository required")
	}
	if params.Referrals == nil {
		return nil, fmt.Errorf("referral service required")
	}
	if params.Outbox == nil {
		return nil, fmt.Errorf("outbox publisher required")
	}
	now := params.Now
	if now == nil {
		now = time.Now
	}
	return &service{
		tx:        params.Tx,
		orders:    params.Orders,
		referrals: params.Referrals,
		outbox:    params.Outbox,
		logg:      params.Logger,
		now:       now,
	}, nil
}

// UpdateVendorOrder applies a status change requested by the owning vendor.
// Re-saving the current status only updates the tracking number; the
// transition into delivered settles the referral inside the same transaction.
func (s *service) UpdateVendorOrder(ctx context.Context, vendorID, supplierID uuid.UUID, input Input) (*models.OrderSupplier, error) {
	if !input.Status.IsValid() {
		return nil, pkgerrors.Newf(pkgerrors.CodeValidation, "unknown status %q", input.Status)
	}
	tracking := trimmed(input.TrackingNumber)

	var (
		updated *models.OrderSupplier
		from    enums.SupplierStatus
	)
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.orders.WithTx(tx)
		supplier, err := repo.FindSupplierForUpdate(ctx, supplierID)
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return pkgerrors.New(pkgerrors.CodeNotFound, "vendor order not found")
		}
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load vendor order")
		}
		if supplier.VendorID != vendorID {
			return pkgerrors.New(pkgerrors.CodeForbidden, "vendor order belongs to another vendor")
		}
		from = supplier.Status
		now := s.now().UTC()

		if from == input.Status {
			if tracking != nil && !IsTerminal(from) {
				if err := repo.UpdateSupplier(ctx, supplier.ID, map[string]any{"tracking_number": *tracking, "updated_at": now}); err != nil {
					return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update tracking number")
				}
				supplier.TrackingNumber = tracking
			}
			updated = supplier
			return nil
		}
		if !CanTransition(from, input.Status) {
			return pkgerrors.Newf(pkgerrors.CodeStateConflict, "cannot move vendor order from %s to %s", from, input.Status).
				WithDetails(map[string]any{"from": from, "to": input.Status})
		}

		changes := map[string]any{"status": input.Status, "updated_at": now}
		supplier.Status = input.Status
		if tracking != nil {
			changes["tracking_number"] = *tracking
			supplier.TrackingNumber = tracking
		}
		switch input.Status {
		case enums.SupplierStatusShipped:
			if supplier.ShippedAt == nil {
				changes["shipped_at"] = now
				supplier.ShippedAt = &now
			}
		case enums.SupplierStatusDelivered:
			changes["delivered_at"] = now
			supplier.DeliveredAt = &now
		}
		if err := repo.UpdateSupplier(ctx, supplier.ID, changes); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update vendor order")
		}

		if err := s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventSupplierStatusChanged,
			AggregateType: enums.AggregateOrderSupplier,
			AggregateID:   supplier.ID,
			Actor:         &outbox.ActorRef{ProfileID: &vendorID, Role: "vendor"},
			OccurredAt:    now,
			Data: payloads.SupplierStatusChangedEvent{
				OrderSupplierID: supplier.ID,
				OrderID:         supplier.OrderID,
				VendorID:        supplier.VendorID,
				From:            from,
				To:              input.Status,
				TrackingNumber:  supplier.TrackingNumber,
				ChangedAt:       now,
			},
		}); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "emit status change")
		}

		if input.Status == enums.SupplierStatusDelivered {
			if _, err := s.referrals.SettleTx(ctx, tx, supplier); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "settle referral")
			}
		}
		updated = supplier
		return nil
	})
	if db.IsTimeout(err) {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "vendor order update timed out")
	}
	if err != nil {
		return nil, err
	}

	if s.logg != nil && from != updated.Status {
		logCtx := s.logg.WithFields(ctx, map[string]any{
			"order_supplier_id": updated.ID.String(),
			"vendor_id":         vendorID.String(),
			"from":              string(from),
			"to":                string(updated.Status),
		})
		s.logg.Info(logCtx, "vendor order status changed")
	}
	return updated, nil
}

func trimmed(value *string) *string {
	if value == nil {
		return nil
	}
	v := strings.TrimSpace(*value)
	if v == "" {
		return nil
	}
	return &v
}
