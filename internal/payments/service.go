package payments

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/marketplace-backend/internal/orders"
	"github.com/angelmondragon/marketplace-backend/pkg/db/models"
	"github.com/angelmondragon/marketplace-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/marketplace-backend/pkg/errors"
	"github.com/angelmondragon/marketplace-backend/pkg/logger"
	"github.com/angelmondragon/marketplace-backend/pkg/outbox"
	"github.com/angelmondragon/marketplace-backend/pkg/outbox/payloads"
)

const defaultCurrency = "USD"

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type outboxPublisher interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

// InitiateInput starts a gateway payment for an order.
type InitiateInput struct {
	OrderID       uuid.UUID
	Method        enums.PaymentMethod
	TransactionID *string
}

// GatewayRef identifies the gateway-side payment a webhook reported on.
type GatewayRef struct {
	Method        enums.PaymentMethod
	TransactionID string
	Raw           json.RawMessage
}

// Outcome reports what a webhook reaction changed.
type Outcome struct {
	OrderID        uuid.UUID           `json:"order_id"`
	OrderStatus    enums.OrderStatus   `json:"order_status"`
	PaymentStatus  enums.PaymentStatus `json:"payment_status"`
	PaymentIDs     []uuid.UUID         `json:"payment_ids"`
	OrderConfirmed bool                `json:"order_confirmed"`
	Changed        bool                `json:"changed"`
}

type Service interface {
	Initiate(ctx context.Context, customerID uuid.UUID, input InitiateInput) (*models.Payment, error)
	MarkSucceeded(ctx context.Context, orderID uuid.UUID, ref GatewayRef) (*Outcome, error)
	MarkFailed(ctx context.Context, orderID uuid.UUID, ref GatewayRef) (*Outcome, error)
	ExpireStale(ctx context.Context, before time.Time) (int64, error)
}

type service struct {
	repo   Repository
	orders orders.Repository
	tx     txRunner
	outbox outboxPublisher
	logg   *logger.Logger
	now    func() time.Time
}

func NewService(repo Repository, ordersRepo orders.Repository, tx txRunner, publisher outboxPublisher, logg *logger.Logger) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("payments repository required")
	}
	if ordersRepo == nil {
		return nil, fmt.Errorf("orders repository required")
	}
	if tx == nil {
		return nil, fmt.Errorf("tx runner required")
	}
	if publisher == nil {
		return nil, fmt.Errorf("outbox publisher required")
	}
	return &service{repo: repo, orders: ordersRepo, tx: tx, outbox: publisher, logg: logg, now: time.Now}, nil
}

// Initiate records a pending payment for the full order total.
func (s *service) Initiate(ctx context.Context, customerID uuid.UUID, input InitiateInput) (*models.Payment, error) {
	if !input.Method.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "unsupported payment method")
	}
	var payment *models.Payment
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		order, err := s.loadOrder(ctx, s.orders.WithTx(tx), input.OrderID)
		if err != nil {
			return err
		}
		if order.CustomerID != customerID {
			return pkgerrors.New(pkgerrors.CodeForbidden, "order belongs to another customer")
		}
		if order.Status != enums.OrderStatusPending {
			return pkgerrors.Newf(pkgerrors.CodeStateConflict, "order in status %s cannot be paid", order.Status)
		}
		payment = &models.Payment{
			ID:            uuid.New(),
			OrderID:       order.ID,
			PaymentMethod: input.Method,
			TransactionID: trimmed(input.TransactionID),
			Amount:        order.Total,
			Currency:      defaultCurrency,
			Status:        enums.PaymentStatusPending,
		}
		if err := s.repo.WithTx(tx).Create(ctx, payment); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create payment")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return payment, nil
}

// MarkSucceeded confirms a pending order and completes its pending payments.
// A repeated notification for an already confirmed order changes nothing.
// An order that was cancelled before the capture arrived keeps its status;
// the captured payment is still recorded so it can be refunded.
func (s *service) MarkSucceeded(ctx context.Context, orderID uuid.UUID, ref GatewayRef) (*Outcome, error) {
	outcome := &Outcome{OrderID: orderID, PaymentStatus: enums.PaymentStatusCompleted}
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		ordersRepo := s.orders.WithTx(tx)
		repo := s.repo.WithTx(tx)
		order, err := s.loadOrder(ctx, ordersRepo, orderID)
		if err != nil {
			return err
		}
		now := s.now().UTC()

		ids, err := repo.SettlePending(ctx, orderID, enums.PaymentStatusCompleted, optional(ref.TransactionID), ref.Raw, now)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "complete payments")
		}
		if len(ids) == 0 && order.Status == enums.OrderStatusPending {
			// No Initiate call preceded the capture; record it now.
			payment := &models.Payment{
				ID:              uuid.New(),
				OrderID:         order.ID,
				PaymentMethod:   ref.Method,
				TransactionID:   optional(ref.TransactionID),
				Amount:          order.Total,
				Currency:        defaultCurrency,
				Status:          enums.PaymentStatusCompleted,
				GatewayResponse: ref.Raw,
			}
			if err := repo.Create(ctx, payment); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "record payment")
			}
			ids = append(ids, payment.ID)
		}

		if order.Status == enums.OrderStatusPending {
			changed, err := ordersRepo.TransitionStatus(ctx, orderID, enums.OrderStatusPending, enums.OrderStatusConfirmed)
			if err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "confirm order")
			}
			if changed {
				order.Status = enums.OrderStatusConfirmed
				outcome.OrderConfirmed = true
			}
		} else if order.Status == enums.OrderStatusCancelled && len(ids) > 0 {
			s.warn(ctx, orderID, "payment captured for cancelled order")
		}

		outcome.OrderStatus = order.Status
		outcome.PaymentIDs = ids
		outcome.Changed = len(ids) > 0 || outcome.OrderConfirmed
		if !outcome.Changed {
			return nil
		}
		return s.emit(ctx, tx, enums.EventPaymentSucceeded, order, ids, ref, enums.PaymentStatusCompleted, now)
	})
	if err != nil {
		return nil, err
	}
	return outcome, nil
}

// MarkFailed fails the order's pending payments. The order itself stays
// pending so the customer can retry.
func (s *service) MarkFailed(ctx context.Context, orderID uuid.UUID, ref GatewayRef) (*Outcome, error) {
	outcome := &Outcome{OrderID: orderID, PaymentStatus: enums.PaymentStatusFailed}
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		order, err := s.loadOrder(ctx, s.orders.WithTx(tx), orderID)
		if err != nil {
			return err
		}
		now := s.now().UTC()
		ids, err := s.repo.WithTx(tx).SettlePending(ctx, orderID, enums.PaymentStatusFailed, optional(ref.TransactionID), ref.Raw, now)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "fail payments")
		}
		outcome.OrderStatus = order.Status
		outcome.PaymentIDs = ids
		outcome.Changed = len(ids) > 0
		if !outcome.Changed {
			return nil
		}
		return s.emit(ctx, tx, enums.EventPaymentFailed, order, ids, ref, enums.PaymentStatusFailed, now)
	})
	if err != nil {
		return nil, err
	}
	return outcome, nil
}

// ExpireStale fails payments that stayed pending since before the cutoff.
func (s *service) ExpireStale(ctx context.Context, before time.Time) (int64, error) {
	n, err := s.repo.ExpirePending(ctx, before.UTC(), s.now().UTC())
	if err != nil {
		return 0, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "expire pending payments")
	}
	return n, nil
}

func (s *service) emit(ctx context.Context, tx *gorm.DB, eventType enums.OutboxEventType, order *models.Order, ids []uuid.UUID, ref GatewayRef, status enums.PaymentStatus, now time.Time) error {
	err := s.outbox.Emit(ctx, tx, outbox.DomainEvent{
		EventType:     eventType,
		AggregateType: enums.AggregateOrder,
		AggregateID:   order.ID,
		Actor:         &outbox.ActorRef{Role: "gateway"},
		OccurredAt:    now,
		Data: payloads.PaymentStatusEvent{
			OrderID:       order.ID,
			PaymentIDs:    ids,
			Method:        ref.Method,
			Status:        status,
			TransactionID: ref.TransactionID,
			Amount:        order.Total,
		},
	})
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "emit payment event")
	}
	return nil
}

func (s *service) loadOrder(ctx context.Context, repo orders.Repository, orderID uuid.UUID) (*models.Order, error) {
	order, err := repo.FindByID(ctx, orderID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
	}
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
	}
	return order, nil
}

func (s *service) warn(ctx context.Context, orderID uuid.UUID, msg string) {
	if s.logg == nil {
		return
	}
	s.logg.Warn(s.logg.WithField(ctx, "order_id", orderID.String()), msg)
}

func optional(value string) *string {
	return trimmed(&value)
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
