package orders

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/marketplace-backend/pkg/db/models"
	"github.com/angelmondragon/marketplace-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/marketplace-backend/pkg/errors"
	"github.com/angelmondragon/marketplace-backend/pkg/outbox"
	"github.com/angelmondragon/marketplace-backend/pkg/outbox/payloads"
	"github.com/angelmondragon/marketplace-backend/pkg/pagination"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type outboxPublisher interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

// Service exposes the customer's view of their orders and the vendor's view
// of their sub-orders.
type Service interface {
	List(ctx context.Context, customerID uuid.UUID, params pagination.Params) (*OrderList, error)
	Get(ctx context.Context, customerID, orderID uuid.UUID) (*OrderView, error)
	Cancel(ctx context.Context, customerID, orderID uuid.UUID) (*OrderView, error)
	ListVendor(ctx context.Context, vendorID uuid.UUID, params pagination.Params) (*SupplierList, error)
	GetVendor(ctx context.Context, vendorID, supplierID uuid.UUID) (*VendorOrderView, error)
}

type service struct {
	repo   Repository
	tx     txRunner
	outbox outboxPublisher
	now    func() time.Time
}

func NewService(repo Repository, tx txRunner, publisher outboxPublisher) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("orders repository required")
	}
	if tx == nil {
		return nil, fmt.Errorf("tx runner required")
	}
	if publisher == nil {
		return nil, fmt.Errorf("outbox publisher required")
	}
	return &service{repo: repo, tx: tx, outbox: publisher, now: time.Now}, nil
}

func (s *service) List(ctx context.Context, customerID uuid.UUID, params pagination.Params) (*OrderList, error) {
	if err := validateCursor(params); err != nil {
		return nil, err
	}
	rows, err := s.repo.ListByCustomer(ctx, customerID, params)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list orders")
	}
	page, next := pagination.Trim(rows, params.Limit, func(o models.Order) pagination.Cursor {
		return pagination.Cursor{CreatedAt: o.CreatedAt, ID: o.ID}
	})
	list := &OrderList{Orders: make([]OrderSummary, 0, len(page)), NextCursor: next}
	for _, o := range page {
		list.Orders = append(list.Orders, OrderSummary{
			ID:            o.ID,
			OrderNumber:   o.OrderNumber,
			Status:        o.Status,
			Total:         o.Total,
			SupplierCount: len(o.Suppliers),
			CreatedAt:     o.CreatedAt,
		})
	}
	return list, nil
}

func (s *service) Get(ctx context.Context, customerID, orderID uuid.UUID) (*OrderView, error) {
	order, err := s.loadOwned(ctx, s.repo, customerID, orderID)
	if err != nil {
		return nil, err
	}
	view := NewOrderView(order)
	return &view, nil
}

// Cancel moves a pending order to cancelled along with every sub-order that
// has not shipped. Stock and coupon usage are not restored.
func (s *service) Cancel(ctx context.Context, customerID, orderID uuid.UUID) (*OrderView, error) {
	var order *models.Order
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		loaded, err := s.loadOwned(ctx, repo, customerID, orderID)
		if err != nil {
			return err
		}
		if loaded.Status != enums.OrderStatusPending {
			return pkgerrors.Newf(pkgerrors.CodeStateConflict, "order in status %s cannot be cancelled", loaded.Status)
		}
		changed, err := repo.TransitionStatus(ctx, orderID, enums.OrderStatusPending, enums.OrderStatusCancelled)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "cancel order")
		}
		if !changed {
			return pkgerrors.New(pkgerrors.CodeConflict, "order changed concurrently")
		}
		now := s.now().UTC()
		supplierIDs, err := repo.CancelOpenSuppliers(ctx, orderID, now)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "cancel sub-orders")
		}
		if err := s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventOrderCancelled,
			AggregateType: enums.AggregateOrder,
			AggregateID:   orderID,
			Actor:         &outbox.ActorRef{UserID: &customerID, Role: "customer"},
			OccurredAt:    now,
			Data: payloads.OrderCancelledEvent{
				OrderID:     orderID,
				CustomerID:  customerID,
				SupplierIDs: supplierIDs,
				CancelledAt: now,
			},
		}); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "emit order cancelled")
		}
		order, err = repo.FindByID(ctx, orderID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "reload order")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	view := NewOrderView(order)
	return &view, nil
}

func (s *service) ListVendor(ctx context.Context, vendorID uuid.UUID, params pagination.Params) (*SupplierList, error) {
	if err := validateCursor(params); err != nil {
		return nil, err
	}
	rows, err := s.repo.ListSuppliersByVendor(ctx, vendorID, params)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list vendor orders")
	}
	page, next := pagination.Trim(rows, params.Limit, func(o models.OrderSupplier) pagination.Cursor {
		return pagination.Cursor{CreatedAt: o.CreatedAt, ID: o.ID}
	})
	list := &SupplierList{Orders: make([]SupplierView, 0, len(page)), NextCursor: next}
	for _, row := range page {
		list.Orders = append(list.Orders, NewSupplierView(row, true))
	}
	return list, nil
}

// GetVendor returns one of the vendor's sub-orders with only the lines linked
// to it.
func (s *service) GetVendor(ctx context.Context, vendorID, supplierID uuid.UUID) (*VendorOrderView, error) {
	supplier, err := s.repo.FindSupplier(ctx, supplierID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "vendor order not found")
	}
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load vendor order")
	}
	if supplier.VendorID != vendorID {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "vendor order belongs to another vendor")
	}

	order, err := s.repo.FindByID(ctx, supplier.OrderID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
	}
	links, err := s.repo.ListDetailLinks(ctx, order.ID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order lines")
	}
	mine := make(map[uuid.UUID]struct{}, len(links))
	for _, link := range links {
		if link.OrderSupplierID == supplier.ID {
			mine[link.OrderDetailID] = struct{}{}
		}
	}

	view := &VendorOrderView{
		SupplierView:    NewSupplierView(*supplier, true),
		OrderNumber:     order.OrderNumber,
		ShippingAddress: order.ShippingAddress,
		Phone:           order.Phone,
		Items:           make([]DetailView, 0, len(mine)),
	}
	for _, d := range order.Details {
		if _, ok := mine[d.ID]; ok {
			view.Items = append(view.Items, newDetailView(d))
		}
	}
	return view, nil
}

func (s *service) loadOwned(ctx context.Context, repo Repository, customerID, orderID uuid.UUID) (*models.Order, error) {
	order, err := repo.FindByID(ctx, orderID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
	}
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
	}
	if order.CustomerID != customerID {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "order belongs to another customer")
	}
	return order, nil
}

func validateCursor(params pagination.Params) error {
	if _, err := pagination.ParseCursor(params.Cursor); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
	}
	return nil
}
