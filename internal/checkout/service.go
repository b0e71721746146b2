package checkout

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/angelmondragon/marketplace-backend/internal/checkout/helpers"
	"github.com/angelmondragon/marketplace-backend/internal/coupons"
	"github.com/angelmondragon/marketplace-backend/internal/orders"
	"github.com/angelmondragon/marketplace-backend/internal/pricing"
	"github.com/angelmondragon/marketplace-backend/internal/products"
	"github.com/angelmondragon/marketplace-backend/pkg/db"
	"github.com/angelmondragon/marketplace-backend/pkg/db/models"
	"github.com/angelmondragon/marketplace-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/marketplace-backend/pkg/errors"
	"github.com/angelmondragon/marketplace-backend/pkg/logger"
	"github.com/angelmondragon/marketplace-backend/pkg/outbox"
	"github.com/angelmondragon/marketplace-backend/pkg/outbox/payloads"
)

const (
	defaultRetries        = 3
	orderNumberAttempts   = 5
	orderNumberPrefix     = "ORD-"
	orderNumberConstraint = "order_number"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type couponRedeemer interface {
	RedeemTx(ctx context.Context, tx *gorm.DB, code string, subtotal decimal.Decimal) (*coupons.Redemption, error)
}

type outboxPublisher interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

// Observer receives one call per checkout attempt. outcome is "success" or
// the error code of the failure.
type Observer interface {
	ObserveCheckout(outcome string, duration time.Duration)
}

// Input is everything a customer submits to place an order.
type Input struct {
	Items           []helpers.LineItem
	ShippingAddress string
	BillingAddress  string
	Phone           string
	Email           string
	Notes           *string
	CouponCode      *string
	PaymentMethod   *enums.PaymentMethod
}

// Service turns a cart into a persisted order with per-vendor sub-orders.
type Service interface {
	Execute(ctx context.Context, customerID uuid.UUID, input Input) (*models.Order, error)
}

// ServiceParams wires the checkout service. Retries, Observer, Logger and Now
// are optional.
type ServiceParams struct {
	Tx       txRunner
	Products products.Repository
	Coupons  couponRedeemer
	Orders   orders.Repository
	Engine   *pricing.Engine
	Outbox   outboxPublisher
	Retries  int
	Observer Observer
	Logger   *logger.Logger
	Now      func() time.Time
}

type service struct {
	tx       txRunner
	products products.Repository
	coupons  couponRedeemer
	orders   orders.Repository
	engine   *pricing.Engine
	outbox   outboxPublisher
	retries  int
	observer Observer
	logg     *logger.Logger
	now      func() time.Time
	newID    func() uuid.UUID
	numbers  func() uuid.UUID
}

// NewService builds the checkout service.
func NewService(params ServiceParams) (Service, error) {
	if params.Tx == nil {
		return nil, fmt.Errorf("tx runner required")
	}
	if params.Products == nil {
		return nil, fmt.Errorf("products repository required")
	}
	if params.Coupons == nil {
		return nil, fmt.Errorf("coupon service required")
	}
	if params.Orders == nil {
		return nil, fmt.Errorf("orders repository required")
	}
	if params.Engine == nil {
		return nil, fmt.Errorf("pricing engine required")
	}
	if params.Outbox == nil {
		return nil, fmt.Errorf("outbox publisher required")
	}
	retries := params.Retries
	if retries <= 0 {
		retries = defaultRetries
	}
	now := params.Now
	if now == nil {
		now = time.Now
	}
	return &service{
		tx:       params.Tx,
		products: params.Products,
		coupons:  params.Coupons,
		orders:   params.Orders,
		engine:   params.Engine,
		outbox:   params.Outbox,
		retries:  retries,
		observer: params.Observer,
		logg:     params.Logger,
		now:      now,
		newID:    uuid.New,
		numbers:  uuid.New,
	}, nil
}

// Execute validates the cart, reserves stock, prices the order and writes the
// order, its lines, its vendor sub-orders and the order.created event in one
// transaction. Transient database failures retry the whole unit of work.
func (s *service) Execute(ctx context.Context, customerID uuid.UUID, input Input) (*models.Order, error) {
	started := time.Now()
	order, err := s.execute(ctx, customerID, input)
	s.observe(err, time.Since(started))
	if err != nil {
		return nil, err
	}
	if s.logg != nil {
		logCtx := s.logg.WithFields(ctx, map[string]any{
			"order_id":     order.ID.String(),
			"order_number": order.OrderNumber,
			"total":        order.Total.StringFixed(2),
			"suppliers":    len(order.Suppliers),
		})
		s.logg.Info(logCtx, "order placed")
	}
	return order, nil
}

func (s *service) execute(ctx context.Context, customerID uuid.UUID, input Input) (*models.Order, error) {
	if customerID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "customer required")
	}
	items, err := helpers.NormalizeLines(input.Items)
	if err != nil {
		return nil, err
	}
	contact, err := helpers.ValidateContact(helpers.Contact{
		ShippingAddress: input.ShippingAddress,
		BillingAddress:  input.BillingAddress,
		Phone:           input.Phone,
		Email:           input.Email,
	})
	if err != nil {
		return nil, err
	}
	if input.PaymentMethod != nil && !input.PaymentMethod.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "unsupported payment method")
	}

	var placed *models.Order
	err = db.RetryTransient(ctx, s.retries, func() error {
		return s.tx.WithTx(ctx, func(tx *gorm.DB) error {
			order, err := s.place(ctx, tx, customerID, items, contact, input)
			if err != nil {
				return err
			}
			placed = order
			return nil
		})
	})
	if err != nil {
		return nil, mapError(err)
	}
	return placed, nil
}

type reservation struct {
	item      helpers.LineItem
	product   *models.Product
	size      *models.ProductSize
	available int
}

func (s *service) place(ctx context.Context, tx *gorm.DB, customerID uuid.UUID, items []helpers.LineItem, contact helpers.Contact, input Input) (*models.Order, error) {
	productRepo := s.products.WithTx(tx)
	ordersRepo := s.orders.WithTx(tx)

	reservations, err := s.lockStock(ctx, productRepo, items)
	if err != nil {
		return nil, err
	}

	lines := make([]pricing.Line, len(reservations))
	for i, res := range reservations {
		line, err := s.engine.PriceLine(toPricingProduct(res.product), res.item.Quantity, res.item.Size, res.available)
		if err != nil {
			return nil, err
		}
		lines[i] = line
	}

	subtotal := pricing.Subtotal(lines)
	discount := decimal.Zero
	var couponID *uuid.UUID
	if code := couponCode(input.CouponCode); code != "" {
		redemption, err := s.coupons.RedeemTx(ctx, tx, code, subtotal)
		if err != nil {
			return nil, err
		}
		discount = redemption.Discount
		couponID = &redemption.Coupon.ID
	}
	quote := s.engine.Quote(lines, discount)

	var paymentMethod *string
	if input.PaymentMethod != nil {
		method := string(*input.PaymentMethod)
		paymentMethod = &method
	}
	order := &models.Order{
		ID:              s.newID(),
		CustomerID:      customerID,
		Status:          enums.OrderStatusPending,
		Subtotal:        quote.Subtotal,
		ShippingCost:    quote.Shipping,
		Tax:             quote.Tax,
		Discount:        quote.Discount,
		Total:           quote.Total,
		ShippingAddress: contact.ShippingAddress,
		BillingAddress:  contact.BillingAddress,
		Phone:           contact.Phone,
		Email:           contact.Email,
		Notes:           trimmed(input.Notes),
		CouponID:        couponID,
		PaymentMethod:   paymentMethod,
	}
	if err := s.insertOrder(ctx, tx, ordersRepo, order); err != nil {
		return nil, err
	}

	details := make([]models.OrderDetail, len(lines))
	for i, line := range lines {
		details[i] = models.OrderDetail{
			ID:          s.newID(),
			OrderID:     order.ID,
			ProductID:   line.ProductID,
			ProductName: line.Name,
			Size:        line.Size,
			Quantity:    line.Quantity,
			UnitPrice:   line.UnitPrice,
			TotalPrice:  pricing.Money(line.Total),
		}
	}
	if err := ordersRepo.CreateDetails(ctx, details); err != nil {
		return nil, err
	}

	if err := reserveStock(ctx, productRepo, reservations); err != nil {
		return nil, err
	}

	rates := s.engine.Rates()
	groups := helpers.GroupLinesByVendor(lines)
	suppliers := make([]models.OrderSupplier, len(groups))
	links := make([]models.OrderDetailSupplier, 0, len(details))
	snapshots := make([]payloads.SupplierSnapshot, len(groups))
	for i, group := range groups {
		commission, payout := rates.Split(group.Subtotal)
		suppliers[i] = models.OrderSupplier{
			ID:               s.newID(),
			OrderID:          order.ID,
			VendorID:         group.VendorID,
			Status:           enums.SupplierStatusPending,
			Subtotal:         group.Subtotal,
			CommissionRate:   rates.CommissionRate,
			CommissionAmount: commission,
			PayoutAmount:     payout,
		}
		for _, idx := range group.LineIndexes {
			links = append(links, models.OrderDetailSupplier{
				ID:              s.newID(),
				OrderDetailID:   details[idx].ID,
				OrderSupplierID: suppliers[i].ID,
			})
		}
		snapshots[i] = payloads.SupplierSnapshot{
			OrderSupplierID:  suppliers[i].ID,
			VendorID:         group.VendorID,
			Subtotal:         group.Subtotal,
			CommissionAmount: commission,
			PayoutAmount:     payout,
		}
	}
	if err := ordersRepo.CreateSuppliers(ctx, suppliers); err != nil {
		return nil, err
	}
	if err := ordersRepo.CreateDetailLinks(ctx, links); err != nil {
		return nil, err
	}

	event := outbox.DomainEvent{
		EventType:     enums.EventOrderCreated,
		AggregateType: enums.AggregateOrder,
		AggregateID:   order.ID,
		Actor:         &outbox.ActorRef{UserID: &customerID, Role: "customer"},
		Data: payloads.OrderCreatedEvent{
			OrderID:     order.ID,
			OrderNumber: order.OrderNumber,
			CustomerID:  customerID,
			Subtotal:    order.Subtotal,
			Discount:    order.Discount,
			Total:       order.Total,
			CouponID:    couponID,
			Suppliers:   snapshots,
		},
		OccurredAt: s.now().UTC(),
	}
	if err := s.outbox.Emit(ctx, tx, event); err != nil {
		return nil, err
	}

	order.Details = details
	order.Suppliers = suppliers
	return order, nil
}

// lockStock locks every product and size row in key order, then returns the
// reservations in cart order.
func (s *service) lockStock(ctx context.Context, repo products.Repository, items []helpers.LineItem) ([]reservation, error) {
	reservations := make([]reservation, len(items))
	lockedProducts := make(map[uuid.UUID]*models.Product, len(items))
	for _, idx := range helpers.LockOrder(items) {
		item := items[idx]
		product, ok := lockedProducts[item.ProductID]
		if !ok {
			loaded, err := repo.GetForUpdate(ctx, item.ProductID)
			if err != nil {
				if errors.Is(err, gorm.ErrRecordNotFound) {
					return nil, pkgerrors.Newf(pkgerrors.CodeNotFound, "product %s not found", item.ProductID)
				}
				return nil, err
			}
			lockedProducts[item.ProductID] = loaded
			product = loaded
		}

		res := reservation{item: item, product: product, available: product.Stock}
		if item.Size != nil {
			size, err := repo.GetSizeForUpdate(ctx, item.ProductID, *item.Size)
			if err != nil {
				if errors.Is(err, gorm.ErrRecordNotFound) {
					return nil, pkgerrors.Newf(pkgerrors.CodeValidation, "size %s is not offered for %s", *item.Size, product.Name)
				}
				return nil, err
			}
			res.size = size
			res.available = size.Stock
		}
		reservations[idx] = res
	}
	return reservations, nil
}

// reserveStock decrements each stock pool. A sized line draws only from its
// size row; the product-level stock is left alone.
func reserveStock(ctx context.Context, repo products.Repository, reservations []reservation) error {
	for _, res := range reservations {
		var err error
		if res.size != nil {
			err = repo.DecrementSizeStock(ctx, res.size.ID, res.item.Quantity)
		} else {
			err = repo.DecrementStock(ctx, res.product.ID, res.item.Quantity)
		}
		if errors.Is(err, products.ErrInsufficientStock) {
			return pkgerrors.Newf(pkgerrors.CodeValidation, "insufficient stock for %s", res.product.Name).
				WithDetails(map[string]any{"product_id": res.product.ID, "requested": res.item.Quantity})
		}
		if err != nil {
			return err
		}
	}
	return nil
}

// insertOrder assigns an order number and inserts the order, retrying with a
// fresh number on a unique collision. Each attempt runs in a savepoint so a
// failed insert does not poison the outer transaction.
func (s *service) insertOrder(ctx context.Context, tx *gorm.DB, repo orders.Repository, order *models.Order) error {
	var err error
	for attempt := 0; attempt < orderNumberAttempts; attempt++ {
		order.OrderNumber = s.orderNumber()
		err = tx.Transaction(func(sp *gorm.DB) error {
			return repo.WithTx(sp).CreateOrder(ctx, order)
		})
		if err == nil {
			return nil
		}
		if !isOrderNumberCollision(err) {
			return err
		}
	}
	return pkgerrors.Wrap(pkgerrors.CodeConflict, err, "could not allocate a unique order number")
}

func (s *service) orderNumber() string {
	raw := strings.ReplaceAll(s.numbers().String(), "-", "")
	return orderNumberPrefix + strings.ToUpper(raw[:8])
}

func isOrderNumberCollision(err error) bool {
	return db.IsUniqueViolation(err, "") && strings.Contains(err.Error(), orderNumberConstraint)
}

func (s *service) observe(err error, duration time.Duration) {
	if s.observer == nil {
		return
	}
	outcome := "success"
	if err != nil {
		outcome = strings.ToLower(string(pkgerrors.CodeOf(err)))
	}
	s.observer.ObserveCheckout(outcome, duration)
}

func mapError(err error) error {
	if err == nil {
		return nil
	}
	var typed *pkgerrors.Error
	if errors.As(err, &typed) {
		return err
	}
	if db.IsTransient(err) || db.IsTimeout(err) {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "checkout could not complete, please retry")
	}
	return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "checkout failed")
}

func toPricingProduct(p *models.Product) pricing.Product {
	return pricing.Product{
		ID:            p.ID,
		VendorID:      p.VendorID,
		Name:          p.Name,
		Price:         p.Price,
		DiscountPrice: p.DiscountPrice,
		IsActive:      p.IsActive,
	}
}

func couponCode(code *string) string {
	if code == nil {
		return ""
	}
	return strings.TrimSpace(*code)
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
