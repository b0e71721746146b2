package orders

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/marketplace-backend/pkg/db/models"
	"github.com/angelmondragon/marketplace-backend/pkg/enums"
)

// OrderSummary is one row of the customer's order list.
type OrderSummary struct {
	ID            uuid.UUID         `json:"id"`
	OrderNumber   string            `json:"order_number"`
	Status        enums.OrderStatus `json:"status"`
	Total         decimal.Decimal   `json:"total"`
	SupplierCount int               `json:"supplier_count"`
	CreatedAt     time.Time         `json:"created_at"`
}

type OrderList struct {
	Orders     []OrderSummary `json:"orders"`
	NextCursor string         `json:"next_cursor,omitempty"`
}

// OrderView is the full order as its owner sees it.
type OrderView struct {
	ID              uuid.UUID         `json:"id"`
	OrderNumber     string            `json:"order_number"`
	Status          enums.OrderStatus `json:"status"`
	Subtotal        decimal.Decimal   `json:"subtotal"`
	ShippingCost    decimal.Decimal   `json:"shipping_cost"`
	Tax             decimal.Decimal   `json:"tax"`
	Discount        decimal.Decimal   `json:"discount"`
	Total           decimal.Decimal   `json:"total"`
	ShippingAddress string            `json:"shipping_address"`
	BillingAddress  string            `json:"billing_address"`
	Phone           string            `json:"phone"`
	Email           string            `json:"email"`
	Notes           *string           `json:"notes,omitempty"`
	CouponID        *uuid.UUID        `json:"coupon_id,omitempty"`
	CreatedAt       time.Time         `json:"created_at"`
	Items           []DetailView      `json:"items"`
	Suppliers       []SupplierView    `json:"suppliers"`
}

type DetailView struct {
	ID          uuid.UUID       `json:"id"`
	ProductID   uuid.UUID       `json:"product_id"`
	ProductName string          `json:"product_name"`
	Size        *string         `json:"size,omitempty"`
	Quantity    int             `json:"quantity"`
	UnitPrice   decimal.Decimal `json:"unit_price"`
	TotalPrice  decimal.Decimal `json:"total_price"`
}

// SupplierView is a vendor sub-order. Customers and vendors share it; the
// commission split is only filled in for the vendor.
type SupplierView struct {
	ID               uuid.UUID            `json:"id"`
	OrderID          uuid.UUID            `json:"order_id"`
	VendorID         uuid.UUID            `json:"vendor_id"`
	Status           enums.SupplierStatus `json:"status"`
	Subtotal         decimal.Decimal      `json:"subtotal"`
	CommissionAmount *decimal.Decimal     `json:"commission_amount,omitempty"`
	PayoutAmount     *decimal.Decimal     `json:"payout_amount,omitempty"`
	TrackingNumber   *string              `json:"tracking_number,omitempty"`
	ShippedAt        *time.Time           `json:"shipped_at,omitempty"`
	DeliveredAt      *time.Time           `json:"delivered_at,omitempty"`
	CreatedAt        time.Time            `json:"created_at"`
}

// VendorOrderView is one sub-order with the lines and delivery details the
// vendor needs to ship it.
type VendorOrderView struct {
	SupplierView
	OrderNumber     string       `json:"order_number"`
	ShippingAddress string       `json:"shipping_address"`
	Phone           string       `json:"phone"`
	Items           []DetailView `json:"items"`
}

type SupplierList struct {
	Orders     []SupplierView `json:"orders"`
	NextCursor string         `json:"next_cursor,omitempty"`
}

func NewOrderView(order *models.Order) OrderView {
	view := OrderView{
		ID:              order.ID,
		OrderNumber:     order.OrderNumber,
		Status:          order.Status,
		Subtotal:        order.Subtotal,
		ShippingCost:    order.ShippingCost,
		Tax:             order.Tax,
		Discount:        order.Discount,
		Total:           order.Total,
		ShippingAddress: order.ShippingAddress,
		BillingAddress:  order.BillingAddress,
		Phone:           order.Phone,
		Email:           order.Email,
		Notes:           order.Notes,
		CouponID:        order.CouponID,
		CreatedAt:       order.CreatedAt,
		Items:           make([]DetailView, 0, len(order.Details)),
		Suppliers:       make([]SupplierView, 0, len(order.Suppliers)),
	}
	for _, d := range order.Details {
		view.Items = append(view.Items, newDetailView(d))
	}
	for _, s := range order.Suppliers {
		view.Suppliers = append(view.Suppliers, NewSupplierView(s, false))
	}
	return view
}

func NewSupplierView(s models.OrderSupplier, withSplit bool) SupplierView {
	view := SupplierView{
		ID:             s.ID,
		OrderID:        s.OrderID,
		VendorID:       s.VendorID,
		Status:         s.Status,
		Subtotal:       s.Subtotal,
		TrackingNumber: s.TrackingNumber,
		ShippedAt:      s.ShippedAt,
		DeliveredAt:    s.DeliveredAt,
		CreatedAt:      s.CreatedAt,
	}
	if withSplit {
		commission, payout := s.CommissionAmount, s.PayoutAmount
		view.CommissionAmount = &commission
		view.PayoutAmount = &payout
	}
	return view
}

func newDetailView(d models.OrderDetail) DetailView {
	return DetailView{
		ID:          d.ID,
		ProductID:   d.ProductID,
		ProductName: d.ProductName,
		Size:        d.Size,
		Quantity:    d.Quantity,
		UnitPrice:   d.UnitPrice,
		TotalPrice:  d.TotalPrice,
	}
}
