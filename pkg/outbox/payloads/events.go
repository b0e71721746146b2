package payloads

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/marketplace-backend/pkg/enums"
)

// OrderCreatedEvent is emitted once checkout commits.
type OrderCreatedEvent struct {
	OrderID     uuid.UUID          `json:"order_id"`
	OrderNumber string             `json:"order_number"`
	CustomerID  uuid.UUID          `json:"customer_id"`
	Subtotal    decimal.Decimal    `json:"subtotal"`
	Discount    decimal.Decimal    `json:"discount"`
	Total       decimal.Decimal    `json:"total"`
	CouponID    *uuid.UUID         `json:"coupon_id,omitempty"`
	Suppliers   []SupplierSnapshot `json:"suppliers"`
}

// SupplierSnapshot is one vendor's share of an order at creation time.
type SupplierSnapshot struct {
	OrderSupplierID  uuid.UUID       `json:"order_supplier_id"`
	VendorID         uuid.UUID       `json:"vendor_id"`
	Subtotal         decimal.Decimal `json:"subtotal"`
	CommissionAmount decimal.Decimal `json:"commission_amount"`
	PayoutAmount     decimal.Decimal `json:"payout_amount"`
}

// OrderCancelledEvent is emitted when a customer cancels a pending order.
type OrderCancelledEvent struct {
	OrderID     uuid.UUID   `json:"order_id"`
	CustomerID  uuid.UUID   `json:"customer_id"`
	SupplierIDs []uuid.UUID `json:"order_supplier_ids"`
	CancelledAt time.Time   `json:"cancelled_at"`
}

// SupplierStatusChangedEvent describes one fulfillment transition.
type SupplierStatusChangedEvent struct {
	OrderSupplierID uuid.UUID            `json:"order_supplier_id"`
	OrderID         uuid.UUID            `json:"order_id"`
	VendorID        uuid.UUID            `json:"vendor_id"`
	From            enums.SupplierStatus `json:"from"`
	To              enums.SupplierStatus `json:"to"`
	TrackingNumber  *string              `json:"tracking_number,omitempty"`
	ChangedAt       time.Time            `json:"changed_at"`
}

// ReferralCreditedEvent records a commission credit to a referrer's wallet.
type ReferralCreditedEvent struct {
	VendorPaymentID uuid.UUID       `json:"vendor_payment_id"`
	OrderSupplierID uuid.UUID       `json:"order_supplier_id"`
	ReferrerID      uuid.UUID       `json:"referrer_id"`
	SellerID        uuid.UUID       `json:"seller_id"`
	Amount          decimal.Decimal `json:"amount"`
}

// PayoutRequestedEvent is emitted when a vendor withdraws wallet funds.
type PayoutRequestedEvent struct {
	VendorPaymentID uuid.UUID       `json:"vendor_payment_id"`
	VendorID        uuid.UUID       `json:"vendor_id"`
	BankAccountID   uuid.UUID       `json:"bank_account_id"`
	Amount          decimal.Decimal `json:"amount"`
	BalanceAfter    decimal.Decimal `json:"balance_after"`
}

// PaymentStatusEvent carries both payment.succeeded and payment.failed.
type PaymentStatusEvent struct {
	OrderID       uuid.UUID           `json:"order_id"`
	PaymentIDs    []uuid.UUID         `json:"payment_ids"`
	Method        enums.PaymentMethod `json:"payment_method,omitempty"`
	Status        enums.PaymentStatus `json:"status"`
	TransactionID string              `json:"transaction_id,omitempty"`
	Amount        decimal.Decimal     `json:"amount"`
}
