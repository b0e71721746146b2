package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/marketplace-backend/pkg/enums"
)

// Order is the aggregate root created by checkout.
type Order struct {
	ID              uuid.UUID         `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	CustomerID      uuid.UUID         `gorm:"column:customer_id;type:uuid;not null"`
	OrderNumber     string            `gorm:"column:order_number;not null;uniqueIndex:orders_order_number_key"`
	Status          enums.OrderStatus `gorm:"column:status;not null;default:pending"`
	Subtotal        decimal.Decimal   `gorm:"column:subtotal;type:numeric(12,2);not null"`
	ShippingCost    decimal.Decimal   `gorm:"column:shipping_cost;type:numeric(12,2);not null"`
	Tax             decimal.Decimal   `gorm:"column:tax;type:numeric(12,2);not null"`
	Discount        decimal.Decimal   `gorm:"column:discount;type:numeric(12,2);not null"`
	Total           decimal.Decimal   `gorm:"column:total;type:numeric(12,2);not null"`
	ShippingAddress string            `gorm:"column:shipping_address;not null"`
	BillingAddress  string            `gorm:"column:billing_address;not null"`
	Phone           string            `gorm:"column:phone;not null"`
	Email           string            `gorm:"column:email;not null"`
	Notes           *string           `gorm:"column:notes"`
	CouponID        *uuid.UUID        `gorm:"column:coupon_id;type:uuid"`
	PaymentMethod   *string           `gorm:"column:payment_method"`
	CreatedAt       time.Time         `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt       time.Time         `gorm:"column:updated_at;autoUpdateTime"`

	Details   []OrderDetail   `gorm:"foreignKey:OrderID"`
	Suppliers []OrderSupplier `gorm:"foreignKey:OrderID"`
}

func (Order) TableName() string { return "orders" }

// OrderDetail snapshots one (product, size) line at purchase time.
type OrderDetail struct {
	ID          uuid.UUID       `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	OrderID     uuid.UUID       `gorm:"column:order_id;type:uuid;not null"`
	ProductID   uuid.UUID       `gorm:"column:product_id;type:uuid;not null"`
	ProductName string          `gorm:"column:product_name;not null"`
	Size        *string         `gorm:"column:size"`
	Quantity    int             `gorm:"column:quantity;not null"`
	UnitPrice   decimal.Decimal `gorm:"column:unit_price;type:numeric(12,2);not null"`
	TotalPrice  decimal.Decimal `gorm:"column:total_price;type:numeric(12,2);not null"`
	CreatedAt   time.Time       `gorm:"column:created_at;autoCreateTime"`
}

func (OrderDetail) TableName() string { return "order_details" }

// OrderSupplier is the vendor sub-order with its own fulfillment state and
// payout split.
type OrderSupplier struct {
	ID                uuid.UUID            `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	OrderID           uuid.UUID            `gorm:"column:order_id;type:uuid;not null"`
	VendorID          uuid.UUID            `gorm:"column:vendor_id;type:uuid;not null"`
	Status            enums.SupplierStatus `gorm:"column:status;not null;default:pending"`
	Subtotal          decimal.Decimal      `gorm:"column:subtotal;type:numeric(12,2);not null"`
	CommissionRate    decimal.Decimal      `gorm:"column:commission_rate;type:numeric(6,4);not null"`
	CommissionAmount  decimal.Decimal      `gorm:"column:commission_amount;type:numeric(12,2);not null"`
	PayoutAmount      decimal.Decimal      `gorm:"column:payout_amount;type:numeric(12,2);not null"`
	TrackingNumber    *string              `gorm:"column:tracking_number"`
	ShippedAt         *time.Time           `gorm:"column:shipped_at"`
	DeliveredAt       *time.Time           `gorm:"column:delivered_at"`
	ReferralSettledAt *time.Time           `gorm:"column:referral_settled_at"`
	CreatedAt         time.Time            `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt         time.Time            `gorm:"column:updated_at;autoUpdateTime"`
}

func (OrderSupplier) TableName() string { return "order_suppliers" }

// OrderDetailSupplier links each detail to the sub-order that owns it.
type OrderDetailSupplier struct {
	ID              uuid.UUID `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	OrderDetailID   uuid.UUID `gorm:"column:order_detail_id;type:uuid;not null;uniqueIndex"`
	OrderSupplierID uuid.UUID `gorm:"column:order_supplier_id;type:uuid;not null"`
}

func (OrderDetailSupplier) TableName() string { return "order_detail_suppliers" }
