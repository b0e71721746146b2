package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/marketplace-backend/pkg/enums"
)

// Payment records one gateway attempt against an order.
type Payment struct {
	ID              uuid.UUID           `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	OrderID         uuid.UUID           `gorm:"column:order_id;type:uuid;not null" json:"order_id"`
	PaymentMethod   enums.PaymentMethod `gorm:"column:payment_method;not null" json:"payment_method"`
	TransactionID   *string             `gorm:"column:transaction_id" json:"transaction_id,omitempty"`
	Amount          decimal.Decimal     `gorm:"column:amount;type:numeric(12,2);not null" json:"amount"`
	Currency        string              `gorm:"column:currency;not null;default:USD" json:"currency"`
	Status          enums.PaymentStatus `gorm:"column:status;not null;default:pending" json:"status"`
	GatewayResponse json.RawMessage     `gorm:"column:gateway_response;type:jsonb" json:"-"`
	CreatedAt       time.Time           `gorm:"column:created_at;autoCreateTime" json:"created_at"`
	UpdatedAt       time.Time           `gorm:"column:updated_at;autoUpdateTime" json:"updated_at"`
}

func (Payment) TableName() string { return "payments" }

// VendorPayment is an append-only wallet ledger entry.
type VendorPayment struct {
	ID              uuid.UUID                 `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	VendorID        uuid.UUID                 `gorm:"column:vendor_id;type:uuid;not null" json:"vendor_id"`
	OrderSupplierID *uuid.UUID                `gorm:"column:order_supplier_id;type:uuid" json:"order_supplier_id,omitempty"`
	BankAccountID   *uuid.UUID                `gorm:"column:bank_account_id;type:uuid" json:"bank_account_id,omitempty"`
	Amount          decimal.Decimal           `gorm:"column:amount;type:numeric(12,2);not null" json:"amount"`
	Type            enums.VendorPaymentType   `gorm:"column:payment_type;not null" json:"payment_type"`
	Status          enums.VendorPaymentStatus `gorm:"column:status;not null;default:pending" json:"status"`
	ReferenceNumber *string                   `gorm:"column:reference_number" json:"reference_number,omitempty"`
	Notes           *string                   `gorm:"column:notes" json:"notes,omitempty"`
	CreatedAt       time.Time                 `gorm:"column:created_at;autoCreateTime" json:"created_at"`
	ProcessedAt     *time.Time                `gorm:"column:processed_at" json:"processed_at,omitempty"`
}

func (VendorPayment) TableName() string { return "vendor_payments" }
