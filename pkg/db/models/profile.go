package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Profile is the wallet-bearing account attached to a user.
type Profile struct {
	ID              uuid.UUID       `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	UserID          uuid.UUID       `gorm:"column:user_id;type:uuid;not null;uniqueIndex"`
	IsVendor        bool            `gorm:"column:is_vendor;not null;default:false"`
	VendorAdmission bool            `gorm:"column:vendor_admission;not null;default:false"`
	WalletBalance   decimal.Decimal `gorm:"column:wallet_balance;type:numeric(12,2);not null;default:0"`
	ReferralCode    *string         `gorm:"column:referral_code"`
	ReferredByID    *uuid.UUID      `gorm:"column:referred_by_id;type:uuid"`
	CreatedAt       time.Time       `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt       time.Time       `gorm:"column:updated_at;autoUpdateTime"`
}

func (Profile) TableName() string { return "profiles" }

// IsApprovedVendor reports whether the profile may act on vendor resources.
func (p Profile) IsApprovedVendor() bool {
	return p.IsVendor && p.VendorAdmission
}

type BankAccount struct {
	ID            uuid.UUID `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	ProfileID     uuid.UUID `gorm:"column:profile_id;type:uuid;not null" json:"profile_id"`
	BankName      string    `gorm:"column:bank_name;not null" json:"bank_name"`
	AccountName   string    `gorm:"column:account_name;not null" json:"account_name"`
	AccountNumber string    `gorm:"column:account_number;not null" json:"account_number"`
	RoutingNumber *string   `gorm:"column:routing_number" json:"routing_number,omitempty"`
	SwiftCode     *string   `gorm:"column:swift_code" json:"swift_code,omitempty"`
	IsDefault     bool      `gorm:"column:is_default;not null;default:false" json:"is_default"`
	CreatedAt     time.Time `gorm:"column:created_at;autoCreateTime" json:"created_at"`
}

func (BankAccount) TableName() string { return "bank_accounts" }
