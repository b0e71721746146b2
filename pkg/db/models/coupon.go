package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/marketplace-backend/pkg/enums"
)

type Coupon struct {
	ID            uuid.UUID          `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	Code          string             `gorm:"column:code;not null;uniqueIndex"`
	DiscountType  enums.DiscountType `gorm:"column:discount_type;not null"`
	DiscountValue decimal.Decimal    `gorm:"column:discount_value;type:numeric(12,2);not null"`
	MinPurchase   decimal.Decimal    `gorm:"column:min_purchase;type:numeric(12,2);not null;default:0"`
	MaxUses       *int               `gorm:"column:max_uses"`
	UsedCount     int                `gorm:"column:used_count;not null;default:0"`
	ValidFrom     time.Time          `gorm:"column:valid_from;not null"`
	ValidTo       time.Time          `gorm:"column:valid_to;not null"`
	IsActive      bool               `gorm:"column:is_active;not null;default:true"`
	CreatedAt     time.Time          `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt     time.Time          `gorm:"column:updated_at;autoUpdateTime"`
}

func (Coupon) TableName() string { return "coupons" }
