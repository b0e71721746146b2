package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Product is the catalog row read at checkout. VendorID references the
// owning vendor profile.
type Product struct {
	ID            uuid.UUID        `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	VendorID      uuid.UUID        `gorm:"column:vendor_id;type:uuid;not null"`
	Name          string           `gorm:"column:name;not null"`
	Price         decimal.Decimal  `gorm:"column:price;type:numeric(12,2);not null"`
	DiscountPrice *decimal.Decimal `gorm:"column:discount_price;type:numeric(12,2)"`
	Stock         int              `gorm:"column:stock;not null;default:0"`
	IsActive      bool             `gorm:"column:is_active;not null;default:true"`
	CreatedAt     time.Time        `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt     time.Time        `gorm:"column:updated_at;autoUpdateTime"`
}

func (Product) TableName() string { return "products" }

// ProductSize is an independent stock pool for one size of a product.
type ProductSize struct {
	ID              uuid.UUID       `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	ProductID       uuid.UUID       `gorm:"column:product_id;type:uuid;not null"`
	Size            string          `gorm:"column:size;not null"`
	Stock           int             `gorm:"column:stock;not null;default:0"`
	PriceAdjustment decimal.Decimal `gorm:"column:price_adjustment;type:numeric(12,2);not null;default:0"`
}

func (ProductSize) TableName() string { return "product_sizes" }
