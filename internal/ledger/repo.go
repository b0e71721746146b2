package ledger

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/marketplace-backend/pkg/db/models"
	"github.com/angelmondragon/marketplace-backend/pkg/enums"
)

// Repository appends and reads vendor wallet ledger entries. Rows are never
// updated or deleted here.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, entry *models.VendorPayment) error
	ListByVendor(ctx context.Context, vendorID uuid.UUID, limit int) ([]models.VendorPayment, error)
	CountBySupplier(ctx context.Context, supplierID uuid.UUID, entryType enums.VendorPaymentType) (int64, error)
}

type repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) Create(ctx context.Context, entry *models.VendorPayment) error {
	return r.db.WithContext(ctx).Create(entry).Error
}

func (r *repository) ListByVendor(ctx context.Context, vendorID uuid.UUID, limit int) ([]models.VendorPayment, error) {
	var entries []models.VendorPayment
	q := r.db.WithContext(ctx).
		Where("vendor_id = ?", vendorID).
		Order("created_at DESC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	if err := q.Find(&entries).Error; err != nil {
		return nil, err
	}
	return entries, nil
}

func (r *repository) CountBySupplier(ctx context.Context, supplierID uuid.UUID, entryType enums.VendorPaymentType) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.VendorPayment{}).
		Where("order_supplier_id = ? AND payment_type = ?", supplierID, entryType).
		Count(&count).Error
	return count, err
}
