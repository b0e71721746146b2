package orders

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/angelmondragon/marketplace-backend/pkg/db/models"
	"github.com/angelmondragon/marketplace-backend/pkg/enums"
	"github.com/angelmondragon/marketplace-backend/pkg/pagination"
)

type repository struct {
	db *gorm.DB
}

// NewRepository builds an orders repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) CreateOrder(ctx context.Context, order *models.Order) error {
	return r.db.WithContext(ctx).Omit(clause.Associations).Create(order).Error
}

func (r *repository) CreateDetails(ctx context.Context, details []models.OrderDetail) error {
	if len(details) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Create(&details).Error
}

func (r *repository) CreateSuppliers(ctx context.Context, suppliers []models.OrderSupplier) error {
	if len(suppliers) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Create(&suppliers).Error
}

func (r *repository) CreateDetailLinks(ctx context.Context, links []models.OrderDetailSupplier) error {
	if len(links) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Create(&links).Error
}

func (r *repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Order, error) {
	var order models.Order
	err := r.db.WithContext(ctx).
		Preload("Details", func(db *gorm.DB) *gorm.DB { return db.Order("created_at ASC, id ASC") }).
		Preload("Suppliers", func(db *gorm.DB) *gorm.DB { return db.Order("created_at ASC, id ASC") }).
		Where("id = ?", id).
		Take(&order).Error
	if err != nil {
		return nil, err
	}
	return &order, nil
}

func (r *repository) ListByCustomer(ctx context.Context, customerID uuid.UUID, params pagination.Params) ([]models.Order, error) {
	q := r.db.WithContext(ctx).Where("customer_id = ?", customerID)
	q, err := applyCursor(q, params)
	if err != nil {
		return nil, err
	}
	var rows []models.Order
	err = q.Preload("Suppliers").
		Order("created_at DESC, id DESC").
		Limit(pagination.LimitWithBuffer(params.Limit)).
		Find(&rows).Error
	return rows, err
}

// TransitionStatus moves the order only if it is still in from; the bool
// reports whether a row changed.
func (r *repository) TransitionStatus(ctx context.Context, orderID uuid.UUID, from, to enums.OrderStatus) (bool, error) {
	res := r.db.WithContext(ctx).
		Model(&models.Order{}).
		Where("id = ? AND status = ?", orderID, from).
		Updates(map[string]any{"status": to, "updated_at": time.Now().UTC()})
	return res.RowsAffected > 0, res.Error
}

func (r *repository) FindSupplier(ctx context.Context, id uuid.UUID) (*models.OrderSupplier, error) {
	var supplier models.OrderSupplier
	if err := r.db.WithContext(ctx).Where("id = ?", id).Take(&supplier).Error; err != nil {
		return nil, err
	}
	return &supplier, nil
}

func (r *repository) FindSupplierForUpdate(ctx context.Context, id uuid.UUID) (*models.OrderSupplier, error) {
	var supplier models.OrderSupplier
	err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id = ?", id).
		Take(&supplier).Error
	if err != nil {
		return nil, err
	}
	return &supplier, nil
}

func (r *repository) ListSuppliersByVendor(ctx context.Context, vendorID uuid.UUID, params pagination.Params) ([]models.OrderSupplier, error) {
	q := r.db.WithContext(ctx).Where("vendor_id = ?", vendorID)
	q, err := applyCursor(q, params)
	if err != nil {
		return nil, err
	}
	var rows []models.OrderSupplier
	err = q.Order("created_at DESC, id DESC").
		Limit(pagination.LimitWithBuffer(params.Limit)).
		Find(&rows).Error
	return rows, err
}

func (r *repository) UpdateSupplier(ctx context.Context, id uuid.UUID, updates map[string]any) error {
	return r.db.WithContext(ctx).
		Model(&models.OrderSupplier{}).
		Where("id = ?", id).
		Updates(updates).Error
}

// CancelOpenSuppliers cancels every sub-order of the order that has not
// shipped yet and returns their ids.
func (r *repository) CancelOpenSuppliers(ctx context.Context, orderID uuid.UUID, at time.Time) ([]uuid.UUID, error) {
	open := []enums.SupplierStatus{enums.SupplierStatusPending, enums.SupplierStatusProcessing}
	var ids []uuid.UUID
	err := r.db.WithContext(ctx).
		Model(&models.OrderSupplier{}).
		Where("order_id = ? AND status IN ?", orderID, open).
		Order("created_at ASC, id ASC").
		Pluck("id", &ids).Error
	if err != nil || len(ids) == 0 {
		return ids, err
	}
	err = r.db.WithContext(ctx).
		Model(&models.OrderSupplier{}).
		Where("id IN ? AND status IN ?", ids, open).
		Updates(map[string]any{"status": enums.SupplierStatusCancelled, "updated_at": at}).Error
	return ids, err
}

// ClaimReferralSettlement stamps referral_settled_at if nobody has yet. Only
// the caller that gets true may pay the referral.
func (r *repository) ClaimReferralSettlement(ctx context.Context, supplierID uuid.UUID, at time.Time) (bool, error) {
	res := r.db.WithContext(ctx).
		Model(&models.OrderSupplier{}).
		Where("id = ? AND referral_settled_at IS NULL", supplierID).
		Update("referral_settled_at", at)
	return res.RowsAffected == 1, res.Error
}

// ListDetailLinks returns the detail to sub-order links of every line in the
// order.
func (r *repository) ListDetailLinks(ctx context.Context, orderID uuid.UUID) ([]models.OrderDetailSupplier, error) {
	var links []models.OrderDetailSupplier
	err := r.db.WithContext(ctx).
		Joins("JOIN order_details ON order_details.id = order_detail_suppliers.order_detail_id").
		Where("order_details.order_id = ?", orderID).
		Find(&links).Error
	return links, err
}

func applyCursor(q *gorm.DB, params pagination.Params) (*gorm.DB, error) {
	cursor, err := pagination.ParseCursor(params.Cursor)
	if err != nil || cursor == nil {
		return q, err
	}
	return q.Where("(created_at < ? OR (created_at = ? AND id < ?))", cursor.CreatedAt, cursor.CreatedAt, cursor.ID), nil
}
