package payments

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/marketplace-backend/pkg/db/models"
	"github.com/angelmondragon/marketplace-backend/pkg/enums"
)

type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, payment *models.Payment) error
	ListByOrder(ctx context.Context, orderID uuid.UUID) ([]models.Payment, error)
	// SettlePending moves every pending payment of the order to status and
	// returns the ids it changed.
	SettlePending(ctx context.Context, orderID uuid.UUID, status enums.PaymentStatus, transactionID *string, response json.RawMessage, at time.Time) ([]uuid.UUID, error)
	ExpirePending(ctx context.Context, before, at time.Time) (int64, error)
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

func (r *repository) Create(ctx context.Context, payment *models.Payment) error {
	return r.db.WithContext(ctx).Create(payment).Error
}

func (r *repository) ListByOrder(ctx context.Context, orderID uuid.UUID) ([]models.Payment, error) {
	var rows []models.Payment
	err := r.db.WithContext(ctx).
		Where("order_id = ?", orderID).
		Order("created_at ASC, id ASC").
		Find(&rows).Error
	return rows, err
}

func (r *repository) SettlePending(ctx context.Context, orderID uuid.UUID, status enums.PaymentStatus, transactionID *string, response json.RawMessage, at time.Time) ([]uuid.UUID, error) {
	var ids []uuid.UUID
	err := r.db.WithContext(ctx).
		Model(&models.Payment{}).
		Where("order_id = ? AND status = ?", orderID, enums.PaymentStatusPending).
		Pluck("id", &ids).Error
	if err != nil || len(ids) == 0 {
		return ids, err
	}
	updates := map[string]any{"status": status, "updated_at": at}
	if transactionID != nil {
		updates["transaction_id"] = *transactionID
	}
	if len(response) > 0 {
		updates["gateway_response"] = response
	}
	err = r.db.WithContext(ctx).
		Model(&models.Payment{}).
		Where("id IN ? AND status = ?", ids, enums.PaymentStatusPending).
		Updates(updates).Error
	return ids, err
}

func (r *repository) ExpirePending(ctx context.Context, before, at time.Time) (int64, error) {
	res := r.db.WithContext(ctx).
		Model(&models.Payment{}).
		Where("status = ? AND created_at < ?", enums.PaymentStatusPending, before).
		Updates(map[string]any{"status": enums.PaymentStatusFailed, "updated_at": at})
	return res.RowsAffected, res.Error
}
