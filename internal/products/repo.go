package products

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/angelmondragon/marketplace-backend/pkg/db/models"
)

// ErrInsufficientStock means a conditional decrement matched no row.
var ErrInsufficientStock = errors.New("insufficient stock")

// Repository is the catalog surface checkout depends on.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	GetForUpdate(ctx context.Context, id uuid.UUID) (*models.Product, error)
	GetSizeForUpdate(ctx context.Context, productID uuid.UUID, size string) (*models.ProductSize, error)
	DecrementStock(ctx context.Context, productID uuid.UUID, qty int) error
	DecrementSizeStock(ctx context.Context, sizeID uuid.UUID, qty int) error
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

// GetForUpdate reads a product and row-locks it for the rest of the
// transaction on databases that support it.
func (r *repository) GetForUpdate(ctx context.Context, id uuid.UUID) (*models.Product, error) {
	var product models.Product
	err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id = ?", id).
		Take(&product).Error
	if err != nil {
		return nil, err
	}
	return &product, nil
}

func (r *repository) GetSizeForUpdate(ctx context.Context, productID uuid.UUID, size string) (*models.ProductSize, error) {
	var row models.ProductSize
	err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("product_id = ? AND size = ?", productID, size).
		Take(&row).Error
	if err != nil {
		return nil, err
	}
	return &row, nil
}

func (r *repository) DecrementStock(ctx context.Context, productID uuid.UUID, qty int) error {
	res := r.db.WithContext(ctx).Exec(
		`UPDATE products SET stock = stock - ? WHERE id = ? AND stock >= ?`,
		qty, productID, qty,
	)
	return decrementResult(res)
}

func (r *repository) DecrementSizeStock(ctx context.Context, sizeID uuid.UUID, qty int) error {
	res := r.db.WithContext(ctx).Exec(
		`UPDATE product_sizes SET stock = stock - ? WHERE id = ? AND stock >= ?`,
		qty, sizeID, qty,
	)
	return decrementResult(res)
}

func decrementResult(res *gorm.DB) error {
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrInsufficientStock
	}
	return nil
}
