package orders

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/marketplace-backend/pkg/db/models"
	"github.com/angelmondragon/marketplace-backend/pkg/enums"
	"github.com/angelmondragon/marketplace-backend/pkg/pagination"
)

// Repository persists orders, their lines and their vendor sub-orders.
type Repository interface {
	WithTx(tx *gorm.DB) Repository

	CreateOrder(ctx context.Context, order *models.Order) error
	CreateDetails(ctx context.Context, details []models.OrderDetail) error
	CreateSuppliers(ctx context.Context, suppliers []models.OrderSupplier) error
	CreateDetailLinks(ctx context.Context, links []models.OrderDetailSupplier) error

	FindByID(ctx context.Context, id uuid.UUID) (*models.Order, error)
	ListByCustomer(ctx context.Context, customerID uuid.UUID, params pagination.Params) ([]models.Order, error)
	TransitionStatus(ctx context.Context, orderID uuid.UUID, from, to enums.OrderStatus) (bool, error)

	FindSupplier(ctx context.Context, id uuid.UUID) (*models.OrderSupplier, error)
	FindSupplierForUpdate(ctx context.Context, id uuid.UUID) (*models.OrderSupplier, error)
	ListSuppliersByVendor(ctx context.Context, vendorID uuid.UUID, params pagination.Params) ([]models.OrderSupplier, error)
	UpdateSupplier(ctx context.Context, id uuid.UUID, updates map[string]any) error
	CancelOpenSuppliers(ctx context.Context, orderID uuid.UUID, at time.Time) ([]uuid.UUID, error)
	ClaimReferralSettlement(ctx context.Context, supplierID uuid.UUID, at time.Time) (bool, error)
	ListDetailLinks(ctx context.Context, orderID uuid.UUID) ([]models.OrderDetailSupplier, error)
}
