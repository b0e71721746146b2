package ledger

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/angelmondragon/marketplace-backend/pkg/db/models"
	"github.com/angelmondragon/marketplace-backend/pkg/enums"
)

// RecentLimit is how many entries the wallet view shows.
const RecentLimit = 10

// Service records wallet ledger entries alongside the balance change they
// explain.
type Service interface {
	RecordTx(ctx context.Context, tx *gorm.DB, entry Entry) (*models.VendorPayment, error)
	Recent(ctx context.Context, vendorID uuid.UUID) ([]models.VendorPayment, error)
	// HasCommissionCreditTx reports whether the sub-order already has a
	// referral credit row, read inside tx when one is given.
	HasCommissionCreditTx(ctx context.Context, tx *gorm.DB, supplierID uuid.UUID) (bool, error)
}

type service struct {
	repo Repository
}

// Entry captures the immutable data a ledger row requires.
type Entry struct {
	VendorID        uuid.UUID
	OrderSupplierID *uuid.UUID
	BankAccountID   *uuid.UUID
	Amount          decimal.Decimal
	Type            enums.VendorPaymentType
	Status          enums.VendorPaymentStatus
	Notes           *string
	ProcessedAt     *time.Time
}

func NewService(repo Repository) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("ledger repository required")
	}
	return &service{repo: repo}, nil
}

func (s *service) RecordTx(ctx context.Context, tx *gorm.DB, entry Entry) (*models.VendorPayment, error) {
	if entry.VendorID == uuid.Nil {
		return nil, fmt.Errorf("vendor id is required")
	}
	if !entry.Type.IsValid() {
		return nil, fmt.Errorf("invalid ledger entry type %q", entry.Type)
	}
	if !entry.Amount.IsPositive() {
		return nil, fmt.Errorf("ledger amount must be positive")
	}
	if entry.Type == enums.VendorPaymentTypeCommissionCredit && entry.OrderSupplierID == nil {
		return nil, fmt.Errorf("commission credit requires an order supplier")
	}
	status := entry.Status
	if status == "" {
		status = enums.VendorPaymentStatusPending
	}

	row := &models.VendorPayment{
		ID:              uuid.New(),
		VendorID:        entry.VendorID,
		OrderSupplierID: entry.OrderSupplierID,
		BankAccountID:   entry.BankAccountID,
		Amount:          entry.Amount.Round(2),
		Type:            entry.Type,
		Status:          status,
		Notes:           entry.Notes,
		ProcessedAt:     entry.ProcessedAt,
	}
	if err := s.repo.WithTx(tx).Create(ctx, row); err != nil {
		return nil, err
	}
	return row, nil
}

func (s *service) Recent(ctx context.Context, vendorID uuid.UUID) ([]models.VendorPayment, error) {
	return s.repo.ListByVendor(ctx, vendorID, RecentLimit)
}

func (s *service) HasCommissionCreditTx(ctx context.Context, tx *gorm.DB, supplierID uuid.UUID) (bool, error) {
	count, err := s.repo.WithTx(tx).CountBySupplier(ctx, supplierID, enums.VendorPaymentTypeCommissionCredit)
	if err != nil {
		return false, err
	}
	return count > 0, nil
}
