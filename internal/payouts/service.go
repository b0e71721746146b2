package payouts

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/angelmondragon/marketplace-backend/internal/ledger"
	"github.com/angelmondragon/marketplace-backend/internal/profiles"
	"github.com/angelmondragon/marketplace-backend/pkg/db/models"
	"github.com/angelmondragon/marketplace-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/marketplace-backend/pkg/errors"
	"github.com/angelmondragon/marketplace-backend/pkg/logger"
	"github.com/angelmondragon/marketplace-backend/pkg/outbox"
	"github.com/angelmondragon/marketplace-backend/pkg/outbox/payloads"
)

// MinimumPayout is the smallest amount a vendor may withdraw.
var MinimumPayout = decimal.NewFromInt(1)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type outboxPublisher interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

// Input is a withdrawal request from a vendor wallet.
type Input struct {
	Amount        decimal.Decimal
	BankAccountID uuid.UUID
	Notes         *string
}

// Result is the pending ledger entry plus the wallet balance it left.
type Result struct {
	Payment      *models.VendorPayment `json:"payment"`
	BalanceAfter decimal.Decimal       `json:"balance_after"`
}

// Wallet is a vendor's balance and latest ledger activity.
type Wallet struct {
	Balance decimal.Decimal        `json:"balance"`
	Recent  []models.VendorPayment `json:"recent_payments"`
}

type Service interface {
	RequestPayout(ctx context.Context, vendorID uuid.UUID, input Input) (*Result, error)
	Wallet(ctx context.Context, vendorID uuid.UUID) (*Wallet, error)
}

type service struct {
	tx       txRunner
	profiles profiles.Repository
	ledger   ledger.Service
	outbox   outboxPublisher
	logg     *logger.Logger
	now      func() time.Time
}

func NewService(tx txRunner, profileRepo profiles.Repository, ledgerSvc ledger.Service, publisher outboxPublisher, logg *logger.Logger) (Service, error) {
	if tx == nil {
		return nil, fmt.Errorf("tx runner required")
	}
	if profileRepo == nil {
		return nil, fmt.Errorf("profiles repository required")
	}
	if ledgerSvc == nil {
		return nil, fmt.Errorf("ledger service required")
	}
	if publisher == nil {
		return nil, fmt.Errorf("outbox publisher required")
	}
	return &service{
		tx:       tx,
		profiles: profileRepo,
		ledger:   ledgerSvc,
		outbox:   publisher,
		logg:     logg,
		now:      time.Now,
	}, nil
}

// RequestPayout debits the vendor wallet and appends a pending payout entry
// for the disbursement rail to pick up. The debit is conditional on the
// balance so concurrent requests can never overdraw the wallet.
func (s *service) RequestPayout(ctx context.Context, vendorID uuid.UUID, input Input) (*Result, error) {
	amount := input.Amount.Round(2)
	if amount.LessThan(MinimumPayout) {
		return nil, pkgerrors.Newf(pkgerrors.CodeValidation, "minimum payout is %s", MinimumPayout.StringFixed(2))
	}
	if input.BankAccountID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "bank account is required")
	}
	notes := trimmed(input.Notes)

	var result *Result
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.profiles.WithTx(tx)
		account, err := repo.GetBankAccount(ctx, input.BankAccountID)
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return pkgerrors.New(pkgerrors.CodeNotFound, "bank account not found")
		}
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load bank account")
		}
		if account.ProfileID != vendorID {
			return pkgerrors.New(pkgerrors.CodeForbidden, "bank account belongs to another vendor")
		}

		now := s.now().UTC()
		if err := repo.Debit(ctx, vendorID, amount, now); err != nil {
			if errors.Is(err, profiles.ErrInsufficientBalance) {
				return pkgerrors.New(pkgerrors.CodeValidation, "Insufficient wallet balance").
					WithDetails(map[string]any{"requested": amount.StringFixed(2)})
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "debit wallet")
		}

		entry, err := s.ledger.RecordTx(ctx, tx, ledger.Entry{
			VendorID:      vendorID,
			BankAccountID: &account.ID,
			Amount:        amount,
			Type:          enums.VendorPaymentTypePayout,
			Status:        enums.VendorPaymentStatusPending,
			Notes:         notes,
		})
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "record payout")
		}

		profile, err := repo.GetByID(ctx, vendorID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "reload wallet")
		}
		balance := profile.WalletBalance.Round(2)

		if err := s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventPayoutRequested,
			AggregateType: enums.AggregateVendorPayment,
			AggregateID:   entry.ID,
			Actor:         &outbox.ActorRef{ProfileID: &vendorID, Role: "vendor"},
			OccurredAt:    now,
			Data: payloads.PayoutRequestedEvent{
				VendorPaymentID: entry.ID,
				VendorID:        vendorID,
				BankAccountID:   account.ID,
				Amount:          amount,
				BalanceAfter:    balance,
			},
		}); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "emit payout requested")
		}

		result = &Result{Payment: entry, BalanceAfter: balance}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if s.logg != nil {
		logCtx := s.logg.WithFields(ctx, map[string]any{
			"vendor_id":         vendorID.String(),
			"vendor_payment_id": result.Payment.ID.String(),
			"amount":            amount.StringFixed(2),
		})
		s.logg.Info(logCtx, "payout requested")
	}
	return result, nil
}

func (s *service) Wallet(ctx context.Context, vendorID uuid.UUID) (*Wallet, error) {
	profile, err := s.profiles.GetByID(ctx, vendorID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "wallet not found")
	}
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load wallet")
	}
	recent, err := s.ledger.Recent(ctx, vendorID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load wallet history")
	}
	return &Wallet{Balance: profile.WalletBalance.Round(2), Recent: recent}, nil
}

func trimmed(value *string) *string {
	if value == nil {
		return nil
	}
	v := strings.TrimSpace(*value)
	if v == "" {
		return nil
	}
	return &v
}
