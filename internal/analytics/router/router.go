package router

import (
	"context"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/angelmondragon/marketplace-backend/internal/analytics/types"
	analyticswriter "github.com/angelmondragon/marketplace-backend/internal/analytics/writer"
	"github.com/angelmondragon/marketplace-backend/pkg/enums"
	"github.com/angelmondragon/marketplace-backend/pkg/logger"
	"github.com/angelmondragon/marketplace-backend/pkg/outbox"
	"github.com/angelmondragon/marketplace-backend/pkg/outbox/payloads"
)

var ErrUnsupportedEventType = errors.New("unsupported analytics event type")

// Writer delivers ledger rows to the warehouse.
type Writer interface {
	InsertLedger(ctx context.Context, row types.LedgerEventRow) error
}

// Decoder turns a stored envelope into its typed payload.
type Decoder interface {
	Decode(eventType enums.OutboxEventType, raw []byte) (outbox.PayloadEnvelope, any, error)
}

// Router flattens every ledger event into one ledger_events row.
type Router struct {
	writer  Writer
	decoder Decoder
	logg    *logger.Logger
}

func NewRouter(writer Writer, decoder Decoder, logg *logger.Logger) (*Router, error) {
	if writer == nil {
		return nil, errors.New("writer is required")
	}
	if decoder == nil {
		return nil, errors.New("decoder is required")
	}
	if logg == nil {
		return nil, errors.New("logger is required")
	}
	return &Router{writer: writer, decoder: decoder, logg: logg}, nil
}

func (r *Router) Handle(ctx context.Context, envelope types.Envelope) error {
	stored, payload, err := r.decoder.Decode(envelope.EventType, envelope.Raw)
	if err != nil {
		return err
	}
	row, err := BuildRow(envelope, payload)
	if err != nil {
		return err
	}
	if row.Payload, err = analyticswriter.EncodeJSON(stored.Data); err != nil {
		return fmt.Errorf("encode payload json: %w", err)
	}
	if err := r.writer.InsertLedger(ctx, row); err != nil {
		r.logg.Error(ctx, "failed to insert ledger row", err)
		return err
	}
	return nil
}

// BuildRow maps a decoded payload onto the warehouse columns it fills.
func BuildRow(envelope types.Envelope, payload any) (types.LedgerEventRow, error) {
	row := types.LedgerEventRow{
		EventID:       envelope.EventID,
		EventType:     string(envelope.EventType),
		AggregateType: string(envelope.AggregateType),
		AggregateID:   envelope.AggregateID,
		OccurredAt:    envelope.OccurredAt.UTC(),
	}
	switch event := payload.(type) {
	case *payloads.OrderCreatedEvent:
		commission := decimal.Zero
		for _, s := range event.Suppliers {
			commission = commission.Add(s.CommissionAmount)
		}
		row.OrderID = str(event.OrderID.String())
		row.CustomerID = str(event.CustomerID.String())
		row.Status = str(string(enums.OrderStatusPending))
		row.AmountCents = cents(event.Total)
		row.CommissionCents = cents(commission)
	case *payloads.OrderCancelledEvent:
		row.OrderID = str(event.OrderID.String())
		row.CustomerID = str(event.CustomerID.String())
		row.Status = str(string(enums.OrderStatusCancelled))
	case *payloads.SupplierStatusChangedEvent:
		row.OrderID = str(event.OrderID.String())
		row.OrderSupplierID = str(event.OrderSupplierID.String())
		row.VendorID = str(event.VendorID.String())
		row.Status = str(string(event.To))
	case *payloads.PaymentStatusEvent:
		row.OrderID = str(event.OrderID.String())
		row.Status = str(string(event.Status))
		row.AmountCents = cents(event.Amount)
	case *payloads.ReferralCreditedEvent:
		row.OrderSupplierID = str(event.OrderSupplierID.String())
		row.VendorID = str(event.ReferrerID.String())
		row.Status = str(string(enums.VendorPaymentStatusProcessed))
		row.AmountCents = cents(event.Amount)
	case *payloads.PayoutRequestedEvent:
		row.VendorID = str(event.VendorID.String())
		row.Status = str(string(enums.VendorPaymentStatusPending))
		row.AmountCents = cents(event.Amount)
	default:
		return row, fmt.Errorf("%w: %s", ErrUnsupportedEventType, envelope.EventType)
	}
	return row, nil
}

func str(v string) *string {
	if v == "" {
		return nil
	}
	return &v
}

func cents(amount decimal.Decimal) *int64 {
	v := amount.Shift(2).Round(0).IntPart()
	return &v
}
