package types

import (
	"time"

	cbigquery "cloud.google.com/go/bigquery"
)

// LedgerEventRow mirrors the ledger_events BigQuery schema. Money columns are
// integer cents.
type LedgerEventRow struct {
	EventID         string             `bigquery:"event_id"`
	EventType       string             `bigquery:"event_type"`
	AggregateType   string             `bigquery:"aggregate_type"`
	AggregateID     string             `bigquery:"aggregate_id"`
	OccurredAt      time.Time          `bigquery:"occurred_at"`
	OrderID         *string            `bigquery:"order_id"`
	OrderSupplierID *string            `bigquery:"order_supplier_id"`
	VendorID        *string            `bigquery:"vendor_id"`
	CustomerID      *string            `bigquery:"customer_id"`
	Status          *string            `bigquery:"status"`
	AmountCents     *int64             `bigquery:"amount_cents"`
	CommissionCents *int64             `bigquery:"commission_cents"`
	Payload         cbigquery.NullJSON `bigquery:"payload"`
}
