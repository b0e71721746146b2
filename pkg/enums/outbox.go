package enums

import "fmt"

// OutboxAggregateType maps to the aggregate_type column of outbox_events.
type OutboxAggregateType string

const (
	AggregateOrder         OutboxAggregateType = "order"
	AggregateOrderSupplier OutboxAggregateType = "order_supplier"
	AggregateVendorPayment OutboxAggregateType = "vendor_payment"
	AggregatePayment       OutboxAggregateType = "payment"
)

var validAggregateTypes = []OutboxAggregateType{
	AggregateOrder,
	AggregateOrderSupplier,
	AggregateVendorPayment,
	AggregatePayment,
}

// IsValid reports whether the value matches a known aggregate type.
func (a OutboxAggregateType) IsValid() bool {
	for _, candidate := range validAggregateTypes {
		if candidate == a {
			return true
		}
	}
	return false
}

// ParseOutboxAggregateType converts raw input into OutboxAggregateType.
func ParseOutboxAggregateType(value string) (OutboxAggregateType, error) {
	for _, candidate := range validAggregateTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid aggregate type %q", value)
}

// OutboxEventType maps to the event_type column of outbox_events.
type OutboxEventType string

const (
	EventOrderCreated          OutboxEventType = "order.created"
	EventOrderCancelled        OutboxEventType = "order.cancelled"
	EventSupplierStatusChanged OutboxEventType = "order_supplier.status_changed"
	EventReferralCredited      OutboxEventType = "referral.credited"
	EventPayoutRequested       OutboxEventType = "payout.requested"
	EventPaymentSucceeded      OutboxEventType = "payment.succeeded"
	EventPaymentFailed         OutboxEventType = "payment.failed"
)

var validEventTypes = []OutboxEventType{
	EventOrderCreated,
	EventOrderCancelled,
	EventSupplierStatusChanged,
	EventReferralCredited,
	EventPayoutRequested,
	EventPaymentSucceeded,
	EventPaymentFailed,
}

func (e OutboxEventType) String() string {
	return string(e)
}

// IsValid reports whether the value matches a known event type.
func (e OutboxEventType) IsValid() bool {
	for _, candidate := range validEventTypes {
		if candidate == e {
			return true
		}
	}
	return false
}

// ParseOutboxEventType converts raw input into OutboxEventType.
func ParseOutboxEventType(value string) (OutboxEventType, error) {
	for _, candidate := range validEventTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid event type %q", value)
}

type OutboxDLQErrorReason string

const (
	OutboxDLQReasonMaxAttempts  OutboxDLQErrorReason = "max_attempts"
	OutboxDLQReasonNonRetryable OutboxDLQErrorReason = "non_retryable"
)
