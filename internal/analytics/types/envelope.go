package types

import (
	"encoding/json"
	"time"

	"github.com/angelmondragon/marketplace-backend/pkg/enums"
)

// Envelope is an outbox event as received from the broker.
type Envelope struct {
	EventID       string                    `json:"event_id"`
	EventType     enums.OutboxEventType     `json:"event_type"`
	AggregateType enums.OutboxAggregateType `json:"aggregate_type"`
	AggregateID   string                    `json:"aggregate_id"`
	OccurredAt    time.Time                 `json:"occurred_at"`
	// Raw is the full stored payload envelope, data included.
	Raw json.RawMessage `json:"raw"`
}
