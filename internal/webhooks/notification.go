// Package webhooks verifies payment gateway callbacks and turns them into
// payment state changes.
package webhooks

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/angelmondragon/marketplace-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/marketplace-backend/pkg/errors"
)

// Action is what a verified notification asks the ledger to do.
type Action string

const (
	ActionSucceeded Action = "succeeded"
	ActionFailed    Action = "failed"
	ActionIgnore    Action = "ignore"
)

// Notification is a verified, gateway-neutral view of one callback.
type Notification struct {
	Gateway       enums.PaymentMethod
	EventID       string
	EventType     string
	Action        Action
	OrderID       uuid.UUID
	TransactionID string
	Raw           json.RawMessage
}

// Verifier authenticates and decodes callbacks from one gateway.
type Verifier interface {
	Gateway() enums.PaymentMethod
	Parse(payload []byte, header http.Header) (*Notification, error)
}

func ignored(gateway enums.PaymentMethod, eventID, eventType string) *Notification {
	return &Notification{Gateway: gateway, EventID: eventID, EventType: eventType, Action: ActionIgnore}
}

func parseOrderID(raw string) (uuid.UUID, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return uuid.Nil, pkgerrors.New(pkgerrors.CodeValidation, "order reference missing from webhook")
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, pkgerrors.New(pkgerrors.CodeValidation, "order reference is not a valid id").
			WithDetails(map[string]any{"order_id": raw})
	}
	return id, nil
}

func malformed(err error, gateway enums.PaymentMethod) error {
	return pkgerrors.Wrap(pkgerrors.CodeValidation, err, "malformed webhook payload").
		WithDetails(map[string]any{"gateway": string(gateway)})
}
