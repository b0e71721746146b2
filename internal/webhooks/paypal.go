package webhooks

import (
	"crypto/subtle"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/angelmondragon/marketplace-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/marketplace-backend/pkg/errors"
)

const (
	paypalTokenHeader = "X-Webhook-Token"

	paypalCaptureCompleted = "PAYMENT.CAPTURE.COMPLETED"
	paypalCaptureDenied    = "PAYMENT.CAPTURE.DENIED"
)

type paypalEvent struct {
	ID        string          `json:"id"`
	EventType string          `json:"event_type"`
	Resource  json.RawMessage `json:"resource"`
}

type paypalCapture struct {
	ID       string `json:"id"`
	CustomID string `json:"custom_id"`
}

// PayPalVerifier accepts callbacks carrying the shared relay token.
type PayPalVerifier struct {
	token []byte
}

func NewPayPalVerifier(token string) (*PayPalVerifier, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return nil, errors.New("paypal webhook token is required")
	}
	return &PayPalVerifier{token: []byte(token)}, nil
}

func (v *PayPalVerifier) Gateway() enums.PaymentMethod { return enums.PaymentMethodPayPal }

func (v *PayPalVerifier) Parse(payload []byte, header http.Header) (*Notification, error) {
	got := []byte(strings.TrimSpace(header.Get(paypalTokenHeader)))
	if len(got) == 0 || subtle.ConstantTimeCompare(got, v.token) != 1 {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "paypal webhook token invalid")
	}

	var event paypalEvent
	if err := json.Unmarshal(payload, &event); err != nil {
		return nil, malformed(err, enums.PaymentMethodPayPal)
	}
	if strings.TrimSpace(event.ID) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "paypal event id required")
	}

	var action Action
	switch event.EventType {
	case paypalCaptureCompleted:
		action = ActionSucceeded
	case paypalCaptureDenied:
		action = ActionFailed
	default:
		return ignored(enums.PaymentMethodPayPal, event.ID, event.EventType), nil
	}

	var capture paypalCapture
	if len(event.Resource) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "paypal resource required")
	}
	if err := json.Unmarshal(event.Resource, &capture); err != nil {
		return nil, malformed(err, enums.PaymentMethodPayPal)
	}
	orderID, err := parseOrderID(capture.CustomID)
	if err != nil {
		return nil, err
	}
	return &Notification{
		Gateway:       enums.PaymentMethodPayPal,
		EventID:       event.ID,
		EventType:     event.EventType,
		Action:        action,
		OrderID:       orderID,
		TransactionID: capture.ID,
		Raw:           event.Resource,
	}, nil
}
