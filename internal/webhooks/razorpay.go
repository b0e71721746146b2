package webhooks

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/angelmondragon/marketplace-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/marketplace-backend/pkg/errors"
)

const (
	razorpaySignatureHeader = "X-Razorpay-Signature"
	razorpayEventIDHeader   = "X-Razorpay-Event-Id"

	razorpayPaymentCaptured = "payment.captured"
	razorpayPaymentFailed   = "payment.failed"
)

type razorpayEvent struct {
	Event   string `json:"event"`
	Payload struct {
		Payment struct {
			Entity json.RawMessage `json:"entity"`
		} `json:"payment"`
	} `json:"payload"`
}

type razorpayPayment struct {
	ID    string            `json:"id"`
	Notes map[string]string `json:"notes"`
}

// RazorpayVerifier checks the hex HMAC-SHA256 of the raw body.
type RazorpayVerifier struct {
	secret []byte
}

func NewRazorpayVerifier(secret string) (*RazorpayVerifier, error) {
	secret = strings.TrimSpace(secret)
	if secret == "" {
		return nil, errors.New("razorpay webhook secret is required")
	}
	return &RazorpayVerifier{secret: []byte(secret)}, nil
}

func (v *RazorpayVerifier) Gateway() enums.PaymentMethod { return enums.PaymentMethodRazorpay }

func (v *RazorpayVerifier) Parse(payload []byte, header http.Header) (*Notification, error) {
	sig := strings.TrimSpace(header.Get(razorpaySignatureHeader))
	if sig == "" {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "razorpay signature missing")
	}
	if !v.valid(payload, sig) {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "razorpay signature mismatch")
	}

	var event razorpayEvent
	if err := json.Unmarshal(payload, &event); err != nil {
		return nil, malformed(err, enums.PaymentMethodRazorpay)
	}

	var action Action
	switch event.Event {
	case razorpayPaymentCaptured:
		action = ActionSucceeded
	case razorpayPaymentFailed:
		action = ActionFailed
	default:
		return ignored(enums.PaymentMethodRazorpay, header.Get(razorpayEventIDHeader), event.Event), nil
	}

	if len(event.Payload.Payment.Entity) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "razorpay payment entity required")
	}
	var payment razorpayPayment
	if err := json.Unmarshal(event.Payload.Payment.Entity, &payment); err != nil {
		return nil, malformed(err, enums.PaymentMethodRazorpay)
	}
	payment.ID = strings.TrimSpace(payment.ID)
	if payment.ID == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "razorpay payment id required")
	}
	orderID, err := parseOrderID(payment.Notes["order_id"])
	if err != nil {
		return nil, err
	}

	// Razorpay only sends the event id as a header; older deliveries fall back
	// to the payment id scoped by event name.
	eventID := strings.TrimSpace(header.Get(razorpayEventIDHeader))
	if eventID == "" {
		eventID = event.Event + ":" + payment.ID
	}
	return &Notification{
		Gateway:       enums.PaymentMethodRazorpay,
		EventID:       eventID,
		EventType:     event.Event,
		Action:        action,
		OrderID:       orderID,
		TransactionID: payment.ID,
		Raw:           event.Payload.Payment.Entity,
	}, nil
}

func (v *RazorpayVerifier) valid(payload []byte, signature string) bool {
	expected, err := hex.DecodeString(signature)
	if err != nil {
		return false
	}
	mac := hmac.New(sha256.New, v.secret)
	mac.Write(payload)
	return hmac.Equal(mac.Sum(nil), expected)
}

// SignRazorpay returns the signature Razorpay would send for payload.
func SignRazorpay(secret string, payload []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(payload)
	return hex.EncodeToString(mac.Sum(nil))
}
