package webhooks

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/stripe/stripe-go/v80"
	"github.com/stripe/stripe-go/v80/webhook"

	"github.com/angelmondragon/marketplace-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/marketplace-backend/pkg/errors"
)

const stripeSignatureHeader = "Stripe-Signature"

// StripeVerifier checks the Stripe-Signature header against the endpoint
// signing secret.
type StripeVerifier struct {
	secret string
}

func NewStripeVerifier(secret string) (*StripeVerifier, error) {
	secret = strings.TrimSpace(secret)
	if secret == "" {
		return nil, errors.New("stripe webhook secret is required")
	}
	return &StripeVerifier{secret: secret}, nil
}

func (v *StripeVerifier) Gateway() enums.PaymentMethod { return enums.PaymentMethodStripe }

func (v *StripeVerifier) Parse(payload []byte, header http.Header) (*Notification, error) {
	sig := header.Get(stripeSignatureHeader)
	if sig == "" {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "stripe signature missing")
	}
	event, err := webhook.ConstructEventWithOptions(payload, sig, v.secret, webhook.ConstructEventOptions{
		IgnoreAPIVersionMismatch: true,
	})
	if err != nil {
		if errors.Is(err, webhook.ErrNotSigned) || errors.Is(err, webhook.ErrNoValidSignature) ||
			errors.Is(err, webhook.ErrTooOld) || errors.Is(err, webhook.ErrInvalidHeader) {
			return nil, pkgerrors.Wrap(pkgerrors.CodeUnauthorized, err, "verify stripe signature")
		}
		return nil, malformed(err, enums.PaymentMethodStripe)
	}

	var action Action
	switch event.Type {
	case stripe.EventTypePaymentIntentSucceeded:
		action = ActionSucceeded
	case stripe.EventTypePaymentIntentPaymentFailed:
		action = ActionFailed
	default:
		return ignored(enums.PaymentMethodStripe, event.ID, string(event.Type)), nil
	}
	if event.Data == nil || len(event.Data.Raw) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "stripe event data required")
	}
	var intent stripe.PaymentIntent
	if err := json.Unmarshal(event.Data.Raw, &intent); err != nil {
		return nil, malformed(err, enums.PaymentMethodStripe)
	}
	orderID, err := parseOrderID(intent.Metadata["order_id"])
	if err != nil {
		return nil, err
	}
	return &Notification{
		Gateway:       enums.PaymentMethodStripe,
		EventID:       event.ID,
		EventType:     string(event.Type),
		Action:        action,
		OrderID:       orderID,
		TransactionID: intent.ID,
		Raw:           event.Data.Raw,
	}, nil
}
