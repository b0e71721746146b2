package controllers

import (
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/angelmondragon/marketplace-backend/api/responses"
	"github.com/angelmondragon/marketplace-backend/api/validators"
	checkoutsvc "github.com/angelmondragon/marketplace-backend/internal/checkout"
	"github.com/angelmondragon/marketplace-backend/internal/checkout/helpers"
	"github.com/angelmondragon/marketplace-backend/internal/orders"
	"github.com/angelmondragon/marketplace-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/marketplace-backend/pkg/errors"
	"github.com/angelmondragon/marketplace-backend/pkg/logger"
)

const maxNotesLength = 1000

// Checkout places an order for the caller's cart lines.
func Checkout(svc checkoutsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "checkout service unavailable"))
			return
		}

		customerID, err := customerIDFromContext(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload checkoutRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		input, err := payload.toInput()
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		order, err := svc.Execute(r.Context(), customerID, input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccessStatus(w, http.StatusCreated, orders.NewOrderView(order))
	}
}

type checkoutItem struct {
	ProductID uuid.UUID `json:"product_id" validate:"required"`
	Quantity  int       `json:"quantity" validate:"min=1"`
	Size      *string   `json:"size,omitempty" validate:"omitempty,max=32"`
}

type checkoutRequest struct {
	Items           []checkoutItem `json:"items" validate:"required,min=1,dive"`
	ShippingAddress string         `json:"shipping_address" validate:"required,max=500"`
	BillingAddress  string         `json:"billing_address,omitempty" validate:"omitempty,max=500"`
	Phone           string         `json:"phone" validate:"required,max=32"`
	Email           string         `json:"email" validate:"required,email"`
	Notes           *string        `json:"notes,omitempty"`
	CouponCode      *string        `json:"coupon_code,omitempty" validate:"omitempty,max=64"`
	PaymentMethod   *string        `json:"payment_method,omitempty"`
}

func (p checkoutRequest) toInput() (checkoutsvc.Input, error) {
	items := make([]helpers.LineItem, 0, len(p.Items))
	for _, item := range p.Items {
		items = append(items, helpers.LineItem{
			ProductID: item.ProductID,
			Quantity:  item.Quantity,
			Size:      validators.OptionalString(item.Size, 32),
		})
	}

	input := checkoutsvc.Input{
		Items:           items,
		ShippingAddress: validators.SanitizeString(p.ShippingAddress, 500),
		BillingAddress:  validators.SanitizeString(p.BillingAddress, 500),
		Phone:           validators.SanitizeString(p.Phone, 32),
		Email:           strings.ToLower(validators.SanitizeString(p.Email, 254)),
		Notes:           validators.OptionalString(p.Notes, maxNotesLength),
		CouponCode:      validators.OptionalString(p.CouponCode, 64),
	}

	if p.PaymentMethod != nil && strings.TrimSpace(*p.PaymentMethod) != "" {
		method, err := enums.ParsePaymentMethod(*p.PaymentMethod)
		if err != nil {
			return checkoutsvc.Input{}, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid payment method")
		}
		input.PaymentMethod = &method
	}
	return input, nil
}
