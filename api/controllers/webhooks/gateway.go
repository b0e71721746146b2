// Package webhooks receives payment gateway callbacks. Gateways authenticate
// with signatures, not bearer tokens, so these routes sit outside Auth.
package webhooks

import (
	"context"
	"io"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/angelmondragon/marketplace-backend/api/responses"
	internalwebhooks "github.com/angelmondragon/marketplace-backend/internal/webhooks"
	"github.com/angelmondragon/marketplace-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/marketplace-backend/pkg/errors"
	"github.com/angelmondragon/marketplace-backend/pkg/logger"
)

const maxWebhookBody = 1 << 20

type handler interface {
	Handle(ctx context.Context, gateway enums.PaymentMethod, payload []byte, header http.Header) (*internalwebhooks.Result, error)
}

// Gateway dispatches POST /api/v1/webhooks/{gateway}. The raw body is passed
// through untouched because signatures are computed over the exact bytes.
func Gateway(svc handler, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if svc == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "webhook service unavailable"))
			return
		}

		gateway, err := enums.ParsePaymentMethod(strings.ToLower(strings.TrimSpace(chi.URLParam(r, "gateway"))))
		if err != nil {
			responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeNotFound, err, "unknown payment gateway"))
			return
		}

		payload, err := io.ReadAll(io.LimitReader(r.Body, maxWebhookBody))
		if err != nil {
			responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "read request body"))
			return
		}

		if logg != nil {
			ctx = logg.WithField(ctx, "gateway", string(gateway))
		}
		result, err := svc.Handle(ctx, gateway, payload, r.Header)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, result)
	}
}
