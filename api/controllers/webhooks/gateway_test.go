package webhooks

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	internalwebhooks "github.com/angelmondragon/marketplace-backend/internal/webhooks"
	"github.com/angelmondragon/marketplace-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/marketplace-backend/pkg/errors"
)

type recordingHandler struct {
	gateway enums.PaymentMethod
	payload []byte
	header  http.Header
	err     error
}

func (h *recordingHandler) Handle(_ context.Context, gateway enums.PaymentMethod, payload []byte, header http.Header) (*internalwebhooks.Result, error) {
	h.gateway, h.payload, h.header = gateway, payload, header
	if h.err != nil {
		return nil, h.err
	}
	return &internalwebhooks.Result{Gateway: gateway, Status: internalwebhooks.ResultProcessed}, nil
}

func serve(h *recordingHandler, gateway, body string) *httptest.ResponseRecorder {
	r := chi.NewRouter()
	r.Post("/api/v1/webhooks/{gateway}", Gateway(h, nil))
	req := httptest.NewRequest(http.MethodPost, "/api/v1/webhooks/"+gateway, strings.NewReader(body))
	req.Header.Set("X-Razorpay-Signature", "sig")
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func TestGatewayPassesRawBody(t *testing.T) {
	h := &recordingHandler{}
	body := `{"event":"payment.captured",  "payload":{}}`
	rec := serve(h, "Razorpay", body)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, enums.PaymentMethodRazorpay, h.gateway)
	assert.Equal(t, body, string(h.payload))
	assert.Equal(t, "sig", h.header.Get("X-Razorpay-Signature"))
	assert.Contains(t, rec.Body.String(), `"status":"processed"`)
}

func TestGatewayMapsErrors(t *testing.T) {
	h := &recordingHandler{err: pkgerrors.New(pkgerrors.CodeUnauthorized, "invalid signature")}
	assert.Equal(t, http.StatusUnauthorized, serve(h, "stripe", `{}`).Code)

	h = &recordingHandler{err: pkgerrors.New(pkgerrors.CodeValidation, "malformed payload")}
	assert.Equal(t, http.StatusBadRequest, serve(h, "paypal", `{`).Code)

	assert.Equal(t, http.StatusNotFound, serve(&recordingHandler{}, "venmo", `{}`).Code)
}
