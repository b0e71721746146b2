package routes

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/marketplace-backend/api/controllers"
	"github.com/angelmondragon/marketplace-backend/api/responses"
	checkoutsvc "github.com/angelmondragon/marketplace-backend/internal/checkout"
	"github.com/angelmondragon/marketplace-backend/internal/fulfillment"
	"github.com/angelmondragon/marketplace-backend/internal/orders"
	"github.com/angelmondragon/marketplace-backend/internal/payouts"
	"github.com/angelmondragon/marketplace-backend/internal/profiles"
	"github.com/angelmondragon/marketplace-backend/internal/webhooks"
	pkgAuth "github.com/angelmondragon/marketplace-backend/pkg/auth"
	"github.com/angelmondragon/marketplace-backend/pkg/config"
	"github.com/angelmondragon/marketplace-backend/pkg/db/models"
	"github.com/angelmondragon/marketplace-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/marketplace-backend/pkg/errors"
	"github.com/angelmondragon/marketplace-backend/pkg/metrics"
	"github.com/angelmondragon/marketplace-backend/pkg/pagination"
)

type stubPinger struct{ err error }

func (s stubPinger) Ping(context.Context) error { return s.err }

type stubCheckout struct {
	calls       int
	hadDeadline bool
	lastInput   checkoutsvc.Input
}

func (s *stubCheckout) Execute(ctx context.Context, customerID uuid.UUID, input checkoutsvc.Input) (*models.Order, error) {
	s.calls++
	_, s.hadDeadline = ctx.Deadline()
	s.lastInput = input
	return &models.Order{
		ID:          uuid.New(),
		CustomerID:  customerID,
		OrderNumber: "ORD-TEST",
		Status:      enums.OrderStatusPending,
		Total:       decimal.RequireFromString("10"),
	}, nil
}

type stubOrders struct {
	owner    uuid.UUID
	vendorID uuid.UUID
}

func (s stubOrders) List(context.Context, uuid.UUID, pagination.Params) (*orders.OrderList, error) {
	return &orders.OrderList{Orders: []orders.OrderSummary{}}, nil
}

func (s stubOrders) Get(_ context.Context, customerID, orderID uuid.UUID) (*orders.OrderView, error) {
	if customerID != s.owner {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
	}
	return &orders.OrderView{ID: orderID, OrderNumber: "ORD-1", Status: enums.OrderStatusPending}, nil
}

func (s stubOrders) Cancel(_ context.Context, _, orderID uuid.UUID) (*orders.OrderView, error) {
	return &orders.OrderView{ID: orderID, Status: enums.OrderStatusCancelled}, nil
}

func (s stubOrders) ListVendor(context.Context, uuid.UUID, pagination.Params) (*orders.SupplierList, error) {
	return &orders.SupplierList{Orders: []orders.SupplierView{}}, nil
}

func (s stubOrders) GetVendor(_ context.Context, vendorID, supplierID uuid.UUID) (*orders.VendorOrderView, error) {
	if vendorID != s.vendorID {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "vendor order belongs to another vendor")
	}
	view := &orders.VendorOrderView{OrderNumber: "ORD-1", Items: []orders.DetailView{}}
	view.ID = supplierID
	return view, nil
}

type stubProfiles struct {
	vendor   *models.Profile
	accounts *[]models.BankAccount
}

func (s stubProfiles) BankAccounts(_ context.Context, profileID uuid.UUID) ([]models.BankAccount, error) {
	out := []models.BankAccount{}
	for _, a := range *s.accounts {
		if a.ProfileID == profileID {
			out = append(out, a)
		}
	}
	return out, nil
}

func (s stubProfiles) AddBankAccount(_ context.Context, profileID uuid.UUID, input profiles.BankAccountInput) (*models.BankAccount, error) {
	account := models.BankAccount{
		ID:            uuid.New(),
		ProfileID:     profileID,
		BankName:      input.BankName,
		AccountName:   input.AccountName,
		AccountNumber: input.AccountNumber,
		IsDefault:     len(*s.accounts) == 0 || input.IsDefault,
	}
	*s.accounts = append(*s.accounts, account)
	return &account, nil
}

func (s stubProfiles) RemoveBankAccount(_ context.Context, profileID, accountID uuid.UUID) error {
	kept := (*s.accounts)[:0]
	found := false
	for _, a := range *s.accounts {
		if a.ID == accountID && a.ProfileID == profileID {
			found = true
			continue
		}
		kept = append(kept, a)
	}
	*s.accounts = kept
	if !found {
		return pkgerrors.New(pkgerrors.CodeNotFound, "bank account not found")
	}
	return nil
}

func (s stubProfiles) ForUser(context.Context, uuid.UUID) (*models.Profile, error) {
	return s.vendor, nil
}

func (s stubProfiles) RequireVendor(context.Context, uuid.UUID) (*models.Profile, error) {
	if s.vendor == nil || !s.vendor.IsApprovedVendor() {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "Vendor access required")
	}
	return s.vendor, nil
}

type stubPayouts struct {
	vendorID uuid.UUID
}

func (s *stubPayouts) RequestPayout(_ context.Context, vendorID uuid.UUID, input payouts.Input) (*payouts.Result, error) {
	s.vendorID = vendorID
	return &payouts.Result{BalanceAfter: decimal.RequireFromString("90")}, nil
}

func (s *stubPayouts) Wallet(_ context.Context, vendorID uuid.UUID) (*payouts.Wallet, error) {
	s.vendorID = vendorID
	return &payouts.Wallet{Balance: decimal.RequireFromString("100")}, nil
}

type stubFulfillment struct{}

func (stubFulfillment) UpdateVendorOrder(_ context.Context, vendorID, supplierID uuid.UUID, input fulfillment.Input) (*models.OrderSupplier, error) {
	return &models.OrderSupplier{ID: supplierID, VendorID: vendorID, Status: input.Status}, nil
}

type stubWebhooks struct{}

func (stubWebhooks) Handle(_ context.Context, gateway enums.PaymentMethod, _ []byte, _ http.Header) (*webhooks.Result, error) {
	return &webhooks.Result{Gateway: gateway, Status: webhooks.ResultIgnored}, nil
}

type memoryIdempotency struct {
	data map[string]string
}

func (m *memoryIdempotency) Get(_ context.Context, key string) (string, error) {
	return m.data[key], nil
}

func (m *memoryIdempotency) SetNX(_ context.Context, key string, value any, _ time.Duration) (bool, error) {
	if _, ok := m.data[key]; ok {
		return false, nil
	}
	m.data[key] = fmt.Sprint(value)
	return true, nil
}

func (m *memoryIdempotency) IdempotencyKey(scope, id string) string { return scope + ":" + id }

func (m *memoryIdempotency) Del(_ context.Context, keys ...string) error {
	for _, k := range keys {
		delete(m.data, k)
	}
	return nil
}

type testEnv struct {
	handler  http.Handler
	cfg      *config.Config
	checkout *stubCheckout
	payouts  *stubPayouts
	accounts *[]models.BankAccount
	userID   uuid.UUID
	vendor   *models.Profile
	registry *prometheus.Registry
}

func newTestEnv(t *testing.T, vendor *models.Profile) *testEnv {
	t.Helper()
	cfg := &config.Config{}
	cfg.App.CORSAllowedOrigins = []string{"http://localhost:3000"}
	cfg.App.RequestTimeout = 5 * time.Second
	cfg.JWT = config.JWTConfig{Secret: "secret", Issuer: "marketplace", ExpirationMinutes: 60}

	reg := prometheus.NewRegistry()
	env := &testEnv{
		cfg:      cfg,
		checkout: &stubCheckout{},
		payouts:  &stubPayouts{},
		accounts: &[]models.BankAccount{},
		userID:   uuid.New(),
		vendor:   vendor,
		registry: reg,
	}
	env.handler = NewRouter(cfg, nil, Infra{
		Idempotency: &memoryIdempotency{data: map[string]string{}},
		Readiness:   map[string]controllers.Pinger{"db": stubPinger{}, "redis": stubPinger{}},
		Gatherer:    reg,
		HTTPMetric:  metrics.NewHTTPMetrics(reg),
	}, Services{
		Checkout:    env.checkout,
		Orders:      stubOrders{owner: env.userID, vendorID: vendorIDOf(vendor)},
		Webhooks:    stubWebhooks{},
		Fulfillment: stubFulfillment{},
		Payouts:     env.payouts,
		Profiles:    stubProfiles{vendor: vendor, accounts: env.accounts},
	})
	return env
}

func vendorIDOf(vendor *models.Profile) uuid.UUID {
	if vendor == nil {
		return uuid.Nil
	}
	return vendor.ID
}

func (e *testEnv) do(t *testing.T, method, path, body string, headers map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	token, err := pkgAuth.MintAccessToken(e.cfg.JWT, time.Now(), pkgAuth.AccessTokenPayload{UserID: e.userID})
	require.NoError(t, err)
	req.Header.Set("Authorization", "Bearer "+token)
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	e.handler.ServeHTTP(rec, req)
	return rec
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) responses.APIError {
	t.Helper()
	var body responses.ErrorEnvelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body.Error
}

const checkoutBody = `{"items":[{"product_id":"6f1c1c8e-7b7a-4a62-9c55-1b1f1e9d2a11","quantity":2}],"shipping_address":"1 Main St","billing_address":"1 Main St","phone":"555-0100","email":"Buyer@Example.com"}`

func TestHealthRoutes(t *testing.T) {
	env := newTestEnv(t, nil)
	for _, path := range []string{"/health/live", "/health/ready"} {
		rec := httptest.NewRecorder()
		env.handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
		assert.Equal(t, http.StatusOK, rec.Code, path)
	}
}

func TestCheckoutRequiresAuth(t *testing.T) {
	env := newTestEnv(t, nil)
	rec := httptest.NewRecorder()
	env.handler.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/v1/checkout", strings.NewReader(checkoutBody)))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestCheckoutRequiresIdempotencyKeyAndReplays(t *testing.T) {
	env := newTestEnv(t, nil)

	rec := env.do(t, http.MethodPost, "/api/v1/checkout", checkoutBody, nil)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, 0, env.checkout.calls)

	headers := map[string]string{"Idempotency-Key": "order-attempt-1"}
	first := env.do(t, http.MethodPost, "/api/v1/checkout", checkoutBody, headers)
	require.Equal(t, http.StatusCreated, first.Code, first.Body.String())
	second := env.do(t, http.MethodPost, "/api/v1/checkout", checkoutBody, headers)
	require.Equal(t, http.StatusCreated, second.Code)
	assert.Equal(t, first.Body.String(), second.Body.String())
	assert.Equal(t, 1, env.checkout.calls)
}

func TestCheckoutRunsUnderRequestDeadline(t *testing.T) {
	env := newTestEnv(t, nil)
	rec := env.do(t, http.MethodPost, "/api/v1/checkout", checkoutBody, map[string]string{"Idempotency-Key": "deadline"})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	assert.True(t, env.checkout.hadDeadline)
}

func TestCheckoutBillingAddressOptional(t *testing.T) {
	env := newTestEnv(t, nil)
	body := `{"items":[{"product_id":"6f1c1c8e-7b7a-4a62-9c55-1b1f1e9d2a11","quantity":1}],"shipping_address":"1 Main St","phone":"555-0100","email":"buyer@example.com"}`
	rec := env.do(t, http.MethodPost, "/api/v1/checkout", body, map[string]string{"Idempotency-Key": "no-billing"})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	assert.Equal(t, 1, env.checkout.calls)
	assert.Empty(t, env.checkout.lastInput.BillingAddress)
}

func TestCheckoutValidatesBody(t *testing.T) {
	env := newTestEnv(t, nil)
	rec := env.do(t, http.MethodPost, "/api/v1/checkout", `{"items":[]}`, map[string]string{"Idempotency-Key": "k"})
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, string(pkgerrors.CodeValidation), decodeError(t, rec).Code)
}

func TestGetOrderOwnerOnly(t *testing.T) {
	env := newTestEnv(t, nil)
	orderID := uuid.New()
	rec := env.do(t, http.MethodGet, "/api/v1/orders/"+orderID.String(), "", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Data orders.OrderView `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, orderID, body.Data.ID)

	env.userID = uuid.New()
	rec = env.do(t, http.MethodGet, "/api/v1/orders/"+orderID.String(), "", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = env.do(t, http.MethodGet, "/api/v1/orders/not-a-uuid", "", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestVendorRoutesRequireAdmission(t *testing.T) {
	pending := &models.Profile{ID: uuid.New(), IsVendor: true, VendorAdmission: false}
	env := newTestEnv(t, pending)

	rec := env.do(t, http.MethodGet, "/api/v1/vendor/wallet", "", nil)
	require.Equal(t, http.StatusForbidden, rec.Code)
	assert.Equal(t, "Vendor access required", decodeError(t, rec).Message)
}

func TestVendorRoutesUseVendorProfile(t *testing.T) {
	vendor := &models.Profile{ID: uuid.New(), IsVendor: true, VendorAdmission: true}
	env := newTestEnv(t, vendor)

	rec := env.do(t, http.MethodGet, "/api/v1/vendor/wallet", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, vendor.ID, env.payouts.vendorID)

	body := `{"amount":"10","bank_account_id":"6f1c1c8e-7b7a-4a62-9c55-1b1f1e9d2a11"}`
	rec = env.do(t, http.MethodPost, "/api/v1/vendor/payments/request", body, map[string]string{"Idempotency-Key": "p1"})
	assert.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	rec = env.do(t, http.MethodPost, "/api/v1/vendor/payments/request", `{"amount":"0.5","bank_account_id":"6f1c1c8e-7b7a-4a62-9c55-1b1f1e9d2a11"}`, map[string]string{"Idempotency-Key": "p2"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	supplierID := uuid.New()
	rec = env.do(t, http.MethodPut, "/api/v1/vendor/orders/"+supplierID.String(), `{"status":"shipped","tracking_number":"TRK1"}`, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = env.do(t, http.MethodPut, "/api/v1/vendor/orders/"+supplierID.String(), `{"status":"teleported"}`, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestVendorOrderDetail(t *testing.T) {
	vendor := &models.Profile{ID: uuid.New(), IsVendor: true, VendorAdmission: true}
	env := newTestEnv(t, vendor)
	supplierID := uuid.New()

	rec := env.do(t, http.MethodGet, "/api/v1/vendor/orders/"+supplierID.String(), "", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var body struct {
		Data orders.VendorOrderView `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, supplierID, body.Data.ID)
	assert.Equal(t, "ORD-1", body.Data.OrderNumber)

	rec = env.do(t, http.MethodGet, "/api/v1/vendor/orders/not-a-uuid", "", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestVendorBankAccounts(t *testing.T) {
	vendor := &models.Profile{ID: uuid.New(), IsVendor: true, VendorAdmission: true}
	env := newTestEnv(t, vendor)

	rec := env.do(t, http.MethodPost, "/api/v1/vendor/bank-accounts", `{"bank_name":"First Bank","account_name":"Acme Foods"}`, nil)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, string(pkgerrors.CodeValidation), decodeError(t, rec).Code)

	rec = env.do(t, http.MethodPost, "/api/v1/vendor/bank-accounts", `{"bank_name":"First Bank","account_name":"Acme Foods","account_number":"0001","swift_code":"BAD"}`, nil)
	require.Equal(t, http.StatusBadRequest, rec.Code)

	rec = env.do(t, http.MethodPost, "/api/v1/vendor/bank-accounts", `{"bank_name":"First Bank","account_name":"Acme Foods","account_number":"0001"}`, nil)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var created struct {
		Data models.BankAccount `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))
	assert.Equal(t, vendor.ID, created.Data.ProfileID)
	assert.True(t, created.Data.IsDefault)

	rec = env.do(t, http.MethodGet, "/api/v1/vendor/bank-accounts", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var listed struct {
		Data []models.BankAccount `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &listed))
	require.Len(t, listed.Data, 1)
	assert.Equal(t, "0001", listed.Data[0].AccountNumber)

	rec = env.do(t, http.MethodDelete, "/api/v1/vendor/bank-accounts/"+created.Data.ID.String(), "", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Contains(t, rec.Body.String(), "Bank account deleted")

	rec = env.do(t, http.MethodDelete, "/api/v1/vendor/bank-accounts/"+created.Data.ID.String(), "", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestWebhookRouteSkipsAuth(t *testing.T) {
	env := newTestEnv(t, nil)
	rec := httptest.NewRecorder()
	env.handler.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/v1/webhooks/stripe", strings.NewReader(`{}`)))
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	env.handler.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/v1/webhooks/bitcoin", strings.NewReader(`{}`)))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestMetricsEndpointExposesRequests(t *testing.T) {
	env := newTestEnv(t, nil)
	env.handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/health/live", nil))

	rec := httptest.NewRecorder()
	env.handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "marketplace_http_requests_total")
}
