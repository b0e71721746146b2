package webhooks

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/marketplace-backend/internal/orders"
	"github.com/angelmondragon/marketplace-backend/internal/payments"
	"github.com/angelmondragon/marketplace-backend/pkg/db"
	"github.com/angelmondragon/marketplace-backend/pkg/db/dbtest"
	"github.com/angelmondragon/marketplace-backend/pkg/db/models"
	"github.com/angelmondragon/marketplace-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/marketplace-backend/pkg/errors"
	"github.com/angelmondragon/marketplace-backend/pkg/outbox"
	"github.com/angelmondragon/marketplace-backend/pkg/outbox/idempotency"
)

type memoryStore struct {
	mu   sync.Mutex
	keys map[string]bool
}

func (m *memoryStore) Get(context.Context, string) (string, error) { return "", nil }

func (m *memoryStore) SetNX(_ context.Context, key string, _ any, _ time.Duration) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.keys[key] {
		return false, nil
	}
	m.keys[key] = true
	return true, nil
}

func (m *memoryStore) IdempotencyKey(scope, id string) string { return scope + ":" + id }

func (m *memoryStore) Del(_ context.Context, keys ...string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, k := range keys {
		delete(m.keys, k)
	}
	return nil
}

type recordingObserver struct {
	results []string
}

func (r *recordingObserver) ObserveWebhook(gateway, result string) {
	r.results = append(r.results, gateway+":"+result)
}

type stubReactor struct {
	calls int
	err   error
}

func (s *stubReactor) MarkSucceeded(_ context.Context, orderID uuid.UUID, _ payments.GatewayRef) (*payments.Outcome, error) {
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	return &payments.Outcome{OrderID: orderID, Changed: true}, nil
}

func (s *stubReactor) MarkFailed(_ context.Context, orderID uuid.UUID, _ payments.GatewayRef) (*payments.Outcome, error) {
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	return &payments.Outcome{OrderID: orderID, Changed: true}, nil
}

func newGuard(t *testing.T) *idempotency.Manager {
	t.Helper()
	guard, err := idempotency.NewManager(&memoryStore{keys: map[string]bool{}}, idempotency.ScopeWebhooks, time.Hour)
	require.NoError(t, err)
	return guard
}

func verifiers(t *testing.T) []Verifier {
	t.Helper()
	s, err := NewStripeVerifier(stripeSecret)
	require.NoError(t, err)
	r, err := NewRazorpayVerifier(razorpaySecret)
	require.NoError(t, err)
	p, err := NewPayPalVerifier(paypalToken)
	require.NoError(t, err)
	return []Verifier{s, r, p}
}

func TestHandleDeduplicatesReplays(t *testing.T) {
	reactor := &stubReactor{}
	obs := &recordingObserver{}
	svc, err := NewService(ServiceParams{Verifiers: verifiers(t), Payments: reactor, Guard: newGuard(t), Metrics: obs})
	require.NoError(t, err)

	payload := paypalPayload("WH-1", "PAYMENT.CAPTURE.COMPLETED", uuid.NewString())
	first, err := svc.Handle(context.Background(), enums.PaymentMethodPayPal, payload, paypalHeader(paypalToken))
	require.NoError(t, err)
	assert.Equal(t, ResultProcessed, first.Status)

	second, err := svc.Handle(context.Background(), enums.PaymentMethodPayPal, payload, paypalHeader(paypalToken))
	require.NoError(t, err)
	assert.Equal(t, ResultDuplicate, second.Status)
	assert.Equal(t, 1, reactor.calls)
	assert.Equal(t, []string{"paypal:processed", "paypal:duplicate"}, obs.results)
}

func TestHandleReleasesClaimOnFailure(t *testing.T) {
	reactor := &stubReactor{err: pkgerrors.New(pkgerrors.CodeDependency, "db down")}
	svc, err := NewService(ServiceParams{Verifiers: verifiers(t), Payments: reactor, Guard: newGuard(t)})
	require.NoError(t, err)

	payload := razorpayPayload("payment.captured", uuid.NewString())
	header := signedRazorpay(payload, "evt_retry")
	_, err = svc.Handle(context.Background(), enums.PaymentMethodRazorpay, payload, header)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeDependency))

	reactor.err = nil
	result, err := svc.Handle(context.Background(), enums.PaymentMethodRazorpay, payload, header)
	require.NoError(t, err)
	assert.Equal(t, ResultProcessed, result.Status)
	assert.Equal(t, 2, reactor.calls)
}

func TestHandleIgnoresAndRejects(t *testing.T) {
	reactor := &stubReactor{}
	obs := &recordingObserver{}
	svc, err := NewService(ServiceParams{Verifiers: verifiers(t), Payments: reactor, Guard: newGuard(t), Metrics: obs})
	require.NoError(t, err)
	ctx := context.Background()

	other := paypalPayload("WH-9", "BILLING.PLAN.CREATED", "")
	result, err := svc.Handle(ctx, enums.PaymentMethodPayPal, other, paypalHeader(paypalToken))
	require.NoError(t, err)
	assert.Equal(t, ResultIgnored, result.Status)

	_, err = svc.Handle(ctx, enums.PaymentMethodPayPal, []byte(`{`), paypalHeader(paypalToken))
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))

	_, err = svc.Handle(ctx, enums.PaymentMethodCashOnDelivery, other, http.Header{})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))

	assert.Zero(t, reactor.calls)
	assert.Equal(t, []string{"paypal:ignored", "paypal:rejected", "cash_on_delivery:rejected"}, obs.results)
}

func TestNewServiceRequiresCollaborators(t *testing.T) {
	_, err := NewService(ServiceParams{})
	require.Error(t, err)
	_, err = NewService(ServiceParams{Payments: &stubReactor{}})
	require.Error(t, err)
}

func TestStripeWebhookConfirmsOrder(t *testing.T) {
	conn := dbtest.Open(t)
	ordersRepo := orders.NewRepository(conn)
	paymentSvc, err := payments.NewService(payments.NewRepository(conn), ordersRepo, db.Wrap(conn), outbox.NewService(outbox.NewRepository(conn), nil), nil)
	require.NoError(t, err)
	svc, err := NewService(ServiceParams{Verifiers: verifiers(t), Payments: paymentSvc, Guard: newGuard(t)})
	require.NoError(t, err)

	order := models.Order{
		ID:              uuid.New(),
		CustomerID:      uuid.New(),
		OrderNumber:     "ORD-5151ABCD",
		Status:          enums.OrderStatusPending,
		Subtotal:        decimal.NewFromInt(40),
		ShippingCost:    decimal.NewFromInt(10),
		Tax:             decimal.NewFromInt(4),
		Discount:        decimal.Zero,
		Total:           decimal.NewFromInt(54),
		ShippingAddress: "1 Market St",
		BillingAddress:  "1 Market St",
		Phone:           "555",
		Email:           "buyer@example.com",
	}
	require.NoError(t, ordersRepo.CreateOrder(context.Background(), &order))

	payload := stripePayload("evt_live", "payment_intent.succeeded", order.ID.String())
	result, err := svc.Handle(context.Background(), enums.PaymentMethodStripe, payload, signedStripe(payload))
	require.NoError(t, err)
	require.NotNil(t, result.Outcome)
	assert.True(t, result.Outcome.OrderConfirmed)

	var stored models.Order
	require.NoError(t, conn.First(&stored, "id = ?", order.ID).Error)
	assert.Equal(t, enums.OrderStatusConfirmed, stored.Status)

	var paid []models.Payment
	require.NoError(t, conn.Where("order_id = ?", order.ID).Find(&paid).Error)
	require.Len(t, paid, 1)
	assert.Equal(t, enums.PaymentStatusCompleted, paid[0].Status)
	assert.True(t, paid[0].Amount.Equal(decimal.NewFromInt(54)))
}

func TestHandleSurfacesUnknownOrder(t *testing.T) {
	reactor := &stubReactor{err: pkgerrors.New(pkgerrors.CodeNotFound, "order not found")}
	svc, err := NewService(ServiceParams{Verifiers: verifiers(t), Payments: reactor, Guard: newGuard(t)})
	require.NoError(t, err)

	payload := paypalPayload("WH-404", "PAYMENT.CAPTURE.DENIED", uuid.NewString())
	_, err = svc.Handle(context.Background(), enums.PaymentMethodPayPal, payload, paypalHeader(paypalToken))
	var typed *pkgerrors.Error
	require.True(t, errors.As(err, &typed))
	assert.Equal(t, pkgerrors.CodeNotFound, typed.Code())
}
