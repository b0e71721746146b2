package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

func TestCheckoutMetricsCountsOutcomes(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewCheckoutMetrics(reg)
	m.ObserveCheckout("success", 40*time.Millisecond)
	m.ObserveCheckout("success", 20*time.Millisecond)
	m.ObserveCheckout("validation_error", time.Millisecond)

	mfs, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather metrics: %v", err)
	}
	if got, err := fetchCounterValue(mfs, "marketplace_checkout_attempts_total", "outcome", "success"); err != nil || got != 2 {
		t.Fatalf("expected 2 successes, got %f (%v)", got, err)
	}
	if got, err := fetchCounterValue(mfs, "marketplace_checkout_attempts_total", "outcome", "validation_error"); err != nil || got != 1 {
		t.Fatalf("expected 1 validation failure, got %f (%v)", got, err)
	}
}

func TestWebhookMetricsLabelsGateway(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewWebhookMetrics(reg)
	m.ObserveWebhook("stripe", "applied")
	m.ObserveWebhook("", "ignored")

	mfs, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather metrics: %v", err)
	}
	if got, err := fetchCounterValue(mfs, "marketplace_webhook_events_total", "gateway", "stripe"); err != nil || got != 1 {
		t.Fatalf("expected stripe=1, got %f (%v)", got, err)
	}
	if got, err := fetchCounterValue(mfs, "marketplace_webhook_events_total", "gateway", "unknown"); err != nil || got != 1 {
		t.Fatalf("expected unknown=1, got %f (%v)", got, err)
	}
}

func TestNilRegistererIsNoop(t *testing.T) {
	NewCheckoutMetrics(nil).ObserveCheckout("success", time.Second)
	NewWebhookMetrics(nil).ObserveWebhook("stripe", "applied")
	NewCronJobMetrics(nil).IncSuccess("job")
	var m *CheckoutMetrics
	m.ObserveCheckout("success", time.Second)
}
