package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// CheckoutMetrics counts checkout attempts by outcome.
type CheckoutMetrics struct {
	attempts *prometheus.CounterVec
	duration prometheus.Histogram
}

func NewCheckoutMetrics(reg prometheus.Registerer) *CheckoutMetrics {
	if reg == nil {
		return &CheckoutMetrics{}
	}
	attempts := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "checkout",
		Name:      "attempts_total",
		Help:      "Checkout attempts by outcome.",
	}, []string{"outcome"})
	duration := prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: namespace,
		Subsystem: "checkout",
		Name:      "duration_seconds",
		Help:      "Wall time of checkout attempts including retries.",
		Buckets:   []float64{.01, .025, .05, .1, .25, .5, 1, 2.5, 5},
	})
	reg.MustRegister(attempts, duration)
	return &CheckoutMetrics{attempts: attempts, duration: duration}
}

// ObserveCheckout records one attempt.
func (m *CheckoutMetrics) ObserveCheckout(outcome string, duration time.Duration) {
	if m == nil || m.attempts == nil {
		return
	}
	m.attempts.WithLabelValues(normalizeLabel(outcome)).Inc()
	m.duration.Observe(duration.Seconds())
}

// WebhookMetrics counts gateway callbacks by gateway and result.
type WebhookMetrics struct {
	received *prometheus.CounterVec
}

func NewWebhookMetrics(reg prometheus.Registerer) *WebhookMetrics {
	if reg == nil {
		return &WebhookMetrics{}
	}
	received := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "webhook",
		Name:      "events_total",
		Help:      "Payment gateway webhook deliveries by result.",
	}, []string{"gateway", "result"})
	reg.MustRegister(received)
	return &WebhookMetrics{received: received}
}

// ObserveWebhook records one delivery. result is one of applied, ignored,
// duplicate, rejected or failed.
func (m *WebhookMetrics) ObserveWebhook(gateway, result string) {
	if m == nil || m.received == nil {
		return
	}
	m.received.WithLabelValues(normalizeLabel(gateway), normalizeLabel(result)).Inc()
}
