package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

func TestHTTPMetricsLabelsRoutePattern(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewHTTPMetrics(reg)
	m.ObserveRequest("GET", "/api/v1/orders/{orderID}", 200, 5*time.Millisecond)
	m.ObserveRequest("GET", "/api/v1/orders/{orderID}", 404, time.Millisecond)
	m.ObserveRequest("GET", "", 404, time.Millisecond)

	mfs, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather metrics: %v", err)
	}
	if got, err := fetchCounterValue(mfs, "marketplace_http_requests_total", "route", "/api/v1/orders/{orderID}"); err != nil || got != 1 {
		// one series per status, so the first match carries a single request
		t.Fatalf("expected 1 request per status series, got %f (%v)", got, err)
	}
	if got, err := fetchCounterValue(mfs, "marketplace_http_requests_total", "route", "unmatched"); err != nil || got != 1 {
		t.Fatalf("expected unmatched=1, got %f (%v)", got, err)
	}
}

func TestHTTPMetricsNilSafe(t *testing.T) {
	var m *HTTPMetrics
	m.ObserveRequest("GET", "/", 200, time.Millisecond)
	NewHTTPMetrics(nil).ObserveRequest("GET", "/", 200, time.Millisecond)
}
