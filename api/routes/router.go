package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/angelmondragon/marketplace-backend/api/controllers"
	vendorcontrollers "github.com/angelmondragon/marketplace-backend/api/controllers/vendor"
	webhookcontrollers "github.com/angelmondragon/marketplace-backend/api/controllers/webhooks"
	"github.com/angelmondragon/marketplace-backend/api/middleware"
	checkoutsvc "github.com/angelmondragon/marketplace-backend/internal/checkout"
	"github.com/angelmondragon/marketplace-backend/internal/coupons"
	"github.com/angelmondragon/marketplace-backend/internal/fulfillment"
	"github.com/angelmondragon/marketplace-backend/internal/orders"
	"github.com/angelmondragon/marketplace-backend/internal/payments"
	"github.com/angelmondragon/marketplace-backend/internal/payouts"
	"github.com/angelmondragon/marketplace-backend/internal/profiles"
	"github.com/angelmondragon/marketplace-backend/internal/webhooks"
	"github.com/angelmondragon/marketplace-backend/pkg/config"
	"github.com/angelmondragon/marketplace-backend/pkg/logger"
	"github.com/angelmondragon/marketplace-backend/pkg/metrics"
	"github.com/angelmondragon/marketplace-backend/pkg/redis"
)

// Services is everything the API routes dispatch to.
type Services struct {
	Checkout    checkoutsvc.Service
	Orders      orders.Service
	Coupons     coupons.Service
	Payments    payments.Service
	Webhooks    webhooks.Service
	Fulfillment fulfillment.Service
	Payouts     payouts.Service
	Profiles    profiles.Service
}

// Infra is the shared plumbing behind middleware and health checks. A nil
// Limiter disables rate limiting; a nil Idempotency store disables replay.
type Infra struct {
	Limiter     middleware.RateLimiter
	Idempotency redis.IdempotencyStore
	Readiness   map[string]controllers.Pinger
	Gatherer    prometheus.Gatherer
	HTTPMetric  *metrics.HTTPMetrics
}

func NewRouter(cfg *config.Config, logg *logger.Logger, infra Infra, svc Services) http.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg, infra.HTTPMetric),
		middleware.CORS(cfg.App.CORSAllowedOrigins),
	)
	if cfg.App.RequestTimeout > 0 {
		r.Use(chimiddleware.Timeout(cfg.App.RequestTimeout))
	}

	userPolicy := middleware.NewRateLimitPolicy("api", cfg.RateLimit.Window, cfg.RateLimit.UserLimit)
	payoutPolicy := middleware.NewRateLimitPolicy("payouts", cfg.RateLimit.Window, cfg.RateLimit.PayoutLimit)
	webhookPolicy := middleware.NewRateLimitPolicy("webhooks", cfg.RateLimit.Window, cfg.RateLimit.UserLimit*10)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive())
		r.Get("/ready", controllers.HealthReady(infra.Readiness, logg))
	})

	if infra.Gatherer != nil {
		r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(infra.Gatherer, promhttp.HandlerOpts{}))
	}

	r.Route("/api/v1/webhooks", func(r chi.Router) {
		r.Use(middleware.RateLimit(webhookPolicy, infra.Limiter, logg))
		r.Post("/{gateway}", webhookcontrollers.Gateway(svc.Webhooks, logg))
	})

	r.Group(func(r chi.Router) {
		r.Use(
			middleware.Auth(cfg.JWT, logg),
			middleware.RateLimit(userPolicy, infra.Limiter, logg),
			middleware.Idempotency(infra.Idempotency, logg),
		)

		r.Post("/api/v1/checkout", controllers.Checkout(svc.Checkout, logg))
		r.Post("/api/v1/coupons/apply", controllers.ApplyCoupon(svc.Coupons, logg))
		r.Post("/api/v1/payments/initiate", controllers.InitiatePayment(svc.Payments, logg))

		r.Route("/api/v1/orders", func(r chi.Router) {
			r.Get("/", controllers.ListOrders(svc.Orders, logg))
			r.Get("/{orderID}", controllers.GetOrder(svc.Orders, logg))
			r.Post("/{orderID}/cancel", controllers.CancelOrder(svc.Orders, logg))
		})

		r.Route("/api/v1/vendor", func(r chi.Router) {
			r.Use(middleware.VendorGate(svc.Profiles, logg))
			r.Get("/orders", vendorcontrollers.ListOrders(svc.Orders, logg))
			r.Get("/orders/{supplierID}", vendorcontrollers.GetOrder(svc.Orders, logg))
			r.Put("/orders/{supplierID}", vendorcontrollers.UpdateOrder(svc.Fulfillment, logg))
			r.Get("/wallet", vendorcontrollers.Wallet(svc.Payouts, logg))
			r.Get("/bank-accounts", vendorcontrollers.ListBankAccounts(svc.Profiles, logg))
			r.Post("/bank-accounts", vendorcontrollers.CreateBankAccount(svc.Profiles, logg))
			r.Delete("/bank-accounts/{accountID}", vendorcontrollers.DeleteBankAccount(svc.Profiles, logg))
			r.With(middleware.RateLimit(payoutPolicy, infra.Limiter, logg)).
				Post("/payments/request", vendorcontrollers.RequestPayout(svc.Payouts, logg))
		})
	})

	return r
}
