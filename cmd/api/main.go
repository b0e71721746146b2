package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/angelmondragon/marketplace-backend/api/controllers"
	"github.com/angelmondragon/marketplace-backend/api/routes"
	checkoutsvc "github.com/angelmondragon/marketplace-backend/internal/checkout"
	"github.com/angelmondragon/marketplace-backend/internal/coupons"
	"github.com/angelmondragon/marketplace-backend/internal/fulfillment"
	"github.com/angelmondragon/marketplace-backend/internal/ledger"
	"github.com/angelmondragon/marketplace-backend/internal/orders"
	"github.com/angelmondragon/marketplace-backend/internal/payments"
	"github.com/angelmondragon/marketplace-backend/internal/payouts"
	"github.com/angelmondragon/marketplace-backend/internal/pricing"
	"github.com/angelmondragon/marketplace-backend/internal/products"
	"github.com/angelmondragon/marketplace-backend/internal/profiles"
	"github.com/angelmondragon/marketplace-backend/internal/referrals"
	"github.com/angelmondragon/marketplace-backend/internal/webhooks"
	"github.com/angelmondragon/marketplace-backend/pkg/config"
	"github.com/angelmondragon/marketplace-backend/pkg/db"
	"github.com/angelmondragon/marketplace-backend/pkg/instance"
	"github.com/angelmondragon/marketplace-backend/pkg/logger"
	"github.com/angelmondragon/marketplace-backend/pkg/metrics"
	"github.com/angelmondragon/marketplace-backend/pkg/migrate"
	"github.com/angelmondragon/marketplace-backend/pkg/outbox"
	"github.com/angelmondragon/marketplace-backend/pkg/outbox/idempotency"
	"github.com/angelmondragon/marketplace-backend/pkg/redis"
)

const shutdownTimeout = 15 * time.Second

func main() {
	logg := logger.New(logger.Options{ServiceName: "api"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "api",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	dbClient, err := db.New(ctx, cfg.DB, logg)
	requireResource(ctx, logg, "database", err)
	defer func() {
		if err := dbClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing database", err)
		}
	}()

	if err := migrate.MaybeRunDev(ctx, cfg, logg, dbClient); err != nil {
		logg.Error(ctx, "failed to run dev migrations", err)
		os.Exit(1)
	}

	redisClient, err := redis.New(ctx, cfg.Redis, logg)
	requireResource(ctx, logg, "redis", err)
	defer func() {
		if err := redisClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing redis", err)
		}
	}()

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	services, err := buildServices(cfg, logg, dbClient, redisClient, registry)
	requireResource(ctx, logg, "services", err)

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port
	ctx = logg.WithFields(ctx, map[string]any{
		"env":      cfg.App.Env,
		"addr":     addr,
		"instance": instance.GetID(),
	})

	server := &http.Server{
		Addr: addr,
		Handler: routes.NewRouter(cfg, logg, routes.Infra{
			Limiter:     redisClient,
			Idempotency: redisClient,
			Readiness:   map[string]controllers.Pinger{"db": dbClient, "redis": redisClient},
			Gatherer:    registry,
			HTTPMetric:  metrics.NewHTTPMetrics(registry),
		}, *services),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logg.Info(ctx, "starting api server")
		errCh <- server.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logg.Error(ctx, "api server stopped unexpectedly", err)
			os.Exit(1)
		}
	case <-ctx.Done():
		logg.Info(ctx, "shutting down api server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logg.Error(shutdownCtx, "graceful shutdown failed", err)
		}
	}
}

func buildServices(cfg *config.Config, logg *logger.Logger, dbClient *db.Client, redisClient *redis.Client, registry prometheus.Registerer) (*routes.Services, error) {
	conn := dbClient.DB()
	rates := pricing.RatesFromConfig(cfg.Commerce)
	publisher := outbox.NewService(outbox.NewRepository(conn), logg)

	ordersRepo := orders.NewRepository(conn)
	profilesRepo := profiles.NewRepository(conn)

	couponSvc, err := coupons.NewService(coupons.NewRepository(conn), time.Now)
	if err != nil {
		return nil, fmt.Errorf("coupons: %w", err)
	}
	checkoutSvc, err := checkoutsvc.NewService(checkoutsvc.ServiceParams{
		Tx:       dbClient,
		Products: products.NewRepository(conn),
		Coupons:  couponSvc,
		Orders:   ordersRepo,
		Engine:   pricing.NewEngine(rates),
		Outbox:   publisher,
		Observer: metrics.NewCheckoutMetrics(registry),
		Logger:   logg,
	})
	if err != nil {
		return nil, fmt.Errorf("checkout: %w", err)
	}
	ordersSvc, err := orders.NewService(ordersRepo, dbClient, publisher)
	if err != nil {
		return nil, fmt.Errorf("orders: %w", err)
	}
	ledgerSvc, err := ledger.NewService(ledger.NewRepository(conn))
	if err != nil {
		return nil, fmt.Errorf("ledger: %w", err)
	}
	referralSvc, err := referrals.NewService(referrals.ServiceParams{
		Orders:   ordersRepo,
		Profiles: profilesRepo,
		Ledger:   ledgerSvc,
		Outbox:   publisher,
		Rates:    rates,
		Logger:   logg,
	})
	if err != nil {
		return nil, fmt.Errorf("referrals: %w", err)
	}
	fulfillmentSvc, err := fulfillment.NewService(fulfillment.ServiceParams{
		Tx:        dbClient,
		Orders:    ordersRepo,
		Referrals: referralSvc,
		Outbox:    publisher,
		Logger:    logg,
	})
	if err != nil {
		return nil, fmt.Errorf("fulfillment: %w", err)
	}
	payoutsSvc, err := payouts.NewService(dbClient, profilesRepo, ledgerSvc, publisher, logg)
	if err != nil {
		return nil, fmt.Errorf("payouts: %w", err)
	}
	paymentsSvc, err := payments.NewService(payments.NewRepository(conn), ordersRepo, dbClient, publisher, logg)
	if err != nil {
		return nil, fmt.Errorf("payments: %w", err)
	}
	profileSvc, err := profiles.NewService(profilesRepo)
	if err != nil {
		return nil, fmt.Errorf("profiles: %w", err)
	}

	verifiers, err := gatewayVerifiers(cfg.Payments)
	if err != nil {
		return nil, fmt.Errorf("webhook verifiers: %w", err)
	}
	guard, err := idempotency.NewManager(redisClient, idempotency.ScopeWebhooks, cfg.Eventing.WebhookIdempotencyTTL)
	if err != nil {
		return nil, fmt.Errorf("webhook replay guard: %w", err)
	}
	webhookSvc, err := webhooks.NewService(webhooks.ServiceParams{
		Verifiers: verifiers,
		Payments:  paymentsSvc,
		Guard:     guard,
		Metrics:   metrics.NewWebhookMetrics(registry),
		Logger:    logg,
	})
	if err != nil {
		return nil, fmt.Errorf("webhooks: %w", err)
	}

	return &routes.Services{
		Checkout:    checkoutSvc,
		Orders:      ordersSvc,
		Coupons:     couponSvc,
		Payments:    paymentsSvc,
		Webhooks:    webhookSvc,
		Fulfillment: fulfillmentSvc,
		Payouts:     payoutsSvc,
		Profiles:    profileSvc,
	}, nil
}

// gatewayVerifiers enables a gateway only when its secret is configured; an
// unconfigured gateway's webhook route answers 404.
func gatewayVerifiers(cfg config.PaymentsConfig) ([]webhooks.Verifier, error) {
	var verifiers []webhooks.Verifier
	if cfg.StripeWebhookSecret != "" {
		v, err := webhooks.NewStripeVerifier(cfg.StripeWebhookSecret)
		if err != nil {
			return nil, err
		}
		verifiers = append(verifiers, v)
	}
	if cfg.RazorpayWebhookSecret != "" {
		v, err := webhooks.NewRazorpayVerifier(cfg.RazorpayWebhookSecret)
		if err != nil {
			return nil, err
		}
		verifiers = append(verifiers, v)
	}
	if cfg.PayPalWebhookToken != "" {
		v, err := webhooks.NewPayPalVerifier(cfg.PayPalWebhookToken)
		if err != nil {
			return nil, err
		}
		verifiers = append(verifiers, v)
	}
	return verifiers, nil
}

func requireResource(ctx context.Context, logg *logger.Logger, resource string, err error) {
	if err == nil {
		return
	}
	logg.Error(ctx, fmt.Sprintf("resource not working: %s", resource), err)
	os.Exit(1)
}
