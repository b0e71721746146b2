package cron

import (
	"context"
	"fmt"
	"time"

	"github.com/angelmondragon/marketplace-backend/pkg/logger"
)

const (
	PaymentExpiryJobName = "payment_expiry"

	defaultPaymentExpiry = 24 * time.Hour
)

type stalePaymentExpirer interface {
	ExpireStale(ctx context.Context, before time.Time) (int64, error)
}

type PaymentExpiryJobParams struct {
	Logger   *logger.Logger
	Payments stalePaymentExpirer
	// After is how long a payment may stay pending before it is failed.
	After time.Duration
}

func NewPaymentExpiryJob(params PaymentExpiryJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Payments == nil {
		return nil, fmt.Errorf("payments service required")
	}
	after := params.After
	if after <= 0 {
		after = defaultPaymentExpiry
	}
	return &paymentExpiryJob{logg: params.Logger, payments: params.Payments, after: after, now: time.Now}, nil
}

type paymentExpiryJob struct {
	logg     *logger.Logger
	payments stalePaymentExpirer
	after    time.Duration
	now      func() time.Time
}

func (j *paymentExpiryJob) Name() string { return PaymentExpiryJobName }

func (j *paymentExpiryJob) Run(ctx context.Context) error {
	cutoff := j.now().UTC().Add(-j.after)
	expired, err := j.payments.ExpireStale(ctx, cutoff)
	if err != nil {
		return fmt.Errorf("expire pending payments: %w", err)
	}
	if expired > 0 {
		j.logg.Warn(j.logg.WithFields(ctx, map[string]any{
			"cutoff":  cutoff,
			"expired": expired,
		}), "pending payments expired")
	}
	return nil
}
