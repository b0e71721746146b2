package pricing

import (
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/marketplace-backend/pkg/config"
)

// Rates are the commerce parameters applied to a single checkout or
// settlement. They are captured once and passed in explicitly.
type Rates struct {
	CommissionRate    decimal.Decimal
	TaxRate           decimal.Decimal
	ShippingThreshold decimal.Decimal
	ShippingFee       decimal.Decimal
	ReferralRate      decimal.Decimal
}

func RatesFromConfig(cfg config.CommerceConfig) Rates {
	return Rates{
		CommissionRate:    cfg.CommissionRate,
		TaxRate:           cfg.TaxRate,
		ShippingThreshold: cfg.ShippingThreshold,
		ShippingFee:       cfg.ShippingFee,
		ReferralRate:      cfg.ReferralRate,
	}
}

// Money rounds to the smallest currency unit.
func Money(d decimal.Decimal) decimal.Decimal {
	return d.Round(2)
}

// Split divides a vendor subtotal into the platform commission and the
// vendor payout. Payout is derived by subtraction so the two always sum to
// the subtotal exactly.
func (r Rates) Split(subtotal decimal.Decimal) (commission, payout decimal.Decimal) {
	subtotal = Money(subtotal)
	commission = Money(subtotal.Mul(r.CommissionRate))
	return commission, subtotal.Sub(commission)
}

// ReferralCredit is the amount credited to a referrer for one delivered
// sub-order.
func (r Rates) ReferralCredit(payout decimal.Decimal) decimal.Decimal {
	return Money(payout.Mul(r.ReferralRate))
}
