package pricing

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	pkgerrors "github.com/angelmondragon/marketplace-backend/pkg/errors"
)

// Product is the catalog snapshot the engine prices against.
type Product struct {
	ID            uuid.UUID
	VendorID      uuid.UUID
	Name          string
	Price         decimal.Decimal
	DiscountPrice *decimal.Decimal
	IsActive      bool
}

// Line is a priced, vendor-tagged cart line.
type Line struct {
	ProductID uuid.UUID
	VendorID  uuid.UUID
	Name      string
	Size      *string
	Quantity  int
	UnitPrice decimal.Decimal
	Total     decimal.Decimal
}

// Quote is the monetary breakdown of an order.
type Quote struct {
	Subtotal decimal.Decimal
	Discount decimal.Decimal
	Shipping decimal.Decimal
	Tax      decimal.Decimal
	Total    decimal.Decimal
}

type Engine struct {
	rates Rates
}

func NewEngine(rates Rates) *Engine {
	return &Engine{rates: rates}
}

func (e *Engine) Rates() Rates {
	return e.rates
}

// UnitPrice is the discount price when present and lower than list price.
func UnitPrice(p Product) decimal.Decimal {
	if p.DiscountPrice != nil && p.DiscountPrice.IsPositive() && p.DiscountPrice.LessThan(p.Price) {
		return Money(*p.DiscountPrice)
	}
	return Money(p.Price)
}

// PriceLine validates one cart line against the product and the stock pool it
// draws from, returning the priced line.
func (e *Engine) PriceLine(p Product, quantity int, size *string, available int) (Line, error) {
	if quantity <= 0 {
		return Line{}, pkgerrors.Newf(pkgerrors.CodeValidation, "quantity for %s must be positive", p.Name)
	}
	if !p.IsActive {
		return Line{}, pkgerrors.Newf(pkgerrors.CodeValidation, "product %s is not available", p.Name)
	}
	if quantity > available {
		return Line{}, pkgerrors.Newf(pkgerrors.CodeValidation, "insufficient stock for %s", p.Name).
			WithDetails(map[string]any{"product_id": p.ID, "requested": quantity, "available": available})
	}

	unit := UnitPrice(p)
	if !unit.IsPositive() {
		return Line{}, pkgerrors.Newf(pkgerrors.CodeValidation, "product %s has no price", p.Name)
	}
	return Line{
		ProductID: p.ID,
		VendorID:  p.VendorID,
		Name:      p.Name,
		Size:      size,
		Quantity:  quantity,
		UnitPrice: unit,
		Total:     unit.Mul(decimal.NewFromInt(int64(quantity))),
	}, nil
}

// Subtotal sums line totals.
func Subtotal(lines []Line) decimal.Decimal {
	sum := decimal.Zero
	for _, line := range lines {
		sum = sum.Add(line.Total)
	}
	return Money(sum)
}

// Quote computes shipping, tax and total. The discount is clamped to the
// subtotal so the total can never go negative.
func (e *Engine) Quote(lines []Line, discount decimal.Decimal) Quote {
	subtotal := Subtotal(lines)

	discount = Money(discount)
	if discount.IsNegative() {
		discount = decimal.Zero
	}
	if discount.GreaterThan(subtotal) {
		discount = subtotal
	}

	shipping := Money(e.rates.ShippingFee)
	if subtotal.GreaterThanOrEqual(e.rates.ShippingThreshold) {
		shipping = decimal.Zero
	}

	tax := Money(subtotal.Sub(discount).Mul(e.rates.TaxRate))

	return Quote{
		Subtotal: subtotal,
		Discount: discount,
		Shipping: shipping,
		Tax:      tax,
		Total:    subtotal.Add(shipping).Add(tax).Sub(discount),
	}
}
