package helpers

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/marketplace-backend/internal/pricing"
)

// VendorGroup is one vendor's share of a checkout. Indexes point into the
// priced line slice.
type VendorGroup struct {
	VendorID    uuid.UUID
	Subtotal    decimal.Decimal
	LineIndexes []int
}

// GroupLinesByVendor groups priced lines by vendor, keeping vendors in the
// order they first appear.
func GroupLinesByVendor(lines []pricing.Line) []VendorGroup {
	position := make(map[uuid.UUID]int)
	var groups []VendorGroup
	for i, line := range lines {
		idx, ok := position[line.VendorID]
		if !ok {
			idx = len(groups)
			position[line.VendorID] = idx
			groups = append(groups, VendorGroup{VendorID: line.VendorID, Subtotal: decimal.Zero})
		}
		groups[idx].Subtotal = groups[idx].Subtotal.Add(line.Total)
		groups[idx].LineIndexes = append(groups[idx].LineIndexes, i)
	}
	for i := range groups {
		groups[i].Subtotal = pricing.Money(groups[i].Subtotal)
	}
	return groups
}
