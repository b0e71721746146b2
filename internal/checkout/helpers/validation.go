package helpers

import (
	"net/mail"
	"sort"
	"strings"

	"github.com/google/uuid"

	pkgerrors "github.com/angelmondragon/marketplace-backend/pkg/errors"
)

// maxLines bounds a single checkout.
const maxLines = 100

// LineItem is a requested (product, size, quantity) triple.
type LineItem struct {
	ProductID uuid.UUID `json:"product_id"`
	Quantity  int       `json:"quantity"`
	Size      *string   `json:"size,omitempty"`
}

// Key identifies the stock pool a line draws from.
func (l LineItem) Key() string {
	if l.Size == nil {
		return l.ProductID.String()
	}
	return l.ProductID.String() + "|" + *l.Size
}

// NormalizeLines trims sizes, merges repeated (product, size) pairs and
// rejects empty or non-positive input. Input order is preserved.
func NormalizeLines(items []LineItem) ([]LineItem, error) {
	if len(items) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "cart contains no items")
	}
	merged := make([]LineItem, 0, len(items))
	index := make(map[string]int, len(items))
	for _, item := range items {
		if item.ProductID == uuid.Nil {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "product id is required")
		}
		if item.Quantity <= 0 {
			return nil, pkgerrors.Newf(pkgerrors.CodeValidation, "quantity for product %s must be positive", item.ProductID)
		}
		if item.Size != nil {
			size := strings.TrimSpace(*item.Size)
			if size == "" {
				item.Size = nil
			} else {
				item.Size = &size
			}
		}
		if i, ok := index[item.Key()]; ok {
			merged[i].Quantity += item.Quantity
			continue
		}
		index[item.Key()] = len(merged)
		merged = append(merged, item)
	}
	if len(merged) > maxLines {
		return nil, pkgerrors.Newf(pkgerrors.CodeValidation, "checkout is limited to %d distinct items", maxLines)
	}
	return merged, nil
}

// LockOrder returns line indexes sorted by stock pool so concurrent checkouts
// take row locks in the same order.
func LockOrder(items []LineItem) []int {
	order := make([]int, len(items))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool {
		return items[order[a]].Key() < items[order[b]].Key()
	})
	return order
}

// Contact is the address and contact snapshot stored on the order.
type Contact struct {
	ShippingAddress string
	BillingAddress  string
	Phone           string
	Email           string
}

// ValidateContact trims every field and fills a blank billing address from
// the shipping address.
func ValidateContact(c Contact) (Contact, error) {
	c.ShippingAddress = strings.TrimSpace(c.ShippingAddress)
	c.BillingAddress = strings.TrimSpace(c.BillingAddress)
	c.Phone = strings.TrimSpace(c.Phone)
	c.Email = strings.TrimSpace(c.Email)

	if c.ShippingAddress == "" {
		return c, pkgerrors.New(pkgerrors.CodeValidation, "shipping address is required")
	}
	if c.BillingAddress == "" {
		c.BillingAddress = c.ShippingAddress
	}
	if c.Phone == "" {
		return c, pkgerrors.New(pkgerrors.CodeValidation, "phone is required")
	}
	if _, err := mail.ParseAddress(c.Email); err != nil {
		return c, pkgerrors.New(pkgerrors.CodeValidation, "a valid email is required")
	}
	return c, nil
}
