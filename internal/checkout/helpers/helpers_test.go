package helpers

import (
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/marketplace-backend/internal/pricing"
	pkgerrors "github.com/angelmondragon/marketplace-backend/pkg/errors"
)

func strPtr(s string) *string { return &s }

func TestGroupLinesByVendor(t *testing.T) {
	t.Parallel()
	vendorA := uuid.New()
	vendorB := uuid.New()
	lines := []pricing.Line{
		{VendorID: vendorA, Total: decimal.RequireFromString("100.00")},
		{VendorID: vendorB, Total: decimal.RequireFromString("30.00")},
		{VendorID: vendorA, Total: decimal.RequireFromString("5.50")},
	}

	groups := GroupLinesByVendor(lines)
	if len(groups) != 2 {
		t.Fatalf("expected 2 vendors, got %d", len(groups))
	}
	if groups[0].VendorID != vendorA || groups[1].VendorID != vendorB {
		t.Fatal("vendors should keep first-seen order")
	}
	if !groups[0].Subtotal.Equal(decimal.RequireFromString("105.50")) {
		t.Fatalf("unexpected vendorA subtotal %s", groups[0].Subtotal)
	}
	if len(groups[0].LineIndexes) != 2 || groups[0].LineIndexes[1] != 2 {
		t.Fatalf("unexpected vendorA lines %v", groups[0].LineIndexes)
	}
	if !groups[1].Subtotal.Equal(decimal.NewFromInt(30)) {
		t.Fatalf("unexpected vendorB subtotal %s", groups[1].Subtotal)
	}
}

func TestNormalizeLinesMergesDuplicates(t *testing.T) {
	t.Parallel()
	product := uuid.New()
	lines, err := NormalizeLines([]LineItem{
		{ProductID: product, Quantity: 1},
		{ProductID: product, Quantity: 2, Size: strPtr(" M ")},
		{ProductID: product, Quantity: 3},
		{ProductID: product, Quantity: 1, Size: strPtr("M")},
		{ProductID: product, Quantity: 1, Size: strPtr("  ")},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(lines) != 2 {
		t.Fatalf("expected 2 merged lines, got %d", len(lines))
	}
	if lines[0].Size != nil || lines[0].Quantity != 5 {
		t.Fatalf("unexpected base line %+v", lines[0])
	}
	if lines[1].Size == nil || *lines[1].Size != "M" || lines[1].Quantity != 3 {
		t.Fatalf("unexpected sized line %+v", lines[1])
	}
}

func TestNormalizeLinesRejects(t *testing.T) {
	t.Parallel()
	cases := map[string][]LineItem{
		"empty":         nil,
		"nil product":   {{Quantity: 1}},
		"zero quantity": {{ProductID: uuid.New()}},
		"negative":      {{ProductID: uuid.New(), Quantity: -1}},
	}
	for name, items := range cases {
		if _, err := NormalizeLines(items); !pkgerrors.IsCode(err, pkgerrors.CodeValidation) {
			t.Fatalf("%s: expected validation error, got %v", name, err)
		}
	}
}

func TestLockOrderIsStable(t *testing.T) {
	t.Parallel()
	a := uuid.MustParse("00000000-0000-0000-0000-000000000001")
	b := uuid.MustParse("00000000-0000-0000-0000-000000000002")
	order := LockOrder([]LineItem{{ProductID: b}, {ProductID: a, Size: strPtr("L")}, {ProductID: a}})
	if order[0] != 2 || order[1] != 1 || order[2] != 0 {
		t.Fatalf("unexpected lock order %v", order)
	}
}

func TestValidateContact(t *testing.T) {
	t.Parallel()
	got, err := ValidateContact(Contact{ShippingAddress: " 1 Main St ", Phone: "555", Email: "a@example.com"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.BillingAddress != "1 Main St" {
		t.Fatalf("billing should default to shipping, got %q", got.BillingAddress)
	}
	if _, err := ValidateContact(Contact{ShippingAddress: "x", Phone: "1", Email: "nope"}); err == nil {
		t.Fatal("expected email error")
	}
	if _, err := ValidateContact(Contact{Phone: "1", Email: "a@example.com"}); err == nil {
		t.Fatal("expected address error")
	}
}
