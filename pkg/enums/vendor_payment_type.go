package enums

import "fmt"

// VendorPaymentType classifies wallet ledger entries.
type VendorPaymentType string

const (
	VendorPaymentTypePayout           VendorPaymentType = "payout"
	VendorPaymentTypeCommissionCredit VendorPaymentType = "commission_credit"
)

var validVendorPaymentTypes = []VendorPaymentType{
	VendorPaymentTypePayout,
	VendorPaymentTypeCommissionCredit,
}

// String implements fmt.Stringer.
func (v VendorPaymentType) String() string {
	return string(v)
}

// IsValid reports whether the value is a known VendorPaymentType.
func (v VendorPaymentType) IsValid() bool {
	for _, candidate := range validVendorPaymentTypes {
		if candidate == v {
			return true
		}
	}
	return false
}

// ParseVendorPaymentType converts raw input into a VendorPaymentType.
func ParseVendorPaymentType(value string) (VendorPaymentType, error) {
	for _, candidate := range validVendorPaymentTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid vendor payment type %q", value)
}
