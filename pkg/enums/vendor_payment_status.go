package enums

import "fmt"

// VendorPaymentStatus tracks disbursement of a wallet ledger entry.
type VendorPaymentStatus string

const (
	VendorPaymentStatusPending   VendorPaymentStatus = "pending"
	VendorPaymentStatusProcessed VendorPaymentStatus = "processed"
	VendorPaymentStatusFailed    VendorPaymentStatus = "failed"
)

var validVendorPaymentStatuses = []VendorPaymentStatus{
	VendorPaymentStatusPending,
	VendorPaymentStatusProcessed,
	VendorPaymentStatusFailed,
}

// String implements fmt.Stringer.
func (v VendorPaymentStatus) String() string {
	return string(v)
}

// IsValid reports whether the value is a known VendorPaymentStatus.
func (v VendorPaymentStatus) IsValid() bool {
	for _, candidate := range validVendorPaymentStatuses {
		if candidate == v {
			return true
		}
	}
	return false
}

// ParseVendorPaymentStatus converts raw input into a VendorPaymentStatus.
func ParseVendorPaymentStatus(value string) (VendorPaymentStatus, error) {
	for _, candidate := range validVendorPaymentStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid vendor payment status %q", value)
}
