package enums

import "fmt"

// SupplierStatus is the fulfillment state of a vendor sub-order.
type SupplierStatus string

const (
	SupplierStatusPending    SupplierStatus = "pending"
	SupplierStatusProcessing SupplierStatus = "processing"
	SupplierStatusShipped    SupplierStatus = "shipped"
	SupplierStatusDelivered  SupplierStatus = "delivered"
	SupplierStatusCancelled  SupplierStatus = "cancelled"
)

var validSupplierStatuses = []SupplierStatus{
	SupplierStatusPending,
	SupplierStatusProcessing,
	SupplierStatusShipped,
	SupplierStatusDelivered,
	SupplierStatusCancelled,
}

// String implements fmt.Stringer.
func (v SupplierStatus) String() string {
	return string(v)
}

// IsValid reports whether the value is a known SupplierStatus.
func (v SupplierStatus) IsValid() bool {
	for _, candidate := range validSupplierStatuses {
		if candidate == v {
			return true
		}
	}
	return false
}

// ParseSupplierStatus converts raw input into a SupplierStatus.
func ParseSupplierStatus(value string) (SupplierStatus, error) {
	for _, candidate := range validSupplierStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid supplier status %q", value)
}
