package fulfillment

import "github.com/angelmondragon/marketplace-backend/pkg/enums"

// transitions lists the legal next states for each sub-order state.
// delivered and cancelled are terminal.
var transitions = map[enums.SupplierStatus][]enums.SupplierStatus{
	enums.SupplierStatusPending:    {enums.SupplierStatusProcessing, enums.SupplierStatusShipped, enums.SupplierStatusCancelled},
	enums.SupplierStatusProcessing: {enums.SupplierStatusShipped, enums.SupplierStatusCancelled},
	enums.SupplierStatusShipped:    {enums.SupplierStatusDelivered, enums.SupplierStatusCancelled},
}

// CanTransition reports whether a sub-order may move from one state to
// another. Staying in the same state is not a transition.
func CanTransition(from, to enums.SupplierStatus) bool {
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// IsTerminal reports whether no further transition is possible.
func IsTerminal(status enums.SupplierStatus) bool {
	return len(transitions[status]) == 0
}
