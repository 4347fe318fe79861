package enums

import "fmt"

// OrderStatus tracks the lifecycle of a customer order through picking.
type OrderStatus string

const (
	OrderStatusPendingPicking      OrderStatus = "pending_picking"
	OrderStatusPartiallyOutOfStock OrderStatus = "partially_out_of_stock"
	OrderStatusPickedComplete      OrderStatus = "picked_complete"
	OrderStatusCompleted           OrderStatus = "completed"
	OrderStatusUnknown             OrderStatus = "unknown"
)

var validOrderStatuses = []OrderStatus{
	OrderStatusPendingPicking,
	OrderStatusPartiallyOutOfStock,
	OrderStatusPickedComplete,
	OrderStatusCompleted,
	OrderStatusUnknown,
}

// ActiveOrderStatuses is the status set that marks an order as still being worked.
// Completed orders are excluded on purpose: they live in the archive.
var ActiveOrderStatuses = []OrderStatus{
	OrderStatusPendingPicking,
	OrderStatusPickedComplete,
	OrderStatusPartiallyOutOfStock,
}

// String implements fmt.Stringer.
func (o OrderStatus) String() string {
	return string(o)
}

// IsValid reports whether the value is a known OrderStatus.
func (o OrderStatus) IsValid() bool {
	for _, candidate := range validOrderStatuses {
		if candidate == o {
			return true
		}
	}
	return false
}

// IsTerminal reports whether the status permits no further mutation.
func (o OrderStatus) IsTerminal() bool {
	return o == OrderStatusCompleted
}

// ParseOrderStatus converts raw input into an OrderStatus.
func ParseOrderStatus(value string) (OrderStatus, error) {
	for _, candidate := range validOrderStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid order status %q", value)
}
