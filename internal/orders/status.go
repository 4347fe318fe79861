package orders

import (
	"github.com/chiayulin/pickline-backend/pkg/enums"
	"github.com/shopspring/decimal"
)

// AggregateStatus derives an order's status from its line items:
// any pending line keeps the order in pending_picking, otherwise any
// out-of-stock line makes it partially_out_of_stock, otherwise all lines
// picked means picked_complete. An empty order is still waiting to be picked.
// Anything else is a data-integrity signal, reported as unknown rather than
// treated as fatal.
func AggregateStatus(items []Item) enums.OrderStatus {
	if len(items) == 0 {
		return enums.OrderStatusPendingPicking
	}

	pending, outOfStock, picked := 0, 0, 0
	for _, item := range items {
		switch item.Status {
		case enums.ItemStatusPending:
			pending++
		case enums.ItemStatusOutOfStock:
			outOfStock++
		case enums.ItemStatusPicked:
			picked++
		}
	}

	switch {
	case pending > 0:
		return enums.OrderStatusPendingPicking
	case outOfStock > 0:
		return enums.OrderStatusPartiallyOutOfStock
	case picked == len(items):
		return enums.OrderStatusPickedComplete
	default:
		return enums.OrderStatusUnknown
	}
}

// Total sums unit price times quantity over the items.
func Total(items []Item) decimal.Decimal {
	total := decimal.Zero
	for _, item := range items {
		total = total.Add(item.LineTotal())
	}
	return total
}

// recompute refreshes the derived fields after any item mutation.
func (o *Order) recompute() {
	o.TotalPrice = Total(o.Items)
	o.Status = AggregateStatus(o.Items)
}
