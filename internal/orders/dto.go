package orders

import (
	"time"

	"github.com/chiayulin/pickline-backend/pkg/enums"
	"github.com/chiayulin/pickline-backend/pkg/types"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Item is a working order line. Lines are owned by their parent order and
// mutated only through the order service.
type Item struct {
	ID              uuid.UUID        `json:"id"`
	ProductID       uuid.UUID        `json:"product_id"`
	Name            string           `json:"name"`
	Price           decimal.Decimal  `json:"price"`
	Quantity        int              `json:"quantity"`
	Weight          decimal.Decimal  `json:"weight"`
	Image           string           `json:"image,omitempty"`
	Status          enums.ItemStatus `json:"status"`
	MissingQuantity int              `json:"missing_quantity,omitempty"`
}

// LineTotal is the item's contribution to the order total.
func (i Item) LineTotal() decimal.Decimal {
	return i.Price.Mul(decimal.NewFromInt(int64(i.Quantity)))
}

// HistoryEntry records a quantity or price change on a line. No-op edits
// produce no entry.
type HistoryEntry struct {
	ItemID      uuid.UUID       `json:"item_id"`
	ItemName    string          `json:"item_name"`
	OldQuantity int             `json:"old_quantity"`
	NewQuantity int             `json:"new_quantity"`
	OldPrice    decimal.Decimal `json:"old_price"`
	NewPrice    decimal.Decimal `json:"new_price"`
	ChangedAt   time.Time       `json:"changed_at"`
}

// Order is the in-memory working order. The active index holds at most one
// per customer; completed orders move to the archive keyed by order number.
type Order struct {
	ID           uuid.UUID          `json:"id"`
	OrderNumber  string             `json:"order_number"`
	CustomerID   uuid.UUID          `json:"customer_id"`
	CustomerInfo types.CustomerInfo `json:"customer_info"`
	Items        []Item             `json:"items"`
	Status       enums.OrderStatus  `json:"status"`
	TotalPrice   decimal.Decimal    `json:"total_price"`
	History      []HistoryEntry     `json:"history"`
	BoxCount     int                `json:"box_count"`
	CompletedAt  *time.Time         `json:"completed_at,omitempty"`
	CreatedAt    time.Time          `json:"created_at"`
	UpdatedAt    time.Time          `json:"updated_at"`
}

// Clone returns a copy whose slices are detached from the receiver.
func (o *Order) Clone() *Order {
	if o == nil {
		return nil
	}
	out := *o
	if o.Items != nil {
		out.Items = make([]Item, len(o.Items))
		copy(out.Items, o.Items)
	}
	if o.History != nil {
		out.History = make([]HistoryEntry, len(o.History))
		copy(out.History, o.History)
	}
	if o.CompletedAt != nil {
		ts := *o.CompletedAt
		out.CompletedAt = &ts
	}
	return &out
}

func (o *Order) itemByID(itemID uuid.UUID) *Item {
	for i := range o.Items {
		if o.Items[i].ID == itemID {
			return &o.Items[i]
		}
	}
	return nil
}

func (o *Order) itemByProductID(productID uuid.UUID) *Item {
	for i := range o.Items {
		if o.Items[i].ProductID == productID {
			return &o.Items[i]
		}
	}
	return nil
}

func (o *Order) removeItemAt(itemID uuid.UUID) (Item, bool) {
	for i := range o.Items {
		if o.Items[i].ID == itemID {
			removed := o.Items[i]
			o.Items = append(o.Items[:i], o.Items[i+1:]...)
			return removed, true
		}
	}
	return Item{}, false
}
