package orders

import (
	"testing"

	"github.com/chiayulin/pickline-backend/pkg/enums"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func line(status enums.ItemStatus) Item {
	return Item{ID: uuid.New(), ProductID: uuid.New(), Quantity: 1, Price: decimal.NewFromInt(10), Status: status}
}

func TestAggregateStatus(t *testing.T) {
	cases := []struct {
		name  string
		items []Item
		want  enums.OrderStatus
	}{
		{
			name:  "empty order is still pending",
			items: nil,
			want:  enums.OrderStatusPendingPicking,
		},
		{
			name:  "any pending wins",
			items: []Item{line(enums.ItemStatusPicked), line(enums.ItemStatusPending), line(enums.ItemStatusOutOfStock)},
			want:  enums.OrderStatusPendingPicking,
		},
		{
			name:  "out of stock without pending",
			items: []Item{line(enums.ItemStatusPicked), line(enums.ItemStatusOutOfStock)},
			want:  enums.OrderStatusPartiallyOutOfStock,
		},
		{
			name:  "all picked",
			items: []Item{line(enums.ItemStatusPicked), line(enums.ItemStatusPicked)},
			want:  enums.OrderStatusPickedComplete,
		},
		{
			name:  "unrecognized item status falls back to unknown",
			items: []Item{line(enums.ItemStatus("weird"))},
			want:  enums.OrderStatusUnknown,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, AggregateStatus(tc.items))
		})
	}
}

func TestTotalSumsLineTotals(t *testing.T) {
	items := []Item{
		{Price: decimal.NewFromFloat(12.50), Quantity: 2},
		{Price: decimal.NewFromInt(100), Quantity: 1},
	}
	assert.True(t, decimal.NewFromInt(125).Equal(Total(items)))
	assert.True(t, decimal.Zero.Equal(Total(nil)))
}

func TestRecomputeRefreshesDerivedFields(t *testing.T) {
	order := &Order{Items: []Item{
		{Price: decimal.NewFromInt(30), Quantity: 3, Status: enums.ItemStatusPicked},
	}}
	order.recompute()
	assert.Equal(t, enums.OrderStatusPickedComplete, order.Status)
	assert.True(t, decimal.NewFromInt(90).Equal(order.TotalPrice))
}
