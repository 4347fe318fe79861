package orders

import (
	"context"

	"github.com/chiayulin/pickline-backend/pkg/enums"
	pkgerrors "github.com/chiayulin/pickline-backend/pkg/errors"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// AddItem reserves qty units of the product and adds them to the current
// customer's active order. An existing line for the product is merged: its
// quantity grows and its status resets to pending so the picker revisits it.
func (s *service) AddItem(ctx context.Context, productID uuid.UUID, qty int) (*Order, error) {
	if qty <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "quantity must be positive")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.current == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "customer selection required")
	}
	order, ok := s.active[s.current]
	if !ok {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "no active order for current customer")
	}

	product, ok := s.catalog.Product(productID)
	if !ok {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
	}

	if err := s.ledger.Reserve(ctx, productID, qty); err != nil {
		return nil, err
	}

	if line := order.itemByProductID(productID); line != nil {
		line.Quantity += qty
		line.Status = enums.ItemStatusPending
		line.MissingQuantity = 0
	} else {
		order.Items = append(order.Items, Item{
			ID:        uuid.New(),
			ProductID: product.ID,
			Name:      product.Name,
			Price:     product.Price,
			Quantity:  qty,
			Weight:    product.Weight,
			Image:     product.Image,
			Status:    enums.ItemStatusPending,
		})
	}

	order.recompute()
	s.syncLocked(ctx, order)
	return order.Clone(), nil
}

// RemoveItem removes a line from the named order and releases its reserved
// quantity. An unknown order or item is logged and ignored, the picking flow
// treats it as already gone.
func (s *service) RemoveItem(ctx context.Context, orderNumber string, itemID uuid.UUID) (*Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	order := s.activeByNumberLocked(orderNumber)
	if order == nil {
		s.logg.Warn(s.logg.WithOrderNumber(ctx, orderNumber), "remove item on unknown order, ignoring")
		return nil, nil
	}

	removed, ok := order.removeItemAt(itemID)
	if !ok {
		s.logg.Warn(s.logg.WithOrderNumber(ctx, orderNumber), "remove of unknown item, ignoring")
		return nil, nil
	}

	if err := s.ledger.Release(ctx, removed.ProductID, removed.Quantity); err != nil {
		s.logg.Error(s.logg.WithOrderNumber(ctx, orderNumber), "stock release failed on item removal", err)
	}

	order.recompute()
	s.syncLocked(ctx, order)
	return order.Clone(), nil
}

// EditItem overwrites price and quantity on a line. Quantity changes
// re-reserve or release the difference so the stock reservation stays in step
// with the line; any edit resets the line to pending. Only real changes are
// recorded in the history.
func (s *service) EditItem(ctx context.Context, orderNumber string, itemID uuid.UUID, newPrice decimal.Decimal, newQty int) (*Order, error) {
	if newQty <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "quantity must be positive")
	}
	if newPrice.IsNegative() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "price cannot be negative")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	order := s.activeByNumberLocked(orderNumber)
	if order == nil {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
	}
	line := order.itemByID(itemID)
	if line == nil {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "item not found")
	}

	switch {
	case newQty > line.Quantity:
		if err := s.ledger.Reserve(ctx, line.ProductID, newQty-line.Quantity); err != nil {
			return nil, err
		}
	case newQty < line.Quantity:
		if err := s.ledger.Release(ctx, line.ProductID, line.Quantity-newQty); err != nil {
			return nil, err
		}
	}

	oldQty, oldPrice := line.Quantity, line.Price
	line.Quantity = newQty
	line.Price = newPrice
	line.Status = enums.ItemStatusPending
	line.MissingQuantity = 0
	recordHistory(order, line, oldQty, newQty, oldPrice, newPrice)

	order.recompute()
	s.syncLocked(ctx, order)
	return order.Clone(), nil
}

// RemoveFromCart removes the product's line from the current customer's
// order, releasing its reserved quantity.
func (s *service) RemoveFromCart(ctx context.Context, productID uuid.UUID) (*Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.current == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "customer selection required")
	}
	order, ok := s.active[s.current]
	if !ok {
		s.logg.Warn(s.logg.WithCustomer(ctx, s.current), "cart removal with no active order, ignoring")
		return nil, nil
	}

	line := order.itemByProductID(productID)
	if line == nil {
		s.logg.Warn(s.logg.WithProductID(ctx, productID.String()), "remove of product not in cart, ignoring")
		return nil, nil
	}

	removed, _ := order.removeItemAt(line.ID)
	if err := s.ledger.Release(ctx, removed.ProductID, removed.Quantity); err != nil {
		s.logg.Error(s.logg.WithOrderNumber(ctx, order.OrderNumber), "stock release failed on cart removal", err)
	}

	order.recompute()
	s.syncLocked(ctx, order)
	return order.Clone(), nil
}

// SetItemPicked marks a line as fulfilled.
func (s *service) SetItemPicked(ctx context.Context, orderNumber string, itemID uuid.UUID) (*Order, error) {
	return s.setItemStatus(ctx, orderNumber, itemID, enums.ItemStatusPicked, 0)
}

// SetItemOutOfStock marks a line as short by missingQty units.
func (s *service) SetItemOutOfStock(ctx context.Context, orderNumber string, itemID uuid.UUID, missingQty int) (*Order, error) {
	if missingQty <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "missing quantity must be positive")
	}
	return s.setItemStatus(ctx, orderNumber, itemID, enums.ItemStatusOutOfStock, missingQty)
}

func (s *service) setItemStatus(ctx context.Context, orderNumber string, itemID uuid.UUID, status enums.ItemStatus, missingQty int) (*Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	order := s.activeByNumberLocked(orderNumber)
	if order == nil {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
	}
	line := order.itemByID(itemID)
	if line == nil {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "item not found")
	}

	line.Status = status
	line.MissingQuantity = missingQty

	order.recompute()
	s.syncLocked(ctx, order)
	return order.Clone(), nil
}

func (s *service) activeByNumberLocked(orderNumber string) *Order {
	for _, order := range s.active {
		if order.OrderNumber == orderNumber {
			return order
		}
	}
	return nil
}
