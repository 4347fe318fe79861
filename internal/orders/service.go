package orders

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/chiayulin/pickline-backend/pkg/db/models"
	"github.com/chiayulin/pickline-backend/pkg/enums"
	pkgerrors "github.com/chiayulin/pickline-backend/pkg/errors"
	"github.com/chiayulin/pickline-backend/pkg/logger"
	"github.com/chiayulin/pickline-backend/pkg/metrics"
	"github.com/chiayulin/pickline-backend/pkg/types"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type stockLedger interface {
	Reserve(ctx context.Context, productID uuid.UUID, qty int) error
	Release(ctx context.Context, productID uuid.UUID, qty int) error
}

type customerDirectory interface {
	FindByName(ctx context.Context, name string) (*models.Customer, error)
}

type productReader interface {
	Product(id uuid.UUID) (models.Product, bool)
}

// Service owns the working order state: the active-order index (one
// non-completed order per customer) and the completed-orders archive keyed by
// order number. All mutation goes through its methods; the repository writes
// snapshots through on every change.
type Service interface {
	SelectCustomer(ctx context.Context, name string) (*Order, error)
	CurrentCustomer() string
	ActiveOrder(customerName string) (*Order, bool)
	ActiveOrders() []*Order
	CompletedOrder(orderNumber string) (*Order, bool)
	CompleteOrder(ctx context.Context, orderNumber string) (*Order, error)
	FindByOrderNumber(ctx context.Context, orderNumber string) (*Order, error)
	FindByCustomerName(ctx context.Context, name string) (*Order, error)

	AddItem(ctx context.Context, productID uuid.UUID, qty int) (*Order, error)
	RemoveItem(ctx context.Context, orderNumber string, itemID uuid.UUID) (*Order, error)
	EditItem(ctx context.Context, orderNumber string, itemID uuid.UUID, newPrice decimal.Decimal, newQty int) (*Order, error)
	RemoveFromCart(ctx context.Context, productID uuid.UUID) (*Order, error)
	SetItemPicked(ctx context.Context, orderNumber string, itemID uuid.UUID) (*Order, error)
	SetItemOutOfStock(ctx context.Context, orderNumber string, itemID uuid.UUID, missingQty int) (*Order, error)
}

type service struct {
	repo      *Repository
	numbers   *NumberGenerator
	ledger    stockLedger
	customers customerDirectory
	catalog   productReader
	metrics   *metrics.FulfillmentMetrics
	logg      *logger.Logger

	mu        sync.Mutex
	current   string
	active    map[string]*Order
	completed map[string]*Order
}

// NewService constructs the order service.
func NewService(
	repo *Repository,
	numbers *NumberGenerator,
	ledger stockLedger,
	customers customerDirectory,
	catalog productReader,
	m *metrics.FulfillmentMetrics,
	logg *logger.Logger,
) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("order repository required")
	}
	if numbers == nil {
		return nil, fmt.Errorf("number generator required")
	}
	if ledger == nil {
		return nil, fmt.Errorf("stock ledger required")
	}
	if customers == nil {
		return nil, fmt.Errorf("customer directory required")
	}
	if catalog == nil {
		return nil, fmt.Errorf("catalog reader required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &service{
		repo:      repo,
		numbers:   numbers,
		ledger:    ledger,
		customers: customers,
		catalog:   catalog,
		metrics:   m,
		logg:      logg,
		active:    map[string]*Order{},
		completed: map[string]*Order{},
	}, nil
}

// SelectCustomer makes the named customer current and loads or creates their
// active order. An existing non-completed row in the store is adopted rather
// than duplicated.
func (s *service) SelectCustomer(ctx context.Context, name string) (*Order, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "customer selection required")
	}

	customer, err := s.customers.FindByName(ctx, name)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if order, ok := s.active[customer.Name]; ok {
		s.current = customer.Name
		return order.Clone(), nil
	}

	order, err := s.repo.FindActiveByCustomerID(ctx, customer.ID)
	if err != nil && err != gorm.ErrRecordNotFound {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load active order")
	}
	if err == gorm.ErrRecordNotFound {
		order, err = s.createOrder(ctx, customer)
		if err != nil {
			return nil, err
		}
	}

	s.active[customer.Name] = order
	s.current = customer.Name
	s.logg.Info(s.logg.WithFields(ctx, map[string]any{
		"customer":     customer.Name,
		"order_number": order.OrderNumber,
	}), "customer selected")
	return order.Clone(), nil
}

func (s *service) createOrder(ctx context.Context, customer *models.Customer) (*Order, error) {
	number, err := s.numbers.Next(ctx)
	if err != nil {
		return nil, err
	}

	order := &Order{
		ID:          uuid.New(),
		OrderNumber: number,
		CustomerID:  customer.ID,
		CustomerInfo: types.CustomerInfo{
			Name:     customer.Name,
			Nickname: customer.Nickname,
			Phone:    customer.Phone,
			Store:    customer.Store,
			StoreNum: customer.StoreNum,
		},
		Status:     enums.OrderStatusPendingPicking,
		TotalPrice: decimal.Zero,
		BoxCount:   1,
	}
	if err := s.repo.Create(ctx, order); err != nil {
		return nil, err
	}
	return order, nil
}

// CurrentCustomer returns the name selected by the last SelectCustomer call.
func (s *service) CurrentCustomer() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.current
}

// ActiveOrder returns the customer's active order from the working set.
func (s *service) ActiveOrder(customerName string) (*Order, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	order, ok := s.active[customerName]
	if !ok {
		return nil, false
	}
	return order.Clone(), true
}

// ActiveOrders returns every order in the working set.
func (s *service) ActiveOrders() []*Order {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*Order, 0, len(s.active))
	for _, order := range s.active {
		out = append(out, order.Clone())
	}
	return out
}

// CompletedOrder returns an archived order by its order number.
func (s *service) CompletedOrder(orderNumber string) (*Order, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	order, ok := s.completed[orderNumber]
	if !ok {
		return nil, false
	}
	return order.Clone(), true
}

// CompleteOrder stamps the current customer's active order completed, removes
// it from the active index, and archives it under its order number. Terminal:
// a completed order is never mutated again.
func (s *service) CompleteOrder(ctx context.Context, orderNumber string) (*Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.current == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "customer selection required")
	}
	order, ok := s.active[s.current]
	if !ok || order.OrderNumber != orderNumber {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "active order not found for current customer")
	}

	now := time.Now().UTC()
	order.Status = enums.OrderStatusCompleted
	order.CompletedAt = &now
	s.syncLocked(ctx, order)

	delete(s.active, s.current)
	s.completed[order.OrderNumber] = order
	s.metrics.IncOrderCompleted()

	s.logg.Info(s.logg.WithOrderNumber(ctx, order.OrderNumber), "order completed")
	return order.Clone(), nil
}

// FindByOrderNumber loads an order by its human-facing number, preferring the
// working set over a store read.
func (s *service) FindByOrderNumber(ctx context.Context, orderNumber string) (*Order, error) {
	orderNumber = strings.TrimSpace(orderNumber)
	if orderNumber == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order number required")
	}

	s.mu.Lock()
	for _, order := range s.active {
		if order.OrderNumber == orderNumber {
			clone := order.Clone()
			s.mu.Unlock()
			return clone, nil
		}
	}
	if order, ok := s.completed[orderNumber]; ok {
		clone := order.Clone()
		s.mu.Unlock()
		return clone, nil
	}
	s.mu.Unlock()

	order, err := s.repo.FindByOrderNumber(ctx, orderNumber)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "find order")
	}
	return order, nil
}

// FindByCustomerName loads a customer's active order. This and
// FindByOrderNumber replace the old single lookup that guessed the identifier
// kind from its shape.
func (s *service) FindByCustomerName(ctx context.Context, name string) (*Order, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "customer name required")
	}

	s.mu.Lock()
	if order, ok := s.active[name]; ok {
		clone := order.Clone()
		s.mu.Unlock()
		return clone, nil
	}
	s.mu.Unlock()

	customer, err := s.customers.FindByName(ctx, name)
	if err != nil {
		return nil, err
	}
	order, err := s.repo.FindActiveByCustomerID(ctx, customer.ID)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "no active order for customer")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "find active order")
	}
	return order, nil
}

// syncLocked pushes the snapshot and reports a failure without rolling back
// the in-memory mutation. The working copy stays authoritative; the next
// successful sync converges the row.
func (s *service) syncLocked(ctx context.Context, order *Order) {
	if err := s.repo.Sync(ctx, order); err != nil {
		s.metrics.IncSyncFailure()
		s.logg.Error(s.logg.WithOrderNumber(ctx, order.OrderNumber), "order sync failed", err)
	}
}

// recordHistory appends an audit entry only when quantity or price actually
// changed.
func recordHistory(order *Order, item *Item, oldQty, newQty int, oldPrice, newPrice decimal.Decimal) {
	if oldQty == newQty && oldPrice.Equal(newPrice) {
		return
	}
	order.History = append(order.History, HistoryEntry{
		ItemID:      item.ID,
		ItemName:    item.Name,
		OldQuantity: oldQty,
		NewQuantity: newQty,
		OldPrice:    oldPrice,
		NewPrice:    newPrice,
		ChangedAt:   time.Now().UTC(),
	})
}
