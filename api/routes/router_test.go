package routes

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/chiayulin/pickline-backend/internal/catalog"
	"github.com/chiayulin/pickline-backend/internal/customers"
	"github.com/chiayulin/pickline-backend/internal/orders"
	"github.com/chiayulin/pickline-backend/pkg/config"
	"github.com/chiayulin/pickline-backend/pkg/db/models"
	pkgerrors "github.com/chiayulin/pickline-backend/pkg/errors"
	"github.com/chiayulin/pickline-backend/pkg/logger"
)

type stubPinger struct{}

func (stubPinger) Ping(context.Context) error {
	return nil
}

type stubCatalogService struct{}

func (stubCatalogService) LoadProducts(ctx context.Context) ([]models.Product, error) {
	return []models.Product{}, nil
}

func (stubCatalogService) Snapshot() []models.Product {
	return nil
}

func (stubCatalogService) Product(id uuid.UUID) (models.Product, bool) {
	return models.Product{}, false
}

func (stubCatalogService) RefreshProduct(ctx context.Context, id uuid.UUID) error {
	return nil
}

func (stubCatalogService) CreateProduct(ctx context.Context, input catalog.CreateProductInput) (*models.Product, error) {
	return &models.Product{Name: input.Name}, nil
}

func (stubCatalogService) UpdateProduct(ctx context.Context, id uuid.UUID, input catalog.UpdateProductInput) (*models.Product, error) {
	return nil, pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
}

func (stubCatalogService) DeleteProduct(ctx context.Context, id uuid.UUID) error {
	return nil
}

type stubCustomerService struct{}

func (stubCustomerService) LoadCustomers(ctx context.Context) ([]models.Customer, error) {
	return []models.Customer{}, nil
}

func (stubCustomerService) Snapshot() []models.Customer {
	return nil
}

func (stubCustomerService) CreateCustomer(ctx context.Context, input customers.CreateCustomerInput) (*models.Customer, error) {
	return &models.Customer{Name: input.Name}, nil
}

func (stubCustomerService) UpdateCustomer(ctx context.Context, id uuid.UUID, input customers.UpdateCustomerInput) (*models.Customer, error) {
	return nil, pkgerrors.New(pkgerrors.CodeNotFound, "customer not found")
}

func (stubCustomerService) DeleteCustomer(ctx context.Context, id uuid.UUID) error {
	return nil
}

func (stubCustomerService) FindByName(ctx context.Context, name string) (*models.Customer, error) {
	return nil, pkgerrors.New(pkgerrors.CodeNotFound, "customer not found")
}

type stubOrderService struct{}

func (stubOrderService) SelectCustomer(ctx context.Context, name string) (*orders.Order, error) {
	return &orders.Order{OrderNumber: "20250901001"}, nil
}

func (stubOrderService) CurrentCustomer() string {
	return ""
}

func (stubOrderService) ActiveOrder(customerName string) (*orders.Order, bool) {
	return nil, false
}

func (stubOrderService) ActiveOrders() []*orders.Order {
	return []*orders.Order{}
}

func (stubOrderService) CompletedOrder(orderNumber string) (*orders.Order, bool) {
	return nil, false
}

func (stubOrderService) CompleteOrder(ctx context.Context, orderNumber string) (*orders.Order, error) {
	return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "order is not the current customer's active order")
}

func (stubOrderService) FindByOrderNumber(ctx context.Context, orderNumber string) (*orders.Order, error) {
	return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
}

func (stubOrderService) FindByCustomerName(ctx context.Context, name string) (*orders.Order, error) {
	return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
}

func (stubOrderService) AddItem(ctx context.Context, productID uuid.UUID, qty int) (*orders.Order, error) {
	return &orders.Order{}, nil
}

func (stubOrderService) RemoveItem(ctx context.Context, orderNumber string, itemID uuid.UUID) (*orders.Order, error) {
	return nil, nil
}

func (stubOrderService) EditItem(ctx context.Context, orderNumber string, itemID uuid.UUID, newPrice decimal.Decimal, newQty int) (*orders.Order, error) {
	return &orders.Order{}, nil
}

func (stubOrderService) RemoveFromCart(ctx context.Context, productID uuid.UUID) (*orders.Order, error) {
	return nil, nil
}

func (stubOrderService) SetItemPicked(ctx context.Context, orderNumber string, itemID uuid.UUID) (*orders.Order, error) {
	return &orders.Order{}, nil
}

func (stubOrderService) SetItemOutOfStock(ctx context.Context, orderNumber string, itemID uuid.UUID, missingQty int) (*orders.Order, error) {
	return &orders.Order{}, nil
}

func testConfig() *config.Config {
	return &config.Config{
		App: config.AppConfig{Env: "test", Port: "0"},
	}
}

func newTestRouter(t *testing.T) http.Handler {
	t.Helper()
	logg := logger.New(logger.Options{ServiceName: "test-routing", Level: logger.ParseLevel("debug"), Output: io.Discard})

	dsn := "file:routes_" + uuid.NewString() + "?mode=memory&cache=shared"
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{Logger: gormlogger.Default.LogMode(gormlogger.Silent)})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := db.Exec(`CREATE TABLE orders (
		id TEXT PRIMARY KEY,
		order_number TEXT NOT NULL UNIQUE,
		customer_id TEXT NOT NULL,
		customer_info TEXT NOT NULL DEFAULT '{}',
		items TEXT NOT NULL DEFAULT '[]',
		status TEXT NOT NULL DEFAULT 'pending_picking',
		total_price NUMERIC NOT NULL DEFAULT 0,
		history TEXT NOT NULL DEFAULT '[]',
		box_count INTEGER NOT NULL DEFAULT 1,
		completed_at DATETIME,
		created_at DATETIME,
		updated_at DATETIME
	)`).Error; err != nil {
		t.Fatalf("create orders table: %v", err)
	}

	repo, err := orders.NewRepository(db, logg)
	if err != nil {
		t.Fatalf("new repository: %v", err)
	}

	return NewRouter(
		testConfig(),
		logg,
		stubPinger{}, // db.Pinger
		stubPinger{}, // supabase.Pinger
		nil,          // metrics registry
		stubCatalogService{},
		stubCustomerService{},
		stubOrderService{},
		repo,
	)
}

func TestHealthLive(t *testing.T) {
	router := newTestRouter(t)
	req := httptest.NewRequest(http.MethodGet, "/health/live", nil)
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", resp.Code)
	}
	if got := resp.Header().Get("X-Pickline-Env"); got != "test" {
		t.Fatalf("expected env header, got %q", got)
	}
}

func TestHealthReady(t *testing.T) {
	router := newTestRouter(t)
	req := httptest.NewRequest(http.MethodGet, "/health/ready", nil)
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", resp.Code)
	}
}

func TestSelectCustomerRejectsBadJSON(t *testing.T) {
	router := newTestRouter(t)
	req := httptest.NewRequest(http.MethodPost, "/api/v1/orders/select", strings.NewReader("{"))
	req.Header.Set("Content-Type", "application/json")
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for invalid payload got %d", resp.Code)
	}
}

func TestSelectCustomerAcceptsGoodJSON(t *testing.T) {
	router := newTestRouter(t)
	req := httptest.NewRequest(http.MethodPost, "/api/v1/orders/select", strings.NewReader(`{"customer_name":"Alice"}`))
	req.Header.Set("Content-Type", "application/json")
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 for valid payload got %d", resp.Code)
	}
}

func TestAddCartItemRejectsBadProductID(t *testing.T) {
	router := newTestRouter(t)
	body := `{"product_id":"not-a-uuid","quantity":1}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/cart/items", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for bad product id got %d", resp.Code)
	}
}

func TestOrderLookupNotFound(t *testing.T) {
	router := newTestRouter(t)
	req := httptest.NewRequest(http.MethodGet, "/api/v1/orders/number/20250901099", nil)
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	if resp.Code != http.StatusNotFound {
		t.Fatalf("expected 404 for unknown order got %d", resp.Code)
	}
}

func TestListCompletedOrdersEmpty(t *testing.T) {
	router := newTestRouter(t)
	req := httptest.NewRequest(http.MethodGet, "/api/v1/orders/completed", nil)
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 for empty archive got %d", resp.Code)
	}
}
