package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/chiayulin/pickline-backend/api/controllers"
	"github.com/chiayulin/pickline-backend/api/middleware"
	"github.com/chiayulin/pickline-backend/internal/catalog"
	"github.com/chiayulin/pickline-backend/internal/customers"
	"github.com/chiayulin/pickline-backend/internal/orders"
	"github.com/chiayulin/pickline-backend/pkg/config"
	"github.com/chiayulin/pickline-backend/pkg/db"
	"github.com/chiayulin/pickline-backend/pkg/logger"
	"github.com/chiayulin/pickline-backend/pkg/storage/supabase"
)

func NewRouter(
	cfg *config.Config,
	logg *logger.Logger,
	dbP db.Pinger,
	storageP supabase.Pinger,
	registry *prometheus.Registry,
	catalogService catalog.Service,
	customerService customers.Service,
	orderService orders.Service,
	orderRepo *orders.Repository,
) http.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.CORS(),
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, dbP, storageP))
	})

	if registry != nil {
		r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))
	}

	r.Route("/api/v1/products", func(r chi.Router) {
		r.Get("/", controllers.ListProducts(catalogService, logg))
		r.Post("/", controllers.CreateProduct(catalogService, logg))
		r.Patch("/{productID}", controllers.UpdateProduct(catalogService, logg))
		r.Delete("/{productID}", controllers.DeleteProduct(catalogService, logg))
	})

	r.Route("/api/v1/customers", func(r chi.Router) {
		r.Get("/", controllers.ListCustomers(customerService, logg))
		r.Post("/", controllers.CreateCustomer(customerService, logg))
		r.Patch("/{customerID}", controllers.UpdateCustomer(customerService, logg))
		r.Delete("/{customerID}", controllers.DeleteCustomer(customerService, logg))
	})

	r.Route("/api/v1/cart", func(r chi.Router) {
		r.Post("/items", controllers.AddCartItem(orderService, logg))
		r.Delete("/items/{productID}", controllers.RemoveCartItem(orderService, logg))
	})

	r.Route("/api/v1/orders", func(r chi.Router) {
		r.Post("/select", controllers.SelectCustomer(orderService, logg))
		r.Get("/active", controllers.ListActiveOrders(orderService, logg))
		r.Get("/completed", controllers.ListCompletedOrders(orderRepo, logg))
		r.Get("/number/{orderNumber}", controllers.GetOrderByNumber(orderService, logg))
		r.Get("/customer/{customerName}", controllers.GetOrderByCustomer(orderService, logg))
		r.Post("/{orderNumber}/complete", controllers.CompleteOrder(orderService, logg))
		r.Delete("/{orderNumber}/items/{itemID}", controllers.RemoveOrderItem(orderService, logg))
		r.Patch("/{orderNumber}/items/{itemID}", controllers.EditOrderItem(orderService, logg))
		r.Post("/{orderNumber}/items/{itemID}/picked", controllers.MarkItemPicked(orderService, logg))
		r.Post("/{orderNumber}/items/{itemID}/out-of-stock", controllers.MarkItemOutOfStock(orderService, logg))
	})

	return r
}
