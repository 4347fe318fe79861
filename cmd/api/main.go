package main

import (
	"context"
	"net/http"
	"os"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/chiayulin/pickline-backend/api/routes"
	"github.com/chiayulin/pickline-backend/internal/catalog"
	"github.com/chiayulin/pickline-backend/internal/customers"
	"github.com/chiayulin/pickline-backend/internal/orders"
	"github.com/chiayulin/pickline-backend/internal/stock"
	"github.com/chiayulin/pickline-backend/pkg/config"
	"github.com/chiayulin/pickline-backend/pkg/db"
	"github.com/chiayulin/pickline-backend/pkg/logger"
	"github.com/chiayulin/pickline-backend/pkg/metrics"
	"github.com/chiayulin/pickline-backend/pkg/migrate"
	"github.com/chiayulin/pickline-backend/pkg/storage/supabase"
)

func main() {
	logg := logger.New(logger.Options{ServiceName: "api"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "api",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	dbClient, err := db.New(context.Background(), cfg.DB, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap database", err)
		os.Exit(1)
	}
	defer func() {
		if err := dbClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing database", err)
		}
	}()

	if err := migrate.MaybeRunDev(context.Background(), cfg, logg, dbClient); err != nil {
		logg.Error(context.Background(), "failed to run dev migrations", err)
		os.Exit(1)
	}

	storageClient, err := supabase.NewClient(context.Background(), cfg.Storage, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap storage", err)
		os.Exit(1)
	}

	registry := prometheus.NewRegistry()
	fulfillmentMetrics := metrics.NewFulfillmentMetrics(registry)

	customerService, err := customers.NewService(customers.NewRepository(dbClient.DB()), logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create customer service", err)
		os.Exit(1)
	}

	catalogService, err := catalog.NewService(catalog.NewRepository(dbClient.DB()), storageClient, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create catalog service", err)
		os.Exit(1)
	}

	ledger, err := stock.NewLedger(dbClient.DB(), catalogService, fulfillmentMetrics, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create stock ledger", err)
		os.Exit(1)
	}

	orderRepo, err := orders.NewRepository(dbClient.DB(), logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create order repository", err)
		os.Exit(1)
	}

	orderNumbers, err := orders.NewNumberGenerator(dbClient.DB())
	if err != nil {
		logg.Error(context.Background(), "failed to create order number generator", err)
		os.Exit(1)
	}

	orderService, err := orders.NewService(orderRepo, orderNumbers, ledger, customerService, catalogService, fulfillmentMetrics, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create order service", err)
		os.Exit(1)
	}

	if _, err := customerService.LoadCustomers(context.Background()); err != nil {
		logg.Warn(logg.WithField(context.Background(), "error", err.Error()), "initial customer load failed")
	}
	if _, err := catalogService.LoadProducts(context.Background()); err != nil {
		logg.Warn(logg.WithField(context.Background(), "error", err.Error()), "initial product load failed")
	}

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port
	ctx := logg.WithFields(context.Background(), map[string]any{
		"env":  cfg.App.Env,
		"addr": addr,
	})
	logg.Info(ctx, "starting api server")

	server := &http.Server{
		Addr:    addr,
		Handler: routes.NewRouter(cfg, logg, dbClient, storageClient, registry, catalogService, customerService, orderService, orderRepo),
	}

	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logg.Error(ctx, "api server stopped unexpectedly", err)
		os.Exit(1)
	}
}
