package main

import (
	"context"
	"net/http"
	"os"

	"github.com/joho/godotenv"

	"github.com/smartmall/fulfillment-backend/api/controllers"
	"github.com/smartmall/fulfillment-backend/api/routes"
	"github.com/smartmall/fulfillment-backend/internal/agents"
	"github.com/smartmall/fulfillment-backend/internal/inventory"
	"github.com/smartmall/fulfillment-backend/internal/ledger"
	"github.com/smartmall/fulfillment-backend/internal/reconciliation"
	"github.com/smartmall/fulfillment-backend/internal/shipments"
	"github.com/smartmall/fulfillment-backend/pkg/config"
	"github.com/smartmall/fulfillment-backend/pkg/courier"
	"github.com/smartmall/fulfillment-backend/pkg/db"
	"github.com/smartmall/fulfillment-backend/pkg/logger"
	"github.com/smartmall/fulfillment-backend/pkg/migrate"
	"github.com/smartmall/fulfillment-backend/pkg/redis"
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

	redisClient, err := redis.New(context.Background(), cfg.Redis, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap redis", err)
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing redis", err)
		}
	}()

	courierClient, err := courier.NewClient(
		cfg.Courier.BaseURL,
		cfg.Courier.Token,
		cfg.Courier.PartnerCode,
		courier.WithTimeout(cfg.Courier.Timeout),
		courier.WithMaxRetries(cfg.Courier.MaxRetries),
	)
	if err != nil {
		logg.Error(context.Background(), "failed to create courier client", err)
		os.Exit(1)
	}

	inventoryService, err := inventory.NewService(inventory.NewRepository(dbClient.DB()))
	if err != nil {
		logg.Error(context.Background(), "failed to create inventory service", err)
		os.Exit(1)
	}

	ledgerService, err := ledger.NewService(ledger.NewRepository(dbClient.DB()), dbClient)
	if err != nil {
		logg.Error(context.Background(), "failed to create ledger service", err)
		os.Exit(1)
	}

	shipmentService, err := shipments.NewService(
		shipments.NewRepository(dbClient.DB()),
		dbClient,
		inventoryService,
		ledgerService,
		shipments.NewOrderPromoter(),
		courierClient,
		cfg.Fulfillment.DeliveryBonus,
	)
	if err != nil {
		logg.Error(context.Background(), "failed to create shipment service", err)
		os.Exit(1)
	}

	reconciliationService, err := reconciliation.NewService(
		reconciliation.NewRepository(dbClient.DB()),
		ledgerService,
		dbClient,
	)
	if err != nil {
		logg.Error(context.Background(), "failed to create reconciliation service", err)
		os.Exit(1)
	}

	agentService, err := agents.NewService(agents.NewRepository(dbClient.DB()))
	if err != nil {
		logg.Error(context.Background(), "failed to create agent service", err)
		os.Exit(1)
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

	readiness := map[string]controllers.Pinger{
		"db":    dbClient,
		"redis": redisClient,
	}

	server := &http.Server{
		Addr: addr,
		Handler: routes.NewRouter(
			cfg,
			logg,
			readiness,
			shipmentService,
			agentService,
			ledgerService,
			reconciliationService,
			inventoryService,
		),
	}

	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logg.Error(ctx, "api server stopped unexpectedly", err)
		os.Exit(1)
	}
}
