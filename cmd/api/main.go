package main

import (
	"context"
	"net/http"
	"os"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/angelmondragon/stockforge-backend/api/routes"
	"github.com/angelmondragon/stockforge-backend/internal/catalog"
	"github.com/angelmondragon/stockforge-backend/internal/costing"
	"github.com/angelmondragon/stockforge-backend/internal/inventory"
	"github.com/angelmondragon/stockforge-backend/internal/production"
	"github.com/angelmondragon/stockforge-backend/internal/recipes"
	"github.com/angelmondragon/stockforge-backend/pkg/config"
	"github.com/angelmondragon/stockforge-backend/pkg/db"
	"github.com/angelmondragon/stockforge-backend/pkg/enums"
	"github.com/angelmondragon/stockforge-backend/pkg/logger"
	"github.com/angelmondragon/stockforge-backend/pkg/metrics"
	"github.com/angelmondragon/stockforge-backend/pkg/migrate"
	"github.com/angelmondragon/stockforge-backend/pkg/redis"
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

	// Redis only backs idempotency replay; the API runs without it.
	var idempotencyStore redis.IdempotencyStore
	if cfg.Redis.URL != "" {
		redisClient, err := redis.New(context.Background(), cfg.Redis)
		if err != nil {
			logg.Error(context.Background(), "failed to bootstrap redis", err)
			os.Exit(1)
		}
		defer func() {
			if err := redisClient.Close(); err != nil {
				logg.Error(context.Background(), "error closing redis", err)
			}
		}()
		idempotencyStore = redisClient
	} else {
		logg.Warn(context.Background(), "redis url not set, idempotency replay disabled")
	}

	defaultStrategy, err := enums.ParseCostingStrategy(cfg.Costing.DefaultStrategy)
	if err != nil {
		logg.Error(context.Background(), "invalid default costing strategy", err)
		os.Exit(1)
	}

	registry := prometheus.NewRegistry()
	ledgerMetrics := metrics.NewLedgerMetrics(registry)

	inventoryRepo := inventory.NewRepository(dbClient.DB())
	inventoryService, err := inventory.NewService(inventoryRepo, dbClient, logg, ledgerMetrics)
	if err != nil {
		logg.Error(context.Background(), "failed to create inventory service", err)
		os.Exit(1)
	}

	costingEngine, err := costing.NewEngine(inventoryRepo, defaultStrategy)
	if err != nil {
		logg.Error(context.Background(), "failed to create costing engine", err)
		os.Exit(1)
	}

	catalogRepo := catalog.NewRepository(dbClient.DB())

	recipeService, err := recipes.NewService(recipes.NewRepository(dbClient.DB()), inventoryRepo, costingEngine, catalogRepo, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create recipe service", err)
		os.Exit(1)
	}

	productionRepo := production.NewRepository(dbClient.DB())
	productionService, err := production.NewService(productionRepo, recipeService, inventoryService, catalogRepo, dbClient, logg, ledgerMetrics)
	if err != nil {
		logg.Error(context.Background(), "failed to create production service", err)
		os.Exit(1)
	}

	costService, err := production.NewCostService(productionRepo, recipeService, defaultStrategy)
	if err != nil {
		logg.Error(context.Background(), "failed to create cost service", err)
		os.Exit(1)
	}

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port
	id := os.Getenv("DYNO")
	if id == "" {
		id = "local"
	}
	ctx := logg.WithFields(context.Background(), map[string]any{
		"env":      cfg.App.Env,
		"addr":     addr,
		"instance": id,
	})
	logg.Info(ctx, "starting api server")

	server := &http.Server{
		Addr: addr,
		Handler: routes.NewRouter(routes.Deps{
			Config:     cfg,
			Logger:     logg,
			DB:         dbClient,
			Idempotent: idempotencyStore,
			Registry:   registry,
			Inventory:  inventoryService,
			Recipes:    recipeService,
			Production: productionService,
			Costs:      costService,
		}),
	}

	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logg.Error(ctx, "api server stopped unexpectedly", err)
		os.Exit(1)
	}
}
