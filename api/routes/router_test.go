package routes

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/angelmondragon/stockforge-backend/internal/catalog"
	"github.com/angelmondragon/stockforge-backend/internal/costing"
	"github.com/angelmondragon/stockforge-backend/internal/inventory"
	"github.com/angelmondragon/stockforge-backend/internal/production"
	"github.com/angelmondragon/stockforge-backend/internal/recipes"
	"github.com/angelmondragon/stockforge-backend/pkg/config"
	"github.com/angelmondragon/stockforge-backend/pkg/db"
	"github.com/angelmondragon/stockforge-backend/pkg/db/models"
	"github.com/angelmondragon/stockforge-backend/pkg/enums"
	"github.com/angelmondragon/stockforge-backend/pkg/logger"
)

func newTestRouter(t *testing.T) (http.Handler, *gorm.DB) {
	t.Helper()
	dsn := fmt.Sprintf("file:routes_%s?mode=memory&cache=shared", uuid.NewString())
	conn, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{SkipDefaultTransaction: true})
	require.NoError(t, err)
	require.NoError(t, conn.AutoMigrate(
		&models.Material{},
		&models.Product{},
		&models.ProductVariant{},
		&models.InventoryBatch{},
		&models.InventoryTransaction{},
		&models.InventoryBalance{},
		&models.Recipe{},
		&models.RecipeMaterial{},
		&models.RecipeOutput{},
		&models.RecipeCostRate{},
		&models.ProductionBatch{},
		&models.MaterialConsumption{},
	))

	logg := logger.New(logger.Options{ServiceName: "test"})
	client := db.NewFromConn(conn)
	invRepo := inventory.NewRepository(conn)
	invSvc, err := inventory.NewService(invRepo, client, logg, nil)
	require.NoError(t, err)
	engine, err := costing.NewEngine(invRepo, enums.CostingStrategyAverage)
	require.NoError(t, err)
	catalogRepo := catalog.NewRepository(conn)
	recipeSvc, err := recipes.NewService(recipes.NewRepository(conn), invRepo, engine, catalogRepo, logg)
	require.NoError(t, err)
	prodRepo := production.NewRepository(conn)
	prodSvc, err := production.NewService(prodRepo, recipeSvc, invSvc, catalogRepo, client, logg, nil)
	require.NoError(t, err)
	costSvc, err := production.NewCostService(prodRepo, recipeSvc, enums.CostingStrategyAverage)
	require.NoError(t, err)

	router := NewRouter(Deps{
		Config:     &config.Config{App: config.AppConfig{Env: "test"}},
		Logger:     logg,
		Inventory:  invSvc,
		Recipes:    recipeSvc,
		Production: prodSvc,
		Costs:      costSvc,
	})
	return router, conn
}

func doJSON(t *testing.T, router http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func TestHealthLive(t *testing.T) {
	router, _ := newTestRouter(t)
	rec := doJSON(t, router, http.MethodGet, "/health/live", "")
	require.Equal(t, http.StatusOK, rec.Code)
}

func TestAddAndGetStockOverHTTP(t *testing.T) {
	router, conn := newTestRouter(t)

	material := &models.Material{Name: "Steel Rod", SKU: "ROD-01", Unit: "kg"}
	require.NoError(t, conn.Create(material).Error)

	body := fmt.Sprintf(`{"item_type":"material","item_id":"%s","quantity":"10","price_per_unit":"2.5","unit":"kg"}`, material.ID)
	rec := doJSON(t, router, http.MethodPost, "/api/v1/inventory/stock", body)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	rec = doJSON(t, router, http.MethodGet, fmt.Sprintf("/api/v1/inventory/material/%s", material.ID), "")
	require.Equal(t, http.StatusOK, rec.Code)

	var envelope struct {
		Data struct {
			TotalQuantity string `json:"total_quantity"`
			AveragePrice  string `json:"average_price"`
			Unit          string `json:"unit"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &envelope))
	require.Equal(t, "10", envelope.Data.TotalQuantity)
	require.Equal(t, "2.5", envelope.Data.AveragePrice)
	require.Equal(t, "kg", envelope.Data.Unit)
}

func TestRemoveStockInsufficientOverHTTP(t *testing.T) {
	router, _ := newTestRouter(t)
	itemID := uuid.New()

	body := fmt.Sprintf(`{"item_type":"material","item_id":"%s","quantity":"5"}`, itemID)
	rec := doJSON(t, router, http.MethodPost, "/api/v1/inventory/stock/remove", body)
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	require.Contains(t, rec.Body.String(), "INSUFFICIENT_STOCK")
}

func TestGetStockNotFoundOverHTTP(t *testing.T) {
	router, _ := newTestRouter(t)
	rec := doJSON(t, router, http.MethodGet, fmt.Sprintf("/api/v1/inventory/material/%s", uuid.New()), "")
	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestUnknownItemTypeOverHTTP(t *testing.T) {
	router, _ := newTestRouter(t)
	rec := doJSON(t, router, http.MethodGet, fmt.Sprintf("/api/v1/inventory/gadget/%s", uuid.New()), "")
	require.Equal(t, http.StatusBadRequest, rec.Code)
}
