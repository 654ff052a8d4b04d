package recipes

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/angelmondragon/stockforge-backend/internal/catalog"
	"github.com/angelmondragon/stockforge-backend/internal/costing"
	"github.com/angelmondragon/stockforge-backend/internal/inventory"
	"github.com/angelmondragon/stockforge-backend/pkg/db"
	"github.com/angelmondragon/stockforge-backend/pkg/db/models"
	"github.com/angelmondragon/stockforge-backend/pkg/enums"
	"github.com/angelmondragon/stockforge-backend/pkg/errors"
	"github.com/angelmondragon/stockforge-backend/pkg/logger"
	"github.com/angelmondragon/stockforge-backend/pkg/types"
)

type testEnv struct {
	conn      *gorm.DB
	svc       Service
	inventory inventory.Service
}

func dec(value string) decimal.Decimal {
	return decimal.RequireFromString(value)
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	dsn := fmt.Sprintf("file:recipes_%s?mode=memory&cache=shared", uuid.NewString())
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
	))

	logg := logger.New(logger.Options{ServiceName: "test"})
	invRepo := inventory.NewRepository(conn)
	invSvc, err := inventory.NewService(invRepo, db.NewFromConn(conn), logg, nil)
	require.NoError(t, err)
	engine, err := costing.NewEngine(invRepo, enums.CostingStrategyAverage)
	require.NoError(t, err)

	svc, err := NewService(NewRepository(conn), invRepo, engine, catalog.NewRepository(conn), logg)
	require.NoError(t, err)
	return &testEnv{conn: conn, svc: svc, inventory: invSvc}
}

func (e *testEnv) seedMaterial(t *testing.T, name string) types.ItemRef {
	t.Helper()
	material := &models.Material{Name: name, SKU: name, Unit: "kg"}
	require.NoError(t, e.conn.Create(material).Error)
	return types.MaterialRef(material.ID)
}

func (e *testEnv) seedStock(t *testing.T, item types.ItemRef, qty, price string) {
	t.Helper()
	_, err := e.inventory.AddStock(context.Background(), inventory.AddStockInput{
		Item:         item,
		Quantity:     dec(qty),
		PricePerUnit: dec(price),
		Unit:         "kg",
		ReceivedDate: time.Now(),
		ActorID:      uuid.New(),
	})
	require.NoError(t, err)
}

func validInput(material, output types.ItemRef) CreateRecipeInput {
	return CreateRecipeInput{
		Name:                  "Plain Loaf",
		OutputUnit:            "pcs",
		ProductionTimeMinutes: 90,
		Materials: []MaterialInput{{
			Item:            material,
			Quantity:        dec("2"),
			WastePercentage: dec("0"),
			Unit:            "kg",
		}},
		Outputs: []OutputInput{{
			Item:      output,
			Quantity:  dec("1"),
			IsDefault: true,
		}},
		CostRates: []CostRateInput{{
			Category:    enums.CostCategoryLabor,
			RatePerUnit: dec("0.5"),
			FixedRate:   dec("10"),
		}},
	}
}

func TestCreateAndGetRecipe(t *testing.T) {
	env := newTestEnv(t)
	material := env.seedMaterial(t, "Flour")
	output := types.ProductRef(uuid.New())

	created, err := env.svc.CreateRecipe(context.Background(), validInput(material, output))
	require.NoError(t, err)

	loaded, err := env.svc.GetRecipe(context.Background(), created.ID)
	require.NoError(t, err)
	require.Equal(t, "Plain Loaf", loaded.Name)
	require.Len(t, loaded.Materials, 1)
	require.Len(t, loaded.Outputs, 1)
	require.Len(t, loaded.CostRates, 1)
	require.True(t, loaded.OutputQuantity().Equal(dec("1")))
	require.NotNil(t, loaded.DefaultOutput())

	listed, err := env.svc.ListRecipes(context.Background())
	require.NoError(t, err)
	require.Len(t, listed, 1)
}

func TestCreateRecipeValidation(t *testing.T) {
	env := newTestEnv(t)
	material := env.seedMaterial(t, "Flour")
	output := types.ProductRef(uuid.New())
	ctx := context.Background()

	input := validInput(material, output)
	input.Materials = nil
	_, err := env.svc.CreateRecipe(ctx, input)
	require.True(t, errors.IsCode(err, errors.CodeValidation))

	input = validInput(material, output)
	input.Outputs = nil
	_, err = env.svc.CreateRecipe(ctx, input)
	require.True(t, errors.IsCode(err, errors.CodeValidation))

	input = validInput(material, output)
	input.Materials[0].WastePercentage = dec("100")
	_, err = env.svc.CreateRecipe(ctx, input)
	require.True(t, errors.IsCode(err, errors.CodeValidation))

	input = validInput(material, output)
	input.Materials[0].WastePercentage = dec("-1")
	_, err = env.svc.CreateRecipe(ctx, input)
	require.True(t, errors.IsCode(err, errors.CodeValidation))

	input = validInput(material, output)
	input.OutputUnit = "fathom"
	_, err = env.svc.CreateRecipe(ctx, input)
	require.True(t, errors.IsCode(err, errors.CodeValidation))
}

func TestRequiredQuantityWasteFormula(t *testing.T) {
	material := models.RecipeMaterial{
		Quantity:        dec("2"),
		WastePercentage: dec("10"),
	}
	// (2 / 1) * 5 = 10, plus 10% waste = 11.
	required := RequiredQuantity(material, dec("1"), dec("5"))
	require.True(t, required.Equal(dec("11")), "got %s", required)

	material.WastePercentage = dec("0")
	required = RequiredQuantity(material, dec("4"), dec("10"))
	require.True(t, required.Equal(dec("5")), "got %s", required)
}

func TestCheckAvailability(t *testing.T) {
	env := newTestEnv(t)
	material := env.seedMaterial(t, "Flour")
	output := types.ProductRef(uuid.New())
	ctx := context.Background()

	created, err := env.svc.CreateRecipe(ctx, validInput(material, output))
	require.NoError(t, err)

	// Recipe needs 2 kg per unit; 10 units need 20, only 15 on hand.
	env.seedStock(t, material, "15", "1.5")

	result, err := env.svc.CheckAvailability(ctx, created.ID, dec("10"))
	require.NoError(t, err)
	require.False(t, result.CanProduce)
	require.Len(t, result.Components, 1)
	component := result.Components[0]
	require.Equal(t, "Flour", component.Name)
	require.True(t, component.Required.Equal(dec("20")))
	require.True(t, component.Available.Equal(dec("15")))
	require.True(t, component.Shortage.Equal(dec("5")))

	result, err = env.svc.CheckAvailability(ctx, created.ID, dec("7"))
	require.NoError(t, err)
	require.True(t, result.CanProduce)
	require.True(t, result.Components[0].Shortage.IsZero())
}

func TestCheckAvailabilityConvertsToBalanceUnit(t *testing.T) {
	env := newTestEnv(t)
	material := env.seedMaterial(t, "Flour")
	output := types.ProductRef(uuid.New())
	ctx := context.Background()

	// 500 g per unit against stock held in kg.
	input := validInput(material, output)
	input.Materials[0].Quantity = dec("500")
	input.Materials[0].Unit = "g"
	created, err := env.svc.CreateRecipe(ctx, input)
	require.NoError(t, err)

	env.seedStock(t, material, "4", "1.5")

	// 10 units need 5000 g = 5 kg; 4 kg on hand.
	result, err := env.svc.CheckAvailability(ctx, created.ID, dec("10"))
	require.NoError(t, err)
	require.False(t, result.CanProduce)
	component := result.Components[0]
	require.Equal(t, "kg", component.Unit)
	require.True(t, component.Required.Equal(dec("5")), "got %s", component.Required)
	require.True(t, component.Available.Equal(dec("4")))
	require.True(t, component.Shortage.Equal(dec("1")))

	result, err = env.svc.CheckAvailability(ctx, created.ID, dec("8"))
	require.NoError(t, err)
	require.True(t, result.CanProduce)
}

func TestEstimateMaterialsCost(t *testing.T) {
	env := newTestEnv(t)
	material := env.seedMaterial(t, "Flour")
	output := types.ProductRef(uuid.New())
	ctx := context.Background()

	created, err := env.svc.CreateRecipe(ctx, validInput(material, output))
	require.NoError(t, err)
	env.seedStock(t, material, "100", "1.5")

	recipe, err := env.svc.GetRecipe(ctx, created.ID)
	require.NoError(t, err)

	estimate, err := env.svc.EstimateMaterialsCost(ctx, recipe, dec("10"), enums.CostingStrategyAverage)
	require.NoError(t, err)
	require.Len(t, estimate.Components, 1)
	// 20 kg at 1.5 per kg.
	require.True(t, estimate.MaterialsCost.Equal(dec("30")), "got %s", estimate.MaterialsCost)
	require.Equal(t, "Flour", estimate.Components[0].Name)
	require.True(t, estimate.Components[0].UnitPrice.Equal(dec("1.5")))
}

func TestEstimateMaterialsCostConvertsToBalanceUnit(t *testing.T) {
	env := newTestEnv(t)
	material := env.seedMaterial(t, "Flour")
	output := types.ProductRef(uuid.New())
	ctx := context.Background()

	input := validInput(material, output)
	input.Materials[0].Quantity = dec("500")
	input.Materials[0].Unit = "g"
	created, err := env.svc.CreateRecipe(ctx, input)
	require.NoError(t, err)
	env.seedStock(t, material, "100", "1.5")

	recipe, err := env.svc.GetRecipe(ctx, created.ID)
	require.NoError(t, err)

	estimate, err := env.svc.EstimateMaterialsCost(ctx, recipe, dec("10"), enums.CostingStrategyAverage)
	require.NoError(t, err)
	require.Len(t, estimate.Components, 1)
	// 5000 g is 5 kg at 1.5 per kg.
	require.Equal(t, "kg", estimate.Components[0].Unit)
	require.True(t, estimate.Components[0].Quantity.Equal(dec("5")))
	require.True(t, estimate.MaterialsCost.Equal(dec("7.5")), "got %s", estimate.MaterialsCost)
}

func TestGetRecipeNotFound(t *testing.T) {
	env := newTestEnv(t)
	_, err := env.svc.GetRecipe(context.Background(), uuid.New())
	require.True(t, errors.IsCode(err, errors.CodeNotFound))
}
