package production

import (
	"context"
	"fmt"
	"regexp"
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
	"github.com/angelmondragon/stockforge-backend/internal/recipes"
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
	costs     *CostService
	inventory inventory.Service
	recipes   recipes.Service
	material  types.ItemRef
	output    types.ItemRef
	recipe    *models.Recipe
}

func dec(value string) decimal.Decimal {
	return decimal.RequireFromString(value)
}

// newTestEnv builds the full stack on sqlite with a recipe requiring 2 kg of
// one material per 1 pcs of output, zero waste, and a labor rate.
func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	dsn := fmt.Sprintf("file:production_%s?mode=memory&cache=shared", uuid.NewString())
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

	repo := NewRepository(conn)
	svc, err := NewService(repo, recipeSvc, invSvc, catalogRepo, client, logg, nil)
	require.NoError(t, err)
	costs, err := NewCostService(repo, recipeSvc, enums.CostingStrategyAverage)
	require.NoError(t, err)

	materialRow := &models.Material{Name: "Clay", SKU: "CLAY-01", Unit: "kg"}
	require.NoError(t, conn.Create(materialRow).Error)
	productRow := &models.Product{Name: "Pot", SKU: "POT-01", Unit: "pcs"}
	require.NoError(t, conn.Create(productRow).Error)

	material := types.MaterialRef(materialRow.ID)
	output := types.ProductRef(productRow.ID)

	recipe, err := recipeSvc.CreateRecipe(context.Background(), recipes.CreateRecipeInput{
		Name:       "Clay Pot",
		OutputUnit: "pcs",
		Materials: []recipes.MaterialInput{{
			Item:            material,
			Quantity:        dec("2"),
			WastePercentage: dec("0"),
			Unit:            "kg",
		}},
		Outputs: []recipes.OutputInput{{
			Item:      output,
			Quantity:  dec("1"),
			IsDefault: true,
		}},
		CostRates: []recipes.CostRateInput{{
			Category:    enums.CostCategoryLabor,
			RatePerUnit: dec("1"),
			FixedRate:   dec("5"),
		}},
	})
	require.NoError(t, err)

	return &testEnv{
		conn:      conn,
		svc:       svc,
		costs:     costs,
		inventory: invSvc,
		recipes:   recipeSvc,
		material:  material,
		output:    output,
		recipe:    recipe,
	}
}

func (e *testEnv) seedStock(t *testing.T, qty, price string) {
	t.Helper()
	_, err := e.inventory.AddStock(context.Background(), inventory.AddStockInput{
		Item:         e.material,
		Quantity:     dec(qty),
		PricePerUnit: dec(price),
		Unit:         "kg",
		ReceivedDate: time.Now(),
		ActorID:      uuid.New(),
	})
	require.NoError(t, err)
}

func (e *testEnv) createBatch(t *testing.T, qty string) *models.ProductionBatch {
	t.Helper()
	batch, err := e.svc.CreateBatch(context.Background(), CreateBatchInput{
		RecipeID: e.recipe.ID,
		Quantity: dec(qty),
		ActorID:  uuid.New(),
	})
	require.NoError(t, err)
	return batch
}

func TestGenerateBatchNumberFormat(t *testing.T) {
	now := time.Date(2026, 5, 20, 12, 0, 0, 0, time.UTC)
	number := GenerateBatchNumber(now)
	require.Regexp(t, regexp.MustCompile(`^PB-20260520-[0-9A-F]{8}$`), number)
	require.NotEqual(t, number, GenerateBatchNumber(now))
}

func TestCreateBatchStartsPlanned(t *testing.T) {
	env := newTestEnv(t)

	// Creation does not require available stock.
	batch := env.createBatch(t, "10")
	require.Equal(t, enums.ProductionStatusPlanned, batch.Status)
	require.Equal(t, env.output.ID, batch.OutputItemID)
	require.Nil(t, batch.StartedAt)
	require.Nil(t, batch.ActualQuantity)
}

func TestHappyPath(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.seedStock(t, "30", "1.5")

	batch := env.createBatch(t, "10")

	started, err := env.svc.StartProduction(ctx, batch.ID, uuid.New())
	require.NoError(t, err)
	require.Equal(t, enums.ProductionStatusInProgress, started.Status)
	require.NotNil(t, started.StartedAt)

	// 2 kg per unit at qty 10 consumes exactly 20.
	balance, err := env.inventory.GetStock(ctx, env.material)
	require.NoError(t, err)
	require.True(t, balance.TotalQuantity.Equal(dec("10")))

	completed, err := env.svc.CompleteProduction(ctx, CompleteInput{
		BatchID:        batch.ID,
		ActualQuantity: dec("10"),
		ActorID:        uuid.New(),
	})
	require.NoError(t, err)
	require.Equal(t, enums.ProductionStatusCompleted, completed.Status)
	require.NotNil(t, completed.TotalMaterialCost)
	// 20 kg at 1.5.
	require.True(t, completed.TotalMaterialCost.Equal(dec("30")))
	require.True(t, completed.UnitCost.Equal(dec("3")), "got %s", completed.UnitCost)

	// Output stock lands as a new lot at the unit cost.
	outputBalance, err := env.inventory.GetStock(ctx, env.output)
	require.NoError(t, err)
	require.True(t, outputBalance.TotalQuantity.Equal(dec("10")))
	require.True(t, outputBalance.AveragePrice.Equal(dec("3")))
}

func TestStartInsufficientMaterials(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.seedStock(t, "15", "1")

	batch := env.createBatch(t, "10")

	_, err := env.svc.StartProduction(ctx, batch.ID, uuid.New())
	require.True(t, errors.IsCode(err, errors.CodeInsufficientMaterials))

	details, ok := errors.As(err).Details().([]map[string]string)
	require.True(t, ok)
	require.Len(t, details, 1)
	require.Equal(t, "Clay", details[0]["name"])
	require.Equal(t, "5", details[0]["shortage"])

	// Nothing moved and the batch stayed planned.
	balance, err := env.inventory.GetStock(ctx, env.material)
	require.NoError(t, err)
	require.True(t, balance.TotalQuantity.Equal(dec("15")))

	loaded, err := env.svc.GetBatch(ctx, batch.ID)
	require.NoError(t, err)
	require.Equal(t, enums.ProductionStatusPlanned, loaded.Status)
	require.Empty(t, loaded.Consumptions)
}

// createRecipeWithUnit builds a second recipe over the same material and
// output, with the material line expressed in the given unit.
func (e *testEnv) createRecipeWithUnit(t *testing.T, qty, unit string) *models.Recipe {
	t.Helper()
	recipe, err := e.recipes.CreateRecipe(context.Background(), recipes.CreateRecipeInput{
		Name:       fmt.Sprintf("Clay Pot (%s)", unit),
		OutputUnit: "pcs",
		Materials: []recipes.MaterialInput{{
			Item:            e.material,
			Quantity:        dec(qty),
			WastePercentage: dec("0"),
			Unit:            unit,
		}},
		Outputs: []recipes.OutputInput{{
			Item:      e.output,
			Quantity:  dec("1"),
			IsDefault: true,
		}},
	})
	require.NoError(t, err)
	return recipe
}

func TestStartShortfallWithMismatchedUnits(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.seedStock(t, "5", "1")

	// 1 t of clay per pot against a balance held in kg.
	recipe := env.createRecipeWithUnit(t, "1", "t")
	batch, err := env.svc.CreateBatch(ctx, CreateBatchInput{
		RecipeID: recipe.ID,
		Quantity: dec("1"),
		ActorID:  uuid.New(),
	})
	require.NoError(t, err)

	_, err = env.svc.StartProduction(ctx, batch.ID, uuid.New())
	require.True(t, errors.IsCode(err, errors.CodeInsufficientMaterials))

	// Requirement compared in kg: 1000 needed, 5 on hand.
	details, ok := errors.As(err).Details().([]map[string]string)
	require.True(t, ok)
	require.Len(t, details, 1)
	require.Equal(t, "1000", details[0]["required"])
	require.Equal(t, "995", details[0]["shortage"])

	balance, err := env.inventory.GetStock(ctx, env.material)
	require.NoError(t, err)
	require.True(t, balance.TotalQuantity.Equal(dec("5")))
}

func TestStartConsumesInBalanceUnit(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.seedStock(t, "30", "1.5")

	// 2000 g per pot is 2 kg; qty 10 consumes 20 kg.
	recipe := env.createRecipeWithUnit(t, "2000", "g")
	batch, err := env.svc.CreateBatch(ctx, CreateBatchInput{
		RecipeID: recipe.ID,
		Quantity: dec("10"),
		ActorID:  uuid.New(),
	})
	require.NoError(t, err)

	_, err = env.svc.StartProduction(ctx, batch.ID, uuid.New())
	require.NoError(t, err)

	balance, err := env.inventory.GetStock(ctx, env.material)
	require.NoError(t, err)
	require.True(t, balance.TotalQuantity.Equal(dec("10")), "got %s", balance.TotalQuantity)

	loaded, err := env.svc.GetBatch(ctx, batch.ID)
	require.NoError(t, err)
	require.Len(t, loaded.Consumptions, 1)
	require.True(t, loaded.Consumptions[0].Quantity.Equal(dec("20")))
	require.Equal(t, "kg", loaded.Consumptions[0].Unit)
}

func TestConsumptionRowsPerLot(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	base := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	for i, lot := range []struct{ qty, price string }{
		{"12", "1"},
		{"12", "2"},
	} {
		_, err := env.inventory.AddStock(ctx, inventory.AddStockInput{
			Item:         env.material,
			Quantity:     dec(lot.qty),
			PricePerUnit: dec(lot.price),
			Unit:         "kg",
			ReceivedDate: base.AddDate(0, 0, i),
			ActorID:      uuid.New(),
		})
		require.NoError(t, err)
	}

	batch := env.createBatch(t, "10")
	_, err := env.svc.StartProduction(ctx, batch.ID, uuid.New())
	require.NoError(t, err)

	loaded, err := env.svc.GetBatch(ctx, batch.ID)
	require.NoError(t, err)
	// 20 kg spans both lots: 12 from the older, 8 from the newer.
	require.Len(t, loaded.Consumptions, 2)
	require.True(t, loaded.Consumptions[0].Quantity.Equal(dec("12")))
	require.True(t, loaded.Consumptions[0].PricePerUnit.Equal(dec("1")))
	require.True(t, loaded.Consumptions[1].Quantity.Equal(dec("8")))
	require.True(t, loaded.Consumptions[1].PricePerUnit.Equal(dec("2")))
}

func TestCancelRestoresQuantities(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.seedStock(t, "30", "1.5")

	batch := env.createBatch(t, "10")
	_, err := env.svc.StartProduction(ctx, batch.ID, uuid.New())
	require.NoError(t, err)

	balance, err := env.inventory.GetStock(ctx, env.material)
	require.NoError(t, err)
	require.True(t, balance.TotalQuantity.Equal(dec("10")))

	cancelled, err := env.svc.CancelProduction(ctx, CancelInput{
		BatchID: batch.ID,
		Reason:  "kiln failure",
		ActorID: uuid.New(),
	})
	require.NoError(t, err)
	require.Equal(t, enums.ProductionStatusCancelled, cancelled.Status)
	require.Contains(t, cancelled.Notes, "kiln failure")

	balance, err = env.inventory.GetStock(ctx, env.material)
	require.NoError(t, err)
	require.True(t, balance.TotalQuantity.Equal(dec("30")))
}

func TestCancelPlannedBatch(t *testing.T) {
	env := newTestEnv(t)

	batch := env.createBatch(t, "5")
	cancelled, err := env.svc.CancelProduction(context.Background(), CancelInput{
		BatchID: batch.ID,
		Reason:  "plan changed",
		ActorID: uuid.New(),
	})
	require.NoError(t, err)
	require.Equal(t, enums.ProductionStatusCancelled, cancelled.Status)
}

func TestStateMachineGuards(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.seedStock(t, "100", "1")
	actor := uuid.New()

	batch := env.createBatch(t, "10")

	// Completing a planned batch is disallowed.
	_, err := env.svc.CompleteProduction(ctx, CompleteInput{BatchID: batch.ID, ActualQuantity: dec("10"), ActorID: actor})
	require.True(t, errors.IsCode(err, errors.CodeStateConflict))

	_, err = env.svc.StartProduction(ctx, batch.ID, actor)
	require.NoError(t, err)

	// Starting twice is disallowed and consumes nothing extra.
	_, err = env.svc.StartProduction(ctx, batch.ID, actor)
	require.True(t, errors.IsCode(err, errors.CodeStateConflict))
	balance, err := env.inventory.GetStock(ctx, env.material)
	require.NoError(t, err)
	require.True(t, balance.TotalQuantity.Equal(dec("80")))

	_, err = env.svc.CompleteProduction(ctx, CompleteInput{BatchID: batch.ID, ActualQuantity: dec("10"), ActorID: actor})
	require.NoError(t, err)

	// Terminal states reject every transition.
	_, err = env.svc.StartProduction(ctx, batch.ID, actor)
	require.True(t, errors.IsCode(err, errors.CodeStateConflict))
	_, err = env.svc.CompleteProduction(ctx, CompleteInput{BatchID: batch.ID, ActualQuantity: dec("10"), ActorID: actor})
	require.True(t, errors.IsCode(err, errors.CodeStateConflict))
	_, err = env.svc.CancelProduction(ctx, CancelInput{BatchID: batch.ID, Reason: "late", ActorID: actor})
	require.True(t, errors.IsCode(err, errors.CodeStateConflict))
}

func TestCompleteWithZeroActualQuantity(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.seedStock(t, "30", "1.5")

	batch := env.createBatch(t, "10")
	_, err := env.svc.StartProduction(ctx, batch.ID, uuid.New())
	require.NoError(t, err)

	completed, err := env.svc.CompleteProduction(ctx, CompleteInput{
		BatchID:        batch.ID,
		ActualQuantity: dec("0"),
		ActorID:        uuid.New(),
	})
	require.NoError(t, err)
	require.True(t, completed.UnitCost.IsZero())
	// No output stock is emitted for a zero yield.
	_, err = env.inventory.GetStock(ctx, env.output)
	require.True(t, errors.IsCode(err, errors.CodeNotFound))
}

func TestBatchCostsVariance(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.seedStock(t, "30", "1.5")

	batch := env.createBatch(t, "10")
	_, err := env.svc.StartProduction(ctx, batch.ID, uuid.New())
	require.NoError(t, err)
	// Planned 10 but only 8 came out.
	_, err = env.svc.CompleteProduction(ctx, CompleteInput{
		BatchID:        batch.ID,
		ActualQuantity: dec("8"),
		ActorID:        uuid.New(),
	})
	require.NoError(t, err)

	summary, err := env.costs.BatchCosts(ctx, batch.ID)
	require.NoError(t, err)

	// Estimated: materials 20 kg @ 1.5 = 30, labor 1*10+5 = 15, total 45.
	require.True(t, summary.Estimated.Materials.Equal(dec("30")))
	require.True(t, summary.Estimated.Labor.Equal(dec("15")))
	require.True(t, summary.Estimated.Total.Equal(dec("45")))
	require.True(t, summary.Estimated.PerUnit.Equal(dec("4.5")))

	// Actual: same materials, labor at actual quantity 8 = 13, total 43.
	require.True(t, summary.Actual.Materials.Equal(dec("30")))
	require.True(t, summary.Actual.Labor.Equal(dec("13")))
	require.True(t, summary.Actual.Total.Equal(dec("43")))

	require.True(t, summary.Variance.Labor.Equal(dec("-2")))
	require.True(t, summary.Variance.Total.Equal(dec("-2")))
}

func TestEstimateCosts(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.seedStock(t, "100", "2")

	estimate, err := env.costs.EstimateCosts(ctx, env.recipe.ID, dec("10"), enums.CostingStrategyAverage)
	require.NoError(t, err)
	// Materials 20 @ 2 = 40, labor 15, total 55, per unit 5.5.
	require.True(t, estimate.Materials.Equal(dec("40")))
	require.True(t, estimate.Labor.Equal(dec("15")))
	require.True(t, estimate.Total.Equal(dec("55")))
	require.True(t, estimate.PerUnit.Equal(dec("5.5")))
	require.Len(t, estimate.Details, 1)

	_, err = env.costs.EstimateCosts(ctx, env.recipe.ID, dec("0"), enums.CostingStrategyAverage)
	require.True(t, errors.IsCode(err, errors.CodeValidation))
}
