package production

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/stockforge-backend/internal/recipes"
	"github.com/angelmondragon/stockforge-backend/pkg/db/models"
	"github.com/angelmondragon/stockforge-backend/pkg/enums"
	"github.com/angelmondragon/stockforge-backend/pkg/errors"
)

// MaterialsEstimator prices the component list of a recipe at a quantity.
type MaterialsEstimator interface {
	GetRecipe(ctx context.Context, id uuid.UUID) (*models.Recipe, error)
	EstimateMaterialsCost(ctx context.Context, recipe *models.Recipe, quantity decimal.Decimal, strategy enums.CostingStrategy) (*recipes.MaterialsEstimate, error)
}

// CategoryTotals is one cost rollup bucketed by category.
type CategoryTotals struct {
	Materials  decimal.Decimal `json:"materials"`
	Labor      decimal.Decimal `json:"labor"`
	Overhead   decimal.Decimal `json:"overhead"`
	Management decimal.Decimal `json:"management"`
	Total      decimal.Decimal `json:"total"`
	PerUnit    decimal.Decimal `json:"per_unit"`
}

// CostEstimate is the full estimate for producing a quantity from a recipe.
type CostEstimate struct {
	CategoryTotals
	Strategy enums.CostingStrategy   `json:"strategy"`
	Details  []recipes.ComponentCost `json:"details"`
}

// BatchCostSummary compares the estimate a batch was planned against with
// what it actually consumed.
type BatchCostSummary struct {
	BatchID     uuid.UUID              `json:"batch_id"`
	BatchNumber string                 `json:"batch_number"`
	Status      enums.ProductionStatus `json:"status"`
	Estimated   CategoryTotals         `json:"estimated"`
	Actual      CategoryTotals         `json:"actual"`
	Variance    CategoryTotals         `json:"variance"`
}

// CostService aggregates estimated and actual production costs per category.
type CostService struct {
	repo            *Repository
	estimator       MaterialsEstimator
	defaultStrategy enums.CostingStrategy
}

// NewCostService wires the cost service.
func NewCostService(repo *Repository, estimator MaterialsEstimator, defaultStrategy enums.CostingStrategy) (*CostService, error) {
	if repo == nil {
		return nil, fmt.Errorf("production repository is required")
	}
	if estimator == nil {
		return nil, fmt.Errorf("materials estimator is required")
	}
	if !defaultStrategy.IsValid() {
		return nil, fmt.Errorf("invalid default costing strategy %q", defaultStrategy)
	}
	return &CostService{
		repo:            repo,
		estimator:       estimator,
		defaultStrategy: defaultStrategy,
	}, nil
}

// EstimateCosts prices a recipe at a quantity: materials from the costing
// engine plus, for each cost rate, rate_per_unit * quantity + fixed_rate
// bucketed by category.
func (s *CostService) EstimateCosts(ctx context.Context, recipeID uuid.UUID, quantity decimal.Decimal, strategy enums.CostingStrategy) (*CostEstimate, error) {
	if !quantity.IsPositive() {
		return nil, errors.New(errors.CodeValidation, "quantity must be positive")
	}
	if strategy == "" {
		strategy = s.defaultStrategy
	}
	if !strategy.IsValid() {
		return nil, errors.New(errors.CodeValidation, fmt.Sprintf("invalid costing strategy %q", strategy))
	}

	recipe, err := s.estimator.GetRecipe(ctx, recipeID)
	if err != nil {
		return nil, err
	}

	materials, err := s.estimator.EstimateMaterialsCost(ctx, recipe, quantity, strategy)
	if err != nil {
		return nil, err
	}

	totals := rateTotals(recipe.CostRates, quantity)
	totals.Materials = materials.MaterialsCost
	finalizeTotals(&totals, quantity)

	return &CostEstimate{
		CategoryTotals: totals,
		Strategy:       strategy,
		Details:        materials.Components,
	}, nil
}

// BatchCosts reports estimated vs actual cost for a batch and the variance
// between them. The estimate is computed at the planned quantity under the
// default strategy; actual materials come from the recorded consumptions,
// and the rate categories are evaluated at the actual quantity once known.
func (s *CostService) BatchCosts(ctx context.Context, batchID uuid.UUID) (*BatchCostSummary, error) {
	batch, err := s.repo.GetByID(ctx, batchID)
	if err != nil {
		return nil, notFoundOrInternal(err, "production batch not found")
	}

	estimate, err := s.EstimateCosts(ctx, batch.RecipeID, batch.PlannedQuantity, s.defaultStrategy)
	if err != nil {
		return nil, err
	}

	recipe, err := s.estimator.GetRecipe(ctx, batch.RecipeID)
	if err != nil {
		return nil, err
	}

	actualMaterials := decimal.Zero
	for _, consumption := range batch.Consumptions {
		actualMaterials = actualMaterials.Add(consumption.Quantity.Mul(consumption.PricePerUnit))
	}

	actualQuantity := batch.PlannedQuantity
	if batch.ActualQuantity != nil {
		actualQuantity = *batch.ActualQuantity
	}

	actual := rateTotals(recipe.CostRates, actualQuantity)
	actual.Materials = actualMaterials
	finalizeTotals(&actual, actualQuantity)

	return &BatchCostSummary{
		BatchID:     batch.ID,
		BatchNumber: batch.BatchNumber,
		Status:      batch.Status,
		Estimated:   estimate.CategoryTotals,
		Actual:      actual,
		Variance:    variance(estimate.CategoryTotals, actual),
	}, nil
}

func rateTotals(rates []models.RecipeCostRate, quantity decimal.Decimal) CategoryTotals {
	totals := CategoryTotals{
		Materials:  decimal.Zero,
		Labor:      decimal.Zero,
		Overhead:   decimal.Zero,
		Management: decimal.Zero,
	}
	for _, rate := range rates {
		amount := rate.RatePerUnit.Mul(quantity).Add(rate.FixedRate)
		switch rate.Category {
		case enums.CostCategoryMaterials:
			totals.Materials = totals.Materials.Add(amount)
		case enums.CostCategoryLabor:
			totals.Labor = totals.Labor.Add(amount)
		case enums.CostCategoryOverhead:
			totals.Overhead = totals.Overhead.Add(amount)
		case enums.CostCategoryManagement:
			totals.Management = totals.Management.Add(amount)
		}
	}
	return totals
}

func finalizeTotals(totals *CategoryTotals, quantity decimal.Decimal) {
	totals.Total = totals.Materials.
		Add(totals.Labor).
		Add(totals.Overhead).
		Add(totals.Management)
	if quantity.IsPositive() {
		totals.PerUnit = totals.Total.Div(quantity)
	} else {
		totals.PerUnit = decimal.Zero
	}
}

func variance(estimated, actual CategoryTotals) CategoryTotals {
	return CategoryTotals{
		Materials:  actual.Materials.Sub(estimated.Materials),
		Labor:      actual.Labor.Sub(estimated.Labor),
		Overhead:   actual.Overhead.Sub(estimated.Overhead),
		Management: actual.Management.Sub(estimated.Management),
		Total:      actual.Total.Sub(estimated.Total),
		PerUnit:    actual.PerUnit.Sub(estimated.PerUnit),
	}
}
