package recipes

import (
	"context"
	stdErrors "errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/angelmondragon/stockforge-backend/pkg/db/models"
	"github.com/angelmondragon/stockforge-backend/pkg/enums"
	"github.com/angelmondragon/stockforge-backend/pkg/errors"
	"github.com/angelmondragon/stockforge-backend/pkg/logger"
	"github.com/angelmondragon/stockforge-backend/pkg/types"
	"github.com/angelmondragon/stockforge-backend/pkg/units"
)

// BalanceSource reads current stock levels for availability checks.
type BalanceSource interface {
	GetBalance(ctx context.Context, item types.ItemRef) (*models.InventoryBalance, error)
}

// PriceResolver prices a required quantity under a costing strategy.
type PriceResolver interface {
	UnitPrice(ctx context.Context, item types.ItemRef, requiredQuantity decimal.Decimal, strategy enums.CostingStrategy) (decimal.Decimal, error)
}

// Namer resolves a display name for an item reference.
type Namer interface {
	NameOrID(ctx context.Context, item types.ItemRef) string
}

// Service manages recipes and the component math derived from them.
type Service interface {
	CreateRecipe(ctx context.Context, input CreateRecipeInput) (*models.Recipe, error)
	GetRecipe(ctx context.Context, id uuid.UUID) (*models.Recipe, error)
	ListRecipes(ctx context.Context) ([]models.Recipe, error)
	CheckAvailability(ctx context.Context, recipeID uuid.UUID, quantity decimal.Decimal) (*AvailabilityResult, error)
	EstimateMaterialsCost(ctx context.Context, recipe *models.Recipe, quantity decimal.Decimal, strategy enums.CostingStrategy) (*MaterialsEstimate, error)
}

// CreateRecipeInput is the full bill-of-materials payload.
type CreateRecipeInput struct {
	Name                  string
	OutputUnit            string
	ProductionTimeMinutes int
	Materials             []MaterialInput
	Outputs               []OutputInput
	CostRates             []CostRateInput
}

type MaterialInput struct {
	Item            types.ItemRef
	Quantity        decimal.Decimal
	WastePercentage decimal.Decimal
	Unit            string
}

type OutputInput struct {
	Item      types.ItemRef
	Quantity  decimal.Decimal
	IsDefault bool
}

type CostRateInput struct {
	Category    enums.CostCategory
	RatePerUnit decimal.Decimal
	FixedRate   decimal.Decimal
}

// AvailabilityResult reports whether every component of a recipe can be
// satisfied at a target quantity, with per-component shortfalls.
type AvailabilityResult struct {
	CanProduce bool                    `json:"can_produce"`
	Components []ComponentAvailability `json:"components"`
}

type ComponentAvailability struct {
	Item      types.ItemRef   `json:"item"`
	Name      string          `json:"name"`
	Required  decimal.Decimal `json:"required"`
	Available decimal.Decimal `json:"available"`
	Shortage  decimal.Decimal `json:"shortage"`
	Unit      string          `json:"unit"`
}

// MaterialsEstimate is the priced component list for a target quantity.
type MaterialsEstimate struct {
	MaterialsCost decimal.Decimal `json:"materials_cost"`
	Components    []ComponentCost `json:"components"`
}

type ComponentCost struct {
	Item      types.ItemRef   `json:"item"`
	Name      string          `json:"name"`
	Quantity  decimal.Decimal `json:"quantity"`
	Unit      string          `json:"unit"`
	UnitPrice decimal.Decimal `json:"unit_price"`
	Total     decimal.Decimal `json:"total"`
}

type service struct {
	repo     *Repository
	balances BalanceSource
	prices   PriceResolver
	namer    Namer
	logg     *logger.Logger
}

// NewService wires the recipe service.
func NewService(repo *Repository, balances BalanceSource, prices PriceResolver, namer Namer, logg *logger.Logger) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("recipe repository is required")
	}
	if balances == nil {
		return nil, fmt.Errorf("balance source is required")
	}
	if prices == nil {
		return nil, fmt.Errorf("price resolver is required")
	}
	if namer == nil {
		return nil, fmt.Errorf("namer is required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger is required")
	}
	return &service{
		repo:     repo,
		balances: balances,
		prices:   prices,
		namer:    namer,
		logg:     logg,
	}, nil
}

// RequiredQuantity scales a component requirement to a target output
// quantity and adds the component's waste allowance on top.
func RequiredQuantity(material models.RecipeMaterial, outputQuantity, targetQuantity decimal.Decimal) decimal.Decimal {
	if !outputQuantity.IsPositive() {
		return decimal.Zero
	}
	required := material.Quantity.Div(outputQuantity).Mul(targetQuantity)
	return required.Add(required.Mul(material.WastePercentage).Div(decimal.NewFromInt(100)))
}

func (s *service) CreateRecipe(ctx context.Context, input CreateRecipeInput) (*models.Recipe, error) {
	if err := validateCreateRecipe(input); err != nil {
		return nil, err
	}

	recipe := &models.Recipe{
		Name:                  input.Name,
		OutputUnit:            input.OutputUnit,
		ProductionTimeMinutes: input.ProductionTimeMinutes,
		IsActive:              true,
	}
	for i, material := range input.Materials {
		recipe.Materials = append(recipe.Materials, models.RecipeMaterial{
			ItemType:        material.Item.Type,
			ItemID:          material.Item.ID,
			Quantity:        material.Quantity,
			WastePercentage: material.WastePercentage,
			Unit:            material.Unit,
			Position:        i,
		})
	}
	for _, output := range input.Outputs {
		recipe.Outputs = append(recipe.Outputs, models.RecipeOutput{
			ItemType:  output.Item.Type,
			ItemID:    output.Item.ID,
			Quantity:  output.Quantity,
			IsDefault: output.IsDefault,
		})
	}
	for _, rate := range input.CostRates {
		recipe.CostRates = append(recipe.CostRates, models.RecipeCostRate{
			Category:    rate.Category,
			RatePerUnit: rate.RatePerUnit,
			FixedRate:   rate.FixedRate,
		})
	}

	if err := s.repo.Create(ctx, recipe); err != nil {
		return nil, errors.Wrap(errors.CodeInternal, err, "creating recipe")
	}

	ctx = s.logg.WithField(ctx, "recipe_id", recipe.ID.String())
	s.logg.Info(ctx, "recipe created")
	return recipe, nil
}

func (s *service) GetRecipe(ctx context.Context, id uuid.UUID) (*models.Recipe, error) {
	recipe, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if stdErrors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errors.New(errors.CodeNotFound, "recipe not found")
		}
		return nil, errors.Wrap(errors.CodeInternal, err, "loading recipe")
	}
	return recipe, nil
}

func (s *service) ListRecipes(ctx context.Context) ([]models.Recipe, error) {
	rows, err := s.repo.List(ctx)
	if err != nil {
		return nil, errors.Wrap(errors.CodeInternal, err, "listing recipes")
	}
	return rows, nil
}

// CheckAvailability compares required component quantities against current
// balances. It is a read-only preview; the authoritative check happens under
// row locks when a batch starts.
func (s *service) CheckAvailability(ctx context.Context, recipeID uuid.UUID, quantity decimal.Decimal) (*AvailabilityResult, error) {
	if !quantity.IsPositive() {
		return nil, errors.New(errors.CodeValidation, "quantity must be positive")
	}
	recipe, err := s.GetRecipe(ctx, recipeID)
	if err != nil {
		return nil, err
	}

	outputQuantity := recipe.OutputQuantity()
	result := &AvailabilityResult{CanProduce: true}
	for _, material := range recipe.Materials {
		item := types.ItemRef{Type: material.ItemType, ID: material.ItemID}
		required := RequiredQuantity(material, outputQuantity, quantity)

		available := decimal.Zero
		unit := material.Unit
		balance, err := s.balances.GetBalance(ctx, item)
		if err != nil && !stdErrors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errors.Wrap(errors.CodeInternal, err, "loading balance")
		}
		if balance != nil {
			available = balance.TotalQuantity
			// Stock may be held in a different unit than the recipe line;
			// compare in the balance unit.
			if balance.Unit != material.Unit {
				required, err = units.Convert(required, material.Unit, balance.Unit)
				if err != nil {
					return nil, err
				}
				unit = balance.Unit
			}
		}

		shortage := decimal.Zero
		if available.LessThan(required) {
			shortage = required.Sub(available)
			result.CanProduce = false
		}
		result.Components = append(result.Components, ComponentAvailability{
			Item:      item,
			Name:      s.namer.NameOrID(ctx, item),
			Required:  required,
			Available: available,
			Shortage:  shortage,
			Unit:      unit,
		})
	}
	return result, nil
}

// EstimateMaterialsCost prices every component requirement at the target
// quantity under the strategy and sums the line totals.
func (s *service) EstimateMaterialsCost(ctx context.Context, recipe *models.Recipe, quantity decimal.Decimal, strategy enums.CostingStrategy) (*MaterialsEstimate, error) {
	if recipe == nil {
		return nil, errors.New(errors.CodeValidation, "recipe is required")
	}
	if !quantity.IsPositive() {
		return nil, errors.New(errors.CodeValidation, "quantity must be positive")
	}

	outputQuantity := recipe.OutputQuantity()
	estimate := &MaterialsEstimate{MaterialsCost: decimal.Zero}
	for _, material := range recipe.Materials {
		item := types.ItemRef{Type: material.ItemType, ID: material.ItemID}
		required := RequiredQuantity(material, outputQuantity, quantity)
		unit := material.Unit

		// Prices are held per balance unit, so the requirement is priced in
		// that unit when it differs from the recipe line's.
		balance, err := s.balances.GetBalance(ctx, item)
		if err != nil && !stdErrors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errors.Wrap(errors.CodeInternal, err, "loading balance")
		}
		if balance != nil && balance.Unit != material.Unit {
			required, err = units.Convert(required, material.Unit, balance.Unit)
			if err != nil {
				return nil, err
			}
			unit = balance.Unit
		}

		unitPrice, err := s.prices.UnitPrice(ctx, item, required, strategy)
		if err != nil {
			return nil, err
		}
		total := required.Mul(unitPrice)

		estimate.Components = append(estimate.Components, ComponentCost{
			Item:      item,
			Name:      s.namer.NameOrID(ctx, item),
			Quantity:  required,
			Unit:      unit,
			UnitPrice: unitPrice,
			Total:     total,
		})
		estimate.MaterialsCost = estimate.MaterialsCost.Add(total)
	}
	return estimate, nil
}

var oneHundred = decimal.NewFromInt(100)

func validateCreateRecipe(input CreateRecipeInput) error {
	if input.Name == "" {
		return errors.New(errors.CodeValidation, "recipe name is required")
	}
	if !units.IsKnown(input.OutputUnit) {
		return errors.New(errors.CodeValidation, fmt.Sprintf("unknown output unit %q", input.OutputUnit))
	}
	if input.ProductionTimeMinutes < 0 {
		return errors.New(errors.CodeValidation, "production time cannot be negative")
	}
	if len(input.Materials) == 0 {
		return errors.New(errors.CodeValidation, "at least one material is required")
	}
	if len(input.Outputs) == 0 {
		return errors.New(errors.CodeValidation, "at least one output is required")
	}

	for i, material := range input.Materials {
		if err := material.Item.Validate(); err != nil {
			return errors.Wrap(errors.CodeValidation, err, fmt.Sprintf("material %d", i))
		}
		if !material.Quantity.IsPositive() {
			return errors.New(errors.CodeValidation, fmt.Sprintf("material %d quantity must be positive", i))
		}
		if material.WastePercentage.IsNegative() || material.WastePercentage.GreaterThanOrEqual(oneHundred) {
			return errors.New(errors.CodeValidation, fmt.Sprintf("material %d waste percentage must be in [0,100)", i))
		}
		if !units.IsKnown(material.Unit) {
			return errors.New(errors.CodeValidation, fmt.Sprintf("material %d has unknown unit %q", i, material.Unit))
		}
	}
	for i, output := range input.Outputs {
		if err := output.Item.Validate(); err != nil {
			return errors.Wrap(errors.CodeValidation, err, fmt.Sprintf("output %d", i))
		}
		if !output.Quantity.IsPositive() {
			return errors.New(errors.CodeValidation, fmt.Sprintf("output %d quantity must be positive", i))
		}
	}
	for i, rate := range input.CostRates {
		if !rate.Category.IsValid() {
			return errors.New(errors.CodeValidation, fmt.Sprintf("cost rate %d has invalid category %q", i, rate.Category))
		}
		if rate.RatePerUnit.IsNegative() || rate.FixedRate.IsNegative() {
			return errors.New(errors.CodeValidation, fmt.Sprintf("cost rate %d cannot be negative", i))
		}
	}
	return nil
}
