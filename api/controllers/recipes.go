package controllers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/stockforge-backend/api/responses"
	"github.com/angelmondragon/stockforge-backend/api/validators"
	"github.com/angelmondragon/stockforge-backend/internal/production"
	"github.com/angelmondragon/stockforge-backend/internal/recipes"
	"github.com/angelmondragon/stockforge-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/stockforge-backend/pkg/errors"
	"github.com/angelmondragon/stockforge-backend/pkg/logger"
	"github.com/angelmondragon/stockforge-backend/pkg/types"
)

type recipeMaterialRequest struct {
	ItemType        string          `json:"item_type" validate:"required"`
	ItemID          string          `json:"item_id" validate:"required,uuid"`
	Quantity        decimal.Decimal `json:"quantity" validate:"required"`
	WastePercentage decimal.Decimal `json:"waste_percentage"`
	Unit            string          `json:"unit" validate:"required"`
}

type recipeOutputRequest struct {
	ItemType  string          `json:"item_type" validate:"required"`
	ItemID    string          `json:"item_id" validate:"required,uuid"`
	Quantity  decimal.Decimal `json:"quantity" validate:"required"`
	IsDefault bool            `json:"is_default"`
}

type recipeCostRateRequest struct {
	Category    string          `json:"category" validate:"required,oneof=materials labor overhead management"`
	RatePerUnit decimal.Decimal `json:"rate_per_unit"`
	FixedRate   decimal.Decimal `json:"fixed_rate"`
}

type createRecipeRequest struct {
	Name                  string                  `json:"name" validate:"required,max=200"`
	OutputUnit            string                  `json:"output_unit" validate:"required"`
	ProductionTimeMinutes int                     `json:"production_time_minutes" validate:"min=0"`
	Materials             []recipeMaterialRequest `json:"materials" validate:"required,min=1,dive"`
	Outputs               []recipeOutputRequest   `json:"outputs" validate:"required,min=1,dive"`
	CostRates             []recipeCostRateRequest `json:"cost_rates" validate:"dive"`
}

func RecipeCreate(svc recipes.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req createRecipeRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		input := recipes.CreateRecipeInput{
			Name:                  req.Name,
			OutputUnit:            req.OutputUnit,
			ProductionTimeMinutes: req.ProductionTimeMinutes,
		}
		for _, material := range req.Materials {
			item, err := types.ParseItemRef(material.ItemType, material.ItemID)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid material reference"))
				return
			}
			input.Materials = append(input.Materials, recipes.MaterialInput{
				Item:            item,
				Quantity:        material.Quantity,
				WastePercentage: material.WastePercentage,
				Unit:            material.Unit,
			})
		}
		for _, output := range req.Outputs {
			item, err := types.ParseItemRef(output.ItemType, output.ItemID)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid output reference"))
				return
			}
			input.Outputs = append(input.Outputs, recipes.OutputInput{
				Item:      item,
				Quantity:  output.Quantity,
				IsDefault: output.IsDefault,
			})
		}
		for _, rate := range req.CostRates {
			category, err := enums.ParseCostCategory(rate.Category)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cost category"))
				return
			}
			input.CostRates = append(input.CostRates, recipes.CostRateInput{
				Category:    category,
				RatePerUnit: rate.RatePerUnit,
				FixedRate:   rate.FixedRate,
			})
		}

		recipe, err := svc.CreateRecipe(r.Context(), input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, toRecipeResponse(recipe))
	}
}

func RecipeGet(svc recipes.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := uuid.Parse(chi.URLParam(r, "recipeID"))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "invalid recipe id"))
			return
		}

		recipe, err := svc.GetRecipe(r.Context(), id)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, toRecipeResponse(recipe))
	}
}

func RecipeList(svc recipes.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		rows, err := svc.ListRecipes(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		out := make([]recipeResponse, 0, len(rows))
		for i := range rows {
			out = append(out, toRecipeResponse(&rows[i]))
		}
		responses.WriteSuccess(w, out)
	}
}

func RecipeAvailability(svc recipes.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := uuid.Parse(chi.URLParam(r, "recipeID"))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "invalid recipe id"))
			return
		}
		quantity, err := validators.ParseQueryDecimal(r, "quantity", true)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		result, err := svc.CheckAvailability(r.Context(), id, quantity)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, result)
	}
}

func RecipeCostEstimate(costs *production.CostService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := uuid.Parse(chi.URLParam(r, "recipeID"))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "invalid recipe id"))
			return
		}
		quantity, err := validators.ParseQueryDecimal(r, "quantity", true)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		strategy := enums.CostingStrategy(r.URL.Query().Get("strategy"))

		estimate, err := costs.EstimateCosts(r.Context(), id, quantity, strategy)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, estimate)
	}
}
