package controllers

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/stockforge-backend/pkg/db/models"
)

type balanceResponse struct {
	ItemType      string          `json:"item_type"`
	ItemID        uuid.UUID       `json:"item_id"`
	TotalQuantity decimal.Decimal `json:"total_quantity"`
	AveragePrice  decimal.Decimal `json:"average_price"`
	Unit          string          `json:"unit"`
}

func toBalanceResponse(balance *models.InventoryBalance) balanceResponse {
	return balanceResponse{
		ItemType:      balance.ItemType.String(),
		ItemID:        balance.ItemID,
		TotalQuantity: balance.TotalQuantity,
		AveragePrice:  balance.AveragePrice,
		Unit:          balance.Unit,
	}
}

type transactionResponse struct {
	ID           uuid.UUID       `json:"id"`
	ItemType     string          `json:"item_type"`
	ItemID       uuid.UUID       `json:"item_id"`
	Type         string          `json:"type"`
	Quantity     decimal.Decimal `json:"quantity"`
	PricePerUnit decimal.Decimal `json:"price_per_unit"`
	Unit         string          `json:"unit"`
	BatchID      *uuid.UUID      `json:"batch_id,omitempty"`
	Description  string          `json:"description,omitempty"`
	CreatedAt    time.Time       `json:"created_at"`
}

func toTransactionResponses(rows []models.InventoryTransaction) []transactionResponse {
	out := make([]transactionResponse, 0, len(rows))
	for _, row := range rows {
		out = append(out, transactionResponse{
			ID:           row.ID,
			ItemType:     row.ItemType.String(),
			ItemID:       row.ItemID,
			Type:         row.Type.String(),
			Quantity:     row.Quantity,
			PricePerUnit: row.PricePerUnit,
			Unit:         row.Unit,
			BatchID:      row.BatchID,
			Description:  row.Description,
			CreatedAt:    row.CreatedAt,
		})
	}
	return out
}

type lotResponse struct {
	ID           uuid.UUID       `json:"id"`
	Quantity     decimal.Decimal `json:"quantity"`
	PricePerUnit decimal.Decimal `json:"price_per_unit"`
	Unit         string          `json:"unit"`
	ReceivedDate time.Time       `json:"received_date"`
}

func toLotResponse(lot *models.InventoryBatch) lotResponse {
	return lotResponse{
		ID:           lot.ID,
		Quantity:     lot.Quantity,
		PricePerUnit: lot.PricePerUnit,
		Unit:         lot.Unit,
		ReceivedDate: lot.ReceivedDate,
	}
}

type recipeMaterialResponse struct {
	ItemType        string          `json:"item_type"`
	ItemID          uuid.UUID       `json:"item_id"`
	Quantity        decimal.Decimal `json:"quantity"`
	WastePercentage decimal.Decimal `json:"waste_percentage"`
	Unit            string          `json:"unit"`
}

type recipeOutputResponse struct {
	ItemType  string          `json:"item_type"`
	ItemID    uuid.UUID       `json:"item_id"`
	Quantity  decimal.Decimal `json:"quantity"`
	IsDefault bool            `json:"is_default"`
}

type recipeCostRateResponse struct {
	Category    string          `json:"category"`
	RatePerUnit decimal.Decimal `json:"rate_per_unit"`
	FixedRate   decimal.Decimal `json:"fixed_rate"`
}

type recipeResponse struct {
	ID                    uuid.UUID                `json:"id"`
	Name                  string                   `json:"name"`
	OutputQuantity        decimal.Decimal          `json:"output_quantity"`
	OutputUnit            string                   `json:"output_unit"`
	ProductionTimeMinutes int                      `json:"production_time_minutes"`
	IsActive              bool                     `json:"is_active"`
	Materials             []recipeMaterialResponse `json:"materials,omitempty"`
	Outputs               []recipeOutputResponse   `json:"outputs,omitempty"`
	CostRates             []recipeCostRateResponse `json:"cost_rates,omitempty"`
	CreatedAt             time.Time                `json:"created_at"`
}

func toRecipeResponse(recipe *models.Recipe) recipeResponse {
	resp := recipeResponse{
		ID:                    recipe.ID,
		Name:                  recipe.Name,
		OutputQuantity:        recipe.OutputQuantity(),
		OutputUnit:            recipe.OutputUnit,
		ProductionTimeMinutes: recipe.ProductionTimeMinutes,
		IsActive:              recipe.IsActive,
		CreatedAt:             recipe.CreatedAt,
	}
	for _, material := range recipe.Materials {
		resp.Materials = append(resp.Materials, recipeMaterialResponse{
			ItemType:        material.ItemType.String(),
			ItemID:          material.ItemID,
			Quantity:        material.Quantity,
			WastePercentage: material.WastePercentage,
			Unit:            material.Unit,
		})
	}
	for _, output := range recipe.Outputs {
		resp.Outputs = append(resp.Outputs, recipeOutputResponse{
			ItemType:  output.ItemType.String(),
			ItemID:    output.ItemID,
			Quantity:  output.Quantity,
			IsDefault: output.IsDefault,
		})
	}
	for _, rate := range recipe.CostRates {
		resp.CostRates = append(resp.CostRates, recipeCostRateResponse{
			Category:    rate.Category.String(),
			RatePerUnit: rate.RatePerUnit,
			FixedRate:   rate.FixedRate,
		})
	}
	return resp
}

type consumptionResponse struct {
	ItemType         string          `json:"item_type"`
	ItemID           uuid.UUID       `json:"item_id"`
	InventoryBatchID uuid.UUID       `json:"inventory_batch_id"`
	Quantity         decimal.Decimal `json:"quantity"`
	PricePerUnit     decimal.Decimal `json:"price_per_unit"`
	Unit             string          `json:"unit"`
}

type batchResponse struct {
	ID                uuid.UUID             `json:"id"`
	BatchNumber       string                `json:"batch_number"`
	RecipeID          uuid.UUID             `json:"recipe_id"`
	OutputItemType    string                `json:"output_item_type"`
	OutputItemID      uuid.UUID             `json:"output_item_id"`
	PlannedQuantity   decimal.Decimal       `json:"planned_quantity"`
	ActualQuantity    *decimal.Decimal      `json:"actual_quantity,omitempty"`
	Status            string                `json:"status"`
	PlannedStartDate  *time.Time            `json:"planned_start_date,omitempty"`
	StartedAt         *time.Time            `json:"started_at,omitempty"`
	CompletedAt       *time.Time            `json:"completed_at,omitempty"`
	UnitCost          *decimal.Decimal      `json:"unit_cost,omitempty"`
	TotalMaterialCost *decimal.Decimal      `json:"total_material_cost,omitempty"`
	Notes             string                `json:"notes,omitempty"`
	Consumptions      []consumptionResponse `json:"consumptions,omitempty"`
	CreatedAt         time.Time             `json:"created_at"`
}

func toBatchResponse(batch *models.ProductionBatch) batchResponse {
	resp := batchResponse{
		ID:                batch.ID,
		BatchNumber:       batch.BatchNumber,
		RecipeID:          batch.RecipeID,
		OutputItemType:    batch.OutputItemType.String(),
		OutputItemID:      batch.OutputItemID,
		PlannedQuantity:   batch.PlannedQuantity,
		ActualQuantity:    batch.ActualQuantity,
		Status:            batch.Status.String(),
		PlannedStartDate:  batch.PlannedStartDate,
		StartedAt:         batch.StartedAt,
		CompletedAt:       batch.CompletedAt,
		UnitCost:          batch.UnitCost,
		TotalMaterialCost: batch.TotalMaterialCost,
		Notes:             batch.Notes,
		CreatedAt:         batch.CreatedAt,
	}
	for _, consumption := range batch.Consumptions {
		resp.Consumptions = append(resp.Consumptions, consumptionResponse{
			ItemType:         consumption.ItemType.String(),
			ItemID:           consumption.ItemID,
			InventoryBatchID: consumption.InventoryBatchID,
			Quantity:         consumption.Quantity,
			PricePerUnit:     consumption.PricePerUnit,
			Unit:             consumption.Unit,
		})
	}
	return resp
}

func toBatchResponses(rows []models.ProductionBatch) []batchResponse {
	out := make([]batchResponse, 0, len(rows))
	for i := range rows {
		out = append(out, toBatchResponse(&rows[i]))
	}
	return out
}
