package controllers

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/stockforge-backend/api/middleware"
	"github.com/angelmondragon/stockforge-backend/api/responses"
	"github.com/angelmondragon/stockforge-backend/api/validators"
	"github.com/angelmondragon/stockforge-backend/internal/inventory"
	pkgerrors "github.com/angelmondragon/stockforge-backend/pkg/errors"
	"github.com/angelmondragon/stockforge-backend/pkg/logger"
	"github.com/angelmondragon/stockforge-backend/pkg/types"
)

type addStockRequest struct {
	ItemType     string          `json:"item_type" validate:"required"`
	ItemID       string          `json:"item_id" validate:"required,uuid"`
	Quantity     decimal.Decimal `json:"quantity" validate:"required"`
	PricePerUnit decimal.Decimal `json:"price_per_unit"`
	Unit         string          `json:"unit" validate:"required"`
	ReceivedDate *time.Time      `json:"received_date"`
	Description  string          `json:"description" validate:"max=500"`
}

func InventoryAddStock(svc inventory.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req addStockRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		item, err := types.ParseItemRef(req.ItemType, req.ItemID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid item reference"))
			return
		}

		receivedDate := time.Now()
		if req.ReceivedDate != nil {
			receivedDate = *req.ReceivedDate
		}

		batch, err := svc.AddStock(r.Context(), inventory.AddStockInput{
			Item:         item,
			Quantity:     req.Quantity,
			PricePerUnit: req.PricePerUnit,
			Unit:         req.Unit,
			ReceivedDate: receivedDate,
			ActorID:      middleware.ActorIDFromContext(r.Context()),
			Description:  req.Description,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, toLotResponse(batch))
	}
}

type removeStockRequest struct {
	ItemType    string          `json:"item_type" validate:"required"`
	ItemID      string          `json:"item_id" validate:"required,uuid"`
	Quantity    decimal.Decimal `json:"quantity" validate:"required"`
	Description string          `json:"description" validate:"max=500"`
}

func InventoryRemoveStock(svc inventory.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req removeStockRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		item, err := types.ParseItemRef(req.ItemType, req.ItemID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid item reference"))
			return
		}

		draws, err := svc.RemoveStock(r.Context(), inventory.RemoveStockInput{
			Item:        item,
			Quantity:    req.Quantity,
			ActorID:     middleware.ActorIDFromContext(r.Context()),
			Description: req.Description,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]any{"draws": draws})
	}
}

func InventoryGetStock(svc inventory.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		item, err := types.ParseItemRef(chi.URLParam(r, "itemType"), chi.URLParam(r, "itemID"))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid item reference"))
			return
		}

		balance, err := svc.GetStock(r.Context(), item)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, toBalanceResponse(balance))
	}
}

func InventoryTransactions(svc inventory.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		item, err := types.ParseItemRef(chi.URLParam(r, "itemType"), chi.URLParam(r, "itemID"))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid item reference"))
			return
		}

		from, err := validators.ParseQueryDate(r, "from")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		to, err := validators.ParseQueryDate(r, "to")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		rows, err := svc.GetTransactionHistory(r.Context(), inventory.HistoryInput{
			Item: item,
			From: from,
			To:   to,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, toTransactionResponses(rows))
	}
}
