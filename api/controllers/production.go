package controllers

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/stockforge-backend/api/middleware"
	"github.com/angelmondragon/stockforge-backend/api/responses"
	"github.com/angelmondragon/stockforge-backend/api/validators"
	"github.com/angelmondragon/stockforge-backend/internal/production"
	pkgerrors "github.com/angelmondragon/stockforge-backend/pkg/errors"
	"github.com/angelmondragon/stockforge-backend/pkg/logger"
)

type createBatchRequest struct {
	RecipeID         string          `json:"recipe_id" validate:"required,uuid"`
	Quantity         decimal.Decimal `json:"quantity" validate:"required"`
	PlannedStartDate *time.Time      `json:"planned_start_date"`
	Notes            string          `json:"notes" validate:"max=2000"`
}

func ProductionCreateBatch(svc production.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req createBatchRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		recipeID, err := uuid.Parse(req.RecipeID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "invalid recipe id"))
			return
		}

		batch, err := svc.CreateBatch(r.Context(), production.CreateBatchInput{
			RecipeID:         recipeID,
			Quantity:         req.Quantity,
			PlannedStartDate: req.PlannedStartDate,
			Notes:            req.Notes,
			ActorID:          middleware.ActorIDFromContext(r.Context()),
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, toBatchResponse(batch))
	}
}

func ProductionStart(svc production.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		batchID, err := uuid.Parse(chi.URLParam(r, "batchID"))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "invalid batch id"))
			return
		}

		batch, err := svc.StartProduction(r.Context(), batchID, middleware.ActorIDFromContext(r.Context()))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, toBatchResponse(batch))
	}
}

type completeBatchRequest struct {
	ActualQuantity decimal.Decimal `json:"actual_quantity"`
	Notes          string          `json:"notes" validate:"max=2000"`
}

func ProductionComplete(svc production.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		batchID, err := uuid.Parse(chi.URLParam(r, "batchID"))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "invalid batch id"))
			return
		}

		var req completeBatchRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		batch, err := svc.CompleteProduction(r.Context(), production.CompleteInput{
			BatchID:        batchID,
			ActualQuantity: req.ActualQuantity,
			Notes:          req.Notes,
			ActorID:        middleware.ActorIDFromContext(r.Context()),
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, toBatchResponse(batch))
	}
}

type cancelBatchRequest struct {
	Reason string `json:"reason" validate:"required,max=2000"`
}

func ProductionCancel(svc production.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		batchID, err := uuid.Parse(chi.URLParam(r, "batchID"))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "invalid batch id"))
			return
		}

		var req cancelBatchRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		batch, err := svc.CancelProduction(r.Context(), production.CancelInput{
			BatchID: batchID,
			Reason:  req.Reason,
			ActorID: middleware.ActorIDFromContext(r.Context()),
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, toBatchResponse(batch))
	}
}

func ProductionGetBatch(svc production.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		batchID, err := uuid.Parse(chi.URLParam(r, "batchID"))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "invalid batch id"))
			return
		}

		batch, err := svc.GetBatch(r.Context(), batchID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, toBatchResponse(batch))
	}
}

func ProductionListBatches(svc production.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		rows, err := svc.ListBatches(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, toBatchResponses(rows))
	}
}

func ProductionBatchCosts(costs *production.CostService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		batchID, err := uuid.Parse(chi.URLParam(r, "batchID"))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "invalid batch id"))
			return
		}

		summary, err := costs.BatchCosts(r.Context(), batchID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, summary)
	}
}
