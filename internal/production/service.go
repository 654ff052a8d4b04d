package production

import (
	"context"
	stdErrors "errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/angelmondragon/stockforge-backend/internal/inventory"
	"github.com/angelmondragon/stockforge-backend/internal/recipes"
	"github.com/angelmondragon/stockforge-backend/pkg/db"
	"github.com/angelmondragon/stockforge-backend/pkg/db/models"
	"github.com/angelmondragon/stockforge-backend/pkg/enums"
	"github.com/angelmondragon/stockforge-backend/pkg/errors"
	"github.com/angelmondragon/stockforge-backend/pkg/logger"
	"github.com/angelmondragon/stockforge-backend/pkg/metrics"
	"github.com/angelmondragon/stockforge-backend/pkg/types"
	"github.com/angelmondragon/stockforge-backend/pkg/units"
)

// Ledger is the transaction-scoped inventory surface the state machine
// drives. The inventory service satisfies it.
type Ledger interface {
	ReceiveTx(ctx context.Context, tx *gorm.DB, input inventory.AddStockInput) (*models.InventoryBatch, error)
	ConsumeTx(ctx context.Context, tx *gorm.DB, input inventory.RemoveStockInput) ([]inventory.LotDraw, error)
	BalanceTx(ctx context.Context, tx *gorm.DB, item types.ItemRef) (*models.InventoryBalance, error)
}

// RecipeSource loads recipes for batch orchestration.
type RecipeSource interface {
	GetRecipe(ctx context.Context, id uuid.UUID) (*models.Recipe, error)
}

// Namer resolves a display name for an item reference.
type Namer interface {
	NameOrID(ctx context.Context, item types.ItemRef) string
}

// Service is the production batch state machine:
// planned -> in_progress -> completed, or planned/in_progress -> cancelled.
type Service interface {
	CreateBatch(ctx context.Context, input CreateBatchInput) (*models.ProductionBatch, error)
	StartProduction(ctx context.Context, batchID, actorID uuid.UUID) (*models.ProductionBatch, error)
	CompleteProduction(ctx context.Context, input CompleteInput) (*models.ProductionBatch, error)
	CancelProduction(ctx context.Context, input CancelInput) (*models.ProductionBatch, error)
	GetBatch(ctx context.Context, id uuid.UUID) (*models.ProductionBatch, error)
	ListBatches(ctx context.Context) ([]models.ProductionBatch, error)
}

// CreateBatchInput plans a batch; no availability check happens until start.
type CreateBatchInput struct {
	RecipeID         uuid.UUID
	Quantity         decimal.Decimal
	PlannedStartDate *time.Time
	Notes            string
	ActorID          uuid.UUID
}

// CompleteInput finishes an in-progress batch at the quantity actually
// produced, which may differ from the planned quantity.
type CompleteInput struct {
	BatchID        uuid.UUID
	ActualQuantity decimal.Decimal
	Notes          string
	ActorID        uuid.UUID
}

// CancelInput aborts a planned or in-progress batch.
type CancelInput struct {
	BatchID uuid.UUID
	Reason  string
	ActorID uuid.UUID
}

type service struct {
	repo    *Repository
	recipes RecipeSource
	ledger  Ledger
	namer   Namer
	client  *db.Client
	logg    *logger.Logger
	metrics *metrics.LedgerMetrics
	now     func() time.Time
}

// NewService wires the production service.
func NewService(repo *Repository, recipeSource RecipeSource, ledger Ledger, namer Namer, client *db.Client, logg *logger.Logger, ledgerMetrics *metrics.LedgerMetrics) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("production repository is required")
	}
	if recipeSource == nil {
		return nil, fmt.Errorf("recipe source is required")
	}
	if ledger == nil {
		return nil, fmt.Errorf("ledger is required")
	}
	if namer == nil {
		return nil, fmt.Errorf("namer is required")
	}
	if client == nil {
		return nil, fmt.Errorf("db client is required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger is required")
	}
	return &service{
		repo:    repo,
		recipes: recipeSource,
		ledger:  ledger,
		namer:   namer,
		client:  client,
		logg:    logg,
		metrics: ledgerMetrics,
		now:     time.Now,
	}, nil
}

func (s *service) CreateBatch(ctx context.Context, input CreateBatchInput) (*models.ProductionBatch, error) {
	if input.RecipeID == uuid.Nil {
		return nil, errors.New(errors.CodeValidation, "recipe id is required")
	}
	if !input.Quantity.IsPositive() {
		return nil, errors.New(errors.CodeValidation, "quantity must be positive")
	}

	recipe, err := s.recipes.GetRecipe(ctx, input.RecipeID)
	if err != nil {
		return nil, err
	}
	if !recipe.IsActive {
		return nil, errors.New(errors.CodeStateConflict, "recipe is inactive")
	}
	output := recipe.DefaultOutput()
	if output == nil {
		return nil, errors.New(errors.CodeStateConflict, "recipe has no output")
	}

	batch := &models.ProductionBatch{
		RecipeID:         recipe.ID,
		OutputItemType:   output.ItemType,
		OutputItemID:     output.ItemID,
		PlannedQuantity:  input.Quantity,
		Status:           enums.ProductionStatusPlanned,
		PlannedStartDate: input.PlannedStartDate,
		Notes:            input.Notes,
		CreatedBy:        input.ActorID,
	}

	// One retry on a batch number collision; the suffix is random so a
	// second collision is vanishingly unlikely.
	for attempt := 0; attempt < 2; attempt++ {
		batch.ID = uuid.Nil
		batch.BatchNumber = GenerateBatchNumber(s.now())
		err = s.repo.CreateBatch(ctx, batch)
		if err == nil {
			break
		}
		if !db.IsUniqueViolation(err, "") {
			return nil, errors.Wrap(errors.CodeInternal, err, "creating production batch")
		}
	}
	if err != nil {
		return nil, errors.Wrap(errors.CodeConflict, err, "batch number collision")
	}

	ctx = s.logg.WithBatchNumber(ctx, batch.BatchNumber)
	s.logg.Info(ctx, "production batch created")
	return batch, nil
}

// StartProduction validates component availability under row locks and, if
// every component is covered, consumes materials oldest lot first. Any
// shortfall fails the whole call with nothing consumed.
func (s *service) StartProduction(ctx context.Context, batchID, actorID uuid.UUID) (*models.ProductionBatch, error) {
	var batch *models.ProductionBatch
	err := s.client.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		loaded, err := repo.GetByIDForUpdate(ctx, batchID)
		if err != nil {
			return notFoundOrInternal(err, "production batch not found")
		}
		if loaded.Status != enums.ProductionStatusPlanned {
			return stateConflict("start", loaded.Status)
		}

		recipe, err := s.recipes.GetRecipe(ctx, loaded.RecipeID)
		if err != nil {
			return err
		}
		outputQuantity := recipe.OutputQuantity()

		type requirement struct {
			material models.RecipeMaterial
			item     types.ItemRef
			required decimal.Decimal
		}
		requirements := make([]requirement, 0, len(recipe.Materials))
		var shortages []map[string]string
		for _, material := range recipe.Materials {
			item := types.ItemRef{Type: material.ItemType, ID: material.ItemID}
			required := recipes.RequiredQuantity(material, outputQuantity, loaded.PlannedQuantity)

			balance, err := s.ledger.BalanceTx(ctx, tx, item)
			if err != nil {
				return err
			}
			available := decimal.Zero
			if balance != nil {
				available = balance.TotalQuantity
				// The balance may be held in a different unit than the
				// recipe expresses the requirement in; compare and consume
				// in the balance unit.
				if balance.Unit != material.Unit {
					required, err = units.Convert(required, material.Unit, balance.Unit)
					if err != nil {
						return err
					}
				}
			}
			if available.LessThan(required) {
				shortages = append(shortages, map[string]string{
					"name":      s.namer.NameOrID(ctx, item),
					"item_type": item.Type.String(),
					"item_id":   item.ID.String(),
					"required":  required.String(),
					"available": available.String(),
					"shortage":  required.Sub(available).String(),
				})
			}
			requirements = append(requirements, requirement{material: material, item: item, required: required})
		}
		if len(shortages) > 0 {
			s.metrics.ObserveShortfall()
			return errors.New(errors.CodeInsufficientMaterials, "components below required quantity").
				WithDetails(shortages)
		}

		for _, req := range requirements {
			draws, err := s.ledger.ConsumeTx(ctx, tx, inventory.RemoveStockInput{
				Item:        req.item,
				Quantity:    req.required,
				ActorID:     actorID,
				Description: fmt.Sprintf("production batch %s start", loaded.BatchNumber),
			})
			if err != nil {
				return err
			}
			for _, draw := range draws {
				consumption := &models.MaterialConsumption{
					ProductionBatchID: loaded.ID,
					ItemType:          req.item.Type,
					ItemID:            req.item.ID,
					InventoryBatchID:  draw.BatchID,
					Quantity:          draw.Quantity,
					PricePerUnit:      draw.PricePerUnit,
					Unit:              draw.Unit,
				}
				if err := repo.CreateConsumption(ctx, consumption); err != nil {
					return errors.Wrap(errors.CodeInternal, err, "recording consumption")
				}
			}
		}

		startedAt := s.now()
		loaded.Status = enums.ProductionStatusInProgress
		loaded.StartedAt = &startedAt
		if err := repo.SaveBatch(ctx, loaded); err != nil {
			return errors.Wrap(errors.CodeInternal, err, "updating batch")
		}
		batch = loaded
		return nil
	})
	if err != nil {
		return nil, err
	}

	ctx = s.logg.WithBatchNumber(ctx, batch.BatchNumber)
	s.logg.Info(ctx, "production started")
	s.metrics.ObserveTransition("started")
	return batch, nil
}

// CompleteProduction rolls the consumed material cost into a unit cost and
// emits the produced quantity as a fresh incoming lot at that cost.
func (s *service) CompleteProduction(ctx context.Context, input CompleteInput) (*models.ProductionBatch, error) {
	if input.ActualQuantity.IsNegative() {
		return nil, errors.New(errors.CodeValidation, "actual quantity cannot be negative")
	}

	var batch *models.ProductionBatch
	err := s.client.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		loaded, err := repo.GetByIDForUpdate(ctx, input.BatchID)
		if err != nil {
			return notFoundOrInternal(err, "production batch not found")
		}
		if loaded.Status != enums.ProductionStatusInProgress {
			return stateConflict("complete", loaded.Status)
		}

		recipe, err := s.recipes.GetRecipe(ctx, loaded.RecipeID)
		if err != nil {
			return err
		}

		consumptions, err := repo.ListConsumptions(ctx, loaded.ID)
		if err != nil {
			return errors.Wrap(errors.CodeInternal, err, "listing consumptions")
		}
		totalCost := decimal.Zero
		for _, consumption := range consumptions {
			totalCost = totalCost.Add(consumption.Quantity.Mul(consumption.PricePerUnit))
		}

		unitCost := decimal.Zero
		if input.ActualQuantity.IsPositive() {
			unitCost = totalCost.Div(input.ActualQuantity)
			_, err = s.ledger.ReceiveTx(ctx, tx, inventory.AddStockInput{
				Item:         types.ItemRef{Type: loaded.OutputItemType, ID: loaded.OutputItemID},
				Quantity:     input.ActualQuantity,
				PricePerUnit: unitCost,
				Unit:         recipe.OutputUnit,
				ReceivedDate: s.now(),
				ActorID:      input.ActorID,
				Description:  fmt.Sprintf("production batch %s output", loaded.BatchNumber),
			})
			if err != nil {
				return err
			}
		}

		completedAt := s.now()
		actual := input.ActualQuantity
		loaded.Status = enums.ProductionStatusCompleted
		loaded.ActualQuantity = &actual
		loaded.UnitCost = &unitCost
		loaded.TotalMaterialCost = &totalCost
		loaded.CompletedAt = &completedAt
		loaded.CompletedBy = &input.ActorID
		loaded.Notes = appendNote(loaded.Notes, input.Notes)
		if err := repo.SaveBatch(ctx, loaded); err != nil {
			return errors.Wrap(errors.CodeInternal, err, "updating batch")
		}
		batch = loaded
		return nil
	})
	if err != nil {
		return nil, err
	}

	ctx = s.logg.WithBatchNumber(ctx, batch.BatchNumber)
	s.logg.Info(ctx, "production completed")
	s.metrics.ObserveTransition("completed")
	return batch, nil
}

// CancelProduction aborts a planned or in-progress batch. Consumed materials
// are re-added as fresh incoming movements at their consumption prices;
// quantities restore exactly, moving averages may shift.
func (s *service) CancelProduction(ctx context.Context, input CancelInput) (*models.ProductionBatch, error) {
	var batch *models.ProductionBatch
	err := s.client.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		loaded, err := repo.GetByIDForUpdate(ctx, input.BatchID)
		if err != nil {
			return notFoundOrInternal(err, "production batch not found")
		}
		if loaded.Status.IsTerminal() {
			return stateConflict("cancel", loaded.Status)
		}

		if loaded.Status == enums.ProductionStatusInProgress {
			consumptions, err := repo.ListConsumptions(ctx, loaded.ID)
			if err != nil {
				return errors.Wrap(errors.CodeInternal, err, "listing consumptions")
			}
			for _, consumption := range consumptions {
				_, err = s.ledger.ReceiveTx(ctx, tx, inventory.AddStockInput{
					Item:         types.ItemRef{Type: consumption.ItemType, ID: consumption.ItemID},
					Quantity:     consumption.Quantity,
					PricePerUnit: consumption.PricePerUnit,
					Unit:         consumption.Unit,
					ReceivedDate: s.now(),
					ActorID:      input.ActorID,
					Description:  fmt.Sprintf("production batch %s cancelled", loaded.BatchNumber),
				})
				if err != nil {
					return err
				}
			}
		}

		loaded.Status = enums.ProductionStatusCancelled
		loaded.Notes = appendNote(loaded.Notes, input.Reason)
		if err := repo.SaveBatch(ctx, loaded); err != nil {
			return errors.Wrap(errors.CodeInternal, err, "updating batch")
		}
		batch = loaded
		return nil
	})
	if err != nil {
		return nil, err
	}

	ctx = s.logg.WithBatchNumber(ctx, batch.BatchNumber)
	s.logg.Info(ctx, "production cancelled")
	s.metrics.ObserveTransition("cancelled")
	return batch, nil
}

func (s *service) GetBatch(ctx context.Context, id uuid.UUID) (*models.ProductionBatch, error) {
	batch, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, notFoundOrInternal(err, "production batch not found")
	}
	return batch, nil
}

func (s *service) ListBatches(ctx context.Context) ([]models.ProductionBatch, error) {
	rows, err := s.repo.ListBatches(ctx)
	if err != nil {
		return nil, errors.Wrap(errors.CodeInternal, err, "listing batches")
	}
	return rows, nil
}

func stateConflict(transition string, current enums.ProductionStatus) error {
	return errors.New(errors.CodeStateConflict, fmt.Sprintf("cannot %s batch in status %s", transition, current)).
		WithDetails(map[string]string{"status": current.String()})
}

func notFoundOrInternal(err error, message string) error {
	if stdErrors.Is(err, gorm.ErrRecordNotFound) {
		return errors.New(errors.CodeNotFound, message)
	}
	return errors.Wrap(errors.CodeInternal, err, message)
}

func appendNote(existing, addition string) string {
	addition = strings.TrimSpace(addition)
	if addition == "" {
		return existing
	}
	if existing == "" {
		return addition
	}
	return existing + "\n" + addition
}
