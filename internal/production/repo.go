package production

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/angelmondragon/stockforge-backend/pkg/db/models"
)

// Repository manages production batch and consumption persistence.
type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// WithTx returns a repository bound to the provided transaction.
func (r *Repository) WithTx(tx *gorm.DB) *Repository {
	if tx == nil {
		return r
	}
	return &Repository{db: tx}
}

// CreateBatch inserts a new batch row.
func (r *Repository) CreateBatch(ctx context.Context, batch *models.ProductionBatch) error {
	return r.db.WithContext(ctx).Create(batch).Error
}

// GetByID loads a batch with its consumption rows.
func (r *Repository) GetByID(ctx context.Context, id uuid.UUID) (*models.ProductionBatch, error) {
	var batch models.ProductionBatch
	err := r.db.WithContext(ctx).
		Preload("Consumptions", func(db *gorm.DB) *gorm.DB {
			return db.Order("created_at ASC")
		}).
		First(&batch, "id = ?", id).
		Error
	if err != nil {
		return nil, err
	}
	return &batch, nil
}

// GetByIDForUpdate loads a batch under a row lock so state transitions
// against the same batch serialize.
func (r *Repository) GetByIDForUpdate(ctx context.Context, id uuid.UUID) (*models.ProductionBatch, error) {
	query := r.db.WithContext(ctx)
	if r.db.Dialector.Name() == "postgres" {
		query = query.Clauses(clause.Locking{Strength: "UPDATE"})
	}

	var batch models.ProductionBatch
	err := query.First(&batch, "id = ?", id).Error
	if err != nil {
		return nil, err
	}
	return &batch, nil
}

// SaveBatch persists transition updates to a batch.
func (r *Repository) SaveBatch(ctx context.Context, batch *models.ProductionBatch) error {
	return r.db.WithContext(ctx).Save(batch).Error
}

// CreateConsumption records one lot draw made while starting a batch.
func (r *Repository) CreateConsumption(ctx context.Context, consumption *models.MaterialConsumption) error {
	return r.db.WithContext(ctx).Create(consumption).Error
}

// ListConsumptions returns the consumption rows for a batch.
func (r *Repository) ListConsumptions(ctx context.Context, batchID uuid.UUID) ([]models.MaterialConsumption, error) {
	var rows []models.MaterialConsumption
	err := r.db.WithContext(ctx).
		Where("production_batch_id = ?", batchID).
		Order("created_at ASC").
		Find(&rows).
		Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}

// ListBatches returns batches newest first.
func (r *Repository) ListBatches(ctx context.Context) ([]models.ProductionBatch, error) {
	var rows []models.ProductionBatch
	err := r.db.WithContext(ctx).
		Order("created_at DESC").
		Find(&rows).
		Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}
