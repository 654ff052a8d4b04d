package recipes

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/stockforge-backend/pkg/db/models"
)

// Repository manages recipe persistence including the material, output, and
// cost-rate collections.
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

// Create inserts the recipe with its associations in one statement chain.
func (r *Repository) Create(ctx context.Context, recipe *models.Recipe) error {
	return r.db.WithContext(ctx).Create(recipe).Error
}

// GetByID loads a recipe with materials ordered by position.
func (r *Repository) GetByID(ctx context.Context, id uuid.UUID) (*models.Recipe, error) {
	var recipe models.Recipe
	err := r.db.WithContext(ctx).
		Preload("Materials", func(db *gorm.DB) *gorm.DB {
			return db.Order("position ASC, created_at ASC")
		}).
		Preload("Outputs").
		Preload("CostRates").
		First(&recipe, "id = ?", id).
		Error
	if err != nil {
		return nil, err
	}
	return &recipe, nil
}

// List returns active recipes, newest first, without associations.
func (r *Repository) List(ctx context.Context) ([]models.Recipe, error) {
	var rows []models.Recipe
	err := r.db.WithContext(ctx).
		Where("is_active = ?", true).
		Order("created_at DESC").
		Find(&rows).
		Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}

// Deactivate flips the active flag; recipes referenced by batches are never
// hard-deleted.
func (r *Repository) Deactivate(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).
		Model(&models.Recipe{}).
		Where("id = ?", id).
		Update("is_active", false).
		Error
}
