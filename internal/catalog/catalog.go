package catalog

import (
	"context"
	stdErrors "errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/angelmondragon/stockforge-backend/pkg/db/models"
	"github.com/angelmondragon/stockforge-backend/pkg/enums"
	"github.com/angelmondragon/stockforge-backend/pkg/errors"
	"github.com/angelmondragon/stockforge-backend/pkg/types"
)

// Repository resolves item references against the catalog tables.
type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// ResolveName returns the display name behind an item reference.
func (r *Repository) ResolveName(ctx context.Context, item types.ItemRef) (string, error) {
	if err := item.Validate(); err != nil {
		return "", errors.Wrap(errors.CodeValidation, err, "invalid item reference")
	}

	var name string
	var err error
	switch item.Type {
	case enums.ItemTypeMaterial:
		var row models.Material
		err = r.db.WithContext(ctx).Select("name").First(&row, "id = ?", item.ID).Error
		name = row.Name
	case enums.ItemTypeProduct:
		var row models.Product
		err = r.db.WithContext(ctx).Select("name").First(&row, "id = ?", item.ID).Error
		name = row.Name
	case enums.ItemTypeProductVariant:
		var row models.ProductVariant
		err = r.db.WithContext(ctx).Select("name").First(&row, "id = ?", item.ID).Error
		name = row.Name
	default:
		return "", errors.New(errors.CodeValidation, fmt.Sprintf("unknown item type %q", item.Type))
	}

	if err != nil {
		if stdErrors.Is(err, gorm.ErrRecordNotFound) {
			return "", errors.New(errors.CodeNotFound, "item not found in catalog")
		}
		return "", errors.Wrap(errors.CodeInternal, err, "resolving item name")
	}
	return name, nil
}

// NameOrID resolves the display name, falling back to the raw id when the
// catalog has no row for it. Cost breakdowns use it so a dangling reference
// degrades to an id instead of failing the estimate.
func (r *Repository) NameOrID(ctx context.Context, item types.ItemRef) string {
	name, err := r.ResolveName(ctx, item)
	if err != nil {
		return item.ID.String()
	}
	return name
}

// Exists reports whether the referenced item is present in the catalog.
func (r *Repository) Exists(ctx context.Context, item types.ItemRef) (bool, error) {
	_, err := r.ResolveName(ctx, item)
	if err != nil {
		if errors.IsCode(err, errors.CodeNotFound) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}
