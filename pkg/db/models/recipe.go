package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/angelmondragon/stockforge-backend/pkg/enums"
)

// Recipe is a bill-of-materials: the components, outputs, and cost rates
// needed to produce one batch of output.
type Recipe struct {
	ID                    uuid.UUID        `gorm:"column:id;type:uuid;primaryKey"`
	Name                  string           `gorm:"column:name;not null"`
	OutputUnit            string           `gorm:"column:output_unit;not null"`
	ProductionTimeMinutes int              `gorm:"column:production_time_minutes;not null;default:0"`
	IsActive              bool             `gorm:"column:is_active;not null;default:true"`
	Materials             []RecipeMaterial `gorm:"foreignKey:RecipeID;constraint:OnDelete:CASCADE"`
	Outputs               []RecipeOutput   `gorm:"foreignKey:RecipeID;constraint:OnDelete:CASCADE"`
	CostRates             []RecipeCostRate `gorm:"foreignKey:RecipeID;constraint:OnDelete:CASCADE"`
	CreatedAt             time.Time        `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt             time.Time        `gorm:"column:updated_at;autoUpdateTime"`
}

func (r *Recipe) BeforeCreate(tx *gorm.DB) error {
	if r.ID == uuid.Nil {
		r.ID = uuid.New()
	}
	return nil
}

// OutputQuantity is derived: the sum of output product quantities per batch.
func (r *Recipe) OutputQuantity() decimal.Decimal {
	total := decimal.Zero
	for _, output := range r.Outputs {
		total = total.Add(output.Quantity)
	}
	return total
}

// DefaultOutput returns the output flagged as default, falling back to the
// first output when none is flagged.
func (r *Recipe) DefaultOutput() *RecipeOutput {
	for i := range r.Outputs {
		if r.Outputs[i].IsDefault {
			return &r.Outputs[i]
		}
	}
	if len(r.Outputs) > 0 {
		return &r.Outputs[0]
	}
	return nil
}

// RecipeMaterial is one ordered component requirement of a recipe.
type RecipeMaterial struct {
	ID              uuid.UUID       `gorm:"column:id;type:uuid;primaryKey"`
	RecipeID        uuid.UUID       `gorm:"column:recipe_id;type:uuid;not null;index"`
	ItemType        enums.ItemType  `gorm:"column:item_type;not null"`
	ItemID          uuid.UUID       `gorm:"column:item_id;type:uuid;not null"`
	Quantity        decimal.Decimal `gorm:"column:quantity;type:numeric(18,6);not null"`
	WastePercentage decimal.Decimal `gorm:"column:waste_percentage;type:numeric(5,2);not null"`
	Unit            string          `gorm:"column:unit;not null"`
	Position        int             `gorm:"column:position;not null;default:0"`
	CreatedAt       time.Time       `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt       time.Time       `gorm:"column:updated_at;autoUpdateTime"`
}

func (m *RecipeMaterial) BeforeCreate(tx *gorm.DB) error {
	if m.ID == uuid.Nil {
		m.ID = uuid.New()
	}
	return nil
}

// RecipeOutput is one product (or variant) a recipe batch produces.
type RecipeOutput struct {
	ID        uuid.UUID       `gorm:"column:id;type:uuid;primaryKey"`
	RecipeID  uuid.UUID       `gorm:"column:recipe_id;type:uuid;not null;index"`
	ItemType  enums.ItemType  `gorm:"column:item_type;not null"`
	ItemID    uuid.UUID       `gorm:"column:item_id;type:uuid;not null"`
	Quantity  decimal.Decimal `gorm:"column:quantity;type:numeric(18,6);not null"`
	IsDefault bool            `gorm:"column:is_default;not null;default:false"`
	CreatedAt time.Time       `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time       `gorm:"column:updated_at;autoUpdateTime"`
}

func (o *RecipeOutput) BeforeCreate(tx *gorm.DB) error {
	if o.ID == uuid.Nil {
		o.ID = uuid.New()
	}
	return nil
}

// RecipeCostRate defines a per-unit and/or fixed cost in one category.
type RecipeCostRate struct {
	ID          uuid.UUID          `gorm:"column:id;type:uuid;primaryKey"`
	RecipeID    uuid.UUID          `gorm:"column:recipe_id;type:uuid;not null;index"`
	Category    enums.CostCategory `gorm:"column:category;not null"`
	RatePerUnit decimal.Decimal    `gorm:"column:rate_per_unit;type:numeric(18,6);not null"`
	FixedRate   decimal.Decimal    `gorm:"column:fixed_rate;type:numeric(18,6);not null"`
	CreatedAt   time.Time          `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt   time.Time          `gorm:"column:updated_at;autoUpdateTime"`
}

func (c *RecipeCostRate) BeforeCreate(tx *gorm.DB) error {
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	return nil
}
