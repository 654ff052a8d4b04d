package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/angelmondragon/stockforge-backend/pkg/enums"
)

// ProductionBatch is one execution instance of a recipe at a target quantity.
// Actual quantity and unit cost are set only at completion.
type ProductionBatch struct {
	ID                uuid.UUID              `gorm:"column:id;type:uuid;primaryKey"`
	BatchNumber       string                 `gorm:"column:batch_number;not null;uniqueIndex:uq_production_batches_number"`
	RecipeID          uuid.UUID              `gorm:"column:recipe_id;type:uuid;not null;index"`
	OutputItemType    enums.ItemType         `gorm:"column:output_item_type;not null"`
	OutputItemID      uuid.UUID              `gorm:"column:output_item_id;type:uuid;not null"`
	PlannedQuantity   decimal.Decimal        `gorm:"column:planned_quantity;type:numeric(18,6);not null"`
	ActualQuantity    *decimal.Decimal       `gorm:"column:actual_quantity;type:numeric(18,6)"`
	Status            enums.ProductionStatus `gorm:"column:status;not null"`
	PlannedStartDate  *time.Time             `gorm:"column:planned_start_date"`
	StartedAt         *time.Time             `gorm:"column:started_at"`
	CompletedAt       *time.Time             `gorm:"column:completed_at"`
	UnitCost          *decimal.Decimal       `gorm:"column:unit_cost;type:numeric(18,6)"`
	TotalMaterialCost *decimal.Decimal       `gorm:"column:total_material_cost;type:numeric(18,6)"`
	Notes             string                 `gorm:"column:notes"`
	CreatedBy         uuid.UUID              `gorm:"column:created_by;type:uuid;not null"`
	CompletedBy       *uuid.UUID             `gorm:"column:completed_by;type:uuid"`
	Consumptions      []MaterialConsumption  `gorm:"foreignKey:ProductionBatchID;constraint:OnDelete:CASCADE"`
	CreatedAt         time.Time              `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt         time.Time              `gorm:"column:updated_at;autoUpdateTime"`
}

func (b *ProductionBatch) BeforeCreate(tx *gorm.DB) error {
	if b.ID == uuid.Nil {
		b.ID = uuid.New()
	}
	return nil
}

// MaterialConsumption records one draw from one lot during production start.
type MaterialConsumption struct {
	ID                uuid.UUID       `gorm:"column:id;type:uuid;primaryKey"`
	ProductionBatchID uuid.UUID       `gorm:"column:production_batch_id;type:uuid;not null;index"`
	ItemType          enums.ItemType  `gorm:"column:item_type;not null"`
	ItemID            uuid.UUID       `gorm:"column:item_id;type:uuid;not null"`
	InventoryBatchID  uuid.UUID       `gorm:"column:inventory_batch_id;type:uuid;not null"`
	Quantity          decimal.Decimal `gorm:"column:quantity;type:numeric(18,6);not null"`
	PricePerUnit      decimal.Decimal `gorm:"column:price_per_unit;type:numeric(18,6);not null"`
	Unit              string          `gorm:"column:unit;not null"`
	CreatedAt         time.Time       `gorm:"column:created_at;autoCreateTime"`
}

func (c *MaterialConsumption) BeforeCreate(tx *gorm.DB) error {
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	return nil
}
