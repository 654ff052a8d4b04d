package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/angelmondragon/stockforge-backend/pkg/enums"
)

// InventoryTransaction is one append-only ledger row. An outgoing request
// spanning three lots produces three rows, each linked to the lot it drew
// from. Rows are never mutated or deleted.
type InventoryTransaction struct {
	ID           uuid.UUID          `gorm:"column:id;type:uuid;primaryKey"`
	ItemType     enums.ItemType     `gorm:"column:item_type;not null;index:idx_inventory_transactions_item"`
	ItemID       uuid.UUID          `gorm:"column:item_id;type:uuid;not null;index:idx_inventory_transactions_item"`
	Type         enums.MovementType `gorm:"column:type;not null"`
	Quantity     decimal.Decimal    `gorm:"column:quantity;type:numeric(18,6);not null"`
	PricePerUnit decimal.Decimal    `gorm:"column:price_per_unit;type:numeric(18,6);not null"`
	Unit         string             `gorm:"column:unit;not null"`
	BatchID      *uuid.UUID         `gorm:"column:batch_id;type:uuid"`
	ActorID      uuid.UUID          `gorm:"column:actor_id;type:uuid;not null"`
	Description  string             `gorm:"column:description"`
	CreatedAt    time.Time          `gorm:"column:created_at;autoCreateTime"`
}

func (t *InventoryTransaction) BeforeCreate(tx *gorm.DB) error {
	if t.ID == uuid.Nil {
		t.ID = uuid.New()
	}
	return nil
}
