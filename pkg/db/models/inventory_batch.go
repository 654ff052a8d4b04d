package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/angelmondragon/stockforge-backend/pkg/enums"
)

// InventoryBatch is a lot: a discrete receipt of stock at a fixed unit price
// and date. Quantity holds what remains; exhausted lots stay at zero and are
// never deleted.
type InventoryBatch struct {
	ID                  uuid.UUID       `gorm:"column:id;type:uuid;primaryKey"`
	ItemType            enums.ItemType  `gorm:"column:item_type;not null;index:idx_inventory_batches_item"`
	ItemID              uuid.UUID       `gorm:"column:item_id;type:uuid;not null;index:idx_inventory_batches_item"`
	Quantity            decimal.Decimal `gorm:"column:quantity;type:numeric(18,6);not null"`
	PricePerUnit        decimal.Decimal `gorm:"column:price_per_unit;type:numeric(18,6);not null"`
	Unit                string          `gorm:"column:unit;not null"`
	ReceivedDate        time.Time       `gorm:"column:received_date;not null"`
	SourceTransactionID *uuid.UUID      `gorm:"column:source_transaction_id;type:uuid"`
	CreatedAt           time.Time       `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt           time.Time       `gorm:"column:updated_at;autoUpdateTime"`
}

func (b *InventoryBatch) BeforeCreate(tx *gorm.DB) error {
	if b.ID == uuid.Nil {
		b.ID = uuid.New()
	}
	return nil
}

// IsExhausted reports whether the lot has been fully drawn down.
func (b *InventoryBatch) IsExhausted() bool {
	return !b.Quantity.IsPositive()
}
