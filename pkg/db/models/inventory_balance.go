package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/angelmondragon/stockforge-backend/pkg/enums"
)

// InventoryBalance is the derived aggregate per item reference: total live
// quantity and the moving weighted-average price. It is the serialization
// point for concurrent movements against the same item.
type InventoryBalance struct {
	ID            uuid.UUID       `gorm:"column:id;type:uuid;primaryKey"`
	ItemType      enums.ItemType  `gorm:"column:item_type;not null;uniqueIndex:uq_inventory_balances_item"`
	ItemID        uuid.UUID       `gorm:"column:item_id;type:uuid;not null;uniqueIndex:uq_inventory_balances_item"`
	TotalQuantity decimal.Decimal `gorm:"column:total_quantity;type:numeric(18,6);not null"`
	AveragePrice  decimal.Decimal `gorm:"column:average_price;type:numeric(18,6);not null"`
	Unit          string          `gorm:"column:unit;not null"`
	CreatedAt     time.Time       `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt     time.Time       `gorm:"column:updated_at;autoUpdateTime"`
}

func (b *InventoryBalance) BeforeCreate(tx *gorm.DB) error {
	if b.ID == uuid.Nil {
		b.ID = uuid.New()
	}
	return nil
}
