package types

import (
	"fmt"

	"github.com/google/uuid"

	"github.com/angelmondragon/stockforge-backend/pkg/enums"
)

// ItemRef identifies a stocked item: a material, a product, or a product
// variant. Ledger rows and balances are keyed by this pair.
type ItemRef struct {
	Type enums.ItemType `json:"item_type"`
	ID   uuid.UUID      `json:"item_id"`
}

func MaterialRef(id uuid.UUID) ItemRef {
	return ItemRef{Type: enums.ItemTypeMaterial, ID: id}
}

func ProductRef(id uuid.UUID) ItemRef {
	return ItemRef{Type: enums.ItemTypeProduct, ID: id}
}

func VariantRef(id uuid.UUID) ItemRef {
	return ItemRef{Type: enums.ItemTypeProductVariant, ID: id}
}

// Validate checks both halves of the reference are present and well formed.
func (r ItemRef) Validate() error {
	if !r.Type.IsValid() {
		return fmt.Errorf("invalid item type %q", r.Type)
	}
	if r.ID == uuid.Nil {
		return fmt.Errorf("item id is required")
	}
	return nil
}

func (r ItemRef) IsZero() bool {
	return r.Type == "" && r.ID == uuid.Nil
}

func (r ItemRef) String() string {
	return fmt.Sprintf("%s/%s", r.Type, r.ID)
}

// ParseItemRef builds an ItemRef from raw path or payload segments.
func ParseItemRef(itemType, itemID string) (ItemRef, error) {
	parsedType, err := enums.ParseItemType(itemType)
	if err != nil {
		return ItemRef{}, err
	}
	parsedID, err := uuid.Parse(itemID)
	if err != nil {
		return ItemRef{}, fmt.Errorf("invalid item id %q: %w", itemID, err)
	}
	return ItemRef{Type: parsedType, ID: parsedID}, nil
}
