package enums

import "fmt"

// ItemType discriminates the kind of stocked item a ledger row refers to.
type ItemType string

const (
	ItemTypeMaterial       ItemType = "material"
	ItemTypeProduct        ItemType = "product"
	ItemTypeProductVariant ItemType = "product_variant"
)

var validItemTypes = []ItemType{
	ItemTypeMaterial,
	ItemTypeProduct,
	ItemTypeProductVariant,
}

// IsValid reports whether the value matches the canonical item type enum.
func (t ItemType) IsValid() bool {
	for _, candidate := range validItemTypes {
		if candidate == t {
			return true
		}
	}
	return false
}

func (t ItemType) String() string {
	return string(t)
}

// ParseItemType converts raw input into ItemType.
func ParseItemType(value string) (ItemType, error) {
	for _, candidate := range validItemTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid item type %q", value)
}
