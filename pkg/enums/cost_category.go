package enums

import "fmt"

// CostCategory buckets recipe cost rates for production cost rollups.
type CostCategory string

const (
	CostCategoryMaterials  CostCategory = "materials"
	CostCategoryLabor      CostCategory = "labor"
	CostCategoryOverhead   CostCategory = "overhead"
	CostCategoryManagement CostCategory = "management"
)

var validCostCategories = []CostCategory{
	CostCategoryMaterials,
	CostCategoryLabor,
	CostCategoryOverhead,
	CostCategoryManagement,
}

// IsValid reports whether the value matches the canonical category enum.
func (c CostCategory) IsValid() bool {
	for _, candidate := range validCostCategories {
		if candidate == c {
			return true
		}
	}
	return false
}

func (c CostCategory) String() string {
	return string(c)
}

// ParseCostCategory converts raw input into CostCategory.
func ParseCostCategory(value string) (CostCategory, error) {
	for _, candidate := range validCostCategories {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid cost category %q", value)
}
