package enums

import "fmt"

// CostingStrategy selects the lot order used to value a required quantity.
// It affects estimates only; physical depletion is always oldest-first.
type CostingStrategy string

const (
	CostingStrategyAverage CostingStrategy = "average"
	CostingStrategyFIFO    CostingStrategy = "fifo"
	CostingStrategyLIFO    CostingStrategy = "lifo"
)

var validCostingStrategies = []CostingStrategy{
	CostingStrategyAverage,
	CostingStrategyFIFO,
	CostingStrategyLIFO,
}

// IsValid reports whether the value matches the canonical strategy enum.
func (s CostingStrategy) IsValid() bool {
	for _, candidate := range validCostingStrategies {
		if candidate == s {
			return true
		}
	}
	return false
}

func (s CostingStrategy) String() string {
	return string(s)
}

// ParseCostingStrategy converts raw input into CostingStrategy.
func ParseCostingStrategy(value string) (CostingStrategy, error) {
	for _, candidate := range validCostingStrategies {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid costing strategy %q", value)
}
