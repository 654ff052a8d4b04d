package enums

import "fmt"

// ProductionStatus tracks a production batch through its lifecycle.
type ProductionStatus string

const (
	ProductionStatusPlanned    ProductionStatus = "planned"
	ProductionStatusInProgress ProductionStatus = "in_progress"
	ProductionStatusCompleted  ProductionStatus = "completed"
	ProductionStatusCancelled  ProductionStatus = "cancelled"
)

var validProductionStatuses = []ProductionStatus{
	ProductionStatusPlanned,
	ProductionStatusInProgress,
	ProductionStatusCompleted,
	ProductionStatusCancelled,
}

// IsValid reports whether the value matches the canonical status enum.
func (s ProductionStatus) IsValid() bool {
	for _, candidate := range validProductionStatuses {
		if candidate == s {
			return true
		}
	}
	return false
}

// IsTerminal reports whether the status admits no further transitions.
func (s ProductionStatus) IsTerminal() bool {
	return s == ProductionStatusCompleted || s == ProductionStatusCancelled
}

func (s ProductionStatus) String() string {
	return string(s)
}

// ParseProductionStatus converts raw input into ProductionStatus.
func ParseProductionStatus(value string) (ProductionStatus, error) {
	for _, candidate := range validProductionStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid production status %q", value)
}
