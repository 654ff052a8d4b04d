package enums

import "fmt"

// MovementType is the direction of an inventory transaction.
type MovementType string

const (
	MovementTypeIncoming MovementType = "incoming"
	MovementTypeOutgoing MovementType = "outgoing"
)

var validMovementTypes = []MovementType{
	MovementTypeIncoming,
	MovementTypeOutgoing,
}

// IsValid reports whether the value matches the canonical movement enum.
func (t MovementType) IsValid() bool {
	for _, candidate := range validMovementTypes {
		if candidate == t {
			return true
		}
	}
	return false
}

func (t MovementType) String() string {
	return string(t)
}

// ParseMovementType converts raw input into MovementType.
func ParseMovementType(value string) (MovementType, error) {
	for _, candidate := range validMovementTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid movement type %q", value)
}
