package units

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	pkgerrors "github.com/angelmondragon/stockforge-backend/pkg/errors"
)

// Category is the physical dimension a unit measures.
type Category string

const (
	CategoryLength Category = "length"
	CategoryArea   Category = "area"
	CategoryVolume Category = "volume"
	CategoryMass   Category = "mass"
	CategoryCount  Category = "count"
)

type unitDef struct {
	category Category
	// factor converts one of this unit into the category base unit
	// (meter, square meter, liter, kilogram, piece).
	factor decimal.Decimal
}

var registry = map[string]unitDef{
	"mm": {CategoryLength, decimal.RequireFromString("0.001")},
	"cm": {CategoryLength, decimal.RequireFromString("0.01")},
	"m":  {CategoryLength, decimal.NewFromInt(1)},
	"km": {CategoryLength, decimal.NewFromInt(1000)},

	"cm2": {CategoryArea, decimal.RequireFromString("0.0001")},
	"m2":  {CategoryArea, decimal.NewFromInt(1)},
	"ha":  {CategoryArea, decimal.NewFromInt(10000)},

	"ml": {CategoryVolume, decimal.RequireFromString("0.001")},
	"cl": {CategoryVolume, decimal.RequireFromString("0.01")},
	"l":  {CategoryVolume, decimal.NewFromInt(1)},
	"m3": {CategoryVolume, decimal.NewFromInt(1000)},

	"mg": {CategoryMass, decimal.RequireFromString("0.000001")},
	"g":  {CategoryMass, decimal.RequireFromString("0.001")},
	"kg": {CategoryMass, decimal.NewFromInt(1)},
	"t":  {CategoryMass, decimal.NewFromInt(1000)},

	"pcs":   {CategoryCount, decimal.NewFromInt(1)},
	"dozen": {CategoryCount, decimal.NewFromInt(12)},
}

// IsKnown reports whether the unit symbol is registered.
func IsKnown(unit string) bool {
	_, ok := registry[normalize(unit)]
	return ok
}

// CategoryOf returns the physical category of a registered unit.
func CategoryOf(unit string) (Category, error) {
	def, ok := registry[normalize(unit)]
	if !ok {
		return "", unknownUnit(unit)
	}
	return def.category, nil
}

// Convert converts value between two units of the same physical category.
func Convert(value decimal.Decimal, fromUnit, toUnit string) (decimal.Decimal, error) {
	from, ok := registry[normalize(fromUnit)]
	if !ok {
		return decimal.Zero, unknownUnit(fromUnit)
	}
	to, ok := registry[normalize(toUnit)]
	if !ok {
		return decimal.Zero, unknownUnit(toUnit)
	}
	if from.category != to.category {
		return decimal.Zero, pkgerrors.New(pkgerrors.CodeValidation,
			fmt.Sprintf("incompatible unit categories: %s is %s, %s is %s",
				fromUnit, from.category, toUnit, to.category)).
			WithDetails(map[string]string{
				"from_unit":     fromUnit,
				"from_category": string(from.category),
				"to_unit":       toUnit,
				"to_category":   string(to.category),
			})
	}
	return value.Mul(from.factor).Div(to.factor), nil
}

func unknownUnit(unit string) *pkgerrors.Error {
	return pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("unknown unit %q", unit)).
		WithDetails(map[string]string{"unit": unit})
}

func normalize(unit string) string {
	return strings.ToLower(strings.TrimSpace(unit))
}
