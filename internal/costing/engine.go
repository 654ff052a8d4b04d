package costing

import (
	"context"
	stdErrors "errors"
	"fmt"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/angelmondragon/stockforge-backend/pkg/db/models"
	"github.com/angelmondragon/stockforge-backend/pkg/enums"
	"github.com/angelmondragon/stockforge-backend/pkg/errors"
	"github.com/angelmondragon/stockforge-backend/pkg/types"
)

// LotSource supplies the read-only inventory views the engine prices from.
// The inventory repository satisfies it.
type LotSource interface {
	GetBalance(ctx context.Context, item types.ItemRef) (*models.InventoryBalance, error)
	ListOpenBatches(ctx context.Context, item types.ItemRef, newestFirst bool) ([]models.InventoryBatch, error)
}

// Engine resolves the unit price a quantity of stock would carry under a
// valuation strategy. It never mutates inventory; physical depletion always
// runs oldest lot first no matter which strategy prices it.
type Engine struct {
	source          LotSource
	defaultStrategy enums.CostingStrategy
}

// NewEngine wires the costing engine. defaultStrategy is used when a caller
// passes an empty strategy.
func NewEngine(source LotSource, defaultStrategy enums.CostingStrategy) (*Engine, error) {
	if source == nil {
		return nil, fmt.Errorf("lot source is required")
	}
	if !defaultStrategy.IsValid() {
		return nil, fmt.Errorf("invalid default costing strategy %q", defaultStrategy)
	}
	return &Engine{source: source, defaultStrategy: defaultStrategy}, nil
}

// UnitPrice returns the per-unit price requiredQuantity of the item would be
// valued at under the strategy.
//
// average reads the balance's moving average. fifo and lifo walk the open
// lots (oldest or newest first) and blend the prices of the lots the
// quantity would span, weighted by how much each lot contributes. When the
// open lots hold less than requiredQuantity the blend covers only what was
// found; availability is the caller's concern, not the engine's.
func (e *Engine) UnitPrice(ctx context.Context, item types.ItemRef, requiredQuantity decimal.Decimal, strategy enums.CostingStrategy) (decimal.Decimal, error) {
	if err := item.Validate(); err != nil {
		return decimal.Zero, errors.Wrap(errors.CodeValidation, err, "invalid item reference")
	}
	if !requiredQuantity.IsPositive() {
		return decimal.Zero, errors.New(errors.CodeValidation, "required quantity must be positive")
	}
	if strategy == "" {
		strategy = e.defaultStrategy
	}

	switch strategy {
	case enums.CostingStrategyAverage:
		return e.averagePrice(ctx, item)
	case enums.CostingStrategyFIFO:
		return e.lotBlendedPrice(ctx, item, requiredQuantity, false)
	case enums.CostingStrategyLIFO:
		return e.lotBlendedPrice(ctx, item, requiredQuantity, true)
	default:
		return decimal.Zero, errors.New(errors.CodeValidation, fmt.Sprintf("unknown costing strategy %q", strategy))
	}
}

func (e *Engine) averagePrice(ctx context.Context, item types.ItemRef) (decimal.Decimal, error) {
	balance, err := e.source.GetBalance(ctx, item)
	if err != nil {
		if stdErrors.Is(err, gorm.ErrRecordNotFound) {
			// No recorded stock prices at zero, matching an empty lot walk.
			return decimal.Zero, nil
		}
		return decimal.Zero, errors.Wrap(errors.CodeInternal, err, "loading balance")
	}
	return balance.AveragePrice, nil
}

func (e *Engine) lotBlendedPrice(ctx context.Context, item types.ItemRef, requiredQuantity decimal.Decimal, newestFirst bool) (decimal.Decimal, error) {
	lots, err := e.source.ListOpenBatches(ctx, item, newestFirst)
	if err != nil {
		return decimal.Zero, errors.Wrap(errors.CodeInternal, err, "listing lots")
	}

	remaining := requiredQuantity
	taken := decimal.Zero
	value := decimal.Zero
	for _, lot := range lots {
		if !remaining.IsPositive() {
			break
		}
		draw := decimal.Min(remaining, lot.Quantity)
		value = value.Add(draw.Mul(lot.PricePerUnit))
		taken = taken.Add(draw)
		remaining = remaining.Sub(draw)
	}

	if taken.IsZero() {
		return decimal.Zero, nil
	}
	return value.Div(taken), nil
}
