package inventory

import (
	"context"
	stdErrors "errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/angelmondragon/stockforge-backend/pkg/db"
	"github.com/angelmondragon/stockforge-backend/pkg/db/models"
	"github.com/angelmondragon/stockforge-backend/pkg/enums"
	"github.com/angelmondragon/stockforge-backend/pkg/errors"
	"github.com/angelmondragon/stockforge-backend/pkg/logger"
	"github.com/angelmondragon/stockforge-backend/pkg/metrics"
	"github.com/angelmondragon/stockforge-backend/pkg/types"
	"github.com/angelmondragon/stockforge-backend/pkg/units"
)

// Service is the inventory ledger surface: every stock change flows through
// AddStock/RemoveStock (or their transaction-scoped variants used by
// production) so lots, transactions, and balances stay consistent.
type Service interface {
	AddStock(ctx context.Context, input AddStockInput) (*models.InventoryBatch, error)
	RemoveStock(ctx context.Context, input RemoveStockInput) ([]LotDraw, error)
	GetStock(ctx context.Context, item types.ItemRef) (*models.InventoryBalance, error)
	GetTransactionHistory(ctx context.Context, input HistoryInput) ([]models.InventoryTransaction, error)

	ReceiveTx(ctx context.Context, tx *gorm.DB, input AddStockInput) (*models.InventoryBatch, error)
	ConsumeTx(ctx context.Context, tx *gorm.DB, input RemoveStockInput) ([]LotDraw, error)
	BalanceTx(ctx context.Context, tx *gorm.DB, item types.ItemRef) (*models.InventoryBalance, error)
}

// AddStockInput describes one incoming movement.
type AddStockInput struct {
	Item         types.ItemRef
	Quantity     decimal.Decimal
	PricePerUnit decimal.Decimal
	Unit         string
	ReceivedDate time.Time
	ActorID      uuid.UUID
	Description  string
}

// RemoveStockInput describes one outgoing movement. The quantity is expressed
// in the unit the balance is held in.
type RemoveStockInput struct {
	Item        types.ItemRef
	Quantity    decimal.Decimal
	ActorID     uuid.UUID
	Description string
}

// HistoryInput bounds a ledger listing; both dates are optional and inclusive.
type HistoryInput struct {
	Item types.ItemRef
	From *time.Time
	To   *time.Time
}

// LotDraw records how much an outgoing movement took from one lot and at what
// recorded price.
type LotDraw struct {
	BatchID      uuid.UUID
	Quantity     decimal.Decimal
	PricePerUnit decimal.Decimal
	Unit         string
}

type service struct {
	repo    *Repository
	client  *db.Client
	logg    *logger.Logger
	metrics *metrics.LedgerMetrics
}

// NewService wires the ledger service.
func NewService(repo *Repository, client *db.Client, logg *logger.Logger, ledgerMetrics *metrics.LedgerMetrics) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("inventory repository is required")
	}
	if client == nil {
		return nil, fmt.Errorf("db client is required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger is required")
	}
	return &service{
		repo:    repo,
		client:  client,
		logg:    logg,
		metrics: ledgerMetrics,
	}, nil
}

// AddStock records an incoming movement: one new lot, one ledger row, and a
// moving-average balance update, atomically.
func (s *service) AddStock(ctx context.Context, input AddStockInput) (*models.InventoryBatch, error) {
	var batch *models.InventoryBatch
	err := s.client.WithTx(ctx, func(tx *gorm.DB) error {
		created, err := s.ReceiveTx(ctx, tx, input)
		if err != nil {
			return err
		}
		batch = created
		return nil
	})
	if err != nil {
		return nil, err
	}

	ctx = s.logg.WithItemRef(ctx, input.Item.Type.String(), input.Item.ID.String())
	s.logg.Info(ctx, "stock added")
	s.metrics.ObserveMovement(enums.MovementTypeIncoming.String(), input.Item.Type.String())
	return batch, nil
}

// RemoveStock records an outgoing movement, depleting lots oldest first. The
// returned draws describe which lots supplied the quantity.
func (s *service) RemoveStock(ctx context.Context, input RemoveStockInput) ([]LotDraw, error) {
	var draws []LotDraw
	err := s.client.WithTx(ctx, func(tx *gorm.DB) error {
		consumed, err := s.ConsumeTx(ctx, tx, input)
		if err != nil {
			return err
		}
		draws = consumed
		return nil
	})
	if err != nil {
		if errors.IsCode(err, errors.CodeInsufficientStock) {
			s.metrics.ObserveShortfall()
		}
		return nil, err
	}

	ctx = s.logg.WithItemRef(ctx, input.Item.Type.String(), input.Item.ID.String())
	s.logg.Info(ctx, "stock removed")
	s.metrics.ObserveMovement(enums.MovementTypeOutgoing.String(), input.Item.Type.String())
	return draws, nil
}

// GetStock returns the current balance for an item.
func (s *service) GetStock(ctx context.Context, item types.ItemRef) (*models.InventoryBalance, error) {
	if err := item.Validate(); err != nil {
		return nil, errors.Wrap(errors.CodeValidation, err, "invalid item reference")
	}

	balance, err := s.repo.GetBalance(ctx, item)
	if err != nil {
		if stdErrors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errors.New(errors.CodeNotFound, "no stock recorded for item")
		}
		return nil, errors.Wrap(errors.CodeInternal, err, "loading balance")
	}
	return balance, nil
}

// GetTransactionHistory lists ledger rows for an item, newest first.
func (s *service) GetTransactionHistory(ctx context.Context, input HistoryInput) ([]models.InventoryTransaction, error) {
	if err := input.Item.Validate(); err != nil {
		return nil, errors.Wrap(errors.CodeValidation, err, "invalid item reference")
	}
	if input.From != nil && input.To != nil && input.To.Before(*input.From) {
		return nil, errors.New(errors.CodeValidation, "date range end precedes start")
	}

	rows, err := s.repo.ListTransactions(ctx, input.Item, input.From, input.To)
	if err != nil {
		return nil, errors.Wrap(errors.CodeInternal, err, "listing transactions")
	}
	return rows, nil
}

// ReceiveTx performs the incoming movement inside the caller's transaction.
// Production completion and cancellation use it to keep their state change
// and the stock emission atomic.
func (s *service) ReceiveTx(ctx context.Context, tx *gorm.DB, input AddStockInput) (*models.InventoryBatch, error) {
	if err := validateAddStock(input); err != nil {
		return nil, err
	}
	repo := s.repo.WithTx(tx)

	balance, err := repo.GetBalanceForUpdate(ctx, input.Item)
	if err != nil {
		return nil, errors.Wrap(errors.CodeInternal, err, "locking balance")
	}

	quantity := input.Quantity
	price := input.PricePerUnit
	unit := input.Unit
	if balance != nil && balance.Unit != unit {
		// Convert the receipt into the unit the balance is held in; the
		// total value of the receipt stays the same.
		converted, err := units.Convert(quantity, unit, balance.Unit)
		if err != nil {
			return nil, err
		}
		price = quantity.Mul(price).Div(converted)
		quantity = converted
		unit = balance.Unit
	}

	txn := &models.InventoryTransaction{
		ID:           uuid.New(),
		ItemType:     input.Item.Type,
		ItemID:       input.Item.ID,
		Type:         enums.MovementTypeIncoming,
		Quantity:     quantity,
		PricePerUnit: price,
		Unit:         unit,
		ActorID:      input.ActorID,
		Description:  input.Description,
	}

	batch := &models.InventoryBatch{
		ItemType:            input.Item.Type,
		ItemID:              input.Item.ID,
		Quantity:            quantity,
		PricePerUnit:        price,
		Unit:                unit,
		ReceivedDate:        input.ReceivedDate,
		SourceTransactionID: &txn.ID,
	}
	if err := repo.CreateBatch(ctx, batch); err != nil {
		return nil, errors.Wrap(errors.CodeInternal, err, "creating lot")
	}

	txn.BatchID = &batch.ID
	if err := repo.CreateTransaction(ctx, txn); err != nil {
		return nil, errors.Wrap(errors.CodeInternal, err, "recording transaction")
	}

	if balance == nil {
		balance = &models.InventoryBalance{
			ItemType:      input.Item.Type,
			ItemID:        input.Item.ID,
			TotalQuantity: quantity,
			AveragePrice:  price,
			Unit:          unit,
		}
		if err := repo.CreateBalance(ctx, balance); err != nil {
			return nil, errors.Wrap(errors.CodeInternal, err, "creating balance")
		}
		return batch, nil
	}

	newTotal := balance.TotalQuantity.Add(quantity)
	// newTotal > 0 because quantity > 0 and the balance never goes negative.
	balance.AveragePrice = balance.TotalQuantity.Mul(balance.AveragePrice).
		Add(quantity.Mul(price)).
		Div(newTotal)
	balance.TotalQuantity = newTotal
	if err := repo.SaveBalance(ctx, balance); err != nil {
		return nil, errors.Wrap(errors.CodeInternal, err, "updating balance")
	}
	return batch, nil
}

// ConsumeTx performs the outgoing movement inside the caller's transaction.
// Lots are depleted oldest received first regardless of the valuation
// strategy in effect; the average price on the balance is unchanged.
func (s *service) ConsumeTx(ctx context.Context, tx *gorm.DB, input RemoveStockInput) ([]LotDraw, error) {
	if err := input.Item.Validate(); err != nil {
		return nil, errors.Wrap(errors.CodeValidation, err, "invalid item reference")
	}
	if !input.Quantity.IsPositive() {
		return nil, errors.New(errors.CodeValidation, "quantity must be positive")
	}
	repo := s.repo.WithTx(tx)

	balance, err := repo.GetBalanceForUpdate(ctx, input.Item)
	if err != nil {
		return nil, errors.Wrap(errors.CodeInternal, err, "locking balance")
	}

	available := decimal.Zero
	if balance != nil {
		available = balance.TotalQuantity
	}
	if input.Quantity.GreaterThan(available) {
		return nil, errors.New(errors.CodeInsufficientStock, "not enough stock to remove").
			WithDetails(map[string]string{
				"requested": input.Quantity.String(),
				"available": available.String(),
			})
	}

	lots, err := repo.ListOpenBatches(ctx, input.Item, false)
	if err != nil {
		return nil, errors.Wrap(errors.CodeInternal, err, "listing lots")
	}

	remaining := input.Quantity
	draws := make([]LotDraw, 0, len(lots))
	for i := range lots {
		if !remaining.IsPositive() {
			break
		}
		lot := &lots[i]
		draw := decimal.Min(remaining, lot.Quantity)

		lot.Quantity = lot.Quantity.Sub(draw)
		if err := repo.SaveBatch(ctx, lot); err != nil {
			return nil, errors.Wrap(errors.CodeInternal, err, "updating lot")
		}

		txn := &models.InventoryTransaction{
			ItemType:     input.Item.Type,
			ItemID:       input.Item.ID,
			Type:         enums.MovementTypeOutgoing,
			Quantity:     draw,
			PricePerUnit: lot.PricePerUnit,
			Unit:         lot.Unit,
			BatchID:      &lot.ID,
			ActorID:      input.ActorID,
			Description:  input.Description,
		}
		if err := repo.CreateTransaction(ctx, txn); err != nil {
			return nil, errors.Wrap(errors.CodeInternal, err, "recording transaction")
		}

		draws = append(draws, LotDraw{
			BatchID:      lot.ID,
			Quantity:     draw,
			PricePerUnit: lot.PricePerUnit,
			Unit:         lot.Unit,
		})
		remaining = remaining.Sub(draw)
	}

	if remaining.IsPositive() {
		// Balance said the quantity was available but the lots could not
		// supply it; the data is inconsistent, roll everything back.
		return nil, errors.New(errors.CodeInternal, "lot quantities diverge from balance")
	}

	balance.TotalQuantity = balance.TotalQuantity.Sub(input.Quantity)
	if err := repo.SaveBalance(ctx, balance); err != nil {
		return nil, errors.Wrap(errors.CodeInternal, err, "updating balance")
	}
	return draws, nil
}

// BalanceTx locks and returns the balance inside the caller's transaction,
// nil when no stock was ever recorded. Callers read both the available
// quantity and the unit the stock is held in from it.
func (s *service) BalanceTx(ctx context.Context, tx *gorm.DB, item types.ItemRef) (*models.InventoryBalance, error) {
	balance, err := s.repo.WithTx(tx).GetBalanceForUpdate(ctx, item)
	if err != nil {
		return nil, errors.Wrap(errors.CodeInternal, err, "locking balance")
	}
	return balance, nil
}

func validateAddStock(input AddStockInput) error {
	if err := input.Item.Validate(); err != nil {
		return errors.Wrap(errors.CodeValidation, err, "invalid item reference")
	}
	if !input.Quantity.IsPositive() {
		return errors.New(errors.CodeValidation, "quantity must be positive")
	}
	if input.PricePerUnit.IsNegative() {
		return errors.New(errors.CodeValidation, "price per unit cannot be negative")
	}
	if !units.IsKnown(input.Unit) {
		return errors.New(errors.CodeValidation, fmt.Sprintf("unknown unit %q", input.Unit))
	}
	if input.ReceivedDate.IsZero() {
		return errors.New(errors.CodeValidation, "received date is required")
	}
	return nil
}
