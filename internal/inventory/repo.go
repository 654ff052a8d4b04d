package inventory

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/angelmondragon/stockforge-backend/pkg/db/models"
	"github.com/angelmondragon/stockforge-backend/pkg/types"
)

// Repository manages persistence for lots, transactions, and balances.
type Repository struct {
	db *gorm.DB
}

// NewRepository returns an inventory repository bound to the provided database.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// WithTx returns a repository bound to the provided transaction.
func (r *Repository) WithTx(tx *gorm.DB) *Repository {
	if tx == nil {
		return r
	}
	return &Repository{db: tx}
}

// GetBalance loads the balance row for an item reference.
func (r *Repository) GetBalance(ctx context.Context, item types.ItemRef) (*models.InventoryBalance, error) {
	var balance models.InventoryBalance
	err := r.db.WithContext(ctx).
		First(&balance, "item_type = ? AND item_id = ?", item.Type, item.ID).
		Error
	if err != nil {
		return nil, err
	}
	return &balance, nil
}

// GetBalanceForUpdate loads the balance row with a row-level lock so that
// concurrent movements against the same item serialize on it. Returns
// (nil, nil) when no balance exists yet.
func (r *Repository) GetBalanceForUpdate(ctx context.Context, item types.ItemRef) (*models.InventoryBalance, error) {
	query := r.db.WithContext(ctx)
	// sqlite (tests) has no FOR UPDATE; its writes serialize anyway.
	if r.db.Dialector.Name() == "postgres" {
		query = query.Clauses(clause.Locking{Strength: "UPDATE"})
	}

	var balance models.InventoryBalance
	err := query.First(&balance, "item_type = ? AND item_id = ?", item.Type, item.ID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &balance, nil
}

// CreateBalance inserts a fresh balance row.
func (r *Repository) CreateBalance(ctx context.Context, balance *models.InventoryBalance) error {
	return r.db.WithContext(ctx).Create(balance).Error
}

// SaveBalance persists quantity/average updates to an existing balance row.
func (r *Repository) SaveBalance(ctx context.Context, balance *models.InventoryBalance) error {
	return r.db.WithContext(ctx).Save(balance).Error
}

// CreateBatch inserts a new lot.
func (r *Repository) CreateBatch(ctx context.Context, batch *models.InventoryBatch) error {
	return r.db.WithContext(ctx).Create(batch).Error
}

// SaveBatch persists remaining-quantity updates to a lot.
func (r *Repository) SaveBatch(ctx context.Context, batch *models.InventoryBatch) error {
	return r.db.WithContext(ctx).Save(batch).Error
}

// ListOpenBatches returns non-exhausted lots for an item ordered by received
// date, oldest first unless newestFirst is set. Exhausted lots are retained
// in storage for audit but excluded here.
func (r *Repository) ListOpenBatches(ctx context.Context, item types.ItemRef, newestFirst bool) ([]models.InventoryBatch, error) {
	order := "received_date ASC, created_at ASC"
	if newestFirst {
		order = "received_date DESC, created_at DESC"
	}

	var batches []models.InventoryBatch
	err := r.db.WithContext(ctx).
		Where("item_type = ? AND item_id = ? AND quantity > 0", item.Type, item.ID).
		Order(order).
		Find(&batches).
		Error
	if err != nil {
		return nil, err
	}
	return batches, nil
}

// CreateTransaction appends one ledger row. Transactions are never updated
// or deleted.
func (r *Repository) CreateTransaction(ctx context.Context, txn *models.InventoryTransaction) error {
	return r.db.WithContext(ctx).Create(txn).Error
}

// ListTransactions returns the ledger rows for an item, newest first,
// optionally bounded by an inclusive date range.
func (r *Repository) ListTransactions(ctx context.Context, item types.ItemRef, from, to *time.Time) ([]models.InventoryTransaction, error) {
	query := r.db.WithContext(ctx).
		Where("item_type = ? AND item_id = ?", item.Type, item.ID)
	if from != nil {
		query = query.Where("created_at >= ?", *from)
	}
	if to != nil {
		query = query.Where("created_at <= ?", *to)
	}

	var rows []models.InventoryTransaction
	err := query.Order("created_at DESC").Find(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}

// SumOpenBatchQuantity totals the live lot quantities for an item; used to
// cross-check the balance invariant.
func (r *Repository) SumOpenBatchQuantity(ctx context.Context, item types.ItemRef) (string, error) {
	var total *string
	err := r.db.WithContext(ctx).
		Model(&models.InventoryBatch{}).
		Where("item_type = ? AND item_id = ? AND quantity > 0", item.Type, item.ID).
		Select("SUM(quantity)").
		Scan(&total).
		Error
	if err != nil {
		return "0", err
	}
	if total == nil {
		return "0", nil
	}
	return *total, nil
}
