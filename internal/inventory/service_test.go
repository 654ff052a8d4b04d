package inventory

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/angelmondragon/stockforge-backend/pkg/db"
	"github.com/angelmondragon/stockforge-backend/pkg/db/models"
	"github.com/angelmondragon/stockforge-backend/pkg/enums"
	"github.com/angelmondragon/stockforge-backend/pkg/errors"
	"github.com/angelmondragon/stockforge-backend/pkg/logger"
	"github.com/angelmondragon/stockforge-backend/pkg/types"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:inventory_%s?mode=memory&cache=shared", uuid.NewString())
	conn, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{SkipDefaultTransaction: true})
	require.NoError(t, err)
	require.NoError(t, conn.AutoMigrate(
		&models.InventoryBatch{},
		&models.InventoryTransaction{},
		&models.InventoryBalance{},
	))
	return conn
}

func newTestService(t *testing.T) (Service, *Repository, *gorm.DB) {
	t.Helper()
	conn := newTestDB(t)
	repo := NewRepository(conn)
	svc, err := NewService(repo, db.NewFromConn(conn), logger.New(logger.Options{ServiceName: "test"}), nil)
	require.NoError(t, err)
	return svc, repo, conn
}

func dec(value string) decimal.Decimal {
	return decimal.RequireFromString(value)
}

func addStock(t *testing.T, svc Service, item types.ItemRef, qty, price string, received time.Time) *models.InventoryBatch {
	t.Helper()
	batch, err := svc.AddStock(context.Background(), AddStockInput{
		Item:         item,
		Quantity:     dec(qty),
		PricePerUnit: dec(price),
		Unit:         "kg",
		ReceivedDate: received,
		ActorID:      uuid.New(),
	})
	require.NoError(t, err)
	return batch
}

func TestAddStockCreatesLotTransactionAndBalance(t *testing.T) {
	svc, _, conn := newTestService(t)
	item := types.MaterialRef(uuid.New())

	batch := addStock(t, svc, item, "10", "2.5", time.Now())
	require.True(t, batch.Quantity.Equal(dec("10")))
	require.True(t, batch.PricePerUnit.Equal(dec("2.5")))
	require.NotNil(t, batch.SourceTransactionID)

	var txn models.InventoryTransaction
	require.NoError(t, conn.First(&txn, "id = ?", *batch.SourceTransactionID).Error)
	require.Equal(t, enums.MovementTypeIncoming, txn.Type)
	require.NotNil(t, txn.BatchID)
	require.Equal(t, batch.ID, *txn.BatchID)

	balance, err := svc.GetStock(context.Background(), item)
	require.NoError(t, err)
	require.True(t, balance.TotalQuantity.Equal(dec("10")))
	require.True(t, balance.AveragePrice.Equal(dec("2.5")))
}

func TestAddStockMovingAverage(t *testing.T) {
	svc, _, _ := newTestService(t)
	item := types.MaterialRef(uuid.New())

	addStock(t, svc, item, "10", "2.00", time.Now())
	addStock(t, svc, item, "10", "4.00", time.Now())

	balance, err := svc.GetStock(context.Background(), item)
	require.NoError(t, err)
	require.True(t, balance.TotalQuantity.Equal(dec("20")))
	require.True(t, balance.AveragePrice.Equal(dec("3.00")), "got %s", balance.AveragePrice)
}

func TestAddStockValidation(t *testing.T) {
	svc, _, _ := newTestService(t)
	item := types.MaterialRef(uuid.New())

	_, err := svc.AddStock(context.Background(), AddStockInput{
		Item:         item,
		Quantity:     dec("0"),
		PricePerUnit: dec("1"),
		Unit:         "kg",
		ReceivedDate: time.Now(),
		ActorID:      uuid.New(),
	})
	require.True(t, errors.IsCode(err, errors.CodeValidation))

	_, err = svc.AddStock(context.Background(), AddStockInput{
		Item:         item,
		Quantity:     dec("1"),
		PricePerUnit: dec("-1"),
		Unit:         "kg",
		ReceivedDate: time.Now(),
		ActorID:      uuid.New(),
	})
	require.True(t, errors.IsCode(err, errors.CodeValidation))

	_, err = svc.AddStock(context.Background(), AddStockInput{
		Item:         item,
		Quantity:     dec("1"),
		PricePerUnit: dec("1"),
		Unit:         "parsec",
		ReceivedDate: time.Now(),
		ActorID:      uuid.New(),
	})
	require.True(t, errors.IsCode(err, errors.CodeValidation))
}

func TestAddStockConvertsToBalanceUnit(t *testing.T) {
	svc, _, _ := newTestService(t)
	item := types.MaterialRef(uuid.New())

	addStock(t, svc, item, "1", "10", time.Now())

	// 500 g at 0.01 per g joins a balance held in kg as 0.5 kg at 10 per kg.
	_, err := svc.AddStock(context.Background(), AddStockInput{
		Item:         item,
		Quantity:     dec("500"),
		PricePerUnit: dec("0.01"),
		Unit:         "g",
		ReceivedDate: time.Now(),
		ActorID:      uuid.New(),
	})
	require.NoError(t, err)

	balance, err := svc.GetStock(context.Background(), item)
	require.NoError(t, err)
	require.Equal(t, "kg", balance.Unit)
	require.True(t, balance.TotalQuantity.Equal(dec("1.5")))
	require.True(t, balance.AveragePrice.Equal(dec("10")), "got %s", balance.AveragePrice)
}

func TestRemoveStockDepletesOldestLotsFirst(t *testing.T) {
	svc, repo, _ := newTestService(t)
	item := types.MaterialRef(uuid.New())
	base := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)

	oldLot := addStock(t, svc, item, "10", "2", base)
	newLot := addStock(t, svc, item, "10", "4", base.AddDate(0, 0, 1))

	draws, err := svc.RemoveStock(context.Background(), RemoveStockInput{
		Item:     item,
		Quantity: dec("15"),
		ActorID:  uuid.New(),
	})
	require.NoError(t, err)
	require.Len(t, draws, 2)
	require.Equal(t, oldLot.ID, draws[0].BatchID)
	require.True(t, draws[0].Quantity.Equal(dec("10")))
	require.Equal(t, newLot.ID, draws[1].BatchID)
	require.True(t, draws[1].Quantity.Equal(dec("5")))
	require.True(t, draws[1].PricePerUnit.Equal(dec("4")))

	open, err := repo.ListOpenBatches(context.Background(), item, false)
	require.NoError(t, err)
	require.Len(t, open, 1)
	require.Equal(t, newLot.ID, open[0].ID)
	require.True(t, open[0].Quantity.Equal(dec("5")))

	// Average price is untouched by outgoing movements.
	balance, err := svc.GetStock(context.Background(), item)
	require.NoError(t, err)
	require.True(t, balance.TotalQuantity.Equal(dec("5")))
	require.True(t, balance.AveragePrice.Equal(dec("3")), "got %s", balance.AveragePrice)
}

func TestBalanceMatchesOpenLotSum(t *testing.T) {
	svc, repo, _ := newTestService(t)
	ctx := context.Background()
	item := types.MaterialRef(uuid.New())
	base := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)

	addStock(t, svc, item, "10", "2", base)
	addStock(t, svc, item, "5", "3", base.AddDate(0, 0, 1))

	_, err := svc.RemoveStock(ctx, RemoveStockInput{
		Item:     item,
		Quantity: dec("12"),
		ActorID:  uuid.New(),
	})
	require.NoError(t, err)

	// The running balance and the open lots account for the same stock.
	balance, err := svc.GetStock(ctx, item)
	require.NoError(t, err)
	sum, err := repo.SumOpenBatchQuantity(ctx, item)
	require.NoError(t, err)
	require.True(t, balance.TotalQuantity.Equal(dec(sum)), "balance %s, lots %s", balance.TotalQuantity, sum)
	require.True(t, balance.TotalQuantity.Equal(dec("3")))

	_, err = svc.RemoveStock(ctx, RemoveStockInput{
		Item:     item,
		Quantity: dec("3"),
		ActorID:  uuid.New(),
	})
	require.NoError(t, err)

	balance, err = svc.GetStock(ctx, item)
	require.NoError(t, err)
	sum, err = repo.SumOpenBatchQuantity(ctx, item)
	require.NoError(t, err)
	require.True(t, balance.TotalQuantity.Equal(dec(sum)))
	require.True(t, balance.TotalQuantity.IsZero())
}

func TestRemoveStockWritesOneLedgerRowPerLot(t *testing.T) {
	svc, repo, _ := newTestService(t)
	item := types.MaterialRef(uuid.New())
	base := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)

	addStock(t, svc, item, "5", "1", base)
	addStock(t, svc, item, "5", "2", base.AddDate(0, 0, 1))
	addStock(t, svc, item, "5", "3", base.AddDate(0, 0, 2))

	_, err := svc.RemoveStock(context.Background(), RemoveStockInput{
		Item:     item,
		Quantity: dec("12"),
		ActorID:  uuid.New(),
	})
	require.NoError(t, err)

	rows, err := repo.ListTransactions(context.Background(), item, nil, nil)
	require.NoError(t, err)

	var outgoing []models.InventoryTransaction
	for _, row := range rows {
		if row.Type == enums.MovementTypeOutgoing {
			outgoing = append(outgoing, row)
		}
	}
	require.Len(t, outgoing, 3)
	for _, row := range outgoing {
		require.NotNil(t, row.BatchID)
	}
}

func TestRemoveStockInsufficient(t *testing.T) {
	svc, repo, _ := newTestService(t)
	item := types.MaterialRef(uuid.New())

	addStock(t, svc, item, "5", "2", time.Now())

	_, err := svc.RemoveStock(context.Background(), RemoveStockInput{
		Item:     item,
		Quantity: dec("6"),
		ActorID:  uuid.New(),
	})
	require.True(t, errors.IsCode(err, errors.CodeInsufficientStock))

	// Nothing moved.
	balance, getErr := svc.GetStock(context.Background(), item)
	require.NoError(t, getErr)
	require.True(t, balance.TotalQuantity.Equal(dec("5")))

	rows, listErr := repo.ListTransactions(context.Background(), item, nil, nil)
	require.NoError(t, listErr)
	require.Len(t, rows, 1)
}

func TestRemoveStockNoBalance(t *testing.T) {
	svc, _, _ := newTestService(t)

	_, err := svc.RemoveStock(context.Background(), RemoveStockInput{
		Item:     types.MaterialRef(uuid.New()),
		Quantity: dec("1"),
		ActorID:  uuid.New(),
	})
	require.True(t, errors.IsCode(err, errors.CodeInsufficientStock))
}

func TestGetStockNotFound(t *testing.T) {
	svc, _, _ := newTestService(t)

	_, err := svc.GetStock(context.Background(), types.MaterialRef(uuid.New()))
	require.True(t, errors.IsCode(err, errors.CodeNotFound))
}

func TestTransactionHistoryOrderAndBounds(t *testing.T) {
	svc, _, conn := newTestService(t)
	item := types.MaterialRef(uuid.New())

	addStock(t, svc, item, "5", "1", time.Now())
	addStock(t, svc, item, "5", "2", time.Now())

	// Spread created_at so ordering and bounds are deterministic.
	var rows []models.InventoryTransaction
	require.NoError(t, conn.Order("created_at ASC").Find(&rows).Error)
	require.Len(t, rows, 2)
	early := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	late := time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)
	require.NoError(t, conn.Model(&rows[0]).Update("created_at", early).Error)
	require.NoError(t, conn.Model(&rows[1]).Update("created_at", late).Error)

	history, err := svc.GetTransactionHistory(context.Background(), HistoryInput{Item: item})
	require.NoError(t, err)
	require.Len(t, history, 2)
	require.True(t, history[0].CreatedAt.After(history[1].CreatedAt))

	from := time.Date(2026, 1, 15, 0, 0, 0, 0, time.UTC)
	bounded, err := svc.GetTransactionHistory(context.Background(), HistoryInput{Item: item, From: &from})
	require.NoError(t, err)
	require.Len(t, bounded, 1)
	require.Equal(t, rows[1].ID, bounded[0].ID)

	to := from
	_, err = svc.GetTransactionHistory(context.Background(), HistoryInput{
		Item: item,
		From: &late,
		To:   &to,
	})
	require.True(t, errors.IsCode(err, errors.CodeValidation))
}
