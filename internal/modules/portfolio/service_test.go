package portfolio

import (
	"database/sql"
	"testing"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	_ "modernc.org/sqlite"

	"github.com/aristath/paper-trader/internal/database"
	"github.com/aristath/paper-trader/internal/domain"
)

func setupService(t *testing.T) (*Service, *sql.DB) {
	t.Helper()

	db, err := sql.Open("sqlite", ":memory:")
	require.NoError(t, err)
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { db.Close() })

	// Minimal stock catalog for the display join.
	_, err = db.Exec(`
		CREATE TABLE stocks (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			symbol TEXT UNIQUE NOT NULL,
			name TEXT NOT NULL,
			current_price TEXT NOT NULL DEFAULT '0'
		)
	`)
	require.NoError(t, err)
	require.NoError(t, InitSchema(db))

	log := zerolog.Nop()
	service := NewService(
		NewPositionRepository(db, log),
		decimal.RequireFromString("0.6"),
		log,
	)

	return service, db
}

func seedStock(t *testing.T, db *sql.DB, symbol, name, price string) int64 {
	t.Helper()

	result, err := db.Exec(
		"INSERT INTO stocks (symbol, name, current_price) VALUES (?, ?, ?)",
		symbol, name, price,
	)
	require.NoError(t, err)

	id, err := result.LastInsertId()
	require.NoError(t, err)
	return id
}

func applyFill(t *testing.T, service *Service, db *sql.DB, stockID int64, side domain.Side, qty int64, price, commission string) error {
	t.Helper()

	return database.WithTransaction(db, func(tx *sql.Tx) error {
		return service.ApplyFill(tx, stockID, side,
			qty,
			decimal.RequireFromString(price),
			decimal.RequireFromString(commission),
		)
	})
}

func TestApplyFill_BuyCapitalizesCommission(t *testing.T) {
	service, db := setupService(t)
	stockID := seedStock(t, db, "2330", "TSMC", "50")

	require.NoError(t, applyFill(t, service, db, stockID, domain.SideBuy, 100, "50", "71.25"))

	position, err := service.GetPosition(stockID)
	require.NoError(t, err)
	require.NotNil(t, position)

	assert.Equal(t, int64(100), position.Quantity)
	assert.Equal(t, "50.7125", position.AverageCost.String())
	assert.Equal(t, "5071.25", position.TotalCost.String())
	assert.True(t, position.RealizedPnL.IsZero())
}

func TestApplyFill_SecondBuyRaisesWeightedAverage(t *testing.T) {
	service, db := setupService(t)
	stockID := seedStock(t, db, "2330", "TSMC", "60")

	require.NoError(t, applyFill(t, service, db, stockID, domain.SideBuy, 100, "50", "71.25"))
	require.NoError(t, applyFill(t, service, db, stockID, domain.SideBuy, 50, "60", "42.75"))

	position, err := service.GetPosition(stockID)
	require.NoError(t, err)

	assert.Equal(t, int64(150), position.Quantity)
	assert.Equal(t, "8114", position.TotalCost.String())
	assert.Equal(t, "54.0933", position.AverageCost.Round(4).String())
}

func TestApplyFill_SellBooksRealizedPnL(t *testing.T) {
	service, db := setupService(t)
	stockID := seedStock(t, db, "2330", "TSMC", "60")

	require.NoError(t, applyFill(t, service, db, stockID, domain.SideBuy, 100, "50", "71.25"))
	require.NoError(t, applyFill(t, service, db, stockID, domain.SideSell, 40, "60", "34.2"))

	position, err := service.GetPosition(stockID)
	require.NoError(t, err)

	assert.Equal(t, int64(60), position.Quantity)
	// 40*60 - 40*50.7125 - 34.2
	assert.Equal(t, "337.3", position.RealizedPnL.String())
	// Average cost is untouched by a sell.
	assert.Equal(t, "50.7125", position.AverageCost.String())
	assert.Equal(t, "3042.75", position.TotalCost.String())
}

func TestApplyFill_SellAllKeepsRow(t *testing.T) {
	service, db := setupService(t)
	stockID := seedStock(t, db, "2330", "TSMC", "60")

	require.NoError(t, applyFill(t, service, db, stockID, domain.SideBuy, 100, "50", "71.25"))
	require.NoError(t, applyFill(t, service, db, stockID, domain.SideSell, 100, "60", "85.5"))

	position, err := service.GetPosition(stockID)
	require.NoError(t, err)
	require.NotNil(t, position, "row survives a full sell")

	assert.Equal(t, int64(0), position.Quantity)
	assert.False(t, position.RealizedPnL.IsZero())

	// Fully sold positions drop out of the display list.
	views, err := service.GetPortfolio()
	require.NoError(t, err)
	assert.Empty(t, views)
}

func TestApplyFill_OversellRollsBack(t *testing.T) {
	service, db := setupService(t)
	stockID := seedStock(t, db, "2330", "TSMC", "60")

	require.NoError(t, applyFill(t, service, db, stockID, domain.SideBuy, 100, "50", "71.25"))

	err := applyFill(t, service, db, stockID, domain.SideSell, 150, "60", "51.3")
	require.ErrorIs(t, err, ErrInsufficientQuantity)

	position, err := service.GetPosition(stockID)
	require.NoError(t, err)
	assert.Equal(t, int64(100), position.Quantity)
}

func TestApplyFill_SellWithoutPosition(t *testing.T) {
	service, db := setupService(t)
	stockID := seedStock(t, db, "2330", "TSMC", "60")

	err := applyFill(t, service, db, stockID, domain.SideSell, 10, "60", "20")
	require.ErrorIs(t, err, ErrInsufficientQuantity)
}

func TestGetPortfolio_NetsEstimatedSellCost(t *testing.T) {
	service, db := setupService(t)
	stockID := seedStock(t, db, "2330", "TSMC", "55")

	require.NoError(t, applyFill(t, service, db, stockID, domain.SideBuy, 100, "50", "71.25"))

	views, err := service.GetPortfolio()
	require.NoError(t, err)
	require.Len(t, views, 1)

	v := views[0]
	assert.Equal(t, "2330", v.Symbol)
	assert.Equal(t, "5500", v.MarketValue.String())
	// 5500 - 5071.25 - (20 floor commission + 16.5 tax)
	assert.Equal(t, "392.25", v.UnrealizedPnL.String())
	assert.Equal(t, "7.73", v.ReturnRate.Round(2).String())
}

func TestGetSummary(t *testing.T) {
	service, db := setupService(t)
	tsmc := seedStock(t, db, "2330", "TSMC", "55")
	mtk := seedStock(t, db, "2454", "MediaTek", "1000")

	require.NoError(t, applyFill(t, service, db, tsmc, domain.SideBuy, 100, "50", "71.25"))
	require.NoError(t, applyFill(t, service, db, mtk, domain.SideBuy, 10, "900", "20"))
	require.NoError(t, applyFill(t, service, db, mtk, domain.SideSell, 10, "1000", "20"))

	summary, err := service.GetSummary()
	require.NoError(t, err)

	// Only the TSMC position is still held.
	assert.Equal(t, "5500", summary.TotalMarketValue.String())
	// Realized profit from the MediaTek round trip survives the full sell:
	// 10000 - 9020 - 20.
	assert.Equal(t, "960", summary.TotalRealizedPnL.String())
	assert.True(t, summary.TotalUnrealizedPnL.Equal(decimal.RequireFromString("392.25")))
}
