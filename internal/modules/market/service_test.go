package market

import (
	"database/sql"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	_ "modernc.org/sqlite"

	"github.com/aristath/paper-trader/internal/domain"
	"github.com/aristath/paper-trader/internal/events"
)

func setupService(t *testing.T) (*Service, *sql.DB) {
	t.Helper()

	db, err := sql.Open("sqlite", ":memory:")
	require.NoError(t, err)
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { db.Close() })

	require.NoError(t, InitSchema(db))

	log := zerolog.Nop()
	manager := events.NewManager(events.NewBus(), log)
	service := NewService(
		NewStockRepository(db, log),
		NewHistoryRepository(db, log),
		NewMarketHours(log),
		manager,
		log,
	)

	return service, db
}

func seedStock(t *testing.T, service *Service, symbol, name string) *Stock {
	t.Helper()

	stock := &Stock{
		Symbol:       symbol,
		Name:         name,
		Market:       domain.MarketTypeListed,
		Industry:     "Semiconductors",
		CurrentPrice: decimal.RequireFromString("100"),
	}
	require.NoError(t, service.CreateStock(stock))
	return stock
}

func TestService_SearchStocks(t *testing.T) {
	service, _ := setupService(t)

	seedStock(t, service, "2330", "TSMC")
	seedStock(t, service, "2454", "MediaTek")

	results, err := service.SearchStocks(SearchFilter{Keyword: "tsm"})
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "2330", results[0].Symbol)

	results, err = service.SearchStocks(SearchFilter{})
	require.NoError(t, err)
	assert.Len(t, results, 2)
	// Ordered by symbol.
	assert.Equal(t, "2330", results[0].Symbol)

	results, err = service.SearchStocks(SearchFilter{Keyword: "no-such"})
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestService_UpdateQuote_EmitsPriceUpdated(t *testing.T) {
	service, _ := setupService(t)
	stock := seedStock(t, service, "2330", "TSMC")

	ch, unsubscribe := service.events.Bus().Subscribe()
	defer unsubscribe()

	quote := Quote{
		CurrentPrice: decimal.RequireFromString("585"),
		OpenPrice:    decimal.RequireFromString("580"),
		HighPrice:    decimal.RequireFromString("590"),
		LowPrice:     decimal.RequireFromString("578"),
		Volume:       1000,
	}
	require.NoError(t, service.UpdateQuote(stock.ID, quote))

	updated, err := service.GetStock(stock.ID)
	require.NoError(t, err)
	assert.True(t, updated.CurrentPrice.Equal(decimal.RequireFromString("585")))
	assert.False(t, updated.LastUpdated.IsZero())

	select {
	case event := <-ch:
		assert.Equal(t, events.PriceUpdated, event.Type)
		assert.Equal(t, "2330", event.Data["symbol"])
		assert.Equal(t, "585", event.Data["price"])
	case <-time.After(time.Second):
		t.Fatal("expected a price update event")
	}
}

func TestService_UpdateQuote_UnknownStock(t *testing.T) {
	service, _ := setupService(t)

	err := service.UpdateQuote(42, Quote{CurrentPrice: decimal.RequireFromString("1")})
	assert.Error(t, err)
}

func TestService_GetCurrentPrice(t *testing.T) {
	service, _ := setupService(t)
	seedStock(t, service, "2330", "TSMC")

	price, err := service.GetCurrentPrice("2330")
	require.NoError(t, err)
	assert.True(t, price.Equal(decimal.RequireFromString("100")))

	_, err = service.GetCurrentPrice("9999")
	assert.Error(t, err)
}

func TestService_WriteDailyClose_Idempotent(t *testing.T) {
	service, db := setupService(t)
	stock := seedStock(t, service, "2330", "TSMC")

	bar := PriceBar{
		StockID:    stock.ID,
		Date:       "2025-03-12",
		OpenPrice:  decimal.RequireFromString("580"),
		HighPrice:  decimal.RequireFromString("590"),
		LowPrice:   decimal.RequireFromString("578"),
		ClosePrice: decimal.RequireFromString("585"),
		Volume:     1000,
	}

	require.NoError(t, service.WriteDailyClose(bar))

	// Second write for the same day changes nothing.
	bar.ClosePrice = decimal.RequireFromString("600")
	require.NoError(t, service.WriteDailyClose(bar))

	var count int
	require.NoError(t, db.QueryRow(
		"SELECT COUNT(*) FROM stock_price_history WHERE stock_id = ?", stock.ID,
	).Scan(&count))
	assert.Equal(t, 1, count)

	bars, err := service.GetPriceHistory(stock.ID, "2025-03-01", "2025-03-31")
	require.NoError(t, err)
	require.Len(t, bars, 1)
	assert.True(t, bars[0].ClosePrice.Equal(decimal.RequireFromString("585")))
}

func seedHistory(t *testing.T, service *Service, stockID int64, closes []string) {
	t.Helper()

	for i, close := range closes {
		date := time.Date(2025, 3, 3+i, 0, 0, 0, 0, time.UTC).Format("2006-01-02")
		c := decimal.RequireFromString(close)
		require.NoError(t, service.WriteDailyClose(PriceBar{
			StockID:    stockID,
			Date:       date,
			OpenPrice:  c,
			HighPrice:  c.Add(decimal.NewFromInt(2)),
			LowPrice:   c.Sub(decimal.NewFromInt(2)),
			ClosePrice: c,
			Volume:     1000,
		}))
	}
}

func TestService_CalculatePriceStatistics(t *testing.T) {
	service, _ := setupService(t)
	stock := seedStock(t, service, "2330", "TSMC")

	seedHistory(t, service, stock.ID, []string{"100", "110", "105", "120"})

	stats, err := service.CalculatePriceStatistics(stock.ID, "2025-03-01", "2025-03-31")
	require.NoError(t, err)

	assert.Equal(t, "122", stats.HighestPrice.String())
	assert.Equal(t, "98", stats.LowestPrice.String())
	assert.Equal(t, "108.75", stats.AveragePrice.String())
	assert.Equal(t, "20", stats.PriceChange.String())
	assert.Equal(t, "20", stats.ChangePercent.String())
	assert.Greater(t, stats.Volatility, 0.0)
}

func TestService_CalculatePriceStatistics_EmptyRange(t *testing.T) {
	service, _ := setupService(t)
	stock := seedStock(t, service, "2330", "TSMC")

	stats, err := service.CalculatePriceStatistics(stock.ID, "2025-03-01", "2025-03-31")
	require.NoError(t, err)

	assert.True(t, stats.HighestPrice.IsZero())
	assert.True(t, stats.AveragePrice.IsZero())
	assert.Zero(t, stats.Volatility)
}

func TestService_CalculateIndicators(t *testing.T) {
	service, _ := setupService(t)
	stock := seedStock(t, service, "2330", "TSMC")

	seedHistory(t, service, stock.ID, []string{"100", "102", "104", "106", "108"})

	indicators, err := service.CalculateIndicators(stock.ID, "2025-03-01", "2025-03-31", 3)
	require.NoError(t, err)

	require.Len(t, indicators.SMA, 5)
	require.Len(t, indicators.EMA, 5)
	// SMA over the last three closes of the strictly increasing series.
	assert.InDelta(t, 106, indicators.SMA[4], 1e-9)

	_, err = service.CalculateIndicators(stock.ID, "2025-03-01", "2025-03-31", 10)
	assert.Error(t, err)
}
