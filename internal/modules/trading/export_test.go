package trading

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aristath/paper-trader/internal/domain"
)

func TestExportTradesCSV(t *testing.T) {
	trades := []Trade{
		{
			StockSymbol:    "2330",
			Side:           domain.SideBuy,
			Quantity:       1000,
			ExecutedPrice:  decimal.RequireFromString("100"),
			TotalAmount:    decimal.RequireFromString("100000"),
			Commission:     decimal.RequireFromString("85.5"),
			TransactionTax: decimal.Zero,
			NetAmount:      decimal.RequireFromString("100085.5"),
			ExecutedAt:     time.Date(2025, 3, 12, 10, 30, 0, 0, time.UTC),
		},
		{
			StockSymbol:    "2330",
			Side:           domain.SideSell,
			Quantity:       1000,
			ExecutedPrice:  decimal.RequireFromString("110"),
			TotalAmount:    decimal.RequireFromString("110000"),
			Commission:     decimal.RequireFromString("94.05"),
			TransactionTax: decimal.RequireFromString("330"),
			NetAmount:      decimal.RequireFromString("109575.95"),
			ExecutedAt:     time.Date(2025, 3, 13, 11, 0, 0, 0, time.UTC),
		},
	}

	data, err := ExportTradesCSV(trades)
	require.NoError(t, err)

	// Byte order mark so spreadsheets decode the headers.
	assert.True(t, bytes.HasPrefix(data, []byte{0xEF, 0xBB, 0xBF}))

	lines := strings.Split(strings.TrimSpace(string(data[3:])), "\n")
	require.Len(t, lines, 3)

	assert.Equal(t, "交易日期,股票代號,交易類型,數量,成交價格,成交金額,手續費,交易稅,淨金額", strings.TrimSpace(lines[0]))
	assert.Contains(t, lines[1], "2025-03-12 10:30:00")
	assert.Contains(t, lines[1], "買入")
	assert.Contains(t, lines[2], "賣出")
	assert.Contains(t, lines[2], "109575.95")
}

func TestExportTradesCSV_Empty(t *testing.T) {
	data, err := ExportTradesCSV(nil)
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(string(data[3:])), "\n")
	assert.Len(t, lines, 1)
}
