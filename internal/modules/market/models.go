package market

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/aristath/paper-trader/internal/domain"
)

// Stock represents a listed security and its latest quote
type Stock struct {
	ID           int64             `json:"id"`
	Symbol       string            `json:"symbol"`
	Name         string            `json:"name"`
	Market       domain.MarketType `json:"market"`
	Industry     string            `json:"industry,omitempty"`
	CurrentPrice decimal.Decimal   `json:"current_price"`
	OpenPrice    decimal.Decimal   `json:"open_price"`
	HighPrice    decimal.Decimal   `json:"high_price"`
	LowPrice     decimal.Decimal   `json:"low_price"`
	Volume       int64             `json:"volume"`
	LastUpdated  time.Time         `json:"last_updated"`
}

// Quote carries a fresh set of intraday prices for a stock
type Quote struct {
	CurrentPrice decimal.Decimal `json:"current_price"`
	OpenPrice    decimal.Decimal `json:"open_price"`
	HighPrice    decimal.Decimal `json:"high_price"`
	LowPrice     decimal.Decimal `json:"low_price"`
	Volume       int64           `json:"volume"`
	UpdatedAt    time.Time       `json:"updated_at"`
}

// PriceBar is one day of OHLCV history
type PriceBar struct {
	ID         int64           `json:"id"`
	StockID    int64           `json:"stock_id"`
	Date       string          `json:"date"` // YYYY-MM-DD
	OpenPrice  decimal.Decimal `json:"open_price"`
	HighPrice  decimal.Decimal `json:"high_price"`
	LowPrice   decimal.Decimal `json:"low_price"`
	ClosePrice decimal.Decimal `json:"close_price"`
	Volume     int64           `json:"volume"`
}

// PriceStatistics summarizes a date range of price history
type PriceStatistics struct {
	HighestPrice  decimal.Decimal `json:"highest_price"`
	LowestPrice   decimal.Decimal `json:"lowest_price"`
	AveragePrice  decimal.Decimal `json:"average_price"`
	PriceChange   decimal.Decimal `json:"price_change"`
	ChangePercent decimal.Decimal `json:"change_percent"`
	// Volatility is the sample standard deviation of daily close-to-close
	// returns over the range. Zero when fewer than three bars exist.
	Volatility float64 `json:"volatility"`
}

// Indicators holds moving-average series computed over a history range
type Indicators struct {
	Dates  []string  `json:"dates"`
	Closes []float64 `json:"closes"`
	SMA    []float64 `json:"sma"`
	EMA    []float64 `json:"ema"`
	Period int       `json:"period"`
}

// SearchFilter narrows stock catalog queries. Zero values match everything.
type SearchFilter struct {
	Keyword  string
	Market   domain.MarketType
	Industry string
}
