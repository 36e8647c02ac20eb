package portfolio

import (
	"time"

	"github.com/shopspring/decimal"
)

// Position is one ledger row per stock. Rows are kept after a full
// sell so realized profit stays queryable.
type Position struct {
	ID          int64           `json:"id"`
	StockID     int64           `json:"stock_id"`
	Quantity    int64           `json:"quantity"`
	AverageCost decimal.Decimal `json:"average_cost"`
	TotalCost   decimal.Decimal `json:"total_cost"`
	RealizedPnL decimal.Decimal `json:"realized_pnl"`
	UpdatedAt   time.Time       `json:"updated_at"`
}

// PositionView is a position enriched with quote data and estimated
// profit for display
type PositionView struct {
	StockID       int64           `json:"stock_id"`
	Symbol        string          `json:"symbol"`
	Name          string          `json:"name"`
	Quantity      int64           `json:"quantity"`
	AverageCost   decimal.Decimal `json:"average_cost"`
	CurrentPrice  decimal.Decimal `json:"current_price"`
	MarketValue   decimal.Decimal `json:"market_value"`
	UnrealizedPnL decimal.Decimal `json:"unrealized_pnl"`
	ReturnRate    decimal.Decimal `json:"return_rate"` // percent
}

// Summary aggregates the whole book
type Summary struct {
	TotalMarketValue   decimal.Decimal `json:"total_market_value"`
	TotalCost          decimal.Decimal `json:"total_cost"`
	TotalUnrealizedPnL decimal.Decimal `json:"total_unrealized_pnl"`
	TotalRealizedPnL   decimal.Decimal `json:"total_realized_pnl"`
	TotalReturnRate    decimal.Decimal `json:"total_return_rate"` // percent
}
