package trading

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/aristath/paper-trader/internal/domain"
)

// Order is one submission in the order book. Price is the limit price
// and stays zero for market orders.
type Order struct {
	ID             int64              `json:"id"`
	ClientRef      string             `json:"client_ref"`
	StockID        int64              `json:"stock_id"`
	Symbol         string             `json:"symbol,omitempty"`
	Side           domain.Side        `json:"side"`
	Type           domain.OrderType   `json:"type"`
	Quantity       int64              `json:"quantity"`
	Price          decimal.Decimal    `json:"price"`
	Status         domain.OrderStatus `json:"status"`
	Commission     decimal.Decimal    `json:"commission"`
	TransactionTax decimal.Decimal    `json:"transaction_tax"`
	CreatedAt      time.Time          `json:"created_at"`
	UpdatedAt      time.Time          `json:"updated_at"`
}

// Trade is one fill. NetAmount is what actually moves: amount plus
// costs on a buy, amount minus costs on a sell.
type Trade struct {
	ID             int64           `json:"id"`
	OrderID        int64           `json:"order_id"`
	StockSymbol    string          `json:"stock_symbol"`
	Side           domain.Side     `json:"side"`
	Quantity       int64           `json:"quantity"`
	ExecutedPrice  decimal.Decimal `json:"executed_price"`
	TotalAmount    decimal.Decimal `json:"total_amount"`
	Commission     decimal.Decimal `json:"commission"`
	TransactionTax decimal.Decimal `json:"transaction_tax"`
	NetAmount      decimal.Decimal `json:"net_amount"`
	ExecutedAt     time.Time       `json:"executed_at"`
}

// CreateOrderRequest carries a new order submission. ClientRef is an
// optional caller-supplied idempotency token; one is generated when
// empty.
type CreateOrderRequest struct {
	StockID    int64            `json:"stock_id"`
	Side       domain.Side      `json:"side"`
	Type       domain.OrderType `json:"type"`
	Quantity   int64            `json:"quantity"`
	LimitPrice *decimal.Decimal `json:"limit_price,omitempty"`
	ClientRef  string           `json:"client_ref,omitempty"`
}

// OrderFilter narrows order queries. Zero values match everything.
type OrderFilter struct {
	Status   domain.OrderStatus
	StockID  int64
	FromDate time.Time
	ToDate   time.Time
}

// TradeFilter narrows trade queries. Zero values match everything.
type TradeFilter struct {
	StockSymbol string
	FromDate    time.Time
	ToDate      time.Time
}
