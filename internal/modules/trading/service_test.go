package trading

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
	"github.com/aristath/paper-trader/internal/modules/market"
	"github.com/aristath/paper-trader/internal/modules/portfolio"
)

type fakeClock struct {
	open bool
}

func (c *fakeClock) IsOpen(at ...time.Time) bool {
	return c.open
}

type auditRecord struct {
	Action     string
	EntityType string
	EntityID   int64
}

type fakeAudit struct {
	records []auditRecord
}

func (a *fakeAudit) Record(action, entityType string, entityID int64, before, after interface{}) {
	a.records = append(a.records, auditRecord{action, entityType, entityID})
}

type tradingFixture struct {
	service   *Service
	market    *market.Service
	positions *portfolio.Service
	clock     *fakeClock
	audit     *fakeAudit
	db        *sql.DB
}

func setupTrading(t *testing.T) *tradingFixture {
	t.Helper()

	db, err := sql.Open("sqlite", ":memory:")
	require.NoError(t, err)
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { db.Close() })

	require.NoError(t, market.InitSchema(db))
	require.NoError(t, portfolio.InitSchema(db))
	require.NoError(t, InitSchema(db))

	log := zerolog.Nop()
	manager := events.NewManager(events.NewBus(), log)
	discountRate := decimal.RequireFromString("0.6")

	marketService := market.NewService(
		market.NewStockRepository(db, log),
		market.NewHistoryRepository(db, log),
		market.NewMarketHours(log),
		manager,
		log,
	)
	positionService := portfolio.NewService(
		portfolio.NewPositionRepository(db, log),
		discountRate,
		log,
	)

	clock := &fakeClock{open: true}
	audit := &fakeAudit{}

	service := NewService(
		db,
		NewOrderRepository(db, log),
		NewTradeRepository(db, log),
		positionService,
		marketService,
		clock,
		audit,
		manager,
		discountRate,
		decimal.Zero,
		5*time.Second,
		log,
	)

	return &tradingFixture{
		service:   service,
		market:    marketService,
		positions: positionService,
		clock:     clock,
		audit:     audit,
		db:        db,
	}
}

func (f *tradingFixture) seedStock(t *testing.T, symbol, name, price string) *market.Stock {
	t.Helper()

	stock := &market.Stock{
		Symbol:       symbol,
		Name:         name,
		Market:       domain.MarketTypeListed,
		CurrentPrice: decimal.RequireFromString(price),
	}
	require.NoError(t, f.market.CreateStock(stock))
	return stock
}

func marketOrder(stockID int64, side domain.Side, qty int64) CreateOrderRequest {
	return CreateOrderRequest{
		StockID:  stockID,
		Side:     side,
		Type:     domain.OrderTypeMarket,
		Quantity: qty,
	}
}

func limitOrder(stockID int64, side domain.Side, qty int64, limit string) CreateOrderRequest {
	price := decimal.RequireFromString(limit)
	return CreateOrderRequest{
		StockID:    stockID,
		Side:       side,
		Type:       domain.OrderTypeLimit,
		Quantity:   qty,
		LimitPrice: &price,
	}
}

func TestCreateOrder_Validation(t *testing.T) {
	f := setupTrading(t)
	stock := f.seedStock(t, "2330", "TSMC", "100")

	tests := []struct {
		name    string
		req     CreateOrderRequest
		wantErr error
	}{
		{
			name:    "zero quantity",
			req:     marketOrder(stock.ID, domain.SideBuy, 0),
			wantErr: ErrInvalidQuantity,
		},
		{
			name:    "negative quantity",
			req:     marketOrder(stock.ID, domain.SideBuy, -5),
			wantErr: ErrInvalidQuantity,
		},
		{
			name:    "unknown stock",
			req:     marketOrder(999, domain.SideBuy, 10),
			wantErr: ErrInvalidStock,
		},
		{
			name: "limit order without price",
			req: CreateOrderRequest{
				StockID:  stock.ID,
				Side:     domain.SideBuy,
				Type:     domain.OrderTypeLimit,
				Quantity: 10,
			},
			wantErr: ErrInvalidLimitPrice,
		},
		{
			name:    "sell without holdings",
			req:     marketOrder(stock.ID, domain.SideSell, 10),
			wantErr: ErrInsufficientHoldings,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.service.CreateOrder(tt.req)
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestCreateOrder_MarketOrderFillsWhenOpen(t *testing.T) {
	f := setupTrading(t)
	stock := f.seedStock(t, "2330", "TSMC", "100")

	order, err := f.service.CreateOrder(marketOrder(stock.ID, domain.SideBuy, 1000))
	require.NoError(t, err)

	assert.Equal(t, domain.OrderStatusExecuted, order.Status)
	assert.NotEmpty(t, order.ClientRef)
	// 100000 * 0.001425 * 0.6
	assert.Equal(t, "85.5", order.Commission.String())
	assert.True(t, order.TransactionTax.IsZero())

	trades, err := f.service.GetTrades(TradeFilter{})
	require.NoError(t, err)
	require.Len(t, trades, 1)
	assert.Equal(t, "100000", trades[0].TotalAmount.String())
	assert.Equal(t, "100085.5", trades[0].NetAmount.String())

	position, err := f.positions.GetPosition(stock.ID)
	require.NoError(t, err)
	require.NotNil(t, position)
	assert.Equal(t, int64(1000), position.Quantity)
	assert.Equal(t, "100085.5", position.TotalCost.String())

	require.Len(t, f.audit.records, 2)
	assert.Equal(t, "CreateOrder", f.audit.records[0].Action)
	assert.Equal(t, "ExecuteTrade", f.audit.records[1].Action)
}

func TestCreateOrder_MarketOrderStaysPendingWhenClosed(t *testing.T) {
	f := setupTrading(t)
	stock := f.seedStock(t, "2330", "TSMC", "100")
	f.clock.open = false

	order, err := f.service.CreateOrder(marketOrder(stock.ID, domain.SideBuy, 100))
	require.NoError(t, err)

	assert.Equal(t, domain.OrderStatusPending, order.Status)

	trades, err := f.service.GetTrades(TradeFilter{})
	require.NoError(t, err)
	assert.Empty(t, trades)
}

func TestCreateOrder_DuplicateShapeRejected(t *testing.T) {
	f := setupTrading(t)
	stock := f.seedStock(t, "2330", "TSMC", "100")
	f.clock.open = false

	_, err := f.service.CreateOrder(marketOrder(stock.ID, domain.SideBuy, 100))
	require.NoError(t, err)

	_, err = f.service.CreateOrder(marketOrder(stock.ID, domain.SideBuy, 100))
	assert.ErrorIs(t, err, ErrDuplicateOrder)

	// A different quantity is a different shape.
	_, err = f.service.CreateOrder(marketOrder(stock.ID, domain.SideBuy, 200))
	assert.NoError(t, err)
}

func TestCreateOrder_DuplicateWindowExpires(t *testing.T) {
	f := setupTrading(t)
	stock := f.seedStock(t, "2330", "TSMC", "100")
	f.clock.open = false

	first, err := f.service.CreateOrder(marketOrder(stock.ID, domain.SideBuy, 100))
	require.NoError(t, err)

	// Age the first order past the duplicate window.
	stale := time.Now().Add(-10 * time.Second).UTC().Format(time.RFC3339)
	_, err = f.db.Exec(`UPDATE orders SET created_at = ? WHERE id = ?`, stale, first.ID)
	require.NoError(t, err)

	second, err := f.service.CreateOrder(marketOrder(stock.ID, domain.SideBuy, 100))
	require.NoError(t, err)
	assert.NotEqual(t, first.ID, second.ID)
}

func TestCreateOrder_TradeLimit(t *testing.T) {
	f := setupTrading(t)
	stock := f.seedStock(t, "2330", "TSMC", "100")
	f.service.tradeLimit = decimal.RequireFromString("50000")

	_, err := f.service.CreateOrder(marketOrder(stock.ID, domain.SideBuy, 1000))
	assert.ErrorIs(t, err, ErrExceedsTradeLimit)

	// Limit orders are capped on the limit price.
	_, err = f.service.CreateOrder(limitOrder(stock.ID, domain.SideBuy, 500, "90"))
	assert.NoError(t, err)
}

func TestCancelOrder(t *testing.T) {
	f := setupTrading(t)
	stock := f.seedStock(t, "2330", "TSMC", "100")
	f.clock.open = false

	order, err := f.service.CreateOrder(marketOrder(stock.ID, domain.SideBuy, 100))
	require.NoError(t, err)

	cancelled, err := f.service.CancelOrder(order.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.OrderStatusCancelled, cancelled.Status)

	// A second cancel is rejected, not repeated.
	_, err = f.service.CancelOrder(order.ID)
	assert.ErrorIs(t, err, ErrOrderNotCancellable)

	_, err = f.service.CancelOrder(9999)
	assert.ErrorIs(t, err, ErrOrderNotFound)
}

func TestCancelOrder_ExecutedOrderRejected(t *testing.T) {
	f := setupTrading(t)
	stock := f.seedStock(t, "2330", "TSMC", "100")

	order, err := f.service.CreateOrder(marketOrder(stock.ID, domain.SideBuy, 100))
	require.NoError(t, err)
	require.Equal(t, domain.OrderStatusExecuted, order.Status)

	_, err = f.service.CancelOrder(order.ID)
	assert.ErrorIs(t, err, ErrOrderNotCancellable)
}

func TestExecuteMatch_LimitTrigger(t *testing.T) {
	f := setupTrading(t)
	stock := f.seedStock(t, "2330", "TSMC", "100")

	order, err := f.service.CreateOrder(limitOrder(stock.ID, domain.SideBuy, 100, "95"))
	require.NoError(t, err)
	require.Equal(t, domain.OrderStatusPending, order.Status)

	// Market above the buy limit does not trigger.
	_, err = f.service.ExecuteMatch(order.ID, decimal.RequireFromString("96"))
	assert.ErrorIs(t, err, ErrInvalidLimitPrice)

	// At the limit it fills.
	trade, err := f.service.ExecuteMatch(order.ID, decimal.RequireFromString("95"))
	require.NoError(t, err)
	assert.Equal(t, "9500", trade.TotalAmount.String())

	refreshed, err := f.service.GetOrder(order.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.OrderStatusExecuted, refreshed.Status)

	// A settled order cannot be matched again.
	_, err = f.service.ExecuteMatch(order.ID, decimal.RequireFromString("95"))
	assert.ErrorIs(t, err, ErrOrderNotCancellable)
}

func TestExecuteMatch_SellLimitTrigger(t *testing.T) {
	f := setupTrading(t)
	stock := f.seedStock(t, "2330", "TSMC", "100")

	_, err := f.service.CreateOrder(marketOrder(stock.ID, domain.SideBuy, 100))
	require.NoError(t, err)

	order, err := f.service.CreateOrder(limitOrder(stock.ID, domain.SideSell, 100, "110"))
	require.NoError(t, err)

	_, err = f.service.ExecuteMatch(order.ID, decimal.RequireFromString("109"))
	assert.ErrorIs(t, err, ErrInvalidLimitPrice)

	trade, err := f.service.ExecuteMatch(order.ID, decimal.RequireFromString("110"))
	require.NoError(t, err)
	// Sell nets both commission and tax: 11000 - 20 - 33.
	assert.Equal(t, "33", trade.TransactionTax.String())
	assert.Equal(t, "10947", trade.NetAmount.String())
}

func TestExecuteMatch_UnknownOrder(t *testing.T) {
	f := setupTrading(t)

	_, err := f.service.ExecuteMatch(42, decimal.RequireFromString("100"))
	assert.ErrorIs(t, err, ErrOrderNotFound)
}

func TestProcessPendingOrders(t *testing.T) {
	f := setupTrading(t)
	stock := f.seedStock(t, "2330", "TSMC", "100")

	triggered, err := f.service.CreateOrder(limitOrder(stock.ID, domain.SideBuy, 100, "105"))
	require.NoError(t, err)
	untriggered, err := f.service.CreateOrder(limitOrder(stock.ID, domain.SideBuy, 50, "90"))
	require.NoError(t, err)

	require.NoError(t, f.service.ProcessPendingOrders())

	refreshed, err := f.service.GetOrder(triggered.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.OrderStatusExecuted, refreshed.Status)

	refreshed, err = f.service.GetOrder(untriggered.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.OrderStatusPending, refreshed.Status)
}

func TestProcessPendingOrders_NoopWhenClosed(t *testing.T) {
	f := setupTrading(t)
	stock := f.seedStock(t, "2330", "TSMC", "100")

	order, err := f.service.CreateOrder(limitOrder(stock.ID, domain.SideBuy, 100, "105"))
	require.NoError(t, err)

	f.clock.open = false
	require.NoError(t, f.service.ProcessPendingOrders())

	refreshed, err := f.service.GetOrder(order.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.OrderStatusPending, refreshed.Status)
}

func TestProcessPendingOrders_ContinuesAfterFailure(t *testing.T) {
	f := setupTrading(t)
	stock := f.seedStock(t, "2330", "TSMC", "100")

	// First a position to sell out of.
	_, err := f.service.CreateOrder(marketOrder(stock.ID, domain.SideBuy, 100))
	require.NoError(t, err)

	// Two sell limit orders that both pass validation but together
	// exceed the position. The first fill empties the holdings and the
	// second must fail at settlement without stopping the sweep.
	f.clock.open = false
	first, err := f.service.CreateOrder(limitOrder(stock.ID, domain.SideSell, 100, "100"))
	require.NoError(t, err)
	second, err := f.service.CreateOrder(limitOrder(stock.ID, domain.SideSell, 60, "100"))
	require.NoError(t, err)

	f.clock.open = true
	require.NoError(t, f.service.ProcessPendingOrders())

	refreshed, err := f.service.GetOrder(first.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.OrderStatusExecuted, refreshed.Status)

	refreshed, err = f.service.GetOrder(second.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.OrderStatusPending, refreshed.Status)
}

func TestGetOrders_FilterAndOrdering(t *testing.T) {
	f := setupTrading(t)
	stock := f.seedStock(t, "2330", "TSMC", "100")
	f.clock.open = false

	first, err := f.service.CreateOrder(marketOrder(stock.ID, domain.SideBuy, 100))
	require.NoError(t, err)
	second, err := f.service.CreateOrder(limitOrder(stock.ID, domain.SideBuy, 100, "95"))
	require.NoError(t, err)
	_, err = f.service.CancelOrder(first.ID)
	require.NoError(t, err)

	all, err := f.service.GetOrders(OrderFilter{})
	require.NoError(t, err)
	require.Len(t, all, 2)
	// Newest first.
	assert.Equal(t, second.ID, all[0].ID)
	assert.Equal(t, "2330", all[0].Symbol)

	pending, err := f.service.GetOrders(OrderFilter{Status: domain.OrderStatusPending})
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, second.ID, pending[0].ID)
}
