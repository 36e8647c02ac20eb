package trading

import (
	"database/sql"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/aristath/paper-trader/internal/database"
	"github.com/aristath/paper-trader/internal/domain"
	"github.com/aristath/paper-trader/internal/events"
	"github.com/aristath/paper-trader/internal/modules/market"
	"github.com/aristath/paper-trader/internal/modules/portfolio"
	"github.com/aristath/paper-trader/pkg/costs"
)

// StockSource resolves stocks for order validation and pricing
type StockSource interface {
	GetStock(id int64) (*market.Stock, error)
}

// MarketClock reports trading-session state
type MarketClock interface {
	IsOpen(at ...time.Time) bool
}

// AuditSink records lifecycle events. Implementations must not fail
// the calling operation.
type AuditSink interface {
	Record(action, entityType string, entityID int64, before, after interface{})
}

// Service runs the order lifecycle: validation, booking, matching and
// settlement into the position ledger
type Service struct {
	db        *sql.DB
	orders    *OrderRepository
	trades    *TradeRepository
	positions *portfolio.Service
	stocks    StockSource
	clock     MarketClock
	audit     AuditSink
	events    *events.Manager

	discountRate decimal.Decimal
	tradeLimit   decimal.Decimal // zero disables the cap
	dupWindow    time.Duration

	log zerolog.Logger
}

// NewService creates a new trading service
func NewService(
	db *sql.DB,
	orders *OrderRepository,
	trades *TradeRepository,
	positions *portfolio.Service,
	stocks StockSource,
	clock MarketClock,
	audit AuditSink,
	eventManager *events.Manager,
	discountRate decimal.Decimal,
	tradeLimit decimal.Decimal,
	dupWindow time.Duration,
	log zerolog.Logger,
) *Service {
	return &Service{
		db:           db,
		orders:       orders,
		trades:       trades,
		positions:    positions,
		stocks:       stocks,
		clock:        clock,
		audit:        audit,
		events:       eventManager,
		discountRate: discountRate,
		tradeLimit:   tradeLimit,
		dupWindow:    dupWindow,
		log:          log.With().Str("service", "trading").Logger(),
	}
}

// CreateOrder validates and books a new order. A market order placed
// during the trading session fills immediately in the same
// transaction; everything else stays pending for the sweep.
func (s *Service) CreateOrder(req CreateOrderRequest) (*Order, error) {
	if req.Quantity <= 0 {
		return nil, ErrInvalidQuantity
	}

	stock, err := s.stocks.GetStock(req.StockID)
	if err != nil {
		return nil, err
	}
	if stock == nil {
		return nil, ErrInvalidStock
	}

	if req.Type == domain.OrderTypeLimit && (req.LimitPrice == nil || !req.LimitPrice.IsPositive()) {
		return nil, ErrInvalidLimitPrice
	}

	if req.Side.IsSell() {
		held, err := s.positions.HeldQuantity(req.StockID)
		if err != nil {
			return nil, err
		}
		if req.Quantity > held {
			return nil, ErrInsufficientHoldings
		}
	}

	cutoff := time.Now().UTC().Add(-s.dupWindow)
	duplicate, err := s.orders.HasRecentShape(req.StockID, req.Side, req.Type, req.Quantity, cutoff)
	if err != nil {
		return nil, err
	}
	if duplicate {
		return nil, ErrDuplicateOrder
	}

	if s.tradeLimit.IsPositive() {
		referencePrice := stock.CurrentPrice
		if req.Type == domain.OrderTypeLimit {
			referencePrice = *req.LimitPrice
		}
		notional := referencePrice.Mul(decimal.NewFromInt(req.Quantity))
		if notional.GreaterThan(s.tradeLimit) {
			return nil, ErrExceedsTradeLimit
		}
	}

	now := time.Now().UTC()
	order := &Order{
		ClientRef:      req.ClientRef,
		StockID:        req.StockID,
		Symbol:         stock.Symbol,
		Side:           req.Side,
		Type:           req.Type,
		Quantity:       req.Quantity,
		Price:          decimal.Zero,
		Status:         domain.OrderStatusPending,
		Commission:     decimal.Zero,
		TransactionTax: decimal.Zero,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if req.LimitPrice != nil {
		order.Price = *req.LimitPrice
	}
	if order.ClientRef == "" {
		order.ClientRef = uuid.NewString()
	}

	var trade *Trade
	err = database.WithTransaction(s.db, func(tx *sql.Tx) error {
		if err := s.orders.CreateTx(tx, order); err != nil {
			return err
		}

		if req.Type == domain.OrderTypeMarket && s.clock.IsOpen() {
			trade, err = s.fill(tx, order, stock.CurrentPrice)
			return err
		}

		return nil
	})
	if err != nil {
		return nil, err
	}

	s.audit.Record("CreateOrder", "Order", order.ID, nil, map[string]interface{}{
		"stock_id": order.StockID,
		"side":     string(order.Side),
		"type":     string(order.Type),
		"quantity": order.Quantity,
		"price":    order.Price.String(),
		"status":   string(order.Status),
	})
	s.events.Emit(events.OrderCreated, "trading", map[string]interface{}{
		"order_id": order.ID,
		"symbol":   order.Symbol,
		"side":     string(order.Side),
	})
	if trade != nil {
		s.afterFill(order, trade)
	}

	return order, nil
}

// CancelOrder cancels a pending order. Executed and already-cancelled
// orders are rejected.
func (s *Service) CancelOrder(orderID int64) (*Order, error) {
	order, err := s.orders.GetByID(orderID)
	if err != nil {
		return nil, err
	}
	if order == nil {
		return nil, ErrOrderNotFound
	}
	if order.Status != domain.OrderStatusPending {
		return nil, ErrOrderNotCancellable
	}

	cancelled, err := s.orders.Cancel(orderID)
	if err != nil {
		return nil, err
	}
	if !cancelled {
		// Lost the race against an execution or another cancel.
		return nil, ErrOrderNotCancellable
	}

	oldStatus := order.Status
	order.Status = domain.OrderStatusCancelled
	order.UpdatedAt = time.Now().UTC()

	s.audit.Record("CancelOrder", "Order", order.ID,
		map[string]interface{}{"status": string(oldStatus)},
		map[string]interface{}{"status": string(order.Status)},
	)
	s.events.Emit(events.OrderCancelled, "trading", map[string]interface{}{
		"order_id": order.ID,
		"symbol":   order.Symbol,
	})

	return order, nil
}

// GetOrder retrieves a single order, nil when not found
func (s *Service) GetOrder(orderID int64) (*Order, error) {
	return s.orders.GetByID(orderID)
}

// GetOrders returns orders matching the filter, newest first
func (s *Service) GetOrders(filter OrderFilter) ([]Order, error) {
	return s.orders.List(filter)
}

// GetTrades returns fills matching the filter, newest first
func (s *Service) GetTrades(filter TradeFilter) ([]Trade, error) {
	return s.trades.List(filter)
}

// ExecuteMatch fills one pending order at the given price. A limit
// order must be triggered by it: a buy fills when the price is at or
// under the limit, a sell at or over.
func (s *Service) ExecuteMatch(orderID int64, matchPrice decimal.Decimal) (*Trade, error) {
	var (
		order *Order
		trade *Trade
	)

	err := database.WithTransaction(s.db, func(tx *sql.Tx) error {
		var err error
		order, err = s.orders.GetByIDTx(tx, orderID)
		if err != nil {
			return err
		}
		if order == nil {
			return ErrOrderNotFound
		}
		if order.Status != domain.OrderStatusPending {
			return ErrOrderNotCancellable
		}

		if order.Type == domain.OrderTypeLimit && !limitTriggered(order, matchPrice) {
			return ErrInvalidLimitPrice
		}

		trade, err = s.fill(tx, order, matchPrice)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.afterFill(order, trade)
	return trade, nil
}

// ProcessPendingOrders sweeps the pending book against current prices.
// It is a no-op outside the trading session. Each order settles in its
// own transaction; one failure does not stop the sweep.
func (s *Service) ProcessPendingOrders() error {
	return s.processPending(0)
}

// ProcessPendingOrdersForStock sweeps only one stock's pending orders,
// used when a fresh quote arrives
func (s *Service) ProcessPendingOrdersForStock(stockID int64) error {
	return s.processPending(stockID)
}

func (s *Service) processPending(stockID int64) error {
	if !s.clock.IsOpen() {
		return nil
	}

	pending, err := s.orders.ListPending(stockID)
	if err != nil {
		return err
	}

	for i := range pending {
		p := &pending[i]

		if p.Type == domain.OrderTypeLimit && !limitTriggered(&p.Order, p.CurrentPrice) {
			continue
		}

		var trade *Trade
		err := database.WithTransaction(s.db, func(tx *sql.Tx) error {
			var err error
			trade, err = s.fill(tx, &p.Order, p.CurrentPrice)
			return err
		})
		if err != nil {
			s.log.Error().
				Err(err).
				Int64("order_id", p.ID).
				Str("symbol", p.Symbol).
				Msg("Failed to settle pending order")
			continue
		}

		s.afterFill(&p.Order, trade)
	}

	return nil
}

// limitTriggered reports whether the market price crosses the order's
// limit price
func limitTriggered(order *Order, marketPrice decimal.Decimal) bool {
	if order.Side.IsBuy() {
		return marketPrice.LessThanOrEqual(order.Price)
	}
	return marketPrice.GreaterThanOrEqual(order.Price)
}

// fill settles an order at the execution price inside the caller's
// transaction: books the trade, flags the order executed and posts the
// fill to the position ledger
func (s *Service) fill(tx *sql.Tx, order *Order, executionPrice decimal.Decimal) (*Trade, error) {
	totalAmount := executionPrice.Mul(decimal.NewFromInt(order.Quantity))
	tradeCosts := costs.TotalCost(totalAmount, order.Side, s.discountRate)

	netAmount := totalAmount.Add(tradeCosts.Commission)
	if order.Side.IsSell() {
		netAmount = totalAmount.Sub(tradeCosts.Commission).Sub(tradeCosts.TransactionTax)
	}

	trade := &Trade{
		OrderID:        order.ID,
		StockSymbol:    order.Symbol,
		Side:           order.Side,
		Quantity:       order.Quantity,
		ExecutedPrice:  executionPrice,
		TotalAmount:    totalAmount,
		Commission:     tradeCosts.Commission,
		TransactionTax: tradeCosts.TransactionTax,
		NetAmount:      netAmount,
		ExecutedAt:     time.Now().UTC(),
	}

	if err := s.trades.CreateTx(tx, trade); err != nil {
		return nil, err
	}
	if err := s.orders.MarkExecutedTx(tx, order.ID, tradeCosts.Commission, tradeCosts.TransactionTax); err != nil {
		return nil, err
	}
	if err := s.positions.ApplyFill(tx, order.StockID, order.Side, order.Quantity, executionPrice, tradeCosts.Commission); err != nil {
		return nil, err
	}

	order.Status = domain.OrderStatusExecuted
	order.Commission = tradeCosts.Commission
	order.TransactionTax = tradeCosts.TransactionTax
	order.UpdatedAt = trade.ExecutedAt

	return trade, nil
}

// afterFill records audit and event output for a settled trade
func (s *Service) afterFill(order *Order, trade *Trade) {
	s.audit.Record("ExecuteTrade", "Trade", trade.ID, nil, map[string]interface{}{
		"order_id":       trade.OrderID,
		"stock_symbol":   trade.StockSymbol,
		"side":           string(trade.Side),
		"quantity":       trade.Quantity,
		"executed_price": trade.ExecutedPrice.String(),
		"net_amount":     trade.NetAmount.String(),
	})
	s.events.Emit(events.TradeExecuted, "trading", map[string]interface{}{
		"trade_id": trade.ID,
		"order_id": trade.OrderID,
		"symbol":   trade.StockSymbol,
		"side":     string(trade.Side),
		"quantity": trade.Quantity,
		"price":    trade.ExecutedPrice.String(),
	})

	s.log.Info().
		Int64("order_id", order.ID).
		Str("symbol", trade.StockSymbol).
		Str("side", string(trade.Side)).
		Int64("quantity", trade.Quantity).
		Str("price", trade.ExecutedPrice.String()).
		Msg("Order filled")
}
