package trading

import (
	"fmt"
	"time"

	"database/sql"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/aristath/paper-trader/internal/domain"
)

// TradeRepository handles fill history database operations
type TradeRepository struct {
	db  *sql.DB
	log zerolog.Logger
}

// NewTradeRepository creates a new trade repository
func NewTradeRepository(db *sql.DB, log zerolog.Logger) *TradeRepository {
	return &TradeRepository{
		db:  db,
		log: log.With().Str("repo", "trade").Logger(),
	}
}

// CreateTx inserts a fill inside the given transaction
func (r *TradeRepository) CreateTx(q querier, trade *Trade) error {
	query := `
		INSERT INTO trades
		(order_id, stock_symbol, side, quantity, executed_price,
		 total_amount, commission, transaction_tax, net_amount, executed_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	result, err := q.Exec(query,
		trade.OrderID,
		trade.StockSymbol,
		string(trade.Side),
		trade.Quantity,
		trade.ExecutedPrice.String(),
		trade.TotalAmount.String(),
		trade.Commission.String(),
		trade.TransactionTax.String(),
		trade.NetAmount.String(),
		trade.ExecutedAt.Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("failed to create trade: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get trade id: %w", err)
	}
	trade.ID = id

	return nil
}

// List returns fills matching the filter, newest first
func (r *TradeRepository) List(filter TradeFilter) ([]Trade, error) {
	query := `
		SELECT id, order_id, stock_symbol, side, quantity, executed_price,
		       total_amount, commission, transaction_tax, net_amount, executed_at
		FROM trades
		WHERE 1=1
	`
	args := []interface{}{}

	if filter.StockSymbol != "" {
		query += " AND stock_symbol = ?"
		args = append(args, filter.StockSymbol)
	}
	if !filter.FromDate.IsZero() {
		query += " AND executed_at >= ?"
		args = append(args, filter.FromDate.Format(time.RFC3339))
	}
	if !filter.ToDate.IsZero() {
		query += " AND executed_at <= ?"
		args = append(args, filter.ToDate.Format(time.RFC3339))
	}

	query += " ORDER BY executed_at DESC, id DESC"

	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list trades: %w", err)
	}
	defer rows.Close()

	var trades []Trade
	for rows.Next() {
		var (
			trade      Trade
			side       string
			price      string
			total      string
			comm       string
			tax        string
			net        string
			executedAt string
		)
		err := rows.Scan(
			&trade.ID, &trade.OrderID, &trade.StockSymbol, &side,
			&trade.Quantity, &price, &total, &comm, &tax, &net, &executedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan trade: %w", err)
		}

		trade.Side = domain.Side(side)
		if trade.ExecutedPrice, err = decimal.NewFromString(price); err != nil {
			return nil, fmt.Errorf("invalid executed_price %q: %w", price, err)
		}
		if trade.TotalAmount, err = decimal.NewFromString(total); err != nil {
			return nil, fmt.Errorf("invalid total_amount %q: %w", total, err)
		}
		if trade.Commission, err = decimal.NewFromString(comm); err != nil {
			return nil, fmt.Errorf("invalid commission %q: %w", comm, err)
		}
		if trade.TransactionTax, err = decimal.NewFromString(tax); err != nil {
			return nil, fmt.Errorf("invalid transaction_tax %q: %w", tax, err)
		}
		if trade.NetAmount, err = decimal.NewFromString(net); err != nil {
			return nil, fmt.Errorf("invalid net_amount %q: %w", net, err)
		}
		if trade.ExecutedAt, err = time.Parse(time.RFC3339, executedAt); err != nil {
			return nil, fmt.Errorf("invalid executed_at %q: %w", executedAt, err)
		}

		trades = append(trades, trade)
	}

	return trades, rows.Err()
}
