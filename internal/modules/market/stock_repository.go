package market

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/aristath/paper-trader/internal/domain"
)

// StockRepository handles stock catalog database operations
type StockRepository struct {
	db  *sql.DB
	log zerolog.Logger
}

// NewStockRepository creates a new stock repository
func NewStockRepository(db *sql.DB, log zerolog.Logger) *StockRepository {
	return &StockRepository{
		db:  db,
		log: log.With().Str("repo", "stock").Logger(),
	}
}

const stockColumns = `id, symbol, name, market, industry,
	current_price, open_price, high_price, low_price, volume, last_updated`

// Create inserts a new stock into the catalog
func (r *StockRepository) Create(stock *Stock) error {
	query := `
		INSERT INTO stocks (symbol, name, market, industry,
			current_price, open_price, high_price, low_price, volume, last_updated)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	result, err := r.db.Exec(query,
		strings.ToUpper(strings.TrimSpace(stock.Symbol)),
		stock.Name,
		string(stock.Market),
		stock.Industry,
		stock.CurrentPrice.String(),
		stock.OpenPrice.String(),
		stock.HighPrice.String(),
		stock.LowPrice.String(),
		stock.Volume,
		stock.LastUpdated.Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("failed to create stock: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get stock id: %w", err)
	}
	stock.ID = id

	r.log.Info().Str("symbol", stock.Symbol).Int64("id", id).Msg("Stock created")
	return nil
}

// GetByID retrieves a stock by ID. Returns nil when not found.
func (r *StockRepository) GetByID(id int64) (*Stock, error) {
	query := fmt.Sprintf("SELECT %s FROM stocks WHERE id = ?", stockColumns)

	stock, err := r.scanStock(r.db.QueryRow(query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get stock by id: %w", err)
	}

	return stock, nil
}

// GetBySymbol retrieves a stock by symbol. Returns nil when not found.
func (r *StockRepository) GetBySymbol(symbol string) (*Stock, error) {
	query := fmt.Sprintf("SELECT %s FROM stocks WHERE symbol = ?", stockColumns)

	stock, err := r.scanStock(r.db.QueryRow(query, strings.ToUpper(strings.TrimSpace(symbol))))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get stock by symbol: %w", err)
	}

	return stock, nil
}

// Search returns catalog entries matching the filter, ordered by symbol
func (r *StockRepository) Search(filter SearchFilter) ([]Stock, error) {
	query := fmt.Sprintf("SELECT %s FROM stocks WHERE 1=1", stockColumns)
	args := []interface{}{}

	if kw := strings.TrimSpace(filter.Keyword); kw != "" {
		pattern := "%" + strings.ToLower(kw) + "%"
		query += " AND (LOWER(symbol) LIKE ? OR LOWER(name) LIKE ?)"
		args = append(args, pattern, pattern)
	}
	if filter.Market != "" {
		query += " AND market = ?"
		args = append(args, string(filter.Market))
	}
	if filter.Industry != "" {
		query += " AND industry = ?"
		args = append(args, filter.Industry)
	}

	query += " ORDER BY symbol ASC"

	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to search stocks: %w", err)
	}
	defer rows.Close()

	var stocks []Stock
	for rows.Next() {
		stock, err := r.scanStock(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan stock: %w", err)
		}
		stocks = append(stocks, *stock)
	}

	return stocks, rows.Err()
}

// UpdateQuote writes the latest intraday prices for a stock
func (r *StockRepository) UpdateQuote(id int64, quote Quote) error {
	query := `
		UPDATE stocks
		SET current_price = ?, open_price = ?, high_price = ?, low_price = ?,
		    volume = ?, last_updated = ?
		WHERE id = ?
	`

	result, err := r.db.Exec(query,
		quote.CurrentPrice.String(),
		quote.OpenPrice.String(),
		quote.HighPrice.String(),
		quote.LowPrice.String(),
		quote.Volume,
		quote.UpdatedAt.Format(time.RFC3339),
		id,
	)
	if err != nil {
		return fmt.Errorf("failed to update quote: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check quote update: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("stock %d not found", id)
	}

	return nil
}

// scanner abstracts *sql.Row and *sql.Rows
type scanner interface {
	Scan(dest ...interface{}) error
}

func (r *StockRepository) scanStock(row scanner) (*Stock, error) {
	var (
		stock       Stock
		market      string
		current     string
		open        string
		high        string
		low         string
		lastUpdated string
	)

	err := row.Scan(
		&stock.ID, &stock.Symbol, &stock.Name, &market, &stock.Industry,
		&current, &open, &high, &low, &stock.Volume, &lastUpdated,
	)
	if err != nil {
		return nil, err
	}

	stock.Market = domain.MarketType(market)
	if stock.CurrentPrice, err = decimal.NewFromString(current); err != nil {
		return nil, fmt.Errorf("invalid current_price %q: %w", current, err)
	}
	if stock.OpenPrice, err = decimal.NewFromString(open); err != nil {
		return nil, fmt.Errorf("invalid open_price %q: %w", open, err)
	}
	if stock.HighPrice, err = decimal.NewFromString(high); err != nil {
		return nil, fmt.Errorf("invalid high_price %q: %w", high, err)
	}
	if stock.LowPrice, err = decimal.NewFromString(low); err != nil {
		return nil, fmt.Errorf("invalid low_price %q: %w", low, err)
	}
	if lastUpdated != "" {
		if stock.LastUpdated, err = time.Parse(time.RFC3339, lastUpdated); err != nil {
			return nil, fmt.Errorf("invalid last_updated %q: %w", lastUpdated, err)
		}
	}

	return &stock, nil
}
