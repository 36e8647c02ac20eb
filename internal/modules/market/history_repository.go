package market

import (
	"database/sql"
	"fmt"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

// HistoryRepository handles daily price history database operations
type HistoryRepository struct {
	db  *sql.DB
	log zerolog.Logger
}

// NewHistoryRepository creates a new price history repository
func NewHistoryRepository(db *sql.DB, log zerolog.Logger) *HistoryRepository {
	return &HistoryRepository{
		db:  db,
		log: log.With().Str("repo", "price_history").Logger(),
	}
}

// Insert writes one daily bar. A bar already recorded for the same
// stock and date is left untouched and reported as not inserted.
func (r *HistoryRepository) Insert(bar PriceBar) (bool, error) {
	query := `
		INSERT OR IGNORE INTO stock_price_history
		(stock_id, date, open_price, high_price, low_price, close_price, volume)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`

	result, err := r.db.Exec(query,
		bar.StockID,
		bar.Date,
		bar.OpenPrice.String(),
		bar.HighPrice.String(),
		bar.LowPrice.String(),
		bar.ClosePrice.String(),
		bar.Volume,
	)
	if err != nil {
		return false, fmt.Errorf("failed to insert price bar: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to check price bar insert: %w", err)
	}

	return affected > 0, nil
}

// GetRange returns bars for a stock between fromDate and toDate inclusive,
// newest first
func (r *HistoryRepository) GetRange(stockID int64, fromDate, toDate string) ([]PriceBar, error) {
	return r.getRange(stockID, fromDate, toDate, "DESC")
}

// GetRangeAscending returns the same bars oldest first, for time-series math
func (r *HistoryRepository) GetRangeAscending(stockID int64, fromDate, toDate string) ([]PriceBar, error) {
	return r.getRange(stockID, fromDate, toDate, "ASC")
}

func (r *HistoryRepository) getRange(stockID int64, fromDate, toDate, order string) ([]PriceBar, error) {
	query := fmt.Sprintf(`
		SELECT id, stock_id, date, open_price, high_price, low_price, close_price, volume
		FROM stock_price_history
		WHERE stock_id = ? AND date >= ? AND date <= ?
		ORDER BY date %s
	`, order)

	rows, err := r.db.Query(query, stockID, fromDate, toDate)
	if err != nil {
		return nil, fmt.Errorf("failed to query price history: %w", err)
	}
	defer rows.Close()

	var bars []PriceBar
	for rows.Next() {
		var (
			bar   PriceBar
			open  string
			high  string
			low   string
			close string
		)
		if err := rows.Scan(&bar.ID, &bar.StockID, &bar.Date, &open, &high, &low, &close, &bar.Volume); err != nil {
			return nil, fmt.Errorf("failed to scan price bar: %w", err)
		}
		if bar.OpenPrice, err = decimal.NewFromString(open); err != nil {
			return nil, fmt.Errorf("invalid open_price %q: %w", open, err)
		}
		if bar.HighPrice, err = decimal.NewFromString(high); err != nil {
			return nil, fmt.Errorf("invalid high_price %q: %w", high, err)
		}
		if bar.LowPrice, err = decimal.NewFromString(low); err != nil {
			return nil, fmt.Errorf("invalid low_price %q: %w", low, err)
		}
		if bar.ClosePrice, err = decimal.NewFromString(close); err != nil {
			return nil, fmt.Errorf("invalid close_price %q: %w", close, err)
		}
		bars = append(bars, bar)
	}

	return bars, rows.Err()
}
