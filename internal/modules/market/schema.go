package market

import "database/sql"

// MarketSchema holds the stock catalog and daily price history tables
const MarketSchema = `
CREATE TABLE IF NOT EXISTS stocks (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    symbol TEXT UNIQUE NOT NULL,
    name TEXT NOT NULL,
    market TEXT NOT NULL,
    industry TEXT NOT NULL DEFAULT '',
    current_price TEXT NOT NULL DEFAULT '0',
    open_price TEXT NOT NULL DEFAULT '0',
    high_price TEXT NOT NULL DEFAULT '0',
    low_price TEXT NOT NULL DEFAULT '0',
    volume INTEGER NOT NULL DEFAULT 0,
    last_updated TEXT NOT NULL DEFAULT ''
);

CREATE INDEX IF NOT EXISTS idx_stocks_market ON stocks(market);

CREATE TABLE IF NOT EXISTS stock_price_history (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    stock_id INTEGER NOT NULL REFERENCES stocks(id),
    date TEXT NOT NULL,
    open_price TEXT NOT NULL,
    high_price TEXT NOT NULL,
    low_price TEXT NOT NULL,
    close_price TEXT NOT NULL,
    volume INTEGER NOT NULL DEFAULT 0,
    UNIQUE(stock_id, date)
);

CREATE INDEX IF NOT EXISTS idx_price_history_stock_date ON stock_price_history(stock_id, date);
`

func InitSchema(db *sql.DB) error {
	_, err := db.Exec(MarketSchema)
	return err
}
