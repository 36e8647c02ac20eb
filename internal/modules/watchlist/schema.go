package watchlist

import "database/sql"

// WatchlistSchema holds the watched-stock table
const WatchlistSchema = `
CREATE TABLE IF NOT EXISTS stock_watchlist (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    stock_symbol TEXT UNIQUE NOT NULL,
    stock_name TEXT NOT NULL,
    notes TEXT NOT NULL DEFAULT '',
    created_at TEXT NOT NULL,
    updated_at TEXT NOT NULL
);
`

func InitSchema(db *sql.DB) error {
	_, err := db.Exec(WatchlistSchema)
	return err
}
