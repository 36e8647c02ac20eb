package portfolio

import "database/sql"

// PortfolioSchema holds the position ledger
const PortfolioSchema = `
CREATE TABLE IF NOT EXISTS portfolio_positions (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    stock_id INTEGER UNIQUE NOT NULL REFERENCES stocks(id),
    quantity INTEGER NOT NULL DEFAULT 0,
    average_cost TEXT NOT NULL DEFAULT '0',
    total_cost TEXT NOT NULL DEFAULT '0',
    realized_pnl TEXT NOT NULL DEFAULT '0',
    updated_at TEXT NOT NULL
);
`

func InitSchema(db *sql.DB) error {
	_, err := db.Exec(PortfolioSchema)
	return err
}
