package trading

import "database/sql"

// TradingSchema holds the order book and fill history
const TradingSchema = `
CREATE TABLE IF NOT EXISTS orders (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    client_ref TEXT UNIQUE NOT NULL,
    stock_id INTEGER NOT NULL REFERENCES stocks(id),
    side TEXT NOT NULL,
    type TEXT NOT NULL,
    quantity INTEGER NOT NULL,
    price TEXT NOT NULL DEFAULT '0',
    status TEXT NOT NULL,
    commission TEXT NOT NULL DEFAULT '0',
    transaction_tax TEXT NOT NULL DEFAULT '0',
    created_at TEXT NOT NULL,
    updated_at TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_orders_status ON orders(status);
CREATE INDEX IF NOT EXISTS idx_orders_stock ON orders(stock_id);
CREATE INDEX IF NOT EXISTS idx_orders_created ON orders(created_at);

CREATE TABLE IF NOT EXISTS trades (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    order_id INTEGER NOT NULL REFERENCES orders(id),
    stock_symbol TEXT NOT NULL,
    side TEXT NOT NULL,
    quantity INTEGER NOT NULL,
    executed_price TEXT NOT NULL,
    total_amount TEXT NOT NULL,
    commission TEXT NOT NULL,
    transaction_tax TEXT NOT NULL,
    net_amount TEXT NOT NULL,
    executed_at TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_trades_symbol ON trades(stock_symbol);
CREATE INDEX IF NOT EXISTS idx_trades_executed ON trades(executed_at);
`

func InitSchema(db *sql.DB) error {
	_, err := db.Exec(TradingSchema)
	return err
}
