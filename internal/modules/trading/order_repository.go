package trading

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/aristath/paper-trader/internal/domain"
)

// querier is satisfied by *sql.DB and *sql.Tx
type querier interface {
	Exec(query string, args ...interface{}) (sql.Result, error)
	QueryRow(query string, args ...interface{}) *sql.Row
	Query(query string, args ...interface{}) (*sql.Rows, error)
}

// OrderRepository handles order book database operations
type OrderRepository struct {
	db  *sql.DB
	log zerolog.Logger
}

// NewOrderRepository creates a new order repository
func NewOrderRepository(db *sql.DB, log zerolog.Logger) *OrderRepository {
	return &OrderRepository{
		db:  db,
		log: log.With().Str("repo", "order").Logger(),
	}
}

const orderColumns = `o.id, o.client_ref, o.stock_id, s.symbol, o.side, o.type,
	o.quantity, o.price, o.status, o.commission, o.transaction_tax,
	o.created_at, o.updated_at`

// CreateTx inserts a new order inside the given transaction
func (r *OrderRepository) CreateTx(q querier, order *Order) error {
	query := `
		INSERT INTO orders
		(client_ref, stock_id, side, type, quantity, price, status,
		 commission, transaction_tax, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	result, err := q.Exec(query,
		order.ClientRef,
		order.StockID,
		string(order.Side),
		string(order.Type),
		order.Quantity,
		order.Price.String(),
		string(order.Status),
		order.Commission.String(),
		order.TransactionTax.String(),
		order.CreatedAt.Format(time.RFC3339),
		order.UpdatedAt.Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("failed to create order: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get order id: %w", err)
	}
	order.ID = id

	return nil
}

// GetByID retrieves an order with its stock symbol. Returns nil when
// not found.
func (r *OrderRepository) GetByID(id int64) (*Order, error) {
	return r.GetByIDTx(r.db, id)
}

// GetByIDTx is GetByID running on the given transaction
func (r *OrderRepository) GetByIDTx(q querier, id int64) (*Order, error) {
	query := fmt.Sprintf(`
		SELECT %s FROM orders o
		JOIN stocks s ON s.id = o.stock_id
		WHERE o.id = ?
	`, orderColumns)

	order, err := scanOrder(q.QueryRow(query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get order: %w", err)
	}

	return order, nil
}

// List returns orders matching the filter, newest first
func (r *OrderRepository) List(filter OrderFilter) ([]Order, error) {
	query := fmt.Sprintf(`
		SELECT %s FROM orders o
		JOIN stocks s ON s.id = o.stock_id
		WHERE 1=1
	`, orderColumns)
	args := []interface{}{}

	if filter.Status != "" {
		query += " AND o.status = ?"
		args = append(args, string(filter.Status))
	}
	if filter.StockID != 0 {
		query += " AND o.stock_id = ?"
		args = append(args, filter.StockID)
	}
	if !filter.FromDate.IsZero() {
		query += " AND o.created_at >= ?"
		args = append(args, filter.FromDate.Format(time.RFC3339))
	}
	if !filter.ToDate.IsZero() {
		query += " AND o.created_at <= ?"
		args = append(args, filter.ToDate.Format(time.RFC3339))
	}

	query += " ORDER BY o.created_at DESC, o.id DESC"

	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list orders: %w", err)
	}
	defer rows.Close()

	var orders []Order
	for rows.Next() {
		order, err := scanOrder(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan order: %w", err)
		}
		orders = append(orders, *order)
	}

	return orders, rows.Err()
}

// pendingOrder pairs a pending order with the stock's current price
type pendingOrder struct {
	Order
	CurrentPrice decimal.Decimal
}

// ListPending returns pending orders with the latest quoted price,
// oldest first so earlier submissions fill first
func (r *OrderRepository) ListPending(stockID int64) ([]pendingOrder, error) {
	query := fmt.Sprintf(`
		SELECT %s, s.current_price FROM orders o
		JOIN stocks s ON s.id = o.stock_id
		WHERE o.status = ?
	`, orderColumns)
	args := []interface{}{string(domain.OrderStatusPending)}

	if stockID != 0 {
		query += " AND o.stock_id = ?"
		args = append(args, stockID)
	}

	query += " ORDER BY o.created_at ASC, o.id ASC"

	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list pending orders: %w", err)
	}
	defer rows.Close()

	var pending []pendingOrder
	for rows.Next() {
		var (
			p       pendingOrder
			current string
		)
		if err := scanOrderInto(rows, &p.Order, &current); err != nil {
			return nil, fmt.Errorf("failed to scan pending order: %w", err)
		}
		if p.CurrentPrice, err = decimal.NewFromString(current); err != nil {
			return nil, fmt.Errorf("invalid current_price %q: %w", current, err)
		}
		pending = append(pending, p)
	}

	return pending, rows.Err()
}

// MarkExecutedTx flags a pending order as executed and records its
// costs inside the given transaction
func (r *OrderRepository) MarkExecutedTx(q querier, orderID int64, commission, tax decimal.Decimal) error {
	query := `
		UPDATE orders
		SET status = ?, commission = ?, transaction_tax = ?, updated_at = ?
		WHERE id = ? AND status = ?
	`

	result, err := q.Exec(query,
		string(domain.OrderStatusExecuted),
		commission.String(),
		tax.String(),
		time.Now().UTC().Format(time.RFC3339),
		orderID,
		string(domain.OrderStatusPending),
	)
	if err != nil {
		return fmt.Errorf("failed to mark order executed: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check order update: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("order %d is not pending", orderID)
	}

	return nil
}

// Cancel moves a pending order to cancelled. Reports whether a row
// changed so the caller can distinguish an already-settled order.
func (r *OrderRepository) Cancel(orderID int64) (bool, error) {
	query := `
		UPDATE orders
		SET status = ?, updated_at = ?
		WHERE id = ? AND status = ?
	`

	result, err := r.db.Exec(query,
		string(domain.OrderStatusCancelled),
		time.Now().UTC().Format(time.RFC3339),
		orderID,
		string(domain.OrderStatusPending),
	)
	if err != nil {
		return false, fmt.Errorf("failed to cancel order: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to check order cancel: %w", err)
	}

	return affected > 0, nil
}

// HasRecentShape reports whether an order with the same stock, side,
// type and quantity was created at or after the cutoff
func (r *OrderRepository) HasRecentShape(stockID int64, side domain.Side, orderType domain.OrderType, quantity int64, cutoff time.Time) (bool, error) {
	query := `
		SELECT 1 FROM orders
		WHERE stock_id = ? AND side = ? AND type = ? AND quantity = ?
		  AND created_at >= ?
		LIMIT 1
	`

	var one int
	err := r.db.QueryRow(query,
		stockID, string(side), string(orderType), quantity,
		cutoff.Format(time.RFC3339),
	).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to check duplicate order: %w", err)
	}

	return true, nil
}

type scanner interface {
	Scan(dest ...interface{}) error
}

func scanOrder(row scanner) (*Order, error) {
	var order Order
	if err := scanOrderInto(row, &order); err != nil {
		return nil, err
	}
	return &order, nil
}

// scanOrderInto scans the order columns plus any extra destinations
// appended to the select list
func scanOrderInto(row scanner, order *Order, extra ...interface{}) error {
	var (
		side      string
		orderType string
		status    string
		price     string
		comm      string
		tax       string
		createdAt string
		updatedAt string
	)

	dest := []interface{}{
		&order.ID, &order.ClientRef, &order.StockID, &order.Symbol,
		&side, &orderType, &order.Quantity, &price, &status,
		&comm, &tax, &createdAt, &updatedAt,
	}
	dest = append(dest, extra...)

	if err := row.Scan(dest...); err != nil {
		return err
	}

	order.Side = domain.Side(side)
	order.Type = domain.OrderType(orderType)
	order.Status = domain.OrderStatus(status)

	var err error
	if order.Price, err = decimal.NewFromString(price); err != nil {
		return fmt.Errorf("invalid price %q: %w", price, err)
	}
	if order.Commission, err = decimal.NewFromString(comm); err != nil {
		return fmt.Errorf("invalid commission %q: %w", comm, err)
	}
	if order.TransactionTax, err = decimal.NewFromString(tax); err != nil {
		return fmt.Errorf("invalid transaction_tax %q: %w", tax, err)
	}
	if order.CreatedAt, err = time.Parse(time.RFC3339, createdAt); err != nil {
		return fmt.Errorf("invalid created_at %q: %w", createdAt, err)
	}
	if order.UpdatedAt, err = time.Parse(time.RFC3339, updatedAt); err != nil {
		return fmt.Errorf("invalid updated_at %q: %w", updatedAt, err)
	}

	return nil
}
