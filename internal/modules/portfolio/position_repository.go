package portfolio

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

// querier is satisfied by *sql.DB and *sql.Tx so ledger updates can run
// inside an order-execution transaction
type querier interface {
	Exec(query string, args ...interface{}) (sql.Result, error)
	QueryRow(query string, args ...interface{}) *sql.Row
	Query(query string, args ...interface{}) (*sql.Rows, error)
}

// PositionRepository handles position ledger database operations
type PositionRepository struct {
	db  *sql.DB
	log zerolog.Logger
}

// NewPositionRepository creates a new position repository
func NewPositionRepository(db *sql.DB, log zerolog.Logger) *PositionRepository {
	return &PositionRepository{
		db:  db,
		log: log.With().Str("repo", "position").Logger(),
	}
}

const positionColumns = "id, stock_id, quantity, average_cost, total_cost, realized_pnl, updated_at"

// Get retrieves the position for a stock. Returns nil when no row exists.
func (r *PositionRepository) Get(stockID int64) (*Position, error) {
	return r.GetTx(r.db, stockID)
}

// GetTx is Get running on the given transaction
func (r *PositionRepository) GetTx(q querier, stockID int64) (*Position, error) {
	query := fmt.Sprintf("SELECT %s FROM portfolio_positions WHERE stock_id = ?", positionColumns)

	position, err := scanPosition(q.QueryRow(query, stockID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get position: %w", err)
	}

	return position, nil
}

// UpsertTx writes a position inside the given transaction, creating the
// row on first touch
func (r *PositionRepository) UpsertTx(q querier, position *Position) error {
	query := `
		INSERT INTO portfolio_positions
		(stock_id, quantity, average_cost, total_cost, realized_pnl, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(stock_id) DO UPDATE SET
		    quantity = excluded.quantity,
		    average_cost = excluded.average_cost,
		    total_cost = excluded.total_cost,
		    realized_pnl = excluded.realized_pnl,
		    updated_at = excluded.updated_at
	`

	_, err := q.Exec(query,
		position.StockID,
		position.Quantity,
		position.AverageCost.String(),
		position.TotalCost.String(),
		position.RealizedPnL.String(),
		position.UpdatedAt.Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("failed to upsert position: %w", err)
	}

	return nil
}

// ListHeld returns positions with a non-zero quantity, joined with the
// stock catalog for display data
func (r *PositionRepository) ListHeld() ([]heldPosition, error) {
	query := `
		SELECT p.stock_id, s.symbol, s.name, p.quantity, p.average_cost,
		       p.total_cost, s.current_price
		FROM portfolio_positions p
		JOIN stocks s ON s.id = p.stock_id
		WHERE p.quantity > 0
		ORDER BY s.symbol ASC
	`

	rows, err := r.db.Query(query)
	if err != nil {
		return nil, fmt.Errorf("failed to list positions: %w", err)
	}
	defer rows.Close()

	var positions []heldPosition
	for rows.Next() {
		var (
			p       heldPosition
			avg     string
			total   string
			current string
		)
		if err := rows.Scan(&p.StockID, &p.Symbol, &p.Name, &p.Quantity, &avg, &total, &current); err != nil {
			return nil, fmt.Errorf("failed to scan position: %w", err)
		}
		if p.AverageCost, err = decimal.NewFromString(avg); err != nil {
			return nil, fmt.Errorf("invalid average_cost %q: %w", avg, err)
		}
		if p.TotalCost, err = decimal.NewFromString(total); err != nil {
			return nil, fmt.Errorf("invalid total_cost %q: %w", total, err)
		}
		if p.CurrentPrice, err = decimal.NewFromString(current); err != nil {
			return nil, fmt.Errorf("invalid current_price %q: %w", current, err)
		}
		positions = append(positions, p)
	}

	return positions, rows.Err()
}

// TotalRealizedPnL sums realized profit across all rows, including
// fully sold positions
func (r *PositionRepository) TotalRealizedPnL() (decimal.Decimal, error) {
	query := fmt.Sprintf("SELECT %s FROM portfolio_positions", positionColumns)

	rows, err := r.db.Query(query)
	if err != nil {
		return decimal.Zero, fmt.Errorf("failed to sum realized pnl: %w", err)
	}
	defer rows.Close()

	total := decimal.Zero
	for rows.Next() {
		position, err := scanPosition(rows)
		if err != nil {
			return decimal.Zero, fmt.Errorf("failed to scan position: %w", err)
		}
		total = total.Add(position.RealizedPnL)
	}

	return total, rows.Err()
}

// heldPosition is the join row behind PositionView
type heldPosition struct {
	StockID      int64
	Symbol       string
	Name         string
	Quantity     int64
	AverageCost  decimal.Decimal
	TotalCost    decimal.Decimal
	CurrentPrice decimal.Decimal
}

type scanner interface {
	Scan(dest ...interface{}) error
}

func scanPosition(row scanner) (*Position, error) {
	var (
		position  Position
		avg       string
		total     string
		realized  string
		updatedAt string
	)

	err := row.Scan(
		&position.ID, &position.StockID, &position.Quantity,
		&avg, &total, &realized, &updatedAt,
	)
	if err != nil {
		return nil, err
	}

	if position.AverageCost, err = decimal.NewFromString(avg); err != nil {
		return nil, fmt.Errorf("invalid average_cost %q: %w", avg, err)
	}
	if position.TotalCost, err = decimal.NewFromString(total); err != nil {
		return nil, fmt.Errorf("invalid total_cost %q: %w", total, err)
	}
	if position.RealizedPnL, err = decimal.NewFromString(realized); err != nil {
		return nil, fmt.Errorf("invalid realized_pnl %q: %w", realized, err)
	}
	if position.UpdatedAt, err = time.Parse(time.RFC3339, updatedAt); err != nil {
		return nil, fmt.Errorf("invalid updated_at %q: %w", updatedAt, err)
	}

	return &position, nil
}
