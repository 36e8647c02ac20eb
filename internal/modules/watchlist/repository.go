package watchlist

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// ErrAlreadyWatched is returned when the symbol is on the list already
var ErrAlreadyWatched = errors.New("stock is already on the watchlist")

// Repository handles watchlist database operations
type Repository struct {
	db  *sql.DB
	log zerolog.Logger
}

// NewRepository creates a new watchlist repository
func NewRepository(db *sql.DB, log zerolog.Logger) *Repository {
	return &Repository{
		db:  db,
		log: log.With().Str("repo", "watchlist").Logger(),
	}
}

// Add puts a stock on the watchlist
func (r *Repository) Add(entry *Entry) error {
	now := time.Now().UTC()
	entry.CreatedAt = now
	entry.UpdatedAt = now
	entry.StockSymbol = strings.ToUpper(strings.TrimSpace(entry.StockSymbol))

	query := `
		INSERT INTO stock_watchlist (stock_symbol, stock_name, notes, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?)
	`

	result, err := r.db.Exec(query,
		entry.StockSymbol,
		entry.StockName,
		entry.Notes,
		now.Format(time.RFC3339),
		now.Format(time.RFC3339),
	)
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint failed") {
			return ErrAlreadyWatched
		}
		return fmt.Errorf("failed to add watchlist entry: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get watchlist entry id: %w", err)
	}
	entry.ID = id

	return nil
}

// List returns all watched stocks, most recently added first
func (r *Repository) List() ([]Entry, error) {
	query := `
		SELECT id, stock_symbol, stock_name, notes, created_at, updated_at
		FROM stock_watchlist
		ORDER BY created_at DESC, id DESC
	`

	rows, err := r.db.Query(query)
	if err != nil {
		return nil, fmt.Errorf("failed to list watchlist: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var (
			entry     Entry
			createdAt string
			updatedAt string
		)
		if err := rows.Scan(&entry.ID, &entry.StockSymbol, &entry.StockName, &entry.Notes, &createdAt, &updatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan watchlist entry: %w", err)
		}
		if entry.CreatedAt, err = time.Parse(time.RFC3339, createdAt); err != nil {
			return nil, fmt.Errorf("invalid created_at %q: %w", createdAt, err)
		}
		if entry.UpdatedAt, err = time.Parse(time.RFC3339, updatedAt); err != nil {
			return nil, fmt.Errorf("invalid updated_at %q: %w", updatedAt, err)
		}
		entries = append(entries, entry)
	}

	return entries, rows.Err()
}

// UpdateNotes replaces the notes for a watched stock. Reports whether
// the entry existed.
func (r *Repository) UpdateNotes(id int64, notes string) (bool, error) {
	query := "UPDATE stock_watchlist SET notes = ?, updated_at = ? WHERE id = ?"

	result, err := r.db.Exec(query, notes, time.Now().UTC().Format(time.RFC3339), id)
	if err != nil {
		return false, fmt.Errorf("failed to update watchlist notes: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to check watchlist update: %w", err)
	}

	return affected > 0, nil
}

// Remove takes a stock off the watchlist. Reports whether the entry
// existed.
func (r *Repository) Remove(id int64) (bool, error) {
	result, err := r.db.Exec("DELETE FROM stock_watchlist WHERE id = ?", id)
	if err != nil {
		return false, fmt.Errorf("failed to remove watchlist entry: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to check watchlist removal: %w", err)
	}

	return affected > 0, nil
}
