package audit

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/rs/zerolog"
)

// Repository handles audit log database operations
type Repository struct {
	db  *sql.DB
	log zerolog.Logger
}

// NewRepository creates a new audit repository
func NewRepository(db *sql.DB, log zerolog.Logger) *Repository {
	return &Repository{
		db:  db,
		log: log.With().Str("repo", "audit").Logger(),
	}
}

// Create appends one audit entry
func (r *Repository) Create(entry *Log) error {
	query := `
		INSERT INTO audit_logs (action, entity_type, entity_id, old_value, new_value, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`

	result, err := r.db.Exec(query,
		entry.Action,
		entry.EntityType,
		entry.EntityID,
		nullString(entry.OldValue),
		nullString(entry.NewValue),
		entry.CreatedAt.Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("failed to create audit log: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get audit log id: %w", err)
	}
	entry.ID = id

	return nil
}

// ListByEntity returns entries for one entity, newest first
func (r *Repository) ListByEntity(entityType string, entityID int64, limit int) ([]Log, error) {
	if limit <= 0 {
		limit = 100
	}

	query := `
		SELECT id, action, entity_type, entity_id,
		       COALESCE(old_value, ''), COALESCE(new_value, ''), created_at
		FROM audit_logs
		WHERE entity_type = ? AND entity_id = ?
		ORDER BY created_at DESC, id DESC
		LIMIT ?
	`

	rows, err := r.db.Query(query, entityType, entityID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list audit logs: %w", err)
	}
	defer rows.Close()

	return scanLogs(rows)
}

// ListRecent returns the latest entries across all entities
func (r *Repository) ListRecent(limit int) ([]Log, error) {
	if limit <= 0 {
		limit = 100
	}

	query := `
		SELECT id, action, entity_type, entity_id,
		       COALESCE(old_value, ''), COALESCE(new_value, ''), created_at
		FROM audit_logs
		ORDER BY created_at DESC, id DESC
		LIMIT ?
	`

	rows, err := r.db.Query(query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list audit logs: %w", err)
	}
	defer rows.Close()

	return scanLogs(rows)
}

func scanLogs(rows *sql.Rows) ([]Log, error) {
	var logs []Log
	for rows.Next() {
		var (
			entry     Log
			createdAt string
		)
		err := rows.Scan(&entry.ID, &entry.Action, &entry.EntityType, &entry.EntityID,
			&entry.OldValue, &entry.NewValue, &createdAt)
		if err != nil {
			return nil, fmt.Errorf("failed to scan audit log: %w", err)
		}
		if entry.CreatedAt, err = time.Parse(time.RFC3339, createdAt); err != nil {
			return nil, fmt.Errorf("invalid created_at %q: %w", createdAt, err)
		}
		logs = append(logs, entry)
	}

	return logs, rows.Err()
}

func nullString(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}
