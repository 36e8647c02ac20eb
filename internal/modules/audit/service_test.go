package audit

import (
	"database/sql"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	_ "modernc.org/sqlite"
)

func setupAudit(t *testing.T) (*Service, *Repository) {
	t.Helper()

	db, err := sql.Open("sqlite", ":memory:")
	require.NoError(t, err)
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { db.Close() })

	require.NoError(t, InitSchema(db))

	repo := NewRepository(db, zerolog.Nop())
	service := NewService(repo, zerolog.Nop())
	t.Cleanup(service.Close)

	return service, repo
}

func TestService_RecordPersistsEntry(t *testing.T) {
	service, repo := setupAudit(t)

	service.Record("CreateOrder", "Order", 1, nil, map[string]interface{}{
		"status": "PENDING",
	})
	service.Close()

	logs, err := repo.ListByEntity("Order", 1, 10)
	require.NoError(t, err)
	require.Len(t, logs, 1)

	assert.Equal(t, "CreateOrder", logs[0].Action)
	assert.Empty(t, logs[0].OldValue)
	assert.JSONEq(t, `{"status":"PENDING"}`, logs[0].NewValue)
}

func TestService_RecordBeforeAndAfter(t *testing.T) {
	service, repo := setupAudit(t)

	service.Record("CancelOrder", "Order", 7,
		map[string]interface{}{"status": "PENDING"},
		map[string]interface{}{"status": "CANCELLED"},
	)
	service.Close()

	logs, err := repo.ListByEntity("Order", 7, 10)
	require.NoError(t, err)
	require.Len(t, logs, 1)

	assert.JSONEq(t, `{"status":"PENDING"}`, logs[0].OldValue)
	assert.JSONEq(t, `{"status":"CANCELLED"}`, logs[0].NewValue)
}

func TestService_ListRecentOrdering(t *testing.T) {
	service, repo := setupAudit(t)

	service.Record("CreateOrder", "Order", 1, nil, nil)
	service.Record("ExecuteTrade", "Trade", 1, nil, nil)
	service.Close()

	logs, err := repo.ListRecent(10)
	require.NoError(t, err)
	require.Len(t, logs, 2)
	// Newest first.
	assert.Equal(t, "ExecuteTrade", logs[0].Action)
}

func TestService_CloseIsIdempotent(t *testing.T) {
	service, _ := setupAudit(t)

	service.Record("CreateOrder", "Order", 1, nil, nil)
	service.Close()
	service.Close()
}
