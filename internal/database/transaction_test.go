package database

import (
	"database/sql"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// setupTestDB creates an in-memory SQLite database for testing
func setupTestDB(t *testing.T) *DB {
	db, err := New(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	_, err = db.Conn().Exec(`
		CREATE TABLE IF NOT EXISTS test_table (
			id INTEGER PRIMARY KEY,
			value TEXT NOT NULL
		)
	`)
	require.NoError(t, err)

	return db
}

func TestWithTransaction_Success(t *testing.T) {
	db := setupTestDB(t)

	var result int
	err := WithTransaction(db.Conn(), func(tx *sql.Tx) error {
		if _, err := tx.Exec("INSERT INTO test_table (value) VALUES (?)", "test-value"); err != nil {
			return err
		}
		return tx.QueryRow("SELECT COUNT(*) FROM test_table WHERE value = ?", "test-value").Scan(&result)
	})

	require.NoError(t, err)
	assert.Equal(t, 1, result, "row should be visible inside the transaction")

	var count int
	err = db.Conn().QueryRow("SELECT COUNT(*) FROM test_table WHERE value = ?", "test-value").Scan(&count)
	require.NoError(t, err)
	assert.Equal(t, 1, count, "row should persist after commit")
}

func TestWithTransaction_RollbackOnError(t *testing.T) {
	db := setupTestDB(t)

	testErr := errors.New("test error")
	err := WithTransaction(db.Conn(), func(tx *sql.Tx) error {
		if _, err := tx.Exec("INSERT INTO test_table (value) VALUES (?)", "doomed"); err != nil {
			return err
		}
		return testErr
	})

	require.Error(t, err)
	assert.True(t, errors.Is(err, testErr), "original error must be preserved through wrapping")

	var count int
	require.NoError(t, db.Conn().QueryRow("SELECT COUNT(*) FROM test_table").Scan(&count))
	assert.Equal(t, 0, count, "insert must be rolled back")
}

func TestWithTransaction_RollbackOnPanic(t *testing.T) {
	db := setupTestDB(t)

	err := WithTransaction(db.Conn(), func(tx *sql.Tx) error {
		if _, err := tx.Exec("INSERT INTO test_table (value) VALUES (?)", "doomed"); err != nil {
			return err
		}
		panic("boom")
	})

	require.Error(t, err)
	assert.Contains(t, err.Error(), "panic in transaction")

	var count int
	require.NoError(t, db.Conn().QueryRow("SELECT COUNT(*) FROM test_table").Scan(&count))
	assert.Equal(t, 0, count, "insert must be rolled back after panic")
}

func TestWithTransaction_NilDB(t *testing.T) {
	err := WithTransaction(nil, func(tx *sql.Tx) error { return nil })
	require.Error(t, err)
}
