package database

import (
	"database/sql"
	"testing"

	"daily365_bot/internal/infra/config"

	"github.com/stretchr/testify/require"
)

// setupTestDB creates a migrated in-memory SQLite database for testing.
func setupTestDB(t *testing.T) *sql.DB {
	t.Helper()

	db, err := NewSQLiteConnection(":memory:")
	require.NoError(t, err, "Failed to create test database")

	err = Migrate(db, config.DriverSQLite)
	require.NoError(t, err, "Failed to run migrations on test database")

	t.Cleanup(func() {
		require.NoError(t, db.Close(), "Failed to close test database")
	})
	return db
}
