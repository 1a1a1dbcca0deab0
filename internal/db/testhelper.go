package db

import (
	"database/sql"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

// OpenTestSQLite returns a migrated, empty invoice store in a temp dir.
// Both pools are closed when the test ends.
func OpenTestSQLite(t testing.TB) (writeDB, readDB *sql.DB) {
	t.Helper()

	writeDB, readDB, err := OpenSQLitePair(filepath.Join(t.TempDir(), "invoices.sqlite"), defaultReadConns)
	require.NoError(t, err, "open invoice store")
	t.Cleanup(func() {
		_ = readDB.Close()
		_ = writeDB.Close()
	})
	require.NoError(t, RunMigrations(writeDB), "migrate invoice store")
	return writeDB, readDB
}
