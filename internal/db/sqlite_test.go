package db

import (
	"net/url"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildDSN(t *testing.T) {
	for _, mode := range []Mode{ModeRead, ModeWrite} {
		t.Run(string(mode), func(t *testing.T) {
			path, rawQuery, ok := strings.Cut(buildDSN("/data/invoices.sqlite", mode), "?")
			require.True(t, ok)
			assert.Equal(t, "/data/invoices.sqlite", path)

			q, err := url.ParseQuery(rawQuery)
			require.NoError(t, err)
			for k, v := range pragmas {
				assert.Equal(t, v, q.Get(k), k)
			}
			if mode == ModeWrite {
				assert.Equal(t, "immediate", q.Get("_txlock"))
			} else {
				assert.False(t, q.Has("_txlock"))
			}
		})
	}
}

func TestOpenSQLite_Pools(t *testing.T) {
	dir := t.TempDir()

	w, err := OpenSQLite(filepath.Join(dir, "a.sqlite"), ModeWrite, 8)
	require.NoError(t, err)
	t.Cleanup(func() { _ = w.Close() })
	assert.Equal(t, 1, w.Stats().MaxOpenConnections, "write pool ignores maxOpen")

	var journal string
	var busy, fk int
	require.NoError(t, w.QueryRow("PRAGMA journal_mode").Scan(&journal))
	require.NoError(t, w.QueryRow("PRAGMA busy_timeout").Scan(&busy))
	require.NoError(t, w.QueryRow("PRAGMA foreign_keys").Scan(&fk))
	assert.Equal(t, "wal", strings.ToLower(journal))
	assert.Equal(t, 5000, busy)
	assert.Equal(t, 1, fk)

	r, err := OpenSQLite(filepath.Join(dir, "a.sqlite"), ModeRead, 0)
	require.NoError(t, err)
	t.Cleanup(func() { _ = r.Close() })
	assert.Equal(t, defaultReadConns, r.Stats().MaxOpenConnections)
}

func TestOpenSQLite_Errors(t *testing.T) {
	_, err := OpenSQLite(filepath.Join(t.TempDir(), "x.sqlite"), Mode("append"), 0)
	assert.ErrorContains(t, err, `invalid SQLite mode "append"`)

	_, err = OpenSQLite("/does/not/exist/x.sqlite", ModeWrite, 0)
	assert.ErrorContains(t, err, "ping sqlite write pool")

	_, _, err = OpenSQLitePair("/does/not/exist/x.sqlite", 2)
	assert.Error(t, err)
}

func TestRunMigrations(t *testing.T) {
	w, r := OpenTestSQLite(t)

	rows, err := r.Query(`SELECT name FROM sqlite_master WHERE type = 'table'`)
	require.NoError(t, err)
	var tables []string
	for rows.Next() {
		var name string
		require.NoError(t, rows.Scan(&name))
		tables = append(tables, name)
	}
	require.NoError(t, rows.Err())
	require.NoError(t, rows.Close())
	assert.Subset(t, tables, []string{"vendors", "customers", "payments", "invoices", "line_items", "files"})

	v, err := SchemaVersion(r)
	require.NoError(t, err)
	assert.Equal(t, int64(1), v)

	require.NoError(t, RunMigrations(w), "already current")
	v, err = SchemaVersion(w)
	require.NoError(t, err)
	assert.Equal(t, int64(1), v)
}

// Seeding writes go through the single write connection while dashboard
// reads run on the read pool at the same time.
func TestOpenSQLitePair_WritesAndReadsConcurrently(t *testing.T) {
	w, r := OpenTestSQLite(t)
	const n = 16

	var wg sync.WaitGroup
	errs := make(chan error, 2*n)
	for range n {
		wg.Add(2)
		go func() {
			defer wg.Done()
			_, err := w.Exec(`INSERT INTO vendors (vendor_name) VALUES ('Acme GmbH')`)
			errs <- err
		}()
		go func() {
			defer wg.Done()
			var c int
			errs <- r.QueryRow(`SELECT count(*) FROM vendors`).Scan(&c)
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		require.NoError(t, err)
	}

	var c int
	require.NoError(t, r.QueryRow(`SELECT count(*) FROM vendors`).Scan(&c))
	assert.Equal(t, n, c)
}
