// Package db opens the SQLite invoice store and keeps its schema current.
package db

import (
	"context"
	"database/sql"
	"fmt"
	"net/url"
	"time"

	_ "github.com/mattn/go-sqlite3" // sqlite3 driver
)

// Mode selects how a pool is sized and locked.
type Mode string

// Pool modes.
const (
	ModeRead  Mode = "read"
	ModeWrite Mode = "write"
)

const (
	defaultReadConns = 4
	pingTimeout      = 5 * time.Second
)

// pragmas applied to every connection through the DSN.
var pragmas = map[string]string{
	"_journal_mode": "WAL",
	"_busy_timeout": "5000",
	"_synchronous":  "NORMAL",
	"_foreign_keys": "on",
}

// OpenSQLite opens a pool on the SQLite file at path. The write pool holds a
// single connection and starts transactions with BEGIN IMMEDIATE so seeding
// never deadlocks on lock upgrades. The read pool allows maxOpen concurrent
// connections (defaultReadConns when maxOpen <= 0), which lets dashboard
// panels query in parallel under WAL.
func OpenSQLite(path string, mode Mode, maxOpen int) (*sql.DB, error) {
	var conns int
	switch mode {
	case ModeWrite:
		conns = 1
	case ModeRead:
		conns = maxOpen
		if conns <= 0 {
			conns = defaultReadConns
		}
	default:
		return nil, fmt.Errorf("invalid SQLite mode %q: want %q or %q", mode, ModeRead, ModeWrite)
	}

	pool, err := sql.Open("sqlite3", buildDSN(path, mode))
	if err != nil {
		return nil, fmt.Errorf("open sqlite %s pool: %w", mode, err)
	}
	pool.SetMaxOpenConns(conns)
	pool.SetMaxIdleConns(conns)
	pool.SetConnMaxLifetime(time.Hour)

	ctx, cancel := context.WithTimeout(context.Background(), pingTimeout)
	defer cancel()
	if err := pool.PingContext(ctx); err != nil {
		_ = pool.Close()
		return nil, fmt.Errorf("ping sqlite %s pool at %s: %w", mode, path, err)
	}
	return pool, nil
}

// OpenSQLitePair opens the write and read pools the server runs on.
func OpenSQLitePair(path string, readMaxOpen int) (writeDB, readDB *sql.DB, err error) {
	if writeDB, err = OpenSQLite(path, ModeWrite, 0); err != nil {
		return nil, nil, err
	}
	if readDB, err = OpenSQLite(path, ModeRead, readMaxOpen); err != nil {
		_ = writeDB.Close()
		return nil, nil, err
	}
	return writeDB, readDB, nil
}

func buildDSN(path string, mode Mode) string {
	q := url.Values{}
	for k, v := range pragmas {
		q.Set(k, v)
	}
	if mode == ModeWrite {
		q.Set("_txlock", "immediate")
	}
	return path + "?" + q.Encode()
}
