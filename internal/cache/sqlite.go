package cache

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"
)

// Compile-time check that Namespace implements Cache.
var _ Cache = (*Namespace)(nil)

// SQLiteStore persists cache entries in a SQLite database. Several caches
// share one database through Namespace.
type SQLiteStore struct {
	db *sql.DB
}

// OpenSQLite opens (or creates) cache.db in dataDir.
// Pass ":memory:" as dataDir for an in-memory database (used by tests).
func OpenSQLite(dataDir string) (*SQLiteStore, error) {
	var dsn string
	if dataDir == ":memory:" {
		dsn = ":memory:"
	} else {
		if err := os.MkdirAll(dataDir, 0o750); err != nil {
			return nil, fmt.Errorf("cache: creating data directory: %w", err)
		}
		dsn = filepath.Join(dataDir, "cache.db")
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("cache: opening database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("cache: pinging database: %w", err)
	}

	// Limit to single connection to avoid "database is locked" errors.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec("PRAGMA busy_timeout = 5000"); err != nil {
		db.Close()
		return nil, fmt.Errorf("cache: setting busy timeout: %w", err)
	}
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("cache: setting journal mode: %w", err)
	}

	if _, err := db.Exec(`CREATE TABLE IF NOT EXISTS cache_entries (
		namespace  TEXT NOT NULL,
		key        TEXT NOT NULL,
		value      TEXT NOT NULL,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
		PRIMARY KEY (namespace, key)
	)`); err != nil {
		db.Close()
		return nil, fmt.Errorf("cache: creating table: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

// Close closes the underlying database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// Namespace returns a Cache whose keys live under name.
func (s *SQLiteStore) Namespace(name string) *Namespace {
	return &Namespace{store: s, name: name}
}

// Namespace is one logical cache inside a SQLiteStore.
type Namespace struct {
	store *SQLiteStore
	name  string
}

// Get returns the cached value for key.
func (n *Namespace) Get(ctx context.Context, key string) (string, bool, error) {
	var value string
	err := n.store.db.QueryRowContext(ctx,
		`SELECT value FROM cache_entries WHERE namespace = ? AND key = ?`,
		n.name, key,
	).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("cache: get %s: %w", n.name, err)
	}
	return value, true, nil
}

// Put stores value under key.
func (n *Namespace) Put(ctx context.Context, key, value string) error {
	_, err := n.store.db.ExecContext(ctx,
		`INSERT INTO cache_entries (namespace, key, value) VALUES (?, ?, ?)
		 ON CONFLICT (namespace, key) DO UPDATE SET value = excluded.value`,
		n.name, key, value,
	)
	if err != nil {
		return fmt.Errorf("cache: put %s: %w", n.name, err)
	}
	return nil
}
