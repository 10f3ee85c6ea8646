package cache

import (
	"database/sql"
	"fmt"

	_ "github.com/mattn/go-sqlite3"
)

// SQLStore is a SQLite-backed Store. Each cache gets its own table in a
// shared database file, selected by CACHE_BACKEND=sqlite. WAL mode keeps
// concurrent request handlers from tripping over each other.
type SQLStore struct {
	db    *sql.DB
	table string
}

// NewSQLStore opens (or creates) the database at path and ensures the
// table for this cache exists. The table name must be a trusted constant;
// it is interpolated into DDL.
func NewSQLStore(path, table string) (*SQLStore, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("open cache db: %w", err)
	}

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enable WAL mode: %w", err)
	}
	if _, err := db.Exec("PRAGMA busy_timeout=5000"); err != nil {
		db.Close()
		return nil, fmt.Errorf("set busy timeout: %w", err)
	}

	schema := fmt.Sprintf(`
	CREATE TABLE IF NOT EXISTS %s (
		key TEXT PRIMARY KEY,
		data BLOB NOT NULL,
		updated_at INTEGER NOT NULL DEFAULT (strftime('%%s', 'now'))
	)`, table)
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("create cache table %s: %w", table, err)
	}

	return &SQLStore{db: db, table: table}, nil
}

// Get reads the entry for key.
func (s *SQLStore) Get(key string) ([]byte, error) {
	var data []byte
	query := fmt.Sprintf("SELECT data FROM %s WHERE key = ?", s.table)
	err := s.db.QueryRow(query, key).Scan(&data)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNotFound, err)
	}
	return data, nil
}

// Put upserts the entry for key.
func (s *SQLStore) Put(key string, data []byte) error {
	query := fmt.Sprintf(`
	INSERT INTO %s (key, data, updated_at) VALUES (?, ?, strftime('%%s', 'now'))
	ON CONFLICT(key) DO UPDATE SET data = excluded.data, updated_at = excluded.updated_at`, s.table)
	_, err := s.db.Exec(query, key, data)
	return err
}

// Delete removes the entry for key. Missing entries are a no-op.
func (s *SQLStore) Delete(key string) error {
	query := fmt.Sprintf("DELETE FROM %s WHERE key = ?", s.table)
	_, err := s.db.Exec(query, key)
	return err
}

// Keys lists all entry keys currently present.
func (s *SQLStore) Keys() ([]string, error) {
	query := fmt.Sprintf("SELECT key FROM %s", s.table)
	rows, err := s.db.Query(query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var keys []string
	for rows.Next() {
		var key string
		if err := rows.Scan(&key); err != nil {
			return nil, err
		}
		keys = append(keys, key)
	}
	return keys, rows.Err()
}

// Close releases the underlying database handle.
func (s *SQLStore) Close() error {
	return s.db.Close()
}
