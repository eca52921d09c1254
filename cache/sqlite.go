package cache

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/agentic-research/brightline/api"
	_ "modernc.org/sqlite"
)

// SQLiteStore persists compiled trees in a single-table SQLite database.
type SQLiteStore struct {
	db *sql.DB
}

// OpenSQLite opens (creating if needed) the store at dbPath.
func OpenSQLite(dbPath string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite %s: %w", dbPath, err)
	}
	if _, err := db.Exec("PRAGMA journal_mode = WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("set WAL mode: %w", err)
	}

	schema := `
	CREATE TABLE IF NOT EXISTS templates (
		name TEXT PRIMARY KEY,
		num_nodes INTEGER NOT NULL,
		tree JSON NOT NULL,
		mtime INTEGER NOT NULL
	);
	`
	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}
	return &SQLiteStore{db: db}, nil
}

// Put implements Store.
func (s *SQLiteStore) Put(name string, t *api.CompiledTree) error {
	raw, err := json.Marshal(t)
	if err != nil {
		return fmt.Errorf("encode %q: %w", name, err)
	}
	_, err = s.db.Exec(
		`INSERT OR REPLACE INTO templates (name, num_nodes, tree, mtime) VALUES (?, ?, ?, ?)`,
		name, t.NumNodes, string(raw), time.Now().UnixNano(),
	)
	if err != nil {
		return fmt.Errorf("insert %q: %w", name, err)
	}
	return nil
}

// Get implements Store.
func (s *SQLiteStore) Get(name string) (*api.CompiledTree, error) {
	var raw string
	err := s.db.QueryRow(`SELECT tree FROM templates WHERE name = ?`, name).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %q", ErrNotFound, name)
	}
	if err != nil {
		return nil, fmt.Errorf("query %q: %w", name, err)
	}
	return decode(name, []byte(raw))
}

// Names implements Store.
func (s *SQLiteStore) Names() ([]string, error) {
	rows, err := s.db.Query(`SELECT name FROM templates ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("query names: %w", err)
	}
	defer func() { _ = rows.Close() }() // safe to ignore

	var names []string
	for rows.Next() {
		var n string
		if err := rows.Scan(&n); err != nil {
			return nil, fmt.Errorf("scan row: %w", err)
		}
		names = append(names, n)
	}
	return names, rows.Err()
}

// Close releases the database.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
