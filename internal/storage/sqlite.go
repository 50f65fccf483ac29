package storage

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"
)

const objectsSchema = `
CREATE TABLE IF NOT EXISTS objects (
    name       TEXT PRIMARY KEY,
    data       BLOB NOT NULL,
    updated_at TIMESTAMP NOT NULL
);
`

// SQLiteStorage keeps objects as rows of a single SQLite table.
type SQLiteStorage struct {
	db *sqlx.DB
}

var _ StorageInterface = (*SQLiteStorage)(nil)

// NewSQLiteStorage opens the database at path and creates the schema.
func NewSQLiteStorage(path string) (*SQLiteStorage, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("create sqlite directory: %w", err)
	}

	db, err := sqlx.Open("sqlite", path+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("open sqlite %s: %w", path, err)
	}

	if _, err := db.Exec(objectsSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLiteStorage{db: db}, nil
}

func (s *SQLiteStorage) Close() error {
	return s.db.Close()
}

func (s *SQLiteStorage) Store(filename string, data []byte) error {
	_, err := s.db.Exec(`
		INSERT INTO objects (name, data, updated_at) VALUES (?, ?, ?)
		ON CONFLICT(name) DO UPDATE SET
			data = excluded.data,
			updated_at = excluded.updated_at
	`, filename, data, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("store %s: %w", filename, err)
	}
	return nil
}

func (s *SQLiteStorage) Retrieve(filename string) ([]byte, error) {
	var data []byte
	err := s.db.Get(&data, "SELECT data FROM objects WHERE name = ?", filename)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%s: %w", filename, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("retrieve %s: %w", filename, err)
	}
	return data, nil
}

func (s *SQLiteStorage) List(prefix string) ([]string, error) {
	var names []string
	err := s.db.Select(&names, "SELECT name FROM objects WHERE substr(name, 1, ?) = ? ORDER BY name", len(prefix), prefix)
	if err != nil {
		return nil, fmt.Errorf("list objects: %w", err)
	}
	return names, nil
}

func (s *SQLiteStorage) Delete(filename string) error {
	if _, err := s.db.Exec("DELETE FROM objects WHERE name = ?", filename); err != nil {
		return fmt.Errorf("delete %s: %w", filename, err)
	}
	return nil
}
