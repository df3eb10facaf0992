// Package store is the sqlite persistence layer. Articles are keyed by
// their canonical-URL hash so ingestion inserts are idempotent.
package store

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

// timeFormat is how timestamps are persisted in TEXT columns.
const timeFormat = time.RFC3339

// DB wraps a SQLite database connection.
type DB struct {
	conn *sql.DB
	path string
}

// Open creates or opens a SQLite database at the given path.
func Open(dbPath string) (*DB, error) {
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating data directory: %w", err)
	}

	conn, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	if _, err := conn.Exec("PRAGMA journal_mode=WAL"); err != nil {
		conn.Close()
		return nil, fmt.Errorf("setting journal mode: %w", err)
	}
	if _, err := conn.Exec("PRAGMA foreign_keys=ON"); err != nil {
		conn.Close()
		return nil, fmt.Errorf("enabling foreign keys: %w", err)
	}

	if err := migrate(conn); err != nil {
		conn.Close()
		return nil, fmt.Errorf("migrating schema: %w", err)
	}

	return &DB{conn: conn, path: dbPath}, nil
}

// Close closes the database connection.
func (db *DB) Close() error {
	return db.conn.Close()
}

// Path returns the database file path.
func (db *DB) Path() string {
	return db.path
}

// Stats contains aggregate database statistics.
type Stats struct {
	TotalArticles  int
	TotalSources   int
	EnabledSources int
	ErrorSources   int
	Categories     int
	RunReports     int
}

// GetStats returns aggregate counts for the status command.
func (db *DB) GetStats() (*Stats, error) {
	s := &Stats{}
	row := db.conn.QueryRow(`SELECT
		(SELECT COUNT(*) FROM articles),
		(SELECT COUNT(*) FROM sources),
		(SELECT COUNT(*) FROM sources WHERE enabled = 1),
		(SELECT COUNT(*) FROM sources WHERE status = 'error'),
		(SELECT COUNT(*) FROM categories),
		(SELECT COUNT(*) FROM run_reports)`)
	if err := row.Scan(&s.TotalArticles, &s.TotalSources, &s.EnabledSources,
		&s.ErrorSources, &s.Categories, &s.RunReports); err != nil {
		return nil, fmt.Errorf("reading stats: %w", err)
	}
	return s, nil
}

func formatTime(t *time.Time) *string {
	if t == nil {
		return nil
	}
	s := t.UTC().Format(timeFormat)
	return &s
}

func parseTime(s *string) *time.Time {
	if s == nil || *s == "" {
		return nil
	}
	t, err := time.Parse(timeFormat, *s)
	if err != nil {
		return nil
	}
	return &t
}
