package store

import (
	"database/sql"
	"encoding/json"
	"fmt"

	"serendip/internal/domain"
)

// UpsertSource inserts a source or updates its configuration fields.
// Health columns are preserved on update: config owns identity and
// rules, the health tracker owns the rest.
func (db *DB) UpsertSource(s domain.Source) error {
	selectors, err := marshalSelectors(s.Selectors)
	if err != nil {
		return fmt.Errorf("encoding selectors for %s: %w", s.ID, err)
	}

	_, err = db.conn.Exec(
		`INSERT INTO sources (id, name, url, strategy, selectors, enabled, category, frequency, priority, status)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, 'active')
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			url = excluded.url,
			strategy = excluded.strategy,
			selectors = excluded.selectors,
			enabled = excluded.enabled,
			category = excluded.category,
			frequency = excluded.frequency,
			priority = excluded.priority`,
		s.ID, s.Name, s.URL, string(s.Strategy), selectors, boolInt(s.Enabled),
		s.Category, string(s.Frequency), s.Priority,
	)
	if err != nil {
		return fmt.Errorf("upserting source %s: %w", s.ID, err)
	}
	return nil
}

// GetSource returns one source by ID, or nil when absent.
func (db *DB) GetSource(id string) (*domain.Source, error) {
	row := db.conn.QueryRow(sourceSelect+" WHERE id = ?", id)
	s, err := scanSource(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return s, nil
}

// ListSources returns all sources ordered by priority then name.
func (db *DB) ListSources() ([]domain.Source, error) {
	rows, err := db.conn.Query(sourceSelect + " ORDER BY priority, name")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var sources []domain.Source
	for rows.Next() {
		s, err := scanSource(rows)
		if err != nil {
			return nil, err
		}
		sources = append(sources, *s)
	}
	return sources, rows.Err()
}

// SetSourceEnabled flips the operator-owned enabled flag.
func (db *DB) SetSourceEnabled(id string, enabled bool) error {
	res, err := db.conn.Exec("UPDATE sources SET enabled = ? WHERE id = ?", boolInt(enabled), id)
	if err != nil {
		return fmt.Errorf("updating source %s: %w", id, err)
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return fmt.Errorf("source %s not found", id)
	}
	return nil
}

// ApplySourceHealth writes all health columns of one source in a single
// UPDATE so the transition is atomic even when the store is shared.
func (db *DB) ApplySourceHealth(s domain.Source) error {
	_, err := db.conn.Exec(
		`UPDATE sources SET
			last_fetched_at = ?,
			last_success_at = ?,
			consecutive_failures = ?,
			status = ?,
			error_message = ?,
			total_articles = ?,
			avg_articles = ?
		WHERE id = ?`,
		formatTime(s.LastFetchedAt), formatTime(s.LastSuccessAt),
		s.ConsecutiveFailures, string(s.Status), s.ErrorMessage,
		s.TotalArticles, s.AvgArticles, s.ID,
	)
	if err != nil {
		return fmt.Errorf("updating health for %s: %w", s.ID, err)
	}
	return nil
}

const sourceSelect = `SELECT id, name, url, strategy, selectors, enabled, category,
	frequency, priority, last_fetched_at, last_success_at, consecutive_failures,
	status, error_message, total_articles, avg_articles FROM sources`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSource(row rowScanner) (*domain.Source, error) {
	var (
		s          domain.Source
		selectors  sql.NullString
		category   sql.NullString
		enabled    int
		fetchedAt  sql.NullString
		successAt  sql.NullString
	)
	if err := row.Scan(&s.ID, &s.Name, &s.URL, (*string)(&s.Strategy), &selectors,
		&enabled, &category, (*string)(&s.Frequency), &s.Priority,
		&fetchedAt, &successAt, &s.ConsecutiveFailures, (*string)(&s.Status),
		&s.ErrorMessage, &s.TotalArticles, &s.AvgArticles); err != nil {
		return nil, err
	}
	s.Enabled = enabled != 0
	s.Category = category.String
	if selectors.Valid && selectors.String != "" {
		var sel domain.Selectors
		if err := json.Unmarshal([]byte(selectors.String), &sel); err == nil {
			s.Selectors = &sel
		}
	}
	if fetchedAt.Valid {
		s.LastFetchedAt = parseTime(&fetchedAt.String)
	}
	if successAt.Valid {
		s.LastSuccessAt = parseTime(&successAt.String)
	}
	return &s, nil
}

func marshalSelectors(sel *domain.Selectors) (*string, error) {
	if sel == nil {
		return nil, nil
	}
	data, err := json.Marshal(sel)
	if err != nil {
		return nil, err
	}
	s := string(data)
	return &s, nil
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
