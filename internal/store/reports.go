package store

import (
	"encoding/json"
	"fmt"

	"serendip/internal/domain"
)

// InsertRunReport appends one run report and returns its ID.
func (db *DB) InsertRunReport(r domain.RunReport) (int64, error) {
	results, err := json.Marshal(r.Results)
	if err != nil {
		return 0, fmt.Errorf("encoding run results: %w", err)
	}

	res, err := db.conn.Exec(
		`INSERT INTO run_reports (started_at, sources_attempted, articles_added, error_count, results)
		VALUES (?, ?, ?, ?, ?)`,
		r.StartedAt.UTC().Format(timeFormat), r.SourcesAttempted, r.ArticlesAdded,
		r.ErrorCount, string(results),
	)
	if err != nil {
		return 0, fmt.Errorf("inserting run report: %w", err)
	}
	return res.LastInsertId()
}

// ListRunReports returns the most recent run reports, newest first.
func (db *DB) ListRunReports(limit int) ([]domain.RunReport, error) {
	query := `SELECT id, started_at, sources_attempted, articles_added, error_count, results
		FROM run_reports ORDER BY started_at DESC, id DESC`
	var args []any
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := db.conn.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var reports []domain.RunReport
	for rows.Next() {
		var (
			r       domain.RunReport
			started string
			results *string
		)
		if err := rows.Scan(&r.ID, &started, &r.SourcesAttempted, &r.ArticlesAdded,
			&r.ErrorCount, &results); err != nil {
			return nil, err
		}
		if t := parseTime(&started); t != nil {
			r.StartedAt = *t
		}
		if results != nil && *results != "" {
			_ = json.Unmarshal([]byte(*results), &r.Results)
		}
		reports = append(reports, r)
	}
	return reports, rows.Err()
}
