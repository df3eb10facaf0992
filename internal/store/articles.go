package store

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"serendip/internal/domain"
)

// InsertArticleIfAbsent inserts an article keyed by its canonical-URL
// hash. An existing ID (or URL) is a no-op, not an overwrite and not an
// error. Returns whether a row was actually inserted.
func (db *DB) InsertArticleIfAbsent(a domain.Article) (bool, error) {
	categories, err := marshalStrings(a.Categories)
	if err != nil {
		return false, fmt.Errorf("encoding categories: %w", err)
	}

	res, err := db.conn.Exec(
		`INSERT OR IGNORE INTO articles
		(id, title, url, source_id, source_name, summary, author, published_at, image_url, fetched_at, categories)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		a.ID, a.Title, a.URL, a.SourceID, a.SourceName, a.Summary, a.Author,
		formatTime(a.PublishedAt), a.ImageURL, a.FetchedAt.UTC().Format(timeFormat), categories,
	)
	if err != nil {
		return false, fmt.Errorf("inserting article %s: %w", a.ID, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// GetArticle returns one article by ID, or nil when absent.
func (db *DB) GetArticle(id string) (*domain.Article, error) {
	row := db.conn.QueryRow(articleSelect+" WHERE id = ?", id)
	a, err := scanArticle(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return a, nil
}

// ArticlesFetchedSince returns articles fetched at or after the cutoff,
// newest first. limit <= 0 means no limit.
func (db *DB) ArticlesFetchedSince(cutoff time.Time, limit int) ([]domain.Article, error) {
	query := articleSelect + " WHERE fetched_at >= ? ORDER BY fetched_at DESC"
	args := []any{cutoff.UTC().Format(timeFormat)}
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := db.conn.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var articles []domain.Article
	for rows.Next() {
		a, err := scanArticle(rows)
		if err != nil {
			return nil, err
		}
		articles = append(articles, *a)
	}
	return articles, rows.Err()
}

// DeleteArticlesOlderThan removes articles whose fetch timestamp is
// before the cutoff. Returns the number of rows deleted.
func (db *DB) DeleteArticlesOlderThan(cutoff time.Time) (int64, error) {
	res, err := db.conn.Exec(
		"DELETE FROM articles WHERE fetched_at < ?",
		cutoff.UTC().Format(timeFormat),
	)
	if err != nil {
		return 0, fmt.Errorf("deleting old articles: %w", err)
	}
	return res.RowsAffected()
}

const articleSelect = `SELECT id, title, url, source_id, source_name, summary,
	author, published_at, image_url, fetched_at, categories FROM articles`

func scanArticle(row rowScanner) (*domain.Article, error) {
	var (
		a           domain.Article
		publishedAt sql.NullString
		fetchedAt   string
		categories  sql.NullString
	)
	if err := row.Scan(&a.ID, &a.Title, &a.URL, &a.SourceID, &a.SourceName,
		&a.Summary, &a.Author, &publishedAt, &a.ImageURL, &fetchedAt, &categories); err != nil {
		return nil, err
	}
	if publishedAt.Valid {
		a.PublishedAt = parseTime(&publishedAt.String)
	}
	if t := parseTime(&fetchedAt); t != nil {
		a.FetchedAt = *t
	}
	if categories.Valid && categories.String != "" {
		_ = json.Unmarshal([]byte(categories.String), &a.Categories)
	}
	return &a, nil
}

func marshalStrings(values []string) (*string, error) {
	if len(values) == 0 {
		return nil, nil
	}
	data, err := json.Marshal(values)
	if err != nil {
		return nil, err
	}
	s := string(data)
	return &s, nil
}
