package store

import (
	"encoding/json"
	"fmt"

	"serendip/internal/domain"
)

// UpsertCategory inserts or replaces a category rule bundle.
func (db *DB) UpsertCategory(c domain.Category) error {
	keywords, err := marshalStrings(c.Keywords)
	if err != nil {
		return fmt.Errorf("encoding keywords: %w", err)
	}
	sourceIDs, err := marshalStrings(c.SourceIDs)
	if err != nil {
		return fmt.Errorf("encoding source ids: %w", err)
	}
	domains, err := marshalStrings(c.Domains)
	if err != nil {
		return fmt.Errorf("encoding domains: %w", err)
	}

	_, err = db.conn.Exec(
		`INSERT INTO categories (id, name, keywords, source_ids, domains, display_order)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			keywords = excluded.keywords,
			source_ids = excluded.source_ids,
			domains = excluded.domains,
			display_order = excluded.display_order`,
		c.ID, c.Name, keywords, sourceIDs, domains, c.DisplayOrder,
	)
	if err != nil {
		return fmt.Errorf("upserting category %s: %w", c.ID, err)
	}
	return nil
}

// EnsureCategory creates a rule-less category if it does not exist yet.
// INSERT OR IGNORE keyed by ID makes concurrent get-or-create calls for
// the sentinel idempotent.
func (db *DB) EnsureCategory(id, name string) error {
	_, err := db.conn.Exec(
		`INSERT OR IGNORE INTO categories (id, name, display_order) VALUES (?, ?, 9999)`,
		id, name,
	)
	if err != nil {
		return fmt.Errorf("ensuring category %s: %w", id, err)
	}
	return nil
}

// ListCategories returns all categories ordered for display.
func (db *DB) ListCategories() ([]domain.Category, error) {
	rows, err := db.conn.Query(
		`SELECT id, name, keywords, source_ids, domains, display_order
		FROM categories ORDER BY display_order, name`,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var categories []domain.Category
	for rows.Next() {
		var (
			c         domain.Category
			keywords  *string
			sourceIDs *string
			domains   *string
		)
		if err := rows.Scan(&c.ID, &c.Name, &keywords, &sourceIDs, &domains, &c.DisplayOrder); err != nil {
			return nil, err
		}
		c.Keywords = unmarshalStrings(keywords)
		c.SourceIDs = unmarshalStrings(sourceIDs)
		c.Domains = unmarshalStrings(domains)
		categories = append(categories, c)
	}
	return categories, rows.Err()
}

func unmarshalStrings(s *string) []string {
	if s == nil || *s == "" {
		return nil
	}
	var values []string
	if err := json.Unmarshal([]byte(*s), &values); err != nil {
		return nil
	}
	return values
}
