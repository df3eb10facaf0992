// Package categorize assigns category identifiers to articles using
// keyword, source and domain rules, with an always-present sentinel
// fallback.
package categorize

import (
	"log"
	"net/url"
	"strings"

	"serendip/internal/domain"
)

// SentinelStore is the minimal store surface needed to get-or-create
// the sentinel category. EnsureCategory must be idempotent under
// concurrent calls.
type SentinelStore interface {
	EnsureCategory(id, name string) error
}

// Categorizer applies a category rule set to articles.
type Categorizer struct {
	store SentinelStore
}

// New creates a Categorizer backed by the given store.
func New(store SentinelStore) *Categorizer {
	return &Categorizer{store: store}
}

// Categorize returns the IDs of all matching categories, or the
// sentinel when nothing matches. Any internal fault degrades to the
// sentinel rather than failing the article; if even the sentinel cannot
// be obtained, the result is empty as a last resort.
func (c *Categorizer) Categorize(article domain.Article, categories []domain.Category) (ids []string) {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("categorize panic for %s: %v", article.URL, r)
			ids = c.sentinel()
		}
	}()

	if matched := Match(article, categories); len(matched) > 0 {
		return matched
	}
	return c.sentinel()
}

func (c *Categorizer) sentinel() []string {
	if err := c.store.EnsureCategory(domain.UncategorizedID, "Uncategorized"); err != nil {
		log.Printf("ensuring sentinel category: %v", err)
		return []string{}
	}
	return []string{domain.UncategorizedID}
}

// Match returns the IDs of all non-sentinel categories the article
// matches. A category matches when any keyword appears in the
// title+summary haystack, or the article's source is allowlisted, or
// the article URL's hostname contains a configured domain substring.
func Match(article domain.Article, categories []domain.Category) []string {
	haystack := strings.ToLower(article.Title + " " + article.Summary)

	// A malformed article URL only disables the domain check.
	var hostname string
	if u, err := url.Parse(article.URL); err == nil {
		hostname = strings.ToLower(u.Hostname())
	}

	var matched []string
	for _, cat := range categories {
		if cat.ID == domain.UncategorizedID {
			continue
		}
		if matches(cat, haystack, article.SourceID, hostname) {
			matched = append(matched, cat.ID)
		}
	}
	return matched
}

func matches(cat domain.Category, haystack, sourceID, hostname string) bool {
	for _, kw := range cat.Keywords {
		kw = strings.ToLower(strings.TrimSpace(kw))
		if kw != "" && strings.Contains(haystack, kw) {
			return true
		}
	}
	for _, sid := range cat.SourceIDs {
		if sid != "" && sid == sourceID {
			return true
		}
	}
	if hostname != "" {
		for _, dom := range cat.Domains {
			dom = strings.ToLower(strings.TrimSpace(dom))
			if dom != "" && strings.Contains(hostname, dom) {
				return true
			}
		}
	}
	return false
}
