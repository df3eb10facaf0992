// Package normalize converts raw records into canonical articles:
// field fallback, text cleaning, URL canonicalization, permissive date
// parsing, and the deterministic content identifier used for dedup.
package normalize

import (
	"crypto/sha256"
	"encoding/hex"
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/araddon/dateparse"

	"serendip/internal/domain"
)

// feedSuffix strips trailing feed branding like " - RSS" from titles.
var feedSuffix = regexp.MustCompile(`(?i)\s*[-–—|:]\s*rss(\s+feed)?\s*$`)

// strict formats tried before falling back to the lenient parser.
var strictFormats = []string{
	time.RFC3339,
	time.RFC1123Z,
	time.RFC1123,
	"2006-01-02",
}

// Normalize converts a raw record into a canonical Article, or nil when
// the record lacks both a usable title and a usable URL. Those are the
// only rejection conditions; everything else degrades to empty or
// optional fields.
func Normalize(raw domain.RawRecord, src domain.Source, fetchedAt time.Time) *domain.Article {
	title := raw.Title
	if title == "" {
		title = raw.Headline
	}
	rawURL := raw.Link
	if rawURL == "" {
		rawURL = raw.URL
	}

	title = CleanText(title)
	rawURL = strings.TrimSpace(rawURL)
	if title == "" || rawURL == "" {
		return nil
	}
	title = feedSuffix.ReplaceAllString(title, "")

	canonical := ResolveURL(rawURL, src.URL)

	summary := raw.Summary
	if summary == "" {
		summary = raw.Description
	}

	var image string
	if raw.Image != "" {
		image = ResolveURL(strings.TrimSpace(raw.Image), src.URL)
	}

	return &domain.Article{
		ID:          ArticleID(canonical),
		Title:       title,
		URL:         canonical,
		SourceID:    src.ID,
		SourceName:  src.Name,
		Summary:     CleanText(summary),
		Author:      CleanText(raw.Author),
		PublishedAt: ParseDate(raw.Published),
		ImageURL:    image,
		FetchedAt:   fetchedAt,
	}
}

// ArticleID is the dedup key: a deterministic hash of the canonical URL.
// The same URL always yields the same ID, across runs and strategies.
func ArticleID(canonicalURL string) string {
	sum := sha256.Sum256([]byte(canonicalURL))
	return hex.EncodeToString(sum[:])
}

// CleanText collapses internal whitespace and newlines to single spaces
// and trims the result.
func CleanText(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// ResolveURL returns the raw value when it is already absolute, resolves
// it against the source origin's scheme+host otherwise, and passes the
// raw value through unchanged when resolution fails.
func ResolveURL(rawURL, sourceURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return rawURL
	}
	if u.IsAbs() {
		return rawURL
	}

	base, err := url.Parse(sourceURL)
	if err != nil || base.Scheme == "" || base.Host == "" {
		return rawURL
	}
	origin := &url.URL{Scheme: base.Scheme, Host: base.Host}
	return origin.ResolveReference(u).String()
}

// ParseDate parses a published-date string permissively: strict layouts
// first, then a lenient fallback. Returns nil when nothing parses; an
// unparseable date is never a reason to reject a record.
func ParseDate(s string) *time.Time {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}

	for _, layout := range strictFormats {
		if t, err := time.Parse(layout, s); err == nil {
			return &t
		}
	}
	if t, err := dateparse.ParseAny(s); err == nil {
		return &t
	}
	return nil
}
