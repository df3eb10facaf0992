package normalize

import (
	"testing"
	"time"

	"serendip/internal/domain"
)

var testSource = domain.Source{
	ID:   "example",
	Name: "Example",
	URL:  "https://example.com/news",
}

var now = time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)

func TestNormalizeRejectsMissingTitle(t *testing.T) {
	raw := domain.RawRecord{Link: "https://example.com/a"}
	if got := Normalize(raw, testSource, now); got != nil {
		t.Errorf("expected nil for record without title, got %+v", got)
	}
}

func TestNormalizeRejectsMissingURL(t *testing.T) {
	raw := domain.RawRecord{Title: "Some title"}
	if got := Normalize(raw, testSource, now); got != nil {
		t.Errorf("expected nil for record without URL, got %+v", got)
	}
}

func TestNormalizeFallbackFields(t *testing.T) {
	raw := domain.RawRecord{Headline: "Headline only", URL: "https://example.com/b"}
	a := Normalize(raw, testSource, now)
	if a == nil {
		t.Fatal("expected article from headline+url fallback")
	}
	if a.Title != "Headline only" {
		t.Errorf("expected headline fallback, got %q", a.Title)
	}
	if a.URL != "https://example.com/b" {
		t.Errorf("expected url fallback, got %q", a.URL)
	}
}

func TestNormalizeDedupDeterminism(t *testing.T) {
	a := Normalize(domain.RawRecord{Title: "First  Title", Link: "https://example.com/same"}, testSource, now)
	b := Normalize(domain.RawRecord{Title: "COMPLETELY different", Link: "https://example.com/same"}, testSource, now)
	if a == nil || b == nil {
		t.Fatal("expected both records to normalize")
	}
	if a.ID != b.ID {
		t.Errorf("same URL must yield same ID: %s vs %s", a.ID, b.ID)
	}
	if a.ID != ArticleID("https://example.com/same") {
		t.Error("ID must be a pure function of the canonical URL")
	}
}

func TestNormalizeRelativeURL(t *testing.T) {
	raw := domain.RawRecord{Title: "Relative", Link: "/articles/42"}
	a := Normalize(raw, testSource, now)
	if a == nil {
		t.Fatal("expected article")
	}
	if a.URL != "https://example.com/articles/42" {
		t.Errorf("expected resolution against source origin, got %q", a.URL)
	}
}

func TestNormalizeUnresolvableURLPassthrough(t *testing.T) {
	got := ResolveURL("::not a url::", "https://example.com")
	if got != "::not a url::" {
		t.Errorf("expected raw passthrough on resolution failure, got %q", got)
	}
}

func TestCleanText(t *testing.T) {
	got := CleanText("  a\n  b\t\tc  ")
	if got != "a b c" {
		t.Errorf("expected collapsed whitespace, got %q", got)
	}
}

func TestTitleFeedSuffixStripped(t *testing.T) {
	raw := domain.RawRecord{Title: "Daily News - RSS", Link: "https://example.com/t"}
	a := Normalize(raw, testSource, now)
	if a.Title != "Daily News" {
		t.Errorf("expected feed suffix stripped, got %q", a.Title)
	}

	// Summaries keep the suffix; only titles are stripped.
	raw = domain.RawRecord{Title: "Ok", Summary: "about - RSS", Link: "https://example.com/u"}
	a = Normalize(raw, testSource, now)
	if a.Summary != "about - RSS" {
		t.Errorf("summary must not be suffix-stripped, got %q", a.Summary)
	}
}

func TestParseDate(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"2026-08-01T10:30:00Z", "2026-08-01"},
		{"Mon, 02 Jan 2006 15:04:05 -0700", "2006-01-02"},
		{"January 5, 2026", "2026-01-05"},
	}
	for _, tc := range cases {
		got := ParseDate(tc.in)
		if got == nil {
			t.Errorf("ParseDate(%q) = nil", tc.in)
			continue
		}
		if got.Format("2006-01-02") != tc.want {
			t.Errorf("ParseDate(%q) = %s, want %s", tc.in, got.Format("2006-01-02"), tc.want)
		}
	}
}

func TestParseDateUnparseable(t *testing.T) {
	if got := ParseDate("sometime last week maybe"); got != nil {
		t.Errorf("expected nil for garbage date, got %v", got)
	}
	if got := ParseDate(""); got != nil {
		t.Errorf("expected nil for empty date, got %v", got)
	}
}

func TestNormalizeUnparseableDateKept(t *testing.T) {
	raw := domain.RawRecord{Title: "No date", Link: "https://example.com/d", Published: "???"}
	a := Normalize(raw, testSource, now)
	if a == nil {
		t.Fatal("unparseable date must not reject the record")
	}
	if a.PublishedAt != nil {
		t.Errorf("expected no published date, got %v", a.PublishedAt)
	}
}
