// Package domain holds the entity types shared across the ingestion and
// serving paths.
package domain

import "time"

// Strategy selects how a source is fetched.
type Strategy string

const (
	StrategyFeed   Strategy = "feed"
	StrategyScrape Strategy = "scrape"
)

// Status is a source's health status. It is orthogonal to the Enabled
// flag: status is driven by fetch outcomes, Enabled only by operators.
type Status string

const (
	StatusActive Status = "active"
	StatusError  Status = "error"
)

// Frequency hints how often a source is worth polling. Advisory only.
type Frequency string

const (
	FrequencyHourly Frequency = "hourly"
	FrequencyDaily  Frequency = "daily"
	FrequencyManual Frequency = "manual"
)

// Selectors configures the scrape strategy. Container, Headline and Link
// are required for scrape sources; the rest are optional.
type Selectors struct {
	Container string `yaml:"container" json:"container"`
	Headline  string `yaml:"headline" json:"headline"`
	Link      string `yaml:"link" json:"link"`
	Summary   string `yaml:"summary,omitempty" json:"summary,omitempty"`
	Image     string `yaml:"image,omitempty" json:"image,omitempty"`
	Date      string `yaml:"date,omitempty" json:"date,omitempty"`
}

// Empty reports whether the required selectors are missing.
func (s *Selectors) Empty() bool {
	return s == nil || s.Container == "" || s.Headline == "" || s.Link == ""
}

// Source is a configured origin to poll for articles.
type Source struct {
	ID        string
	Name      string
	URL       string
	Strategy  Strategy
	Selectors *Selectors
	Enabled   bool
	Category  string
	Frequency Frequency
	Priority  int

	// Health fields, owned by the health tracker.
	LastFetchedAt       *time.Time
	LastSuccessAt       *time.Time
	ConsecutiveFailures int
	Status              Status
	ErrorMessage        string
	TotalArticles       int
	AvgArticles         float64
}

// RawRecord is an un-normalized item as returned by a fetch strategy.
// Every field is optional; presence and naming vary between strategies,
// so the fallback order is resolved once, in normalize.
type RawRecord struct {
	Title       string
	Headline    string
	Link        string
	URL         string
	Summary     string
	Description string
	Author      string
	Published   string
	Image       string
}

// Article is the canonical, deduplicated content unit. Its ID is a
// deterministic hash of the canonical URL, which is the dedup key.
type Article struct {
	ID          string     `json:"id"`
	Title       string     `json:"title"`
	URL         string     `json:"url"`
	SourceID    string     `json:"sourceId"`
	SourceName  string     `json:"sourceName"`
	Summary     string     `json:"summary,omitempty"`
	Author      string     `json:"author,omitempty"`
	PublishedAt *time.Time `json:"publishedAt,omitempty"`
	ImageURL    string     `json:"imageUrl,omitempty"`
	FetchedAt   time.Time  `json:"fetchedAt"`
	Categories  []string   `json:"categories,omitempty"`
}

// UncategorizedID is the well-known sentinel category assigned when no
// rule matches. It always exists and is never matched as a rule itself.
const UncategorizedID = "uncategorized"

// Category is a named rule bundle for the categorizer.
type Category struct {
	ID           string
	Name         string
	Keywords     []string
	SourceIDs    []string
	Domains      []string
	DisplayOrder int
}

// FetchOutcome is one source's result within a run, fed to the health
// tracker after all sources settle.
type FetchOutcome struct {
	Success      bool
	ArticleCount int
	Error        string
}

// SourceResult is the per-source line of a RunReport.
type SourceResult struct {
	SourceID     string `json:"sourceId"`
	Name         string `json:"name"`
	Success      bool   `json:"success"`
	ArticleCount int    `json:"articleCount"`
	Error        string `json:"error,omitempty"`
}

// RunReport is one ingestion run's outcome. Append-only.
type RunReport struct {
	ID               int64
	StartedAt        time.Time
	SourcesAttempted int
	ArticlesAdded    int
	ErrorCount       int
	Results          []SourceResult
}
