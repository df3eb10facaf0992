package ingest

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"serendip/internal/domain"
	"serendip/internal/fetch"
	"serendip/internal/store"
)

// fakeFetcher serves canned results per source ID.
type fakeFetcher struct {
	records map[string][]domain.RawRecord
	errs    map[string]error
	panics  map[string]bool
}

func (f *fakeFetcher) Fetch(_ context.Context, src domain.Source) ([]domain.RawRecord, error) {
	if f.panics[src.ID] {
		panic("fetcher exploded")
	}
	if err, ok := f.errs[src.ID]; ok {
		return nil, err
	}
	return f.records[src.ID], nil
}

func openTestDB(t *testing.T) *store.DB {
	t.Helper()
	db, err := store.Open(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("failed to open test db: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func seedSource(t *testing.T, db *store.DB, id string, enabled bool) domain.Source {
	t.Helper()
	src := domain.Source{
		ID:       id,
		Name:     "Source " + id,
		URL:      "https://" + id + ".example.com/feed",
		Strategy: domain.StrategyFeed,
		Enabled:  enabled,
		Status:   domain.StatusActive,
	}
	if err := db.UpsertSource(src); err != nil {
		t.Fatalf("seeding source: %v", err)
	}
	return src
}

func records(urls ...string) []domain.RawRecord {
	var out []domain.RawRecord
	for _, u := range urls {
		out = append(out, domain.RawRecord{Title: "Title for " + u, Link: u})
	}
	return out
}

func resultFor(report *domain.RunReport, sourceID string) *domain.SourceResult {
	for i := range report.Results {
		if report.Results[i].SourceID == sourceID {
			return &report.Results[i]
		}
	}
	return nil
}

func TestRunEmptySourcesShortCircuits(t *testing.T) {
	db := openTestDB(t)
	seedSource(t, db, "off", false)

	orch := New(&fakeFetcher{}, db, 0)
	report, err := orch.Run(context.Background(), []domain.Source{{ID: "off", Enabled: false}}, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if report.SourcesAttempted != 0 || len(report.Results) != 0 {
		t.Errorf("expected empty report, got %+v", report)
	}
}

func TestRunIngestsAndDeduplicates(t *testing.T) {
	db := openTestDB(t)
	src := seedSource(t, db, "a", true)

	fetcher := &fakeFetcher{records: map[string][]domain.RawRecord{
		"a": records("https://a.example.com/1", "https://a.example.com/2"),
	}}
	orch := New(fetcher, db, 0)

	report, err := orch.Run(context.Background(), []domain.Source{src}, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if report.ArticlesAdded != 2 {
		t.Errorf("expected 2 new articles, got %d", report.ArticlesAdded)
	}

	// Second run over unchanged upstream content: everything is a
	// duplicate, but the source still succeeds.
	report, err = orch.Run(context.Background(), []domain.Source{src}, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	r := resultFor(report, "a")
	if r == nil || !r.Success {
		t.Fatal("expected source success on second run")
	}
	if r.ArticleCount != 0 {
		t.Errorf("expected 0 new articles on second run, got %d", r.ArticleCount)
	}
}

func TestRunFailureIsolation(t *testing.T) {
	db := openTestDB(t)
	good := seedSource(t, db, "good", true)
	bad := seedSource(t, db, "bad", true)

	fetcher := &fakeFetcher{
		records: map[string][]domain.RawRecord{
			"good": records("https://good.example.com/1"),
		},
		errs: map[string]error{
			"bad": &fetch.Error{Reason: fetch.ReasonBadConfig, Detail: "scrape source has no selector set"},
		},
	}
	orch := New(fetcher, db, 0)

	report, err := orch.Run(context.Background(), []domain.Source{good, bad}, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if r := resultFor(report, "good"); r == nil || !r.Success || r.ArticleCount != 1 {
		t.Errorf("good source must complete despite sibling failure: %+v", r)
	}
	r := resultFor(report, "bad")
	if r == nil || r.Success {
		t.Fatal("expected failure record for bad source")
	}
	if r.Error == "" {
		t.Error("expected error message in failure record")
	}
	if report.ErrorCount != 1 {
		t.Errorf("expected 1 error, got %d", report.ErrorCount)
	}
}

func TestRunRecoversSourcePanic(t *testing.T) {
	db := openTestDB(t)
	src := seedSource(t, db, "boom", true)

	fetcher := &fakeFetcher{panics: map[string]bool{"boom": true}}
	orch := New(fetcher, db, 0)

	report, err := orch.Run(context.Background(), []domain.Source{src}, nil)
	if err != nil {
		t.Fatalf("a source panic must not escape the run: %v", err)
	}
	r := resultFor(report, "boom")
	if r == nil || r.Success {
		t.Fatal("expected panic converted into failure record")
	}
}

func TestRunUpdatesHealth(t *testing.T) {
	db := openTestDB(t)
	src := seedSource(t, db, "flaky", true)

	fetcher := &fakeFetcher{errs: map[string]error{
		"flaky": &fetch.Error{Reason: fetch.ReasonFeedParse, Detail: "404"},
	}}
	orch := New(fetcher, db, 2)

	for i := 0; i < 2; i++ {
		if _, err := orch.Run(context.Background(), []domain.Source{src}, nil); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		// Re-read so the next run sees the advanced failure count.
		got, err := db.GetSource("flaky")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		src = *got
	}

	got, _ := db.GetSource("flaky")
	if got.ConsecutiveFailures != 2 {
		t.Errorf("expected 2 consecutive failures, got %d", got.ConsecutiveFailures)
	}
	if got.Status != domain.StatusError {
		t.Errorf("expected error status at threshold, got %s", got.Status)
	}
	if got.Enabled != true {
		t.Error("health must leave the enabled flag alone")
	}

	// One success reverts to active.
	fetcher.errs = nil
	fetcher.records = map[string][]domain.RawRecord{"flaky": records("https://flaky.example.com/1")}
	if _, err := orch.Run(context.Background(), []domain.Source{*got}, nil); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	got, _ = db.GetSource("flaky")
	if got.Status != domain.StatusActive || got.ConsecutiveFailures != 0 {
		t.Errorf("expected recovery to active, got %+v", got)
	}
	if got.LastSuccessAt == nil {
		t.Error("expected lastSuccessAt set on success")
	}
}

func TestRunAssignsCategories(t *testing.T) {
	db := openTestDB(t)
	src := seedSource(t, db, "a", true)

	fetcher := &fakeFetcher{records: map[string][]domain.RawRecord{
		"a": {{Title: "A software story", Link: "https://a.example.com/1"}},
	}}
	orch := New(fetcher, db, 0)

	categories := []domain.Category{{ID: "tech", Name: "Tech", Keywords: []string{"software"}}}
	if _, err := orch.Run(context.Background(), []domain.Source{src}, categories); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	articles, err := db.ArticlesFetchedSince(time.Now().Add(-time.Hour), 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(articles) != 1 {
		t.Fatalf("expected 1 article, got %d", len(articles))
	}
	if len(articles[0].Categories) != 1 || articles[0].Categories[0] != "tech" {
		t.Errorf("expected [tech], got %v", articles[0].Categories)
	}
}
