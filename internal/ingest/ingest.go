// Package ingest drives one ingestion run across all enabled sources:
// fetch, normalize and categorize per source in parallel, deduplicate
// against the store, update source health, and persist a run report.
package ingest

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"serendip/internal/categorize"
	"serendip/internal/domain"
	"serendip/internal/health"
	"serendip/internal/normalize"
)

// Fetcher retrieves raw records for one source.
type Fetcher interface {
	Fetch(ctx context.Context, src domain.Source) ([]domain.RawRecord, error)
}

// Store is the persistence surface the orchestrator needs.
type Store interface {
	categorize.SentinelStore
	InsertArticleIfAbsent(a domain.Article) (bool, error)
	ApplySourceHealth(s domain.Source) error
	InsertRunReport(r domain.RunReport) (int64, error)
}

// Orchestrator is the composition root of the ingestion pipeline.
type Orchestrator struct {
	fetcher     Fetcher
	store       Store
	categorizer *categorize.Categorizer
	threshold   int
	now         func() time.Time
}

// New creates an Orchestrator. threshold <= 0 uses the default
// consecutive-failure threshold.
func New(fetcher Fetcher, store Store, threshold int) *Orchestrator {
	return &Orchestrator{
		fetcher:     fetcher,
		store:       store,
		categorizer: categorize.New(store),
		threshold:   threshold,
		now:         time.Now,
	}
}

// sourceOutcome pairs a source with its settled result.
type sourceOutcome struct {
	src    domain.Source
	result domain.SourceResult
}

// Run executes one ingestion run. Per-source failures are folded into
// the report and source health; only a store failure during aggregation
// or report persistence is returned as an error.
func (o *Orchestrator) Run(ctx context.Context, sources []domain.Source, categories []domain.Category) (*domain.RunReport, error) {
	startedAt := o.now()

	var eligible []domain.Source
	for _, src := range sources {
		if src.Enabled {
			eligible = append(eligible, src)
		}
	}

	report := &domain.RunReport{
		StartedAt:        startedAt,
		SourcesAttempted: len(eligible),
	}
	if len(eligible) == 0 {
		log.Println("no enabled sources, nothing to ingest")
		if _, err := o.store.InsertRunReport(*report); err != nil {
			return nil, fmt.Errorf("persisting run report: %w", err)
		}
		return report, nil
	}

	// Fan out one worker per source and wait for all of them to
	// settle. One source's failure must never abort a sibling.
	outcomes := make(chan sourceOutcome, len(eligible))
	var wg sync.WaitGroup
	for _, src := range eligible {
		wg.Add(1)
		go func(src domain.Source) {
			defer wg.Done()
			outcomes <- sourceOutcome{src: src, result: o.processSource(ctx, src, categories)}
		}(src)
	}

	go func() {
		wg.Wait()
		close(outcomes)
	}()

	settled := make(map[string]sourceOutcome, len(eligible))
	for oc := range outcomes {
		settled[oc.src.ID] = oc
	}

	// Health updates are strictly sequential after fan-in: one writer
	// per source, one atomic update each.
	for _, src := range eligible {
		oc, ok := settled[src.ID]
		if !ok {
			continue
		}
		r := oc.result
		report.Results = append(report.Results, r)
		report.ArticlesAdded += r.ArticleCount
		if !r.Success {
			report.ErrorCount++
		}

		updated := health.Apply(oc.src, domain.FetchOutcome{
			Success:      r.Success,
			ArticleCount: r.ArticleCount,
			Error:        r.Error,
		}, o.now(), o.threshold)
		if err := o.store.ApplySourceHealth(updated); err != nil {
			return nil, fmt.Errorf("updating health for %s: %w", src.ID, err)
		}
	}

	if _, err := o.store.InsertRunReport(*report); err != nil {
		return nil, fmt.Errorf("persisting run report: %w", err)
	}

	log.Printf("run complete: %d sources, %d new articles, %d errors",
		report.SourcesAttempted, report.ArticlesAdded, report.ErrorCount)
	return report, nil
}

// processSource runs fetch -> normalize -> categorize -> insert for one
// source. Every failure, including a panic, is converted into that
// source's failure record at this boundary.
func (o *Orchestrator) processSource(ctx context.Context, src domain.Source, categories []domain.Category) (result domain.SourceResult) {
	result = domain.SourceResult{SourceID: src.ID, Name: src.Name}
	defer func() {
		if r := recover(); r != nil {
			log.Printf("source %s panicked: %v", src.ID, r)
			result.Success = false
			result.ArticleCount = 0
			result.Error = fmt.Sprintf("internal error: %v", r)
		}
	}()

	records, err := o.fetcher.Fetch(ctx, src)
	if err != nil {
		result.Error = err.Error()
		log.Printf("fetch failed for %s: %v", src.ID, err)
		return result
	}

	fetchedAt := o.now()
	inserted := 0
	for _, raw := range records {
		article := normalize.Normalize(raw, src, fetchedAt)
		if article == nil {
			continue
		}
		article.Categories = o.categorizer.Categorize(*article, categories)

		ok, err := o.store.InsertArticleIfAbsent(*article)
		if err != nil {
			result.Error = err.Error()
			log.Printf("insert failed for %s: %v", src.ID, err)
			return result
		}
		if ok {
			inserted++
		}
	}

	result.Success = true
	result.ArticleCount = inserted
	log.Printf("source %s: %d raw, %d new", src.ID, len(records), inserted)
	return result
}
