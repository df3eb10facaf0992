package config

import (
	"testing"

	"serendip/internal/domain"
)

func TestParseDefaults(t *testing.T) {
	cfg, err := parse([]byte("{}"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Fetch.TimeoutSeconds != 10 {
		t.Errorf("expected default timeout 10, got %d", cfg.Fetch.TimeoutSeconds)
	}
	if cfg.Fetch.FailureThreshold != 5 {
		t.Errorf("expected default threshold 5, got %d", cfg.Fetch.FailureThreshold)
	}
	if cfg.Sample.WindowDays != 3 || cfg.Sample.Target != 30 {
		t.Errorf("unexpected sample defaults: %+v", cfg.Sample)
	}
	if cfg.Server.Port != 8000 {
		t.Errorf("expected default port 8000, got %d", cfg.Server.Port)
	}
}

func TestParseOverrides(t *testing.T) {
	cfg, err := parse([]byte(`
fetch:
  timeout_seconds: 20
sample:
  target: 12
`))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Fetch.TimeoutSeconds != 20 {
		t.Errorf("expected override timeout 20, got %d", cfg.Fetch.TimeoutSeconds)
	}
	if cfg.Sample.Target != 12 {
		t.Errorf("expected override target 12, got %d", cfg.Sample.Target)
	}
	// Untouched keys keep their defaults.
	if cfg.Fetch.FailureThreshold != 5 {
		t.Errorf("expected default threshold 5, got %d", cfg.Fetch.FailureThreshold)
	}
}

func TestDefaultConfigParses(t *testing.T) {
	cfg, err := parse(DefaultConfigYAML)
	if err != nil {
		t.Fatalf("embedded default config must parse: %v", err)
	}
	if len(cfg.Sources) == 0 {
		t.Error("expected example sources in default config")
	}
	if len(cfg.Categories) == 0 {
		t.Error("expected example categories in default config")
	}
}

func TestSourceConversion(t *testing.T) {
	cfg, err := parse([]byte(`
sources:
  - id: a
    name: A
    url: https://a.example.com/feed
  - id: b
    name: B
    url: https://b.example.com
    strategy: scrape
    enabled: false
    selectors:
      container: "div.item"
      headline: "h3"
      link: "h3 a"
`))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	sources := cfg.DomainSources()
	if len(sources) != 2 {
		t.Fatalf("expected 2 sources, got %d", len(sources))
	}

	a := sources[0]
	if a.Strategy != domain.StrategyFeed {
		t.Errorf("expected feed strategy default, got %s", a.Strategy)
	}
	if !a.Enabled {
		t.Error("expected enabled default true")
	}
	if a.Frequency != domain.FrequencyDaily {
		t.Errorf("expected daily frequency default, got %s", a.Frequency)
	}

	b := sources[1]
	if b.Enabled {
		t.Error("expected explicit enabled=false honored")
	}
	if b.Selectors == nil || b.Selectors.Container != "div.item" {
		t.Errorf("expected selectors parsed, got %+v", b.Selectors)
	}
}

func TestCategoryConversion(t *testing.T) {
	cfg, err := parse([]byte(`
categories:
  - id: tech
    name: Technology
    keywords: [software]
    sources: [hn]
    domains: [arstechnica.com]
    display_order: 1
`))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	cats := cfg.DomainCategories()
	if len(cats) != 1 {
		t.Fatalf("expected 1 category, got %d", len(cats))
	}
	c := cats[0]
	if len(c.Keywords) != 1 || len(c.SourceIDs) != 1 || len(c.Domains) != 1 {
		t.Errorf("unexpected category rules: %+v", c)
	}
}
