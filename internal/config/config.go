package config

import (
	_ "embed"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"serendip/internal/domain"
)

//go:embed default.yaml
var DefaultConfigYAML []byte

type Config struct {
	Fetch      Fetch            `yaml:"fetch"`
	Sample     Sample           `yaml:"sample"`
	Retention  Retention        `yaml:"retention"`
	Schedule   Schedule         `yaml:"schedule"`
	Server     Server           `yaml:"server"`
	Output     Output           `yaml:"output"`
	Sources    []SourceConfig   `yaml:"sources"`
	Categories []CategoryConfig `yaml:"categories"`
}

type Fetch struct {
	TimeoutSeconds   int `yaml:"timeout_seconds"`
	FailureThreshold int `yaml:"failure_threshold"`
}

type Sample struct {
	WindowDays int `yaml:"window_days"`
	Target     int `yaml:"target"`
}

type Retention struct {
	MaxAgeDays int `yaml:"max_age_days"`
}

type Schedule struct {
	Ingest    string `yaml:"ingest"`
	Retention string `yaml:"retention"`
}

type Server struct {
	Port int `yaml:"port"`
}

type Output struct {
	DataDir string `yaml:"data_dir"`
}

// SourceConfig is the YAML shape of a source. Health fields live in the
// store, not in config.
type SourceConfig struct {
	ID        string            `yaml:"id"`
	Name      string            `yaml:"name"`
	URL       string            `yaml:"url"`
	Strategy  string            `yaml:"strategy"`
	Selectors *domain.Selectors `yaml:"selectors,omitempty"`
	Enabled   *bool             `yaml:"enabled,omitempty"`
	Category  string            `yaml:"category,omitempty"`
	Frequency string            `yaml:"frequency,omitempty"`
	Priority  int               `yaml:"priority,omitempty"`
}

// Source converts the YAML shape into a domain.Source. Enabled defaults
// to true when omitted.
func (s SourceConfig) Source() domain.Source {
	enabled := true
	if s.Enabled != nil {
		enabled = *s.Enabled
	}
	strategy := domain.Strategy(s.Strategy)
	if strategy == "" {
		strategy = domain.StrategyFeed
	}
	frequency := domain.Frequency(s.Frequency)
	if frequency == "" {
		frequency = domain.FrequencyDaily
	}
	return domain.Source{
		ID:        s.ID,
		Name:      s.Name,
		URL:       s.URL,
		Strategy:  strategy,
		Selectors: s.Selectors,
		Enabled:   enabled,
		Category:  s.Category,
		Frequency: frequency,
		Priority:  s.Priority,
		Status:    domain.StatusActive,
	}
}

type CategoryConfig struct {
	ID           string   `yaml:"id"`
	Name         string   `yaml:"name"`
	Keywords     []string `yaml:"keywords,omitempty"`
	Sources      []string `yaml:"sources,omitempty"`
	Domains      []string `yaml:"domains,omitempty"`
	DisplayOrder int      `yaml:"display_order,omitempty"`
}

func (c CategoryConfig) Category() domain.Category {
	return domain.Category{
		ID:           c.ID,
		Name:         c.Name,
		Keywords:     c.Keywords,
		SourceIDs:    c.Sources,
		Domains:      c.Domains,
		DisplayOrder: c.DisplayOrder,
	}
}

// ConfigDir returns the XDG config directory for serendip.
func ConfigDir() string {
	return filepath.Join(homeDir(), ".config", "serendip")
}

// DataDir returns the XDG data directory for serendip.
func DataDir() string {
	return filepath.Join(homeDir(), ".local", "share", "serendip")
}

// ResolveConfigPath finds the config file following priority:
// explicit path > ~/.config/serendip/config.yaml > ./config.yaml
func ResolveConfigPath(explicit string) (string, error) {
	if explicit != "" {
		if _, err := os.Stat(explicit); err != nil {
			return "", fmt.Errorf("config file not found: %s", explicit)
		}
		return explicit, nil
	}

	xdgConfig := filepath.Join(ConfigDir(), "config.yaml")
	if _, err := os.Stat(xdgConfig); err == nil {
		return xdgConfig, nil
	}

	cwdConfig := "config.yaml"
	if _, err := os.Stat(cwdConfig); err == nil {
		return cwdConfig, nil
	}

	return "", fmt.Errorf(
		"no config file found; searched:\n  %s\n  ./config.yaml\n\nRun 'serendip init' to create a default config",
		xdgConfig,
	)
}

// Load reads and parses a config YAML file.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}
	return parse(data)
}

// parse parses YAML bytes into a Config, applying defaults.
func parse(data []byte) (*Config, error) {
	cfg := &Config{
		Fetch:     Fetch{TimeoutSeconds: 10, FailureThreshold: 5},
		Sample:    Sample{WindowDays: 3, Target: 30},
		Retention: Retention{MaxAgeDays: 30},
		Schedule:  Schedule{Ingest: "0 * * * *", Retention: "30 3 * * *"},
		Server:    Server{Port: 8000},
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}

	return cfg, nil
}

// GetDataDir returns the effective data directory from config or XDG default.
func (c *Config) GetDataDir() string {
	if c.Output.DataDir != "" {
		return c.Output.DataDir
	}
	return DataDir()
}

// DomainSources converts every configured source.
func (c *Config) DomainSources() []domain.Source {
	out := make([]domain.Source, 0, len(c.Sources))
	for _, s := range c.Sources {
		out = append(out, s.Source())
	}
	return out
}

// DomainCategories converts every configured category rule bundle.
func (c *Config) DomainCategories() []domain.Category {
	out := make([]domain.Category, 0, len(c.Categories))
	for _, cat := range c.Categories {
		out = append(out, cat.Category())
	}
	return out
}

func homeDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}
	return home
}
