package main

import (
	"context"
	"fmt"
	"log"
	"math/rand"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/spf13/cobra"

	"serendip/internal/config"
	"serendip/internal/domain"
	"serendip/internal/extract"
	"serendip/internal/fetch"
	"serendip/internal/ingest"
	"serendip/internal/sample"
	"serendip/internal/server"
	"serendip/internal/store"
)

var version = "dev"

var (
	verbose    bool
	configPath string
	cfg        *config.Config
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:     "serendip",
	Short:   "Source-balanced article aggregator",
	Long:    "serendip ingests articles from feeds and scraped pages, tracks source health, and serves a randomized, source-balanced reading list.",
	Version: version,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if verbose {
			log.SetFlags(log.LstdFlags | log.Lshortfile)
		} else {
			log.SetFlags(log.LstdFlags)
		}

		// Skip config loading for init and version
		if cmd.Name() == "init" || cmd.Name() == "version" {
			return nil
		}

		path, err := config.ResolveConfigPath(configPath)
		if err != nil {
			return err
		}
		cfg, err = config.Load(path)
		if err != nil {
			return fmt.Errorf("loading config: %w", err)
		}
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose output")
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Path to config file")

	rootCmd.AddCommand(initCmd)
	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(sampleCmd)
	rootCmd.AddCommand(sourcesCmd)
	rootCmd.AddCommand(extractCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(scheduleCmd)
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Println("serendip", version)
	},
}

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize configuration in ~/.config/serendip/",
	RunE: func(cmd *cobra.Command, args []string) error {
		target := filepath.Join(config.ConfigDir(), "config.yaml")
		if _, err := os.Stat(target); err == nil {
			fmt.Printf("Config already exists: %s\n", target)
			return nil
		}

		if err := os.MkdirAll(config.ConfigDir(), 0o755); err != nil {
			return fmt.Errorf("creating config directory: %w", err)
		}

		if err := os.WriteFile(target, config.DefaultConfigYAML, 0o644); err != nil {
			return fmt.Errorf("writing config: %w", err)
		}

		fmt.Printf("Created config: %s\n", target)
		fmt.Println("Edit it to configure sources and category rules.")
		return nil
	},
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show database and source status",
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openDB()
		if err != nil {
			return err
		}
		defer db.Close()

		stats, err := db.GetStats()
		if err != nil {
			return fmt.Errorf("getting stats: %w", err)
		}

		fmt.Println("Articles:")
		fmt.Printf("  Total: %d\n", stats.TotalArticles)
		fmt.Println("\nSources:")
		fmt.Printf("  Total: %d\n", stats.TotalSources)
		fmt.Printf("  Enabled: %d\n", stats.EnabledSources)
		fmt.Printf("  In error: %d\n", stats.ErrorSources)
		fmt.Println("\nOther:")
		fmt.Printf("  Categories: %d\n", stats.Categories)
		fmt.Printf("  Run reports: %d\n", stats.RunReports)
		return nil
	},
}

// --- run command ---

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run one ingestion pass across all enabled sources",
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openDB()
		if err != nil {
			return err
		}
		defer db.Close()

		report, err := runIngestion(cmd.Context(), db)
		if err != nil {
			return err
		}
		printReport(report)
		return nil
	},
}

func runIngestion(ctx context.Context, db *store.DB) (*domain.RunReport, error) {
	// Config owns sources and categories; sync them into the store so
	// health updates and admin reads have rows to work against.
	for _, src := range cfg.DomainSources() {
		if err := db.UpsertSource(src); err != nil {
			return nil, err
		}
	}
	for _, cat := range cfg.DomainCategories() {
		if err := db.UpsertCategory(cat); err != nil {
			return nil, err
		}
	}

	sources, err := db.ListSources()
	if err != nil {
		return nil, fmt.Errorf("listing sources: %w", err)
	}
	categories, err := db.ListCategories()
	if err != nil {
		return nil, fmt.Errorf("listing categories: %w", err)
	}

	fetcher := fetch.New(time.Duration(cfg.Fetch.TimeoutSeconds) * time.Second)
	orch := ingest.New(fetcher, db, cfg.Fetch.FailureThreshold)
	return orch.Run(ctx, sources, categories)
}

func printReport(report *domain.RunReport) {
	fmt.Println("\nIngestion complete:")
	fmt.Printf("  Sources attempted: %d\n", report.SourcesAttempted)
	fmt.Printf("  New articles: %d\n", report.ArticlesAdded)
	fmt.Printf("  Errors: %d\n", report.ErrorCount)

	if len(report.Results) > 0 {
		fmt.Println("\nBy source:")
		for _, r := range report.Results {
			if r.Success {
				fmt.Printf("  %s: %d new\n", r.Name, r.ArticleCount)
			} else {
				fmt.Printf("  %s: FAILED (%s)\n", r.Name, r.Error)
			}
		}
	}
}

// --- sample command ---

var (
	sampleTarget int
	sampleDays   int
	sampleSeed   int64
)

var sampleCmd = &cobra.Command{
	Use:   "sample",
	Short: "Print a randomized, source-balanced reading list",
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openDB()
		if err != nil {
			return err
		}
		defer db.Close()

		target := sampleTarget
		if target <= 0 {
			target = cfg.Sample.Target
		}
		days := sampleDays
		if days <= 0 {
			days = cfg.Sample.WindowDays
		}
		seed := sampleSeed
		if seed == 0 {
			seed = time.Now().UnixNano()
		}

		cutoff := time.Now().AddDate(0, 0, -days)
		pool, err := db.ArticlesFetchedSince(cutoff, 0)
		if err != nil {
			return fmt.Errorf("loading article pool: %w", err)
		}

		rng := rand.New(rand.NewSource(seed))
		picked := sample.Sample(pool, target, rng)

		if len(picked) == 0 {
			fmt.Println("Nothing in the window. Run 'serendip run' first.")
			return nil
		}
		for _, a := range picked {
			fmt.Printf("- %s (%s)\n  %s\n", a.Title, a.SourceName, a.URL)
		}
		return nil
	},
}

func init() {
	sampleCmd.Flags().IntVarP(&sampleTarget, "target", "n", 0, "Number of articles to sample")
	sampleCmd.Flags().IntVar(&sampleDays, "days", 0, "Recency window in days")
	sampleCmd.Flags().Int64Var(&sampleSeed, "seed", 0, "Randomness seed (0 = time-based)")
}

// --- sources command ---

var sourcesCmd = &cobra.Command{
	Use:   "sources",
	Short: "Inspect and toggle sources",
}

var sourcesListCmd = &cobra.Command{
	Use:   "list",
	Short: "List all sources with health",
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openDB()
		if err != nil {
			return err
		}
		defer db.Close()

		sources, err := db.ListSources()
		if err != nil {
			return err
		}
		if len(sources) == 0 {
			fmt.Println("No sources. Declare them in config.yaml and run 'serendip run'.")
			return nil
		}

		for _, s := range sources {
			flag := " "
			if !s.Enabled {
				flag = "off"
			} else if s.Status == domain.StatusError {
				flag = "ERR"
			}
			fmt.Printf("  [%3s] %-24s %-6s fails=%d total=%d avg=%.1f\n",
				flag, s.ID, s.Strategy, s.ConsecutiveFailures, s.TotalArticles, s.AvgArticles)
			if s.ErrorMessage != "" {
				fmt.Printf("        last error: %s\n", s.ErrorMessage)
			}
		}
		return nil
	},
}

func setEnabled(id string, enabled bool) error {
	db, err := openDB()
	if err != nil {
		return err
	}
	defer db.Close()
	if err := db.SetSourceEnabled(id, enabled); err != nil {
		return err
	}
	state := "disabled"
	if enabled {
		state = "enabled"
	}
	fmt.Printf("Source %s %s\n", id, state)
	return nil
}

var sourcesEnableCmd = &cobra.Command{
	Use:   "enable [id]",
	Short: "Enable a source",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return setEnabled(args[0], true)
	},
}

var sourcesDisableCmd = &cobra.Command{
	Use:   "disable [id]",
	Short: "Disable a source",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return setEnabled(args[0], false)
	},
}

func init() {
	sourcesCmd.AddCommand(sourcesListCmd)
	sourcesCmd.AddCommand(sourcesEnableCmd)
	sourcesCmd.AddCommand(sourcesDisableCmd)
}

// --- extract command ---

var extractCmd = &cobra.Command{
	Use:   "extract [url]",
	Short: "Fetch a page, extract its body text, and print a summary",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		extractor := extract.New(0)
		text, err := extractor.Extract(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		fmt.Println(extract.Summarize(text, extract.DefaultSummaryBudget))
		return nil
	},
}

// --- serve command ---

var servePort int

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the local admin server",
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openDB()
		if err != nil {
			return err
		}
		defer db.Close()

		port := servePort
		if port == 0 {
			port = cfg.Server.Port
		}
		fmt.Printf("Starting server at http://localhost:%d\n", port)
		fmt.Println("Press Ctrl+C to stop")
		return server.Serve(db, port, server.Options{
			SampleTarget: cfg.Sample.Target,
			WindowDays:   cfg.Sample.WindowDays,
		})
	},
}

func init() {
	serveCmd.Flags().IntVarP(&servePort, "port", "p", 0, "Port to run server on")
}

// --- schedule command ---

var scheduleCmd = &cobra.Command{
	Use:   "schedule",
	Short: "Run ingestion and retention on a recurring cron schedule",
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openDB()
		if err != nil {
			return err
		}
		defer db.Close()

		c := cron.New()
		_, err = c.AddFunc(cfg.Schedule.Ingest, func() {
			ctx, cancel := context.WithTimeout(context.Background(), 9*time.Minute)
			defer cancel()
			if _, err := runIngestion(ctx, db); err != nil {
				log.Printf("scheduled run failed: %v", err)
			}
		})
		if err != nil {
			return fmt.Errorf("invalid ingest schedule %q: %w", cfg.Schedule.Ingest, err)
		}

		_, err = c.AddFunc(cfg.Schedule.Retention, func() {
			cutoff := time.Now().AddDate(0, 0, -cfg.Retention.MaxAgeDays)
			n, err := db.DeleteArticlesOlderThan(cutoff)
			if err != nil {
				log.Printf("retention sweep failed: %v", err)
				return
			}
			log.Printf("retention sweep removed %d articles", n)
		})
		if err != nil {
			return fmt.Errorf("invalid retention schedule %q: %w", cfg.Schedule.Retention, err)
		}

		fmt.Printf("Scheduling ingest %q, retention %q\n", cfg.Schedule.Ingest, cfg.Schedule.Retention)
		c.Start()
		defer c.Stop()

		sig := make(chan os.Signal, 1)
		signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
		<-sig
		fmt.Println("\nStopping scheduler")
		return nil
	},
}

func openDB() (*store.DB, error) {
	dataDir := cfg.GetDataDir()
	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		return nil, fmt.Errorf("creating data directory: %w", err)
	}
	dbPath := filepath.Join(dataDir, "serendip.db")
	return store.Open(dbPath)
}
