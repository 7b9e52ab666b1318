package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/url"
	"os"
	"os/signal"
	"path/filepath"
	"sync"
	"syscall"
	"time"

	"github.com/nao1215/sitediff/internal/baseline"
	"github.com/nao1215/sitediff/internal/browser"
	"github.com/nao1215/sitediff/internal/config"
	"github.com/nao1215/sitediff/internal/crawler"
	"github.com/nao1215/sitediff/internal/database"
	"github.com/nao1215/sitediff/internal/log"
	"github.com/nao1215/sitediff/internal/model"
	"github.com/nao1215/sitediff/internal/pipeline"
	"github.com/nao1215/sitediff/internal/report"
	"github.com/spf13/cobra"
)

// NewBaselineCmd creates the baseline command.
func NewBaselineCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "baseline [url]",
		Short: "Crawl a site and capture a screenshot baseline",
		Long: `Baseline crawls a website and captures a full-page screenshot of every
discovered page in headless Chrome.

Starting from the given URL, it follows internal links breadth-first up
to the configured depth and page limit. Screenshots and a manifest of
visited pages are stored as a baseline that later 'sitediff compare'
runs are measured against. A baseline is saved only if the whole crawl
completes; an interrupted run leaves nothing behind.

Examples:
  # Capture a baseline of a site
  sitediff baseline https://example.com

  # Capture baselines for several sites
  sitediff baseline https://example.com https://other.example.org

  # Limit the crawl to 50 pages at most 3 levels deep
  sitediff baseline --max-pages 50 --depth 3 https://example.com

  # Attach to an already running Chrome instead of launching one
  sitediff baseline --remote-browser ws://127.0.0.1:9222 https://example.com

  # Output JSON report
  sitediff baseline --json https://example.com

  # Use a custom configuration file
  sitediff baseline -c myconfig.yaml https://example.com

Configuration file (.sitediff.yaml) example:
  sites:
    example.com:
      depth: 3
      ignorePatterns:
        - "/admin/*"
        - "/logout*"
    other.example.org:
      maxPages: 50`,
		Args: cobra.ArbitraryArgs,
		RunE: runBaselineCmd,
	}

	// Crawl behavior flags
	cmd.Flags().DurationP("timeout", "t", config.DefaultTimeout,
		"Timeout for capturing each page")
	cmd.Flags().IntP("depth", "d", config.DefaultCrawlDepth,
		"Maximum link depth to follow from the start URL")
	cmd.Flags().IntP("max-pages", "p", config.DefaultMaxPages,
		"Maximum number of pages to capture per site")
	cmd.Flags().IntP("workers", "w", config.DefaultWorkers,
		"Number of concurrent page captures (1 keeps discovery order deterministic)")
	cmd.Flags().IntP("surfaces", "s", config.DefaultSurfaces,
		"Number of browser tabs held open for captures")
	cmd.Flags().StringP("main-rule", "r", "depth",
		"Main-page classification rule: depth or start-url")

	// Browser flags
	cmd.Flags().StringP("remote-browser", "e", "",
		"Attach to a running Chrome at the given WebSocket URL instead of launching one")

	// Batch flags
	cmd.Flags().IntP("batch", "b", config.DefaultBatchSize,
		"Number of sites processed concurrently")

	// Configuration file
	cmd.Flags().StringP("config", "c", "",
		"Configuration file path (default: .sitediff.yaml in current or home directory)")

	// Storage
	cmd.Flags().StringP("data-dir", "D", config.XDGDataDir(),
		"Directory for baselines, results, and history")

	// Report flags
	cmd.Flags().BoolP("json", "j", false,
		"Output JSON report (mutually exclusive with --markdown)")
	cmd.Flags().BoolP("markdown", "m", false,
		"Output Markdown report (mutually exclusive with --json)")
	cmd.Flags().StringP("output", "o", "",
		"Write report to specified file path (creates directories if needed)")

	return cmd
}

// runBaselineCmd executes the baseline command.
func runBaselineCmd(cmd *cobra.Command, args []string) error {
	cfg, err := buildConfig(cmd, args)
	if err != nil {
		return err
	}

	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("configuration error: %w", err)
	}

	logger := log.NewLogger(os.Stderr, cfg.Verbose)
	slog.SetDefault(logger)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Handle interrupt signals
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigCh
		logger.Info("received shutdown signal, cancelling...")
		cancel()
	}()

	return runBaseline(ctx, cfg, logger)
}

// getVerboseFlag retrieves the verbose flag from the command or its parent.
func getVerboseFlag(cmd *cobra.Command) bool {
	verbose, err := cmd.Flags().GetBool("verbose")
	if err != nil {
		verbose, err = cmd.Root().PersistentFlags().GetBool("verbose")
		if err != nil {
			return false
		}
	}
	return verbose
}

// buildConfig creates a Config from cobra command flags.
func buildConfig(cmd *cobra.Command, args []string) (*config.Config, error) {
	cfg := config.NewConfig()

	var err error

	cfg.Timeout, err = cmd.Flags().GetDuration("timeout")
	if err != nil {
		return nil, err
	}

	cfg.CrawlDepth, err = cmd.Flags().GetInt("depth")
	if err != nil {
		return nil, err
	}

	cfg.MaxPages, err = cmd.Flags().GetInt("max-pages")
	if err != nil {
		return nil, err
	}

	cfg.Workers, err = cmd.Flags().GetInt("workers")
	if err != nil {
		return nil, err
	}

	cfg.Surfaces, err = cmd.Flags().GetInt("surfaces")
	if err != nil {
		return nil, err
	}

	cfg.MainPageRule, err = cmd.Flags().GetString("main-rule")
	if err != nil {
		return nil, err
	}

	cfg.RemoteBrowserURL, err = cmd.Flags().GetString("remote-browser")
	if err != nil {
		return nil, err
	}

	cfg.BatchSize, err = cmd.Flags().GetInt("batch")
	if err != nil {
		return nil, err
	}

	cfg.DataDir, err = cmd.Flags().GetString("data-dir")
	if err != nil {
		return nil, err
	}

	cfg.ConfigFilePath, err = cmd.Flags().GetString("config")
	if err != nil {
		return nil, err
	}

	if err := loadSiteConfigs(cfg); err != nil {
		return nil, err
	}

	cfg.JSONReport, err = cmd.Flags().GetBool("json")
	if err != nil {
		return nil, err
	}

	cfg.MarkdownReport, err = cmd.Flags().GetBool("markdown")
	if err != nil {
		return nil, err
	}

	cfg.ReportFile, err = cmd.Flags().GetString("output")
	if err != nil {
		return nil, err
	}

	cfg.Verbose = getVerboseFlag(cmd)

	// Positional arguments are the start URLs
	cfg.Targets = args

	return cfg, nil
}

// loadSiteConfigs loads per-site overrides from the YAML config file.
func loadSiteConfigs(cfg *config.Config) error {
	siteConfigs, err := config.Load(cfg.ConfigFilePath)
	if err != nil {
		return fmt.Errorf("failed to load config file: %w", err)
	}
	cfg.SiteConfigs = siteConfigs
	return nil
}

// runBaseline captures baselines for all configured targets.
func runBaseline(ctx context.Context, cfg *config.Config, logger *slog.Logger) error {
	if len(cfg.Targets) == 0 {
		return errors.New("no targets provided (specify one or more start URLs as arguments)")
	}

	// Normalize all start URLs before touching the browser
	for i, target := range cfg.Targets {
		normalized, err := crawler.NormalizeStart(target)
		if err != nil {
			return fmt.Errorf("invalid start URL %q: %w", target, err)
		}
		cfg.Targets[i] = normalized
	}

	logger.Info("starting baseline run",
		"targets", cfg.Targets,
		"batchSize", cfg.BatchSize,
		"dataDir", cfg.DataDir,
	)

	db, err := database.Open(cfg.DataDir, database.DefaultOptions())
	if err != nil {
		return fmt.Errorf("failed to open history database: %w", err)
	}
	defer db.Close()

	store := baseline.NewStore(cfg.BaselinesDir())

	capturer, cleanup, err := startBrowser(cfg, logger)
	if err != nil {
		return err
	}
	defer cleanup()

	if len(cfg.Targets) > 1 && cfg.BatchSize > 1 {
		return runBatchBaseline(ctx, cfg, store, db, capturer, logger)
	}
	return runSequentialBaseline(ctx, cfg, store, db, capturer, logger)
}

// startBrowser launches (or attaches to) Chrome and builds the shared
// page capturer. The returned cleanup closes tabs and the browser.
func startBrowser(cfg *config.Config, logger *slog.Logger) (*browser.Capturer, func(), error) {
	managerOpts := []browser.ManagerOption{browser.WithManagerLogger(logger)}
	if cfg.RemoteBrowserURL != "" {
		managerOpts = append(managerOpts, browser.WithRemoteURL(cfg.RemoteBrowserURL))
	}
	manager := browser.NewManager(managerOpts...)

	b, err := manager.Start()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to start browser: %w", err)
	}

	capturer, err := browser.NewCapturer(b, cfg.Surfaces, logger)
	if err != nil {
		if closeErr := manager.Close(); closeErr != nil {
			logger.Error("failed to close browser", "error", closeErr)
		}
		return nil, nil, fmt.Errorf("failed to open capture tabs: %w", err)
	}

	cleanup := func() {
		capturer.Close()
		if err := manager.Close(); err != nil {
			logger.Error("failed to close browser", "error", err)
		}
	}
	return capturer, cleanup, nil
}

// runSequentialBaseline captures targets one at a time, applying
// site-specific configuration to each. It returns an error when any
// target failed to produce a baseline.
func runSequentialBaseline(ctx context.Context, cfg *config.Config, store *baseline.Store, db *database.HistoryDB, capturer crawler.Capturer, logger *slog.Logger) error {
	writer, closeOutput, err := openReportWriter(cfg)
	if err != nil {
		return err
	}
	defer closeOutput()

	var failed int
	for _, target := range cfg.Targets {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		siteConfig := siteConfigFor(cfg, target)
		p := createBaselinePipeline(cfg, store, db, capturer, logger, siteConfig, writer)

		run := model.NewRun(target)

		fmt.Printf("Capturing baseline for %s...\n", target)
		startTime := time.Now()

		if err := p.Execute(ctx, run); err != nil {
			logger.Error("baseline failed", "target", target, "error", err)
			fmt.Fprintf(os.Stderr, "Baseline error for %s: %v\n", target, err)
			if run.TimedOut {
				return err
			}
			failed++
			continue
		}

		// The pipeline records step failures on the run instead of
		// aborting, so a crawl that never committed its baseline shows
		// up here as a missing manifest.
		if run.Manifest == nil || run.BaselineID == "" {
			reason := "baseline not saved"
			if len(run.Errors) > 0 {
				reason = run.Errors[0]
			}
			logger.Error("baseline failed", "target", target, "error", reason)
			fmt.Fprintf(os.Stderr, "Baseline error for %s: %s\n", target, reason)
			failed++
			continue
		}

		elapsed := time.Since(startTime)
		fmt.Printf("Baseline %s saved in %s\n\n", run.BaselineID, elapsed.Round(time.Millisecond))
	}

	if failed > 0 {
		return fmt.Errorf("%d of %d baselines failed", failed, len(cfg.Targets))
	}
	return nil
}

// runBatchBaseline captures multiple targets concurrently.
// Site-specific configs are ignored in batch mode because the pipeline
// factory is shared across targets.
func runBatchBaseline(ctx context.Context, cfg *config.Config, store *baseline.Store, db *database.HistoryDB, capturer crawler.Capturer, logger *slog.Logger) error {
	fmt.Printf("Starting batch baseline of %d targets (concurrency: %d)...\n\n",
		len(cfg.Targets), cfg.BatchSize)

	if cfg.SiteConfigs != nil && len(cfg.SiteConfigs.Sites) > 0 {
		logger.Warn("batch mode uses default site config only; per-site overrides are ignored",
			"siteCount", len(cfg.SiteConfigs.Sites))
		fmt.Fprintf(os.Stderr, "Warning: Site-specific configurations are ignored in batch mode. Use --batch 1 to apply per-site settings.\n\n")
	}

	writer, closeOutput, err := openReportWriter(cfg)
	if err != nil {
		return err
	}
	defer closeOutput()

	startTime := time.Now()

	bp := pipeline.NewBatchProcessor(
		func() *pipeline.Pipeline {
			var siteConfig config.SiteConfig
			if cfg.SiteConfigs != nil {
				siteConfig = cfg.SiteConfigs.Defaults
			}
			// Report in the callback, under a lock, so concurrent runs
			// don't interleave their output.
			return createBaselinePipeline(cfg, store, db, capturer, logger, siteConfig, nil)
		},
		pipeline.WithConcurrency(cfg.BatchSize),
		pipeline.WithBatchLogger(logger),
	)

	var (
		mu     sync.Mutex
		failed int
	)
	_, err = bp.ProcessBatchWithCallback(ctx, cfg.Targets, func(run *model.Run, index int) {
		mu.Lock()
		defer mu.Unlock()

		if run.Manifest == nil {
			failed++
			fmt.Printf("[%d/%d] Baseline failed: %s\n", index+1, len(cfg.Targets), run.Target)
			return
		}
		fmt.Printf("[%d/%d] Baseline saved: %s\n", index+1, len(cfg.Targets), run.BaselineID)
		if _, werr := writer.WriteBaseline(run.BaselineID, run.Manifest); werr != nil {
			logger.Error("report failed", "target", run.Target, "error", werr)
		}
	})
	if err != nil {
		return err
	}

	elapsed := time.Since(startTime)
	fmt.Printf("\nBatch baseline completed in %s\n", elapsed.Round(time.Millisecond))

	if failed > 0 {
		return fmt.Errorf("%d of %d baselines failed", failed, len(cfg.Targets))
	}
	return nil
}

// siteConfigFor returns the per-site configuration for a normalized
// start URL, merged with defaults.
func siteConfigFor(cfg *config.Config, target string) config.SiteConfig {
	if cfg.SiteConfigs == nil {
		return config.SiteConfig{}
	}
	u, err := url.Parse(target)
	if err != nil {
		return cfg.SiteConfigs.Defaults
	}
	return cfg.SiteConfigs.GetSiteConfig(u.Hostname())
}

// createBaselinePipeline builds the crawl pipeline for one target.
// A nil writer omits the report step; batch mode reports via callback.
func createBaselinePipeline(cfg *config.Config, store *baseline.Store, db *database.HistoryDB, capturer crawler.Capturer, logger *slog.Logger, siteConfig config.SiteConfig, writer report.Writer) *pipeline.Pipeline {
	p := pipeline.New(
		pipeline.WithLogger(logger),
		pipeline.WithContinueOnError(true),
	)

	p.AddStep(pipeline.NewCrawlStep(store, newCrawlerFactory(cfg, capturer, logger, siteConfig)))
	p.AddStep(pipeline.NewHistoryStep(db))
	if writer != nil {
		p.AddStep(pipeline.NewReportStep(writer))
	}
	return p
}

// newCrawlerFactory builds the crawler constructor for one target,
// applying site-specific overrides to the global configuration.
func newCrawlerFactory(cfg *config.Config, capturer crawler.Capturer, logger *slog.Logger, siteConfig config.SiteConfig) func(crawler.Sink) *crawler.Crawler {
	depth := cfg.CrawlDepth
	if siteConfig.Depth > 0 {
		depth = siteConfig.Depth
	}
	maxPages := cfg.MaxPages
	if siteConfig.MaxPages > 0 {
		maxPages = siteConfig.MaxPages
	}

	opts := []crawler.Option{
		crawler.WithLogger(logger),
		crawler.WithMaxDepth(depth),
		crawler.WithMaxPages(maxPages),
		crawler.WithWorkers(cfg.Workers),
		crawler.WithPageTimeout(cfg.Timeout),
		crawler.WithClassifierRule(model.ClassifierRule(cfg.MainPageRule)),
	}
	if len(siteConfig.IgnorePatterns) > 0 || len(siteConfig.FollowPatterns) > 0 {
		opts = append(opts, crawler.WithFilter(
			crawler.NewFilter(siteConfig.IgnorePatterns, siteConfig.FollowPatterns)))
	}

	return func(sink crawler.Sink) *crawler.Crawler {
		return crawler.New(capturer, sink, opts...)
	}
}

// openReportWriter builds the report writer selected by the output
// flags. The returned close function flushes the destination file, if
// any.
func openReportWriter(cfg *config.Config) (report.Writer, func(), error) {
	output, closeOutput, err := openReportOutput(cfg)
	if err != nil {
		return nil, nil, err
	}
	return newReportWriter(cfg, output), closeOutput, nil
}

// openReportOutput opens the report destination: the --output file when
// set, stdout otherwise.
func openReportOutput(cfg *config.Config) (io.Writer, func(), error) {
	if cfg.ReportFile == "" {
		return os.Stdout, func() {}, nil
	}

	dir := filepath.Dir(cfg.ReportFile)
	if dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0750); err != nil {
			return nil, nil, fmt.Errorf("failed to create output directory: %w", err)
		}
	}

	f, err := os.OpenFile(cfg.ReportFile, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create output file: %w", err)
	}
	return f, func() {
		if err := f.Close(); err != nil {
			fmt.Fprintf(os.Stderr, "failed to close output file: %v\n", err)
		}
	}, nil
}

// newReportWriter picks the writer implementation for the output format.
func newReportWriter(cfg *config.Config, output io.Writer) report.Writer {
	switch {
	case cfg.JSONReport:
		return report.NewJSONWriter(output, report.WithPrettyPrint())
	case cfg.MarkdownReport:
		return report.NewMarkdownWriter(output)
	default:
		return report.NewSimpleWriter(output, report.WithVerbose(cfg.Verbose))
	}
}
