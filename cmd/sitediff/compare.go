package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/nao1215/sitediff/internal/baseline"
	"github.com/nao1215/sitediff/internal/compare"
	"github.com/nao1215/sitediff/internal/config"
	"github.com/nao1215/sitediff/internal/crawler"
	"github.com/nao1215/sitediff/internal/database"
	"github.com/nao1215/sitediff/internal/log"
	"github.com/nao1215/sitediff/internal/model"
	"github.com/nao1215/sitediff/internal/pipeline"
	"github.com/nao1215/sitediff/internal/report"
	"github.com/spf13/cobra"
)

// NewCompareCmd creates the compare command.
func NewCompareCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "compare [baseline-id|url]",
		Short: "Re-capture a baseline's pages and report visual changes",
		Long: `Compare revisits every page of a stored baseline, captures it again in
headless Chrome, and compares the new screenshot pixel-for-pixel
against the baseline's.

Each page is classified as matched, changed, or errored, and changed
pages get a rendered diff image highlighting the divergent pixels. The
target may be a baseline ID (as printed by 'sitediff list') or a URL
or hostname, in which case the most recent baseline for that host is
used.

Examples:
  # Compare against the latest baseline for a host
  sitediff compare example.com

  # Compare against a specific baseline
  sitediff compare example.com-20260314-092653

  # Tolerate larger per-page differences before flagging a change
  sitediff compare --match-threshold 0.05 example.com

  # List comparison history for a host
  sitediff compare --list example.com

  # List all hosts with recorded runs
  sitediff compare --list-hosts

  # Print a stored comparison summary by its history ID
  sitediff compare --show 5`,
		Args: cobra.MaximumNArgs(1),
		RunE: runCompareCmd,
	}

	// History flags
	cmd.Flags().BoolP("list", "l", false,
		"List comparison history for the specified host")
	cmd.Flags().BoolP("list-hosts", "L", false,
		"List all hosts with recorded baselines or comparisons")
	cmd.Flags().Int64P("show", "i", 0,
		"Print the stored summary of a comparison by ID (use --list to see IDs)")

	// Comparison behavior flags
	cmd.Flags().DurationP("timeout", "t", config.DefaultTimeout,
		"Timeout for capturing each page")
	cmd.Flags().IntP("workers", "w", config.DefaultCompareWorkers,
		"Number of pages compared concurrently")
	cmd.Flags().IntP("surfaces", "s", config.DefaultSurfaces,
		"Number of browser tabs held open for captures")
	cmd.Flags().Float64P("pixel-threshold", "P", config.DefaultPixelThreshold,
		"Per-pixel color delta (0..1) below which pixels count as identical")
	cmd.Flags().Float64P("match-threshold", "M", config.DefaultMatchThreshold,
		"Page diff ratio (0..1) below which a page counts as matched")

	// Browser flags
	cmd.Flags().StringP("remote-browser", "e", "",
		"Attach to a running Chrome at the given WebSocket URL instead of launching one")

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

// runCompareCmd executes the compare command.
func runCompareCmd(cmd *cobra.Command, args []string) error {
	cfg, err := buildCompareConfig(cmd, args)
	if err != nil {
		return err
	}

	listHosts, err := cmd.Flags().GetBool("list-hosts")
	if err != nil {
		return err
	}
	listHistory, err := cmd.Flags().GetBool("list")
	if err != nil {
		return err
	}
	showID, err := cmd.Flags().GetInt64("show")
	if err != nil {
		return err
	}

	// History operations need the database but no browser.
	if listHosts || listHistory || showID > 0 {
		db, err := database.Open(cfg.DataDir, database.DefaultOptions())
		if err != nil {
			return fmt.Errorf("failed to open history database: %w", err)
		}
		defer db.Close()

		ctx := context.Background()
		switch {
		case listHosts:
			return listRecordedHosts(ctx, db)
		case showID > 0:
			return showComparisonSummary(ctx, db, cfg, showID)
		default:
			if len(cfg.Targets) == 0 {
				return errors.New("a host is required with --list (use --list-hosts to see available hosts)")
			}
			return listComparisonHistory(ctx, db, hostnameOf(cfg.Targets[0]))
		}
	}

	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("configuration error: %w", err)
	}

	logger := log.NewLogger(os.Stderr, cfg.Verbose)
	slog.SetDefault(logger)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigCh
		logger.Info("received shutdown signal, cancelling...")
		cancel()
	}()

	return runCompare(ctx, cfg, logger)
}

// buildCompareConfig creates a Config from compare command flags.
func buildCompareConfig(cmd *cobra.Command, args []string) (*config.Config, error) {
	cfg := config.NewConfig()

	var err error

	cfg.Timeout, err = cmd.Flags().GetDuration("timeout")
	if err != nil {
		return nil, err
	}

	cfg.CompareWorkers, err = cmd.Flags().GetInt("workers")
	if err != nil {
		return nil, err
	}

	cfg.Surfaces, err = cmd.Flags().GetInt("surfaces")
	if err != nil {
		return nil, err
	}

	cfg.PixelThreshold, err = cmd.Flags().GetFloat64("pixel-threshold")
	if err != nil {
		return nil, err
	}

	cfg.MatchThreshold, err = cmd.Flags().GetFloat64("match-threshold")
	if err != nil {
		return nil, err
	}

	cfg.RemoteBrowserURL, err = cmd.Flags().GetString("remote-browser")
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
	cfg.Targets = args

	return cfg, nil
}

// runCompare executes the comparison pipeline for the configured target.
func runCompare(ctx context.Context, cfg *config.Config, logger *slog.Logger) error {
	target := cfg.Targets[0]

	logger.Info("starting comparison run",
		"target", target,
		"pixelThreshold", cfg.PixelThreshold,
		"matchThreshold", cfg.MatchThreshold,
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

	writer, closeOutput, err := openReportWriter(cfg)
	if err != nil {
		return err
	}
	defer closeOutput()

	siteConfig := siteConfigFor(cfg, "https://"+hostnameOf(target))

	p := createComparePipeline(cfg, store, db, capturer, logger, siteConfig, writer)

	run := model.NewRun(target)

	fmt.Printf("Comparing %s against its baseline...\n", target)
	startTime := time.Now()

	if err := p.Execute(ctx, run); err != nil {
		return err
	}

	elapsed := time.Since(startTime)
	fmt.Printf("Comparison completed in %s\n", elapsed.Round(time.Millisecond))
	fmt.Printf("Results written to %s\n", run.ResultsDir)

	return nil
}

// createComparePipeline builds the comparison pipeline for one target.
// The report step runs before the history step so a failed history
// insert cannot suppress the report of a completed comparison.
func createComparePipeline(cfg *config.Config, store *baseline.Store, db *database.HistoryDB, capturer crawler.Capturer, logger *slog.Logger, siteConfig config.SiteConfig, writer report.Writer) *pipeline.Pipeline {
	p := pipeline.New(pipeline.WithLogger(logger))
	p.AddSteps(
		pipeline.NewLoadBaselineStep(store),
		pipeline.NewCompareStep(cfg.ResultsDir(), newComparerFactory(cfg, capturer, store, logger, siteConfig)),
		pipeline.NewReportStep(writer),
		pipeline.NewHistoryStep(db),
	)
	return p
}

// newComparerFactory builds the comparer constructor, applying
// site-specific threshold overrides.
func newComparerFactory(cfg *config.Config, capturer crawler.Capturer, store *baseline.Store, logger *slog.Logger, siteConfig config.SiteConfig) func(compare.ArtifactSink) *compare.Comparer {
	pixelThreshold := cfg.PixelThreshold
	if siteConfig.PixelThreshold > 0 {
		pixelThreshold = siteConfig.PixelThreshold
	}
	matchThreshold := cfg.MatchThreshold
	if siteConfig.MatchThreshold > 0 {
		matchThreshold = siteConfig.MatchThreshold
	}

	return func(artifacts compare.ArtifactSink) *compare.Comparer {
		return compare.New(capturer, store,
			compare.WithLogger(logger),
			compare.WithArtifacts(artifacts),
			compare.WithPixelThreshold(pixelThreshold),
			compare.WithMatchThreshold(matchThreshold),
			compare.WithWorkers(cfg.CompareWorkers),
			compare.WithPageTimeout(cfg.Timeout),
		)
	}
}

// hostnameOf extracts the hostname from a URL, baseline ID, or bare
// hostname.
func hostnameOf(target string) string {
	if u, err := url.Parse(target); err == nil && u.Hostname() != "" {
		return strings.ToLower(u.Hostname())
	}
	// Baseline IDs look like {hostname}-{20060102-150405}.
	if id := strings.ToLower(target); len(id) > 16 {
		if ts := id[len(id)-16:]; ts[0] == '-' && ts[9] == '-' {
			if _, err := time.Parse("20060102-150405", ts[1:]); err == nil {
				return id[:len(id)-16]
			}
		}
	}
	return strings.ToLower(target)
}

// listRecordedHosts lists all hosts with history entries.
func listRecordedHosts(ctx context.Context, db *database.HistoryDB) error {
	hosts, err := db.ListHosts(ctx)
	if err != nil {
		return fmt.Errorf("failed to list hosts: %w", err)
	}

	if len(hosts) == 0 {
		fmt.Println("No recorded runs found in the database.")
		fmt.Println("\nUse 'sitediff baseline <url>' to capture a baseline.")
		return nil
	}

	fmt.Printf("Recorded hosts (%d):\n\n", len(hosts))
	for _, host := range hosts {
		fmt.Printf("  • %s\n", host)
	}
	fmt.Println("\nUse 'sitediff compare --list <host>' to see comparison history for a host.")

	return nil
}

// listComparisonHistory lists all comparison records for a host.
func listComparisonHistory(ctx context.Context, db *database.HistoryDB, hostname string) error {
	records, err := db.ComparisonHistory(ctx, hostname)
	if err != nil {
		return fmt.Errorf("failed to get comparison history: %w", err)
	}

	if len(records) == 0 {
		fmt.Printf("No comparison history found for %s\n", hostname)
		fmt.Println("\nUse 'sitediff compare' to compare this host against its baseline.")
		return nil
	}

	fmt.Printf("Comparison history for %s (%d runs):\n\n", hostname, len(records))
	fmt.Printf("  %-6s  %-20s  %-32s  %s\n", "ID", "Date", "Baseline", "Result")
	fmt.Println("  " + strings.Repeat("-", 90))

	for _, r := range records {
		fmt.Printf("  %-6d  %-20s  %-32s  %s\n",
			r.ID,
			r.CreatedAt.Format("2006-01-02 15:04:05"),
			r.BaselineID,
			formatComparisonCounts(r),
		)
	}

	fmt.Println("\nUse 'sitediff compare --show <id>' to print a stored summary.")

	return nil
}

// formatComparisonCounts formats per-classification counts for the
// history table.
func formatComparisonCounts(r database.ComparisonRecord) string {
	parts := []string{fmt.Sprintf("=%d", r.Matched)}
	if r.Changed > 0 {
		parts = append(parts, fmt.Sprintf("~%d", r.Changed))
	}
	if r.Errored > 0 {
		parts = append(parts, fmt.Sprintf("!%d", r.Errored))
	}
	return strings.Join(parts, " ") + fmt.Sprintf(" (%.2f%% diff)", r.DiffRatio*100)
}

// showComparisonSummary prints a stored comparison summary in the
// selected report format.
func showComparisonSummary(ctx context.Context, db *database.HistoryDB, cfg *config.Config, id int64) error {
	summary, err := db.ComparisonSummary(ctx, id)
	if err != nil {
		return fmt.Errorf("failed to load comparison %d: %w", id, err)
	}
	if summary == nil {
		return fmt.Errorf("comparison with ID %d not found", id)
	}

	writer, closeOutput, err := openReportWriter(cfg)
	if err != nil {
		return err
	}
	defer closeOutput()

	_, err = writer.WriteComparison(summary)
	return err
}
