package config

import (
	"path/filepath"
	"time"

	"github.com/adrg/xdg"
)

// Default configuration values.
// These values mirror the observed behavior of real-world visual
// regression runs: captures are dominated by render latency, so the
// defaults favor reliability over raw throughput.
const (
	// DefaultTimeout bounds one page's navigation + load wait. Full-page
	// renders of heavy sites routinely take tens of seconds; shorter
	// timeouts produce spurious error records.
	DefaultTimeout = 30 * time.Second

	// DefaultCrawlDepth limits how many path segments deep the crawl
	// follows links. Larger sites may need this increased via CLI flags.
	DefaultCrawlDepth = 10

	// DefaultMaxPages is the maximum number of pages to capture per site.
	// This prevents runaway crawling on large or infinitely-generating
	// sites.
	DefaultMaxPages = 200

	// DefaultWorkers is the number of concurrent page captures.
	// The default of 1 keeps link discovery order deterministic so a
	// comparison run revisits the baseline's URL set in a reproducible
	// order. Raise it for throughput when ordering does not matter.
	DefaultWorkers = 1

	// DefaultSurfaces is the number of browser tabs held open for
	// captures. Sized independently of DefaultWorkers because a capture
	// holds a tab for the whole navigate+extract+screenshot sequence.
	DefaultSurfaces = 1

	// DefaultBatchSize is the number of sites processed concurrently when
	// multiple targets are given. Sequential by default: concurrent runs
	// share one browser and interleave their progress output.
	DefaultBatchSize = 1

	// DefaultCompareWorkers is the concurrency of the comparison pass.
	// Comparison requires no ordering between pages, so it parallelizes
	// freely; each worker still holds one render surface.
	DefaultCompareWorkers = 4

	// DefaultPixelThreshold is the per-pixel color delta (0..1) below
	// which two pixels count as identical. 0.1 absorbs anti-aliasing and
	// font rendering jitter without hiding real changes.
	DefaultPixelThreshold = 0.1

	// DefaultMatchThreshold is the page-level diff ratio below which a
	// page is classified as matched. Pages at or above it are changed.
	DefaultMatchThreshold = 0.01

	// ViewportWidth and ViewportHeight are the fixed capture viewport in
	// logical pixels. Every snapshot in a baseline and every re-capture
	// uses the same viewport so pixel comparison is meaningful.
	ViewportWidth  = 1920
	ViewportHeight = 1080

	// AppName is the application name used for XDG directory paths.
	AppName = "sitediff"
)

// Config holds all configuration options for sitediff.
// This struct is populated from CLI flags and passed through the
// application via dependency injection rather than global state.
//
// Design decision: We use a single flat struct instead of nested structs
// (e.g., CrawlConfig, CompareConfig) for simplicity. The number of
// options is manageable, and nesting would add complexity without
// significant benefit.
type Config struct {
	// Timeout is the per-page capture timeout covering navigation,
	// load wait, extraction, and screenshot. A page that exceeds it is
	// recorded as an error and the run continues.
	Timeout time.Duration

	// CrawlDepth is the maximum path depth to follow during discovery.
	CrawlDepth int

	// MaxPages is the maximum number of pages to capture per site.
	// A value of 0 means use the default (DefaultMaxPages).
	MaxPages int

	// Workers is the number of concurrent captures during a baseline
	// crawl. 1 (the default) yields deterministic discovery order.
	Workers int

	// Surfaces is the size of the browser tab pool, independent of
	// Workers.
	Surfaces int

	// CompareWorkers is the concurrency of the comparison pass.
	CompareWorkers int

	// BatchSize is the number of targets processed concurrently when
	// multiple start URLs are given.
	BatchSize int

	// PixelThreshold is the per-pixel color delta (0..1) above which a
	// pixel counts as differing.
	PixelThreshold float64

	// MatchThreshold is the page-level diff ratio below which a page is
	// classified as matched.
	MatchThreshold float64

	// MainPageRule selects the main-page classification rule: "depth"
	// (start URL or pathDepth <= 1) or "start-url" (exact start URL
	// only). The chosen rule is recorded in the manifest and applied
	// consistently for the whole run.
	MainPageRule string

	// RemoteBrowserURL is the WebSocket URL of an external Chrome
	// instance. Empty means launch a local headless Chrome.
	RemoteBrowserURL string

	// DataDir is the root directory for baselines, comparison results,
	// and the history database. Defaults to the XDG data directory.
	DataDir string

	// ConfigFilePath is the path to the YAML configuration file.
	// If empty, the tool searches for .sitediff.yaml in the current
	// directory and then in the user's home directory.
	ConfigFilePath string

	// SiteConfigs holds per-site overrides loaded from the config file.
	SiteConfigs *File

	// Verbose enables detailed log output using slog.LevelDebug.
	// When false, only warnings and errors are logged.
	Verbose bool

	// JSONReport enables JSON report output instead of the
	// human-readable format. Mutually exclusive with MarkdownReport.
	JSONReport bool

	// MarkdownReport enables Markdown report output.
	// Mutually exclusive with JSONReport.
	MarkdownReport bool

	// ReportFile is the output file path for the report. When set, the
	// report is written to this file instead of stdout.
	ReportFile string

	// Targets is the list of start URLs (baseline mode) or baseline IDs
	// (compare mode).
	Targets []string
}

// NewConfig creates a new Config with default values.
//
// Design decision: We use a constructor function instead of relying on
// zero values because many defaults are non-zero (e.g., timeout,
// thresholds). This also serves as documentation of what the defaults
// are.
func NewConfig() *Config {
	return &Config{
		Timeout:        DefaultTimeout,
		CrawlDepth:     DefaultCrawlDepth,
		MaxPages:       DefaultMaxPages,
		Workers:        DefaultWorkers,
		Surfaces:       DefaultSurfaces,
		CompareWorkers: DefaultCompareWorkers,
		BatchSize:      DefaultBatchSize,
		PixelThreshold: DefaultPixelThreshold,
		MatchThreshold: DefaultMatchThreshold,
		MainPageRule:   "depth",
		DataDir:        XDGDataDir(),
	}
}

// XDGDataDir returns the XDG data directory for sitediff.
// On Linux: ~/.local/share/sitediff
// On macOS: ~/Library/Application Support/sitediff
// On Windows: %LOCALAPPDATA%\sitediff
func XDGDataDir() string {
	return filepath.Join(xdg.DataHome, AppName)
}

// BaselinesDir returns the directory where baselines are stored.
func (c *Config) BaselinesDir() string {
	return filepath.Join(c.DataDir, "baselines")
}

// ResultsDir returns the directory where comparison results are stored.
// Reports and diff artifacts live here, distinct from the baseline store.
func (c *Config) ResultsDir() string {
	return filepath.Join(c.DataDir, "results")
}

// Validate checks if the configuration is valid.
// It returns a specific error describing what is invalid.
//
// Design decision: We validate at the config level rather than at each
// point of use to fail fast and provide clear error messages upfront.
// We return the first error found rather than collecting all errors
// because fixing one error often makes others irrelevant.
func (c *Config) Validate() error {
	if len(c.Targets) == 0 {
		return ErrNoTarget
	}
	if c.Timeout <= 0 {
		return ErrInvalidTimeout
	}
	if c.Workers <= 0 || c.CompareWorkers <= 0 || c.BatchSize <= 0 {
		return ErrInvalidWorkers
	}
	if c.Surfaces <= 0 {
		return ErrInvalidSurfaces
	}
	if c.PixelThreshold < 0 || c.PixelThreshold > 1 {
		return ErrInvalidPixelThreshold
	}
	if c.MatchThreshold < 0 || c.MatchThreshold > 1 {
		return ErrInvalidMatchThreshold
	}
	if c.MainPageRule != "depth" && c.MainPageRule != "start-url" {
		return ErrInvalidMainPageRule
	}
	if c.JSONReport && c.MarkdownReport {
		return ErrConflictingReportFormats
	}
	return nil
}
