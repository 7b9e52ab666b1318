package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"time"

	"github.com/nao1215/sitediff/internal/baseline"
	"github.com/nao1215/sitediff/internal/compare"
	"github.com/nao1215/sitediff/internal/crawler"
	"github.com/nao1215/sitediff/internal/database"
	"github.com/nao1215/sitediff/internal/model"
	"github.com/nao1215/sitediff/internal/report"
)

// CrawlStep crawls the run's target URL and publishes the result as a
// new baseline. The crawl streams screenshots into a staging area; the
// baseline appears only if the whole crawl completes, so a cancelled
// run leaves nothing behind.
type CrawlStep struct {
	store *baseline.Store

	// newCrawler builds the crawler around the staging snapshot sink.
	// A factory keeps browser wiring out of this package.
	newCrawler func(sink crawler.Sink) *crawler.Crawler
}

// NewCrawlStep creates the baseline crawl step.
func NewCrawlStep(store *baseline.Store, newCrawler func(sink crawler.Sink) *crawler.Crawler) *CrawlStep {
	return &CrawlStep{store: store, newCrawler: newCrawler}
}

// Name returns the step name.
func (s *CrawlStep) Name() string { return "crawl" }

// Do runs the crawl and commits the baseline.
func (s *CrawlStep) Do(ctx context.Context, run *model.Run) error {
	staging, err := s.store.Begin()
	if err != nil {
		return err
	}

	manifest, err := s.newCrawler(staging).Crawl(ctx, run.Target)
	if err != nil {
		if discardErr := staging.Discard(); discardErr != nil {
			run.AddError(fmt.Sprintf("discard staging: %v", discardErr))
		}
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			run.TimedOut = true
		}
		return err
	}

	id, err := staging.Commit(manifest)
	if err != nil {
		if discardErr := staging.Discard(); discardErr != nil {
			run.AddError(fmt.Sprintf("discard staging: %v", discardErr))
		}
		return err
	}

	run.Manifest = manifest
	run.BaselineID = id
	return nil
}

// LoadBaselineStep resolves the run's target to a stored baseline. The
// target may be a baseline ID, or a URL/hostname whose most recent
// baseline is used.
type LoadBaselineStep struct {
	store *baseline.Store
}

// NewLoadBaselineStep creates the baseline resolution step.
func NewLoadBaselineStep(store *baseline.Store) *LoadBaselineStep {
	return &LoadBaselineStep{store: store}
}

// Name returns the step name.
func (s *LoadBaselineStep) Name() string { return "load-baseline" }

// Do loads the baseline manifest into the run.
func (s *LoadBaselineStep) Do(_ context.Context, run *model.Run) error {
	// Exact baseline IDs win over hostname resolution.
	if m, err := s.store.Load(run.Target); err == nil {
		run.Manifest = m
		run.BaselineID = run.Target
		return nil
	} else if !errors.Is(err, baseline.ErrBaselineNotFound) {
		return err
	}

	hostname := run.Target
	if u, err := url.Parse(run.Target); err == nil && u.Hostname() != "" {
		hostname = u.Hostname()
	}

	id, m, err := s.store.Latest(hostname)
	if err != nil {
		return err
	}
	run.Manifest = m
	run.BaselineID = id
	return nil
}

// CompareStep re-captures the loaded baseline's pages and classifies
// each one. Diff artifacts and the raw summary land in a fresh results
// directory.
type CompareStep struct {
	resultsRoot string

	// newComparer builds the comparer around the run's diff image sink.
	newComparer func(artifacts compare.ArtifactSink) *compare.Comparer

	// now is the clock used to stamp the results directory; replaced in
	// tests for stable paths.
	now func() time.Time
}

// NewCompareStep creates the comparison step. Results are written under
// resultsRoot/{hostname}-{timestamp}/.
func NewCompareStep(resultsRoot string, newComparer func(compare.ArtifactSink) *compare.Comparer) *CompareStep {
	return &CompareStep{
		resultsRoot: resultsRoot,
		newComparer: newComparer,
		now:         time.Now,
	}
}

// Name returns the step name.
func (s *CompareStep) Name() string { return "compare" }

// Do runs the comparison and records the summary on the run.
func (s *CompareStep) Do(ctx context.Context, run *model.Run) error {
	if run.Manifest == nil {
		return errors.New("no baseline loaded")
	}

	resultsDir := filepath.Join(s.resultsRoot,
		run.Manifest.Hostname+"-"+s.now().UTC().Format("20060102-150405"))
	diffs := compare.NewDiffDir(filepath.Join(resultsDir, "diffs"))

	summary, err := s.newComparer(diffs).Run(ctx, run.BaselineID, run.Manifest)
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			run.TimedOut = true
		}
		return err
	}

	run.Summary = summary
	run.ResultsDir = resultsDir

	if err := writeSummaryFile(resultsDir, summary); err != nil {
		// The summary still lives on the run; losing the file copy is
		// not fatal.
		run.AddError(fmt.Sprintf("write summary file: %v", err))
	}
	return nil
}

// writeSummaryFile persists the raw summary next to the diff artifacts.
func writeSummaryFile(dir string, summary *model.ComparisonSummary) error {
	if err := os.MkdirAll(dir, 0750); err != nil {
		return err
	}
	data, err := json.MarshalIndent(summary, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(dir, "summary.json"), data, 0600)
}

// HistoryStep records the run in the history database. It records a
// comparison when the run has a summary, otherwise a saved baseline.
type HistoryStep struct {
	db *database.HistoryDB
}

// NewHistoryStep creates the history recording step.
func NewHistoryStep(db *database.HistoryDB) *HistoryStep {
	return &HistoryStep{db: db}
}

// Name returns the step name.
func (s *HistoryStep) Name() string { return "record-history" }

// Do inserts the history row for the run.
func (s *HistoryStep) Do(ctx context.Context, run *model.Run) error {
	switch {
	case run.Summary != nil:
		return s.db.RecordComparison(ctx, run.Summary, run.ResultsDir)
	case run.Manifest != nil && run.BaselineID != "":
		return s.db.RecordBaseline(ctx, run.BaselineID, run.Manifest)
	default:
		return errors.New("nothing to record")
	}
}

// ReportStep renders the run's outcome through a report writer.
type ReportStep struct {
	writer report.Writer
}

// NewReportStep creates the report output step.
func NewReportStep(writer report.Writer) *ReportStep {
	return &ReportStep{writer: writer}
}

// Name returns the step name.
func (s *ReportStep) Name() string { return "report" }

// Do writes the comparison report, or the baseline report for crawl-only
// runs.
func (s *ReportStep) Do(_ context.Context, run *model.Run) error {
	switch {
	case run.Summary != nil:
		_, err := s.writer.WriteComparison(run.Summary)
		return err
	case run.Manifest != nil:
		_, err := s.writer.WriteBaseline(run.BaselineID, run.Manifest)
		return err
	default:
		return errors.New("nothing to report")
	}
}
