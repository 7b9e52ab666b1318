package compare

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/nao1215/sitediff/internal/config"
	"github.com/nao1215/sitediff/internal/crawler"
	"github.com/nao1215/sitediff/internal/diff"
	"github.com/nao1215/sitediff/internal/model"
)

// SnapshotSource reads baseline screenshots by manifest reference.
// *baseline.Store satisfies it.
type SnapshotSource interface {
	Snapshot(id, ref string) ([]byte, error)
}

// ArtifactSink persists rendered diff images for changed pages.
type ArtifactSink interface {
	StoreDiff(pageURL string, png []byte) (string, error)
}

// Comparer runs a comparison pass: for every successfully captured page
// in a baseline it re-captures the live page and pixel-diffs the two
// screenshots.
type Comparer struct {
	capturer  crawler.Capturer
	source    SnapshotSource
	artifacts ArtifactSink

	pixelThreshold float64
	matchThreshold float64
	workers        int
	pageTimeout    time.Duration

	logger *slog.Logger
}

// Option configures a Comparer.
type Option func(*Comparer)

// WithLogger sets the logger. Defaults to slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(c *Comparer) { c.logger = logger }
}

// WithArtifacts sets where diff images for changed pages are written.
// Without a sink, changed pages are classified but no image is kept.
func WithArtifacts(sink ArtifactSink) Option {
	return func(c *Comparer) { c.artifacts = sink }
}

// WithPixelThreshold sets the per-pixel color tolerance in [0, 1].
func WithPixelThreshold(threshold float64) Option {
	return func(c *Comparer) { c.pixelThreshold = threshold }
}

// WithMatchThreshold sets the page-level diff ratio below which a page
// counts as matched.
func WithMatchThreshold(threshold float64) Option {
	return func(c *Comparer) { c.matchThreshold = threshold }
}

// WithWorkers sets how many pages are compared concurrently.
func WithWorkers(workers int) Option {
	return func(c *Comparer) { c.workers = workers }
}

// WithPageTimeout bounds how long one re-capture may take.
func WithPageTimeout(d time.Duration) Option {
	return func(c *Comparer) { c.pageTimeout = d }
}

// New creates a comparer that re-captures pages with capturer and reads
// baseline screenshots from source.
func New(capturer crawler.Capturer, source SnapshotSource, opts ...Option) *Comparer {
	c := &Comparer{
		capturer:       capturer,
		source:         source,
		pixelThreshold: config.DefaultPixelThreshold,
		matchThreshold: config.DefaultMatchThreshold,
		workers:        config.DefaultCompareWorkers,
		pageTimeout:    config.DefaultTimeout,
		logger:         slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.workers < 1 {
		c.workers = 1
	}
	return c
}

// Run compares every successful page of the baseline manifest. Pages are
// compared concurrently but the summary lists results in manifest order.
// A non-nil error is returned only on context cancellation; per-page
// failures become errored results.
func (c *Comparer) Run(ctx context.Context, baselineID string, manifest *model.Manifest) (*model.ComparisonSummary, error) {
	summary := model.NewComparisonSummary(manifest.Hostname, baselineID, manifest.StartURL)
	pages := manifest.SuccessPages()

	c.logger.Info("starting comparison",
		slog.String("baseline", baselineID),
		slog.Int("pages", len(pages)),
		slog.Int("workers", c.workers))

	results := make([]*model.ComparisonResult, len(pages))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(c.workers)
	for i, page := range pages {
		g.Go(func() error {
			r, err := c.comparePage(gctx, baselineID, page)
			if err != nil {
				return err
			}
			results[i] = r
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return summary, err
	}

	for _, r := range results {
		summary.Add(r)
	}

	c.logger.Info("comparison finished",
		slog.String("baseline", baselineID),
		slog.Int("matched", summary.Matched),
		slog.Int("changed", summary.Changed),
		slog.Int("errored", summary.Errored))

	return summary, nil
}

// comparePage produces the result for one baseline page. It returns a
// non-nil error only when ctx is canceled.
func (c *Comparer) comparePage(ctx context.Context, baselineID string, page *model.PageRecord) (*model.ComparisonResult, error) {
	basePNG, err := c.source.Snapshot(baselineID, page.SnapshotRef)
	if err != nil {
		return errored(page.URL, fmt.Sprintf("baseline snapshot: %v", err)), nil
	}

	pageCtx, cancel := context.WithTimeout(ctx, c.pageTimeout)
	defer cancel()
	captured, err := c.capturer.Capture(pageCtx, page.URL)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return errored(page.URL, fmt.Sprintf("recapture: %v", err)), nil
	}

	res, err := diff.New(c.pixelThreshold).Compare(basePNG, captured.PNG)
	if err != nil {
		// Dimension mismatches and undecodable screenshots are compare
		// failures, never "changed".
		return errored(page.URL, err.Error()), nil
	}

	ratio := res.Ratio()
	result := &model.ComparisonResult{
		URL:            page.URL,
		DiffPixels:     res.DiffPixels,
		ComparedPixels: res.TotalPixels,
		DiffRatio:      &ratio,
	}

	if ratio < c.matchThreshold {
		result.Classification = model.ClassMatched
		return result, nil
	}

	result.Classification = model.ClassChanged
	if c.artifacts != nil && res.DiffImage != nil {
		ref, err := c.artifacts.StoreDiff(page.URL, res.DiffImage)
		if err != nil {
			c.logger.Warn("store diff image failed",
				slog.String("url", page.URL), slog.String("error", err.Error()))
		} else {
			result.DiffArtifactRef = ref
		}
	}
	return result, nil
}

func errored(url, message string) *model.ComparisonResult {
	return &model.ComparisonResult{
		URL:            url,
		Classification: model.ClassErrored,
		ErrorMessage:   message,
	}
}
