package crawler

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/nao1215/sitediff/internal/config"
	"github.com/nao1215/sitediff/internal/model"
)

// Capturer renders a page in a browser and returns its HTML and a
// full-page screenshot.
type Capturer interface {
	// Capture navigates to pageURL, waits for the page to load, and
	// returns the rendered document and a PNG screenshot. It must honor
	// ctx cancellation and deadlines.
	Capture(ctx context.Context, pageURL string) (*Capture, error)
}

// Capture is the result of rendering one page.
type Capture struct {
	// HTML is the rendered document, after scripts have run.
	HTML string

	// PNG is the full-page screenshot.
	PNG []byte
}

// Sink persists screenshots as they are captured.
type Sink interface {
	// Store writes the PNG for pageURL and returns the reference under
	// which it was stored.
	Store(pageURL string, png []byte) (string, error)
}

// Crawler walks a site's internal link graph breadth-first from a start
// URL, capturing a screenshot of every page it visits and recording the
// outcome in a manifest.
//
// Discovery never leaves the start URL's host, visits each normalized
// URL at most once, and stops at the configured depth and page limits.
// Capture failures become error records; they do not abort the crawl.
type Crawler struct {
	capturer Capturer
	sink     Sink
	filter   *Filter
	rule     model.ClassifierRule

	maxDepth    int
	maxPages    int
	workers     int
	pageTimeout time.Duration

	// frontier drives the current crawl; Crawl rebuilds it per run.
	frontier *Frontier

	logger *slog.Logger
}

// Option configures a Crawler.
type Option func(*Crawler)

// WithLogger sets the logger. Defaults to slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(c *Crawler) { c.logger = logger }
}

// WithFilter sets the ignore/follow pattern filter for discovered links.
func WithFilter(f *Filter) Option {
	return func(c *Crawler) { c.filter = f }
}

// WithClassifierRule sets the main-page classification rule.
func WithClassifierRule(rule model.ClassifierRule) Option {
	return func(c *Crawler) { c.rule = rule }
}

// WithMaxDepth limits how many link hops from the start URL are followed.
func WithMaxDepth(depth int) Option {
	return func(c *Crawler) { c.maxDepth = depth }
}

// WithMaxPages limits the total number of pages claimed for capture.
func WithMaxPages(pages int) Option {
	return func(c *Crawler) { c.maxPages = pages }
}

// WithWorkers sets how many pages are captured concurrently. With the
// default of one worker the crawl order is fully deterministic; more
// workers keep the manifest order deterministic but capture pages of
// the same depth in parallel.
func WithWorkers(workers int) Option {
	return func(c *Crawler) { c.workers = workers }
}

// WithPageTimeout bounds how long a single page may take to render.
// A page that exceeds it becomes an error record, not a hung crawl.
func WithPageTimeout(d time.Duration) Option {
	return func(c *Crawler) { c.pageTimeout = d }
}

// New creates a crawler that captures pages with capturer and persists
// screenshots to sink.
func New(capturer Capturer, sink Sink, opts ...Option) *Crawler {
	c := &Crawler{
		capturer:    capturer,
		sink:        sink,
		filter:      NewFilter(nil, nil),
		rule:        model.RuleDepth,
		maxDepth:    config.DefaultCrawlDepth,
		maxPages:    config.DefaultMaxPages,
		workers:     config.DefaultWorkers,
		pageTimeout: config.DefaultTimeout,
		logger:      slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.workers < 1 {
		c.workers = 1
	}
	return c
}

// crawlItem pairs a claimed URL with its manifest record and the links
// discovered while capturing it.
type crawlItem struct {
	url        string
	record     *model.PageRecord
	discovered []string
}

// Crawl performs a breadth-first crawl from startURL and returns the
// resulting manifest. The manifest lists every claimed page in discovery
// order; pages that failed to capture appear as error records.
//
// Crawl returns a non-nil error only when the start URL is unusable or
// ctx is canceled. On cancellation the partially built manifest is
// returned alongside the error so the caller can decide what to do with
// it; it is never persisted by the crawler itself.
func (c *Crawler) Crawl(ctx context.Context, startURL string) (*model.Manifest, error) {
	start, err := NormalizeStart(startURL)
	if err != nil {
		return nil, fmt.Errorf("invalid start URL %q: %w", startURL, err)
	}
	su, err := url.Parse(start)
	if err != nil {
		return nil, fmt.Errorf("invalid start URL %q: %w", startURL, err)
	}

	manifest := model.NewManifest(su.Hostname(), start, c.rule, config.ViewportWidth, config.ViewportHeight)
	c.frontier = NewFrontier()
	c.frontier.Seed(start)

	pageType, pathDepth := Classify(start, start, c.rule)
	manifest.AddPage(model.NewPageRecord(start, pageType, pathDepth))
	records := map[string]*model.PageRecord{start: manifest.Pages[0]}

	c.logger.Info("starting crawl",
		slog.String("start_url", start),
		slog.Int("max_depth", c.maxDepth),
		slog.Int("max_pages", c.maxPages),
		slog.Int("workers", c.workers))

	for depth := 0; ; depth++ {
		// Every URL pending at the top of the loop was discovered at the
		// previous depth, so the whole batch sits at the same depth.
		var level []*crawlItem
		for {
			u, ok := c.frontier.Next()
			if !ok {
				break
			}
			level = append(level, &crawlItem{url: u, record: records[u]})
		}
		if len(level) == 0 {
			break
		}

		discover := depth < c.maxDepth
		g, gctx := errgroup.WithContext(ctx)
		g.SetLimit(c.workers)
		for _, item := range level {
			g.Go(func() error {
				return c.capturePage(gctx, item, su.Host, discover)
			})
		}
		if err := g.Wait(); err != nil {
			return manifest, err
		}

		// Every page in the level has had its capture attempt.
		for _, item := range level {
			c.frontier.MarkVisited(item.url)
		}

		// Offers happen here, in claim order, so the manifest order does
		// not depend on which worker finished first.
		for _, item := range level {
			for _, link := range item.discovered {
				if len(manifest.Pages) >= c.maxPages {
					break
				}
				if !c.frontier.Offer(link) {
					continue
				}
				pt, pd := Classify(link, start, c.rule)
				rec := model.NewPageRecord(link, pt, pd)
				records[link] = rec
				manifest.AddPage(rec)
			}
		}
	}

	succeeded, failed, _ := manifest.CountByStatus()
	c.logger.Info("crawl finished",
		slog.String("hostname", manifest.Hostname),
		slog.Int("succeeded", succeeded),
		slog.Int("failed", failed))

	return manifest, nil
}

// capturePage renders one claimed URL, persists its screenshot, and
// finalizes its record. When discover is true the page's same-host links
// are collected into item.discovered for the caller to enqueue.
func (c *Crawler) capturePage(ctx context.Context, item *crawlItem, host string, discover bool) error {
	pageCtx, cancel := context.WithTimeout(ctx, c.pageTimeout)
	defer cancel()

	captured, err := c.capturer.Capture(pageCtx, item.url)
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		c.logger.Warn("capture failed", slog.String("url", item.url), slog.String("error", err.Error()))
		return item.record.MarkError(err.Error())
	}

	result, err := c.parsePage(item.url, captured.HTML)
	if err != nil {
		c.logger.Warn("parse failed", slog.String("url", item.url), slog.String("error", err.Error()))
		return item.record.MarkError(fmt.Sprintf("parse page: %v", err))
	}

	if discover {
		item.discovered = c.collectLinks(item.url, host, result.Links)
	}

	ref, err := c.sink.Store(item.url, captured.PNG)
	if err != nil {
		c.logger.Warn("store snapshot failed", slog.String("url", item.url), slog.String("error", err.Error()))
		return item.record.MarkError(fmt.Sprintf("store snapshot: %v", err))
	}

	return item.record.MarkSuccess(result.Title, result.CanonicalURL, ref)
}

// parsePage extracts title, canonical URL, and links from rendered HTML.
func (c *Crawler) parsePage(pageURL, content string) (*ParseResult, error) {
	parser, err := NewParser(pageURL)
	if err != nil {
		return nil, err
	}
	return parser.Parse(strings.NewReader(content))
}

// collectLinks normalizes the raw hrefs from one page and keeps those
// that stay on the crawl's host and pass the pattern filter. Duplicates
// within the page are dropped here; cross-page duplicates are the
// frontier's job.
func (c *Crawler) collectLinks(pageURL, host string, links []string) []string {
	base, err := url.Parse(pageURL)
	if err != nil {
		return nil
	}

	seen := make(map[string]bool, len(links))
	kept := make([]string, 0, len(links))
	for _, link := range links {
		normalized, err := Normalize(link, base)
		if err != nil {
			continue
		}
		if !SameHost(host, normalized) {
			continue
		}
		if !c.filter.Allow(normalized) {
			continue
		}
		if seen[normalized] {
			continue
		}
		seen[normalized] = true
		kept = append(kept, normalized)
	}
	return kept
}
