package browser

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/proto"
	"github.com/go-rod/stealth"

	"github.com/nao1215/sitediff/internal/config"
	"github.com/nao1215/sitediff/internal/crawler"
)

// Capturer renders pages and takes full-page screenshots. It keeps a
// fixed pool of browser tabs (one per render surface) so concurrent
// captures never contend for the same tab.
//
// Every capture uses the same viewport, recorded in the manifest, so
// that two runs of the same site produce pixel-comparable screenshots.
type Capturer struct {
	pool   chan *rod.Page
	logger *slog.Logger

	closeOnce sync.Once
	pages     []*rod.Page
}

// NewCapturer creates surfaces stealth tabs on the given browser, each
// with the capture viewport applied.
func NewCapturer(b *rod.Browser, surfaces int, logger *slog.Logger) (*Capturer, error) {
	if surfaces < 1 {
		surfaces = 1
	}
	if logger == nil {
		logger = slog.Default()
	}

	c := &Capturer{
		pool:   make(chan *rod.Page, surfaces),
		logger: logger,
	}
	for i := 0; i < surfaces; i++ {
		page, err := stealth.Page(b)
		if err != nil {
			c.Close()
			return nil, fmt.Errorf("create tab: %w", err)
		}
		if err := page.SetViewport(&proto.EmulationSetDeviceMetricsOverride{
			Width:             config.ViewportWidth,
			Height:            config.ViewportHeight,
			DeviceScaleFactor: 1,
		}); err != nil {
			_ = page.Close()
			c.Close()
			return nil, fmt.Errorf("set viewport: %w", err)
		}
		c.pages = append(c.pages, page)
		c.pool <- page
	}
	return c, nil
}

// Capture navigates a pooled tab to pageURL, waits for the page to
// load, and returns the rendered HTML and a full-page PNG screenshot.
// It blocks until a tab is free or ctx is done.
func (c *Capturer) Capture(ctx context.Context, pageURL string) (*crawler.Capture, error) {
	var page *rod.Page
	select {
	case page = <-c.pool:
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	defer func() { c.pool <- page }()

	p := page.Context(ctx)

	if err := p.Navigate(pageURL); err != nil {
		return nil, fmt.Errorf("navigate %s: %w", pageURL, err)
	}
	if err := p.WaitLoad(); err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		// Some pages never fire load (long-polling assets). Screenshot
		// whatever has rendered rather than failing the page.
		c.logger.Warn("wait load failed", slog.String("url", pageURL), slog.String("error", err.Error()))
	}

	// Force a layout pass so lazily attached content is rendered
	// before the screenshot.
	if _, err := p.Eval(`() => document.documentElement.offsetHeight`); err != nil {
		c.logger.Debug("layout eval failed", slog.String("url", pageURL), slog.String("error", err.Error()))
	}

	html, err := p.HTML()
	if err != nil {
		return nil, fmt.Errorf("read document %s: %w", pageURL, err)
	}

	png, err := p.Screenshot(true, &proto.PageCaptureScreenshot{
		Format: proto.PageCaptureScreenshotFormatPng,
	})
	if err != nil {
		return nil, fmt.Errorf("screenshot %s: %w", pageURL, err)
	}

	return &crawler.Capture{HTML: html, PNG: png}, nil
}

// Close closes every pooled tab. Safe to call more than once.
func (c *Capturer) Close() {
	c.closeOnce.Do(func() {
		for _, page := range c.pages {
			if err := page.Close(); err != nil {
				c.logger.Debug("tab close failed", slog.String("error", err.Error()))
			}
		}
		c.pages = nil
	})
}
