// Package connector crawls a website into batches of uniform documents. It
// seeds a frontier from one of four strategies, walks it depth-first with a
// reusable browser session, and emits fixed-size document batches.
package connector

import (
	"context"
	"fmt"
	"iter"
	"log/slog"
	"net/url"
	"os"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"webingest/internal/config"
	"webingest/internal/document"
	"webingest/internal/extract"
	"webingest/internal/fetcher"
)

// Connector drives a single crawl. It owns all mutable crawl state; the
// loop is strictly sequential, one URL at a time.
type Connector struct {
	cfg      config.Config
	mode     Mode
	baseURL  string
	scopeURL string
	seeds    []string

	http        *fetcher.HTTPFetcher
	newRenderer fetcher.RendererFactory
	renderer    fetcher.Renderer

	logger *slog.Logger
}

// New builds a connector and seeds its frontier. Construction fails on an
// unknown mode, an unreachable sitemap, or an unreadable upload file; once
// construction succeeds the crawl itself always runs to completion.
func New(ctx context.Context, cfg config.Config) (*Connector, error) {
	return NewWithRenderer(ctx, cfg, nil)
}

// NewWithRenderer builds a connector with a custom renderer factory. A nil
// factory selects the chromedp session.
func NewWithRenderer(ctx context.Context, cfg config.Config, factory fetcher.RendererFactory) (*Connector, error) {
	logger, err := buildLogger(cfg.Logging)
	if err != nil {
		return nil, err
	}

	mode, err := ParseMode(cfg.Connector.Mode)
	if err != nil {
		return nil, err
	}

	httpFetcher, err := fetcher.NewHTTPFetcher(fetcher.Options{
		UserAgent:    cfg.Fetch.UserAgent,
		Headers:      cfg.Fetch.Headers,
		Timeout:      cfg.Fetch.RequestTimeout.Duration,
		MaxBodyBytes: cfg.Fetch.MaxBodyBytes,
		ProxyURL:     cfg.Fetch.ProxyURL,
	})
	if err != nil {
		return nil, fmt.Errorf("http fetcher: %w", err)
	}

	if factory == nil {
		renderOpts := fetcher.RenderOptions{
			Timeout:         cfg.Rendering.Timeout.Duration,
			WaitForSelector: cfg.Rendering.WaitForSelector,
			CaptureDelay:    cfg.Rendering.CaptureDelay.Duration,
			UserAgent:       cfg.Fetch.UserAgent,
			MaxBodyBytes:    cfg.Fetch.MaxBodyBytes,
			DisableHeadless: cfg.Rendering.DisableHeadless,
		}
		factory = func() fetcher.Renderer {
			return fetcher.NewRenderSession(renderOpts)
		}
	}

	c := &Connector{
		cfg:         cfg,
		mode:        mode,
		baseURL:     cfg.Connector.BaseURL,
		http:        httpFetcher,
		newRenderer: factory,
		logger:      logger,
	}

	seeds, err := c.seed(ctx)
	if err != nil {
		return nil, err
	}
	c.seeds = seeds
	if mode == ModeRecursive && len(seeds) > 0 {
		c.scopeURL = seeds[0]
	}
	return c, nil
}

// Batches runs the crawl and yields completed document batches. The
// consumer's loop body executes between yields, so a slow consumer throttles
// the crawl naturally. Every batch has exactly the configured size except
// possibly the last. Per-page failures are logged and skipped; the only
// error ever yielded is the context's, on cancellation.
func (c *Connector) Batches(ctx context.Context) iter.Seq2[[]document.Document, error] {
	return func(yield func([]document.Document, error) bool) {
		defer c.dropRenderer()

		state := newCrawlState(c.seeds)
		batchSize := c.cfg.Connector.BatchSize
		batch := make([]document.Document, 0, batchSize)

		for {
			if err := ctx.Err(); err != nil {
				yield(nil, err)
				return
			}
			current, ok := state.pop()
			if !ok {
				break
			}
			if state.seen(current) {
				continue
			}
			state.markVisited(current)

			c.logger.Info("visiting", "url", current)

			doc, ok := c.processURL(ctx, current, state)
			if !ok {
				continue
			}
			batch = append(batch, doc)

			if len(batch) >= batchSize {
				// A fresh session per batch keeps browser lifetime bounded.
				c.dropRenderer()
				if !yield(batch, nil) {
					return
				}
				batch = make([]document.Document, 0, batchSize)
			}
		}

		if len(batch) > 0 {
			c.dropRenderer()
			yield(batch, nil)
		}
	}
}

// processURL fetches, extracts, and assembles one document. It reports
// ok=false when the URL is dropped: render failures, redirects onto visited
// pages, or unparseable content. Failures never abort the crawl.
func (c *Connector) processURL(ctx context.Context, current string, state *crawlState) (document.Document, bool) {
	if strings.HasSuffix(strings.ToLower(current), ".pdf") {
		return c.processPDF(ctx, current)
	}

	html, finalURL, err := c.session().Render(ctx, current)
	if err != nil {
		c.logger.Error("failed to fetch", "url", current, "error", err)
		// The session state is untrusted after any failure.
		c.dropRenderer()
		return document.Document{}, false
	}

	if finalURL != "" && finalURL != current {
		c.logger.Info("redirected", "from", current, "to", finalURL)
		if state.seen(finalURL) {
			// Content already captured under its final identity.
			return document.Document{}, false
		}
		state.markVisited(finalURL)
		current = finalURL
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		c.logger.Error("failed to parse page", "url", current, "error", err)
		c.dropRenderer()
		return document.Document{}, false
	}

	if c.mode == ModeRecursive {
		if pageURL, err := url.Parse(current); err == nil {
			for _, link := range extract.Links(c.scopeURL, pageURL, doc, c.cfg.Connector.KeepFragments) {
				if !state.seen(link) {
					state.push(link)
				}
			}
		}
	}

	parsed := extract.Normalize(doc, extract.Options{
		CleanupProfile: c.cfg.Connector.CleanupProfile,
		DropTags:       c.cfg.Connector.DropTags,
	})

	md := document.Metadata{"title": parsed.Title}
	if markers := extract.MarkerTexts(doc, c.cfg.Connector.MarkerSelector); len(markers) > 0 {
		md["content"] = markers
	}

	return document.New(current, parsed.Text, md), true
}

// processPDF downloads and extracts a PDF. PDFs are not scanned for links,
// and an unreadable PDF still yields a document with empty text so it stays
// discoverable by URL.
func (c *Connector) processPDF(ctx context.Context, current string) (document.Document, bool) {
	res, err := c.http.Fetch(ctx, current)
	if err != nil {
		c.logger.Error("failed to fetch", "url", current, "error", err)
		return document.Document{}, false
	}
	text := extract.PDFText(res.Body, current, c.cfg.Fetch.PDFPassword, c.logger)
	return document.New(current, text, document.Metadata{}), true
}

// session returns the live render session, creating one on first use or
// after a drop.
func (c *Connector) session() fetcher.Renderer {
	if c.renderer == nil {
		c.renderer = c.newRenderer()
	}
	return c.renderer
}

// dropRenderer discards the current session so the next use starts fresh.
func (c *Connector) dropRenderer() {
	if c.renderer != nil {
		c.renderer.Close()
		c.renderer = nil
	}
}

func buildLogger(cfg config.LoggingConfig) (*slog.Logger, error) {
	level := slog.LevelInfo
	switch strings.ToLower(cfg.Level) {
	case "debug":
		level = slog.LevelDebug
	case "info", "":
		level = slog.LevelInfo
	case "warn", "warning":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		return nil, fmt.Errorf("unsupported log level %q", cfg.Level)
	}

	opts := &slog.HandlerOptions{Level: level}
	var handler slog.Handler
	if cfg.Structured {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		handler = slog.NewTextHandler(os.Stdout, opts)
	}
	return slog.New(handler), nil
}
