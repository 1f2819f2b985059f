package fetcher

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/chromedp/chromedp"
)

// RenderError reports a page-render failure. The session that produced it is
// untrusted afterwards and must be discarded by the caller.
type RenderError struct {
	URL string
	Err error
}

func (e *RenderError) Error() string {
	return fmt.Sprintf("render %s: %v", e.URL, e.Err)
}

func (e *RenderError) Unwrap() error { return e.Err }

// Renderer loads a URL in a browser and returns the rendered DOM plus the
// final post-redirect location. Implementations are stateful and exclusively
// owned; Close releases the underlying browser.
type Renderer interface {
	Render(ctx context.Context, pageURL string) (html string, finalURL string, err error)
	Close()
}

// RendererFactory builds a fresh Renderer. The connector calls it again
// whenever it discards a session after a failure or a batch flush.
type RendererFactory func() Renderer

// RenderOptions configures the headless browser session.
type RenderOptions struct {
	Timeout         time.Duration
	WaitForSelector string
	CaptureDelay    time.Duration
	UserAgent       string
	MaxBodyBytes    int64
	DisableHeadless bool
}

// RenderSession is a long-lived chromedp browser reused across page loads.
// One browser process backs the session; each Render opens a fresh tab.
type RenderSession struct {
	opts          RenderOptions
	allocCancel   context.CancelFunc
	browserCtx    context.Context
	browserCancel context.CancelFunc
}

// NewRenderSession starts a browser session. The underlying Chrome process
// launches lazily on the first Render call.
func NewRenderSession(opts RenderOptions) *RenderSession {
	if opts.Timeout <= 0 {
		opts.Timeout = 60 * time.Second
	}
	if opts.MaxBodyBytes <= 0 {
		opts.MaxBodyBytes = 10 * 1024 * 1024
	}
	if opts.CaptureDelay <= 0 {
		opts.CaptureDelay = 1500 * time.Millisecond
	}

	execOpts := []chromedp.ExecAllocatorOption{
		chromedp.Flag("headless", !opts.DisableHeadless),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.Flag("no-sandbox", true),
	}
	if ua := strings.TrimSpace(opts.UserAgent); ua != "" {
		execOpts = append(execOpts, chromedp.UserAgent(ua))
	}

	allocCtx, allocCancel := chromedp.NewExecAllocator(context.Background(), execOpts...)
	browserCtx, browserCancel := chromedp.NewContext(allocCtx)

	return &RenderSession{
		opts:          opts,
		allocCancel:   allocCancel,
		browserCtx:    browserCtx,
		browserCancel: browserCancel,
	}
}

// Render navigates a new tab to the target URL and exports the final DOM
// outer HTML and post-redirect location.
func (s *RenderSession) Render(ctx context.Context, pageURL string) (string, string, error) {
	tabCtx, tabCancel := chromedp.NewContext(s.browserCtx)
	defer tabCancel()

	tabCtx, timeoutCancel := context.WithTimeout(tabCtx, s.opts.Timeout)
	defer timeoutCancel()

	// The tab derives from the session, not the caller; propagate the
	// caller's cancellation by hand.
	stop := context.AfterFunc(ctx, tabCancel)
	defer stop()

	actions := []chromedp.Action{
		chromedp.Navigate(pageURL),
	}
	if selector := strings.TrimSpace(s.opts.WaitForSelector); selector != "" {
		actions = append(actions,
			chromedp.WaitReady(selector, chromedp.ByQuery),
			chromedp.Sleep(250*time.Millisecond),
		)
	} else {
		actions = append(actions, chromedp.Sleep(s.opts.CaptureDelay))
	}

	var html string
	var finalURL string
	actions = append(actions,
		chromedp.OuterHTML("html", &html, chromedp.ByQuery),
		chromedp.Location(&finalURL),
	)

	if err := chromedp.Run(tabCtx, actions...); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			err = ctxErr
		}
		return "", "", &RenderError{URL: pageURL, Err: err}
	}

	if int64(len(html)) > s.opts.MaxBodyBytes {
		html = html[:s.opts.MaxBodyBytes]
	}
	return html, finalURL, nil
}

// Close shuts down the browser. The session cannot be reused afterwards.
func (s *RenderSession) Close() {
	s.browserCancel()
	s.allocCancel()
}
