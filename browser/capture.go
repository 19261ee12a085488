// Package browser captures the internal data-fetch request a listing page
// issues while it is scrolled, so that later pages can be requested directly
// over HTTP.
//
// A capture launches a headless Chrome through chromedp, opens the listing,
// clears dialogs out of the way and scrolls until the page asks the backend
// for more results. The first such request's form body and the session's
// cookies make up the harvest.ReplayTemplate.
package browser

import (
	"context"
	"strconv"
	"strings"
	"sync/atomic"
	"time"

	"github.com/chromedp/cdproto/cdp"
	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/chromedp"
	"github.com/chromedp/chromedp/kb"
	"go.uber.org/zap"

	"github.com/findrandomevents/harvest"
	"github.com/findrandomevents/harvest/errors"
	"github.com/findrandomevents/harvest/facebook"
	"github.com/findrandomevents/harvest/log"
	"github.com/findrandomevents/harvest/prom"
)

// Selectors of the controls the capture interacts with.
const (
	declineCookiesSelector = `[role="button"][aria-label="Decline optional cookies"]`
	groupSeeMoreSelector   = `[role="button"][aria-label="See more"]`
)

// Capturer runs browser capture sessions. The zero value is not usable, use
// New.
type Capturer struct {
	// ExecPath is the Chrome binary. Empty means chromedp's lookup.
	ExecPath string
	// Headless runs Chrome without a window.
	Headless bool
	// NoSandbox disables Chrome's sandbox, which is required on hosts
	// such as AWS Lambda.
	NoSandbox bool

	// StepDelay is the pause after each interaction and the time each
	// scroll step waits for the data-fetch request.
	StepDelay time.Duration
	// MaxScrolls bounds the number of scroll steps.
	MaxScrolls int
	// ScrollPixels is how far each scroll step moves.
	ScrollPixels int
	// IdleTimeout bounds the wait for the page's network to go idle.
	IdleTimeout time.Duration
	// SessionTimeout bounds a whole capture session.
	SessionTimeout time.Duration
}

// New returns a Capturer with the default timings.
func New() *Capturer {
	return &Capturer{
		Headless:       true,
		StepDelay:      100 * time.Millisecond,
		MaxScrolls:     20,
		ScrollPixels:   1000,
		IdleTimeout:    30 * time.Second,
		SessionTimeout: 2 * time.Minute,
	}
}

func (c *Capturer) allocatorOptions() []chromedp.ExecAllocatorOption {
	opts := append([]chromedp.ExecAllocatorOption{}, chromedp.DefaultExecAllocatorOptions[:]...)
	opts = append(opts, chromedp.Flag("headless", c.Headless), chromedp.DisableGPU)
	if c.ExecPath != "" {
		opts = append(opts, chromedp.ExecPath(c.ExecPath))
	}
	if c.NoSandbox {
		opts = append(opts, chromedp.NoSandbox, chromedp.Flag("single-process", true))
	}
	return opts
}

// Capture opens url in a fresh browser and returns the first data-fetch
// request the page issues while being scrolled.
//
// If the page stops growing or the scroll budget runs out before such a
// request is seen, Capture returns a nil template and a CaptureAborted
// error: the listing has no further pages to offer.
func (c *Capturer) Capture(ctx context.Context, url string, kind harvest.SourceKind) (*harvest.ReplayTemplate, error) {
	const op errors.Op = "Capturer.Capture"
	ctx, logger := log.With(ctx, zap.String("url", url), zap.String("kind", string(kind)))

	if c.SessionTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.SessionTimeout)
		defer cancel()
	}

	allocCtx, cancelAlloc := chromedp.NewExecAllocator(ctx, c.allocatorOptions()...)
	defer cancelAlloc()
	browserCtx, cancelBrowser := chromedp.NewContext(allocCtx, chromedp.WithLogf(logger.Sugar().Debugf))
	defer cancelBrowser()

	watch := newWatcher()
	chromedp.ListenTarget(browserCtx, watch.handle)

	err := chromedp.Run(browserCtx,
		network.Enable(),
		page.Enable(),
		page.SetLifecycleEventsEnabled(true),
		network.SetExtraHTTPHeaders(network.Headers{"Accept-Language": "en-US,en;q=0.9"}),
		chromedp.Navigate(url),
	)
	if err != nil {
		prom.Captures.WithLabelValues(string(kind), "error").Inc()
		return nil, errors.E(op, errors.CaptureAborted, errors.URL(url), err)
	}
	c.waitIdle(browserCtx, watch.idle)

	c.dismissDialogs(browserCtx, logger)

	watch.arm()
	if kind == harvest.GroupKind {
		c.clickIfPresent(browserCtx, groupSeeMoreSelector, logger)
	}

	requestID, ok, err := scrollUntilCaptured(browserCtx, chromeScroller{}, watch.captured, c.StepDelay, c.MaxScrolls, c.ScrollPixels)
	if err != nil {
		prom.Captures.WithLabelValues(string(kind), "error").Inc()
		return nil, errors.E(op, errors.CaptureAborted, errors.URL(url), err)
	}
	if !ok {
		prom.Captures.WithLabelValues(string(kind), "stalled").Inc()
		logger.Info("no data-fetch request observed")
		return nil, errors.E(op, errors.CaptureAborted, errors.URL(url), "scrolling stalled")
	}

	var tmpl harvest.ReplayTemplate
	err = chromedp.Run(browserCtx, chromedp.ActionFunc(func(ctx context.Context) error {
		postData, err := network.GetRequestPostData(requestID).Do(ctx)
		if err != nil {
			return err
		}
		cookies, err := network.GetCookies().Do(ctx)
		if err != nil {
			return err
		}
		tmpl = newTemplate(postData, cookies)
		return nil
	}))
	if err != nil {
		prom.Captures.WithLabelValues(string(kind), "error").Inc()
		return nil, errors.E(op, errors.CaptureAborted, errors.URL(url), err)
	}

	if err := chromedp.Cancel(browserCtx); err != nil {
		logger.Debug("close browser failed", zap.Error(err))
	}

	prom.Captures.WithLabelValues(string(kind), "captured").Inc()
	logger.Debug("captured data-fetch request", zap.Int("postDataBytes", len(tmpl.PostData)))

	return &tmpl, nil
}

// waitIdle blocks until the page reports network idle or IdleTimeout passes.
func (c *Capturer) waitIdle(ctx context.Context, idle <-chan struct{}) {
	timeout := c.IdleTimeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	t := time.NewTimer(timeout)
	defer t.Stop()

	select {
	case <-idle:
	case <-t.C:
	case <-ctx.Done():
	}
}

// dismissDialogs declines the cookie banner, clicks the page body to close
// overlays and presses Escape for any modal left. None of these are required
// to succeed.
func (c *Capturer) dismissDialogs(ctx context.Context, logger *zap.Logger) {
	c.clickIfPresent(ctx, declineCookiesSelector, logger)
	sleep(ctx, c.StepDelay)

	if err := chromedp.Run(ctx, chromedp.MouseClickXY(1, 1)); err != nil {
		logger.Debug("click body failed", zap.Error(err))
	}
	sleep(ctx, c.StepDelay)

	if err := chromedp.Run(ctx, chromedp.KeyEvent(kb.Escape)); err != nil {
		logger.Debug("press escape failed", zap.Error(err))
	}
}

func (c *Capturer) clickIfPresent(ctx context.Context, sel string, logger *zap.Logger) {
	var nodes []*cdp.Node
	if err := chromedp.Run(ctx, chromedp.Nodes(sel, &nodes, chromedp.ByQuery, chromedp.AtLeast(0))); err != nil {
		logger.Debug("query failed", zap.String("selector", sel), zap.Error(err))
		return
	}
	if len(nodes) == 0 {
		return
	}
	if err := chromedp.Run(ctx, chromedp.MouseClickNode(nodes[0])); err != nil {
		logger.Debug("click failed", zap.String("selector", sel), zap.Error(err))
	}
}

// chromeScroller scrolls the page of the chromedp context it is run in.
type chromeScroller struct{}

func (chromeScroller) ScrollBy(ctx context.Context, pixels int) (int64, error) {
	var height int64
	script := `(() => { window.scrollBy(0, ` + strconv.Itoa(pixels) + `); return document.body.scrollHeight; })()`
	err := chromedp.Run(ctx, chromedp.Evaluate(script, &height))
	return height, err
}

// watcher picks the page's data-fetch request out of its network events.
// Requests are ignored until arm is called, so that the requests made while
// the page loads are not mistaken for pagination.
type watcher struct {
	armed    atomic.Bool
	captured chan network.RequestID
	idle     chan struct{}
}

func newWatcher() *watcher {
	return &watcher{
		captured: make(chan network.RequestID, 1),
		idle:     make(chan struct{}, 1),
	}
}

func (w *watcher) arm() { w.armed.Store(true) }

func (w *watcher) handle(ev interface{}) {
	switch ev := ev.(type) {
	case *page.EventLifecycleEvent:
		if ev.Name == "networkIdle" {
			notify(w.idle, struct{}{})
		}
	case *network.EventRequestWillBeSent:
		if !w.armed.Load() || ev.Request == nil || !ev.Request.HasPostData {
			return
		}
		if facebook.IsGraphQLRequest(ev.Request.URL) {
			notify(w.captured, ev.RequestID)
		}
	}
}

func newTemplate(postData string, cookies []*network.Cookie) harvest.ReplayTemplate {
	return harvest.ReplayTemplate{PostData: postData, Cookies: serializeCookies(cookies)}
}

func serializeCookies(cookies []*network.Cookie) string {
	parts := make([]string, 0, len(cookies))
	for _, c := range cookies {
		parts = append(parts, c.Name+"="+c.Value)
	}
	return strings.Join(parts, "; ")
}

// notify does a non-blocking send; only the first value is kept.
func notify[T any](ch chan<- T, v T) {
	select {
	case ch <- v:
	default:
	}
}
