package pagefetch

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/chromedp/cdproto/cdp"
	"github.com/chromedp/chromedp"
	"go.uber.org/zap"
)

// BrowserProvider serves sessions rendered by a headless browser. Needed for
// career pages that only show listings after JavaScript runs or after UI
// interaction. Requires Chrome/Chromium on the host.
type BrowserProvider struct {
	opts   *Options
	logger *zap.Logger
}

// NewBrowserProvider creates a chromedp-backed provider.
func NewBrowserProvider(opts *Options, logger *zap.Logger) *BrowserProvider {
	if opts == nil {
		opts = DefaultOptions()
	}

	return &BrowserProvider{opts: opts, logger: logger}
}

// Open navigates a fresh browser tab to the page and waits for the initial
// render.
func (p *BrowserProvider) Open(ctx context.Context, pageURL string) (Session, error) {
	allocCtx, cancelAlloc := chromedp.NewExecAllocator(ctx,
		append(chromedp.DefaultExecAllocatorOptions[:],
			chromedp.Flag("headless", true),
			chromedp.Flag("disable-gpu", true),
			chromedp.Flag("no-sandbox", true),
			chromedp.Flag("disable-dev-shm-usage", true),
		)...,
	)

	browserCtx, cancelBrowser := chromedp.NewContext(allocCtx)

	s := &browserSession{
		url:    pageURL,
		ctx:    browserCtx,
		logger: p.logger,
		cancel: func() {
			cancelBrowser()
			cancelAlloc()
		},
	}

	err := chromedp.Run(browserCtx,
		chromedp.Navigate(pageURL),
		chromedp.WaitReady("body"),
		chromedp.Sleep(2*time.Second),
	)
	if err != nil {
		s.Close()
		return nil, &Error{URL: pageURL, Message: "browser navigation failed", Cause: err}
	}

	return s, nil
}

type browserSession struct {
	url    string
	ctx    context.Context
	cancel context.CancelFunc
	logger *zap.Logger
}

// ClickText finds the first anchor or button containing the trigger text,
// scrolls it into view and clicks it.
func (s *browserSession) ClickText(ctx context.Context, text string) (bool, error) {
	text = strings.ToLower(strings.TrimSpace(text))
	if text == "" || strings.ContainsAny(text, `'"`) {
		return false, nil
	}

	xpath := fmt.Sprintf(
		`//*[self::a or self::button][contains(translate(normalize-space(.), 'ABCDEFGHIJKLMNOPQRSTUVWXYZ', 'abcdefghijklmnopqrstuvwxyz'), '%s')]`,
		text,
	)

	var nodes []*cdp.Node
	if err := s.run(ctx, chromedp.Nodes(xpath, &nodes, chromedp.BySearch, chromedp.AtLeast(0))); err != nil {
		return false, err
	}
	if len(nodes) == 0 {
		return false, nil
	}

	err := s.run(ctx,
		chromedp.ScrollIntoView(xpath, chromedp.BySearch),
		chromedp.Click(xpath, chromedp.BySearch),
	)
	if err != nil {
		// Overlays and disabled buttons make clicks flaky; treat as not clicked.
		s.logger.Debug("trigger click failed",
			zap.String("url", s.url),
			zap.String("trigger", text),
			zap.Error(err),
		)
		return false, nil
	}

	return true, nil
}

func (s *browserSession) ScrollBottom(ctx context.Context) error {
	return s.run(ctx, chromedp.Evaluate(`window.scrollTo(0, document.body.scrollHeight)`, nil))
}

// Fingerprint reports the rendered document height. Pages that append content
// asynchronously grow this value between reveal passes.
func (s *browserSession) Fingerprint(ctx context.Context) (int64, error) {
	var height float64
	if err := s.run(ctx, chromedp.Evaluate(`document.body.scrollHeight`, &height)); err != nil {
		return 0, err
	}
	return int64(height), nil
}

func (s *browserSession) Fragments(ctx context.Context, sel Selectors) ([]Fragment, error) {
	var html string
	if err := s.run(ctx, chromedp.OuterHTML("html", &html)); err != nil {
		return nil, err
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, &Error{URL: s.url, Message: "parsing rendered HTML", Cause: err}
	}

	return fragmentsFromDoc(doc, sel), nil
}

func (s *browserSession) HTML(ctx context.Context) (string, error) {
	var html string
	if err := s.run(ctx, chromedp.OuterHTML("html", &html)); err != nil {
		return "", err
	}
	return html, nil
}

func (s *browserSession) Close() error {
	s.cancel()
	return nil
}

// run executes actions on the session tab while honoring the caller's
// context, which carries the per-call timeout and run-deadline cancellation.
func (s *browserSession) run(ctx context.Context, actions ...chromedp.Action) error {
	runCtx, cancel := mergeContexts(s.ctx, ctx)
	defer cancel()
	return chromedp.Run(runCtx, actions...)
}

// mergeContexts derives the browser context but stops when the caller's
// context is done.
func mergeContexts(browser, caller context.Context) (context.Context, context.CancelFunc) {
	merged, cancel := context.WithCancel(browser)
	stop := context.AfterFunc(caller, cancel)
	return merged, func() {
		stop()
		cancel()
	}
}
