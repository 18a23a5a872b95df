package pagefetch

import (
	"context"
	"net/http"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// MinContentLength is the minimum extracted text length to consider a static
// fetch useful. Shorter output usually means a JavaScript-rendered page.
const MinContentLength = 500

// TextFetcher retrieves the readable text of a single page, used to enrich
// job descriptions. A browser provider may be attached as a fallback for
// pages whose static text is too short.
type TextFetcher struct {
	opts    *Options
	client  *http.Client
	browser Provider
}

// NewTextFetcher creates a text fetcher. browser may be nil to disable the
// rendered fallback.
func NewTextFetcher(opts *Options, browser Provider) *TextFetcher {
	if opts == nil {
		opts = DefaultOptions()
	}

	return &TextFetcher{
		opts:    opts,
		client:  &http.Client{Timeout: opts.Timeout},
		browser: browser,
	}
}

// FetchText returns the visible text of the page at url.
func (f *TextFetcher) FetchText(ctx context.Context, url string) (string, error) {
	text, err := f.fetchStatic(ctx, url)
	if err == nil && len(strings.TrimSpace(text)) >= MinContentLength {
		return text, nil
	}

	if f.browser == nil {
		return text, err
	}

	rendered, berr := f.fetchRendered(ctx, url)
	if berr != nil {
		// Prefer whatever the static fetch produced over a browser error.
		if err == nil {
			return text, nil
		}
		return "", berr
	}

	return rendered, nil
}

func (f *TextFetcher) fetchStatic(ctx context.Context, url string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", &Error{URL: url, Message: "building request", Cause: err}
	}
	req.Header.Set("User-Agent", f.opts.UserAgent)

	resp, err := f.client.Do(req)
	if err != nil {
		return "", &Error{URL: url, Message: "request failed", Cause: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", &Error{URL: url, Message: "unexpected status " + resp.Status}
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return "", &Error{URL: url, Message: "parsing HTML", Cause: err}
	}

	return DocumentText(doc), nil
}

func (f *TextFetcher) fetchRendered(ctx context.Context, url string) (string, error) {
	session, err := f.browser.Open(ctx, url)
	if err != nil {
		return "", err
	}
	defer session.Close()

	html, err := session.HTML(ctx)
	if err != nil {
		return "", err
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return "", &Error{URL: url, Message: "parsing rendered HTML", Cause: err}
	}

	return DocumentText(doc), nil
}

// DocumentText strips boilerplate elements and returns normalized visible
// text.
func DocumentText(doc *goquery.Document) string {
	doc.Find("script, style, noscript, nav, header, footer, iframe").Remove()

	text := doc.Find("body").Text()

	lines := strings.Split(text, "\n")
	kept := lines[:0]
	for _, line := range lines {
		if trimmed := strings.TrimSpace(line); trimmed != "" {
			kept = append(kept, trimmed)
		}
	}

	return strings.Join(kept, "\n")
}
