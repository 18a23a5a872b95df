package pagefetch

import (
	"context"
	"net/http"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// StaticProvider serves sessions backed by a single HTTP GET. Reveal actions
// are no-ops: whatever the server rendered is all there is, so the reveal
// loop converges after one pass.
type StaticProvider struct {
	opts   *Options
	client *http.Client
}

// NewStaticProvider creates a provider that fetches pages over plain HTTP.
func NewStaticProvider(opts *Options) *StaticProvider {
	if opts == nil {
		opts = DefaultOptions()
	}

	return &StaticProvider{
		opts:   opts,
		client: &http.Client{Timeout: opts.Timeout},
	}
}

// Open fetches the page once and returns a session over the parsed document.
func (p *StaticProvider) Open(ctx context.Context, pageURL string) (Session, error) {
	parsed, err := url.Parse(pageURL)
	if err != nil || parsed.Scheme == "" || parsed.Host == "" {
		return nil, &Error{URL: pageURL, Message: "invalid URL", Cause: err}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return nil, &Error{URL: pageURL, Message: "building request", Cause: err}
	}
	req.Header.Set("User-Agent", p.opts.UserAgent)

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, &Error{URL: pageURL, Message: "request failed", Cause: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &Error{URL: pageURL, Message: "unexpected status " + resp.Status}
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return nil, &Error{URL: pageURL, Message: "parsing HTML", Cause: err}
	}

	html, _ := doc.Html()

	return &staticSession{doc: doc, size: int64(len(html))}, nil
}

type staticSession struct {
	doc  *goquery.Document
	size int64
}

func (s *staticSession) ClickText(context.Context, string) (bool, error) { return false, nil }

func (s *staticSession) ScrollBottom(context.Context) error { return nil }

func (s *staticSession) Fingerprint(context.Context) (int64, error) { return s.size, nil }

func (s *staticSession) Fragments(_ context.Context, sel Selectors) ([]Fragment, error) {
	return fragmentsFromDoc(s.doc, sel), nil
}

func (s *staticSession) HTML(context.Context) (string, error) {
	return s.doc.Html()
}

func (s *staticSession) Close() error { return nil }

// fragmentsFromDoc pulls listing fragments out of a parsed document. Shared
// by the static and browser sessions.
func fragmentsFromDoc(doc *goquery.Document, sel Selectors) []Fragment {
	var fragments []Fragment

	doc.Find(sel.List).Each(func(_ int, row *goquery.Selection) {
		frag := Fragment{}

		if title := row.Find(sel.Title).First(); title.Length() > 0 {
			frag.Title = strings.TrimSpace(title.Text())
		}
		if frag.Title == "" {
			// Rows without a dedicated title element often are the link itself.
			frag.Title = firstLine(row.Text())
		}

		if loc := row.Find(sel.Location).First(); loc.Length() > 0 {
			frag.Location = strings.TrimSpace(loc.Text())
		}

		if link := row.Find(sel.Link).First(); link.Length() > 0 {
			frag.Href, _ = link.Attr("href")
		}
		if frag.Href == "" {
			frag.Href, _ = row.Attr("href")
		}

		fragments = append(fragments, frag)
	})

	return fragments
}

func firstLine(s string) string {
	s = strings.TrimSpace(s)
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		s = s[:i]
	}
	const maxTitle = 100
	if len(s) > maxTitle {
		s = s[:maxTitle]
	}
	return strings.TrimSpace(s)
}
