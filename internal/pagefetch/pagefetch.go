// Package pagefetch is the page content provider boundary. The extractor
// only sees the Provider/Session contract; whether a page is served by a
// plain HTTP fetch or a headless browser is an implementation detail.
package pagefetch

import (
	"context"
	"fmt"
	"time"
)

// DefaultTimeout bounds a single page interaction. It must stay shorter than
// the run deadline so cancellation propagates promptly.
const DefaultTimeout = 30 * time.Second

// DefaultUserAgent identifies the fetcher to career sites.
const DefaultUserAgent = "Mozilla/5.0 (compatible; applypilot/1.0)"

// Selectors is the declarative descriptor for pulling listing fragments out
// of a page.
type Selectors struct {
	List     string
	Title    string
	Location string
	Link     string
}

// Fragment is one raw listing row as found on the page. Href may be relative.
type Fragment struct {
	Title    string
	Location string
	Href     string
}

// Session is an open page the extractor can interact with. All methods honor
// context cancellation.
type Session interface {
	// ClickText locates a clickable element whose text contains the given
	// trigger (case-insensitive) and clicks it. It reports whether anything
	// was clicked; an absent trigger is not an error.
	ClickText(ctx context.Context, text string) (bool, error)

	// ScrollBottom triggers the page's "load more content" behavior.
	ScrollBottom(ctx context.Context) error

	// Fingerprint returns a content-size measure used by the reveal loop to
	// detect convergence (rendered height, byte count or similar).
	Fingerprint(ctx context.Context) (int64, error)

	// Fragments extracts the current listing fragments.
	Fragments(ctx context.Context, sel Selectors) ([]Fragment, error)

	// HTML returns the page markup as currently rendered.
	HTML(ctx context.Context) (string, error)

	Close() error
}

// Provider opens page sessions.
type Provider interface {
	Open(ctx context.Context, url string) (Session, error)
}

// Options configures fetching behavior shared by the implementations.
type Options struct {
	Timeout   time.Duration
	UserAgent string
}

// DefaultOptions returns sensible defaults.
func DefaultOptions() *Options {
	return &Options{
		Timeout:   DefaultTimeout,
		UserAgent: DefaultUserAgent,
	}
}

// Error is a typed fetch failure carrying the URL it happened on.
type Error struct {
	URL     string
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("fetch %s: %s: %v", e.URL, e.Message, e.Cause)
	}
	return fmt.Sprintf("fetch %s: %s", e.URL, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Cause
}
