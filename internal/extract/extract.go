// Package extract turns configured career-page sources into normalized job
// listings. It owns the reveal state machine: trigger clicks to make listings
// appear, then a convergence-bounded scroll loop for pages that load content
// lazily.
package extract

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/applypilot/applypilot/internal/job"
	"github.com/applypilot/applypilot/internal/pagefetch"
	"github.com/applypilot/applypilot/internal/utils"
)

const (
	// DefaultMaxRevealSteps bounds the scroll loop on pages that never stabilize.
	DefaultMaxRevealSteps = 5
	// MinRevealWait is the floor wait after a reveal action; async content
	// needs time to arrive before the fingerprint is re-read.
	MinRevealWait = 3 * time.Second
	// sourcePrefix is the adapter identifier prefix on every listing source.
	sourcePrefix = "pagefetch"
)

// Source configures one career page to discover listings from.
type Source struct {
	Name           string
	Company        string
	URL            string
	ATS            string
	Selectors      pagefetch.Selectors
	RevealTriggers []string
	MaxRevealSteps int
	RevealWait     time.Duration
}

// ID returns the adapter source identifier, e.g. "pagefetch:acme".
func (s Source) ID() string {
	company := s.Company
	if company == "" {
		company = s.Name
	}
	return fmt.Sprintf("%s:%s", sourcePrefix, company)
}

// DiscoveryError marks a recoverable per-source failure. The run continues
// with the source degraded to zero listings.
type DiscoveryError struct {
	Source string
	Err    error
}

func (e *DiscoveryError) Error() string {
	return fmt.Sprintf("discovering %s: %v", e.Source, e.Err)
}

func (e *DiscoveryError) Unwrap() error {
	return e.Err
}

// Extractor drives page sessions and maps fragments to listings.
type Extractor struct {
	provider pagefetch.Provider
	logger   *zap.Logger

	// wait is a seam for tests; defaults to utils.WaitFor.
	wait func(ctx context.Context, d time.Duration) error
}

// New creates an extractor on top of the given page content provider.
func New(provider pagefetch.Provider, logger *zap.Logger) *Extractor {
	return &Extractor{
		provider: provider,
		logger:   logger,
		wait:     utils.WaitFor,
	}
}

// Extract discovers listings from one source. A provider failure yields an
// empty list and a *DiscoveryError; the caller decides how to degrade.
func (e *Extractor) Extract(ctx context.Context, src Source) ([]job.Listing, error) {
	session, err := e.provider.Open(ctx, src.URL)
	if err != nil {
		return nil, &DiscoveryError{Source: src.ID(), Err: err}
	}
	defer session.Close()

	revealWait := src.RevealWait
	if revealWait < MinRevealWait {
		revealWait = MinRevealWait
	}

	e.clickTriggers(ctx, session, src, revealWait)

	sel := resolveSelectors(src)
	base, err := url.Parse(src.URL)
	if err != nil {
		return nil, &DiscoveryError{Source: src.ID(), Err: fmt.Errorf("invalid source url: %w", err)}
	}

	var order []string
	byID := make(map[string]job.Listing)

	collect := func() error {
		fragments, err := session.Fragments(ctx, sel)
		if err != nil {
			return err
		}
		for _, frag := range fragments {
			listing, ok := e.toListing(src, base, frag)
			if !ok {
				continue
			}
			if _, seen := byID[listing.ID]; !seen {
				order = append(order, listing.ID)
			}
			// Repeated reveal passes re-see the same rows; last write wins.
			byID[listing.ID] = listing
		}
		return nil
	}

	if err := collect(); err != nil {
		return nil, &DiscoveryError{Source: src.ID(), Err: err}
	}

	if err := e.revealLoop(ctx, session, src, revealWait, collect); err != nil {
		return nil, &DiscoveryError{Source: src.ID(), Err: err}
	}

	listings := make([]job.Listing, 0, len(order))
	for _, id := range order {
		listings = append(listings, byID[id])
	}

	e.logger.Info("extracted listings",
		zap.String("source", src.ID()),
		zap.Int("count", len(listings)),
	)

	return listings, nil
}

// clickTriggers fires the configured reveal triggers in declared order,
// waiting after each successful click. Trigger failures are non-fatal.
func (e *Extractor) clickTriggers(ctx context.Context, session pagefetch.Session, src Source, revealWait time.Duration) {
	for _, trigger := range src.RevealTriggers {
		clicked, err := session.ClickText(ctx, trigger)
		if err != nil {
			e.logger.Debug("reveal trigger failed",
				zap.String("source", src.ID()),
				zap.String("trigger", trigger),
				zap.Error(err),
			)
			continue
		}
		if clicked {
			e.logger.Debug("clicked reveal trigger",
				zap.String("source", src.ID()),
				zap.String("trigger", trigger),
			)
			if e.wait(ctx, revealWait) != nil {
				return
			}
		}
	}
}

// revealLoop scrolls until the content fingerprint is unchanged twice in a
// row or the step budget runs out, collecting fragments after each pass.
func (e *Extractor) revealLoop(ctx context.Context, session pagefetch.Session, src Source, revealWait time.Duration, collect func() error) error {
	maxSteps := src.MaxRevealSteps
	if maxSteps <= 0 {
		maxSteps = DefaultMaxRevealSteps
	}

	last, err := session.Fingerprint(ctx)
	if err != nil {
		return err
	}

	stable := 0
	for step := 0; step < maxSteps && stable < 2; step++ {
		if err := session.ScrollBottom(ctx); err != nil {
			return err
		}
		if err := e.wait(ctx, revealWait); err != nil {
			return err
		}

		current, err := session.Fingerprint(ctx)
		if err != nil {
			return err
		}

		if current == last {
			stable++
		} else {
			stable = 0
		}
		last = current

		if err := collect(); err != nil {
			return err
		}
	}

	return nil
}

// toListing maps a raw fragment to a listing, resolving relative links
// against the source URL. Fragments without a title are noise and dropped.
func (e *Extractor) toListing(src Source, base *url.URL, frag pagefetch.Fragment) (job.Listing, bool) {
	title := strings.TrimSpace(frag.Title)
	if title == "" {
		return job.Listing{}, false
	}

	href := strings.TrimSpace(frag.Href)
	if href == "" {
		return job.Listing{}, false
	}

	ref, err := url.Parse(href)
	if err != nil {
		return job.Listing{}, false
	}
	absolute := base.ResolveReference(ref).String()

	return job.NewListing(src.ID(), src.Company, title, frag.Location, absolute), true
}
