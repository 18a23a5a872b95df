// Package pipeline runs one full discovery-to-artifacts pass: discover
// listings per source, score and rank them, reduce through the filter chain,
// then generate application packages on a bounded worker pool.
package pipeline

import (
	"context"
	"fmt"
	"sort"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/applypilot/applypilot/internal/extract"
	"github.com/applypilot/applypilot/internal/filtering"
	"github.com/applypilot/applypilot/internal/job"
	"github.com/applypilot/applypilot/internal/render"
	"github.com/applypilot/applypilot/internal/scoring"
	"github.com/applypilot/applypilot/internal/store"
)

// Discoverer extracts listings from one configured source.
type Discoverer interface {
	Extract(ctx context.Context, src extract.Source) ([]job.Listing, error)
}

// Processor takes one package from pending to a terminal state.
type Processor interface {
	Process(ctx context.Context, pkg *job.Package)
}

// Config wires a Runner.
type Config struct {
	Sources     []extract.Source
	Profile     job.Profile
	Filters     []filtering.Filter
	WorkerCount int
	RunDeadline time.Duration

	// Confirm gates generation after filtering. nil means proceed. Returning
	// false stops the run cleanly after the filter report.
	Confirm func(listings []job.Listing) (bool, error)
}

// Runner executes one pipeline run.
type Runner struct {
	cfg       Config
	discovery Discoverer
	processor Processor
	renderer  render.Renderer
	seen      store.SeenStore
	logger    *zap.Logger
}

// NewRunner builds a runner. renderer and seen may be nil to disable artifact
// writing and cross-run tracking.
func NewRunner(cfg Config, discovery Discoverer, processor Processor, renderer render.Renderer, seen store.SeenStore, logger *zap.Logger) (*Runner, error) {
	if cfg.WorkerCount <= 0 {
		return nil, fmt.Errorf("worker count must be positive, got %d", cfg.WorkerCount)
	}
	if cfg.RunDeadline <= 0 {
		return nil, fmt.Errorf("run deadline must be positive, got %s", cfg.RunDeadline)
	}
	if len(cfg.Sources) == 0 {
		return nil, fmt.Errorf("at least one source is required")
	}

	return &Runner{
		cfg:       cfg,
		discovery: discovery,
		processor: processor,
		renderer:  renderer,
		seen:      seen,
		logger:    logger,
	}, nil
}

// Run executes the full pass and always returns a report, also on partial
// failure. The error is non-nil only when the run could not proceed at all.
func (r *Runner) Run(ctx context.Context) (*Report, error) {
	report := newReport()
	start := time.Now()
	defer func() { report.Elapsed = time.Since(start) }()

	// One deadline governs the whole run: discovery page sessions and the
	// worker pool share it. Writing out already-generated artifacts is not
	// bound by it.
	runCtx, cancel := context.WithTimeout(ctx, r.cfg.RunDeadline)
	defer cancel()

	listings := r.discover(runCtx, report)
	report.Discovered = len(listings)

	for i := range listings {
		listings[i].Score = scoring.Score(listings[i], r.cfg.Profile)
	}
	report.Scored = len(listings)

	// rank: score descending, discovery order as the tiebreak
	sort.SliceStable(listings, func(i, j int) bool {
		return listings[i].Score > listings[j].Score
	})

	selected, err := filtering.Run(r.logger, r.cfg.Filters, listings)
	if err != nil {
		return report, fmt.Errorf("filter chain: %w", err)
	}
	report.Filtered = len(selected)

	if len(selected) == 0 {
		r.logger.Info("no listings left after filtering")
		return report, nil
	}

	if r.cfg.Confirm != nil {
		proceed, err := r.cfg.Confirm(selected)
		if err != nil {
			return report, fmt.Errorf("confirmation: %w", err)
		}
		if !proceed {
			r.logger.Info("generation declined, stopping after filtering")
			return report, nil
		}
	}

	packages := make([]*job.Package, len(selected))
	for i, l := range selected {
		packages[i] = job.NewPackage(l)
	}

	r.process(runCtx, packages)
	r.finish(ctx, packages, report)

	return report, nil
}

// discover walks the sources in configured order. A failing source degrades
// to zero listings and a recorded error. Listings are deduplicated across
// sources by their (source, url) identity.
func (r *Runner) discover(ctx context.Context, report *Report) []job.Listing {
	seenIDs := make(map[string]struct{})
	var listings []job.Listing

	for _, src := range r.cfg.Sources {
		found, err := r.discovery.Extract(ctx, src)
		if err != nil {
			r.logger.Warn("source discovery failed",
				zap.String("source", src.ID()),
				zap.Error(err),
			)
			report.SourceErrors = append(report.SourceErrors, SourceError{
				Source: src.ID(),
				Err:    err.Error(),
			})
			continue
		}

		for _, l := range found {
			if _, dup := seenIDs[l.ID]; dup {
				continue
			}
			seenIDs[l.ID] = struct{}{}
			listings = append(listings, l)
		}
	}

	return listings
}

// process runs the worker pool on the deadline-scoped run context. Each
// worker owns its package exclusively; panics and failures stay contained to
// their job.
func (r *Runner) process(ctx context.Context, packages []*job.Package) {
	g := &errgroup.Group{}
	g.SetLimit(r.cfg.WorkerCount)

	for _, pkg := range packages {
		pkg := pkg
		g.Go(func() error {
			defer func() {
				if rec := recover(); rec != nil {
					r.logger.Error("worker panic",
						zap.String("listing", pkg.Job.ID),
						zap.Any("panic", rec),
					)
					pkg.Fail(job.FailureInternal, fmt.Errorf("worker panic: %v", rec))
				}
			}()

			if ctx.Err() != nil {
				pkg.Fail(job.FailureTimeout, ctx.Err())
				return nil
			}

			r.processor.Process(ctx, pkg)
			return nil
		})
	}

	// workers never return errors, failures live on the packages
	_ = g.Wait()

	for _, pkg := range packages {
		if !pkg.Terminal() {
			pkg.Fail(job.FailureTimeout, context.DeadlineExceeded)
		}
	}
}

// finish renders artifacts for completed packages, marks them in the seen
// store and fills the report. Rendering and store failures are logged, never
// fatal.
func (r *Runner) finish(ctx context.Context, packages []*job.Package, report *Report) {
	for _, pkg := range packages {
		summary := summarize(pkg)

		if pkg.Status == job.StatusDone {
			report.Generated++
			summary.ResumePath = r.render(ctx, pkg, render.KindResume, pkg.ResumeText)
			summary.CoverLetterPath = r.render(ctx, pkg, render.KindCoverLetter, pkg.CoverLetterText)
			r.markSeen(pkg)
		} else {
			report.Failed++
		}

		report.Packages = append(report.Packages, summary)
	}
}

func (r *Runner) render(ctx context.Context, pkg *job.Package, kind render.Kind, text string) string {
	if r.renderer == nil || text == "" {
		return ""
	}

	path, err := r.renderer.Render(ctx, render.Artifact{
		Kind:    kind,
		Text:    text,
		Company: pkg.Job.Company,
		Title:   pkg.Job.Title,
	})
	if err != nil {
		r.logger.Warn("artifact rendering failed",
			zap.String("listing", pkg.Job.ID),
			zap.String("kind", string(kind)),
			zap.Error(err),
		)
		return ""
	}

	return path
}

func (r *Runner) markSeen(pkg *job.Package) {
	if r.seen == nil {
		return
	}
	if err := r.seen.MarkGenerated(pkg.Job.ID); err != nil {
		r.logger.Warn("marking listing as generated failed",
			zap.String("listing", pkg.Job.ID),
			zap.Error(err),
		)
	}
}
