// Package generate drives one application package through enrichment, text
// generation and rescoring. It owns the per-job state machine; concurrency
// across jobs is the pipeline's concern.
package generate

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/applypilot/applypilot/internal/job"
	"github.com/applypilot/applypilot/internal/provider"
	"github.com/applypilot/applypilot/internal/scoring"
)

// minDescriptionLength is the threshold below which a listing description is
// considered too thin and the posting page is fetched for enrichment.
const minDescriptionLength = 100

// TextSource fetches the readable text of a posting page.
type TextSource interface {
	FetchText(ctx context.Context, url string) (string, error)
}

// Caller sends one prompt to whichever generation backend is available.
type Caller interface {
	Call(ctx context.Context, prompt string) (string, error)
}

// Orchestrator processes a single package at a time. Safe for concurrent use
// as long as no two callers share a package.
type Orchestrator struct {
	caller  Caller
	texts   TextSource
	profile job.Profile
	logger  *zap.Logger
}

// New creates an orchestrator. texts may be nil to disable page enrichment.
func New(caller Caller, texts TextSource, profile job.Profile, logger *zap.Logger) *Orchestrator {
	return &Orchestrator{
		caller:  caller,
		texts:   texts,
		profile: profile,
		logger:  logger,
	}
}

// Process takes a pending package to Done or Failed. The package must be
// owned exclusively by the caller.
func (o *Orchestrator) Process(ctx context.Context, pkg *job.Package) {
	pkg.StartedAt = time.Now()

	o.enrich(ctx, pkg)
	if pkg.Terminal() {
		return
	}

	o.generateTexts(ctx, pkg)
	if pkg.Terminal() {
		return
	}

	o.rescore(pkg)
	if pkg.Terminal() {
		return
	}

	if err := pkg.Advance(job.StatusDone); err != nil {
		pkg.Fail(job.FailureInternal, err)
		return
	}
	pkg.FinishedAt = time.Now()

	o.logger.Info("application package completed",
		zap.String("listing", pkg.Job.ID),
		zap.String("company", pkg.Job.Company),
		zap.String("title", pkg.Job.Title),
		zap.Float64("match_score", pkg.MatchScore),
	)
}

// enrich fetches the posting page when the discovered description is too thin
// and normalizes it into labeled sections. Fetch failures keep the original
// description; only a context deadline fails the package here.
func (o *Orchestrator) enrich(ctx context.Context, pkg *job.Package) {
	if err := pkg.Advance(job.StatusEnriching); err != nil {
		pkg.Fail(job.FailureInternal, err)
		return
	}

	if len(pkg.EnrichedDescription) >= minDescriptionLength || o.texts == nil || pkg.Job.URL == "" {
		pkg.EnrichedDescription = NormalizeDescription(pkg.EnrichedDescription)
		return
	}

	text, err := o.texts.FetchText(ctx, pkg.Job.URL)
	if err != nil {
		if ctx.Err() != nil {
			pkg.Fail(job.FailureTimeout, ctx.Err())
			return
		}

		o.logger.Warn("description enrichment failed, continuing with discovered text",
			zap.String("listing", pkg.Job.ID),
			zap.String("url", pkg.Job.URL),
			zap.Error(err),
		)
		pkg.EnrichedDescription = NormalizeDescription(pkg.EnrichedDescription)
		return
	}

	if len(text) > len(pkg.EnrichedDescription) {
		pkg.EnrichedDescription = NormalizeDescription(text)
	} else {
		pkg.EnrichedDescription = NormalizeDescription(pkg.EnrichedDescription)
	}
}

// generateTexts issues the resume and cover-letter prompts concurrently. Both
// calls always settle; the package fails only when both come back empty.
func (o *Orchestrator) generateTexts(ctx context.Context, pkg *job.Package) {
	if err := pkg.Advance(job.StatusGenerating); err != nil {
		pkg.Fail(job.FailureInternal, err)
		return
	}

	var (
		wg        sync.WaitGroup
		resume    string
		resumeErr error
		cover     string
		coverErr  error
	)

	wg.Add(2)
	go func() {
		defer wg.Done()
		resume, resumeErr = o.caller.Call(ctx, resumePrompt(pkg, o.profile.ResumeText))
	}()
	go func() {
		defer wg.Done()
		cover, coverErr = o.caller.Call(ctx, coverLetterPrompt(pkg, o.profile.ResumeText))
	}()
	wg.Wait()

	pkg.ResumeText = resume
	pkg.CoverLetterText = cover
	pkg.ResumeErr = resumeErr
	pkg.CoverLetterErr = coverErr

	if resumeErr != nil && coverErr != nil {
		pkg.Fail(failureKind(ctx, resumeErr), errors.Join(resumeErr, coverErr))
		return
	}

	if resumeErr != nil {
		o.logger.Warn("resume generation failed, keeping cover letter",
			zap.String("listing", pkg.Job.ID),
			zap.Error(resumeErr),
		)
	}
	if coverErr != nil {
		o.logger.Warn("cover letter generation failed, keeping resume",
			zap.String("listing", pkg.Job.ID),
			zap.Error(coverErr),
		)
	}
}

// rescore recomputes the match score of the generated resume against the
// enriched description. Without a generated resume the discovery score
// stands.
func (o *Orchestrator) rescore(pkg *job.Package) {
	if err := pkg.Advance(job.StatusScoring); err != nil {
		pkg.Fail(job.FailureInternal, err)
		return
	}

	if pkg.ResumeText == "" {
		return
	}

	enriched := pkg.Job
	enriched.Description = pkg.EnrichedDescription

	pkg.MatchScore = scoring.Score(enriched, job.Profile{
		ResumeText:    pkg.ResumeText,
		BoostKeywords: o.profile.BoostKeywords,
	})
}

func failureKind(ctx context.Context, err error) job.FailureKind {
	switch {
	case errors.Is(ctx.Err(), context.DeadlineExceeded):
		return job.FailureTimeout
	case errors.Is(err, provider.ErrNoProviderAvailable):
		return job.FailureNoProvider
	default:
		return job.FailureInternal
	}
}
