package pipeline

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/applypilot/applypilot/internal/extract"
	"github.com/applypilot/applypilot/internal/filtering"
	"github.com/applypilot/applypilot/internal/job"
	"github.com/applypilot/applypilot/internal/scoring"
)

type stubDiscoverer struct {
	listings map[string][]job.Listing
	errs     map[string]error
}

func (s *stubDiscoverer) Extract(_ context.Context, src extract.Source) ([]job.Listing, error) {
	if err := s.errs[src.Name]; err != nil {
		return nil, &extract.DiscoveryError{Source: src.ID(), Err: err}
	}
	return s.listings[src.Name], nil
}

// discovererFunc lets a test script per-source behavior with the live context.
type discovererFunc func(ctx context.Context, src extract.Source) ([]job.Listing, error)

func (f discovererFunc) Extract(ctx context.Context, src extract.Source) ([]job.Listing, error) {
	return f(ctx, src)
}

// processorFunc lets each test script per-job behavior.
type processorFunc func(ctx context.Context, pkg *job.Package)

func (f processorFunc) Process(ctx context.Context, pkg *job.Package) { f(ctx, pkg) }

func complete(pkg *job.Package) {
	for _, next := range []job.Status{job.StatusEnriching, job.StatusGenerating, job.StatusScoring, job.StatusDone} {
		if err := pkg.Advance(next); err != nil {
			panic(err)
		}
	}
	pkg.ResumeText = "resume for " + pkg.Job.Title
	pkg.CoverLetterText = "cover for " + pkg.Job.Title
	pkg.FinishedAt = time.Now()
}

func completeAll(_ context.Context, pkg *job.Package) { complete(pkg) }

func listing(source, company, title, location string) job.Listing {
	url := fmt.Sprintf("https://%s.example/jobs/%s", company, strings.ReplaceAll(strings.ToLower(title), " ", "-"))
	l := job.NewListing(source, company, title, location, url)
	l.Description = "Design, build and operate Go services."
	return l
}

func newTestRunner(t *testing.T, cfg Config, d Discoverer, p Processor) *Runner {
	t.Helper()

	if cfg.WorkerCount == 0 {
		cfg.WorkerCount = 3
	}
	if cfg.RunDeadline == 0 {
		cfg.RunDeadline = 5 * time.Second
	}

	r, err := NewRunner(cfg, d, p, nil, nil, zap.NewNop())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	return r
}

func TestRunFullPass(t *testing.T) {
	resume := "Senior Go engineer. Design, build and operate Go services on Kubernetes."
	profile := job.Profile{ResumeText: resume}

	boulder := listing("pagefetch:acme", "Acme", "Go Engineer", "Boulder, CO, USA")

	boulderScore := scoring.Score(boulder, profile)
	if boulderScore < 1 {
		t.Fatalf("expected a positive score for the overlap fixture, got %v", boulderScore)
	}

	sources := []extract.Source{
		{Name: "acme", Company: "Acme", URL: "https://acme.example/careers"},
		{Name: "globex", Company: "Globex", URL: "https://globex.example/careers"},
		{Name: "initech", Company: "Initech", URL: "https://initech.example/careers"},
		{Name: "umbrella", Company: "Umbrella", URL: "https://umbrella.example/careers"},
		{Name: "hooli", Company: "Hooli", URL: "https://hooli.example/careers"},
		{Name: "stark", Company: "Stark", URL: "https://stark.example/careers"},
		{Name: "wayne", Company: "Wayne", URL: "https://wayne.example/careers"},
	}
	discoverer := &stubDiscoverer{listings: map[string][]job.Listing{
		"acme":     {boulder},
		"globex":   {listing("pagefetch:globex", "Globex", "Platform Engineer", "Remote, USA")},
		"initech":  {listing("pagefetch:initech", "Initech", "Backend Engineer", "Austin, TX, USA")},
		"umbrella": {listing("pagefetch:umbrella", "Umbrella", "Go Engineer", "Toronto, Canada")},
		"hooli":    {listing("pagefetch:hooli", "Hooli", "Site Reliability Engineer", "Berlin, Germany")},
		"stark":    {listing("pagefetch:stark", "Stark", "Data Engineer", "New York, NY, USA")},
		"wayne":    {listing("pagefetch:wayne", "Wayne", "Platform Engineer", "London, UK")},
	}}

	cfg := Config{
		Sources: sources,
		Profile: profile,
		Filters: []filtering.Filter{
			filtering.NewMinScore(boulderScore),
			filtering.NewLocation([]string{"united states"}),
		},
	}

	r := newTestRunner(t, cfg, discoverer, processorFunc(completeAll))

	report, err := r.Run(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if report.Discovered != 7 {
		t.Fatalf("expected 7 discovered, got %d", report.Discovered)
	}

	var found *PackageSummary
	for i := range report.Packages {
		if report.Packages[i].Location == "Boulder, CO, USA" {
			found = &report.Packages[i]
		}
		if report.Packages[i].Location == "Toronto, Canada" || report.Packages[i].Location == "Berlin, Germany" {
			t.Fatalf("expected non-matching locations to be filtered, packages: %+v", report.Packages)
		}
	}
	if found == nil {
		t.Fatalf("expected the Boulder listing to survive the chain, packages: %+v", report.Packages)
	}
	if found.Status != string(job.StatusDone) {
		t.Fatalf("expected done, got %s", found.Status)
	}
	if report.Generated != report.Filtered {
		t.Fatalf("expected all filtered listings generated, got %d of %d", report.Generated, report.Filtered)
	}
	if report.RunID == "" {
		t.Fatalf("expected a run id")
	}

	// raising the threshold above the listing's score must drop it
	cfg.Filters = []filtering.Filter{filtering.NewMinScore(boulderScore + 1)}
	r = newTestRunner(t, cfg, discoverer, processorFunc(completeAll))

	report, err = r.Run(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for _, p := range report.Packages {
		if p.Location == "Boulder, CO, USA" {
			t.Fatalf("expected the Boulder listing to be filtered out")
		}
	}
}

func TestRunIsolatesSourceFailures(t *testing.T) {
	good := listing("pagefetch:acme", "Acme", "Go Engineer", "Denver, CO")

	sources := []extract.Source{
		{Name: "broken", Company: "Broken", URL: "https://broken.example"},
		{Name: "acme", Company: "Acme", URL: "https://acme.example/careers"},
	}
	discoverer := &stubDiscoverer{
		listings: map[string][]job.Listing{"acme": {good}},
		errs:     map[string]error{"broken": errors.New("connection refused")},
	}

	cfg := Config{Sources: sources, Profile: job.Profile{ResumeText: "Go engineer"}}
	r := newTestRunner(t, cfg, discoverer, processorFunc(completeAll))

	report, err := r.Run(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if report.Discovered != 1 {
		t.Fatalf("expected the healthy source to contribute, got %d", report.Discovered)
	}
	if len(report.SourceErrors) != 1 || report.SourceErrors[0].Source != "pagefetch:Broken" {
		t.Fatalf("expected one recorded source error, got %+v", report.SourceErrors)
	}
}

func TestRunDeduplicatesAcrossSources(t *testing.T) {
	l := listing("pagefetch:acme", "Acme", "Go Engineer", "Denver, CO")

	sources := []extract.Source{
		{Name: "a", Company: "Acme", URL: "https://acme.example/careers"},
		{Name: "b", Company: "Acme", URL: "https://acme.example/jobs"},
	}
	discoverer := &stubDiscoverer{listings: map[string][]job.Listing{
		"a": {l},
		"b": {l},
	}}

	cfg := Config{Sources: sources, Profile: job.Profile{ResumeText: "Go engineer"}}
	r := newTestRunner(t, cfg, discoverer, processorFunc(completeAll))

	report, err := r.Run(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if report.Discovered != 1 {
		t.Fatalf("expected identical listings to collapse, got %d", report.Discovered)
	}
}

func TestRunIsolatesWorkerPanics(t *testing.T) {
	sources := []extract.Source{{Name: "acme", Company: "Acme", URL: "https://acme.example/careers"}}
	discoverer := &stubDiscoverer{listings: map[string][]job.Listing{"acme": {
		listing("pagefetch:acme", "Acme", "Go Engineer", "Denver, CO"),
		listing("pagefetch:acme", "Acme", "Rust Engineer", "Denver, CO"),
	}}}

	cfg := Config{Sources: sources, Profile: job.Profile{ResumeText: "Go engineer"}}

	r := newTestRunner(t, cfg, discoverer, processorFunc(func(_ context.Context, pkg *job.Package) {
		if pkg.Job.Title == "Rust Engineer" {
			panic("boom")
		}
		complete(pkg)
	}))

	report, err := r.Run(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if report.Generated != 1 || report.Failed != 1 {
		t.Fatalf("expected 1 generated and 1 failed, got %d/%d", report.Generated, report.Failed)
	}
	for _, p := range report.Packages {
		if p.Title == "Rust Engineer" {
			if p.Status != string(job.StatusFailed) || p.FailureKind != string(job.FailureInternal) {
				t.Fatalf("expected internal failure for panicked job, got %+v", p)
			}
		}
	}
}

func TestRunDeadlineFailsUnfinishedJobs(t *testing.T) {
	sources := []extract.Source{{Name: "acme", Company: "Acme", URL: "https://acme.example/careers"}}
	discoverer := &stubDiscoverer{listings: map[string][]job.Listing{"acme": {
		listing("pagefetch:acme", "Acme", "Go Engineer", "Denver, CO"),
		listing("pagefetch:acme", "Acme", "Slow Engineer", "Denver, CO"),
	}}}

	cfg := Config{
		Sources:     sources,
		Profile:     job.Profile{ResumeText: "Go engineer"},
		WorkerCount: 2,
		RunDeadline: 100 * time.Millisecond,
	}

	r := newTestRunner(t, cfg, discoverer, processorFunc(func(ctx context.Context, pkg *job.Package) {
		if pkg.Job.Title == "Slow Engineer" {
			// hold the package open past the deadline
			<-ctx.Done()
			return
		}
		complete(pkg)
	}))

	report, err := r.Run(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	for _, p := range report.Packages {
		switch p.Title {
		case "Slow Engineer":
			if p.Status != string(job.StatusFailed) || p.FailureKind != string(job.FailureTimeout) {
				t.Fatalf("expected timeout failure, got %+v", p)
			}
		case "Go Engineer":
			if p.Status != string(job.StatusDone) {
				t.Fatalf("expected fast job to finish, got %+v", p)
			}
		}
	}
}

func TestRunDeadlineBoundsDiscovery(t *testing.T) {
	sources := []extract.Source{
		{Name: "a", Company: "Acme", URL: "https://acme.example/careers"},
		{Name: "b", Company: "Globex", URL: "https://globex.example/careers"},
		{Name: "c", Company: "Initech", URL: "https://initech.example/careers"},
	}

	// every source takes 300ms unless the run context stops it first
	slow := discovererFunc(func(ctx context.Context, src extract.Source) ([]job.Listing, error) {
		select {
		case <-ctx.Done():
			return nil, &extract.DiscoveryError{Source: src.ID(), Err: ctx.Err()}
		case <-time.After(300 * time.Millisecond):
			return []job.Listing{listing(src.ID(), src.Company, "Go Engineer", "Denver, CO")}, nil
		}
	})

	cfg := Config{
		Sources:     sources,
		Profile:     job.Profile{ResumeText: "Go engineer"},
		RunDeadline: 100 * time.Millisecond,
	}
	r := newTestRunner(t, cfg, slow, processorFunc(completeAll))

	start := time.Now()
	report, err := r.Run(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// without run-wide cancellation the three sources would take 900ms
	if elapsed := time.Since(start); elapsed > 700*time.Millisecond {
		t.Fatalf("expected the run deadline to cut discovery short, took %s", elapsed)
	}
	if report.Discovered != 0 {
		t.Fatalf("expected no listings past the deadline, got %d", report.Discovered)
	}
	if len(report.SourceErrors) != 3 {
		t.Fatalf("expected every source to record a deadline error, got %+v", report.SourceErrors)
	}
}

func TestRunConfirmDecline(t *testing.T) {
	sources := []extract.Source{{Name: "acme", Company: "Acme", URL: "https://acme.example/careers"}}
	discoverer := &stubDiscoverer{listings: map[string][]job.Listing{"acme": {
		listing("pagefetch:acme", "Acme", "Go Engineer", "Denver, CO"),
	}}}

	processed := false
	cfg := Config{
		Sources: sources,
		Profile: job.Profile{ResumeText: "Go engineer"},
		Confirm: func([]job.Listing) (bool, error) { return false, nil },
	}

	r := newTestRunner(t, cfg, discoverer, processorFunc(func(_ context.Context, pkg *job.Package) {
		processed = true
		complete(pkg)
	}))

	report, err := r.Run(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if processed {
		t.Fatalf("declined run must not generate")
	}
	if report.Filtered != 1 || report.Generated != 0 {
		t.Fatalf("expected filter counts without generation, got %+v", report)
	}
}

func TestRunPreservesRankedOrder(t *testing.T) {
	sources := []extract.Source{{Name: "acme", Company: "Acme", URL: "https://acme.example/careers"}}

	high := listing("pagefetch:acme", "Acme", "Go Engineer", "Denver, CO")
	high.Description = "Senior Go engineer building Go services and tools in Go."
	low := listing("pagefetch:acme", "Acme", "Accountant", "Denver, CO")
	low.Description = "Ledger reconciliation and quarterly reporting."

	discoverer := &stubDiscoverer{listings: map[string][]job.Listing{"acme": {low, high}}}

	profile := job.Profile{ResumeText: "Senior Go engineer building Go services and tools in Go."}
	if scoring.Score(high, profile) <= scoring.Score(low, profile) {
		t.Fatalf("fixture expects the Go listing to outscore the accountant listing")
	}

	cfg := Config{Sources: sources, Profile: profile}
	r := newTestRunner(t, cfg, discoverer, processorFunc(completeAll))

	report, err := r.Run(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(report.Packages) != 2 {
		t.Fatalf("expected 2 packages, got %d", len(report.Packages))
	}
	if report.Packages[0].Title != "Go Engineer" {
		t.Fatalf("expected score-descending order, got %q first", report.Packages[0].Title)
	}
}

func TestSummarizeAttributesPartialGenerationFailures(t *testing.T) {
	pkg := job.NewPackage(listing("pagefetch:acme", "Acme", "Go Engineer", "Denver, CO"))
	complete(pkg)
	pkg.ResumeText = ""
	pkg.ResumeErr = errors.New("resume backend broke")

	s := summarize(pkg)

	if s.Status != string(job.StatusDone) {
		t.Fatalf("expected done, got %s", s.Status)
	}
	if s.ResumeError != "resume backend broke" {
		t.Fatalf("expected the resume failure on the summary, got %+v", s)
	}
	if s.CoverLetterError != "" {
		t.Fatalf("expected no cover letter error, got %q", s.CoverLetterError)
	}
}
