// Package job holds the domain model shared by every pipeline stage: the
// discovered listing, the candidate profile and the per-job application
// package with its status state machine.
package job

import (
	"fmt"
	"strings"
	"time"
)

// companyPlaceholders are scraped company values treated as absent.
var companyPlaceholders = map[string]struct{}{
	"":              {},
	"not specified": {},
	"unknown":       {},
}

// Listing is a discovered job posting. Created by the extractor, scored
// exactly once by the scorer, selected (never edited) by the filter chain.
// Enrichment may only extend Description.
type Listing struct {
	ID          string
	Company     string
	Title       string
	Location    string
	URL         string
	Source      string
	Description string
	Score       float64
}

// NewListing builds a listing and applies the company-from-source rule: when
// the scraped company is empty or a known placeholder, the company is derived
// from the adapter source identifier ("<adapter>:<company>").
func NewListing(source, company, title, location, url string) Listing {
	if _, placeholder := companyPlaceholders[strings.ToLower(strings.TrimSpace(company))]; placeholder {
		company = CompanyFromSource(source)
	}

	return Listing{
		ID:       ListingID(source, url),
		Company:  strings.TrimSpace(company),
		Title:    strings.TrimSpace(title),
		Location: strings.TrimSpace(location),
		URL:      url,
		Source:   source,
	}
}

// ListingID derives the stable listing identity from (source, url).
func ListingID(source, url string) string {
	return fmt.Sprintf("%s|%s", source, url)
}

// CompanyFromSource extracts the company part of a source identifier like
// "pagefetch:acme". It returns the whole source when there is no separator.
func CompanyFromSource(source string) string {
	if _, company, ok := strings.Cut(source, ":"); ok && strings.TrimSpace(company) != "" {
		return strings.TrimSpace(company)
	}
	return strings.TrimSpace(source)
}

// Profile is the candidate input. It is immutable for a pipeline run.
type Profile struct {
	ResumeText    string
	BoostKeywords []string
}

// Package is the per-selected-job work product. It is owned exclusively by
// one worker for its lifetime.
type Package struct {
	Job                 Listing
	EnrichedDescription string
	ResumeText          string
	CoverLetterText     string
	MatchScore          float64
	Status              Status
	FailureKind         FailureKind
	Err                 error
	// Per-artifact errors survive partial success so the report can attribute
	// a missing resume or cover letter.
	ResumeErr      error
	CoverLetterErr error
	StartedAt      time.Time
	FinishedAt     time.Time
}

// NewPackage creates a pending package for the given listing.
func NewPackage(l Listing) *Package {
	return &Package{
		Job:                 l,
		EnrichedDescription: l.Description,
		MatchScore:          l.Score,
		Status:              StatusPending,
	}
}

// Fail moves the package to the absorbing Failed state, keeping any partial
// results already attached.
func (p *Package) Fail(kind FailureKind, err error) {
	p.Status = StatusFailed
	p.FailureKind = kind
	p.Err = err
	p.FinishedAt = time.Now()
}
