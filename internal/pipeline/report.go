package pipeline

import (
	"fmt"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/google/uuid"

	"github.com/applypilot/applypilot/internal/job"
)

// SourceError records one source that failed discovery.
type SourceError struct {
	Source string `json:"source"`
	Err    string `json:"error"`
}

// PackageSummary is the per-job line of the run report, in dispatch order.
type PackageSummary struct {
	ListingID        string  `json:"listing_id"`
	Company          string  `json:"company"`
	Title            string  `json:"title"`
	Location         string  `json:"location,omitempty"`
	URL              string  `json:"url"`
	Score            float64 `json:"score"`
	MatchScore       float64 `json:"match_score"`
	Status           string  `json:"status"`
	FailureKind      string  `json:"failure_kind,omitempty"`
	Error            string  `json:"error,omitempty"`
	ResumePath       string  `json:"resume_path,omitempty"`
	ResumeError      string  `json:"resume_error,omitempty"`
	CoverLetterPath  string  `json:"cover_letter_path,omitempty"`
	CoverLetterError string  `json:"cover_letter_error,omitempty"`
}

// Report aggregates the outcome of one run.
type Report struct {
	RunID        string           `json:"run_id"`
	Discovered   int              `json:"discovered"`
	Scored       int              `json:"scored"`
	Filtered     int              `json:"filtered"`
	Generated    int              `json:"generated"`
	Failed       int              `json:"failed"`
	Elapsed      time.Duration    `json:"elapsed"`
	SourceErrors []SourceError    `json:"source_errors,omitempty"`
	Packages     []PackageSummary `json:"packages"`
}

func newReport() *Report {
	return &Report{RunID: uuid.NewString()}
}

func summarize(pkg *job.Package) PackageSummary {
	s := PackageSummary{
		ListingID:   pkg.Job.ID,
		Company:     pkg.Job.Company,
		Title:       pkg.Job.Title,
		Location:    pkg.Job.Location,
		URL:         pkg.Job.URL,
		Score:       pkg.Job.Score,
		MatchScore:  pkg.MatchScore,
		Status:      string(pkg.Status),
		FailureKind: string(pkg.FailureKind),
	}
	if pkg.Err != nil {
		s.Error = pkg.Err.Error()
	}
	if pkg.ResumeErr != nil {
		s.ResumeError = pkg.ResumeErr.Error()
	}
	if pkg.CoverLetterErr != nil {
		s.CoverLetterError = pkg.CoverLetterErr.Error()
	}
	return s
}

// String renders the report as aligned text for the terminal.
func (r *Report) String() string {
	var b strings.Builder

	fmt.Fprintf(&b, "run %s: discovered %d, filtered down to %d, generated %d, failed %d in %s\n",
		r.RunID, r.Discovered, r.Filtered, r.Generated, r.Failed, r.Elapsed.Round(time.Millisecond))

	if len(r.SourceErrors) > 0 {
		b.WriteString("\nsource errors:\n")
		for _, se := range r.SourceErrors {
			fmt.Fprintf(&b, "  %s: %s\n", se.Source, se.Err)
		}
	}

	if len(r.Packages) > 0 {
		b.WriteString("\n")
		w := tabwriter.NewWriter(&b, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "COMPANY\tTITLE\tSCORE\tMATCH\tSTATUS\tARTIFACTS")
		for _, p := range r.Packages {
			artifacts := artifactCell(p)
			fmt.Fprintf(w, "%s\t%s\t%.0f\t%.0f\t%s\t%s\n",
				p.Company, p.Title, p.Score, p.MatchScore, statusCell(p), artifacts)
		}
		w.Flush()
	}

	return b.String()
}

func statusCell(p PackageSummary) string {
	if p.FailureKind != "" {
		return fmt.Sprintf("%s (%s)", p.Status, p.FailureKind)
	}
	return p.Status
}

func artifactCell(p PackageSummary) string {
	var parts []string
	if p.ResumePath != "" {
		parts = append(parts, p.ResumePath)
	}
	if p.CoverLetterPath != "" {
		parts = append(parts, p.CoverLetterPath)
	}
	if len(parts) == 0 {
		return "-"
	}
	return strings.Join(parts, ", ")
}
