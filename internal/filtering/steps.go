package filtering

import (
	"strings"

	"github.com/applypilot/applypilot/internal/job"
	"github.com/applypilot/applypilot/internal/scoring"
)

type minScoreFilter struct {
	min float64
}

// NewMinScore creates a filter that keeps listings scoring at or above min.
func NewMinScore(min float64) Filter {
	return &minScoreFilter{min: min}
}

func (f *minScoreFilter) Name() string { return "min_score" }

func (f *minScoreFilter) Apply(listings []job.Listing) ([]job.Listing, Step, error) {
	kept := make([]job.Listing, 0, len(listings))
	for _, l := range listings {
		if l.Score >= f.min {
			kept = append(kept, l)
		}
	}

	return kept, step(len(listings), len(kept)), nil
}

type locationFilter struct {
	targets []string
}

// NewLocation creates a filter that keeps listings whose location matches any
// target location. An empty target list keeps everything.
func NewLocation(targets []string) Filter {
	return &locationFilter{targets: targets}
}

func (f *locationFilter) Name() string { return "location" }

func (f *locationFilter) Apply(listings []job.Listing) ([]job.Listing, Step, error) {
	if len(f.targets) == 0 {
		return listings, step(len(listings), len(listings)), nil
	}

	kept := make([]job.Listing, 0, len(listings))
	for _, l := range listings {
		for _, target := range f.targets {
			if MatchesLocation(l.Location, target) {
				kept = append(kept, l)
				break
			}
		}
	}

	return kept, step(len(listings), len(kept)), nil
}

type dedupFilter struct{}

// NewDedup creates a filter that collapses listings sharing
// (company, normalized title), keeping the highest-scored one. On a ranked
// input that is the first occurrence.
func NewDedup() Filter {
	return &dedupFilter{}
}

func (f *dedupFilter) Name() string { return "dedup" }

func (f *dedupFilter) Apply(listings []job.Listing) ([]job.Listing, Step, error) {
	type slot struct {
		index int
		score float64
	}

	seen := make(map[string]slot)
	kept := make([]job.Listing, 0, len(listings))

	for _, l := range listings {
		key := strings.ToLower(l.Company) + "|" + scoring.Tokenize(l.Title)

		if prev, ok := seen[key]; ok {
			if l.Score > prev.score {
				kept[prev.index] = l
				seen[key] = slot{index: prev.index, score: l.Score}
			}
			continue
		}

		seen[key] = slot{index: len(kept), score: l.Score}
		kept = append(kept, l)
	}

	return kept, step(len(listings), len(kept)), nil
}

type topPerCompanyFilter struct {
	n int
}

// NewTopPerCompany creates a filter keeping at most n listings per company,
// highest score first on a ranked input. n <= 0 disables the stage.
func NewTopPerCompany(n int) Filter {
	return &topPerCompanyFilter{n: n}
}

func (f *topPerCompanyFilter) Name() string { return "top_per_company" }

func (f *topPerCompanyFilter) Apply(listings []job.Listing) ([]job.Listing, Step, error) {
	if f.n <= 0 {
		return listings, step(len(listings), len(listings)), nil
	}

	counts := make(map[string]int)
	kept := make([]job.Listing, 0, len(listings))

	for _, l := range listings {
		company := strings.ToLower(l.Company)
		if counts[company] >= f.n {
			continue
		}
		counts[company]++
		kept = append(kept, l)
	}

	return kept, step(len(listings), len(kept)), nil
}

type topKFilter struct {
	k int
}

// NewTopK creates the final truncation to the maximum number of jobs
// processed downstream. k <= 0 disables the stage.
func NewTopK(k int) Filter {
	return &topKFilter{k: k}
}

func (f *topKFilter) Name() string { return "top_k" }

func (f *topKFilter) Apply(listings []job.Listing) ([]job.Listing, Step, error) {
	if f.k <= 0 || len(listings) <= f.k {
		return listings, step(len(listings), len(listings)), nil
	}

	return listings[:f.k], step(len(listings), f.k), nil
}
