// Package filtering reduces a ranked listing slice to the working set for
// generation. Stages are independent, ordered and monotonically
// non-increasing in size; the chain expects its input sorted by score
// descending with discovery order as the tiebreak.
package filtering

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/applypilot/applypilot/internal/job"
)

// Filter represents a single filtering step applied to listings. Filters
// select, they never edit or synthesize listings.
type Filter interface {
	Name() string
	Apply(listings []job.Listing) ([]job.Listing, Step, error)
}

// Step describes the result of executing a filtering step.
type Step struct {
	Initial int
	Dropped int
	Left    int
}

// Run executes the supplied filters sequentially, logging before/after counts
// for each step.
func Run(logger *zap.Logger, filters []Filter, listings []job.Listing) ([]job.Listing, error) {
	for _, f := range filters {
		next, info, err := f.Apply(listings)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", f.Name(), err)
		}

		if len(next) > len(listings) {
			return nil, fmt.Errorf("%s: produced %d listings from %d", f.Name(), len(next), len(listings))
		}

		logger.Info("filter step",
			zap.String("name", f.Name()),
			zap.Int("initial", info.Initial),
			zap.Int("dropped", info.Dropped),
			zap.Int("left", info.Left),
		)

		listings = next
	}

	return listings, nil
}

func step(initial, left int) Step {
	return Step{Initial: initial, Dropped: initial - left, Left: left}
}
