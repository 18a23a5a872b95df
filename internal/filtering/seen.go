package filtering

import (
	"github.com/applypilot/applypilot/internal/job"
	"github.com/applypilot/applypilot/internal/store"
)

type seenFilter struct {
	store store.SeenStore
}

// NewSeen creates a filter that drops listings already generated in a
// previous run. A nil store keeps everything.
func NewSeen(s store.SeenStore) Filter {
	return &seenFilter{store: s}
}

func (f *seenFilter) Name() string { return "seen" }

func (f *seenFilter) Apply(listings []job.Listing) ([]job.Listing, Step, error) {
	if f.store == nil {
		return listings, step(len(listings), len(listings)), nil
	}

	kept := make([]job.Listing, 0, len(listings))
	for _, l := range listings {
		seen, err := f.store.HasGenerated(l.ID)
		if err != nil {
			return nil, Step{}, err
		}
		if !seen {
			kept = append(kept, l)
		}
	}

	return kept, step(len(listings), len(kept)), nil
}
