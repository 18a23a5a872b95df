package job

import "fmt"

// Status tracks a package through the generation pipeline. Transitions are
// monotonically forward; Failed is absorbing and reachable from any
// non-terminal state.
type Status string

const (
	StatusPending    Status = "pending"
	StatusEnriching  Status = "enriching"
	StatusGenerating Status = "generating"
	StatusScoring    Status = "scoring"
	StatusDone       Status = "done"
	StatusFailed     Status = "failed"
)

// FailureKind tags a failed package for the run report.
type FailureKind string

const (
	FailureNone       FailureKind = ""
	FailureDiscovery  FailureKind = "discovery"
	FailureNoProvider FailureKind = "no_provider"
	FailureTimeout    FailureKind = "timeout"
	FailureInternal   FailureKind = "internal"
)

var forward = map[Status]Status{
	StatusPending:    StatusEnriching,
	StatusEnriching:  StatusGenerating,
	StatusGenerating: StatusScoring,
	StatusScoring:    StatusDone,
}

// Advance moves the package to the next state and rejects anything that is
// not the single forward step from the current state.
func (p *Package) Advance(next Status) error {
	if p.Status == StatusDone || p.Status == StatusFailed {
		return fmt.Errorf("package %s is terminal (%s)", p.Job.ID, p.Status)
	}

	if forward[p.Status] != next {
		return fmt.Errorf("invalid transition %s -> %s for package %s", p.Status, next, p.Job.ID)
	}

	p.Status = next
	return nil
}

// Terminal reports whether the package reached an end state.
func (p *Package) Terminal() bool {
	return p.Status == StatusDone || p.Status == StatusFailed
}
