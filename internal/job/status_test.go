package job

import (
	"errors"
	"testing"
)

func newTestPackage(status Status) *Package {
	p := NewPackage(NewListing("pagefetch:acme", "Acme", "Go Engineer", "Denver", "https://acme.example/jobs/1"))
	p.Status = status
	return p
}

func TestAdvanceFollowsForwardPath(t *testing.T) {
	p := newTestPackage(StatusPending)

	for _, next := range []Status{StatusEnriching, StatusGenerating, StatusScoring, StatusDone} {
		if err := p.Advance(next); err != nil {
			t.Fatalf("advancing to %s: %v", next, err)
		}
	}

	if !p.Terminal() {
		t.Fatalf("expected done to be terminal")
	}
}

func TestAdvanceRejectsInvalidTransitions(t *testing.T) {
	cases := []struct {
		name string
		from Status
		to   Status
	}{
		{"skip ahead", StatusPending, StatusGenerating},
		{"backward", StatusGenerating, StatusEnriching},
		{"stay put", StatusEnriching, StatusEnriching},
		{"pending straight to done", StatusPending, StatusDone},
		{"out of done", StatusDone, StatusEnriching},
		{"out of failed", StatusFailed, StatusEnriching},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			p := newTestPackage(tc.from)
			if err := p.Advance(tc.to); err == nil {
				t.Fatalf("expected %s -> %s to be rejected", tc.from, tc.to)
			}
		})
	}
}

func TestFailIsAbsorbing(t *testing.T) {
	p := newTestPackage(StatusGenerating)
	p.ResumeText = "partial resume"

	cause := errors.New("backend gone")
	p.Fail(FailureNoProvider, cause)

	if p.Status != StatusFailed || !p.Terminal() {
		t.Fatalf("expected failed terminal state, got %s", p.Status)
	}
	if p.FailureKind != FailureNoProvider || !errors.Is(p.Err, cause) {
		t.Fatalf("expected failure metadata, got %s / %v", p.FailureKind, p.Err)
	}
	if p.ResumeText != "partial resume" {
		t.Fatalf("expected partial results kept")
	}
	if p.FinishedAt.IsZero() {
		t.Fatalf("expected finished timestamp")
	}

	if err := p.Advance(StatusScoring); err == nil {
		t.Fatalf("expected failed state to reject transitions")
	}
}

func TestNewPackageStartsPendingWithDiscoveryScore(t *testing.T) {
	l := NewListing("pagefetch:acme", "Acme", "Go Engineer", "Denver", "https://acme.example/jobs/1")
	l.Score = 73
	l.Description = "desc"

	p := NewPackage(l)
	if p.Status != StatusPending {
		t.Fatalf("expected pending, got %s", p.Status)
	}
	if p.MatchScore != 73 {
		t.Fatalf("expected score carried over, got %v", p.MatchScore)
	}
	if p.EnrichedDescription != "desc" {
		t.Fatalf("expected description carried over, got %q", p.EnrichedDescription)
	}
}
