// Package provider is the single source of truth for "which generation
// backend do I call right now". The Manager owns all provider state; callers
// only see Call.
package provider

import "context"

// Generator sends a prompt to one generation backend and returns the raw
// text response. Implementations carry no retry or fallback logic; the
// Manager owns that.
type Generator interface {
	Name() string

	// Check verifies reachability/credentials once at startup. A failing
	// provider starts the run disabled.
	Check(ctx context.Context) error

	Generate(ctx context.Context, prompt string) (string, error)
}
