package provider

import (
	"context"
	"errors"
	"math/rand/v2"
	"sync"
	"time"
	"unicode/utf8"

	"go.uber.org/zap"

	"github.com/applypilot/applypilot/internal/utils"
)

const (
	// maxAttempts is the per-provider retry budget for rate-limit-class
	// failures within one Call.
	maxAttempts = 3
	// baseRetryDelay doubles per attempt: 2s, 4s, 8s.
	baseRetryDelay = 2 * time.Second
	// DefaultBackoffWindow benches a provider after its retries are spent.
	DefaultBackoffWindow = time.Minute
	// maxLogPreview caps prompt and response excerpts in debug logs.
	maxLogPreview = 200
)

// State is a read-only snapshot of one provider's health, exposed for the
// run report.
type State struct {
	Name                string
	Rank                int
	Available           bool
	ConsecutiveFailures int
	NextEligibleAt      time.Time
}

// managed couples a generator with its health state. The mutex is
// per-provider so one provider's backoff never blocks another's.
type managed struct {
	gen  Generator
	rank int

	mu                  sync.Mutex
	disabled            bool
	consecutiveFailures int
	nextEligibleAt      time.Time
}

// Manager executes generation calls against an ordered priority list of
// providers with same-provider retries, backoff windows and fallback. Safe
// for concurrent use.
type Manager struct {
	providers []*managed
	window    time.Duration
	logger    *zap.Logger

	// seams for tests
	now  func() time.Time
	wait func(ctx context.Context, d time.Duration) error
}

// NewManager builds a manager over generators in priority order (highest
// first). window <= 0 selects the default backoff window.
func NewManager(generators []Generator, window time.Duration, logger *zap.Logger) *Manager {
	if window <= 0 {
		window = DefaultBackoffWindow
	}

	m := &Manager{
		window: window,
		logger: logger,
		now:    time.Now,
		wait:   utils.WaitFor,
	}

	for i, gen := range generators {
		m.providers = append(m.providers, &managed{gen: gen, rank: i})
	}

	return m
}

// CheckAll runs each provider's startup precondition. Failing providers are
// disabled for the run. It returns an error only when nothing is left.
func (m *Manager) CheckAll(ctx context.Context) error {
	available := 0
	for _, p := range m.providers {
		if err := p.gen.Check(ctx); err != nil {
			p.mu.Lock()
			p.disabled = true
			p.mu.Unlock()

			m.logger.Warn("provider failed startup check",
				zap.String("provider", p.gen.Name()),
				zap.Error(err),
			)
			continue
		}
		available++
	}

	if available == 0 {
		return ErrNoProviderAvailable
	}

	return nil
}

// Call sends the prompt to the highest-priority available provider, retrying
// rate-limit-class failures on the same provider before falling through to
// the next one. The prompt's semantics are opaque to the manager.
func (m *Manager) Call(ctx context.Context, prompt string) (string, error) {
	var lastErr error

	for _, p := range m.providers {
		if !m.eligible(p) {
			continue
		}

		text, err := m.callProvider(ctx, p, prompt)
		if err == nil {
			return text, nil
		}
		if ctx.Err() != nil {
			return "", ctx.Err()
		}

		lastErr = err
	}

	if lastErr != nil {
		return "", errors.Join(ErrNoProviderAvailable, lastErr)
	}
	return "", ErrNoProviderAvailable
}

// Snapshot returns the current state of every provider in priority order.
func (m *Manager) Snapshot() []State {
	states := make([]State, 0, len(m.providers))
	now := m.now()

	for _, p := range m.providers {
		p.mu.Lock()
		states = append(states, State{
			Name:                p.gen.Name(),
			Rank:                p.rank,
			Available:           !p.disabled && !now.Before(p.nextEligibleAt),
			ConsecutiveFailures: p.consecutiveFailures,
			NextEligibleAt:      p.nextEligibleAt,
		})
		p.mu.Unlock()
	}

	return states
}

func (m *Manager) eligible(p *managed) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return !p.disabled && !m.now().Before(p.nextEligibleAt)
}

// callProvider runs the per-provider retry loop: up to maxAttempts for
// rate-limit-class failures with exponential backoff and jitter, immediate
// bail-out on permanent failures.
func (m *Manager) callProvider(ctx context.Context, p *managed, prompt string) (string, error) {
	name := p.gen.Name()
	var lastErr error

	m.logger.Debug("provider request",
		zap.String("provider", name),
		zap.Int("prompt_length", utf8.RuneCountInString(prompt)),
		zap.String("prompt_preview", utils.TruncateForLog(prompt, maxLogPreview)),
	)

	for attempt := 0; attempt < maxAttempts; attempt++ {
		text, err := p.gen.Generate(ctx, prompt)
		if err == nil {
			m.recordSuccess(p)
			m.logger.Debug("provider response",
				zap.String("provider", name),
				zap.Int("response_length", utf8.RuneCountInString(text)),
				zap.String("response_preview", utils.TruncateForLog(text, maxLogPreview)),
			)
			return text, nil
		}
		if ctx.Err() != nil {
			return "", err
		}

		kind := KindOf(err)
		lastErr = err

		if kind == KindPermanent {
			m.disable(p, err)
			return "", err
		}

		if attempt < maxAttempts-1 {
			delay := retryDelay(attempt)
			m.logger.Warn("provider call failed, retrying",
				zap.String("provider", name),
				zap.String("kind", string(kind)),
				zap.Int("attempt", attempt+1),
				zap.Int("max_attempts", maxAttempts),
				zap.Duration("delay", delay),
				zap.Error(err),
			)

			if err := m.wait(ctx, delay); err != nil {
				return "", err
			}
		}
	}

	m.bench(p, lastErr)
	return "", lastErr
}

func (m *Manager) recordSuccess(p *managed) {
	p.mu.Lock()
	p.consecutiveFailures = 0
	p.mu.Unlock()
}

// bench puts the provider into its backoff window. The window grows with
// consecutive exhaustions so a persistently throttled provider is excluded
// for strictly increasing intervals.
func (m *Manager) bench(p *managed, cause error) {
	p.mu.Lock()
	p.consecutiveFailures++
	window := m.window * time.Duration(p.consecutiveFailures)
	p.nextEligibleAt = m.now().Add(window)
	failures := p.consecutiveFailures
	p.mu.Unlock()

	m.logger.Warn("provider entering backoff",
		zap.String("provider", p.gen.Name()),
		zap.Int("consecutive_failures", failures),
		zap.Duration("window", window),
		zap.Error(cause),
	)
}

func (m *Manager) disable(p *managed, cause error) {
	p.mu.Lock()
	p.disabled = true
	p.mu.Unlock()

	m.logger.Warn("provider disabled for the run",
		zap.String("provider", p.gen.Name()),
		zap.Error(cause),
	)
}

// retryDelay computes baseRetryDelay * 2^attempt with ±30% jitter.
func retryDelay(attempt int) time.Duration {
	delay := baseRetryDelay << attempt

	jitter := float64(delay) * 0.3
	return time.Duration(float64(delay) + (rand.Float64()*2-1)*jitter)
}
