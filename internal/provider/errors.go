package provider

import (
	"errors"
	"fmt"
	"strings"
)

// Kind classifies a generation failure for retry/fallback decisions.
type Kind string

const (
	// KindRateLimited and KindQuotaExhausted are explicit throttling signals.
	KindRateLimited    Kind = "rate_limited"
	KindQuotaExhausted Kind = "quota_exhausted"
	// KindTransient covers temporary resource failures (timeouts, 5xx).
	KindTransient Kind = "transient"
	// KindPermanent covers auth and malformed-request failures; the provider
	// is disabled for the rest of the run without spending retry budget.
	KindPermanent Kind = "permanent"
)

// Retryable reports whether the kind belongs to the rate-limit class that is
// worth retrying on the same provider.
func (k Kind) Retryable() bool {
	return k == KindRateLimited || k == KindQuotaExhausted || k == KindTransient
}

// Error is a classified failure from a generation provider.
type Error struct {
	Provider string
	Kind     Kind
	Err      error
}

func (e *Error) Error() string {
	return fmt.Sprintf("provider %s: %s: %v", e.Provider, e.Kind, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// ErrNoProviderAvailable is returned when every configured provider is
// disabled or backing off. Terminal for a single job's generation step, not
// for the run.
var ErrNoProviderAvailable = errors.New("no generation provider available")

// rate-limit phrasings seen across Gemini, Ollama and OpenAI-compatible APIs.
var rateLimitPhrases = []string{
	"rate limit", "too many requests", "429",
}

var quotaPhrases = []string{
	"quota", "resource_exhausted", "resourceexhausted", "insufficient_quota",
}

var permanentPhrases = []string{
	"unauthorized", "forbidden", "invalid api key", "api key not valid",
	"permission denied", "401", "403", "400",
}

// KindOf classifies an arbitrary provider error. Typed errors keep their
// kind; everything else is classified by message, defaulting to transient so
// an unknown hiccup gets its retries before the provider is benched.
func KindOf(err error) Kind {
	var perr *Error
	if errors.As(err, &perr) {
		return perr.Kind
	}

	msg := strings.ToLower(err.Error())

	for _, phrase := range quotaPhrases {
		if strings.Contains(msg, phrase) {
			return KindQuotaExhausted
		}
	}
	for _, phrase := range rateLimitPhrases {
		if strings.Contains(msg, phrase) {
			return KindRateLimited
		}
	}
	for _, phrase := range permanentPhrases {
		if strings.Contains(msg, phrase) {
			return KindPermanent
		}
	}

	return KindTransient
}

// KindFromStatus classifies an HTTP status code from a provider endpoint.
func KindFromStatus(status int) Kind {
	switch {
	case status == 429:
		return KindRateLimited
	case status >= 500:
		return KindTransient
	default:
		return KindPermanent
	}
}
