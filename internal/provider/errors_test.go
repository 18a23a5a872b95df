package provider

import (
	"errors"
	"fmt"
	"testing"
)

func TestKindOf(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want Kind
	}{
		{"typed error keeps kind", &Error{Provider: "x", Kind: KindPermanent, Err: errors.New("whatever")}, KindPermanent},
		{"wrapped typed error", fmt.Errorf("call failed: %w", &Error{Kind: KindRateLimited, Err: errors.New("429")}), KindRateLimited},
		{"rate limit phrase", errors.New("429 Too Many Requests"), KindRateLimited},
		{"quota phrase", errors.New("RESOURCE_EXHAUSTED: quota exceeded"), KindQuotaExhausted},
		{"auth phrase", errors.New("API key not valid. Please pass a valid API key."), KindPermanent},
		{"unknown defaults to transient", errors.New("connection reset by peer"), KindTransient},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := KindOf(tc.err); got != tc.want {
				t.Fatalf("KindOf(%v) = %s, want %s", tc.err, got, tc.want)
			}
		})
	}
}

func TestKindFromStatus(t *testing.T) {
	if got := KindFromStatus(429); got != KindRateLimited {
		t.Fatalf("429 = %s, want %s", got, KindRateLimited)
	}
	if got := KindFromStatus(503); got != KindTransient {
		t.Fatalf("503 = %s, want %s", got, KindTransient)
	}
	if got := KindFromStatus(401); got != KindPermanent {
		t.Fatalf("401 = %s, want %s", got, KindPermanent)
	}
}

func TestKindRetryable(t *testing.T) {
	for _, k := range []Kind{KindRateLimited, KindQuotaExhausted, KindTransient} {
		if !k.Retryable() {
			t.Fatalf("expected %s to be retryable", k)
		}
	}
	if KindPermanent.Retryable() {
		t.Fatalf("permanent must not be retryable")
	}
}
