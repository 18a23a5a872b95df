// Package scoring computes the listing relevance score: a fuzzy token-set
// similarity between the listing text and the candidate résumé, plus small
// capped boosts for high-value title keywords. Pure and deterministic.
package scoring

import (
	"regexp"
	"strings"

	fuzzy "github.com/paul-mannino/go-fuzzywuzzy"

	"github.com/applypilot/applypilot/internal/job"
)

const (
	keywordBoost    = 5.0
	maxKeywordBoost = 15.0
)

var nonAlnum = regexp.MustCompile(`[^a-z0-9+#.\-\s]`)

// Tokenize lowercases the text, strips punctuation that carries no signal
// (keeping c++/c#/.net intact) and drops single-character tokens.
func Tokenize(text string) string {
	text = nonAlnum.ReplaceAllString(strings.ToLower(text), " ")

	fields := strings.Fields(text)
	kept := fields[:0]
	for _, tok := range fields {
		if len(tok) > 1 {
			kept = append(kept, tok)
		}
	}

	return strings.Join(kept, " ")
}

// Score rates a listing against the profile in [0,100]. An empty description
// degrades to a title/company/location comparison; the result is never NaN
// or negative.
func Score(l job.Listing, p job.Profile) float64 {
	listingText := strings.Join([]string{l.Title, l.Company, l.Location, l.Description}, "\n")

	score := float64(fuzzy.TokenSetRatio(Tokenize(p.ResumeText), Tokenize(listingText)))

	score += titleBoost(l.Title, p.BoostKeywords)

	if score < 0 {
		return 0
	}
	if score > 100 {
		return 100
	}
	return score
}

// titleBoost adds a fixed bump per matched role-family keyword, capped so
// boosts nudge the ranking instead of dominating it.
func titleBoost(title string, keywords []string) float64 {
	titleLower := strings.ToLower(title)

	boost := 0.0
	for _, kw := range keywords {
		kw = strings.ToLower(strings.TrimSpace(kw))
		if kw == "" {
			continue
		}
		if strings.Contains(titleLower, kw) {
			boost += keywordBoost
			if boost >= maxKeywordBoost {
				return maxKeywordBoost
			}
		}
	}

	return boost
}
