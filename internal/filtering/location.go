package filtering

import (
	"strings"

	fuzzy "github.com/paul-mannino/go-fuzzywuzzy"
)

// fuzzyLocationThreshold is the partial-ratio cutoff for the fuzzy fallback.
const fuzzyLocationThreshold = 85

// countryAliases expands common abbreviations so "Austin, TX, USA" matches a
// target of "united states". Naive equality on raw strings was the observed
// failure mode this replaces.
var countryAliases = map[string]string{
	"usa":     "united states",
	"us":      "united states",
	"u.s.":    "united states",
	"u.s.a.":  "united states",
	"america": "united states",
	"uk":      "united kingdom",
	"u.k.":    "united kingdom",
	"uae":     "united arab emirates",
}

// MatchesLocation reports whether a listing location satisfies a target
// location using containment and alias-aware fuzzy matching, never exact
// equality.
func MatchesLocation(location, target string) bool {
	loc := strings.ToLower(strings.TrimSpace(location))
	tgt := strings.ToLower(strings.TrimSpace(target))

	if tgt == "" {
		return true
	}
	if loc == "" {
		return false
	}

	if strings.Contains(loc, tgt) || strings.Contains(tgt, loc) {
		return true
	}

	// Expand aliases token-wise: "usa" in the location stands for
	// "united states" and vice versa.
	for _, token := range splitLocation(loc) {
		if alias, ok := countryAliases[token]; ok && strings.Contains(alias, tgt) {
			return true
		}
	}
	for _, token := range splitLocation(tgt) {
		if alias, ok := countryAliases[token]; ok && strings.Contains(loc, alias) {
			return true
		}
	}

	return fuzzy.PartialRatio(tgt, loc) >= fuzzyLocationThreshold
}

func splitLocation(s string) []string {
	return strings.FieldsFunc(s, func(r rune) bool {
		return r == ',' || r == '/' || r == ';' || r == ' '
	})
}
