package extract

import "github.com/applypilot/applypilot/internal/pagefetch"

// atsPresets maps known applicant tracking systems to the selectors their
// hosted career pages use. Explicit per-source selectors override these.
var atsPresets = map[string]pagefetch.Selectors{
	"greenhouse": {
		List:     "div.opening, div[class*='opening']",
		Title:    "a",
		Location: "span.location, .location",
		Link:     "a",
	},
	"lever": {
		List:     "div.posting, div[class*='posting']",
		Title:    "h5, a.posting-title",
		Location: "span.location, .location",
		Link:     "a.posting-title, a",
	},
	"workday": {
		List:     "li[class*='job'], ul[class*='job'] > li",
		Title:    "h3, a[data-automation-id='jobTitle']",
		Location: "dd[class*='location']",
		Link:     "a",
	},
	"smartrecruiters": {
		List:     "li[class*='opening']",
		Title:    "h4, a[class*='link']",
		Location: "span[class*='location']",
		Link:     "a",
	},
	"ashby": {
		List:     "a[class*='job-posting'], div[class*='job']",
		Title:    "h3, span[class*='title']",
		Location: "span[class*='location']",
		Link:     "a",
	},
}

// genericSelectors is the fallback for custom career pages with no known ATS.
var genericSelectors = pagefetch.Selectors{
	List:     "div[class*='job'], li[class*='job'], div[class*='posting'], div[class*='opening'], div[class*='position'], article",
	Title:    "h3, h4, h2, a[class*='title'], span[class*='title'], .job-title, .title, a",
	Location: "span[class*='location'], div[class*='location'], .location, span[class*='city'], [data-location]",
	Link:     "a",
}

// resolveSelectors layers explicit source selectors over the ATS preset (or
// the generic fallback).
func resolveSelectors(src Source) pagefetch.Selectors {
	sel, ok := atsPresets[src.ATS]
	if !ok {
		sel = genericSelectors
	}

	if src.Selectors.List != "" {
		sel.List = src.Selectors.List
	}
	if src.Selectors.Title != "" {
		sel.Title = src.Selectors.Title
	}
	if src.Selectors.Location != "" {
		sel.Location = src.Selectors.Location
	}
	if src.Selectors.Link != "" {
		sel.Link = src.Selectors.Link
	}

	return sel
}
