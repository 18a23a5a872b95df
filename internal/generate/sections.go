package generate

import "strings"

// sectionHeadings maps heading phrases found in job pages to the canonical
// section they open. Matching is case-insensitive on short standalone lines.
var sectionHeadings = map[string]string{
	"about":                    "About",
	"about us":                 "About",
	"about the company":        "About",
	"about the role":           "About",
	"who we are":               "About",
	"the role":                 "About",
	"responsibilities":         "Responsibilities",
	"your responsibilities":    "Responsibilities",
	"key responsibilities":     "Responsibilities",
	"duties":                   "Responsibilities",
	"what you'll do":           "Responsibilities",
	"what you will do":         "Responsibilities",
	"qualifications":           "Qualifications",
	"requirements":             "Qualifications",
	"minimum qualifications":   "Qualifications",
	"basic qualifications":     "Qualifications",
	"preferred qualifications": "Qualifications",
	"skills":                   "Qualifications",
	"what we're looking for":   "Qualifications",
	"what we are looking for":  "Qualifications",
	"who you are":              "Qualifications",
}

// maxHeadingLength keeps long prose lines from being misread as headings.
const maxHeadingLength = 40

// NormalizeDescription reshapes raw page text into labeled About,
// Responsibilities and Qualifications sections. Text before the first
// recognized heading is kept verbatim; when no heading is found the input is
// returned unchanged.
func NormalizeDescription(text string) string {
	lines := strings.Split(text, "\n")

	sections := map[string]*strings.Builder{}
	order := []string{}
	current := ""

	var preamble strings.Builder

	for _, line := range lines {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" {
			continue
		}

		if name, ok := headingFor(trimmed); ok {
			current = name
			if _, seen := sections[name]; !seen {
				sections[name] = &strings.Builder{}
				order = append(order, name)
			}
			continue
		}

		if current == "" {
			preamble.WriteString(trimmed)
			preamble.WriteString("\n")
			continue
		}

		sections[current].WriteString(trimmed)
		sections[current].WriteString("\n")
	}

	if len(order) == 0 {
		return strings.TrimSpace(text)
	}

	var out strings.Builder
	if preamble.Len() > 0 {
		out.WriteString(strings.TrimSpace(preamble.String()))
		out.WriteString("\n\n")
	}
	for _, name := range order {
		body := strings.TrimSpace(sections[name].String())
		if body == "" {
			continue
		}
		out.WriteString(name)
		out.WriteString(":\n")
		out.WriteString(body)
		out.WriteString("\n\n")
	}

	return strings.TrimSpace(out.String())
}

func headingFor(line string) (string, bool) {
	if len(line) > maxHeadingLength {
		return "", false
	}

	key := strings.ToLower(strings.TrimRight(line, ":"))
	key = strings.TrimSpace(key)

	name, ok := sectionHeadings[key]
	return name, ok
}
