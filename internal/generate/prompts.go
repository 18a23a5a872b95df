package generate

import (
	"strings"

	_ "embed"

	"github.com/applypilot/applypilot/internal/job"
)

//go:embed resume_prompt.md
var resumePromptTemplate string

//go:embed cover_letter_prompt.md
var coverLetterPromptTemplate string

func resumePrompt(pkg *job.Package, resumeText string) string {
	return interpolate(resumePromptTemplate, pkg, resumeText)
}

func coverLetterPrompt(pkg *job.Package, resumeText string) string {
	return interpolate(coverLetterPromptTemplate, pkg, resumeText)
}

func interpolate(template string, pkg *job.Package, resumeText string) string {
	description := strings.TrimSpace(pkg.EnrichedDescription)
	if description == "" {
		description = "(no description available; tailor to the title and company)"
	}

	prompt := strings.ReplaceAll(template, "{{COMPANY}}", pkg.Job.Company)
	prompt = strings.ReplaceAll(prompt, "{{TITLE}}", pkg.Job.Title)
	prompt = strings.ReplaceAll(prompt, "{{JOB_DESCRIPTION}}", description)
	prompt = strings.ReplaceAll(prompt, "{{RESUME}}", resumeText)

	return prompt
}
