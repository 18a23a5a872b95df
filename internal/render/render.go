// Package render turns generated application texts into files on disk. The
// canonical artifact stays the text on the package; rendering failures never
// fail a job.
package render

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
)

// Kind names the artifact type, used in the output filename.
type Kind string

const (
	KindResume      Kind = "resume"
	KindCoverLetter Kind = "cover_letter"
)

// Artifact is one generated document to write out.
type Artifact struct {
	Kind    Kind
	Text    string
	Company string
	Title   string
}

// Renderer writes one artifact and returns the path it produced.
type Renderer interface {
	Render(ctx context.Context, a Artifact) (string, error)
}

// TextRenderer writes artifacts as plain text files under a single output
// directory.
type TextRenderer struct {
	dir string
}

// NewTextRenderer creates the output directory if needed.
func NewTextRenderer(dir string) (*TextRenderer, error) {
	if dir == "" {
		return nil, fmt.Errorf("output directory is required")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create output directory: %w", err)
	}

	return &TextRenderer{dir: dir}, nil
}

// Render writes the artifact to <company>_<title>_<kind>.txt and returns the
// full path.
func (r *TextRenderer) Render(ctx context.Context, a Artifact) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if strings.TrimSpace(a.Text) == "" {
		return "", fmt.Errorf("artifact %s has no text", a.Kind)
	}

	name := fmt.Sprintf("%s_%s_%s.txt", sanitize(a.Company), sanitize(a.Title), a.Kind)
	path := filepath.Join(r.dir, name)

	if err := os.WriteFile(path, []byte(a.Text), 0o644); err != nil {
		return "", fmt.Errorf("write %s: %w", path, err)
	}

	return path, nil
}

var unsafeChars = regexp.MustCompile(`[^a-z0-9]+`)

// sanitize flattens a free-form name into a safe filename fragment.
func sanitize(s string) string {
	s = unsafeChars.ReplaceAllString(strings.ToLower(s), "_")
	s = strings.Trim(s, "_")
	if s == "" {
		return "unknown"
	}
	return s
}
