package render

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRenderWritesSanitizedFilename(t *testing.T) {
	dir := t.TempDir()

	r, err := NewTextRenderer(dir)
	require.NoError(t, err)

	path, err := r.Render(context.Background(), Artifact{
		Kind:    KindResume,
		Text:    "resume body",
		Company: "Acme, Inc.",
		Title:   "Senior Go Engineer (Remote)",
	})
	require.NoError(t, err)
	require.Equal(t, filepath.Join(dir, "acme_inc_senior_go_engineer_remote_resume.txt"), path)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Equal(t, "resume body", string(data))
}

func TestRenderRejectsEmptyText(t *testing.T) {
	r, err := NewTextRenderer(t.TempDir())
	require.NoError(t, err)

	_, err = r.Render(context.Background(), Artifact{Kind: KindCoverLetter, Company: "Acme", Title: "SRE"})
	require.Error(t, err)
}

func TestSanitizeFallsBackForEmptyNames(t *testing.T) {
	require.Equal(t, "unknown", sanitize("!!!"))
	require.Equal(t, "platform_eng", sanitize("  Platform/Eng "))
}
