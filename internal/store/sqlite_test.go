package store

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSQLiteStoreRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "seen.db")

	s, err := NewSQLiteStore(path)
	require.NoError(t, err)
	defer s.Close()

	const id = "pagefetch:acme|https://acme.example/jobs/1"

	seen, err := s.HasGenerated(id)
	require.NoError(t, err)
	require.False(t, seen, "fresh listing must not be marked")

	require.NoError(t, s.MarkGenerated(id))
	// marking twice is a no-op
	require.NoError(t, s.MarkGenerated(id))

	seen, err = s.HasGenerated(id)
	require.NoError(t, err)
	require.True(t, seen)
}

func TestSQLiteStorePersistsAcrossOpens(t *testing.T) {
	path := filepath.Join(t.TempDir(), "seen.db")

	s, err := NewSQLiteStore(path)
	require.NoError(t, err)
	require.NoError(t, s.MarkGenerated("id-1"))
	require.NoError(t, s.Close())

	reopened, err := NewSQLiteStore(path)
	require.NoError(t, err)
	defer reopened.Close()

	seen, err := reopened.HasGenerated("id-1")
	require.NoError(t, err)
	require.True(t, seen, "mark must survive reopen")
}

func TestNopStoreSeesNothing(t *testing.T) {
	s := NewNopStore()

	require.NoError(t, s.MarkGenerated("id-1"))

	seen, err := s.HasGenerated("id-1")
	require.NoError(t, err)
	require.False(t, seen)
}
