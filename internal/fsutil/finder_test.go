package fsutil

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCollectFiles(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	for _, name := range []string{"b.hcl", "a.hcl", "notes.txt", "sub/c.hcl"} {
		path := filepath.Join(dir, name)
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, nil, 0o644))
	}

	got, err := CollectFiles([]string{dir, filepath.Join(dir, "a.hcl"), filepath.Join(dir, "notes.txt")}, ".hcl")
	require.NoError(t, err)
	assert.Equal(t, []string{
		filepath.Join(dir, "a.hcl"),
		filepath.Join(dir, "b.hcl"),
		filepath.Join(dir, "notes.txt"),
		filepath.Join(dir, "sub", "c.hcl"),
	}, got, "explicit files are kept whatever their extension")

	_, err = CollectFiles([]string{filepath.Join(dir, "missing")}, ".hcl")
	require.Error(t, err)

	assert.Panics(t, func() { _, _ = FindFilesByExtension(dir, "") })
}
