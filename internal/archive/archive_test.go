package archive

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/go-git/go-billy/v5/osfs"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func TestArchiveRecoverRoundTrip(t *testing.T) {
	dir := t.TempDir()
	fs := osfs.New("/")

	a := filepath.Join(dir, "a.py")
	b := filepath.Join(dir, "sub", "a.py") // same base name, different dir
	require.NoError(t, os.MkdirAll(filepath.Dir(b), 0o755))
	writeFile(t, a, "print('a')\n")
	writeFile(t, b, "print('b')\n")

	root := filepath.Join(dir, "archive")
	require.NoError(t, Archive(fs, []string{a, b}, root))

	// Archiving never mutates the sources.
	got, err := os.ReadFile(a)
	require.NoError(t, err)
	assert.Equal(t, "print('a')\n", string(got))

	// Clobber the originals, then recover.
	writeFile(t, a, "corrupted")
	writeFile(t, b, "corrupted")
	require.NoError(t, Recover(fs, root, false))

	got, err = os.ReadFile(a)
	require.NoError(t, err)
	assert.Equal(t, "print('a')\n", string(got))
	got, err = os.ReadFile(b)
	require.NoError(t, err)
	assert.Equal(t, "print('b')\n", string(got))
}

func TestArchiveCollisionFreeNames(t *testing.T) {
	dir := t.TempDir()
	fs := osfs.New("/")

	a := filepath.Join(dir, "x", "mod.py")
	b := filepath.Join(dir, "y", "mod.py")
	require.NoError(t, os.MkdirAll(filepath.Dir(a), 0o755))
	require.NoError(t, os.MkdirAll(filepath.Dir(b), 0o755))
	writeFile(t, a, "x")
	writeFile(t, b, "y")

	root := filepath.Join(dir, "archive")
	require.NoError(t, Archive(fs, []string{a, b}, root))

	manifest, err := OpenManifest(filepath.Join(root, ManifestName))
	require.NoError(t, err)
	defer func() { _ = manifest.Close() }()

	entries, err := manifest.Entries()
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.NotEqual(t, entries[0].Archived, entries[1].Archived)
	for _, e := range entries {
		data, err := os.ReadFile(filepath.Join(root, e.Archived))
		require.NoError(t, err)
		original, err := os.ReadFile(e.Original)
		require.NoError(t, err)
		assert.Equal(t, original, data)
	}
}

func TestRecoverRemovesArchive(t *testing.T) {
	dir := t.TempDir()
	fs := osfs.New("/")

	a := filepath.Join(dir, "a.py")
	writeFile(t, a, "content")

	root := filepath.Join(dir, "archive")
	require.NoError(t, Archive(fs, []string{a}, root))
	require.NoError(t, Recover(fs, root, true))

	_, err := os.Stat(root)
	assert.True(t, os.IsNotExist(err))
}

func TestRecoverInvalidArchive(t *testing.T) {
	fs := osfs.New("/")
	err := Recover(fs, filepath.Join(t.TempDir(), "nope"), false)
	require.Error(t, err)

	var archiveErr *ArchiveError
	require.ErrorAs(t, err, &archiveErr)
	assert.Equal(t, "locate manifest", archiveErr.Op)
}

func TestArchiveMissingSource(t *testing.T) {
	dir := t.TempDir()
	fs := osfs.New("/")

	err := Archive(fs, []string{filepath.Join(dir, "missing.py")}, filepath.Join(dir, "archive"))
	require.Error(t, err)

	var archiveErr *ArchiveError
	require.ErrorAs(t, err, &archiveErr)
	assert.Equal(t, "copy", archiveErr.Op)
}
