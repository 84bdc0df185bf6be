package fsrepo

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRepo(t *testing.T) *Repository {
	t.Helper()
	return New(t.TempDir())
}

func writeFile(t *testing.T, r *Repository, rel, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(r.Abs(rel)), 0o775))
	require.NoError(t, os.WriteFile(r.Abs(rel), []byte(content), 0o644))
}

func TestFileExists(t *testing.T) {
	r := newRepo(t)
	writeFile(t, r, "a/x.txt", "hi")

	assert.True(t, r.FileExists("a/x.txt"))
	assert.False(t, r.FileExists("a/y.txt"))
	assert.False(t, r.FileExists("a"), "directories are not files")
}

func TestDeleteFileIdempotent(t *testing.T) {
	r := newRepo(t)
	writeFile(t, r, "a/x.txt", "hi")

	assert.True(t, r.DeleteFile("a/x.txt"))
	assert.False(t, r.DeleteFile("a/x.txt"), "second delete finds nothing")
	assert.False(t, r.DeleteFile("never/was.txt"))
}

func TestDeleteFilesWithPrefix(t *testing.T) {
	r := newRepo(t)
	writeFile(t, r, "d/pre-1.txt", "x")
	writeFile(t, r, "d/pre-2.txt", "x")
	writeFile(t, r, "d/other.txt", "x")
	writeFile(t, r, "d/sub/pre-3.txt", "x")

	res := r.DeleteFilesWithPrefix("d", "pre-")
	assert.True(t, res.OK())

	assert.False(t, r.FileExists("d/pre-1.txt"))
	assert.False(t, r.FileExists("d/pre-2.txt"))
	assert.True(t, r.FileExists("d/other.txt"))
	assert.True(t, r.FileExists("d/sub/pre-3.txt"), "scan is not recursive")
}

func TestDeleteFilesWithPrefixMissingDir(t *testing.T) {
	r := newRepo(t)

	res := r.DeleteFilesWithPrefix("nope", "pre-")
	assert.True(t, res.Missing)
	assert.False(t, res.OK())
}

func TestCreateDir(t *testing.T) {
	r := newRepo(t)

	assert.True(t, r.CreateDir("a/b/c", DirMode), "creates with parents")
	assert.True(t, r.DirExists("a/b/c"))
	assert.False(t, r.CreateDir("a/b/c", DirMode), "existing dir is a no-op")
}

func TestDeleteDirRecursive(t *testing.T) {
	r := newRepo(t)
	writeFile(t, r, "tree/x.txt", "x")
	writeFile(t, r, "tree/sub/y.txt", "y")

	assert.True(t, r.DeleteDirRecursive("tree").OK())
	assert.False(t, r.DirExists("tree"))

	// Absent tree counts as already deleted.
	assert.True(t, r.DeleteDirRecursive("tree").OK())
}

func TestHasAnyFile(t *testing.T) {
	r := newRepo(t)

	assert.False(t, r.HasAnyFile("missing"))

	require.True(t, r.CreateDir("empty/sub", DirMode))
	assert.False(t, r.HasAnyFile("empty"), "directories alone do not count")

	writeFile(t, r, "empty/sub/deep.txt", "x")
	assert.True(t, r.HasAnyFile("empty"), "finds files at any depth")
}

func TestFiles(t *testing.T) {
	r := newRepo(t)
	writeFile(t, r, "d/b.txt", "x")
	writeFile(t, r, "d/a.txt", "x")
	require.True(t, r.CreateDir("d/sub", DirMode))

	assert.Equal(t, []string{"a.txt", "b.txt"}, r.Files("d"))
	assert.Nil(t, r.Files("missing"))
}

func TestWriteFileOverwrites(t *testing.T) {
	r := newRepo(t)
	require.True(t, r.CreateDir("d", DirMode))

	require.NoError(t, r.WriteFile("d/x.txt", strings.NewReader("one")))
	require.NoError(t, r.WriteFile("d/x.txt", strings.NewReader("two")))

	data, err := os.ReadFile(r.Abs("d/x.txt"))
	require.NoError(t, err)
	assert.Equal(t, "two", string(data))

	// No spool leftovers.
	assert.Equal(t, []string{"x.txt"}, r.Files("d"))
}

func TestRename(t *testing.T) {
	r := newRepo(t)
	writeFile(t, r, "d/a.txt", "x")

	require.NoError(t, r.Rename("d/a.txt", "d/b.txt"))
	assert.False(t, r.FileExists("d/a.txt"))
	assert.True(t, r.FileExists("d/b.txt"))
}
