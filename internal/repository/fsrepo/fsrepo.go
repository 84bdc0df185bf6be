// Package fsrepo is the storage layer of the asset store. All state
// lives in the filesystem tree under a configured root; every raw
// filesystem call of the service goes through this package.
package fsrepo

import (
	"errors"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/google/uuid"
)

// DirMode is the permission used for created asset directories.
const DirMode = 0o775

// BulkResult reports the outcome of a best-effort bulk operation.
// Failed lists the sub-paths whose removal failed; the operation keeps
// going past individual failures.
type BulkResult struct {
	Missing bool
	Failed  []string
}

// OK reports aggregate success.
func (r BulkResult) OK() bool {
	return !r.Missing && len(r.Failed) == 0
}

type Repository struct {
	root string
}

// New creates a repository rooted at the given storage directory.
func New(root string) *Repository {
	return &Repository{root: root}
}

// Abs converts a repository-relative path to an absolute one.
func (r *Repository) Abs(rel string) string {
	return filepath.Join(r.root, filepath.FromSlash(rel))
}

// FileExists reports whether rel names an existing regular file.
func (r *Repository) FileExists(rel string) bool {
	info, err := os.Stat(r.Abs(rel))
	return err == nil && info.Mode().IsRegular()
}

// DirExists reports whether rel names an existing directory.
func (r *Repository) DirExists(rel string) bool {
	info, err := os.Stat(r.Abs(rel))
	return err == nil && info.IsDir()
}

// DeleteFile removes a single file. It returns false if the file was
// absent or the unlink failed; absence is a normal outcome, not an
// error.
func (r *Repository) DeleteFile(rel string) bool {
	abs := r.Abs(rel)

	info, err := os.Stat(abs)
	if err != nil || !info.Mode().IsRegular() {
		return false
	}

	return os.Remove(abs) == nil
}

// DeleteFilesWithPrefix removes the immediate child files of dir whose
// name starts with prefix. Subdirectories are left alone.
func (r *Repository) DeleteFilesWithPrefix(dir, prefix string) BulkResult {
	entries, err := os.ReadDir(r.Abs(dir))
	if err != nil {
		return BulkResult{Missing: true}
	}

	var res BulkResult
	for _, e := range entries {
		if e.IsDir() || !strings.HasPrefix(e.Name(), prefix) {
			continue
		}
		rel := dir + "/" + e.Name()
		if os.Remove(r.Abs(rel)) != nil {
			res.Failed = append(res.Failed, rel)
		}
	}

	return res
}

// CreateDir creates the directory and any missing parents. It returns
// false if the directory already existed or creation failed.
func (r *Repository) CreateDir(rel string, mode os.FileMode) bool {
	abs := r.Abs(rel)

	if info, err := os.Stat(abs); err == nil && info.IsDir() {
		return false
	}

	return os.MkdirAll(abs, mode) == nil
}

// DeleteDirRecursive removes a directory tree depth first. An absent
// directory counts as already deleted. Individual failures are
// collected and the remaining entries are still attempted.
func (r *Repository) DeleteDirRecursive(rel string) BulkResult {
	abs := r.Abs(rel)

	if _, err := os.Stat(abs); errors.Is(err, fs.ErrNotExist) {
		return BulkResult{}
	}

	var res BulkResult
	res.Failed = append(res.Failed, removeTree(abs)...)
	return res
}

func removeTree(abs string) (failed []string) {
	entries, err := os.ReadDir(abs)
	if err != nil {
		return []string{abs}
	}

	for _, e := range entries {
		child := filepath.Join(abs, e.Name())
		if e.IsDir() {
			failed = append(failed, removeTree(child)...)
		} else if os.Remove(child) != nil {
			failed = append(failed, child)
		}
	}

	if os.Remove(abs) != nil {
		failed = append(failed, abs)
	}

	return failed
}

// HasAnyFile reports whether the directory tree under rel contains at
// least one regular file. The walk short-circuits on the first hit.
func (r *Repository) HasAnyFile(rel string) bool {
	abs := r.Abs(rel)

	if info, err := os.Stat(abs); err != nil || !info.IsDir() {
		return false
	}

	found := errors.New("found")
	err := filepath.WalkDir(abs, func(_ string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if !d.IsDir() {
			return found
		}
		return nil
	})

	return errors.Is(err, found)
}

// Files lists the names of the immediate child files of dir, sorted.
func (r *Repository) Files(dir string) []string {
	entries, err := os.ReadDir(r.Abs(dir))
	if err != nil {
		return nil
	}

	var names []string
	for _, e := range entries {
		if !e.IsDir() {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)

	return names
}

// Stat returns file info for a relative path.
func (r *Repository) Stat(rel string) (os.FileInfo, error) {
	return os.Stat(r.Abs(rel))
}

// Rename moves a file within the repository.
func (r *Repository) Rename(oldRel, newRel string) error {
	return os.Rename(r.Abs(oldRel), r.Abs(newRel))
}

// WriteFile persists the reader's content at rel with overwrite
// semantics. The content is spooled to a uniquely named sibling first
// so a reader of the final name never observes a partial file.
func (r *Repository) WriteFile(rel string, src io.Reader) error {
	abs := r.Abs(rel)
	tmp := filepath.Join(filepath.Dir(abs), "."+uuid.NewString()+".spool")

	f, err := os.Create(tmp)
	if err != nil {
		return err
	}

	if _, err := io.Copy(f, src); err != nil {
		f.Close()
		os.Remove(tmp)
		return err
	}
	if err := f.Close(); err != nil {
		os.Remove(tmp)
		return err
	}

	if err := os.Rename(tmp, abs); err != nil {
		os.Remove(tmp)
		return err
	}

	return nil
}
