package use_case

import (
	"context"
	"log"
	"path"
	"sort"

	"github.com/a-d-w-s/assethub/internal/layout"
)

// DeleteEntity removes the whole asset folder of an entity: main
// image, gallery, documents. Returns false if the folder did not
// exist; absence is a normal outcome.
func (s *Service) DeleteEntity(ctx context.Context, entityType string, id int64) bool {
	baseDir := layout.EntityDir(entityType, id)
	lock := s.folderLock(baseDir)
	lock.Lock()
	defer lock.Unlock()

	if !s.repo.DirExists(baseDir) {
		return false
	}

	if err := s.notifier.InvalidateFolder(ctx, baseDir); err != nil {
		log.Printf("[delete] cache invalidation for %s failed: %v", baseDir, err)
	}

	return s.repo.DeleteDirRecursive(baseDir).OK()
}

// DeleteAsset removes one asset by filename. Images are matched
// derivative-first: the extension is substituted with every
// configured format and each candidate removed from the entity
// folder. When no derivative matched, the exact filename is tried in
// the files/ subfolder, which covers documents. Empty directories are
// pruned, gallery deletions trigger renumbering, and the folder's
// cache namespace is invalidated. Returns false when nothing matched.
func (s *Service) DeleteAsset(ctx context.Context, entityType string, id int64, filename string) bool {
	baseDir := layout.EntityDir(entityType, id)
	filesDir := layout.FilesDir(entityType, id)

	lock := s.folderLock(baseDir)
	lock.Lock()
	defer lock.Unlock()

	deleted := false
	for _, f := range s.image.Formats {
		candidate := layout.ReplaceExt(filename, f.Ext)
		if s.repo.DeleteFile(path.Join(baseDir, candidate)) {
			deleted = true
		}
	}

	if !deleted {
		if s.repo.DeleteFile(path.Join(filesDir, filename)) {
			deleted = true
		}
	}

	if !deleted {
		return false
	}

	if !s.repo.HasAnyFile(filesDir) {
		s.repo.DeleteDirRecursive(filesDir)
	}

	if layout.IsGallery(filename) {
		s.renumberGallery(baseDir)
	}

	if err := s.notifier.InvalidateFolder(ctx, baseDir); err != nil {
		log.Printf("[delete] cache invalidation for %s failed: %v", baseDir, err)
	}

	if !s.repo.HasAnyFile(baseDir) {
		s.repo.DeleteDirRecursive(baseDir)
	}

	return true
}

// renumberGallery closes the index gap a deletion left behind: the
// surviving members are regrouped by their old index and reassigned
// consecutive indices from 1 in the same order. Renames happen in two
// phases through a __tmp suffix so no intermediate state ever has two
// logically different assets under one filename, whichever direction
// the indices shift. Best effort: a failed rename is logged and the
// rest proceeds.
func (s *Service) renumberGallery(baseDir string) {
	groups := make(map[int][]string)
	for _, name := range s.repo.Files(baseDir) {
		if g, ok := layout.ParseGallery(name); ok {
			groups[g.Index] = append(groups[g.Index], name)
		}
	}

	indices := make([]int, 0, len(groups))
	for idx := range groups {
		indices = append(indices, idx)
	}
	sort.Ints(indices)

	tmpFiles := make(map[string]string)
	counter := 1

	for _, idx := range indices {
		for _, name := range groups[idx] {
			g, _ := layout.ParseGallery(name)
			newName := g.Name(counter)
			tmpName := newName + "__tmp"

			if err := s.repo.Rename(path.Join(baseDir, name), path.Join(baseDir, tmpName)); err != nil {
				log.Printf("[renumber] %s -> %s failed: %v", name, tmpName, err)
				continue
			}
			tmpFiles[tmpName] = newName
		}
		counter++
	}

	for tmpName, finalName := range tmpFiles {
		if err := s.repo.Rename(path.Join(baseDir, tmpName), path.Join(baseDir, finalName)); err != nil {
			log.Printf("[renumber] %s -> %s failed: %v", tmpName, finalName, err)
		}
	}

	if s.repo.DirExists(baseDir) && !s.repo.HasAnyFile(baseDir) {
		s.repo.DeleteDirRecursive(baseDir)
	}
}
