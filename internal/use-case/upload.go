package use_case

import (
	"context"
	"fmt"
	"log"
	"path"
	"strings"

	"github.com/google/uuid"
	"github.com/gosimple/slug"

	"github.com/a-d-w-s/assethub/internal/entities"
	"github.com/a-d-w-s/assethub/internal/layout"
	"github.com/a-d-w-s/assethub/internal/processor"
	"github.com/a-d-w-s/assethub/internal/repository/fsrepo"
)

// UploadMainImage ingests the singleton main image of an entity and
// generates one derivative per configured format. It returns the
// stored filename, or "" when the upload carried no file at all.
func (s *Service) UploadMainImage(ctx context.Context, up *entities.Upload, entityType string, id int64) (string, error) {
	if up.NoFile {
		return "", nil
	}

	if err := validateUpload(up); err != nil {
		return "", err
	}
	ext, err := mapMime(s.image.MimeTypes, up.MimeType)
	if err != nil {
		return "", err
	}

	dir := layout.EntityDir(entityType, id)
	lock := s.folderLock(dir)
	lock.Lock()
	defer lock.Unlock()

	s.repo.CreateDir(dir, fsrepo.DirMode)

	shard := layout.Shard(id)
	filename := layout.MainName(shard, ext)

	// Derivatives of a previous upload may carry formats no longer
	// configured; clear the whole base name before the fan-out.
	s.repo.DeleteFilesWithPrefix(dir, layout.MainPrefix(shard))

	if err := s.generateDerivatives(ctx, up, dir, ext, filename); err != nil {
		return "", err
	}

	return filename, nil
}

// UploadGalleryImages ingests a batch of gallery members. Indices
// continue after the highest existing one, so an index is never
// reassigned within one batch-start computation even when lower ones
// were deleted. Items whose transport status is not success are
// skipped; validation failures abort the batch and the filenames
// stored so far are returned alongside the error.
func (s *Service) UploadGalleryImages(ctx context.Context, ups []*entities.Upload, entityType string, id int64) ([]string, error) {
	dir := layout.EntityDir(entityType, id)
	lock := s.folderLock(dir)
	lock.Lock()
	defer lock.Unlock()

	s.repo.CreateDir(dir, fsrepo.DirMode)

	shard := layout.Shard(id)

	startIndex := 0
	for _, name := range s.repo.Files(dir) {
		if idx, ok := layout.GalleryIndex(name); ok && idx > startIndex {
			startIndex = idx
		}
	}

	var filenames []string
	for i, up := range ups {
		if up.NoFile || up.Err != nil {
			continue
		}

		if err := validateUpload(up); err != nil {
			return filenames, err
		}
		ext, err := mapMime(s.image.MimeTypes, up.MimeType)
		if err != nil {
			return filenames, err
		}

		filename := layout.GalleryName(shard, startIndex+i+1, ext)
		if err := s.generateDerivatives(ctx, up, dir, ext, filename); err != nil {
			return filenames, err
		}

		filenames = append(filenames, filename)
	}

	return filenames, nil
}

// generateDerivatives spools the upload next to its final location,
// runs the transform engine (orientation fix, fit to the configured
// box) and saves one encoded output per configured format, requesting
// cache invalidation for each. The upload's own bytes are not kept;
// the configured formats are the canonical representations.
func (s *Service) generateDerivatives(ctx context.Context, up *entities.Upload, dir, ext, filename string) error {
	spool := path.Join(dir, ".upload-"+uuid.NewString()+"."+ext)
	if err := s.repo.WriteFile(spool, up.Content); err != nil {
		return fmt.Errorf("spool upload: %w", err)
	}
	defer s.repo.DeleteFile(spool)

	img, err := processor.Open(s.repo.Abs(spool))
	if err != nil {
		return err
	}
	defer img.Close()

	if err := img.AutoOrient(); err != nil {
		return err
	}

	for _, f := range s.image.Formats {
		if err := img.BestFit(s.image.MaxWidth, s.image.MaxHeight); err != nil {
			return err
		}

		out := layout.ReplaceExt(filename, f.Ext)
		if err := img.Save(s.repo.Abs(path.Join(dir, out)), f.Quality); err != nil {
			// Earlier formats stay saved; each one is independent.
			return err
		}

		if err := s.notifier.Invalidate(ctx, path.Join(dir, out)); err != nil {
			log.Printf("[upload] cache invalidation for %s failed: %v", out, err)
		}
	}

	return nil
}

// UploadDocument ingests a single document. Returns "" when the
// upload carried no file.
func (s *Service) UploadDocument(ctx context.Context, up *entities.Upload, entityType string, id int64) (string, error) {
	if up.NoFile {
		return "", nil
	}

	names, err := s.UploadDocuments(ctx, []*entities.Upload{up}, entityType, id)
	if err != nil {
		return "", err
	}
	if len(names) == 0 {
		return "", nil
	}
	return names[0], nil
}

// UploadDocuments ingests a batch of documents under the entity's
// files/ subfolder. The stored name is the slugified client base name
// plus the extension mapped from the declared MIME type, lower-cased;
// a later upload with the same name overwrites.
func (s *Service) UploadDocuments(ctx context.Context, ups []*entities.Upload, entityType string, id int64) ([]string, error) {
	dir := layout.FilesDir(entityType, id)
	lock := s.folderLock(layout.EntityDir(entityType, id))
	lock.Lock()
	defer lock.Unlock()

	s.repo.CreateDir(dir, fsrepo.DirMode)

	var filenames []string
	for _, up := range ups {
		if up.NoFile {
			continue
		}

		if err := validateUpload(up); err != nil {
			return filenames, err
		}
		ext, err := mapMime(s.file.MimeTypes, up.MimeType)
		if err != nil {
			return filenames, err
		}

		base := slug.Make(trimExt(up.Filename))
		if base == "" {
			return filenames, fmt.Errorf("%w: %q", ErrInvalidName, up.Filename)
		}

		filename := strings.ToLower(base + "." + ext)
		if err := s.repo.WriteFile(path.Join(dir, filename), up.Content); err != nil {
			return filenames, fmt.Errorf("store document: %w", err)
		}

		filenames = append(filenames, filename)
	}

	return filenames, nil
}

func trimExt(name string) string {
	name = path.Base(name)
	if i := strings.LastIndexByte(name, '.'); i > 0 {
		return name[:i]
	}
	return name
}
