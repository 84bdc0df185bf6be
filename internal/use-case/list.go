package use_case

import (
	"path"
	"time"

	"github.com/a-d-w-s/assethub/internal/entities"
	"github.com/a-d-w-s/assethub/internal/layout"
)

// ListImages returns the main image of an entity (whether or not the
// file exists yet, so callers can build its URL either way) and,
// optionally, the gallery members in index order. Names refer to the
// primary configured format.
func (s *Service) ListImages(entityType string, id int64, withGallery bool) entities.ImageListing {
	shard := layout.Shard(id)
	dir := layout.EntityDir(entityType, id)

	main := entities.ImageInfo{File: layout.MainName(shard, s.image.Format)}
	if info, err := s.repo.Stat(path.Join(dir, main.File)); err == nil {
		t := info.ModTime()
		main.Time = &t
	}

	listing := entities.ImageListing{
		Path:    dir,
		Main:    main,
		Gallery: []entities.ImageInfo{},
	}

	if !withGallery {
		return listing
	}

	// Files() sorts lexically, which is index order for zero-padded
	// gallery names.
	for _, name := range s.repo.Files(dir) {
		g, ok := layout.ParseGallery(name)
		if !ok || g.Variant != "-original" || g.Ext != "."+s.image.Format {
			continue
		}

		var t *time.Time
		if info, err := s.repo.Stat(path.Join(dir, name)); err == nil {
			mt := info.ModTime()
			t = &mt
		}
		listing.Gallery = append(listing.Gallery, entities.ImageInfo{File: name, Time: t})
	}

	return listing
}

// ListFiles returns the documents stored for an entity with their
// sizes.
func (s *Service) ListFiles(entityType string, id int64) entities.FileListing {
	dir := layout.FilesDir(entityType, id)

	listing := entities.FileListing{
		Path: dir,
		Main: []entities.FileInfo{},
	}

	for _, name := range s.repo.Files(dir) {
		var size int64
		if info, err := s.repo.Stat(path.Join(dir, name)); err == nil {
			size = info.Size()
		}
		listing.Main = append(listing.Main, entities.FileInfo{File: name, Size: size})
	}

	return listing
}
