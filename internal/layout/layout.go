// Package layout owns the on-disk naming scheme for entity assets.
// Both directions of the scheme live here: building filenames and
// recovering structure (role, gallery index, variant, extension) by
// parsing them. Nothing else in the codebase duplicates the patterns.
package layout

import (
	"fmt"
	"path"
	"regexp"
	"strconv"
)

// ShardWidth is the zero-padded width of an entity folder name.
const ShardWidth = 6

// GalleryIndexWidth is the zero-padded width of a gallery index.
const GalleryIndexWidth = 3

var (
	galleryRe      = regexp.MustCompile(`^(.*-gallery-)(\d{3})(-.*)?(\.\w+)$`)
	galleryIndexRe = regexp.MustCompile(`-gallery-(\d+)-original\.`)
	extRe          = regexp.MustCompile(`\.\w+$`)
)

// Shard converts an entity ID to its folder name, zero-left-padded to
// at least ShardWidth digits. Wider IDs keep all their digits.
func Shard(id int64) string {
	return fmt.Sprintf("%0*d", ShardWidth, id)
}

// EntityDir returns the relative folder path for an entity.
func EntityDir(entityType string, id int64) string {
	return path.Join(entityType, Shard(id))
}

// FilesDir returns the relative document subfolder for an entity.
func FilesDir(entityType string, id int64) string {
	return path.Join(EntityDir(entityType, id), "files")
}

// MainName returns the filename of the main image original or one of
// its derivatives, depending on ext.
func MainName(shard, ext string) string {
	return fmt.Sprintf("%s-main-original.%s", shard, ext)
}

// MainPrefix returns the filename prefix shared by a main image and
// all its derivatives.
func MainPrefix(shard string) string {
	return shard + "-main-"
}

// GalleryName returns the filename of a gallery original or derivative
// at the given index.
func GalleryName(shard string, index int, ext string) string {
	return fmt.Sprintf("%s-gallery-%0*d-original.%s", shard, GalleryIndexWidth, index, ext)
}

// GalleryFile is a parsed gallery filename.
type GalleryFile struct {
	Prefix  string // everything up to and including "-gallery-"
	Index   int
	Variant string // optional size-variant segment, leading dash included
	Ext     string // extension, leading dot included
}

// Name rebuilds the filename, optionally with a replacement index.
func (g GalleryFile) Name(index int) string {
	return fmt.Sprintf("%s%0*d%s%s", g.Prefix, GalleryIndexWidth, index, g.Variant, g.Ext)
}

// ParseGallery splits a gallery filename into its parts. The second
// return value is false if the name does not match the gallery scheme.
func ParseGallery(name string) (GalleryFile, bool) {
	m := galleryRe.FindStringSubmatch(name)
	if m == nil {
		return GalleryFile{}, false
	}

	index, err := strconv.Atoi(m[2])
	if err != nil {
		return GalleryFile{}, false
	}

	return GalleryFile{
		Prefix:  m[1],
		Index:   index,
		Variant: m[3],
		Ext:     m[4],
	}, true
}

// IsGallery reports whether a filename belongs to a gallery member.
func IsGallery(name string) bool {
	return galleryRe.MatchString(name)
}

// GalleryIndex extracts the numeric index from a gallery original
// filename. Returns 0 and false for names outside the scheme.
func GalleryIndex(name string) (int, bool) {
	m := galleryIndexRe.FindStringSubmatch(name)
	if m == nil {
		return 0, false
	}

	index, err := strconv.Atoi(m[1])
	if err != nil {
		return 0, false
	}

	return index, true
}

// ReplaceExt swaps the trailing extension of a filename for ext (no
// leading dot). Names without an extension are returned unchanged.
func ReplaceExt(name, ext string) string {
	if !extRe.MatchString(name) {
		return name
	}
	return extRe.ReplaceAllString(name, "."+ext)
}
