// Package processor is the image transform engine: it decodes a
// raster file, answers geometry queries, corrects EXIF orientation
// and writes size-bounded derivatives in the configured formats.
package processor

import (
	"errors"
	"fmt"
	"image"
	"image/gif"
	"image/jpeg"
	"image/png"
	"math"
	"os"
	"path/filepath"
	"strings"

	"github.com/chai2010/webp"
	"github.com/disintegration/imaging"
	"github.com/rwcarlsen/goexif/exif"
)

var (
	// ErrDecode marks an unreadable, corrupt or unsupported source.
	ErrDecode = errors.New("image decode failed")
	// ErrEncode marks an unsupported destination format or a codec
	// write failure.
	ErrEncode = errors.New("image encode failed")
	// ErrTransform marks an invalid transform request, including use
	// of a closed image.
	ErrTransform = errors.New("image transform failed")
)

// Flip axes.
const (
	FlipX = "x"
	FlipY = "y"
)

// Orientation values.
const (
	Landscape = "landscape"
	Portrait  = "portrait"
)

// Image holds one decoded raster plus the EXIF orientation tag read at
// load time. Close releases the pixel buffer; instances are not safe
// for concurrent use.
type Image struct {
	img         image.Image
	width       int
	height      int
	orientation int
}

// Open decodes the file at path. The codec is chosen by extension
// (jpg, jpeg, png, gif, webp). For JPEG sources the EXIF orientation
// tag is read as well; EXIF read errors are swallowed, other formats
// never carry a tag.
func Open(path string) (*Image, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrDecode, path, err)
	}
	defer f.Close()

	var img image.Image
	ext := strings.ToLower(filepath.Ext(path))
	switch ext {
	case ".jpg", ".jpeg":
		img, err = jpeg.Decode(f)
	case ".png":
		img, err = png.Decode(f)
	case ".gif":
		img, err = gif.Decode(f)
	case ".webp":
		img, err = webp.Decode(f)
	default:
		return nil, fmt.Errorf("%w: unsupported image type %q", ErrDecode, ext)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrDecode, path, err)
	}

	i := &Image{
		img:    img,
		width:  img.Bounds().Dx(),
		height: img.Bounds().Dy(),
	}
	if ext == ".jpg" || ext == ".jpeg" {
		i.orientation = readExifOrientation(path)
	}

	return i, nil
}

// readExifOrientation returns the EXIF orientation tag (1..8) of a
// JPEG file, or 0 when the tag is absent or unreadable. EXIF problems
// never fail the pipeline.
func readExifOrientation(path string) int {
	f, err := os.Open(path)
	if err != nil {
		return 0
	}
	defer f.Close()

	meta, err := exif.Decode(f)
	if err != nil {
		return 0
	}

	tag, err := meta.Get(exif.Orientation)
	if err != nil {
		return 0
	}

	v, err := tag.Int(0)
	if err != nil || v < 1 || v > 8 {
		return 0
	}

	return v
}

func (i *Image) Width() int  { return i.width }
func (i *Image) Height() int { return i.height }

// AspectRatio returns width divided by height.
func (i *Image) AspectRatio() float64 {
	return float64(i.width) / float64(i.height)
}

// Orientation reports Landscape when width >= height, else Portrait.
func (i *Image) Orientation() string {
	if i.width >= i.height {
		return Landscape
	}
	return Portrait
}

// ExifOrientation returns the orientation tag read at load time, or 0
// when the source carried none.
func (i *Image) ExifOrientation() int {
	return i.orientation
}

// AutoOrient applies the flip/rotate sequence dictated by the EXIF
// orientation tag so the pixels end up upright. Tag 1 or no tag is a
// no-op.
func (i *Image) AutoOrient() error {
	switch i.orientation {
	case 2:
		return i.Flip(FlipX)
	case 3:
		return i.Rotate(180)
	case 4:
		return i.Flip(FlipY)
	case 5:
		if err := i.Flip(FlipY); err != nil {
			return err
		}
		return i.Rotate(90)
	case 6:
		return i.Rotate(90)
	case 7:
		if err := i.Flip(FlipX); err != nil {
			return err
		}
		return i.Rotate(90)
	case 8:
		return i.Rotate(-90)
	}

	return nil
}

// Flip mirrors the image along the given axis: FlipX across the
// vertical axis, FlipY across the horizontal one.
func (i *Image) Flip(axis string) error {
	if i.img == nil {
		return fmt.Errorf("%w: image already closed", ErrTransform)
	}

	switch axis {
	case FlipX:
		i.img = imaging.FlipH(i.img)
	case FlipY:
		i.img = imaging.FlipV(i.img)
	default:
		return fmt.Errorf("%w: unknown flip axis %q", ErrTransform, axis)
	}

	return nil
}

// Rotate turns the image by a multiple of 90 degrees, clockwise
// positive, and updates the dimensions to the new bounding box.
func (i *Image) Rotate(degrees int) error {
	if i.img == nil {
		return fmt.Errorf("%w: image already closed", ErrTransform)
	}

	switch ((degrees % 360) + 360) % 360 {
	case 0:
	case 90:
		// imaging rotates counter-clockwise, so clockwise 90 is its 270.
		i.img = imaging.Rotate270(i.img)
	case 180:
		i.img = imaging.Rotate180(i.img)
	case 270:
		i.img = imaging.Rotate90(i.img)
	default:
		return fmt.Errorf("%w: rotation must be a multiple of 90, got %d", ErrTransform, degrees)
	}

	i.width = i.img.Bounds().Dx()
	i.height = i.img.Bounds().Dy()

	return nil
}

// Resize resamples the image to exactly width x height with a Lanczos
// filter. The destination buffer stores alpha unblended, so
// transparency survives where the target codec supports it.
func (i *Image) Resize(width, height int) error {
	if i.img == nil {
		return fmt.Errorf("%w: image already closed", ErrTransform)
	}

	if width < 1 {
		width = 1
	}
	if height < 1 {
		height = 1
	}

	i.img = imaging.Resize(i.img, width, height, imaging.Lanczos)
	i.width = width
	i.height = height

	return nil
}

// BestFit shrinks the image proportionally so it fits within
// maxWidth x maxHeight. Images already inside the box are left alone.
// The width-constrained size is tried first; if its height still
// exceeds the box the height-constrained size is used instead.
func (i *Image) BestFit(maxWidth, maxHeight int) error {
	if i.width <= maxWidth && i.height <= maxHeight {
		return nil
	}

	ratio := i.AspectRatio()
	width := maxWidth
	height := int(math.Round(float64(maxWidth) / ratio))
	if height > maxHeight {
		height = maxHeight
		width = int(math.Round(float64(maxHeight) * ratio))
	}

	return i.Resize(width, height)
}

// Save encodes the image to path, choosing the codec from the
// destination extension (jpg, jpeg, png, gif, webp). Quality applies
// to lossy formats and is ignored elsewhere.
func (i *Image) Save(path string, quality int) error {
	if i.img == nil {
		return fmt.Errorf("%w: image already closed", ErrTransform)
	}

	ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(path), "."))

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("%w: %s: %v", ErrEncode, path, err)
	}

	switch ext {
	case "jpg", "jpeg":
		err = jpeg.Encode(f, i.img, &jpeg.Options{Quality: quality})
	case "png":
		err = png.Encode(f, i.img)
	case "gif":
		err = gif.Encode(f, i.img, nil)
	case "webp":
		err = webp.Encode(f, i.img, &webp.Options{Quality: float32(quality)})
	default:
		f.Close()
		os.Remove(path)
		return fmt.Errorf("%w: unsupported save format %q", ErrEncode, ext)
	}

	if err != nil {
		f.Close()
		os.Remove(path)
		return fmt.Errorf("%w: %s: %v", ErrEncode, path, err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("%w: %s: %v", ErrEncode, path, err)
	}

	return nil
}

// Close releases the decoded buffer. The engine processes whole
// batches of derivatives, so buffers are dropped eagerly instead of
// waiting for the collector.
func (i *Image) Close() {
	i.img = nil
}
