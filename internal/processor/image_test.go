package processor

import (
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// writePNG stores a width x height test image. The top-left pixel is
// red, the rest blue, so mirror tests can track where pixels went.
func writePNG(t *testing.T, width, height int) string {
	t.Helper()

	img := image.NewNRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			img.Set(x, y, color.NRGBA{B: 255, A: 255})
		}
	}
	img.Set(0, 0, color.NRGBA{R: 255, A: 255})

	path := filepath.Join(t.TempDir(), "test.png")
	f, err := os.Create(path)
	require.NoError(t, err)
	require.NoError(t, png.Encode(f, img))
	require.NoError(t, f.Close())

	return path
}

func open(t *testing.T, width, height int) *Image {
	t.Helper()
	img, err := Open(writePNG(t, width, height))
	require.NoError(t, err)
	t.Cleanup(img.Close)
	return img
}

func TestOpenGeometry(t *testing.T) {
	img := open(t, 200, 100)

	assert.Equal(t, 200, img.Width())
	assert.Equal(t, 100, img.Height())
	assert.InDelta(t, 2.0, img.AspectRatio(), 1e-9)
	assert.Equal(t, Landscape, img.Orientation())
	assert.Equal(t, 0, img.ExifOrientation(), "png carries no exif")
}

func TestOrientationPortrait(t *testing.T) {
	assert.Equal(t, Portrait, open(t, 100, 200).Orientation())
	assert.Equal(t, Landscape, open(t, 100, 100).Orientation(), "square counts as landscape")
}

func TestOpenErrors(t *testing.T) {
	_, err := Open(filepath.Join(t.TempDir(), "missing.jpg"))
	assert.ErrorIs(t, err, ErrDecode)

	bad := filepath.Join(t.TempDir(), "bad.jpg")
	require.NoError(t, os.WriteFile(bad, []byte("not an image"), 0o644))
	_, err = Open(bad)
	assert.ErrorIs(t, err, ErrDecode)

	unknown := filepath.Join(t.TempDir(), "file.bmp")
	require.NoError(t, os.WriteFile(unknown, []byte("x"), 0o644))
	_, err = Open(unknown)
	assert.ErrorIs(t, err, ErrDecode)
}

func TestFlipX(t *testing.T) {
	img := open(t, 2, 1)

	require.NoError(t, img.Flip(FlipX))

	// The red marker moved from (0,0) to (1,0).
	r, _, _, _ := img.img.At(1, 0).RGBA()
	assert.NotZero(t, r)
	r, _, _, _ = img.img.At(0, 0).RGBA()
	assert.Zero(t, r)
}

func TestFlipY(t *testing.T) {
	img := open(t, 1, 2)

	require.NoError(t, img.Flip(FlipY))

	r, _, _, _ := img.img.At(0, 1).RGBA()
	assert.NotZero(t, r)
}

func TestFlipBadAxis(t *testing.T) {
	img := open(t, 2, 2)
	assert.ErrorIs(t, img.Flip("z"), ErrTransform)
}

func TestRotateSwapsDimensions(t *testing.T) {
	img := open(t, 200, 100)

	require.NoError(t, img.Rotate(90))
	assert.Equal(t, 100, img.Width())
	assert.Equal(t, 200, img.Height())

	require.NoError(t, img.Rotate(-90))
	assert.Equal(t, 200, img.Width())
	assert.Equal(t, 100, img.Height())
}

func TestRotateClockwise(t *testing.T) {
	img := open(t, 2, 1)

	// Red at (0,0); clockwise 90 sends the top-left to the top-right.
	require.NoError(t, img.Rotate(90))
	r, _, _, _ := img.img.At(0, 0).RGBA()
	assert.NotZero(t, r)
	r, _, _, _ = img.img.At(0, 1).RGBA()
	assert.Zero(t, r)
}

func TestRotateRejectsOddAngles(t *testing.T) {
	img := open(t, 2, 2)
	assert.ErrorIs(t, img.Rotate(45), ErrTransform)
	require.NoError(t, img.Rotate(360), "full turn is a no-op")
}

func TestAutoOrientTable(t *testing.T) {
	// Width/height after correcting a 200x100 source, per tag.
	want := map[int][2]int{
		0: {200, 100},
		1: {200, 100},
		2: {200, 100},
		3: {200, 100},
		4: {200, 100},
		5: {100, 200},
		6: {100, 200},
		7: {100, 200},
		8: {100, 200},
	}

	for tag, dims := range want {
		img := open(t, 200, 100)
		img.orientation = tag

		require.NoError(t, img.AutoOrient(), "tag %d", tag)
		assert.Equal(t, dims[0], img.Width(), "width for tag %d", tag)
		assert.Equal(t, dims[1], img.Height(), "height for tag %d", tag)
		img.Close()
	}
}

func TestResizeExact(t *testing.T) {
	img := open(t, 200, 100)

	require.NoError(t, img.Resize(64, 48))
	assert.Equal(t, 64, img.Width())
	assert.Equal(t, 48, img.Height())
}

func TestBestFitNoop(t *testing.T) {
	img := open(t, 50, 80)

	require.NoError(t, img.BestFit(100, 100))
	assert.Equal(t, 50, img.Width())
	assert.Equal(t, 80, img.Height())
}

func TestBestFitWidthConstrained(t *testing.T) {
	img := open(t, 400, 200)

	require.NoError(t, img.BestFit(100, 100))
	assert.Equal(t, 100, img.Width())
	assert.Equal(t, 50, img.Height())
}

func TestBestFitHeightFallback(t *testing.T) {
	img := open(t, 200, 400)

	// The width-constrained height (200) exceeds the box, so the
	// height-constrained width wins.
	require.NoError(t, img.BestFit(100, 100))
	assert.Equal(t, 50, img.Width())
	assert.Equal(t, 100, img.Height())
}

func TestSaveRoundTrip(t *testing.T) {
	img := open(t, 20, 10)

	for _, name := range []string{"out.png", "out.jpg", "out.gif"} {
		out := filepath.Join(t.TempDir(), name)
		require.NoError(t, img.Save(out, 90))

		saved, err := Open(out)
		require.NoError(t, err)
		assert.Equal(t, 20, saved.Width())
		assert.Equal(t, 10, saved.Height())
		saved.Close()
	}
}

func TestSaveUnsupportedFormat(t *testing.T) {
	img := open(t, 2, 2)

	out := filepath.Join(t.TempDir(), "out.bmp")
	assert.ErrorIs(t, img.Save(out, 90), ErrEncode)

	_, err := os.Stat(out)
	assert.True(t, os.IsNotExist(err), "no partial file is left behind")
}

func TestClosedImage(t *testing.T) {
	img := open(t, 2, 2)
	img.Close()

	assert.ErrorIs(t, img.Flip(FlipX), ErrTransform)
	assert.ErrorIs(t, img.Rotate(90), ErrTransform)
	assert.ErrorIs(t, img.Resize(1, 1), ErrTransform)
	assert.ErrorIs(t, img.Save(filepath.Join(t.TempDir(), "x.png"), 90), ErrTransform)
}
