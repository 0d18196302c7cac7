package media

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/disintegration/imaging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/winkey1/fbbot/pkg/config"
)

func newTestProcessor(t *testing.T, maxWidth int) *Processor {
	t.Helper()
	p, err := NewProcessor(config.MediaConfig{
		WorkDir:     t.TempDir(),
		MaxWidth:    maxWidth,
		JPEGQuality: 85,
	})
	require.NoError(t, err)
	return p
}

// pngImage renders a solid PNG of the given size into a buffer.
func pngImage(t *testing.T, width, height int) *bytes.Buffer {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for x := 0; x < width; x++ {
		for y := 0; y < height; y++ {
			img.Set(x, y, color.RGBA{R: 200, G: 120, B: 40, A: 255})
		}
	}
	buf := &bytes.Buffer{}
	require.NoError(t, png.Encode(buf, img))
	return buf
}

func TestStageReencodesAsJPEG(t *testing.T) {
	p := newTestProcessor(t, 1920)

	path, err := p.Stage(pngImage(t, 100, 60))
	require.NoError(t, err)

	assert.True(t, strings.HasSuffix(path, ".jpg"))
	assert.Equal(t, p.workDir, filepath.Dir(path))

	staged, err := imaging.Open(path)
	require.NoError(t, err)
	assert.Equal(t, 100, staged.Bounds().Dx())
	assert.Equal(t, 60, staged.Bounds().Dy())
}

func TestStageScalesDownWideImages(t *testing.T) {
	p := newTestProcessor(t, 50)

	path, err := p.Stage(pngImage(t, 100, 60))
	require.NoError(t, err)

	staged, err := imaging.Open(path)
	require.NoError(t, err)
	assert.Equal(t, 50, staged.Bounds().Dx())
	assert.Equal(t, 30, staged.Bounds().Dy(), "aspect ratio is preserved")
}

func TestStageLeavesNarrowImagesAlone(t *testing.T) {
	p := newTestProcessor(t, 1920)

	path, err := p.Stage(pngImage(t, 640, 480))
	require.NoError(t, err)

	staged, err := imaging.Open(path)
	require.NoError(t, err)
	assert.Equal(t, 640, staged.Bounds().Dx())
}

func TestStageUniquePaths(t *testing.T) {
	p := newTestProcessor(t, 1920)

	first, err := p.Stage(pngImage(t, 10, 10))
	require.NoError(t, err)
	second, err := p.Stage(pngImage(t, 10, 10))
	require.NoError(t, err)

	assert.NotEqual(t, first, second)
}

func TestStageRejectsGarbage(t *testing.T) {
	p := newTestProcessor(t, 1920)

	_, err := p.Stage(strings.NewReader("this is not an image"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported or corrupt image")
}

func TestDiscard(t *testing.T) {
	p := newTestProcessor(t, 1920)

	path, err := p.Stage(pngImage(t, 10, 10))
	require.NoError(t, err)

	p.Discard(path)
	_, statErr := os.Stat(path)
	assert.True(t, os.IsNotExist(statErr))

	// Discarding again, or discarding nothing, is harmless.
	p.Discard(path)
	p.Discard("")
}
