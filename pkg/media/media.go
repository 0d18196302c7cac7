// Package media stages uploaded images for the post composer. The
// target UI rejects oversized uploads and some source formats, so
// every image is decoded, scaled down to the configured width when
// needed, and re-encoded as JPEG into the work directory.
package media

import (
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"os"
	"path/filepath"

	"github.com/disintegration/imaging"
	"github.com/google/uuid"

	"github.com/winkey1/fbbot/pkg/config"
)

// Processor normalizes uploads into postable JPEG files.
type Processor struct {
	workDir  string
	maxWidth int
	quality  int
}

// NewProcessor creates the work directory if needed.
func NewProcessor(cfg config.MediaConfig) (*Processor, error) {
	if err := os.MkdirAll(cfg.WorkDir, 0750); err != nil {
		return nil, fmt.Errorf("failed to create media work directory: %w", err)
	}
	return &Processor{
		workDir:  cfg.WorkDir,
		maxWidth: cfg.MaxWidth,
		quality:  cfg.JPEGQuality,
	}, nil
}

// Stage decodes the upload, scales it down proportionally if it is
// wider than the configured maximum, and writes it as a JPEG under a
// fresh name. Returns the staged file's path.
func (p *Processor) Stage(r io.Reader) (string, error) {
	img, _, err := image.Decode(r)
	if err != nil {
		return "", fmt.Errorf("unsupported or corrupt image: %w", err)
	}

	if p.maxWidth > 0 && img.Bounds().Dx() > p.maxWidth {
		img = imaging.Resize(img, p.maxWidth, 0, imaging.Lanczos)
	}

	path := filepath.Join(p.workDir, uuid.New().String()+".jpg")
	out, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("failed to create staged file: %w", err)
	}
	defer out.Close()

	if err := imaging.Encode(out, img, imaging.JPEG, imaging.JPEGQuality(p.quality)); err != nil {
		os.Remove(path)
		return "", fmt.Errorf("failed to encode image: %w", err)
	}
	return path, nil
}

// Discard removes a staged file once its job no longer needs it.
// Missing files are not an error.
func (p *Processor) Discard(path string) {
	if path == "" {
		return
	}
	_ = os.Remove(path)
}
