// Package image provides image loading, cropping, encoding and the MRZ
// frame preprocessor.
package image

import (
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"os"
	"path/filepath"
	"strings"

	"github.com/disintegration/imaging"

	"mrz-reader/pkg/geometry"

	_ "golang.org/x/image/tiff"
)

// Still is a still image loaded from disk, used as a camera frame substitute.
type Still struct {
	Path  string      // Original file path
	Image image.Image // Decoded image data
}

// Load loads an image from the specified path. EXIF orientation is applied
// so phone captures come out upright.
func Load(path string) (*Still, error) {
	if !IsSupportedFormat(path) {
		return nil, fmt.Errorf("unsupported image format: %s", filepath.Ext(path))
	}

	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open image: %w", err)
	}
	defer file.Close()

	img, err := imaging.Decode(file, imaging.AutoOrientation(true))
	if err != nil {
		return nil, fmt.Errorf("failed to decode image: %w", err)
	}

	return &Still{Path: path, Image: img}, nil
}

// Width returns the image width in pixels.
func (s *Still) Width() int {
	if s.Image == nil {
		return 0
	}
	return s.Image.Bounds().Dx()
}

// Height returns the image height in pixels.
func (s *Still) Height() int {
	if s.Image == nil {
		return 0
	}
	return s.Image.Bounds().Dy()
}

// Crop returns the part of img inside r, clamped to the image bounds. The
// result is re-based at the origin.
func Crop(img image.Image, r geometry.RectInt) *image.NRGBA {
	return imaging.Crop(img, r.ClampTo(img.Bounds()).ImageRect())
}

// SupportedFormats returns the list of supported image formats.
func SupportedFormats() []string {
	return []string{".tiff", ".tif", ".png", ".jpg", ".jpeg"}
}

// IsSupportedFormat checks if the given path has a supported image format.
func IsSupportedFormat(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	for _, format := range SupportedFormats() {
		if ext == format {
			return true
		}
	}
	return false
}
