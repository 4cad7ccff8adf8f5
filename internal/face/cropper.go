// Package face crops the holder portrait from a document image. The crop is
// cosmetic; scanning never depends on it.
package face

import (
	"context"
	"fmt"
	"image"
	"sync"

	"gocv.io/x/gocv"

	mrzimage "mrz-reader/internal/image"
	"mrz-reader/internal/textdetect"
	"mrz-reader/pkg/geometry"
)

// Portrait margins around a detected face, in pixels. Detectors box the
// face tightly; the document portrait also shows hair and shoulders.
const (
	marginX = 30
	marginY = 85
	shiftY  = -50
)

// ExpandFaceBounds grows a detected face box to the portrait area.
func ExpandFaceBounds(r geometry.Rect) geometry.Rect {
	return r.Inset(-marginX, -marginY).Offset(0, shiftY)
}

// Cropper detects faces with a Haar cascade.
type Cropper struct {
	mu         sync.Mutex
	classifier gocv.CascadeClassifier
}

// NewCropper loads the cascade at path, e.g.
// haarcascade_frontalface_default.xml from the OpenCV data directory.
func NewCropper(path string) (*Cropper, error) {
	classifier := gocv.NewCascadeClassifier()
	if !classifier.Load(path) {
		classifier.Close()
		return nil, fmt.Errorf("failed to load face cascade %q", path)
	}
	return &Cropper{classifier: classifier}, nil
}

// Close releases the classifier.
func (c *Cropper) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.classifier.Close()
}

// Crop returns the portrait around the largest face in img, or nil when no
// face is found.
func (c *Cropper) Crop(ctx context.Context, img image.Image) (image.Image, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if img.Bounds().Empty() {
		return nil, nil
	}

	gray := textdetect.GrayMat(img)
	defer gray.Close()

	c.mu.Lock()
	faces := c.classifier.DetectMultiScale(gray)
	c.mu.Unlock()

	best, ok := largest(faces)
	if !ok {
		return nil, nil
	}
	box := ExpandFaceBounds(geometry.FromImageRect(best.Add(img.Bounds().Min)))
	crop := box.ToInt().ClampTo(img.Bounds())
	if crop.Width <= 0 || crop.Height <= 0 {
		return nil, nil
	}
	return mrzimage.Crop(img, crop), nil
}

func largest(rects []image.Rectangle) (image.Rectangle, bool) {
	var best image.Rectangle
	found := false
	for _, r := range rects {
		if !found || r.Dx()*r.Dy() > best.Dx()*best.Dy() {
			best, found = r, true
		}
	}
	return best, found
}
