package scanner

import (
	"image"

	"mrz-reader/pkg/geometry"
)

// Orientation is the capture orientation of a frame.
type Orientation int

const (
	OrientationLandscape Orientation = iota
	OrientationPortrait
)

func (o Orientation) String() string {
	if o == OrientationPortrait {
		return "portrait"
	}
	return "landscape"
}

// Frame is one captured camera frame. ROI is the cutout the document is
// framed in, normalized to [0,1] in the capture device's landscape
// coordinate space; a zero ROI selects the whole frame.
type Frame struct {
	ID          string
	Image       image.Image
	ROI         geometry.Rect
	Orientation Orientation
}

// DocumentRect converts the ROI to pixel coordinates of the frame image. In
// portrait orientation the capture axes are swapped relative to the image.
func (f Frame) DocumentRect() geometry.Rect {
	b := f.Image.Bounds()
	w, h := float64(b.Dx()), float64(b.Dy())
	roi := f.ROI
	if roi.IsEmpty() {
		return geometry.FromImageRect(b)
	}

	var r geometry.Rect
	if f.Orientation == OrientationPortrait {
		r = geometry.NewRect(roi.Y*w, roi.X*h, roi.Height*w, roi.Width*h)
	} else {
		r = geometry.NewRect(roi.X*w, roi.Y*h, roi.Width*w, roi.Height*h)
	}
	return r.Offset(float64(b.Min.X), float64(b.Min.Y))
}

// EnlargedDocumentRect is DocumentRect grown by marginRatio of its height
// on every side, for the human-viewable document image.
func (f Frame) EnlargedDocumentRect(marginRatio float64) geometry.Rect {
	r := f.DocumentRect()
	return r.Expand(marginRatio * r.Height)
}
