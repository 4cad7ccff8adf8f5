// Package region isolates the MRZ band among the text rectangles detected
// on a document image.
package region

import (
	"errors"
	"fmt"
	"image"

	"mrz-reader/pkg/geometry"
)

// ErrNoTextRegion is returned when no plausible MRZ band exists.
var ErrNoTextRegion = errors.New("no MRZ text region")

// Default locator ratios.
const (
	DefaultMinWidthRatio  = 0.8
	DefaultMaxHeightRatio = 0.4
	DefaultMarginRatio    = 0.05
)

// Locator selects the MRZ band. MRZ lines are the widest text on a
// document, so only rectangles spanning most of the image width survive.
type Locator struct {
	MinWidthRatio  float64 // minimum rectangle width, fraction of image width
	MaxHeightRatio float64 // maximum band height, fraction of image height
	MarginRatio    float64 // display margin, fraction of band height
}

// NewLocator returns a Locator with the default ratios.
func NewLocator() *Locator {
	return &Locator{
		MinWidthRatio:  DefaultMinWidthRatio,
		MaxHeightRatio: DefaultMaxHeightRatio,
		MarginRatio:    DefaultMarginRatio,
	}
}

// Band is a located MRZ region in pixel coordinates of the document image.
type Band struct {
	Rect    geometry.RectInt // tight union of the MRZ lines, cropped for OCR
	Display geometry.RectInt // Rect plus margin, clamped; the outline reported to hosts
	Lines   int              // number of rectangles unioned
}

// Locate unions every rectangle at least MinWidthRatio of the image wide.
// The band is rejected when nothing qualifies or when the union is taller
// than MaxHeightRatio of the image, which happens when a long header line
// gets unioned with the MRZ.
func (l *Locator) Locate(rects []geometry.Rect, width, height int) (Band, error) {
	if width <= 0 || height <= 0 {
		return Band{}, fmt.Errorf("%w: empty image", ErrNoTextRegion)
	}
	minWidth := l.MinWidthRatio * float64(width)

	union := geometry.Rect{}
	n := 0
	for _, r := range rects {
		if r.Width < minWidth {
			continue
		}
		union = union.Union(r)
		n++
	}
	if n == 0 || union.IsEmpty() {
		return Band{}, fmt.Errorf("%w: no rectangle spans %.0f%% of the width",
			ErrNoTextRegion, l.MinWidthRatio*100)
	}
	if union.Height > l.MaxHeightRatio*float64(height) {
		return Band{}, fmt.Errorf("%w: band height %.0f exceeds %.0f%% of the image",
			ErrNoTextRegion, union.Height, l.MaxHeightRatio*100)
	}

	bounds := image.Rect(0, 0, width, height)
	tight := union.ToInt().ClampTo(bounds)
	if tight.Width <= 0 || tight.Height <= 0 {
		return Band{}, fmt.Errorf("%w: band outside the image", ErrNoTextRegion)
	}
	display := union.Expand(l.MarginRatio * union.Height).ToInt().ClampTo(bounds)

	return Band{Rect: tight, Display: display, Lines: n}, nil
}
