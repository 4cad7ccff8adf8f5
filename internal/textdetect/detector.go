// Package textdetect finds text-line rectangles with OpenCV. MRZ lines are
// dense rows of dark glyphs on a light background; a blackhat transform
// isolates them, a horizontal gradient and closing merge each line into a
// single blob, and the blobs' bounding boxes are reported.
package textdetect

import (
	"context"
	"image"

	"gocv.io/x/gocv"

	"mrz-reader/pkg/colorutil"
	"mrz-reader/pkg/geometry"
)

// Options tunes the detector.
type Options struct {
	// KernelWidthRatio sets the closing kernel width as a fraction of the
	// image width. It must bridge the gap between glyphs of one line.
	KernelWidthRatio float64
	// KernelHeight is the closing kernel height in pixels. Keep it below the
	// line spacing so adjacent lines stay separate.
	KernelHeight int
	// MinAspect drops blobs that are not clearly wider than tall.
	MinAspect float64
	// MinHeight drops specks, in pixels.
	MinHeight int
}

// DefaultOptions returns options suited to document crops of a few hundred
// to a few thousand pixels wide.
func DefaultOptions() Options {
	return Options{
		KernelWidthRatio: 1.0 / 40,
		KernelHeight:     3,
		MinAspect:        4,
		MinHeight:        4,
	}
}

// Detector implements the text-rectangle detector collaborator.
type Detector struct {
	opts Options
}

// New creates a Detector.
func New(opts Options) *Detector {
	return &Detector{opts: opts}
}

// Detect returns the bounding boxes of text lines in img, in img's
// coordinates.
func (d *Detector) Detect(ctx context.Context, img image.Image) ([]geometry.Rect, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	b := img.Bounds()
	if b.Empty() {
		return nil, nil
	}

	gray := GrayMat(img)
	defer gray.Close()

	mask := d.lineMask(gray)
	defer mask.Close()

	contours := gocv.FindContours(mask, gocv.RetrievalExternal, gocv.ChainApproxSimple)
	defer contours.Close()

	var rects []geometry.Rect
	for i := 0; i < contours.Size(); i++ {
		r := gocv.BoundingRect(contours.At(i))
		if r.Dy() < d.opts.MinHeight {
			continue
		}
		if float64(r.Dx()) < d.opts.MinAspect*float64(r.Dy()) {
			continue
		}
		rects = append(rects, geometry.FromImageRect(r.Add(b.Min)))
	}
	return rects, nil
}

// lineMask produces a binary mask where each text line is one white blob.
func (d *Detector) lineMask(gray gocv.Mat) gocv.Mat {
	kw := int(float64(gray.Cols()) * d.opts.KernelWidthRatio)
	kw = max(kw, 9)
	kh := max(d.opts.KernelHeight, 1)

	blurred := gocv.NewMat()
	defer blurred.Close()
	gocv.GaussianBlur(gray, &blurred, image.Point{3, 3}, 0, 0, gocv.BorderDefault)

	// Blackhat keeps dark details smaller than the kernel: the glyphs.
	rectKernel := gocv.GetStructuringElement(gocv.MorphRect, image.Point{kw, kw / 2})
	defer rectKernel.Close()
	blackhat := gocv.NewMat()
	defer blackhat.Close()
	gocv.MorphologyEx(blurred, &blackhat, gocv.MorphBlackhat, rectKernel)

	grad := gocv.NewMat()
	defer grad.Close()
	gocv.Sobel(blackhat, &grad, gocv.MatTypeCV32F, 1, 0, -1, 1, 0, gocv.BorderDefault)
	gradAbs := gocv.NewMat()
	defer gradAbs.Close()
	gocv.ConvertScaleAbs(grad, &gradAbs, 1, 0)

	lineKernel := gocv.GetStructuringElement(gocv.MorphRect, image.Point{kw, kh})
	defer lineKernel.Close()
	gocv.MorphologyEx(gradAbs, &gradAbs, gocv.MorphClose, lineKernel)

	mask := gocv.NewMat()
	gocv.Threshold(gradAbs, &mask, 0, 255, gocv.ThresholdBinary|gocv.ThresholdOtsu)

	// Close small gaps, then remove noise
	gocv.MorphologyEx(mask, &mask, gocv.MorphClose, lineKernel)
	speck := gocv.GetStructuringElement(gocv.MorphRect, image.Point{3, 3})
	defer speck.Close()
	gocv.MorphologyEx(mask, &mask, gocv.MorphOpen, speck)

	return mask
}

// GrayMat converts a Go image to a single-channel 8-bit Mat.
func GrayMat(img image.Image) gocv.Mat {
	bounds := img.Bounds()
	w, h := bounds.Dx(), bounds.Dy()

	mat := gocv.NewMatWithSize(h, w, gocv.MatTypeCV8U)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			l := colorutil.Luminance(img.At(bounds.Min.X+x, bounds.Min.Y+y))
			mat.SetUCharAt(y, x, colorutil.ToGray8(l))
		}
	}
	return mat
}
