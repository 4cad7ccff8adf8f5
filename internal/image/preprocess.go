package image

import (
	"image"
	"image/color"
	"math"

	"github.com/disintegration/imaging"
	"gonum.org/v1/gonum/stat"

	"mrz-reader/pkg/colorutil"
)

// DefaultScale is the upscale factor applied before thresholding. MRZ glyphs
// are often around 15px tall in a raw frame, too small for Tesseract.
const DefaultScale = 2.0

// Preprocessor binarizes a cropped MRZ band for OCR.
type Preprocessor struct {
	Scale float64
}

// NewPreprocessor creates a Preprocessor with the given upscale factor.
// Factors below 1 fall back to DefaultScale.
func NewPreprocessor(scale float64) *Preprocessor {
	if scale < 1 {
		scale = DefaultScale
	}
	return &Preprocessor{Scale: scale}
}

// Prepared is a binarized band ready for OCR, dark text on white, together
// with the statistics that drove the adjustment.
type Prepared struct {
	Image     *image.Gray
	Luminance float64 // mean luminance of the input, [0,1]
	Contrast  float64 // luminance standard deviation of the input
	Exposure  float64 // exposure adjustment in stops
	Threshold float64 // binarization threshold on adjusted luminance
}

// ExposureFor returns the exposure adjustment, in stops, for a region of
// mean luminance l. Glare off laminate is pulled down, dim captures pushed up.
func ExposureFor(l float64) float64 {
	e := 0.5
	if l > 0.8 {
		e -= (l - 0.5) * 2
	}
	if l < 0.35 {
		e += math.Pow(2, 0.5-l)
	}
	return e
}

// ThresholdFor returns the binarization threshold for mean luminance l. It
// tightens in bright scenes and loosens in dark ones.
func ThresholdFor(l float64) float64 {
	return 1 - math.Pow(1-l, 0.2)
}

// Prepare applies exposure correction, upscaling and thresholding, in that
// order. It never fails; an empty input yields an empty image.
func (p *Preprocessor) Prepare(img image.Image) *Prepared {
	gray := imaging.Grayscale(img)
	b := gray.Bounds()
	if b.Empty() {
		return &Prepared{Image: image.NewGray(image.Rect(0, 0, 0, 0))}
	}

	samples := make([]float64, 0, b.Dx()*b.Dy())
	for y := 0; y < b.Dy(); y++ {
		row := gray.Pix[y*gray.Stride : y*gray.Stride+b.Dx()*4]
		for x := 0; x < len(row); x += 4 {
			samples = append(samples, float64(row[x])/255)
		}
	}
	mean, std := stat.MeanStdDev(samples, nil)
	if math.IsNaN(std) {
		std = 0
	}

	exposure := ExposureFor(mean)
	threshold := ThresholdFor(mean)
	gain := math.Pow(2, exposure)

	adjusted := imaging.AdjustFunc(gray, func(c color.NRGBA) color.NRGBA {
		v := colorutil.ToGray8(float64(c.R) / 255 * gain)
		return color.NRGBA{R: v, G: v, B: v, A: c.A}
	})

	scale := p.Scale
	if scale < 1 {
		scale = DefaultScale
	}
	w := int(math.Round(float64(b.Dx()) * scale))
	h := int(math.Round(float64(b.Dy()) * scale))
	upscaled := imaging.Resize(adjusted, w, h, imaging.Lanczos)

	out := image.NewGray(upscaled.Bounds())
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			i := upscaled.PixOffset(x, y)
			l := colorutil.LuminanceRGB(
				float64(upscaled.Pix[i])/255,
				float64(upscaled.Pix[i+1])/255,
				float64(upscaled.Pix[i+2])/255,
			)
			if l < threshold {
				out.SetGray(x, y, colorutil.Black)
			} else {
				out.SetGray(x, y, colorutil.White)
			}
		}
	}

	return &Prepared{
		Image:     out,
		Luminance: mean,
		Contrast:  std,
		Exposure:  exposure,
		Threshold: threshold,
	}
}
