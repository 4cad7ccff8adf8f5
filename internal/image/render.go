package image

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"image"
	"image/color"
	"image/draw"

	"github.com/disintegration/imaging"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
)

// RenderLines draws text lines in a fixed-pitch font, black on white, and
// upscales the result by scale. It produces synthetic MRZ frames for tests
// and the generate command.
func RenderLines(lines []string, scale int) *image.NRGBA {
	if scale < 1 {
		scale = 1
	}
	face := basicfont.Face7x13
	const margin = 8

	cols := 0
	for _, line := range lines {
		cols = max(cols, len(line))
	}
	lineHeight := face.Height + 4
	w := cols*face.Advance + 2*margin
	h := len(lines)*lineHeight + 2*margin

	canvas := image.NewNRGBA(image.Rect(0, 0, w, h))
	draw.Draw(canvas, canvas.Bounds(), image.NewUniform(color.White), image.Point{}, draw.Src)

	d := &font.Drawer{
		Dst:  canvas,
		Src:  image.NewUniform(color.Black),
		Face: face,
	}
	for i, line := range lines {
		d.Dot = fixed.P(margin, margin+i*lineHeight+face.Ascent)
		d.DrawString(line)
	}

	if scale == 1 {
		return canvas
	}
	return imaging.Resize(canvas, w*scale, h*scale, imaging.NearestNeighbor)
}

// EncodeBase64 encodes img as a base64 string in the given format. JPEG is
// written at quality 100.
func EncodeBase64(img image.Image, format imaging.Format) (string, error) {
	var buf bytes.Buffer
	if err := imaging.Encode(&buf, img, format, imaging.JPEGQuality(100)); err != nil {
		return "", fmt.Errorf("failed to encode image: %w", err)
	}
	return base64.StdEncoding.EncodeToString(buf.Bytes()), nil
}

// EncodePNG encodes img as PNG bytes.
func EncodePNG(img image.Image) ([]byte, error) {
	var buf bytes.Buffer
	if err := imaging.Encode(&buf, img, imaging.PNG); err != nil {
		return nil, fmt.Errorf("failed to encode image: %w", err)
	}
	return buf.Bytes(), nil
}
