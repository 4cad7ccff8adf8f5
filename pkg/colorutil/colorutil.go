// Package colorutil provides the luminance helpers used by the preprocessor.
package colorutil

import (
	"image/color"
)

// Canonical binarized output colors.
var (
	Black = color.Gray{Y: 0}
	White = color.Gray{Y: 255}
)

// Luminance returns the Rec. 601 luma of c in [0,1].
func Luminance(c color.Color) float64 {
	r, g, b, _ := c.RGBA()
	return LuminanceRGB(float64(r)/65535.0, float64(g)/65535.0, float64(b)/65535.0)
}

// LuminanceRGB returns the Rec. 601 luma of normalized RGB components.
func LuminanceRGB(r, g, b float64) float64 {
	return 0.299*r + 0.587*g + 0.114*b
}

// ToGray8 converts a luminance in [0,1] to an 8-bit gray value, clamping.
func ToGray8(l float64) uint8 {
	switch {
	case l <= 0:
		return 0
	case l >= 1:
		return 255
	}
	return uint8(l*255 + 0.5)
}
