package region

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mrz-reader/pkg/geometry"
)

func TestLocateUnionsOnlyWideRectangles(t *testing.T) {
	rects := []geometry.Rect{
		geometry.NewRect(10, 300, 950, 30), // 95%
		geometry.NewRect(100, 50, 200, 40), // 20%, header text
		geometry.NewRect(15, 340, 960, 30), // 96%
	}
	band, err := NewLocator().Locate(rects, 1000, 400)
	require.NoError(t, err)

	assert.Equal(t, geometry.RectInt{X: 10, Y: 300, Width: 965, Height: 70}, band.Rect)
	assert.Equal(t, 2, band.Lines)
}

func TestLocateDisplayMargin(t *testing.T) {
	rects := []geometry.Rect{geometry.NewRect(50, 200, 900, 100)}
	band, err := NewLocator().Locate(rects, 1000, 400)
	require.NoError(t, err)

	// 5% of the 100px band height on every side.
	assert.Equal(t, geometry.RectInt{X: 45, Y: 195, Width: 910, Height: 110}, band.Display)
}

func TestLocateClampsDisplayToImage(t *testing.T) {
	rects := []geometry.Rect{geometry.NewRect(0, 360, 1000, 40)}
	band, err := NewLocator().Locate(rects, 1000, 400)
	require.NoError(t, err)
	assert.Equal(t, geometry.RectInt{X: 0, Y: 358, Width: 1000, Height: 42}, band.Display)
}

func TestLocateRejects(t *testing.T) {
	tests := []struct {
		name  string
		rects []geometry.Rect
	}{
		{"no rectangles", nil},
		{"only narrow", []geometry.Rect{geometry.NewRect(0, 0, 500, 20)}},
		{"union too tall", []geometry.Rect{
			geometry.NewRect(0, 10, 900, 20),
			geometry.NewRect(0, 360, 900, 30),
		}},
		{"zero height", []geometry.Rect{geometry.NewRect(0, 10, 900, 0)}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewLocator().Locate(tt.rects, 1000, 400)
			assert.ErrorIs(t, err, ErrNoTextRegion)
		})
	}
}

func TestLocateHeightLimitIsInclusive(t *testing.T) {
	rects := []geometry.Rect{geometry.NewRect(0, 0, 1000, 160)}
	_, err := NewLocator().Locate(rects, 1000, 400)
	assert.NoError(t, err)
}

func TestLocateEmptyImage(t *testing.T) {
	_, err := NewLocator().Locate([]geometry.Rect{geometry.NewRect(0, 0, 10, 10)}, 0, 0)
	assert.ErrorIs(t, err, ErrNoTextRegion)
}
