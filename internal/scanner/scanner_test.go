package scanner

import (
	"context"
	"encoding/base64"
	"errors"
	"image"
	"image/color"
	"image/draw"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	mrzimage "mrz-reader/internal/image"
	"mrz-reader/internal/mrz"
	"mrz-reader/pkg/geometry"
)

var td3 = []string{
	"P<UTOERIKSSON<<ANNA<MARIA<<<<<<<<<<<<<<<<<<<",
	"L898902C36UTO7408122F1204159ZE184226B<<<<<10",
}

// documentWithMRZ renders the lines near the bottom of a white 700x400
// document and returns it with the rectangle a detector would report.
func documentWithMRZ(lines []string) (*image.NRGBA, geometry.Rect) {
	doc := image.NewNRGBA(image.Rect(0, 0, 700, 400))
	draw.Draw(doc, doc.Bounds(), image.NewUniform(color.White), image.Point{}, draw.Src)
	mrzImg := mrzimage.RenderLines(lines, 2)
	at := image.Pt(26, 280)
	draw.Draw(doc, mrzImg.Bounds().Add(at), mrzImg, image.Point{}, draw.Src)
	return doc, geometry.FromImageRect(mrzImg.Bounds().Add(at))
}

func fixedDetector(rects ...geometry.Rect) TextDetector {
	return DetectorFunc(func(context.Context, image.Image) ([]geometry.Rect, error) {
		return rects, nil
	})
}

func fixedText(text string) Recognizer {
	return RecognizerFunc(func(context.Context, image.Image) (string, error) {
		return text, nil
	})
}

func testParser() *mrz.Parser {
	return mrz.NewParser(mrz.WithClock(func() time.Time {
		return time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	}))
}

type fakeFace struct {
	img image.Image
	err error
}

func (f fakeFace) Crop(context.Context, image.Image) (image.Image, error) { return f.img, f.err }

func TestScanEndToEnd(t *testing.T) {
	doc, band := documentWithMRZ(td3)

	var ocrInput image.Image
	recognizer := RecognizerFunc(func(_ context.Context, img image.Image) (string, error) {
		ocrInput = img
		return strings.Join(td3, "\n") + "\n", nil
	})

	s := New(fixedDetector(band), recognizer, Options{Parser: testParser()})
	out, err := s.Scan(context.Background(), Frame{ID: "f1", Image: doc})
	require.NoError(t, err)

	res := out.Result
	assert.True(t, res.AllCheckDigitsValid)
	assert.Equal(t, mrz.FormatTD3, res.Format)
	assert.Equal(t, "ERIKSSON", res.Surnames)
	assert.Equal(t, "ANNA MARIA", res.GivenNames)
	assert.Equal(t, "L898902C3", res.DocumentNumber)
	assert.Equal(t, "ZE184226B", res.PersonalNumber)

	// The OCR input is the binarized band, upscaled twice.
	require.NotNil(t, ocrInput)
	assert.Equal(t, 2*int(band.Width), ocrInput.Bounds().Dx())
	assert.Equal(t, 2*int(band.Height), ocrInput.Bounds().Dy())
	gray, ok := ocrInput.(*image.Gray)
	require.True(t, ok)
	for _, v := range gray.Pix {
		require.True(t, v == 0 || v == 255)
	}

	assert.Nil(t, out.FaceImage)
	assert.NotNil(t, out.DocumentImage)
}

// normalizedBox expresses a pixel rect of a w x h image in bottom-left
// normalized coordinates.
func normalizedBox(r geometry.Rect, w, h float64) geometry.Rect {
	return geometry.NewRect(r.X/w, (h-r.MaxY())/h, r.Width/w, r.Height/h)
}

func TestScanWithNormalizedDetector(t *testing.T) {
	doc, band := documentWithMRZ(td3)
	normalized := fixedDetector(normalizedBox(band, 700, 400))

	s := New(NormalizedDetector{Detector: normalized}, fixedText(strings.Join(td3, "\n")),
		Options{Parser: testParser()})
	out, err := s.Scan(context.Background(), Frame{Image: doc})
	require.NoError(t, err)
	assert.True(t, out.Result.AllCheckDigitsValid)

	got := out.Band.Rect
	assert.InDelta(t, band.X, float64(got.X), 1)
	assert.InDelta(t, band.Y, float64(got.Y), 1)
	assert.InDelta(t, band.Width, float64(got.Width), 2)
	assert.InDelta(t, band.Height, float64(got.Height), 2)
}

func TestNormalizedDetectorClipsToImage(t *testing.T) {
	img := image.NewNRGBA(image.Rect(0, 0, 200, 100))
	d := NormalizedDetector{Detector: fixedDetector(
		geometry.NewRect(0.5, 0.5, 0.75, 0.25), // spills past the right edge
		geometry.NewRect(1.5, 0, 0.5, 0.5),     // entirely outside
	)}

	rects, err := d.Detect(context.Background(), img)
	require.NoError(t, err)
	require.Len(t, rects, 1)
	assertRect(t, geometry.NewRect(100, 25, 100, 25), rects[0])

	failing := NormalizedDetector{Detector: DetectorFunc(func(context.Context, image.Image) ([]geometry.Rect, error) {
		return nil, errors.New("vision unavailable")
	})}
	_, err = failing.Detect(context.Background(), img)
	assert.Error(t, err)
}

func TestScanRejections(t *testing.T) {
	doc, band := documentWithMRZ(td3)
	narrow := geometry.NewRect(10, 10, 100, 20)
	badCheck := td3[0] + "\n" + "L898902C35UTO7408122F1204159ZE184226B<<<<<10"

	tests := []struct {
		name       string
		detector   TextDetector
		recognizer Recognizer
		want       error
	}{
		{"no wide rectangle", fixedDetector(narrow), fixedText(strings.Join(td3, "\n")), ErrNoTextRegion},
		{"detector error", DetectorFunc(func(context.Context, image.Image) ([]geometry.Rect, error) {
			return nil, errors.New("vision unavailable")
		}), fixedText(""), ErrNoTextRegion},
		{"ocr error", fixedDetector(band), RecognizerFunc(func(context.Context, image.Image) (string, error) {
			return "", errors.New("tesseract crashed")
		}), ErrOCRFailure},
		{"empty ocr", fixedDetector(band), fixedText(" \n "), ErrOCRFailure},
		{"unknown layout", fixedDetector(band), fixedText("HELLO<WORLD"), ErrUnrecognizedFormat},
		{"bad check digit", fixedDetector(band), fixedText(badCheck), ErrChecksumInvalid},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := New(tt.detector, tt.recognizer, Options{Parser: testParser()})
			out, err := s.Scan(context.Background(), Frame{Image: doc})
			assert.Nil(t, out)
			assert.ErrorIs(t, err, tt.want)
			assert.True(t, IsRejection(err))
		})
	}
}

func TestScanEmptyFrame(t *testing.T) {
	s := New(fixedDetector(), fixedText(""), Options{})
	_, err := s.Scan(context.Background(), Frame{})
	assert.ErrorIs(t, err, ErrNoTextRegion)
}

func TestScanContextCancelled(t *testing.T) {
	doc, band := documentWithMRZ(td3)
	ctx, cancel := context.WithCancel(context.Background())
	recognizer := RecognizerFunc(func(ctx context.Context, _ image.Image) (string, error) {
		cancel()
		return "", ctx.Err()
	})

	_, err := New(fixedDetector(band), recognizer, Options{}).Scan(ctx, Frame{Image: doc})
	assert.ErrorIs(t, err, context.Canceled)
	assert.False(t, IsRejection(err))
}

func TestScanCropsRegionOfInterest(t *testing.T) {
	frame := image.NewNRGBA(image.Rect(0, 0, 1000, 800))
	roi := geometry.NewRect(0.125, 0.25, 0.5, 0.5)

	tests := []struct {
		orientation Orientation
		want        image.Rectangle
	}{
		{OrientationLandscape, image.Rect(0, 0, 500, 400)},
		{OrientationPortrait, image.Rect(0, 0, 500, 400)},
	}
	for _, tt := range tests {
		t.Run(tt.orientation.String(), func(t *testing.T) {
			var seen image.Rectangle
			detector := DetectorFunc(func(_ context.Context, img image.Image) ([]geometry.Rect, error) {
				seen = img.Bounds()
				return nil, nil
			})
			_, err := New(detector, fixedText(""), Options{}).Scan(context.Background(),
				Frame{Image: frame, ROI: roi, Orientation: tt.orientation})
			assert.ErrorIs(t, err, ErrNoTextRegion)
			assert.Equal(t, tt.want, seen)
		})
	}
}

func assertRect(t *testing.T, want, got geometry.Rect) {
	t.Helper()
	assert.InDelta(t, want.X, got.X, 1e-9)
	assert.InDelta(t, want.Y, got.Y, 1e-9)
	assert.InDelta(t, want.Width, got.Width, 1e-9)
	assert.InDelta(t, want.Height, got.Height, 1e-9)
}

func TestDocumentRect(t *testing.T) {
	img := image.NewNRGBA(image.Rect(0, 0, 1000, 800))
	roi := geometry.NewRect(0.1, 0.2, 0.5, 0.25)

	landscape := Frame{Image: img, ROI: roi}
	assertRect(t, geometry.NewRect(100, 160, 500, 200), landscape.DocumentRect())

	portrait := Frame{Image: img, ROI: roi, Orientation: OrientationPortrait}
	assertRect(t, geometry.NewRect(200, 80, 250, 400), portrait.DocumentRect())

	full := Frame{Image: img}
	assertRect(t, geometry.NewRect(0, 0, 1000, 800), full.DocumentRect())

	// 5% of the 200px height on every side.
	assertRect(t, geometry.NewRect(90, 150, 520, 220), landscape.EnlargedDocumentRect(0.05))
}

func TestScanEnlargedDocumentImage(t *testing.T) {
	frame := image.NewNRGBA(image.Rect(0, 0, 1400, 800))
	draw.Draw(frame, frame.Bounds(), image.NewUniform(color.White), image.Point{}, draw.Src)
	doc, band := documentWithMRZ(td3)
	draw.Draw(frame, image.Rect(350, 200, 1050, 600), doc, image.Point{}, draw.Src)

	roi := geometry.NewRect(0.25, 0.25, 0.5, 0.5)
	s := New(fixedDetector(band), fixedText(strings.Join(td3, "\n")), Options{Parser: testParser()})
	out, err := s.Scan(context.Background(), Frame{Image: frame, ROI: roi})
	require.NoError(t, err)

	// Document 700x400 plus 20px on every side.
	assert.Equal(t, 740, out.DocumentImage.Bounds().Dx())
	assert.Equal(t, 440, out.DocumentImage.Bounds().Dy())
}

func TestScanFaceCrop(t *testing.T) {
	doc, band := documentWithMRZ(td3)
	portrait := image.NewNRGBA(image.Rect(0, 0, 30, 40))

	s := New(fixedDetector(band), fixedText(strings.Join(td3, "\n")),
		Options{Parser: testParser(), Face: fakeFace{img: portrait}})
	out, err := s.Scan(context.Background(), Frame{Image: doc})
	require.NoError(t, err)
	assert.Same(t, portrait, out.FaceImage)

	s = New(fixedDetector(band), fixedText(strings.Join(td3, "\n")),
		Options{Parser: testParser(), Face: fakeFace{err: errors.New("cascade failed")}})
	out, err = s.Scan(context.Background(), Frame{Image: doc})
	require.NoError(t, err)
	assert.Nil(t, out.FaceImage)
}

func TestHostDictionary(t *testing.T) {
	res, err := testParser().Parse(td3)
	require.NoError(t, err)
	res.Sex = nil

	out := &Outcome{
		Result:        res,
		DocumentImage: image.NewNRGBA(image.Rect(0, 0, 16, 16)),
	}
	dict, err := HostDictionary(out, true)
	require.NoError(t, err)

	assert.Equal(t, "P", dict[KeyDocumentType])
	assert.Equal(t, "UTO", dict[KeyCountryCode])
	assert.Equal(t, "ERIKSSON", dict[KeySurname])
	assert.Equal(t, "ANNA MARIA", dict[KeyGivenName])
	assert.Equal(t, "L898902C3", dict[KeyDocumentNumber])
	assert.Equal(t, "UTO", dict[KeyNationalityCountryCode])
	assert.Equal(t, "1974-08-12T00:00:00Z", dict[KeyBirthdate])
	assert.Equal(t, "2012-04-15T00:00:00Z", dict[KeyExpiryDate])
	assert.Equal(t, "-", dict[KeySex])
	assert.Equal(t, "ZE184226B", dict[KeyPersonalNumber])
	assert.Equal(t, "", dict[KeyPersonalNumber2])

	raw, err := base64.StdEncoding.DecodeString(dict[KeyDocumentImage])
	require.NoError(t, err)
	assert.Equal(t, []byte{0xFF, 0xD8}, raw[:2])
	_, hasFace := dict[KeyFaceImage]
	assert.False(t, hasFace)

	dict, err = HostDictionary(out, false)
	require.NoError(t, err)
	_, hasDoc := dict[KeyDocumentImage]
	assert.False(t, hasDoc)
}

func TestResultDictionaryNullDates(t *testing.T) {
	dict := ResultDictionary(&mrz.Result{})
	assert.Equal(t, "", dict[KeyBirthdate])
	assert.Equal(t, "", dict[KeyExpiryDate])
	assert.Equal(t, "-", dict[KeySex])
}

func TestRejectionReason(t *testing.T) {
	assert.Equal(t, "checksum_invalid", RejectionReason(ErrChecksumInvalid))
	assert.Equal(t, "", RejectionReason(errors.New("disk full")))
	assert.Equal(t, "", RejectionReason(nil))
	assert.Len(t, RejectionReasons(), 4)
}
