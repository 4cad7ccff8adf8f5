// Package scanner runs the per-frame MRZ pipeline: document crop, text
// region location, preprocessing, OCR, line sanitizing, parsing and check
// digit validation. A Scanner holds no per-frame state; Scan may be called
// from any goroutine as long as the collaborators allow it.
package scanner

import (
	"context"
	"fmt"
	"image"
	"time"

	"go.uber.org/zap"

	mrzimage "mrz-reader/internal/image"
	"mrz-reader/internal/mrz"
	"mrz-reader/internal/region"
	"mrz-reader/pkg/geometry"
)

// TextDetector finds text rectangles in an image, in the image's pixel
// coordinates.
type TextDetector interface {
	Detect(ctx context.Context, img image.Image) ([]geometry.Rect, error)
}

// Recognizer converts a prepared image into line-delimited uppercase text.
type Recognizer interface {
	Recognize(ctx context.Context, img image.Image) (string, error)
}

// FaceCropper extracts the holder portrait from a document image. A nil
// image with a nil error means no face was found.
type FaceCropper interface {
	Crop(ctx context.Context, img image.Image) (image.Image, error)
}

// DetectorFunc adapts a function to TextDetector.
type DetectorFunc func(ctx context.Context, img image.Image) ([]geometry.Rect, error)

func (f DetectorFunc) Detect(ctx context.Context, img image.Image) ([]geometry.Rect, error) {
	return f(ctx, img)
}

// RecognizerFunc adapts a function to Recognizer.
type RecognizerFunc func(ctx context.Context, img image.Image) (string, error)

func (f RecognizerFunc) Recognize(ctx context.Context, img image.Image) (string, error) {
	return f(ctx, img)
}

// NormalizedDetector adapts a detector that reports boxes normalized to
// [0,1] with a bottom-left origin, the convention of platform text
// recognizers, to pixel boxes in the image's coordinates.
type NormalizedDetector struct {
	Detector TextDetector
}

func (d NormalizedDetector) Detect(ctx context.Context, img image.Image) ([]geometry.Rect, error) {
	rects, err := d.Detector.Detect(ctx, img)
	if err != nil {
		return nil, err
	}
	b := img.Bounds()
	frame := geometry.FromImageRect(b)
	out := make([]geometry.Rect, 0, len(rects))
	for _, r := range rects {
		px := geometry.NormalizedToPixel(r, b.Dx(), b.Dy()).
			Offset(float64(b.Min.X), float64(b.Min.Y)).
			Intersect(frame)
		if !px.IsEmpty() {
			out = append(out, px)
		}
	}
	return out, nil
}

// DefaultDocumentMarginRatio is the margin of the enlarged document image,
// as a fraction of the document height.
const DefaultDocumentMarginRatio = 0.05

// Options configures a Scanner. Zero values select the defaults.
type Options struct {
	Locator             *region.Locator
	Preprocessor        *mrzimage.Preprocessor
	Parser              *mrz.Parser
	DocumentMarginRatio float64
	Face                FaceCropper // optional
	Logger              *zap.Logger
}

// Scanner is the MRZ pipeline.
type Scanner struct {
	detector     TextDetector
	recognizer   Recognizer
	locator      *region.Locator
	preprocessor *mrzimage.Preprocessor
	parser       *mrz.Parser
	margin       float64
	face         FaceCropper
	logger       *zap.Logger
}

// New creates a Scanner from its two required collaborators.
func New(detector TextDetector, recognizer Recognizer, opts Options) *Scanner {
	s := &Scanner{
		detector:     detector,
		recognizer:   recognizer,
		locator:      opts.Locator,
		preprocessor: opts.Preprocessor,
		parser:       opts.Parser,
		margin:       opts.DocumentMarginRatio,
		face:         opts.Face,
		logger:       opts.Logger,
	}
	if s.locator == nil {
		s.locator = region.NewLocator()
	}
	if s.preprocessor == nil {
		s.preprocessor = mrzimage.NewPreprocessor(mrzimage.DefaultScale)
	}
	if s.parser == nil {
		s.parser = mrz.NewParser()
	}
	if s.margin <= 0 {
		s.margin = DefaultDocumentMarginRatio
	}
	if s.logger == nil {
		s.logger = zap.NewNop()
	}
	return s
}

// Outcome is a validated scan.
type Outcome struct {
	Result        *mrz.Result
	DocumentImage image.Image // enlarged document crop
	FaceImage     image.Image // nil when no face was cropped
	Band          region.Band // MRZ band in document image coordinates
	Duration      time.Duration
}

// Scan runs the pipeline on one frame. Frames that do not yield a fully
// validated MRZ return an error satisfying IsRejection; any other error is
// a context error.
func (s *Scanner) Scan(ctx context.Context, frame Frame) (*Outcome, error) {
	start := time.Now()
	log := s.logger.With(zap.String("frame", frame.ID))

	out, err := s.scan(ctx, frame)
	if err != nil {
		if reason := RejectionReason(err); reason != "" {
			log.Debug("frame rejected", zap.String("reason", reason), zap.Error(err))
		}
		return nil, err
	}
	out.Duration = time.Since(start)

	log.Info("MRZ scanned",
		zap.String("format", out.Result.Format.String()),
		zap.String("document_type", out.Result.DocumentType),
		zap.String("country", out.Result.CountryCode),
		zap.Duration("duration", out.Duration))
	return out, nil
}

func (s *Scanner) scan(ctx context.Context, frame Frame) (*Outcome, error) {
	if frame.Image == nil || frame.Image.Bounds().Empty() {
		return nil, fmt.Errorf("%w: empty frame", ErrNoTextRegion)
	}
	bounds := frame.Image.Bounds()

	docRect := frame.DocumentRect().ToInt().ClampTo(bounds)
	if docRect.Width <= 0 || docRect.Height <= 0 {
		return nil, fmt.Errorf("%w: region of interest outside the frame", ErrNoTextRegion)
	}
	document := mrzimage.Crop(frame.Image, docRect)

	rects, err := s.detector.Detect(ctx, document)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		return nil, fmt.Errorf("%w: detector: %v", ErrNoTextRegion, err)
	}
	band, err := s.locator.Locate(rects, docRect.Width, docRect.Height)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNoTextRegion, err)
	}

	prepared := s.preprocessor.Prepare(mrzimage.Crop(document, band.Rect))

	text, err := s.recognizer.Recognize(ctx, prepared.Image)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		return nil, fmt.Errorf("%w: %v", ErrOCRFailure, err)
	}

	lines, err := mrz.SanitizeLines(text)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrOCRFailure, err)
	}

	result, err := s.parser.Parse(lines)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnrecognizedFormat, err)
	}
	if !result.AllCheckDigitsValid {
		return nil, fmt.Errorf("%w: %+v", ErrChecksumInvalid, result.Checks)
	}

	enlarged := frame.EnlargedDocumentRect(s.margin).ToInt().ClampTo(bounds)
	out := &Outcome{
		Result:        result,
		DocumentImage: mrzimage.Crop(frame.Image, enlarged),
		Band:          band,
	}
	if s.face != nil {
		face, err := s.face.Crop(ctx, out.DocumentImage)
		if err != nil {
			s.logger.Warn("face crop failed", zap.String("frame", frame.ID), zap.Error(err))
		} else {
			out.FaceImage = face
		}
	}
	return out, nil
}
