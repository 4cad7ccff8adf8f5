// Package ocr provides OCR (Optical Character Recognition) for MRZ bands.
package ocr

import (
	"context"
	"fmt"
	"image"
	"strings"
	"sync"

	"github.com/otiai10/gosseract/v2"
	"go.uber.org/zap"

	mrzimage "mrz-reader/internal/image"
	"mrz-reader/pkg/geometry"
)

// MRZChars is the MRZ alphabet. Restricting Tesseract to it removes most
// lowercase and punctuation noise before the line sanitizer sees the text.
const MRZChars = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789<"

// Config holds Tesseract settings.
type Config struct {
	Language       string // traineddata name, "eng" or "ocrb"
	TessdataPrefix string // directory holding the traineddata, empty for the system default
	PageSegMode    int    // Tesseract PSM, 6 = single uniform block
}

// DefaultConfig returns the settings used when none are configured.
func DefaultConfig() Config {
	return Config{Language: "eng", PageSegMode: int(gosseract.PSM_SINGLE_BLOCK)}
}

// Engine provides OCR functionality using Tesseract. A Tesseract handle is
// not reentrant, so calls are serialized.
type Engine struct {
	mu     sync.Mutex
	client *gosseract.Client
	cfg    Config
	logger *zap.Logger
}

// NewEngine creates a new OCR engine.
func NewEngine(cfg Config, logger *zap.Logger) (*Engine, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.Language == "" {
		cfg.Language = "eng"
	}
	if cfg.PageSegMode == 0 {
		cfg.PageSegMode = int(gosseract.PSM_SINGLE_BLOCK)
	}

	client := gosseract.NewClient()
	if cfg.TessdataPrefix != "" {
		if err := client.SetTessdataPrefix(cfg.TessdataPrefix); err != nil {
			client.Close()
			return nil, fmt.Errorf("failed to set tessdata prefix: %w", err)
		}
	}
	if err := client.SetLanguage(cfg.Language); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to set OCR language: %w", err)
	}

	// MRZ lines are not words; dictionary correction only makes things worse.
	_ = client.SetVariable("load_system_dawg", "false")
	_ = client.SetVariable("load_freq_dawg", "false")
	_ = client.SetVariable("preserve_interword_spaces", "0")

	logger.Debug("tesseract engine ready",
		zap.String("language", cfg.Language),
		zap.Int("psm", cfg.PageSegMode),
		zap.String("version", client.Version()))

	return &Engine{client: client, cfg: cfg, logger: logger}, nil
}

// Close releases OCR resources.
func (e *Engine) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.client != nil {
		err := e.client.Close()
		e.client = nil
		return err
	}
	return nil
}

// Recognize returns the text of a prepared MRZ band, uppercased, with line
// breaks preserved.
func (e *Engine) Recognize(ctx context.Context, img image.Image) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if img.Bounds().Empty() {
		return "", fmt.Errorf("empty image")
	}

	buf, err := mrzimage.EncodePNG(img)
	if err != nil {
		return "", err
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if e.client == nil {
		return "", fmt.Errorf("OCR engine closed")
	}

	if err := e.client.SetPageSegMode(gosseract.PageSegMode(e.cfg.PageSegMode)); err != nil {
		return "", fmt.Errorf("failed to set PSM: %w", err)
	}
	if err := e.client.SetWhitelist(MRZChars); err != nil {
		return "", fmt.Errorf("failed to set whitelist: %w", err)
	}
	if err := e.client.SetImageFromBytes(buf); err != nil {
		return "", fmt.Errorf("failed to set image: %w", err)
	}

	text, err := e.client.Text()
	if err != nil {
		return "", fmt.Errorf("OCR failed: %w", err)
	}
	return normalizeText(text), nil
}

// Detect reports the bounding boxes of the text lines Tesseract finds in
// img. It is a slower substitute for the OpenCV detector.
func (e *Engine) Detect(ctx context.Context, img image.Image) ([]geometry.Rect, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	buf, err := mrzimage.EncodePNG(img)
	if err != nil {
		return nil, err
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if e.client == nil {
		return nil, fmt.Errorf("OCR engine closed")
	}

	if err := e.client.SetPageSegMode(gosseract.PSM_SPARSE_TEXT); err != nil {
		return nil, fmt.Errorf("failed to set PSM: %w", err)
	}
	if err := e.client.SetWhitelist(MRZChars); err != nil {
		return nil, fmt.Errorf("failed to set whitelist: %w", err)
	}
	if err := e.client.SetImageFromBytes(buf); err != nil {
		return nil, fmt.Errorf("failed to set image: %w", err)
	}

	boxes, err := e.client.GetBoundingBoxes(gosseract.RIL_TEXTLINE)
	if err != nil {
		return nil, fmt.Errorf("failed to get boxes: %w", err)
	}

	origin := img.Bounds().Min
	rects := make([]geometry.Rect, 0, len(boxes))
	for _, box := range boxes {
		if strings.TrimSpace(box.Word) == "" {
			continue
		}
		rects = append(rects, geometry.FromImageRect(box.Box.Add(origin)))
	}
	return rects, nil
}

// normalizeText uppercases Tesseract output and trims trailing whitespace
// per line. Interior spaces are left for the sanitizer.
func normalizeText(text string) string {
	lines := strings.Split(strings.ReplaceAll(text, "\r\n", "\n"), "\n")
	for i, line := range lines {
		lines[i] = strings.ToUpper(strings.TrimRight(line, " \t"))
	}
	return strings.TrimSpace(strings.Join(lines, "\n"))
}
