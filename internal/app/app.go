// Package app wires configuration, logging, the native OCR and vision
// engines, the scanner and scanning sessions together.
package app

import (
	"errors"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"mrz-reader/internal/config"
	apperrors "mrz-reader/internal/errors"
	"mrz-reader/internal/face"
	mrzimage "mrz-reader/internal/image"
	"mrz-reader/internal/metrics"
	"mrz-reader/internal/mrz"
	"mrz-reader/internal/ocr"
	"mrz-reader/internal/region"
	"mrz-reader/internal/scanner"
	"mrz-reader/internal/session"
	"mrz-reader/internal/textdetect"
)

// App holds the long-lived components built from a Config.
type App struct {
	Config   *config.Config
	Logger   *zap.Logger
	Registry *prometheus.Registry
	Metrics  *metrics.Metrics
	Scanner  *scanner.Scanner

	engine  *ocr.Engine
	cropper *face.Cropper
}

// New builds the pipeline. A missing Tesseract installation is reported as
// system/ocr-unavailable; a face cascade that fails to load only disables
// face cropping.
func New(cfg *config.Config, logger *zap.Logger) (*App, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	engine, err := ocr.NewEngine(ocr.Config{
		Language:       cfg.OCR.Language,
		TessdataPrefix: cfg.OCR.TessdataPrefix,
		PageSegMode:    cfg.OCR.PageSegMode,
	}, logger.Named("ocr"))
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.CodeOCRUnavailable, "failed to start Tesseract")
	}

	a := &App{
		Config:   cfg,
		Logger:   logger,
		Registry: prometheus.NewRegistry(),
		engine:   engine,
	}
	a.Metrics = metrics.New(a.Registry)

	var detector scanner.TextDetector = textdetect.New(textdetect.DefaultOptions())
	if cfg.Locator.Detector == config.DetectorTesseract {
		detector = engine
	}

	opts := scanner.Options{
		Locator: &region.Locator{
			MinWidthRatio:  cfg.Locator.MinWidthRatio,
			MaxHeightRatio: cfg.Locator.MaxHeightRatio,
			MarginRatio:    cfg.Locator.MarginRatio,
		},
		Preprocessor:        mrzimage.NewPreprocessor(cfg.Preprocess.Scale),
		Parser:              mrz.NewParser(),
		DocumentMarginRatio: cfg.Document.MarginRatio,
		Logger:              logger.Named("scanner"),
	}
	if cfg.Face.Enabled {
		cropper, err := face.NewCropper(cfg.Face.CascadePath)
		if err != nil {
			logger.Warn("face cropping disabled", zap.Error(err))
		} else {
			a.cropper = cropper
			opts.Face = cropper
		}
	}

	a.Scanner = scanner.New(detector, engine, opts)

	logger.Info("pipeline ready",
		zap.String("ocr_language", cfg.OCR.Language),
		zap.String("detector", cfg.Locator.Detector),
		zap.Bool("face", a.cropper != nil))
	return a, nil
}

// NewSession creates a session on the app's scanner, reporting to the app's
// metrics and logger unless opts says otherwise.
func (a *App) NewSession(opts session.Options) *session.Session {
	if opts.Metrics == nil {
		opts.Metrics = a.Metrics
	}
	if opts.Logger == nil {
		opts.Logger = a.Logger.Named("session")
	}
	return session.New(a.Scanner, opts)
}

// Close releases the native engines.
func (a *App) Close() error {
	var errs []error
	if a.engine != nil {
		if err := a.engine.Close(); err != nil {
			errs = append(errs, fmt.Errorf("ocr: %w", err))
		}
	}
	if a.cropper != nil {
		if err := a.cropper.Close(); err != nil {
			errs = append(errs, fmt.Errorf("face: %w", err))
		}
	}
	return errors.Join(errs...)
}
