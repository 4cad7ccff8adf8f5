// Package config loads scanner settings from defaults, an optional YAML file
// and MRZ_* environment variables.
package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/viper"
	"go.uber.org/zap/zapcore"

	apperrors "mrz-reader/internal/errors"
)

// Text detectors selectable with locator.detector.
const (
	DetectorOpenCV    = "opencv"
	DetectorTesseract = "tesseract"
)

// Config holds all configuration for the MRZ scanner
type Config struct {
	OCR        OCRConfig        `mapstructure:"ocr"`
	Locator    LocatorConfig    `mapstructure:"locator"`
	Preprocess PreprocessConfig `mapstructure:"preprocess"`
	Document   DocumentConfig   `mapstructure:"document"`
	Face       FaceConfig       `mapstructure:"face"`
	Log        LogConfig        `mapstructure:"log"`
	Metrics    MetricsConfig    `mapstructure:"metrics"`
}

// OCRConfig holds Tesseract settings
type OCRConfig struct {
	Language       string `mapstructure:"language"`
	TessdataPrefix string `mapstructure:"tessdata_prefix"`
	PageSegMode    int    `mapstructure:"page_seg_mode"`
}

// LocatorConfig holds the MRZ band heuristics
type LocatorConfig struct {
	Detector       string  `mapstructure:"detector"`
	MinWidthRatio  float64 `mapstructure:"min_width_ratio"`
	MaxHeightRatio float64 `mapstructure:"max_height_ratio"`
	MarginRatio    float64 `mapstructure:"margin_ratio"`
}

// PreprocessConfig holds preprocessor settings
type PreprocessConfig struct {
	Scale float64 `mapstructure:"scale"`
}

// DocumentConfig holds document image settings
type DocumentConfig struct {
	MarginRatio float64 `mapstructure:"margin_ratio"`
}

// FaceConfig holds portrait cropping settings
type FaceConfig struct {
	Enabled     bool   `mapstructure:"enabled"`
	CascadePath string `mapstructure:"cascade_path"`
}

// LogConfig holds logger settings
type LogConfig struct {
	Level       string `mapstructure:"level"`
	Development bool   `mapstructure:"development"`
}

// MetricsConfig holds the Prometheus endpoint; an empty address disables it
type MetricsConfig struct {
	Addr string `mapstructure:"addr"`
}

// Load loads configuration from file, env, and defaults. An empty path
// skips the file.
func Load(configPath string) (*Config, error) {
	v := viper.New()

	setDefaults(v)

	if configPath != "" {
		if _, err := os.Stat(configPath); err != nil {
			return nil, fmt.Errorf("config file: %w", err)
		}
		v.SetConfigFile(configPath)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	// Environment variables (MRZ_OCR_LANGUAGE, MRZ_LOG_LEVEL, etc.)
	v.SetEnvPrefix("MRZ")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, apperrors.Wrap(err, apperrors.CodeConfigInvalid, "invalid configuration")
	}
	return &cfg, nil
}

// Default returns the built-in configuration.
func Default() *Config {
	v := viper.New()
	setDefaults(v)
	var cfg Config
	_ = v.Unmarshal(&cfg)
	return &cfg
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("ocr.language", "eng")
	v.SetDefault("ocr.tessdata_prefix", "")
	v.SetDefault("ocr.page_seg_mode", 6)

	v.SetDefault("locator.detector", DetectorOpenCV)
	v.SetDefault("locator.min_width_ratio", 0.8)
	v.SetDefault("locator.max_height_ratio", 0.4)
	v.SetDefault("locator.margin_ratio", 0.05)

	v.SetDefault("preprocess.scale", 2.0)
	v.SetDefault("document.margin_ratio", 0.05)

	v.SetDefault("face.enabled", false)
	v.SetDefault("face.cascade_path", "")

	v.SetDefault("log.level", "info")
	v.SetDefault("log.development", false)

	v.SetDefault("metrics.addr", "")
}

// Validate checks ranges and enumerations.
func (c *Config) Validate() error {
	ratios := []struct {
		key   string
		value float64
	}{
		{"locator.min_width_ratio", c.Locator.MinWidthRatio},
		{"locator.max_height_ratio", c.Locator.MaxHeightRatio},
		{"locator.margin_ratio", c.Locator.MarginRatio},
		{"document.margin_ratio", c.Document.MarginRatio},
	}
	for _, r := range ratios {
		if r.value <= 0 || r.value > 1 {
			return fmt.Errorf("%s must be in (0,1], got %v", r.key, r.value)
		}
	}
	switch c.Locator.Detector {
	case DetectorOpenCV, DetectorTesseract:
	default:
		return fmt.Errorf("locator.detector must be %q or %q, got %q", DetectorOpenCV, DetectorTesseract, c.Locator.Detector)
	}
	if c.Preprocess.Scale < 1 {
		return fmt.Errorf("preprocess.scale must be at least 1, got %v", c.Preprocess.Scale)
	}
	if c.OCR.PageSegMode < 0 || c.OCR.PageSegMode > 13 {
		return fmt.Errorf("ocr.page_seg_mode must be in [0,13], got %d", c.OCR.PageSegMode)
	}
	if c.OCR.Language == "" {
		return fmt.Errorf("ocr.language is required")
	}
	if _, err := zapcore.ParseLevel(c.Log.Level); err != nil {
		return fmt.Errorf("log.level: %w", err)
	}
	if c.Face.Enabled && c.Face.CascadePath == "" {
		return fmt.Errorf("face.cascade_path is required when face.enabled is set")
	}
	return nil
}
