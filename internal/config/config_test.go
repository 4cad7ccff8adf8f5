package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "mrz-reader/internal/errors"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "eng", cfg.OCR.Language)
	assert.Equal(t, 6, cfg.OCR.PageSegMode)
	assert.Equal(t, DetectorOpenCV, cfg.Locator.Detector)
	assert.Equal(t, 0.8, cfg.Locator.MinWidthRatio)
	assert.Equal(t, 0.4, cfg.Locator.MaxHeightRatio)
	assert.Equal(t, 0.05, cfg.Locator.MarginRatio)
	assert.Equal(t, 2.0, cfg.Preprocess.Scale)
	assert.Equal(t, 0.05, cfg.Document.MarginRatio)
	assert.False(t, cfg.Face.Enabled)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Empty(t, cfg.Metrics.Addr)

	assert.Equal(t, cfg, Default())
}

func TestLoadFileAndEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "mrz.yaml")
	yaml := `
ocr:
  language: ocrb
  tessdata_prefix: /opt/tessdata
locator:
  min_width_ratio: 0.75
log:
  level: debug
`
	require.NoError(t, os.WriteFile(path, []byte(yaml), 0o644))
	t.Setenv("MRZ_METRICS_ADDR", ":9100")
	t.Setenv("MRZ_PREPROCESS_SCALE", "3")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "ocrb", cfg.OCR.Language)
	assert.Equal(t, "/opt/tessdata", cfg.OCR.TessdataPrefix)
	assert.Equal(t, 0.75, cfg.Locator.MinWidthRatio)
	assert.Equal(t, 0.4, cfg.Locator.MaxHeightRatio)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, ":9100", cfg.Metrics.Addr)
	assert.Equal(t, 3.0, cfg.Preprocess.Scale)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	assert.Error(t, err)
}

func TestLoadInvalidIsConfigError(t *testing.T) {
	t.Setenv("MRZ_LOG_LEVEL", "loud")
	_, err := Load("")
	require.Error(t, err)
	assert.ErrorIs(t, err, apperrors.ErrConfigInvalid)
	assert.Equal(t, apperrors.CodeConfigInvalid, apperrors.GetCode(err))
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"zero width ratio", func(c *Config) { c.Locator.MinWidthRatio = 0 }},
		{"height ratio above one", func(c *Config) { c.Locator.MaxHeightRatio = 1.5 }},
		{"negative document margin", func(c *Config) { c.Document.MarginRatio = -0.1 }},
		{"unknown detector", func(c *Config) { c.Locator.Detector = "east" }},
		{"scale below one", func(c *Config) { c.Preprocess.Scale = 0.5 }},
		{"bad psm", func(c *Config) { c.OCR.PageSegMode = 42 }},
		{"no language", func(c *Config) { c.OCR.Language = "" }},
		{"bad log level", func(c *Config) { c.Log.Level = "loud" }},
		{"face without cascade", func(c *Config) { c.Face.Enabled = true }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}
	assert.NoError(t, Default().Validate())
}
