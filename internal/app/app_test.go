package app

import (
	"context"
	"image"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"

	"mrz-reader/internal/config"
	apperrors "mrz-reader/internal/errors"
	mrzimage "mrz-reader/internal/image"
	"mrz-reader/internal/session"
)

func TestNewLogger(t *testing.T) {
	logger, err := NewLogger(config.LogConfig{Level: "warn"})
	require.NoError(t, err)
	assert.False(t, logger.Core().Enabled(zapcore.InfoLevel))
	assert.True(t, logger.Core().Enabled(zapcore.WarnLevel))

	logger, err = NewLogger(config.LogConfig{Level: "debug", Development: true})
	require.NoError(t, err)
	assert.True(t, logger.Core().Enabled(zapcore.DebugLevel))

	_, err = NewLogger(config.LogConfig{Level: "chatty"})
	assert.Error(t, err)
}

func TestNewApp(t *testing.T) {
	cfg := config.Default()
	a, err := New(cfg, nil)
	if err != nil {
		assert.ErrorIs(t, err, apperrors.ErrOCRUnavailable)
		t.Skipf("tesseract not available: %v", err)
	}
	defer a.Close()

	require.NotNil(t, a.Scanner)
	s := a.NewSession(session.Options{})
	assert.Equal(t, session.StateIdle, s.State())
}

func TestNewAppBadLanguage(t *testing.T) {
	cfg := config.Default()
	cfg.OCR.Language = "no-such-traineddata"
	a, err := New(cfg, nil)
	if err == nil {
		a.Close()
		t.Skip("tesseract accepted the language")
	}
	assert.Equal(t, apperrors.CodeOCRUnavailable, apperrors.GetCode(err))
}

func TestDirWatcherReportsImages(t *testing.T) {
	dir := t.TempDir()

	var mu sync.Mutex
	var seen []string
	w := NewDirWatcher(dir, 20*time.Millisecond, nil, func(path string) {
		mu.Lock()
		seen = append(seen, filepath.Base(path))
		mu.Unlock()
	})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()

	// Give the watcher time to register the directory.
	time.Sleep(50 * time.Millisecond)

	png, err := mrzimage.EncodePNG(image.NewGray(image.Rect(0, 0, 4, 4)))
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "doc.png"), png, 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("x"), 0o644))

	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(seen) == 1
	}, 2*time.Second, 10*time.Millisecond)

	cancel()
	require.NoError(t, <-done)

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []string{"doc.png"}, seen)
}

func TestDirWatcherMissingDir(t *testing.T) {
	w := NewDirWatcher(filepath.Join(t.TempDir(), "absent"), 0, nil, func(string) {})
	assert.Error(t, w.Run(context.Background()))
}
