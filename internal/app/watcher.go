package app

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"

	mrzimage "mrz-reader/internal/image"
)

// DirWatcher reports image files created or rewritten in a directory. Each
// file is reported once it has been quiet for the settle delay, so a
// half-written image is not decoded.
type DirWatcher struct {
	dir     string
	settle  time.Duration
	logger  *zap.Logger
	onImage func(path string)

	mu     sync.Mutex
	timers map[string]*time.Timer
}

// DefaultSettle is the quiet period before a changed file is reported.
const DefaultSettle = 100 * time.Millisecond

// NewDirWatcher creates a watcher for dir. onImage is called from a timer
// goroutine.
func NewDirWatcher(dir string, settle time.Duration, logger *zap.Logger, onImage func(path string)) *DirWatcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	if settle <= 0 {
		settle = DefaultSettle
	}
	return &DirWatcher{
		dir:     dir,
		settle:  settle,
		logger:  logger,
		onImage: onImage,
		timers:  make(map[string]*time.Timer),
	}
}

// Run watches until ctx is cancelled. It returns an error only when the
// directory cannot be watched.
func (w *DirWatcher) Run(ctx context.Context) error {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}
	defer fw.Close()

	if err := fw.Add(w.dir); err != nil {
		return fmt.Errorf("failed to watch %s: %w", w.dir, err)
	}
	w.logger.Info("watching directory", zap.String("dir", w.dir))
	defer w.stopTimers()

	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-fw.Events:
			if !ok {
				return nil
			}
			if !ev.Has(fsnotify.Create) && !ev.Has(fsnotify.Write) {
				continue
			}
			if !mrzimage.IsSupportedFormat(ev.Name) {
				continue
			}
			w.schedule(filepath.Clean(ev.Name))
		case err, ok := <-fw.Errors:
			if !ok {
				return nil
			}
			w.logger.Warn("watch error", zap.Error(err))
		}
	}
}

func (w *DirWatcher) schedule(path string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if t, ok := w.timers[path]; ok {
		t.Reset(w.settle)
		return
	}
	w.timers[path] = time.AfterFunc(w.settle, func() {
		w.mu.Lock()
		delete(w.timers, path)
		w.mu.Unlock()
		w.onImage(path)
	})
}

func (w *DirWatcher) stopTimers() {
	w.mu.Lock()
	defer w.mu.Unlock()
	for path, t := range w.timers {
		t.Stop()
		delete(w.timers, path)
	}
}
