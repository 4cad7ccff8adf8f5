package main

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"mrz-reader/internal/app"
	apperrors "mrz-reader/internal/errors"
	mrzimage "mrz-reader/internal/image"
	"mrz-reader/internal/metrics"
	"mrz-reader/internal/scanner"
	"mrz-reader/internal/session"
)

var (
	watchMetricsAddr string
	watchContinuous  bool
	watchWithImages  bool
)

var watchCmd = &cobra.Command{
	Use:   "watch <dir>",
	Short: "Scan images as they appear in a directory",
	Long: `Watch a directory and feed every new image to a scanning session, as a camera
would feed frames. Frames arriving while a scan is in progress are dropped.
The command exits after the first validated result unless --continuous is
set, in which case scanning resumes after each result.`,
	Args: cobra.ExactArgs(1),
	RunE: runWatch,
}

func init() {
	addFrameFlags(watchCmd)
	watchCmd.Flags().StringVar(&watchMetricsAddr, "metrics-addr", "", "serve Prometheus metrics on this address (overrides metrics.addr)")
	watchCmd.Flags().BoolVar(&watchContinuous, "continuous", false, "keep scanning after a result")
	watchCmd.Flags().BoolVar(&watchWithImages, "with-images", false, "include base64 JPEG document and face images")
	rootCmd.AddCommand(watchCmd)
}

func runWatch(cmd *cobra.Command, args []string) error {
	dir := args[0]
	template, err := frameTemplate()
	if err != nil {
		return err
	}

	a, err := app.New(cfg, logger)
	if err != nil {
		return err
	}
	defer a.Close()

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	out := json.NewEncoder(cmd.OutOrStdout())
	var sess *session.Session
	sess = a.NewSession(session.Options{
		OnResult: func(o *scanner.Outcome) {
			dict, err := scanner.HostDictionary(o, watchWithImages)
			if err != nil {
				sess.ReportError(err)
			} else if err := out.Encode(dict); err != nil {
				sess.ReportError(err)
			}
			if !watchContinuous {
				cancel()
				return
			}
			if err := sess.Resume(); err != nil {
				sess.ReportError(err)
			}
		},
		OnError: func(e *apperrors.AppError) {
			logger.Error("scan error", zap.Any("event", e.Event()))
		},
	})
	if err := sess.Start(ctx); err != nil {
		return err
	}

	addr := watchMetricsAddr
	if addr == "" {
		addr = cfg.Metrics.Addr
	}
	if addr != "" {
		srv := serveMetrics(addr, a)
		defer func() {
			shutdownCtx, done := context.WithTimeout(context.Background(), 5*time.Second)
			defer done()
			_ = srv.Shutdown(shutdownCtx)
		}()
	}

	w := app.NewDirWatcher(dir, app.DefaultSettle, logger.Named("watch"), func(path string) {
		still, err := mrzimage.Load(path)
		if err != nil {
			logger.Warn("skipping image", zap.String("file", path), zap.Error(err))
			return
		}
		frame := template
		frame.ID = filepath.Base(path)
		frame.Image = still.Image
		if !sess.Submit(frame) {
			logger.Debug("frame dropped", zap.String("file", path), zap.Stringer("state", sess.State()))
		}
	})
	err = w.Run(ctx)

	sess.Stop()
	sess.Wait()
	stats := sess.Stats()
	logger.Info("watch finished",
		zap.String("session", sess.ID()),
		zap.Uint64("submitted", stats.Submitted),
		zap.Uint64("dropped", stats.Dropped),
		zap.Uint64("processed", stats.Processed),
		zap.Uint64("results", stats.Results))
	return err
}

func serveMetrics(addr string, a *app.App) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", metrics.Handler(a.Registry))
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("metrics server failed", zap.Error(err))
		}
	}()
	logger.Info("serving metrics", zap.String("addr", addr))
	return srv
}
