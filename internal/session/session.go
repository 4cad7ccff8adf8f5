// Package session feeds camera frames to the MRZ scanner on a single worker
// goroutine.
//
// The worker never queues: a frame submitted while the worker is busy
// replaces any frame still waiting in the one-frame mailbox, and the
// replaced frame is counted as dropped. A validated result pauses the
// session until Resume. Stop lets the in-flight frame finish but discards
// its result.
package session

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	apperrors "mrz-reader/internal/errors"
	"mrz-reader/internal/metrics"
	"mrz-reader/internal/scanner"
)

// State is the lifecycle state of a Session.
type State int

const (
	StateIdle    State = iota // created, never started
	StateRunning              // accepting frames
	StatePaused               // result delivered or paused by the host
	StateStopped              // stopped; Start begins a new run
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateRunning:
		return "running"
	case StatePaused:
		return "paused"
	case StateStopped:
		return "stopped"
	default:
		return "unknown"
	}
}

// Scanner is the per-frame pipeline the session drives.
type Scanner interface {
	Scan(ctx context.Context, frame scanner.Frame) (*scanner.Outcome, error)
}

// Options configures a Session.
type Options struct {
	// OnResult receives every validated result, on the worker goroutine.
	OnResult func(*scanner.Outcome)
	// OnError receives infrastructural errors, on the goroutine reporting
	// them.
	OnError func(*apperrors.AppError)
	Metrics *metrics.Metrics
	Logger  *zap.Logger
}

// Stats is a snapshot of session counters.
type Stats struct {
	Submitted uint64 // frames offered
	Dropped   uint64 // frames never processed
	Processed uint64 // frames run through the pipeline
	Rejected  uint64 // processed frames without a validated result
	Results   uint64 // results delivered
	Discarded uint64 // results thrown away because of Stop
}

// Session owns the scanning worker.
type Session struct {
	id      string
	scanner Scanner
	opts    Options
	logger  *zap.Logger

	mu         sync.Mutex
	cond       *sync.Cond
	state      State
	generation uint64         // bumped by Stop, invalidates in-flight results
	pending    *scanner.Frame // single-slot mailbox
	busy       bool           // worker is running the pipeline
	done       chan struct{}  // closed when the worker exits
	cancel     context.CancelFunc
	stats      Stats
}

// New creates an idle Session.
func New(s Scanner, opts Options) *Session {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	id := uuid.NewString()
	sess := &Session{
		id:      id,
		scanner: s,
		opts:    opts,
		logger:  logger.With(zap.String("session", id)),
	}
	sess.cond = sync.NewCond(&sess.mu)
	return sess
}

// ID returns the session identifier used in logs.
func (s *Session) ID() string { return s.id }

// State returns the current lifecycle state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Stats returns a snapshot of the counters.
func (s *Session) Stats() Stats {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stats
}

// Start launches the worker. ctx bounds the whole run; cancelling it stops
// the session.
func (s *Session) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch s.state {
	case StateRunning, StatePaused:
		return apperrors.ErrAlreadyRunning
	}
	// A previous worker may still be finishing its last frame.
	if s.done != nil {
		prev := s.done
		s.mu.Unlock()
		<-prev
		s.mu.Lock()
		if s.state == StateRunning || s.state == StatePaused {
			return apperrors.ErrAlreadyRunning
		}
	}

	runCtx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	s.state = StateRunning
	s.pending = nil
	s.done = make(chan struct{})
	s.opts.Metrics.SetScanning(true)

	go s.run(runCtx, s.generation, s.done)
	go func(gen uint64) {
		<-runCtx.Done()
		s.stopGeneration(gen)
	}(s.generation)

	s.logger.Info("scanning started")
	return nil
}

// Stop ends the run. The frame in flight, if any, completes but its result
// is discarded. Stop does not wait for the worker; use Wait for that.
func (s *Session) Stop() {
	s.mu.Lock()
	gen := s.generation
	s.mu.Unlock()
	s.stopGeneration(gen)
}

func (s *Session) stopGeneration(gen uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.generation != gen || (s.state != StateRunning && s.state != StatePaused) {
		return
	}
	s.generation++
	s.state = StateStopped
	if s.pending != nil {
		s.pending = nil
		s.stats.Dropped++
		s.opts.Metrics.Dropped()
	}
	s.opts.Metrics.SetScanning(false)
	s.cond.Broadcast()
	if s.cancel != nil {
		s.cancel()
		s.cancel = nil
	}
	s.logger.Info("scanning stopped")
}

// Wait blocks until the worker of the latest run has exited.
func (s *Session) Wait() {
	s.mu.Lock()
	done := s.done
	s.mu.Unlock()
	if done != nil {
		<-done
	}
}

// Pause stops accepting frames without ending the run.
func (s *Session) Pause() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	switch s.state {
	case StatePaused:
		return nil
	case StateRunning:
		s.pauseLocked()
		return nil
	}
	return apperrors.ErrCameraNotReady
}

func (s *Session) pauseLocked() {
	s.state = StatePaused
	if s.pending != nil {
		s.pending = nil
		s.stats.Dropped++
		s.opts.Metrics.Dropped()
	}
	s.opts.Metrics.SetScanning(false)
}

// Resume accepts frames again after a result or Pause.
func (s *Session) Resume() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	switch s.state {
	case StateRunning:
		return nil
	case StatePaused:
		s.state = StateRunning
		s.opts.Metrics.SetScanning(true)
		s.logger.Debug("scanning resumed")
		return nil
	}
	return apperrors.ErrCameraNotReady
}

// SetScanning mirrors the host's scanning switch: true starts or resumes,
// false stops.
func (s *Session) SetScanning(ctx context.Context, on bool) error {
	if !on {
		s.Stop()
		return nil
	}
	switch s.State() {
	case StatePaused:
		return s.Resume()
	case StateRunning:
		return nil
	}
	return s.Start(ctx)
}

// Submit offers a frame. It never blocks on the pipeline; it reports
// whether the frame was accepted into the mailbox. Frames get an ID when
// they have none.
func (s *Session) Submit(frame scanner.Frame) bool {
	if frame.ID == "" {
		frame.ID = uuid.NewString()
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.stats.Submitted++
	s.opts.Metrics.Submitted()

	if s.state != StateRunning {
		s.stats.Dropped++
		s.opts.Metrics.Dropped()
		return false
	}
	if s.pending != nil {
		// Latest frame wins; the stale one is never processed.
		s.stats.Dropped++
		s.opts.Metrics.Dropped()
	}
	s.pending = &frame
	s.cond.Signal()
	return true
}

// Busy reports whether a frame is in the pipeline.
func (s *Session) Busy() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.busy
}

// ReportError forwards an infrastructural error from the host layer to
// OnError.
func (s *Session) ReportError(err error) {
	if err == nil {
		return
	}
	appErr := apperrors.From(err)
	s.logger.Error("session error", zap.String("code", appErr.Code), zap.Error(err))
	if s.opts.OnError != nil {
		s.opts.OnError(appErr)
	}
}

// next blocks until a frame is available for generation gen. It returns
// nil once that generation has been stopped.
func (s *Session) next(gen uint64) *scanner.Frame {
	s.mu.Lock()
	defer s.mu.Unlock()
	for s.pending == nil && s.generation == gen {
		s.cond.Wait()
	}
	if s.generation != gen {
		return nil
	}
	frame := s.pending
	s.pending = nil
	s.busy = true
	return frame
}

func (s *Session) run(ctx context.Context, gen uint64, done chan struct{}) {
	defer close(done)
	for {
		frame := s.next(gen)
		if frame == nil {
			return
		}
		s.process(ctx, gen, *frame)
	}
}

func (s *Session) process(ctx context.Context, gen uint64, frame scanner.Frame) {
	// The pipeline runs to completion even if Stop arrives meanwhile.
	start := time.Now()
	out, err := s.scanner.Scan(context.WithoutCancel(ctx), frame)
	elapsed := time.Since(start)

	s.mu.Lock()
	s.busy = false
	s.stats.Processed++
	reason := scanner.RejectionReason(err)
	s.opts.Metrics.Processed(elapsed, reason)

	if err != nil {
		s.stats.Rejected++
		s.mu.Unlock()
		if reason == "" {
			s.logger.Warn("scan failed", zap.String("frame", frame.ID), zap.Error(err))
		}
		return
	}

	if s.generation != gen || s.state != StateRunning {
		s.stats.Discarded++
		s.opts.Metrics.ResultDiscarded()
		s.mu.Unlock()
		s.logger.Debug("result discarded", zap.String("frame", frame.ID))
		return
	}

	s.pauseLocked()
	s.stats.Results++
	s.opts.Metrics.Result(out.Result.Format.String())
	s.mu.Unlock()

	s.logger.Info("result delivered",
		zap.String("frame", frame.ID),
		zap.String("format", out.Result.Format.String()))
	if s.opts.OnResult != nil {
		s.opts.OnResult(out)
	}
}
