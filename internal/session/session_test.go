package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "mrz-reader/internal/errors"
	"mrz-reader/internal/metrics"
	"mrz-reader/internal/mrz"
	"mrz-reader/internal/scanner"
)

const waitFor = 2 * time.Second
const tick = 5 * time.Millisecond

// fakeScanner records the frames it sees. When gate is set each Scan
// blocks until the test sends on it.
type fakeScanner struct {
	mu     sync.Mutex
	seen   []string
	gate   chan struct{}
	reject bool
}

func (f *fakeScanner) Scan(_ context.Context, frame scanner.Frame) (*scanner.Outcome, error) {
	f.mu.Lock()
	f.seen = append(f.seen, frame.ID)
	gate := f.gate
	reject := f.reject
	f.mu.Unlock()

	if gate != nil {
		<-gate
	}
	if reject {
		return nil, fmt.Errorf("%w: composite", scanner.ErrChecksumInvalid)
	}
	return &scanner.Outcome{Result: &mrz.Result{Format: mrz.FormatTD3, DocumentNumber: frame.ID}}, nil
}

func (f *fakeScanner) frames() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.seen...)
}

func frame(id string) scanner.Frame { return scanner.Frame{ID: id} }

func TestResultPausesSession(t *testing.T) {
	results := make(chan *scanner.Outcome, 1)
	s := New(&fakeScanner{}, Options{OnResult: func(o *scanner.Outcome) { results <- o }})
	require.NoError(t, s.Start(context.Background()))
	defer s.Stop()

	require.True(t, s.Submit(frame("f1")))

	select {
	case out := <-results:
		assert.Equal(t, "f1", out.Result.DocumentNumber)
	case <-time.After(waitFor):
		t.Fatal("no result delivered")
	}

	require.Eventually(t, func() bool { return s.State() == StatePaused }, waitFor, tick)
	assert.False(t, s.Submit(frame("f2")))

	stats := s.Stats()
	assert.Equal(t, uint64(2), stats.Submitted)
	assert.Equal(t, uint64(1), stats.Results)
	assert.Equal(t, uint64(1), stats.Dropped)
}

func TestBusyWorkerDropsInsteadOfQueueing(t *testing.T) {
	fake := &fakeScanner{gate: make(chan struct{}), reject: true}
	s := New(fake, Options{})
	require.NoError(t, s.Start(context.Background()))
	defer s.Stop()

	require.True(t, s.Submit(frame("f1")))
	require.Eventually(t, s.Busy, waitFor, tick)

	// f2 waits in the mailbox and is then replaced by f3.
	require.True(t, s.Submit(frame("f2")))
	require.True(t, s.Submit(frame("f3")))

	fake.gate <- struct{}{}
	fake.gate <- struct{}{}

	require.Eventually(t, func() bool { return s.Stats().Processed == 2 }, waitFor, tick)
	assert.Equal(t, []string{"f1", "f3"}, fake.frames())

	stats := s.Stats()
	assert.Equal(t, uint64(1), stats.Dropped)
	assert.Equal(t, uint64(2), stats.Rejected)
	assert.Equal(t, StateRunning, s.State())
}

func TestStopDiscardsInFlightResult(t *testing.T) {
	fake := &fakeScanner{gate: make(chan struct{})}
	delivered := false
	s := New(fake, Options{OnResult: func(*scanner.Outcome) { delivered = true }})
	require.NoError(t, s.Start(context.Background()))

	require.True(t, s.Submit(frame("f1")))
	require.Eventually(t, s.Busy, waitFor, tick)

	s.Stop()
	assert.Equal(t, StateStopped, s.State())
	fake.gate <- struct{}{}
	s.Wait()

	assert.False(t, delivered)
	stats := s.Stats()
	assert.Equal(t, uint64(1), stats.Processed)
	assert.Equal(t, uint64(1), stats.Discarded)
	assert.Equal(t, uint64(0), stats.Results)
}

func TestResumeAfterResult(t *testing.T) {
	results := make(chan *scanner.Outcome, 2)
	s := New(&fakeScanner{}, Options{OnResult: func(o *scanner.Outcome) { results <- o }})
	require.NoError(t, s.Start(context.Background()))
	defer s.Stop()

	s.Submit(frame("f1"))
	<-results
	require.Eventually(t, func() bool { return s.State() == StatePaused }, waitFor, tick)

	require.NoError(t, s.Resume())
	require.True(t, s.Submit(frame("f2")))
	select {
	case out := <-results:
		assert.Equal(t, "f2", out.Result.DocumentNumber)
	case <-time.After(waitFor):
		t.Fatal("no second result")
	}
}

func TestLifecycleErrors(t *testing.T) {
	s := New(&fakeScanner{}, Options{})
	assert.Equal(t, StateIdle, s.State())
	assert.False(t, s.Submit(frame("early")))

	assert.ErrorIs(t, s.Resume(), apperrors.ErrCameraNotReady)
	assert.ErrorIs(t, s.Pause(), apperrors.ErrCameraNotReady)

	require.NoError(t, s.Start(context.Background()))
	err := s.Start(context.Background())
	assert.ErrorIs(t, err, apperrors.ErrAlreadyRunning)
	assert.Equal(t, apperrors.CodeAlreadyRunning, apperrors.GetCode(err))

	require.NoError(t, s.Pause())
	assert.False(t, s.Submit(frame("paused")))
	require.NoError(t, s.Resume())

	s.Stop()
	s.Wait()
	assert.Equal(t, StateStopped, s.State())
	s.Stop() // idempotent
}

func TestContextCancellationStops(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	s := New(&fakeScanner{}, Options{})
	require.NoError(t, s.Start(ctx))

	cancel()
	require.Eventually(t, func() bool { return s.State() == StateStopped }, waitFor, tick)
	s.Wait()
}

func TestSetScanning(t *testing.T) {
	s := New(&fakeScanner{}, Options{})
	ctx := context.Background()

	require.NoError(t, s.SetScanning(ctx, true))
	assert.Equal(t, StateRunning, s.State())
	require.NoError(t, s.SetScanning(ctx, true))

	require.NoError(t, s.SetScanning(ctx, false))
	assert.Equal(t, StateStopped, s.State())

	require.NoError(t, s.SetScanning(ctx, true))
	assert.Equal(t, StateRunning, s.State())
	s.Stop()
	s.Wait()
}

func TestReportError(t *testing.T) {
	var got *apperrors.AppError
	s := New(&fakeScanner{}, Options{OnError: func(e *apperrors.AppError) { got = e }})

	s.ReportError(apperrors.Wrap(errors.New("lock failed"), apperrors.CodeConfigureError, "cannot configure camera"))
	require.NotNil(t, got)
	assert.Equal(t, "device/configure-error", got.Event()["code"])

	s.ReportError(errors.New("disk full"))
	assert.Equal(t, apperrors.CodeUnknown, got.Code)

	got = nil
	s.ReportError(nil)
	assert.Nil(t, got)
}

func TestMetricsRecorded(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := metrics.New(reg)
	results := make(chan *scanner.Outcome, 1)
	s := New(&fakeScanner{}, Options{Metrics: m, OnResult: func(o *scanner.Outcome) { results <- o }})
	require.NoError(t, s.Start(context.Background()))
	defer s.Stop()

	s.Submit(frame("f1"))
	<-results

	require.Eventually(t, func() bool {
		return testutil.ToFloat64(m.Results.WithLabelValues("TD3")) == 1
	}, waitFor, tick)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.FramesSubmitted))
	assert.Equal(t, 0.0, testutil.ToFloat64(m.Scanning))
}

func TestSessionIDs(t *testing.T) {
	a := New(&fakeScanner{}, Options{})
	b := New(&fakeScanner{}, Options{})
	assert.NotEmpty(t, a.ID())
	assert.NotEqual(t, a.ID(), b.ID())
}
