// Package metrics holds the Prometheus instruments of a scanning session.
// A nil *Metrics is valid and records nothing.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "mrz"

type Metrics struct {
	FramesSubmitted prometheus.Counter
	FramesDropped   prometheus.Counter
	FramesProcessed prometheus.Counter
	Rejections      *prometheus.CounterVec
	Results         *prometheus.CounterVec
	Discarded       prometheus.Counter
	ScanDuration    prometheus.Histogram
	Scanning        prometheus.Gauge
}

// New registers the instruments with reg. Use a fresh registry per session
// in tests; prometheus.DefaultRegisterer panics on duplicate registration.
func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		FramesSubmitted: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Name: "frames_submitted_total",
			Help: "Frames offered to the scanning session.",
		}),
		FramesDropped: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Name: "frames_dropped_total",
			Help: "Frames dropped because the worker was busy or scanning was paused.",
		}),
		FramesProcessed: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Name: "frames_processed_total",
			Help: "Frames run through the MRZ pipeline.",
		}),
		Rejections: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Name: "frame_rejections_total",
			Help: "Frames that yielded no validated MRZ, by reason.",
		}, []string{"reason"}),
		Results: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Name: "results_total",
			Help: "Validated MRZ results delivered, by format.",
		}, []string{"format"}),
		Discarded: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Name: "results_discarded_total",
			Help: "Results discarded because scanning stopped while the frame was in flight.",
		}),
		ScanDuration: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace, Name: "scan_duration_seconds",
			Help:    "Pipeline duration per frame.",
			Buckets: prometheus.ExponentialBuckets(0.01, 2, 10),
		}),
		Scanning: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace, Name: "scanning",
			Help: "1 while the session accepts frames.",
		}),
	}
}

func (m *Metrics) Submitted() {
	if m != nil {
		m.FramesSubmitted.Inc()
	}
}

func (m *Metrics) Dropped() {
	if m != nil {
		m.FramesDropped.Inc()
	}
}

// Processed records one pipeline run. reason is empty for a validated
// result.
func (m *Metrics) Processed(d time.Duration, reason string) {
	if m == nil {
		return
	}
	m.FramesProcessed.Inc()
	m.ScanDuration.Observe(d.Seconds())
	if reason != "" {
		m.Rejections.WithLabelValues(reason).Inc()
	}
}

func (m *Metrics) Result(format string) {
	if m != nil {
		m.Results.WithLabelValues(format).Inc()
	}
}

func (m *Metrics) ResultDiscarded() {
	if m != nil {
		m.Discarded.Inc()
	}
}

func (m *Metrics) SetScanning(on bool) {
	if m == nil {
		return
	}
	if on {
		m.Scanning.Set(1)
	} else {
		m.Scanning.Set(0)
	}
}

// Handler serves the metrics gathered by g.
func Handler(g prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(g, promhttp.HandlerOpts{})
}
