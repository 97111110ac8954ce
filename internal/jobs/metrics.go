package jobmetrics

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics exposes Prometheus collectors for purge runs, whether triggered
// over HTTP or by the retention job.
type Metrics struct {
	runs     *prometheus.CounterVec
	failures *prometheus.CounterVec
	duration *prometheus.HistogramVec
	deleted  *prometheus.CounterVec
}

var (
	defaultOnce    sync.Once
	defaultMetrics *Metrics
)

// NewMetrics registers the metrics against the provided registerer. When the
// registerer is nil the default Prometheus registerer is used.
func NewMetrics(registerer prometheus.Registerer) *Metrics {
	if registerer == nil {
		defaultOnce.Do(func() {
			defaultMetrics = buildMetrics(prometheus.DefaultRegisterer)
		})
		return defaultMetrics
	}
	return buildMetrics(registerer)
}

// Tracker provides lifecycle instrumentation helpers for a single run.
type Tracker struct {
	metrics *Metrics
	mode    string
	start   time.Time
}

// Track spawns a tracker for a run of the given purge mode.
func (m *Metrics) Track(mode string) *Tracker {
	if m == nil {
		return &Tracker{mode: mode, start: time.Now()}
	}
	return &Tracker{metrics: m, mode: mode, start: time.Now()}
}

// End finalises the tracker, recording duration, success/failure counts and
// returning the provided error untouched.
func (t *Tracker) End(err error) error {
	if t == nil || t.metrics == nil || t.mode == "" {
		return err
	}
	status := "success"
	if err != nil {
		status = "failure"
		t.metrics.failures.WithLabelValues(t.mode).Inc()
	}
	t.metrics.runs.WithLabelValues(t.mode, status).Inc()
	t.metrics.duration.WithLabelValues(t.mode).Observe(time.Since(t.start).Seconds())
	return err
}

// AddDeleted counts records removed from collection.
func (m *Metrics) AddDeleted(collection string, count int) {
	if m == nil || count <= 0 {
		return
	}
	m.deleted.WithLabelValues(collection).Add(float64(count))
}

func buildMetrics(registerer prometheus.Registerer) *Metrics {
	runs := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "odyssey_purge_runs_total",
		Help: "Total purge runs partitioned by mode and status.",
	}, []string{"mode", "status"})
	failures := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "odyssey_purge_failures_total",
		Help: "Total purge runs aborted by a fatal error.",
	}, []string{"mode"})
	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "odyssey_purge_duration_seconds",
		Help:    "Duration in seconds of purge runs.",
		Buckets: prometheus.DefBuckets,
	}, []string{"mode"})
	deleted := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "odyssey_purge_deleted_records_total",
		Help: "Records deleted by purges grouped by collection.",
	}, []string{"collection"})
	registerer.MustRegister(runs, failures, duration, deleted)
	return &Metrics{runs: runs, failures: failures, duration: duration, deleted: deleted}
}
