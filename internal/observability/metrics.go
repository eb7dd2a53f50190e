// Package observability records reconcile outcomes as Prometheus metrics and
// writes them in the node-exporter textfile format.
package observability

import (
	"time"

	"github.com/danmuck/hostctl/internal/logging"
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "hostctl"

// Recorder collects metrics for one process run. A nil *Recorder is valid and
// records nothing.
type Recorder struct {
	registry *prometheus.Registry

	operations  *prometheus.CounterVec
	lastRun     prometheus.Gauge
	lastSuccess prometheus.Gauge
	runDuration prometheus.Gauge
}

func NewRecorder() *Recorder {
	r := &Recorder{
		registry: prometheus.NewRegistry(),
		operations: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "reconcile",
				Name:      "operations_total",
				Help:      "Reconcile status events by operation and status.",
			},
			[]string{"op", "status"},
		),
		lastRun: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "reconcile",
			Name:      "last_run_timestamp_seconds",
			Help:      "Unix time the last run finished.",
		}),
		lastSuccess: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "reconcile",
			Name:      "last_run_success",
			Help:      "1 if the last run converged without errors, 0 otherwise.",
		}),
		runDuration: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "reconcile",
			Name:      "last_run_duration_seconds",
			Help:      "Wall time of the last run.",
		}),
	}
	r.registry.MustRegister(r.operations, r.lastRun, r.lastSuccess, r.runDuration)
	return r
}

func (r *Recorder) RecordOperation(op string, status logging.Status) {
	if r == nil {
		return
	}
	r.operations.WithLabelValues(op, string(status)).Inc()
}

// RecordRun stores the outcome of a run that started at start.
func (r *Recorder) RecordRun(start time.Time, err error) {
	if r == nil {
		return
	}
	now := time.Now()
	r.lastRun.Set(float64(now.Unix()))
	r.runDuration.Set(now.Sub(start).Seconds())
	if err != nil {
		r.lastSuccess.Set(0)
		return
	}
	r.lastSuccess.Set(1)
}

// WriteTextfile atomically replaces path with the current metric values.
func (r *Recorder) WriteTextfile(path string) error {
	if r == nil {
		return nil
	}
	return prometheus.WriteToTextfile(path, r.registry)
}
