package metrics

import (
	"time"

	"github.com/you-humble/tasksim/core/job"

	"github.com/prometheus/client_golang/prometheus"
)

// Jobs reports job executions by outcome.
type Jobs struct {
	processed *prometheus.CounterVec
	duration  prometheus.Histogram
	active    prometheus.Gauge
}

func MustNewJobs(reg prometheus.Registerer) *Jobs {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}

	processed := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "tasksim",
			Subsystem: "distributor",
			Name:      "jobs_processed_total",
			Help:      "Total number of executed jobs by final status.",
		},
		[]string{"status"},
	)
	duration := prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "tasksim",
			Subsystem: "distributor",
			Name:      "job_duration_seconds",
			Help:      "Wall time of one job execution.",
			Buckets:   []float64{1, 5, 10, 20, 30, 45, 60, 90, 120},
		},
	)
	active := prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "tasksim",
			Subsystem: "distributor",
			Name:      "jobs_active",
			Help:      "Number of jobs currently executing.",
		},
	)

	reg.MustRegister(processed, duration, active)

	return &Jobs{processed: processed, duration: duration, active: active}
}

func (m *Jobs) JobStarted() {
	m.active.Inc()
}

func (m *Jobs) JobFinished(status job.Status, d time.Duration) {
	m.active.Dec()
	m.processed.WithLabelValues(string(status)).Inc()
	m.duration.Observe(d.Seconds())
}
