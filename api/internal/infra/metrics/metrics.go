package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// HTTP reports request counts and latencies per route.
type HTTP struct {
	requests *prometheus.CounterVec
	duration *prometheus.HistogramVec
}

func MustNewHTTP(reg prometheus.Registerer) *HTTP {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}

	requests := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "tasksim",
			Subsystem: "api",
			Name:      "http_requests_total",
			Help:      "Total number of handled HTTP requests.",
		},
		[]string{"method", "route", "code"},
	)
	duration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "tasksim",
			Subsystem: "api",
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency. /runsync includes the whole simulated run.",
			Buckets:   []float64{.005, .05, .25, 1, 5, 10, 20, 30, 45, 60, 120},
		},
		[]string{"method", "route"},
	)

	reg.MustRegister(requests, duration)

	return &HTTP{requests: requests, duration: duration}
}

func (m *HTTP) ObserveRequest(method, route string, status int, d time.Duration) {
	if m == nil {
		return
	}
	m.requests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	m.duration.WithLabelValues(method, route).Observe(d.Seconds())
}
