package metrics

import (
	"net/http"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestObserveRequest(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := MustNewHTTP(reg)

	m.ObserveRequest(http.MethodPost, "POST /run", http.StatusAccepted, 10*time.Millisecond)
	m.ObserveRequest(http.MethodPost, "POST /run", http.StatusAccepted, 20*time.Millisecond)
	m.ObserveRequest(http.MethodGet, "GET /status/{id}", http.StatusNotFound, time.Millisecond)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.requests.WithLabelValues("POST", "POST /run", "202")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.requests.WithLabelValues("GET", "GET /status/{id}", "404")))
	assert.Equal(t, 2, testutil.CollectAndCount(m.duration))
}

func TestNilHTTPIsNoop(t *testing.T) {
	var m *HTTP
	assert.NotPanics(t, func() {
		m.ObserveRequest(http.MethodGet, "/", http.StatusOK, time.Second)
	})
}
