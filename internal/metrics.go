package zbxchart

import (
	"fmt"
	"io"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/prometheus/common/expfmt"
)

// Metrics records front-end requests and chart bytes written by a ChartSession.
// Each Metrics owns its registry so several sessions never collide.
type Metrics struct {
	registry *prometheus.Registry

	requests *prometheus.CounterVec
	duration *prometheus.HistogramVec
	inFlight prometheus.Gauge
	bytes    *prometheus.CounterVec
	chunks   *prometheus.CounterVec
}

func NewMetrics() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "zbxchart",
			Name:      "http_requests_total",
			Help:      "Requests sent to the Zabbix front-end, by status code and method.",
		}, []string{"code", "method"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "zbxchart",
			Name:      "http_request_duration_seconds",
			Help:      "Time to response headers for front-end requests.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method"}),
		inFlight: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "zbxchart",
			Name:      "http_requests_in_flight",
			Help:      "Front-end requests currently awaiting a response.",
		}),
		bytes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "zbxchart",
			Name:      "chart_bytes_written_total",
			Help:      "Chart bytes written, by sink.",
		}, []string{"sink"}),
		chunks: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "zbxchart",
			Name:      "chart_chunks_written_total",
			Help:      "Non-empty chunks written, by sink.",
		}, []string{"sink"}),
	}
	m.registry.MustRegister(m.requests, m.duration, m.inFlight, m.bytes, m.chunks)
	return m
}

// InstrumentRoundTripper wraps next so every request is counted and timed
func (m *Metrics) InstrumentRoundTripper(next http.RoundTripper) http.RoundTripper {
	if next == nil {
		next = http.DefaultTransport
	}
	return promhttp.InstrumentRoundTripperInFlight(m.inFlight,
		promhttp.InstrumentRoundTripperCounter(m.requests,
			promhttp.InstrumentRoundTripperDuration(m.duration, next),
		),
	)
}

func (m *Metrics) observeChunk(sink string, n int) {
	m.bytes.WithLabelValues(sink).Add(float64(n))
	m.chunks.WithLabelValues(sink).Inc()
}

// WriteText encodes all collected metrics in the Prometheus text format
func (m *Metrics) WriteText(w io.Writer) error {
	families, err := m.registry.Gather()
	if err != nil {
		return fmt.Errorf("failed to gather metrics: %w", err)
	}
	enc := expfmt.NewEncoder(w, expfmt.FmtText)
	for _, mf := range families {
		if err := enc.Encode(mf); err != nil {
			return fmt.Errorf("failed to encode %s: %w", mf.GetName(), err)
		}
	}
	return nil
}
