package client

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Исходы запроса для метрик.
const (
	outcomeSuccess        = "success"
	outcomeEmpty          = "empty"
	outcomeDecodeLenient  = "decode_lenient"
	outcomeHTTPError      = "http_error"
	outcomeTransportError = "transport_error"
)

// Metrics - метрики API клиента. Регистрируются в переданном реестре,
// а не в глобальном prometheus.DefaultRegistry.
type Metrics struct {
	requests *prometheus.CounterVec
	duration *prometheus.HistogramVec
}

// NewMetrics регистрирует метрики клиента в reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		requests: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "novel_client_requests_total",
				Help: "Total number of requests to the story backend, partitioned by outcome.",
			},
			[]string{"method", "route", "outcome"},
		),
		duration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "novel_client_request_duration_seconds",
				Help:    "Histogram of story backend request durations.",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "route"},
		),
	}
}

func (m *Metrics) observe(method, route, outcome string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.requests.WithLabelValues(method, route, outcome).Inc()
	m.duration.WithLabelValues(method, route).Observe(elapsed.Seconds())
}
