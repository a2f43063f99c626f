package httpapi

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var labelNames = []string{"route", "status"}

// Metrics holds the HTTP collectors and serves the registry they live in.
type Metrics struct {
	gatherer prometheus.Gatherer
	requests *prometheus.CounterVec
	duration *prometheus.HistogramVec
}

func NewMetrics(reg *prometheus.Registry) *Metrics {
	m := &Metrics{
		gatherer: reg,
		requests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "blobgate",
				Name:      "http_requests_total",
				Help:      "HTTP requests partitioned by route and status code.",
			},
			labelNames,
		),
		duration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "blobgate",
				Name:      "http_request_duration_seconds",
				Help:      "Time spent answering HTTP requests.",
				Buckets:   prometheus.DefBuckets,
			},
			labelNames,
		),
	}
	reg.MustRegister(m.requests, m.duration)
	return m
}

// Handler exposes the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.gatherer, promhttp.HandlerOpts{})
}
