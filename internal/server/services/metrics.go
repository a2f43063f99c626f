package services

import (
	"github.com/prometheus/client_golang/prometheus"
)

const metricsNamespace = "blobgate"

// TranscodeMetrics counts transcode runs by the stage they ended in.
type TranscodeMetrics struct {
	runs           *prometheus.CounterVec
	encodeDuration prometheus.Histogram
	inFlight       prometheus.Gauge
}

func NewTranscodeMetrics(reg prometheus.Registerer) *TranscodeMetrics {
	m := &TranscodeMetrics{
		runs: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Name:      "transcodes_total",
				Help:      "Transcode runs partitioned by the stage they finished in.",
			},
			[]string{"stage"},
		),
		encodeDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: metricsNamespace,
				Name:      "encode_duration_seconds",
				Help:      "Time spent in the external encoder.",
				Buckets:   prometheus.ExponentialBuckets(0.5, 2, 10),
			},
		),
		inFlight: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: metricsNamespace,
				Name:      "encodes_in_flight",
				Help:      "Encoder processes currently running.",
			},
		),
	}
	reg.MustRegister(m.runs, m.encodeDuration, m.inFlight)
	return m
}
