package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	once sync.Once

	AnalysisLatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "heliowatch",
			Subsystem: "analysis",
			Name:      "latency_seconds",
			Help:      "Latency of analysis sections",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"section"},
	)

	AnalysisErrors = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "heliowatch",
			Subsystem: "analysis",
			Name:      "errors_total",
			Help:      "Errors by analysis section",
		},
		[]string{"section"},
	)

	AnalysisStaleServed = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "heliowatch",
			Subsystem: "analysis",
			Name:      "stale_served_total",
			Help:      "Sections served from the last good cached value",
		},
		[]string{"section"},
	)
)

func Register() {
	once.Do(func() {
		prometheus.MustRegister(AnalysisLatency, AnalysisErrors, AnalysisStaleServed)
	})
}
