package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"heliowatch/internal/domain/models"
)

// Recorder implements domain.repository.Metrics using Prometheus.
type Recorder struct {
	messagesSent *prometheus.CounterVec
	errorsTotal  *prometheus.CounterVec
	lastReading  *prometheus.GaugeVec
	eventTicks   *prometheus.CounterVec
	riskScore    prometheus.Gauge
	riskLevel    *prometheus.GaugeVec
	latency      *prometheus.HistogramVec
}

// New creates a new Prometheus metrics recorder.
func New() *Recorder {
	return &Recorder{
		messagesSent: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "heliowatch_messages_sent_total",
				Help: "Total number of messages sent to backend",
			},
			[]string{"backend", "instrument"},
		),
		errorsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "heliowatch_errors_total",
				Help: "Total number of errors encountered",
			},
			[]string{"type"},
		),
		lastReading: promauto.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "heliowatch_last_reading",
				Help: "Last recorded reading value for an instrument",
			},
			[]string{"instrument"},
		),
		eventTicks: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "heliowatch_event_ticks_total",
				Help: "Published ticks carrying the binary event flag",
			},
			[]string{"instrument"},
		),
		riskScore: promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "heliowatch_risk_score",
				Help: "Current unified CME risk score (0-100)",
			},
		),
		riskLevel: promauto.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "heliowatch_risk_level",
				Help: "Current risk level as a one-hot gauge per band",
			},
			[]string{"level"},
		),
		latency: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "heliowatch_operation_duration_seconds",
				Help:    "Duration of operations in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"operation"},
		),
	}
}

// RecordMessageSent records a message sent to a backend.
func (r *Recorder) RecordMessageSent(backend string, id models.Instrument) {
	r.messagesSent.WithLabelValues(backend, string(id)).Inc()
}

// RecordError records an error occurrence.
func (r *Recorder) RecordError(kind string) {
	r.errorsTotal.WithLabelValues(kind).Inc()
}

// RecordReading records the latest reading value for an instrument.
func (r *Recorder) RecordReading(id models.Instrument, value float64) {
	r.lastReading.WithLabelValues(string(id)).Set(value)
}

// RecordEvent records a tick whose value crossed the event threshold.
func (r *Recorder) RecordEvent(id models.Instrument) {
	r.eventTicks.WithLabelValues(string(id)).Inc()
}

// RecordRisk records the current unified risk index.
func (r *Recorder) RecordRisk(score float64, level models.RiskLevel) {
	r.riskScore.Set(score)
	for _, l := range []models.RiskLevel{models.RiskLow, models.RiskModerate, models.RiskHigh, models.RiskExtreme} {
		v := 0.0
		if l == level {
			v = 1
		}
		r.riskLevel.WithLabelValues(string(l)).Set(v)
	}
}

// RecordLatency records operation latency in seconds.
func (r *Recorder) RecordLatency(op string, seconds float64) {
	r.latency.WithLabelValues(op).Observe(seconds)
}
