package usecase

import (
	"context"
	"encoding/json"
	"time"

	"heliowatch/internal/domain/models"
	domrepo "heliowatch/internal/domain/repository"
	pkgkafka "heliowatch/pkg/kafka"
)

// KafkaReadingsHandler consumes published readings and writes them to
// storage. Used when the ingest backend is kafka and this process also
// runs the sink side.
type KafkaReadingsHandler struct {
	topic   string
	storage domrepo.Storage
	metrics domrepo.Metrics
}

func NewKafkaReadingsHandler(topic string, storage domrepo.Storage, metrics domrepo.Metrics) *KafkaReadingsHandler {
	return &KafkaReadingsHandler{topic: topic, storage: storage, metrics: metrics}
}

func (h *KafkaReadingsHandler) Topic() string { return h.topic }

// Handle decodes one published reading and stores it.
func (h *KafkaReadingsHandler) Handle(ctx context.Context, b []byte) error {
	var m struct {
		Instrument string  `json:"instrument"`
		Value      float64 `json:"value"`
		T          int64   `json:"t"`
		Event      bool    `json:"event"`
	}
	if err := json.Unmarshal(b, &m); err != nil {
		h.metrics.RecordError("consumer_unmarshal")
		return err
	}

	ts := time.UnixMilli(m.T).UTC()
	h.metrics.RecordLatency("ingest_e2e_seconds", time.Since(ts).Seconds())
	if m.Event {
		h.metrics.RecordEvent(models.Instrument(m.Instrument))
	}

	start := time.Now()
	err := h.storage.Store(ctx, &models.InstrumentReading{
		Instrument: models.Instrument(m.Instrument),
		Value:      m.Value,
		Timestamp:  ts,
	})
	h.metrics.RecordLatency("ch_insert_seconds", time.Since(start).Seconds())
	if err != nil {
		h.metrics.RecordError("consumer_store")
		return err
	}
	h.metrics.RecordMessageSent("clickhouse", models.Instrument(m.Instrument))
	return nil
}

var _ pkgkafka.MessageHandler = (*KafkaReadingsHandler)(nil)
