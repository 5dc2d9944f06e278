package repository

import (
	"context"

	"heliowatch/internal/cme"
	"heliowatch/internal/domain/models"
	domrepo "heliowatch/internal/domain/repository"
	pkgkafka "heliowatch/pkg/kafka"
)

// KafkaPublisher implements Publisher over the Kafka bus. Readings and
// risk records go to separate topics; reading keys are the instrument
// name so per-instrument order is preserved with the hash balancer.
// Each published tick carries the binary event flag derived from the
// detector config.
type KafkaPublisher struct {
	producer  *pkgkafka.Producer
	topic     string
	riskTopic string
	detCfg    cme.DetectorConfig
}

// NewKafkaPublisher creates a publisher.
func NewKafkaPublisher(producer *pkgkafka.Producer, topic, riskTopic string, detCfg cme.DetectorConfig) domrepo.Publisher {
	return &KafkaPublisher{producer: producer, topic: topic, riskTopic: riskTopic, detCfg: detCfg}
}

func (p *KafkaPublisher) readingPayload(r *models.InstrumentReading) map[string]interface{} {
	return map[string]interface{}{
		"instrument": string(r.Instrument),
		"value":      r.Value,
		"t":          r.Timestamp.UnixMilli(),
		"event":      cme.IsEvent(*r, p.detCfg),
	}
}

func (p *KafkaPublisher) Publish(ctx context.Context, r *models.InstrumentReading) error {
	return p.producer.Publish(ctx, p.topic, []byte(r.Instrument), p.readingPayload(r))
}

func (p *KafkaPublisher) PublishBatch(ctx context.Context, readings []*models.InstrumentReading) error {
	if len(readings) == 0 {
		return nil
	}
	msgs := make([]pkgkafka.Message, len(readings))
	for i, r := range readings {
		msgs[i] = pkgkafka.Message{Key: []byte(r.Instrument), Value: p.readingPayload(r)}
	}
	return p.producer.PublishBatch(ctx, p.topic, msgs)
}

func (p *KafkaPublisher) PublishRisk(ctx context.Context, ri *models.RiskIndex) error {
	return p.producer.Publish(ctx, p.riskTopic, []byte("risk"), map[string]interface{}{
		"score": ri.Score,
		"level": string(ri.Level),
		"t":     ri.Timestamp.UnixMilli(),
	})
}

func (p *KafkaPublisher) Close() error {
	if p.producer != nil {
		return p.producer.Close()
	}
	return nil
}
