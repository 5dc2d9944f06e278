package usecase

import (
	"context"
	"fmt"
	"time"

	"heliowatch/internal/domain/models"
	drepo "heliowatch/internal/domain/repository"
)

// ReadingProcessor routes validated readings to the configured backend,
// either the Kafka bus or direct ClickHouse storage.
type ReadingProcessor struct {
	pub     drepo.Publisher
	store   drepo.Storage
	metrics drepo.Metrics
	backend string
}

// NewReadingProcessor creates a processor for the given backend name.
func NewReadingProcessor(pub drepo.Publisher, store drepo.Storage, metrics drepo.Metrics, backend string) *ReadingProcessor {
	return &ReadingProcessor{pub: pub, store: store, metrics: metrics, backend: backend}
}

// Process routes one reading.
func (p *ReadingProcessor) Process(ctx context.Context, r *models.InstrumentReading) error {
	if r == nil {
		return fmt.Errorf("reading is nil")
	}

	start := time.Now()
	var err error
	switch p.backend {
	case "kafka":
		err = p.pub.Publish(ctx, r)
	case "clickhouse":
		err = p.store.Store(ctx, r)
	default:
		err = fmt.Errorf("unknown backend: %s", p.backend)
	}
	if err != nil {
		p.metrics.RecordError("process")
		return fmt.Errorf("process reading: %w", err)
	}

	p.metrics.RecordMessageSent(p.backend, r.Instrument)
	p.metrics.RecordLatency("process", time.Since(start).Seconds())
	return nil
}

// ProcessBatch routes a batch of readings in one call.
func (p *ReadingProcessor) ProcessBatch(ctx context.Context, readings []*models.InstrumentReading) error {
	if len(readings) == 0 {
		return nil
	}

	start := time.Now()
	var err error
	switch p.backend {
	case "kafka":
		err = p.pub.PublishBatch(ctx, readings)
	case "clickhouse":
		err = p.store.StoreBatch(ctx, readings)
	default:
		err = fmt.Errorf("unknown backend: %s", p.backend)
	}
	if err != nil {
		p.metrics.RecordError("process_batch")
		return fmt.Errorf("process batch: %w", err)
	}

	for _, r := range readings {
		p.metrics.RecordMessageSent(p.backend, r.Instrument)
	}
	p.metrics.RecordLatency("process_batch", time.Since(start).Seconds())
	return nil
}

// Close releases the backend resources.
func (p *ReadingProcessor) Close() {
	if p.pub != nil {
		_ = p.pub.Close()
	}
	if p.store != nil {
		_ = p.store.Close()
	}
}
