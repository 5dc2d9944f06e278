package repository

import (
	"context"
	"time"

	"heliowatch/internal/domain/models"
)

// TelemetryStream is the live feed of instrument readings from the
// ground-station relay.
type TelemetryStream interface {
	Connect(ctx context.Context) error
	Subscribe(ctx context.Context) error
	Read(ctx context.Context) (<-chan *models.InstrumentReading, <-chan error)
	Reconnect(ctx context.Context) error
	Close() error
	IsConnected() bool
}

// Publisher forwards readings and risk records to the message bus.
type Publisher interface {
	Publish(ctx context.Context, r *models.InstrumentReading) error
	PublishBatch(ctx context.Context, readings []*models.InstrumentReading) error
	PublishRisk(ctx context.Context, ri *models.RiskIndex) error
	Close() error
}

// Storage persists the reading history.
type Storage interface {
	Store(ctx context.Context, r *models.InstrumentReading) error
	StoreBatch(ctx context.Context, readings []*models.InstrumentReading) error
	Query(ctx context.Context, id models.Instrument, from, to time.Time, limit int) ([]*models.InstrumentReading, error)
	GetLatestN(ctx context.Context, id models.Instrument, n int) ([]*models.InstrumentReading, error)
	Health(ctx context.Context) error
	Close() error
}

// Metrics records operational telemetry.
type Metrics interface {
	RecordMessageSent(backend string, id models.Instrument)
	RecordError(kind string)
	RecordReading(id models.Instrument, value float64)
	RecordEvent(id models.Instrument)
	RecordRisk(score float64, level models.RiskLevel)
	RecordLatency(op string, seconds float64)
}
