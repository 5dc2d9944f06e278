package usecase

import (
	"context"
	"sync"
	"testing"
	"time"

	"heliowatch/internal/domain/models"
	applogger "heliowatch/pkg/logger"

	"github.com/stretchr/testify/require"
)

func testLogger(t *testing.T) *applogger.Logger {
	t.Helper()
	l, err := applogger.New(&applogger.Config{Level: "error", Format: "json", Output: "stderr"})
	require.NoError(t, err)
	return l
}

func reading(id models.Instrument, value float64, at time.Time) models.InstrumentReading {
	return models.InstrumentReading{Instrument: id, Value: value, Timestamp: at}
}

// stubMetrics counts recorded errors by kind; everything else is a no-op.
type stubMetrics struct {
	mu     sync.Mutex
	errors map[string]int
	risks  int
	events map[models.Instrument]int
}

func newStubMetrics() *stubMetrics {
	return &stubMetrics{errors: make(map[string]int), events: make(map[models.Instrument]int)}
}

func (m *stubMetrics) RecordMessageSent(string, models.Instrument) {}

func (m *stubMetrics) RecordError(kind string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.errors[kind]++
}

func (m *stubMetrics) RecordReading(models.Instrument, float64) {}

func (m *stubMetrics) RecordEvent(id models.Instrument) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events[id]++
}

func (m *stubMetrics) eventCount(id models.Instrument) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.events[id]
}

func (m *stubMetrics) RecordRisk(float64, models.RiskLevel) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.risks++
}

func (m *stubMetrics) RecordLatency(string, float64) {}

func (m *stubMetrics) errorCount(kind string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.errors[kind]
}

func (m *stubMetrics) riskCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.risks
}

// stubPublisher captures published risk records and can be forced to fail.
type stubPublisher struct {
	mu      sync.Mutex
	risks   []models.RiskIndex
	riskErr error
}

func (p *stubPublisher) Publish(context.Context, *models.InstrumentReading) error { return nil }

func (p *stubPublisher) PublishBatch(context.Context, []*models.InstrumentReading) error {
	return nil
}

func (p *stubPublisher) PublishRisk(_ context.Context, ri *models.RiskIndex) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.riskErr != nil {
		return p.riskErr
	}
	p.risks = append(p.risks, *ri)
	return nil
}

func (p *stubPublisher) Close() error { return nil }

func (p *stubPublisher) published() []models.RiskIndex {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]models.RiskIndex, len(p.risks))
	copy(out, p.risks)
	return out
}
