package middleware

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"heliowatch/internal/domain/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeProc struct {
	mu       sync.Mutex
	got      []*models.InstrumentReading
	failNext bool
}

func (f *fakeProc) Process(_ context.Context, r *models.InstrumentReading) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failNext {
		return errors.New("downstream down")
	}
	f.got = append(f.got, r)
	return nil
}

func (f *fakeProc) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.got)
}

type nopMetrics struct {
	mu     sync.Mutex
	errors map[string]int
}

func newNopMetrics() *nopMetrics {
	return &nopMetrics{errors: make(map[string]int)}
}

func (m *nopMetrics) RecordMessageSent(string, models.Instrument) {}
func (m *nopMetrics) RecordReading(models.Instrument, float64)    {}
func (m *nopMetrics) RecordEvent(models.Instrument)               {}
func (m *nopMetrics) RecordRisk(float64, models.RiskLevel)        {}
func (m *nopMetrics) RecordLatency(string, float64)               {}

func (m *nopMetrics) RecordError(kind string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.errors[kind]++
}

func (m *nopMetrics) errCount(kind string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.errors[kind]
}

func reading(ins models.Instrument, v float64) *models.InstrumentReading {
	return &models.InstrumentReading{Instrument: ins, Value: v, Timestamp: time.Now()}
}

func TestPipelineForwardsValidReading(t *testing.T) {
	proc := &fakeProc{}
	p := NewTelemetryPipeline(proc, newNopMetrics())

	err := p.Process(context.Background(), reading(models.InstrumentMAG, 42.5))
	require.NoError(t, err)
	require.Equal(t, 1, proc.count())
	assert.Equal(t, 42.5, proc.got[0].Value)
}

func TestPipelineRejectsInvalidReading(t *testing.T) {
	proc := &fakeProc{}
	m := newNopMetrics()
	p := NewTelemetryPipeline(proc, m)

	err := p.Process(context.Background(), &models.InstrumentReading{Instrument: "GONIO", Value: 1, Timestamp: time.Now()})
	require.ErrorIs(t, err, ErrInvalidReading)

	err = p.Process(context.Background(), &models.InstrumentReading{Instrument: models.InstrumentSTEP, Value: 1})
	require.ErrorIs(t, err, ErrInvalidReading)

	assert.Equal(t, 0, proc.count())
	assert.Equal(t, 2, m.errCount("pipeline_validate"))
}

func TestPipelineClampsOutOfRangeValues(t *testing.T) {
	proc := &fakeProc{}
	p := NewTelemetryPipeline(proc, newNopMetrics())

	require.NoError(t, p.Process(context.Background(), reading(models.InstrumentSUIT, 250)))
	require.NoError(t, p.Process(context.Background(), reading(models.InstrumentSoLEXS, -10)))

	require.Equal(t, 2, proc.count())
	assert.Equal(t, 100.0, proc.got[0].Value)
	assert.Equal(t, 0.0, proc.got[1].Value)
}

func TestPipelineThrottlesPerInstrument(t *testing.T) {
	proc := &fakeProc{}
	m := newNopMetrics()
	p := NewTelemetryPipeline(proc, m, WithMaxRPS(1))

	// second reading for the same instrument lands inside the window
	require.NoError(t, p.Process(context.Background(), reading(models.InstrumentPAPA, 10)))
	require.NoError(t, p.Process(context.Background(), reading(models.InstrumentPAPA, 11)))
	// a different instrument is not affected
	require.NoError(t, p.Process(context.Background(), reading(models.InstrumentSWISS, 12)))

	assert.Equal(t, 2, proc.count())
	assert.Equal(t, 1, m.errCount("pipeline_throttle"))
}

func TestPipelineBuffersOnDownstreamFailure(t *testing.T) {
	proc := &fakeProc{failNext: true}
	m := newNopMetrics()
	p := NewTelemetryPipeline(proc, m, WithBufferSize(4))

	err := p.Process(context.Background(), reading(models.InstrumentSTEP, 30))
	require.Error(t, err)
	assert.Equal(t, 1, m.errCount("pipeline_process"))
	assert.Equal(t, 1, len(p.bufCh))

	// once downstream recovers the drain loop delivers the buffered reading
	proc.mu.Lock()
	proc.failNext = false
	proc.mu.Unlock()

	p.Start(context.Background())
	defer p.Stop()

	require.Eventually(t, func() bool { return proc.count() == 1 }, time.Second, 10*time.Millisecond)
}
