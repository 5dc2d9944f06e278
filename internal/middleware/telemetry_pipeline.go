package middleware

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sync"
	"time"

	"heliowatch/internal/cme"
	"heliowatch/internal/domain/models"
	domrepo "heliowatch/internal/domain/repository"
)

// Proc is the downstream processor the pipeline feeds.
type Proc interface {
	Process(ctx context.Context, r *models.InstrumentReading) error
}

// ErrInvalidReading marks readings rejected by validation, as opposed
// to valid readings that failed downstream and were buffered.
var ErrInvalidReading = errors.New("invalid reading")

// TelemetryPipeline sits between the ground-station stream and the
// processor. It validates and normalizes readings, throttles chatty
// instruments, and buffers when downstream is unavailable.
type TelemetryPipeline struct {
	proc    Proc
	metrics domrepo.Metrics
	maxRPS  int
	bufSize int
	bufCh   chan *models.InstrumentReading
	stopCh  chan struct{}
	started bool

	mu       sync.Mutex
	lastSeen map[models.Instrument]time.Time
}

type PipelineOption func(*TelemetryPipeline)

// WithMaxRPS caps accepted readings per second per instrument.
func WithMaxRPS(n int) PipelineOption {
	return func(p *TelemetryPipeline) {
		if n > 0 {
			p.maxRPS = n
		}
	}
}

// WithBufferSize sets the holding buffer capacity for downstream outages.
func WithBufferSize(n int) PipelineOption {
	return func(p *TelemetryPipeline) {
		if n > 0 {
			p.bufSize = n
		}
	}
}

// NewTelemetryPipeline creates a pipeline in front of proc.
func NewTelemetryPipeline(proc Proc, metrics domrepo.Metrics, opts ...PipelineOption) *TelemetryPipeline {
	p := &TelemetryPipeline{
		proc:     proc,
		metrics:  metrics,
		maxRPS:   20,
		bufSize:  1000,
		stopCh:   make(chan struct{}),
		lastSeen: make(map[models.Instrument]time.Time),
	}
	for _, opt := range opts {
		opt(p)
	}
	p.bufCh = make(chan *models.InstrumentReading, p.bufSize)
	return p
}

// Start launches background draining of buffered readings.
func (p *TelemetryPipeline) Start(ctx context.Context) {
	p.mu.Lock()
	if p.started {
		p.mu.Unlock()
		return
	}
	p.started = true
	p.mu.Unlock()

	go func() {
		backoff := 50 * time.Millisecond
		for {
			select {
			case <-p.stopCh:
				return
			case r := <-p.bufCh:
				if r == nil {
					continue
				}
				if err := p.proc.Process(ctx, r); err != nil {
					if backoff < 2*time.Second {
						backoff *= 2
					}
					p.metrics.RecordError("pipeline_flush")
					time.Sleep(backoff)
					// requeue if there is room, drop otherwise
					select {
					case p.bufCh <- r:
					default:
						p.metrics.RecordError("pipeline_buffer_drop")
					}
				} else {
					backoff = 50 * time.Millisecond
				}
			}
		}
	}()
}

// Stop halts the background drain loop.
func (p *TelemetryPipeline) Stop() {
	p.mu.Lock()
	if !p.started {
		p.mu.Unlock()
		return
	}
	p.started = false
	p.mu.Unlock()
	close(p.stopCh)
}

// Process validates and normalizes one reading, then hands it downstream,
// buffering it when downstream fails.
func (p *TelemetryPipeline) Process(ctx context.Context, r *models.InstrumentReading) error {
	start := time.Now()
	if err := validateReading(r); err != nil {
		p.metrics.RecordError("pipeline_validate")
		return err
	}
	r.Value = cme.ClampValue(r.Value)

	if !p.allow(r.Instrument, start) {
		p.metrics.RecordError("pipeline_throttle")
		return nil
	}

	if err := p.proc.Process(ctx, r); err != nil {
		p.metrics.RecordError("pipeline_process")
		select {
		case p.bufCh <- r:
			p.metrics.RecordLatency("pipeline_buffer_depth", float64(len(p.bufCh)))
		default:
			p.metrics.RecordError("pipeline_buffer_full")
		}
		return fmt.Errorf("pipeline downstream: %w", err)
	}

	p.metrics.RecordReading(r.Instrument, r.Value)
	p.metrics.RecordLatency("pipeline_process", time.Since(start).Seconds())
	return nil
}

func validateReading(r *models.InstrumentReading) error {
	if r == nil {
		return fmt.Errorf("%w: nil", ErrInvalidReading)
	}
	if !models.IsValidInstrument(r.Instrument) {
		return fmt.Errorf("%w: unknown instrument %q", ErrInvalidReading, r.Instrument)
	}
	if r.Timestamp.IsZero() {
		return fmt.Errorf("%w: timestamp missing", ErrInvalidReading)
	}
	if math.IsInf(r.Value, 0) {
		return fmt.Errorf("%w: value not finite", ErrInvalidReading)
	}
	return nil
}

// allow enforces at most maxRPS accepted readings per second per
// instrument.
func (p *TelemetryPipeline) allow(ins models.Instrument, now time.Time) bool {
	if p.maxRPS <= 0 {
		return true
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	last := p.lastSeen[ins]
	if !last.IsZero() && now.Sub(last) < time.Second/time.Duration(p.maxRPS) {
		return false
	}
	p.lastSeen[ins] = now
	return true
}
