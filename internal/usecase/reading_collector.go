package usecase

import (
	"context"
	"errors"

	"heliowatch/internal/domain/models"
	drepo "heliowatch/internal/domain/repository"
	mid "heliowatch/internal/middleware"
)

// ReadingCollector drives the telemetry stream: connect, subscribe, then
// fan readings through the pipeline while keeping the latest snapshot
// current for the sampler and the API.
type ReadingCollector struct {
	stream   drepo.TelemetryStream
	proc     *ReadingProcessor
	metrics  drepo.Metrics
	pipe     *mid.TelemetryPipeline
	snapshot *LatestSnapshot
}

// NewReadingCollector creates a collector.
func NewReadingCollector(stream drepo.TelemetryStream, proc *ReadingProcessor, metrics drepo.Metrics, pipe *mid.TelemetryPipeline, snapshot *LatestSnapshot) *ReadingCollector {
	return &ReadingCollector{stream: stream, proc: proc, metrics: metrics, pipe: pipe, snapshot: snapshot}
}

// IsConnected reports whether the stream is up.
func (c *ReadingCollector) IsConnected() bool {
	return c.stream.IsConnected()
}

// Start connects, subscribes, and launches the consume loop.
func (c *ReadingCollector) Start(ctx context.Context) error {
	if err := c.stream.Connect(ctx); err != nil {
		return err
	}
	if err := c.stream.Subscribe(ctx); err != nil {
		return err
	}
	if c.pipe != nil {
		c.pipe.Start(ctx)
	}
	readCh, errCh := c.stream.Read(ctx)
	go c.consume(ctx, readCh, errCh)
	return nil
}

func (c *ReadingCollector) consume(ctx context.Context, readCh <-chan *models.InstrumentReading, errCh <-chan error) {
	for {
		select {
		case <-ctx.Done():
			return
		case err := <-errCh:
			if err != nil {
				c.metrics.RecordError("stream")
				_ = c.stream.Reconnect(ctx)
			}
		case r := <-readCh:
			if r == nil {
				continue
			}
			if c.pipe != nil {
				// rejected readings stay out of the snapshot; readings
				// buffered on a downstream outage are still valid input
				// for the risk aggregate
				if err := c.pipe.Process(ctx, r); errors.Is(err, mid.ErrInvalidReading) {
					continue
				}
			} else {
				_ = c.proc.Process(ctx, r)
			}
			c.snapshot.Update(r)
		}
	}
}

// Processor returns the downstream processor for lifecycle management.
func (c *ReadingCollector) Processor() *ReadingProcessor { return c.proc }

// Shutdown stops the pipeline and closes the stream.
func (c *ReadingCollector) Shutdown(ctx context.Context) error {
	if c.pipe != nil {
		c.pipe.Stop()
	}
	return c.stream.Close()
}
