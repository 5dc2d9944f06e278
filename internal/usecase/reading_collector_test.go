package usecase

import (
	"context"
	"errors"
	"testing"
	"time"

	"heliowatch/internal/domain/models"
	mid "heliowatch/internal/middleware"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeStream struct {
	readCh    chan *models.InstrumentReading
	errCh     chan error
	connected bool
}

func newFakeStream() *fakeStream {
	return &fakeStream{
		readCh: make(chan *models.InstrumentReading, 16),
		errCh:  make(chan error, 1),
	}
}

func (f *fakeStream) Connect(context.Context) error { f.connected = true; return nil }
func (f *fakeStream) Subscribe(context.Context) error { return nil }

func (f *fakeStream) Read(context.Context) (<-chan *models.InstrumentReading, <-chan error) {
	return f.readCh, f.errCh
}

func (f *fakeStream) Reconnect(context.Context) error { return nil }
func (f *fakeStream) Close() error                    { f.connected = false; return nil }
func (f *fakeStream) IsConnected() bool               { return f.connected }

type sinkProc struct{ err error }

func (p *sinkProc) Process(context.Context, *models.InstrumentReading) error { return p.err }

func TestCollectorKeepsInvalidReadingsOutOfSnapshot(t *testing.T) {
	stream := newFakeStream()
	snap := NewLatestSnapshot()
	pipe := mid.NewTelemetryPipeline(&sinkProc{}, newStubMetrics())
	c := NewReadingCollector(stream, nil, newStubMetrics(), pipe, snap)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	require.NoError(t, c.Start(ctx))
	defer func() { _ = c.Shutdown(ctx) }()

	// zero timestamp fails validation, the MAG reading is fine
	stream.readCh <- &models.InstrumentReading{Instrument: models.InstrumentSTEP, Value: 50}
	stream.readCh <- &models.InstrumentReading{Instrument: models.InstrumentMAG, Value: 60, Timestamp: time.Now().UTC()}

	require.Eventually(t, func() bool {
		_, ok := snap.Get(models.InstrumentMAG)
		return ok
	}, time.Second, 5*time.Millisecond)

	_, ok := snap.Get(models.InstrumentSTEP)
	assert.False(t, ok)
}

func TestCollectorSnapshotsValidReadingOnDownstreamOutage(t *testing.T) {
	stream := newFakeStream()
	snap := NewLatestSnapshot()
	pipe := mid.NewTelemetryPipeline(&sinkProc{err: errors.New("backend down")}, newStubMetrics())
	c := NewReadingCollector(stream, nil, newStubMetrics(), pipe, snap)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	require.NoError(t, c.Start(ctx))
	defer func() { _ = c.Shutdown(ctx) }()

	stream.readCh <- &models.InstrumentReading{Instrument: models.InstrumentSUIT, Value: 70, Timestamp: time.Now().UTC()}

	// the reading is buffered for retry downstream but still feeds the
	// risk aggregate
	require.Eventually(t, func() bool {
		r, ok := snap.Get(models.InstrumentSUIT)
		return ok && r.Value == 70
	}, time.Second, 5*time.Millisecond)
}
