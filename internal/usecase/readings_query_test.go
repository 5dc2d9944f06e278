package usecase

import (
	"context"
	"testing"
	"time"

	"heliowatch/internal/domain/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// stubStorage records the Query arguments it was called with.
type stubStorage struct {
	lastFrom  time.Time
	lastTo    time.Time
	lastLimit int
}

func (s *stubStorage) Store(context.Context, *models.InstrumentReading) error        { return nil }
func (s *stubStorage) StoreBatch(context.Context, []*models.InstrumentReading) error { return nil }

func (s *stubStorage) Query(_ context.Context, _ models.Instrument, from, to time.Time, limit int) ([]*models.InstrumentReading, error) {
	s.lastFrom, s.lastTo, s.lastLimit = from, to, limit
	return []*models.InstrumentReading{}, nil
}

func (s *stubStorage) GetLatestN(_ context.Context, _ models.Instrument, n int) ([]*models.InstrumentReading, error) {
	s.lastLimit = n
	return []*models.InstrumentReading{}, nil
}

func (s *stubStorage) Health(context.Context) error { return nil }
func (s *stubStorage) Close() error                 { return nil }

func TestReadingsQueryDefaultsWindowAndLimit(t *testing.T) {
	store := &stubStorage{}
	uc := NewReadingsQueryUseCase(store)

	_, err := uc.Query(context.Background(), QueryParams{Instrument: models.InstrumentMAG})
	require.NoError(t, err)

	assert.Equal(t, defaultReadingsLimit, store.lastLimit)
	assert.WithinDuration(t, time.Now().UTC(), store.lastTo, time.Second)
	assert.WithinDuration(t, store.lastTo.Add(-time.Hour), store.lastFrom, time.Second)
}

func TestReadingsQueryCapsLimit(t *testing.T) {
	store := &stubStorage{}
	uc := NewReadingsQueryUseCase(store)

	_, err := uc.Query(context.Background(), QueryParams{Instrument: models.InstrumentMAG, Limit: 50000})
	require.NoError(t, err)
	assert.Equal(t, maxReadingsLimit, store.lastLimit)
}

func TestReadingsQueryRejectsInvertedWindow(t *testing.T) {
	uc := NewReadingsQueryUseCase(&stubStorage{})
	now := time.Now().UTC()

	_, err := uc.Query(context.Background(), QueryParams{
		Instrument: models.InstrumentMAG,
		From:       now,
		To:         now.Add(-time.Hour),
	})
	assert.Error(t, err)
}

func TestReadingsQueryRejectsUnknownInstrument(t *testing.T) {
	uc := NewReadingsQueryUseCase(&stubStorage{})

	_, err := uc.Query(context.Background(), QueryParams{Instrument: "HUBBLE"})
	assert.Error(t, err)
}

func TestInstrumentStatusListCoversAllInstruments(t *testing.T) {
	snap := NewLatestSnapshot()
	r := reading(models.InstrumentSUIT, 72, time.Now().UTC())
	snap.Update(&r)

	uc := NewInstrumentStatusUseCase(snap, NewEventTracker())
	rows := uc.List()

	require.Len(t, rows, models.InstrumentCount)
	for i, id := range models.Instruments() {
		assert.Equal(t, id, rows[i].Instrument)
	}

	// SUIT has a reading, the rest do not
	assert.NotNil(t, rows[1].Reading)
	assert.Nil(t, rows[0].Reading)
	assert.Equal(t, models.DetectionClear, rows[0].Status)
}
