package usecase

import (
	"testing"
	"time"

	"heliowatch/internal/domain/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLatestSnapshotUpdateAndGet(t *testing.T) {
	s := NewLatestSnapshot()
	now := time.Now().UTC()

	r := reading(models.InstrumentMAG, 42, now)
	s.Update(&r)

	got, ok := s.Get(models.InstrumentMAG)
	require.True(t, ok)
	assert.Equal(t, 42.0, got.Value)

	_, ok = s.Get(models.InstrumentSTEP)
	assert.False(t, ok)
}

func TestLatestSnapshotIgnoresOlderReading(t *testing.T) {
	s := NewLatestSnapshot()
	now := time.Now().UTC()

	newer := reading(models.InstrumentSUIT, 80, now)
	older := reading(models.InstrumentSUIT, 10, now.Add(-time.Minute))
	s.Update(&newer)
	s.Update(&older)

	got, ok := s.Get(models.InstrumentSUIT)
	require.True(t, ok)
	assert.Equal(t, 80.0, got.Value)
}

func TestLatestSnapshotRejectsInvalid(t *testing.T) {
	s := NewLatestSnapshot()
	s.Update(nil)
	bogus := reading("CASSINI", 50, time.Now())
	s.Update(&bogus)

	assert.Empty(t, s.Snapshot().Readings)
}

func TestLatestSnapshotCanonicalOrder(t *testing.T) {
	s := NewLatestSnapshot()
	now := time.Now().UTC()

	// insert out of order
	for _, id := range []models.Instrument{models.InstrumentSWISS, models.InstrumentSTEP, models.InstrumentMAG} {
		r := reading(id, 50, now)
		s.Update(&r)
	}

	snap := s.Snapshot()
	require.Len(t, snap.Readings, 3)
	assert.Equal(t, models.InstrumentSTEP, snap.Readings[0].Instrument)
	assert.Equal(t, models.InstrumentMAG, snap.Readings[1].Instrument)
	assert.Equal(t, models.InstrumentSWISS, snap.Readings[2].Instrument)
	assert.False(t, snap.TakenAt.IsZero())
}
