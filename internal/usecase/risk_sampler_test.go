package usecase

import (
	"context"
	"errors"
	"testing"
	"time"

	"heliowatch/internal/cme"
	"heliowatch/internal/domain/models"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fullSnapshot(t *testing.T, value float64) *LatestSnapshot {
	t.Helper()
	s := NewLatestSnapshot()
	now := time.Now().UTC()
	for _, id := range models.Instruments() {
		r := reading(id, value, now)
		s.Update(&r)
	}
	return s
}

func TestRiskSamplerTickComputesAndPublishes(t *testing.T) {
	snap := fullSnapshot(t, 70)
	pub := &stubPublisher{}
	m := newStubMetrics()
	s := NewRiskSampler(snap, NewEventTracker(), pub, m, testLogger(t),
		clockwork.NewFakeClock(), time.Second, cme.DefaultDetectorConfig())

	s.Tick(context.Background())

	ri, ok := s.Latest()
	require.True(t, ok)
	// mean 70 rescales to (70-40)/60*100 = 50
	assert.InDelta(t, 50.0, ri.Score, 1e-9)
	assert.Equal(t, models.RiskModerate, ri.Level)

	published := pub.published()
	require.Len(t, published, 1)
	assert.InDelta(t, 50.0, published[0].Score, 1e-9)
	assert.Equal(t, 1, m.riskCount())
}

func TestRiskSamplerSkipsIncompleteSnapshot(t *testing.T) {
	snap := NewLatestSnapshot()
	r := reading(models.InstrumentSTEP, 90, time.Now().UTC())
	snap.Update(&r)

	pub := &stubPublisher{}
	m := newStubMetrics()
	s := NewRiskSampler(snap, NewEventTracker(), pub, m, testLogger(t),
		clockwork.NewFakeClock(), time.Second, cme.DefaultDetectorConfig())

	s.Tick(context.Background())

	_, ok := s.Latest()
	assert.False(t, ok)
	assert.Empty(t, pub.published())
	assert.Equal(t, 1, m.errorCount("risk_compute"))
}

func TestRiskSamplerPublishFailureKeepsLatest(t *testing.T) {
	snap := fullSnapshot(t, 95)
	pub := &stubPublisher{riskErr: errors.New("broker down")}
	m := newStubMetrics()
	s := NewRiskSampler(snap, NewEventTracker(), pub, m, testLogger(t),
		clockwork.NewFakeClock(), time.Second, cme.DefaultDetectorConfig())

	s.Tick(context.Background())

	ri, ok := s.Latest()
	require.True(t, ok)
	assert.Equal(t, models.RiskExtreme, ri.Level)
	assert.Equal(t, 1, m.errorCount("risk_publish"))
}

func TestRiskSamplerFeedsEventTracker(t *testing.T) {
	snap := fullSnapshot(t, 90)
	tracker := NewEventTracker()
	s := NewRiskSampler(snap, tracker, nil, newStubMetrics(), testLogger(t),
		clockwork.NewFakeClock(), time.Second, cme.DefaultDetectorConfig())

	s.Tick(context.Background())

	for _, id := range models.Instruments() {
		status, count, _ := tracker.Counters(id)
		assert.Equal(t, models.DetectionActive, status)
		assert.Equal(t, 1, count)
	}
}

func TestRiskSamplerTicksOnClock(t *testing.T) {
	snap := fullSnapshot(t, 70)
	m := newStubMetrics()
	clock := clockwork.NewFakeClock()
	s := NewRiskSampler(snap, NewEventTracker(), nil, m, testLogger(t),
		clock, 5*time.Second, cme.DefaultDetectorConfig())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	s.Start(ctx)
	defer s.Stop()

	require.NoError(t, clock.BlockUntilContext(ctx, 1))
	clock.Advance(5 * time.Second)

	require.Eventually(t, func() bool {
		_, ok := s.Latest()
		return ok
	}, time.Second, 5*time.Millisecond)
}
