package usecase

import (
	"sync"
	"time"

	"heliowatch/internal/cme"
	"heliowatch/internal/domain/models"
)

type trackedEvents struct {
	status        models.DetectionStatus
	eventCount    int
	lastEventTime time.Time
}

// EventTracker keeps per-instrument detection state across sampler
// ticks. Event counts increment on the transition into ACTIVE only, so
// a storm that stays above threshold for many ticks counts once.
type EventTracker struct {
	mu    sync.RWMutex
	state map[models.Instrument]*trackedEvents
}

// NewEventTracker creates an empty tracker.
func NewEventTracker() *EventTracker {
	return &EventTracker{state: make(map[models.Instrument]*trackedEvents, models.InstrumentCount)}
}

// Observe feeds one sampled reading through detection and updates the
// instrument's event counters.
func (t *EventTracker) Observe(r models.InstrumentReading, cfg cme.DetectorConfig) {
	status := cme.Detect(r, cfg)

	t.mu.Lock()
	defer t.mu.Unlock()
	s, ok := t.state[r.Instrument]
	if !ok {
		s = &trackedEvents{status: models.DetectionClear}
		t.state[r.Instrument] = s
	}
	if status == models.DetectionActive && s.status != models.DetectionActive {
		s.eventCount++
		s.lastEventTime = r.Timestamp
	}
	s.status = status
}

// Counters returns the running event count and last event time for one
// instrument, along with its latest detection status.
func (t *EventTracker) Counters(id models.Instrument) (models.DetectionStatus, int, time.Time) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	s, ok := t.state[id]
	if !ok {
		return models.DetectionClear, 0, time.Time{}
	}
	return s.status, s.eventCount, s.lastEventTime
}
