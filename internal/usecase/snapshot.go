package usecase

import (
	"sync"
	"time"

	"heliowatch/internal/domain/models"
)

// LatestSnapshot holds the most recent reading per instrument. The risk
// sampler and the API read from it; the collector writes to it.
type LatestSnapshot struct {
	mu       sync.RWMutex
	readings map[models.Instrument]models.InstrumentReading
}

// NewLatestSnapshot creates an empty snapshot store.
func NewLatestSnapshot() *LatestSnapshot {
	return &LatestSnapshot{
		readings: make(map[models.Instrument]models.InstrumentReading, models.InstrumentCount),
	}
}

// Update records the newest reading for its instrument. Readings older
// than the one already held are ignored.
func (s *LatestSnapshot) Update(r *models.InstrumentReading) {
	if r == nil || !models.IsValidInstrument(r.Instrument) {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if cur, ok := s.readings[r.Instrument]; ok && cur.Timestamp.After(r.Timestamp) {
		return
	}
	s.readings[r.Instrument] = *r
}

// Get returns the latest reading for one instrument.
func (s *LatestSnapshot) Get(id models.Instrument) (models.InstrumentReading, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.readings[id]
	return r, ok
}

// Snapshot returns a point-in-time copy of all held readings in
// canonical instrument order.
func (s *LatestSnapshot) Snapshot() models.Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]models.InstrumentReading, 0, len(s.readings))
	for _, id := range models.Instruments() {
		if r, ok := s.readings[id]; ok {
			out = append(out, r)
		}
	}
	return models.Snapshot{Readings: out, TakenAt: time.Now().UTC()}
}
