package usecase

import (
	"heliowatch/internal/domain/models"
)

// InstrumentStatusUseCase produces the dashboard list rows: latest
// reading plus the tracker's detection state for every instrument.
type InstrumentStatusUseCase struct {
	snapshot *LatestSnapshot
	tracker  *EventTracker
}

// NewInstrumentStatusUseCase creates the listing use case.
func NewInstrumentStatusUseCase(snapshot *LatestSnapshot, tracker *EventTracker) *InstrumentStatusUseCase {
	return &InstrumentStatusUseCase{snapshot: snapshot, tracker: tracker}
}

// List returns one row per instrument in canonical order. Instruments
// without a reading yet appear with a nil reading and CLEAR status.
func (uc *InstrumentStatusUseCase) List() []models.InstrumentStatus {
	rows := make([]models.InstrumentStatus, 0, models.InstrumentCount)
	for _, id := range models.Instruments() {
		row := models.InstrumentStatus{Instrument: id, Status: models.DetectionClear}
		if r, ok := uc.snapshot.Get(id); ok {
			row.Reading = &r
		}
		status, count, lastAt := uc.tracker.Counters(id)
		row.Status = status
		row.EventCount = count
		row.LastEventTime = lastAt
		rows = append(rows, row)
	}
	return rows
}
