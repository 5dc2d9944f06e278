package usecase

import (
	"context"
	"fmt"
	"time"

	"heliowatch/internal/domain/models"
	drepo "heliowatch/internal/domain/repository"
)

const (
	defaultReadingsLimit = 500
	maxReadingsLimit     = 5000
)

// ReadingsQueryUseCase serves the reading history endpoint from storage.
type ReadingsQueryUseCase struct {
	store drepo.Storage
}

// NewReadingsQueryUseCase creates the query use case.
func NewReadingsQueryUseCase(store drepo.Storage) *ReadingsQueryUseCase {
	return &ReadingsQueryUseCase{store: store}
}

// QueryParams bound a history query.
type QueryParams struct {
	Instrument models.Instrument
	From       time.Time
	To         time.Time
	Limit      int
}

// Query returns readings for one instrument within [From, To], newest
// last. A zero To means now; a zero From means one hour before To.
func (uc *ReadingsQueryUseCase) Query(ctx context.Context, p QueryParams) ([]*models.InstrumentReading, error) {
	if uc.store == nil {
		return nil, fmt.Errorf("reading storage not configured")
	}
	if !models.IsValidInstrument(p.Instrument) {
		return nil, fmt.Errorf("unknown instrument %q", p.Instrument)
	}

	to := p.To
	if to.IsZero() {
		to = time.Now().UTC()
	}
	from := p.From
	if from.IsZero() {
		from = to.Add(-time.Hour)
	}
	if from.After(to) {
		return nil, fmt.Errorf("from %s is after to %s", from.Format(time.RFC3339), to.Format(time.RFC3339))
	}

	limit := p.Limit
	if limit <= 0 {
		limit = defaultReadingsLimit
	}
	if limit > maxReadingsLimit {
		limit = maxReadingsLimit
	}

	return uc.store.Query(ctx, p.Instrument, from, to, limit)
}

// Latest returns the newest n stored readings for one instrument.
func (uc *ReadingsQueryUseCase) Latest(ctx context.Context, id models.Instrument, n int) ([]*models.InstrumentReading, error) {
	if uc.store == nil {
		return nil, fmt.Errorf("reading storage not configured")
	}
	if !models.IsValidInstrument(id) {
		return nil, fmt.Errorf("unknown instrument %q", id)
	}
	if n <= 0 {
		n = defaultReadingsLimit
	}
	return uc.store.GetLatestN(ctx, id, n)
}
