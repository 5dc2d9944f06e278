package cme

import (
	"errors"
	"fmt"
	"strings"

	"heliowatch/internal/domain/models"
)

// ErrMissingInstrument is the sentinel matched by errors.Is for any
// MissingInstrumentError.
var ErrMissingInstrument = errors.New("missing instrument readings")

// MissingInstrumentError reports which instruments were absent from a
// risk computation. Aggregation never proceeds with partial data.
type MissingInstrumentError struct {
	Missing []models.Instrument
}

func (e *MissingInstrumentError) Error() string {
	names := make([]string, 0, len(e.Missing))
	for _, id := range e.Missing {
		names = append(names, string(id))
	}
	return fmt.Sprintf("missing instrument readings: %s", strings.Join(names, ", "))
}

func (e *MissingInstrumentError) Is(target error) bool {
	return target == ErrMissingInstrument
}

// ErrDuplicateInstrument is returned when a reading set carries the same
// instrument more than once.
var ErrDuplicateInstrument = errors.New("duplicate instrument reading")
