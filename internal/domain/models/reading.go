package models

import "time"

// Instrument identifies one of the six tracked payload sensors.
type Instrument string

const (
	InstrumentSTEP   Instrument = "STEP"
	InstrumentSUIT   Instrument = "SUIT"
	InstrumentPAPA   Instrument = "PAPA"
	InstrumentMAG    Instrument = "MAG"
	InstrumentSoLEXS Instrument = "SoLEXS"
	InstrumentSWISS  Instrument = "SWISS"
)

// Instruments returns all tracked instruments in canonical order.
func Instruments() []Instrument {
	return []Instrument{
		InstrumentSTEP,
		InstrumentSUIT,
		InstrumentPAPA,
		InstrumentMAG,
		InstrumentSoLEXS,
		InstrumentSWISS,
	}
}

// InstrumentCount is the number of tracked instruments.
const InstrumentCount = 6

// IsValidInstrument returns true if id names a tracked instrument.
func IsValidInstrument(id Instrument) bool {
	switch id {
	case InstrumentSTEP, InstrumentSUIT, InstrumentPAPA,
		InstrumentMAG, InstrumentSoLEXS, InstrumentSWISS:
		return true
	default:
		return false
	}
}

// InstrumentReading is a single scalar intensity sample from one instrument.
// Readings are immutable once produced; a new tick supersedes, never mutates.
type InstrumentReading struct {
	Instrument Instrument `json:"instrument"`
	Value      float64    `json:"value"`
	Timestamp  time.Time  `json:"timestamp"`
}

// Snapshot is the immutable set of latest readings at one tick,
// keyed by instrument. Consumers never mutate entries in place.
type Snapshot struct {
	Readings []InstrumentReading `json:"readings"`
	TakenAt  time.Time           `json:"takenAt"`
}
