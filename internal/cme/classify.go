package cme

import "heliowatch/internal/domain/models"

// Classification thresholds on the clamped reading value.
const (
	fastHaloFrom      = 80.0
	slowCMEFrom       = 60.0
	earthDirectedFrom = 70.0
)

// Classify derives the event classification for one instrument's current
// reading. Single-instrument by design: cross-instrument fusion happens
// only in the risk aggregate, never here.
//
// Confidence uses the continuous formula min(95, 70 + 0.3*value); the
// result is deterministic and idempotent for identical readings.
func Classify(r models.InstrumentReading) models.Classification {
	v := ClampValue(r.Value)

	c := models.Classification{
		Instrument:    r.Instrument,
		Timestamp:     r.Timestamp,
		Confidence:    Confidence(v),
		EarthDirected: v > earthDirectedFrom,
	}

	switch {
	case v > fastHaloFrom:
		c.CMEType = models.CMEFastHalo
		c.Intensity = models.IntensityHigh
	case v > slowCMEFrom:
		c.CMEType = models.CMESlow
		c.Intensity = models.IntensityMedium
	default:
		c.CMEType = models.CMENoEvent
		c.Intensity = models.IntensityLow
	}
	return c
}

// Confidence maps a clamped value to a confidence score in [70,95].
func Confidence(v float64) float64 {
	conf := 70 + v*0.3
	if conf > 95 {
		conf = 95
	}
	return conf
}
