package cme

import "heliowatch/internal/domain/models"

// Detect derives the tri-state escalation for one instrument's reading:
// ACTIVE above the instrument's threshold, MONITORING above 80% of it,
// CLEAR otherwise.
func Detect(r models.InstrumentReading, cfg DetectorConfig) models.DetectionStatus {
	v := ClampValue(r.Value)
	t := cfg.ThresholdFor(r.Instrument)
	switch {
	case v > t:
		return models.DetectionActive
	case v > t*MonitoringRatio:
		return models.DetectionMonitoring
	default:
		return models.DetectionClear
	}
}

// IsEvent is the binary variant carried as the alert flag on published
// ticks. Independent of the tri-state tiers.
func IsEvent(r models.InstrumentReading, cfg DetectorConfig) bool {
	return ClampValue(r.Value) > cfg.eventThreshold()
}
