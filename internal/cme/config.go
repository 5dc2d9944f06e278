package cme

import "heliowatch/internal/domain/models"

// Default thresholds. The monitoring band sits at 80% of the active
// threshold so both tiers move together when a threshold is tuned.
const (
	DefaultThreshold      = 75.0
	DefaultEventThreshold = 65.0
	MonitoringRatio       = 0.8
)

// DetectorConfig is the single injected source of detection thresholds.
// It replaces the per-call-site constants that tend to drift apart.
type DetectorConfig struct {
	// Threshold is the default ACTIVE threshold.
	Threshold float64
	// EventThreshold gates the binary event flag on published ticks.
	EventThreshold float64
	// Overrides carries per-instrument ACTIVE thresholds.
	Overrides map[models.Instrument]float64
}

// DefaultDetectorConfig returns the canonical 75/65 configuration.
func DefaultDetectorConfig() DetectorConfig {
	return DetectorConfig{
		Threshold:      DefaultThreshold,
		EventThreshold: DefaultEventThreshold,
	}
}

// ThresholdFor returns the ACTIVE threshold for an instrument.
func (c DetectorConfig) ThresholdFor(id models.Instrument) float64 {
	if t, ok := c.Overrides[id]; ok && t > 0 {
		return t
	}
	if c.Threshold > 0 {
		return c.Threshold
	}
	return DefaultThreshold
}

// eventThreshold falls back to the default when unset.
func (c DetectorConfig) eventThreshold() float64 {
	if c.EventThreshold > 0 {
		return c.EventThreshold
	}
	return DefaultEventThreshold
}
