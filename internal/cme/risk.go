// Package cme implements the deterministic scoring and classification
// rules that turn raw instrument readings into a unified risk index and
// per-instrument event classifications. Everything here is a pure
// function of its inputs; no randomness, no shared state.
package cme

import (
	"math"
	"time"

	"heliowatch/internal/domain/models"
)

// Risk level bounds (exclusive upper bounds on the score).
const (
	riskModerateFrom = 30.0
	riskHighFrom     = 60.0
	riskExtremeFrom  = 85.0
)

// Dead-band rescale constants: readings at or below 40 contribute no
// risk, readings at 100 saturate at full risk.
const (
	riskFloor = 40.0
	riskSpan  = 60.0
)

// ComputeRisk reduces the reading set for one tick into a RiskIndex.
// All six instruments must be present exactly once; otherwise it fails
// with a MissingInstrumentError (or ErrDuplicateInstrument) and no
// partial score is produced. Values are clamped to [0,100] before
// averaging so malformed upstream input cannot leak out of range.
func ComputeRisk(readings []models.InstrumentReading) (models.RiskIndex, error) {
	seen := make(map[models.Instrument]bool, models.InstrumentCount)
	sum := 0.0
	var latest time.Time
	for _, r := range readings {
		if !models.IsValidInstrument(r.Instrument) {
			continue
		}
		if seen[r.Instrument] {
			return models.RiskIndex{}, ErrDuplicateInstrument
		}
		seen[r.Instrument] = true
		sum += ClampValue(r.Value)
		if r.Timestamp.After(latest) {
			latest = r.Timestamp
		}
	}

	if len(seen) < models.InstrumentCount {
		missing := make([]models.Instrument, 0, models.InstrumentCount-len(seen))
		for _, id := range models.Instruments() {
			if !seen[id] {
				missing = append(missing, id)
			}
		}
		return models.RiskIndex{}, &MissingInstrumentError{Missing: missing}
	}

	avg := sum / float64(models.InstrumentCount)
	score := clamp((avg-riskFloor)/riskSpan*100, 0, 100)

	return models.RiskIndex{
		Score:     score,
		Level:     LevelForScore(score),
		Timestamp: latest,
	}, nil
}

// LevelForScore maps a score in [0,100] to its discrete risk band.
func LevelForScore(score float64) models.RiskLevel {
	switch {
	case score < riskModerateFrom:
		return models.RiskLow
	case score < riskHighFrom:
		return models.RiskModerate
	case score < riskExtremeFrom:
		return models.RiskHigh
	default:
		return models.RiskExtreme
	}
}

// ClampValue bounds a raw reading value to the documented [0,100] scale.
// NaN collapses to 0 rather than poisoning downstream math.
func ClampValue(v float64) float64 {
	if math.IsNaN(v) {
		return 0
	}
	return clamp(v, 0, 100)
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
