package service

import (
	"context"
	"time"

	"heliowatch/internal/domain/models"
)

// ModelKind selects which artifact of a registry entry a prediction targets.
type ModelKind string

const (
	ModelClassification ModelKind = "classification"
	ModelDetection      ModelKind = "detection"
	ModelTimeSeries     ModelKind = "timeseries"
)

// ModelRef names a model artifact served by the inference backend.
type ModelRef string

// RegistryEntry is the set of artifact refs registered for one instrument.
// TimeSeriesRef is optional; its absence means forecasting is not offered
// for that instrument.
type RegistryEntry struct {
	ClassificationRef ModelRef
	DetectionRef      ModelRef
	TimeSeriesRef     ModelRef
}

// HasTimeSeries reports whether a forecast model is registered.
func (e RegistryEntry) HasTimeSeries() bool { return e.TimeSeriesRef != "" }

// ModelRegistry maps instruments to their registered model artifacts.
type ModelRegistry interface {
	Lookup(id models.Instrument) (RegistryEntry, error)
}

// Forecaster produces a bounded, ordered forecast for one reading via the
// external model. Each call regenerates the full horizon independently;
// the caller cancels in-flight requests through ctx.
type Forecaster interface {
	Forecast(ctx context.Context, ref ModelRef, r models.InstrumentReading, steps int, step time.Duration) ([]models.ForecastPoint, error)
}
