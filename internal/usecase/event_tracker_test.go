package usecase

import (
	"testing"
	"time"

	"heliowatch/internal/cme"
	"heliowatch/internal/domain/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEventTrackerCountsActiveTransitionsOnce(t *testing.T) {
	tr := NewEventTracker()
	cfg := cme.DefaultDetectorConfig()
	now := time.Now().UTC()

	// ramps above the active threshold and stays there
	tr.Observe(reading(models.InstrumentSTEP, 90, now), cfg)
	tr.Observe(reading(models.InstrumentSTEP, 92, now.Add(time.Second)), cfg)
	tr.Observe(reading(models.InstrumentSTEP, 88, now.Add(2*time.Second)), cfg)

	status, count, lastAt := tr.Counters(models.InstrumentSTEP)
	assert.Equal(t, models.DetectionActive, status)
	assert.Equal(t, 1, count)
	assert.Equal(t, now, lastAt)
}

func TestEventTrackerCountsSeparateStorms(t *testing.T) {
	tr := NewEventTracker()
	cfg := cme.DefaultDetectorConfig()
	now := time.Now().UTC()

	tr.Observe(reading(models.InstrumentMAG, 90, now), cfg)
	tr.Observe(reading(models.InstrumentMAG, 20, now.Add(time.Second)), cfg)
	second := now.Add(2 * time.Second)
	tr.Observe(reading(models.InstrumentMAG, 95, second), cfg)

	status, count, lastAt := tr.Counters(models.InstrumentMAG)
	assert.Equal(t, models.DetectionActive, status)
	assert.Equal(t, 2, count)
	assert.Equal(t, second, lastAt)
}

func TestEventTrackerMonitoringDoesNotCount(t *testing.T) {
	tr := NewEventTracker()
	cfg := cme.DefaultDetectorConfig()
	now := time.Now().UTC()

	// between threshold*0.8 and threshold
	tr.Observe(reading(models.InstrumentPAPA, 70, now), cfg)

	status, count, _ := tr.Counters(models.InstrumentPAPA)
	assert.Equal(t, models.DetectionMonitoring, status)
	assert.Zero(t, count)
}

func TestEventTrackerUnknownInstrumentDefaults(t *testing.T) {
	tr := NewEventTracker()

	status, count, lastAt := tr.Counters(models.InstrumentSoLEXS)
	require.Equal(t, models.DetectionClear, status)
	assert.Zero(t, count)
	assert.True(t, lastAt.IsZero())
}
