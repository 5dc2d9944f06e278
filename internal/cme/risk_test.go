package cme

import (
	"errors"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"heliowatch/internal/domain/models"
)

func fullSet(value float64) []models.InstrumentReading {
	ts := time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC)
	out := make([]models.InstrumentReading, 0, models.InstrumentCount)
	for _, id := range models.Instruments() {
		out = append(out, models.InstrumentReading{Instrument: id, Value: value, Timestamp: ts})
	}
	return out
}

func TestComputeRiskBoundaries(t *testing.T) {
	cases := []struct {
		name      string
		mean      float64
		wantScore float64
		wantLevel models.RiskLevel
	}{
		{"dead band floor", 40, 0, models.RiskLow},
		{"midpoint", 70, 50, models.RiskModerate},
		{"saturated", 100, 100, models.RiskExtreme},
		{"below floor contributes nothing", 10, 0, models.RiskLow},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			ri, err := ComputeRisk(fullSet(tc.mean))
			require.NoError(t, err)
			assert.InDelta(t, tc.wantScore, ri.Score, 1e-9)
			assert.Equal(t, tc.wantLevel, ri.Level)
		})
	}
}

func TestComputeRiskMissingInstrument(t *testing.T) {
	readings := fullSet(50)[:models.InstrumentCount-1] // drop SWISS

	_, err := ComputeRisk(readings)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrMissingInstrument))

	var miss *MissingInstrumentError
	require.ErrorAs(t, err, &miss)
	assert.Equal(t, []models.Instrument{models.InstrumentSWISS}, miss.Missing)
}

func TestComputeRiskEmpty(t *testing.T) {
	_, err := ComputeRisk(nil)
	require.ErrorIs(t, err, ErrMissingInstrument)
}

func TestComputeRiskDuplicate(t *testing.T) {
	readings := fullSet(50)
	readings[1].Instrument = models.InstrumentSTEP
	_, err := ComputeRisk(readings)
	require.ErrorIs(t, err, ErrDuplicateInstrument)
}

func TestComputeRiskIgnoresUnknownInstrument(t *testing.T) {
	readings := append(fullSet(70), models.InstrumentReading{Instrument: "GHOST", Value: 100})
	ri, err := ComputeRisk(readings)
	require.NoError(t, err)
	assert.InDelta(t, 50, ri.Score, 1e-9)
}

func TestComputeRiskClampsMalformedInput(t *testing.T) {
	readings := fullSet(999) // clamped to 100 per instrument
	readings[0].Value = -50  // clamped to 0
	readings[1].Value = math.NaN()

	ri, err := ComputeRisk(readings)
	require.NoError(t, err)
	assert.GreaterOrEqual(t, ri.Score, 0.0)
	assert.LessOrEqual(t, ri.Score, 100.0)
	assert.False(t, math.IsNaN(ri.Score))
}

func TestComputeRiskMonotonicInMean(t *testing.T) {
	prev := -1.0
	for mean := 0.0; mean <= 100; mean += 5 {
		ri, err := ComputeRisk(fullSet(mean))
		require.NoError(t, err)
		assert.GreaterOrEqual(t, ri.Score, prev, "score must be non-decreasing in mean")
		prev = ri.Score
	}
}

func TestLevelForScoreBands(t *testing.T) {
	assert.Equal(t, models.RiskLow, LevelForScore(0))
	assert.Equal(t, models.RiskLow, LevelForScore(29.9))
	assert.Equal(t, models.RiskModerate, LevelForScore(30))
	assert.Equal(t, models.RiskModerate, LevelForScore(59.9))
	assert.Equal(t, models.RiskHigh, LevelForScore(60))
	assert.Equal(t, models.RiskHigh, LevelForScore(84.9))
	assert.Equal(t, models.RiskExtreme, LevelForScore(85))
	assert.Equal(t, models.RiskExtreme, LevelForScore(100))
}
