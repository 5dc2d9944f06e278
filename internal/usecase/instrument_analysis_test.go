package usecase

import (
	"context"
	"errors"
	"testing"
	"time"

	"heliowatch/internal/cme"
	"heliowatch/internal/domain/models"
	domsvc "heliowatch/internal/domain/service"
	rescache "heliowatch/internal/service/cache"
	pkgcache "heliowatch/pkg/cache"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeRegistry struct {
	entries map[models.Instrument]domsvc.RegistryEntry
}

func (f fakeRegistry) Lookup(id models.Instrument) (domsvc.RegistryEntry, error) {
	e, ok := f.entries[id]
	if !ok {
		return domsvc.RegistryEntry{}, &domsvc.ModelUnavailableError{Instrument: id}
	}
	return e, nil
}

type fakeForecaster struct {
	fn func(ctx context.Context, ref domsvc.ModelRef, r models.InstrumentReading, steps int, step time.Duration) ([]models.ForecastPoint, error)
}

func (f fakeForecaster) Forecast(ctx context.Context, ref domsvc.ModelRef, r models.InstrumentReading, steps int, step time.Duration) ([]models.ForecastPoint, error) {
	return f.fn(ctx, ref, r, steps, step)
}

func forecastHorizon(base time.Time, steps int, step time.Duration) []models.ForecastPoint {
	points := make([]models.ForecastPoint, steps)
	for i := range points {
		points[i] = models.ForecastPoint{
			Time:       base.Add(time.Duration(i+1) * step),
			Value:      50 + float64(i),
			Confidence: 0.9,
		}
	}
	return points
}

func fullEntry() domsvc.RegistryEntry {
	return domsvc.RegistryEntry{
		ClassificationRef: "cme-class-v3",
		DetectionRef:      "cme-detect-v2",
		TimeSeriesRef:     "flux-lstm-v1",
	}
}

func analysisFixture(t *testing.T, entry domsvc.RegistryEntry, fc fakeForecaster) (*InstrumentAnalysisUseCase, *LatestSnapshot) {
	t.Helper()
	snap := NewLatestSnapshot()
	mem := pkgcache.NewMemoryCache()
	t.Cleanup(func() { _ = mem.Close() })
	uc := NewInstrumentAnalysisUseCase(
		snap,
		NewEventTracker(),
		fakeRegistry{entries: map[models.Instrument]domsvc.RegistryEntry{models.InstrumentSTEP: entry}},
		fc,
		rescache.NewResultCache(mem),
		testLogger(t),
		cme.DefaultDetectorConfig(),
		AnalysisTTLs{Classification: time.Minute, Detection: time.Minute, Forecast: time.Minute},
	)
	return uc, snap
}

func TestAnalyzeAllSections(t *testing.T) {
	now := time.Now().UTC().Truncate(time.Millisecond)
	fc := fakeForecaster{fn: func(_ context.Context, _ domsvc.ModelRef, r models.InstrumentReading, steps int, step time.Duration) ([]models.ForecastPoint, error) {
		return forecastHorizon(r.Timestamp, steps, step), nil
	}}
	uc, snap := analysisFixture(t, fullEntry(), fc)
	r := reading(models.InstrumentSTEP, 90, now)
	snap.Update(&r)

	out, err := uc.Analyze(context.Background(), AnalysisParams{
		Instrument: models.InstrumentSTEP,
		Steps:      12,
		Step:       time.Minute,
	})
	require.NoError(t, err)

	require.NotNil(t, out.Reading)
	assert.Equal(t, 90.0, out.Reading.Value)

	require.NotNil(t, out.Classification)
	assert.Equal(t, models.CMEFastHalo, out.Classification.CMEType)
	assert.Equal(t, models.IntensityHigh, out.Classification.Intensity)
	assert.True(t, out.Classification.EarthDirected)
	assert.Equal(t, 95.0, out.Classification.Confidence)

	require.NotNil(t, out.Detection)
	assert.Equal(t, models.DetectionActive, out.Detection.Status)
	assert.True(t, out.Detection.Event)

	assert.Len(t, out.Forecast, 12)
	assert.Empty(t, out.Stale)
	assert.Nil(t, out.Errors)
}

func TestAnalyzeSkipsForecastWithoutTimeSeriesModel(t *testing.T) {
	entry := fullEntry()
	entry.TimeSeriesRef = ""
	fc := fakeForecaster{fn: func(context.Context, domsvc.ModelRef, models.InstrumentReading, int, time.Duration) ([]models.ForecastPoint, error) {
		t.Fatal("forecaster must not be called")
		return nil, nil
	}}
	uc, snap := analysisFixture(t, entry, fc)
	r := reading(models.InstrumentSTEP, 50, time.Now().UTC())
	snap.Update(&r)

	out, err := uc.Analyze(context.Background(), AnalysisParams{Instrument: models.InstrumentSTEP, Steps: 6, Step: time.Minute})
	require.NoError(t, err)

	assert.NotNil(t, out.Classification)
	assert.NotNil(t, out.Detection)
	assert.Nil(t, out.Forecast)
	assert.Nil(t, out.Errors)
}

func TestAnalyzeUnregisteredInstrument(t *testing.T) {
	uc, _ := analysisFixture(t, fullEntry(), fakeForecaster{})

	_, err := uc.Analyze(context.Background(), AnalysisParams{Instrument: models.InstrumentSWISS, Steps: 6, Step: time.Minute})
	require.Error(t, err)
	assert.ErrorIs(t, err, domsvc.ErrModelUnavailable)

	var mu *domsvc.ModelUnavailableError
	require.ErrorAs(t, err, &mu)
	assert.Equal(t, models.InstrumentSWISS, mu.Instrument)
}

func TestAnalyzeCollectsSectionErrorsWithoutReading(t *testing.T) {
	fc := fakeForecaster{fn: func(context.Context, domsvc.ModelRef, models.InstrumentReading, int, time.Duration) ([]models.ForecastPoint, error) {
		return nil, nil
	}}
	uc, _ := analysisFixture(t, fullEntry(), fc)

	out, err := uc.Analyze(context.Background(), AnalysisParams{Instrument: models.InstrumentSTEP, Steps: 6, Step: time.Minute})
	require.NoError(t, err)

	assert.Nil(t, out.Reading)
	assert.Nil(t, out.Classification)
	assert.Nil(t, out.Detection)
	require.NotNil(t, out.Errors)
	assert.Contains(t, out.Errors, "classification")
	assert.Contains(t, out.Errors, "detection")
	assert.Contains(t, out.Errors, "forecast")
}

func TestForecastPrefersFreshCache(t *testing.T) {
	calls := 0
	fc := fakeForecaster{fn: func(_ context.Context, _ domsvc.ModelRef, r models.InstrumentReading, steps int, step time.Duration) ([]models.ForecastPoint, error) {
		calls++
		if calls > 1 {
			return nil, &domsvc.PredictionError{Ref: "flux-lstm-v1", Err: errors.New("backend down")}
		}
		return forecastHorizon(r.Timestamp, steps, step), nil
	}}
	uc, snap := analysisFixture(t, fullEntry(), fc)
	r := reading(models.InstrumentSTEP, 60, time.Now().UTC())
	snap.Update(&r)

	first, stale, err := uc.Forecast(context.Background(), models.InstrumentSTEP, 6, time.Minute)
	require.NoError(t, err)
	require.False(t, stale)
	require.Len(t, first, 6)

	// the second call never reaches the failing forecaster
	second, stale, err := uc.Forecast(context.Background(), models.InstrumentSTEP, 6, time.Minute)
	require.NoError(t, err)
	assert.False(t, stale)
	require.Len(t, second, 6)
	assert.Equal(t, first[0].Value, second[0].Value)
	assert.Equal(t, 1, calls)
}

func TestForecastServesStaleOnPredictionFailure(t *testing.T) {
	healthy := true
	fc := fakeForecaster{fn: func(_ context.Context, _ domsvc.ModelRef, r models.InstrumentReading, steps int, step time.Duration) ([]models.ForecastPoint, error) {
		if !healthy {
			return nil, &domsvc.PredictionError{Ref: "flux-lstm-v1", Err: errors.New("backend down")}
		}
		return forecastHorizon(r.Timestamp, steps, step), nil
	}}

	snap := NewLatestSnapshot()
	mem := pkgcache.NewMemoryCache()
	t.Cleanup(func() { _ = mem.Close() })
	uc := NewInstrumentAnalysisUseCase(
		snap,
		NewEventTracker(),
		fakeRegistry{entries: map[models.Instrument]domsvc.RegistryEntry{models.InstrumentSTEP: fullEntry()}},
		fc,
		rescache.NewResultCache(mem),
		testLogger(t),
		cme.DefaultDetectorConfig(),
		AnalysisTTLs{Forecast: 10 * time.Millisecond},
	)
	r := reading(models.InstrumentSTEP, 60, time.Now().UTC())
	snap.Update(&r)

	first, _, err := uc.Forecast(context.Background(), models.InstrumentSTEP, 6, time.Minute)
	require.NoError(t, err)
	require.Len(t, first, 6)

	// fresh entry expires, backend goes down, last good copy survives
	time.Sleep(20 * time.Millisecond)
	healthy = false

	points, stale, err := uc.Forecast(context.Background(), models.InstrumentSTEP, 6, time.Minute)
	require.NoError(t, err)
	assert.True(t, stale)
	require.Len(t, points, 6)
	assert.Equal(t, first[0].Value, points[0].Value)
}

func TestForecastFailsWithoutLastGood(t *testing.T) {
	fc := fakeForecaster{fn: func(context.Context, domsvc.ModelRef, models.InstrumentReading, int, time.Duration) ([]models.ForecastPoint, error) {
		return nil, &domsvc.PredictionError{Ref: "flux-lstm-v1", Err: errors.New("backend down")}
	}}
	uc, snap := analysisFixture(t, fullEntry(), fc)
	r := reading(models.InstrumentSTEP, 60, time.Now().UTC())
	snap.Update(&r)

	_, stale, err := uc.Forecast(context.Background(), models.InstrumentSTEP, 6, time.Minute)
	require.Error(t, err)
	assert.False(t, stale)
	assert.ErrorIs(t, err, domsvc.ErrPredictionFailure)
}

func TestForecastKeySeparatesSubSecondSteps(t *testing.T) {
	quarter := forecastKey(models.InstrumentSTEP, 6, 250*time.Millisecond)
	half := forecastKey(models.InstrumentSTEP, 6, 500*time.Millisecond)
	minute := forecastKey(models.InstrumentSTEP, 6, time.Minute)

	assert.NotEqual(t, quarter, half)
	assert.NotEqual(t, half, minute)
	assert.NotEqual(t, forecastKey(models.InstrumentSTEP, 6, time.Minute), forecastKey(models.InstrumentMAG, 6, time.Minute))
}
