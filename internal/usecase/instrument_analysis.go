package usecase

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"heliowatch/internal/cme"
	"heliowatch/internal/domain/models"
	domsvc "heliowatch/internal/domain/service"
	rescache "heliowatch/internal/service/cache"
	ametrics "heliowatch/internal/service/metrics"
	applogger "heliowatch/pkg/logger"
	pkgcache "heliowatch/pkg/cache"
)

// AnalysisTTLs are the per-section cache lifetimes.
type AnalysisTTLs struct {
	Classification time.Duration
	Detection      time.Duration
	Forecast       time.Duration
}

// InstrumentAnalysisUseCase serves on-demand analysis for a single
// instrument: classification and detection from the pure core, forecast
// through the model registry and inference client. Sections run
// concurrently; a failed section is reported in Errors without failing
// the whole request.
type InstrumentAnalysisUseCase struct {
	snapshot   *LatestSnapshot
	tracker    *EventTracker
	registry   domsvc.ModelRegistry
	forecaster domsvc.Forecaster
	cache      *rescache.ResultCache
	logger     *applogger.Logger
	detCfg     cme.DetectorConfig
	ttls       AnalysisTTLs
	timeout    time.Duration
}

// NewInstrumentAnalysisUseCase wires the analysis path.
func NewInstrumentAnalysisUseCase(
	snapshot *LatestSnapshot,
	tracker *EventTracker,
	registry domsvc.ModelRegistry,
	forecaster domsvc.Forecaster,
	cache *rescache.ResultCache,
	logger *applogger.Logger,
	detCfg cme.DetectorConfig,
	ttls AnalysisTTLs,
) *InstrumentAnalysisUseCase {
	return &InstrumentAnalysisUseCase{
		snapshot:   snapshot,
		tracker:    tracker,
		registry:   registry,
		forecaster: forecaster,
		cache:      cache,
		logger:     logger,
		detCfg:     detCfg,
		ttls:       ttls,
		timeout:    10 * time.Second,
	}
}

// latestReading resolves the instrument's newest reading or fails with
// a MissingInstrumentError when none has arrived yet.
func (uc *InstrumentAnalysisUseCase) latestReading(id models.Instrument) (models.InstrumentReading, error) {
	r, ok := uc.snapshot.Get(id)
	if !ok {
		return models.InstrumentReading{}, &cme.MissingInstrumentError{Missing: []models.Instrument{id}}
	}
	return r, nil
}

// Classify runs the classification section for one instrument. The
// registry must carry a classification artifact for the instrument.
func (uc *InstrumentAnalysisUseCase) Classify(ctx context.Context, id models.Instrument) (models.Classification, error) {
	entry, err := uc.registry.Lookup(id)
	if err != nil {
		return models.Classification{}, err
	}
	if entry.ClassificationRef == "" {
		return models.Classification{}, &domsvc.ModelUnavailableError{Instrument: id, Kind: domsvc.ModelClassification}
	}

	r, err := uc.latestReading(id)
	if err != nil {
		return models.Classification{}, err
	}

	start := time.Now()
	c := cme.Classify(r)
	ametrics.AnalysisLatency.WithLabelValues("classification").Observe(time.Since(start).Seconds())

	uc.cachePut(ctx, sectionKey("classification", id), c, uc.ttls.Classification)
	return c, nil
}

// Detect runs the detection section, merging the tracker's running
// event counters into the result.
func (uc *InstrumentAnalysisUseCase) Detect(ctx context.Context, id models.Instrument) (models.DetectionResult, error) {
	entry, err := uc.registry.Lookup(id)
	if err != nil {
		return models.DetectionResult{}, err
	}
	if entry.DetectionRef == "" {
		return models.DetectionResult{}, &domsvc.ModelUnavailableError{Instrument: id, Kind: domsvc.ModelDetection}
	}

	r, err := uc.latestReading(id)
	if err != nil {
		return models.DetectionResult{}, err
	}

	start := time.Now()
	_, count, lastAt := uc.tracker.Counters(id)
	res := models.DetectionResult{
		Instrument:    id,
		Timestamp:     r.Timestamp,
		Status:        cme.Detect(r, uc.detCfg),
		Threshold:     uc.detCfg.ThresholdFor(id),
		Event:         cme.IsEvent(r, uc.detCfg),
		EventCount:    count,
		LastEventTime: lastAt,
	}
	ametrics.AnalysisLatency.WithLabelValues("detection").Observe(time.Since(start).Seconds())

	uc.cachePut(ctx, sectionKey("detection", id), res, uc.ttls.Detection)
	return res, nil
}

// Forecast runs the forecast section. Offered only for instruments with
// a registered time-series artifact; on a prediction failure the last
// good cached horizon is returned with stale=true.
func (uc *InstrumentAnalysisUseCase) Forecast(ctx context.Context, id models.Instrument, steps int, step time.Duration) (points []models.ForecastPoint, stale bool, err error) {
	entry, err := uc.registry.Lookup(id)
	if err != nil {
		return nil, false, err
	}
	if !entry.HasTimeSeries() {
		return nil, false, &domsvc.ModelUnavailableError{Instrument: id, Kind: domsvc.ModelTimeSeries}
	}

	r, err := uc.latestReading(id)
	if err != nil {
		return nil, false, err
	}

	key := forecastKey(id, steps, step)
	var cached []models.ForecastPoint
	if uc.cache != nil && uc.cache.Get(ctx, key, &cached) == nil {
		return cached, false, nil
	}

	start := time.Now()
	points, err = uc.forecaster.Forecast(ctx, entry.TimeSeriesRef, r, steps, step)
	ametrics.AnalysisLatency.WithLabelValues("forecast").Observe(time.Since(start).Seconds())
	if err == nil {
		uc.cachePut(ctx, key, points, uc.ttls.Forecast)
		return points, false, nil
	}

	ametrics.AnalysisErrors.WithLabelValues("forecast").Inc()
	if errors.Is(err, domsvc.ErrPredictionFailure) && uc.cache != nil {
		var last []models.ForecastPoint
		if lgErr := uc.cache.GetLastGood(ctx, key, &last); lgErr == nil {
			ametrics.AnalysisStaleServed.WithLabelValues("forecast").Inc()
			uc.logger.Warn("serving stale forecast",
				applogger.String("instrument", string(id)),
				applogger.Error(err))
			return last, true, nil
		} else if !errors.Is(lgErr, pkgcache.ErrCacheMiss) {
			uc.logger.Error("stale forecast lookup", applogger.Error(lgErr))
		}
	}
	return nil, false, err
}

// AnalysisParams are the aggregate request parameters.
type AnalysisParams struct {
	Instrument models.Instrument
	Steps      int
	Step       time.Duration
}

// Analyze runs all sections concurrently and assembles the aggregate
// view with a per-section error map. The instrument must be registered;
// an unregistered instrument fails the whole request.
func (uc *InstrumentAnalysisUseCase) Analyze(ctx context.Context, p AnalysisParams) (*models.InstrumentAnalysis, error) {
	if !models.IsValidInstrument(p.Instrument) {
		return nil, fmt.Errorf("unknown instrument %q", p.Instrument)
	}
	if _, err := uc.registry.Lookup(p.Instrument); err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, uc.timeout)
	defer cancel()

	res := &models.InstrumentAnalysis{
		Instrument: p.Instrument,
		Timestamp:  time.Now().UTC(),
		Errors:     map[string]string{},
	}
	if r, ok := uc.snapshot.Get(p.Instrument); ok {
		res.Reading = &r
	}

	type item struct {
		name  string
		val   interface{}
		stale bool
		err   error
	}
	ch := make(chan item, 3)
	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()
		v, err := uc.Classify(ctx, p.Instrument)
		ch <- item{name: "classification", val: v, err: err}
	}()
	wg.Add(1)
	go func() {
		defer wg.Done()
		v, err := uc.Detect(ctx, p.Instrument)
		ch <- item{name: "detection", val: v, err: err}
	}()
	wg.Add(1)
	go func() {
		defer wg.Done()
		v, stale, err := uc.Forecast(ctx, p.Instrument, p.Steps, p.Step)
		ch <- item{name: "forecast", val: v, stale: stale, err: err}
	}()

	go func() { wg.Wait(); close(ch) }()

	for it := range ch {
		if it.err != nil {
			// a missing forecast model is expected for some instruments
			if it.name == "forecast" && errors.Is(it.err, domsvc.ErrModelUnavailable) {
				continue
			}
			res.Errors[it.name] = it.err.Error()
			continue
		}
		switch it.name {
		case "classification":
			v := it.val.(models.Classification)
			res.Classification = &v
		case "detection":
			v := it.val.(models.DetectionResult)
			res.Detection = &v
		case "forecast":
			res.Forecast = it.val.([]models.ForecastPoint)
			if it.stale {
				res.Stale = append(res.Stale, "forecast")
			}
		}
	}

	if len(res.Errors) == 0 {
		res.Errors = nil
	}
	return res, nil
}

func (uc *InstrumentAnalysisUseCase) cachePut(ctx context.Context, key string, value interface{}, ttl time.Duration) {
	if uc.cache == nil || ttl <= 0 {
		return
	}
	if err := uc.cache.Put(ctx, key, value, ttl); err != nil {
		uc.logger.Warn("analysis cache write", applogger.Error(err))
	}
}

func sectionKey(section string, id models.Instrument) string {
	return fmt.Sprintf("analysis:%s:%s", section, id)
}

// forecastKey keys on milliseconds so sub-second steps keep distinct
// cache entries.
func forecastKey(id models.Instrument, steps int, step time.Duration) string {
	return fmt.Sprintf("analysis:forecast:%s:%d:%d", id, steps, step.Milliseconds())
}
