package analysis

import (
	"context"
	"time"

	"heliowatch/internal/cme"
	"heliowatch/internal/domain/models"
	domsvc "heliowatch/internal/domain/service"
	"heliowatch/pkg/config"
)

// HTTPForecaster calls the external time-series model to project an
// instrument's intensity over a horizon.
type HTTPForecaster struct {
	base *HTTPServiceBase
}

// NewHTTPForecaster creates a forecaster over the shared HTTP base.
func NewHTTPForecaster(cfg *config.Config) *HTTPForecaster {
	return &HTTPForecaster{base: NewHTTPServiceBase(cfg)}
}

type forecastReq struct {
	Model      string  `json:"model"`
	Instrument string  `json:"instrument"`
	Value      float64 `json:"value"`
	T          int64   `json:"t"`
	Steps      int     `json:"steps"`
	StepSecs   int     `json:"step_secs"`
}

type forecastPoint struct {
	T          int64   `json:"t"`
	Value      float64 `json:"value"`
	Confidence float64 `json:"confidence"`
}

type forecastResp struct {
	Points []forecastPoint `json:"points"`
}

// Forecast posts the latest reading to the model and validates the
// returned horizon. Any transport failure or contract violation comes
// back as a PredictionError.
func (f *HTTPForecaster) Forecast(ctx context.Context, ref domsvc.ModelRef, r models.InstrumentReading, steps int, step time.Duration) ([]models.ForecastPoint, error) {
	var resp forecastResp
	err := f.base.PostJSON(ctx, "/forecast", forecastReq{
		Model:      string(ref),
		Instrument: string(r.Instrument),
		Value:      r.Value,
		T:          r.Timestamp.UnixMilli(),
		Steps:      steps,
		StepSecs:   int(step.Seconds()),
	}, &resp)
	if err != nil {
		return nil, &domsvc.PredictionError{Ref: ref, Err: err}
	}

	points := make([]models.ForecastPoint, 0, len(resp.Points))
	for _, p := range resp.Points {
		points = append(points, models.ForecastPoint{
			Time:       time.UnixMilli(p.T).UTC(),
			Value:      p.Value,
			Confidence: p.Confidence,
		})
	}

	normalized, err := cme.NormalizeForecast(points, steps)
	if err != nil {
		return nil, &domsvc.PredictionError{Ref: ref, Err: err}
	}
	return normalized, nil
}

var _ domsvc.Forecaster = (*HTTPForecaster)(nil)
