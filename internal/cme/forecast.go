package cme

import (
	"fmt"
	"math"

	"heliowatch/internal/domain/models"
)

// NormalizeForecast checks a model forecast against the contract the
// service promises its consumers: exactly steps points, strictly
// increasing time, finite values. Confidence is clamped to [0,1] in
// place rather than rejected, so a slightly out-of-range model output
// still renders. Any structural violation is an error the caller should
// treat as a prediction failure.
func NormalizeForecast(points []models.ForecastPoint, steps int) ([]models.ForecastPoint, error) {
	if len(points) != steps {
		return nil, fmt.Errorf("forecast length %d, want %d", len(points), steps)
	}
	for i := range points {
		p := &points[i]
		if p.Time.IsZero() {
			return nil, fmt.Errorf("forecast point %d: zero time", i)
		}
		if i > 0 && !p.Time.After(points[i-1].Time) {
			return nil, fmt.Errorf("forecast point %d: time not increasing", i)
		}
		if math.IsNaN(p.Value) || math.IsInf(p.Value, 0) {
			return nil, fmt.Errorf("forecast point %d: non-finite value", i)
		}
		if math.IsNaN(p.Confidence) {
			return nil, fmt.Errorf("forecast point %d: NaN confidence", i)
		}
		p.Confidence = clamp(p.Confidence, 0, 1)
	}
	return points, nil
}
