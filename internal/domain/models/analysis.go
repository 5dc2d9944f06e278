package models

import "time"

// CMEType labels the kind of coronal mass ejection derived from a reading.
type CMEType string

const (
	CMEFastHalo CMEType = "Fast Halo CME"
	CMESlow     CMEType = "Slow CME"
	CMENoEvent  CMEType = "No Event"
)

// Intensity is the coarse strength band of a classified event.
type Intensity string

const (
	IntensityLow    Intensity = "Low"
	IntensityMedium Intensity = "Medium"
	IntensityHigh   Intensity = "High"
)

// Classification is the per-instrument event classification.
// Confidence is within [0,100].
type Classification struct {
	Instrument    Instrument `json:"instrument"`
	Timestamp     time.Time  `json:"timestamp"`
	CMEType       CMEType    `json:"cmeType"`
	Confidence    float64    `json:"confidence"`
	Intensity     Intensity  `json:"intensity"`
	EarthDirected bool       `json:"earthDirected"`
}

// DetectionStatus is the tri-state escalation of one instrument.
type DetectionStatus string

const (
	DetectionActive     DetectionStatus = "ACTIVE"
	DetectionMonitoring DetectionStatus = "MONITORING"
	DetectionClear      DetectionStatus = "CLEAR"
)

// DetectionResult reports the current status against the instrument's
// threshold. EventCount and LastEventTime are display-only counters kept
// by the event tracker; nothing links them to Classification.
type DetectionResult struct {
	Instrument    Instrument      `json:"instrument"`
	Timestamp     time.Time       `json:"timestamp"`
	Status        DetectionStatus `json:"status"`
	Threshold     float64         `json:"threshold"`
	Event         bool            `json:"event"`
	EventCount    int             `json:"eventCount"`
	LastEventTime time.Time       `json:"lastEventTime,omitzero"`
}

// ForecastPoint is one step of a model forecast. Confidence is within [0,1].
type ForecastPoint struct {
	Time       time.Time `json:"time"`
	Value      float64   `json:"value"`
	Confidence float64   `json:"confidence"`
}

// InstrumentAnalysis is the consolidated on-demand view for one instrument:
// classification, detection, and (when a time-series model exists) forecast.
// Sections that failed carry their reason in Errors; sections served from the
// last good cached value after a prediction failure are listed in Stale.
type InstrumentAnalysis struct {
	Instrument     Instrument        `json:"instrument"`
	Timestamp      time.Time         `json:"timestamp"`
	Reading        *InstrumentReading `json:"reading,omitempty"`
	Classification *Classification   `json:"classification,omitempty"`
	Detection      *DetectionResult  `json:"detection,omitempty"`
	Forecast       []ForecastPoint   `json:"forecast,omitempty"`
	Stale          []string          `json:"stale,omitempty"`
	Errors         map[string]string `json:"errors,omitempty"`
}

// InstrumentStatus is the dashboard list row: latest reading plus the
// cheap derived state recomputed by the sampler.
type InstrumentStatus struct {
	Instrument    Instrument         `json:"instrument"`
	Reading       *InstrumentReading `json:"reading,omitempty"`
	Status        DetectionStatus    `json:"status"`
	EventCount    int                `json:"eventCount"`
	LastEventTime time.Time          `json:"lastEventTime,omitzero"`
}
