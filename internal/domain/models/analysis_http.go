package models

// Requests for the dashboard HTTP endpoints. Defined in domain for
// consistency and reuse across handlers.

type AnalysisRequest struct {
	Instrument string `query:"instrument" json:"instrument" validate:"required,oneof=STEP SUIT PAPA MAG SoLEXS SWISS"`
	Steps      int    `query:"steps" json:"steps" default:"24" validate:"gte=1,lte=288"`
	StepSecs   int    `query:"step_secs" json:"step_secs" default:"60" validate:"gte=1,lte=3600"`
}

type ClassificationRequest struct {
	Instrument string `query:"instrument" json:"instrument" validate:"required,oneof=STEP SUIT PAPA MAG SoLEXS SWISS"`
}

type DetectionRequest struct {
	Instrument string `query:"instrument" json:"instrument" validate:"required,oneof=STEP SUIT PAPA MAG SoLEXS SWISS"`
}

type ForecastRequest struct {
	Instrument string `query:"instrument" json:"instrument" validate:"required,oneof=STEP SUIT PAPA MAG SoLEXS SWISS"`
	Steps      int    `query:"steps" json:"steps" default:"24" validate:"gte=1,lte=288"`
	StepSecs   int    `query:"step_secs" json:"step_secs" default:"60" validate:"gte=1,lte=3600"`
}

type ReadingsRequest struct {
	Instrument string `query:"instrument" json:"instrument" validate:"required,oneof=STEP SUIT PAPA MAG SoLEXS SWISS"`
	From       string `query:"from" json:"from"`
	To         string `query:"to" json:"to"`
	Limit      int    `query:"limit" json:"limit" default:"1000" validate:"gte=1,lte=50000"`
}
