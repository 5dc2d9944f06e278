package models

import "time"

// RiskLevel is the discrete band derived from the unified risk score.
type RiskLevel string

const (
	RiskLow      RiskLevel = "LOW"
	RiskModerate RiskLevel = "MODERATE"
	RiskHigh     RiskLevel = "HIGH"
	RiskExtreme  RiskLevel = "EXTREME"
)

// RiskIndex is the unified CME risk index (UCRI) across all instruments.
// Score is always within [0,100]; Level is a step function of Score.
type RiskIndex struct {
	Score     float64   `json:"score"`
	Level     RiskLevel `json:"level"`
	Timestamp time.Time `json:"timestamp"`
}
