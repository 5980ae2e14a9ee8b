package domain

import "time"

// RiskAlert announces one inference row at or above the risk threshold.
type RiskAlert struct {
	RunID       string    `json:"run_id"`
	Stockpile   string    `json:"stockpile"`
	Grade       string    `json:"grade,omitempty"`
	Probability float64   `json:"probability"`
	Threshold   float64   `json:"threshold"`
	ForecastAt  time.Time `json:"forecast_at"`
}
