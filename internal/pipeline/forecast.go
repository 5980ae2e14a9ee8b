package pipeline

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"

	"github.com/couchcryptid/stockpile-fire-risk/internal/domain"
	"github.com/couchcryptid/stockpile-fire-risk/internal/model"
	"github.com/couchcryptid/stockpile-fire-risk/internal/observability"
	"github.com/couchcryptid/stockpile-fire-risk/internal/predict"
	"github.com/couchcryptid/stockpile-fire-risk/internal/report"
)

// PredictorSource supplies the predictor for a forecast.
type PredictorSource interface {
	Predictor() (*predict.Predictor, model.Metadata, error)
}

// AlertPublisher delivers risk alerts.
type AlertPublisher interface {
	Publish(ctx context.Context, alerts []domain.RiskAlert) error
}

// Outcome is a completed forecast.
type Outcome struct {
	RunID    string
	Forecast *predict.Forecast
	Summary  report.Summary
}

// Forecaster scores inference tables.
type Forecaster struct {
	models  PredictorSource
	alerts  AlertPublisher
	reports *report.Builder
	clock   clockwork.Clock
	logger  *slog.Logger
	metrics *observability.Metrics
}

// NewForecaster creates a Forecaster. Pass a nil publisher to disable alerts.
func NewForecaster(models PredictorSource, alerts AlertPublisher, reports *report.Builder, clock clockwork.Clock, logger *slog.Logger, metrics *observability.Metrics) *Forecaster {
	return &Forecaster{
		models:  models,
		alerts:  alerts,
		reports: reports,
		clock:   clock,
		logger:  logger,
		metrics: metrics,
	}
}

// Forecast scores t at threshold. Alert delivery failures are logged and do
// not fail the forecast.
func (f *Forecaster) Forecast(ctx context.Context, t domain.Table, threshold float64) (*Outcome, error) {
	out, err := f.forecast(ctx, t, threshold)
	if err != nil {
		f.metrics.PipelineRuns.WithLabelValues("forecast", "error").Inc()
		return nil, err
	}
	f.metrics.PipelineRuns.WithLabelValues("forecast", "success").Inc()
	return out, nil
}

func (f *Forecaster) forecast(ctx context.Context, t domain.Table, threshold float64) (*Outcome, error) {
	start := f.clock.Now()
	runID := uuid.NewString()
	logger := f.logger.With("run_id", runID)

	p, meta, err := f.models.Predictor()
	if err != nil {
		return nil, err
	}
	fc, err := p.AddPredictions(t, threshold)
	if err != nil {
		return nil, err
	}

	summary := f.reports.Build(runID, fc)
	f.metrics.ForecastRows.Add(float64(summary.Total))
	f.metrics.HighRiskRows.Add(float64(summary.HighRisk))
	f.metrics.ForecastDuration.Observe(f.clock.Since(start).Seconds())
	logger.Info("forecast scored",
		"model_run_id", meta.RunID,
		"rows", summary.Total,
		"high_risk", summary.HighRisk,
		"threshold", threshold,
		"max_probability", summary.MaxProbability,
	)

	if f.alerts != nil && summary.HighRisk > 0 {
		alerts := Alerts(runID, fc, summary.GeneratedAt)
		if err := f.alerts.Publish(ctx, alerts); err != nil {
			logger.Error("publish risk alerts", "error", err, "alerts", len(alerts))
		} else {
			f.metrics.AlertsPublished.Add(float64(len(alerts)))
		}
	}

	return &Outcome{RunID: runID, Forecast: fc, Summary: summary}, nil
}

// Alerts builds one alert per high-risk row of fc.
func Alerts(runID string, fc *predict.Forecast, at time.Time) []domain.RiskAlert {
	gradeIdx := fc.Table.Index(domain.ColGrade)
	var alerts []domain.RiskAlert
	for i, label := range fc.Labels {
		if label != 1 {
			continue
		}
		alerts = append(alerts, domain.RiskAlert{
			RunID:       runID,
			Stockpile:   report.Entity(fc.Table, i),
			Grade:       fc.Table.Cell(i, gradeIdx),
			Probability: fc.Probabilities[i],
			Threshold:   fc.Threshold,
			ForecastAt:  at,
		})
	}
	return alerts
}
