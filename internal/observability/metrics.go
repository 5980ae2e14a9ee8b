package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "firerisk"

// Metrics holds the Prometheus counters, histograms, and gauges for training
// and forecasting.
type Metrics struct {
	PipelineRuns   *prometheus.CounterVec // labels: pipeline={train,forecast}, outcome={success,error}
	CalendarRows   prometheus.Gauge
	PositiveLabels prometheus.Gauge
	SkippedRecords *prometheus.CounterVec // labels: source, reason

	TrainingDuration prometheus.Histogram
	HoldoutRecall    prometheus.Gauge

	ForecastRows     prometheus.Counter
	HighRiskRows     prometheus.Counter
	ForecastDuration prometheus.Histogram
	ModelLoaded      prometheus.Gauge

	AlertsPublished prometheus.Counter
}

func newMetrics() *Metrics {
	return &Metrics{
		PipelineRuns: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "pipeline_runs_total",
			Help:      "Pipeline runs by pipeline and outcome.",
		}, []string{"pipeline", "outcome"}),
		CalendarRows: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "calendar_rows",
			Help:      "Stockpile-day rows in the last built feature table.",
		}),
		PositiveLabels: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "positive_labels",
			Help:      "Rows labelled high-risk in the last built feature table.",
		}),
		SkippedRecords: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "skipped_records_total",
			Help:      "Source rows skipped during loading and dataset construction.",
		}, []string{"source", "reason"}),
		TrainingDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "training_duration_seconds",
			Help:      "Duration of a complete training run.",
			Buckets:   []float64{1, 5, 10, 30, 60, 120, 300, 600},
		}),
		HoldoutRecall: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "holdout_recall",
			Help:      "Recall of the last trained model on its hold-out split.",
		}),
		ForecastRows: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "forecast_rows_total",
			Help:      "Total inference rows scored.",
		}),
		HighRiskRows: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "high_risk_rows_total",
			Help:      "Total inference rows at or above the risk threshold.",
		}),
		ForecastDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "forecast_duration_seconds",
			Help:      "Duration of scoring one inference table.",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.5, 1, 2.5, 5, 10},
		}),
		ModelLoaded: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "model_loaded",
			Help:      "1 when a trained model is loaded, 0 otherwise.",
		}),
		AlertsPublished: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "alerts_published_total",
			Help:      "Total risk alerts written to Kafka.",
		}),
	}
}

// NewMetrics creates and registers all metrics with the default Prometheus registry.
func NewMetrics() *Metrics {
	m := newMetrics()
	prometheus.MustRegister(
		m.PipelineRuns,
		m.CalendarRows,
		m.PositiveLabels,
		m.SkippedRecords,
		m.TrainingDuration,
		m.HoldoutRecall,
		m.ForecastRows,
		m.HighRiskRows,
		m.ForecastDuration,
		m.ModelLoaded,
		m.AlertsPublished,
	)
	return m
}

// NewMetricsForTesting creates unregistered Metrics to avoid
// "already registered" panics when called from multiple tests.
func NewMetricsForTesting() *Metrics {
	return newMetrics()
}
