package pipeline

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"

	"github.com/couchcryptid/stockpile-fire-risk/internal/domain"
	"github.com/couchcryptid/stockpile-fire-risk/internal/model"
	"github.com/couchcryptid/stockpile-fire-risk/internal/observability"
)

// InputLoader reads the source tables of a training run.
type InputLoader interface {
	Load(ctx context.Context) (domain.Inputs, domain.Anomalies, error)
}

// ModelTrainer fits a classifier on a finalised dataset.
type ModelTrainer interface {
	Params() model.Params
	Train(ctx context.Context, ds *domain.Dataset, threshold float64) (*model.Classifier, model.Evaluation, error)
}

// ArtifactSaver persists a trained artifact.
type ArtifactSaver interface {
	Save(a *model.Artifact) error
}

// FeatureTableWriter exports the built feature table.
type FeatureTableWriter interface {
	WriteFeatureTable(rows []domain.FeatureRow, enc *domain.CategoryEncoder) error
}

// TrainResult summarises a completed training run.
type TrainResult struct {
	RunID      string
	Stats      domain.BuildStats
	Anomalies  domain.Anomalies
	Evaluation model.Evaluation
}

// Pipeline orchestrates load, dataset construction, training and persistence.
type Pipeline struct {
	loader    InputLoader
	trainer   ModelTrainer
	saver     ArtifactSaver
	tables    FeatureTableWriter
	clock     clockwork.Clock
	logger    *slog.Logger
	metrics   *observability.Metrics
	threshold float64
}

// New creates a training Pipeline. threshold is the cut-off used for the
// hold-out evaluation.
func New(l InputLoader, t ModelTrainer, s ArtifactSaver, w FeatureTableWriter, clock clockwork.Clock, logger *slog.Logger, metrics *observability.Metrics, threshold float64) *Pipeline {
	return &Pipeline{
		loader:    l,
		trainer:   t,
		saver:     s,
		tables:    w,
		clock:     clock,
		logger:    logger,
		metrics:   metrics,
		threshold: threshold,
	}
}

// Run executes one training run from scratch.
func (p *Pipeline) Run(ctx context.Context) (*TrainResult, error) {
	res, err := p.run(ctx)
	if err != nil {
		p.metrics.PipelineRuns.WithLabelValues("train", "error").Inc()
		return nil, err
	}
	p.metrics.PipelineRuns.WithLabelValues("train", "success").Inc()
	return res, nil
}

func (p *Pipeline) run(ctx context.Context) (*TrainResult, error) {
	start := p.clock.Now()
	runID := uuid.NewString()
	logger := p.logger.With("run_id", runID)
	logger.Info("training pipeline started")

	in, anomalies, err := p.loader.Load(ctx)
	if err != nil {
		return nil, err
	}

	cal, stats, err := domain.BuildFeatureTable(in, anomalies)
	if err != nil {
		return nil, err
	}
	logger.Info("feature table built",
		"stockpiles", stats.Stockpiles,
		"rows", stats.Rows,
		"positives", stats.Positives,
		"label_marks", stats.LabelMarks,
		"end_date", stats.End.Format(time.DateOnly),
	)
	p.recordAnomalies(logger, anomalies)
	p.metrics.CalendarRows.Set(float64(stats.Rows))
	p.metrics.PositiveLabels.Set(float64(stats.Positives))

	ds := domain.Finalize(cal.Rows)
	logger.Info("dataset finalised", "features", len(domain.FeatureColumns), "grades", len(ds.Encoder.Classes()))

	if err := p.tables.WriteFeatureTable(cal.Rows, ds.Encoder); err != nil {
		return nil, err
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	clf, ev, err := p.trainer.Train(ctx, ds, p.threshold)
	if err != nil {
		return nil, err
	}

	artifact := &model.Artifact{
		Metadata: model.Metadata{
			RunID:          runID,
			TrainedAt:      p.clock.Now().UTC(),
			FeatureColumns: domain.FeatureColumns,
			Params:         p.trainer.Params(),
			Rows:           len(ds.X),
			Positives:      ds.Positives(),
			Evaluation:     ev,
		},
		Classifier: clf,
		Encoder:    ds.Encoder,
	}
	if err := p.saver.Save(artifact); err != nil {
		return nil, err
	}

	elapsed := p.clock.Since(start)
	p.metrics.TrainingDuration.Observe(elapsed.Seconds())
	p.metrics.HoldoutRecall.Set(ev.Recall)
	logger.Info("training pipeline finished", "duration", elapsed, "recall", ev.Recall)

	return &TrainResult{RunID: runID, Stats: stats, Anomalies: anomalies, Evaluation: ev}, nil
}

func (p *Pipeline) recordAnomalies(logger *slog.Logger, anomalies domain.Anomalies) {
	for _, key := range anomalies.Keys() {
		source, reason, _ := strings.Cut(key, "/")
		n := anomalies[key]
		p.metrics.SkippedRecords.WithLabelValues(source, reason).Add(float64(n))
		logger.Warn("skipped records", "source", source, "reason", reason, "count", n)
	}
}
