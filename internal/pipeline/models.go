package pipeline

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"github.com/couchcryptid/stockpile-fire-risk/internal/domain"
	"github.com/couchcryptid/stockpile-fire-risk/internal/model"
	"github.com/couchcryptid/stockpile-fire-risk/internal/observability"
	"github.com/couchcryptid/stockpile-fire-risk/internal/predict"
)

// ArtifactLoader reads a trained artifact.
type ArtifactLoader interface {
	Load() (*model.Artifact, error)
}

// ModelProvider hands out a Predictor backed by the current artifact. Until an
// artifact has been loaded every call retries the load, so a model trained
// after start-up is picked up without a restart.
type ModelProvider struct {
	loader  ArtifactLoader
	logger  *slog.Logger
	metrics *observability.Metrics

	mu        sync.Mutex
	predictor *predict.Predictor
	meta      model.Metadata
}

// NewModelProvider creates a ModelProvider. Nothing is loaded until first use.
func NewModelProvider(l ArtifactLoader, logger *slog.Logger, metrics *observability.Metrics) *ModelProvider {
	return &ModelProvider{loader: l, logger: logger, metrics: metrics}
}

// Predictor returns the loaded predictor with the metadata of its artifact.
// The error wraps domain.ErrModelUnavailable when no artifact exists.
func (m *ModelProvider) Predictor() (*predict.Predictor, model.Metadata, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.predictor != nil {
		return m.predictor, m.meta, nil
	}

	a, err := m.loader.Load()
	if err != nil {
		m.metrics.ModelLoaded.Set(0)
		if !errors.Is(err, domain.ErrModelUnavailable) {
			m.logger.Error("load model artifact", "error", err)
		}
		return nil, model.Metadata{}, err
	}
	if a.Encoder == nil {
		m.logger.Warn("grade encoder missing, grades will be factorised per batch")
	}

	m.predictor = predict.New(a.Classifier, a.Encoder, m.logger)
	m.meta = a.Metadata
	m.metrics.ModelLoaded.Set(1)
	m.logger.Info("model loaded",
		"run_id", a.Metadata.RunID,
		"trained_at", a.Metadata.TrainedAt,
		"trees", a.Classifier.Trees(),
	)
	return m.predictor, m.meta, nil
}

// Reload drops the cached predictor so the next call reads the artifact again.
func (m *ModelProvider) Reload() {
	m.mu.Lock()
	m.predictor = nil
	m.mu.Unlock()
}

// CheckReadiness returns nil once a model can be served.
func (m *ModelProvider) CheckReadiness(_ context.Context) error {
	_, _, err := m.Predictor()
	return err
}
