package pipeline_test

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/couchcryptid/stockpile-fire-risk/internal/domain"
	"github.com/couchcryptid/stockpile-fire-risk/internal/model"
	"github.com/couchcryptid/stockpile-fire-risk/internal/observability"
	"github.com/couchcryptid/stockpile-fire-risk/internal/pipeline"
)

// sequenceLoader returns its results in order, repeating the last one.
type sequenceLoader struct {
	results  []error
	calls    int
	artifact *model.Artifact
}

func (s *sequenceLoader) Load() (*model.Artifact, error) {
	i := s.calls
	if i >= len(s.results) {
		i = len(s.results) - 1
	}
	s.calls++
	if err := s.results[i]; err != nil {
		return nil, err
	}
	return s.artifact, nil
}

func tinyArtifact() *model.Artifact {
	X := [][]float64{{0}, {1}, {0}, {1}}
	y := []int{0, 1, 0, 1}
	params := model.DefaultParams()
	params.Trees = 3
	return &model.Artifact{
		Metadata:   model.Metadata{RunID: "run-7", FeatureColumns: domain.FeatureColumns},
		Classifier: model.Fit(X, y, params),
		Encoder:    domain.FitCategories([]string{"ДР"}),
	}
}

func unavailable() error {
	return fmt.Errorf("%w: no trained model", domain.ErrModelUnavailable)
}

func TestModelProvider_RetriesUntilLoaded(t *testing.T) {
	loader := &sequenceLoader{results: []error{unavailable(), nil}, artifact: tinyArtifact()}
	metrics := observability.NewMetricsForTesting()
	mp := pipeline.NewModelProvider(loader, discardLogger(), metrics)

	_, _, err := mp.Predictor()
	require.ErrorIs(t, err, domain.ErrModelUnavailable)
	assert.ErrorIs(t, mp.CheckReadiness(context.Background()), domain.ErrModelUnavailable)
	assert.Zero(t, testutil.ToFloat64(metrics.ModelLoaded))

	p, meta, err := mp.Predictor()
	require.NoError(t, err)
	assert.True(t, p.Ready())
	assert.Equal(t, "run-7", meta.RunID)
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.ModelLoaded))
}

func TestModelProvider_CachesPredictor(t *testing.T) {
	loader := &sequenceLoader{results: []error{nil}, artifact: tinyArtifact()}
	mp := pipeline.NewModelProvider(loader, discardLogger(), observability.NewMetricsForTesting())

	first, _, err := mp.Predictor()
	require.NoError(t, err)
	second, _, err := mp.Predictor()
	require.NoError(t, err)
	assert.Same(t, first, second)
	assert.Equal(t, 1, loader.calls)
	assert.NoError(t, mp.CheckReadiness(context.Background()))
}

func TestModelProvider_Reload(t *testing.T) {
	loader := &sequenceLoader{results: []error{nil}, artifact: tinyArtifact()}
	mp := pipeline.NewModelProvider(loader, discardLogger(), observability.NewMetricsForTesting())

	_, _, err := mp.Predictor()
	require.NoError(t, err)
	mp.Reload()
	_, _, err = mp.Predictor()
	require.NoError(t, err)
	assert.Equal(t, 2, loader.calls)
}

func TestModelProvider_CorruptArtifact(t *testing.T) {
	loader := &sequenceLoader{results: []error{errors.New("decode model.json: unexpected EOF")}}
	mp := pipeline.NewModelProvider(loader, discardLogger(), observability.NewMetricsForTesting())

	_, _, err := mp.Predictor()
	require.Error(t, err)
	assert.NotErrorIs(t, err, domain.ErrModelUnavailable)
}
