// Package predict scores inference rows with a trained classifier.
package predict

import (
	"fmt"
	"log/slog"
	"math"
	"strconv"
	"strings"

	"gonum.org/v1/gonum/stat"

	"github.com/couchcryptid/stockpile-fire-risk/internal/domain"
)

// DefaultThreshold favours recall on a rare event.
const DefaultThreshold = 0.1

// Scorer returns the positive-class probability of one feature vector.
type Scorer interface {
	Probability(x []float64) float64
}

// Matrix is a prepared feature matrix. Rows follow Columns order.
type Matrix struct {
	Columns []string
	Rows    [][]float64
}

// Predictor applies the training feature contract to new rows. A nil scorer
// makes every prediction fail with domain.ErrModelUnavailable. A nil encoder
// falls back to factorising the grade column.
type Predictor struct {
	scorer  Scorer
	encoder *domain.CategoryEncoder
	logger  *slog.Logger
}

// New creates a Predictor.
func New(scorer Scorer, encoder *domain.CategoryEncoder, logger *slog.Logger) *Predictor {
	return &Predictor{scorer: scorer, encoder: encoder, logger: logger}
}

// Ready reports whether a model is loaded.
func (p *Predictor) Ready() bool {
	return p != nil && p.scorer != nil
}

// Prepare builds the feature matrix for t in cols order. Every column must be
// present. Empty or unparseable numbers are replaced with the mean of that
// column over this batch.
func (p *Predictor) Prepare(t domain.Table, cols []string) (Matrix, error) {
	if err := domain.RequireColumns("inference table", t.Header, cols); err != nil {
		return Matrix{}, err
	}

	m := Matrix{Columns: cols, Rows: make([][]float64, len(t.Rows))}
	for i := range m.Rows {
		m.Rows[i] = make([]float64, len(cols))
	}

	for j, col := range cols {
		idx := t.Index(col)
		var values []float64
		if col == domain.ColGrade {
			values = p.encodeGrades(t, idx)
		} else {
			values = p.numericColumn(t, idx, col)
		}
		for i, v := range values {
			m.Rows[i][j] = v
		}
	}
	return m, nil
}

func (p *Predictor) encodeGrades(t domain.Table, idx int) []float64 {
	grades := make([]string, len(t.Rows))
	for i := range t.Rows {
		grades[i] = strings.TrimSpace(t.Cell(i, idx))
	}
	out := make([]float64, len(grades))
	if p.encoder == nil {
		p.logger.Warn("no grade encoder loaded, factorising grades in order of appearance")
		for i, id := range domain.Factorize(grades) {
			out[i] = float64(id)
		}
		return out
	}
	unseen := 0
	for i, g := range grades {
		id := p.encoder.Encode(g)
		if id == domain.UnseenCategory {
			unseen++
		}
		out[i] = float64(id)
	}
	if unseen > 0 {
		p.logger.Warn("grades not seen in training", "rows", unseen)
	}
	return out
}

func (p *Predictor) numericColumn(t domain.Table, idx int, col string) []float64 {
	out := make([]float64, len(t.Rows))
	present := make([]float64, 0, len(t.Rows))
	for i := range t.Rows {
		v, ok := domain.ParseNumber(t.Cell(i, idx))
		if !ok {
			out[i] = math.NaN()
			continue
		}
		out[i] = v
		present = append(present, v)
	}
	if len(present) == len(out) {
		return out
	}

	fill := 0.0
	if len(present) > 0 {
		fill = stat.Mean(present, nil)
	} else {
		p.logger.Warn("column has no numeric values, imputing 0", "column", col)
	}
	for i := range out {
		if math.IsNaN(out[i]) {
			out[i] = fill
		}
	}
	p.logger.Debug("imputed missing values with batch mean",
		"column", col, "rows", len(out)-len(present), "mean", fill)
	return out
}

// PredictProbability scores every row of m.
func (p *Predictor) PredictProbability(m Matrix) ([]float64, error) {
	if !p.Ready() {
		return nil, fmt.Errorf("%w: predictor has no trained model", domain.ErrModelUnavailable)
	}
	out := make([]float64, len(m.Rows))
	for i, x := range m.Rows {
		out[i] = p.scorer.Probability(x)
	}
	return out, nil
}

// PredictLabel returns 1 for rows whose probability is at least threshold.
func (p *Predictor) PredictLabel(m Matrix, threshold float64) ([]int, error) {
	probs, err := p.PredictProbability(m)
	if err != nil {
		return nil, err
	}
	return Labels(probs, threshold), nil
}

// Labels thresholds probabilities.
func Labels(probs []float64, threshold float64) []int {
	out := make([]int, len(probs))
	for i, v := range probs {
		if v >= threshold {
			out[i] = 1
		}
	}
	return out
}

// Forecast is a scored inference table.
type Forecast struct {
	// Table holds the original columns followed by probability and label.
	Table         domain.Table
	Probabilities []float64
	Labels        []int
	Threshold     float64
}

// HighRisk counts rows labelled 1.
func (f *Forecast) HighRisk() int {
	n := 0
	for _, l := range f.Labels {
		n += l
	}
	return n
}

// AddPredictions scores t on domain.FeatureColumns and appends the
// probability and label columns to a copy of it.
func (p *Predictor) AddPredictions(t domain.Table, threshold float64) (*Forecast, error) {
	m, err := p.Prepare(t, domain.FeatureColumns)
	if err != nil {
		return nil, err
	}
	probs, err := p.PredictProbability(m)
	if err != nil {
		return nil, err
	}
	labels := Labels(probs, threshold)

	out := domain.Table{
		Header: append(append([]string{}, t.Header...), domain.ColProbability, domain.ColPrediction),
		Rows:   make([][]string, len(t.Rows)),
	}
	for i, row := range t.Rows {
		r := make([]string, len(t.Header), len(t.Header)+2)
		copy(r, row)
		out.Rows[i] = append(r,
			strconv.FormatFloat(probs[i], 'f', -1, 64),
			strconv.Itoa(labels[i]),
		)
	}
	return &Forecast{Table: out, Probabilities: probs, Labels: labels, Threshold: threshold}, nil
}
