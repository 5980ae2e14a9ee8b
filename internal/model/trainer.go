package model

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/couchcryptid/stockpile-fire-risk/internal/domain"
)

// Evaluation holds hold-out metrics at a probability threshold.
type Evaluation struct {
	Threshold     float64 `json:"threshold"`
	TrainRows     int     `json:"train_rows"`
	TestRows      int     `json:"test_rows"`
	TestPositives int     `json:"test_positives"`
	Accuracy      float64 `json:"accuracy"`
	Precision     float64 `json:"precision"`
	Recall        float64 `json:"recall"`
	PositiveRate  float64 `json:"positive_rate"`
}

// Evaluate scores predictions against labels. Ratios with a zero denominator
// are 0.
func Evaluate(probs []float64, y []int, threshold float64) Evaluation {
	var tp, fp, tn, fn int
	for i, p := range probs {
		pred := 0
		if p >= threshold {
			pred = 1
		}
		switch {
		case pred == 1 && y[i] == 1:
			tp++
		case pred == 1:
			fp++
		case y[i] == 1:
			fn++
		default:
			tn++
		}
	}
	ev := Evaluation{Threshold: threshold, TestRows: len(probs), TestPositives: tp + fn}
	ev.Accuracy = ratio(tp+tn, len(probs))
	ev.Precision = ratio(tp, tp+fp)
	ev.Recall = ratio(tp, tp+fn)
	ev.PositiveRate = ratio(tp+fp, len(probs))
	return ev
}

func ratio(a, b int) float64 {
	if b == 0 {
		return 0
	}
	return float64(a) / float64(b)
}

// Trainer fits a Classifier on a finalised dataset.
type Trainer struct {
	params Params
	logger *slog.Logger
}

// NewTrainer creates a Trainer. params must be valid.
func NewTrainer(params Params, logger *slog.Logger) *Trainer {
	return &Trainer{params: params, logger: logger}
}

// Params returns the fitting parameters.
func (t *Trainer) Params() Params { return t.params }

// Train splits ds, fits the forest on the training part with positive rows
// replicated PositiveWeight times, and evaluates on the hold-out part.
func (t *Trainer) Train(ctx context.Context, ds *domain.Dataset, threshold float64) (*Classifier, Evaluation, error) {
	if len(ds.X) == 0 {
		return nil, Evaluation{}, fmt.Errorf("%w: dataset has no rows", domain.ErrConfiguration)
	}
	if ds.Positives() == 0 {
		t.logger.Warn("dataset has no positive labels, the classifier will never predict a fire")
	}

	trainIdx, testIdx := StratifiedSplit(ds.Y, t.params.TestFraction, t.params.Seed)

	var X [][]float64
	var y []int
	for _, i := range trainIdx {
		copies := 1
		if ds.Y[i] == 1 {
			copies = t.params.PositiveWeight
		}
		for range copies {
			X = append(X, ds.X[i])
			y = append(y, ds.Y[i])
		}
	}
	if err := ctx.Err(); err != nil {
		return nil, Evaluation{}, err
	}

	t.logger.Info("fitting classifier",
		"trees", t.params.Trees,
		"max_depth", t.params.MaxDepth,
		"leaf_size", t.params.LeafSize,
		"seed", t.params.Seed,
		"train_rows", len(trainIdx),
		"weighted_rows", len(X),
		"test_rows", len(testIdx),
	)
	clf := Fit(X, y, t.params)

	probs := make([]float64, len(testIdx))
	labels := make([]int, len(testIdx))
	for k, i := range testIdx {
		probs[k] = clf.Probability(ds.X[i])
		labels[k] = ds.Y[i]
	}
	ev := Evaluate(probs, labels, threshold)
	ev.TrainRows = len(trainIdx)

	t.logger.Info("hold-out evaluation",
		"threshold", ev.Threshold,
		"accuracy", ev.Accuracy,
		"precision", ev.Precision,
		"recall", ev.Recall,
		"test_positives", ev.TestPositives,
	)
	return clf, ev, nil
}
