package model

import (
	"encoding/json"
	"fmt"
	"math/rand"
	"sync"

	randomforest "github.com/malaschitz/randomForest"
)

// Classifier is a trained binary random forest.
type Classifier struct {
	forest *randomforest.Forest
}

// fitMu serialises fits: the forest library draws from the global math/rand
// source and reads its worker count from a package variable.
var fitMu sync.Mutex

// Fit trains a forest on X and binary labels y. Trees are grown one at a time
// from the global source seeded with p.Seed, so equal inputs and params give
// an identical forest. Binaries must run with GODEBUG randseednop=0 for the
// seed to take effect.
func Fit(X [][]float64, y []int, p Params) *Classifier {
	fitMu.Lock()
	defer fitMu.Unlock()

	workers := randomforest.NumWorkers
	randomforest.NumWorkers = 1
	defer func() { randomforest.NumWorkers = workers }()
	rand.Seed(p.Seed) //nolint:staticcheck // the library has no per-forest source

	forest := &randomforest.Forest{
		MaxDepth: p.MaxDepth,
		LeafSize: p.LeafSize,
	}
	forest.Data = randomforest.ForestData{
		X:     X,
		Class: y,
	}
	forest.Train(p.Trees)
	return &Classifier{forest: forest}
}

// Trees returns the number of trees in the forest.
func (c *Classifier) Trees() int {
	return c.forest.NTrees
}

// Probability returns the share of trees voting for the positive class. A
// forest fitted without positive rows always returns 0.
func (c *Classifier) Probability(x []float64) float64 {
	votes := c.forest.Vote(x)
	if len(votes) < 2 {
		return 0
	}
	p := votes[1]
	switch {
	case p < 0:
		return 0
	case p > 1:
		return 1
	}
	return p
}

// MarshalJSON encodes the forest in the library's own JSON layout.
func (c *Classifier) MarshalJSON() ([]byte, error) {
	return json.Marshal(c.forest)
}

// UnmarshalJSON decodes a forest written by MarshalJSON. A forest without
// trees is rejected.
func (c *Classifier) UnmarshalJSON(data []byte) error {
	var forest randomforest.Forest
	if err := json.Unmarshal(data, &forest); err != nil {
		return fmt.Errorf("decode forest: %w", err)
	}
	if forest.NTrees == 0 {
		return fmt.Errorf("decode forest: no trees")
	}
	c.forest = &forest
	return nil
}
