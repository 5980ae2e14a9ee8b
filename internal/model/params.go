package model

import (
	"fmt"
	"os"

	"github.com/mitchellh/mapstructure"
	"gopkg.in/yaml.v3"
)

// Params controls classifier fitting.
type Params struct {
	Trees          int     `mapstructure:"trees" json:"trees"`
	MaxDepth       int     `mapstructure:"max_depth" json:"max_depth"`
	LeafSize       int     `mapstructure:"leaf_size" json:"leaf_size"`
	PositiveWeight int     `mapstructure:"positive_weight" json:"positive_weight"`
	TestFraction   float64 `mapstructure:"test_fraction" json:"test_fraction"`
	Seed           int64   `mapstructure:"seed" json:"seed"`
}

// DefaultParams mirrors the settings the production classifier was fitted
// with: 200 trees of depth at most 10 with leaves of at least 5 rows, positive
// class weighted 5:1, 20% stratified hold-out.
func DefaultParams() Params {
	return Params{
		Trees:          200,
		MaxDepth:       10,
		LeafSize:       5,
		PositiveWeight: 5,
		TestFraction:   0.2,
		Seed:           42,
	}
}

// Validate rejects parameters the trainer cannot use.
func (p Params) Validate() error {
	if p.Trees <= 0 {
		return fmt.Errorf("trees must be positive, got %d", p.Trees)
	}
	if p.MaxDepth <= 0 {
		return fmt.Errorf("max_depth must be positive, got %d", p.MaxDepth)
	}
	if p.LeafSize <= 0 {
		return fmt.Errorf("leaf_size must be positive, got %d", p.LeafSize)
	}
	if p.PositiveWeight < 1 {
		return fmt.Errorf("positive_weight must be at least 1, got %d", p.PositiveWeight)
	}
	if p.TestFraction < 0 || p.TestFraction >= 1 {
		return fmt.Errorf("test_fraction must be in [0, 1), got %g", p.TestFraction)
	}
	return nil
}

// LoadParams reads a YAML file over the defaults. An empty path returns the
// defaults. Values may be quoted strings; they are converted.
func LoadParams(path string) (Params, error) {
	params := DefaultParams()
	if path == "" {
		return params, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return Params{}, fmt.Errorf("read training params: %w", err)
	}
	var raw map[string]any
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return Params{}, fmt.Errorf("parse training params %s: %w", path, err)
	}

	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           &params,
		TagName:          "mapstructure",
		WeaklyTypedInput: true,
		ErrorUnused:      true,
	})
	if err != nil {
		return Params{}, fmt.Errorf("create params decoder: %w", err)
	}
	if err := decoder.Decode(raw); err != nil {
		return Params{}, fmt.Errorf("decode training params %s: %w", path, err)
	}
	if err := params.Validate(); err != nil {
		return Params{}, fmt.Errorf("training params %s: %w", path, err)
	}
	return params, nil
}
