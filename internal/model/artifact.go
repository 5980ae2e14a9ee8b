package model

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"time"

	"github.com/couchcryptid/stockpile-fire-risk/internal/domain"
)

// Artifact file names inside the model directory.
const (
	ModelFile   = "model.json"
	EncoderFile = "label_encoder.json"
)

// Metadata describes how an artifact was produced.
type Metadata struct {
	RunID          string     `json:"run_id"`
	TrainedAt      time.Time  `json:"trained_at"`
	FeatureColumns []string   `json:"feature_columns"`
	Params         Params     `json:"params"`
	Rows           int        `json:"rows"`
	Positives      int        `json:"positives"`
	Evaluation     Evaluation `json:"evaluation"`
	Grades         []string   `json:"grades,omitempty"`
}

// Artifact is a trained classifier with its grade encoder. Encoder is nil when
// the encoder file was absent.
type Artifact struct {
	Metadata   Metadata
	Classifier *Classifier
	Encoder    *domain.CategoryEncoder
}

type modelFile struct {
	Metadata Metadata    `json:"metadata"`
	Forest   *Classifier `json:"forest"`
}

// Store reads and writes artifacts in a directory.
type Store struct {
	dir string
}

// NewStore creates a Store rooted at dir.
func NewStore(dir string) *Store {
	return &Store{dir: dir}
}

// Dir returns the model directory.
func (s *Store) Dir() string { return s.dir }

// Save writes both files, each through a temporary file and rename. The
// encoder goes first and the model last, and the model metadata records the
// encoder classes, so Load never pairs a forest with another run's encoder.
func (s *Store) Save(a *Artifact) error {
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return fmt.Errorf("create model dir: %w", err)
	}
	if a.Encoder != nil {
		a.Metadata.Grades = a.Encoder.Classes()
	}
	if err := s.writeJSON(EncoderFile, a.Encoder); err != nil {
		return err
	}
	return s.writeJSON(ModelFile, modelFile{Metadata: a.Metadata, Forest: a.Classifier})
}

// Load reads the artifact. A missing model file wraps
// domain.ErrModelUnavailable.
func (s *Store) Load() (*Artifact, error) {
	var mf modelFile
	if err := s.readJSON(ModelFile, &mf); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: no trained model in %s", domain.ErrModelUnavailable, s.dir)
		}
		return nil, err
	}
	if mf.Forest == nil {
		return nil, fmt.Errorf("%w: %s has no forest", domain.ErrModelUnavailable, ModelFile)
	}
	if !slices.Equal(mf.Metadata.FeatureColumns, domain.FeatureColumns) {
		return nil, fmt.Errorf("%w: model was trained on columns %v", domain.ErrModelUnavailable, mf.Metadata.FeatureColumns)
	}

	a := &Artifact{Metadata: mf.Metadata, Classifier: mf.Forest}
	var enc domain.CategoryEncoder
	switch err := s.readJSON(EncoderFile, &enc); {
	case err == nil:
		if mf.Metadata.Grades != nil && !slices.Equal(enc.Classes(), mf.Metadata.Grades) {
			return nil, fmt.Errorf("%w: %s does not match run %s", domain.ErrModelUnavailable, EncoderFile, mf.Metadata.RunID)
		}
		a.Encoder = &enc
	case errors.Is(err, fs.ErrNotExist):
	default:
		return nil, err
	}
	return a, nil
}

func (s *Store) writeJSON(name string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode %s: %w", name, err)
	}
	path := filepath.Join(s.dir, name)
	tmp, err := os.CreateTemp(s.dir, "."+name+".*")
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	defer os.Remove(tmp.Name())
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("write %s: %w", path, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close %s: %w", path, err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("replace %s: %w", path, err)
	}
	return nil
}

func (s *Store) readJSON(name string, v any) error {
	path := filepath.Join(s.dir, name)
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("decode %s: %w", path, err)
	}
	return nil
}
