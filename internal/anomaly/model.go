package anomaly

import (
	"errors"
	"fmt"
	"math"
	"sync/atomic"
)

// Defaults for ModelConfig fields left at zero.
const (
	DefaultNumTrees      = 100
	DefaultMaxSamples    = 256
	DefaultContamination = 0.1
	DefaultMinSamples    = 10
)

// ModelConfig parameterises an isolation forest.
type ModelConfig struct {
	// Contamination is the expected share of outliers in training data,
	// strictly between 0 and 0.5.
	Contamination float64
	RandomState   int64
	NumTrees      int
	MaxSamples    int
	// MinSamples is the smallest batch Fit accepts. Must be at least 2.
	MinSamples int
}

func (c ModelConfig) withDefaults() ModelConfig {
	if c.NumTrees == 0 {
		c.NumTrees = DefaultNumTrees
	}
	if c.MaxSamples == 0 {
		c.MaxSamples = DefaultMaxSamples
	}
	if c.MinSamples == 0 {
		c.MinSamples = DefaultMinSamples
	}
	return c
}

// Validate checks the configuration, reporting every problem at once.
func (c ModelConfig) Validate() error {
	var errs []error
	if !(c.Contamination > 0 && c.Contamination < 0.5) {
		errs = append(errs, fmt.Errorf("contamination must be in (0, 0.5), got %v", c.Contamination))
	}
	if c.NumTrees < 1 {
		errs = append(errs, fmt.Errorf("num_trees must be positive, got %d", c.NumTrees))
	}
	if c.MaxSamples < 2 {
		errs = append(errs, fmt.Errorf("max_samples must be at least 2, got %d", c.MaxSamples))
	}
	if c.MinSamples < 2 {
		errs = append(errs, fmt.Errorf("min_samples_for_training must be at least 2, got %d", c.MinSamples))
	}
	return errors.Join(errs...)
}

// Verdict is the outcome of scoring one sample.
type Verdict struct {
	IsAnomaly bool    `json:"is_anomaly"`
	Score     float64 `json:"score"`
}

// Model is an isolation-forest outlier detector over feature vectors.
// Re-fitting replaces the trained forest atomically; a failed fit leaves the
// previous forest in place.
type Model struct {
	cfg       ModelConfig
	forest    atomic.Pointer[isolationForest]
	lastBatch atomic.Int64
}

// NewModel returns an untrained Model.
func NewModel(cfg ModelConfig) (*Model, error) {
	cfg = cfg.withDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid model config: %w", err)
	}
	return &Model{cfg: cfg}, nil
}

// Config returns the effective configuration.
func (m *Model) Config() ModelConfig { return m.cfg }

// trained reports whether a fit has succeeded.
func (m *Model) trained() bool { return m.forest.Load() != nil }

// Fit grows a new forest over vectors. All vectors must share one non-zero
// length and hold finite values.
func (m *Model) Fit(vectors [][]float64) error {
	m.lastBatch.Store(int64(len(vectors)))
	if len(vectors) < m.cfg.MinSamples {
		return &NotReadyError{Available: len(vectors), Required: m.cfg.MinSamples}
	}

	dim := len(vectors[0])
	if dim == 0 {
		return fmt.Errorf("fitting model: vectors have no features")
	}
	for i, v := range vectors {
		if len(v) != dim {
			return fmt.Errorf("fitting model: vector %d: %w", i, &FeatureMismatchError{Expected: dim, Got: len(v)})
		}
		for _, x := range v {
			if math.IsNaN(x) || math.IsInf(x, 0) {
				return fmt.Errorf("fitting model: vector %d has non-finite value", i)
			}
		}
	}

	f := growForest(vectors, m.cfg.NumTrees, m.cfg.MaxSamples, m.cfg.RandomState)
	f.calibrate(vectors, m.cfg.Contamination)
	m.forest.Store(f)
	return nil
}

// Score returns the signed anomaly score of x; lower is more anomalous and
// values below zero are outliers.
func (m *Model) Score(x []float64) (float64, error) {
	f := m.forest.Load()
	if f == nil {
		return 0, m.notReady()
	}
	if len(x) != f.numFeatures {
		return 0, &FeatureMismatchError{Expected: f.numFeatures, Got: len(x)}
	}
	return f.score(x), nil
}

// Predict scores x and classifies it against the zero decision boundary.
func (m *Model) Predict(x []float64) (Verdict, error) {
	s, err := m.Score(x)
	if err != nil {
		return Verdict{}, err
	}
	return Verdict{IsAnomaly: s < 0, Score: s}, nil
}

func (m *Model) notReady() *NotReadyError {
	return &NotReadyError{Available: int(m.lastBatch.Load()), Required: m.cfg.MinSamples}
}
