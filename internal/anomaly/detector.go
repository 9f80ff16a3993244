package anomaly

import (
	"fmt"
	"sync/atomic"

	"github.com/divyansh-cyber/AceE6data/pkg/models"
)

// Config configures a Detector.
type Config struct {
	// Features fixes the metric order of every feature vector.
	Features []string
	Model    ModelConfig
}

// FromML builds a detector Config from the ml and metrics config sections.
func FromML(ml models.MLConfig, features []string) Config {
	return Config{
		Features: features,
		Model: ModelConfig{
			Contamination: ml.Contamination,
			RandomState:   ml.RandomState,
			NumTrees:      ml.NumTrees,
			MaxSamples:    ml.MaxSamples,
			MinSamples:    ml.MinSamplesForTraining,
		},
	}
}

// pipeline is a scaler and the model trained on its output. The two are
// only ever published together.
type pipeline struct {
	scaler    *Scaler
	model     *Model
	trainedOn int
}

// Detector owns the scaler and model of one session. It is safe to call
// Analyze while Train runs; Analyze sees either the old or the new pipeline.
type Detector struct {
	cfg       Config
	current   atomic.Pointer[pipeline]
	lastBatch atomic.Int64
}

// NewDetector validates cfg and returns an untrained Detector.
func NewDetector(cfg Config) (*Detector, error) {
	if len(cfg.Features) == 0 {
		return nil, fmt.Errorf("invalid detector config: no features enabled")
	}
	seen := make(map[string]bool, len(cfg.Features))
	for _, f := range cfg.Features {
		if seen[f] {
			return nil, fmt.Errorf("invalid detector config: duplicate feature %q", f)
		}
		seen[f] = true
	}
	cfg.Model = cfg.Model.withDefaults()
	if err := cfg.Model.Validate(); err != nil {
		return nil, fmt.Errorf("invalid detector config: %w", err)
	}
	return &Detector{cfg: cfg}, nil
}

// Features returns the configured feature order.
func (d *Detector) Features() []string {
	return append([]string(nil), d.cfg.Features...)
}

// MinSamples returns the training threshold.
func (d *Detector) MinSamples() int { return d.cfg.Model.MinSamples }

// Ready reports whether a training run has succeeded.
func (d *Detector) Ready() bool { return d.current.Load() != nil }

// TrainedOn returns the size of the batch behind the current model, or 0.
func (d *Detector) TrainedOn() int {
	if p := d.current.Load(); p != nil {
		return p.trainedOn
	}
	return 0
}

// Train fits a fresh scaler and model over samples and publishes them
// together. On error the previous pipeline stays in use.
func (d *Detector) Train(samples []models.MetricSample) error {
	d.lastBatch.Store(int64(len(samples)))

	scaler := NewScaler(d.cfg.Features, d.cfg.Model.MinSamples)
	if err := scaler.Fit(samples); err != nil {
		return err
	}
	vectors, err := scaler.TransformAll(samples)
	if err != nil {
		return err
	}
	model, err := NewModel(d.cfg.Model)
	if err != nil {
		return err
	}
	if err := model.Fit(vectors); err != nil {
		return err
	}

	d.current.Store(&pipeline{scaler: scaler, model: model, trainedOn: len(samples)})
	return nil
}

// Analyze scales sample with the training-time statistics and scores it.
func (d *Detector) Analyze(sample models.MetricSample) (Verdict, error) {
	p := d.current.Load()
	if p == nil {
		return Verdict{}, &NotReadyError{Available: int(d.lastBatch.Load()), Required: d.cfg.Model.MinSamples}
	}
	x, err := p.scaler.Transform(sample)
	if err != nil {
		return Verdict{}, err
	}
	return p.model.Predict(x)
}
