package anomaly

import (
	"fmt"
	"math"
	"sort"

	"github.com/divyansh-cyber/AceE6data/pkg/models"
)

// Scaler standardises metric samples to zero mean and unit variance using
// statistics fixed at fit time.
type Scaler struct {
	features   []string
	index      map[string]int
	minSamples int

	fitted bool
	mean   []float64
	scale  []float64
}

// NewScaler creates a Scaler over the given feature order. minSamples is the
// smallest batch Fit accepts.
func NewScaler(features []string, minSamples int) *Scaler {
	f := make([]string, len(features))
	copy(f, features)
	index := make(map[string]int, len(f))
	for i, name := range f {
		index[name] = i
	}
	return &Scaler{features: f, index: index, minSamples: minSamples}
}

// Features returns the feature order used by Transform.
func (s *Scaler) Features() []string {
	out := make([]string, len(s.features))
	copy(out, s.features)
	return out
}

// Mean returns a copy of the fitted per-feature means.
func (s *Scaler) Mean() []float64 { return append([]float64(nil), s.mean...) }

// Scale returns a copy of the fitted per-feature standard deviations.
func (s *Scaler) Scale() []float64 { return append([]float64(nil), s.scale...) }

// Fit computes the per-feature mean and population standard deviation.
// Zero-variance features get a scale of 1.
func (s *Scaler) Fit(samples []models.MetricSample) error {
	if len(s.features) == 0 {
		return fmt.Errorf("fitting scaler: no features configured")
	}
	if len(samples) < s.minSamples {
		return &NotReadyError{Available: len(samples), Required: s.minSamples}
	}

	rows := make([][]float64, len(samples))
	for i, sample := range samples {
		row, err := s.project(sample)
		if err != nil {
			return fmt.Errorf("fitting scaler: sample %d: %w", i, err)
		}
		rows[i] = row
	}

	n := float64(len(rows))
	mean := make([]float64, len(s.features))
	for _, row := range rows {
		for j, v := range row {
			mean[j] += v
		}
	}
	for j := range mean {
		mean[j] /= n
	}

	scale := make([]float64, len(s.features))
	for _, row := range rows {
		for j, v := range row {
			d := v - mean[j]
			scale[j] += d * d
		}
	}
	for j := range scale {
		scale[j] = math.Sqrt(scale[j] / n)
		if scale[j] == 0 {
			scale[j] = 1
		}
	}

	s.mean = mean
	s.scale = scale
	s.fitted = true
	return nil
}

// Transform projects a sample onto the fitted basis.
func (s *Scaler) Transform(sample models.MetricSample) ([]float64, error) {
	if !s.fitted {
		return nil, &NotReadyError{Available: 0, Required: s.minSamples}
	}
	row, err := s.project(sample)
	if err != nil {
		return nil, err
	}
	for j := range row {
		row[j] = (row[j] - s.mean[j]) / s.scale[j]
	}
	return row, nil
}

// TransformAll transforms every sample, stopping at the first mismatch.
func (s *Scaler) TransformAll(samples []models.MetricSample) ([][]float64, error) {
	out := make([][]float64, len(samples))
	for i, sample := range samples {
		row, err := s.Transform(sample)
		if err != nil {
			return nil, fmt.Errorf("transforming sample %d: %w", i, err)
		}
		out[i] = row
	}
	return out, nil
}

// project orders a sample's values by feature, failing when the key sets differ.
func (s *Scaler) project(sample models.MetricSample) ([]float64, error) {
	var missing, unexpected []string
	row := make([]float64, len(s.features))
	for i, name := range s.features {
		v, ok := sample.Values[name]
		if !ok {
			missing = append(missing, name)
			continue
		}
		row[i] = v
	}
	for name := range sample.Values {
		if _, ok := s.index[name]; !ok {
			unexpected = append(unexpected, name)
		}
	}
	if len(missing) > 0 || len(unexpected) > 0 {
		sort.Strings(unexpected)
		return nil, &FeatureMismatchError{
			Missing:    missing,
			Unexpected: unexpected,
			Expected:   len(s.features),
			Got:        len(sample.Values),
		}
	}
	return row, nil
}
