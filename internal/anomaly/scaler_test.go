package anomaly

import (
	"errors"
	"math"
	"testing"
	"time"

	"github.com/divyansh-cyber/AceE6data/pkg/models"
)

func sample(values map[string]float64) models.MetricSample {
	return models.NewMetricSample(time.Unix(0, 0), values)
}

func TestScaler_FitPopulationStats(t *testing.T) {
	s := NewScaler([]string{"a", "b"}, 2)
	err := s.Fit([]models.MetricSample{
		sample(map[string]float64{"a": 1, "b": 7}),
		sample(map[string]float64{"a": 3, "b": 7}),
	})
	if err != nil {
		t.Fatalf("Fit: %v", err)
	}

	mean, scale := s.Mean(), s.Scale()
	if mean[0] != 2 || mean[1] != 7 {
		t.Errorf("Mean() = %v, want [2 7]", mean)
	}
	// Population std of {1,3} is 1; constant b falls back to 1.
	if scale[0] != 1 || scale[1] != 1 {
		t.Errorf("Scale() = %v, want [1 1]", scale)
	}

	got, err := s.Transform(sample(map[string]float64{"a": 4, "b": 7}))
	if err != nil {
		t.Fatalf("Transform: %v", err)
	}
	if got[0] != 2 || got[1] != 0 {
		t.Errorf("Transform = %v, want [2 0]", got)
	}
}

func TestScaler_NotEnoughSamples(t *testing.T) {
	s := NewScaler([]string{"a"}, 10)
	samples := make([]models.MetricSample, 9)
	for i := range samples {
		samples[i] = sample(map[string]float64{"a": float64(i)})
	}
	err := s.Fit(samples)
	var nr *NotReadyError
	if !errors.As(err, &nr) {
		t.Fatalf("Fit error = %v, want *NotReadyError", err)
	}
	if nr.Missing() != 1 {
		t.Errorf("Missing() = %d, want 1", nr.Missing())
	}
	if s.fitted {
		t.Error("scaler fitted on short batch")
	}
}

func TestScaler_ParametersFixedAfterFit(t *testing.T) {
	s := NewScaler([]string{"a"}, 2)
	train := []models.MetricSample{
		sample(map[string]float64{"a": 10}),
		sample(map[string]float64{"a": 20}),
		sample(map[string]float64{"a": 30}),
	}
	if err := s.Fit(train); err != nil {
		t.Fatalf("Fit: %v", err)
	}
	meanBefore := s.Mean()

	if _, err := s.Transform(sample(map[string]float64{"a": 1e9})); err != nil {
		t.Fatalf("Transform: %v", err)
	}
	rows, err := s.TransformAll(train)
	if err != nil {
		t.Fatalf("TransformAll: %v", err)
	}
	if s.Mean()[0] != meanBefore[0] {
		t.Errorf("mean changed after transform: %v -> %v", meanBefore, s.Mean())
	}

	sum := 0.0
	for _, r := range rows {
		sum += r[0]
	}
	if math.Abs(sum) > 1e-9 {
		t.Errorf("scaled training set sums to %v, want 0", sum)
	}
}

func TestScaler_FitRejectsMismatchedBatch(t *testing.T) {
	s := NewScaler([]string{"a", "b"}, 2)
	err := s.Fit([]models.MetricSample{
		sample(map[string]float64{"a": 1, "b": 2}),
		sample(map[string]float64{"a": 1}),
	})
	var fm *FeatureMismatchError
	if !errors.As(err, &fm) {
		t.Fatalf("Fit error = %v, want *FeatureMismatchError", err)
	}
	if len(fm.Missing) != 1 || fm.Missing[0] != "b" {
		t.Errorf("Missing = %v, want [b]", fm.Missing)
	}
}

func TestScaler_TransformBeforeFit(t *testing.T) {
	s := NewScaler([]string{"a"}, 3)
	if _, err := s.Transform(sample(map[string]float64{"a": 1})); !errors.Is(err, ErrNotReady) {
		t.Errorf("Transform error = %v, want ErrNotReady", err)
	}
}
