package train

import (
	"math"
	"testing"

	"github.com/ppiankov/propval/internal/model"
)

func TestFitScaler_CenterAndScale(t *testing.T) {
	samples := []model.TrainingSample{
		{Features: model.FeatureVector{1, 10}},
		{Features: model.FeatureVector{3, 10}},
	}

	s, err := FitScaler(samples)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if s.Mean[0] != 2 {
		t.Errorf("expected mean 2, got %v", s.Mean[0])
	}
	if s.Std[0] != 1 {
		t.Errorf("expected std 1, got %v", s.Std[0])
	}
	// Constant feature gets scale 1 so Transform never divides by zero.
	if s.Std[1] != 1 {
		t.Errorf("expected constant-feature std 1, got %v", s.Std[1])
	}

	out := s.Transform([]float64{3, 10})
	if out[0] != 1 {
		t.Errorf("expected transformed value 1, got %v", out[0])
	}
	if out[1] != 0 {
		t.Errorf("expected transformed constant 0, got %v", out[1])
	}
}

func TestFitScaler_StandardizesToUnitVariance(t *testing.T) {
	samples := make([]model.TrainingSample, 50)
	for i := range samples {
		samples[i] = model.TrainingSample{Features: model.FeatureVector{float64(i) * 3.5}}
	}

	s, err := FitScaler(samples)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var mean, variance float64
	transformed := make([]float64, len(samples))
	for i, sample := range samples {
		transformed[i] = s.Transform(sample.Features)[0]
		mean += transformed[i]
	}
	mean /= float64(len(samples))
	for _, v := range transformed {
		variance += (v - mean) * (v - mean)
	}
	variance /= float64(len(samples))

	if math.Abs(mean) > 1e-9 {
		t.Errorf("expected zero mean, got %v", mean)
	}
	if math.Abs(variance-1) > 1e-9 {
		t.Errorf("expected unit variance, got %v", variance)
	}
}

func TestFitScaler_EmptySet(t *testing.T) {
	if _, err := FitScaler(nil); err == nil {
		t.Error("expected error for empty training set")
	}
}
