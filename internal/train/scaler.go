package train

import (
	"fmt"
	"math"

	"github.com/ppiankov/propval/internal/model"
)

// Scaler standardizes features to zero mean and unit variance. It is
// fit on training features only, never on eval data, and travels with
// the model it was fit alongside as one artifact bundle.
type Scaler struct {
	Mean []float64 `json:"mean"`
	Std  []float64 `json:"std"`
}

// FitScaler computes per-feature center and scale over the training
// subset. Constant features get scale 1 so transforming never divides
// by zero.
func FitScaler(samples []model.TrainingSample) (*Scaler, error) {
	if len(samples) == 0 {
		return nil, fmt.Errorf("fit scaler: empty training set")
	}

	dim := len(samples[0].Features)
	mean := make([]float64, dim)
	std := make([]float64, dim)

	for _, sample := range samples {
		if len(sample.Features) != dim {
			return nil, fmt.Errorf("fit scaler: inconsistent feature length %d, want %d", len(sample.Features), dim)
		}
		for i, v := range sample.Features {
			mean[i] += v
		}
	}
	for i := range mean {
		mean[i] /= float64(len(samples))
	}

	for _, sample := range samples {
		for i, v := range sample.Features {
			std[i] += (v - mean[i]) * (v - mean[i])
		}
	}
	for i := range std {
		std[i] = math.Sqrt(std[i] / float64(len(samples)))
		if std[i] == 0 {
			std[i] = 1
		}
	}

	return &Scaler{Mean: mean, Std: std}, nil
}

// Len returns the feature dimension the scaler was fit on.
func (s *Scaler) Len() int {
	return len(s.Mean)
}

// Transform standardizes one raw feature vector.
func (s *Scaler) Transform(features []float64) []float64 {
	out := make([]float64, len(features))
	for i, v := range features {
		out[i] = (v - s.Mean[i]) / s.Std[i]
	}
	return out
}
