package train

import (
	"encoding/json"
	"fmt"
	"math"

	"github.com/ppiankov/propval/internal/model"
)

// Archetype tags for the supported model families.
const (
	ArchetypeBoost = "boost"
	ArchetypeNet   = "net"
)

// Model is a trained regressor. Predict operates on scaled features and
// is O(1) in corpus size.
type Model interface {
	Predict(features []float64) float64
	Archetype() string
}

// Metrics reports how a training run went. BestIteration is the
// iteration whose eval score was persisted; Iterations is how many ran
// before early stopping ended the loop.
type Metrics struct {
	TrainMAE      float64 `json:"train_mae"`
	EvalMAE       float64 `json:"eval_mae"`
	R2            float64 `json:"r2"`
	BestIteration int     `json:"best_iteration"`
	Iterations    int     `json:"iterations"`
}

// Trainer fits one model archetype against the shared feature contract.
// The scaler is fit on the training subset only and returned alongside
// the model it must always be applied with.
type Trainer interface {
	Archetype() string
	Train(trainSet, evalSet []model.TrainingSample) (Model, *Scaler, Metrics, error)
}

// NewTrainer returns the trainer for an archetype tag.
func NewTrainer(archetype string, cfg model.TrainConfig) (Trainer, error) {
	switch archetype {
	case ArchetypeBoost:
		return NewBoostTrainer(cfg.Boost), nil
	case ArchetypeNet:
		return NewNetTrainer(cfg.Net), nil
	default:
		return nil, fmt.Errorf("unknown model archetype: %q", archetype)
	}
}

// UnmarshalModel reconstructs a persisted model from its archetype tag
// and serialized parameters.
func UnmarshalModel(archetype string, data []byte) (Model, error) {
	switch archetype {
	case ArchetypeBoost:
		var m BoostModel
		if err := json.Unmarshal(data, &m); err != nil {
			return nil, fmt.Errorf("unmarshal boost model: %w", err)
		}
		return &m, nil
	case ArchetypeNet:
		var m NetModel
		if err := json.Unmarshal(data, &m); err != nil {
			return nil, fmt.Errorf("unmarshal net model: %w", err)
		}
		return &m, nil
	default:
		return nil, fmt.Errorf("unknown model archetype: %q", archetype)
	}
}

// meanAbsoluteError is the loss tracked by both training loops.
func meanAbsoluteError(pred, actual []float64) float64 {
	if len(actual) == 0 {
		return 0
	}
	var sum float64
	for i := range actual {
		sum += math.Abs(pred[i] - actual[i])
	}
	return sum / float64(len(actual))
}

// rSquared is reported alongside MAE for comparison across archetypes.
func rSquared(pred, actual []float64) float64 {
	if len(actual) == 0 {
		return 0
	}
	var mean float64
	for _, y := range actual {
		mean += y
	}
	mean /= float64(len(actual))

	var ssRes, ssTot float64
	for i, y := range actual {
		ssRes += (y - pred[i]) * (y - pred[i])
		ssTot += (y - mean) * (y - mean)
	}
	if ssTot == 0 {
		return 0
	}
	return 1 - ssRes/ssTot
}

// scaleSet applies the scaler to every sample, returning the feature
// matrix and target vector the optimizers consume.
func scaleSet(s *Scaler, samples []model.TrainingSample) ([][]float64, []float64) {
	features := make([][]float64, len(samples))
	targets := make([]float64, len(samples))
	for i, sample := range samples {
		features[i] = s.Transform(sample.Features)
		targets[i] = sample.Target
	}
	return features, targets
}
