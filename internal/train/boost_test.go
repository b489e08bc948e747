package train

import (
	"testing"

	"github.com/ppiankov/propval/internal/corpus"
	"github.com/ppiankov/propval/internal/model"
)

// linearCorpus builds n samples with a known linear relationship
// between the first feature and the target.
func linearCorpus(n int) []model.TrainingSample {
	samples := make([]model.TrainingSample, n)
	for i := range samples {
		x1 := float64(i % 10)
		x2 := float64((i * 7) % 13)
		samples[i] = model.TrainingSample{
			Features: model.FeatureVector{x1, x2},
			Target:   100000 + 50000*x1,
		}
	}
	return samples
}

func TestBoostTrainer_LearnsLinearRelation(t *testing.T) {
	trainSet, evalSet := corpus.Split(linearCorpus(100), 0.8, 42)

	trainer := NewBoostTrainer(model.BoostConfig{
		Estimators:     300,
		LearningRate:   0.1,
		MaxDepth:       3,
		MinSamplesLeaf: 2,
		Patience:       30,
	})

	m, scaler, metrics, err := trainer.Train(trainSet, evalSet)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if m == nil || scaler == nil {
		t.Fatal("expected model and scaler")
	}

	// Eval MAE must be far below the ~125k MAE of predicting the mean:
	// the loop actually reduced error rather than returning an
	// untrained ensemble.
	if metrics.EvalMAE > 15000 {
		t.Errorf("eval MAE too high: %.0f", metrics.EvalMAE)
	}
	if metrics.TrainMAE > 15000 {
		t.Errorf("train MAE too high: %.0f", metrics.TrainMAE)
	}
}

func TestBoostTrainer_PersistsBestIteration(t *testing.T) {
	trainSet, evalSet := corpus.Split(linearCorpus(100), 0.8, 42)

	trainer := NewBoostTrainer(model.BoostConfig{
		Estimators:     300,
		LearningRate:   0.1,
		MaxDepth:       3,
		MinSamplesLeaf: 2,
		Patience:       10,
	})

	m, _, metrics, err := trainer.Train(trainSet, evalSet)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	boost := m.(*BoostModel)
	if len(boost.Trees) != metrics.BestIteration {
		t.Errorf("ensemble has %d trees but best iteration was %d", len(boost.Trees), metrics.BestIteration)
	}
	if metrics.BestIteration > metrics.Iterations {
		t.Errorf("best iteration %d later than last iteration %d", metrics.BestIteration, metrics.Iterations)
	}
}

func TestBoostTrainer_ScalerFitOnTrainOnly(t *testing.T) {
	// Train and eval sets with very different feature ranges: the
	// scaler mean must reflect the training subset alone.
	trainSet := []model.TrainingSample{
		{Features: model.FeatureVector{0}, Target: 100000},
		{Features: model.FeatureVector{2}, Target: 200000},
	}
	evalSet := []model.TrainingSample{
		{Features: model.FeatureVector{1000}, Target: 150000},
	}

	trainer := NewBoostTrainer(model.BoostConfig{
		Estimators:     5,
		LearningRate:   0.1,
		MaxDepth:       2,
		MinSamplesLeaf: 1,
		Patience:       0,
	})

	_, scaler, _, err := trainer.Train(trainSet, evalSet)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if scaler.Mean[0] != 1 {
		t.Errorf("scaler leaked eval data: mean %v, want 1", scaler.Mean[0])
	}
}

func TestBoostTrainer_EmptyTrainingSet(t *testing.T) {
	trainer := NewBoostTrainer(model.DefaultConfig().Train.Boost)
	if _, _, _, err := trainer.Train(nil, nil); err == nil {
		t.Error("expected error for empty training set")
	}
}

func TestBoostTrainer_EmptyEvalSet(t *testing.T) {
	trainer := NewBoostTrainer(model.DefaultConfig().Train.Boost)
	if _, _, _, err := trainer.Train(linearCorpus(100), nil); err == nil {
		t.Error("expected error for empty eval set")
	}
}
