package train

import (
	"fmt"
	"sort"

	"github.com/ppiankov/propval/internal/model"
)

// BoostModel is a sequential ensemble of shallow regression trees, each
// fit to the residuals of the ensemble before it and shrunk by the
// learning rate. Trees holds only the iterations up to the best eval
// score seen during training.
type BoostModel struct {
	Base         float64     `json:"base"`
	LearningRate float64     `json:"learning_rate"`
	Trees        []*TreeNode `json:"trees"`
}

// TreeNode is one node of a regression tree. Leaf nodes carry Value;
// interior nodes route on Feature < Threshold.
type TreeNode struct {
	Leaf      bool      `json:"leaf"`
	Value     float64   `json:"value,omitempty"`
	Feature   int       `json:"feature,omitempty"`
	Threshold float64   `json:"threshold,omitempty"`
	Left      *TreeNode `json:"left,omitempty"`
	Right     *TreeNode `json:"right,omitempty"`
}

// Archetype implements Model.
func (m *BoostModel) Archetype() string { return ArchetypeBoost }

// Predict implements Model.
func (m *BoostModel) Predict(features []float64) float64 {
	pred := m.Base
	for _, tree := range m.Trees {
		pred += m.LearningRate * tree.eval(features)
	}
	return pred
}

func (n *TreeNode) eval(features []float64) float64 {
	for !n.Leaf {
		if features[n.Feature] < n.Threshold {
			n = n.Left
		} else {
			n = n.Right
		}
	}
	return n.Value
}

// BoostTrainer fits BoostModels.
type BoostTrainer struct {
	cfg model.BoostConfig
}

// NewBoostTrainer creates a BoostTrainer with the given hyperparameters.
func NewBoostTrainer(cfg model.BoostConfig) *BoostTrainer {
	if cfg.MinSamplesLeaf < 1 {
		cfg.MinSamplesLeaf = 1
	}
	if cfg.MaxDepth < 1 {
		cfg.MaxDepth = 1
	}
	return &BoostTrainer{cfg: cfg}
}

// Archetype implements Trainer.
func (t *BoostTrainer) Archetype() string { return ArchetypeBoost }

// Train fits the ensemble with early stopping on eval MAE. When the
// eval score has not improved for Patience consecutive iterations the
// loop halts and the ensemble is truncated to the best-seen iteration,
// so a model that drifted worse after its peak is never persisted.
func (t *BoostTrainer) Train(trainSet, evalSet []model.TrainingSample) (Model, *Scaler, Metrics, error) {
	if len(trainSet) == 0 {
		return nil, nil, Metrics{}, fmt.Errorf("boost: empty training set")
	}
	// Early stopping tracks eval MAE; without eval data no iteration
	// could ever improve and the ensemble would stay empty.
	if len(evalSet) == 0 {
		return nil, nil, Metrics{}, fmt.Errorf("boost: empty eval set")
	}

	scaler, err := FitScaler(trainSet)
	if err != nil {
		return nil, nil, Metrics{}, err
	}

	trainX, trainY := scaleSet(scaler, trainSet)
	evalX, evalY := scaleSet(scaler, evalSet)

	var base float64
	for _, y := range trainY {
		base += y
	}
	base /= float64(len(trainY))

	m := &BoostModel{Base: base, LearningRate: t.cfg.LearningRate}

	trainPred := make([]float64, len(trainY))
	evalPred := make([]float64, len(evalY))
	for i := range trainPred {
		trainPred[i] = base
	}
	for i := range evalPred {
		evalPred[i] = base
	}

	residuals := make([]float64, len(trainY))
	bestMAE := meanAbsoluteError(evalPred, evalY)
	bestIter := 0
	sinceBest := 0
	iterations := 0

	for iter := 1; iter <= t.cfg.Estimators; iter++ {
		for i := range trainY {
			residuals[i] = trainY[i] - trainPred[i]
		}

		tree := t.fitTree(trainX, residuals, indices(len(trainY)), 0)
		m.Trees = append(m.Trees, tree)

		for i, x := range trainX {
			trainPred[i] += t.cfg.LearningRate * tree.eval(x)
		}
		for i, x := range evalX {
			evalPred[i] += t.cfg.LearningRate * tree.eval(x)
		}

		iterations = iter
		evalMAE := meanAbsoluteError(evalPred, evalY)
		if evalMAE < bestMAE {
			bestMAE = evalMAE
			bestIter = iter
			sinceBest = 0
		} else {
			sinceBest++
			if t.cfg.Patience > 0 && sinceBest >= t.cfg.Patience {
				break
			}
		}
	}

	// Keep only the trees up to the best eval score.
	m.Trees = m.Trees[:bestIter]

	finalTrain := make([]float64, len(trainY))
	for i, x := range trainX {
		finalTrain[i] = m.Predict(x)
	}
	finalEval := make([]float64, len(evalY))
	for i, x := range evalX {
		finalEval[i] = m.Predict(x)
	}

	metrics := Metrics{
		TrainMAE:      meanAbsoluteError(finalTrain, trainY),
		EvalMAE:       meanAbsoluteError(finalEval, evalY),
		R2:            rSquared(finalEval, evalY),
		BestIteration: bestIter,
		Iterations:    iterations,
	}
	return m, scaler, metrics, nil
}

// fitTree grows one regression tree greedily by variance reduction,
// bounded by MaxDepth and MinSamplesLeaf.
func (t *BoostTrainer) fitTree(features [][]float64, targets []float64, idx []int, depth int) *TreeNode {
	if depth >= t.cfg.MaxDepth || len(idx) < 2*t.cfg.MinSamplesLeaf {
		return &TreeNode{Leaf: true, Value: meanAt(targets, idx)}
	}

	bestFeature, bestThreshold, found := t.bestSplit(features, targets, idx)
	if !found {
		return &TreeNode{Leaf: true, Value: meanAt(targets, idx)}
	}

	var left, right []int
	for _, i := range idx {
		if features[i][bestFeature] < bestThreshold {
			left = append(left, i)
		} else {
			right = append(right, i)
		}
	}
	if len(left) < t.cfg.MinSamplesLeaf || len(right) < t.cfg.MinSamplesLeaf {
		return &TreeNode{Leaf: true, Value: meanAt(targets, idx)}
	}

	return &TreeNode{
		Feature:   bestFeature,
		Threshold: bestThreshold,
		Left:      t.fitTree(features, targets, left, depth+1),
		Right:     t.fitTree(features, targets, right, depth+1),
	}
}

// bestSplit scans every feature with a sorted sweep and prefix sums,
// looking for the split with the lowest weighted squared error.
func (t *BoostTrainer) bestSplit(features [][]float64, targets []float64, idx []int) (int, float64, bool) {
	dim := len(features[idx[0]])
	n := len(idx)

	bestScore := parentSSE(targets, idx)
	var bestFeature int
	var bestThreshold float64
	found := false

	order := make([]int, n)
	for f := 0; f < dim; f++ {
		copy(order, idx)
		sort.Slice(order, func(a, b int) bool {
			return features[order[a]][f] < features[order[b]][f]
		})

		var sumLeft, sqLeft float64
		sumRight, sqRight := sums(targets, order)

		for k := 0; k < n-1; k++ {
			y := targets[order[k]]
			sumLeft += y
			sqLeft += y * y
			sumRight -= y
			sqRight -= y * y

			nl, nr := k+1, n-k-1
			if nl < t.cfg.MinSamplesLeaf || nr < t.cfg.MinSamplesLeaf {
				continue
			}

			cur, next := features[order[k]][f], features[order[k+1]][f]
			if cur == next {
				continue
			}

			sse := (sqLeft - sumLeft*sumLeft/float64(nl)) + (sqRight - sumRight*sumRight/float64(nr))
			if sse < bestScore {
				bestScore = sse
				bestFeature = f
				bestThreshold = (cur + next) / 2
				found = true
			}
		}
	}

	return bestFeature, bestThreshold, found
}

func parentSSE(targets []float64, idx []int) float64 {
	sum, sq := sums(targets, idx)
	return sq - sum*sum/float64(len(idx))
}

func sums(targets []float64, idx []int) (sum, sq float64) {
	for _, i := range idx {
		sum += targets[i]
		sq += targets[i] * targets[i]
	}
	return sum, sq
}

func meanAt(targets []float64, idx []int) float64 {
	var sum float64
	for _, i := range idx {
		sum += targets[i]
	}
	return sum / float64(len(idx))
}

func indices(n int) []int {
	idx := make([]int, n)
	for i := range idx {
		idx[i] = i
	}
	return idx
}
