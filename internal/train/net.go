package train

import (
	"fmt"
	"math"
	"math/rand"

	"github.com/ppiankov/propval/internal/model"
)

// NetModel is a fully connected network with ReLU hidden layers and a
// linear output. Targets are standardized internally during training;
// TargetMean/TargetStd undo that at prediction time so callers always
// see prices.
type NetModel struct {
	Layers     []NetLayer `json:"layers"`
	TargetMean float64    `json:"target_mean"`
	TargetStd  float64    `json:"target_std"`
}

// NetLayer holds one dense layer: Weights[out][in] and one bias per
// output unit.
type NetLayer struct {
	Weights [][]float64 `json:"weights"`
	Biases  []float64   `json:"biases"`
}

// Archetype implements Model.
func (m *NetModel) Archetype() string { return ArchetypeNet }

// Predict implements Model.
func (m *NetModel) Predict(features []float64) float64 {
	out := m.forward(features, nil)
	return out*m.TargetStd + m.TargetMean
}

// forward runs the network. When activations is non-nil it records the
// post-activation output of every layer for backprop.
func (m *NetModel) forward(input []float64, activations *[][]float64) float64 {
	cur := input
	for l, layer := range m.Layers {
		next := make([]float64, len(layer.Biases))
		for j := range layer.Biases {
			sum := layer.Biases[j]
			for i, w := range layer.Weights[j] {
				sum += w * cur[i]
			}
			// Hidden layers are ReLU; the output layer is linear.
			if l < len(m.Layers)-1 && sum < 0 {
				sum = 0
			}
			next[j] = sum
		}
		if activations != nil {
			*activations = append(*activations, next)
		}
		cur = next
	}
	return cur[0]
}

// NetTrainer fits NetModels by minibatch gradient descent.
type NetTrainer struct {
	cfg model.NetConfig
}

// NewNetTrainer creates a NetTrainer with the given hyperparameters.
func NewNetTrainer(cfg model.NetConfig) *NetTrainer {
	if cfg.BatchSize < 1 {
		cfg.BatchSize = 32
	}
	return &NetTrainer{cfg: cfg}
}

// Archetype implements Trainer.
func (t *NetTrainer) Archetype() string { return ArchetypeNet }

// Train runs epochs of minibatch SGD on squared error, tracking eval
// MAE after every epoch. Training halts once the eval score has not
// improved for Patience epochs, and the returned model carries the
// weights from the best epoch rather than the last.
func (t *NetTrainer) Train(trainSet, evalSet []model.TrainingSample) (Model, *Scaler, Metrics, error) {
	if len(trainSet) == 0 {
		return nil, nil, Metrics{}, fmt.Errorf("net: empty training set")
	}
	// Early stopping tracks eval MAE; without eval data there is no
	// best epoch to restore.
	if len(evalSet) == 0 {
		return nil, nil, Metrics{}, fmt.Errorf("net: empty eval set")
	}

	scaler, err := FitScaler(trainSet)
	if err != nil {
		return nil, nil, Metrics{}, err
	}

	trainX, trainY := scaleSet(scaler, trainSet)
	evalX, evalY := scaleSet(scaler, evalSet)

	tMean, tStd := targetStats(trainY)
	normY := make([]float64, len(trainY))
	for i, y := range trainY {
		normY[i] = (y - tMean) / tStd
	}

	rng := rand.New(rand.NewSource(t.cfg.Seed))
	m := t.initModel(len(trainX[0]), tMean, tStd, rng)

	bestMAE := math.Inf(1)
	bestIter := 0
	sinceBest := 0
	epochs := 0
	var bestLayers []NetLayer

	order := make([]int, len(trainX))
	for i := range order {
		order[i] = i
	}

	for epoch := 1; epoch <= t.cfg.Epochs; epoch++ {
		rng.Shuffle(len(order), func(i, j int) { order[i], order[j] = order[j], order[i] })

		for start := 0; start < len(order); start += t.cfg.BatchSize {
			end := start + t.cfg.BatchSize
			if end > len(order) {
				end = len(order)
			}
			t.step(m, trainX, normY, order[start:end])
		}

		epochs = epoch
		evalMAE := t.evalMAE(m, evalX, evalY)
		if evalMAE < bestMAE {
			bestMAE = evalMAE
			bestIter = epoch
			sinceBest = 0
			bestLayers = copyLayers(m.Layers)
		} else {
			sinceBest++
			if t.cfg.Patience > 0 && sinceBest >= t.cfg.Patience {
				break
			}
		}
	}

	if bestLayers != nil {
		m.Layers = bestLayers
	}

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
		Iterations:    epochs,
	}
	return m, scaler, metrics, nil
}

// initModel builds the layer stack with scaled uniform init.
func (t *NetTrainer) initModel(inputDim int, tMean, tStd float64, rng *rand.Rand) *NetModel {
	sizes := append(append([]int{inputDim}, t.cfg.Hidden...), 1)
	layers := make([]NetLayer, len(sizes)-1)
	for l := range layers {
		in, out := sizes[l], sizes[l+1]
		limit := math.Sqrt(6.0 / float64(in+out))
		weights := make([][]float64, out)
		for j := range weights {
			weights[j] = make([]float64, in)
			for i := range weights[j] {
				weights[j][i] = (rng.Float64()*2 - 1) * limit
			}
		}
		layers[l] = NetLayer{Weights: weights, Biases: make([]float64, out)}
	}
	return &NetModel{Layers: layers, TargetMean: tMean, TargetStd: tStd}
}

// step applies one minibatch gradient update on squared error.
func (t *NetTrainer) step(m *NetModel, features [][]float64, targets []float64, batch []int) {
	lr := t.cfg.LearningRate / float64(len(batch))

	for _, idx := range batch {
		x := features[idx]

		activations := make([][]float64, 0, len(m.Layers))
		out := m.forward(x, &activations)

		// dLoss/dOut for 0.5*(out-y)^2.
		delta := []float64{out - targets[idx]}

		for l := len(m.Layers) - 1; l >= 0; l-- {
			layer := &m.Layers[l]

			input := x
			if l > 0 {
				input = activations[l-1]
			}

			var prevDelta []float64
			if l > 0 {
				prevDelta = make([]float64, len(input))
				for j, dj := range delta {
					for i, w := range layer.Weights[j] {
						prevDelta[i] += dj * w
					}
				}
				// ReLU gate on the layer below.
				for i := range prevDelta {
					if input[i] <= 0 {
						prevDelta[i] = 0
					}
				}
			}

			for j, dj := range delta {
				for i := range layer.Weights[j] {
					layer.Weights[j][i] -= lr * dj * input[i]
				}
				layer.Biases[j] -= lr * dj
			}

			delta = prevDelta
		}
	}
}

func (t *NetTrainer) evalMAE(m *NetModel, features [][]float64, targets []float64) float64 {
	pred := make([]float64, len(targets))
	for i, x := range features {
		pred[i] = m.Predict(x)
	}
	return meanAbsoluteError(pred, targets)
}

func targetStats(targets []float64) (mean, std float64) {
	for _, y := range targets {
		mean += y
	}
	mean /= float64(len(targets))
	for _, y := range targets {
		std += (y - mean) * (y - mean)
	}
	std = math.Sqrt(std / float64(len(targets)))
	if std == 0 {
		std = 1
	}
	return mean, std
}

func copyLayers(layers []NetLayer) []NetLayer {
	out := make([]NetLayer, len(layers))
	for l, layer := range layers {
		weights := make([][]float64, len(layer.Weights))
		for j := range layer.Weights {
			weights[j] = append([]float64(nil), layer.Weights[j]...)
		}
		out[l] = NetLayer{Weights: weights, Biases: append([]float64(nil), layer.Biases...)}
	}
	return out
}
