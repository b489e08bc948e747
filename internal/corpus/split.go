package corpus

import (
	"math"
	"math/rand"

	"github.com/ppiankov/propval/internal/model"
)

// Split partitions samples into disjoint train and eval subsets. The
// partition is a pure function of the seed: the same corpus, fraction
// and seed always produce the same two subsets in the same order, which
// is what makes training runs and their tests reproducible.
func Split(samples []model.TrainingSample, trainFraction float64, seed int64) (train, eval []model.TrainingSample) {
	n := len(samples)
	if n == 0 {
		return nil, nil
	}

	perm := rand.New(rand.NewSource(seed)).Perm(n)

	trainSize := int(math.Round(trainFraction * float64(n)))
	if trainSize > n {
		trainSize = n
	}
	if trainSize < 0 {
		trainSize = 0
	}

	train = make([]model.TrainingSample, 0, trainSize)
	eval = make([]model.TrainingSample, 0, n-trainSize)
	for i, idx := range perm {
		if i < trainSize {
			train = append(train, samples[idx])
		} else {
			eval = append(eval, samples[idx])
		}
	}
	return train, eval
}
