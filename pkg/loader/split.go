package loader

import (
	"fmt"
	"math"
	"math/rand"

	"survival/pkg/data"
)

// Split holds the train and test parts of a table, with the target
// column removed from the features.
type Split struct {
	XTrain, XTest *data.Table
	YTrain, YTest []float64
}

// TrainTestSplit shuffles rows with a seeded source and puts the first
// ceil(testRatio*n) of the permutation in the test part. The same seed
// always gives the same split.
func TrainTestSplit(t *data.Table, target string, testRatio float64, seed int64) (Split, error) {
	if testRatio <= 0 || testRatio >= 1 {
		return Split{}, fmt.Errorf("test ratio %v not in (0, 1)", testRatio)
	}
	y, err := t.Floats(target)
	if err != nil {
		return Split{}, fmt.Errorf("target: %w", err)
	}
	X := t.Clone()
	if err := X.Drop(target); err != nil {
		return Split{}, err
	}

	n := t.NumRows()
	nTest := int(math.Ceil(float64(n) * testRatio))
	if nTest == 0 || nTest >= n {
		return Split{}, fmt.Errorf("cannot split %d rows with test ratio %v", n, testRatio)
	}
	indices := rand.New(rand.NewSource(seed)).Perm(n)
	testIdx, trainIdx := indices[:nTest], indices[nTest:]

	var s Split
	if s.XTest, err = X.Take(testIdx); err != nil {
		return Split{}, err
	}
	if s.XTrain, err = X.Take(trainIdx); err != nil {
		return Split{}, err
	}
	s.YTest = pick(y, testIdx)
	s.YTrain = pick(y, trainIdx)
	return s, nil
}

// KFoldSplit yields k folds of row indices over a seeded permutation.
func KFoldSplit(n, k int, seed int64) ([][]int, error) {
	if k < 2 || k > n {
		return nil, fmt.Errorf("cannot make %d folds from %d rows", k, n)
	}
	indices := rand.New(rand.NewSource(seed)).Perm(n)
	folds := make([][]int, k)
	for i := range n {
		folds[i%k] = append(folds[i%k], indices[i])
	}
	return folds, nil
}

// Complement returns every index in [0, n) not in fold, in ascending order.
func Complement(n int, fold []int) []int {
	skip := make(map[int]struct{}, len(fold))
	for _, i := range fold {
		skip[i] = struct{}{}
	}
	out := make([]int, 0, n-len(fold))
	for i := range n {
		if _, ok := skip[i]; !ok {
			out = append(out, i)
		}
	}
	return out
}

func pick(y []float64, idx []int) []float64 {
	out := make([]float64, len(idx))
	for i, j := range idx {
		out[i] = y[j]
	}
	return out
}
