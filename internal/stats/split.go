package stats

import (
	"fmt"
	"math"
	"math/rand"
	"sort"
)

// TrainTestSplit shuffles the indexes 0..n-1 with seed and returns disjoint
// train and test index sets, each sorted ascending
func TrainTestSplit(n int, testFraction float64, seed int64) (train, test []int, err error) {
	if testFraction <= 0 || testFraction >= 1 {
		return nil, nil, fmt.Errorf("test fraction %.3f outside (0, 1)", testFraction)
	}
	nTest := int(math.Round(float64(n) * testFraction))
	if nTest < 1 || n-nTest < 1 {
		return nil, nil, fmt.Errorf("cannot split %d rows with test fraction %.3f", n, testFraction)
	}

	perm := rand.New(rand.NewSource(seed)).Perm(n)
	test = append([]int(nil), perm[:nTest]...)
	train = append([]int(nil), perm[nTest:]...)
	sort.Ints(test)
	sort.Ints(train)
	return train, test, nil
}
