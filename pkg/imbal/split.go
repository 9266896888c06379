package imbal

import (
	"fmt"
	"math"
)

// Split holds a disjoint train/test partition of a dataset.
type Split struct {
	Train, Test *Dataset
}

// Stratify partitions the dataset into a train and a test set.  For
// each class, round(trainFraction*n) rows (at least one and at most
// n-1) are sampled without replacement into the train set.  The
// remaining rows go into the test set.  Both sets are shuffled.  The
// partition is reproducible for the same seed.
//
// If a class has fewer than two rows, an *InsufficientDataError is
// returned.
func Stratify(d *Dataset, trainFraction float64, seed uint64) (Split, error) {
	if !(trainFraction > 0 && trainFraction < 1) {
		return Split{}, fmt.Errorf("split: %w",
			&ConfigError{Field: "train fraction", Value: trainFraction, Hint: "must be in (0,1)"})
	}
	rng := NewRand(seed, StreamSplit)
	var train, test []int
	for _, class := range []bool{Positive, Negative} {
		idx := d.Indices(class)
		if len(idx) < 2 {
			return Split{}, &InsufficientDataError{Op: "split", Class: class, Have: len(idx), Need: 2}
		}
		n := int(math.Round(trainFraction * float64(len(idx))))
		n = max(1, min(n, len(idx)-1))
		rng.Shuffle(len(idx), func(i, j int) {
			idx[i], idx[j] = idx[j], idx[i]
		})
		train = append(train, idx[:n]...)
		test = append(test, idx[n:]...)
	}
	rng.Shuffle(len(train), func(i, j int) {
		train[i], train[j] = train[j], train[i]
	})
	rng.Shuffle(len(test), func(i, j int) {
		test[i], test[j] = test[j], test[i]
	})
	Log().Sugar().Debugf("split: %d train rows, %d test rows", len(train), len(test))
	return Split{Train: d.Subset(train), Test: d.Subset(test)}, nil
}
