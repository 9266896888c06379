package resample

import (
	"fmt"
	"math/rand/v2"

	"git.sr.ht/~flobar/imbal/pkg/imbal"
)

// DefaultK is the default number of nearest neighbours for SMOTE.
const DefaultK = 5

// SMOTE generates synthetic minority rows by interpolating between a
// minority row and one of its K nearest minority neighbours until the
// minority class reaches Ratio times the size of the majority class.
// The source rows are visited in random order, cycling over the
// minority class.
type SMOTE struct {
	K     int
	Ratio float64
}

// Name returns "smote".
func (SMOTE) Name() string { return NameSMOTE }

// Resample appends the synthetic rows to the rows of train.  It
// returns an *imbal.InsufficientDataError if the minority class has
// not more than K rows.
func (s SMOTE) Resample(train *imbal.Dataset, rng *rand.Rand) (*imbal.Dataset, error) {
	k := s.K
	if k <= 0 {
		k = DefaultK
	}
	class, minority, majority := train.Minority()
	if len(minority) <= k {
		return nil, &imbal.InsufficientDataError{Op: NameSMOTE, Class: class, Have: len(minority), Need: k + 1}
	}
	need := target(s.Ratio, len(majority)) - len(minority)
	if need <= 0 {
		return train, nil
	}
	ix := newIndex(train, minority)
	knn := make(map[int][]neighbor, len(minority))
	order := rng.Perm(len(minority))
	extra := make([]imbal.Row, need)
	for i := range extra {
		row := minority[order[i%len(order)]]
		if _, ok := knn[row]; !ok {
			knn[row] = ix.knn(row, k)
		}
		nb := knn[row][rng.IntN(len(knn[row]))]
		a, b := train.Row(row), train.Row(nb.row)
		extra[i] = synthetic(interpolate(a.X, b.X, rng.Float64()), class, a.ID, b.ID)
	}
	ret, err := extend(train, extra)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", NameSMOTE, err)
	}
	logCounts(NameSMOTE, train, ret)
	return ret, nil
}

var _ Resampler = SMOTE{}
