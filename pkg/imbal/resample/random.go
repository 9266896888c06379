package resample

import (
	"fmt"
	"math"
	"math/rand/v2"
	"sort"

	"git.sr.ht/~flobar/imbal/pkg/imbal"
)

// RandomOverSample duplicates randomly drawn minority rows (with
// replacement) until the minority class reaches Ratio times the size
// of the majority class (default 1).
type RandomOverSample struct {
	Ratio float64
}

// Name returns "over".
func (RandomOverSample) Name() string { return NameOver }

// Resample appends the duplicated rows to the rows of train.
func (r RandomOverSample) Resample(train *imbal.Dataset, rng *rand.Rand) (*imbal.Dataset, error) {
	class, minority, majority := train.Minority()
	if len(minority) == 0 {
		return nil, &imbal.InsufficientDataError{Op: NameOver, Class: class, Need: 1}
	}
	need := target(r.Ratio, len(majority)) - len(minority)
	if need <= 0 {
		return train, nil
	}
	extra := make([]imbal.Row, need)
	for i := range extra {
		row := train.Row(minority[rng.IntN(len(minority))])
		extra[i] = imbal.Row{
			X:     row.X,
			ID:    imbal.NoID,
			Label: row.Label,
			Provenance: imbal.Provenance{
				Origin:   imbal.Duplicate,
				Source:   row.ID,
				Neighbor: imbal.NoID,
			},
		}
	}
	ret, err := extend(train, extra)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", NameOver, err)
	}
	logCounts(NameOver, train, ret)
	return ret, nil
}

// RandomUnderSample drops randomly drawn majority rows (without
// replacement) until the minority class reaches Ratio times the size
// of the majority class (default 1).  The remaining rows keep their
// order.
type RandomUnderSample struct {
	Ratio float64
}

// Name returns "under".
func (RandomUnderSample) Name() string { return NameUnder }

// Resample returns the reduced dataset.
func (r RandomUnderSample) Resample(train *imbal.Dataset, rng *rand.Rand) (*imbal.Dataset, error) {
	class, minority, majority := train.Minority()
	if len(minority) == 0 {
		return nil, &imbal.InsufficientDataError{Op: NameUnder, Class: class, Need: 1}
	}
	ratio := r.Ratio
	if ratio <= 0 {
		ratio = 1
	}
	keep := int(math.Round(float64(len(minority)) / ratio))
	if keep >= len(majority) {
		return train, nil
	}
	keep = max(keep, 1)
	idx := append([]int(nil), minority...)
	for _, i := range rng.Perm(len(majority))[:keep] {
		idx = append(idx, majority[i])
	}
	sort.Ints(idx)
	ret := train.Subset(idx)
	logCounts(NameUnder, train, ret)
	return ret, nil
}

var (
	_ Resampler = None{}
	_ Resampler = RandomOverSample{}
	_ Resampler = RandomUnderSample{}
)
