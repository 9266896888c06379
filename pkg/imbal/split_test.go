package imbal_test

import (
	"fmt"
	"math"
	"testing"

	"git.sr.ht/~flobar/imbal/pkg/imbal"
	"git.sr.ht/~flobar/imbal/pkg/imbal/testkit"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func proportion(d *imbal.Dataset) float64 {
	c := d.Counts()
	return float64(c.Positive) / float64(d.Len())
}

func TestStratify(t *testing.T) {
	for _, tc := range []struct {
		pos, neg int
		frac     float64
	}{
		{10, 90, .7},
		{3, 97, .7},
		{2, 2, .5},
		{17, 183, .8},
		{50, 50, .33},
		{7, 1500, .75},
	} {
		t.Run(fmt.Sprintf("%d/%d/%g", tc.pos, tc.neg, tc.frac), func(t *testing.T) {
			d := testkit.Gaussian{Positives: tc.pos, Negatives: tc.neg, Features: 2, Shift: 1, Seed: 3}.Dataset()
			s, err := imbal.Stratify(d, tc.frac, 7)
			require.NoError(t, err)
			assert.Equal(t, d.Len(), s.Train.Len()+s.Test.Len())

			// The union of the row ids is the original set of ids.
			seen := make(map[int]bool)
			for _, part := range []*imbal.Dataset{s.Train, s.Test} {
				for i := 0; i < part.Len(); i++ {
					id := part.Row(i).ID
					require.False(t, seen[id], "duplicate id %d", id)
					seen[id] = true
				}
			}
			assert.Len(t, seen, d.Len())

			want := proportion(d)
			assert.LessOrEqual(t, math.Abs(proportion(s.Train)-want), 1/float64(s.Train.Len()))
			assert.LessOrEqual(t, math.Abs(proportion(s.Test)-want), 1/float64(s.Test.Len()))
		})
	}
}

func TestStratifyDeterministic(t *testing.T) {
	d := testkit.Gaussian{Positives: 20, Negatives: 80, Features: 3, Shift: 1, Seed: 1}.Dataset()
	ids := func(seed uint64) []int {
		s, err := imbal.Stratify(d, .7, seed)
		require.NoError(t, err)
		var ret []int
		for i := 0; i < s.Train.Len(); i++ {
			ret = append(ret, s.Train.Row(i).ID)
		}
		return ret
	}
	assert.Equal(t, ids(11), ids(11))
	assert.NotEqual(t, ids(11), ids(12))
}

func TestStratifyErrors(t *testing.T) {
	xs := [][]float64{{1}, {2}, {3}, {4}}
	d := testkit.Must([]string{"x"}, xs, 1, 0, 0, 0)
	_, err := imbal.Stratify(d, .5, 1)
	var ide *imbal.InsufficientDataError
	require.ErrorAs(t, err, &ide)
	assert.Equal(t, imbal.Positive, ide.Class)
	assert.Equal(t, 1, ide.Have)
	assert.Equal(t, imbal.KindInsufficientData, imbal.Kind(err))

	for _, frac := range []float64{0, 1, -.2, 1.5, math.NaN()} {
		_, err := imbal.Stratify(d, frac, 1)
		assert.Equal(t, imbal.KindInvalidConfig, imbal.Kind(err), "fraction %g", frac)
	}
}
