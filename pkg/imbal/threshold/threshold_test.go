package threshold

import (
	"fmt"
	"math"
	"testing"

	"git.sr.ht/~flobar/imbal/pkg/imbal"
	"git.sr.ht/~flobar/imbal/pkg/imbal/eval"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func random(n int, seed uint64) ([]float64, []bool) {
	rng := imbal.NewRand(seed, 1)
	probs := make([]float64, n)
	labels := make([]bool, n)
	for i := range probs {
		labels[i] = rng.Float64() < .2
		probs[i] = rng.Float64()
		if labels[i] {
			probs[i] = math.Min(1, probs[i]+.2)
		}
	}
	return probs, labels
}

func TestGrid(t *testing.T) {
	for _, tc := range []struct {
		grid  Grid
		n     int
		first float64
		last  float64
	}{
		{DefaultGrid, 891, .01, .90},
		{Grid{Start: 0, End: 1, Step: .1}, 11, 0, 1},
		{Grid{Start: .5, End: .5, Step: .1}, 1, .5, .5},
		{Grid{Start: .1, End: .25, Step: .1}, 2, .1, .2},
	} {
		t.Run(fmt.Sprintf("%+v", tc.grid), func(t *testing.T) {
			cs, err := tc.grid.Cutoffs()
			require.NoError(t, err)
			require.Len(t, cs, tc.n)
			assert.InDelta(t, tc.first, cs[0], 1e-12)
			assert.InDelta(t, tc.last, cs[len(cs)-1], 1e-12)
		})
	}
	for _, g := range []Grid{{0, 1, 0}, {0, 1, -1}, {1, 0, .1}, {math.NaN(), 1, .1}, {0, 1, 1e-300}, {0, 1, 1e-9}, {-math.MaxFloat64, math.MaxFloat64, 1}} {
		_, err := g.Cutoffs()
		assert.Equal(t, imbal.KindInvalidConfig, imbal.Kind(err), "%+v", g)
	}
}

func TestCurveInvariants(t *testing.T) {
	cutoffs, err := DefaultGrid.Cutoffs()
	require.NoError(t, err)
	for _, seed := range []uint64{1, 2, 3} {
		t.Run(fmt.Sprint(seed), func(t *testing.T) {
			probs, labels := random(300, seed)
			res, err := Optimize(probs, labels, cutoffs, CostMatrix{FP: 1, FN: 5})
			require.NoError(t, err)
			require.Len(t, res.Curve, len(cutoffs))
			for i, p := range res.Curve {
				assert.Equal(t, len(probs), p.Matrix.Total())
				want, err := eval.Evaluate(probs, labels, p.Cutoff)
				require.NoError(t, err)
				assert.Equal(t, want, p.Matrix)
				assert.Equal(t, p.Matrix.Cost(1, 5), p.Cost)
				if i == 0 {
					continue
				}
				prev := res.Curve[i-1]
				assert.Less(t, prev.Cutoff, p.Cutoff)
				assert.LessOrEqual(t, p.TPR, prev.TPR)
				assert.LessOrEqual(t, p.FPR, prev.FPR)
			}
			for _, p := range res.Curve {
				assert.GreaterOrEqual(t, p.Cost, res.Best.Cost)
			}
			assert.True(t, res.AUC > .5 && res.AUC <= 1)
			assert.True(t, res.ExactAUC > .5 && res.ExactAUC <= 1)
		})
	}
}

func TestParallel(t *testing.T) {
	cutoffs, err := DefaultGrid.Cutoffs()
	require.NoError(t, err)
	probs, labels := random(500, 7)
	cost := CostMatrix{FP: 2, FN: 7}
	want, err := Optimize(probs, labels, cutoffs, cost)
	require.NoError(t, err)
	for _, workers := range []int{2, 3, 8, 2000} {
		got, err := Options{Workers: workers}.Optimize(probs, labels, cutoffs, cost)
		require.NoError(t, err)
		assert.Equal(t, want, got, "workers %d", workers)
	}
}

func TestCostScenario(t *testing.T) {
	labels := []bool{true, true, false, false, false, false, false, false}
	probs := []float64{.9, .5, .6, .6, .6, .6, .6, .1}
	res, err := Optimize(probs, labels, []float64{.4, .7}, CostMatrix{FP: 10, FN: 100})
	require.NoError(t, err)
	assert.Equal(t, eval.ConfusionMatrix{TP: 2, FP: 5, TN: 1, FN: 0}, res.Curve[0].Matrix)
	assert.Equal(t, eval.ConfusionMatrix{TP: 1, FP: 0, TN: 6, FN: 1}, res.Curve[1].Matrix)
	assert.Equal(t, .4, res.Best.Cutoff)
	assert.Equal(t, 50.0, res.Best.Cost)
}

func TestTies(t *testing.T) {
	labels := []bool{true, false}
	probs := []float64{.8, .2}
	// All cutoffs in [.2,.8) separate perfectly with cost 0.
	res, err := Optimize(probs, labels, []float64{.7, .3, .5}, CostMatrix{FP: 1, FN: 1})
	require.NoError(t, err)
	assert.Equal(t, .3, res.Best.Cutoff)
	assert.Equal(t, []float64{.3, .5, .7}, []float64{res.Curve[0].Cutoff, res.Curve[1].Cutoff, res.Curve[2].Cutoff})
}

func TestPerfectAUC(t *testing.T) {
	cutoffs, err := DefaultGrid.Cutoffs()
	require.NoError(t, err)
	probs := []float64{.95, .05, .97, .02, .04, .99}
	labels := []bool{true, false, true, false, false, true}
	res, err := Optimize(probs, labels, cutoffs, CostMatrix{FP: 1, FN: 1})
	require.NoError(t, err)
	assert.InDelta(t, 1, res.AUC, 1e-12)
	assert.InDelta(t, 1, res.ExactAUC, 1e-12)
	assert.Equal(t, 0.0, res.Best.Cost)
	// The largest negative probability is .05.
	assert.InDelta(t, .05, res.Best.Cutoff, .0015)
}

func TestRandomAUC(t *testing.T) {
	rng := imbal.NewRand(3, 3)
	n := 4000
	probs := make([]float64, n)
	labels := make([]bool, n)
	for i := range probs {
		probs[i] = rng.Float64()
		labels[i] = rng.Float64() < .5
	}
	cutoffs, err := Grid{Start: 0, End: 1, Step: .01}.Cutoffs()
	require.NoError(t, err)
	res, err := Optimize(probs, labels, cutoffs, CostMatrix{FP: 1, FN: 1})
	require.NoError(t, err)
	assert.InDelta(t, .5, res.AUC, .04)
	assert.InDelta(t, .5, res.ExactAUC, .04)
}

func TestErrors(t *testing.T) {
	cutoffs := []float64{.5}
	for _, tc := range []struct {
		name    string
		probs   []float64
		labels  []bool
		cutoffs []float64
		cost    CostMatrix
		kind    string
	}{
		{"one class", []float64{.1, .9}, []bool{true, true}, cutoffs, CostMatrix{}, imbal.KindDegenerateEvaluation},
		{"no rows", nil, nil, cutoffs, CostMatrix{}, imbal.KindDegenerateEvaluation},
		{"negative cost", []float64{.1, .9}, []bool{false, true}, cutoffs, CostMatrix{FP: -1}, imbal.KindInvalidConfig},
		{"empty grid", []float64{.1, .9}, []bool{false, true}, nil, CostMatrix{}, imbal.KindInvalidConfig},
		{"length", []float64{.1, .9}, []bool{true}, cutoffs, CostMatrix{}, imbal.KindError},
		{"nan", []float64{math.NaN(), .9}, []bool{false, true}, cutoffs, CostMatrix{}, imbal.KindError},
	} {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Optimize(tc.probs, tc.labels, tc.cutoffs, tc.cost)
			require.Error(t, err)
			assert.Equal(t, tc.kind, imbal.Kind(err))
		})
	}
	assert.True(t, math.IsNaN(ExactAUC([]float64{.1, .2}, []bool{false, false})))
}
