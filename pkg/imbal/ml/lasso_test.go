package ml

import (
	"context"
	"testing"

	"git.sr.ht/~flobar/imbal/pkg/imbal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"
)

func TestLasso(t *testing.T) {
	train := gaussian(60, 90, 1.5)
	fit := func(rule string) *LR {
		m, err := Lasso{Folds: 5, Rule: rule}.Fit(context.Background(), train, nil,
			imbal.NewRand(5, imbal.StreamClassifier))
		require.NoError(t, err)
		return m.(*LR)
	}
	best, oneSE := fit(RuleMin), fit(Rule1SE)
	assert.Greater(t, best.Lambda(), 0.0)
	assert.GreaterOrEqual(t, oneSE.Lambda(), best.Lambda())
	assert.Greater(t, accuracy(t, best, train), .75)

	// Same seed, same model.
	again := fit(RuleMin)
	assert.Equal(t, best.Lambda(), again.Lambda())
	assert.Equal(t, best.weights.RawVector().Data, again.weights.RawVector().Data)
}

func TestLassoFixedLambda(t *testing.T) {
	train := gaussian(30, 70, 1)
	m, err := Lasso{Lambda: 100}.Fit(context.Background(), train, nil, nil)
	require.NoError(t, err)
	lr := m.(*LR)
	assert.Equal(t, 100.0, lr.Lambda())
	assert.Equal(t, 0, nonzero(lr.weights.RawVector().Data))
	probs, err := lr.PredictProb(train)
	require.NoError(t, err)
	for _, p := range probs {
		assert.InDelta(t, .3, p, 1e-6)
	}
}

func TestLassoInsufficientFolds(t *testing.T) {
	train := gaussian(4, 40, 1)
	_, err := Lasso{Folds: 5}.Fit(context.Background(), train, nil, imbal.NewRand(1, 1))
	var ide *imbal.InsufficientDataError
	require.ErrorAs(t, err, &ide)
	assert.Equal(t, imbal.Positive, ide.Class)
	assert.Equal(t, 4, ide.Have)
	assert.Equal(t, 5, ide.Need)
}

func TestLassoPath(t *testing.T) {
	x := mat.NewDense(4, 1, []float64{1, 2, 3, 4})
	y := []float64{0, 0, 1, 1}
	lambdas := Lasso{NLambda: 5, LambdaMinRatio: .01}.path(x, y)
	require.Len(t, lambdas, 5)
	assert.InDelta(t, lambdas[0]*.01, lambdas[4], 1e-12)
	for i := 1; i < len(lambdas); i++ {
		assert.Less(t, lambdas[i], lambdas[i-1])
	}
}

func TestStratifiedFolds(t *testing.T) {
	y := []float64{1, 1, 1, 0, 0, 0, 0, 0, 0}
	folds, err := stratifiedFolds(y, 3, imbal.NewRand(1, 1))
	require.NoError(t, err)
	pos := make(map[int]int)
	neg := make(map[int]int)
	for i, f := range folds {
		if y[i] == True {
			pos[f]++
		} else {
			neg[f]++
		}
	}
	assert.Equal(t, map[int]int{0: 1, 1: 1, 2: 1}, pos)
	assert.Equal(t, map[int]int{0: 2, 1: 2, 2: 2}, neg)
	_, err = stratifiedFolds(y, 1, imbal.NewRand(1, 1))
	assert.Equal(t, imbal.KindInvalidConfig, imbal.Kind(err))
}

func TestSoftThreshold(t *testing.T) {
	for _, tc := range []struct{ x, lambda, want float64 }{
		{3, 1, 2}, {-3, 1, -2}, {.5, 1, 0}, {-.5, 1, 0}, {1, 1, 0},
	} {
		assert.Equal(t, tc.want, softThreshold(tc.x, tc.lambda))
	}
}
