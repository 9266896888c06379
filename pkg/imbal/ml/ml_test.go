package ml

import (
	"context"
	"fmt"
	"math"
	"testing"

	"git.sr.ht/~flobar/imbal/pkg/imbal"
	"git.sr.ht/~flobar/imbal/pkg/imbal/testkit"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"
)

func gaussian(pos, neg int, shift float64) *imbal.Dataset {
	return testkit.Gaussian{Positives: pos, Negatives: neg, Features: 2, Shift: shift, Seed: 11}.Dataset()
}

func accuracy(t *testing.T, m Model, d *imbal.Dataset) float64 {
	t.Helper()
	probs, err := m.PredictProb(d)
	require.NoError(t, err)
	require.Len(t, probs, d.Len())
	var correct int
	for i, p := range probs {
		if (p > .5) == d.Row(i).Label {
			correct++
		}
	}
	return float64(correct) / float64(d.Len())
}

func TestNew(t *testing.T) {
	for _, tc := range []struct {
		config Config
		want   interface{}
		hint   string
	}{
		{Config{}, Logistic{}, ""},
		{Config{Name: NameLogistic, MaxIter: 3}, Logistic{MaxIter: 3}, ""},
		{Config{Name: NameLasso, Rule: Rule1SE}, Lasso{Rule: Rule1SE}, ""},
		{Config{Name: NameMLP, Hidden: 4}, MLP{Hidden: 4}, ""},
		{Config{Name: "lasoo"}, nil, `did you mean "lasso"?`},
		{Config{Name: NameLasso, Rule: "max"}, nil, "use"},
	} {
		t.Run(fmt.Sprintf("%+v", tc.config), func(t *testing.T) {
			got, err := New(tc.config)
			if tc.want == nil {
				require.Error(t, err)
				assert.Equal(t, imbal.KindInvalidConfig, imbal.Kind(err))
				assert.Contains(t, err.Error(), tc.hint)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestOneClass(t *testing.T) {
	d := testkit.Must([]string{"x"}, [][]float64{{1}, {2}, {3}}, 1, 1, 1)
	for _, c := range []Classifier{Logistic{}, Lasso{}, MLP{}} {
		t.Run(fmt.Sprintf("%T", c), func(t *testing.T) {
			_, err := c.Fit(context.Background(), d, nil, imbal.NewRand(1, imbal.StreamClassifier))
			var ide *imbal.InsufficientDataError
			require.ErrorAs(t, err, &ide)
			assert.Equal(t, imbal.Negative, ide.Class)
		})
	}
}

func TestPredictSchemaMismatch(t *testing.T) {
	train := gaussian(30, 30, 2)
	for _, c := range []Classifier{Logistic{}, Lasso{Folds: 3}, MLP{Epochs: 50}} {
		t.Run(fmt.Sprintf("%T", c), func(t *testing.T) {
			m, err := c.Fit(context.Background(), train, nil, imbal.NewRand(2, imbal.StreamClassifier))
			require.NoError(t, err)
			assert.Equal(t, []string{"x0", "x1"}, m.Features())
			other := testkit.Must([]string{"x0", "y1"}, [][]float64{{1, 2}}, 1)
			_, err = m.PredictProb(other)
			assert.Equal(t, imbal.KindSchemaMismatch, imbal.Kind(err))

			// Additional columns in any order are fine.
			wider := testkit.Must([]string{"z", "x1", "x0"}, [][]float64{{7, 2, 2}, {7, -2, -2}}, 1, 0)
			probs, err := m.PredictProb(wider)
			require.NoError(t, err)
			assert.Greater(t, probs[0], probs[1])
		})
	}
}

func TestCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	train := gaussian(20, 20, 1)
	for _, c := range []Classifier{Logistic{}, Lasso{Folds: 2}, MLP{}} {
		t.Run(fmt.Sprintf("%T", c), func(t *testing.T) {
			_, err := c.Fit(ctx, train, nil, imbal.NewRand(3, imbal.StreamClassifier))
			assert.Equal(t, imbal.KindCanceled, imbal.Kind(err))
		})
	}
}

func TestScaler(t *testing.T) {
	for _, tc := range []struct {
		test, want []float64
		r, c       int
	}{
		{[]float64{1, 2, 3}, []float64{-1, 0, 1}, 3, 1},
		{[]float64{1, 1, 1}, []float64{0, 0, 0}, 3, 1},
		{[]float64{.1, .1, .1}, []float64{0, 0, 0}, 3, 1},
		{[]float64{1, 10, 2, 20, 3, 30}, []float64{-1, -1, 0, 0, 1, 1}, 3, 2},
	} {
		t.Run(fmt.Sprintf("%v", tc.test), func(t *testing.T) {
			xs := mat.NewDense(tc.r, tc.c, tc.test)
			s := normalize(xs)
			assert.InDeltaSlice(t, tc.want, xs.RawMatrix().Data, 1e-9)
			b0, ws := s.unscale(.5, make([]float64, tc.c))
			assert.Equal(t, .5, b0)
			assert.Len(t, ws, tc.c)
		})
	}
}

func TestDeviance(t *testing.T) {
	y := []float64{1, 0}
	assert.InDelta(t, -4*math.Log(.5), deviance(y, []float64{.5, .5}, 1e-15), 1e-12)
	assert.InDelta(t, 0, deviance(y, []float64{1, 0}, 1e-300), 1e-12)
	assert.False(t, math.IsInf(deviance(y, []float64{0, 1}, 1e-5), 0))
}
