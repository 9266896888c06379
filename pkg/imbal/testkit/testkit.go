// Package testkit generates seeded synthetic datasets for tests.
package testkit

import (
	"fmt"

	"git.sr.ht/~flobar/imbal/pkg/imbal"
)

// Gaussian holds the parameters of a two class dataset with
// independent normally distributed features.
type Gaussian struct {
	Positives, Negatives int
	Features             int
	Shift                float64 // mean of the positive class features
	Seed                 uint64
}

// Names returns the feature names x0, x1, ...
func (g Gaussian) Names() []string {
	names := make([]string, g.Features)
	for i := range names {
		names[i] = fmt.Sprintf("x%d", i)
	}
	return names
}

// Dataset generates the dataset.  Negative features are drawn from
// N(0,1) and positive features from N(Shift,1).  The classes are
// interleaved deterministically.
func (g Gaussian) Dataset() *imbal.Dataset {
	rng := imbal.NewRand(g.Seed, 42)
	n := g.Positives + g.Negatives
	xs := make([][]float64, 0, n)
	ys := make([]bool, 0, n)
	for i := 0; i < g.Negatives; i++ {
		xs = append(xs, g.draw(0, rng.NormFloat64))
		ys = append(ys, imbal.Negative)
	}
	for i := 0; i < g.Positives; i++ {
		xs = append(xs, g.draw(g.Shift, rng.NormFloat64))
		ys = append(ys, imbal.Positive)
	}
	rng.Shuffle(n, func(i, j int) {
		xs[i], xs[j] = xs[j], xs[i]
		ys[i], ys[j] = ys[j], ys[i]
	})
	d, err := imbal.New(g.Names(), xs, ys)
	if err != nil {
		panic(fmt.Sprintf("testkit: %v", err))
	}
	return d
}

func (g Gaussian) draw(mean float64, norm func() float64) []float64 {
	x := make([]float64, g.Features)
	for i := range x {
		x[i] = mean + norm()
	}
	return x
}

// Must creates a dataset from the given rows and labels.  It panics on
// error.
func Must(features []string, xs [][]float64, labels ...int) *imbal.Dataset {
	ys := make([]bool, len(labels))
	for i, l := range labels {
		ys[i] = l == 1
	}
	d, err := imbal.New(features, xs, ys)
	if err != nil {
		panic(fmt.Sprintf("testkit: %v", err))
	}
	return d
}
