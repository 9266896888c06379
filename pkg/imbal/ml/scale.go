package ml

import (
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
)

// scaler implements z-score normalization of feature columns.
type scaler struct {
	Mean  []float64 `json:"mean"`
	Scale []float64 `json:"scale"`
}

// fitScaler calculates the column means and standard deviations of
// the given matrix.  Constant columns get a scale of 1 and are
// transformed to exact zeros.
func fitScaler(xs *mat.Dense) scaler {
	r, c := xs.Dims()
	s := scaler{Mean: make([]float64, c), Scale: make([]float64, c)}
	col := make([]float64, r)
	for j := 0; j < c; j++ {
		mat.Col(col, j, xs)
		if floats.Min(col) == floats.Max(col) {
			s.Mean[j], s.Scale[j] = col[0], 1
			continue
		}
		mean, std := stat.MeanStdDev(col, nil)
		if math.IsNaN(std) || std == 0 {
			std = 1
		}
		s.Mean[j] = mean
		s.Scale[j] = std
	}
	return s
}

// transform normalizes the given matrix in place.
func (s scaler) transform(xs *mat.Dense) {
	xs.Apply(func(_, j int, v float64) float64 {
		return (v - s.Mean[j]) / s.Scale[j]
	}, xs)
}

// normalize fits a scaler on xs and normalizes xs in place.
func normalize(xs *mat.Dense) scaler {
	s := fitScaler(xs)
	s.transform(xs)
	return s
}

// unscale converts an intercept and weights of normalized features to
// the original feature scale.
func (s scaler) unscale(b0 float64, ws []float64) (float64, []float64) {
	ret := make([]float64, len(ws))
	for j, w := range ws {
		ret[j] = w / s.Scale[j]
		b0 -= ret[j] * s.Mean[j]
	}
	return b0, ret
}
