package ml

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"math/rand/v2"

	"git.sr.ht/~flobar/imbal/pkg/imbal"
	"go.uber.org/zap"
	"gonum.org/v1/gonum/mat"
)

// Defaults for the logistic regression.
const (
	DefaultMaxIter = 25
	DefaultTol     = 1e-8
)

// separationEps is the distance of fitted probabilities to their labels
// below which the training data is considered to be completely
// separated.
const separationEps = 1e-8

// Logistic implements maximum likelihood logistic regression fitted by
// iteratively reweighted least squares.  The features are normalized
// before fitting.
type Logistic struct {
	MaxIter int     // maximal number of IRLS iterations
	Tol     float64 // convergence threshold for the relative deviance change
}

// LR is a fitted logistic regression model.
type LR struct {
	features   []string
	scaler     scaler
	intercept  float64
	weights    *mat.VecDense // weights of the normalized features
	lambda     float64
	iterations int
	deviance   float64
}

// Fit fits the logistic regression model.  If IRLS does not converge
// or if the training data is completely separated, a
// *imbal.SeparationError is returned.
func (l Logistic) Fit(ctx context.Context, train *imbal.Dataset, features []string, _ *rand.Rand) (Model, error) {
	x, y, features, err := prepare("logistic", train, features)
	if err != nil {
		return nil, err
	}
	maxIter, tol := l.MaxIter, l.Tol
	if maxIter <= 0 {
		maxIter = DefaultMaxIter
	}
	if tol <= 0 {
		tol = DefaultTol
	}
	s := normalize(x)
	cols := varying(x)
	a := withIntercept(x, cols)
	r, c := a.Dims()
	beta := mat.NewVecDense(c, nil)
	yv := mat.NewVecDense(r, y)
	p := make([]float64, r)
	predict(a, beta, p)
	dev := deviance(y, p, 1e-15)
	var (
		res, grad, delta mat.VecDense
		aw, h            mat.Dense
		chol             mat.Cholesky
	)
	for it := 1; it <= maxIter; it++ {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("logistic: %w", err)
		}
		// Newton step: (A^T W A) delta = A^T (y - p)
		res.SubVec(yv, mat.NewVecDense(r, p))
		grad.MulVec(a.T(), &res)
		aw.Apply(func(i, _ int, v float64) float64 {
			return v * math.Max(p[i]*(1-p[i]), 1e-10)
		}, a)
		h.Mul(a.T(), &aw)
		if ok := chol.Factorize(symmetric(&h)); !ok {
			return nil, &imbal.SeparationError{Op: "logistic", Iterations: it, Reason: "singular information matrix"}
		}
		if err := chol.SolveVecTo(&delta, &grad); err != nil {
			return nil, &imbal.SeparationError{Op: "logistic", Iterations: it, Reason: "cannot solve Newton step", Err: err}
		}
		beta.AddVec(beta, &delta)
		if !finite(beta.RawVector().Data) {
			return nil, &imbal.SeparationError{Op: "logistic", Iterations: it, Reason: "diverging weights"}
		}
		predict(a, beta, p)
		ndev := deviance(y, p, 1e-15)
		converged := math.Abs(ndev-dev)/(math.Abs(ndev)+0.1) < tol
		dev = ndev
		if !converged {
			continue
		}
		if separated(y, p) {
			return nil, &imbal.SeparationError{Op: "logistic", Iterations: it, Reason: "fitted probabilities are numerically 0 or 1"}
		}
		imbal.Log().Debug("logistic: converged",
			zap.Int("iterations", it), zap.Float64("deviance", dev), zap.Int("rows", r))
		return &LR{
			features:   features,
			scaler:     s,
			intercept:  beta.AtVec(0),
			weights:    expand(beta.RawVector().Data[1:], cols, len(features)),
			iterations: it,
			deviance:   dev,
		}, nil
	}
	return nil, &imbal.SeparationError{Op: "logistic", Iterations: maxIter, Reason: "maximal number of iterations reached"}
}

// varying returns the indices of the columns of the normalized matrix
// x that are not constant.  Constant columns are all zero after
// normalization.
func varying(x *mat.Dense) []int {
	r, c := x.Dims()
	var ret []int
	for j := 0; j < c; j++ {
		for i := 0; i < r; i++ {
			if x.At(i, j) != 0 {
				ret = append(ret, j)
				break
			}
		}
	}
	return ret
}

// withIntercept returns a leading column of ones followed by the
// given columns of x.
func withIntercept(x *mat.Dense, cols []int) *mat.Dense {
	r, _ := x.Dims()
	a := mat.NewDense(r, len(cols)+1, nil)
	for i := 0; i < r; i++ {
		a.Set(i, 0, 1)
		for k, j := range cols {
			a.Set(i, k+1, x.At(i, j))
		}
	}
	return a
}

// expand returns a weight vector of length n with the weights ws at
// the given column positions and zeros elsewhere.
func expand(ws []float64, cols []int, n int) *mat.VecDense {
	ret := mat.NewVecDense(n, nil)
	for k, j := range cols {
		ret.SetVec(j, ws[k])
	}
	return ret
}

// symmetric converts a square dense matrix to a symmetric one using
// its upper triangle.
func symmetric(m *mat.Dense) *mat.SymDense {
	n, _ := m.Dims()
	s := mat.NewSymDense(n, nil)
	for i := 0; i < n; i++ {
		for j := i; j < n; j++ {
			s.SetSym(i, j, m.At(i, j))
		}
	}
	return s
}

func predict(a *mat.Dense, beta *mat.VecDense, out []float64) {
	var eta mat.VecDense
	eta.MulVec(a, beta)
	for i := range out {
		out[i] = sigmoid(eta.AtVec(i))
	}
}

func separated(y, p []float64) bool {
	for i := range y {
		if math.Abs(y[i]-p[i]) > separationEps {
			return false
		}
	}
	return true
}

// Features returns the features of the model.
func (lr *LR) Features() []string {
	return append([]string(nil), lr.features...)
}

// PredictProb calculates the probability predictions for the rows of
// the given dataset.
func (lr *LR) PredictProb(d *imbal.Dataset) ([]float64, error) {
	x, err := d.Matrix(lr.features)
	if err != nil {
		return nil, fmt.Errorf("predict: %w", err)
	}
	lr.scaler.transform(x)
	var eta mat.VecDense
	eta.MulVec(x, lr.weights)
	ret := make([]float64, eta.Len())
	for i := range ret {
		ret[i] = sigmoid(lr.intercept + eta.AtVec(i))
	}
	return ret, nil
}

// Coefficients returns the intercept and the weights of the model on
// the original feature scale.
func (lr *LR) Coefficients() (float64, map[string]float64) {
	b0, ws := lr.scaler.unscale(lr.intercept, lr.weights.RawVector().Data)
	ret := make(map[string]float64, len(ws))
	for i, w := range ws {
		ret[lr.features[i]] = w
	}
	return b0, ret
}

// Lambda returns the L1 penalty the model was fitted with.
func (lr *LR) Lambda() float64 {
	return lr.lambda
}

type lrdata struct {
	Intercept  float64            `json:"intercept"`
	Weights    map[string]float64 `json:"weights"`
	Lambda     float64            `json:"lambda,omitempty"`
	Iterations int                `json:"iterations"`
	Deviance   float64            `json:"deviance"`
}

// MarshalJSON implements the json.Marshaler interface.
func (lr *LR) MarshalJSON() ([]byte, error) {
	b0, ws := lr.Coefficients()
	return json.Marshal(lrdata{
		Intercept:  b0,
		Weights:    ws,
		Lambda:     lr.lambda,
		Iterations: lr.iterations,
		Deviance:   lr.deviance,
	})
}

var _ Classifier = Logistic{}
var _ Model = &LR{}
