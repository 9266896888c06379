package ml

import (
	"context"
	"fmt"
	"math"
	"math/rand/v2"

	"git.sr.ht/~flobar/imbal/pkg/imbal"
	"go.uber.org/zap"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
)

// Lambda selection rules for the cross validation.
const (
	RuleMin = "min" // lambda with the minimal mean held-out deviance
	Rule1SE = "1se" // largest lambda within one standard error of the minimum
)

// Defaults for the L1 penalized logistic regression.
const (
	DefaultFolds          = 10
	DefaultNLambda        = 50
	DefaultLambdaMinRatio = 1e-3
	defaultLassoMaxIter   = 100
	defaultLassoTol       = 1e-6
	maxPasses             = 1000
	cvEps                 = 1e-5 // probability clamp for held-out deviances
)

// Lasso implements L1 penalized logistic regression.  The penalty is
// chosen by stratified k-fold cross validation over a decreasing path
// of penalties minimizing the mean held-out deviance.  The model is
// then refitted on the whole training set.  If Lambda > 0, no cross
// validation is done and the given penalty is used.
//
// The model is fitted by cyclic coordinate descent on the penalized
// quadratic approximation of the log-likelihood.
type Lasso struct {
	Folds          int
	NLambda        int
	LambdaMinRatio float64
	Lambda         float64
	Rule           string
	MaxIter        int
	Tol            float64
}

func (l Lasso) defaults() Lasso {
	if l.Folds <= 0 {
		l.Folds = DefaultFolds
	}
	if l.NLambda <= 0 {
		l.NLambda = DefaultNLambda
	}
	if l.LambdaMinRatio <= 0 || l.LambdaMinRatio >= 1 {
		l.LambdaMinRatio = DefaultLambdaMinRatio
	}
	if l.Rule == "" {
		l.Rule = RuleMin
	}
	if l.MaxIter <= 0 {
		l.MaxIter = defaultLassoMaxIter
	}
	if l.Tol <= 0 {
		l.Tol = defaultLassoTol
	}
	return l
}

// coef holds the intercept and weights of normalized features.
type coef struct {
	b0 float64
	b  []float64
}

// Fit fits the L1 penalized model.  Fold assignment draws from rng.
func (l Lasso) Fit(ctx context.Context, train *imbal.Dataset, features []string, rng *rand.Rand) (Model, error) {
	l = l.defaults()
	x, y, features, err := prepare("lasso", train, features)
	if err != nil {
		return nil, err
	}
	var lambdas []float64
	if l.Lambda > 0 {
		lambdas = []float64{l.Lambda}
	} else {
		lambdas = l.path(x, y)
		k, err := l.crossValidate(ctx, x, y, lambdas, rng)
		if err != nil {
			return nil, err
		}
		lambdas = lambdas[:k+1]
	}
	s := normalize(x)
	coefs, err := l.fitPath(ctx, x, y, lambdas)
	if err != nil {
		return nil, err
	}
	best := coefs[len(coefs)-1]
	p := make([]float64, len(y))
	l.predict(x, best, p)
	lambda := lambdas[len(lambdas)-1]
	imbal.Log().Debug("lasso: fitted",
		zap.Float64("lambda", lambda), zap.Int("nonzero", nonzero(best.b)))
	return &LR{
		features:  features,
		scaler:    s,
		intercept: best.b0,
		weights:   mat.NewVecDense(len(best.b), best.b),
		lambda:    lambda,
		deviance:  deviance(y, p, 1e-15),
	}, nil
}

// path returns the decreasing sequence of penalties.  The first
// penalty is the smallest one for which all weights are zero.
func (l Lasso) path(x *mat.Dense, y []float64) []float64 {
	xs := mat.DenseCopyOf(x)
	normalize(xs)
	r, c := xs.Dims()
	ybar := stat.Mean(y, nil)
	res := make([]float64, r)
	for i := range y {
		res[i] = y[i] - ybar
	}
	col := make([]float64, r)
	var lmax float64
	for j := 0; j < c; j++ {
		mat.Col(col, j, xs)
		lmax = math.Max(lmax, math.Abs(floats.Dot(col, res))/float64(r))
	}
	if lmax <= 0 {
		lmax = 1
	}
	if l.NLambda == 1 {
		return []float64{lmax}
	}
	lambdas := make([]float64, l.NLambda)
	floats.LogSpan(lambdas, lmax, lmax*l.LambdaMinRatio)
	return lambdas
}

// crossValidate returns the index of the selected penalty.
func (l Lasso) crossValidate(ctx context.Context, x *mat.Dense, y []float64, lambdas []float64, rng *rand.Rand) (int, error) {
	folds, err := stratifiedFolds(y, l.Folds, rng)
	if err != nil {
		return 0, err
	}
	devs := make([][]float64, len(lambdas)) // lambda -> fold -> deviance
	for k := range devs {
		devs[k] = make([]float64, l.Folds)
	}
	for f := 0; f < l.Folds; f++ {
		var tr, te []int
		for i, fold := range folds {
			if fold == f {
				te = append(te, i)
			} else {
				tr = append(tr, i)
			}
		}
		xtr, ytr := rows(x, y, tr)
		xte, yte := rows(x, y, te)
		s := normalize(xtr)
		s.transform(xte)
		coefs, err := l.fitPath(ctx, xtr, ytr, lambdas)
		if err != nil {
			return 0, fmt.Errorf("lasso: fold %d: %w", f+1, err)
		}
		p := make([]float64, len(yte))
		for k := range coefs {
			l.predict(xte, coefs[k], p)
			devs[k][f] = deviance(yte, p, cvEps) / float64(len(yte))
		}
	}
	means := make([]float64, len(lambdas))
	ses := make([]float64, len(lambdas))
	for k := range devs {
		mean, std := stat.MeanStdDev(devs[k], nil)
		means[k] = mean
		ses[k] = std / math.Sqrt(float64(l.Folds))
	}
	best := floats.MinIdx(means)
	if l.Rule == Rule1SE {
		for k := 0; k < best; k++ {
			if means[k] <= means[best]+ses[best] {
				best = k
				break
			}
		}
	}
	imbal.Log().Debug("lasso: cross validation",
		zap.Int("folds", l.Folds), zap.String("rule", l.Rule),
		zap.Float64("lambda", lambdas[best]), zap.Float64("deviance", means[best]))
	return best, nil
}

// stratifiedFolds assigns each row to one of k folds such that both
// classes are spread evenly over the folds.
func stratifiedFolds(y []float64, k int, rng *rand.Rand) ([]int, error) {
	if k < 2 {
		return nil, &imbal.ConfigError{Field: "folds", Value: k, Hint: "need at least 2 folds"}
	}
	folds := make([]int, len(y))
	for _, class := range []float64{True, False} {
		var idx []int
		for i := range y {
			if y[i] == class {
				idx = append(idx, i)
			}
		}
		if len(idx) < k {
			return nil, &imbal.InsufficientDataError{Op: "lasso cross validation",
				Class: class == True, Have: len(idx), Need: k}
		}
		perm := rng.Perm(len(idx))
		for pos, i := range perm {
			folds[idx[i]] = pos % k
		}
	}
	return folds, nil
}

func rows(x *mat.Dense, y []float64, idx []int) (*mat.Dense, []float64) {
	_, c := x.Dims()
	xs := mat.NewDense(len(idx), c, nil)
	ys := make([]float64, len(idx))
	for i, j := range idx {
		xs.SetRow(i, x.RawRowView(j))
		ys[i] = y[j]
	}
	return xs, ys
}

// fitPath fits the model for each of the given penalties with warm
// starts.  The matrix x must be normalized.
func (l Lasso) fitPath(ctx context.Context, x *mat.Dense, y []float64, lambdas []float64) ([]coef, error) {
	r, c := x.Dims()
	cols := make([][]float64, c)
	for j := range cols {
		cols[j] = mat.Col(nil, j, x)
	}
	ybar := stat.Mean(y, nil)
	cur := coef{b0: math.Log(ybar / (1 - ybar)), b: make([]float64, c)}
	ret := make([]coef, 0, len(lambdas))
	eta := make([]float64, r)
	w := make([]float64, r)
	z := make([]float64, r)
	for _, lambda := range lambdas {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("lasso: %w", err)
		}
		converged := false
		for it := 0; it < l.MaxIter && !converged; it++ {
			// Quadratic approximation at the current coefficients.
			l.linear(cols, cur, eta)
			for i := range y {
				p := math.Min(math.Max(sigmoid(eta[i]), cvEps), 1-cvEps)
				w[i] = p * (1 - p)
				z[i] = (y[i] - p) / w[i] // working residual
			}
			prev := coef{b0: cur.b0, b: append([]float64(nil), cur.b...)}
			if err := l.descend(cols, w, z, lambda, &cur); err != nil {
				return nil, err
			}
			if !finite(cur.b) || math.IsNaN(cur.b0) || math.IsInf(cur.b0, 0) {
				return nil, &imbal.SeparationError{Op: "lasso", Iterations: it + 1, Reason: "diverging weights"}
			}
			delta := math.Abs(cur.b0 - prev.b0)
			for j := range cur.b {
				delta = math.Max(delta, math.Abs(cur.b[j]-prev.b[j]))
			}
			converged = delta < l.Tol
		}
		if !converged {
			return nil, &imbal.SeparationError{Op: "lasso", Iterations: l.MaxIter,
				Reason: fmt.Sprintf("maximal number of iterations reached for lambda %g", lambda)}
		}
		ret = append(ret, coef{b0: cur.b0, b: append([]float64(nil), cur.b...)})
	}
	return ret, nil
}

// descend runs cyclic coordinate descent on the weighted least squares
// problem with the residuals z until the coefficients do not change
// anymore.
func (l Lasso) descend(cols [][]float64, w, z []float64, lambda float64, cur *coef) error {
	n := float64(len(w))
	sumw := floats.Sum(w)
	for pass := 0; pass < maxPasses; pass++ {
		var maxd float64
		// intercept
		var d0 float64
		for i := range w {
			d0 += w[i] * z[i]
		}
		d0 /= sumw
		cur.b0 += d0
		for i := range z {
			z[i] -= d0
		}
		maxd = math.Abs(d0)
		for j, col := range cols {
			var xwx, xwz float64
			for i, v := range col {
				xwx += w[i] * v * v
				xwz += w[i] * v * z[i]
			}
			xwx /= n
			if xwx == 0 {
				continue
			}
			g := xwz/n + xwx*cur.b[j]
			nb := softThreshold(g, lambda) / xwx
			if d := nb - cur.b[j]; d != 0 {
				for i, v := range col {
					z[i] -= d * v
				}
				cur.b[j] = nb
				maxd = math.Max(maxd, math.Abs(d))
			}
		}
		if maxd < l.Tol {
			return nil
		}
	}
	return &imbal.SeparationError{Op: "lasso", Iterations: maxPasses, Reason: "coordinate descent does not converge"}
}

func softThreshold(x, lambda float64) float64 {
	switch {
	case x > lambda:
		return x - lambda
	case x < -lambda:
		return x + lambda
	default:
		return 0
	}
}

func (l Lasso) linear(cols [][]float64, c coef, out []float64) {
	for i := range out {
		out[i] = c.b0
	}
	for j, col := range cols {
		if c.b[j] == 0 {
			continue
		}
		floats.AddScaled(out, c.b[j], col)
	}
}

func (l Lasso) predict(x *mat.Dense, c coef, out []float64) {
	r, _ := x.Dims()
	for i := 0; i < r; i++ {
		out[i] = sigmoid(c.b0 + floats.Dot(x.RawRowView(i), c.b))
	}
}

func nonzero(xs []float64) int {
	var n int
	for _, x := range xs {
		if x != 0 {
			n++
		}
	}
	return n
}

var _ Classifier = Lasso{}
