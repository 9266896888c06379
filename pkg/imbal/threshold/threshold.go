// Package threshold searches a grid of probability cutoffs for the
// cutoff with the minimal expected misclassification cost.
package threshold

import (
	"fmt"
	"math"
	"sort"

	"git.sr.ht/~flobar/imbal/pkg/imbal"
	"git.sr.ht/~flobar/imbal/pkg/imbal/eval"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"gonum.org/v1/gonum/integrate"
	"gonum.org/v1/gonum/stat"
)

// CostMatrix holds the costs of a single false positive and a single
// false negative.
type CostMatrix struct {
	FP float64 `json:"fp" toml:"fp"`
	FN float64 `json:"fn" toml:"fn"`
}

// Validate returns an error if any of the costs is negative.
func (c CostMatrix) Validate() error {
	for _, x := range []struct {
		name string
		val  float64
	}{{"fp cost", c.FP}, {"fn cost", c.FN}} {
		if x.val < 0 || math.IsNaN(x.val) || math.IsInf(x.val, 0) {
			return &imbal.ConfigError{Field: x.name, Value: x.val, Hint: "must be a non-negative number"}
		}
	}
	return nil
}

// Grid defines the equidistant cutoffs Start, Start+Step, ..., End.
type Grid struct {
	Start float64 `json:"start" toml:"start"`
	End   float64 `json:"end" toml:"end"`
	Step  float64 `json:"step" toml:"step"`
}

// DefaultGrid is the default cutoff grid.
var DefaultGrid = Grid{Start: .01, End: .90, Step: .001}

// MaxCutoffs is the maximal number of cutoffs of a grid.
const MaxCutoffs = 10_000_000

// Cutoffs returns the cutoffs of the grid in ascending order.
func (g Grid) Cutoffs() ([]float64, error) {
	if !(g.Step > 0) || math.IsInf(g.Step, 0) {
		return nil, &imbal.ConfigError{Field: "grid step", Value: g.Step, Hint: "must be positive"}
	}
	if !(g.Start <= g.End) || math.IsInf(g.Start, 0) || math.IsInf(g.End, 0) {
		return nil, &imbal.ConfigError{Field: "grid", Value: g, Hint: "start must not be greater than end"}
	}
	f := math.Floor((g.End-g.Start)/g.Step+1e-6) + 1
	if math.IsNaN(f) || f > MaxCutoffs {
		return nil, &imbal.ConfigError{Field: "grid", Value: g,
			Hint: fmt.Sprintf("at most %d cutoffs allowed", MaxCutoffs)}
	}
	n := int(f)
	ret := make([]float64, n)
	for i := range ret {
		ret[i] = g.Start + float64(i)*g.Step
	}
	return ret, nil
}

// Point is a single point of the cutoff curve.
type Point struct {
	Cutoff   float64              `json:"cutoff"`
	TPR      float64              `json:"tpr"`
	FPR      float64              `json:"fpr"`
	Accuracy float64              `json:"accuracy"`
	Cost     float64              `json:"cost"`
	Matrix   eval.ConfusionMatrix `json:"matrix"`
}

// Curve is a sequence of points ordered by ascending cutoff.
type Curve []Point

// ROC returns the false and true positive rates of the curve.
func (c Curve) ROC() (fpr, tpr []float64) {
	fpr, tpr = make([]float64, len(c)), make([]float64, len(c))
	for i := range c {
		fpr[i], tpr[i] = c[i].FPR, c[i].TPR
	}
	return fpr, tpr
}

// AUC returns the area under the ROC curve of the points of the curve
// and the two end points (0,0) and (1,1) using the trapezoidal rule.
func (c Curve) AUC() float64 {
	type xy struct{ x, y float64 }
	ps := make([]xy, 0, len(c)+2)
	ps = append(ps, xy{0, 0}, xy{1, 1})
	for _, p := range c {
		ps = append(ps, xy{p.FPR, p.TPR})
	}
	sort.Slice(ps, func(i, j int) bool {
		if ps[i].x != ps[j].x {
			return ps[i].x < ps[j].x
		}
		return ps[i].y < ps[j].y
	})
	xs, ys := make([]float64, len(ps)), make([]float64, len(ps))
	for i := range ps {
		xs[i], ys[i] = ps[i].x, ps[i].y
	}
	return integrate.Trapezoidal(xs, ys)
}

// Result is the result of a cutoff search.
type Result struct {
	Curve    Curve   `json:"curve"`
	Best     Point   `json:"best"`
	AUC      float64 `json:"auc"`      // over the grid
	ExactAUC float64 `json:"exactAUC"` // over all distinct probabilities
}

// Options configure the cutoff search.  If Workers > 1, the cutoffs
// are evaluated in parallel.
type Options struct {
	Workers int
}

// Optimize calls Options{}.Optimize.
func Optimize(probs []float64, labels []bool, cutoffs []float64, cost CostMatrix) (Result, error) {
	return Options{}.Optimize(probs, labels, cutoffs, cost)
}

// Optimize evaluates all cutoffs.  A row is labeled positive iff its
// probability is greater than the cutoff.  The best point is the point
// with the minimal cost; ties are broken by the smallest cutoff.  If
// the labels contain only one class, an
// *imbal.DegenerateEvaluationError is returned.
func (o Options) Optimize(probs []float64, labels []bool, cutoffs []float64, cost CostMatrix) (Result, error) {
	if len(probs) != len(labels) {
		return Result{}, fmt.Errorf("optimize: %d probabilities but %d labels", len(probs), len(labels))
	}
	if err := cost.Validate(); err != nil {
		return Result{}, fmt.Errorf("optimize: %w", err)
	}
	if len(cutoffs) == 0 {
		return Result{}, &imbal.ConfigError{Field: "grid", Value: "[]", Hint: "empty cutoff grid"}
	}
	s, err := newScores(probs, labels)
	if err != nil {
		return Result{}, err
	}
	cutoffs = append([]float64(nil), cutoffs...)
	sort.Float64s(cutoffs)
	curve := make(Curve, len(cutoffs))
	workers := max(o.Workers, 1)
	chunk := (len(cutoffs) + workers - 1) / workers
	var g errgroup.Group
	g.SetLimit(workers)
	for start := 0; start < len(cutoffs); start += chunk {
		end := min(start+chunk, len(cutoffs))
		g.Go(func() error {
			for i := start; i < end; i++ {
				curve[i] = s.point(cutoffs[i], cost)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return Result{}, fmt.Errorf("optimize: %w", err)
	}
	sort.SliceStable(curve, func(i, j int) bool { return curve[i].Cutoff < curve[j].Cutoff })
	best := curve[0]
	for _, p := range curve[1:] {
		if p.Cost < best.Cost {
			best = p
		}
	}
	ret := Result{Curve: curve, Best: best, AUC: curve.AUC(), ExactAUC: ExactAUC(probs, labels)}
	imbal.Log().Debug("optimize",
		zap.Int("cutoffs", len(cutoffs)), zap.Float64("best", best.Cutoff),
		zap.Float64("cost", best.Cost), zap.Float64("auc", ret.AUC))
	return ret, nil
}

// scores holds the sorted probabilities of both classes.
type scores struct {
	pos, neg []float64
}

func newScores(probs []float64, labels []bool) (scores, error) {
	var s scores
	for i, p := range probs {
		if math.IsNaN(p) {
			return s, fmt.Errorf("optimize: row %d: invalid probability %g", i, p)
		}
		if labels[i] {
			s.pos = append(s.pos, p)
		} else {
			s.neg = append(s.neg, p)
		}
	}
	if len(s.pos) == 0 || len(s.neg) == 0 {
		return s, &imbal.DegenerateEvaluationError{Op: "optimize", Positives: len(s.pos), Negatives: len(s.neg)}
	}
	sort.Float64s(s.pos)
	sort.Float64s(s.neg)
	return s, nil
}

// above returns the number of sorted values greater than c.
func above(sorted []float64, c float64) int {
	return len(sorted) - sort.Search(len(sorted), func(i int) bool { return sorted[i] > c })
}

func (s scores) point(c float64, cost CostMatrix) Point {
	tp, fp := above(s.pos, c), above(s.neg, c)
	m := eval.ConfusionMatrix{TP: tp, FP: fp, FN: len(s.pos) - tp, TN: len(s.neg) - fp}
	acc, _ := m.Accuracy()
	return Point{
		Cutoff:   c,
		TPR:      float64(tp) / float64(len(s.pos)),
		FPR:      float64(fp) / float64(len(s.neg)),
		Accuracy: acc,
		Cost:     m.Cost(cost.FP, cost.FN),
		Matrix:   m,
	}
}

// ExactAUC returns the area under the ROC curve over all distinct
// probabilities.  It returns NaN if the labels contain only one class.
func ExactAUC(probs []float64, labels []bool) float64 {
	y := append([]float64(nil), probs...)
	classes := append([]bool(nil), labels...)
	stat.SortWeightedLabeled(y, classes, nil)
	tpr, fpr, _ := stat.ROC(nil, y, classes, nil)
	if len(fpr) < 2 || math.IsNaN(fpr[len(fpr)-1]) || math.IsNaN(tpr[len(tpr)-1]) {
		return math.NaN()
	}
	return integrate.Trapezoidal(fpr, tpr)
}
