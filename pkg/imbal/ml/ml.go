package ml

import (
	"context"
	"fmt"
	"math"
	"math/rand/v2"

	"git.sr.ht/~flobar/imbal/pkg/imbal"
	"git.sr.ht/~flobar/imbal/pkg/imbal/lev"
	"gonum.org/v1/gonum/mat"
)

// Predefined values for true and false.
const (
	False = float64(0)
	True  = float64(1)
)

// Classifier fits probabilistic models on labeled datasets.  Fit uses
// only the given feature columns of the training set; if features is
// empty, all columns are used.  Any randomness is drawn from rng.
type Classifier interface {
	Fit(ctx context.Context, train *imbal.Dataset, features []string, rng *rand.Rand) (Model, error)
}

// Model is a fitted classifier.  PredictProb returns one probability
// of the positive class per row of the given dataset.  If the dataset
// lacks any of the model's features, an *imbal.SchemaMismatchError is
// returned.
type Model interface {
	PredictProb(d *imbal.Dataset) ([]float64, error)
	Features() []string
}

// Names of the available classifiers.
const (
	NameLogistic = "logistic"
	NameLasso    = "lasso"
	NameMLP      = "mlp"
)

// Names returns the names of all available classifiers.
func Names() []string {
	return []string{NameLogistic, NameLasso, NameMLP}
}

// Config configures a classifier.  Zero values select the defaults of
// the according classifier.
type Config struct {
	Name           string  `json:"name" toml:"name"`
	MaxIter        int     `json:"maxIter,omitempty" toml:"maxIter"`
	Tol            float64 `json:"tol,omitempty" toml:"tol"`
	Folds          int     `json:"folds,omitempty" toml:"folds"`
	NLambda        int     `json:"nLambda,omitempty" toml:"nLambda"`
	LambdaMinRatio float64 `json:"lambdaMinRatio,omitempty" toml:"lambdaMinRatio"`
	Lambda         float64 `json:"lambda,omitempty" toml:"lambda"`
	Rule           string  `json:"rule,omitempty" toml:"rule"` // min or 1se
	Hidden         int     `json:"hidden,omitempty" toml:"hidden"`
	LearningRate   float64 `json:"learningRate,omitempty" toml:"learningRate"`
	Epochs         int     `json:"epochs,omitempty" toml:"epochs"`
}

// New creates a new classifier from the given configuration.  An
// empty name selects the unpenalized logistic regression.
func New(c Config) (Classifier, error) {
	switch c.Name {
	case "", NameLogistic:
		return Logistic{MaxIter: c.MaxIter, Tol: c.Tol}, nil
	case NameLasso:
		if c.Rule != "" && c.Rule != RuleMin && c.Rule != Rule1SE {
			return nil, &imbal.ConfigError{Field: "lasso rule", Value: c.Rule,
				Hint: fmt.Sprintf("use %q or %q", RuleMin, Rule1SE)}
		}
		return Lasso{
			Folds:          c.Folds,
			NLambda:        c.NLambda,
			LambdaMinRatio: c.LambdaMinRatio,
			Lambda:         c.Lambda,
			Rule:           c.Rule,
			MaxIter:        c.MaxIter,
			Tol:            c.Tol,
		}, nil
	case NameMLP:
		return MLP{Hidden: c.Hidden, LearningRate: c.LearningRate, Epochs: c.Epochs}, nil
	default:
		err := &imbal.ConfigError{Field: "classifier", Value: c.Name}
		if s, _ := lev.Closest(c.Name, Names()); s != "" {
			err.Hint = fmt.Sprintf("did you mean %q?", s)
		}
		return nil, err
	}
}

// prepare returns the feature matrix and the 0/1 labels of the given
// training set.  Both classes must be present.
func prepare(op string, d *imbal.Dataset, features []string) (*mat.Dense, []float64, []string, error) {
	if len(features) == 0 {
		features = d.Features()
	}
	c := d.Counts()
	if c.Positive == 0 {
		return nil, nil, nil, &imbal.InsufficientDataError{Op: op, Class: imbal.Positive, Need: 1}
	}
	if c.Negative == 0 {
		return nil, nil, nil, &imbal.InsufficientDataError{Op: op, Class: imbal.Negative, Need: 1}
	}
	x, err := d.Matrix(features)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("%s: %w", op, err)
	}
	return x, d.Y().RawVector().Data, append([]string(nil), features...), nil
}

func sigmoid(z float64) float64 {
	return 1.0 / (1.0 + math.Exp(-z))
}

// deviance returns the binomial deviance of the given probabilities.
// Probabilities are clamped to [eps,1-eps].
func deviance(y, p []float64, eps float64) float64 {
	var sum float64
	for i := range y {
		pi := math.Min(math.Max(p[i], eps), 1-eps)
		if y[i] == True {
			sum += math.Log(pi)
		} else {
			sum += math.Log(1 - pi)
		}
	}
	return -2 * sum
}

func finite(xs []float64) bool {
	for _, x := range xs {
		if math.IsNaN(x) || math.IsInf(x, 0) {
			return false
		}
	}
	return true
}
