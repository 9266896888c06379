// Package experiment runs the complete pipeline of splitting,
// resampling, fitting, cutoff optimization and evaluation for one or
// more configurations.
package experiment

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"git.sr.ht/~flobar/imbal/pkg/imbal"
	"git.sr.ht/~flobar/imbal/pkg/imbal/eval"
	"git.sr.ht/~flobar/imbal/pkg/imbal/ml"
	"git.sr.ht/~flobar/imbal/pkg/imbal/resample"
	"git.sr.ht/~flobar/imbal/pkg/imbal/threshold"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Defaults of a run.
const (
	DefaultTrainFraction = .7
	DefaultCutoff        = .5
	DefaultSeed          = 1
)

// Config configures a single run.
type Config struct {
	Name          string               `json:"name" toml:"name"`
	Resample      resample.Config      `json:"resample" toml:"resample"`
	Classifier    ml.Config            `json:"classifier" toml:"classifier"`
	Cost          threshold.CostMatrix `json:"cost" toml:"cost"`
	Grid          threshold.Grid       `json:"grid" toml:"grid"`
	Features      []string             `json:"features,omitempty" toml:"features"`
	TrainFraction float64              `json:"trainFraction" toml:"trainFraction"`
	Seed          uint64               `json:"seed" toml:"seed"`
	DefaultCutoff float64              `json:"defaultCutoff" toml:"defaultCutoff"`
	Timeout       time.Duration        `json:"timeout,omitempty" toml:"timeout"` // of the fit
	Workers       int                  `json:"-" toml:"-"`                       // of the cutoff search
}

// WithDefaults returns a copy of the configuration with all unset
// values set to their defaults.
func (c Config) WithDefaults() Config {
	if c.Resample.Strategy == "" {
		c.Resample.Strategy = resample.NameNone
	}
	if c.Classifier.Name == "" {
		c.Classifier.Name = ml.NameLogistic
	}
	if c.Grid == (threshold.Grid{}) {
		c.Grid = threshold.DefaultGrid
	}
	if c.TrainFraction == 0 {
		c.TrainFraction = DefaultTrainFraction
	}
	if c.Seed == 0 {
		c.Seed = DefaultSeed
	}
	if c.DefaultCutoff == 0 {
		c.DefaultCutoff = DefaultCutoff
	}
	if c.Name == "" {
		c.Name = fmt.Sprintf("%s/%s/fp=%g,fn=%g", c.Resample.Strategy, c.Classifier.Name, c.Cost.FP, c.Cost.FN)
	}
	return c
}

// ID returns the deterministic identifier of the configuration.
func (c Config) ID() uuid.UUID {
	buf, err := json.Marshal(c.WithDefaults())
	if err != nil {
		panic(fmt.Sprintf("experiment: cannot marshal config: %v", err))
	}
	return uuid.NewSHA1(uuid.NameSpaceOID, buf)
}

// Report is the result of a successful run.
type Report struct {
	ID              uuid.UUID            `json:"id"`
	Name            string               `json:"name"`
	Strategy        string               `json:"strategy"`
	Classifier      string               `json:"classifier"`
	Config          Config               `json:"config"`
	Train           imbal.ClassCounts    `json:"train"`
	Resampled       imbal.ClassCounts    `json:"resampled"`
	Test            imbal.ClassCounts    `json:"test"`
	Features        []string             `json:"features"`
	Model           ml.Model             `json:"model"`
	Curve           threshold.Curve      `json:"curve"`
	Best            threshold.Point      `json:"best"`
	AUC             float64              `json:"auc"`
	ExactAUC        float64              `json:"exactAUC"`
	Matrix          eval.ConfusionMatrix `json:"matrix"`
	Metrics         eval.Metrics         `json:"metrics"`
	Baseline        eval.ConfusionMatrix `json:"baseline"`
	BaselineMetrics eval.Metrics         `json:"baselineMetrics"`
}

// Run runs the pipeline for the given configuration on the dataset.
// Any error aborts the run.  If the configuration has a timeout, the
// fit is canceled after the timeout.
func Run(ctx context.Context, d *imbal.Dataset, c Config) (*Report, error) {
	c = c.WithDefaults()
	rep, err := run(ctx, d, c)
	if err != nil {
		return nil, fmt.Errorf("run %s: %w", c.Name, err)
	}
	return rep, nil
}

func run(ctx context.Context, d *imbal.Dataset, c Config) (*Report, error) {
	if err := c.Cost.Validate(); err != nil {
		return nil, err
	}
	cutoffs, err := c.Grid.Cutoffs()
	if err != nil {
		return nil, err
	}
	r, err := resample.New(c.Resample)
	if err != nil {
		return nil, err
	}
	cl, err := ml.New(c.Classifier)
	if err != nil {
		return nil, err
	}
	split, err := imbal.Stratify(d, c.TrainFraction, c.Seed)
	if err != nil {
		return nil, err
	}
	train, err := r.Resample(split.Train, imbal.NewRand(c.Seed, imbal.StreamResample))
	if err != nil {
		return nil, err
	}
	model, err := fit(ctx, cl, train, c)
	if err != nil {
		return nil, err
	}
	probs, err := model.PredictProb(split.Test)
	if err != nil {
		return nil, err
	}
	labels := split.Test.Labels()
	res, err := threshold.Options{Workers: c.Workers}.Optimize(probs, labels, cutoffs, c.Cost)
	if err != nil {
		return nil, err
	}
	m, err := eval.Evaluate(probs, labels, res.Best.Cutoff)
	if err != nil {
		return nil, err
	}
	base, err := eval.Evaluate(probs, labels, c.DefaultCutoff)
	if err != nil {
		return nil, err
	}
	imbal.Log().Debug("run",
		zap.String("name", c.Name), zap.Float64("cutoff", res.Best.Cutoff),
		zap.Float64("cost", res.Best.Cost), zap.Float64("auc", res.AUC))
	return &Report{
		ID:              c.ID(),
		Name:            c.Name,
		Strategy:        r.Name(),
		Classifier:      c.Classifier.Name,
		Config:          c,
		Train:           split.Train.Counts(),
		Resampled:       train.Counts(),
		Test:            split.Test.Counts(),
		Features:        model.Features(),
		Model:           model,
		Curve:           res.Curve,
		Best:            res.Best,
		AUC:             res.AUC,
		ExactAUC:        res.ExactAUC,
		Matrix:          m,
		Metrics:         m.Metrics(),
		Baseline:        base,
		BaselineMetrics: base.Metrics(),
	}, nil
}

func fit(ctx context.Context, cl ml.Classifier, train *imbal.Dataset, c Config) (ml.Model, error) {
	if c.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.Timeout)
		defer cancel()
	}
	return cl.Fit(ctx, train, c.Features, imbal.NewRand(c.Seed, imbal.StreamClassifier))
}
