package experiment

import (
	"compress/gzip"
	"context"
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	"git.sr.ht/~flobar/imbal/pkg/imbal"
	"git.sr.ht/~flobar/imbal/pkg/imbal/ml"
	"git.sr.ht/~flobar/imbal/pkg/imbal/resample"
	"git.sr.ht/~flobar/imbal/pkg/imbal/testkit"
	"git.sr.ht/~flobar/imbal/pkg/imbal/threshold"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func dataset() *imbal.Dataset {
	return testkit.Gaussian{Positives: 40, Negatives: 360, Features: 3, Shift: 1.5, Seed: 21}.Dataset()
}

func config(strategy, classifier string) Config {
	return Config{
		Resample:   resample.Config{Strategy: strategy},
		Classifier: ml.Config{Name: classifier, Folds: 5},
		Cost:       threshold.CostMatrix{FP: 1, FN: 5},
		Seed:       3,
	}
}

func TestRun(t *testing.T) {
	d := dataset()
	rep, err := Run(context.Background(), d, config(resample.NameSMOTE, ml.NameLogistic))
	require.NoError(t, err)
	assert.Equal(t, "smote/logistic/fp=1,fn=5", rep.Name)
	assert.Equal(t, resample.NameSMOTE, rep.Strategy)
	assert.Equal(t, ml.NameLogistic, rep.Classifier)
	assert.Equal(t, d.Len(), rep.Train.Positive+rep.Train.Negative+rep.Test.Positive+rep.Test.Negative)
	assert.Equal(t, 28, rep.Train.Positive)
	assert.Equal(t, rep.Resampled.Negative, rep.Resampled.Positive)
	assert.Equal(t, rep.Resampled.Positive-rep.Train.Positive, rep.Resampled.Synthetic)
	assert.Equal(t, rep.Test.Positive+rep.Test.Negative, rep.Matrix.Total())
	assert.Equal(t, rep.Matrix, rep.Best.Matrix)
	assert.Len(t, rep.Curve, 891)
	assert.GreaterOrEqual(t, rep.Best.Cutoff, .01)
	assert.LessOrEqual(t, rep.Best.Cutoff, .9+1e-9)
	assert.Greater(t, rep.AUC, .7)
	assert.Greater(t, rep.ExactAUC, .7)
	assert.Equal(t, []string{"x0", "x1", "x2"}, rep.Features)
	assert.Equal(t, rep.Config.ID(), rep.ID)
	// The cost optimal cutoff is at least as good as the default one.
	assert.LessOrEqual(t, rep.Matrix.Cost(1, 5), rep.Baseline.Cost(1, 5))
	require.NotNil(t, rep.Metrics.Accuracy)
}

func TestRunDeterministic(t *testing.T) {
	d := dataset()
	for _, strategy := range resample.Names() {
		for _, classifier := range ml.Names() {
			t.Run(strategy+"/"+classifier, func(t *testing.T) {
				c := config(strategy, classifier)
				c.Classifier.Epochs = 20
				marshal := func() []byte {
					rep, err := Run(context.Background(), d, c)
					require.NoError(t, err)
					buf, err := json.Marshal(rep)
					require.NoError(t, err)
					return buf
				}
				assert.Equal(t, marshal(), marshal())
			})
		}
	}
}

func TestConfigID(t *testing.T) {
	a := config(resample.NameROSE, ml.NameLasso)
	b := a.WithDefaults()
	assert.Equal(t, a.ID(), b.ID())
	b.Seed++
	assert.NotEqual(t, a.ID(), b.ID())
	b = a
	b.Workers = 8
	assert.Equal(t, a.ID(), b.ID())
}

func TestRunErrors(t *testing.T) {
	d := dataset()
	for _, tc := range []struct {
		name   string
		modify func(*Config)
		kind   string
	}{
		{"unknown strategy", func(c *Config) { c.Resample.Strategy = "smoth" }, imbal.KindInvalidConfig},
		{"unknown classifier", func(c *Config) { c.Classifier.Name = "svm" }, imbal.KindInvalidConfig},
		{"negative cost", func(c *Config) { c.Cost.FN = -1 }, imbal.KindInvalidConfig},
		{"bad grid", func(c *Config) { c.Grid = threshold.Grid{Start: .5, End: .1, Step: .1} }, imbal.KindInvalidConfig},
		{"bad fraction", func(c *Config) { c.TrainFraction = 1.5 }, imbal.KindInvalidConfig},
		{"large k", func(c *Config) { c.Resample.K = 50 }, imbal.KindInsufficientData},
		{"features", func(c *Config) { c.Features = []string{"x0", "x7"} }, imbal.KindSchemaMismatch},
		{"timeout", func(c *Config) {
			c.Classifier = ml.Config{Name: ml.NameMLP, Epochs: 1000000}
			c.Timeout = time.Nanosecond
		}, imbal.KindTimeout},
	} {
		t.Run(tc.name, func(t *testing.T) {
			c := config(resample.NameSMOTE, ml.NameLogistic)
			tc.modify(&c)
			rep, err := Run(context.Background(), d, c)
			require.Error(t, err)
			assert.Nil(t, rep)
			assert.Equal(t, tc.kind, imbal.Kind(err))
			assert.True(t, imbal.Recoverable(err))
		})
	}
}

func TestSweep(t *testing.T) {
	d := dataset()
	separable := testkit.Gaussian{Positives: 20, Negatives: 80, Features: 3, Shift: 10, Seed: 1}.Dataset()
	configs := []Config{
		config(resample.NameOver, ml.NameLogistic),
		config("smoth", ml.NameLogistic),
		config(resample.NameROSE, ml.NameLasso),
		{Name: "large k", Resample: resample.Config{Strategy: resample.NameSMOTE, K: 50}},
		config(resample.NameUnder, ml.NameLogistic),
	}
	reports, failures, err := Sweep(context.Background(), d, configs, 2)
	require.NoError(t, err)
	require.Len(t, reports, 3)
	assert.Equal(t, "over/logistic/fp=1,fn=5", reports[0].Name)
	assert.Equal(t, "rose/lasso/fp=1,fn=5", reports[1].Name)
	assert.Equal(t, "under/logistic/fp=1,fn=5", reports[2].Name)
	require.Len(t, failures, 2)
	assert.Equal(t, Failure{
		Name:       "smoth/logistic/fp=1,fn=5",
		Strategy:   "smoth",
		Classifier: ml.NameLogistic,
		Kind:       imbal.KindInvalidConfig,
		Message:    failures[0].Message,
	}, failures[0])
	assert.Contains(t, failures[0].Message, `did you mean "smote"?`)
	assert.Equal(t, "large k", failures[1].Name)
	assert.Equal(t, imbal.KindInsufficientData, failures[1].Kind)

	// Reports do not depend on the number of workers.
	serial, _, err := Sweep(context.Background(), d, configs, 1)
	require.NoError(t, err)
	a, err := json.Marshal(reports)
	require.NoError(t, err)
	b, err := json.Marshal(serial)
	require.NoError(t, err)
	assert.Equal(t, a, b)

	_, failures, err = Sweep(context.Background(), separable, configs[:1], 0)
	require.NoError(t, err)
	require.Len(t, failures, 1)
	assert.Equal(t, imbal.KindSeparation, failures[0].Kind)
}

func TestSweepInvalidGrid(t *testing.T) {
	bad := config(resample.NameNone, ml.NameLogistic)
	bad.Grid = threshold.Grid{Start: 0, End: 1, Step: 1e-300}
	configs := []Config{bad, config(resample.NameNone, ml.NameLogistic)}
	reports, failures, err := Sweep(context.Background(), dataset(), configs, 2)
	require.NoError(t, err)
	require.Len(t, reports, 1)
	require.Len(t, failures, 1)
	assert.Equal(t, imbal.KindInvalidConfig, failures[0].Kind)
}

func TestSweepCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, _, err := Sweep(ctx, dataset(), []Config{config(resample.NameNone, ml.NameLogistic)}, 1)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestWrite(t *testing.T) {
	d := dataset()
	reports, failures, err := Sweep(context.Background(), d, []Config{
		config(resample.NameSMOTE, ml.NameLogistic),
		config("none?", ml.NameLogistic),
	}, 1)
	require.NoError(t, err)
	s := Summary{Reports: reports, Failures: failures}
	dir := t.TempDir()
	for _, name := range []string{"summary.json", "summary.json.gz"} {
		t.Run(name, func(t *testing.T) {
			path := filepath.Join(dir, name)
			require.NoError(t, s.Write(path))
			in, err := os.Open(path)
			require.NoError(t, err)
			defer in.Close()
			var r io.Reader = in
			if filepath.Ext(name) == ".gz" {
				zip, err := gzip.NewReader(in)
				require.NoError(t, err)
				defer zip.Close()
				r = zip
			}
			var got struct {
				Reports []struct {
					ID    string `json:"id"`
					Name  string `json:"name"`
					Model struct {
						Weights map[string]float64 `json:"weights"`
					} `json:"model"`
				} `json:"reports"`
				Failures []Failure `json:"failures"`
			}
			require.NoError(t, json.NewDecoder(r).Decode(&got))
			require.Len(t, got.Reports, 1)
			assert.Equal(t, reports[0].ID.String(), got.Reports[0].ID)
			assert.Len(t, got.Reports[0].Model.Weights, 3)
			assert.Equal(t, failures, got.Failures)
		})
	}
}
