package experiment

import (
	"context"
	"runtime"

	"git.sr.ht/~flobar/imbal/pkg/imbal"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Failure records a configuration whose run failed.
type Failure struct {
	Name       string `json:"name"`
	Strategy   string `json:"strategy"`
	Classifier string `json:"classifier"`
	Kind       string `json:"kind"`
	Message    string `json:"message"`
}

// Sweep runs all configurations on the dataset using up to workers
// parallel runs (default: number of CPUs).  Reports and failures keep
// the order of the configurations.  A failing run is recorded as a
// Failure and does not stop the other runs; only the cancellation of
// ctx aborts the sweep.
func Sweep(ctx context.Context, d *imbal.Dataset, configs []Config, workers int) ([]Report, []Failure, error) {
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	reports := make([]*Report, len(configs))
	failures := make([]*Failure, len(configs))
	var g errgroup.Group
	g.SetLimit(workers)
	for i := range configs {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			c := configs[i].WithDefaults()
			rep, err := Run(ctx, d, c)
			if err == nil {
				reports[i] = rep
				imbal.Log().Info("sweep: done", zap.String("name", c.Name),
					zap.Float64("cutoff", rep.Best.Cutoff), zap.Float64("auc", rep.AUC))
				return nil
			}
			if ctx.Err() != nil || !imbal.Recoverable(err) {
				return err
			}
			failures[i] = &Failure{
				Name:       c.Name,
				Strategy:   c.Resample.Strategy,
				Classifier: c.Classifier.Name,
				Kind:       imbal.Kind(err),
				Message:    err.Error(),
			}
			imbal.Log().Warn("sweep: skipping configuration",
				zap.String("name", c.Name), zap.String("kind", failures[i].Kind), zap.Error(err))
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, nil, err
	}
	var rs []Report
	var fs []Failure
	for i := range configs {
		if reports[i] != nil {
			rs = append(rs, *reports[i])
		}
		if failures[i] != nil {
			fs = append(fs, *failures[i])
		}
	}
	return rs, fs, nil
}
