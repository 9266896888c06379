package resample

import (
	"fmt"
	"math"
	"math/rand/v2"

	"git.sr.ht/~flobar/imbal/pkg/imbal"
	"github.com/montanaflynn/stats"
	"go.uber.org/zap"
)

// ROSE generates a new dataset of N synthetic rows (default |train|)
// from kernel density estimates of both classes.  Each row is positive
// with probability P (default 0.5).  A row is generated by drawing a
// row of the class and adding Gaussian noise to each feature j with
// the bandwidth
//
//	h_j = hmult * (4/((d+2)*n))^(1/(d+4)) * sd_j
//
// where d is the number of features, n the size of the class and sd_j
// the sample standard deviation of feature j in the class.  The
// bandwidth multipliers of the minority and majority class default to
// 1.
type ROSE struct {
	P             float64
	N             int
	HMultMajority float64
	HMultMinority float64
}

// Name returns "rose".
func (ROSE) Name() string { return NameROSE }

// kernel holds the rows and bandwidths of one class.
type kernel struct {
	rows []int
	h    []float64
}

// Resample returns the synthetic dataset.  It returns an
// *imbal.InsufficientDataError if a class has less than 2 rows.
func (r ROSE) Resample(train *imbal.Dataset, rng *rand.Rand) (*imbal.Dataset, error) {
	p, n := r.P, r.N
	if p <= 0 {
		p = .5
	}
	if n <= 0 {
		n = train.Len()
	}
	class, minority, majority := train.Minority()
	kmin, err := r.kernel(train, class, minority, r.HMultMinority)
	if err != nil {
		return nil, err
	}
	kmaj, err := r.kernel(train, !class, majority, r.HMultMajority)
	if err != nil {
		return nil, err
	}
	kernels := map[bool]kernel{class: kmin, !class: kmaj}
	rows := make([]imbal.Row, n)
	for i := range rows {
		label := rng.Float64() < p
		k := kernels[label]
		src := train.Row(k.rows[rng.IntN(len(k.rows))])
		x := make([]float64, len(src.X))
		for j := range x {
			x[j] = src.X[j] + k.h[j]*rng.NormFloat64()
		}
		rows[i] = synthetic(x, label, src.ID, imbal.NoID)
	}
	ret, err := imbal.FromRows(train.Features(), rows)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", NameROSE, err)
	}
	logCounts(NameROSE, train, ret)
	return ret, nil
}

func (r ROSE) kernel(d *imbal.Dataset, class bool, rows []int, hmult float64) (kernel, error) {
	if len(rows) < 2 {
		return kernel{}, &imbal.InsufficientDataError{Op: NameROSE, Class: class, Have: len(rows), Need: 2}
	}
	if hmult <= 0 {
		hmult = 1
	}
	dims, n := float64(len(d.Features())), float64(len(rows))
	factor := hmult * math.Pow(4/((dims+2)*n), 1/(dims+4))
	k := kernel{rows: rows, h: make([]float64, len(d.Features()))}
	col := make(stats.Float64Data, len(rows))
	for j := range k.h {
		for i, row := range rows {
			col[i] = d.Row(row).X[j]
		}
		sd, err := stats.StandardDeviationSample(col)
		if err != nil {
			return kernel{}, fmt.Errorf("%s: %w", NameROSE, err)
		}
		k.h[j] = factor * sd
	}
	imbal.Log().Debug("rose: bandwidths", zap.Int("class", imbal.Label(class)), zap.Float64s("h", k.h))
	return k, nil
}

var _ Resampler = ROSE{}
