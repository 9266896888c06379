// Package resample implements strategies that rebalance the classes
// of an imbalanced training set.
package resample

import (
	"fmt"
	"math"
	"math/rand/v2"

	"git.sr.ht/~flobar/imbal/pkg/imbal"
	"git.sr.ht/~flobar/imbal/pkg/imbal/lev"
	"go.uber.org/zap"
)

// Resampler produces a rebalanced dataset from a training set.  The
// training set is never modified.  All randomness is drawn from rng,
// so the result is deterministic for a given generator state.
type Resampler interface {
	Name() string
	Resample(train *imbal.Dataset, rng *rand.Rand) (*imbal.Dataset, error)
}

// Names of the available strategies.
const (
	NameNone    = "none"
	NameOver    = "over"
	NameUnder   = "under"
	NameSMOTE   = "smote"
	NameDBSMOTE = "dbsmote"
	NameROSE    = "rose"
)

// Names returns the names of all available strategies.
func Names() []string {
	return []string{NameNone, NameOver, NameUnder, NameSMOTE, NameDBSMOTE, NameROSE}
}

// Config configures a resampling strategy.  Zero values select the
// defaults of the according strategy.
type Config struct {
	Strategy      string  `json:"strategy" toml:"strategy"`
	Ratio         float64 `json:"ratio,omitempty" toml:"ratio"`   // target minority/majority ratio
	K             int     `json:"k,omitempty" toml:"k"`           // smote
	Eps           float64 `json:"eps,omitempty" toml:"eps"`       // dbsmote
	MinPts        int     `json:"minPts,omitempty" toml:"minPts"` // dbsmote
	P             float64 `json:"p,omitempty" toml:"p"`           // rose
	N             int     `json:"n,omitempty" toml:"n"`           // rose
	HMultMajority float64 `json:"hmultMajority,omitempty" toml:"hmultMajority"`
	HMultMinority float64 `json:"hmultMinority,omitempty" toml:"hmultMinority"`
}

// New returns the resampler for the given configuration.  An empty
// strategy selects no resampling.
func New(c Config) (Resampler, error) {
	switch {
	case c.Ratio < 0 || math.IsNaN(c.Ratio):
		return nil, &imbal.ConfigError{Field: "ratio", Value: c.Ratio, Hint: "must not be negative"}
	case c.K < 0:
		return nil, &imbal.ConfigError{Field: "k", Value: c.K, Hint: "must not be negative"}
	case c.Eps < 0:
		return nil, &imbal.ConfigError{Field: "eps", Value: c.Eps, Hint: "must not be negative"}
	case c.MinPts < 0:
		return nil, &imbal.ConfigError{Field: "minPts", Value: c.MinPts, Hint: "must not be negative"}
	case c.P < 0 || c.P > 1:
		return nil, &imbal.ConfigError{Field: "p", Value: c.P, Hint: "must be in [0,1]"}
	case c.N < 0:
		return nil, &imbal.ConfigError{Field: "n", Value: c.N, Hint: "must not be negative"}
	case c.HMultMajority < 0 || c.HMultMinority < 0:
		return nil, &imbal.ConfigError{Field: "hmult", Value: [2]float64{c.HMultMajority, c.HMultMinority},
			Hint: "must not be negative"}
	}
	switch c.Strategy {
	case "", NameNone:
		return None{}, nil
	case NameOver:
		return RandomOverSample{Ratio: c.Ratio}, nil
	case NameUnder:
		return RandomUnderSample{Ratio: c.Ratio}, nil
	case NameSMOTE:
		return SMOTE{K: c.K, Ratio: c.Ratio}, nil
	case NameDBSMOTE:
		return DBSMOTE{Eps: c.Eps, MinPts: c.MinPts, Ratio: c.Ratio}, nil
	case NameROSE:
		return ROSE{P: c.P, N: c.N, HMultMajority: c.HMultMajority, HMultMinority: c.HMultMinority}, nil
	default:
		err := &imbal.ConfigError{Field: "strategy", Value: c.Strategy}
		if s, _ := lev.Closest(c.Strategy, Names()); s != "" {
			err.Hint = fmt.Sprintf("did you mean %q?", s)
		}
		return nil, err
	}
}

// None returns the training set unchanged.
type None struct{}

// Name returns "none".
func (None) Name() string { return NameNone }

// Resample returns train.
func (None) Resample(train *imbal.Dataset, _ *rand.Rand) (*imbal.Dataset, error) {
	return train, nil
}

// target returns the wanted number of minority rows for the given
// majority count.
func target(ratio float64, majority int) int {
	if ratio <= 0 {
		ratio = 1
	}
	return int(math.Round(ratio * float64(majority)))
}

// extend returns a new dataset with the rows of d followed by extra.
func extend(d *imbal.Dataset, extra []imbal.Row) (*imbal.Dataset, error) {
	rows := make([]imbal.Row, 0, d.Len()+len(extra))
	for i := 0; i < d.Len(); i++ {
		rows = append(rows, d.Row(i))
	}
	return imbal.FromRows(d.Features(), append(rows, extra...))
}

// synthetic returns a new generated row.
func synthetic(x []float64, class bool, source, neighbor int) imbal.Row {
	return imbal.Row{
		X:     x,
		ID:    imbal.NoID,
		Label: class,
		Provenance: imbal.Provenance{
			Origin:   imbal.Synthetic,
			Source:   source,
			Neighbor: neighbor,
		},
	}
}

// interpolate returns a + u*(b-a).
func interpolate(a, b []float64, u float64) []float64 {
	ret := make([]float64, len(a))
	for i := range a {
		ret[i] = a[i] + u*(b[i]-a[i])
	}
	return ret
}

func logCounts(name string, before, after *imbal.Dataset) {
	b, a := before.Counts(), after.Counts()
	imbal.Log().Debug("resample",
		zap.String("strategy", name),
		zap.Int("positiveBefore", b.Positive),
		zap.Int("negativeBefore", b.Negative),
		zap.Int("positiveAfter", a.Positive),
		zap.Int("negativeAfter", a.Negative),
		zap.Int("synthetic", a.Synthetic),
		zap.Int("duplicate", a.Duplicate))
}
