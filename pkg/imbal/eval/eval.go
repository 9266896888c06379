// Package eval computes confusion matrices and the metrics derived
// from them.
package eval

import (
	"fmt"
	"io"
	"math"
)

// ConfusionMatrix holds the counts of a binary classification.
type ConfusionMatrix struct {
	TP int `json:"tp"`
	FP int `json:"fp"`
	TN int `json:"tn"`
	FN int `json:"fn"`
}

// Outcome is the outcome of a single classification.
type Outcome int

// Possible outcomes.
const (
	TP Outcome = iota
	TN
	FP
	FN
)

// Add adds a single classification to the matrix and returns its
// outcome.
func (m *ConfusionMatrix) Add(label, predicted bool) Outcome {
	if label {
		if predicted {
			m.TP++
			return TP
		}
		m.FN++
		return FN
	}
	if predicted {
		m.FP++
		return FP
	}
	m.TN++
	return TN
}

// Evaluate labels each row positive iff its probability is greater
// than the cutoff and counts the outcomes.
func Evaluate(probs []float64, labels []bool, cutoff float64) (ConfusionMatrix, error) {
	var m ConfusionMatrix
	if len(probs) != len(labels) {
		return m, fmt.Errorf("evaluate: %d probabilities but %d labels", len(probs), len(labels))
	}
	if math.IsNaN(cutoff) {
		return m, fmt.Errorf("evaluate: invalid cutoff %g", cutoff)
	}
	for i := range probs {
		m.Add(labels[i], probs[i] > cutoff)
	}
	return m, nil
}

// Total returns the number of classifications.
func (m ConfusionMatrix) Total() int {
	return m.TP + m.FP + m.TN + m.FN
}

// Positives returns the number of positive labels.
func (m ConfusionMatrix) Positives() int {
	return m.TP + m.FN
}

// Negatives returns the number of negative labels.
func (m ConfusionMatrix) Negatives() int {
	return m.TN + m.FP
}

// Cost returns the expected cost of the errors.
func (m ConfusionMatrix) Cost(fp, fn float64) float64 {
	return fp*float64(m.FP) + fn*float64(m.FN)
}

func ratio(a, b int) (float64, bool) {
	if b == 0 {
		return 0, false
	}
	return float64(a) / float64(b), true
}

// Accuracy returns (TP+TN)/total.  It is undefined for an empty
// matrix.
func (m ConfusionMatrix) Accuracy() (float64, bool) {
	return ratio(m.TP+m.TN, m.Total())
}

// Sensitivity returns the recall TP/(TP+FN).
func (m ConfusionMatrix) Sensitivity() (float64, bool) {
	return ratio(m.TP, m.TP+m.FN)
}

// Specificity returns TN/(TN+FP).
func (m ConfusionMatrix) Specificity() (float64, bool) {
	return ratio(m.TN, m.TN+m.FP)
}

// PPV returns the precision TP/(TP+FP).  It is undefined if there are
// no predicted positives.
func (m ConfusionMatrix) PPV() (float64, bool) {
	return ratio(m.TP, m.TP+m.FP)
}

// NPV returns TN/(TN+FN).
func (m ConfusionMatrix) NPV() (float64, bool) {
	return ratio(m.TN, m.TN+m.FN)
}

// F1 returns the harmonic mean of PPV and sensitivity.
func (m ConfusionMatrix) F1() (float64, bool) {
	p, ok1 := m.PPV()
	r, ok2 := m.Sensitivity()
	if !ok1 || !ok2 || p+r == 0 {
		return 0, false
	}
	return (2 * p * r) / (p + r), true
}

// Metrics holds the derived metrics of a confusion matrix.  Undefined
// metrics are nil.
type Metrics struct {
	Accuracy    *float64 `json:"accuracy"`
	Sensitivity *float64 `json:"sensitivity"`
	Specificity *float64 `json:"specificity"`
	PPV         *float64 `json:"ppv"`
	NPV         *float64 `json:"npv"`
	F1          *float64 `json:"f1"`
}

// Metrics calculates the derived metrics of the matrix.
func (m ConfusionMatrix) Metrics() Metrics {
	opt := func(f func() (float64, bool)) *float64 {
		if v, ok := f(); ok {
			return &v
		}
		return nil
	}
	return Metrics{
		Accuracy:    opt(m.Accuracy),
		Sensitivity: opt(m.Sensitivity),
		Specificity: opt(m.Specificity),
		PPV:         opt(m.PPV),
		NPV:         opt(m.NPV),
		F1:          opt(m.F1),
	}
}

// Write writes the counts and metrics of the matrix, one per line and
// each prefixed with the given prefix.  Undefined metrics are written
// as NA.
func (m ConfusionMatrix) Write(out io.Writer, prefix string) error {
	f := formater{out: out}
	f.printf("%s tp %d\n", prefix, m.TP)
	f.printf("%s fp %d\n", prefix, m.FP)
	f.printf("%s tn %d\n", prefix, m.TN)
	f.printf("%s fn %d\n", prefix, m.FN)
	for _, x := range []struct {
		name string
		f    func() (float64, bool)
	}{
		{"acc", m.Accuracy},
		{"sen", m.Sensitivity},
		{"spe", m.Specificity},
		{"ppv", m.PPV},
		{"npv", m.NPV},
		{"f1", m.F1},
	} {
		if v, ok := x.f(); ok {
			f.printf("%s %s %f\n", prefix, x.name, v)
		} else {
			f.printf("%s %s NA\n", prefix, x.name)
		}
	}
	return f.err
}

type formater struct {
	out io.Writer
	err error
}

func (f *formater) printf(format string, args ...interface{}) {
	if f.err != nil {
		return
	}
	_, err := fmt.Fprintf(f.out, format, args...)
	f.err = err
}
