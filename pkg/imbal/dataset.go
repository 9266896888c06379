package imbal

import (
	"fmt"

	"git.sr.ht/~flobar/imbal/pkg/imbal/lev"
	"gonum.org/v1/gonum/mat"
)

// Predefined values for the negative and positive class.
const (
	Negative = false
	Positive = true
)

// Label converts a class to its 0/1 label.
func Label(class bool) int {
	if class {
		return 1
	}
	return 0
}

// Origin tells where a row of a dataset comes from.
type Origin int

// Possible row origins.
const (
	Original  Origin = iota // row of the loaded dataset
	Duplicate               // copy of an original row
	Synthetic               // generated row
)

func (o Origin) String() string {
	switch o {
	case Original:
		return "original"
	case Duplicate:
		return "duplicate"
	case Synthetic:
		return "synthetic"
	default:
		return fmt.Sprintf("origin(%d)", int(o))
	}
}

// Provenance records how a row came into existence.  Source and
// Neighbor are row IDs of the rows the row was generated from (-1 if
// not applicable).
type Provenance struct {
	Origin   Origin
	Source   int
	Neighbor int
}

// Row is a single labeled feature vector.  ID is the identity of
// original rows; derived rows have an ID of -1.
type Row struct {
	X     []float64
	ID    int
	Label bool
	Provenance
}

// NoID marks rows that do not stem directly from the loaded dataset.
const NoID = -1

// Dataset is an immutable table of named numeric feature columns and
// a binary label column.  The feature vectors are shared between
// derived datasets and must not be modified.
type Dataset struct {
	features []string
	index    map[string]int
	rows     []Row
	ids      map[int]int
}

// New creates a new dataset from the given rows and labels.  The rows
// get the IDs 0 to len(xs)-1.
func New(features []string, xs [][]float64, labels []bool) (*Dataset, error) {
	if len(xs) != len(labels) {
		return nil, fmt.Errorf("new dataset: %d rows but %d labels", len(xs), len(labels))
	}
	rows := make([]Row, len(xs))
	for i := range xs {
		rows[i] = Row{
			X:          xs[i],
			ID:         i,
			Label:      labels[i],
			Provenance: Provenance{Origin: Original, Source: NoID, Neighbor: NoID},
		}
	}
	d, err := FromRows(features, rows)
	if err != nil {
		return nil, fmt.Errorf("new dataset: %w", err)
	}
	return d, nil
}

// FromRows creates a new dataset from the given rows.  All rows must
// have len(features) values and IDs must be unique (except NoID).
func FromRows(features []string, rows []Row) (*Dataset, error) {
	index := make(map[string]int, len(features))
	for i, f := range features {
		if _, ok := index[f]; ok {
			return nil, fmt.Errorf("fromRows: duplicate feature %q", f)
		}
		index[f] = i
	}
	ids := make(map[int]int, len(rows))
	for i, r := range rows {
		if len(r.X) != len(features) {
			return nil, fmt.Errorf("fromRows: row %d: expected %d features; got %d",
				i, len(features), len(r.X))
		}
		if r.ID == NoID {
			continue
		}
		if _, ok := ids[r.ID]; ok {
			return nil, fmt.Errorf("fromRows: row %d: duplicate id %d", i, r.ID)
		}
		ids[r.ID] = i
	}
	return &Dataset{
		features: append([]string(nil), features...),
		index:    index,
		rows:     rows,
		ids:      ids,
	}, nil
}

// Len returns the number of rows.
func (d *Dataset) Len() int {
	return len(d.rows)
}

// Features returns a copy of the feature names.
func (d *Dataset) Features() []string {
	return append([]string(nil), d.features...)
}

// Row returns the i-th row.
func (d *Dataset) Row(i int) Row {
	return d.rows[i]
}

// Lookup returns the index of the row with the given ID.
func (d *Dataset) Lookup(id int) (int, bool) {
	i, ok := d.ids[id]
	return i, ok
}

// Labels returns the labels of all rows.
func (d *Dataset) Labels() []bool {
	ret := make([]bool, len(d.rows))
	for i := range d.rows {
		ret[i] = d.rows[i].Label
	}
	return ret
}

// Y returns the 0/1 labels as a vector.
func (d *Dataset) Y() *mat.VecDense {
	ys := make([]float64, len(d.rows))
	for i := range d.rows {
		ys[i] = float64(Label(d.rows[i].Label))
	}
	return mat.NewVecDense(len(ys), ys)
}

// Indices returns the indices of all rows of the given class.
func (d *Dataset) Indices(class bool) []int {
	var ret []int
	for i := range d.rows {
		if d.rows[i].Label == class {
			ret = append(ret, i)
		}
	}
	return ret
}

// ClassCounts holds the class counts of a dataset.
type ClassCounts struct {
	Positive  int `json:"positive"`
	Negative  int `json:"negative"`
	Synthetic int `json:"synthetic"`
	Duplicate int `json:"duplicate"`
}

// Ratio returns the minority to majority ratio.  It returns 0 if one
// class is empty.
func (c ClassCounts) Ratio() float64 {
	lo, hi := c.Positive, c.Negative
	if lo > hi {
		lo, hi = hi, lo
	}
	if hi == 0 {
		return 0
	}
	return float64(lo) / float64(hi)
}

// Counts returns the class and origin counts of the dataset.
func (d *Dataset) Counts() ClassCounts {
	var c ClassCounts
	for i := range d.rows {
		if d.rows[i].Label {
			c.Positive++
		} else {
			c.Negative++
		}
		switch d.rows[i].Origin {
		case Synthetic:
			c.Synthetic++
		case Duplicate:
			c.Duplicate++
		}
	}
	return c
}

// Minority returns the minority class of the dataset and the indices
// of the minority and majority rows.  If both classes have the same
// size, the positive class is the minority class.
func (d *Dataset) Minority() (class bool, minority, majority []int) {
	pos, neg := d.Indices(Positive), d.Indices(Negative)
	if len(pos) <= len(neg) {
		return Positive, pos, neg
	}
	return Negative, neg, pos
}

// Subset returns a new dataset that contains the rows with the given
// indices in the given order.
func (d *Dataset) Subset(idx []int) *Dataset {
	rows := make([]Row, len(idx))
	ids := make(map[int]int, len(idx))
	for i, j := range idx {
		rows[i] = d.rows[j]
		if rows[i].ID != NoID {
			ids[rows[i].ID] = i
		}
	}
	return &Dataset{features: d.features, index: d.index, rows: rows, ids: ids}
}

// Columns returns the column indices of the given feature names.  If
// any name is missing, a *SchemaMismatchError is returned.
func (d *Dataset) Columns(names []string) ([]int, error) {
	cols := make([]int, len(names))
	var missing []string
	for i, name := range names {
		j, ok := d.index[name]
		if !ok {
			missing = append(missing, name)
			continue
		}
		cols[i] = j
	}
	if len(missing) == 0 {
		return cols, nil
	}
	err := &SchemaMismatchError{Missing: missing, Suggestion: make(map[string]string)}
	for _, m := range missing {
		if s, dist := lev.Closest(m, d.features); s != "" && dist <= len(m)/2 {
			err.Suggestion[m] = s
		}
	}
	return nil, err
}

// Matrix returns the values of the given feature columns as a dense
// matrix with one row per dataset row.  If names is empty, all
// features are used.
func (d *Dataset) Matrix(names []string) (*mat.Dense, error) {
	if len(names) == 0 {
		names = d.features
	}
	cols, err := d.Columns(names)
	if err != nil {
		return nil, fmt.Errorf("matrix: %w", err)
	}
	if len(d.rows) == 0 {
		return nil, fmt.Errorf("matrix: empty dataset")
	}
	x := mat.NewDense(len(d.rows), len(cols), nil)
	for i := range d.rows {
		for j, col := range cols {
			x.Set(i, j, d.rows[i].X[col])
		}
	}
	return x, nil
}

// Column returns a copy of the values of the given feature column.
func (d *Dataset) Column(name string) ([]float64, error) {
	cols, err := d.Columns([]string{name})
	if err != nil {
		return nil, fmt.Errorf("column: %w", err)
	}
	ret := make([]float64, len(d.rows))
	for i := range d.rows {
		ret[i] = d.rows[i].X[cols[0]]
	}
	return ret, nil
}
