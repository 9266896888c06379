package resample

import (
	"math"
	"sort"

	"git.sr.ht/~flobar/imbal/pkg/imbal"
	"gonum.org/v1/gonum/spatial/kdtree"
)

// point is a feature vector of the row with index row.
type point struct {
	x   []float64
	row int
}

// Compare implements kdtree.Comparable.
func (p point) Compare(c kdtree.Comparable, d kdtree.Dim) float64 {
	return p.x[d] - c.(point).x[d]
}

// Dims implements kdtree.Comparable.
func (p point) Dims() int { return len(p.x) }

// Distance returns the squared euclidean distance.
func (p point) Distance(c kdtree.Comparable) float64 {
	q := c.(point)
	var sum float64
	for i := range p.x {
		d := p.x[i] - q.x[i]
		sum += d * d
	}
	return sum
}

type points []point

func (p points) Index(i int) kdtree.Comparable { return p[i] }
func (p points) Len() int                      { return len(p) }
func (p points) Slice(start, end int) kdtree.Interface {
	return p[start:end]
}

// Pivot partitions the points around their median in dimension d.
func (p points) Pivot(d kdtree.Dim) int {
	pl := plane{points: p, dim: d}
	return kdtree.Partition(pl, kdtree.MedianOfMedians(pl))
}

// plane sorts points along one dimension.
type plane struct {
	points points
	dim    kdtree.Dim
}

func (p plane) Len() int           { return len(p.points) }
func (p plane) Less(i, j int) bool { return p.points[i].x[p.dim] < p.points[j].x[p.dim] }
func (p plane) Swap(i, j int)      { p.points[i], p.points[j] = p.points[j], p.points[i] }
func (p plane) Slice(start, end int) kdtree.SortSlicer {
	return plane{points: p.points[start:end], dim: p.dim}
}

// neighbor is a row index with its euclidean distance to a query.
type neighbor struct {
	row  int
	dist float64
}

// index answers nearest neighbour queries over a subset of the rows
// of a dataset.
type index struct {
	d    *imbal.Dataset
	tree *kdtree.Tree
}

func newIndex(d *imbal.Dataset, rows []int) *index {
	ps := make(points, len(rows))
	for i, row := range rows {
		ps[i] = point{x: d.Row(row).X, row: row}
	}
	return &index{d: d, tree: kdtree.New(ps, false)}
}

func (ix *index) point(row int) point {
	return point{x: ix.d.Row(row).X, row: row}
}

// knn returns the k nearest neighbours of the given row, not counting
// the row itself.  Ties are broken by row index.
func (ix *index) knn(row, k int) []neighbor {
	keep := kdtree.NewNKeeper(k + 1)
	ix.tree.NearestSet(keep, ix.point(row))
	ret := collect(keep.Heap, row)
	if len(ret) > k {
		ret = ret[:k]
	}
	return ret
}

// within returns all rows with a distance of at most eps to the given
// row, not counting the row itself.
func (ix *index) within(row int, eps float64) []neighbor {
	keep := kdtree.NewDistKeeper(eps * eps)
	ix.tree.NearestSet(keep, ix.point(row))
	return collect(keep.Heap, row)
}

func collect(h kdtree.Heap, self int) []neighbor {
	ret := make([]neighbor, 0, len(h))
	for _, c := range h {
		if c.Comparable == nil {
			continue
		}
		p := c.Comparable.(point)
		if p.row == self {
			continue
		}
		ret = append(ret, neighbor{row: p.row, dist: math.Sqrt(c.Dist)})
	}
	sort.Slice(ret, func(i, j int) bool {
		if ret[i].dist != ret[j].dist {
			return ret[i].dist < ret[j].dist
		}
		return ret[i].row < ret[j].row
	})
	return ret
}
