package resample

import (
	"fmt"
	"math"
	"math/rand/v2"
	"slices"

	"git.sr.ht/~flobar/imbal/pkg/imbal"
	"github.com/montanaflynn/stats"
	"go.uber.org/zap"
	"gonum.org/v1/gonum/graph/path"
	"gonum.org/v1/gonum/graph/simple"
)

// Defaults for DBSMOTE.
const (
	minMinPts     = 3
	epsPercentile = 75
)

// noise marks minority rows that do not belong to any cluster.
const noise = -1

// DBSMOTE clusters the minority class with DBSCAN and generates
// synthetic rows only within clusters.  Each synthetic row lies on an
// edge of the shortest path from a cluster member to the cluster's
// pseudo-centroid (the member closest to the cluster mean) in the
// graph connecting all members within a distance of Eps.  Noise rows
// are excluded from the synthesis.
//
// If Eps is 0, it is set to the 75th percentile of the distances of
// the minority rows to their (MinPts-1)-th nearest minority
// neighbour.  If MinPts is 0, it is set to max(3, dims+1).
type DBSMOTE struct {
	Eps    float64
	MinPts int
	Ratio  float64
}

// Name returns "dbsmote".
func (DBSMOTE) Name() string { return NameDBSMOTE }

// cluster holds the minority rows of one density connected cluster.
type cluster struct {
	members  []int // row indices
	centroid int   // position of the pseudo-centroid in members
}

// Resample appends the synthetic rows to the rows of train.
func (s DBSMOTE) Resample(train *imbal.Dataset, rng *rand.Rand) (*imbal.Dataset, error) {
	class, minority, majority := train.Minority()
	minPts := s.MinPts
	if minPts <= 0 {
		minPts = max(minMinPts, len(train.Features())+1)
	}
	if len(minority) < minPts {
		return nil, &imbal.InsufficientDataError{Op: NameDBSMOTE, Class: class, Have: len(minority), Need: minPts}
	}
	need := target(s.Ratio, len(majority)) - len(minority)
	if need <= 0 {
		return train, nil
	}
	ix := newIndex(train, minority)
	eps := s.Eps
	if eps <= 0 {
		var err error
		if eps, err = kdistance(ix, minority, minPts-1); err != nil {
			return nil, fmt.Errorf("%s: %w", NameDBSMOTE, err)
		}
	}
	clusters := dbscan(ix, minority, eps, minPts)
	var clustered int
	for _, c := range clusters {
		clustered += len(c.members)
	}
	imbal.Log().Debug("dbsmote: clustered",
		zap.Float64("eps", eps), zap.Int("minPts", minPts),
		zap.Int("clusters", len(clusters)), zap.Int("noise", len(minority)-clustered))
	if len(clusters) == 0 {
		return nil, &imbal.InsufficientDataError{Op: NameDBSMOTE + " clustering", Class: class, Need: minPts}
	}
	extra := make([]imbal.Row, 0, need)
	for i, n := range shares(clusters, clustered, need) {
		rows, err := clusters[i].synthesize(train, ix, eps, class, n, rng)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", NameDBSMOTE, err)
		}
		extra = append(extra, rows...)
	}
	ret, err := extend(train, extra)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", NameDBSMOTE, err)
	}
	logCounts(NameDBSMOTE, train, ret)
	return ret, nil
}

// kdistance returns the 75th percentile of the distances of the rows
// to their k-th nearest neighbour.
func kdistance(ix *index, rows []int, k int) (float64, error) {
	dists := make(stats.Float64Data, 0, len(rows))
	for _, row := range rows {
		nbs := ix.knn(row, k)
		dists = append(dists, nbs[len(nbs)-1].dist)
	}
	eps, err := stats.Percentile(dists, epsPercentile)
	if err != nil {
		return 0, err
	}
	if eps <= 0 {
		// All k-th neighbours coincide; fall back to the largest distance.
		eps, _ = stats.Max(dists)
	}
	return eps, nil
}

// dbscan clusters the given rows.  Clusters are numbered in the order
// of their first core row.
func dbscan(ix *index, rows []int, eps float64, minPts int) []cluster {
	labels := make(map[int]int, len(rows))
	regions := make(map[int][]neighbor, len(rows))
	region := func(row int) []neighbor {
		if nbs, ok := regions[row]; ok {
			return nbs
		}
		regions[row] = ix.within(row, eps)
		return regions[row]
	}
	var clusters []cluster
	for _, row := range rows {
		if _, ok := labels[row]; ok {
			continue
		}
		if len(region(row))+1 < minPts {
			labels[row] = noise
			continue
		}
		id := len(clusters)
		c := cluster{members: []int{row}}
		labels[row] = id
		queue := append([]neighbor(nil), region(row)...)
		for len(queue) > 0 {
			nb := queue[0]
			queue = queue[1:]
			if l, ok := labels[nb.row]; ok && l != noise {
				continue
			}
			labels[nb.row] = id // noise rows become border rows
			c.members = append(c.members, nb.row)
			if r := region(nb.row); len(r)+1 >= minPts {
				queue = append(queue, r...)
			}
		}
		clusters = append(clusters, c)
	}
	for i := range clusters {
		clusters[i].centroid = pseudoCentroid(ix, clusters[i].members)
	}
	return clusters
}

// pseudoCentroid returns the position of the member that is closest to
// the mean of all members.
func pseudoCentroid(ix *index, members []int) int {
	dims := len(ix.d.Row(members[0]).X)
	mean := make([]float64, dims)
	for _, row := range members {
		for j, x := range ix.d.Row(row).X {
			mean[j] += x / float64(len(members))
		}
	}
	center := point{x: mean}
	best, dist := 0, math.Inf(1)
	for i, row := range members {
		if d := ix.point(row).Distance(center); d < dist {
			best, dist = i, d
		}
	}
	return best
}

// shares distributes n synthetic rows over the clusters proportional
// to their sizes using the largest remainder method.
func shares(clusters []cluster, total, n int) []int {
	ret := make([]int, len(clusters))
	rems := make([]float64, len(clusters))
	var sum int
	for i, c := range clusters {
		exact := float64(n) * float64(len(c.members)) / float64(total)
		ret[i] = int(exact)
		rems[i] = exact - float64(ret[i])
		sum += ret[i]
	}
	for ; sum < n; sum++ {
		best := 0
		for i := range rems {
			if rems[i] > rems[best] {
				best = i
			}
		}
		ret[best]++
		rems[best] = -1
	}
	return ret
}

// synthesize generates n rows along the shortest paths of the cluster
// members to the pseudo-centroid.
func (c cluster) synthesize(d *imbal.Dataset, ix *index, eps float64, class bool, n int, rng *rand.Rand) ([]imbal.Row, error) {
	if n == 0 {
		return nil, nil
	}
	pos := make(map[int]int64, len(c.members))
	for i, row := range c.members {
		pos[row] = int64(i)
	}
	g := simple.NewWeightedUndirectedGraph(0, math.Inf(1))
	for i := range c.members {
		g.AddNode(simple.Node(i))
	}
	for i, row := range c.members {
		for _, nb := range ix.within(row, eps) {
			j, ok := pos[nb.row]
			if !ok || j <= int64(i) {
				continue
			}
			g.SetWeightedEdge(simple.WeightedEdge{F: simple.Node(i), T: simple.Node(j), W: nb.dist})
		}
	}
	sp := path.DijkstraFrom(simple.Node(c.centroid), g)
	order := rng.Perm(len(c.members))
	ret := make([]imbal.Row, 0, n)
	for i := 0; i < n; i++ {
		m := order[i%len(order)]
		var from, to int64
		if m == c.centroid {
			// The centroid interpolates towards one of its graph neighbours.
			nodes := g.From(int64(m))
			var adj []int64
			for nodes.Next() {
				adj = append(adj, nodes.Node().ID())
			}
			if len(adj) == 0 {
				return nil, fmt.Errorf("isolated pseudo-centroid %d", d.Row(c.members[m]).ID)
			}
			slices.Sort(adj)
			from, to = int64(m), adj[rng.IntN(len(adj))]
		} else {
			nodes, _ := sp.To(int64(m))
			if len(nodes) < 2 {
				return nil, fmt.Errorf("no path from row %d to its pseudo-centroid", d.Row(c.members[m]).ID)
			}
			e := rng.IntN(len(nodes) - 1)
			from, to = nodes[e].ID(), nodes[e+1].ID()
		}
		a, b := d.Row(c.members[from]), d.Row(c.members[to])
		ret = append(ret, synthetic(interpolate(a.X, b.X, rng.Float64()), class, a.ID, b.ID))
	}
	return ret, nil
}

var _ Resampler = DBSMOTE{}
