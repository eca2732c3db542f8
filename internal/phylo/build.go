package phylo

import (
	"errors"
	"fmt"
	"math"
	"strings"

	"gonum.org/v1/gonum/mat"
)

// ErrUnstableLinkage is returned by Build for linkages that can produce
// negative branch lengths.
var ErrUnstableLinkage = errors.New("linkage method is not monotone")

// Method selects a tree building algorithm.
type Method int

// Tree building methods. NJ is neighbor-joining; the others are linkage
// rules for Agglomerate.
const (
	NJ Method = iota
	Single
	Complete
	UPGMA
	WPGMA
	Centroid
	Median
	Ward
)

var methodNames = map[Method]string{
	NJ:       "nj",
	Single:   "single",
	Complete: "complete",
	UPGMA:    "upgma",
	WPGMA:    "wpgma",
	Centroid: "centroid",
	Median:   "median",
	Ward:     "ward",
}

func (m Method) String() string {
	if s, ok := methodNames[m]; ok {
		return s
	}
	return fmt.Sprintf("Method(%d)", int(m))
}

// Stable reports whether Build accepts the method.
func (m Method) Stable() bool {
	switch m {
	case Centroid, Median, Ward:
		return false
	}
	return true
}

// ParseMethod parses a method name, ignoring case. "neighbor-joining" is
// accepted for NJ.
func ParseMethod(s string) (Method, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "neighbor-joining" || s == "neighbour-joining" {
		return NJ, nil
	}
	for m, name := range methodNames {
		if name == s {
			return m, nil
		}
	}
	return 0, fmt.Errorf("unknown tree method %q", s)
}

// Build builds a tree over a distance matrix with the given method.
func Build(dist mat.Symmetric, method Method) (*Tree, error) {
	if !method.Stable() {
		return nil, fmt.Errorf("%w: %s", ErrUnstableLinkage, method)
	}
	if method == NJ {
		return NeighborJoining(dist)
	}
	return Agglomerate(dist, linkages[method])
}

var linkages = map[Method]LinkageFunc{
	Single:   SingleLinkage,
	Complete: CompleteLinkage,
	UPGMA:    AverageLinkage,
	WPGMA:    WeightedLinkage,
	Centroid: CentroidLinkage,
	Median:   MedianLinkage,
	Ward:     WardLinkage,
}

// working holds the active part of a distance matrix during reduction.
// ids[k] is the tree node of row k.
type working struct {
	d   [][]float64
	ids []int
}

func newWorking(dist mat.Symmetric) *working {
	n := dist.SymmetricDim()
	w := &working{d: make([][]float64, n), ids: make([]int, n)}
	for i := 0; i < n; i++ {
		w.ids[i] = i
		w.d[i] = make([]float64, n)
		for j := 0; j < n; j++ {
			w.d[i][j] = dist.At(i, j)
		}
	}
	return w
}

// replace drops rows i and j and appends a row for node with the distances
// in row, given in the order of the remaining rows.
func (w *working) replace(i, j, node int, row []float64) {
	n := len(w.ids)
	d := make([][]float64, 0, n-1)
	ids := make([]int, 0, n-1)
	for k := 0; k < n; k++ {
		if k == i || k == j {
			continue
		}
		r := make([]float64, 0, n-1)
		for l := 0; l < n; l++ {
			if l != i && l != j {
				r = append(r, w.d[k][l])
			}
		}
		r = append(r, row[len(ids)])
		d = append(d, r)
		ids = append(ids, w.ids[k])
	}
	last := make([]float64, len(row)+1)
	copy(last, row)
	d = append(d, last)
	ids = append(ids, node)
	w.d, w.ids = d, ids
}

// NeighborJoining builds an unrooted tree with the neighbor-joining method.
// The last two nodes are left as roots, each with half of their distance.
func NeighborJoining(dist mat.Symmetric) (*Tree, error) {
	n := dist.SymmetricDim()
	if n == 0 {
		return nil, ErrNoTaxa
	}
	t := newTree(n)
	w := newWorking(dist)

	for n > 2 {
		r := make([]float64, n)
		for i := range w.d {
			for _, v := range w.d[i] {
				r[i] += v
			}
		}

		bi, bj := 0, 1
		best := math.Inf(1)
		for i := 0; i < n; i++ {
			for j := i + 1; j < n; j++ {
				q := float64(n-2)*w.d[i][j] - r[i] - r[j]
				if q < best {
					best, bi, bj = q, i, j
				}
			}
		}

		mi, mj := w.ids[bi], w.ids[bj]
		node := t.join(mi, mj)

		dij := w.d[bi][bj]
		li := 0.5 * (dij + (r[bi]-r[bj])/float64(n-2))
		lj := dij - li
		if li < 0 {
			lj -= li
			li = 0
		}
		if lj < 0 {
			li -= lj
			lj = 0
		}
		t.Length[mi], t.Length[mj] = li, lj

		row := make([]float64, 0, n-2)
		for k := 0; k < n; k++ {
			if k != bi && k != bj {
				row = append(row, 0.5*(w.d[bi][k]+w.d[bj][k]-dij))
			}
		}
		w.replace(bi, bj, node, row)
		n--
	}

	if n == 2 {
		half := 0.5 * w.d[0][1]
		t.Length[w.ids[0]] = half
		t.Length[w.ids[1]] = half
	}
	return t, nil
}

// LinkageFunc returns the distance from the union of clusters i and j to
// cluster k, given the pairwise distances and cluster sizes.
type LinkageFunc func(dik, djk, dij, ni, nj, nk float64) float64

// SingleLinkage uses the nearest member distance.
func SingleLinkage(dik, djk, dij, ni, nj, nk float64) float64 {
	return math.Min(dik, djk)
}

// CompleteLinkage uses the farthest member distance.
func CompleteLinkage(dik, djk, dij, ni, nj, nk float64) float64 {
	return math.Max(dik, djk)
}

// AverageLinkage is UPGMA: the size-weighted mean of the two distances.
func AverageLinkage(dik, djk, dij, ni, nj, nk float64) float64 {
	return (dik*ni + djk*nj) / (ni + nj)
}

// WeightedLinkage is WPGMA: the plain mean of the two distances.
func WeightedLinkage(dik, djk, dij, ni, nj, nk float64) float64 {
	return (dik + djk) / 2
}

// CentroidLinkage is UPGMC.
func CentroidLinkage(dik, djk, dij, ni, nj, nk float64) float64 {
	n := ni + nj
	return (dik*ni + djk*nj - dij*ni*nj/n) / n
}

// MedianLinkage is WPGMC.
func MedianLinkage(dik, djk, dij, ni, nj, nk float64) float64 {
	return (dik + djk - dij/2) / 2
}

// WardLinkage is Ward's minimum variance update.
func WardLinkage(dik, djk, dij, ni, nj, nk float64) float64 {
	return (dik*(ni+nk) + djk*(nj+nk) - dij*nk) / (ni + nj + nk)
}

// Agglomerate builds a rooted tree by repeatedly merging the closest pair of
// clusters. A merge at distance D sits at height D/2 and a branch spans the
// height difference between parent and child. The last two clusters are
// joined under an implicit top node at half their distance.
func Agglomerate(dist mat.Symmetric, linkage LinkageFunc) (*Tree, error) {
	n := dist.SymmetricDim()
	if n == 0 {
		return nil, ErrNoTaxa
	}
	t := newTree(n)
	w := newWorking(dist)
	height := make([]float64, n)
	size := make([]float64, n)
	for i := range size {
		size[i] = 1
	}

	for n > 2 {
		bi, bj := 0, 1
		best := math.Inf(1)
		for i := 0; i < n; i++ {
			for j := i + 1; j < n; j++ {
				if w.d[i][j] < best {
					best, bi, bj = w.d[i][j], i, j
				}
			}
		}

		mi, mj := w.ids[bi], w.ids[bj]
		node := t.join(mi, mj)
		h := best / 2
		height = append(height, h)
		size = append(size, size[mi]+size[mj])
		t.Length[mi] = h - height[mi]
		t.Length[mj] = h - height[mj]

		row := make([]float64, 0, n-2)
		for k := 0; k < n; k++ {
			if k != bi && k != bj {
				row = append(row, linkage(w.d[bi][k], w.d[bj][k], best, size[mi], size[mj], size[w.ids[k]]))
			}
		}
		w.replace(bi, bj, node, row)
		n--
	}

	if n == 2 {
		h := w.d[0][1] / 2
		t.Length[w.ids[0]] = h - height[w.ids[0]]
		t.Length[w.ids[1]] = h - height[w.ids[1]]
	}
	return t, nil
}
