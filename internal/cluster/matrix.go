package cluster

import (
	"gel-analyzer/internal/band"

	"gonum.org/v1/gonum/mat"
)

// MatchMatrix is the band presence pattern: one row per cluster, one column
// per lane, 1 where the lane contributed a band to the cluster. Clusters with
// no band in any remaining lane are dropped.
type MatchMatrix struct {
	// Data is nil when the matrix has no rows or no columns.
	Data *mat.Dense

	// Clusters[r] is the cluster id of row r.
	Clusters []int

	// Lanes[c] is the original lane index of column c.
	Lanes []int
}

// Rows returns the number of clusters in the matrix.
func (m *MatchMatrix) Rows() int { return len(m.Clusters) }

// Cols returns the number of lanes in the matrix.
func (m *MatchMatrix) Cols() int { return len(m.Lanes) }

// At returns the entry for row r and column c as 0 or 1.
func (m *MatchMatrix) At(r, c int) int {
	return int(m.Data.At(r, c))
}

// Column returns the presence vector of column c.
func (m *MatchMatrix) Column(c int) []float64 {
	return mat.Col(nil, c, m.Data)
}

// NewMatchMatrix wraps a dense 0/1 matrix read from elsewhere. Rows and
// columns are numbered sequentially.
func NewMatchMatrix(data *mat.Dense) *MatchMatrix {
	r, c := data.Dims()
	m := &MatchMatrix{Data: data, Clusters: make([]int, r), Lanes: make([]int, c)}
	for i := range m.Clusters {
		m.Clusters[i] = i
	}
	for i := range m.Lanes {
		m.Lanes[i] = i
	}
	return m
}

// BuildMatchMatrix builds the match matrix from labelled per-lane bands.
// Columns for the excluded lanes (typically marker lanes) are removed before
// empty rows are dropped.
func BuildMatchMatrix(perLane [][]band.Band, clusterCount int, exclude ...int) *MatchMatrix {
	skip := make(map[int]bool, len(exclude))
	for _, l := range exclude {
		skip[l] = true
	}

	m := &MatchMatrix{}
	for l := range perLane {
		if !skip[l] {
			m.Lanes = append(m.Lanes, l)
		}
	}

	present := make([][]bool, clusterCount)
	for r := range present {
		present[r] = make([]bool, len(m.Lanes))
	}
	for c, l := range m.Lanes {
		for _, b := range perLane[l] {
			if b.Cluster >= 0 && b.Cluster < clusterCount {
				present[b.Cluster][c] = true
			}
		}
	}

	var rows [][]bool
	for r, row := range present {
		for _, v := range row {
			if v {
				rows = append(rows, row)
				m.Clusters = append(m.Clusters, r)
				break
			}
		}
	}

	if len(rows) == 0 || len(m.Lanes) == 0 {
		return m
	}
	m.Data = mat.NewDense(len(rows), len(m.Lanes), nil)
	for r, row := range rows {
		for c, v := range row {
			if v {
				m.Data.Set(r, c, 1)
			}
		}
	}
	return m
}
