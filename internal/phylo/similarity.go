package phylo

import (
	"gel-analyzer/internal/cluster"

	"gonum.org/v1/gonum/mat"
)

// Similarity returns the Dice similarity between every pair of lanes of a
// match matrix, scaled to [0, 100]: 200*shared / (bands_i + bands_j). The
// diagonal is 100. Two lanes without any band have similarity 0.
func Similarity(m *cluster.MatchMatrix) (*mat.SymDense, error) {
	n := m.Cols()
	if n == 0 {
		return nil, ErrNoTaxa
	}

	cols := make([][]float64, n)
	counts := make([]float64, n)
	for c := 0; c < n; c++ {
		if m.Data != nil {
			cols[c] = m.Column(c)
		}
		for _, v := range cols[c] {
			counts[c] += v
		}
	}

	sim := mat.NewSymDense(n, nil)
	for i := 0; i < n; i++ {
		sim.SetSym(i, i, 100)
		for j := i + 1; j < n; j++ {
			total := counts[i] + counts[j]
			if total == 0 {
				continue
			}
			var shared float64
			for r := range cols[i] {
				shared += min(cols[i][r], cols[j][r])
			}
			sim.SetSym(i, j, 200*shared/total)
		}
	}
	return sim, nil
}

// Distance converts similarity to distance: 100 - similarity.
func Distance(sim mat.Symmetric) *mat.SymDense {
	n := sim.SymmetricDim()
	if n == 0 {
		return &mat.SymDense{}
	}
	dist := mat.NewSymDense(n, nil)
	for i := 0; i < n; i++ {
		for j := i; j < n; j++ {
			dist.SetSym(i, j, 100-sim.At(i, j))
		}
	}
	return dist
}
