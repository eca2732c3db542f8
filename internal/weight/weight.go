// Package weight estimates molecular weights from band positions using a
// reference ladder.
//
// Migration distance is modelled as linear in the logarithm of the weight.
// The model is fitted on the marker lane and then applied to every lane.
package weight

import (
	"errors"
	"fmt"
	"math"

	"gel-analyzer/internal/band"

	"gonum.org/v1/gonum/stat"
)

var (
	// ErrLadderMismatch is returned when the marker lane does not have one
	// band per ladder weight.
	ErrLadderMismatch = errors.New("marker lane band count does not match ladder")

	// ErrDegenerateLadder is returned when no line can be fitted through the
	// ladder: fewer than two rungs, non-positive weights, or all weights equal.
	ErrDegenerateLadder = errors.New("degenerate ladder")
)

// Model maps a band position to a weight: log(weight) = Slope*pos + Intercept.
type Model struct {
	Slope     float64 `json:"slope"`
	Intercept float64 `json:"intercept"`
}

// Weight returns the estimated weight at a position, rounded to the nearest
// integer.
func (m Model) Weight(pos int) int {
	return int(math.Round(math.Exp(m.Slope*float64(pos) + m.Intercept)))
}

// Fit fits the model on the bands of the marker lane. refWeights lists the
// ladder weights in the same order as the marker bands, i.e. heaviest first
// for a gel loaded at row zero.
func Fit(perLane [][]band.Band, refWeights []float64, markerLane int) (Model, error) {
	if markerLane < 0 || markerLane >= len(perLane) {
		return Model{}, fmt.Errorf("marker lane %d out of range [0, %d)", markerLane, len(perLane))
	}
	markers := perLane[markerLane]
	if len(markers) != len(refWeights) {
		return Model{}, fmt.Errorf("%w: lane %d has %d bands, ladder has %d weights",
			ErrLadderMismatch, markerLane, len(markers), len(refWeights))
	}
	if len(refWeights) < 2 {
		return Model{}, fmt.Errorf("%w: need at least two weights", ErrDegenerateLadder)
	}

	logW := make([]float64, len(refWeights))
	pos := make([]float64, len(markers))
	for i, w := range refWeights {
		if w <= 0 {
			return Model{}, fmt.Errorf("%w: weight %g is not positive", ErrDegenerateLadder, w)
		}
		logW[i] = math.Log(w)
		pos[i] = float64(markers[i].Position)
	}
	if stat.Variance(logW, nil) == 0 {
		return Model{}, fmt.Errorf("%w: all weights are equal", ErrDegenerateLadder)
	}

	// pos = alpha + beta*log(w), inverted.
	alpha, beta := stat.LinearRegression(logW, pos, nil, false)
	if beta == 0 || math.IsNaN(beta) {
		return Model{}, fmt.Errorf("%w: marker bands do not move with weight", ErrDegenerateLadder)
	}
	return Model{Slope: 1 / beta, Intercept: -alpha / beta}, nil
}

// Apply estimates the weight of every band. The result has the shape of
// perLane.
func Apply(perLane [][]band.Band, model Model) [][]int {
	weights := make([][]int, len(perLane))
	for l, bands := range perLane {
		weights[l] = make([]int, len(bands))
		for k, b := range bands {
			weights[l][k] = model.Weight(b.Position)
		}
	}
	return weights
}
