package lane

import (
	"math"

	"gel-analyzer/internal/image"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// Segment detects sample lanes in a gel grid.
//
// The column profile (per-column maximum over all rows) is swept from its
// maximum level down to the low threshold. At every level the profile is
// binarized and each run whose width is close to the mean lane width either
// widens an accepted lane or is inserted as a new one. Accepted lanes are
// never removed.
//
// An empty Lanes slice is a valid outcome; callers decide how to report it.
func Segment(grid *image.Grid, params Params) Result {
	result := Result{Params: params}
	if grid.Empty() {
		return result
	}

	colProfile := grid.ColumnMax()
	levels := make([]float64, len(colProfile))
	for i, v := range colProfile {
		levels[i] = float64(v)
	}
	minLevel := floats.Min(levels)
	maxLevel := floats.Max(levels)

	meanWidth := params.MeanWidth
	if meanWidth <= 0 {
		absHigh := minLevel + params.HighTh*(maxLevel-minLevel)
		meanWidth = EstimateMeanWidth(Spectrum(colProfile, absHigh))
	}
	result.MeanWidth = meanWidth

	tolerance := params.Proc * meanWidth
	lowBound := int(minLevel + params.LowTh*(maxLevel-minLevel))

	var lanes []Lane
	for level := int(maxLevel); level > lowBound; level-- {
		cursor := 0
		for _, run := range Spectrum(colProfile, float64(level)) {
			if math.Abs(float64(run.Width())-meanWidth) >= tolerance {
				continue
			}
			lanes, cursor = mergeRun(lanes, run, cursor)
		}
	}

	result.Lanes = lanes
	return result
}

// mergeRun folds an accepted run into the ordered lane list, starting the
// search at cursor. It returns the updated list and cursor.
func mergeRun(lanes []Lane, run Lane, cursor int) ([]Lane, int) {
	idx := -1
	for j := cursor; j < len(lanes); j++ {
		if run.Begin <= lanes[j].Begin {
			idx = j
			break
		}
	}

	if idx < 0 {
		lanes = append(lanes, run)
		return lanes, len(lanes)
	}

	if run.End >= lanes[idx].End {
		lanes[idx] = run
		return lanes, idx
	}

	lanes = append(lanes, Lane{})
	copy(lanes[idx+1:], lanes[idx:])
	lanes[idx] = run
	return lanes, idx + 1
}

// Spectrum binarizes a column profile at threshold (samples strictly above
// it are "on") and returns the maximal on-runs as half-open intervals.
// A trailing run that reaches the end of the profile without an off sample
// is discarded: the grid edge is not treated as a lane boundary.
func Spectrum(profile []uint8, threshold float64) []Lane {
	var runs []Lane
	end := 0
	for {
		begin := -1
		for i := end; i < len(profile); i++ {
			if float64(profile[i]) > threshold {
				begin = i
				break
			}
		}
		if begin < 0 {
			break
		}

		end = -1
		for i := begin; i < len(profile); i++ {
			if float64(profile[i]) <= threshold {
				end = i
				break
			}
		}
		if end < 0 {
			break
		}
		runs = append(runs, Lane{Begin: begin, End: end})
	}
	return runs
}

// EstimateMeanWidth computes a robust mean lane width from spectrum runs.
// Widths below the overall mean are dropped, then widths within 25% of the
// remaining mean are averaged. If none fall in that band the widest run wins.
// It returns 0 when there are no runs.
func EstimateMeanWidth(runs []Lane) float64 {
	if len(runs) == 0 {
		return 0
	}

	widths := make([]float64, len(runs))
	for i, r := range runs {
		widths[i] = float64(r.Width())
	}
	mean := stat.Mean(widths, nil)

	var wide []float64
	for _, w := range widths {
		if w >= mean {
			wide = append(wide, w)
		}
	}
	mean = stat.Mean(wide, nil)

	var near []float64
	for _, w := range wide {
		if w >= mean*0.75 && w <= mean*1.25 {
			near = append(near, w)
		}
	}
	if len(near) == 0 {
		return floats.Max(wide)
	}
	return stat.Mean(near, nil)
}
