// Package background estimates and removes the gel background around lanes.
//
// Background is sampled in the gaps between lanes. Each lane gets one level
// per row, and subtraction is clamped at zero.
package background

import (
	"gel-analyzer/internal/image"
	"gel-analyzer/internal/lane"
)

// Levels holds one background level per row for every lane: Levels[lane][row].
type Levels [][]int

// LevelsFunc estimates background levels for a set of lanes.
type LevelsFunc func(grid *image.Grid, lanes []lane.Lane) Levels

// Gaps returns the column intervals between lanes, including the margins
// before the first lane and after the last. There are len(lanes)+1 gaps;
// a gap may be empty when lanes touch.
func Gaps(width int, lanes []lane.Lane) []lane.Lane {
	if len(lanes) == 0 {
		return nil
	}
	gaps := make([]lane.Lane, 0, len(lanes)+1)
	gaps = append(gaps, lane.Lane{Begin: 0, End: lanes[0].Begin})
	for i := 0; i < len(lanes)-1; i++ {
		gaps = append(gaps, lane.Lane{Begin: lanes[i].End, End: lanes[i+1].Begin})
	}
	gaps = append(gaps, lane.Lane{Begin: lanes[len(lanes)-1].End, End: width})
	return gaps
}

// MeanGapLevels averages each gap row-wise. A lane's level is half the mean of
// its left gap plus half the mean of its right gap, truncated after each
// half. Empty gaps contribute nothing.
func MeanGapLevels(grid *image.Grid, lanes []lane.Lane) Levels {
	gaps := Gaps(grid.Width, lanes)
	means := make([][]float64, len(gaps))
	for i, g := range gaps {
		means[i] = rowMeans(grid, g)
	}

	levels := make(Levels, len(lanes))
	for i := range lanes {
		levels[i] = make([]int, grid.Height)
		left, right := means[i], means[i+1]
		for y := 0; y < grid.Height; y++ {
			var lvl float64
			if left != nil {
				lvl = float64(int(lvl + left[y]/2))
			}
			if right != nil {
				lvl = float64(int(lvl + right[y]/2))
			}
			levels[i][y] = int(lvl)
		}
	}
	return levels
}

// MidGapLevels samples the single column in the middle of each gap. A lane's
// level is the sum of the halved samples at its two neighbouring midpoints.
func MidGapLevels(grid *image.Grid, lanes []lane.Lane) Levels {
	gaps := Gaps(grid.Width, lanes)
	mids := make([]int, len(gaps))
	for i, g := range gaps {
		mids[i] = g.Mid()
		if mids[i] > grid.Width-1 {
			mids[i] = grid.Width - 1
		}
		if mids[i] < 0 {
			mids[i] = 0
		}
	}

	levels := make(Levels, len(lanes))
	for i := range lanes {
		levels[i] = make([]int, grid.Height)
		for y := 0; y < grid.Height; y++ {
			row := grid.Row(y)
			levels[i][y] = int(row[mids[i]])/2 + int(row[mids[i+1]])/2
		}
	}
	return levels
}

// Subtract removes the background from every lane using that lane's own
// levels. Pixels not above the level become zero, as does every column
// outside the lanes. The input grid is not modified.
func Subtract(grid *image.Grid, lanes []lane.Lane, levelsFunc LevelsFunc) *image.Grid {
	out := image.NewGrid(grid.Width, grid.Height)
	if len(lanes) == 0 || grid.Empty() {
		return out
	}
	if levelsFunc == nil {
		levelsFunc = MeanGapLevels
	}

	levels := levelsFunc(grid, lanes)
	for i, l := range lanes {
		cols := l.Interval().Clamp(grid.Width)
		for y := 0; y < grid.Height; y++ {
			lvl := levels[i][y]
			src := grid.Row(y)
			dst := out.Row(y)
			for x := cols.Begin; x < cols.End; x++ {
				if v := int(src[x]); v > lvl {
					dst[x] = uint8(v - lvl)
				}
			}
		}
	}
	return out
}

// rowMeans returns the per-row mean over the gap's columns, or nil for an
// empty gap.
func rowMeans(grid *image.Grid, gap lane.Lane) []float64 {
	cols := gap.Interval().Clamp(grid.Width)
	if cols.Empty() {
		return nil
	}
	n := float64(cols.Width())
	means := make([]float64, grid.Height)
	for y := 0; y < grid.Height; y++ {
		var s int
		for _, v := range grid.Row(y)[cols.Begin:cols.End] {
			s += int(v)
		}
		means[y] = float64(s) / n
	}
	return means
}
