package lane

import (
	"gel-analyzer/internal/image"

	"github.com/exascience/pargo/parallel"
)

// Default smoothing filter parameters.
const (
	DefaultWindow = 3
	DefaultPasses = 10
)

// Profiles reduces every lane to a 1-D intensity curve: the row sums over the
// lane's columns, smoothed by a centered moving average of half-width window
// applied passes times. Lanes are processed in parallel.
func Profiles(grid *image.Grid, lanes []Lane, window, passes int) []Profile {
	if len(lanes) == 0 {
		return nil
	}

	profiles := make([]Profile, len(lanes))
	parallel.Range(0, len(lanes), 0, func(low, high int) {
		for i := low; i < high; i++ {
			profiles[i] = Profile{
				Lane:   i,
				Mid:    lanes[i].Mid(),
				Values: Smooth(RowSums(grid, lanes[i]), window, passes),
			}
		}
	})
	return profiles
}

// RowSums returns, for every row, the sum of the samples in the lane's
// column interval. Columns outside the grid are ignored.
func RowSums(grid *image.Grid, l Lane) []float64 {
	cols := l.Interval().Clamp(grid.Width)
	sums := make([]float64, grid.Height)
	for y := 0; y < grid.Height; y++ {
		var s int
		for _, v := range grid.Row(y)[cols.Begin:cols.End] {
			s += int(v)
		}
		sums[y] = float64(s)
	}
	return sums
}

// Smooth applies a centered moving average of half-width window, passes
// times. Each pass averages x[t-window..t+window] for t in
// [window, len-window) and copies the edges unchanged, so the length of the
// sequence never changes. With passes == 0 the input is returned as a copy.
func Smooth(values []float64, window, passes int) []float64 {
	x := make([]float64, len(values))
	copy(x, values)
	if window <= 0 {
		return x
	}

	span := float64(2*window + 1)
	y := make([]float64, len(x))
	for p := 0; p < passes; p++ {
		copy(y, x)
		for t := window; t < len(x)-window; t++ {
			var s float64
			for _, v := range x[t-window : t+window+1] {
				s += v
			}
			y[t] = s / span
		}
		x, y = y, x
	}
	return x
}
